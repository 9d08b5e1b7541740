package filter

// Stereo runs two identically configured filters, one per channel. It
// satisfies the master bus Effector interface.
type Stereo struct {
	L, R *Filter
}

// NewStereo compiles cfg twice.
func NewStereo(cfg Config) (*Stereo, error) {
	l, err := cfg.Compile()
	if err != nil {
		return nil, err
	}
	return &Stereo{L: l, R: l.Clone()}, nil
}

func (s *Stereo) Process(l, r float32) (float32, float32) {
	return s.L.Apply(l, 0), s.R.Apply(r, 0)
}

func (s *Stereo) Reset() {
	s.L.Reset()
	s.R.Reset()
}

// Retune moves both channels.
func (s *Stereo) Retune(frequency, resonance float32) {
	s.L.Retune(frequency, resonance)
	s.R.Retune(frequency, resonance)
}
