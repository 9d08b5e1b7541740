package note

import (
	"math"

	"github.com/roscosynth/rosco/internal/effects"
	"github.com/roscosynth/rosco/internal/envelope"
	"github.com/roscosynth/rosco/internal/filter"
	"github.com/roscosynth/rosco/internal/waveform"
)

// TrackEffects is the chain shared by every note on a track. Notes hold a
// pointer to it, so the stateful effects (flangers, delays, filters) keep one
// history per track across all of its notes. Use Clone for independent
// state.
type TrackEffects struct {
	Envelopes   []envelope.Envelope
	LFOs        []*effects.LFO
	Flangers    []*effects.Flanger
	Delays      []*effects.Delay
	Filters     []*filter.Filter
	Panning     float32
	NumChannels int
}

// NoOpTrackEffects is a mono track with no effects.
func NoOpTrackEffects() *TrackEffects {
	return &TrackEffects{NumChannels: 1}
}

// Clone copies the chain with fresh history for every stateful effect.
func (t *TrackEffects) Clone() *TrackEffects {
	c := &TrackEffects{
		Envelopes:   append([]envelope.Envelope(nil), t.Envelopes...),
		LFOs:        append([]*effects.LFO(nil), t.LFOs...),
		Panning:     t.Panning,
		NumChannels: t.NumChannels,
	}
	for _, f := range t.Flangers {
		c.Flangers = append(c.Flangers, f.Clone())
	}
	for _, d := range t.Delays {
		c.Delays = append(c.Delays, d.Clone())
	}
	for _, f := range t.Filters {
		c.Filters = append(c.Filters, f.Clone())
	}
	return c
}

// Reset clears the history of every stateful effect.
func (t *TrackEffects) Reset() {
	for _, f := range t.Flangers {
		f.Reset()
	}
	for _, d := range t.Delays {
		d.Reset()
	}
	for _, f := range t.Filters {
		f.Reset()
	}
}

// PlaybackNote is one scheduled occurrence of a Note or SampledNote with its
// own effects and a handle on its track's effects.
type PlaybackNote struct {
	Type    Type
	Note    Note
	Sampled *SampledNote

	Envelopes []envelope.Envelope
	LFOs      []*effects.LFO
	Flangers  []*effects.Flanger
	Delays    []*effects.Delay
	Filters   []*filter.Filter

	Track *TrackEffects
	// Panning applies only when OwnPanning is set. Otherwise the note takes
	// its track's panning.
	Panning     float32
	OwnPanning  bool
	NumChannels int

	StartMs     float32
	EndMs       float32
	SampleStart uint64
	SampleEnd   uint64
}

// FromNote schedules n over its own start and end times.
func FromNote(n Note, sampleRate int) *PlaybackNote {
	p := &PlaybackNote{Type: Oscillator, Note: n, NumChannels: 1}
	p.SetWindow(n.StartMs, n.EndMs, sampleRate)
	return p
}

// FromSampled schedules s over its own start and end times.
func FromSampled(s *SampledNote, sampleRate int) *PlaybackNote {
	p := &PlaybackNote{Type: Sample, Sampled: s, NumChannels: 1}
	p.SetWindow(s.StartMs, s.EndMs, sampleRate)
	return p
}

// SetWindow sets the playback window in milliseconds and derives the sample
// window from it.
func (p *PlaybackNote) SetWindow(startMs, endMs float32, sampleRate int) {
	p.StartMs = startMs
	p.EndMs = endMs
	p.SampleStart = msToSample(startMs, sampleRate)
	p.SampleEnd = msToSample(endMs, sampleRate)
}

func msToSample(ms float32, sampleRate int) uint64 {
	if ms <= 0 {
		return 0
	}
	return uint64(math.Round(float64(ms) * float64(sampleRate) / 1000))
}

// SetPanning gives the note its own panning, overriding the track's. 0 is
// an explicit centre.
func (p *PlaybackNote) SetPanning(v float32) {
	p.Panning = v
	p.OwnPanning = true
}

// InheritPanning drops the note's own panning in favour of the track's.
func (p *PlaybackNote) InheritPanning() {
	p.Panning = 0
	p.OwnPanning = false
}

func (p *PlaybackNote) DurationMs() float32 { return p.EndMs - p.StartMs }

// Volume of the underlying note.
func (p *PlaybackNote) Volume() float32 {
	if p.Type == Sample && p.Sampled != nil {
		return p.Sampled.Volume
	}
	return p.Note.Volume
}

func (p *PlaybackNote) SetVolume(v float32) {
	if p.Type == Sample && p.Sampled != nil {
		p.Sampled.Volume = v
		return
	}
	p.Note.Volume = v
}

// Active reports whether sampleCount lies in the playback window.
func (p *PlaybackNote) Active(sampleCount uint64) bool {
	return sampleCount >= p.SampleStart && sampleCount <= p.SampleEnd
}

// Progress is the normalized position of sampleCount in the window.
func (p *PlaybackNote) Progress(sampleCount uint64) float32 {
	if p.SampleEnd <= p.SampleStart {
		return 0
	}
	return float32(float64(int64(sampleCount)-int64(p.SampleStart)) / float64(p.SampleEnd-p.SampleStart))
}

func (p *PlaybackNote) track() *TrackEffects {
	if p.Track == nil {
		return noTrack
	}
	return p.Track
}

var noTrack = NoOpTrackEffects()

// Channels is the note's channel count, or the track's when the note is mono.
func (p *PlaybackNote) Channels() int {
	if p.NumChannels == 1 || p.NumChannels == 0 {
		return p.track().NumChannels
	}
	return p.NumChannels
}

// ApplyEffects runs sample through the fixed chain: envelopes, LFOs,
// flangers, delays, filters; note level before track level at each stage.
func (p *PlaybackNote) ApplyEffects(sample, samplePosition float32, sampleCount uint64) float32 {
	t := p.track()
	out := sample
	if len(p.Envelopes) > 0 || len(t.Envelopes) > 0 {
		progress := p.Progress(sampleCount)
		for i := range p.Envelopes {
			out = p.Envelopes[i].Apply(out, progress)
		}
		for i := range t.Envelopes {
			out = t.Envelopes[i].Apply(out, progress)
		}
	}
	for _, l := range p.LFOs {
		out = l.Apply(out, sampleCount)
	}
	for _, l := range t.LFOs {
		out = l.Apply(out, sampleCount)
	}
	for _, f := range p.Flangers {
		out = f.Apply(out, samplePosition)
	}
	for _, f := range t.Flangers {
		out = f.Apply(out, samplePosition)
	}
	for _, d := range p.Delays {
		out = d.Apply(out, samplePosition)
	}
	for _, d := range t.Delays {
		out = d.Apply(out, samplePosition)
	}
	for _, f := range p.Filters {
		out = f.Apply(out, samplePosition)
	}
	for _, f := range t.Filters {
		out = f.Apply(out, samplePosition)
	}
	return out
}

// Reset rewinds the sample cursor and clears the note's own effect history.
// Track effects are left alone; reset them through the track.
func (p *PlaybackNote) Reset() {
	if p.Sampled != nil {
		p.Sampled.Rewind()
	}
	for _, f := range p.Flangers {
		f.Reset()
	}
	for _, d := range p.Delays {
		d.Reset()
	}
	for _, f := range p.Filters {
		f.Reset()
	}
}

// Pan spreads a mono sample across two channels. The gains depend only on
// the magnitude of panning: left is scaled by 1-|p|/2, right by 1+|p|/2.
func Pan(sample, panning float32) (float32, float32) {
	if panning >= 0 {
		return sample * (1 - panning/2), sample * (1 + panning/2)
	}
	return sample * (1 + panning/2), sample * (1 - panning/2)
}

// Position is the fractional second sampleCount falls in, the phase that
// flangers sweep with.
func Position(sampleCount uint64, sampleRate int) float32 {
	sr := uint64(sampleRate)
	return float32(sampleCount%sr) / float32(sampleRate)
}

// Resolve produces the stereo sample of p at sampleCount.
func Resolve(p *PlaybackNote, tables *waveform.Tables, samplePosition float32, sampleCount uint64) (float32, float32) {
	channels := p.Channels()
	if channels != 1 && channels != 2 {
		return 0, 0
	}
	var raw float32
	switch p.Type {
	case Oscillator:
		raw = p.Note.Volume * tables.SampleSet(p.Note.Waveforms, p.Note.Frequency, sampleCount)
	case Sample:
		if p.Sampled != nil {
			raw = p.Sampled.Volume * p.Sampled.Next()
		}
	}
	out := p.ApplyEffects(raw, samplePosition, sampleCount)
	if channels == 1 {
		return out, out
	}
	panning := p.track().Panning
	if p.OwnPanning {
		panning = p.Panning
	}
	return Pan(out, panning)
}

// Mix sums every note active at sampleCount and clamps each channel to
// [-1, 1].
func Mix(notes []*PlaybackNote, tables *waveform.Tables, samplePosition float32, sampleCount uint64) (float32, float32) {
	var l, r float32
	for _, p := range notes {
		if !p.Active(sampleCount) {
			continue
		}
		nl, nr := Resolve(p, tables, samplePosition, sampleCount)
		l += nl
		r += nr
	}
	return clamp(l), clamp(r)
}

func clamp(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
