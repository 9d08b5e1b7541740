package waveform

import "errors"

// MaxSetSize bounds how many waveforms a note can sum.
const MaxSetSize = 8

var ErrSetFull = errors.New("waveform set is full")

// Set is a fixed-capacity list of waveforms summed at synthesis time. It is a
// value type so notes can carry it without a heap allocation.
type Set struct {
	kinds [MaxSetSize]Kind
	n     int
}

// NewSet builds a set, truncating silently past MaxSetSize.
func NewSet(kinds ...Kind) Set {
	var s Set
	for _, k := range kinds {
		if s.Add(k) != nil {
			break
		}
	}
	return s
}

func (s *Set) Add(k Kind) error {
	if s.n >= MaxSetSize {
		return ErrSetFull
	}
	s.kinds[s.n] = k
	s.n++
	return nil
}

func (s Set) Len() int { return s.n }

func (s Set) At(i int) Kind { return s.kinds[i] }

// Kinds returns a copy of the set contents.
func (s Set) Kinds() []Kind {
	out := make([]Kind, s.n)
	copy(out, s.kinds[:s.n])
	return out
}

func (s Set) Contains(k Kind) bool {
	for i := 0; i < s.n; i++ {
		if s.kinds[i] == k {
			return true
		}
	}
	return false
}
