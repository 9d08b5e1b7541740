// Package envelope evaluates ADSR gain curves over normalized note progress.
package envelope

import (
	"errors"
	"fmt"
)

var ErrInvalid = errors.New("invalid envelope")

// Pair is one segment: the fraction of the note it occupies and the level it
// reaches at its end.
type Pair struct {
	Duration float32
	Level    float32
}

// Envelope is four consecutive linear segments starting from level 0 at
// progress 0. It is immutable and safe to share.
type Envelope struct {
	Attack, Decay, Sustain, Release Pair

	// segment end positions, cumulative
	ends [4]float32
}

// New validates and builds an envelope.
func New(attack, decay, sustain, release Pair) (Envelope, error) {
	e := Envelope{Attack: attack, Decay: decay, Sustain: sustain, Release: release}
	var total float32
	for i, p := range e.pairs() {
		if !(p.Duration >= 0) {
			return Envelope{}, fmt.Errorf("%w: segment %d has negative duration %g", ErrInvalid, i, p.Duration)
		}
		if !(p.Level >= 0 && p.Level <= 1) {
			return Envelope{}, fmt.Errorf("%w: segment %d level %g outside [0,1]", ErrInvalid, i, p.Level)
		}
		total += p.Duration
		e.ends[i] = total
	}
	if !(total <= 1.0001) {
		return Envelope{}, fmt.Errorf("%w: durations sum to %g", ErrInvalid, total)
	}
	return e, nil
}

// Clamped builds an envelope from any input without failing. Levels are
// clamped to [0,1] and durations floored at 0. Durations summing past 1 are
// scaled down proportionally so they sum to 1. NaN levels and durations
// become 0. Clamped does not allocate.
func Clamped(attack, decay, sustain, release Pair) Envelope {
	e := Envelope{Attack: attack, Decay: decay, Sustain: sustain, Release: release}
	ps := e.pairs()
	var total float32
	for i := range ps {
		ps[i].Level = unit(ps[i].Level)
		d := ps[i].Duration
		switch {
		case !(d > 0):
			d = 0
		case d > 1:
			d = 1
		}
		ps[i].Duration = d
		total += d
	}
	if total > 1.0001 {
		for i := range ps {
			ps[i].Duration /= total
		}
	}
	e.Attack, e.Decay, e.Sustain, e.Release = ps[0], ps[1], ps[2], ps[3]
	total = 0
	for i, p := range ps {
		total += p.Duration
		e.ends[i] = total
	}
	return e
}

func unit(v float32) float32 {
	if !(v >= 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Default is a short attack, a decay to 0.8, a sustain hold and a release to
// silence across the whole note.
func Default() Envelope {
	e, _ := New(
		Pair{Duration: 0.05, Level: 1},
		Pair{Duration: 0.15, Level: 0.8},
		Pair{Duration: 0.6, Level: 0.8},
		Pair{Duration: 0.2, Level: 0},
	)
	return e
}

// NoOp returns an envelope with unity gain everywhere.
func NoOp() Envelope {
	e, _ := New(
		Pair{Duration: 0, Level: 1},
		Pair{Duration: 0, Level: 1},
		Pair{Duration: 1, Level: 1},
		Pair{Duration: 0, Level: 1},
	)
	return e
}

func (e Envelope) pairs() [4]Pair {
	return [4]Pair{e.Attack, e.Decay, e.Sustain, e.Release}
}

// Gain returns the envelope level at progress. Negative progress clamps to
// the start; progress past the last segment holds the release level.
func (e Envelope) Gain(progress float32) float32 {
	if progress < 0 {
		progress = 0
	}
	pairs := e.pairs()
	var start, from float32
	for i, p := range pairs {
		end := e.ends[i]
		if progress < end {
			return from + (p.Level-from)*(progress-start)/p.Duration
		}
		start = end
		from = p.Level
	}
	return e.Release.Level
}

// Apply scales sample by the gain at progress.
func (e Envelope) Apply(sample, progress float32) float32 {
	return sample * e.Gain(progress)
}
