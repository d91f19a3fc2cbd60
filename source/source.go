// Package source provides in-memory material read by the supply chain.
//
// Sources are immutable while they are played. They are safe to read from
// the real-time context and never allocate on read.
package source

import (
	"pipelined.dev/clip/supply"
)

// Kind is the kind of material.
type Kind int

const (
	// Audio material is sampled.
	Audio Kind = iota
	// Midi material is a list of timed messages.
	Midi
)

func (k Kind) String() string {
	if k == Midi {
		return "midi"
	}
	return "audio"
}

// Source is material played by a clip.
type Source interface {
	supply.Supplier
	// Kind returns the kind of material.
	Kind() Kind
	// Tempo returns the nominal tempo in bpm. Material without a known
	// tempo reports supply.MidiBaseBPM.
	Tempo() float64
}

// response returns the response for a request of ideal frames starting at
// start from material with length frames. Dest is the number of
// destination frames of the request.
func response(start, ideal, dest, length int, convert func(int) int) supply.Response {
	left := length - start
	if ideal < left {
		return supply.Response{Consumed: ideal, Written: dest}
	}
	left = max(left, 0)
	return supply.Response{
		Consumed: left,
		Written:  min(convert(left), dest),
		Status:   supply.ReachedEnd,
	}
}
