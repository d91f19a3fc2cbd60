package supply

import (
	"pipelined.dev/clip/signal"
)

// Boundary restricts material to [Start, Start+Length). Zero Length means
// the section is open to the end of material.
type Boundary struct {
	Start  int
	Length int
}

// IsDefault returns true if boundary doesn't restrict material.
func (b Boundary) IsDefault() bool {
	return b.Start == 0 && b.Length == 0
}

// Section exposes a sub-range of its inner supplier as if it was the whole
// material. Edges are faded and MIDI is reset at both ends.
type Section struct {
	inner    Supplier
	boundary Boundary
	view     signal.Float64
}

// NewSection returns a section that doesn't restrict inner supplier.
func NewSection(inner Supplier) *Section {
	return &Section{
		inner: inner,
		view:  make(signal.Float64, 0, inner.NumChannels()),
	}
}

// SetBoundary replaces the boundary. Negative values are clamped to zero.
func (s *Section) SetBoundary(b Boundary) {
	s.boundary = Boundary{Start: max(b.Start, 0), Length: max(b.Length, 0)}
}

// Boundary returns current boundary.
func (s *Section) Boundary() Boundary {
	return s.boundary
}

// FrameCount returns the length of the section.
func (s *Section) FrameCount() int {
	switch {
	case s.boundary.IsDefault():
		return s.inner.FrameCount()
	case s.boundary.Length > 0:
		return s.boundary.Length
	}
	return max(s.inner.FrameCount()-s.boundary.Start, 0)
}

// FrameRate returns the frame rate of inner supplier.
func (s *Section) FrameRate() float64 {
	return s.inner.FrameRate()
}

// NumChannels returns the number of channels of inner supplier.
func (s *Section) NumChannels() int {
	return s.inner.NumChannels()
}

// plan is a section request resolved to the inner supplier.
type plan struct {
	// lead is the count-in part of the request in source frames.
	lead int
	// from is the first section frame with material.
	from int
	// frames is the number of source frames requested from inner.
	frames int
	// consumed is the number of section frames consumed, lead included.
	consumed int
	ideal    int
	bounded  bool
	reached  bool
}

// instruction resolves the request. It returns false if the request is
// already past the end of the section.
func (s *Section) instruction(start, ideal int) (plan, bool) {
	p := plan{
		from:    max(start, 0),
		ideal:   ideal,
		bounded: s.boundary.Length > 0,
	}
	p.lead = p.from - start
	end := start + ideal
	if p.bounded {
		if start > s.boundary.Length {
			return p, false
		}
		if end >= s.boundary.Length {
			end = s.boundary.Length
			p.reached = true
		}
	}
	p.frames = end - p.from
	p.consumed = end - start
	return p, true
}

// response combines inner response with the section plan. Lead is the
// count-in part in destination frames.
func (p plan) response(inner Response, lead, written int) Response {
	if !p.bounded {
		inner.Consumed += p.lead
		inner.Written += lead
		return inner
	}
	if p.reached {
		return Response{Consumed: p.consumed, Written: written, Status: ReachedEnd}
	}
	if inner.Status == ReachedEnd {
		// inner material is shorter than the section
		return Response{Consumed: p.ideal, Written: written}
	}
	return Response{Consumed: p.consumed, Written: written}
}

// SupplyAudio fills dst with section material.
func (s *Section) SupplyAudio(req Request, dst signal.Float64) Response {
	n := dst.Size()
	if s.boundary.IsDefault() || req.StartFrame+n <= 0 {
		return s.inner.SupplyAudio(req, dst)
	}
	p, ok := s.instruction(req.StartFrame, n)
	if !ok {
		dst.Clear(0, n)
		return exceededEnd()
	}
	dst.Clear(0, p.lead)
	dst.Clear(p.lead+p.frames, n)
	s.view = dst.FramesInto(s.view, p.lead, p.lead+p.frames)
	inner := s.inner.SupplyAudio(Request{
		StartFrame:     s.boundary.Start + p.from,
		DestSampleRate: req.DestSampleRate,
	}, s.view)
	if s.boundary.Start > 0 {
		fadeIn(dst, req.StartFrame)
	}
	if s.boundary.Length > 0 {
		fadeOut(dst, req.StartFrame, s.boundary.Length)
	}
	return p.response(inner, p.lead, p.lead+p.frames)
}

// SupplyMidi appends section events.
func (s *Section) SupplyMidi(req Request, events *EventList) Response {
	srcRate := s.inner.FrameRate()
	ideal := signal.ConvertFrames(req.DestFrames, req.DestSampleRate, srcRate)
	if s.boundary.IsDefault() || req.StartFrame+ideal <= 0 {
		return s.inner.SupplyMidi(req, events)
	}
	p, ok := s.instruction(req.StartFrame, ideal)
	if !ok {
		return exceededEnd()
	}
	lead := signal.ConvertFrames(p.lead, srcRate, req.DestSampleRate)
	written := min(signal.ConvertFrames(p.consumed, srcRate, req.DestSampleRate), req.DestFrames)
	if req.StartFrame <= 0 {
		Silence(events, req.BlockOffset+lead, Prepend)
	}
	inner := s.inner.SupplyMidi(Request{
		StartFrame:     s.boundary.Start + p.from,
		DestSampleRate: req.DestSampleRate,
		DestFrames:     written - lead,
		BlockOffset:    req.BlockOffset + lead,
	}, events)
	if p.reached {
		Silence(events, req.BlockOffset+min(written, max(req.DestFrames-1, 0)), Append)
	}
	return p.response(inner, lead, written)
}
