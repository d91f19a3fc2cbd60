package clip

import "errors"

var (
	// ErrNotStarted is returned if command needs a clip that plays
	// material, but it's stopped or still counting in.
	ErrNotStarted = errors.New("clip not started")
	// ErrNotPlaying is returned if record is requested for a clip that is
	// not playing.
	ErrNotPlaying = errors.New("clip not playing")
)
