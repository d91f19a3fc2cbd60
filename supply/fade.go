package supply

import (
	"pipelined.dev/clip/signal"
)

// FadeLength is the length in frames of edge fades applied at section and
// cycle boundaries.
const FadeLength = 64

// fadeIn ramps up the first FadeLength frames of material. The block starts
// at the material position start.
func fadeIn(dst signal.Float64, start int) {
	n := dst.Size()
	from, to := max(start, 0), min(start+n, FadeLength)
	if from >= to {
		return
	}
	dst.Ramp(from-start, to-start, float64(from)/FadeLength, float64(to)/FadeLength)
}

// fadeOut ramps down the last FadeLength frames of material of the given
// length. The block starts at the material position start.
func fadeOut(dst signal.Float64, start, length int) {
	n := dst.Size()
	fadeStart := length - FadeLength
	from, to := max(start, fadeStart, 0), min(start+n, length)
	if from >= to {
		return
	}
	dst.Ramp(from-start, to-start, float64(length-from)/FadeLength, float64(length-to)/FadeLength)
}
