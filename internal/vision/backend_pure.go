//go:build purego

package vision

import "image"

// Builds tagged purego match without cgo. The exhaustive scan costs seconds
// on a full HD frame, so narrow the capture region when using it.
const backendName = "go"

func bestMatch(frame, tpl *image.Gray) (image.Point, float64, bool) {
	return BestMatch(frame, tpl)
}
