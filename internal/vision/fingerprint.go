package vision

import (
	"image"

	"github.com/corona10/goimagehash"
)

// Fingerprint returns the perceptual difference hash of img as a string.
func Fingerprint(img image.Image) (string, error) {
	h, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return "", err
	}
	return h.ToString(), nil
}

// Distance returns the Hamming distance between the difference hashes of a and b.
// Zero means the two images are perceptually identical at hash resolution.
func Distance(a, b image.Image) (int, error) {
	ha, err := goimagehash.DifferenceHash(a)
	if err != nil {
		return 0, err
	}
	hb, err := goimagehash.DifferenceHash(b)
	if err != nil {
		return 0, err
	}
	return ha.Distance(hb)
}
