// Package fixtures provides synthetic screens and templates for tests.
package fixtures

import (
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
)

// Noise returns a w x h image of uniformly random intensities.
// The same seed always yields the same pixels.
func Noise(w, h int, seed int64) *image.Gray {
	r := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, w, h))
	r.Read(img.Pix)
	return img
}

// Flat returns a w x h image filled with v.
func Flat(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// Button draws a high-contrast striped marker. Odd seeds stripe vertically,
// even seeds horizontally, so buttons of different parity do not correlate.
func Button(w, h int, seed int) *image.Gray {
	img := Flat(w, h, 40)
	period := 3 + seed%4
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t := y
			if seed%2 == 1 {
				t = x
			}
			if t%period < period/2+1 {
				img.SetGray(x, y, color.Gray{Y: 220})
			}
		}
	}
	return img
}

// Paste copies src into dst with its top-left corner at at.
func Paste(dst, src *image.Gray, at image.Point) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			p := at.Add(image.Pt(x, y))
			if p.In(dst.Bounds()) {
				dst.SetGray(p.X, p.Y, src.GrayAt(b.Min.X+x, b.Min.Y+y))
			}
		}
	}
}

// SceneWith returns a flat desktop with each button pasted at its position.
func SceneWith(w, h int, buttons map[image.Point]*image.Gray) *image.Gray {
	img := Flat(w, h, 90)
	for at, b := range buttons {
		Paste(img, b, at)
	}
	return img
}

// ToRGBA expands a grayscale image into an RGBA image, as a screen grab would.
func ToRGBA(g *image.Gray) *image.RGBA {
	out := image.NewRGBA(g.Bounds())
	for y := g.Rect.Min.Y; y < g.Rect.Max.Y; y++ {
		for x := g.Rect.Min.X; x < g.Rect.Max.X; x++ {
			v := g.GrayAt(x, y).Y
			out.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}

// WritePNG encodes img to dir/name and returns the full path.
func WritePNG(dir, name string, img image.Image) (string, error) {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return "", err
	}
	return path, nil
}
