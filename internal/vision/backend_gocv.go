//go:build !purego

package vision

import (
	"image"

	"gocv.io/x/gocv"
)

const backendName = "opencv"

// bestMatch runs cv::matchTemplate with TM_CCOEFF_NORMED. minMaxLoc reports
// the first maximum in row-major order, the same tie rule as BestMatch.
func bestMatch(frame, tpl *image.Gray) (image.Point, float64, bool) {
	fs, ts := frame.Rect.Size(), tpl.Rect.Size()
	if ts.X == 0 || ts.Y == 0 || ts.X > fs.X || ts.Y > fs.Y {
		return image.Point{}, 0, false
	}
	if _, ok := prepare(tpl); !ok {
		return image.Point{}, 0, false
	}

	img, err := grayMat(frame)
	if err != nil {
		return image.Point{}, 0, false
	}
	defer img.Close()

	templ, err := grayMat(tpl)
	if err != nil {
		return image.Point{}, 0, false
	}
	defer templ.Close()

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(img, templ, &result, gocv.TmCcoeffNormed, mask)
	_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)
	return maxLoc, clamp(float64(maxVal)), true
}

func grayMat(g *image.Gray) (gocv.Mat, error) {
	packed := g
	if g.Stride != g.Rect.Dx() {
		packed = Crop(g, g.Rect)
	}
	return gocv.NewMatFromBytes(packed.Rect.Dy(), packed.Rect.Dx(), gocv.MatTypeCV8U, packed.Pix)
}
