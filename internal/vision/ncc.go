package vision

import (
	"image"
	"math"
	"runtime"
	"sync"
)

// prepared holds the zero-mean template and its energy.
type prepared struct {
	w, h  int
	zero  []float64
	norm2 float64
}

func prepare(tpl *image.Gray) (prepared, bool) {
	w, h := tpl.Rect.Dx(), tpl.Rect.Dy()
	n := w * h
	if n == 0 {
		return prepared{}, false
	}

	var sum int64
	for y := 0; y < h; y++ {
		row := tpl.Pix[y*tpl.Stride : y*tpl.Stride+w]
		for _, v := range row {
			sum += int64(v)
		}
	}
	mean := float64(sum) / float64(n)

	p := prepared{w: w, h: h, zero: make([]float64, n)}
	for y := 0; y < h; y++ {
		row := tpl.Pix[y*tpl.Stride : y*tpl.Stride+w]
		for x, v := range row {
			d := float64(v) - mean
			p.zero[y*w+x] = d
			p.norm2 += d * d
		}
	}
	// A flat template correlates with nothing.
	if p.norm2 == 0 {
		return prepared{}, false
	}
	return p, true
}

// integral is a summed-area table of pixel values and their squares.
type integral struct {
	stride int
	sum    []int64
	sq     []int64
}

func newIntegral(img *image.Gray) *integral {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	it := &integral{
		stride: w + 1,
		sum:    make([]int64, (w+1)*(h+1)),
		sq:     make([]int64, (w+1)*(h+1)),
	}
	for y := 0; y < h; y++ {
		var rs, rq int64
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x, v := range row {
			pv := int64(v)
			rs += pv
			rq += pv * pv
			i := (y+1)*it.stride + x + 1
			it.sum[i] = it.sum[i-it.stride] + rs
			it.sq[i] = it.sq[i-it.stride] + rq
		}
	}
	return it
}

func (it *integral) window(x, y, w, h int) (s, sq int64) {
	a := y*it.stride + x
	b := a + w
	c := (y+h)*it.stride + x
	d := c + w
	return it.sum[d] - it.sum[b] - it.sum[c] + it.sum[a],
		it.sq[d] - it.sq[b] - it.sq[c] + it.sq[a]
}

// candidate is the best window found in a band of rows.
type candidate struct {
	at    image.Point
	score float64
	ok    bool
}

// BestMatch slides tpl over frame and returns the position with the highest
// TM_CCOEFF_NORMED score. Ties keep the first position in row-major order.
// It returns false when tpl is larger than frame in either dimension or has
// no variance. Both images must be anchored at (0,0); see ToGray.
func BestMatch(frame, tpl *image.Gray) (image.Point, float64, bool) {
	fw, fh := frame.Rect.Dx(), frame.Rect.Dy()
	p, ok := prepare(tpl)
	if !ok || p.w > fw || p.h > fh {
		return image.Point{}, 0, false
	}

	it := newIntegral(frame)
	rows := fh - p.h + 1
	cols := fw - p.w + 1

	workers := runtime.GOMAXPROCS(0)
	if workers > rows {
		workers = rows
	}
	bands := make([]candidate, workers)
	per := (rows + workers - 1) / workers

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start := i * per
		end := start + per
		if end > rows {
			end = rows
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(i, start, end int) {
			defer wg.Done()
			bands[i] = scanRows(frame, it, &p, start, end, cols)
		}(i, start, end)
	}
	wg.Wait()

	// Bands are merged in row order with a strict comparison so the earliest
	// maximum survives regardless of how many workers ran.
	var best candidate
	for _, c := range bands {
		if !c.ok {
			continue
		}
		if !best.ok || c.score > best.score {
			best = c
		}
	}
	return best.at, best.score, best.ok
}

func scanRows(frame *image.Gray, it *integral, p *prepared, start, end, cols int) candidate {
	n := int64(p.w * p.h)
	best := candidate{score: math.Inf(-1)}

	for y := start; y < end; y++ {
		for x := 0; x < cols; x++ {
			score := 0.0
			s, sq := it.window(x, y, p.w, p.h)
			if varN := n*sq - s*s; varN > 0 {
				var num float64
				for ty := 0; ty < p.h; ty++ {
					row := frame.Pix[(y+ty)*frame.Stride+x:]
					zt := p.zero[ty*p.w : (ty+1)*p.w]
					for tx, z := range zt {
						num += z * float64(row[tx])
					}
				}
				den := math.Sqrt(p.norm2 * float64(varN) / float64(n))
				score = clamp(num / den)
			}
			if score > best.score {
				best = candidate{at: image.Pt(x, y), score: score, ok: true}
			}
		}
	}
	return best
}

func clamp(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
