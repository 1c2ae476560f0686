package infra

import (
	"errors"
	"image"

	"github.com/kbinani/screenshot"

	"github.com/eliteGoblin/autoskip/internal/domain"
	"github.com/eliteGoblin/autoskip/internal/vision"
)

var errNoDisplays = errors.New("no active displays")

// ScreenCapturer implements domain.ScreenSampler for the whole virtual desktop.
type ScreenCapturer struct {
	displays func() []image.Rectangle
	grab     func(image.Rectangle) (*image.RGBA, error)
}

// NewScreenCapturer creates a sampler backed by kbinani/screenshot.
func NewScreenCapturer() *ScreenCapturer {
	return &ScreenCapturer{
		displays: activeDisplays,
		grab:     screenshot.CaptureRect,
	}
}

func activeDisplays() []image.Rectangle {
	n := screenshot.NumActiveDisplays()
	rects := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		rects = append(rects, screenshot.GetDisplayBounds(i))
	}
	return rects
}

// VirtualDesktop returns the bounding box of all active displays.
func (c *ScreenCapturer) VirtualDesktop() image.Rectangle {
	var desk image.Rectangle
	for _, r := range c.displays() {
		desk = desk.Union(r)
	}
	return desk
}

// Capture grabs the virtual desktop once and converts it to grayscale.
func (c *ScreenCapturer) Capture() (domain.Frame, error) {
	desk := c.VirtualDesktop()
	if desk.Empty() {
		return domain.Frame{}, &domain.CaptureError{Err: errNoDisplays}
	}

	img, err := c.grab(desk)
	if err != nil {
		return domain.Frame{}, &domain.CaptureError{Err: err}
	}

	return domain.Frame{Gray: vision.ToGray(img), Origin: desk.Min}, nil
}

// Ensure ScreenCapturer implements domain.ScreenSampler.
var _ domain.ScreenSampler = (*ScreenCapturer)(nil)
