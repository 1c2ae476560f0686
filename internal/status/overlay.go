package status

import (
	"strings"
	"sync"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

// DefaultOverlayLimit is the number of characters the overlay keeps.
const DefaultOverlayLimit = 2000

// Overlay is the rolling text shown to the user: one "[MM:SS] message" line
// per event, trimmed from the front to the configured size.
type Overlay struct {
	mu    sync.Mutex
	limit int
	text  string
}

// NewOverlay creates an overlay that keeps at most limit characters.
func NewOverlay(limit int) *Overlay {
	if limit <= 0 {
		limit = DefaultOverlayLimit
	}
	return &Overlay{limit: limit}
}

// FormatLine renders one overlay line for ev.
func FormatLine(ev domain.StatusEvent) string {
	return "[" + ev.Time.Format("04:05") + "] " + ev.Message
}

// Append adds ev as a new line.
func (o *Overlay) Append(ev domain.StatusEvent) {
	line := FormatLine(ev)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.text == "" {
		o.text = line
	} else {
		o.text += "\n" + line
	}
	o.trim()
}

// trim drops whole leading lines until the text fits, and cuts the last line
// if it alone is over the limit. Limits count runes.
func (o *Overlay) trim() {
	for runeCount(o.text) > o.limit {
		i := strings.IndexByte(o.text, '\n')
		if i < 0 {
			r := []rune(o.text)
			o.text = string(r[len(r)-o.limit:])
			return
		}
		o.text = o.text[i+1:]
	}
}

// Text returns the current overlay contents.
func (o *Overlay) Text() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.text
}

// Consume appends events until events is closed.
func (o *Overlay) Consume(events <-chan domain.StatusEvent) {
	for ev := range events {
		o.Append(ev)
	}
}

func runeCount(s string) int {
	return len([]rune(s))
}
