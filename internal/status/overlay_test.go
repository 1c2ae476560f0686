package status

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

func TestFormatLine(t *testing.T) {
	assert.Equal(t, "[03:07] [skip] triggered", FormatLine(event(domain.StatusSkip, "[skip] triggered")))
}

func TestOverlay_Append(t *testing.T) {
	o := NewOverlay(0)

	o.Append(event(domain.StatusStarted, "service started"))
	o.Append(event(domain.StatusResumed, "resumed: monitoring"))

	assert.Equal(t, "[03:07] service started\n[03:07] resumed: monitoring", o.Text())
}

func TestOverlay_Trim(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		msgs  []string
		want  string
	}{
		{
			name:  "drops oldest lines",
			limit: 30,
			msgs:  []string{"one", "two", "three"},
			want:  "[03:07] two\n[03:07] three",
		},
		{
			name:  "cuts an oversized single line",
			limit: 10,
			msgs:  []string{"abcdefghijklmnop"},
			want:  "ghijklmnop",
		},
		{
			name:  "counts runes",
			limit: 13,
			msgs:  []string{"跳过确认", "跳过"},
			want:  "[03:07] 跳过",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOverlay(tt.limit)
			for _, m := range tt.msgs {
				o.Append(event(domain.StatusSkip, m))
			}
			assert.Equal(t, tt.want, o.Text())
		})
	}
}

func TestOverlay_DefaultLimitHolds(t *testing.T) {
	o := NewOverlay(DefaultOverlayLimit)
	for i := 0; i < 500; i++ {
		o.Append(event(domain.StatusSkip, "[skip] triggered"))
	}
	assert.LessOrEqual(t, len([]rune(o.Text())), DefaultOverlayLimit)
	assert.True(t, strings.HasPrefix(o.Text(), "[03:07]"), "trimmed at a line boundary")
}

func TestOverlay_Consume(t *testing.T) {
	o := NewOverlay(0)
	ch := make(chan domain.StatusEvent, 2)
	ch <- event(domain.StatusStarted, "service started")
	ch <- event(domain.StatusStopped, "service stopped")
	close(ch)

	o.Consume(ch)

	assert.Equal(t, "[03:07] service started\n[03:07] service stopped", o.Text())
}
