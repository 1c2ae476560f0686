//go:build !purego

package vision

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/autoskip/test/fixtures"
)

func TestBackend_DefaultIsOpenCV(t *testing.T) {
	assert.Equal(t, "opencv", Backend())
}

func TestBackend_AgreesWithPureGo(t *testing.T) {
	frame := fixtures.Noise(320, 180, 11)

	tests := []struct {
		name string
		rect image.Rectangle
	}{
		{"top-left corner", image.Rect(0, 0, 24, 16)},
		{"middle", image.Rect(150, 80, 190, 104)},
		{"bottom-right corner", image.Rect(290, 160, 320, 180)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := Crop(frame, tt.rect)

			wantAt, wantScore, wantOK := BestMatch(frame, tpl)
			gotAt, gotScore, gotOK := bestMatch(frame, tpl)

			require.Equal(t, wantOK, gotOK)
			assert.Equal(t, wantAt, gotAt)
			assert.InDelta(t, wantScore, gotScore, 1e-4)
		})
	}
}

func TestBackend_DesktopFrameWithinCycle(t *testing.T) {
	if testing.Short() {
		t.Skip("full HD match skipped in short mode")
	}
	frame, tpl := desktopScene()

	res := testing.Benchmark(func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			bestMatch(frame, tpl)
		}
	})

	assert.Less(t, res.NsPerOp(), int64(matchBudget), "match took %dns", res.NsPerOp())
}
