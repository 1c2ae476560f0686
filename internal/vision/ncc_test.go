package vision

import (
	"image"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/autoskip/test/fixtures"
)

func TestBestMatch_SelfMatch(t *testing.T) {
	frame := fixtures.Noise(160, 90, 7)

	tests := []struct {
		name string
		rect image.Rectangle
	}{
		{"top-left corner", image.Rect(0, 0, 16, 12)},
		{"middle", image.Rect(70, 40, 94, 58)},
		{"bottom-right corner", image.Rect(140, 75, 160, 90)},
		{"whole frame", image.Rect(0, 0, 160, 90)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := Crop(frame, tt.rect)
			at, score, ok := BestMatch(frame, tpl)
			require.True(t, ok)
			assert.Equal(t, tt.rect.Min, at)
			assert.InDelta(t, 1.0, score, 1e-9)
			assert.GreaterOrEqual(t, score, 0.8)
		})
	}
}

func TestBestMatch_TemplateLargerThanFrame(t *testing.T) {
	frame := fixtures.Noise(20, 20, 1)

	_, _, ok := BestMatch(frame, fixtures.Noise(21, 5, 2))
	assert.False(t, ok, "too wide")

	_, _, ok = BestMatch(frame, fixtures.Noise(5, 21, 2))
	assert.False(t, ok, "too tall")
}

func TestBestMatch_FlatTemplate(t *testing.T) {
	_, _, ok := BestMatch(fixtures.Noise(40, 40, 3), fixtures.Flat(8, 8, 128))
	assert.False(t, ok)
}

func TestBestMatch_FlatFrameScoresZero(t *testing.T) {
	at, score, ok := BestMatch(fixtures.Flat(40, 30, 90), fixtures.Button(12, 8, 1))
	require.True(t, ok)
	assert.Equal(t, image.Pt(0, 0), at)
	assert.Equal(t, 0.0, score)
}

func TestBestMatch_TiesKeepFirstRowMajor(t *testing.T) {
	button := fixtures.Button(12, 8, 1)
	frame := fixtures.SceneWith(80, 60, map[image.Point]*image.Gray{
		image.Pt(50, 10): button,
		image.Pt(5, 30):  button,
		image.Pt(20, 30): button,
	})

	for _, procs := range []int{1, 2, 8} {
		prev := runtime.GOMAXPROCS(procs)
		at, score, ok := BestMatch(frame, button)
		runtime.GOMAXPROCS(prev)

		require.True(t, ok)
		assert.Equal(t, image.Pt(50, 10), at, "GOMAXPROCS=%d", procs)
		assert.InDelta(t, 1.0, score, 1e-9)
	}
}

func TestBestMatch_Deterministic(t *testing.T) {
	frame := fixtures.Noise(120, 80, 11)
	tpl := fixtures.Noise(10, 10, 12)

	at1, s1, ok1 := BestMatch(frame, tpl)
	at2, s2, ok2 := BestMatch(frame, tpl)

	assert.Equal(t, ok1, ok2)
	assert.Equal(t, at1, at2)
	assert.Equal(t, s1, s2)
}

func TestBestMatch_AbsentTemplateBelowThreshold(t *testing.T) {
	frame := fixtures.Noise(200, 120, 21)
	tpl := fixtures.Button(24, 16, 2)

	_, score, ok := BestMatch(frame, tpl)
	require.True(t, ok)
	assert.Less(t, score, 0.8)
	assert.GreaterOrEqual(t, score, -1.0)
}

func TestBestMatch_SubImageFrame(t *testing.T) {
	full := fixtures.Noise(100, 100, 5)
	sub := full.SubImage(image.Rect(20, 20, 80, 80)).(*image.Gray)
	tpl := Crop(full, image.Rect(40, 50, 52, 60))

	at, score, ok := BestMatch(sub, tpl)
	require.True(t, ok)
	assert.Equal(t, image.Pt(20, 30), at)
	assert.InDelta(t, 1.0, score, 1e-9)
}
