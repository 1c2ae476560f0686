package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{in: "F10", want: 0x79},
		{in: "f10", want: 0x79},
		{in: " F1 ", want: 0x70},
		{in: "pause", want: 0x13},
		{in: "F13", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHotkey(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewHotkeyListener_RejectsUnknownKey(t *testing.T) {
	_, err := NewHotkeyListener("Ctrl+Q", zap.NewNop())
	assert.Error(t, err)

	h, err := NewHotkeyListener("F10", zap.NewNop())
	assert.NoError(t, err)
	assert.NotNil(t, h)
}
