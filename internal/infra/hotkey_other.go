//go:build !windows

package infra

import (
	"context"

	"go.uber.org/zap"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

// HotkeyListener is unavailable off Windows; Listen reports ErrHotkeyUnsupported.
type HotkeyListener struct {
	name   string
	logger *zap.Logger
}

// NewHotkeyListener validates the key name so configuration errors surface on every platform.
func NewHotkeyListener(name string, logger *zap.Logger) (*HotkeyListener, error) {
	if _, err := ParseHotkey(name); err != nil {
		return nil, err
	}
	return &HotkeyListener{name: name, logger: logger}, nil
}

// Listen returns immediately.
func (h *HotkeyListener) Listen(ctx context.Context, onPress func()) error {
	return domain.ErrHotkeyUnsupported
}
