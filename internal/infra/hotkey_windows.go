//go:build windows

package infra

import (
	"context"
	"fmt"

	"github.com/moutend/go-hook/pkg/keyboard"
	"github.com/moutend/go-hook/pkg/types"
	"go.uber.org/zap"
)

// HotkeyListener turns presses of one global key into callbacks.
type HotkeyListener struct {
	code   uint32
	name   string
	logger *zap.Logger
}

// NewHotkeyListener creates a listener for the named key.
func NewHotkeyListener(name string, logger *zap.Logger) (*HotkeyListener, error) {
	code, err := ParseHotkey(name)
	if err != nil {
		return nil, err
	}
	return &HotkeyListener{code: code, name: name, logger: logger}, nil
}

// Listen installs a low-level keyboard hook and calls onPress for every key-down
// of the configured key until ctx is canceled. The hook is removed on return.
func (h *HotkeyListener) Listen(ctx context.Context, onPress func()) error {
	events := make(chan types.KeyboardEvent, 100)
	if err := keyboard.Install(nil, events); err != nil {
		return fmt.Errorf("failed to install keyboard hook: %w", err)
	}
	defer func() {
		if err := keyboard.Uninstall(); err != nil {
			h.logger.Warn("failed to uninstall keyboard hook", zap.Error(err))
		}
	}()

	h.logger.Info("hotkey armed", zap.String("key", h.name))
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if ev.Message == types.WM_KEYDOWN && uint32(ev.VKCode) == h.code {
				onPress()
			}
		}
	}
}
