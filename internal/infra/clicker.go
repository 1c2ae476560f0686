package infra

import (
	"image"
	"sync"

	"github.com/go-vgo/robotgo"
	"go.uber.org/zap"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

// RobotClicker implements domain.Clicker with OS-level synthetic input.
type RobotClicker struct {
	mu     sync.Mutex
	move   func(x, y int)
	click  func()
	logger *zap.Logger
}

// NewRobotClicker creates a clicker backed by robotgo.
func NewRobotClicker(logger *zap.Logger) *RobotClicker {
	return &RobotClicker{
		move:   func(x, y int) { robotgo.Move(x, y) },
		click:  func() { robotgo.Click() },
		logger: logger,
	}
}

// Click moves the pointer to p and presses the left button.
func (c *RobotClicker) Click(p image.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.move(p.X, p.Y)
	c.click()
	c.logger.Debug("click injected", zap.Int("x", p.X), zap.Int("y", p.Y))
	return nil
}

// Close is a no-op; robotgo holds no per-clicker resources.
func (c *RobotClicker) Close() error {
	return nil
}

// Ensure RobotClicker implements domain.Clicker.
var _ domain.Clicker = (*RobotClicker)(nil)
