package daemon

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

// Controller owns the single loop worker and the shared configuration.
// All methods are safe for concurrent use.
type Controller struct {
	loop   *Loop
	logger *zap.Logger

	config atomic.Pointer[domain.WorkerConfig]

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates a stopped controller with the given initial configuration.
func NewController(loop *Loop, initial domain.WorkerConfig, logger *zap.Logger) *Controller {
	c := &Controller{loop: loop, logger: logger}
	c.config.Store(&initial)
	return c
}

// Start launches the loop worker. It returns false when already running.
func (c *Controller) Start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel, c.done = cancel, done

	go func() {
		defer close(done)
		c.loop.Run(ctx, c.Config)
	}()

	c.logger.Info("worker started")
	return true
}

// Stop asks the worker to finish its current cycle and waits for it to exit.
// It returns false when nothing was running.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done == nil {
		return false
	}
	c.cancel()
	<-c.done
	c.cancel, c.done = nil, nil

	c.logger.Info("worker stopped")
	return true
}

// Toggle stops a running worker or starts a stopped one, and reports the new state.
func (c *Controller) Toggle() domain.RunState {
	if c.Stop() {
		return domain.RunStopped
	}
	c.Start()
	return domain.RunRunning
}

// Running reports whether a worker is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done != nil
}

// Config returns the configuration the next cycle will use.
func (c *Controller) Config() domain.WorkerConfig {
	return *c.config.Load()
}

// UpdateConfig replaces the skip flag and target process. Last write wins.
func (c *Controller) UpdateConfig(skipEnabled bool, target string) {
	for {
		old := c.config.Load()
		next := *old
		next.SkipEnabled = skipEnabled
		next.TargetProcess = target
		if c.config.CompareAndSwap(old, &next) {
			c.logger.Info("config updated",
				zap.Bool("skip_enabled", skipEnabled),
				zap.String("target_process", target))
			return
		}
	}
}

// SetThreshold replaces the match threshold.
func (c *Controller) SetThreshold(threshold float64) {
	for {
		old := c.config.Load()
		next := *old
		next.Threshold = threshold
		if c.config.CompareAndSwap(old, &next) {
			c.logger.Info("threshold updated", zap.Float64("threshold", threshold))
			return
		}
	}
}

// ConfigPatch is a partial configuration update. Nil fields are left alone.
type ConfigPatch struct {
	SkipEnabled   *bool
	TargetProcess *string
	Threshold     *float64
}

// Empty reports whether the patch changes nothing.
func (p ConfigPatch) Empty() bool {
	return p.SkipEnabled == nil && p.TargetProcess == nil && p.Threshold == nil
}

// PatchConfig applies every set field of p in one swap, so concurrent patches
// touching different fields never undo each other.
func (c *Controller) PatchConfig(p ConfigPatch) {
	if p.Empty() {
		return
	}
	for {
		old := c.config.Load()
		next := *old
		if p.SkipEnabled != nil {
			next.SkipEnabled = *p.SkipEnabled
		}
		if p.TargetProcess != nil {
			next.TargetProcess = *p.TargetProcess
		}
		if p.Threshold != nil {
			next.Threshold = *p.Threshold
		}
		if c.config.CompareAndSwap(old, &next) {
			c.logger.Info("config patched",
				zap.Bool("skip_enabled", next.SkipEnabled),
				zap.String("target_process", next.TargetProcess),
				zap.Float64("threshold", next.Threshold))
			return
		}
	}
}

// Snapshot returns the current run state, focus sub-state and configuration.
func (c *Controller) Snapshot() domain.Snapshot {
	s := domain.Snapshot{Run: domain.RunStopped, Config: c.Config()}
	if c.Running() {
		s.Run = domain.RunRunning
		s.Focus = c.loop.Focus()
	}
	return s
}
