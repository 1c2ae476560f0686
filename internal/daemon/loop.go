// Package daemon runs the auto-skip control loop and the service around it.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

// LoopConfig holds the control loop timings.
type LoopConfig struct {
	FocusPollInterval time.Duration // sleep while the target is not focused
	CaptureRetryDelay time.Duration // sleep after a failed capture
	CycleInterval     time.Duration // sleep after every completed cycle
	ErrorBackoff      time.Duration // sleep after an unexpected cycle error
}

// DefaultLoopConfig returns default loop timings.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		FocusPollInterval: time.Second,
		CaptureRetryDelay: 200 * time.Millisecond,
		CycleInterval:     100 * time.Millisecond,
		ErrorBackoff:      time.Second,
	}
}

// Skipper runs one skip attempt. Implemented by usecase.ActionSequencer.
type Skipper interface {
	TrySkip(frame domain.Frame, cfg domain.WorkerConfig, state *domain.WorkerState) (domain.Outcome, error)
}

// Loop is the focus-gated capture and skip cycle.
type Loop struct {
	config  LoopConfig
	focus   domain.FocusMonitor
	sampler domain.ScreenSampler
	skipper Skipper
	sink    domain.StatusSink
	clock   domain.Clock
	logger  *zap.Logger

	// focusState mirrors the running sub-state for snapshots; the loop
	// itself only reads its own WorkerState.
	focusState atomic.Value
}

// NewLoop creates a control loop.
func NewLoop(
	config LoopConfig,
	focus domain.FocusMonitor,
	sampler domain.ScreenSampler,
	skipper Skipper,
	sink domain.StatusSink,
	clock domain.Clock,
	logger *zap.Logger,
) *Loop {
	l := &Loop{
		config:  config,
		focus:   focus,
		sampler: sampler,
		skipper: skipper,
		sink:    sink,
		clock:   clock,
		logger:  logger,
	}
	l.focusState.Store(domain.FocusUnknown)
	return l
}

// Focus returns the focus sub-state of the current run.
func (l *Loop) Focus() domain.FocusState {
	return l.focusState.Load().(domain.FocusState)
}

// Run executes cycles until ctx is canceled. Every run starts from a fresh
// WorkerState; nothing carries over from a previous run. config is read once
// at the top of every cycle.
func (l *Loop) Run(ctx context.Context, config func() domain.WorkerConfig) {
	// Assume focused so the first unfocused poll reports the suspension.
	state := &domain.WorkerState{Focus: domain.FocusFocused}
	l.focusState.Store(domain.FocusUnknown)
	defer l.focusState.Store(domain.FocusUnknown)

	l.emit(domain.StatusStarted, "service started")
	l.logger.Info("control loop started")

	for ctx.Err() == nil {
		wait, err := l.safeCycle(config(), state)
		if err != nil {
			l.logger.Error("cycle failed", zap.Error(err))
			l.emit(domain.StatusCycleError, fmt.Sprintf("cycle error: %v", err))
			wait = l.config.ErrorBackoff
		}
		l.sleep(ctx, wait)
	}

	l.emit(domain.StatusStopped, "service stopped")
	l.logger.Info("control loop stopped")
}

// safeCycle converts a panic inside a cycle into an error.
func (l *Loop) safeCycle(cfg domain.WorkerConfig, state *domain.WorkerState) (wait time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return l.cycle(cfg, state)
}

// cycle runs one iteration and returns how long to wait before the next.
func (l *Loop) cycle(cfg domain.WorkerConfig, state *domain.WorkerState) (time.Duration, error) {
	name, ok := l.focus.ForegroundProcessName()
	focused := ok && domain.MatchesTarget(name, cfg.TargetProcess)

	if !focused {
		if state.Focus != domain.FocusSuspended {
			l.setFocus(state, domain.FocusSuspended)
			l.emit(domain.StatusSuspended,
				fmt.Sprintf("suspended: waiting for %s (foreground: %s)", cfg.TargetProcess, displayName(name, ok)))
		}
		return l.config.FocusPollInterval, nil
	}
	if state.Focus != domain.FocusFocused {
		l.setFocus(state, domain.FocusFocused)
		l.emit(domain.StatusResumed, "resumed: monitoring")
	} else {
		l.focusState.Store(domain.FocusFocused)
	}

	frame, err := l.sampler.Capture()
	if err != nil {
		var capErr *domain.CaptureError
		if !errors.As(err, &capErr) {
			return 0, err
		}
		l.logger.Warn("capture failed", zap.Error(err))
		l.emit(domain.StatusCaptureError, fmt.Sprintf("capture error: %v", capErr.Err))
		return l.config.CaptureRetryDelay, nil
	}

	outcome, err := l.skipper.TrySkip(frame, cfg, state)
	l.report(outcome)
	if err != nil {
		return 0, err
	}
	return l.config.CycleInterval, nil
}

func (l *Loop) report(o domain.Outcome) {
	if o.Skip != nil && len(o.Clicks) > 0 {
		l.emit(domain.StatusSkip, "[skip] triggered")
	}
	if o.ConfirmCapture != nil {
		l.emit(domain.StatusCaptureError, fmt.Sprintf("capture error: %v", o.ConfirmCapture))
	}
	if o.Kind == domain.OutcomeConfirmed {
		l.emit(domain.StatusConfirm, "[skip] confirmed")
	}
}

func (l *Loop) setFocus(state *domain.WorkerState, f domain.FocusState) {
	state.Focus = f
	l.focusState.Store(f)
	l.logger.Info("focus changed", zap.String("focus", string(f)))
}

func (l *Loop) emit(kind domain.StatusKind, msg string) {
	l.sink.Publish(domain.StatusEvent{Time: l.clock.Now(), Kind: kind, Message: msg})
}

// sleep waits for d or until ctx is canceled.
func (l *Loop) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-l.clock.After(d):
	}
}

func displayName(name string, ok bool) string {
	if !ok || name == "" {
		return "none"
	}
	return name
}
