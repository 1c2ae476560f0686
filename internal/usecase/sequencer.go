// Package usecase contains application business logic.
package usecase

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/autoskip/internal/domain"
	"github.com/eliteGoblin/autoskip/internal/vision"
)

// SequencerConfig holds the timings of the skip interaction.
type SequencerConfig struct {
	Cooldown     time.Duration // minimum time between attempts
	ConfirmDelay time.Duration // pause between the skip click and the confirm capture
}

// DefaultSequencerConfig returns the default skip timings.
func DefaultSequencerConfig() SequencerConfig {
	return SequencerConfig{
		Cooldown:     time.Second,
		ConfirmDelay: 300 * time.Millisecond,
	}
}

// ActionSequencer performs the two-step skip interaction: click "skip", wait
// for the dialog, then click "confirm".
type ActionSequencer struct {
	config    SequencerConfig
	templates domain.TemplateStore
	sampler   domain.ScreenSampler
	matcher   domain.Matcher
	clicker   domain.Clicker
	clock     domain.Clock
	logger    *zap.Logger
}

// NewActionSequencer creates a new skip sequencer.
func NewActionSequencer(
	config SequencerConfig,
	templates domain.TemplateStore,
	sampler domain.ScreenSampler,
	matcher domain.Matcher,
	clicker domain.Clicker,
	clock domain.Clock,
	logger *zap.Logger,
) *ActionSequencer {
	return &ActionSequencer{
		config:    config,
		templates: templates,
		sampler:   sampler,
		matcher:   matcher,
		clicker:   clicker,
		clock:     clock,
		logger:    logger,
	}
}

// TrySkip runs one skip attempt against frame.
//
// It is a no-op returning OutcomeIdle when skipping is disabled, the skip
// template is absent, or the cooldown since state.LastAttempt has not elapsed.
// Otherwise the attempt is recorded in state before matching, so the cooldown
// gates attempts rather than successes. A missing marker is a normal outcome;
// only a failed click is returned as an error.
func (s *ActionSequencer) TrySkip(frame domain.Frame, cfg domain.WorkerConfig, state *domain.WorkerState) (domain.Outcome, error) {
	outcome := domain.Outcome{Kind: domain.OutcomeIdle, ScreenDelta: -1}

	if !cfg.SkipEnabled {
		return outcome, nil
	}
	skipTpl, ok := s.templates.Get(domain.TemplateSkip)
	if !ok {
		return outcome, nil
	}
	now := s.clock.Now()
	if !state.CooldownElapsed(now, s.config.Cooldown) {
		return outcome, nil
	}
	state.LastAttempt = now

	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = domain.DefaultThreshold
	}

	outcome.Kind = domain.OutcomeNoMatch
	skip, ok := s.matcher.Match(frame, skipTpl, threshold)
	if !ok {
		return outcome, nil
	}
	outcome.Skip = &skip

	at := frame.ScreenPoint(skip.Center)
	if err := s.clicker.Click(at); err != nil {
		return outcome, fmt.Errorf("skip click at %v: %w", at, err)
	}
	outcome.Kind = domain.OutcomeSkipped
	outcome.Clicks = append(outcome.Clicks, at)
	s.logger.Info("skip clicked",
		zap.Int("x", at.X),
		zap.Int("y", at.Y),
		zap.Float64("score", skip.Score))

	confirmTpl, ok := s.templates.Get(domain.TemplateConfirm)
	if !ok {
		return outcome, nil
	}

	// Not interruptible: a started sequence always finishes.
	s.clock.Sleep(s.config.ConfirmDelay)

	next, err := s.sampler.Capture()
	if err != nil {
		outcome.ConfirmCapture = err
		return outcome, nil
	}
	outcome.ScreenDelta = screenDelta(frame, next)

	confirm, ok := s.matcher.Match(next, confirmTpl, threshold)
	if !ok {
		s.logger.Debug("confirm not found after skip", zap.Int("screen_delta", outcome.ScreenDelta))
		return outcome, nil
	}
	outcome.Confirm = &confirm

	at = next.ScreenPoint(confirm.Center)
	if err := s.clicker.Click(at); err != nil {
		return outcome, fmt.Errorf("confirm click at %v: %w", at, err)
	}
	outcome.Kind = domain.OutcomeConfirmed
	outcome.Clicks = append(outcome.Clicks, at)
	s.logger.Info("confirm clicked",
		zap.Int("x", at.X),
		zap.Int("y", at.Y),
		zap.Float64("score", confirm.Score),
		zap.Int("screen_delta", outcome.ScreenDelta))

	return outcome, nil
}

// screenDelta measures how much the screen changed between the two captures.
func screenDelta(before, after domain.Frame) int {
	if before.Gray == nil || after.Gray == nil {
		return -1
	}
	d, err := vision.Distance(before.Gray, after.Gray)
	if err != nil {
		return -1
	}
	return d
}
