package daemon

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

// SupervisorConfig holds service-level settings.
type SupervisorConfig struct {
	HeartbeatInterval time.Duration // how often to refresh the registry heartbeat
	StartPaused       bool          // wait for a start command instead of starting the worker
}

// DefaultSupervisorConfig returns default supervisor configuration.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		HeartbeatInterval: 30 * time.Second,
	}
}

// Supervisor is the long-running service process. It registers itself,
// keeps its heartbeat fresh, feeds control commands to the Controller and
// tears everything down when its context ends.
type Supervisor struct {
	config     SupervisorConfig
	controller *Controller
	registry   domain.InstanceRegistry
	instance   domain.Instance
	commands   <-chan Command
	cleanups   []CleanupStep
	logger     *zap.Logger
}

// NewSupervisor creates a new service supervisor.
func NewSupervisor(
	config SupervisorConfig,
	controller *Controller,
	registry domain.InstanceRegistry,
	instance domain.Instance,
	commands <-chan Command,
	logger *zap.Logger,
) *Supervisor {
	return &Supervisor{
		config:     config,
		controller: controller,
		registry:   registry,
		instance:   instance,
		commands:   commands,
		logger:     logger,
	}
}

// OnShutdown registers a cleanup step. Steps run in registration order after
// the worker has stopped and before the instance is unregistered and the
// registry closed.
func (s *Supervisor) OnShutdown(name string, run func() error) {
	s.cleanups = append(s.cleanups, CleanupStep{Name: name, Run: run})
}

// Run blocks until ctx is canceled, then runs the teardown steps.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.registry.Register(s.instance); err != nil {
		s.logger.Error("failed to register instance", zap.Error(err))
		return err
	}
	s.logger.Info("service started",
		zap.Int("pid", s.instance.PID),
		zap.String("version", s.instance.AppVersion))

	if !s.config.StartPaused {
		s.controller.Start()
	}

	serveCtx, stopServing := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.controller.Serve(serveCtx, s.commands)
	}()

	heartbeatTicker := time.NewTicker(s.config.HeartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("service stopping")
			stopServing()
			wg.Wait()
			s.shutdown()
			return nil

		case <-heartbeatTicker.C:
			if err := s.registry.UpdateHeartbeat(); err != nil {
				s.logger.Warn("failed to update heartbeat", zap.Error(err))
			}
		}
	}
}

func (s *Supervisor) shutdown() []CleanupResult {
	td := NewTeardown(s.logger)
	td.Add("stop worker", func() error {
		s.controller.Stop()
		return nil
	})
	for _, step := range s.cleanups {
		td.Add(step.Name, step.Run)
	}
	td.Add("unregister instance", s.registry.Clear)
	td.Add("close registry", s.registry.Close)
	return td.Run()
}
