package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/autoskip/internal/config"
	"github.com/eliteGoblin/autoskip/internal/daemon"
	"github.com/eliteGoblin/autoskip/internal/domain"
	"github.com/eliteGoblin/autoskip/internal/feature"
	"github.com/eliteGoblin/autoskip/internal/infra"
	"github.com/eliteGoblin/autoskip/internal/status"
	"github.com/eliteGoblin/autoskip/internal/usecase"
	"github.com/eliteGoblin/autoskip/internal/vision"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the service in the foreground",
	Long: `Runs the skip worker in this process until interrupted.
The hotkey toggles the worker; the status feed (status.listen_addr) exposes
the event stream and the start/stop/config controls.`,
	RunE: runService,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the service in the background",
	RunE:  runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background service",
	RunE:  runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the service is running",
	RunE:  runStatus,
}

var startPaused bool

func init() {
	runCmd.Flags().BoolVar(&startPaused, "paused", false, "Wait for the hotkey or a start command before skipping")
	startCmd.Flags().BoolVar(&startPaused, "paused", false, "Wait for the hotkey or a start command before skipping")
}

func runService(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	registry, err := env.openRegistry()
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	if err := env.applySettings(registry); err != nil {
		registry.Close()
		return err
	}
	cfg := env.cfg

	logger := createLogger(cfg.Log, env.paths)
	defer func() { _ = logger.Sync() }()

	pm := infra.NewProcessManager()
	if inst, _ := registry.Get(); inst != nil && inst.PID != pm.GetCurrentPID() && pm.IsRunning(inst.PID) {
		registry.Close()
		return fmt.Errorf("autoskip is already running (pid %d)", inst.PID)
	}

	// Status fan-out: overlay text and log mirror.
	hub := status.NewHub(logger)
	overlay := status.NewOverlay(cfg.Status.OverlayLimit)
	overlayEvents, _ := hub.Subscribe(256)
	go overlay.Consume(overlayEvents)
	logEvents, _ := hub.Subscribe(256)
	go status.NewLogSink(logger).Consume(logEvents)

	templates := infra.NewFileTemplateStore(logger)
	for _, r := range infra.LoadTemplates(templates, env.templatePaths(), logger) {
		if r.Err != nil && errors.Is(r.Err, domain.ErrTemplateCorrupt) {
			hub.Publish(domain.StatusEvent{
				Time:    time.Now(),
				Kind:    domain.StatusTemplate,
				Message: fmt.Sprintf("template %s unavailable: %v", r.Name, r.Err),
			})
		}
	}

	clicker, err := openClicker(cfg.Input, logger)
	if err != nil {
		hub.Close()
		registry.Close()
		return fmt.Errorf("failed to open input backend: %w", err)
	}

	clock := infra.SystemClock{}
	capturer := infra.NewScreenCapturer()
	sequencer := usecase.NewActionSequencer(
		usecase.SequencerConfig{
			Cooldown:     cfg.Loop.SkipCooldown,
			ConfirmDelay: cfg.Loop.ConfirmDelay,
		},
		templates,
		capturer,
		vision.NewMatcher(logger),
		clicker,
		clock,
		logger,
	)
	loop := daemon.NewLoop(
		daemon.LoopConfig{
			FocusPollInterval: cfg.Loop.FocusPollInterval,
			CaptureRetryDelay: cfg.Loop.CaptureRetryDelay,
			CycleInterval:     cfg.Loop.CycleInterval,
			ErrorBackoff:      cfg.Loop.ErrorBackoff,
		},
		infra.NewForegroundMonitor(pm, logger),
		capturer,
		sequencer,
		hub,
		clock,
		logger,
	)
	controller := daemon.NewController(loop, cfg.Worker(), logger)
	commands := make(chan daemon.Command, 16)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	hotkeyCtx, stopHotkey := context.WithCancel(ctx)
	hotkeyDone := startHotkey(hotkeyCtx, cfg.Hotkey, commands, logger)

	serverDone := make(chan struct{})
	if cfg.Status.ListenAddr != "" {
		server := status.NewServer(hub, overlay, controller, commands, feature.NewRegistry(), logger)
		server.OnShutdownRequest(cancel)
		go func() {
			defer close(serverDone)
			if err := server.ListenAndServe(ctx, cfg.Status.ListenAddr); err != nil {
				logger.Error("status server failed", zap.Error(err))
			}
		}()
	} else {
		close(serverDone)
	}

	supervisor := daemon.NewSupervisor(
		daemon.SupervisorConfig{
			HeartbeatInterval: daemon.DefaultSupervisorConfig().HeartbeatInterval,
			StartPaused:       startPaused,
		},
		controller,
		registry,
		domain.Instance{
			PID:        pm.GetCurrentPID(),
			StartedAt:  time.Now(),
			AppVersion: Version,
			ListenAddr: cfg.Status.ListenAddr,
		},
		commands,
		logger,
	)
	supervisor.OnShutdown("close status hub", hub.Close)
	supervisor.OnShutdown("stop status server", func() error {
		<-serverDone
		return nil
	})
	supervisor.OnShutdown("uninstall hotkey", func() error {
		stopHotkey()
		return <-hotkeyDone
	})
	supervisor.OnShutdown("close clicker", clicker.Close)

	return supervisor.Run(ctx)
}

func openClicker(cfg config.Input, logger *zap.Logger) (domain.Clicker, error) {
	switch cfg.Backend {
	case config.BackendSerial:
		return infra.OpenSerialClicker(cfg.SerialPort, cfg.SerialBaud, cfg.AckTimeout, logger)
	default:
		return infra.NewRobotClicker(logger), nil
	}
}

// startHotkey feeds toggle commands from the global hotkey. The returned
// channel yields the listener's exit error once it has uninstalled its hook.
func startHotkey(ctx context.Context, key string, commands chan<- daemon.Command, logger *zap.Logger) <-chan error {
	done := make(chan error, 1)

	listener, err := infra.NewHotkeyListener(key, logger)
	if err != nil {
		logger.Warn("hotkey disabled", zap.String("hotkey", key), zap.Error(err))
		done <- nil
		return done
	}

	go func() {
		err := listener.Listen(ctx, func() {
			select {
			case commands <- daemon.Command{Kind: daemon.CmdToggle}:
			default:
				logger.Warn("command queue full, hotkey press dropped")
			}
		})
		if errors.Is(err, domain.ErrHotkeyUnsupported) {
			logger.Info("global hotkey not available on this platform")
			err = nil
		}
		done <- err
	}()
	return done
}

func runStart(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	registry, err := env.openRegistry()
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	pm := infra.NewProcessManager()
	inst, _ := registry.Get()
	registry.Close()

	if inst != nil && pm.IsRunning(inst.PID) {
		fmt.Printf("autoskip is already running (pid %d)\n", inst.PID)
		return nil
	}

	runArgs := []string{"run"}
	if configFile != "" {
		runArgs = append(runArgs, "--config", configFile)
	}
	if startPaused {
		runArgs = append(runArgs, "--paused")
	}
	pid, err := daemon.StartDetached(runArgs...)
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	// Wait a moment for the service to register
	time.Sleep(500 * time.Millisecond)

	fmt.Println("\n=== autoskip Started ===")
	fmt.Printf("PID: %d\n", pid)
	fmt.Printf("Target: %s\n", env.cfg.TargetProcess)
	fmt.Printf("Hotkey: %s (pause/resume)\n", env.cfg.Hotkey)
	fmt.Printf("Log: %s\n", env.paths.LogFile)
	fmt.Println("========================")
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	registry, err := env.openRegistry()
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer registry.Close()

	inst, err := registry.Get()
	if err != nil {
		return err
	}
	pm := infra.NewProcessManager()
	if inst == nil || !pm.IsRunning(inst.PID) {
		fmt.Println("autoskip is not running")
		return registry.Clear()
	}

	// Ask the service to run its own teardown first; Terminate is a hard kill
	// on Windows and skips it.
	if inst.ListenAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := status.NewClient(inst.ListenAddr).Shutdown(ctx)
		cancel()
		if err == nil && waitExit(pm, inst.PID, stopTimeout) {
			fmt.Printf("autoskip stopped (pid %d)\n", inst.PID)
			return nil
		}
		if err != nil {
			fmt.Printf("graceful stop failed (%v), terminating\n", err)
		}
	}

	if err := pm.Terminate(inst.PID); err != nil {
		return fmt.Errorf("failed to stop pid %d: %w", inst.PID, err)
	}
	if !waitExit(pm, inst.PID, stopTimeout) {
		return fmt.Errorf("pid %d did not exit", inst.PID)
	}
	// A hard kill skips the service's own teardown.
	_ = registry.Clear()

	fmt.Printf("autoskip stopped (pid %d)\n", inst.PID)
	return nil
}

// stopTimeout bounds each wait for the service process to exit.
const stopTimeout = 5 * time.Second

func waitExit(pm domain.ProcessManager, pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for pm.IsRunning(pid) && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	return !pm.IsRunning(pid)
}

func runStatus(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	registry, err := env.openRegistry()
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer registry.Close()

	fmt.Println("\n=== autoskip Status ===")

	inst, err := registry.Get()
	pm := infra.NewProcessManager()
	if err != nil || inst == nil || !pm.IsRunning(inst.PID) {
		fmt.Println("Status: NOT RUNNING")
		fmt.Println("\nRun 'autoskip start' to begin.")
		return nil
	}

	fmt.Println("Status: RUNNING")
	fmt.Printf("PID: %d (version %s)\n", inst.PID, inst.AppVersion)
	fmt.Printf("Started: %s\n", inst.StartedAt.Format(time.RFC3339))
	if !inst.LastHeartbeat.IsZero() {
		fmt.Printf("Last heartbeat: %s ago\n", time.Since(inst.LastHeartbeat).Round(time.Second))
	}

	if inst.ListenAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		state, err := status.NewClient(inst.ListenAddr).State(ctx)
		cancel()
		if err != nil {
			fmt.Printf("Worker: unknown (%v)\n", err)
		} else {
			fmt.Printf("Worker: %s", state.Run)
			if state.Focus != domain.FocusUnknown {
				fmt.Printf(" (%s)", state.Focus)
			}
			fmt.Println()
			fmt.Printf("Target: %s  skip: %t  threshold: %.2f\n",
				state.Config.TargetProcess, state.Config.SkipEnabled, state.Config.Threshold)
		}
	}

	fmt.Println("=======================")
	return nil
}
