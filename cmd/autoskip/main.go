// Package main is the CLI entry point for autoskip.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/autoskip/internal/config"
	"github.com/eliteGoblin/autoskip/internal/domain"
	"github.com/eliteGoblin/autoskip/internal/infra"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "autoskip",
	Short: "Clicks through cutscene skip prompts",
	Long: `autoskip watches the screen while the game window is in front and clicks
the "skip" button, then the confirmation dialog that follows it.

Press the hotkey (F10 by default) to pause or resume.`,
	Version:      Version,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configFile string
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to autoskip.yaml")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// environment is the resolved configuration and directories for one command.
type environment struct {
	loader *config.Loader
	cfg    config.Config
	paths  infra.Paths
}

// loadEnvironment reads autoskip.yaml from --config, the working directory,
// the executable directory or the data directory.
func loadEnvironment() (*environment, error) {
	base := infra.DetectPaths("")
	loader := config.NewLoader(configFile, ".", base.AssetsDir, base.DataDir)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	return &environment{loader: loader, cfg: cfg, paths: infra.DetectPaths(cfg.AssetsDir)}, nil
}

// openRegistry opens the encrypted registry, creating the data directory.
func (e *environment) openRegistry() (*infra.EncryptedRegistry, error) {
	if err := os.MkdirAll(e.paths.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return infra.OpenRegistry(e.paths)
}

// applySettings layers the values saved with "config set" over the file.
func (e *environment) applySettings(reg *infra.EncryptedRegistry) error {
	settings, err := reg.Settings()
	if err != nil {
		return err
	}
	if len(settings) == 0 {
		return nil
	}
	cfg, err := e.loader.Override(settings)
	if err != nil {
		return fmt.Errorf("saved settings: %w", err)
	}
	e.cfg = cfg
	e.paths = infra.DetectPaths(cfg.AssetsDir)
	return nil
}

func (e *environment) templatePaths() map[string]string {
	return map[string]string{
		domain.TemplateSkip:    e.paths.Asset(e.cfg.Templates.Skip),
		domain.TemplateConfirm: e.paths.Asset(e.cfg.Templates.Confirm),
	}
}

// createLogger writes JSON logs to the service log file. The file is opened
// directly rather than through zap output paths, which do not accept Windows
// drive-letter paths.
func createLogger(cfg config.Log, paths infra.Paths) *zap.Logger {
	logFile := cfg.File
	if logFile == "" {
		logFile = paths.LogFile
	}

	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(cfg.Level); err == nil {
		level = parsed
	}

	logConfig := zap.NewProductionConfig()
	logConfig.EncoderConfig.TimeKey = "time"
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if err := os.MkdirAll(filepath.Dir(logFile), 0o700); err == nil {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err == nil {
			core := zapcore.NewCore(zapcore.NewJSONEncoder(logConfig.EncoderConfig), zapcore.AddSync(f), level)
			return zap.New(core, zap.AddCaller(), zap.ErrorOutput(zapcore.AddSync(f)))
		}
	}

	// Fallback to stderr if file logging fails
	logConfig.Level = zap.NewAtomicLevelAt(level)
	logger, err := logConfig.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("autoskip %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
