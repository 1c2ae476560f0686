// Package config loads the service configuration from autoskip.yaml, the
// environment and persisted overrides.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

// FileName is the config file name without extension.
const FileName = "autoskip"

// EnvPrefix prefixes every environment override, e.g. AUTOSKIP_THRESHOLD.
const EnvPrefix = "AUTOSKIP"

// Input backends.
const (
	BackendRobotgo = "robotgo"
	BackendSerial  = "serial"
)

// Templates names the template image files.
type Templates struct {
	Skip    string `mapstructure:"skip"`
	Confirm string `mapstructure:"confirm"`
}

// Loop holds the worker timings.
type Loop struct {
	FocusPollInterval time.Duration `mapstructure:"focus_poll_interval"`
	CaptureRetryDelay time.Duration `mapstructure:"capture_retry_delay"`
	CycleInterval     time.Duration `mapstructure:"cycle_interval"`
	ErrorBackoff      time.Duration `mapstructure:"error_backoff"`
	SkipCooldown      time.Duration `mapstructure:"skip_cooldown"`
	ConfirmDelay      time.Duration `mapstructure:"confirm_delay"`
}

// Input selects how clicks are injected.
type Input struct {
	Backend    string        `mapstructure:"backend"`
	SerialPort string        `mapstructure:"serial_port"`
	SerialBaud int           `mapstructure:"serial_baud"`
	AckTimeout time.Duration `mapstructure:"ack_timeout"`
}

// Status configures the status feed.
type Status struct {
	ListenAddr   string `mapstructure:"listen_addr"`
	OverlayLimit int    `mapstructure:"overlay_limit"`
}

// Log configures the service log.
type Log struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// Config is the effective configuration.
type Config struct {
	TargetProcess string    `mapstructure:"target_process"`
	SkipEnabled   bool      `mapstructure:"skip_enabled"`
	Threshold     float64   `mapstructure:"threshold"`
	Hotkey        string    `mapstructure:"hotkey"`
	AssetsDir     string    `mapstructure:"assets_dir"`
	Templates     Templates `mapstructure:"templates"`
	Loop          Loop      `mapstructure:"loop"`
	Input         Input     `mapstructure:"input"`
	Status        Status    `mapstructure:"status"`
	Log           Log       `mapstructure:"log"`
}

// Worker returns the part of the configuration the control loop reads.
func (c Config) Worker() domain.WorkerConfig {
	return domain.WorkerConfig{
		TargetProcess: c.TargetProcess,
		SkipEnabled:   c.SkipEnabled,
		Threshold:     c.Threshold,
	}
}

// Validate reports the first invalid value.
func (c Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold %v: must be in (0,1]", c.Threshold)
	}
	durations := map[string]time.Duration{
		"loop.focus_poll_interval": c.Loop.FocusPollInterval,
		"loop.capture_retry_delay": c.Loop.CaptureRetryDelay,
		"loop.cycle_interval":      c.Loop.CycleInterval,
		"loop.error_backoff":       c.Loop.ErrorBackoff,
		"loop.skip_cooldown":       c.Loop.SkipCooldown,
		"loop.confirm_delay":       c.Loop.ConfirmDelay,
		"input.ack_timeout":        c.Input.AckTimeout,
	}
	keys := make([]string, 0, len(durations))
	for k := range durations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if durations[k] <= 0 {
			return fmt.Errorf("%s %v: must be positive", k, durations[k])
		}
	}
	switch c.Input.Backend {
	case BackendRobotgo:
	case BackendSerial:
		if c.Input.SerialPort == "" {
			return errors.New("input.serial_port: required for the serial backend")
		}
		if c.Input.SerialBaud <= 0 {
			return fmt.Errorf("input.serial_baud %d: must be positive", c.Input.SerialBaud)
		}
	default:
		return fmt.Errorf("input.backend %q: must be %s or %s", c.Input.Backend, BackendRobotgo, BackendSerial)
	}
	if c.Status.OverlayLimit <= 0 {
		return fmt.Errorf("status.overlay_limit %d: must be positive", c.Status.OverlayLimit)
	}
	return nil
}

// Loader wraps a viper instance with the autoskip defaults and search paths.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader. An explicit file replaces the search in dirs.
func NewLoader(file string, dirs ...string) *Loader {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		for _, d := range dirs {
			if d != "" {
				v.AddConfigPath(d)
			}
		}
	}
	return &Loader{v: v}
}

// Durations are kept as strings so AllSettings dumps them readably.
func setDefaults(v *viper.Viper) {
	v.SetDefault("target_process", domain.DefaultTargetProcess)
	v.SetDefault("skip_enabled", true)
	v.SetDefault("threshold", domain.DefaultThreshold)
	v.SetDefault("hotkey", "F10")
	v.SetDefault("assets_dir", "")
	v.SetDefault("templates.skip", "tpl_skip.png")
	v.SetDefault("templates.confirm", "tpl_confirm.png")
	v.SetDefault("loop.focus_poll_interval", "1s")
	v.SetDefault("loop.capture_retry_delay", "200ms")
	v.SetDefault("loop.cycle_interval", "100ms")
	v.SetDefault("loop.error_backoff", "1s")
	v.SetDefault("loop.skip_cooldown", "1s")
	v.SetDefault("loop.confirm_delay", "300ms")
	v.SetDefault("input.backend", BackendRobotgo)
	v.SetDefault("input.serial_port", "COM3")
	v.SetDefault("input.serial_baud", 115200)
	v.SetDefault("input.ack_timeout", "2s")
	v.SetDefault("status.listen_addr", "127.0.0.1:47810")
	v.SetDefault("status.overlay_limit", 2000)
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")
}

// Load reads the config file if one exists, then decodes and validates.
func (l *Loader) Load() (Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (Config, error) {
	var c Config
	if err := l.v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// File returns the config file in use, or "" when running on defaults.
func (l *Loader) File() string {
	return l.v.ConfigFileUsed()
}

// Keys returns every known setting key, sorted.
func (l *Loader) Keys() []string {
	keys := l.v.AllKeys()
	sort.Strings(keys)
	return keys
}

// IsKey reports whether key names a known setting.
func (l *Loader) IsKey(key string) bool {
	key = strings.ToLower(key)
	for _, k := range l.v.AllKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// Override applies persisted settings on top of the file and environment,
// then re-validates. Unknown keys are rejected.
func (l *Loader) Override(settings map[string]string) (Config, error) {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !l.IsKey(k) {
			return Config{}, fmt.Errorf("unknown setting %q", k)
		}
		l.v.Set(k, settings[k])
	}
	return l.decode()
}

// YAML renders the effective settings.
func (l *Loader) YAML() ([]byte, error) {
	return yaml.Marshal(l.v.AllSettings())
}
