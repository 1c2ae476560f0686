package domain

import (
	"image"
	"time"
)

// TemplateStore holds the reference images loaded at startup.
type TemplateStore interface {
	// Load reads an image file and stores it under name. On failure the entry
	// is left absent and the returned error explains why; callers treat it as
	// a disabled feature, not a fatal error.
	Load(name, path string) error

	// Get returns the template or false when it is absent.
	Get(name string) (*Template, bool)

	// Names returns the names of all loaded templates, sorted.
	Names() []string
}

// FocusMonitor resolves the process owning the foreground window.
type FocusMonitor interface {
	// ForegroundProcessName returns the executable name, or false when there is
	// no foreground window or its process cannot be inspected.
	ForegroundProcessName() (string, bool)
}

// ScreenSampler captures the virtual desktop.
// Implementation: kbinani/screenshot across all active displays.
type ScreenSampler interface {
	// Capture grabs one frame. Errors are *CaptureError.
	Capture() (Frame, error)
}

// Matcher locates a template inside a frame.
type Matcher interface {
	// Match returns the best location when its score is >= threshold.
	Match(frame Frame, tpl *Template, threshold float64) (MatchResult, bool)
}

// Clicker injects a left click at absolute screen coordinates.
// Implementation: robotgo, or an Arduino HID bridge over serial.
type Clicker interface {
	Click(p image.Point) error
	Close() error
}

// StatusSink receives status events. Publish must not block the caller.
type StatusSink interface {
	Publish(ev StatusEvent)
}

// Clock abstracts time so loop timings can be tested.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d.
	Sleep(d time.Duration)
	// After fires once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// Name returns the executable name of pid.
	Name(pid int) (string, error)

	// IsRunning checks if a PID exists.
	IsRunning(pid int) bool

	// Terminate asks a process to exit.
	Terminate(pid int) error

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// InstanceRegistry records the running service and persisted settings.
// Implementation: SQLCipher encrypted SQLite database in the data directory.
type InstanceRegistry interface {
	Register(inst Instance) error
	UpdateHeartbeat() error
	// Get returns ErrNotRegistered when no instance is recorded.
	Get() (*Instance, error)
	Clear() error

	GetSetting(key string) (string, bool, error)
	SetSetting(key, value string) error
	Settings() (map[string]string, error)

	Close() error
}

