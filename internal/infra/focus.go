package infra

import (
	"go.uber.org/zap"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

// ForegroundMonitor implements domain.FocusMonitor.
// The foreground window's pid comes from the platform; its name from gopsutil.
type ForegroundMonitor struct {
	windowPID func() (int, error)
	processes domain.ProcessManager
	logger    *zap.Logger
}

// NewForegroundMonitor creates a focus monitor for the current platform.
func NewForegroundMonitor(pm domain.ProcessManager, logger *zap.Logger) *ForegroundMonitor {
	return &ForegroundMonitor{
		windowPID: foregroundPID,
		processes: pm,
		logger:    logger,
	}
}

// ForegroundProcessName returns the executable name owning the foreground window.
func (m *ForegroundMonitor) ForegroundProcessName() (string, bool) {
	pid, err := m.windowPID()
	if err != nil {
		m.logger.Debug("no foreground window", zap.Error(err))
		return "", false
	}

	name, err := m.processes.Name(pid)
	if err != nil {
		// Protected processes refuse inspection; treat as not focused.
		m.logger.Debug("foreground process not inspectable",
			zap.Int("pid", pid),
			zap.Error(err))
		return "", false
	}
	return name, true
}

// Ensure ForegroundMonitor implements domain.FocusMonitor.
var _ domain.FocusMonitor = (*ForegroundMonitor)(nil)
