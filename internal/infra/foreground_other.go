//go:build !windows

package infra

import (
	"errors"

	"github.com/go-vgo/robotgo"
)

var errNoForegroundWindow = errors.New("no foreground window")

func foregroundPID() (int, error) {
	pid := int(robotgo.GetPid())
	if pid <= 0 {
		return 0, errNoForegroundWindow
	}
	return pid, nil
}
