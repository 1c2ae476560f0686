package infra

import (
	"errors"
	"os"
)

// mockProcessManager is a test double for domain.ProcessManager.
type mockProcessManager struct {
	names      map[int]string
	running    map[int]bool
	terminated []int
}

func newMockProcessManager() *mockProcessManager {
	return &mockProcessManager{
		names:   make(map[int]string),
		running: make(map[int]bool),
	}
}

func (m *mockProcessManager) Name(pid int) (string, error) {
	name, ok := m.names[pid]
	if !ok {
		return "", errors.New("access denied")
	}
	return name, nil
}

func (m *mockProcessManager) IsRunning(pid int) bool {
	return m.running[pid]
}

func (m *mockProcessManager) Terminate(pid int) error {
	m.terminated = append(m.terminated, pid)
	delete(m.running, pid)
	return nil
}

func (m *mockProcessManager) GetCurrentPID() int {
	return os.Getpid()
}
