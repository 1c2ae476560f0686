package daemon

import (
	"fmt"

	"go.uber.org/zap"
)

// CleanupStep is one best-effort teardown action.
type CleanupStep struct {
	Name string
	Run  func() error
}

// CleanupResult is the status of one step.
type CleanupResult struct {
	Step string
	Err  error
}

// Teardown runs cleanup steps in order. A failing step is logged and the
// remaining steps still run; failures are never escalated.
type Teardown struct {
	steps  []CleanupStep
	logger *zap.Logger
}

// NewTeardown creates an empty teardown sequence.
func NewTeardown(logger *zap.Logger) *Teardown {
	return &Teardown{logger: logger}
}

// Add appends a step.
func (t *Teardown) Add(name string, run func() error) {
	t.steps = append(t.steps, CleanupStep{Name: name, Run: run})
}

// Run executes every step and reports each outcome.
func (t *Teardown) Run() []CleanupResult {
	results := make([]CleanupResult, 0, len(t.steps))
	for _, step := range t.steps {
		err := runStep(step)
		if err != nil {
			t.logger.Warn("cleanup step failed", zap.String("step", step.Name), zap.Error(err))
		} else {
			t.logger.Debug("cleanup step done", zap.String("step", step.Name))
		}
		results = append(results, CleanupResult{Step: step.Name, Err: err})
	}
	return results
}

func runStep(step CleanupStep) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cleanup panicked: %v", r)
		}
	}()
	return step.Run()
}
