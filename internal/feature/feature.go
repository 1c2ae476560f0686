// Package feature describes the automations the service knows about and
// whether each one can actually run.
package feature

import (
	"errors"
	"fmt"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

// ErrPlanned is returned when enabling a feature that is announced but not built.
var ErrPlanned = errors.New("feature is planned, not implemented")

// Feature is one automation exposed to the command surface.
type Feature interface {
	// ID returns the stable key (e.g. "skip", "auto-loot").
	ID() string

	// Name returns a human-readable name for display.
	Name() string

	// Capability tells whether the feature can be enabled.
	Capability() domain.Capability

	// Templates lists the template names the feature needs at runtime.
	Templates() []string
}

// Info is the serialisable view of a feature.
type Info struct {
	ID         string            `json:"id" yaml:"id"`
	Name       string            `json:"name" yaml:"name"`
	Capability domain.Capability `json:"capability" yaml:"capability"`
	Templates  []string          `json:"templates,omitempty" yaml:"templates,omitempty"`
}

// Describe converts a Feature into an Info.
func Describe(f Feature) Info {
	return Info{
		ID:         f.ID(),
		Name:       f.Name(),
		Capability: f.Capability(),
		Templates:  f.Templates(),
	}
}

// CheckEnable returns ErrPlanned when f cannot be switched on.
func CheckEnable(f Feature) error {
	if f.Capability() != domain.CapabilityImplemented {
		return fmt.Errorf("%s: %w", f.ID(), ErrPlanned)
	}
	return nil
}
