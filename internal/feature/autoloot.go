package feature

import "github.com/eliteGoblin/autoskip/internal/domain"

// AutoLootFeature is listed so users can see it is coming; it cannot be enabled.
type AutoLootFeature struct{}

// NewAutoLootFeature creates the auto-loot feature descriptor.
func NewAutoLootFeature() *AutoLootFeature {
	return &AutoLootFeature{}
}

func (f *AutoLootFeature) ID() string                    { return "auto-loot" }
func (f *AutoLootFeature) Name() string                  { return "Auto pick up loot" }
func (f *AutoLootFeature) Capability() domain.Capability { return domain.CapabilityPlanned }
func (f *AutoLootFeature) Templates() []string           { return nil }
