package feature

import "github.com/eliteGoblin/autoskip/internal/domain"

// SkipFeature clicks the cutscene "skip" marker and then its "confirm" dialog.
type SkipFeature struct{}

// NewSkipFeature creates the skip feature descriptor.
func NewSkipFeature() *SkipFeature {
	return &SkipFeature{}
}

func (f *SkipFeature) ID() string                    { return "skip" }
func (f *SkipFeature) Name() string                  { return "Auto skip cutscenes" }
func (f *SkipFeature) Capability() domain.Capability { return domain.CapabilityImplemented }

func (f *SkipFeature) Templates() []string {
	return []string{domain.TemplateSkip, domain.TemplateConfirm}
}
