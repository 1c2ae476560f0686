package vision

import (
	"image"

	"go.uber.org/zap"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

// Matcher implements domain.Matcher on top of the compiled correlation backend.
type Matcher struct {
	logger *zap.Logger
}

// NewMatcher creates a template matcher.
func NewMatcher(logger *zap.Logger) *Matcher {
	return &Matcher{logger: logger}
}

// Backend names the correlation implementation compiled into the binary.
func Backend() string {
	return backendName
}

// Match returns the best location of tpl in frame when its score reaches threshold.
func (m *Matcher) Match(frame domain.Frame, tpl *domain.Template, threshold float64) (domain.MatchResult, bool) {
	res, ok := m.Best(frame, tpl)
	if !ok || res.Score < threshold {
		return domain.MatchResult{}, false
	}
	return res, true
}

// Best returns the best location regardless of threshold. Used by diagnostics.
func (m *Matcher) Best(frame domain.Frame, tpl *domain.Template) (domain.MatchResult, bool) {
	if frame.Gray == nil || tpl == nil || tpl.Gray == nil {
		return domain.MatchResult{}, false
	}
	loc, score, ok := bestMatch(frame.Gray, tpl.Gray)
	if !ok {
		return domain.MatchResult{}, false
	}
	m.logger.Debug("template scored",
		zap.String("template", tpl.Name),
		zap.Int("x", loc.X),
		zap.Int("y", loc.Y),
		zap.Float64("score", score))

	return domain.MatchResult{
		Location: loc,
		Center:   loc.Add(image.Pt(tpl.Width/2, tpl.Height/2)),
		Score:    score,
	}, true
}

// Ensure Matcher implements domain.Matcher.
var _ domain.Matcher = (*Matcher)(nil)
