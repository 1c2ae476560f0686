package infra

import (
	"time"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

// SystemClock implements domain.Clock with the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time                         { return time.Now() }
func (SystemClock) Sleep(d time.Duration)                  { time.Sleep(d) }
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

var _ domain.Clock = SystemClock{}
