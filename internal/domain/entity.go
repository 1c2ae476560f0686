// Package domain contains the core entities and ports of the auto-skip service.
package domain

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"time"
)

// Template names known to the action sequencer.
const (
	TemplateSkip    = "skip"
	TemplateConfirm = "confirm"
)

// DefaultThreshold is the minimum correlation score accepted as a match.
const DefaultThreshold = 0.8

// DefaultTargetProcess is the foreground process substring watched by default.
const DefaultTargetProcess = "Endfield"

var (
	// ErrTemplateMissing means the template file does not exist.
	ErrTemplateMissing = errors.New("template file missing")
	// ErrTemplateCorrupt means the template file could not be decoded.
	ErrTemplateCorrupt = errors.New("template file corrupt")
	// ErrNotRegistered means no running instance is recorded in the registry.
	ErrNotRegistered = errors.New("no instance registered")
	// ErrHotkeyUnsupported is returned on platforms without a global keyboard hook.
	ErrHotkeyUnsupported = errors.New("global hotkey not supported on this platform")
)

// Template is an immutable grayscale reference image.
type Template struct {
	Name        string
	Gray        *image.Gray
	Width       int
	Height      int
	Fingerprint string // perceptual hash, informational only
}

// Frame is one grayscale capture of the virtual desktop.
// Origin is the screen coordinate of pixel (0,0); it is negative when a
// monitor sits left of or above the primary display.
type Frame struct {
	Gray   *image.Gray
	Origin image.Point
}

// Size returns the frame dimensions.
func (f Frame) Size() image.Point {
	if f.Gray == nil {
		return image.Point{}
	}
	return f.Gray.Bounds().Size()
}

// ScreenPoint translates a frame pixel coordinate into absolute screen space.
func (f Frame) ScreenPoint(p image.Point) image.Point {
	return p.Add(f.Origin)
}

// MatchResult is the best location of a template inside a frame.
type MatchResult struct {
	Location image.Point // top-left of the best window, frame coordinates
	Center   image.Point // centre of the best window, frame coordinates
	Score    float64     // normalized correlation in [-1, 1]
}

// WorkerConfig is the user-tunable configuration read at the start of each cycle.
type WorkerConfig struct {
	TargetProcess string  `json:"target_process" yaml:"target_process"`
	SkipEnabled   bool    `json:"skip_enabled" yaml:"skip_enabled"`
	Threshold     float64 `json:"threshold" yaml:"threshold"`
}

// DefaultWorkerConfig returns the out-of-the-box worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		TargetProcess: DefaultTargetProcess,
		SkipEnabled:   true,
		Threshold:     DefaultThreshold,
	}
}

// MatchesTarget reports whether the process name contains substr, ignoring case.
// An empty substr matches every process.
func MatchesTarget(name, substr string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(substr))
}

// RunState is the top-level lifecycle of the control loop.
type RunState string

const (
	RunStopped RunState = "stopped"
	RunRunning RunState = "running"
)

// FocusState is the sub-state tracked while running.
type FocusState string

const (
	FocusUnknown   FocusState = ""
	FocusFocused   FocusState = "focused"
	FocusSuspended FocusState = "suspended"
)

// WorkerState is owned by a single control loop run and never shared.
type WorkerState struct {
	Focus       FocusState
	LastAttempt time.Time // zero means no attempt has been made yet
}

// CooldownElapsed reports whether a new attempt is allowed at now.
func (s *WorkerState) CooldownElapsed(now time.Time, cooldown time.Duration) bool {
	if s.LastAttempt.IsZero() {
		return true
	}
	return now.Sub(s.LastAttempt) >= cooldown
}

// OutcomeKind classifies what a skip attempt did.
type OutcomeKind string

const (
	OutcomeIdle      OutcomeKind = "idle"      // gated: disabled, template absent or cooling down
	OutcomeNoMatch   OutcomeKind = "no_match"  // attempted, skip marker not on screen
	OutcomeSkipped   OutcomeKind = "skipped"   // skip clicked, confirm not clicked
	OutcomeConfirmed OutcomeKind = "confirmed" // skip and confirm clicked
)

// Outcome describes which steps of a skip attempt fired.
type Outcome struct {
	Kind           OutcomeKind
	Skip           *MatchResult
	Confirm        *MatchResult
	Clicks         []image.Point // absolute screen coordinates, in order
	ConfirmCapture error         // capture failure of the second frame, if any
	ScreenDelta    int           // fingerprint distance between the two frames, -1 if unknown
}

// StatusKind tags status events so consumers can filter them.
type StatusKind string

const (
	StatusStarted      StatusKind = "started"
	StatusStopped      StatusKind = "stopped"
	StatusSuspended    StatusKind = "suspended"
	StatusResumed      StatusKind = "resumed"
	StatusSkip         StatusKind = "skip"
	StatusConfirm      StatusKind = "confirm"
	StatusCaptureError StatusKind = "capture_error"
	StatusCycleError   StatusKind = "cycle_error"
	StatusTemplate     StatusKind = "template"
	StatusConfig       StatusKind = "config"
)

// StatusEvent is one human-readable line for the presentation layer.
type StatusEvent struct {
	Time    time.Time  `json:"time"`
	Kind    StatusKind `json:"kind"`
	Message string     `json:"message"`
}

// CaptureError wraps a failed screen capture. It is always recoverable.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("screen capture failed: %v", e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Capability says whether a feature is usable or only announced.
type Capability string

const (
	CapabilityImplemented Capability = "implemented"
	CapabilityPlanned     Capability = "planned"
)

// Instance is the running service as recorded in the registry.
type Instance struct {
	PID           int
	StartedAt     time.Time
	LastHeartbeat time.Time
	AppVersion    string
	ListenAddr    string
}

// Snapshot is a point-in-time view of the controller for status surfaces.
type Snapshot struct {
	Run    RunState     `json:"run"`
	Focus  FocusState   `json:"focus"`
	Config WorkerConfig `json:"config"`
}
