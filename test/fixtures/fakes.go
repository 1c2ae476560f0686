package fixtures

import (
	"errors"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

// FakeClock is a manual clock. Sleep and After advance it instantly.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
	// Slept records every requested duration, in order.
	Slept []time.Duration
}

// NewFakeClock starts at a fixed, non-zero instant.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward without recording a sleep.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *FakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.Slept = append(c.Slept, d)
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.Sleep(d)
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

// Sleeps returns a copy of the recorded sleeps.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.Slept...)
}

// FakeClicker records clicks.
type FakeClicker struct {
	mu     sync.Mutex
	clicks []image.Point
	Err    error
	Closed bool
}

func (c *FakeClicker) Click(p image.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.clicks = append(c.clicks, p)
	return nil
}

func (c *FakeClicker) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

// Clicks returns a copy of the recorded clicks.
func (c *FakeClicker) Clicks() []image.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]image.Point(nil), c.clicks...)
}

// ErrCaptureScripted is the cause used by ScriptedSampler.FailNext.
var ErrCaptureScripted = errors.New("scripted capture failure")

// ScriptedSampler returns queued frames in order and repeats the last one forever.
type ScriptedSampler struct {
	mu       sync.Mutex
	frames   []domain.Frame
	failures int
	Calls    int
}

// NewScriptedSampler queues the given screens as frames at origin (0,0).
func NewScriptedSampler(screens ...*image.Gray) *ScriptedSampler {
	s := &ScriptedSampler{}
	for _, g := range screens {
		s.frames = append(s.frames, domain.Frame{Gray: g})
	}
	return s
}

// FailNext makes the next n captures fail with a CaptureError.
func (s *ScriptedSampler) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
}

// Push appends a screen to the queue.
func (s *ScriptedSampler) Push(g *image.Gray) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, domain.Frame{Gray: g})
}

func (s *ScriptedSampler) Capture() (domain.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if s.failures > 0 {
		s.failures--
		return domain.Frame{}, &domain.CaptureError{Err: ErrCaptureScripted}
	}
	if len(s.frames) == 0 {
		return domain.Frame{}, &domain.CaptureError{Err: errors.New("no frames scripted")}
	}
	f := s.frames[0]
	if len(s.frames) > 1 {
		s.frames = s.frames[1:]
	}
	return f, nil
}

// CaptureCalls returns how many captures were attempted.
func (s *ScriptedSampler) CaptureCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls
}

// FakeFocus reports a settable foreground process name.
type FakeFocus struct {
	mu   sync.Mutex
	name string
	ok   bool
}

// NewFakeFocus starts with name in the foreground.
func NewFakeFocus(name string) *FakeFocus {
	return &FakeFocus{name: name, ok: name != ""}
}

// Set changes the foreground process; an empty name means no foreground window.
func (f *FakeFocus) Set(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.name, f.ok = name, name != ""
}

func (f *FakeFocus) ForegroundProcessName() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.name, f.ok
}

// MemoryTemplates is an in-memory domain.TemplateStore.
type MemoryTemplates struct {
	mu        sync.RWMutex
	templates map[string]*domain.Template
}

// NewMemoryTemplates stores each image under its name.
func NewMemoryTemplates(images map[string]*image.Gray) *MemoryTemplates {
	m := &MemoryTemplates{templates: make(map[string]*domain.Template)}
	for name, g := range images {
		m.templates[name] = &domain.Template{
			Name:   name,
			Gray:   g,
			Width:  g.Rect.Dx(),
			Height: g.Rect.Dy(),
		}
	}
	return m
}

// Load is unsupported; MemoryTemplates is populated at construction.
func (m *MemoryTemplates) Load(name, path string) error {
	return domain.ErrTemplateMissing
}

func (m *MemoryTemplates) Get(name string) (*domain.Template, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[name]
	return t, ok
}

func (m *MemoryTemplates) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.templates))
	for n := range m.templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RecordingSink collects status events.
type RecordingSink struct {
	mu     sync.Mutex
	events []domain.StatusEvent
}

func (s *RecordingSink) Publish(ev domain.StatusEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of the collected events.
func (s *RecordingSink) Events() []domain.StatusEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.StatusEvent(nil), s.events...)
}

// Kinds returns the kinds of the collected events, in order, or nil when
// nothing was published.
func (s *RecordingSink) Kinds() []domain.StatusKind {
	var kinds []domain.StatusKind
	for _, ev := range s.Events() {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

// Count returns how many events of kind were collected.
func (s *RecordingSink) Count(kind domain.StatusKind) int {
	n := 0
	for _, ev := range s.Events() {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

var (
	_ domain.Clock         = (*FakeClock)(nil)
	_ domain.Clicker       = (*FakeClicker)(nil)
	_ domain.ScreenSampler = (*ScriptedSampler)(nil)
	_ domain.FocusMonitor  = (*FakeFocus)(nil)
	_ domain.TemplateStore = (*MemoryTemplates)(nil)
	_ domain.StatusSink    = (*RecordingSink)(nil)
)
