package keywords

import (
	"context"
	"sync"

	"github.com/insajin/appeyes/internal/browser"
	"github.com/insajin/appeyes/internal/eyes"
	"github.com/insajin/appeyes/internal/geometry"
	"github.com/insajin/appeyes/internal/metrics"
	"github.com/insajin/appeyes/internal/selector"
	"github.com/rs/zerolog"
)

type checkCall struct {
	method   string
	tag      string
	region   geometry.Region
	kind     selector.Kind
	value    string
	fullPage bool
}

type imageCall struct {
	tag            string
	data           []byte
	ignoreMismatch bool
}

// fakeSession records calls made by the Library.
type fakeSession struct {
	cfg      eyes.Configuration
	driver   browser.Driver
	app      string
	test     string
	viewport *geometry.Size

	open     bool
	fullPage bool
	checks   []checkCall
	ignores  []checkCall
	floats   []checkCall
	images   []imageCall
	closes   int
	aborts   int
	loggers  int
	closeErr error
	openErr  error

	mu sync.Mutex
}

func (f *fakeSession) Open(ctx context.Context, d browser.Driver, app, test string, viewport *geometry.Size) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.driver, f.app, f.test, f.viewport = d, app, test, viewport
	f.open = true
	return nil
}

func (f *fakeSession) SetLogger(zerolog.Logger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggers++
}

func (f *fakeSession) SetForceFullPage(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fullPage = on
}

func (f *fakeSession) CheckWindow(ctx context.Context, tag string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks = append(f.checks, checkCall{method: "window", tag: tag, fullPage: f.fullPage})
	return true, nil
}

func (f *fakeSession) CheckRegion(ctx context.Context, r geometry.Region, tag string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks = append(f.checks, checkCall{method: "region", tag: tag, region: r})
	return true, nil
}

func (f *fakeSession) CheckRegionByElement(ctx context.Context, el browser.Element, tag string) (bool, error) {
	r, err := browser.Bounds(ctx, el)
	if err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks = append(f.checks, checkCall{method: "element", tag: tag, region: r})
	return true, nil
}

func (f *fakeSession) CheckRegionBySelector(ctx context.Context, kind selector.Kind, value, tag string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks = append(f.checks, checkCall{method: "selector", tag: tag, kind: kind, value: value})
	return true, nil
}

func (f *fakeSession) AddIgnoreRegionBySelector(kind selector.Kind, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ignores = append(f.ignores, checkCall{kind: kind, value: value})
	return nil
}

func (f *fakeSession) AddFloatingRegionBySelector(kind selector.Kind, value string, left, up, right, down int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.floats = append(f.floats, checkCall{
		kind:   kind,
		value:  value,
		region: geometry.Region{Left: left, Top: up, Width: right, Height: down},
	})
	return nil
}

func (f *fakeSession) MatchImage(ctx context.Context, img []byte, tag string, ignoreMismatch bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, imageCall{tag: tag, data: img, ignoreMismatch: ignoreMismatch})
	return true, nil
}

func (f *fakeSession) Close(ctx context.Context) (*eyes.TestResults, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	if f.closeErr != nil {
		return nil, f.closeErr
	}
	f.open = false
	return &eyes.TestResults{Steps: len(f.checks), Matches: len(f.checks)}, nil
}

func (f *fakeSession) AbortIfNotClosed(ctx context.Context) (*eyes.TestResults, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return nil, nil
	}
	f.aborts++
	f.open = false
	return &eyes.TestResults{IsAborted: true}, nil
}

func (f *fakeSession) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// fakeFactory hands out fakeSessions and remembers them.
type fakeFactory struct {
	sessions []*fakeSession
	prepare  func(*fakeSession)
}

func (ff *fakeFactory) new(cfg eyes.Configuration, _ zerolog.Logger, _ *metrics.Metrics) VisualSession {
	s := &fakeSession{cfg: cfg}
	if ff.prepare != nil {
		ff.prepare(s)
	}
	ff.sessions = append(ff.sessions, s)
	return s
}

func (ff *fakeFactory) last() *fakeSession {
	if len(ff.sessions) == 0 {
		return nil
	}
	return ff.sessions[len(ff.sessions)-1]
}
