// Package keywords exposes the visual-checkpoint keywords used by suites.
//
// A Library owns one session context: the driver borrowed from a browser
// library and the visual session opened on it. Keyword calls against the
// same Library are serialised; separate Libraries are independent.
package keywords

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/insajin/appeyes/internal/browser"
	"github.com/insajin/appeyes/internal/config"
	"github.com/insajin/appeyes/internal/eyes"
	"github.com/insajin/appeyes/internal/geometry"
	"github.com/insajin/appeyes/internal/logger"
	"github.com/insajin/appeyes/internal/metrics"
	"github.com/insajin/appeyes/internal/selector"
	"github.com/rs/zerolog"
)

// ErrSessionNotOpen is returned by check and compare keywords before
// Open Eyes Session.
var ErrSessionNotOpen = errors.New("no eyes session is open: run Open Eyes Session first")

// VisualSession is the visual-testing client a Library drives.
// *eyes.Eyes implements it.
type VisualSession interface {
	Open(ctx context.Context, driver browser.Driver, app, test string, viewport *geometry.Size) error
	SetLogger(logger zerolog.Logger)
	SetForceFullPage(on bool)
	CheckWindow(ctx context.Context, tag string) (bool, error)
	CheckRegion(ctx context.Context, region geometry.Region, tag string) (bool, error)
	CheckRegionByElement(ctx context.Context, el browser.Element, tag string) (bool, error)
	CheckRegionBySelector(ctx context.Context, kind selector.Kind, value, tag string) (bool, error)
	AddIgnoreRegionBySelector(kind selector.Kind, value string) error
	AddFloatingRegionBySelector(kind selector.Kind, value string, left, up, right, down int) error
	MatchImage(ctx context.Context, img []byte, tag string, ignoreMismatch bool) (bool, error)
	Close(ctx context.Context) (*eyes.TestResults, error)
	AbortIfNotClosed(ctx context.Context) (*eyes.TestResults, error)
	IsOpen() bool
}

var _ VisualSession = (*eyes.Eyes)(nil)

// SessionFactory creates an unopened visual session.
type SessionFactory func(cfg eyes.Configuration, logger zerolog.Logger, m *metrics.Metrics) VisualSession

// NewEyesSession is the default SessionFactory.
func NewEyesSession(cfg eyes.Configuration, logger zerolog.Logger, m *metrics.Metrics) VisualSession {
	return eyes.New(cfg, eyes.WithLogger(logger), eyes.WithMetrics(m))
}

// OpenOptions are the arguments of Open Eyes Session.
type OpenOptions struct {
	URL      string
	AppName  string
	TestName string
	// APIKey overrides the key from configuration when set.
	APIKey string
	// ServerURL overrides the server from configuration when set.
	ServerURL string
	// Viewport is applied to the browser before the session starts.
	Viewport *geometry.Size

	OSName      string
	BrowserName string
	MatchLevel  string

	BaselineName     string
	BatchName        string
	BatchFromEnv     bool
	BranchName       string
	ParentBranchName string

	// MatchTimeout overrides the configured match timeout when positive.
	MatchTimeout   time.Duration
	ForceFullPage  bool
	HideScrollbars bool

	IncludeEyesLog bool
	// Library names the browser library to borrow the driver from.
	Library string
}

// session is the state shared by keywords between open and close.
type session struct {
	driver browser.Driver
	eyes   VisualSession
	app    string
	test   string
	// fullPage is the window-check default set at open.
	fullPage bool
}

// Option configures a Library.
type Option func(*Library)

// WithSessionFactory replaces the visual session constructor.
func WithSessionFactory(f SessionFactory) Option {
	return func(l *Library) { l.newSession = f }
}

// WithMetrics records activity into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Library) { l.metrics = m }
}

// WithLogger sets the library logger.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Library) { l.logger = log }
}

// Library implements the visual-checkpoint keywords.
type Library struct {
	cfg        *config.Config
	browsers   *browser.Registry
	batches    *eyes.BatchRegistry
	newSession SessionFactory
	metrics    *metrics.Metrics
	logger     zerolog.Logger

	mu      sync.Mutex
	session *session
}

// NewLibrary creates a Library that borrows drivers from browsers.
func NewLibrary(cfg *config.Config, browsers *browser.Registry, opts ...Option) *Library {
	l := &Library{
		cfg:        cfg,
		browsers:   browsers,
		batches:    eyes.NewBatchRegistry(cfg.Eyes.BatchIDEnv, cfg.Eyes.BatchNameEnv),
		newSession: NewEyesSession,
		logger:     logger.WithComponent("keywords"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Metrics returns the metrics the library records into, or nil.
func (l *Library) Metrics() *metrics.Metrics {
	return l.metrics
}

func (l *Library) eyesLogger(enabled bool) zerolog.Logger {
	return logger.EyesLogger(l.logger, enabled)
}

// current returns the open session with the include-eyes-log flag applied.
// Callers hold l.mu.
func (l *Library) current(includeEyesLog bool) (*session, error) {
	if l.session == nil {
		return nil, ErrSessionNotOpen
	}
	l.session.eyes.SetLogger(l.eyesLogger(includeEyesLog))
	return l.session, nil
}

// OpenEyesSession borrows the current browser and starts a visual session
// on it. A session left open by an earlier test is aborted first.
func (l *Library) OpenEyesSession(ctx context.Context, opts OpenOptions) error {
	level, err := eyes.ParseMatchLevel(opts.MatchLevel)
	if err != nil {
		return &ArgumentError{Keyword: "Open Eyes Session", Argument: "matchlevel", Value: opts.MatchLevel, Err: err}
	}
	if opts.Viewport != nil && opts.Viewport.IsEmpty() {
		return &ArgumentError{Keyword: "Open Eyes Session", Argument: "width/height", Value: opts.Viewport.String(), Err: errors.New("viewport must be positive")}
	}

	libraryName := opts.Library
	if libraryName == "" {
		libraryName = l.cfg.WebDriver.GetLibraryName()
	}
	driver, err := l.browsers.CurrentBrowser(libraryName)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session != nil {
		prev := l.session
		l.session = nil
		if prev.eyes.IsOpen() {
			l.logger.Warn().Str("test", prev.test).Msg("aborting eyes session left open by a previous test")
			if _, err := prev.eyes.AbortIfNotClosed(ctx); err != nil {
				l.logger.Warn().Err(err).Str("test", prev.test).Msg("failed to abort previous eyes session")
			}
		}
	}

	conf := eyes.NewConfiguration(l.cfg.Eyes)
	if opts.APIKey != "" {
		conf.APIKey = opts.APIKey
	}
	if opts.ServerURL != "" {
		conf.ServerURL = opts.ServerURL
	}
	conf.HostOS = opts.OSName
	conf.HostApp = opts.BrowserName
	if opts.MatchLevel != "" {
		conf.MatchLevel = level
	}
	conf.BaselineName = opts.BaselineName
	conf.BranchName = opts.BranchName
	conf.ParentBranchName = opts.ParentBranchName
	conf.Batch = l.batches.Get(opts.BatchName, opts.BatchFromEnv)
	if opts.MatchTimeout > 0 {
		conf.MatchTimeout = opts.MatchTimeout
	}
	conf.ForceFullPage = opts.ForceFullPage
	conf.HideScrollbars = opts.HideScrollbars

	vs := l.newSession(conf, l.eyesLogger(opts.IncludeEyesLog), l.metrics)
	if err := vs.Open(ctx, driver, opts.AppName, opts.TestName, opts.Viewport); err != nil {
		return fmt.Errorf("failed to open eyes session: %w", err)
	}
	l.session = &session{
		driver:   driver,
		eyes:     vs,
		app:      opts.AppName,
		test:     opts.TestName,
		fullPage: opts.ForceFullPage,
	}

	if opts.URL != "" {
		if err := driver.Navigate(ctx, opts.URL); err != nil {
			return err
		}
	}

	l.logger.Info().
		Str("app", opts.AppName).
		Str("test", opts.TestName).
		Str("library", libraryName).
		Msg("eyes session opened")
	return nil
}

// CheckEyesWindow captures the window, or the whole page with
// forceFullPage or when the session was opened with ForceFullPage, as a
// checkpoint named name.
func (l *Library) CheckEyesWindow(ctx context.Context, name string, forceFullPage, includeEyesLog bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.current(includeEyesLog)
	if err != nil {
		return err
	}
	s.eyes.SetForceFullPage(forceFullPage || s.fullPage)
	_, err = s.eyes.CheckWindow(ctx, name)
	return err
}

// CheckEyesRegion checks the width x height region whose top-left corner
// is the location of the element at xpath.
func (l *Library) CheckEyesRegion(ctx context.Context, xpath string, width, height int, name string, includeEyesLog bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.current(includeEyesLog)
	if err != nil {
		return err
	}
	el, err := s.driver.FindElement(ctx, selector.XPath, xpath)
	if err != nil {
		return err
	}
	loc, err := el.Location(ctx)
	if err != nil {
		return fmt.Errorf("failed to read element location: %w", err)
	}
	region := geometry.NewRegion(loc, geometry.Size{Width: width, Height: height})
	_, err = s.eyes.CheckRegion(ctx, region, name)
	return err
}

// CheckEyesRegionByElement locates the element now and checks its bounds.
// Only XPATH, ID, CLASS NAME and CSS SELECTOR are accepted.
func (l *Library) CheckEyesRegionByElement(ctx context.Context, kind, value, name string, includeEyesLog bool) error {
	k, err := selector.Parse(kind, selector.ElementKinds)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.current(includeEyesLog)
	if err != nil {
		return err
	}
	el, err := s.driver.FindElement(ctx, k, value)
	if err != nil {
		return err
	}
	_, err = s.eyes.CheckRegionByElement(ctx, el, name)
	return err
}

// CheckEyesRegionBySelector checks the bounds of the element matching the
// selector, located by the visual client at capture time.
func (l *Library) CheckEyesRegionBySelector(ctx context.Context, kind, value, name string, includeEyesLog bool) error {
	k, err := selector.Parse(kind, selector.LocatorKinds)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.current(includeEyesLog)
	if err != nil {
		return err
	}
	_, err = s.eyes.CheckRegionBySelector(ctx, k, value, name)
	return err
}

// SelectIgnoreRegionBySelector excludes the matching element's region from
// the next checkpoint.
func (l *Library) SelectIgnoreRegionBySelector(kind, value string) error {
	k, err := selector.Parse(kind, selector.LocatorKinds)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session == nil {
		return ErrSessionNotOpen
	}
	return l.session.eyes.AddIgnoreRegionBySelector(k, value)
}

// SelectFloatingRegionBySelector lets the matching element's region move
// within the given offsets in the next checkpoint.
func (l *Library) SelectFloatingRegionBySelector(kind, value string, left, up, right, down int) error {
	k, err := selector.Parse(kind, selector.LocatorKinds)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session == nil {
		return ErrSessionNotOpen
	}
	return l.session.eyes.AddFloatingRegionBySelector(k, value, left, up, right, down)
}

// CompareImage submits the image file at path. The checkpoint is named
// imageName, or the file's base name when imageName is empty.
func (l *Library) CompareImage(ctx context.Context, path, imageName string, ignoreMismatch, includeEyesLog bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.current(includeEyesLog)
	if err != nil {
		return err
	}
	img, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	_, err = s.eyes.MatchImage(ctx, img, imageTag(path, imageName), ignoreMismatch)
	return err
}

func imageTag(path, name string) string {
	if name != "" {
		return name
	}
	return filepath.Base(path)
}

// CloseEyesSession ends the session and returns its results. It does
// nothing when no session is open. A session that failed to close is
// aborted.
func (l *Library) CloseEyesSession(ctx context.Context, includeEyesLog bool) (*eyes.TestResults, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.current(includeEyesLog)
	if errors.Is(err, ErrSessionNotOpen) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.session = nil

	results, closeErr := s.eyes.Close(ctx)
	if _, err := s.eyes.AbortIfNotClosed(ctx); err != nil {
		l.logger.Warn().Err(err).Str("test", s.test).Msg("failed to abort eyes session")
	}
	return results, closeErr
}

// AbortEyesSession ends an open session without updating the baseline.
// It does nothing when no session is open.
func (l *Library) AbortEyesSession(ctx context.Context) (*eyes.TestResults, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session == nil {
		return nil, nil
	}
	s := l.session
	l.session = nil
	l.logger.Warn().Str("test", s.test).Msg("aborting open eyes session")
	return s.eyes.AbortIfNotClosed(ctx)
}

// EyesSessionIsOpen reports whether a visual session is running.
func (l *Library) EyesSessionIsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session != nil && l.session.eyes.IsOpen()
}
