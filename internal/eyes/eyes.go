// Package eyes is a client for the visual-testing service: it captures
// checkpoints from a browser.Driver and submits them to a running session.
package eyes

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/insajin/appeyes/internal/browser"
	"github.com/insajin/appeyes/internal/config"
	"github.com/insajin/appeyes/internal/geometry"
	"github.com/insajin/appeyes/internal/metrics"
	"github.com/insajin/appeyes/internal/selector"
	"github.com/rs/zerolog"
)

// AgentID identifies this client to the server.
const AgentID = "appeyes.go/1.0"

// Configuration holds the session settings applied on Open.
type Configuration struct {
	APIKey    string
	ServerURL string

	HostOS  string
	HostApp string

	MatchLevel       MatchLevel
	BaselineName     string
	BranchName       string
	ParentBranchName string
	Batch            *BatchInfo

	MatchTimeout   time.Duration
	RetryInterval  time.Duration
	RequestTimeout time.Duration

	ForceFullPage  bool
	HideScrollbars bool

	SaveNewTests    bool
	SaveFailedTests bool
}

// NewConfiguration builds a Configuration from the eyes config section.
// An unparseable match level falls back to Strict; config validation
// reports it earlier.
func NewConfiguration(cfg config.EyesConfig) Configuration {
	level, err := ParseMatchLevel(cfg.MatchLevel)
	if err != nil {
		level = MatchStrict
	}
	return Configuration{
		APIKey:          cfg.GetAPIKey(),
		ServerURL:       cfg.GetServerURL(),
		MatchLevel:      level,
		MatchTimeout:    cfg.GetMatchTimeout(),
		RetryInterval:   cfg.GetRetryInterval(),
		RequestTimeout:  cfg.GetRequestTimeout(),
		SaveNewTests:    cfg.SaveNewTests,
		SaveFailedTests: cfg.SaveFailedTests,
	}
}

// lazyRegion is an element region resolved at capture time.
type lazyRegion struct {
	kind  selector.Kind
	value string
}

type lazyFloating struct {
	lazyRegion
	left, up, right, down int
}

// Option configures an Eyes client.
type Option func(*Eyes)

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Eyes) { e.logger = logger }
}

// WithMetrics records session and match counters into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Eyes) { e.metrics = m }
}

// Eyes runs one visual-testing session at a time.
type Eyes struct {
	cfg     Configuration
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	conn     *Connector
	driver   browser.Driver
	session  *RunningSession
	app      string
	test     string
	viewport geometry.Size
	ignore   []lazyRegion
	floating []lazyFloating
}

// New creates a client. The connector is created on Open so that
// configuration changes made before Open take effect.
func New(cfg Configuration, opts ...Option) *Eyes {
	if cfg.ServerURL == "" {
		cfg.ServerURL = config.DefaultServerURL
	}
	if cfg.MatchLevel == "" {
		cfg.MatchLevel = MatchStrict
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Minute
	}
	e := &Eyes{cfg: cfg, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Configuration returns a copy of the current configuration.
func (e *Eyes) Configuration() Configuration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SetLogger replaces the client logger.
func (e *Eyes) SetLogger(logger zerolog.Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger = logger
	if e.conn != nil {
		e.conn.logger = logger.With().Str("component", "connector").Logger()
	}
}

// SetForceFullPage toggles full-page capture for window checks.
func (e *Eyes) SetForceFullPage(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.ForceFullPage = on
}

// IsOpen reports whether a session is running.
func (e *Eyes) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil
}

// Open starts a session for app/test on driver. A non-nil viewport is
// applied to the browser first and reported as the display size.
func (e *Eyes) Open(ctx context.Context, driver browser.Driver, app, test string, viewport *geometry.Size) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		return ErrAlreadyOpen
	}
	if e.cfg.APIKey == "" {
		return errors.New("API key is required to open an eyes session")
	}

	var display geometry.Size
	if viewport != nil {
		if err := driver.SetViewportSize(ctx, *viewport); err != nil {
			return fmt.Errorf("failed to set viewport size: %w", err)
		}
		display = *viewport
	} else {
		size, err := driver.ViewportSize(ctx)
		if err != nil {
			return err
		}
		display = size
	}

	env := AppEnvironment{
		OS:          e.cfg.HostOS,
		HostingApp:  e.cfg.HostApp,
		DisplaySize: display,
	}
	if ua, err := driver.UserAgent(ctx); err == nil && ua != "" {
		env.Inferred = "useragent:" + ua
	}

	info := &SessionStartInfo{
		AgentID:          AgentID,
		AppIDOrName:      app,
		ScenarioIDOrName: test,
		BatchInfo:        e.cfg.Batch,
		BaselineEnvName:  e.cfg.BaselineName,
		Environment:      env,
		DefaultMatchSettings: ImageMatchSettings{
			MatchLevel: e.cfg.MatchLevel,
		},
		BranchName:       e.cfg.BranchName,
		ParentBranchName: e.cfg.ParentBranchName,
	}
	if info.BatchInfo == nil {
		info.BatchInfo = &BatchInfo{ID: uuid.New().String(), Name: test, StartedAt: time.Now().UTC()}
	}

	conn := NewConnector(e.cfg.ServerURL, e.cfg.APIKey, e.cfg.RequestTimeout, e.logger)
	session, err := conn.StartSession(ctx, info)
	if err != nil {
		return err
	}

	e.conn = conn
	e.driver = driver
	e.session = session
	e.app, e.test = app, test
	e.viewport = display
	e.ignore, e.floating = nil, nil
	if e.metrics != nil {
		e.metrics.SessionsOpened.Add(1)
	}

	e.logger.Info().
		Str("app", app).
		Str("test", test).
		Str("viewport", display.String()).
		Str("session", session.ID).
		Bool("new", session.IsNew).
		Msg("eyes session opened")
	return nil
}

// AddIgnoreRegionBySelector excludes the element's region from the next
// checkpoint. The element is located when the checkpoint is captured.
func (e *Eyes) AddIgnoreRegionBySelector(kind selector.Kind, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ErrNotOpen
	}
	e.ignore = append(e.ignore, lazyRegion{kind: kind, value: value})
	return nil
}

// AddFloatingRegionBySelector lets the element's region move by up to the
// given offsets in the next checkpoint.
func (e *Eyes) AddFloatingRegionBySelector(kind selector.Kind, value string, left, up, right, down int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ErrNotOpen
	}
	e.floating = append(e.floating, lazyFloating{
		lazyRegion: lazyRegion{kind: kind, value: value},
		left:       left,
		up:         up,
		right:      right,
		down:       down,
	})
	return nil
}

// CheckWindow submits the viewport, or the whole page when full-page
// capture is on.
func (e *Eyes) CheckWindow(ctx context.Context, tag string) (bool, error) {
	return e.check(ctx, tag, nil)
}

// CheckRegion submits a fixed page region.
func (e *Eyes) CheckRegion(ctx context.Context, region geometry.Region, tag string) (bool, error) {
	if region.IsEmpty() {
		return false, fmt.Errorf("region %s is empty", region)
	}
	return e.check(ctx, tag, func(context.Context, browser.Driver) (geometry.Region, error) {
		return region, nil
	})
}

// CheckRegionByElement submits the bounds of an already located element.
func (e *Eyes) CheckRegionByElement(ctx context.Context, el browser.Element, tag string) (bool, error) {
	region, err := browser.Bounds(ctx, el)
	if err != nil {
		return false, fmt.Errorf("failed to read element bounds: %w", err)
	}
	return e.CheckRegion(ctx, region, tag)
}

// CheckRegionBySelector submits the bounds of the element matching the
// selector, locating it anew on every capture attempt.
func (e *Eyes) CheckRegionBySelector(ctx context.Context, kind selector.Kind, value, tag string) (bool, error) {
	return e.check(ctx, tag, func(ctx context.Context, d browser.Driver) (geometry.Region, error) {
		return resolve(ctx, d, lazyRegion{kind: kind, value: value})
	})
}

// MatchImage submits an image that did not come from the browser.
func (e *Eyes) MatchImage(ctx context.Context, img []byte, tag string, ignoreMismatch bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return false, ErrNotOpen
	}
	data := &MatchWindowData{
		AppOutput:      AppOutput{Title: tag, Screenshot64: base64.StdEncoding.EncodeToString(img)},
		UserInputs:     []interface{}{},
		Tag:            tag,
		IgnoreMismatch: ignoreMismatch,
		Options: MatchOptions{
			Name:               tag,
			UserInputs:         []interface{}{},
			IgnoreMismatch:     ignoreMismatch,
			ImageMatchSettings: ImageMatchSettings{MatchLevel: e.cfg.MatchLevel},
		},
	}
	result, err := e.match(ctx, data)
	if err != nil {
		return false, err
	}
	if e.metrics != nil {
		e.metrics.ImagesCompared.Add(1)
	}
	return result.AsExpected, nil
}

// regionFunc locates the page region to capture; nil means the window.
type regionFunc func(ctx context.Context, d browser.Driver) (geometry.Region, error)

func (e *Eyes) check(ctx context.Context, tag string, regionOf regionFunc) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return false, ErrNotOpen
	}
	ignore, floating := e.ignore, e.floating
	e.ignore, e.floating = nil, nil

	title, _ := e.driver.Title(ctx)

	attempt := func(ignoreMismatch bool) (*MatchResult, error) {
		data, err := e.prepare(ctx, tag, title, regionOf, ignore, floating)
		if err != nil {
			return nil, err
		}
		data.IgnoreMismatch = ignoreMismatch
		data.Options.IgnoreMismatch = ignoreMismatch
		return e.match(ctx, data)
	}

	if e.cfg.MatchTimeout > 0 {
		deadline := time.Now().Add(e.cfg.MatchTimeout)
		for time.Now().Add(e.cfg.RetryInterval).Before(deadline) {
			result, err := attempt(true)
			if err != nil {
				return false, err
			}
			if result.AsExpected {
				return true, nil
			}
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(e.cfg.RetryInterval):
			}
		}
	}

	result, err := attempt(false)
	if err != nil {
		return false, err
	}
	if !result.AsExpected {
		e.logger.Warn().Str("tag", tag).Str("test", e.test).Msg("checkpoint mismatch")
	}
	return result.AsExpected, nil
}

// prepare captures the checkpoint and resolves the pending regions against it.
func (e *Eyes) prepare(ctx context.Context, tag, title string, regionOf regionFunc, ignore []lazyRegion, floating []lazyFloating) (*MatchWindowData, error) {
	if e.cfg.HideScrollbars {
		orig, err := e.driver.ExecuteScript(ctx, hideScrollbarsScript)
		if err != nil {
			return nil, fmt.Errorf("failed to hide scrollbars: %w", err)
		}
		overflow, _ := orig.(string)
		defer func() {
			_, _ = e.driver.ExecuteScript(context.WithoutCancel(ctx), restoreScrollbarsScript, overflow)
		}()
	}

	var (
		c   *capture
		err error
	)
	if regionOf == nil {
		c, err = captureWindow(ctx, e.driver, e.cfg.ForceFullPage)
	} else {
		var region geometry.Region
		if region, err = regionOf(ctx, e.driver); err != nil {
			return nil, err
		}
		c, err = captureRegion(ctx, e.driver, region, e.cfg.ForceFullPage)
	}
	if err != nil {
		return nil, err
	}

	settings := ImageMatchSettings{MatchLevel: e.cfg.MatchLevel}
	var ignored []geometry.Region
	for _, lr := range ignore {
		r, err := resolve(ctx, e.driver, lr)
		if err != nil {
			return nil, err
		}
		ignored = append(ignored, r)
	}
	settings.Ignore = c.relativeTo(ignored)

	var floats []geometry.FloatingRegion
	for _, lf := range floating {
		r, err := resolve(ctx, e.driver, lf.lazyRegion)
		if err != nil {
			return nil, err
		}
		floats = append(floats, geometry.FloatingRegion{
			Region:   r,
			MaxUp:    lf.up,
			MaxDown:  lf.down,
			MaxLeft:  lf.left,
			MaxRight: lf.right,
		})
	}
	settings.Floating = c.floatingRelativeTo(floats)

	return &MatchWindowData{
		AppOutput:  AppOutput{Title: title, Screenshot64: base64.StdEncoding.EncodeToString(c.png)},
		UserInputs: []interface{}{},
		Tag:        tag,
		Options: MatchOptions{
			Name:               tag,
			UserInputs:         []interface{}{},
			ImageMatchSettings: settings,
		},
	}, nil
}

func (e *Eyes) match(ctx context.Context, data *MatchWindowData) (*MatchResult, error) {
	start := time.Now()
	result, err := e.conn.MatchWindow(ctx, e.session, data)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordMatch(time.Since(start), result.AsExpected)
	return result, nil
}

func resolve(ctx context.Context, d browser.Driver, lr lazyRegion) (geometry.Region, error) {
	el, err := d.FindElement(ctx, lr.kind, lr.value)
	if err != nil {
		return geometry.Region{}, err
	}
	return browser.Bounds(ctx, el)
}

// Close ends the session. It returns the results together with a
// *NewTestError for a new baseline or a *TestFailedError when steps
// mismatched or were missing.
func (e *Eyes) Close(ctx context.Context) (*TestResults, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, ErrNotOpen
	}
	session := e.session
	updateBaseline := (session.IsNew && e.cfg.SaveNewTests) || (!session.IsNew && e.cfg.SaveFailedTests)

	results, err := e.conn.StopSession(ctx, session, false, updateBaseline)
	if err != nil {
		// The session stays open so AbortIfNotClosed can still end it.
		return nil, err
	}
	e.reset()
	if e.metrics != nil {
		e.metrics.SessionsClosed.Add(1)
		if results.IsNew {
			e.metrics.NewBaselines.Add(1)
		}
	}

	log := e.logger.Info()
	if !results.IsPassed() {
		log = e.logger.Warn()
	}
	log.Str("test", e.test).
		Int("steps", results.Steps).
		Int("matches", results.Matches).
		Int("mismatches", results.Mismatches).
		Int("missing", results.Missing).
		Bool("new", results.IsNew).
		Str("url", results.URL).
		Msg("eyes session closed")

	switch {
	case results.IsNew:
		return results, &NewTestError{Test: e.test, App: e.app, Results: results}
	case results.Mismatches > 0 || results.Missing > 0:
		return results, &TestFailedError{Test: e.test, App: e.app, Results: results}
	}
	return results, nil
}

// AbortIfNotClosed aborts a running session. It does nothing when no
// session is open.
func (e *Eyes) AbortIfNotClosed(ctx context.Context) (*TestResults, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, nil
	}
	session := e.session
	results, err := e.conn.StopSession(ctx, session, true, false)
	e.reset()
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.SessionsAborted.Add(1)
	}
	e.logger.Info().Str("test", e.test).Str("session", session.ID).Msg("eyes session aborted")
	return results, nil
}

// reset drops the running session; app and test names are kept for
// error messages.
func (e *Eyes) reset() {
	e.session = nil
	e.driver = nil
	e.ignore, e.floating = nil, nil
}
