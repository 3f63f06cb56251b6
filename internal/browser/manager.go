package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/insajin/appeyes/internal/config"
	"github.com/rs/zerolog"
)

// 컴파일 타임 인터페이스 구현 확인
var _ Library = (*Manager)(nil)

// Opener starts a new browser of the given name.
type Opener func(ctx context.Context, browserName string) (Driver, error)

// NewOpener returns the Opener for the configured backend.
func NewOpener(cfg config.WebDriverConfig, logger zerolog.Logger) Opener {
	switch cfg.GetBackend() {
	case "chromedp":
		return func(ctx context.Context, browserName string) (Driver, error) {
			// 브라우저 프로세스 수명은 키워드 호출이 아니라 Close에 묶여야 합니다.
			d := NewChromeDriver(cfg.ViewportWidth, cfg.ViewportHeight, cfg.Headless, logger)
			if err := d.Launch(context.WithoutCancel(ctx)); err != nil {
				return nil, err
			}
			return d, nil
		}
	default:
		return func(ctx context.Context, browserName string) (Driver, error) {
			if browserName == "" {
				browserName = cfg.Browser
			}
			return DialSelenium(cfg.RemoteURL, browserName, cfg.Headless)
		}
	}
}

// openBrowser is one browser opened through the Manager.
type openBrowser struct {
	index    int
	alias    string
	name     string
	driver   Driver
	openedAt time.Time
}

// Manager is the browser library used by suites: it opens, switches and
// closes browsers and lends the current one to the visual keywords.
type Manager struct {
	open     Opener
	logger   zerolog.Logger
	browsers map[int]*openBrowser
	nextID   int
	current  int
	mu       sync.Mutex
}

// NewManager creates a Manager that starts browsers with open.
func NewManager(open Opener, logger zerolog.Logger) *Manager {
	return &Manager{
		open:     open,
		logger:   logger.With().Str("component", "browser").Logger(),
		browsers: make(map[int]*openBrowser),
		nextID:   1,
	}
}

// OpenBrowser starts a browser, navigates to url when given, makes it current
// and returns its index.
func (m *Manager) OpenBrowser(ctx context.Context, url, browserName, alias string) (int, error) {
	d, err := m.open(ctx, browserName)
	if err != nil {
		return 0, fmt.Errorf("failed to open browser: %w", err)
	}

	if url != "" {
		if err := d.Navigate(ctx, url); err != nil {
			_ = d.Close()
			return 0, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b := &openBrowser{
		index:    m.nextID,
		alias:    alias,
		name:     browserName,
		driver:   d,
		openedAt: time.Now(),
	}
	m.browsers[b.index] = b
	m.current = b.index
	m.nextID++

	m.logger.Info().
		Int("index", b.index).
		Str("browser", browserName).
		Str("url", url).
		Msg("browser opened")

	return b.index, nil
}

// SwitchBrowser makes the browser with the given index or alias current.
// When several open browsers share an alias, the most recently opened wins.
func (m *Manager) SwitchBrowser(indexOrAlias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	match := 0
	for _, b := range m.browsers {
		if b.alias != "" && b.alias == indexOrAlias && b.index > match {
			match = b.index
		}
	}
	if match != 0 {
		m.current = match
		return nil
	}
	if idx, err := strconv.Atoi(indexOrAlias); err == nil {
		if _, ok := m.browsers[idx]; ok {
			m.current = idx
			return nil
		}
	}
	return fmt.Errorf("no browser with index or alias %q", indexOrAlias)
}

// CurrentBrowser returns the current browser.
func (m *Manager) CurrentBrowser() (Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.browsers[m.current]
	if !ok {
		return nil, ErrNoBrowserOpen
	}
	return b.driver, nil
}

// CloseBrowser closes the current browser. It is a no-op when none is open.
func (m *Manager) CloseBrowser() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.browsers[m.current]
	if !ok {
		return nil
	}
	delete(m.browsers, b.index)
	m.current = 0

	if err := b.driver.Close(); err != nil {
		return fmt.Errorf("failed to close browser %d: %w", b.index, err)
	}
	m.logger.Info().Int("index", b.index).Msg("browser closed")
	return nil
}

// CloseAllBrowsers closes every open browser and resets indexes.
func (m *Manager) CloseAllBrowsers() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for id, b := range m.browsers {
		if err := b.driver.Close(); err != nil {
			m.logger.Warn().Err(err).Int("index", id).Msg("failed to close browser")
			errs = append(errs, err)
		}
		delete(m.browsers, id)
	}
	m.current = 0
	m.nextID = 1
	return errors.Join(errs...)
}

// OpenCount returns the number of open browsers.
func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.browsers)
}
