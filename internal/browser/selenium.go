package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/insajin/appeyes/internal/geometry"
	"github.com/insajin/appeyes/internal/selector"
	"github.com/tebeka/selenium"
)

// 컴파일 타임 인터페이스 구현 확인
var _ Driver = (*SeleniumDriver)(nil)

// SeleniumDriver adapts a WebDriver session to Driver.
type SeleniumDriver struct {
	wd selenium.WebDriver
}

// NewSeleniumDriver wraps an existing WebDriver session.
func NewSeleniumDriver(wd selenium.WebDriver) *SeleniumDriver {
	return &SeleniumDriver{wd: wd}
}

// DialSelenium starts a new session on the remote WebDriver server.
func DialSelenium(remoteURL, browserName string, headless bool) (*SeleniumDriver, error) {
	caps := capabilitiesFor(browserName, headless)
	wd, err := selenium.NewRemote(caps, remoteURL)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s session on %s: %w", caps["browserName"], remoteURL, err)
	}
	return NewSeleniumDriver(wd), nil
}

// FindElement resolves an element with the kind's WebDriver locator strategy.
func (d *SeleniumDriver) FindElement(ctx context.Context, kind selector.Kind, value string) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	el, err := d.wd.FindElement(kind.By(), value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q: %v", ErrElementNotFound, kind, value, err)
	}
	return &seleniumElement{el: el}, nil
}

// Screenshot captures the viewport.
func (d *SeleniumDriver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := d.wd.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// FullPageScreenshot temporarily grows the viewport to the document size,
// captures, and restores the previous viewport.
func (d *SeleniumDriver) FullPageScreenshot(ctx context.Context) ([]byte, error) {
	original, err := d.ViewportSize(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := documentSize(ctx, d)
	if err != nil {
		return nil, err
	}
	if doc.Width <= original.Width && doc.Height <= original.Height {
		return d.Screenshot(ctx)
	}

	if err := d.SetViewportSize(ctx, geometry.Size{Width: max(doc.Width, original.Width), Height: max(doc.Height, original.Height)}); err != nil {
		return nil, fmt.Errorf("failed to grow viewport for full page screenshot: %w", err)
	}
	defer func() {
		_ = d.SetViewportSize(context.WithoutCancel(ctx), original)
	}()

	return d.Screenshot(ctx)
}

// ExecuteScript runs script through the WebDriver execute endpoint.
func (d *SeleniumDriver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if args == nil {
		args = []interface{}{}
	}
	return d.wd.ExecuteScript(script, args)
}

// ViewportSize returns the inner window size.
func (d *SeleniumDriver) ViewportSize(ctx context.Context) (geometry.Size, error) {
	return viewportSize(ctx, d)
}

// SetViewportSize resizes the outer window so the inner viewport matches
// size, compensating for the browser chrome.
func (d *SeleniumDriver) SetViewportSize(ctx context.Context, size geometry.Size) error {
	handle, err := d.wd.CurrentWindowHandle()
	if err != nil {
		return fmt.Errorf("failed to get window handle: %w", err)
	}

	if err := d.wd.ResizeWindow(handle, size.Width, size.Height); err != nil {
		return fmt.Errorf("failed to resize window: %w", err)
	}
	actual, err := d.ViewportSize(ctx)
	if err != nil {
		return err
	}
	if actual == size {
		return nil
	}

	// 창 크롬(툴바, 스크롤바) 크기만큼 보정
	outerW := size.Width + (size.Width - actual.Width)
	outerH := size.Height + (size.Height - actual.Height)
	if err := d.wd.ResizeWindow(handle, outerW, outerH); err != nil {
		return fmt.Errorf("failed to resize window: %w", err)
	}
	actual, err = d.ViewportSize(ctx)
	if err != nil {
		return err
	}
	if actual != size {
		return fmt.Errorf("failed to set viewport size to %s (got %s)", size, actual)
	}
	return nil
}

// ScrollPosition returns the document scroll offset.
func (d *SeleniumDriver) ScrollPosition(ctx context.Context) (geometry.Point, error) {
	return scrollPosition(ctx, d)
}

// Navigate loads url in the current window.
func (d *SeleniumDriver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.wd.Get(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// Title returns the page title.
func (d *SeleniumDriver) Title(ctx context.Context) (string, error) {
	return d.wd.Title()
}

// CurrentURL returns the page URL.
func (d *SeleniumDriver) CurrentURL(ctx context.Context) (string, error) {
	return d.wd.CurrentURL()
}

// UserAgent returns the browser user agent string.
func (d *SeleniumDriver) UserAgent(ctx context.Context) (string, error) {
	return userAgent(ctx, d)
}

// Close ends the WebDriver session.
func (d *SeleniumDriver) Close() error {
	return d.wd.Quit()
}

type seleniumElement struct {
	el selenium.WebElement
}

func (e *seleniumElement) Location(ctx context.Context) (geometry.Point, error) {
	p, err := e.el.Location()
	if err != nil {
		return geometry.Point{}, err
	}
	return geometry.Point{X: p.X, Y: p.Y}, nil
}

func (e *seleniumElement) Size(ctx context.Context) (geometry.Size, error) {
	s, err := e.el.Size()
	if err != nil {
		return geometry.Size{}, err
	}
	return geometry.Size{Width: s.Width, Height: s.Height}, nil
}

// browserAliases maps the short browser names suites use to WebDriver browser names.
var browserAliases = map[string]string{
	"gc":              "chrome",
	"chrome":          "chrome",
	"googlechrome":    "chrome",
	"headlesschrome":  "chrome",
	"ff":              "firefox",
	"firefox":         "firefox",
	"headlessfirefox": "firefox",
	"edge":            "MicrosoftEdge",
	"safari":          "safari",
}

// normalizeBrowserName resolves an alias; unknown names pass through unchanged.
func normalizeBrowserName(name string) string {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
	if key == "" {
		return "chrome"
	}
	if resolved, ok := browserAliases[key]; ok {
		return resolved
	}
	return name
}

func capabilitiesFor(browserName string, headless bool) selenium.Capabilities {
	lower := strings.ToLower(browserName)
	headless = headless || strings.HasPrefix(lower, "headless")
	name := normalizeBrowserName(browserName)

	caps := selenium.Capabilities{"browserName": name}
	switch name {
	case "chrome":
		args := []string{"--disable-gpu", "--no-first-run", "--no-default-browser-check"}
		if headless {
			args = append(args, "--headless=new")
		}
		caps["goog:chromeOptions"] = map[string]interface{}{"args": args}
	case "firefox":
		if headless {
			caps["moz:firefoxOptions"] = map[string]interface{}{"args": []string{"-headless"}}
		}
	}
	return caps
}
