package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/insajin/appeyes/internal/geometry"
	"github.com/insajin/appeyes/internal/selector"
	"github.com/rs/zerolog"
)

// 컴파일 타임 인터페이스 구현 확인
var _ Driver = (*ChromeDriver)(nil)

// ChromeDriver drives a local Chrome instance over the DevTools protocol.
type ChromeDriver struct {
	viewportW int
	viewportH int
	headless  bool
	logger    zerolog.Logger

	// allocCtx and allocCancel control the browser process lifecycle.
	allocCtx    context.Context
	allocCancel context.CancelFunc

	// taskCtx and taskCancel control the browser tab/target lifecycle.
	taskCtx    context.Context
	taskCancel context.CancelFunc

	active bool
	mu     sync.Mutex
}

// NewChromeDriver creates a ChromeDriver with the given initial viewport.
// Zero dimensions fall back to 1280x720.
func NewChromeDriver(viewportW, viewportH int, headless bool, logger zerolog.Logger) *ChromeDriver {
	if viewportW <= 0 {
		viewportW = 1280
	}
	if viewportH <= 0 {
		viewportH = 720
	}
	return &ChromeDriver{
		viewportW: viewportW,
		viewportH: viewportH,
		headless:  headless,
		logger:    logger.With().Str("component", "chromedp").Logger(),
	}
}

// Launch starts Chrome and opens a blank tab.
func (d *ChromeDriver) Launch(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return fmt.Errorf("browser is already launched")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(d.viewportW, d.viewportH),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("hide-scrollbars", false),
	)

	if d.headless {
		opts = append(opts, chromedp.Headless)
	} else {
		// Remove the default headless flag for headed mode.
		opts = append(opts, chromedp.Flag("headless", false))
	}

	d.allocCtx, d.allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	d.taskCtx, d.taskCancel = chromedp.NewContext(d.allocCtx)

	// Navigate to about:blank to ensure the browser is fully started.
	if err := chromedp.Run(d.taskCtx, chromedp.Navigate("about:blank")); err != nil {
		d.taskCancel()
		d.allocCancel()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	if err := chromedp.Run(d.taskCtx, chromedp.EmulateViewport(int64(d.viewportW), int64(d.viewportH))); err != nil {
		d.logger.Warn().Err(err).Msg("failed to set viewport")
	}

	d.active = true
	d.logger.Info().
		Int("width", d.viewportW).
		Int("height", d.viewportH).
		Bool("headless", d.headless).
		Msg("browser launched")

	return nil
}

// Close terminates the browser process and releases resources.
func (d *ChromeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}
	d.active = false

	// Cancel contexts in reverse order.
	if d.taskCancel != nil {
		d.taskCancel()
	}
	if d.allocCancel != nil {
		d.allocCancel()
	}

	d.logger.Info().Msg("browser closed")
	return nil
}

// IsActive returns whether the browser is currently running.
func (d *ChromeDriver) IsActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// run executes actions on the tab. ctx cancellation aborts the wait but not the tab.
func (d *ChromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	d.mu.Lock()
	active, taskCtx := d.active, d.taskCtx
	d.mu.Unlock()

	if !active {
		return fmt.Errorf("browser is not active")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(taskCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// FindElement checks that the selector matches and returns a handle that
// re-measures the element on each call.
func (d *ChromeDriver) FindElement(ctx context.Context, kind selector.Kind, value string) (Element, error) {
	lookup, err := elementLookupJS(kind, value)
	if err != nil {
		return nil, err
	}
	el := &chromeElement{driver: d, kind: kind, value: value, lookup: lookup}
	if _, err := el.rect(ctx); err != nil {
		return nil, err
	}
	return el, nil
}

// Screenshot captures the viewport as PNG.
func (d *ChromeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// FullPageScreenshot captures the entire document as PNG (quality 100 selects PNG).
func (d *ChromeDriver) FullPageScreenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("failed to capture full page screenshot: %w", err)
	}
	return buf, nil
}

// ExecuteScript evaluates script as a function body with args bound to arguments.
func (d *ChromeDriver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	if args == nil {
		args = []interface{}{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode script arguments: %w", err)
	}
	expr := fmt.Sprintf("(function(){ var r = (function(){ %s }).apply(null, %s); return r === undefined ? null : r; })()", script, encoded)

	var res interface{}
	if err := d.run(ctx, chromedp.Evaluate(expr, &res)); err != nil {
		return nil, fmt.Errorf("failed to execute script: %w", err)
	}
	return res, nil
}

// ViewportSize returns the inner window size.
func (d *ChromeDriver) ViewportSize(ctx context.Context) (geometry.Size, error) {
	return viewportSize(ctx, d)
}

// SetViewportSize emulates a viewport of the given size.
func (d *ChromeDriver) SetViewportSize(ctx context.Context, size geometry.Size) error {
	if err := d.run(ctx, chromedp.EmulateViewport(int64(size.Width), int64(size.Height))); err != nil {
		return fmt.Errorf("failed to set viewport to %s: %w", size, err)
	}
	d.mu.Lock()
	d.viewportW, d.viewportH = size.Width, size.Height
	d.mu.Unlock()
	return nil
}

// ScrollPosition returns the document scroll offset.
func (d *ChromeDriver) ScrollPosition(ctx context.Context) (geometry.Point, error) {
	return scrollPosition(ctx, d)
}

// Navigate navigates the tab to url.
func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// Title returns the page title.
func (d *ChromeDriver) Title(ctx context.Context) (string, error) {
	var title string
	if err := d.run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// CurrentURL returns the page URL.
func (d *ChromeDriver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := d.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// UserAgent returns the browser user agent string.
func (d *ChromeDriver) UserAgent(ctx context.Context) (string, error) {
	return userAgent(ctx, d)
}

type chromeElement struct {
	driver *ChromeDriver
	kind   selector.Kind
	value  string
	lookup string
}

type jsRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (e *chromeElement) rect(ctx context.Context) (geometry.Region, error) {
	expr := fmt.Sprintf(`(function(){
  var el = %s;
  if (!el) { return null; }
  var r = el.getBoundingClientRect();
  return {x: r.left + window.pageXOffset, y: r.top + window.pageYOffset, width: r.width, height: r.height};
})()`, e.lookup)

	var r *jsRect
	if err := e.driver.run(ctx, chromedp.Evaluate(expr, &r)); err != nil {
		return geometry.Region{}, fmt.Errorf("failed to locate %s=%q: %w", e.kind, e.value, err)
	}
	if r == nil {
		return geometry.Region{}, fmt.Errorf("%w: %s=%q", ErrElementNotFound, e.kind, e.value)
	}
	return geometry.Region{
		Left:   int(r.X + 0.5),
		Top:    int(r.Y + 0.5),
		Width:  int(r.Width + 0.5),
		Height: int(r.Height + 0.5),
	}, nil
}

func (e *chromeElement) Location(ctx context.Context) (geometry.Point, error) {
	r, err := e.rect(ctx)
	if err != nil {
		return geometry.Point{}, err
	}
	return r.Location(), nil
}

func (e *chromeElement) Size(ctx context.Context) (geometry.Size, error) {
	r, err := e.rect(ctx)
	if err != nil {
		return geometry.Size{}, err
	}
	return r.Size(), nil
}

// elementLookupJS returns a JS expression evaluating to the first element
// matching the selector, or a falsy value.
func elementLookupJS(kind selector.Kind, value string) (string, error) {
	quoted, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	v := string(quoted)

	switch kind {
	case selector.CSSSelector:
		return fmt.Sprintf("document.querySelector(%s)", v), nil
	case selector.XPath:
		return fmt.Sprintf("document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue", v), nil
	case selector.ID:
		return fmt.Sprintf("document.getElementById(%s)", v), nil
	case selector.ClassName:
		return fmt.Sprintf("document.getElementsByClassName(%s)[0]", v), nil
	case selector.Name:
		return fmt.Sprintf("document.getElementsByName(%s)[0]", v), nil
	case selector.TagName:
		return fmt.Sprintf("document.getElementsByTagName(%s)[0]", v), nil
	case selector.LinkText:
		return fmt.Sprintf("Array.from(document.querySelectorAll('a')).find(function(a){ return a.textContent.trim() === %s; })", v), nil
	case selector.PartialLinkText:
		return fmt.Sprintf("Array.from(document.querySelectorAll('a')).find(function(a){ return a.textContent.indexOf(%s) !== -1; })", v), nil
	default:
		return "", fmt.Errorf("unsupported selector kind %v", kind)
	}
}
