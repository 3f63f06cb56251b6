// Package browser provides the browser handles the visual checks are taken
// from: a Selenium/WebDriver backend, a local Chrome DevTools backend, and
// the named library registry the keyword facade borrows the active browser from.
package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/insajin/appeyes/internal/geometry"
	"github.com/insajin/appeyes/internal/selector"
)

var (
	// ErrNoBrowserOpen is returned when a library has no active browser.
	ErrNoBrowserOpen = errors.New("no browser is open")

	// ErrElementNotFound is returned when a selector matches nothing.
	ErrElementNotFound = errors.New("no such element")
)

// Driver is an open browser session.
type Driver interface {
	// FindElement resolves the first element matching the selector.
	FindElement(ctx context.Context, kind selector.Kind, value string) (Element, error)
	// Screenshot captures the current viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	// FullPageScreenshot captures the whole document as PNG.
	FullPageScreenshot(ctx context.Context) ([]byte, error)
	// ExecuteScript runs a function body in the page and returns its JSON-decoded result.
	ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error)
	ViewportSize(ctx context.Context) (geometry.Size, error)
	SetViewportSize(ctx context.Context, size geometry.Size) error
	ScrollPosition(ctx context.Context) (geometry.Point, error)
	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	UserAgent(ctx context.Context) (string, error)
	Close() error
}

// Element is a located page element.
type Element interface {
	// Location returns the element's top-left corner in page coordinates.
	Location(ctx context.Context) (geometry.Point, error)
	Size(ctx context.Context) (geometry.Size, error)
}

// Bounds returns the element's bounding region in page coordinates.
func Bounds(ctx context.Context, el Element) (geometry.Region, error) {
	loc, err := el.Location(ctx)
	if err != nil {
		return geometry.Region{}, fmt.Errorf("failed to get element location: %w", err)
	}
	size, err := el.Size(ctx)
	if err != nil {
		return geometry.Region{}, fmt.Errorf("failed to get element size: %w", err)
	}
	return geometry.NewRegion(loc, size), nil
}

// Page scripts shared by both backends. They are function bodies, so they
// use return.
const (
	viewportSizeScript   = `return [window.innerWidth, window.innerHeight];`
	scrollPositionScript = `return [window.pageXOffset || document.documentElement.scrollLeft || 0, window.pageYOffset || document.documentElement.scrollTop || 0];`
	documentSizeScript   = `var d = document.documentElement, b = document.body || d;
return [Math.max(d.scrollWidth, b.scrollWidth, d.clientWidth), Math.max(d.scrollHeight, b.scrollHeight, d.clientHeight)];`
	userAgentScript = `return navigator.userAgent;`
)

// scriptRunner is the part of Driver the shared script helpers need.
type scriptRunner interface {
	ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error)
}

func viewportSize(ctx context.Context, d scriptRunner) (geometry.Size, error) {
	w, h, err := intPair(ctx, d, viewportSizeScript)
	if err != nil {
		return geometry.Size{}, fmt.Errorf("failed to read viewport size: %w", err)
	}
	return geometry.Size{Width: w, Height: h}, nil
}

func scrollPosition(ctx context.Context, d scriptRunner) (geometry.Point, error) {
	x, y, err := intPair(ctx, d, scrollPositionScript)
	if err != nil {
		return geometry.Point{}, fmt.Errorf("failed to read scroll position: %w", err)
	}
	return geometry.Point{X: x, Y: y}, nil
}

func documentSize(ctx context.Context, d scriptRunner) (geometry.Size, error) {
	w, h, err := intPair(ctx, d, documentSizeScript)
	if err != nil {
		return geometry.Size{}, fmt.Errorf("failed to read document size: %w", err)
	}
	return geometry.Size{Width: w, Height: h}, nil
}

func userAgent(ctx context.Context, d scriptRunner) (string, error) {
	v, err := d.ExecuteScript(ctx, userAgentScript)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("user agent is %T, not a string", v)
	}
	return s, nil
}

func intPair(ctx context.Context, d scriptRunner, script string) (int, int, error) {
	v, err := d.ExecuteScript(ctx, script)
	if err != nil {
		return 0, 0, err
	}
	pair, ok := v.([]interface{})
	if !ok || len(pair) != 2 {
		return 0, 0, fmt.Errorf("unexpected script result %v", v)
	}
	a, err := toInt(pair[0])
	if err != nil {
		return 0, 0, err
	}
	b, err := toInt(pair[1])
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// toInt converts a JSON-decoded script value to int.
func toInt(val interface{}) (int, error) {
	switch v := val.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int", val)
	}
}
