// Package browsertest provides an in-memory browser.Driver for tests.
package browsertest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/insajin/appeyes/internal/browser"
	"github.com/insajin/appeyes/internal/geometry"
	"github.com/insajin/appeyes/internal/selector"
)

var _ browser.Driver = (*FakeDriver)(nil)

// FakeElement is a fixed element position and size.
type FakeElement struct {
	Loc geometry.Point
	Sz  geometry.Size
}

func (e *FakeElement) Location(ctx context.Context) (geometry.Point, error) { return e.Loc, nil }
func (e *FakeElement) Size(ctx context.Context) (geometry.Size, error)      { return e.Sz, nil }

// FakeDriver records calls and serves solid-colour screenshots.
type FakeDriver struct {
	Viewport geometry.Size
	Document geometry.Size
	Scroll   geometry.Point
	PageURL  string
	Page     string
	Agent    string

	elements map[string]*FakeElement

	Navigations  []string
	ViewportSets []geometry.Size
	Scripts      []string
	Shots        int
	FullShots    int
	Lookups      int
	Closed       bool

	mu sync.Mutex
}

// NewFakeDriver creates a driver with a 1280x720 viewport.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		Viewport: geometry.Size{Width: 1280, Height: 720},
		Document: geometry.Size{Width: 1280, Height: 2000},
		PageURL:  "http://example.test/",
		Page:     "Example",
		Agent:    "Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0",
		elements: make(map[string]*FakeElement),
	}
}

func key(kind selector.Kind, value string) string {
	return kind.String() + "=" + value
}

// AddElement registers an element reachable by kind and value.
func (d *FakeDriver) AddElement(kind selector.Kind, value string, loc geometry.Point, size geometry.Size) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements[key(kind, value)] = &FakeElement{Loc: loc, Sz: size}
}

func (d *FakeDriver) FindElement(ctx context.Context, kind selector.Kind, value string) (browser.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Lookups++
	el, ok := d.elements[key(kind, value)]
	if !ok {
		return nil, fmt.Errorf("%w: %s=%q", browser.ErrElementNotFound, kind, value)
	}
	return el, nil
}

func (d *FakeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	d.Shots++
	size := d.Viewport
	d.mu.Unlock()
	return SolidPNG(size.Width, size.Height, color.RGBA{R: 200, G: 200, B: 200, A: 255})
}

func (d *FakeDriver) FullPageScreenshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	d.FullShots++
	size := d.Document
	d.mu.Unlock()
	return SolidPNG(size.Width, size.Height, color.RGBA{R: 200, G: 200, B: 200, A: 255})
}

func (d *FakeDriver) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Scripts = append(d.Scripts, script)
	return nil, nil
}

func (d *FakeDriver) ViewportSize(ctx context.Context) (geometry.Size, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Viewport, nil
}

func (d *FakeDriver) SetViewportSize(ctx context.Context, size geometry.Size) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ViewportSets = append(d.ViewportSets, size)
	d.Viewport = size
	return nil
}

func (d *FakeDriver) ScrollPosition(ctx context.Context) (geometry.Point, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Scroll, nil
}

func (d *FakeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Navigations = append(d.Navigations, url)
	d.PageURL = url
	return nil
}

func (d *FakeDriver) Title(ctx context.Context) (string, error)      { return d.Page, nil }
func (d *FakeDriver) CurrentURL(ctx context.Context) (string, error) { return d.PageURL, nil }
func (d *FakeDriver) UserAgent(ctx context.Context) (string, error)  { return d.Agent, nil }

func (d *FakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Closed = true
	return nil
}

// FakeLibrary lends a fixed driver.
type FakeLibrary struct {
	Driver browser.Driver
}

func (l *FakeLibrary) CurrentBrowser() (browser.Driver, error) {
	if l.Driver == nil {
		return nil, browser.ErrNoBrowserOpen
	}
	return l.Driver, nil
}

// SolidPNG encodes a w x h image filled with c.
func SolidPNG(w, h int, c color.Color) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
