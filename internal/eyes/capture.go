package eyes

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/insajin/appeyes/internal/browser"
	"github.com/insajin/appeyes/internal/geometry"
)

// capture is one screenshot along with the page coordinate of its top-left
// pixel.
type capture struct {
	png    []byte
	origin geometry.Point
	bounds geometry.Region
}

// Scripts run around a capture when scrollbars are hidden.
const (
	hideScrollbarsScript    = `var o = document.documentElement.style.overflow; document.documentElement.style.overflow = 'hidden'; return o;`
	restoreScrollbarsScript = `document.documentElement.style.overflow = arguments[0];`
)

// captureWindow takes a viewport or full-page screenshot.
func captureWindow(ctx context.Context, d browser.Driver, fullPage bool) (*capture, error) {
	var (
		data   []byte
		origin geometry.Point
		err    error
	)
	if fullPage {
		data, err = d.FullPageScreenshot(ctx)
	} else {
		origin, err = d.ScrollPosition(ctx)
		if err != nil {
			return nil, err
		}
		data, err = d.Screenshot(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return &capture{
		png:    data,
		origin: origin,
		bounds: geometry.Region{Left: origin.X, Top: origin.Y, Width: cfg.Width, Height: cfg.Height},
	}, nil
}

// captureRegion captures the page region r, falling back to a full-page
// screenshot when r is not inside the viewport.
func captureRegion(ctx context.Context, d browser.Driver, r geometry.Region, fullPage bool) (*capture, error) {
	c, err := captureWindow(ctx, d, fullPage)
	if err != nil {
		return nil, err
	}
	if !fullPage && c.bounds.Intersect(r) != r {
		if c, err = captureWindow(ctx, d, true); err != nil {
			return nil, err
		}
	}

	cropped, err := cropPNG(c.png, r.Offset(c.origin.X, c.origin.Y))
	if err != nil {
		return nil, fmt.Errorf("failed to crop region %s: %w", r, err)
	}
	visible := c.bounds.Intersect(r)
	return &capture{
		png:    cropped,
		origin: visible.Location(),
		bounds: visible,
	}, nil
}

// cropPNG cuts r, in image coordinates, out of a PNG image.
func cropPNG(data []byte, r geometry.Region) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	imgRegion := geometry.Region{Left: b.Min.X, Top: b.Min.Y, Width: b.Dx(), Height: b.Dy()}
	visible := imgRegion.Intersect(r)
	if visible.IsEmpty() {
		return nil, fmt.Errorf("region %s is outside the %dx%d screenshot", r, b.Dx(), b.Dy())
	}

	sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	})
	if !ok {
		return nil, fmt.Errorf("screenshot image type %T cannot be cropped", img)
	}
	rect := image.Rect(visible.Left, visible.Top, visible.Left+visible.Width, visible.Top+visible.Height)

	var buf bytes.Buffer
	if err := png.Encode(&buf, sub.SubImage(rect)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// relativeTo expresses page regions in the coordinates of an image whose
// page bounds are c.bounds, dropping regions that fall outside it.
func (c *capture) relativeTo(regions []geometry.Region) []geometry.Region {
	var out []geometry.Region
	for _, r := range regions {
		visible := c.bounds.Intersect(r)
		if visible.IsEmpty() {
			continue
		}
		out = append(out, visible.Offset(c.bounds.Left, c.bounds.Top))
	}
	return out
}

func (c *capture) floatingRelativeTo(regions []geometry.FloatingRegion) []geometry.FloatingRegion {
	var out []geometry.FloatingRegion
	for _, f := range regions {
		visible := c.bounds.Intersect(f.Region)
		if visible.IsEmpty() {
			continue
		}
		f.Region = visible.Offset(c.bounds.Left, c.bounds.Top)
		out = append(out, f)
	}
	return out
}
