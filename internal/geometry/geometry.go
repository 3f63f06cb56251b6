// Package geometry holds the screen coordinate types shared by the browser
// drivers and the visual-testing client.
package geometry

import "fmt"

// Point is a position in CSS pixels relative to the page origin.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is a width/height pair in CSS pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsEmpty reports whether the size has no area.
func (s Size) IsEmpty() bool {
	return s.Width <= 0 || s.Height <= 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Region is an axis-aligned rectangle.
type Region struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRegion builds a region from an origin and a size.
func NewRegion(origin Point, size Size) Region {
	return Region{Left: origin.X, Top: origin.Y, Width: size.Width, Height: size.Height}
}

// Location returns the top-left corner of the region.
func (r Region) Location() Point {
	return Point{X: r.Left, Y: r.Top}
}

// Size returns the region's dimensions.
func (r Region) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// IsEmpty reports whether the region has no area.
func (r Region) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Offset returns the region translated by (-dx, -dy); used to express a page
// region relative to a captured image whose origin is (dx, dy).
func (r Region) Offset(dx, dy int) Region {
	return Region{Left: r.Left - dx, Top: r.Top - dy, Width: r.Width, Height: r.Height}
}

// Intersect returns the overlap of r and o. The result is empty when they do not overlap.
func (r Region) Intersect(o Region) Region {
	left := max(r.Left, o.Left)
	top := max(r.Top, o.Top)
	right := min(r.Left+r.Width, o.Left+o.Width)
	bottom := min(r.Top+r.Height, o.Top+o.Height)
	if right <= left || bottom <= top {
		return Region{Left: left, Top: top}
	}
	return Region{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d) %dx%d", r.Left, r.Top, r.Width, r.Height)
}

// FloatingRegion is a region allowed to move by up to the given offsets
// relative to its baseline position.
type FloatingRegion struct {
	Region
	MaxUp    int `json:"maxUpOffset"`
	MaxDown  int `json:"maxDownOffset"`
	MaxLeft  int `json:"maxLeftOffset"`
	MaxRight int `json:"maxRightOffset"`
}
