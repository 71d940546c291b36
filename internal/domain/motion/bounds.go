package motion

import (
	"fmt"
	"math"
)

// Geometry describes the reel strip and the window it scrolls behind.
// Units are whatever the renderer uses: pixels in a browser, cells in a
// terminal.
type Geometry struct {
	ItemWidth     float64
	ViewportWidth float64
}

// Validate rejects geometry that would make offsets meaningless.
func (g Geometry) Validate() error {
	if !(g.ItemWidth > 0) || math.IsInf(g.ItemWidth, 0) {
		return fmt.Errorf("%w: item width must be positive", ErrInvalidLayout)
	}
	if g.ViewportWidth < 0 || math.IsNaN(g.ViewportWidth) || math.IsInf(g.ViewportWidth, 0) {
		return fmt.Errorf("%w: viewport width must be non-negative", ErrInvalidLayout)
	}
	return nil
}

// MarkerX is the left edge an item must have, relative to the viewport,
// to sit centered under the marker.
func (g Geometry) MarkerX() float64 {
	return (g.ViewportWidth - g.ItemWidth) / 2
}

// OffsetFor is the unclamped scroll offset that centers item index.
func (g Geometry) OffsetFor(index int) float64 {
	return float64(index)*g.ItemWidth - g.MarkerX()
}

// IndexAt returns the index of the item under the marker at offset.
func (g Geometry) IndexAt(offset float64) int {
	return int(math.Floor((offset + g.ViewportWidth/2) / g.ItemWidth))
}

// Bounds is the valid offset range for a given strip and viewport.
type Bounds struct {
	Min float64
	Max float64
}

// NewBounds computes [0, max(0, items*itemWidth - viewport)].
func NewBounds(items int, g Geometry) Bounds {
	max := float64(items)*g.ItemWidth - g.ViewportWidth
	if max < 0 || math.IsNaN(max) {
		max = 0
	}
	return Bounds{Min: 0, Max: max}
}

// Clamp limits v to the bounds. NaN maps to Min.
func (b Bounds) Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < b.Min:
		return b.Min
	case v > b.Max:
		return b.Max
	}
	return v
}

// Contains reports whether v already lies within the bounds.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}
