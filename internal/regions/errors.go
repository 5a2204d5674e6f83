package regions

import "fmt"

// InvalidRegionError reports a rectangle with no area or one that falls
// outside the raster it is applied to.
type InvalidRegionError struct {
	Name   string
	Rect   Rect
	Reason string
}

func (e *InvalidRegionError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("invalid region %s: %s", e.Rect, e.Reason)
	}
	return fmt.Sprintf("invalid region %q %s: %s", e.Name, e.Rect, e.Reason)
}

// UnsupportedScaleError reports a sprite whose size is not a square integer
// multiple of the 24x24 grid.
type UnsupportedScaleError struct {
	Width, Height int
}

func (e *UnsupportedScaleError) Error() string {
	return fmt.Sprintf("unsupported sprite size %dx%d: must be a square multiple of %d", e.Width, e.Height, GridSize)
}
