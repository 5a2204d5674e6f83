package regions

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// GridSize is the edge length of the canonical sprite grid all regions are
// expressed in.
const GridSize = 24

// Rect is a half-open pixel rectangle [RowStart, RowEnd) x [ColStart, ColEnd).
type Rect struct {
	RowStart int `yaml:"row_start"`
	RowEnd   int `yaml:"row_end"`
	ColStart int `yaml:"col_start"`
	ColEnd   int `yaml:"col_end"`
}

// Area returns the number of pixels covered by r, or 0 for degenerate rects.
func (r Rect) Area() int {
	h := r.RowEnd - r.RowStart
	w := r.ColEnd - r.ColStart
	if h <= 0 || w <= 0 {
		return 0
	}
	return h * w
}

// Scale multiplies every bound by s.
func (r Rect) Scale(s int) Rect {
	return Rect{
		RowStart: r.RowStart * s,
		RowEnd:   r.RowEnd * s,
		ColStart: r.ColStart * s,
		ColEnd:   r.ColEnd * s,
	}
}

// Within reports whether r lies inside a width x height raster.
func (r Rect) Within(width, height int) bool {
	return r.RowStart >= 0 && r.ColStart >= 0 && r.RowEnd <= height && r.ColEnd <= width
}

func (r Rect) String() string {
	return fmt.Sprintf("[%d:%d, %d:%d]", r.RowStart, r.RowEnd, r.ColStart, r.ColEnd)
}

// Map names the regions of a 24x24 sprite.
type Map map[string]Rect

// Default returns the canonical region table. The eye rectangles are the
// 4x4 blocks at rows 9-13; wider bands used elsewhere pick up eyebrows and
// skin and are not used here.
func Default() Map {
	return Map{
		"hair_top":        {0, 8, 0, 24},
		"hair_left":       {4, 12, 0, 8},
		"hair_right":      {4, 12, 16, 24},
		"eyes_left":       {9, 13, 7, 11},
		"eyes_right":      {9, 13, 13, 17},
		"face_center":     {10, 16, 8, 16},
		"nose":            {13, 15, 11, 13},
		"mouth":           {15, 17, 9, 15},
		"lips":            {14, 18, 8, 17},
		"mouth_span":      {15, 19, 9, 16},
		"chin":            {17, 20, 9, 15},
		"bg_top_left":     {0, 4, 0, 4},
		"bg_top_right":    {0, 4, 20, 24},
		"bg_bottom_left":  {20, 24, 0, 4},
		"bg_bottom_right": {20, 24, 20, 24},
		"earring_left":    {11, 14, 6, 8},
		"earring_right":   {11, 14, 16, 18},
		"clothing_top":    {18, 24, 8, 16},
		"clothing_bottom": {21, 24, 10, 14},
		"accessory_top":   {0, 6, 8, 16},
	}
}

// Corners lists the background corner regions in top-left, top-right,
// bottom-left, bottom-right order.
var Corners = [4]string{"bg_top_left", "bg_top_right", "bg_bottom_left", "bg_bottom_right"}

// Names returns the region names in sorted order.
func (m Map) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named region or an InvalidRegionError.
func (m Map) Lookup(name string) (Rect, error) {
	r, ok := m[name]
	if !ok {
		return Rect{}, &InvalidRegionError{Name: name, Reason: "unknown region"}
	}
	return r, nil
}

// Validate checks every region against the 24x24 grid.
func (m Map) Validate() error {
	for _, name := range m.Names() {
		r := m[name]
		if r.Area() == 0 {
			return &InvalidRegionError{Name: name, Rect: r, Reason: "zero or negative area"}
		}
		if !r.Within(GridSize, GridSize) {
			return &InvalidRegionError{Name: name, Rect: r, Reason: "outside the 24x24 grid"}
		}
	}
	return nil
}

// ScaleFor returns the integer scale factor of a width x height sprite
// relative to the 24x24 grid.
func ScaleFor(width, height int) (int, error) {
	if width <= 0 || width != height || width%GridSize != 0 {
		return 0, &UnsupportedScaleError{Width: width, Height: height}
	}
	return width / GridSize, nil
}

type fileFormat struct {
	Regions map[string]Rect `yaml:"regions"`
}

// Load reads a YAML override file and merges it over the default table.
//
//	regions:
//	  eyes_left: {row_start: 8, row_end: 14, col_start: 6, col_end: 12}
func Load(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read region file '%s': %w", path, err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse region file '%s': %w", path, err)
	}

	m := Default()
	for name, r := range f.Regions {
		m[name] = r
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
