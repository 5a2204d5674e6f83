package sampler

import (
	"fmt"
	"image"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB is an exact 8-bit color.
type RGB struct {
	R, G, B uint8
}

// Hex formats the color as #rrggbb.
func (c RGB) Hex() string {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}.Hex()
}

// Brightness is the unweighted channel mean, 0..255.
func (c RGB) Brightness() float64 {
	return (float64(c.R) + float64(c.G) + float64(c.B)) / 3
}

func (c RGB) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.R, c.G, c.B)
}

// Sprite is a decoded raster held as row-major, 3-channel 8-bit RGB.
type Sprite struct {
	Stem   string
	Width  int
	Height int
	Pix    []uint8 // len = Width*Height*3
}

// NewSprite returns a sprite of the given size filled with c.
func NewSprite(stem string, width, height int, c RGB) *Sprite {
	s := &Sprite{
		Stem:   stem,
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
	for i := 0; i < len(s.Pix); i += 3 {
		s.Pix[i], s.Pix[i+1], s.Pix[i+2] = c.R, c.G, c.B
	}
	return s
}

// FromImage copies img into a Sprite, discarding alpha.
func FromImage(stem string, img image.Image) *Sprite {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	s := &Sprite{
		Stem:   stem,
		Width:  w,
		Height: h,
		Pix:    make([]uint8, w*h*3),
	}
	for y := range h {
		for x := range w {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			off := (y*w + x) * 3
			s.Pix[off] = uint8(r >> 8)
			s.Pix[off+1] = uint8(g >> 8)
			s.Pix[off+2] = uint8(b >> 8)
		}
	}
	return s
}

// At returns the color at column x, row y.
func (s *Sprite) At(x, y int) RGB {
	off := (y*s.Width + x) * 3
	return RGB{s.Pix[off], s.Pix[off+1], s.Pix[off+2]}
}

// Set writes the color at column x, row y.
func (s *Sprite) Set(x, y int, c RGB) {
	off := (y*s.Width + x) * 3
	s.Pix[off], s.Pix[off+1], s.Pix[off+2] = c.R, c.G, c.B
}

// Fill paints rows [r0, r1) and columns [c0, c1) with c.
func (s *Sprite) Fill(r0, r1, c0, c1 int, c RGB) {
	for y := r0; y < r1; y++ {
		for x := c0; x < c1; x++ {
			s.Set(x, y, c)
		}
	}
}

// Upscale returns a nearest-neighbour enlargement by an integer factor.
func (s *Sprite) Upscale(factor int) *Sprite {
	out := &Sprite{
		Stem:   s.Stem,
		Width:  s.Width * factor,
		Height: s.Height * factor,
		Pix:    make([]uint8, s.Width*factor*s.Height*factor*3),
	}
	for y := range out.Height {
		for x := range out.Width {
			out.Set(x, y, s.At(x/factor, y/factor))
		}
	}
	return out
}

// Image converts the sprite back to an image.RGBA.
func (s *Sprite) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	for y := range s.Height {
		for x := range s.Width {
			c := s.At(x, y)
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, 255
		}
	}
	return img
}
