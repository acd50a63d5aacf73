package overlay

import (
	"image"
	"io"

	"github.com/fogleman/gg"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ppe-vision/internal/geometry"
)

// Surface is a retained drawing surface. Its size follows the display rect
// passed to the most recent render and is never persisted.
type Surface struct {
	dc *gg.Context
}

// NewSurface returns an empty, zero-sized surface.
func NewSurface() *Surface {
	return &Surface{dc: gg.NewContext(0, 0)}
}

// reset resizes the surface to the display rect (whole pixels, truncated) and
// clears it to transparent.
func (s *Surface) reset(display geometry.Size) {
	w, h := pixels(display.Width), pixels(display.Height)
	if s.dc == nil || s.dc.Width() != w || s.dc.Height() != h {
		s.dc = gg.NewContext(w, h)
		return
	}
	s.dc.SetRGBA(0, 0, 0, 0)
	s.dc.Clear()
}

// Size returns the surface dimensions in pixels.
func (s *Surface) Size() (int, int) {
	return s.dc.Width(), s.dc.Height()
}

// Image returns the painted surface.
func (s *Surface) Image() image.Image {
	return s.dc.Image()
}

// EncodePNG writes the surface as PNG.
func (s *Surface) EncodePNG(w io.Writer) error {
	return eris.Wrap(s.dc.EncodePNG(w), "overlay: encode png")
}

// SavePNG writes the surface to a PNG file.
func (s *Surface) SavePNG(path string) error {
	return eris.Wrapf(s.dc.SavePNG(path), "overlay: save png %s", path)
}

func pixels(f float64) int {
	if f <= 0 || f != f {
		return 0
	}
	return int(f)
}
