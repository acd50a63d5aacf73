// Package overlay paints detection boxes, label chips and corner accents on
// a surface registered against the displayed media.
package overlay

import (
	"fmt"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"

	"github.com/sells-group/ppe-vision/internal/classify"
	"github.com/sells-group/ppe-vision/internal/geometry"
	"github.com/sells-group/ppe-vision/internal/model"
)

var labelFont *truetype.Font

func init() {
	var err error
	labelFont, err = truetype.Parse(gobold.TTF)
	if err != nil {
		panic(err)
	}
}

// Style controls stroke widths, chip metrics and the category palette.
type Style struct {
	LineWidth      float64 `yaml:"line_width" mapstructure:"line_width"`
	CornerLength   float64 `yaml:"corner_length" mapstructure:"corner_length"`
	CornerWidth    float64 `yaml:"corner_width" mapstructure:"corner_width"`
	FontSize       float64 `yaml:"font_size" mapstructure:"font_size"`
	ChipHeight     float64 `yaml:"chip_height" mapstructure:"chip_height"`
	ChipPadding    float64 `yaml:"chip_padding" mapstructure:"chip_padding"`
	ViolationColor string  `yaml:"violation_color" mapstructure:"violation_color"`
	CompliantColor string  `yaml:"compliant_color" mapstructure:"compliant_color"`
	TextColor      string  `yaml:"text_color" mapstructure:"text_color"`
}

// DefaultStyle matches the dashboard look: red/green strokes, white chip text.
func DefaultStyle() Style {
	return Style{
		LineWidth:      3,
		CornerLength:   15,
		CornerWidth:    4,
		FontSize:       14,
		ChipHeight:     20,
		ChipPadding:    8,
		ViolationColor: "#ef4444",
		CompliantColor: "#10b981",
		TextColor:      "#ffffff",
	}
}

// Skip records a detection that was not drawn.
type Skip struct {
	Index int
	Label string
	Err   error
}

// Report summarizes one render pass.
type Report struct {
	Drawn   int
	Skipped []Skip
}

// Renderer paints detections. It holds no per-render state; every call
// clears and repaints the surface.
type Renderer struct {
	style     Style
	violation colorful.Color
	compliant colorful.Color
	text      colorful.Color
	face      font.Face
}

// NewRenderer validates the style and prepares the label font face.
func NewRenderer(style Style) (*Renderer, error) {
	def := DefaultStyle()
	if style.LineWidth <= 0 {
		style.LineWidth = def.LineWidth
	}
	if style.CornerLength <= 0 {
		style.CornerLength = def.CornerLength
	}
	if style.CornerWidth <= 0 {
		style.CornerWidth = def.CornerWidth
	}
	if style.FontSize <= 0 {
		style.FontSize = def.FontSize
	}
	if style.ChipHeight <= 0 {
		style.ChipHeight = def.ChipHeight
	}
	if style.ChipPadding < 0 {
		style.ChipPadding = def.ChipPadding
	}

	r := &Renderer{style: style}
	var err error
	if r.violation, err = parseColor(style.ViolationColor, def.ViolationColor); err != nil {
		return nil, err
	}
	if r.compliant, err = parseColor(style.CompliantColor, def.CompliantColor); err != nil {
		return nil, err
	}
	if r.text, err = parseColor(style.TextColor, def.TextColor); err != nil {
		return nil, err
	}
	r.face = truetype.NewFace(labelFont, &truetype.Options{Size: style.FontSize})
	return r, nil
}

func parseColor(hex, fallback string) (colorful.Color, error) {
	if hex == "" {
		hex = fallback
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, eris.Wrapf(err, "overlay: parse color %q", hex)
	}
	return c, nil
}

// ColorFor returns the stroke colour of a category.
func (r *Renderer) ColorFor(c model.Category) colorful.Color {
	if c == model.CategoryViolation {
		return r.violation
	}
	return r.compliant
}

// ChipText is the label chip caption: underscores become spaces and the
// confidence is shown as a whole percentage.
func ChipText(d model.Detection) string {
	return fmt.Sprintf("%s %d%%", strings.ReplaceAll(d.Label, "_", " "), int(math.Round(d.Confidence*100)))
}

// Render resizes the surface to the display rect, clears it and paints every
// mappable detection. Detections without a box or with invalid geometry are
// logged and skipped.
func (r *Renderer) Render(s *Surface, detections []model.Detection, native, display geometry.Size) Report {
	s.reset(display)

	var rep Report
	for i, d := range detections {
		if !d.HasBox() {
			r.skip(&rep, i, d, eris.Wrap(geometry.ErrInvalidGeometry, "overlay: detection has no bbox"))
			continue
		}
		rect, err := geometry.MapBox(d.BBox, native, display)
		if err != nil {
			r.skip(&rep, i, d, err)
			continue
		}
		r.draw(s.dc, d, rect)
		rep.Drawn++
	}
	return rep
}

func (r *Renderer) skip(rep *Report, i int, d model.Detection, err error) {
	zap.L().Warn("overlay: skipping detection",
		zap.Int("index", i),
		zap.String("label", d.Label),
		zap.Error(err),
	)
	rep.Skipped = append(rep.Skipped, Skip{Index: i, Label: d.Label, Err: err})
}

func (r *Renderer) draw(dc *gg.Context, d model.Detection, rect geometry.Rect) {
	c := r.ColorFor(classify.Classify(d.Label))
	x, y, w, h := rect.X, rect.Y, rect.W, rect.H

	dc.SetColor(c)
	dc.SetLineWidth(r.style.LineWidth)
	dc.DrawRectangle(x, y, w, h)
	dc.Stroke()

	// Label chip above the top-left corner.
	text := ChipText(d)
	dc.SetFontFace(r.face)
	tw, _ := dc.MeasureString(text)
	pad, th := r.style.ChipPadding, r.style.ChipHeight
	dc.SetColor(c)
	dc.DrawRectangle(x, y-th-pad, tw+pad*2, th+pad)
	dc.Fill()
	dc.SetColor(r.text)
	dc.DrawString(text, x+pad, y-pad)

	r.drawCorners(dc, c, x, y, w, h)
}

func (r *Renderer) drawCorners(dc *gg.Context, c colorful.Color, x, y, w, h float64) {
	k := r.style.CornerLength
	dc.SetColor(c)
	dc.SetLineWidth(r.style.CornerWidth)

	corners := [4][3][2]float64{
		{{x, y + k}, {x, y}, {x + k, y}},
		{{x + w - k, y}, {x + w, y}, {x + w, y + k}},
		{{x, y + h - k}, {x, y + h}, {x + k, y + h}},
		{{x + w - k, y + h}, {x + w, y + h}, {x + w, y + h - k}},
	}
	for _, pts := range corners {
		dc.MoveTo(pts[0][0], pts[0][1])
		dc.LineTo(pts[1][0], pts[1][1])
		dc.LineTo(pts[2][0], pts[2][1])
		dc.Stroke()
	}
}
