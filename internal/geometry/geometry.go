// Package geometry maps bounding boxes from native media pixel space into
// display pixel space.
package geometry

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidGeometry is returned for boxes that cannot be mapped. Callers skip
// the offending detection and keep going.
var ErrInvalidGeometry = eris.New("invalid geometry")

// Size is a width/height pair in pixels. It is used both for the native media
// resolution and for the measured display rect.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Known reports whether both dimensions are positive and finite.
func (s Size) Known() bool {
	return finite(s.Width) && finite(s.Height) && s.Width > 0 && s.Height > 0
}

func (s Size) String() string {
	return strconv.FormatFloat(s.Width, 'f', -1, 64) + "x" + strconv.FormatFloat(s.Height, 'f', -1, 64)
}

// ParseSize parses "WIDTHxHEIGHT", e.g. "1280x720".
func ParseSize(s string) (Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Size{}, eris.Errorf("geometry: size %q must be WIDTHxHEIGHT", s)
	}
	width, err := strconv.ParseFloat(w, 64)
	if err != nil {
		return Size{}, eris.Wrapf(err, "geometry: parse width %q", w)
	}
	height, err := strconv.ParseFloat(h, 64)
	if err != nil {
		return Size{}, eris.Wrapf(err, "geometry: parse height %q", h)
	}
	if width < 0 || height < 0 {
		return Size{}, eris.Errorf("geometry: size %q must not be negative", s)
	}
	return Size{Width: width, Height: height}, nil
}

// Box is a normalized corner-form rectangle (xmin, ymin, xmax, ymax).
type Box struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

// Width of the box.
func (b Box) Width() float64 { return b.XMax - b.XMin }

// Height of the box.
func (b Box) Height() float64 { return b.YMax - b.YMin }

// Rect is an origin-plus-extent rectangle in display pixels.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Normalize decodes a wire bounding box. The inference service emits
// (xmax, ymax, xmin, ymin) and video payloads add one extra level of nesting.
func Normalize(raw json.RawMessage) (Box, error) {
	if len(raw) == 0 {
		return Box{}, eris.Wrap(ErrInvalidGeometry, "geometry: missing bbox")
	}

	var outer []any
	if err := json.Unmarshal(raw, &outer); err != nil {
		return Box{}, eris.Wrapf(ErrInvalidGeometry, "geometry: bbox is not an array: %s", raw)
	}
	if len(outer) > 0 {
		if inner, ok := outer[0].([]any); ok {
			outer = inner
		}
	}
	if len(outer) < 4 {
		return Box{}, eris.Wrapf(ErrInvalidGeometry, "geometry: bbox has %d values, want 4", len(outer))
	}

	var v [4]float64
	for i := range v {
		f, ok := outer[i].(float64)
		if !ok || !finite(f) {
			return Box{}, eris.Wrapf(ErrInvalidGeometry, "geometry: bbox value %d is not a number", i)
		}
		v[i] = f
	}

	b := Box{XMax: v[0], YMax: v[1], XMin: v[2], YMin: v[3]}
	if b.Width() < 0 || b.Height() < 0 {
		return Box{}, eris.Wrapf(ErrInvalidGeometry, "geometry: negative extent %gx%g", b.Width(), b.Height())
	}
	return b, nil
}

// Scale maps a normalized box from native to display space. Each axis is
// scaled independently; the media is assumed to fill its element exactly.
func Scale(b Box, native, display Size) (Rect, error) {
	if !native.Known() {
		return Rect{}, eris.Wrapf(ErrInvalidGeometry, "geometry: native size %s not known", native)
	}
	if !finite(display.Width) || !finite(display.Height) {
		return Rect{}, eris.Wrapf(ErrInvalidGeometry, "geometry: display size %s not finite", display)
	}

	sx := display.Width / native.Width
	sy := display.Height / native.Height
	return Rect{
		X: b.XMin * sx,
		Y: b.YMin * sy,
		W: b.Width() * sx,
		H: b.Height() * sy,
	}, nil
}

// MapBox normalizes a wire box and maps it into display space.
func MapBox(raw json.RawMessage, native, display Size) (Rect, error) {
	b, err := Normalize(raw)
	if err != nil {
		return Rect{}, err
	}
	return Scale(b, native, display)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
