package model

import (
	"bytes"
	"encoding/json"
)

// NoFrame marks a detection that carries no frame index (single-image input).
const NoFrame = -1

// Detection is one record returned by the inference service. It is treated
// as immutable once decoded.
type Detection struct {
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	BBox       json.RawMessage `json:"bbox,omitempty"`
	Frame      *int            `json:"frame,omitempty"`
}

// HasBox reports whether the detection carries any bounding box value.
func (d Detection) HasBox() bool {
	trimmed := bytes.TrimSpace(d.BBox)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// FrameIndex returns the frame index or NoFrame when absent.
func (d Detection) FrameIndex() int {
	if d.Frame == nil {
		return NoFrame
	}
	return *d.Frame
}

// MediaKind distinguishes single-image runs from multi-frame runs.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// ParseMediaKind maps a user-supplied string to a MediaKind.
func ParseMediaKind(s string) (MediaKind, bool) {
	switch MediaKind(s) {
	case MediaImage, MediaVideo:
		return MediaKind(s), true
	default:
		return "", false
	}
}

// InferencePayload is the response body of the inference service. Image and
// video endpoints spell the delivery flag differently.
type InferencePayload struct {
	Detections        []Detection `json:"detections"`
	TotalFrames       *int        `json:"total_frames,omitempty"`
	NotificationSent  *bool       `json:"notification_sent,omitempty"`
	NotificationsSent *bool       `json:"notifications_sent,omitempty"`
	Success           *bool       `json:"success,omitempty"`
	Error             string      `json:"error,omitempty"`
}

// NotificationDelivered merges both spellings of the delivery flag. Nil means
// the channel did not report.
func (p *InferencePayload) NotificationDelivered() *bool {
	if p.NotificationSent != nil {
		return p.NotificationSent
	}
	return p.NotificationsSent
}

// Frames returns total_frames or zero when the service omitted it.
func (p *InferencePayload) Frames() int {
	if p.TotalFrames == nil {
		return 0
	}
	return *p.TotalFrames
}

// Failed reports whether the service signalled a non-success response.
func (p *InferencePayload) Failed() bool {
	if p.Error != "" {
		return true
	}
	return p.Success != nil && !*p.Success
}
