// Package vision captures camera frames, runs the object detector on them
// and draws the results.
package vision

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// ErrNoFrame is returned by Capture when no new frame has arrived since the
// previous call.
var ErrNoFrame = errors.New("no new frame")

// Detection is one labelled box in frame pixel coordinates.
type Detection struct {
	Box        image.Rectangle `json:"box"`
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
}

// Frame is the result of one vision tick. Only the newest one is kept.
type Frame struct {
	Raw        image.Image
	Annotated  *image.RGBA
	Detections []Detection
	CapturedAt time.Time
	DetectErr  error // detector failed; Annotated has no boxes
}

// CaptureError reports that no frame could be read this tick.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("vision: capture: %v", e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// FrameSource yields camera frames.
type FrameSource interface {
	Capture() (image.Image, error)
	Close() error
}
