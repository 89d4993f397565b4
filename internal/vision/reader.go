package vision

import (
	"errors"
	"log"
	"time"
)

// DefaultMinConfidence drops weak detections.
const DefaultMinConfidence = 0.5

// Reader runs one capture + detect cycle per Poll.
type Reader struct {
	src           FrameSource
	det           Detector
	minConfidence float64
	now           func() time.Time
}

func NewReader(src FrameSource, det Detector, minConfidence float64) *Reader {
	if det == nil {
		det = NopDetector{}
	}
	return &Reader{src: src, det: det, minConfidence: minConfidence, now: time.Now}
}

// Poll captures exactly one frame and runs the detector on it.
//
// A capture failure is returned as *CaptureError and nothing else happens.
// A detector failure still yields the frame, without boxes.
func (r *Reader) Poll() (*Frame, error) {
	img, err := r.src.Capture()
	if err != nil {
		var cerr *CaptureError
		if !errors.As(err, &cerr) {
			err = &CaptureError{Err: err}
		}
		return nil, err
	}
	if img == nil {
		return nil, &CaptureError{Err: ErrNoFrame}
	}

	frame := &Frame{Raw: img, CapturedAt: r.now()}

	dets, err := r.det.Detect(img)
	if err != nil {
		log.Printf("vision: detect: %v", err)
		if errors.Is(err, ErrDetectorStopped) {
			log.Printf("vision: continuing without detections")
			r.det = NopDetector{}
		}
		frame.DetectErr = err
		frame.Annotated = Annotate(img, nil)
		return frame, nil
	}

	kept := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence >= r.minConfidence {
			kept = append(kept, d)
		}
	}
	frame.Detections = kept
	frame.Annotated = Annotate(img, kept)
	return frame, nil
}
