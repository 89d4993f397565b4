package vision

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	img    image.Image
	err    error
	closed bool
	calls  int
}

func (s *stubSource) Capture() (image.Image, error) {
	s.calls++
	return s.img, s.err
}

func (s *stubSource) Close() error {
	s.closed = true
	return nil
}

type stubDetector struct {
	dets  []Detection
	err   error
	calls int
}

func (s *stubDetector) Detect(image.Image) ([]Detection, error) {
	s.calls++
	return s.dets, s.err
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestReader_CaptureFailureSkipsDetection(t *testing.T) {
	det := &stubDetector{}
	r := NewReader(&stubSource{err: errors.New("camera gone")}, det, 0.5)

	frame, err := r.Poll()
	assert.Nil(t, frame)
	var cerr *CaptureError
	require.ErrorAs(t, err, &cerr)
	assert.Zero(t, det.calls)
}

func TestReader_NilImageIsCaptureError(t *testing.T) {
	r := NewReader(&stubSource{}, nil, 0.5)
	_, err := r.Poll()
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestReader_FiltersByConfidence(t *testing.T) {
	det := &stubDetector{dets: []Detection{
		{Box: image.Rect(1, 1, 10, 10), Label: "person", Confidence: 0.9},
		{Box: image.Rect(2, 2, 8, 8), Label: "dog", Confidence: 0.3},
		{Box: image.Rect(3, 3, 9, 9), Label: "car", Confidence: 0.5},
	}}
	src := &stubSource{img: solid(40, 30, color.Black)}
	r := NewReader(src, det, 0.5)

	frame, err := r.Poll()
	require.NoError(t, err)
	require.NotNil(t, frame)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 1, det.calls)

	var labels []string
	for _, d := range frame.Detections {
		labels = append(labels, d.Label)
	}
	assert.Equal(t, []string{"person", "car"}, labels)
	assert.Equal(t, image.Rect(0, 0, 40, 30), frame.Annotated.Bounds())
	assert.False(t, frame.CapturedAt.IsZero())
}

func TestReader_DetectorFailureStillReturnsFrame(t *testing.T) {
	boom := errors.New("model crashed")
	r := NewReader(&stubSource{img: solid(8, 8, color.Black)}, &stubDetector{err: boom}, 0.5)

	frame, err := r.Poll()
	require.NoError(t, err)
	require.NotNil(t, frame)
	assert.ErrorIs(t, frame.DetectErr, boom)
	assert.Empty(t, frame.Detections)
	require.NotNil(t, frame.Annotated)
}

func TestAnnotate_DrawsBoxOutline(t *testing.T) {
	img := solid(100, 80, color.Black)
	det := Detection{Box: image.Rect(20, 30, 60, 70), Label: "person", Confidence: 0.87}

	out := Annotate(img, []Detection{det})

	want := labelColor("person")
	assert.Equal(t, want, out.RGBAAt(40, 69), "bottom edge")
	assert.Equal(t, want, out.RGBAAt(20, 50), "left edge")
	assert.Equal(t, want, out.RGBAAt(59, 50), "right edge")
	// Inside the box is untouched.
	assert.Equal(t, color.RGBA{0, 0, 0, 0xff}, out.RGBAAt(40, 50))
	// The source image is not modified.
	assert.Equal(t, color.RGBA{0, 0, 0, 0xff}, img.RGBAAt(40, 69))
}

func TestAnnotate_ClipsBoxesOutsideFrame(t *testing.T) {
	img := solid(100, 100, color.Black)
	out := Annotate(img, []Detection{
		{Box: image.Rect(150, 150, 160, 160), Label: "far"},
		{Box: image.Rect(-5, 50, 5, 60), Label: "edge", Confidence: 1},
	})
	assert.Equal(t, labelColor("edge"), out.RGBAAt(4, 55))
	assert.Equal(t, color.RGBA{0, 0, 0, 0xff}, out.RGBAAt(99, 99))
}

func TestReader_StoppedDetectorIsDropped(t *testing.T) {
	det := &stubDetector{err: ErrDetectorStopped}
	r := NewReader(&stubSource{img: solid(8, 8, color.Black)}, det, 0.5)

	frame, err := r.Poll()
	require.NoError(t, err)
	assert.ErrorIs(t, frame.DetectErr, ErrDetectorStopped)

	frame, err = r.Poll()
	require.NoError(t, err)
	assert.NoError(t, frame.DetectErr)
	assert.NotNil(t, frame.Annotated)
	assert.Equal(t, 1, det.calls)
}
