package oled

import (
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/eagle_eye/internal/gps"
	"github.com/relabs-tech/eagle_eye/internal/osgrid"
)

type fakeDev struct {
	mu     sync.Mutex
	frames []image.Image
	halted bool
	err    error
	gate   chan struct{} // when set, each Draw waits for a receive
}

func (f *fakeDev) Draw(_ image.Rectangle, src image.Image, _ image.Point) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, src)
	return f.err
}

func (f *fakeDev) Halt() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.halted = true
	return nil
}

func (f *fakeDev) drawn() []image.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]image.Image(nil), f.frames...)
}

func lit(img image.Image, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.At(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestPanel_ShowFixDrawsFourLines(t *testing.T) {
	dev := &fakeDev{}
	p := newPanel(dev, nil)
	defer p.Close()

	fix := gps.Fix{
		Time:      "12:35:19",
		Latitude:  51.5,
		Longitude: -0.12,
		Altitude:  11,
		GridRef:   osgrid.Ref{ZoneLetters: "TQ", Easting: "3003", Northing: "8038"},
		GridOK:    true,
	}
	require.NoError(t, p.ShowFix(fix))
	require.Eventually(t, func() bool { return len(dev.drawn()) == 1 }, time.Second, 5*time.Millisecond)

	img := dev.drawn()[0]
	assert.Equal(t, image.Rect(0, 0, width, height), img.Bounds())
	for _, band := range []image.Rectangle{
		image.Rect(0, 0, width, 14),
		image.Rect(0, 14, width, 27),
		image.Rect(0, 27, width, 40),
		image.Rect(0, 40, width, 53),
	} {
		assert.NotZero(t, lit(img, band), "band %v is empty", band)
	}
}

func TestPanel_ShowFixDoesNotWaitForBus(t *testing.T) {
	dev := &fakeDev{gate: make(chan struct{})}
	p := newPanel(dev, nil)

	// The first fix is taken by the draw loop and stalls on the bus; the
	// next two queue behind it and only the newest survives.
	require.NoError(t, p.ShowFix(gps.Fix{Time: "1"}))
	require.Eventually(t, func() bool { return len(p.fixes) == 0 }, time.Second, time.Millisecond)

	returned := make(chan struct{})
	go func() {
		_ = p.ShowFix(gps.Fix{Time: "2"})
		_ = p.ShowFix(gps.Fix{Time: "3", Altitude: 999})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("ShowFix blocked on a busy bus")
	}

	dev.gate <- struct{}{}
	dev.gate <- struct{}{}
	require.Eventually(t, func() bool { return len(dev.drawn()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, renderFix(gps.Fix{Time: "3", Altitude: 999}), dev.drawn()[1])

	close(dev.gate)
	require.NoError(t, p.Close())
}

func TestPanel_DrawErrorIsLogged(t *testing.T) {
	dev := &fakeDev{err: errors.New("i2c nack")}
	p := newPanel(dev, nil)
	defer p.Close()

	assert.NoError(t, p.ShowFix(gps.Fix{}))
	require.Eventually(t, func() bool { return len(dev.drawn()) == 1 }, time.Second, 5*time.Millisecond)
	assert.NoError(t, p.ShowFix(gps.Fix{}), "a failed draw must not stop later fixes")
}

func TestPanel_CloseHaltsOnce(t *testing.T) {
	dev := &fakeDev{}
	p := newPanel(dev, nil)

	require.NoError(t, p.Close())
	assert.True(t, dev.halted)
	assert.NoError(t, p.Close())
	assert.Error(t, p.ShowFix(gps.Fix{}))
}

func TestSplashIsNotBlank(t *testing.T) {
	img := splash()
	assert.NotZero(t, lit(img, img.Bounds()))
}
