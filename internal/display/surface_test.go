package display

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fill(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestSurface_EmptyRendersNothing(t *testing.T) {
	s := NewSurface()
	assert.Nil(t, s.Image())
	assert.Empty(t, s.Render(40))
}

func TestSurface_RenderKeepsAspect(t *testing.T) {
	s := NewSurface()
	s.SetImage(fill(20, 10, color.RGBA{200, 10, 10, 255}))

	// 10 columns by 5 pixel rows, rounded up to 6, is three text lines.
	out := s.Render(10)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, 30, strings.Count(out, "▀"))
}

func TestSurface_SetImageReplaces(t *testing.T) {
	s := NewSurface()
	first := fill(4, 4, color.Black)
	second := fill(8, 8, color.White)

	s.SetImage(first)
	g := s.Generation()
	_ = s.Render(4)

	s.SetImage(second)
	assert.Same(t, second, s.Image())
	assert.Greater(t, s.Generation(), g)
	// 8x8 at 4 columns is 4 pixel rows, two lines.
	assert.Len(t, strings.Split(s.Render(4), "\n"), 2)
}
