package display

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"
)

// Surface holds the image currently on screen and renders it as terminal
// half blocks: each character cell shows two vertically stacked pixels.
type Surface struct {
	img        image.Image
	generation uint64

	cacheGen  uint64
	cacheCols int
	cache     string
}

func NewSurface() *Surface {
	return &Surface{}
}

// SetImage replaces whatever is shown.
func (s *Surface) SetImage(img image.Image) {
	s.img = img
	s.generation++
}

// Image returns the image currently shown, or nil.
func (s *Surface) Image() image.Image {
	return s.img
}

// Generation increases on every SetImage.
func (s *Surface) Generation() uint64 {
	return s.generation
}

// Render draws the image cols characters wide, keeping the aspect ratio.
func (s *Surface) Render(cols int) string {
	if s.img == nil || cols < 1 {
		return ""
	}
	if s.cacheGen == s.generation && s.cacheCols == cols && s.cache != "" {
		return s.cache
	}

	b := s.img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return ""
	}
	pxRows := cols * b.Dy() / b.Dx()
	if pxRows < 2 {
		pxRows = 2
	}
	if pxRows%2 == 1 {
		pxRows++
	}

	scaled := image.NewRGBA(image.Rect(0, 0, cols, pxRows))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), s.img, b, draw.Src, nil)

	var sb strings.Builder
	for y := 0; y < pxRows; y += 2 {
		for x := 0; x < cols; x++ {
			top := scaled.RGBAAt(x, y)
			bottom := scaled.RGBAAt(x, y+1)
			sb.WriteString(lipgloss.NewStyle().
				Foreground(hexColor(top)).
				Background(hexColor(bottom)).
				Render("▀"))
		}
		if y+2 < pxRows {
			sb.WriteByte('\n')
		}
	}

	s.cacheGen = s.generation
	s.cacheCols = cols
	s.cache = sb.String()
	return s.cache
}

func hexColor(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}
