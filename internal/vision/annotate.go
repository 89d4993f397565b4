package vision

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const boxStroke = 2

var boxPalette = []color.RGBA{
	{0xff, 0x38, 0x38, 0xff},
	{0xff, 0x9d, 0x97, 0xff},
	{0xff, 0x70, 0x1f, 0xff},
	{0xff, 0xb2, 0x1d, 0xff},
	{0xcf, 0xd2, 0x31, 0xff},
	{0x48, 0xf9, 0x0a, 0xff},
	{0x1a, 0x93, 0x34, 0xff},
	{0x00, 0xd4, 0xbb, 0xff},
	{0x2c, 0x99, 0xa8, 0xff},
	{0x00, 0xc2, 0xff, 0xff},
	{0x34, 0x45, 0x93, 0xff},
	{0x61, 0x75, 0xff, 0xff},
}

// labelColor gives every label a stable colour.
func labelColor(label string) color.RGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(label))
	return boxPalette[h.Sum32()%uint32(len(boxPalette))]
}

// Annotate returns a copy of img with each detection outlined and captioned
// with its label and confidence.
func Annotate(img image.Image, dets []Detection) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	face := basicfont.Face7x13
	for _, d := range dets {
		box := d.Box.Intersect(dst.Bounds())
		if box.Empty() {
			continue
		}
		c := labelColor(d.Label)
		strokeRect(dst, box, c)

		caption := fmt.Sprintf("%s %.2f", d.Label, d.Confidence)
		width := font.MeasureString(face, caption).Ceil() + 4
		height := face.Height + 2

		// Caption sits above the box, or inside it at the top edge.
		top := box.Min.Y - height
		if top < 0 {
			top = box.Min.Y
		}
		bg := image.Rect(box.Min.X, top, box.Min.X+width, top+height).Intersect(dst.Bounds())
		draw.Draw(dst, bg, &image.Uniform{c}, image.Point{}, draw.Src)

		drawer := &font.Drawer{
			Dst:  dst,
			Src:  image.White,
			Face: face,
			Dot:  fixed.P(bg.Min.X+2, bg.Min.Y+face.Ascent+1),
		}
		drawer.DrawString(caption)
	}
	return dst
}

func strokeRect(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	src := &image.Uniform{c}
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+boxStroke),
		image.Rect(r.Min.X, r.Max.Y-boxStroke, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+boxStroke, r.Max.Y),
		image.Rect(r.Max.X-boxStroke, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}
