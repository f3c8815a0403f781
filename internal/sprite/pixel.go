package sprite

import (
	"image"
	"image/color"

	// decoders for downloaded thumbnails
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Pixelate shrinks src to width pixels wide, keeping the aspect ratio, and
// enlarges the result by scale. Both steps use nearest-neighbour sampling so
// the output keeps hard pixel edges.
func Pixelate(src image.Image, width, scale int) *image.NRGBA {
	b := src.Bounds()
	if b.Empty() {
		return image.NewNRGBA(image.Rectangle{})
	}
	if width <= 0 {
		width = 1
	}
	if scale <= 0 {
		scale = 1
	}
	height := max(int(float64(width)*float64(b.Dy())/float64(b.Dx())), 1)

	small := resizeNearest(src, width, height)
	return resizeNearest(small, width*scale, height*scale)
}

func resizeNearest(src image.Image, w, h int) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		sy := b.Min.Y + min((2*y+1)*b.Dy()/(2*h), b.Dy()-1)
		for x := range w {
			sx := b.Min.X + min((2*x+1)*b.Dx()/(2*w), b.Dx()-1)
			dst.Set(x, y, color.NRGBAModel.Convert(src.At(sx, sy)))
		}
	}
	return dst
}
