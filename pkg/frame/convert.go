package frame

import (
	"image"
	"image/color"
)

// FromImage wraps img as a frame. *image.YCbCr is used as is; anything
// else is converted to 4:2:0 YCbCr first.
func FromImage(img image.Image, rotation int, release func()) (*RawFrame, error) {
	if ycc, ok := img.(*image.YCbCr); ok {
		return FromYCbCr(ycc, rotation, release)
	}
	return FromYCbCr(toYCbCr(img), rotation, release)
}

func toYCbCr(img image.Image) *image.YCbCr {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			yy, cb, cr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			out.Y[out.YOffset(x, y)] = yy
			// Top-left sample of each 2x2 block feeds the chroma planes.
			if x%2 == 0 && y%2 == 0 {
				off := out.COffset(x, y)
				out.Cb[off] = cb
				out.Cr[off] = cr
			}
		}
	}
	return out
}
