package variant

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// placeholderSigma is the Gaussian blur applied to placeholders.
const placeholderSigma = 2.0

// ScaledSize returns the dimensions for width, preserving aspect ratio.
func ScaledSize(srcWidth, srcHeight, width int) (int, int) {
	if srcWidth <= 0 || width <= 0 {
		return 0, 0
	}
	height := (srcHeight*width + srcWidth/2) / srcWidth
	return width, max(height, 1)
}

// Resize downscales img to width with a Catmull-Rom filter. Widths at or above
// the source width return img unchanged.
func Resize(img image.Image, width int) image.Image {
	bounds := img.Bounds()
	if width >= bounds.Dx() {
		return img
	}
	w, h := ScaledSize(bounds.Dx(), bounds.Dy(), width)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

// Placeholder returns a tiny blurred rendition of img.
func Placeholder(img image.Image, width int) image.Image {
	small := Resize(img, width)
	return imaging.Blur(small, placeholderSigma)
}

// Flatten composites img onto an opaque background.
func Flatten(img image.Image, background color.Color) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Over)
	return dst
}
