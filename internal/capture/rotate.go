package capture

import (
	"image"
)

// RotateToPortrait rotates img clockwise by deg (0, 90, 180, or 270) so a
// landscape sensor buffer ends up in portrait orientation. Unrecognised
// angles return the image unchanged.
func RotateToPortrait(img image.Image, deg int) image.Image {
	switch ((deg % 360) + 360) % 360 {
	case 90:
		return rotate90(img)
	case 180:
		return rotate90(rotate90(img))
	case 270:
		return rotate90(rotate90(rotate90(img)))
	default:
		return img
	}
}

// rotate90 returns a copy of img rotated 90 degrees clockwise.
func rotate90(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(h-1-y, x, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}
