package capture

import (
	"image"
	"image/color"
	"testing"
)

// cornerImage is 3x2 with a single red pixel at the top-left, so the
// rotated position of that pixel identifies the rotation applied.
func cornerImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.Set(x, y, color.RGBA{A: 255})
		}
	}
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	return img
}

func isRed(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r == 0xffff && g == 0 && b == 0
}

func TestRotateToPortrait(t *testing.T) {
	tests := []struct {
		deg          int
		wantW, wantH int
		redX, redY   int
	}{
		{0, 3, 2, 0, 0},
		{90, 2, 3, 1, 0},
		{180, 3, 2, 2, 1},
		{270, 2, 3, 0, 2},
		{360, 3, 2, 0, 0},
		{-90, 2, 3, 0, 2},
		{45, 3, 2, 0, 0}, // unsupported angle passes through
	}
	for _, tt := range tests {
		got := RotateToPortrait(cornerImage(), tt.deg)
		b := got.Bounds()
		if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
			t.Errorf("deg=%d: size %dx%d, want %dx%d", tt.deg, b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			continue
		}
		if !isRed(got.At(tt.redX, tt.redY)) {
			t.Errorf("deg=%d: marker pixel not at (%d,%d)", tt.deg, tt.redX, tt.redY)
		}
	}
}

func TestRotateToPortrait_ZeroIsIdentity(t *testing.T) {
	img := cornerImage()
	if got := RotateToPortrait(img, 0); got != img {
		t.Error("deg=0 should return the input image unchanged")
	}
}
