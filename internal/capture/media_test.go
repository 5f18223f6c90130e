package capture

import (
	"bytes"
	"image/jpeg"
	"testing"

	"github.com/openarmap/capture/internal/fsutil"
)

func TestMediaDir_SaveImage(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	sink, err := NewMediaDir(mfs, "/sessions/abc/media", 85)
	if err != nil {
		t.Fatalf("NewMediaDir: %v", err)
	}

	name, err := sink.SaveImage("frame-1", sharpImage(16, 16))
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if name != "frame-1.jpg" {
		t.Errorf("name = %q, want frame-1.jpg", name)
	}

	data, err := mfs.ReadFile("/sessions/abc/media/frame-1.jpg")
	if err != nil {
		t.Fatalf("stored image missing: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("stored image is not a valid JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 16 {
		t.Errorf("stored image is %dx%d, want 16x16", b.Dx(), b.Dy())
	}
}

func TestMediaDir_DefaultQuality(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	sink, err := NewMediaDir(mfs, "/media", 0)
	if err != nil {
		t.Fatalf("NewMediaDir: %v", err)
	}
	if _, err := sink.SaveImage("frame-2", sharpImage(8, 8)); err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
}
