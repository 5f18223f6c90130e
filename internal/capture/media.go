package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"

	"github.com/openarmap/capture/internal/fsutil"
)

// MediaDir is the FrameSink that writes accepted frame images as JPEG
// files into a session media directory.
type MediaDir struct {
	fs      fsutil.FileSystem
	dir     string
	quality int
}

// NewMediaDir creates the media directory if needed and returns a sink
// writing into it. A jpegQuality of 0 selects the default quality.
func NewMediaDir(fs fsutil.FileSystem, dir string, jpegQuality int) (*MediaDir, error) {
	if jpegQuality <= 0 {
		jpegQuality = jpeg.DefaultQuality
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &MediaDir{fs: fs, dir: dir, quality: jpegQuality}, nil
}

// SaveImage encodes img as JPEG under the media directory and returns the
// stored filename relative to it.
func (m *MediaDir) SaveImage(frameID string, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: m.quality}); err != nil {
		return "", fmt.Errorf("encode frame %s: %w", frameID, err)
	}

	name := frameID + ".jpg"
	if err := m.fs.WriteFile(filepath.Join(m.dir, name), buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write frame %s: %w", frameID, err)
	}
	return name, nil
}
