package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/openarmap/capture/internal/capture"
	"github.com/openarmap/capture/internal/config"
	"github.com/openarmap/capture/internal/db"
	"github.com/openarmap/capture/internal/fsutil"
	"github.com/openarmap/capture/internal/monitoring"
	"github.com/openarmap/capture/internal/pose"
	"github.com/openarmap/capture/internal/timeutil"
)

// SessionReader fetches session metadata for export.
type SessionReader interface {
	GetSession(ctx context.Context, sessionID string) (*db.ScanSession, error)
}

// FrameReader fetches a session's frames in capture order.
type FrameReader interface {
	ListBySession(ctx context.Context, sessionID string) ([]*capture.CapturedFrame, error)
}

// Options selects the optional export artifacts.
type Options struct {
	// Thumbnails enables the thumbs/ directory; ThumbnailWidth is the
	// target width in pixels (height keeps the aspect ratio).
	Thumbnails     bool
	ThumbnailWidth int

	// Plot enables quality.png, Report enables report.html.
	Plot   bool
	Report bool
}

// OptionsFromTuning picks the thumbnail size from the tuning file with
// all optional artifacts enabled.
func OptionsFromTuning(cfg *config.TuningConfig) Options {
	return Options{
		Thumbnails:     true,
		ThumbnailWidth: cfg.GetThumbnailWidth(),
		Plot:           true,
		Report:         true,
	}
}

// Exporter writes scan sessions out as reconstruction datasets.
type Exporter struct {
	fs       fsutil.FileSystem
	sessions SessionReader
	frames   FrameReader

	// mediaDir is where the capture loop stored the session images.
	mediaDir string

	retries    int
	retryDelay time.Duration
	clock      timeutil.Clock
}

// NewExporter assembles an exporter. retries is the total number of
// attempts per Export call; values below 1 mean a single attempt.
func NewExporter(fs fsutil.FileSystem, sessions SessionReader, frames FrameReader, mediaDir string, retries int, retryDelay time.Duration, clock timeutil.Clock) *Exporter {
	if retries < 1 {
		retries = 1
	}
	return &Exporter{
		fs:         fs,
		sessions:   sessions,
		frames:     frames,
		mediaDir:   mediaDir,
		retries:    retries,
		retryDelay: retryDelay,
		clock:      clock,
	}
}

// Export writes the session's dataset to outDir. The dataset is staged
// into a sibling directory and renamed into place only when complete, so
// outDir either does not exist or holds a full export. Failed attempts
// remove their stage; the whole export is retried up to the configured
// attempt count.
func (e *Exporter) Export(ctx context.Context, sessionID, outDir string, opts Options) error {
	if e.fs.Exists(outDir) {
		return fmt.Errorf("export target %s already exists", outDir)
	}
	stage := outDir + ".partial"

	var err error
	for attempt := 1; attempt <= e.retries; attempt++ {
		if attempt > 1 {
			e.clock.Sleep(e.retryDelay)
		}
		err = e.exportOnce(ctx, sessionID, stage, outDir, opts)
		if err == nil {
			return nil
		}
		if cleanupErr := e.fs.RemoveAll(stage); cleanupErr != nil {
			monitoring.Logf("export: removing stage %s: %v", stage, cleanupErr)
		}
		if ctx.Err() != nil {
			break
		}
		monitoring.Logf("export: attempt %d/%d failed: %v", attempt, e.retries, err)
	}
	return fmt.Errorf("export session %s: %w", sessionID, err)
}

func (e *Exporter) exportOnce(ctx context.Context, sessionID, stage, outDir string, opts Options) error {
	session, err := e.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	frames, err := e.frames.ListBySession(ctx, sessionID)
	if err != nil {
		return err
	}

	usable := make([]*capture.CapturedFrame, 0, len(frames))
	for _, f := range frames {
		if !pose.IsValidTransformMatrix(f.Pose.TransformMatrix()) {
			monitoring.Logf("export: frame %s has a degenerate pose, skipping", f.FrameID)
			continue
		}
		usable = append(usable, f)
	}
	frames = usable
	if len(frames) == 0 {
		return fmt.Errorf("session %s has no exportable frames", sessionID)
	}

	if err := e.fs.RemoveAll(stage); err != nil {
		return fmt.Errorf("clear stage: %w", err)
	}
	if err := e.fs.MkdirAll(filepath.Join(stage, "images"), 0o755); err != nil {
		return fmt.Errorf("create stage: %w", err)
	}
	if opts.Thumbnails {
		if err := e.fs.MkdirAll(filepath.Join(stage, "thumbs"), 0o755); err != nil {
			return fmt.Errorf("create thumbs dir: %w", err)
		}
	}

	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := e.fs.ReadFile(filepath.Join(e.mediaDir, f.ImagePath))
		if err != nil {
			return fmt.Errorf("frame %s image: %w", f.FrameID, err)
		}
		name := frameImageName(i)
		if err := e.fs.WriteFile(filepath.Join(stage, "images", name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		if opts.Thumbnails {
			if err := e.writeThumbnail(filepath.Join(stage, "thumbs", name), data, opts.ThumbnailWidth); err != nil {
				return fmt.Errorf("thumbnail %s: %w", name, err)
			}
		}
	}

	manifest := buildManifest(frames)
	if err := e.writeJSON(filepath.Join(stage, "transforms.json"), manifest); err != nil {
		return err
	}
	if err := e.writeJSON(filepath.Join(stage, "session.json"), buildSummary(session, frames)); err != nil {
		return err
	}

	if opts.Plot {
		if err := WriteQualityPlot(e.fs, filepath.Join(stage, "quality.png"), frames); err != nil {
			return fmt.Errorf("quality plot: %w", err)
		}
	}
	if opts.Report {
		if err := WriteQualityReport(e.fs, filepath.Join(stage, "report.html"), session, frames); err != nil {
			return fmt.Errorf("quality report: %w", err)
		}
	}

	if err := e.fs.Rename(stage, outDir); err != nil {
		return fmt.Errorf("publish export: %w", err)
	}
	return nil
}

func (e *Exporter) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := e.fs.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeThumbnail decodes the stored JPEG and writes a downscaled copy.
func (e *Exporter) writeThumbnail(path string, jpegData []byte, width int) error {
	if width <= 0 {
		width = 320
	}
	src, err := jpeg.Decode(bytes.NewReader(jpegData))
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	b := src.Bounds()
	if b.Dx() <= width {
		// Already small enough; store as-is.
		return e.fs.WriteFile(path, jpegData, 0o644)
	}
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, nil); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return e.fs.WriteFile(path, buf.Bytes(), 0o644)
}
