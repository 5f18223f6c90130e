package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"math/rand"
	"testing"
	"time"

	"gonum.org/v1/gonum/num/quat"

	"github.com/openarmap/capture/internal/capture"
	"github.com/openarmap/capture/internal/db"
	"github.com/openarmap/capture/internal/fsutil"
	"github.com/openarmap/capture/internal/pose"
	"github.com/openarmap/capture/internal/quality"
	"github.com/openarmap/capture/internal/timeutil"
)

type fakeSessions struct {
	session *db.ScanSession
	err     error
}

func (f *fakeSessions) GetSession(ctx context.Context, sessionID string) (*db.ScanSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type fakeFrames struct {
	frames []*capture.CapturedFrame
	err    error
	calls  int
}

func (f *fakeFrames) ListBySession(ctx context.Context, sessionID string) ([]*capture.CapturedFrame, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.frames, nil
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(3))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func exportFixture(t *testing.T, n int) (*fakeSessions, *fakeFrames, *fsutil.MemoryFileSystem) {
	t.Helper()
	end := int64(5000)
	sessions := &fakeSessions{session: &db.ScanSession{
		SessionID:   "sess-1",
		Name:        "living room",
		DeviceModel: "Pixel 8",
		ScanType:    "walkthrough",
		StartedAtMs: 1000,
		EndedAtMs:   &end,
	}}

	mfs := fsutil.NewMemoryFileSystem()
	frames := &fakeFrames{}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("frame-%d.jpg", i)
		if err := mfs.WriteFile("/media/"+name, jpegBytes(t, 64, 48), 0o644); err != nil {
			t.Fatal(err)
		}
		frames.frames = append(frames.frames, &capture.CapturedFrame{
			FrameID:     fmt.Sprintf("frame-%d", i),
			SessionID:   "sess-1",
			TimestampMs: int64(1000 + 200*i),
			Pose: pose.Pose{
				Translation: [3]float64{float64(i) * 0.01, 0, 0},
				Rotation:    quat.Number{Real: 1},
			},
			GPS:            capture.NewGPSLocation(52.5+0.0001*float64(i), 13.4, 30, 5),
			PoseConfidence: 1.0,
			Quality:        quality.ImageQuality{BlurScore: 80, LightingScore: 70, FocusScore: 90, OverallScore: 80},
			ImagePath:      name,
		})
	}
	return sessions, frames, mfs
}

func newTestExporter(sessions *fakeSessions, frames *fakeFrames, mfs *fsutil.MemoryFileSystem, retries int) *Exporter {
	return NewExporter(mfs, sessions, frames, "/media", retries, time.Second,
		timeutil.NewMockClock(time.Unix(0, 0)))
}

func TestExport_RoundTrip(t *testing.T) {
	sessions, frames, mfs := exportFixture(t, 5)
	e := newTestExporter(sessions, frames, mfs, 1)

	opts := Options{Thumbnails: true, ThumbnailWidth: 32, Plot: true, Report: true}
	if err := e.Export(context.Background(), "sess-1", "/out/dataset", opts); err != nil {
		t.Fatalf("Export: %v", err)
	}

	data, err := mfs.ReadFile("/out/dataset/transforms.json")
	if err != nil {
		t.Fatalf("transforms.json missing: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("parse transforms.json: %v", err)
	}
	if len(manifest.Frames) != 5 {
		t.Fatalf("manifest has %d frames, want 5", len(manifest.Frames))
	}
	for i, mf := range manifest.Frames {
		if !mfs.Exists("/out/dataset/" + mf.FilePath) {
			t.Errorf("manifest frame %d references missing image %s", i, mf.FilePath)
		}
		if !mfs.Exists("/out/dataset/thumbs/" + frameImageName(i)) {
			t.Errorf("thumbnail %d missing", i)
		}
		if mf.Quality.FrameQuality != 80 {
			t.Errorf("frame %d quality = %v", i, mf.Quality.FrameQuality)
		}
	}

	// Translation along X with the Y and Z rows negated: X row intact.
	second := manifest.Frames[1].TransformMatrix
	if second[3] != 0.01 {
		t.Errorf("frame 1 tx = %v, want 0.01", second[3])
	}

	data, err = mfs.ReadFile("/out/dataset/session.json")
	if err != nil {
		t.Fatalf("session.json missing: %v", err)
	}
	var summary SessionSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("parse session.json: %v", err)
	}
	if summary.FrameCount != 5 || summary.SessionID != "sess-1" {
		t.Errorf("summary = %+v", summary)
	}
	if summary.TrackLengthM <= 0 {
		t.Errorf("TrackLengthM = %v, want > 0", summary.TrackLengthM)
	}

	if !mfs.Exists("/out/dataset/quality.png") {
		t.Error("quality.png missing")
	}
	if !mfs.Exists("/out/dataset/report.html") {
		t.Error("report.html missing")
	}
	if mfs.Exists("/out/dataset.partial") {
		t.Error("stage directory left behind after success")
	}
}

func TestExport_SkipsDegeneratePoses(t *testing.T) {
	sessions, frames, mfs := exportFixture(t, 3)
	frames.frames[1].Pose.Translation[0] = math.NaN()
	e := newTestExporter(sessions, frames, mfs, 1)

	if err := e.Export(context.Background(), "sess-1", "/out/dataset", Options{}); err != nil {
		t.Fatalf("Export: %v", err)
	}

	data, err := mfs.ReadFile("/out/dataset/transforms.json")
	if err != nil {
		t.Fatalf("transforms.json missing: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("parse transforms.json: %v", err)
	}
	if len(manifest.Frames) != 2 {
		t.Fatalf("manifest has %d frames, want 2 after skipping the bad pose", len(manifest.Frames))
	}
	if mfs.Exists("/out/dataset/images/" + frameImageName(2)) {
		t.Error("skipped frame should not leave a third numbered image")
	}
}

func TestExport_MissingSourceImageAborts(t *testing.T) {
	sessions, frames, mfs := exportFixture(t, 3)
	if err := mfs.Remove("/media/frame-1.jpg"); err != nil {
		t.Fatal(err)
	}
	e := newTestExporter(sessions, frames, mfs, 1)

	err := e.Export(context.Background(), "sess-1", "/out/dataset", Options{})
	if err == nil {
		t.Fatal("export with a missing source image should fail")
	}
	if mfs.Exists("/out/dataset") {
		t.Error("failed export published a dataset")
	}
	if mfs.Exists("/out/dataset.partial") {
		t.Error("failed export left its stage behind")
	}
}

func TestExport_RetriesWholeOperation(t *testing.T) {
	sessions, frames, mfs := exportFixture(t, 1)
	frames.err = errors.New("storage offline")
	e := newTestExporter(sessions, frames, mfs, 3)

	if err := e.Export(context.Background(), "sess-1", "/out/dataset", Options{}); err == nil {
		t.Fatal("export should fail when frames cannot be read")
	}
	if frames.calls != 3 {
		t.Errorf("frames read %d times, want 3 attempts", frames.calls)
	}
}

func TestExport_EmptySessionFails(t *testing.T) {
	sessions, frames, mfs := exportFixture(t, 0)
	e := newTestExporter(sessions, frames, mfs, 1)

	if err := e.Export(context.Background(), "sess-1", "/out/dataset", Options{}); err == nil {
		t.Error("exporting a session with no frames should fail")
	}
}

func TestExport_RefusesExistingTarget(t *testing.T) {
	sessions, frames, mfs := exportFixture(t, 1)
	if err := mfs.MkdirAll("/out/dataset", 0o755); err != nil {
		t.Fatal(err)
	}
	e := newTestExporter(sessions, frames, mfs, 1)

	if err := e.Export(context.Background(), "sess-1", "/out/dataset", Options{}); err == nil {
		t.Error("export over an existing target should fail")
	}
}
