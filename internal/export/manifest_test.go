package export

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/num/quat"

	"github.com/openarmap/capture/internal/capture"
	"github.com/openarmap/capture/internal/pose"
)

func TestFrameImageName(t *testing.T) {
	if got := frameImageName(0); got != "frame_000001.jpg" {
		t.Errorf("frameImageName(0) = %q", got)
	}
	if got := frameImageName(41); got != "frame_000042.jpg" {
		t.Errorf("frameImageName(41) = %q", got)
	}
}

func TestBuildManifest_FlipsYZ(t *testing.T) {
	frames := []*capture.CapturedFrame{{
		FrameID:     "f",
		TimestampMs: 7,
		Pose: pose.Pose{
			Translation: [3]float64{0.1, 0.2, 0.3},
			Rotation:    quat.Number{Real: 1},
		},
	}}

	m := buildManifest(frames)
	if len(m.Frames) != 1 {
		t.Fatalf("got %d frames", len(m.Frames))
	}
	got := m.Frames[0].TransformMatrix

	// Identity rotation with translation (0.1, 0.2, 0.3): after the
	// Y/Z row flip the translation reads (0.1, -0.2, -0.3) and the
	// diagonal reads (1, -1, -1, 1).
	want := [16]float64{
		1, 0, 0, 0.1,
		0, -1, 0, -0.2,
		0, 0, -1, -0.3,
		0, 0, 0, 1,
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("matrix[%d] = %v, want %v\nfull: %v", i, got[i], want[i], got)
		}
	}

	if m.Frames[0].FilePath != "images/frame_000001.jpg" {
		t.Errorf("FilePath = %q", m.Frames[0].FilePath)
	}
	if m.Frames[0].TimestampMs != 7 {
		t.Errorf("TimestampMs = %d", m.Frames[0].TimestampMs)
	}
}

func TestTrackLength(t *testing.T) {
	mkFrame := func(lat, lon float64) *capture.CapturedFrame {
		return &capture.CapturedFrame{GPS: capture.NewGPSLocation(lat, lon, 0, 5)}
	}

	// One degree of latitude is about 111.2 km; a millidegree about 111 m.
	frames := []*capture.CapturedFrame{
		mkFrame(52.0, 13.4),
		{}, // no fix, skipped
		mkFrame(52.001, 13.4),
	}
	got := TrackLength(frames)
	if got < 100 || got > 125 {
		t.Errorf("TrackLength = %v m, want roughly 111", got)
	}

	if l := TrackLength(frames[:1]); l != 0 {
		t.Errorf("single-fix track length = %v, want 0", l)
	}
	if l := TrackLength(nil); l != 0 {
		t.Errorf("empty track length = %v, want 0", l)
	}
}
