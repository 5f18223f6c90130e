package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/num/quat"

	"github.com/openarmap/capture/internal/capture"
	"github.com/openarmap/capture/internal/pose"
	"github.com/openarmap/capture/internal/quality"
)

func testFrame(sessionID string, ts int64) *capture.CapturedFrame {
	return &capture.CapturedFrame{
		FrameID:     fmt.Sprintf("%s-frame-%d", sessionID, ts),
		SessionID:   sessionID,
		TimestampMs: ts,
		Pose: pose.Pose{
			Translation: [3]float64{0.1, 0.2, 0.3},
			Rotation:    quat.Number{Real: 1},
		},
		GPS: capture.NewGPSLocation(52.52, 13.405, 34.5, 8.0),
		IMU: capture.IMUSample{
			Accel: [3]float64{0, 0, 9.81},
			Gyro:  [3]float64{0.01, 0, 0},
		},
		PoseConfidence: 1.0,
		Quality: quality.ImageQuality{
			BlurScore:     82.5,
			LightingScore: 74.0,
			FocusScore:    91.0,
			OverallScore:  82.5,
		},
		Exposure:  capture.ExposureInfo{ExposureMillis: 8.3, ISO: 200},
		ImagePath: fmt.Sprintf("media/frame-%d.jpg", ts),
	}
}

func TestFrameStore_InsertAndGet(t *testing.T) {
	database := newTestDB(t)
	sessions := NewSessionStore(database)
	frames := NewFrameStore(database)
	ctx := context.Background()

	session, err := sessions.CreateSession(ctx, SessionMeta{Name: "roundtrip"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	want := testFrame(session.SessionID, 1234)
	if err := frames.InsertFrame(ctx, want); err != nil {
		t.Fatalf("InsertFrame: %v", err)
	}

	got, err := frames.GetFrame(ctx, want.FrameID)
	if err != nil {
		t.Fatalf("GetFrame: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameStore_ListBySessionOrder(t *testing.T) {
	database := newTestDB(t)
	sessions := NewSessionStore(database)
	frames := NewFrameStore(database)
	ctx := context.Background()

	session, err := sessions.CreateSession(ctx, SessionMeta{Name: "ordered"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// Insert out of order; listing must come back by timestamp.
	for _, ts := range []int64{300, 100, 200} {
		if err := frames.InsertFrame(ctx, testFrame(session.SessionID, ts)); err != nil {
			t.Fatalf("InsertFrame(%d): %v", ts, err)
		}
	}

	got, err := frames.ListBySession(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d frames, want 3", len(got))
	}
	for i, wantTs := range []int64{100, 200, 300} {
		if got[i].TimestampMs != wantTs {
			t.Errorf("frame[%d].TimestampMs = %d, want %d", i, got[i].TimestampMs, wantTs)
		}
	}
}

func TestFrameStore_DuplicateFrameIDRejected(t *testing.T) {
	database := newTestDB(t)
	sessions := NewSessionStore(database)
	frames := NewFrameStore(database)
	ctx := context.Background()

	session, err := sessions.CreateSession(ctx, SessionMeta{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	f := testFrame(session.SessionID, 1)
	if err := frames.InsertFrame(ctx, f); err != nil {
		t.Fatalf("InsertFrame: %v", err)
	}
	if err := frames.InsertFrame(ctx, f); err == nil {
		t.Error("duplicate frame_id should be rejected")
	}
}

func TestFrameStore_GetMissing(t *testing.T) {
	frames := NewFrameStore(newTestDB(t))
	if _, err := frames.GetFrame(context.Background(), "nope"); err == nil {
		t.Error("missing frame should return an error")
	}
}

func TestFrameStore_CountBySession(t *testing.T) {
	database := newTestDB(t)
	sessions := NewSessionStore(database)
	frames := NewFrameStore(database)
	ctx := context.Background()

	session, err := sessions.CreateSession(ctx, SessionMeta{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	n, err := frames.CountBySession(ctx, session.SessionID)
	if err != nil || n != 0 {
		t.Fatalf("empty session count = %d, %v", n, err)
	}
	for i := int64(0); i < 4; i++ {
		if err := frames.InsertFrame(ctx, testFrame(session.SessionID, i)); err != nil {
			t.Fatalf("InsertFrame: %v", err)
		}
	}
	n, err = frames.CountBySession(ctx, session.SessionID)
	if err != nil || n != 4 {
		t.Errorf("count = %d, %v, want 4", n, err)
	}
}
