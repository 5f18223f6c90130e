package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"gonum.org/v1/gonum/num/quat"

	"github.com/openarmap/capture/internal/pose"
)

func TestReplaySource_OrderAndExhaustion(t *testing.T) {
	frames := []*SensorFrame{
		{Timestamp: time.Unix(1, 0), Tracking: TrackingGood, Pose: pose.Pose{Rotation: quat.Number{Real: 1}}},
		{Timestamp: time.Unix(2, 0), Tracking: TrackingGood, Pose: pose.Pose{Rotation: quat.Number{Real: 1}}},
	}
	src := NewReplaySource(frames)
	ctx := context.Background()

	for i, want := range frames {
		got, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next[%d]: %v", i, err)
		}
		if got != want {
			t.Errorf("Next[%d] returned frame out of order", i)
		}
	}

	if _, err := src.Next(ctx); !errors.Is(err, ErrSourceExhausted) {
		t.Errorf("after last frame err = %v, want ErrSourceExhausted", err)
	}
}

func TestReplaySource_CloseExhausts(t *testing.T) {
	src := NewReplaySource([]*SensorFrame{{Tracking: TrackingGood}})
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, ErrSourceExhausted) {
		t.Errorf("Next after Close err = %v, want ErrSourceExhausted", err)
	}
}

func TestReplaySource_ContextCancelled(t *testing.T) {
	src := NewReplaySource([]*SensorFrame{{Tracking: TrackingGood}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next err = %v, want context.Canceled", err)
	}
}

func TestLocationWatcher(t *testing.T) {
	w := &LocationWatcher{}
	if !w.Last().IsZero() {
		t.Error("new watcher should report the zero location")
	}

	w.Update(NewGPSLocation(48.8584, 2.2945, 35, 8))
	got := w.Last()
	if got.Lat() != 48.8584 || got.Lon() != 2.2945 {
		t.Errorf("Last = (%v, %v)", got.Lat(), got.Lon())
	}
	if got.IsZero() {
		t.Error("updated location reported as zero")
	}
}

func TestTrackingStateConfidence(t *testing.T) {
	tests := []struct {
		state TrackingState
		want  float64
	}{
		{TrackingGood, 1.0},
		{TrackingPaused, 0.5},
		{TrackingLost, 0},
		{TrackingState("bogus"), 0},
	}
	for _, tt := range tests {
		if got := tt.state.Confidence(); got != tt.want {
			t.Errorf("Confidence(%q) = %v, want %v", tt.state, got, tt.want)
		}
	}
	if TrackingState("bogus").IsValid() {
		t.Error("bogus state reported valid")
	}
}
