package capture

import (
	"testing"
	"time"

	"github.com/openarmap/capture/internal/quality"
	"github.com/openarmap/capture/internal/timeutil"
)

func testGateConfig() GateConfig {
	return GateConfig{
		Interval:         200 * time.Millisecond,
		MotionGate:       true,
		MinMotionQuality: 0.3,
		MinFrameQuality:  65.0,
	}
}

func TestGate_FirstAttemptImmediate(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := NewGate(testGateConfig(), clock)

	if !g.ShouldAttempt(TrackingGood, 1.0) {
		t.Fatal("first attempt should be allowed immediately")
	}
	if g.State() != GateCapturing {
		t.Errorf("state = %v, want capturing", g.State())
	}
}

func TestGate_EnforcesMinimumInterval(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := NewGate(testGateConfig(), clock)

	if !g.ShouldAttempt(TrackingGood, 1.0) {
		t.Fatal("first attempt blocked")
	}
	g.Complete()

	// Poll aggressively with perfect inputs; only polls at or past the
	// interval may transition.
	var attemptTimes []time.Time
	for i := 0; i < 100; i++ {
		clock.Advance(10 * time.Millisecond)
		if g.ShouldAttempt(TrackingGood, 1.0) {
			attemptTimes = append(attemptTimes, clock.Now())
			g.Complete()
		}
	}

	if len(attemptTimes) == 0 {
		t.Fatal("no attempts made in 1s of polling")
	}
	prev := time.Unix(0, 0)
	for _, at := range attemptTimes {
		if got := at.Sub(prev); got < 200*time.Millisecond {
			t.Fatalf("attempts %v apart, want >= 200ms", got)
		}
		prev = at
	}
}

func TestGate_NeverAttemptsWithoutGoodTracking(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := NewGate(testGateConfig(), clock)

	for i := 0; i < 50; i++ {
		clock.Advance(time.Second)
		if g.ShouldAttempt(TrackingPaused, 1.0) {
			t.Fatal("attempted with paused tracking")
		}
		if g.ShouldAttempt(TrackingLost, 1.0) {
			t.Fatal("attempted with lost tracking")
		}
	}
}

func TestGate_MotionGateVariants(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))

	gated := NewGate(testGateConfig(), clock)
	if gated.ShouldAttempt(TrackingGood, 0.2) {
		t.Error("motion 0.2 should be blocked by the 0.3 gate")
	}
	if !gated.ShouldAttempt(TrackingGood, 0.3) {
		t.Error("motion 0.3 should pass the gate")
	}

	cfg := testGateConfig()
	cfg.MotionGate = false
	ungated := NewGate(cfg, clock)
	if !ungated.ShouldAttempt(TrackingGood, 0.0) {
		t.Error("without the motion gate, zero motion quality should still attempt")
	}
}

func TestGate_NoReentryWhileCapturing(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := NewGate(testGateConfig(), clock)

	if !g.ShouldAttempt(TrackingGood, 1.0) {
		t.Fatal("first attempt blocked")
	}
	if g.ShouldAttempt(TrackingGood, 1.0) {
		t.Error("gate allowed a second candidate while capturing")
	}
	g.Complete()
	if g.State() != GateWaiting {
		t.Errorf("state after Complete = %v, want waiting", g.State())
	}
}

func TestGate_Accepts(t *testing.T) {
	g := NewGate(testGateConfig(), timeutil.NewMockClock(time.Unix(0, 0)))

	if g.Accepts(quality.ImageQuality{OverallScore: 64.9}) {
		t.Error("64.9 should be rejected at threshold 65")
	}
	if !g.Accepts(quality.ImageQuality{OverallScore: 65.0}) {
		t.Error("65.0 should be accepted at threshold 65")
	}
}
