package capture

import (
	"time"

	"github.com/openarmap/capture/internal/config"
	"github.com/openarmap/capture/internal/quality"
	"github.com/openarmap/capture/internal/timeutil"
)

// GateState is the cadence controller's current phase.
type GateState string

const (
	// GateWaiting means the controller is between capture attempts.
	GateWaiting GateState = "waiting"
	// GateCapturing means one candidate frame is being processed. Frame
	// processing is synchronous, so the controller never holds more than
	// one candidate.
	GateCapturing GateState = "capturing"
)

// GateConfig holds the cadence and acceptance thresholds.
type GateConfig struct {
	// Interval is the minimum time between capture attempts, accepted or
	// not.
	Interval time.Duration

	// MotionGate enables the motion quality precondition. When false only
	// the interval and tracking state gate the attempt, and image quality
	// alone decides acceptance.
	MotionGate       bool
	MinMotionQuality float64

	// MinFrameQuality is the image quality acceptance threshold (0-100).
	MinFrameQuality float64
}

// GateConfigFromTuning copies the gate thresholds out of the tuning file.
func GateConfigFromTuning(cfg *config.TuningConfig) GateConfig {
	return GateConfig{
		Interval:         cfg.GetCaptureInterval(),
		MotionGate:       cfg.GetMotionGateEnabled(),
		MinMotionQuality: cfg.GetMinMotionQuality(),
		MinFrameQuality:  cfg.GetMinFrameQuality(),
	}
}

// Gate is the two-state capture cadence controller. It is owned by a
// single capture loop and is not safe for concurrent use.
type Gate struct {
	cfg   GateConfig
	clock timeutil.Clock

	state       GateState
	lastAttempt time.Time
	armed       bool
}

// NewGate returns a gate in the WAITING state.
func NewGate(cfg GateConfig, clock timeutil.Clock) *Gate {
	return &Gate{cfg: cfg, clock: clock, state: GateWaiting}
}

// State returns the current gate state.
func (g *Gate) State() GateState {
	return g.state
}

// ShouldAttempt decides the WAITING to CAPTURING transition for one polled
// frame: tracking must be good, the configured interval must have elapsed
// since the last attempt, and, when the motion gate is active, motion
// quality must clear its minimum. On a true result the gate moves to
// CAPTURING and the caller must invoke Complete exactly once.
func (g *Gate) ShouldAttempt(tracking TrackingState, motionQuality float64) bool {
	if g.state != GateWaiting {
		return false
	}
	if tracking != TrackingGood {
		return false
	}
	if g.armed && g.clock.Since(g.lastAttempt) < g.cfg.Interval {
		return false
	}
	if g.cfg.MotionGate && motionQuality < g.cfg.MinMotionQuality {
		return false
	}
	g.state = GateCapturing
	return true
}

// Accepts reports whether a scored candidate clears the image quality
// threshold.
func (g *Gate) Accepts(q quality.ImageQuality) bool {
	return q.OverallScore >= g.cfg.MinFrameQuality
}

// Complete finishes processing one candidate frame, accepted or rejected,
// returning the gate to WAITING and resetting the interval timer to now.
func (g *Gate) Complete() {
	g.state = GateWaiting
	g.lastAttempt = g.clock.Now()
	g.armed = true
}
