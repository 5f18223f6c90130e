package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/openarmap/capture/internal/monitoring"
	"github.com/openarmap/capture/internal/pose"
	"github.com/openarmap/capture/internal/quality"
	"github.com/openarmap/capture/internal/timeutil"
)

// FrameSink stores the image bytes of an accepted frame and returns the
// path recorded in the database row.
type FrameSink interface {
	SaveImage(frameID string, img image.Image) (string, error)
}

// FrameStore persists accepted frames.
type FrameStore interface {
	InsertFrame(ctx context.Context, f *CapturedFrame) error
}

// LoopConfig assembles everything the capture loop needs for one session.
type LoopConfig struct {
	SessionID string
	PollDelay time.Duration
	Gate      GateConfig
	Motion    quality.MotionConfig
	Image     quality.ImageConfig
	RefPolicy pose.ReferencePolicy
}

// Stats counts what happened during a capture run.
type Stats struct {
	FramesSeen     int
	FramesGated    int
	FramesAccepted int
	FramesRejected int
	FrameErrors    int
}

// Loop is the sequential capture loop for one scan session. Frames are
// handled strictly one at a time; image scoring and persistence happen
// synchronously inside the loop. All per-frame failures are logged and the
// frame dropped, never escalated.
type Loop struct {
	cfg       LoopConfig
	source    FrameSource
	sink      FrameSink
	store     FrameStore
	location  LocationSource
	imu       IMUSource
	clock     timeutil.Clock
	gate      *Gate
	estimator *pose.DeltaEstimator
}

// NewLoop wires a capture loop. location and imu may be nil, in which case
// frames carry zero GPS and IMU values.
func NewLoop(cfg LoopConfig, source FrameSource, sink FrameSink, store FrameStore, location LocationSource, imu IMUSource, clock timeutil.Clock) *Loop {
	if location == nil {
		location = &LocationWatcher{}
	}
	if imu == nil {
		imu = StubIMU{}
	}
	return &Loop{
		cfg:       cfg,
		source:    source,
		sink:      sink,
		store:     store,
		location:  location,
		imu:       imu,
		clock:     clock,
		gate:      NewGate(cfg.Gate, clock),
		estimator: pose.NewDeltaEstimator(cfg.RefPolicy),
	}
}

// Run polls frames until the context is cancelled or the source is
// exhausted. Cancellation is observed between frames: an in-flight
// candidate completes or fails before the loop stops.
func (l *Loop) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	for {
		if ctx.Err() != nil {
			return stats, nil
		}

		frame, err := l.source.Next(ctx)
		if errors.Is(err, ErrSourceExhausted) {
			return stats, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return stats, nil
		}
		if err != nil {
			stats.FrameErrors++
			monitoring.Logf("capture: frame acquisition failed: %v", err)
			l.clock.Sleep(l.cfg.PollDelay)
			continue
		}

		stats.FramesSeen++

		// Frame-borne fixes advance the last-known location even when the
		// frame itself is gated away.
		if frame.GPS != nil {
			l.location.Update(*frame.GPS)
		}

		motion := l.estimator.Observe(frame.Pose, frame.Timestamp)
		motionScore := l.cfg.Motion.Score(motion)

		if !l.gate.ShouldAttempt(frame.Tracking, motionScore) {
			l.clock.Sleep(l.cfg.PollDelay)
			continue
		}

		stats.FramesGated++
		accepted, err := l.processCandidate(ctx, frame)
		if err != nil {
			stats.FrameErrors++
			monitoring.Logf("capture: dropped candidate frame: %v", err)
		}
		if accepted {
			stats.FramesAccepted++
			l.estimator.Accept(frame.Pose, frame.Timestamp)
		} else {
			stats.FramesRejected++
		}
		l.gate.Complete()

		l.clock.Sleep(l.cfg.PollDelay)
	}
}

// processCandidate scores one gated frame and persists it on acceptance.
// A false return with nil error means the frame was rejected on quality.
func (l *Loop) processCandidate(ctx context.Context, frame *SensorFrame) (bool, error) {
	if frame.Image == nil {
		return false, errors.New("frame has no image")
	}

	img := RotateToPortrait(frame.Image, frame.RotationDeg)

	q, err := l.cfg.Image.Score(img)
	if err != nil {
		return false, fmt.Errorf("score image: %w", err)
	}
	if !l.gate.Accepts(q) {
		return false, nil
	}

	captured := &CapturedFrame{
		FrameID:        uuid.New().String(),
		SessionID:      l.cfg.SessionID,
		TimestampMs:    frame.Timestamp.UnixMilli(),
		Pose:           frame.Pose.Normalized(),
		GPS:            l.location.Last(),
		IMU:            l.imu.Last(),
		PoseConfidence: frame.Tracking.Confidence(),
		Quality:        q,
		Exposure:       frame.Exposure,
	}

	path, err := l.sink.SaveImage(captured.FrameID, img)
	if err != nil {
		return false, fmt.Errorf("save image: %w", err)
	}
	captured.ImagePath = path

	if err := l.store.InsertFrame(ctx, captured); err != nil {
		return false, fmt.Errorf("persist frame: %w", err)
	}
	return true, nil
}
