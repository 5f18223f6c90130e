package pose

import (
	"time"

	"gonum.org/v1/gonum/num/quat"
)

// ReferencePolicy selects which pose the delta estimator measures motion
// against.
type ReferencePolicy string

const (
	// RefObserved measures motion relative to the last observed frame,
	// whether or not that frame was kept.
	RefObserved ReferencePolicy = "observed"

	// RefAccepted measures motion relative to the last accepted frame, so
	// slow drift accumulates until it clears the cadence gate rather than
	// being reset by every rejected frame.
	RefAccepted ReferencePolicy = "accepted"
)

// IsValid reports whether p is a recognised reference policy.
func (p ReferencePolicy) IsValid() bool {
	return p == RefObserved || p == RefAccepted
}

// MotionSample is the per-frame relative motion derived from the current
// pose and the reference pose. It is created and discarded every frame.
type MotionSample struct {
	TranslationDelta [3]float64
	RotationDelta    quat.Number
	DT               time.Duration

	// First marks the first frame of a session, for which the deltas are
	// defined as zero translation and identity rotation. Callers must not
	// derive a quality penalty from a First sample.
	First bool
}

// DeltaEstimator tracks a reference pose and produces a MotionSample for
// each incoming frame. It is plain mutable state owned by the capture loop,
// not a shared global; it is not safe for concurrent use.
type DeltaEstimator struct {
	policy  ReferencePolicy
	ref     Pose
	refTime time.Time
	haveRef bool
}

// NewDeltaEstimator returns an estimator using the given reference policy.
// An unrecognised policy falls back to RefObserved.
func NewDeltaEstimator(policy ReferencePolicy) *DeltaEstimator {
	if !policy.IsValid() {
		policy = RefObserved
	}
	return &DeltaEstimator{policy: policy}
}

// Observe computes the motion of p relative to the current reference pose.
// Under RefObserved the reference advances to p on every call; under
// RefAccepted it advances only via Accept.
func (e *DeltaEstimator) Observe(p Pose, t time.Time) MotionSample {
	p = p.Normalized()

	if !e.haveRef {
		e.ref = p
		e.refTime = t
		e.haveRef = true
		return MotionSample{RotationDelta: quat.Number{Real: 1}, First: true}
	}

	s := MotionSample{
		TranslationDelta: [3]float64{
			p.Translation[0] - e.ref.Translation[0],
			p.Translation[1] - e.ref.Translation[1],
			p.Translation[2] - e.ref.Translation[2],
		},
		RotationDelta: RotationDelta(p, e.ref),
		DT:            t.Sub(e.refTime),
	}

	if e.policy == RefObserved {
		e.ref = p
		e.refTime = t
	}
	return s
}

// Accept records p as the reference pose for subsequent observations when
// the RefAccepted policy is active. It is a no-op under RefObserved, where
// Observe already advanced the reference.
func (e *DeltaEstimator) Accept(p Pose, t time.Time) {
	if e.policy != RefAccepted {
		return
	}
	e.ref = p.Normalized()
	e.refTime = t
	e.haveRef = true
}

// Reset clears the reference so the next Observe is treated as the first
// frame of a new session.
func (e *DeltaEstimator) Reset() {
	e.haveRef = false
}
