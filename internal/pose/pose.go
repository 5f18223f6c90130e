// Package pose provides the 6-DoF camera pose types and the inter-frame
// delta math used by the capture quality gate.
package pose

import (
	"math"

	"gonum.org/v1/gonum/num/quat"

	"github.com/openarmap/capture/internal/units"
)

// Pose is a 6-DoF rigid transform of the camera in the local AR reference
// frame: a translation in meters and a unit rotation quaternion.
type Pose struct {
	Translation [3]float64
	Rotation    quat.Number
}

// Identity returns a pose at the origin with no rotation.
func Identity() Pose {
	return Pose{Rotation: quat.Number{Real: 1}}
}

// Normalized returns the pose with its rotation scaled to unit length.
// A zero-magnitude rotation is replaced by the identity quaternion rather
// than dividing by zero.
func (p Pose) Normalized() Pose {
	mag := quat.Abs(p.Rotation)
	if mag == 0 {
		p.Rotation = quat.Number{Real: 1}
		return p
	}
	p.Rotation = quat.Scale(1/mag, p.Rotation)
	return p
}

// TranslationDistance returns the Euclidean distance in meters between the
// translations of two poses.
func TranslationDistance(a, b Pose) float64 {
	dx := a.Translation[0] - b.Translation[0]
	dy := a.Translation[1] - b.Translation[1]
	dz := a.Translation[2] - b.Translation[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// RotationDelta returns the relative rotation taking b's orientation to a's,
// computed as a.Rotation ⊗ conj(b.Rotation). For unit quaternions the
// conjugate is the inverse, so no division is involved. The result is
// re-normalized to unit length.
func RotationDelta(a, b Pose) quat.Number {
	d := quat.Mul(a.Rotation, quat.Conj(b.Rotation))
	mag := quat.Abs(d)
	if mag == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/mag, d)
}

// AngleDegrees returns the rotation angle of a unit quaternion in degrees,
// computed as 2·acos(|w|). Values of |w| at or above 1 clamp to zero so
// floating point drift never produces a NaN.
func AngleDegrees(q quat.Number) float64 {
	w := math.Abs(q.Real)
	if w >= 1 {
		return 0
	}
	return units.RadToDeg(2 * math.Acos(w))
}
