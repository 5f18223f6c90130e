package pose

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// MatrixValidationTolerance is the tolerance for checking the rotation
// submatrix of a transform.
const MatrixValidationTolerance = 0.01

// TransformMatrix returns the pose as a 4x4 homogeneous transform in
// row-major order, the layout expected by the export manifest.
func (p Pose) TransformMatrix() [16]float64 {
	q := p.Normalized().Rotation
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	return [16]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y), p.Translation[0],
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x), p.Translation[1],
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y), p.Translation[2],
		0, 0, 0, 1,
	}
}

// FlipYZ converts a row-major transform from the AR device convention
// (Y up, Z toward the viewer) to the reconstruction tool convention by
// negating the Y and Z rows.
func FlipYZ(t [16]float64) [16]float64 {
	for i := 4; i < 12; i++ {
		t[i] = -t[i]
	}
	return t
}

// IsValidTransformMatrix checks that a row-major 4x4 matrix is a proper
// rigid transform: orthonormal rotation submatrix (det ≈ 1) and an affine
// last row of [0 0 0 1].
func IsValidTransformMatrix(t [16]float64) bool {
	for _, v := range t {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	r00, r01, r02 := t[0], t[1], t[2]
	r10, r11, r12 := t[4], t[5], t[6]
	r20, r21, r22 := t[8], t[9], t[10]

	det := r00*(r11*r22-r12*r21) - r01*(r10*r22-r12*r20) + r02*(r10*r21-r11*r20)
	if math.Abs(det-1.0) > MatrixValidationTolerance {
		return false
	}

	if t[12] != 0 || t[13] != 0 || t[14] != 0 || math.Abs(t[15]-1.0) > 0.001 {
		return false
	}
	return true
}

// FromAxisAngle builds a unit quaternion rotating by angle radians about
// the given axis. A zero axis yields the identity rotation.
func FromAxisAngle(ax, ay, az, angle float64) quat.Number {
	n := math.Sqrt(ax*ax + ay*ay + az*az)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	s := math.Sin(angle/2) / n
	return quat.Number{Real: math.Cos(angle / 2), Imag: ax * s, Jmag: ay * s, Kmag: az * s}
}
