package orientation

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Quaternion is the canonical orientation representation.
//
// Instances produced by this package are always normalized and always carry
// finite components. Construct values through NewQuaternion so that
// out-of-domain inputs are clamped rather than propagated.
type Quaternion struct {
	W float64
	X float64
	Y float64
	Z float64
}

// IdentityQuaternion returns the no-rotation quaternion.
func IdentityQuaternion() Quaternion {
	return Quaternion{W: 1}
}

// NewQuaternion builds a normalized quaternion from raw components.
//
// Non-finite components are clamped to the nearest finite boundary of the
// unit-quaternion domain (NaN becomes 0, ±Inf becomes ±1) before
// normalization. An all-zero input yields the identity quaternion.
func NewQuaternion(w, x, y, z float64) Quaternion {
	q := Quaternion{
		W: clampComponent(w),
		X: clampComponent(x),
		Y: clampComponent(y),
		Z: clampComponent(z),
	}
	return q.normalize()
}

// clampComponent folds a non-finite quaternion component into [-1, 1].
func clampComponent(v float64) float64 {
	switch {
	case math.IsNaN(v):
		logrus.WithFields(logrus.Fields{
			"function": "clampComponent",
			"value":    "NaN",
		}).Warn("Non-finite quaternion component clamped to 0")
		return 0
	case math.IsInf(v, 1):
		return 1
	case math.IsInf(v, -1):
		return -1
	default:
		return v
	}
}

func (q Quaternion) normalize() Quaternion {
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if n == 0 {
		return IdentityQuaternion()
	}
	return Quaternion{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// Mul returns the Hamilton product q*r, the rotation r followed by q in the
// fixed world frame.
func (q Quaternion) Mul(r Quaternion) Quaternion {
	return Quaternion{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

// angleAxis builds the quaternion rotating by rad radians about the unit
// axis u.
func angleAxis(rad float64, u vec3) Quaternion {
	half := rad / 2
	s := math.Sin(half)
	return Quaternion{
		W: math.Cos(half),
		X: u[0] * s,
		Y: u[1] * s,
		Z: u[2] * s,
	}
}

// rotationMatrix expands the quaternion into a 3x3 rotation matrix.
func (q Quaternion) rotationMatrix() mat3 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return mat3{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}
