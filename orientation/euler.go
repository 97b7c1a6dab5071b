package orientation

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Euler holds an orientation as pitch/yaw/roll angles in degrees.
//
// Angles are stored un-wrapped: callers may supply values outside ±180° and
// they compose exactly as given. Non-finite angles are clamped to the
// nearest boundary of one full turn before use (NaN becomes 0, ±Inf becomes
// ±360).
type Euler struct {
	PitchDegrees float64
	YawDegrees   float64
	RollDegrees  float64
}

// maxEulerDegrees bounds the clamp applied to non-finite angle inputs.
const maxEulerDegrees = 360.0

// clampDegrees folds a non-finite angle into the finite domain.
func clampDegrees(deg float64) float64 {
	switch {
	case math.IsNaN(deg):
		logrus.WithFields(logrus.Fields{
			"function": "clampDegrees",
			"value":    "NaN",
		}).Warn("Non-finite Euler angle clamped to 0")
		return 0
	case math.IsInf(deg, 1):
		return maxEulerDegrees
	case math.IsInf(deg, -1):
		return -maxEulerDegrees
	default:
		return deg
	}
}

// EulerToQuaternion converts Euler angles to the canonical quaternion form.
//
// Each angle produces an angle-axis rotation about its configured world
// axis; the three rotations are composed in the sequence selected by order.
// An invalid order falls back to OrderYawPitchRoll with a logged warning so
// that a caller always receives a usable quaternion.
func EulerToQuaternion(e Euler, order Order, axes AxesConfiguration) Quaternion {
	if !order.Valid() {
		logrus.WithFields(logrus.Fields{
			"function": "EulerToQuaternion",
			"order":    order,
		}).Warn("Unknown Euler order, using YawPitchRoll")
		order = OrderYawPitchRoll
	}

	qPitch := angleAxis(radians(clampDegrees(e.PitchDegrees)), axes.pitchVector())
	qYaw := angleAxis(radians(clampDegrees(e.YawDegrees)), axes.yawVector())
	qRoll := angleAxis(radians(clampDegrees(e.RollDegrees)), axes.rollVector())

	var q Quaternion
	switch order {
	case OrderPitchYawRoll:
		q = qPitch.Mul(qYaw).Mul(qRoll)
	case OrderYawPitchRoll:
		q = qYaw.Mul(qPitch).Mul(qRoll)
	case OrderRollPitchYaw:
		q = qRoll.Mul(qPitch).Mul(qYaw)
	case OrderRollYawPitch:
		q = qRoll.Mul(qYaw).Mul(qPitch)
	case OrderYawRollPitch:
		q = qYaw.Mul(qRoll).Mul(qPitch)
	case OrderPitchRollYaw:
		q = qPitch.Mul(qRoll).Mul(qYaw)
	}
	return q.normalize()
}

// EulerFromQuaternion decomposes a quaternion into Euler angles under the
// given order and axis configuration.
//
// Near the gimbal-lock boundary (middle rotation ≈ ±90°) the returned triple
// may be an equivalent but differently-signed decomposition of the same
// rotation; see the package documentation.
func EulerFromQuaternion(q Quaternion, order Order, axes AxesConfiguration) Euler {
	if !order.Valid() {
		logrus.WithFields(logrus.Fields{
			"function": "EulerFromQuaternion",
			"order":    order,
		}).Warn("Unknown Euler order, using YawPitchRoll")
		order = OrderYawPitchRoll
	}

	// Conjugate the rotation into the canonical frame where pitch, yaw and
	// roll are rotations about X, Y and Z. For a left-handed configuration
	// (basis determinant -1) the conjugation reverses rotation sense, so
	// the extracted angles are negated afterwards.
	basis, det := axes.basis()
	r := basis.transpose().mul(q.normalize().rotationMatrix()).mul(basis)

	pitch, yaw, roll := extractCanonical(r, order)
	if det < 0 {
		pitch, yaw, roll = -pitch, -yaw, -roll
	}
	return Euler{
		PitchDegrees: degrees(pitch),
		YawDegrees:   degrees(yaw),
		RollDegrees:  degrees(roll),
	}
}

// gimbalEpsilon is the margin inside which the middle rotation is treated as
// exactly ±90° and the degenerate extraction branch is taken.
const gimbalEpsilon = 1e-7

// extractCanonical performs the Tait-Bryan decomposition of r in the
// canonical frame (pitch about X, yaw about Y, roll about Z), returning
// radians.
func extractCanonical(r mat3, order Order) (pitch, yaw, roll float64) {
	switch order {
	case OrderPitchYawRoll: // Rx * Ry * Rz
		yaw = math.Asin(clampUnit(r[0][2]))
		if math.Abs(r[0][2]) < 1-gimbalEpsilon {
			pitch = math.Atan2(-r[1][2], r[2][2])
			roll = math.Atan2(-r[0][1], r[0][0])
		} else {
			pitch = math.Atan2(r[2][1], r[1][1])
			roll = 0
		}
	case OrderYawPitchRoll: // Ry * Rx * Rz
		pitch = math.Asin(-clampUnit(r[1][2]))
		if math.Abs(r[1][2]) < 1-gimbalEpsilon {
			yaw = math.Atan2(r[0][2], r[2][2])
			roll = math.Atan2(r[1][0], r[1][1])
		} else {
			yaw = math.Atan2(-r[2][0], r[0][0])
			roll = 0
		}
	case OrderRollPitchYaw: // Rz * Rx * Ry
		pitch = math.Asin(clampUnit(r[2][1]))
		if math.Abs(r[2][1]) < 1-gimbalEpsilon {
			yaw = math.Atan2(-r[2][0], r[2][2])
			roll = math.Atan2(-r[0][1], r[1][1])
		} else {
			yaw = 0
			roll = math.Atan2(r[1][0], r[0][0])
		}
	case OrderRollYawPitch: // Rz * Ry * Rx
		yaw = math.Asin(-clampUnit(r[2][0]))
		if math.Abs(r[2][0]) < 1-gimbalEpsilon {
			pitch = math.Atan2(r[2][1], r[2][2])
			roll = math.Atan2(r[1][0], r[0][0])
		} else {
			pitch = 0
			roll = math.Atan2(-r[0][1], r[1][1])
		}
	case OrderYawRollPitch: // Ry * Rz * Rx
		roll = math.Asin(clampUnit(r[1][0]))
		if math.Abs(r[1][0]) < 1-gimbalEpsilon {
			pitch = math.Atan2(-r[1][2], r[1][1])
			yaw = math.Atan2(-r[2][0], r[0][0])
		} else {
			pitch = 0
			yaw = math.Atan2(r[0][2], r[2][2])
		}
	case OrderPitchRollYaw: // Rx * Rz * Ry
		roll = math.Asin(-clampUnit(r[0][1]))
		if math.Abs(r[0][1]) < 1-gimbalEpsilon {
			pitch = math.Atan2(r[2][1], r[1][1])
			yaw = math.Atan2(r[0][2], r[0][0])
		} else {
			pitch = math.Atan2(-r[1][2], r[2][2])
			yaw = 0
		}
	}
	return pitch, yaw, roll
}

// clampUnit keeps asin arguments inside [-1, 1] against rounding drift.
func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
