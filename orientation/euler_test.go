package orientation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const angleTolerance = 1e-5

var allOrders = []Order{
	OrderPitchYawRoll,
	OrderYawPitchRoll,
	OrderRollPitchYaw,
	OrderRollYawPitch,
	OrderYawRollPitch,
	OrderPitchRollYaw,
}

// sameRotation reports whether two unit quaternions encode the same
// rotation (q and -q are the same rotation).
func sameRotation(a, b Quaternion) bool {
	dot := a.W*b.W + a.X*b.X + a.Y*b.Y + a.Z*b.Z
	return math.Abs(math.Abs(dot)-1) < 1e-9
}

// TestRoundTripAllOrders verifies euler -> quaternion -> euler for every
// composition order with angles away from the gimbal-lock boundary.
func TestRoundTripAllOrders(t *testing.T) {
	axes := DefaultAxesConfiguration()
	in := Euler{PitchDegrees: 30, YawDegrees: 45, RollDegrees: -60}

	for _, order := range allOrders {
		t.Run(order.String(), func(t *testing.T) {
			q := EulerToQuaternion(in, order, axes)
			out := EulerFromQuaternion(q, order, axes)
			assert.InDelta(t, in.PitchDegrees, out.PitchDegrees, angleTolerance, "pitch")
			assert.InDelta(t, in.YawDegrees, out.YawDegrees, angleTolerance, "yaw")
			assert.InDelta(t, in.RollDegrees, out.RollDegrees, angleTolerance, "roll")
		})
	}
}

// TestYawPitchRollPitch90 pins the documented reference values: a pure 90°
// pitch under YawPitchRoll yields (w≈0.7071, x≈0.7071, y=0, z=0) and
// decodes back to pitch 90, yaw 0, roll 0.
func TestYawPitchRollPitch90(t *testing.T) {
	axes := DefaultAxesConfiguration()
	q := EulerToQuaternion(Euler{PitchDegrees: 90}, OrderYawPitchRoll, axes)

	s := math.Sqrt(2) / 2
	require.InDelta(t, s, q.W, 1e-4)
	require.InDelta(t, s, q.X, 1e-4)
	require.InDelta(t, 0, q.Y, 1e-9)
	require.InDelta(t, 0, q.Z, 1e-9)

	out := EulerFromQuaternion(q, OrderYawPitchRoll, axes)
	assert.InDelta(t, 90, out.PitchDegrees, angleTolerance)
	assert.InDelta(t, 0, out.YawDegrees, angleTolerance)
	assert.InDelta(t, 0, out.RollDegrees, angleTolerance)
}

// TestGimbalLockDecompositionIsEquivalent verifies the documented behavior
// at the gimbal-lock boundary: the decoded triple may differ from the
// input, but re-encoding it yields the same rotation.
func TestGimbalLockDecompositionIsEquivalent(t *testing.T) {
	axes := DefaultAxesConfiguration()
	for _, order := range allOrders {
		t.Run(order.String(), func(t *testing.T) {
			in := Euler{PitchDegrees: 90, YawDegrees: 30, RollDegrees: -15}
			q := EulerToQuaternion(in, order, axes)
			out := EulerFromQuaternion(q, order, axes)
			q2 := EulerToQuaternion(out, order, axes)
			assert.True(t, sameRotation(q, q2),
				"decomposition %+v does not re-encode to the original rotation", out)
		})
	}
}

// TestNonFiniteAnglesClamped verifies that NaN and infinite angles are
// folded into the finite domain before use.
func TestNonFiniteAnglesClamped(t *testing.T) {
	axes := DefaultAxesConfiguration()

	qNaN := EulerToQuaternion(Euler{PitchDegrees: math.NaN()}, OrderYawPitchRoll, axes)
	assert.True(t, sameRotation(qNaN, IdentityQuaternion()), "NaN should clamp to 0")

	qInf := EulerToQuaternion(Euler{YawDegrees: math.Inf(1)}, OrderYawPitchRoll, axes)
	qFull := EulerToQuaternion(Euler{YawDegrees: maxEulerDegrees}, OrderYawPitchRoll, axes)
	assert.True(t, sameRotation(qInf, qFull), "+Inf should clamp to one full turn")
}

// TestUnwrappedAnglesCompose verifies that angles outside ±180 are used as
// given rather than wrapped.
func TestUnwrappedAnglesCompose(t *testing.T) {
	axes := DefaultAxesConfiguration()
	a := EulerToQuaternion(Euler{YawDegrees: 270}, OrderYawPitchRoll, axes)
	b := EulerToQuaternion(Euler{YawDegrees: -90}, OrderYawPitchRoll, axes)
	assert.True(t, sameRotation(a, b), "270° and -90° yaw should be the same rotation")
}

// TestLeftHandedConfiguration verifies that flipping one axis sign negates
// the observable rotation direction but still round-trips.
func TestLeftHandedConfiguration(t *testing.T) {
	axes := DefaultAxesConfiguration()
	axes.YawSign = -1
	require.NoError(t, axes.Validate())

	in := Euler{PitchDegrees: 10, YawDegrees: 40, RollDegrees: 5}
	q := EulerToQuaternion(in, OrderYawPitchRoll, axes)
	out := EulerFromQuaternion(q, OrderYawPitchRoll, axes)
	assert.InDelta(t, in.PitchDegrees, out.PitchDegrees, angleTolerance)
	assert.InDelta(t, in.YawDegrees, out.YawDegrees, angleTolerance)
	assert.InDelta(t, in.RollDegrees, out.RollDegrees, angleTolerance)

	// A negated yaw axis is exactly a negated yaw angle on the default axes.
	mirror := EulerToQuaternion(Euler{YawDegrees: -40, PitchDegrees: 10, RollDegrees: 5},
		OrderYawPitchRoll, DefaultAxesConfiguration())
	assert.True(t, sameRotation(q, mirror))
	qDefault := EulerToQuaternion(in, OrderYawPitchRoll, DefaultAxesConfiguration())
	assert.False(t, sameRotation(q, qDefault), "sign flip should change the rotation")
}
