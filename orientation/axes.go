package orientation

import "fmt"

// Axis identifies one of the three world axes.
type Axis uint8

const (
	// AxisX is the world X axis.
	AxisX Axis = iota
	// AxisY is the world Y axis.
	AxisY
	// AxisZ is the world Z axis.
	AxisZ
)

// String returns a human-readable name for the axis.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	default:
		return fmt.Sprintf("Axis(%d)", uint8(a))
	}
}

// Order selects the sequence in which the pitch, yaw and roll rotations are
// composed into a single orientation.
type Order uint8

const (
	// OrderPitchYawRoll composes pitch, then yaw, then roll.
	OrderPitchYawRoll Order = iota
	// OrderYawPitchRoll composes yaw, then pitch, then roll.
	OrderYawPitchRoll
	// OrderRollPitchYaw composes roll, then pitch, then yaw.
	OrderRollPitchYaw
	// OrderRollYawPitch composes roll, then yaw, then pitch.
	OrderRollYawPitch
	// OrderYawRollPitch composes yaw, then roll, then pitch.
	OrderYawRollPitch
	// OrderPitchRollYaw composes pitch, then roll, then yaw.
	OrderPitchRollYaw
)

// String returns a human-readable name for the rotation order.
func (o Order) String() string {
	switch o {
	case OrderPitchYawRoll:
		return "PitchYawRoll"
	case OrderYawPitchRoll:
		return "YawPitchRoll"
	case OrderRollPitchYaw:
		return "RollPitchYaw"
	case OrderRollYawPitch:
		return "RollYawPitch"
	case OrderYawRollPitch:
		return "YawRollPitch"
	case OrderPitchRollYaw:
		return "PitchRollYaw"
	default:
		return fmt.Sprintf("Order(%d)", uint8(o))
	}
}

// Valid reports whether o is one of the six supported rotation orders.
func (o Order) Valid() bool {
	return o <= OrderPitchRollYaw
}

// AxesConfiguration binds the pitch, yaw and roll rotations to world axes.
//
// Each rotation is performed about the named world axis scaled by the
// matching sign (+1 or -1), which is how left-handed coordinate conventions
// are expressed. The configuration is an explicit value handed to every
// conversion call; conversions never consult shared state.
type AxesConfiguration struct {
	PitchAxis Axis
	YawAxis   Axis
	RollAxis  Axis

	PitchSign int
	YawSign   int
	RollSign  int
}

// DefaultAxesConfiguration returns the right-handed Y-up configuration used
// by the mixer service: pitch about +X, yaw about +Y, roll about +Z.
func DefaultAxesConfiguration() AxesConfiguration {
	return AxesConfiguration{
		PitchAxis: AxisX,
		YawAxis:   AxisY,
		RollAxis:  AxisZ,
		PitchSign: 1,
		YawSign:   1,
		RollSign:  1,
	}
}

// Validate checks that the configuration names three distinct axes with
// signs of exactly +1 or -1. A failed validation wraps
// ErrInvalidAxisConfiguration.
func (c AxesConfiguration) Validate() error {
	for _, a := range []Axis{c.PitchAxis, c.YawAxis, c.RollAxis} {
		if a > AxisZ {
			return fmt.Errorf("%w: unknown axis %s", ErrInvalidAxisConfiguration, a)
		}
	}
	if c.PitchAxis == c.YawAxis || c.PitchAxis == c.RollAxis || c.YawAxis == c.RollAxis {
		return fmt.Errorf("%w: pitch/yaw/roll axes must be distinct (got %s/%s/%s)",
			ErrInvalidAxisConfiguration, c.PitchAxis, c.YawAxis, c.RollAxis)
	}
	for _, s := range []int{c.PitchSign, c.YawSign, c.RollSign} {
		if s != 1 && s != -1 {
			return fmt.Errorf("%w: axis signs must be +1 or -1 (got %d)",
				ErrInvalidAxisConfiguration, s)
		}
	}
	return nil
}

// pitchVector returns the signed unit vector of the pitch rotation axis.
func (c AxesConfiguration) pitchVector() vec3 { return signedAxis(c.PitchAxis, c.PitchSign) }

// yawVector returns the signed unit vector of the yaw rotation axis.
func (c AxesConfiguration) yawVector() vec3 { return signedAxis(c.YawAxis, c.YawSign) }

// rollVector returns the signed unit vector of the roll rotation axis.
func (c AxesConfiguration) rollVector() vec3 { return signedAxis(c.RollAxis, c.RollSign) }

type vec3 [3]float64

func signedAxis(a Axis, sign int) vec3 {
	var v vec3
	v[int(a)] = float64(sign)
	return v
}

// basis returns the change-of-basis matrix whose columns are the signed
// pitch, yaw and roll axis vectors, together with its determinant (+1 for a
// right-handed configuration, -1 for a left-handed one).
func (c AxesConfiguration) basis() (mat3, float64) {
	p, y, r := c.pitchVector(), c.yawVector(), c.rollVector()
	var m mat3
	for i := 0; i < 3; i++ {
		m[i][0] = p[i]
		m[i][1] = y[i]
		m[i][2] = r[i]
	}
	det := m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
	return m, det
}

type mat3 [3][3]float64

func (m mat3) transpose() mat3 {
	var t mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = m[j][i]
		}
	}
	return t
}

func (m mat3) mul(n mat3) mat3 {
	var out mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[i][0]*n[0][j] + m[i][1]*n[1][j] + m[i][2]*n[2][j]
		}
	}
	return out
}
