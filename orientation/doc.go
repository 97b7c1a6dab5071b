// Package orientation provides the canonical orientation representation used
// by the spatialmix SDK and the conversions between quaternion and Euler-angle
// forms.
//
// The canonical representation is always a normalized quaternion. Euler angles
// exist only at the API boundary: an application may supply an orientation as
// pitch/yaw/roll degrees, but it is converted to a quaternion immediately and
// the quaternion is the only form ever compared or transmitted.
//
// Conversions are parameterized two ways:
//
//   - An [AxesConfiguration] binds pitch, yaw and roll to world axes with a
//     sign per axis. It is an explicit value passed into every conversion
//     call; there is no process-wide axis state.
//   - An [Order] selects one of the six sequences in which the per-axis
//     rotations are composed.
//
// # Gimbal lock
//
// When the middle rotation of the chosen order is near ±90°, the Euler
// decomposition is ambiguous. [EulerFromQuaternion] may report an equivalent
// but differently-signed triple in that region (for example pitch wrapping
// through 180° with yaw and roll both flipped by 180°). The reported triple
// always encodes the same rotation; callers that need stable comparisons
// should compare quaternions, not angles.
package orientation
