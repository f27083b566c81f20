package lander

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// RotX returns the active rotation matrix about the first axis.
func RotX(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, c, -s, 0, s, c})
}

// RotY returns the active rotation matrix about the second axis.
func RotY(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{c, 0, s, 0, 1, 0, -s, 0, c})
}

// RotZ returns the active rotation matrix about the third axis.
func RotZ(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{c, -s, 0, s, c, 0, 0, 0, 1})
}

// EulerXYZ returns the body to world rotation for the provided XYZ Euler angles (in radians):
// the body is rotated about X first, then Y, then Z, i.e. R = Rz·Ry·Rx.
func EulerXYZ(orientation Vector) *mat.Dense {
	var zy, zyx mat.Dense
	zy.Mul(RotZ(orientation.Z), RotY(orientation.Y))
	zyx.Mul(&zy, RotX(orientation.X))
	return &zyx
}

// MxV33 multiplies a 3x3 matrix with a vector. Note that there is no dimension check!
func MxV33(m mat.Matrix, v Vector) Vector {
	var rVec mat.VecDense
	rVec.MulVec(m, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return Vector{X: rVec.AtVec(0), Y: rVec.AtVec(1), Z: rVec.AtVec(2)}
}

// ForwardAxis returns the world direction of the lander's body Z axis, along which the engine thrusts.
func ForwardAxis(orientation Vector) Vector {
	return MxV33(EulerXYZ(orientation), Vector{Z: 1})
}

// OrientationFromDirection returns XYZ Euler angles whose forward axis points along d.
// The roll about the forward axis is not observable from a direction, so the Z angle is always zero.
// The null direction returns the null orientation.
func OrientationFromDirection(d Vector) Vector {
	u := unit(d)
	if u == (Vector{}) {
		return Vector{}
	}
	// With a zero Z angle, ForwardAxis is (cos x sin y, -sin x, cos x cos y).
	return Vector{X: math.Asin(clamp(-u.Y, -1, 1)), Y: math.Atan2(u.X, u.Z)}
}
