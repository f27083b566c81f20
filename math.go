package lander

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	deg2rad = math.Pi / 180
	// zeroε is the norm below which a vector is treated as the null vector.
	zeroε = 1e-12
)

// Vector is a three dimensional vector in the body centred inertial frame (SI units).
type Vector = r3.Vec

// NewVector returns a new vector from its components.
func NewVector(x, y, z float64) Vector {
	return Vector{X: x, Y: y, Z: z}
}

// norm returns the norm of a given vector.
func norm(v Vector) float64 {
	return r3.Norm(v)
}

// unit returns the unit vector of a given vector, or the null vector if v is null.
func unit(v Vector) Vector {
	n := r3.Norm(v)
	if scalar.EqualWithinAbs(n, 0, zeroε) {
		return Vector{}
	}
	return r3.Scale(1/n, v)
}

// radialComponent returns the signed component of v along the unit vector up.
func radialComponent(v, up Vector) float64 {
	return r3.Dot(v, up)
}

// tangential returns the component of v orthogonal to the unit vector up.
func tangential(v, up Vector) Vector {
	return r3.Sub(v, r3.Scale(r3.Dot(v, up), up))
}

// clamp bounds x to [lo, hi].
func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// controlFunction is a saturating linear ramp through (x1, y1) and (x2, y2):
// it returns y1 for x <= x1, y2 for x >= x2 and interpolates in between.
func controlFunction(x, x1, y1, x2, y2 float64) float64 {
	if x <= x1 {
		return y1
	}
	if x >= x2 {
		return y2
	}
	return y1 + (x-x1)*(y2-y1)/(x2-x1)
}

// Deg2rad converts an angle in degrees to radians wrapped to [0, 2π).
func Deg2rad(a float64) float64 {
	return wrap(a*deg2rad, 2*math.Pi)
}

// Rad2deg converts an angle in radians to degrees wrapped to [0, 360).
func Rad2deg(a float64) float64 {
	return wrap(a/deg2rad, 360)
}

// wrap brings a into [0, period).
func wrap(a, period float64) float64 {
	a = math.Mod(a, period)
	if a < 0 {
		a += period
	}
	return a
}
