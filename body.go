package lander

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// GravitationalConstant is G in m^3/kg/s^2.
	GravitationalConstant = 6.673e-11
)

var (
	// ErrDivideByZero is returned when gravity is evaluated at the body centre.
	ErrDivideByZero = errors.New("division by zero")
)

// CelestialBody defines the central body, its atmosphere and its rotation.
type CelestialBody struct {
	Name           string
	Radius         float64 // m
	Mass           float64 // kg
	Day            float64 // sidereal rotation period (s), about the Z axis
	Exosphere      float64 // altitude above which there is no atmosphere (m)
	SurfaceDensity float64 // kg/m^3
	ScaleHeight    float64 // m
}

// Mars is the reference body.
var Mars = CelestialBody{
	Name:           "Mars",
	Radius:         3386000.0,
	Mass:           6.42e23,
	Day:            88642.65,
	Exosphere:      200000.0,
	SurfaceDensity: 0.017,
	ScaleHeight:    11000.0,
}

// String implements the Stringer interface.
func (c CelestialBody) String() string {
	return c.Name + " body"
}

// GM returns μ.
func (c CelestialBody) GM() float64 {
	return GravitationalConstant * c.Mass
}

// SurfaceGravity returns the magnitude of the gravitational acceleration at the surface.
func (c CelestialBody) SurfaceGravity() float64 {
	return c.GM() / (c.Radius * c.Radius)
}

// RotationRate returns the angular velocity of the body (rad/s).
func (c CelestialBody) RotationRate() float64 {
	if c.Day == 0 {
		return 0
	}
	return 2 * math.Pi / c.Day
}

// Altitude returns the height of pos above the mean surface.
func (c CelestialBody) Altitude(pos Vector) float64 {
	return norm(pos) - c.Radius
}

// Up returns the local vertical at pos.
func (c CelestialBody) Up(pos Vector) Vector {
	return unit(pos)
}

// AtmosphericDensity returns the density of the atmosphere at pos.
// The exponential profile is shifted so that it vanishes exactly at the exosphere
// and equals the surface density at the surface.
func (c CelestialBody) AtmosphericDensity(pos Vector) float64 {
	alt := c.Altitude(pos)
	if alt >= c.Exosphere || c.ScaleHeight <= 0 {
		return 0
	}
	if alt < 0 {
		alt = 0
	}
	floor := math.Exp(-c.Exosphere / c.ScaleHeight)
	return c.SurfaceDensity * (math.Exp(-alt/c.ScaleHeight) - floor) / (1 - floor)
}

// Gravity returns the gravitational acceleration at pos.
func (c CelestialBody) Gravity(pos Vector) (Vector, error) {
	r := norm(pos)
	if r == 0 {
		return Vector{}, ErrDivideByZero
	}
	return r3.Scale(-c.GM()/(r*r*r), pos), nil
}

// AtmosphereVelocity returns the inertial velocity of the co-rotating atmosphere at pos.
func (c CelestialBody) AtmosphereVelocity(pos Vector) Vector {
	return r3.Cross(Vector{Z: c.RotationRate()}, pos)
}

// CircularSpeed returns the circular orbit speed at the provided radius.
func (c CelestialBody) CircularSpeed(radius float64) float64 {
	return math.Sqrt(c.GM() / radius)
}

// StationaryRadius returns the radius of the orbit whose period equals the body's day.
func (c CelestialBody) StationaryRadius() float64 {
	return math.Cbrt(c.GM() * c.Day * c.Day / (4 * math.Pi * math.Pi))
}
