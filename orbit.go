package lander

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// energyε is the specific energy (J/kg) below which an orbit is deemed parabolic.
	energyε = 1e-6
)

// ErrNotApplicable is returned when orbital elements are undefined for a state.
var ErrNotApplicable = errors.New("orbital elements not applicable")

// OrbitalElements are the Keplerian quantities derived from a position and a velocity.
// Radii are measured from the body centre.
type OrbitalElements struct {
	Energy          float64 `json:"energy"` // specific mechanical energy ξ (J/kg)
	SemiMajor       float64 `json:"semi_major"`
	SemiMinor       float64 `json:"semi_minor"`
	Eccentricity    float64 `json:"eccentricity"`
	Periapsis       float64 `json:"periapsis"`
	Apoapsis        float64 `json:"apoapsis"` // +Inf on escape trajectories
	AngularMomentum float64 `json:"angular_momentum"`
	Escape          bool    `json:"escape"`
	μ               float64
}

// NewOrbitalElements computes the orbital elements from R and V via the vis-viva relation.
func NewOrbitalElements(R, V Vector, body CelestialBody) (OrbitalElements, error) {
	r := norm(R)
	if r == 0 {
		return OrbitalElements{}, fmt.Errorf("radius is zero: %w", ErrNotApplicable)
	}
	μ := body.GM()
	v := norm(V)
	ξ := v*v/2 - μ/r
	if scalar.EqualWithinAbs(ξ, 0, energyε) {
		return OrbitalElements{}, fmt.Errorf("parabolic trajectory (ξ=%g): %w", ξ, ErrNotApplicable)
	}
	h := norm(r3.Cross(R, V))
	o := OrbitalElements{Energy: ξ, AngularMomentum: h, μ: μ}
	o.SemiMajor = -μ / (2 * ξ)
	// e² = 1 + 2ξh²/μ², which rounding may push slightly negative for circular orbits.
	o.Eccentricity = math.Sqrt(math.Max(0, 1+2*ξ*h*h/(μ*μ)))
	o.Periapsis = o.SemiMajor * (1 - o.Eccentricity)
	if ξ > 0 {
		o.Escape = true
		o.Apoapsis = math.Inf(1)
		o.SemiMinor = -o.SemiMajor * math.Sqrt(o.Eccentricity*o.Eccentricity-1)
		return o, nil
	}
	o.Apoapsis = o.SemiMajor * (1 + o.Eccentricity)
	o.SemiMinor = h * math.Sqrt(o.SemiMajor/μ)
	return o, nil
}

// Period returns the orbital period in seconds (Kepler's third law), or +Inf when escaping.
func (o OrbitalElements) Period() float64 {
	if o.Escape || o.SemiMajor <= 0 {
		return math.Inf(1)
	}
	return 2 * math.Pi * math.Sqrt(math.Pow(o.SemiMajor, 3)/o.μ)
}

// String implements the Stringer interface.
func (o OrbitalElements) String() string {
	return fmt.Sprintf("a=%.1f e=%.4f rP=%.1f rA=%.1f ξ=%.3f", o.SemiMajor, o.Eccentricity, o.Periapsis, o.Apoapsis, o.Energy)
}

// Radii2ae returns the semi major axis and the eccentricty from the radii.
func Radii2ae(rA, rP float64) (a, e float64) {
	if rA < rP {
		panic("periapsis cannot be greater than apoapsis")
	}
	a = (rP + rA) / 2
	e = (rA - rP) / (rA + rP)
	return
}
