package lander

import "math"

// Vehicle holds the lander's physical constants.
// ENGINE_LAG and ENGINE_DELAY of the reference lander are both zero: thrust responds instantly to the throttle.
type Vehicle struct {
	Size                 float64 // lander radius (m)
	UnloadedMass         float64 // kg
	FuelCapacity         float64 // l
	FuelDensity          float64 // kg/l
	FuelRateAtMaxThrust  float64 // l/s
	MaxThrust            float64 // N
	DragCoefLander       float64
	DragCoefChute        float64
	MaxParachuteDrag     float64 // N
	MaxParachuteSpeed    float64 // m/s
	MaxImpactGroundSpeed float64 // m/s
	MaxImpactDescentRate float64 // m/s
	TransitionAltitude   float64 // m, parachutes may only open below it
}

// NewVehicle returns the reference lander for the provided body: MaxThrust is 1.5 times the
// weight of the fully loaded lander at the surface.
func NewVehicle(body CelestialBody) Vehicle {
	v := Vehicle{
		Size:                 1.0,
		UnloadedMass:         100.0,
		FuelCapacity:         100.0,
		FuelDensity:          1.0,
		FuelRateAtMaxThrust:  0.5,
		DragCoefLander:       1.0,
		DragCoefChute:        2.0,
		MaxParachuteDrag:     20000.0,
		MaxParachuteSpeed:    500.0,
		MaxImpactGroundSpeed: 1.0,
		MaxImpactDescentRate: 1.0,
		TransitionAltitude:   10000.0,
	}
	v.MaxThrust = 1.5 * (v.FuelDensity*v.FuelCapacity + v.UnloadedMass) * body.SurfaceGravity()
	return v
}

// DefaultVehicle is the reference lander around Mars.
var DefaultVehicle = NewVehicle(Mars)

// LanderArea returns the lander's drag cross section.
func (v Vehicle) LanderArea() float64 {
	return math.Pi * v.Size * v.Size
}

// ChuteArea returns the canopy's drag cross section.
func (v Vehicle) ChuteArea() float64 {
	return 5.0 * 2.0 * v.Size * 2.0 * v.Size
}

// ClampFuel bounds the fuel level to [0, capacity].
func (v Vehicle) ClampFuel(fuel float64) float64 {
	return clamp(fuel, 0, v.FuelCapacity)
}

// TotalMass returns the lander's instantaneous mass for the provided fuel level.
func (v Vehicle) TotalMass(fuel float64) float64 {
	return v.UnloadedMass + v.ClampFuel(fuel)*v.FuelDensity
}

// ClampThrottle bounds the throttle to [0, 1]. NaN reads as zero.
func ClampThrottle(throttle float64) float64 {
	if math.IsNaN(throttle) {
		return 0
	}
	return clamp(throttle, 0, 1)
}
