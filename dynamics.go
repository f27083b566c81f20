package lander

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// State is the lander's mutable state, advanced once per tick.
type State struct {
	Position         Vector  `json:"position"`    // m
	Velocity         Vector  `json:"velocity"`    // m/s
	Orientation      Vector  `json:"orientation"` // XYZ Euler angles (rad)
	Fuel             float64 `json:"fuel"`        // l
	Throttle         float64 `json:"throttle"`    // [0, 1]
	Time             float64 `json:"time"`        // s
	PreviousPosition Vector  `json:"previous_position"`
}

// Telemetry stores the kinematic quantities derived from a state.
type Telemetry struct {
	Altitude              float64 `json:"altitude"`
	ClimbSpeed            float64 `json:"climb_speed"`
	GroundSpeed           float64 `json:"ground_speed"`         // inertial, tangential to the local vertical
	SurfaceGroundSpeed    float64 `json:"surface_ground_speed"` // with respect to the rotating surface
	Speed                 float64 `json:"speed"`
	VelocityWrtAtmosphere Vector  `json:"velocity_wrt_atmosphere"`
	VelocityFromPositions Vector  `json:"velocity_from_positions"`
	Density               float64 `json:"density"`
	DynamicPressure       float64 `json:"dynamic_pressure"`
}

// Step advances the state by dt with semi-implicit Euler: the velocity is updated first and the
// new velocity moves the position. Fuel is burnt at rate (l/s at full throttle).
func Step(s State, fb ForceBreakdown, v Vehicle, rate, dt float64) State {
	next := s
	next.PreviousPosition = s.Position
	if fb.Mass > 0 {
		next.Velocity = r3.Add(s.Velocity, r3.Scale(dt/fb.Mass, fb.Net))
	}
	next.Position = r3.Add(s.Position, r3.Scale(dt, next.Velocity))
	next.Fuel = v.ClampFuel(s.Fuel - v.FuelConsumption(s.Throttle, s.Fuel, rate, dt))
	next.Time = s.Time + dt
	return next
}

// NewTelemetry derives the telemetry of s. dt is the last step size, used for the finite
// difference velocity; zero disables it.
func NewTelemetry(s State, body CelestialBody, dt float64) Telemetry {
	up := body.Up(s.Position)
	vRel := r3.Sub(s.Velocity, body.AtmosphereVelocity(s.Position))
	t := Telemetry{
		Altitude:              body.Altitude(s.Position),
		ClimbSpeed:            radialComponent(s.Velocity, up),
		GroundSpeed:           norm(tangential(s.Velocity, up)),
		SurfaceGroundSpeed:    norm(tangential(vRel, up)),
		Speed:                 norm(s.Velocity),
		VelocityWrtAtmosphere: vRel,
		Density:               body.AtmosphericDensity(s.Position),
	}
	t.DynamicPressure = 0.5 * t.Density * r3.Norm2(vRel)
	if dt > 0 {
		t.VelocityFromPositions = r3.Scale(1/dt, r3.Sub(s.Position, s.PreviousPosition))
	}
	return t
}
