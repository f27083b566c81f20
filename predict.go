package lander

import (
	"math"

	"github.com/marssim/lander/integrator"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultPredictionStep is the RK4 step of the trajectory predictor (s).
const DefaultPredictionStep = 1.0

// TrajectorySample is a predicted position at a given time offset.
type TrajectorySample struct {
	Time     float64 `json:"time"` // s from the prediction start
	Position Vector  `json:"position"`
	Altitude float64 `json:"altitude"`
}

// Prediction is the ballistic coast of the lander from a state.
type Prediction struct {
	Samples []TrajectorySample
	// Impact is the time offset of the surface crossing, or +Inf if none happens within the horizon.
	Impact float64
}

// Impacts returns whether the predicted trajectory reaches the surface within the horizon.
func (p Prediction) Impacts() bool {
	return !math.IsInf(p.Impact, 1)
}

// coast is the integrator.Integrable of an unpowered lander: gravity and lander drag only.
type coast struct {
	state    []float64
	vehicle  Vehicle
	body     CelestialBody
	mass     float64
	step     float64
	maxIter  uint64
	samples  []TrajectorySample
	impacted bool
	impact   float64
}

func (c *coast) GetState() []float64 {
	return c.state
}

func (c *coast) SetState(i uint64, s []float64) {
	prevAlt := c.body.Altitude(Vector{X: c.state[0], Y: c.state[1], Z: c.state[2]})
	c.state = s
	pos := Vector{X: s[0], Y: s[1], Z: s[2]}
	alt := c.body.Altitude(pos)
	t := float64(i+1) * c.step
	if alt <= 0 {
		c.impacted = true
		// Linear interpolation of the crossing within the last step.
		c.impact = t - c.step*alt/(alt-prevAlt)
	}
	c.samples = append(c.samples, TrajectorySample{Time: t, Position: pos, Altitude: alt})
}

func (c *coast) Stop(i uint64) bool {
	return c.impacted || i >= c.maxIter
}

func (c *coast) Func(t float64, s []float64) []float64 {
	pos := Vector{X: s[0], Y: s[1], Z: s[2]}
	vel := Vector{X: s[3], Y: s[4], Z: s[5]}
	acc := Vector{}
	if g, err := c.body.Gravity(pos); err == nil {
		acc = g
	}
	vRel := r3.Sub(vel, c.body.AtmosphereVelocity(pos))
	drag := DragForce(vRel, c.body.AtmosphericDensity(pos), c.vehicle.LanderArea(), c.vehicle.DragCoefLander)
	acc = r3.Add(acc, r3.Scale(1/c.mass, drag))
	return []float64{vel.X, vel.Y, vel.Z, acc.X, acc.Y, acc.Z}
}

// PredictTrajectory propagates the ballistic coast of s (no thrust, no parachute) for horizon
// seconds with an RK4 of the provided step, stopping at the surface.
func PredictTrajectory(s State, v Vehicle, body CelestialBody, horizon, step float64) Prediction {
	if step <= 0 {
		step = DefaultPredictionStep
	}
	if horizon <= 0 {
		return Prediction{Impact: math.Inf(1)}
	}
	c := &coast{
		state:   []float64{s.Position.X, s.Position.Y, s.Position.Z, s.Velocity.X, s.Velocity.Y, s.Velocity.Z},
		vehicle: v,
		body:    body,
		mass:    v.TotalMass(s.Fuel),
		step:    step,
		maxIter: uint64(math.Ceil(horizon / step)),
	}
	if body.Altitude(s.Position) <= 0 {
		return Prediction{Impact: 0}
	}
	// The coast's ODE always preserves the state dimension.
	integrator.NewRK4(0, step, c).Solve()
	p := Prediction{Samples: c.samples, Impact: math.Inf(1)}
	if c.impacted {
		p.Impact = c.impact
	}
	return p
}

// Predict returns the ballistic coast of the current state.
func (s *Simulation) Predict(horizon float64) Prediction {
	return PredictTrajectory(s.state, s.Vehicle, s.Body, horizon, DefaultPredictionStep)
}
