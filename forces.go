package lander

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ForceBreakdown stores the forces acting on the lander during one step.
type ForceBreakdown struct {
	Gravity       Vector // gravitational force (N)
	DragLander    Vector
	DragChute     Vector
	Thrust        Vector
	Net           Vector
	Mass          float64
	ChuteOverload bool // uncapped chute drag exceeded MaxParachuteDrag
}

// ThrustForce returns the engine thrust in the world frame. An empty tank produces no thrust
// whatever the commanded throttle.
func (v Vehicle) ThrustForce(throttle float64, orientation Vector, fuel float64) Vector {
	if fuel <= 0 {
		return Vector{}
	}
	return r3.Scale(ClampThrottle(throttle)*v.MaxThrust, ForwardAxis(orientation))
}

// DragForce returns the quadratic drag opposing vRel, the velocity with respect to the atmosphere.
func DragForce(vRel Vector, density, area, coef float64) Vector {
	speed := norm(vRel)
	if speed == 0 || density <= 0 {
		return Vector{}
	}
	return r3.Scale(-0.5*density*speed*coef*area, vRel)
}

// ChuteDrag returns the canopy drag capped at MaxParachuteDrag, the excess being dropped,
// and whether the uncapped drag exceeded that cap.
func (v Vehicle) ChuteDrag(vRel Vector, density float64) (Vector, bool) {
	drag := DragForce(vRel, density, v.ChuteArea(), v.DragCoefChute)
	mag := norm(drag)
	if mag <= v.MaxParachuteDrag {
		return drag, false
	}
	return r3.Scale(v.MaxParachuteDrag/mag, drag), true
}

// FuelConsumption returns the fuel burnt (l) during dt, never more than what is left.
func (v Vehicle) FuelConsumption(throttle, fuel, rate, dt float64) float64 {
	if fuel <= 0 || rate <= 0 {
		return 0
	}
	return math.Min(ClampThrottle(throttle)*rate*dt, fuel)
}

// Forces evaluates the environment and force model at the provided state.
// A gravity evaluation at the body centre is recovered as a null gravity force.
func Forces(s State, v Vehicle, body CelestialBody, chute ParachuteStatus) ForceBreakdown {
	fb := ForceBreakdown{Mass: v.TotalMass(s.Fuel)}
	if g, err := body.Gravity(s.Position); err == nil {
		fb.Gravity = r3.Scale(fb.Mass, g)
	}
	density := body.AtmosphericDensity(s.Position)
	vRel := r3.Sub(s.Velocity, body.AtmosphereVelocity(s.Position))
	fb.DragLander = DragForce(vRel, density, v.LanderArea(), v.DragCoefLander)
	if chute == Deployed {
		fb.DragChute, fb.ChuteOverload = v.ChuteDrag(vRel, density)
	}
	fb.Thrust = v.ThrustForce(s.Throttle, s.Orientation, s.Fuel)
	fb.Net = r3.Add(r3.Add(fb.Gravity, fb.DragLander), r3.Add(fb.DragChute, fb.Thrust))
	return fb
}
