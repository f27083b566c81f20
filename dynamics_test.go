package lander

import (
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestStepSemiImplicit(t *testing.T) {
	s := State{Position: NewVector(10, 0, 0), Velocity: NewVector(1, 0, 0), Fuel: 50, Throttle: 1, Time: 3}
	fb := ForceBreakdown{Net: NewVector(0, 200, 0), Mass: 100}
	next := Step(s, fb, DefaultVehicle, 0.5, 0.1)
	// The new velocity moves the position.
	if !vectorsEqual(next.Velocity, NewVector(1, 0.2, 0)) {
		t.Fatalf("velocity=%v", next.Velocity)
	}
	if !vectorsEqual(next.Position, NewVector(10.1, 0.02, 0)) {
		t.Fatalf("position=%v", next.Position)
	}
	if next.PreviousPosition != s.Position {
		t.Fatal("previous position not captured")
	}
	if !scalar.EqualWithinAbs(next.Fuel, 49.95, 1e-12) || !scalar.EqualWithinAbs(next.Time, 3.1, 1e-12) {
		t.Fatalf("fuel=%f time=%f", next.Fuel, next.Time)
	}
	if s.Position != NewVector(10, 0, 0) {
		t.Fatal("Step modified its input")
	}
}

func TestStepFuelBounds(t *testing.T) {
	v := DefaultVehicle
	s := State{Position: NewVector(0, 0, Mars.Radius+1000), Fuel: 0.02, Throttle: 1}
	for i := 0; i < 10; i++ {
		s = Step(s, Forces(s, v, Mars, NotDeployed), v, v.FuelRateAtMaxThrust, 0.1)
		if s.Fuel < 0 || s.Fuel > v.FuelCapacity {
			t.Fatalf("fuel out of bounds: %f", s.Fuel)
		}
		if v.TotalMass(s.Fuel) < v.UnloadedMass {
			t.Fatal("mass below the unloaded mass")
		}
	}
	if s.Fuel != 0 {
		t.Fatalf("tank should be empty, has %f", s.Fuel)
	}
}

func TestTelemetry(t *testing.T) {
	r := Mars.Radius + 2000
	s := State{
		Position:         NewVector(r, 0, 0),
		Velocity:         NewVector(-2.5, 400, 4),
		PreviousPosition: NewVector(r+0.25, -40, -0.4),
	}
	tel := NewTelemetry(s, Mars, 0.1)
	if !scalar.EqualWithinAbs(tel.Altitude, 2000, 1e-6) {
		t.Fatalf("altitude=%f", tel.Altitude)
	}
	if !scalar.EqualWithinAbs(tel.ClimbSpeed, -2.5, 1e-12) {
		t.Fatalf("climb=%f", tel.ClimbSpeed)
	}
	if !scalar.EqualWithinAbs(tel.GroundSpeed, norm(NewVector(0, 400, 4)), 1e-9) {
		t.Fatalf("ground speed=%f", tel.GroundSpeed)
	}
	surface := Mars.RotationRate() * r
	if !scalar.EqualWithinAbs(tel.SurfaceGroundSpeed, norm(NewVector(0, 400-surface, 4)), 1e-9) {
		t.Fatalf("surface ground speed=%f", tel.SurfaceGroundSpeed)
	}
	if !vectorsEqual(tel.VelocityFromPositions, NewVector(-2.5, 400, 4)) {
		t.Fatalf("finite difference velocity=%v", tel.VelocityFromPositions)
	}
	if !scalar.EqualWithinAbs(tel.DynamicPressure, 0.5*tel.Density*(6.25+(400-surface)*(400-surface)+16), 1e-9) {
		t.Fatalf("dynamic pressure=%f", tel.DynamicPressure)
	}
	if NewTelemetry(s, Mars, 0).VelocityFromPositions != (Vector{}) {
		t.Fatal("finite difference without a step")
	}
}
