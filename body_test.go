package lander

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestAtmosphericDensity(t *testing.T) {
	surface := Mars.AtmosphericDensity(NewVector(Mars.Radius, 0, 0))
	if !scalar.EqualWithinAbs(surface, Mars.SurfaceDensity, 1e-12) {
		t.Fatalf("surface density=%f", surface)
	}
	if d := Mars.AtmosphericDensity(NewVector(0, Mars.Radius-100, 0)); d != surface {
		t.Fatalf("below surface density=%f", d)
	}
	if d := Mars.AtmosphericDensity(NewVector(0, 0, Mars.Radius+Mars.Exosphere)); d != 0 {
		t.Fatalf("density at the exosphere=%g", d)
	}
	if d := Mars.AtmosphericDensity(NewVector(0, 0, Mars.Radius+Mars.Exosphere+1)); d != 0 {
		t.Fatalf("density above the exosphere=%g", d)
	}
	// Continuous and decreasing up to the exosphere.
	just := Mars.AtmosphericDensity(NewVector(0, 0, Mars.Radius+Mars.Exosphere-1e-3))
	if math.Abs(just) > 1e-12 {
		t.Fatalf("density just below the exosphere=%g", just)
	}
	prev := surface
	for alt := 1000.0; alt < Mars.Exosphere; alt += 1000 {
		d := Mars.AtmosphericDensity(NewVector(Mars.Radius+alt, 0, 0))
		if d >= prev || d < 0 {
			t.Fatalf("density not decreasing at %f m: %g >= %g", alt, d, prev)
		}
		prev = d
	}
	// Scale height.
	d := Mars.AtmosphericDensity(NewVector(Mars.Radius+Mars.ScaleHeight, 0, 0))
	if !scalar.EqualWithinRel(d, Mars.SurfaceDensity/math.E, 1e-6) {
		t.Fatalf("density at one scale height=%g", d)
	}
}

func TestGravity(t *testing.T) {
	g, err := Mars.Gravity(NewVector(0, Mars.Radius, 0))
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	if !scalar.EqualWithinAbs(g.Y, -Mars.SurfaceGravity(), 1e-12) || g.X != 0 || g.Z != 0 {
		t.Fatalf("surface gravity=%v", g)
	}
	if !scalar.EqualWithinAbs(Mars.SurfaceGravity(), 3.7366, 1e-3) {
		t.Fatalf("Mars surface gravity=%f", Mars.SurfaceGravity())
	}
	if _, err := Mars.Gravity(Vector{}); !errors.Is(err, ErrDivideByZero) {
		t.Fatalf("expected ErrDivideByZero, got %v", err)
	}
}

func TestAtmosphereVelocity(t *testing.T) {
	if v := Mars.AtmosphereVelocity(NewVector(0, 0, Mars.Radius)); v != (Vector{}) {
		t.Fatalf("atmosphere moves at the pole: %v", v)
	}
	v := Mars.AtmosphereVelocity(NewVector(Mars.Radius, 0, 0))
	exp := 2 * math.Pi * Mars.Radius / Mars.Day
	if !vectorsEqual(v, NewVector(0, exp, 0)) {
		t.Fatalf("equatorial atmosphere velocity=%v, expected %f along Y", v, exp)
	}
}

func TestStationaryRadius(t *testing.T) {
	r := Mars.StationaryRadius()
	o, err := NewOrbitalElements(NewVector(r, 0, 0), NewVector(0, Mars.CircularSpeed(r), 0), Mars)
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	if !scalar.EqualWithinRel(o.Period(), Mars.Day, 1e-9) {
		t.Fatalf("stationary period=%f, day=%f", o.Period(), Mars.Day)
	}
	if Mars.String() != "Mars body" {
		t.Fatalf("unexpected name %s", Mars)
	}
}
