package lander

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestAutopilotModeStrings(t *testing.T) {
	for _, mode := range []AutopilotMode{LandMode, InjectMode} {
		txt, err := mode.MarshalText()
		if err != nil {
			t.Fatalf("err: %s", err)
		}
		var back AutopilotMode
		if err := back.UnmarshalText(txt); err != nil || back != mode {
			t.Fatalf("%s: read back %s (%v)", mode, back, err)
		}
	}
	if m, err := AutopilotModeFromString(" INJECT "); err != nil || m != InjectMode {
		t.Fatalf("case insensitive parsing failed: %s %v", m, err)
	}
	if _, err := AutopilotModeFromString("hover"); err == nil {
		t.Fatal("unknown mode accepted")
	}
	if _, err := AutopilotMode(7).MarshalText(); err == nil {
		t.Fatal("unknown mode marshaled")
	}
	assertPanic(t, func() {
		_ = AutopilotMode(7).String()
	})
	if AttitudeRetrograde.String() != "retrograde" {
		t.Fatal("attitude target name")
	}
}

func TestLandAutopilotLaw(t *testing.T) {
	ap := NewLandAutopilot(DefaultKh, DefaultKp, DefaultDelta)
	if ap.Mode() != LandMode || ap.Reason() == "" {
		t.Fatal("land autopilot identity")
	}
	if d := ap.DesiredClimbSpeed(1000); !scalar.EqualWithinAbs(d, -19.5, 1e-12) {
		t.Fatalf("desired climb at 1000 m=%f", d)
	}
	if d := ap.DesiredClimbSpeed(-3); d != -landingSpeed {
		t.Fatalf("desired climb below the surface=%f", d)
	}
	for _, tc := range []struct {
		name     string
		climb    float64
		throttle float64
	}{
		{"on schedule", -19.5, DefaultDelta},
		{"slightly fast", -19.75, 1},
		{"slightly slow", -19.4, 0.3},
		{"falling", -100, 1},
		{"hovering", 0, 0},
		{"climbing", 5, 0},
	} {
		tel := Telemetry{Altitude: 1000, ClimbSpeed: tc.climb, VelocityWrtAtmosphere: NewVector(0, 0, tc.climb)}
		ctrl := ap.Control(State{}, tel)
		if !scalar.EqualWithinAbs(ctrl.Throttle, tc.throttle, 1e-9) {
			t.Fatalf("%s: throttle=%f, expected %f", tc.name, ctrl.Throttle, tc.throttle)
		}
		if ctrl.Throttle < 0 || ctrl.Throttle > 1 {
			t.Fatalf("%s: throttle out of range", tc.name)
		}
		exp := AttitudeRetrograde
		if tc.climb >= 0 {
			exp = AttitudeRadial
		}
		if ctrl.Attitude != exp {
			t.Fatalf("%s: attitude=%s, expected %s", tc.name, ctrl.Attitude, exp)
		}
	}
}

func TestInjectAutopilotTargets(t *testing.T) {
	if _, err := NewInjectAutopilot(Mars, DefaultVehicle, Mars.Radius-1, Mars.Radius+1e5, false, 1); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("periapsis below the surface: %v", err)
	}
	if _, err := NewInjectAutopilot(Mars, DefaultVehicle, Mars.Radius+2e5, Mars.Radius+1e5, false, 1); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("apoapsis below periapsis: %v", err)
	}
	ap, err := NewInjectAutopilot(Mars, DefaultVehicle, Mars.Radius+2e5, Mars.Radius+1e5, true, 1)
	if err != nil {
		t.Fatalf("circular target: %s", err)
	}
	if ap.Apoapsis != ap.Periapsis || ap.Eccentricity != 0 || ap.SemiMajor != ap.Periapsis || ap.Mode() != InjectMode || ap.Reason() == "" {
		t.Fatalf("circular target %+v", ap)
	}
	ell, err := NewInjectAutopilot(Mars, DefaultVehicle, Mars.Radius+2e5, Mars.Radius+6e5, false, 1)
	if err != nil {
		t.Fatalf("elliptical target: %s", err)
	}
	if a := Mars.Radius + 4e5; !scalar.EqualWithinAbs(ell.SemiMajor, a, 1e-6) || !scalar.EqualWithinAbs(ell.Eccentricity, 2e5/a, 1e-12) {
		t.Fatalf("elliptical target a=%f e=%f", ell.SemiMajor, ell.Eccentricity)
	}
	// Kp=1: zero inside the deadband, then proportional up to full throttle at 50 km.
	for _, tc := range []struct{ err, exp float64 }{
		{0, 0}, {499, 0}, {-499, 0}, {4000, 0.08}, {-4000, 0.08}, {26000, 0.52}, {50000, 1}, {1e7, 1},
	} {
		if got := ap.throttle(tc.err); !scalar.EqualWithinAbs(got, tc.exp, 1e-9) {
			t.Fatalf("throttle(%f)=%f, expected %f", tc.err, got, tc.exp)
		}
	}
}

// stateAt returns the state at true anomaly ν on the orbit with the provided radii, in the XY plane.
func stateAt(rP, rA, ν float64) State {
	a, e := Radii2ae(rA, rP)
	p := a * (1 - e*e)
	r := p / (1 + e*math.Cos(ν))
	vr := math.Sqrt(Mars.GM()/p) * e * math.Sin(ν)
	vt := math.Sqrt(Mars.GM()/p) * (1 + e*math.Cos(ν))
	up := NewVector(math.Cos(ν), math.Sin(ν), 0)
	east := NewVector(-math.Sin(ν), math.Cos(ν), 0)
	return State{
		Position: r3.Scale(r, up),
		Velocity: r3.Add(r3.Scale(vr, up), r3.Scale(vt, east)),
		Fuel:     DefaultVehicle.FuelCapacity,
	}
}

func TestInjectAutopilotApsisBurns(t *testing.T) {
	target := Mars.Radius + 250000
	ap, err := NewInjectAutopilot(Mars, DefaultVehicle, target, target, true, DefaultKp)
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	rP, rA := Mars.Radius+220000, Mars.Radius+300000
	for _, tc := range []struct {
		name     string
		s        State
		throttle float64
		attitude AttitudeTarget
		reached  bool
	}{
		{"on target", stateAt(target, target, 0), 0, AttitudeHold, true},
		{"high circular", stateAt(Mars.Radius+300000, Mars.Radius+300000, 1), 1, AttitudeAntiHorizontal, false},
		{"slightly high circular", stateAt(Mars.Radius+260000, Mars.Radius+260000, 2), 0.4, AttitudeAntiHorizontal, false},
		{"slightly low circular", stateAt(Mars.Radius+240000, Mars.Radius+240000, 3), 0.4, AttitudeHorizontal, false},
		// Near periapsis the apoapsis is lowered, near apoapsis the periapsis is raised.
		{"periapsis", stateAt(rP, rA, 0), 1, AttitudeAntiHorizontal, false},
		{"just before periapsis", stateAt(rP, rA, -0.02), 1, AttitudeAntiHorizontal, false},
		{"apoapsis", stateAt(rP, rA, math.Pi), 1, AttitudeHorizontal, false},
		// Away from the apsides the lander coasts.
		{"quarter orbit", stateAt(rP, rA, math.Pi/2), 0, AttitudeHold, false},
		{"past periapsis", stateAt(rP, rA, 0.2), 0, AttitudeHold, false},
	} {
		ctrl := ap.Control(tc.s, NewTelemetry(tc.s, Mars, 0))
		if !scalar.EqualWithinAbs(ctrl.Throttle, tc.throttle, 1e-3) || ctrl.Attitude != tc.attitude || ctrl.OrbitReached != tc.reached {
			t.Fatalf("%s: %+v", tc.name, ctrl)
		}
	}

	escape := State{Position: NewVector(target, 0, 0), Velocity: NewVector(0, 6000, 0)}
	if ctrl := ap.Control(escape, Telemetry{}); ctrl.Throttle != 1 || ctrl.Attitude != AttitudeRetrograde {
		t.Fatalf("escape: %+v", ctrl)
	}
}

func TestInjectAutopilotAscent(t *testing.T) {
	target := Mars.Radius + 250000
	ap, err := NewInjectAutopilot(Mars, DefaultVehicle, target, target, true, DefaultKp)
	if err != nil {
		t.Fatalf("err: %s", err)
	}

	// At rest on the ground: straight up at full throttle.
	pad := State{Position: NewVector(0, 0, Mars.Radius+1), Fuel: DefaultVehicle.FuelCapacity}
	ctrl := ap.Control(pad, NewTelemetry(pad, Mars, 0))
	if ctrl.Attitude != AttitudeGuided || !scalar.EqualWithinAbs(ctrl.Throttle, 1, 1e-9) || !vectorsEqual(ctrl.Direction, NewVector(0, 0, 1)) {
		t.Fatalf("lift off: %+v", ctrl)
	}

	// Climbing on schedule at 100 km: the spare thrust goes to the ground speed.
	r := Mars.Radius + 100000
	climbing := State{Position: NewVector(r, 0, 0), Velocity: NewVector(ascentMaxClimb, 2000, 0), Fuel: DefaultVehicle.FuelCapacity}
	ctrl = ap.Control(climbing, NewTelemetry(climbing, Mars, 0))
	if ctrl.Attitude != AttitudeGuided || !scalar.EqualWithinAbs(ctrl.Throttle, 1, 1e-9) {
		t.Fatalf("climbing: %+v", ctrl)
	}
	d := unit(ctrl.Direction)
	g := Mars.GM() / (r * r)
	maxAcc := DefaultVehicle.MaxThrust / DefaultVehicle.TotalMass(DefaultVehicle.FuelCapacity)
	if up := (g - 2000*2000/r) / maxAcc; !scalar.EqualWithinAbs(d.X, up, 1e-6) || d.Y <= d.X || d.Z != 0 {
		t.Fatalf("climbing direction %v, expected a radial share of %f", d, up)
	}

	// Without thrust the law has nothing to command.
	empty := ap
	empty.vehicle.MaxThrust = 0
	if ctrl := empty.Control(pad, Telemetry{}); ctrl.Throttle != 0 || ctrl.Attitude != AttitudeHold {
		t.Fatalf("no engine: %+v", ctrl)
	}
}

func TestAttitudeDirection(t *testing.T) {
	s := State{Position: NewVector(0, Mars.Radius+1000, 0), Velocity: NewVector(100, -20, 0)}
	tel := NewTelemetry(s, Mars, 0)
	if _, ok := attitudeDirection(AttitudeHold, s, tel, Mars); ok {
		t.Fatal("hold has a direction")
	}
	if d, ok := attitudeDirection(AttitudeRadial, s, tel, Mars); !ok || !vectorsEqual(d, NewVector(0, 1, 0)) {
		t.Fatalf("radial=%v", d)
	}
	if d, ok := attitudeDirection(AttitudePrograde, s, tel, Mars); !ok || !vectorsEqual(d, unit(s.Velocity)) {
		t.Fatalf("prograde=%v", d)
	}
	d, ok := attitudeDirection(AttitudeRetrograde, s, tel, Mars)
	if !ok || !vectorsEqual(d, unit(r3.Scale(-1, tel.VelocityWrtAtmosphere))) {
		t.Fatalf("retrograde inside the atmosphere=%v", d)
	}
	if _, ok := attitudeDirection(AttitudeRetrograde, State{Position: NewVector(0, 0, Mars.Radius+1000)}, Telemetry{Density: 0.01}, Mars); ok {
		t.Fatal("retrograde at rest should be undefined")
	}
	if d, ok := attitudeDirection(AttitudeHorizontal, s, tel, Mars); !ok || !vectorsEqual(d, NewVector(1, 0, 0)) {
		t.Fatalf("horizontal=%v", d)
	}
	if d, ok := attitudeDirection(AttitudeAntiHorizontal, s, tel, Mars); !ok || !vectorsEqual(d, NewVector(-1, 0, 0)) {
		t.Fatalf("anti-horizontal=%v", d)
	}
	if d, ok := (Control{Attitude: AttitudeGuided, Direction: NewVector(0, 0, 2)}).direction(s, tel, Mars); !ok || !vectorsEqual(d, NewVector(0, 0, 1)) {
		t.Fatalf("guided=%v", d)
	}
	if _, ok := (Control{Attitude: AttitudeGuided}).direction(s, tel, Mars); ok {
		t.Fatal("guided without a direction")
	}
	space := State{Position: NewVector(0, 0, Mars.Radius+300000), Velocity: NewVector(10, 0, 0)}
	if d, _ := attitudeDirection(AttitudeRetrograde, space, NewTelemetry(space, Mars, 0), Mars); !vectorsEqual(d, NewVector(-1, 0, 0)) {
		t.Fatalf("retrograde in vacuum=%v", d)
	}
}
