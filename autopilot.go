package lander

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// AutopilotMode defines an enum of autopilot control laws.
type AutopilotMode uint8

const (
	// LandMode is the powered descent guidance.
	LandMode AutopilotMode = iota
	// InjectMode is the orbital injection guidance.
	InjectMode
)

func (m AutopilotMode) String() string {
	switch m {
	case LandMode:
		return "land"
	case InjectMode:
		return "inject"
	}
	panic(fmt.Errorf("cannot stringify unknown autopilot mode %d", uint8(m)))
}

// MarshalText implements encoding.TextMarshaler.
func (m AutopilotMode) MarshalText() ([]byte, error) {
	switch m {
	case LandMode, InjectMode:
		return []byte(m.String()), nil
	}
	return nil, fmt.Errorf("unknown autopilot mode %d", uint8(m))
}

// UnmarshalText implements encoding.TextUnmarshaler, so modes read as "land" or "inject"
// in JSON commands and YAML scenarios.
func (m *AutopilotMode) UnmarshalText(text []byte) error {
	mode, err := AutopilotModeFromString(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// AutopilotModeFromString returns the mode named s.
func AutopilotModeFromString(s string) (AutopilotMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "land", "land_mode", "0":
		return LandMode, nil
	case "inject", "inject_mode", "1":
		return InjectMode, nil
	}
	return LandMode, fmt.Errorf("unknown autopilot mode %q", s)
}

// AttitudeTarget is the orientation the attitude controller should hold.
type AttitudeTarget uint8

const (
	// AttitudeHold keeps the current orientation.
	AttitudeHold AttitudeTarget = iota
	// AttitudeRetrograde points the engine against the velocity.
	AttitudeRetrograde
	// AttitudePrograde points the engine along the velocity.
	AttitudePrograde
	// AttitudeRadial points the engine along the local vertical.
	AttitudeRadial
	// AttitudeHorizontal points the engine along the horizontal part of the velocity.
	AttitudeHorizontal
	// AttitudeAntiHorizontal points the engine against the horizontal part of the velocity.
	AttitudeAntiHorizontal
	// AttitudeGuided points the engine along Control.Direction.
	AttitudeGuided
)

func (a AttitudeTarget) String() string {
	switch a {
	case AttitudeHold:
		return "hold"
	case AttitudeRetrograde:
		return "retrograde"
	case AttitudePrograde:
		return "prograde"
	case AttitudeRadial:
		return "radial"
	case AttitudeHorizontal:
		return "horizontal"
	case AttitudeAntiHorizontal:
		return "anti-horizontal"
	case AttitudeGuided:
		return "guided"
	}
	panic(fmt.Errorf("cannot stringify unknown attitude target %d", uint8(a)))
}

// Control is an autopilot output for the next tick.
type Control struct {
	Throttle     float64
	Attitude     AttitudeTarget
	Direction    Vector // world frame thrust direction, only read for AttitudeGuided
	OrbitReached bool
}

// direction returns the world direction the engine should point at, and false when the
// orientation must be left unchanged.
func (c Control) direction(s State, tel Telemetry, body CelestialBody) (Vector, bool) {
	if c.Attitude == AttitudeGuided {
		d := unit(c.Direction)
		return d, d != (Vector{})
	}
	return attitudeDirection(c.Attitude, s, tel, body)
}

// Autopilot defines an autopilot control law. Implementations are pure functions of the
// state, its telemetry and their own configuration.
type Autopilot interface {
	Control(s State, tel Telemetry) Control
	Mode() AutopilotMode
	Reason() string
}

// Default gains of the descent law.
const (
	DefaultKh    = 0.019
	DefaultKp    = 2.0
	DefaultDelta = 0.5
	// landingSpeed is the descent rate targeted at zero altitude (m/s).
	landingSpeed = 0.5
	// attitudeSpeedε is the speed below which retrograde is undefined (m/s).
	attitudeSpeedε = 1e-3
)

// LandAutopilot is the powered descent guidance: a saturating proportional controller on the
// error between the altitude scheduled descent rate and the climb speed.
type LandAutopilot struct {
	Kh, Kp, Delta float64
}

// NewLandAutopilot returns a descent autopilot with the provided gains.
func NewLandAutopilot(kh, kp, delta float64) LandAutopilot {
	return LandAutopilot{kh, kp, delta}
}

// Mode implements the Autopilot interface.
func (ap LandAutopilot) Mode() AutopilotMode {
	return LandMode
}

// Reason implements the Autopilot interface.
func (ap LandAutopilot) Reason() string {
	return fmt.Sprintf("descent Kh=%.3f Kp=%.3f Δ=%.3f", ap.Kh, ap.Kp, ap.Delta)
}

// DesiredClimbSpeed returns the scheduled climb speed at the provided altitude.
func (ap LandAutopilot) DesiredClimbSpeed(altitude float64) float64 {
	return -(landingSpeed + ap.Kh*math.Max(altitude, 0))
}

// Control implements the Autopilot interface.
func (ap LandAutopilot) Control(s State, tel Telemetry) Control {
	e := ap.DesiredClimbSpeed(tel.Altitude) - tel.ClimbSpeed
	ctrl := Control{Attitude: landingAttitude(tel)}
	if ap.Kp > 0 && e > -ap.Delta/ap.Kp {
		ctrl.Throttle = ClampThrottle(ap.Delta + ap.Kp*e)
	}
	return ctrl
}

// landingAttitude opposes the surface relative velocity while descending, and points up otherwise
// so that the engine never pushes the lander towards the ground.
func landingAttitude(tel Telemetry) AttitudeTarget {
	if tel.ClimbSpeed < 0 && norm(tel.VelocityWrtAtmosphere) > attitudeSpeedε {
		return AttitudeRetrograde
	}
	return AttitudeRadial
}

// Parameters of the injection law.
const (
	// DefaultInjectTolerance is the apsis error band within which the orbit is reached (m).
	DefaultInjectTolerance = 2000.0
	// DefaultInjectRamp is the apsis error at which the injection throttle reaches Kp (m).
	DefaultInjectRamp = 50000.0
	// ascentTimeConstant sets the climb rate scheduled from the radius error during the ascent (s).
	ascentTimeConstant = 100.0
	// ascentMaxClimb caps the scheduled climb rate of the ascent (m/s).
	ascentMaxClimb = 300.0
	// ascentResponse is the time constant of the ascent velocity loops (s).
	ascentResponse = 5.0
	// ascentDragShare is the share of the thrust that the lander drag may eat during the ascent.
	ascentDragShare = 0.25
	// minGroundSpeed is the ground speed below which the horizontal direction is undefined (m/s).
	minGroundSpeed = 1.0
	// apsisWindow bounds |sin ν| around an apsis, ν being the true anomaly, for apsis burns.
	apsisWindow = 0.03
)

// InjectAutopilot drives the lander towards the orbit with the provided periapsis and apoapsis
// radii. While the periapsis is below the atmosphere it flies a guided ascent towards a circular
// orbit at the target periapsis. Once the orbit clears it, it only burns horizontally near an
// apsis: at periapsis it corrects the apoapsis, at apoapsis it corrects the periapsis.
type InjectAutopilot struct {
	Periapsis, Apoapsis     float64 // target radii (m)
	SemiMajor, Eccentricity float64 // target orbit
	Circular                bool
	Kp                      float64
	Tolerance, Ramp         float64 // m
	body                    CelestialBody
	vehicle                 Vehicle
}

// ErrInvalidTarget is returned for inconsistent injection targets.
var ErrInvalidTarget = errors.New("invalid injection target")

// NewInjectAutopilot returns an injection autopilot flying v towards the target radii. A circular
// target uses the periapsis for both apsides.
func NewInjectAutopilot(body CelestialBody, v Vehicle, periapsis, apoapsis float64, circular bool, kp float64) (InjectAutopilot, error) {
	if circular {
		apoapsis = periapsis
	}
	if periapsis <= body.Radius {
		return InjectAutopilot{}, fmt.Errorf("periapsis %.1f m is below the surface: %w", periapsis, ErrInvalidTarget)
	}
	if apoapsis < periapsis {
		return InjectAutopilot{}, fmt.Errorf("apoapsis %.1f m below periapsis %.1f m: %w", apoapsis, periapsis, ErrInvalidTarget)
	}
	a, e := Radii2ae(apoapsis, periapsis)
	return InjectAutopilot{
		Periapsis:    periapsis,
		Apoapsis:     apoapsis,
		SemiMajor:    a,
		Eccentricity: e,
		Circular:     circular,
		Kp:           kp,
		Tolerance:    DefaultInjectTolerance,
		Ramp:         DefaultInjectRamp,
		body:         body,
		vehicle:      v,
	}, nil
}

// Mode implements the Autopilot interface.
func (ap InjectAutopilot) Mode() AutopilotMode {
	return InjectMode
}

// Reason implements the Autopilot interface.
func (ap InjectAutopilot) Reason() string {
	if ap.Circular {
		return fmt.Sprintf("circular injection r=%.1f", ap.Periapsis)
	}
	return fmt.Sprintf("injection a=%.1f e=%.4f (rP=%.1f rA=%.1f)", ap.SemiMajor, ap.Eccentricity, ap.Periapsis, ap.Apoapsis)
}

// Reached returns whether both apsides are within tolerance of their targets.
func (ap InjectAutopilot) Reached(o OrbitalElements) bool {
	return !o.Escape && math.Abs(o.Periapsis-ap.Periapsis) <= ap.Tolerance && math.Abs(o.Apoapsis-ap.Apoapsis) <= ap.Tolerance
}

// floor is the periapsis radius under which the guided ascent flies the lander.
func (ap InjectAutopilot) floor() float64 {
	return math.Min(ap.Periapsis, ap.body.Radius+ap.body.Exosphere) - ap.Tolerance
}

// deadband is the apsis error below which an apsis burn stops.
func (ap InjectAutopilot) deadband() float64 {
	return ap.Tolerance / 4
}

// throttle maps an apsis error to a throttle level: zero inside the deadband, then Kp times
// the error over Ramp.
func (ap InjectAutopilot) throttle(err float64) float64 {
	err = math.Abs(err)
	if err <= ap.deadband() {
		return 0
	}
	return ClampThrottle(ap.Kp * controlFunction(err, 0, 0, ap.Ramp, 1))
}

// Control implements the Autopilot interface.
func (ap InjectAutopilot) Control(s State, tel Telemetry) Control {
	o, err := NewOrbitalElements(s.Position, s.Velocity, ap.body)
	if err == nil && o.Escape {
		// Hyperbolic orbit: brake.
		return Control{Throttle: 1, Attitude: AttitudeRetrograde}
	}
	if err != nil || o.Periapsis < ap.floor() {
		return ap.ascent(s, tel)
	}
	if ap.Reached(o) {
		return Control{Attitude: AttitudeHold, OrbitReached: true}
	}
	var δ float64
	switch ap.apsis(o, s) {
	case atPeriapsis:
		δ = ap.Apoapsis - o.Apoapsis
	case atApoapsis:
		δ = ap.Periapsis - o.Periapsis
	default:
		return Control{Attitude: AttitudeHold}
	}
	ctrl := Control{Throttle: ap.throttle(δ), Attitude: AttitudeHorizontal}
	if δ < 0 {
		ctrl.Attitude = AttitudeAntiHorizontal
	}
	if ctrl.Throttle == 0 {
		ctrl.Attitude = AttitudeHold
	}
	return ctrl
}

type apsisKind uint8

const (
	noApsis apsisKind = iota
	atPeriapsis
	atApoapsis
)

// apsis returns which apsis the lander is flying through, if any. Every point of an orbit that
// is circular within the deadband counts as an apsis: the one below the semi major axis is a
// periapsis.
func (ap InjectAutopilot) apsis(o OrbitalElements, s State) apsisKind {
	r := norm(s.Position)
	if o.Apoapsis-o.Periapsis > 2*ap.deadband() && o.Eccentricity > 0 {
		// vr = μ/h·e·sin ν
		vr := radialComponent(s.Velocity, ap.body.Up(s.Position))
		if sinν := vr * o.AngularMomentum / (o.μ * o.Eccentricity); math.Abs(sinν) > apsisWindow {
			return noApsis
		}
	}
	if r <= o.SemiMajor {
		return atPeriapsis
	}
	return atApoapsis
}

// ascent steers towards a circular orbit at the target periapsis: the climb rate follows the
// radius error and the ground speed follows the circular speed, both limited so that the
// lander drag stays a fraction of the thrust.
func (ap InjectAutopilot) ascent(s State, tel Telemetry) Control {
	mass := ap.vehicle.TotalMass(s.Fuel)
	if mass <= 0 || ap.vehicle.MaxThrust <= 0 {
		return Control{Attitude: AttitudeHold}
	}
	maxAcc := ap.vehicle.MaxThrust / mass
	r := norm(s.Position)
	up := ap.body.Up(s.Position)

	vMax := math.Inf(1)
	if tel.Density > 0 {
		qMax := ascentDragShare * ap.vehicle.MaxThrust / (ap.vehicle.DragCoefLander * ap.vehicle.LanderArea())
		vMax = math.Sqrt(2 * qMax / tel.Density)
	}
	climb := radialComponent(s.Velocity, up)
	horizontal := tangential(s.Velocity, up)
	ground := norm(horizontal)

	climbDes := clamp((ap.Periapsis-r)/ascentTimeConstant, -ascentMaxClimb, math.Min(ascentMaxClimb, vMax))
	groundDes := math.Min(ap.body.CircularSpeed(r), math.Sqrt(math.Max(0, vMax*vMax-climb*climb)))

	// Radial acceleration balance: r̈ = v²/r - g + thrust.
	g := ap.body.GM() / (r * r)
	aUp := clamp((climbDes-climb)/ascentResponse+g-ground*ground/r, -maxAcc, maxAcc)
	spare := math.Sqrt(math.Max(0, maxAcc*maxAcc-aUp*aUp))
	aH := clamp((groundDes-ground)/ascentResponse, -spare, spare)

	h := unit(horizontal)
	if ground < minGroundSpeed {
		h = eastward(up)
	}
	acc := r3.Add(r3.Scale(aUp, up), r3.Scale(aH, h))
	return Control{
		Throttle:  ClampThrottle(norm(acc) / maxAcc),
		Attitude:  AttitudeGuided,
		Direction: unit(acc),
	}
}

// eastward returns the local horizontal direction of the body rotation, falling back to an
// arbitrary horizontal direction over the poles.
func eastward(up Vector) Vector {
	if e := unit(r3.Cross(Vector{Z: 1}, up)); e != (Vector{}) {
		return e
	}
	return unit(r3.Cross(Vector{X: 1}, up))
}

// attitudeDirection returns the world direction the engine should point at for target,
// and false for AttitudeHold, AttitudeGuided or undefined directions.
func attitudeDirection(target AttitudeTarget, s State, tel Telemetry, body CelestialBody) (Vector, bool) {
	var d Vector
	switch target {
	case AttitudeHold, AttitudeGuided:
		return Vector{}, false
	case AttitudeRadial:
		d = body.Up(s.Position)
	case AttitudePrograde:
		d = unit(s.Velocity)
	case AttitudeRetrograde:
		// Retrograde is taken with respect to the atmosphere inside it, so that a landing
		// burn cancels the surface relative velocity.
		v := s.Velocity
		if tel.Density > 0 {
			v = tel.VelocityWrtAtmosphere
		}
		d = unit(Vector{X: -v.X, Y: -v.Y, Z: -v.Z})
	case AttitudeHorizontal, AttitudeAntiHorizontal:
		d = unit(tangential(s.Velocity, body.Up(s.Position)))
		if target == AttitudeAntiHorizontal {
			d = r3.Scale(-1, d)
		}
	}
	return d, d != (Vector{})
}
