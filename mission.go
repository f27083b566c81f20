package lander

import (
	"errors"
	"fmt"
	"math"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// ErrNotInitialized is returned when a simulation is reset before any scenario was loaded.
var ErrNotInitialized = errors.New("simulation not initialized")

// Command holds the discrete inputs applied at the end of a tick. Nil fields are left unchanged.
type Command struct {
	Throttle        *float64       `json:"throttle,omitempty"`
	DeployParachute bool           `json:"deploy_parachute,omitempty"`
	Autopilot       *bool          `json:"autopilot,omitempty"`
	AutopilotMode   *AutopilotMode `json:"autopilot_mode,omitempty"`
	Stabilize       *bool          `json:"stabilize,omitempty"`
	Fuel            *float64       `json:"fuel,omitempty"`
}

// Merge overlays c on top of o, c taking precedence.
func (o Command) Merge(c Command) Command {
	if c.Throttle != nil {
		o.Throttle = c.Throttle
	}
	o.DeployParachute = o.DeployParachute || c.DeployParachute
	if c.Autopilot != nil {
		o.Autopilot = c.Autopilot
	}
	if c.AutopilotMode != nil {
		o.AutopilotMode = c.AutopilotMode
	}
	if c.Stabilize != nil {
		o.Stabilize = c.Stabilize
	}
	if c.Fuel != nil {
		o.Fuel = c.Fuel
	}
	return o
}

// TickResult is the read-only snapshot of a tick.
type TickResult struct {
	State        State
	Telemetry    Telemetry
	Parachute    ParachuteStatus
	Elements     OrbitalElements
	ElementsErr  error // ErrNotApplicable when Elements is undefined
	Forces       ForceBreakdown
	Terminal     Terminal
	Autopilot    bool
	Mode         AutopilotMode
	Stabilized   bool
	OrbitReached bool
	Rejected     []error // commands ignored or clamped during this tick
}

// Simulation owns the state of one run. It is not safe for concurrent use: it is meant to be
// driven by a single loop calling Tick.
type Simulation struct {
	Body    CelestialBody
	Vehicle Vehicle

	scenario     ScenarioConfig
	initialized  bool
	state        State
	chute        Parachute
	autopilot    bool
	mode         AutopilotMode
	stabilized   bool
	orbitReached bool
	terminal     Terminal
	fuelRate     float64
	lastForces   ForceBreakdown
	logger       kitlog.Logger
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithLogger sets the simulation's logger.
func WithLogger(logger kitlog.Logger) Option {
	return func(s *Simulation) {
		s.logger = logger
	}
}

// WithVehicle overrides the reference lander.
func WithVehicle(v Vehicle) Option {
	return func(s *Simulation) {
		s.Vehicle = v
	}
}

// NewSimulation returns a simulation around body. Initialize must be called before Tick.
func NewSimulation(body CelestialBody, opts ...Option) *Simulation {
	s := &Simulation{Body: body, Vehicle: NewVehicle(body)}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		klog := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
		s.logger = kitlog.With(klog, "body", body.Name)
	}
	return s
}

// Initialize validates sc and overwrites every mutable field from it. The parachute starts
// not deployed and the autopilot stays disabled unless the scenario engages it.
func (s *Simulation) Initialize(sc ScenarioConfig) (State, error) {
	sc = sc.withDefaults(s.Vehicle)
	if err := sc.Validate(s.Vehicle, s.Body); err != nil {
		level.Error(s.logger).Log("subsys", "mission", "scenario", sc.Name, "err", err)
		return State{}, err
	}
	s.scenario = sc
	s.state = State{
		Position:         sc.Position,
		Velocity:         sc.Velocity,
		Orientation:      sc.Orientation,
		Fuel:             s.Vehicle.ClampFuel(sc.Fuel),
		PreviousPosition: sc.Position,
	}
	s.chute = Parachute{}
	s.autopilot = sc.Autopilot
	s.mode = sc.AutopilotMode
	s.stabilized = sc.StabilizedAttitude
	s.orbitReached = false
	s.terminal = Flying
	s.fuelRate = sc.FuelRate
	if sc.InfiniteFuel {
		s.fuelRate = 0
	}
	s.lastForces = Forces(s.state, s.Vehicle, s.Body, s.chute.Status)
	s.initialized = true
	level.Info(s.logger).Log("subsys", "mission", "scenario", sc.Name, "description", sc.Description, "autopilot", s.autopilot, "mode", s.mode)
	return s.state, nil
}

// Reset re-initializes the simulation from the last scenario.
func (s *Simulation) Reset() (State, error) {
	if !s.initialized {
		return State{}, ErrNotInitialized
	}
	return s.Initialize(s.scenario)
}

// State returns a copy of the current state.
func (s *Simulation) State() State {
	return s.state
}

// Scenario returns the scenario being flown, with defaults filled in.
func (s *Simulation) Scenario() ScenarioConfig {
	return s.scenario
}

// DeltaT returns the scenario's time step.
func (s *Simulation) DeltaT() float64 {
	return s.scenario.DeltaT
}

// Terminal returns the outcome reached so far.
func (s *Simulation) Terminal() Terminal {
	return s.terminal
}

// activeAutopilot returns the control law for the current mode.
func (s *Simulation) activeAutopilot() (Autopilot, error) {
	sc := s.scenario
	switch s.mode {
	case LandMode:
		return NewLandAutopilot(sc.Kh, sc.Kp, sc.Delta), nil
	case InjectMode:
		return NewInjectAutopilot(s.Body, s.Vehicle, s.Body.Radius+sc.PeriapsisAltitude, s.Body.Radius+sc.ApoapsisAltitude, sc.Circular, sc.Kp)
	}
	return nil, fmt.Errorf("unknown autopilot mode %d", uint8(s.mode))
}

// Tick advances the simulation by one step of dt seconds (the scenario's step when dt <= 0),
// then applies cmd, the parachute load check, the autopilot and the touchdown evaluation.
// Once landed or crashed the state is frozen until Initialize or Reset.
func (s *Simulation) Tick(dt float64, cmd Command) TickResult {
	if !s.initialized {
		return TickResult{Rejected: []error{ErrNotInitialized}}
	}
	if dt <= 0 || math.IsNaN(dt) {
		dt = s.scenario.DeltaT
	}
	var rejected []error
	if s.terminal != Flying {
		return s.result(0, rejected)
	}

	// Integrate with the controls set during the previous tick.
	fb := Forces(s.state, s.Vehicle, s.Body, s.chute.Status)
	hadFuel := s.state.Fuel > 0
	s.state = Step(s.state, fb, s.Vehicle, s.fuelRate, dt)
	s.lastForces = fb
	if hadFuel && s.state.Fuel <= 0 {
		level.Warn(s.logger).Log("subsys", "prop", "status", "fuel exhausted", "t", s.state.Time)
	}

	rejected = s.apply(cmd, rejected)

	// Parachute load check on the force the canopy just carried.
	if s.chute.Status == Deployed {
		if status, _ := s.chute.Transition(LoadCheck, s.state, s.Vehicle, s.Body, fb.ChuteOverload); status == Lost {
			level.Warn(s.logger).Log("subsys", "chute", "status", status, "t", s.state.Time, "drag(N)", norm(fb.DragChute))
		}
	}

	tel := NewTelemetry(s.state, s.Body, dt)
	if s.autopilot {
		ap, err := s.activeAutopilot()
		if err != nil {
			rejected = append(rejected, fmt.Errorf("autopilot disengaged: %w", err))
			s.autopilot = false
		} else {
			ctrl := ap.Control(s.state, tel)
			if ctrl.OrbitReached && !s.orbitReached {
				level.Info(s.logger).Log("subsys", "autopilot", "status", "orbit reached", "t", s.state.Time, "reason", ap.Reason())
				s.orbitReached = true
			}
			if s.orbitReached {
				// Monitoring only until the autopilot is toggled or switched to another mode.
				s.state.Throttle = 0
			} else {
				s.state.Throttle = ctrl.Throttle
				s.orient(ctrl, tel)
			}
		}
	} else if s.stabilized {
		s.orient(Control{Attitude: AttitudeRetrograde}, tel)
	}

	s.terminal = Evaluate(tel, s.Vehicle)
	if s.terminal != Flying {
		s.state.Throttle = 0
		level.Info(s.logger).Log("subsys", "mission", "status", s.terminal, "t", s.state.Time,
			"climb(m/s)", tel.ClimbSpeed, "ground(m/s)", tel.SurfaceGroundSpeed, "fuel(l)", s.state.Fuel)
	}
	return s.result(dt, rejected)
}

// apply validates and applies the operator's commands.
func (s *Simulation) apply(cmd Command, rejected []error) []error {
	if cmd.Throttle != nil {
		t := ClampThrottle(*cmd.Throttle)
		if t != *cmd.Throttle {
			rejected = append(rejected, fmt.Errorf("throttle %g clamped to %g", *cmd.Throttle, t))
		}
		if s.autopilot {
			rejected = append(rejected, errors.New("manual throttle ignored while the autopilot is engaged"))
		} else {
			s.state.Throttle = t
		}
	}
	if cmd.Fuel != nil {
		f := s.Vehicle.ClampFuel(*cmd.Fuel)
		if f != *cmd.Fuel || math.IsNaN(*cmd.Fuel) {
			rejected = append(rejected, fmt.Errorf("fuel %g clamped to %g", *cmd.Fuel, f))
		}
		if !math.IsNaN(f) {
			s.state.Fuel = f
		}
	}
	if cmd.Stabilize != nil {
		s.stabilized = *cmd.Stabilize
	}
	if cmd.AutopilotMode != nil && *cmd.AutopilotMode != s.mode {
		s.mode = *cmd.AutopilotMode
		s.orbitReached = false
	}
	if cmd.Autopilot != nil && *cmd.Autopilot != s.autopilot {
		s.autopilot = *cmd.Autopilot
		s.orbitReached = false
		if !s.autopilot {
			s.state.Throttle = 0
		}
		level.Info(s.logger).Log("subsys", "autopilot", "enabled", s.autopilot, "mode", s.mode, "t", s.state.Time)
	}
	if cmd.DeployParachute {
		before := s.chute.Status
		status, err := s.chute.Transition(DeployRequested, s.state, s.Vehicle, s.Body, false)
		if err != nil {
			rejected = append(rejected, err)
			level.Warn(s.logger).Log("subsys", "chute", "err", err, "t", s.state.Time)
		} else if status != before {
			level.Info(s.logger).Log("subsys", "chute", "status", status, "t", s.state.Time)
		}
	}
	return rejected
}

// orient points the engine as ctrl requests, leaving the orientation unchanged when the
// direction is undefined.
func (s *Simulation) orient(ctrl Control, tel Telemetry) {
	if d, ok := ctrl.direction(s.state, tel, s.Body); ok {
		s.state.Orientation = OrientationFromDirection(d)
	}
}

func (s *Simulation) result(dt float64, rejected []error) TickResult {
	res := TickResult{
		State:        s.state,
		Telemetry:    NewTelemetry(s.state, s.Body, dt),
		Parachute:    s.chute.Status,
		Forces:       s.lastForces,
		Terminal:     s.terminal,
		Autopilot:    s.autopilot,
		Mode:         s.mode,
		Stabilized:   s.stabilized,
		OrbitReached: s.orbitReached,
		Rejected:     rejected,
	}
	res.Elements, res.ElementsErr = NewOrbitalElements(s.state.Position, s.state.Velocity, s.Body)
	return res
}
