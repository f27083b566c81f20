package lander

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidScenario is returned when a scenario cannot be flown.
var ErrInvalidScenario = errors.New("invalid scenario")

// ScenarioConfig is the immutable description of a run. Target apsides are altitudes above the
// surface, as they are typed in by the operator.
type ScenarioConfig struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Position    Vector  `yaml:"position"`    // m
	Velocity    Vector  `yaml:"velocity"`    // m/s
	Orientation Vector  `yaml:"orientation"` // XYZ Euler angles (rad)
	Fuel        float64 `yaml:"fuel"`        // l, ignored when FullTank is set
	FullTank    bool    `yaml:"full_tank"`
	DeltaT      float64 `yaml:"delta_t"` // s

	StabilizedAttitude bool          `yaml:"stabilized_attitude"`
	Autopilot          bool          `yaml:"autopilot"`
	AutopilotMode      AutopilotMode `yaml:"autopilot_mode"`

	PeriapsisAltitude float64 `yaml:"periapsis_altitude"`
	ApoapsisAltitude  float64 `yaml:"apoapsis_altitude"`
	Circular          bool    `yaml:"circular"`

	Kh    float64 `yaml:"kh"`
	Kp    float64 `yaml:"kp"`
	Delta float64 `yaml:"delta"`

	FuelRate     float64 `yaml:"fuel_rate"` // l/s at full throttle
	InfiniteFuel bool    `yaml:"infinite_fuel"`
}

// Validate checks the scenario against the vehicle and body it will be flown with.
func (sc ScenarioConfig) Validate(v Vehicle, body CelestialBody) error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%s: %s: %w", sc.Name, fmt.Sprintf(format, args...), ErrInvalidScenario)
	}
	if body.Radius <= 0 {
		return invalid("body radius %f must be positive", body.Radius)
	}
	if body.Mass <= 0 {
		return invalid("body mass %f must be positive", body.Mass)
	}
	if v.FuelCapacity < 0 {
		return invalid("fuel capacity %f is negative", v.FuelCapacity)
	}
	if v.UnloadedMass <= 0 {
		return invalid("unloaded mass %f must be positive", v.UnloadedMass)
	}
	for name, vec := range map[string]Vector{"position": sc.Position, "velocity": sc.Velocity, "orientation": sc.Orientation} {
		if isNaNVector(vec) {
			return invalid("%s has a NaN or infinite component", name)
		}
	}
	if norm(sc.Position) < body.Radius {
		return invalid("initial position is below the surface")
	}
	if _, err := NewOrbitalElements(sc.Position, sc.Velocity, body); err != nil {
		return invalid("degenerate initial velocity: %s", err)
	}
	if !sc.FullTank && (sc.Fuel < 0 || sc.Fuel > v.FuelCapacity) {
		return invalid("fuel %f outside [0, %f]", sc.Fuel, v.FuelCapacity)
	}
	if sc.DeltaT < 0 || math.IsNaN(sc.DeltaT) {
		return invalid("time step %f is negative", sc.DeltaT)
	}
	if sc.FuelRate < 0 {
		return invalid("fuel rate %f is negative", sc.FuelRate)
	}
	if sc.Kh < 0 || sc.Kp < 0 || sc.Delta < 0 {
		return invalid("autopilot gains must be positive")
	}
	if sc.AutopilotMode == InjectMode {
		if sc.PeriapsisAltitude <= 0 {
			return invalid("injection periapsis altitude %f must be positive", sc.PeriapsisAltitude)
		}
		if !sc.Circular && sc.ApoapsisAltitude < sc.PeriapsisAltitude {
			return invalid("injection apoapsis below periapsis")
		}
	}
	return nil
}

func isNaNVector(v Vector) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return true
		}
	}
	return false
}

// withDefaults fills in the zero valued tuning parameters.
func (sc ScenarioConfig) withDefaults(v Vehicle) ScenarioConfig {
	if sc.FullTank {
		sc.Fuel = v.FuelCapacity
	}
	if sc.DeltaT == 0 {
		sc.DeltaT = DefaultDeltaT
	}
	if sc.Kh == 0 && sc.Kp == 0 && sc.Delta == 0 {
		sc.Kh, sc.Kp, sc.Delta = DefaultKh, DefaultKp, DefaultDelta
	}
	if sc.FuelRate == 0 {
		sc.FuelRate = v.FuelRateAtMaxThrust
	}
	if sc.PeriapsisAltitude == 0 {
		sc.PeriapsisAltitude = DefaultInjectAltitude
	}
	if sc.ApoapsisAltitude == 0 {
		sc.ApoapsisAltitude = sc.PeriapsisAltitude
	}
	return sc
}

const (
	// DefaultDeltaT is the integration time step (s).
	DefaultDeltaT = 0.1
	// DefaultInjectAltitude is the default target apsis altitude (m).
	DefaultInjectAltitude = 100000.0
)

// Scenarios returns the built-in scenario catalogue for the provided body.
func Scenarios(body CelestialBody) []ScenarioConfig {
	r := body.Radius
	stationary := body.StationaryRadius()
	return []ScenarioConfig{
		{
			Name:        "circular-orbit",
			Description: "circular orbit",
			Position:    Vector{X: 1.2 * r},
			Velocity:    Vector{Y: -body.CircularSpeed(1.2 * r)},
			Orientation: Vector{Y: math.Pi / 2},
			FullTank:    true,
		},
		{
			Name:               "descent-10km",
			Description:        "descent from 10km",
			Position:           Vector{Y: -(r + 10000)},
			Orientation:        Vector{Z: math.Pi / 2},
			FullTank:           true,
			StabilizedAttitude: true,
		},
		{
			Name:        "elliptical-orbit",
			Description: "elliptical orbit, thrust changes orbital plane",
			Position:    Vector{Z: 1.2 * r},
			Velocity:    Vector{X: 3500},
			Orientation: Vector{Z: math.Pi / 2},
			FullTank:    true,
		},
		{
			Name:        "polar-launch",
			Description: "polar launch at escape velocity (but drag prevents escape)",
			Position:    Vector{Z: r + 0.5},
			Velocity:    Vector{Z: 5027},
			FullTank:    true,
		},
		{
			Name:        "atmosphere-clip",
			Description: "elliptical orbit that clips the atmosphere and decays",
			Position:    Vector{Z: r + 100000},
			Velocity:    Vector{X: 4000},
			Orientation: Vector{Y: math.Pi / 2},
			FullTank:    true,
		},
		{
			Name:               "descent-200km",
			Description:        "descent from 200km",
			Position:           Vector{Y: -(r + body.Exosphere)},
			Orientation:        Vector{Z: math.Pi / 2},
			FullTank:           true,
			StabilizedAttitude: true,
		},
		{
			Name:        "areostationary",
			Description: "areostationary orbit",
			Position:    Vector{X: stationary},
			Velocity:    Vector{Y: body.CircularSpeed(stationary)},
			Orientation: Vector{Y: math.Pi / 2},
			FullTank:    true,
		},
		{
			Name:               "descent-autopilot",
			Description:        "descent from 10km with the landing autopilot engaged",
			Position:           Vector{Y: -(r + 10000)},
			Orientation:        Vector{Z: math.Pi / 2},
			FullTank:           true,
			StabilizedAttitude: true,
			Autopilot:          true,
			AutopilotMode:      LandMode,
			Kh:                 0.025,
			Kp:                 2.0,
			Delta:              1.0,
		},
		{
			Name:              "ascent-to-orbit",
			Description:       "surface launch into a 250km circular orbit with the injection autopilot engaged",
			Position:          Vector{Z: r + 0.5},
			FullTank:          true,
			InfiniteFuel:      true,
			Autopilot:         true,
			AutopilotMode:     InjectMode,
			PeriapsisAltitude: 250000,
			Circular:          true,
		},
	}
}

// ScenarioByName looks a scenario up in a catalogue.
func ScenarioByName(catalogue []ScenarioConfig, name string) (ScenarioConfig, error) {
	for _, sc := range catalogue {
		if sc.Name == name {
			return sc, nil
		}
	}
	return ScenarioConfig{}, fmt.Errorf("unknown scenario %q", name)
}

// scenarioFile is the on-disk layout of a scenario catalogue. Angles are in degrees.
type scenarioFile struct {
	Scenarios []struct {
		ScenarioConfig `yaml:",inline"`
		OrientationDeg *Vector `yaml:"orientation_deg"`
	} `yaml:"scenarios"`
}

// ReadScenarios decodes a YAML scenario catalogue.
func ReadScenarios(r io.Reader) ([]ScenarioConfig, error) {
	var f scenarioFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding scenarios: %w", err)
	}
	catalogue := make([]ScenarioConfig, 0, len(f.Scenarios))
	for i, raw := range f.Scenarios {
		sc := raw.ScenarioConfig
		if sc.Name == "" {
			return nil, fmt.Errorf("scenario #%d has no name: %w", i, ErrInvalidScenario)
		}
		if raw.OrientationDeg != nil {
			sc.Orientation = Vector{X: Deg2rad(raw.OrientationDeg.X), Y: Deg2rad(raw.OrientationDeg.Y), Z: Deg2rad(raw.OrientationDeg.Z)}
		}
		catalogue = append(catalogue, sc)
	}
	return catalogue, nil
}

// LoadScenarios reads a YAML scenario catalogue from disk.
func LoadScenarios(path string) ([]ScenarioConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadScenarios(f)
}
