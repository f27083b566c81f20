package lander

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigEnv is the environment variable holding the runtime configuration path.
const ConfigEnv = "LANDER_CONFIG"

// Config is the runtime configuration of the driver.
type Config struct {
	DeltaT       float64       // sim.dt, zero keeps the scenario's step
	Speed        int           // sim.speed, ticks per frame
	MaxTime      float64       // sim.max_time (s), zero for unlimited
	Scenario     string        // sim.scenario
	ScenarioFile string        // sim.scenario_file
	Realtime     bool          // sim.realtime
	Frame        time.Duration // sim.frame

	// Autopilot overrides the scenario when set (autopilot.enabled).
	Autopilot     *bool
	AutopilotMode *AutopilotMode // autopilot.mode

	LogLevel       string  // log.level
	MetricsAddr    string  // telemetry.metrics_addr
	WebsocketAddr  string  // telemetry.ws_addr
	CSV            string  // telemetry.csv
	PredictHorizon float64 // predict.horizon (s)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("sim.dt", 0.0)
	v.SetDefault("sim.speed", 1)
	v.SetDefault("sim.max_time", 0.0)
	v.SetDefault("sim.scenario", "descent-10km")
	v.SetDefault("sim.scenario_file", "")
	v.SetDefault("sim.realtime", false)
	v.SetDefault("sim.frame", 20*time.Millisecond)
	v.SetDefault("autopilot.mode", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("telemetry.metrics_addr", "")
	v.SetDefault("telemetry.ws_addr", "")
	v.SetDefault("telemetry.csv", "")
	v.SetDefault("predict.horizon", 600.0)
	v.SetEnvPrefix("LANDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads the runtime configuration. An empty path falls back to the LANDER_CONFIG
// environment variable, and to the defaults (plus LANDER_ environment overrides) if both are empty.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	v := newViper()
	if path != "" {
		v.SetConfigFile(filepath.Clean(path))
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	return configFromViper(v)
}

func configFromViper(v *viper.Viper) (Config, error) {
	c := Config{
		DeltaT:         v.GetFloat64("sim.dt"),
		Speed:          v.GetInt("sim.speed"),
		MaxTime:        v.GetFloat64("sim.max_time"),
		Scenario:       v.GetString("sim.scenario"),
		ScenarioFile:   v.GetString("sim.scenario_file"),
		Realtime:       v.GetBool("sim.realtime"),
		Frame:          v.GetDuration("sim.frame"),
		LogLevel:       strings.ToLower(v.GetString("log.level")),
		MetricsAddr:    v.GetString("telemetry.metrics_addr"),
		WebsocketAddr:  v.GetString("telemetry.ws_addr"),
		CSV:            v.GetString("telemetry.csv"),
		PredictHorizon: v.GetFloat64("predict.horizon"),
	}
	if v.IsSet("autopilot.enabled") {
		enabled := v.GetBool("autopilot.enabled")
		c.Autopilot = &enabled
	}
	if name := v.GetString("autopilot.mode"); name != "" {
		mode, err := AutopilotModeFromString(name)
		if err != nil {
			return Config{}, err
		}
		c.AutopilotMode = &mode
	}
	if c.Speed < 1 {
		return Config{}, fmt.Errorf("sim.speed must be at least 1, got %d", c.Speed)
	}
	if c.DeltaT < 0 {
		return Config{}, fmt.Errorf("sim.dt must be positive, got %f", c.DeltaT)
	}
	if c.Frame <= 0 {
		return Config{}, fmt.Errorf("sim.frame must be positive, got %s", c.Frame)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return c, nil
}

// Apply overlays the configuration's overrides onto a scenario.
func (c Config) Apply(sc ScenarioConfig) ScenarioConfig {
	if c.DeltaT > 0 {
		sc.DeltaT = c.DeltaT
	}
	if c.Autopilot != nil {
		sc.Autopilot = *c.Autopilot
	}
	if c.AutopilotMode != nil {
		sc.AutopilotMode = *c.AutopilotMode
	}
	return sc
}

// Catalogue returns the configured scenario catalogue: the file's scenarios when one is set,
// the built-in ones otherwise.
func (c Config) Catalogue(body CelestialBody) ([]ScenarioConfig, error) {
	if c.ScenarioFile == "" {
		return Scenarios(body), nil
	}
	return LoadScenarios(c.ScenarioFile)
}
