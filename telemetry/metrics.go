package telemetry

import (
	"fmt"
	"net/http"

	"github.com/marssim/lander"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics of a simulation run.
type Collector struct {
	gatherer prometheus.Gatherer

	Ticks     prometheus.Counter
	Rejected  prometheus.Counter
	Outcomes  *prometheus.CounterVec
	Altitude  prometheus.Gauge
	Climb     prometheus.Gauge
	Ground    prometheus.Gauge
	Fuel      prometheus.Gauge
	Throttle  prometheus.Gauge
	SimTime   prometheus.Gauge
	Parachute prometheus.Gauge
}

// NewCollector registers the lander metrics against the provided registerer, defaulting to the
// global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	c := &Collector{gatherer: gatherer}

	var err error
	if c.Ticks, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lander_ticks_total",
		Help: "Total number of simulation ticks.",
	}), "lander_ticks_total"); err != nil {
		return nil, err
	}
	if c.Rejected, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lander_rejected_commands_total",
		Help: "Total number of commands rejected or clamped.",
	}), "lander_rejected_commands_total"); err != nil {
		return nil, err
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lander_outcomes_total",
		Help: "Terminal outcomes, labeled by landed or crashed.",
	}, []string{"terminal"})
	if c.Outcomes, err = registerCounterVec(reg, outcomes, "lander_outcomes_total"); err != nil {
		return nil, err
	}
	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.Altitude, "lander_altitude_meters", "Altitude above the mean surface."},
		{&c.Climb, "lander_climb_speed_meters_per_second", "Radial velocity component."},
		{&c.Ground, "lander_ground_speed_meters_per_second", "Ground speed with respect to the rotating surface."},
		{&c.Fuel, "lander_fuel_liters", "Fuel left in the tank."},
		{&c.Throttle, "lander_throttle_ratio", "Engine throttle in [0, 1]."},
		{&c.SimTime, "lander_simulation_time_seconds", "Simulated time since the scenario start."},
		{&c.Parachute, "lander_parachute_status", "Parachute status: 0 not deployed, 1 deployed, 2 lost."},
	}
	for _, g := range gauges {
		if *g.dst, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: g.name, Help: g.help}), g.name); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Observe records the result of a tick.
func (c *Collector) Observe(res lander.TickResult) {
	if c == nil {
		return
	}
	c.Ticks.Inc()
	c.Rejected.Add(float64(len(res.Rejected)))
	c.Altitude.Set(res.Telemetry.Altitude)
	c.Climb.Set(res.Telemetry.ClimbSpeed)
	c.Ground.Set(res.Telemetry.SurfaceGroundSpeed)
	c.Fuel.Set(res.State.Fuel)
	c.Throttle.Set(res.State.Throttle)
	c.SimTime.Set(res.State.Time)
	c.Parachute.Set(float64(res.Parachute))
}

// RecordOutcome counts a terminal outcome. Flying is ignored.
func (c *Collector) RecordOutcome(t lander.Terminal) {
	if c == nil || t == lander.Flying {
		return
	}
	c.Outcomes.WithLabelValues(t.String()).Inc()
}

// Handler exposes the collector's registry over HTTP.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
