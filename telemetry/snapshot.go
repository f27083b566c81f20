package telemetry

import (
	"math"

	"github.com/marssim/lander"
)

// Elements are the JSON safe orbital elements: the apoapsis of an escape trajectory is null.
type Elements struct {
	SemiMajor    float64  `json:"semi_major"`
	Eccentricity float64  `json:"eccentricity"`
	Periapsis    float64  `json:"periapsis"`
	Apoapsis     *float64 `json:"apoapsis"`
	Period       *float64 `json:"period"`
	Escape       bool     `json:"escape"`
}

// Snapshot is the message broadcast to websocket clients after each tick.
type Snapshot struct {
	Time               float64       `json:"time"`
	Position           lander.Vector `json:"position"`
	Velocity           lander.Vector `json:"velocity"`
	Orientation        lander.Vector `json:"orientation"`
	OrientationDeg     lander.Vector `json:"orientation_deg"`
	Fuel               float64       `json:"fuel"`
	Throttle           float64       `json:"throttle"`
	Altitude           float64       `json:"altitude"`
	ClimbSpeed         float64       `json:"climb_speed"`
	GroundSpeed        float64       `json:"ground_speed"`
	SurfaceGroundSpeed float64       `json:"surface_ground_speed"`
	Speed              float64       `json:"speed"`
	Density            float64       `json:"density"`
	Parachute          string        `json:"parachute"`
	Terminal           string        `json:"terminal"`
	Autopilot          bool          `json:"autopilot"`
	Mode               string        `json:"mode"`
	Stabilized         bool          `json:"stabilized"`
	OrbitReached       bool          `json:"orbit_reached"`
	Elements           *Elements     `json:"elements,omitempty"`
	Rejected           []string      `json:"rejected,omitempty"`
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func degrees(v lander.Vector) lander.Vector {
	return lander.Vector{X: lander.Rad2deg(v.X), Y: lander.Rad2deg(v.Y), Z: lander.Rad2deg(v.Z)}
}

// NewSnapshot converts a tick result into its JSON snapshot.
func NewSnapshot(res lander.TickResult) Snapshot {
	s := Snapshot{
		Time:               res.State.Time,
		Position:           res.State.Position,
		Velocity:           res.State.Velocity,
		Orientation:        res.State.Orientation,
		OrientationDeg:     degrees(res.State.Orientation),
		Fuel:               res.State.Fuel,
		Throttle:           res.State.Throttle,
		Altitude:           res.Telemetry.Altitude,
		ClimbSpeed:         res.Telemetry.ClimbSpeed,
		GroundSpeed:        res.Telemetry.GroundSpeed,
		SurfaceGroundSpeed: res.Telemetry.SurfaceGroundSpeed,
		Speed:              res.Telemetry.Speed,
		Density:            res.Telemetry.Density,
		Parachute:          res.Parachute.String(),
		Terminal:           res.Terminal.String(),
		Autopilot:          res.Autopilot,
		Mode:               res.Mode.String(),
		Stabilized:         res.Stabilized,
		OrbitReached:       res.OrbitReached,
	}
	if res.ElementsErr == nil {
		s.Elements = &Elements{
			SemiMajor:    res.Elements.SemiMajor,
			Eccentricity: res.Elements.Eccentricity,
			Periapsis:    res.Elements.Periapsis,
			Apoapsis:     finite(res.Elements.Apoapsis),
			Period:       finite(res.Elements.Period()),
			Escape:       res.Elements.Escape,
		}
	}
	for _, err := range res.Rejected {
		s.Rejected = append(s.Rejected, err.Error())
	}
	return s
}
