package lander

import (
	"fmt"
	"math"
)

// Terminal is the outcome of a run.
type Terminal uint8

const (
	// Flying means no terminal state was reached.
	Flying Terminal = iota
	// Landed is a safe touchdown.
	Landed
	// Crashed is a touchdown outside the impact limits.
	Crashed
)

func (t Terminal) String() string {
	switch t {
	case Flying:
		return "flying"
	case Landed:
		return "landed"
	case Crashed:
		return "crashed"
	}
	panic(fmt.Errorf("cannot stringify unknown terminal state %d", uint8(t)))
}

// Evaluate classifies the touchdown described by tel. It returns Flying while above the surface.
// The ground speed is taken relative to the rotating surface.
func Evaluate(tel Telemetry, v Vehicle) Terminal {
	if tel.Altitude > 0 {
		return Flying
	}
	if tel.SurfaceGroundSpeed > v.MaxImpactGroundSpeed || math.Abs(tel.ClimbSpeed) > v.MaxImpactDescentRate {
		return Crashed
	}
	return Landed
}
