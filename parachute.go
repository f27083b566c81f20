package lander

import (
	"errors"
	"fmt"
)

// ParachuteStatus defines the parachute's deployment status.
type ParachuteStatus uint8

const (
	// NotDeployed is the initial status.
	NotDeployed ParachuteStatus = iota
	// Deployed means the canopy is open and produces drag.
	Deployed
	// Lost is terminal: the canopy was torn off.
	Lost
)

func (p ParachuteStatus) String() string {
	switch p {
	case NotDeployed:
		return "not deployed"
	case Deployed:
		return "deployed"
	case Lost:
		return "lost"
	}
	panic(fmt.Errorf("cannot stringify unknown parachute status %d", uint8(p)))
}

// ParachuteEvent is an input of the parachute state machine.
type ParachuteEvent uint8

const (
	// DeployRequested is an operator (or scenario) request to open the canopy.
	DeployRequested ParachuteEvent = iota + 1
	// LoadCheck is raised every tick while deployed with the latest aerodynamic load.
	LoadCheck
)

// ErrParachuteUnsafe is returned when a deploy request is rejected.
var ErrParachuteUnsafe = errors.New("unsafe to deploy parachute")

// SafeToDeployParachute returns whether the canopy may be opened at the provided state:
// below the transition altitude, inside the atmosphere, slower than MaxParachuteSpeed,
// and with an uncapped canopy drag within MaxParachuteDrag.
func SafeToDeployParachute(s State, v Vehicle, body CelestialBody) bool {
	tel := NewTelemetry(s, body, 0)
	if tel.Altitude >= v.TransitionAltitude || tel.Density <= 0 {
		return false
	}
	return parachuteLoadOK(tel, v)
}

func parachuteLoadOK(tel Telemetry, v Vehicle) bool {
	if norm(tel.VelocityWrtAtmosphere) >= v.MaxParachuteSpeed {
		return false
	}
	drag := tel.DynamicPressure * v.DragCoefChute * v.ChuteArea()
	return drag <= v.MaxParachuteDrag
}

// Parachute is the parachute state machine. The zero value is not deployed.
type Parachute struct {
	Status ParachuteStatus
}

// Transition applies ev and returns the new status. A deploy request made while deployed or
// lost is a no-op; a deploy request made while unsafe is rejected with ErrParachuteUnsafe.
// A load check while deployed loses the canopy when it is overloaded (or when the
// state is no longer safe for it) and is ignored otherwise.
func (p *Parachute) Transition(ev ParachuteEvent, s State, v Vehicle, body CelestialBody, overloaded bool) (ParachuteStatus, error) {
	switch ev {
	case DeployRequested:
		if p.Status != NotDeployed {
			return p.Status, nil
		}
		if !SafeToDeployParachute(s, v, body) {
			return p.Status, ErrParachuteUnsafe
		}
		p.Status = Deployed
	case LoadCheck:
		if p.Status != Deployed {
			return p.Status, nil
		}
		if overloaded || !parachuteLoadOK(NewTelemetry(s, body, 0), v) {
			p.Status = Lost
		}
	default:
		panic(fmt.Errorf("unknown parachute event %d", uint8(ev)))
	}
	return p.Status, nil
}
