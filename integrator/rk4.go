package integrator

import "errors"

// ErrStateSize is returned when the ODE function does not preserve the state dimension.
var ErrStateSize = errors.New("ODE function changed the state dimension")

// RK4 defines a classical fourth order Runge Kutta integrator.
type RK4 struct {
	X0         float64    // The initial x0.
	StepSize   float64    // The step size.
	Integrator Integrable // What is to be integrated.
}

// NewRK4 returns a new RK4 integrator instance.
func NewRK4(x0 float64, stepSize float64, inte Integrable) *RK4 {
	if stepSize <= 0 {
		panic("config StepSize must be positive")
	}
	if inte == nil {
		panic("config Integrator may not be nil")
	}
	return &RK4{X0: x0, StepSize: stepSize, Integrator: inte}
}

// Solve solves the configured RK4.
// Returns the number of iterations performed and the last X_i, or an error.
func (r *RK4) Solve() (uint64, float64, error) {
	const (
		half     = 1 / 2.0
		oneSixth = 1 / 6.0
		oneThird = 1 / 3.0
	)

	iterNum := uint64(0)
	xi := r.X0
	halfStep := r.StepSize * half
	for !r.Integrator.Stop(iterNum) {
		state := r.Integrator.GetState()
		n := len(state)
		newState := make([]float64, n)
		// k2, k3, k4 are used as buffers AND result variables.
		k1 := make([]float64, n)
		k2 := make([]float64, n)
		k3 := make([]float64, n)
		k4 := make([]float64, n)
		tState := make([]float64, n)

		f := r.Integrator.Func(xi, state)
		if len(f) != n {
			return iterNum, xi, ErrStateSize
		}
		for i, y := range f {
			k1[i] = y * r.StepSize
			tState[i] = state[i] + k1[i]*half
		}
		if f = r.Integrator.Func(xi+halfStep, tState); len(f) != n {
			return iterNum, xi, ErrStateSize
		}
		for i, y := range f {
			k2[i] = y * r.StepSize
			tState[i] = state[i] + k2[i]*half
		}
		if f = r.Integrator.Func(xi+halfStep, tState); len(f) != n {
			return iterNum, xi, ErrStateSize
		}
		for i, y := range f {
			k3[i] = y * r.StepSize
			tState[i] = state[i] + k3[i]
		}
		if f = r.Integrator.Func(xi+r.StepSize, tState); len(f) != n {
			return iterNum, xi, ErrStateSize
		}
		for i, y := range f {
			k4[i] = y * r.StepSize
			newState[i] = state[i] + oneSixth*(k1[i]+k4[i]) + oneThird*(k2[i]+k3[i])
		}
		r.Integrator.SetState(iterNum, newState)

		xi += r.StepSize
		iterNum++ // Don't forget to increment the number of iterations.
	}

	return iterNum, xi, nil
}
