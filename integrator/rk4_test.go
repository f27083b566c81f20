package integrator

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

// expDecay integrates dy/dt = -k y.
type expDecay struct {
	k     float64
	state []float64
	steps uint64
}

func (e *expDecay) GetState() []float64 {
	return e.state
}

func (e *expDecay) SetState(i uint64, s []float64) {
	e.state = s
}

func (e *expDecay) Stop(i uint64) bool {
	return i >= e.steps
}

func (e *expDecay) Func(t float64, s []float64) []float64 {
	return []float64{-e.k * s[0]}
}

// oscillator integrates x'' = -x, with a time dependent check on t.
type oscillator struct {
	state []float64
	steps uint64
	times []float64
}

func (o *oscillator) GetState() []float64 {
	return o.state
}

func (o *oscillator) SetState(i uint64, s []float64) {
	o.state = s
}

func (o *oscillator) Stop(i uint64) bool {
	return i >= o.steps
}

func (o *oscillator) Func(t float64, s []float64) []float64 {
	o.times = append(o.times, t)
	return []float64{s[1], -s[0]}
}

func TestRK4ExpDecay(t *testing.T) {
	inte := &expDecay{k: 0.5, state: []float64{1}, steps: 100}
	iterNum, xi, err := NewRK4(0, 0.1, inte).Solve()
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	if iterNum != 100 {
		t.Fatalf("expected 100 iterations, got %d", iterNum)
	}
	if !scalar.EqualWithinAbs(xi, 10, 1e-9) {
		t.Fatalf("expected xi=10, got %f", xi)
	}
	if exp := math.Exp(-5); !scalar.EqualWithinAbs(inte.state[0], exp, 1e-8) {
		t.Fatalf("y(10)=%.12f, expected %.12f", inte.state[0], exp)
	}
}

func TestRK4Oscillator(t *testing.T) {
	inte := &oscillator{state: []float64{1, 0}, steps: 628}
	_, xi, err := NewRK4(0, 0.01, inte).Solve()
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	if !scalar.EqualWithinAbs(inte.state[0], math.Cos(xi), 1e-8) {
		t.Fatalf("x(%f)=%f, expected %f", xi, inte.state[0], math.Cos(xi))
	}
	if !scalar.EqualWithinAbs(inte.state[1], -math.Sin(xi), 1e-8) {
		t.Fatalf("v(%f)=%f, expected %f", xi, inte.state[1], -math.Sin(xi))
	}
	// Evaluation abscissae of the first step.
	exp := []float64{0, 0.005, 0.005, 0.01}
	for i, e := range exp {
		if !scalar.EqualWithinAbs(inte.times[i], e, 1e-15) {
			t.Fatalf("evaluation #%d at t=%f, expected %f", i, inte.times[i], e)
		}
	}
}

type badDimension struct{ expDecay }

func (b *badDimension) Func(t float64, s []float64) []float64 {
	return []float64{0, 0}
}

func TestRK4Errors(t *testing.T) {
	inte := &badDimension{expDecay{state: []float64{1}, steps: 10}}
	if _, _, err := NewRK4(0, 1, inte).Solve(); err != ErrStateSize {
		t.Fatalf("expected ErrStateSize, got %v", err)
	}
	for _, step := range []float64{0, -1} {
		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Fatalf("step %f did not panic", step)
				}
			}()
			NewRK4(0, step, &expDecay{})
		}()
	}
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("nil integrable did not panic")
		}
	}()
	NewRK4(0, 1, nil)
}
