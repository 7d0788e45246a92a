// Package model holds the generative model consumed by the belief updater:
// the hidden state space, the observation space and one categorical
// likelihood tensor per observation modality.
package model

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/BerenMillidge/inferactively/tensor"
)

// normTol is the tolerance for likelihood column sums during validation.
const normTol = 1e-9

// Model is a factorized generative model. Likelihoods[m] has shape
// (ObservationSpace[m], StateSpace...) and gives the distribution of
// modality m's outcome conditioned on the full joint hidden state.
type Model struct {
	StateSpace       []int           `json:"state_space"`
	ObservationSpace []int           `json:"observation_space"`
	Likelihoods      []*tensor.Dense `json:"likelihoods"`
}

// NumFactors returns the number of hidden state factors.
func (m *Model) NumFactors() int {
	return len(m.StateSpace)
}

// NumModalities returns the number of observation modalities.
func (m *Model) NumModalities() int {
	return len(m.ObservationSpace)
}

// Validate checks the model invariants: one likelihood per modality, each
// with the declared outcome axis followed by the declared hidden axes, and
// each observation-axis slice summing to 1 for every joint state.
func (m *Model) Validate() error {
	if len(m.StateSpace) == 0 {
		return fmt.Errorf("model: empty state space")
	}
	if len(m.ObservationSpace) == 0 {
		return fmt.Errorf("model: empty observation space")
	}
	for f, n := range m.StateSpace {
		if n <= 0 {
			return fmt.Errorf("model: factor %d has size %d", f, n)
		}
	}
	if len(m.Likelihoods) != len(m.ObservationSpace) {
		return fmt.Errorf("model: %d likelihood tensors for %d modalities", len(m.Likelihoods), len(m.ObservationSpace))
	}
	for mod, lik := range m.Likelihoods {
		if lik == nil {
			return fmt.Errorf("model: modality %d: missing likelihood tensor", mod)
		}
		sh := lik.Shape()
		if len(sh) != len(m.StateSpace)+1 {
			return fmt.Errorf("model: modality %d: %w", mod, &tensor.DimensionMismatchError{Axis: -1, What: "hidden axis count", Want: len(m.StateSpace), Got: len(sh) - 1})
		}
		if sh[0] != m.ObservationSpace[mod] {
			return fmt.Errorf("model: modality %d: %w", mod, &tensor.DimensionMismatchError{Axis: 0, What: "outcome axis size", Want: m.ObservationSpace[mod], Got: sh[0]})
		}
		for f, n := range m.StateSpace {
			if sh[f+1] != n {
				return fmt.Errorf("model: modality %d: %w", mod, &tensor.DimensionMismatchError{Axis: f + 1, What: "hidden axis size", Want: n, Got: sh[f+1]})
			}
		}
		if err := checkColumnNorm(lik); err != nil {
			return fmt.Errorf("model: modality %d: %w", mod, err)
		}
	}
	return nil
}

// checkColumnNorm verifies that every observation-axis slice is a valid
// conditional distribution.
func checkColumnNorm(lik *tensor.Dense) error {
	sh := lik.Shape()
	outcomes := sh[0]
	cols := lik.Size() / outcomes
	data := lik.Data()
	for c := range cols {
		sum := 0.0
		for o := range outcomes {
			v := data[o*cols+c]
			if v < 0 || math.IsNaN(v) {
				return fmt.Errorf("negative or NaN likelihood entry %v", v)
			}
			sum += v
		}
		if math.Abs(sum-1) > normTol {
			return fmt.Errorf("likelihood column sums to %v, want 1", sum)
		}
	}
	return nil
}

// Identity builds the grid-world style model with one modality per factor,
// where modality f reports factor f's state exactly: the likelihood is an
// identity mapping from state to outcome, independent of all other factors.
func Identity(stateSpace []int) *Model {
	m := &Model{
		StateSpace:       append([]int(nil), stateSpace...),
		ObservationSpace: append([]int(nil), stateSpace...),
		Likelihoods:      make([]*tensor.Dense, len(stateSpace)),
	}
	for f, n := range stateSpace {
		lik := tensor.New(append([]int{n}, stateSpace...)...)
		data := lik.Data()
		cols := lik.Size() / n
		// Stride of factor f within the flattened hidden axes.
		stride := 1
		for _, s := range stateSpace[f+1:] {
			stride *= s
		}
		for c := range cols {
			state := (c / stride) % n
			data[state*cols+c] = 1
		}
		m.Likelihoods[f] = lik
	}
	return m
}

// Uniform builds a model whose every modality is uninformative: each
// outcome is equally likely under every joint state.
func Uniform(stateSpace, observationSpace []int) *Model {
	m := &Model{
		StateSpace:       append([]int(nil), stateSpace...),
		ObservationSpace: append([]int(nil), observationSpace...),
		Likelihoods:      make([]*tensor.Dense, len(observationSpace)),
	}
	for mod, outcomes := range observationSpace {
		lik := tensor.New(append([]int{outcomes}, stateSpace...)...)
		data := lik.Data()
		p := 1.0 / float64(outcomes)
		for i := range data {
			data[i] = p
		}
		m.Likelihoods[mod] = lik
	}
	return m
}

// Random builds a model with positive random likelihoods, column-normalized
// so every observation slice is a valid distribution. The same seed always
// yields the same model.
func Random(stateSpace, observationSpace []int, seed uint64) *Model {
	rng := rand.New(rand.NewPCG(seed, seed))
	m := &Model{
		StateSpace:       append([]int(nil), stateSpace...),
		ObservationSpace: append([]int(nil), observationSpace...),
		Likelihoods:      make([]*tensor.Dense, len(observationSpace)),
	}
	for mod, outcomes := range observationSpace {
		lik := tensor.New(append([]int{outcomes}, stateSpace...)...)
		data := lik.Data()
		for i := range data {
			data[i] = rng.Float64() + 1e-3
		}
		cols := lik.Size() / outcomes
		col := make([]float64, outcomes)
		for c := range cols {
			for o := range outcomes {
				col[o] = data[o*cols+c]
			}
			floats.Scale(1/floats.Sum(col), col)
			for o := range outcomes {
				data[o*cols+c] = col[o]
			}
		}
		m.Likelihoods[mod] = lik
	}
	return m
}
