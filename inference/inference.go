// Package inference implements the fixed-point iteration posterior update
// for factorized discrete-state generative models.
//
// Given one likelihood tensor per observation modality and a single
// observation, Infer recovers an approximate posterior over every hidden
// state factor under the mean-field factorization q(s) = prod_f q_f(s_f).
// The iteration alternates evidence accumulation and belief renormalization
// per factor until the variational free energy stops changing.
package inference

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/BerenMillidge/inferactively/categorical"
	"github.com/BerenMillidge/inferactively/tensor"
)

// probFloor is added before every logarithm to avoid log(0).
const probFloor = 1e-16

// Config holds the fixed-point iteration parameters.
type Config struct {
	// MaxIterations caps the number of full sweeps over all factors.
	MaxIterations int
	// Tolerance stops the iteration once the free energy change across a
	// sweep falls below it.
	Tolerance float64
	// SweepOrder optionally fixes the factor update order. It must be a
	// permutation of all factor indices; empty means ascending order.
	SweepOrder []int
}

// DefaultConfig returns the default iteration parameters.
func DefaultConfig() Config {
	return Config{
		MaxIterations: 10,
		Tolerance:     1e-4,
	}
}

// Infer computes a posterior belief per hidden state factor given one
// likelihood tensor per modality and one observation index per modality.
//
// Each likelihood tensor has shape (m, n_1, ..., n_F): axis 0 ranges over
// the modality's outcomes and the remaining axes over the hidden state
// factors, which must agree across modalities. A nil prior means a uniform
// belief over every factor. Likelihood tensors and the prior are never
// mutated; the returned distribution is freshly allocated.
//
// Malformed inputs fail with a tensor.DimensionMismatchError (or a
// categorical.ShapeError for a malformed prior) before any belief is
// produced. Hitting MaxIterations without convergence is not an error.
func Infer(likelihoods []*tensor.Dense, obs []int, prior *categorical.Dist, cfg Config) (*categorical.Dist, error) {
	space, err := validateInputs(likelihoods, obs, prior)
	if err != nil {
		return nil, err
	}
	numFactors := len(space)

	order, err := sweepOrder(cfg.SweepOrder, numFactors)
	if err != nil {
		return nil, err
	}
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultConfig().MaxIterations
	}
	tol := cfg.Tolerance
	if tol <= 0 {
		tol = DefaultConfig().Tolerance
	}

	qs, logPrior := initialBeliefs(space, prior)

	prevVFE := math.Inf(1)
	for iter := range maxIter {
		for _, f := range order {
			logQ := make([]float64, space[f])
			copy(logQ, logPrior[f])
			for m, lik := range likelihoods {
				marg, err := tensor.ContractObs(lik, obs[m], qs, f)
				if err != nil {
					return nil, fmt.Errorf("inference: modality %d: %w", m, err)
				}
				for i, v := range marg.Data() {
					logQ[i] += math.Log(v + probFloor)
				}
			}
			softmaxInPlace(logQ)
			qs[f] = logQ
		}

		vfe, err := freeEnergy(likelihoods, obs, qs, logPrior)
		if err != nil {
			return nil, err
		}
		delta := math.Abs(prevVFE - vfe)
		slog.Debug("Fixed-point sweep", "iteration", iter+1, "free_energy", vfe, "delta", delta)
		if delta < tol {
			break
		}
		prevVFE = vfe
	}

	posterior, err := categorical.NewForSpace(space, qs...)
	if err != nil {
		return nil, err
	}
	return posterior, nil
}

// FreeEnergy returns the variational free energy of the beliefs qs under
// the given likelihoods, observation and prior (uniform when nil). Lower
// is better; at convergence it approximates the negative log evidence.
func FreeEnergy(likelihoods []*tensor.Dense, obs []int, qs, prior *categorical.Dist) (float64, error) {
	space, err := validateInputs(likelihoods, obs, prior)
	if err != nil {
		return 0, err
	}
	if qs.NumFactors() != len(space) {
		return 0, &categorical.ShapeError{Factor: -1, Reason: fmt.Sprintf("%d belief factors for a %d-factor space", qs.NumFactors(), len(space))}
	}
	for f, n := range space {
		if len(qs.Factor(f)) != n {
			return 0, &categorical.ShapeError{Factor: f, Reason: fmt.Sprintf("belief length %d does not match factor size %d", len(qs.Factor(f)), n)}
		}
	}
	_, logPrior := initialBeliefs(space, prior)
	return freeEnergy(likelihoods, obs, qs.Factors(), logPrior)
}

// PredictObservation returns the predicted outcome distribution for every
// modality given the current beliefs: the expectation of each likelihood
// tensor under qs, leaving the observation axis free. The result holds one
// factor per modality.
func PredictObservation(likelihoods []*tensor.Dense, qs *categorical.Dist) (*categorical.Dist, error) {
	if len(likelihoods) == 0 {
		return nil, &tensor.DimensionMismatchError{Axis: -1, What: "modality count", Want: 1, Got: 0}
	}
	outcomes := make([][]float64, len(likelihoods))
	for m, lik := range likelihoods {
		vecs := make([][]float64, lik.Rank())
		copy(vecs[1:], qs.Factors())
		po, err := tensor.Contract(lik, vecs, 0)
		if err != nil {
			return nil, fmt.Errorf("inference: modality %d: %w", m, err)
		}
		outcomes[m] = po.Data()
	}
	predicted, err := categorical.New(outcomes...)
	if err != nil {
		return nil, err
	}
	predicted.Normalize()
	return predicted, nil
}

// validateInputs checks every precondition from the error taxonomy and
// returns the hidden state space on success.
func validateInputs(likelihoods []*tensor.Dense, obs []int, prior *categorical.Dist) ([]int, error) {
	if len(likelihoods) == 0 {
		return nil, &tensor.DimensionMismatchError{Axis: -1, What: "modality count", Want: 1, Got: 0}
	}
	first := likelihoods[0].Shape()
	if len(first) < 2 {
		return nil, fmt.Errorf("inference: modality 0: %w", &tensor.DimensionMismatchError{Axis: -1, What: "tensor rank", Want: 2, Got: len(first)})
	}
	space := first[1:]

	for m, lik := range likelihoods {
		sh := lik.Shape()
		if len(sh) != len(space)+1 {
			return nil, fmt.Errorf("inference: modality %d: %w", m, &tensor.DimensionMismatchError{Axis: -1, What: "hidden axis count", Want: len(space), Got: len(sh) - 1})
		}
		for f, n := range space {
			if sh[f+1] != n {
				return nil, fmt.Errorf("inference: modality %d: %w", m, &tensor.DimensionMismatchError{Axis: f + 1, What: "hidden axis size", Want: n, Got: sh[f+1]})
			}
		}
	}

	if len(obs) != len(likelihoods) {
		return nil, &tensor.DimensionMismatchError{Axis: -1, What: "observation count", Want: len(likelihoods), Got: len(obs)}
	}
	for m, o := range obs {
		if size := likelihoods[m].Shape()[0]; o < 0 || o >= size {
			return nil, fmt.Errorf("inference: modality %d: %w", m, &tensor.DimensionMismatchError{Axis: 0, What: "observation index", Want: size, Got: o})
		}
	}

	if prior != nil {
		if prior.NumFactors() != len(space) {
			return nil, &categorical.ShapeError{Factor: -1, Reason: fmt.Sprintf("%d prior factors for a %d-factor space", prior.NumFactors(), len(space))}
		}
		for f, n := range space {
			if len(prior.Factor(f)) != n {
				return nil, &categorical.ShapeError{Factor: f, Reason: fmt.Sprintf("prior length %d does not match factor size %d", len(prior.Factor(f)), n)}
			}
		}
	}
	return space, nil
}

// initialBeliefs returns the working beliefs and fixed log-prior vectors,
// starting from the prior or uniform when absent.
func initialBeliefs(space []int, prior *categorical.Dist) ([][]float64, [][]float64) {
	src := prior
	if src == nil {
		src = categorical.Uniform(space...)
	} else {
		src = src.Clone()
		src.Normalize()
	}
	qs := make([][]float64, len(space))
	logPrior := make([][]float64, len(space))
	for f := range space {
		vals := src.Factor(f)
		qs[f] = make([]float64, len(vals))
		copy(qs[f], vals)
		logPrior[f] = make([]float64, len(vals))
		for i, v := range vals {
			logPrior[f][i] = math.Log(v + probFloor)
		}
	}
	return qs, logPrior
}

// freeEnergy computes complexity minus accuracy for the current beliefs.
func freeEnergy(likelihoods []*tensor.Dense, obs []int, qs, logPrior [][]float64) (float64, error) {
	vfe := 0.0
	for f, q := range qs {
		for i, v := range q {
			vfe += v * (math.Log(v+probFloor) - logPrior[f][i])
		}
	}
	omitAll := make([]int, len(qs))
	for f := range qs {
		omitAll[f] = f
	}
	for m, lik := range likelihoods {
		slice, err := tensor.ContractObs(lik, obs[m], qs, omitAll...)
		if err != nil {
			return 0, fmt.Errorf("inference: modality %d: %w", m, err)
		}
		logged := slice.Apply(func(v float64) float64 { return math.Log(v + probFloor) })
		acc, err := tensor.Contract(logged, qs)
		if err != nil {
			return 0, fmt.Errorf("inference: modality %d: %w", m, err)
		}
		vfe -= acc.Scalar()
	}
	return vfe, nil
}

// sweepOrder resolves the factor update order, defaulting to ascending.
func sweepOrder(order []int, numFactors int) ([]int, error) {
	if len(order) == 0 {
		out := make([]int, numFactors)
		for f := range numFactors {
			out[f] = f
		}
		return out, nil
	}
	if len(order) != numFactors {
		return nil, fmt.Errorf("inference: sweep order has %d entries for %d factors", len(order), numFactors)
	}
	seen := make([]bool, numFactors)
	for _, f := range order {
		if f < 0 || f >= numFactors || seen[f] {
			return nil, fmt.Errorf("inference: sweep order %v is not a permutation of the factors", order)
		}
		seen[f] = true
	}
	return order, nil
}

// softmaxInPlace exponentiates and renormalizes a log-space vector.
func softmaxInPlace(logq []float64) {
	floats.AddConst(-floats.Max(logq), logq)
	for i, v := range logq {
		logq[i] = math.Exp(v)
	}
	floats.Scale(1/floats.Sum(logq), logq)
}
