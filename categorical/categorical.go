// Package categorical provides normalized categorical distributions,
// optionally factorized into independent per-factor vectors as used by the
// mean-field belief updater.
package categorical

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// probFloor is added inside logarithms to keep degenerate entries finite.
const probFloor = 1e-16

// ErrShape matches any ShapeError via errors.Is.
var ErrShape = errors.New("categorical: shape error")

// ShapeError reports factor values that do not fit the declared space.
type ShapeError struct {
	Factor int
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("categorical: factor %d: %s", e.Factor, e.Reason)
}

// Is reports whether target is ErrShape.
func (e *ShapeError) Is(target error) bool {
	return target == ErrShape
}

// Dist is a categorical distribution over one or more independent factors,
// held as one nonnegative vector per factor. A single-factor Dist is a
// plain categorical; a multi-factor Dist is a mean-field product of
// per-factor categoricals.
type Dist struct {
	factors [][]float64
}

// New wraps copies of the given vectors as a factorized distribution.
// Vectors must be nonempty with no negative entries; New does not
// normalize, call Normalize for that.
func New(factors ...[]float64) (*Dist, error) {
	if len(factors) == 0 {
		return nil, &ShapeError{Factor: 0, Reason: "no factors supplied"}
	}
	owned := make([][]float64, len(factors))
	for f, vals := range factors {
		if len(vals) == 0 {
			return nil, &ShapeError{Factor: f, Reason: "empty factor"}
		}
		for _, v := range vals {
			if v < 0 || math.IsNaN(v) {
				return nil, &ShapeError{Factor: f, Reason: fmt.Sprintf("negative or NaN entry %v", v)}
			}
		}
		owned[f] = slices.Clone(vals)
	}
	return &Dist{factors: owned}, nil
}

// NewForSpace is New with the factor lengths checked against a declared
// space of factor sizes.
func NewForSpace(space []int, factors ...[]float64) (*Dist, error) {
	if len(factors) != len(space) {
		return nil, &ShapeError{Factor: -1, Reason: fmt.Sprintf("%d factors for a %d-factor space", len(factors), len(space))}
	}
	for f, vals := range factors {
		if len(vals) != space[f] {
			return nil, &ShapeError{Factor: f, Reason: fmt.Sprintf("length %d does not match declared size %d", len(vals), space[f])}
		}
	}
	return New(factors...)
}

// Uniform returns a uniform distribution over each factor of the space.
func Uniform(space ...int) *Dist {
	factors := make([][]float64, len(space))
	for f, n := range space {
		factors[f] = make([]float64, n)
		for i := range n {
			factors[f][i] = 1.0 / float64(n)
		}
	}
	return &Dist{factors: factors}
}

// OneHot returns a distribution with all mass on idx[f] for each factor.
func OneHot(space []int, idx []int) (*Dist, error) {
	if len(idx) != len(space) {
		return nil, &ShapeError{Factor: -1, Reason: fmt.Sprintf("%d indices for a %d-factor space", len(idx), len(space))}
	}
	factors := make([][]float64, len(space))
	for f, n := range space {
		if idx[f] < 0 || idx[f] >= n {
			return nil, &ShapeError{Factor: f, Reason: fmt.Sprintf("index %d out of range for size %d", idx[f], n)}
		}
		factors[f] = make([]float64, n)
		factors[f][idx[f]] = 1
	}
	return &Dist{factors: factors}, nil
}

// NumFactors returns the number of factors.
func (d *Dist) NumFactors() int {
	return len(d.factors)
}

// Factor returns factor f's vector. Callers must treat it as read-only.
func (d *Dist) Factor(f int) []float64 {
	return d.factors[f]
}

// Factors returns the per-factor vectors. Callers must treat them as
// read-only.
func (d *Dist) Factors() [][]float64 {
	return d.factors
}

// Sizes returns the factor sizes.
func (d *Dist) Sizes() []int {
	sizes := make([]int, len(d.factors))
	for f, vals := range d.factors {
		sizes[f] = len(vals)
	}
	return sizes
}

// Clone returns a deep copy.
func (d *Dist) Clone() *Dist {
	factors := make([][]float64, len(d.factors))
	for f, vals := range d.factors {
		factors[f] = slices.Clone(vals)
	}
	return &Dist{factors: factors}
}

// Normalize rescales each factor in place to sum to 1. A factor summing to
// zero is left untouched: it remains an all-zero vector, which is not a
// valid distribution, and signals a modeling error upstream rather than a
// condition this package can repair.
func (d *Dist) Normalize() {
	for _, vals := range d.factors {
		s := floats.Sum(vals)
		if s == 0 {
			continue
		}
		floats.Scale(1/s, vals)
	}
}

// Sample draws one index per factor. Factors are assumed normalized; an
// all-zero factor yields its last index.
func (d *Dist) Sample(rng *rand.Rand) []int {
	idx := make([]int, len(d.factors))
	for f, vals := range d.factors {
		r := rng.Float64() * floats.Sum(vals)
		acc := 0.0
		idx[f] = len(vals) - 1
		for i, v := range vals {
			acc += v
			if r < acc {
				idx[f] = i
				break
			}
		}
	}
	return idx
}

// Entropy returns the joint entropy in nats, the sum of the per-factor
// entropies under the mean-field factorization.
func (d *Dist) Entropy() float64 {
	h := 0.0
	for _, vals := range d.factors {
		for _, v := range vals {
			if v > 0 {
				h -= v * math.Log(v)
			}
		}
	}
	return h
}

// KL returns the Kullback-Leibler divergence from other to d, summed over
// factors.
func (d *Dist) KL(other *Dist) (float64, error) {
	if len(other.factors) != len(d.factors) {
		return 0, &ShapeError{Factor: -1, Reason: fmt.Sprintf("%d factors vs %d", len(other.factors), len(d.factors))}
	}
	kl := 0.0
	for f, vals := range d.factors {
		if len(other.factors[f]) != len(vals) {
			return 0, &ShapeError{Factor: f, Reason: fmt.Sprintf("size %d vs %d", len(other.factors[f]), len(vals))}
		}
		for i, p := range vals {
			if p > 0 {
				kl += p * (math.Log(p) - math.Log(other.factors[f][i]+probFloor))
			}
		}
	}
	return kl, nil
}
