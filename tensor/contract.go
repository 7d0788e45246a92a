package tensor

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// ErrDimensionMismatch matches any DimensionMismatchError via errors.Is.
var ErrDimensionMismatch = errors.New("tensor: dimension mismatch")

// DimensionMismatchError reports a contraction operand that does not fit
// the axis it targets.
type DimensionMismatchError struct {
	Axis int    // axis the operand targets, -1 when no single axis applies
	What string // operand description, e.g. "vector length"
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	if e.Axis < 0 {
		return fmt.Sprintf("tensor: %s mismatch: want %d, got %d", e.What, e.Want, e.Got)
	}
	return fmt.Sprintf("tensor: axis %d: %s mismatch: want %d, got %d", e.Axis, e.What, e.Want, e.Got)
}

// Is reports whether target is ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// Contract sums out the axes of t against one vector per axis: vecs[i] is
// a weighting over axis i's states and the contraction computes the
// expectation along that axis. Axes listed in omit are not contracted;
// their vectors are ignored (and may be nil) and the axes survive in the
// output in their original order. Contracting every axis yields a scalar
// tensor of rank 0.
//
// Contract never mutates t or the vectors.
func Contract(t *Dense, vecs [][]float64, omit ...int) (*Dense, error) {
	rank := t.Rank()
	if len(vecs) != rank {
		return nil, &DimensionMismatchError{Axis: -1, What: "vector count", Want: rank, Got: len(vecs)}
	}
	keep := make([]bool, rank)
	for _, ax := range omit {
		if ax < 0 || ax >= rank {
			return nil, &DimensionMismatchError{Axis: ax, What: "omit axis", Want: rank, Got: ax}
		}
		keep[ax] = true
	}
	contracted := 0
	for ax := range rank {
		if keep[ax] {
			continue
		}
		if len(vecs[ax]) != t.shape[ax] {
			return nil, &DimensionMismatchError{Axis: ax, What: "vector length", Want: t.shape[ax], Got: len(vecs[ax])}
		}
		contracted++
	}
	if contracted == 0 {
		return t.Clone(), nil
	}

	data := t.data
	shape := t.shape
	// Sum out the highest axis first so lower axis indices stay valid.
	for ax := rank - 1; ax >= 0; ax-- {
		if keep[ax] {
			continue
		}
		data, shape = contractAxis(data, shape, ax, vecs[ax])
	}
	return &Dense{data: data, shape: shape}, nil
}

// ContractObs contracts axis 0 of t against a one-hot vector for the
// observed index obs, selecting the observation-conditioned slice, then
// contracts the remaining axes against vecs as Contract does: vecs[f]
// pairs with axis f+1. The omit indices address vecs positions (hidden
// axes), not raw tensor axes.
func ContractObs(t *Dense, obs int, vecs [][]float64, omit ...int) (*Dense, error) {
	if t.Rank() < 1 {
		return nil, &DimensionMismatchError{Axis: 0, What: "tensor rank", Want: 1, Got: 0}
	}
	if len(vecs) != t.Rank()-1 {
		return nil, &DimensionMismatchError{Axis: -1, What: "vector count", Want: t.Rank() - 1, Got: len(vecs)}
	}
	if obs < 0 || obs >= t.shape[0] {
		return nil, &DimensionMismatchError{Axis: 0, What: "observation index", Want: t.shape[0], Got: obs}
	}
	hot := make([]float64, t.shape[0])
	hot[obs] = 1
	all := make([][]float64, 0, t.Rank())
	all = append(all, hot)
	all = append(all, vecs...)
	shifted := make([]int, len(omit))
	for i, f := range omit {
		if f < 0 || f >= t.Rank()-1 {
			return nil, &DimensionMismatchError{Axis: f, What: "omit axis", Want: t.Rank() - 1, Got: f}
		}
		shifted[i] = f + 1
	}
	return Contract(t, all, shifted...)
}

// contractAxis multiplies vec into the given axis and reduce-sums it,
// returning the new data and shape with the axis removed.
func contractAxis(data []float64, shape []int, axis int, vec []float64) ([]float64, []int) {
	outer := 1
	for _, s := range shape[:axis] {
		outer *= s
	}
	n := shape[axis]
	inner := 1
	for _, s := range shape[axis+1:] {
		inner *= s
	}

	out := make([]float64, outer*inner)
	for o := range outer {
		dst := out[o*inner : (o+1)*inner]
		for k := range n {
			w := vec[k]
			if w == 0 {
				continue
			}
			base := (o*n + k) * inner
			floats.AddScaled(dst, w, data[base:base+inner])
		}
	}

	newShape := slices.Concat(shape[:axis], shape[axis+1:])
	return out, newShape
}
