// Package tensor implements dense float64 tensors with explicit shape
// metadata and the axis contractions used by the belief updater.
//
// Tensors are row-major and carry their shape with them; every contraction
// validates operand sizes against the declared shape instead of relying on
// runtime broadcasting.
package tensor

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Dense is a dense float64 tensor in row-major layout.
type Dense struct {
	data  []float64
	shape []int
}

// New creates a zero-filled tensor with the given shape. A tensor with no
// axes is a scalar holding a single element.
func New(shape ...int) *Dense {
	n := 1
	for _, s := range shape {
		if s < 0 {
			panic("tensor: negative dimension")
		}
		n *= s
	}
	return &Dense{
		data:  make([]float64, n),
		shape: slices.Clone(shape),
	}
}

// FromSlice creates a tensor that copies data into the given shape.
func FromSlice(data []float64, shape ...int) (*Dense, error) {
	t := New(shape...)
	if len(data) != len(t.data) {
		return nil, fmt.Errorf("tensor: %d elements do not fill shape %v (%d)", len(data), shape, len(t.data))
	}
	copy(t.data, data)
	return t, nil
}

// Shape returns a copy of the tensor's shape.
func (t *Dense) Shape() []int {
	return slices.Clone(t.shape)
}

// Rank returns the number of axes.
func (t *Dense) Rank() int {
	return len(t.shape)
}

// Size returns the total number of elements.
func (t *Dense) Size() int {
	return len(t.data)
}

// At returns the element at the given multi-index.
func (t *Dense) At(idx ...int) float64 {
	return t.data[t.offset(idx)]
}

// Set stores v at the given multi-index.
func (t *Dense) Set(v float64, idx ...int) {
	t.data[t.offset(idx)] = v
}

// Data returns the underlying row-major element slice. The slice is shared
// with the tensor: writes through it change the tensor.
func (t *Dense) Data() []float64 {
	return t.data
}

// Scalar returns the single element of a size-1 tensor.
func (t *Dense) Scalar() float64 {
	if len(t.data) != 1 {
		panic(fmt.Sprintf("tensor: Scalar on tensor of size %d", len(t.data)))
	}
	return t.data[0]
}

// Clone returns a deep copy.
func (t *Dense) Clone() *Dense {
	return &Dense{
		data:  slices.Clone(t.data),
		shape: slices.Clone(t.shape),
	}
}

// Apply returns a new tensor with f applied to every element.
func (t *Dense) Apply(f func(float64) float64) *Dense {
	out := t.Clone()
	for i, v := range out.data {
		out.data[i] = f(v)
	}
	return out
}

func (t *Dense) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank-%d tensor", len(idx), len(t.shape)))
	}
	off := 0
	for d, i := range idx {
		if i < 0 || i >= t.shape[d] {
			panic(fmt.Sprintf("tensor: index %d out of range for axis %d (size %d)", i, d, t.shape[d]))
		}
		off = off*t.shape[d] + i
	}
	return off
}

// denseJSON is the serialized form of a Dense tensor.
type denseJSON struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// MarshalJSON implements json.Marshaler.
func (t *Dense) MarshalJSON() ([]byte, error) {
	return json.Marshal(denseJSON{Shape: t.shape, Data: t.data})
}

// UnmarshalJSON implements json.Unmarshaler and validates that the element
// count matches the declared shape.
func (t *Dense) UnmarshalJSON(data []byte) error {
	var dj denseJSON
	if err := json.Unmarshal(data, &dj); err != nil {
		return err
	}
	loaded, err := FromSlice(dj.Data, dj.Shape...)
	if err != nil {
		return err
	}
	*t = *loaded
	return nil
}
