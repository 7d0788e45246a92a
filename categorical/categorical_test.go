package categorical

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func TestNormalize(t *testing.T) {
	d, err := New([]float64{2, 2}, []float64{1, 3})
	if err != nil {
		t.Fatal(err)
	}
	d.Normalize()

	want0 := []float64{0.5, 0.5}
	want1 := []float64{0.25, 0.75}
	for i := range 2 {
		if math.Abs(d.Factor(0)[i]-want0[i]) > 1e-12 {
			t.Errorf("factor 0[%d] = %v, want %v", i, d.Factor(0)[i], want0[i])
		}
		if math.Abs(d.Factor(1)[i]-want1[i]) > 1e-12 {
			t.Errorf("factor 1[%d] = %v, want %v", i, d.Factor(1)[i], want1[i])
		}
	}
}

func TestNormalizeLeavesZeroFactor(t *testing.T) {
	d, err := New([]float64{0, 0, 0}, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	d.Normalize()

	for i, v := range d.Factor(0) {
		if v != 0 {
			t.Errorf("zero factor entry %d became %v", i, v)
		}
	}
	if math.Abs(d.Factor(1)[0]-0.5) > 1e-12 {
		t.Errorf("nonzero factor not normalized: %v", d.Factor(1))
	}
}

func TestNewRejectsNegative(t *testing.T) {
	_, err := New([]float64{0.5, -0.1})
	if err == nil {
		t.Fatal("expected error")
	}
	var se *ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("error type = %T, want *ShapeError", err)
	}
	if !errors.Is(err, ErrShape) {
		t.Error("errors.Is(err, ErrShape) = false")
	}
}

func TestNewForSpaceMismatch(t *testing.T) {
	if _, err := NewForSpace([]int{2, 3}, []float64{1, 0}, []float64{1, 0}); !errors.Is(err, ErrShape) {
		t.Errorf("err = %v, want shape error", err)
	}
	if _, err := NewForSpace([]int{2}, []float64{1, 0}, []float64{1}); !errors.Is(err, ErrShape) {
		t.Errorf("err = %v, want shape error", err)
	}
}

func TestUniform(t *testing.T) {
	d := Uniform(4, 2)
	if d.NumFactors() != 2 {
		t.Fatalf("NumFactors = %d, want 2", d.NumFactors())
	}
	for _, v := range d.Factor(0) {
		if math.Abs(v-0.25) > 1e-12 {
			t.Errorf("factor 0 entry = %v, want 0.25", v)
		}
	}
}

func TestOneHot(t *testing.T) {
	d, err := OneHot([]int{4, 4}, []int{2, 0})
	if err != nil {
		t.Fatal(err)
	}
	if d.Factor(0)[2] != 1 || d.Factor(1)[0] != 1 {
		t.Errorf("mass misplaced: %v %v", d.Factor(0), d.Factor(1))
	}

	if _, err := OneHot([]int{4}, []int{4}); !errors.Is(err, ErrShape) {
		t.Errorf("out-of-range index: err = %v, want shape error", err)
	}
}

func TestSampleDeterministicOnOneHot(t *testing.T) {
	d, err := OneHot([]int{3, 5}, []int{1, 4})
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewPCG(1, 2))
	for range 20 {
		idx := d.Sample(rng)
		if idx[0] != 1 || idx[1] != 4 {
			t.Fatalf("Sample = %v, want [1 4]", idx)
		}
	}
}

func TestSampleFrequencies(t *testing.T) {
	d, err := New([]float64{0.9, 0.1})
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewPCG(7, 7))
	n0 := 0
	const draws = 10000
	for range draws {
		if d.Sample(rng)[0] == 0 {
			n0++
		}
	}
	if f := float64(n0) / draws; math.Abs(f-0.9) > 0.02 {
		t.Errorf("frequency of index 0 = %v, want about 0.9", f)
	}
}

func TestEntropy(t *testing.T) {
	u := Uniform(4)
	if got, want := u.Entropy(), math.Log(4); math.Abs(got-want) > 1e-12 {
		t.Errorf("uniform entropy = %v, want %v", got, want)
	}

	oh, _ := OneHot([]int{4}, []int{1})
	if got := oh.Entropy(); got != 0 {
		t.Errorf("one-hot entropy = %v, want 0", got)
	}

	// Mean-field: entropies add across factors.
	joint := Uniform(4, 2)
	if got, want := joint.Entropy(), math.Log(4)+math.Log(2); math.Abs(got-want) > 1e-12 {
		t.Errorf("joint entropy = %v, want %v", got, want)
	}
}

func TestKL(t *testing.T) {
	p := Uniform(2)
	q, _ := New([]float64{0.75, 0.25})

	kl, err := p.KL(q)
	if err != nil {
		t.Fatal(err)
	}
	want := 0.5*math.Log(0.5/0.75) + 0.5*math.Log(0.5/0.25)
	if math.Abs(kl-want) > 1e-9 {
		t.Errorf("KL = %v, want %v", kl, want)
	}

	self, err := p.KL(p)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(self) > 1e-12 {
		t.Errorf("KL(p, p) = %v, want 0", self)
	}

	if _, err := p.KL(Uniform(3)); !errors.Is(err, ErrShape) {
		t.Errorf("size mismatch: err = %v, want shape error", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	d := Uniform(2)
	e := d.Clone()
	e.Factor(0)[0] = 9
	if d.Factor(0)[0] != 0.5 {
		t.Error("Clone shares factor storage")
	}
}
