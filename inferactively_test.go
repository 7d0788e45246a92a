package inferactively

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/BerenMillidge/inferactively/categorical"
	"github.com/BerenMillidge/inferactively/model"
)

func TestAgentInfer(t *testing.T) {
	agent, err := FromModel(model.Identity([]int{4, 4}))
	if err != nil {
		t.Fatal(err)
	}

	posterior, err := agent.Infer([]int{2, 0})
	if err != nil {
		t.Fatal(err)
	}
	if posterior.NumFactors() != 2 {
		t.Fatalf("NumFactors = %d, want 2", posterior.NumFactors())
	}
	if got := posterior.Factor(0)[2]; math.Abs(got-1) > 1e-9 {
		t.Errorf("factor 0 belief at state 2 = %v, want 1", got)
	}
	if got := posterior.Factor(1)[0]; math.Abs(got-1) > 1e-9 {
		t.Errorf("factor 1 belief at state 0 = %v, want 1", got)
	}
	if agent.Posterior() != posterior {
		t.Error("posterior not carried as next prior")
	}
}

func TestAgentCarriesBeliefAcrossObservations(t *testing.T) {
	// An uninformative model never overrides the carried prior.
	agent, err := FromModel(model.Uniform([]int{3}, []int{2}))
	if err != nil {
		t.Fatal(err)
	}
	prior, err := categorical.New([]float64{0.7, 0.2, 0.1})
	if err != nil {
		t.Fatal(err)
	}
	if err := agent.Reset(prior); err != nil {
		t.Fatal(err)
	}

	posterior, err := agent.Infer([]int{1})
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []float64{0.7, 0.2, 0.1} {
		if math.Abs(posterior.Factor(0)[i]-want) > 1e-9 {
			t.Errorf("belief[%d] = %v, want %v", i, posterior.Factor(0)[i], want)
		}
	}
}

func TestAgentInferRejectsBadObservation(t *testing.T) {
	agent, err := FromModel(model.Identity([]int{4, 4}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := agent.Infer([]int{2}); err == nil {
		t.Error("observation count mismatch accepted")
	}
	if agent.Posterior() != nil {
		t.Error("failed inference left partial beliefs behind")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")

	agent, err := FromModel(model.Identity([]int{2, 2}))
	if err != nil {
		t.Fatal(err)
	}
	if err := agent.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	posterior, err := loaded.Infer([]int{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if got := posterior.Factor(0)[1]; math.Abs(got-1) > 1e-9 {
		t.Errorf("factor 0 belief at state 1 = %v, want 1", got)
	}
}

func TestResetRejectsWrongShape(t *testing.T) {
	agent, err := FromModel(model.Identity([]int{4, 4}))
	if err != nil {
		t.Fatal(err)
	}
	if err := agent.Reset(categorical.Uniform(4)); err == nil {
		t.Error("wrong factor count accepted")
	}
	if err := agent.Reset(categorical.Uniform(4, 3)); err == nil {
		t.Error("wrong factor size accepted")
	}
	if err := agent.Reset(nil); err != nil {
		t.Errorf("Reset(nil) = %v", err)
	}
}

func TestPredictObservationBeforeInference(t *testing.T) {
	agent, err := FromModel(model.Identity([]int{4}))
	if err != nil {
		t.Fatal(err)
	}
	predicted, err := agent.PredictObservation()
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range predicted.Factor(0) {
		if math.Abs(v-0.25) > 1e-9 {
			t.Errorf("predicted[%d] = %v, want 0.25", i, v)
		}
	}
}
