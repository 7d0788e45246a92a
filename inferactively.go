// Package inferactively recovers posterior beliefs over the hidden state
// factors of a discrete generative model from categorical observations.
//
// It wraps a factorized likelihood model and a fixed-point mean-field
// belief updater behind a small agent API:
//
//	agent, _ := inferactively.Load("model.json")
//	posterior, _ := agent.Infer([]int{2, 0})
//	for f, belief := range posterior.Factors() {
//	    fmt.Println(f, belief) // one normalized vector per hidden factor
//	}
package inferactively

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BerenMillidge/inferactively/categorical"
	"github.com/BerenMillidge/inferactively/inference"
	"github.com/BerenMillidge/inferactively/model"
)

// Agent holds a generative model together with the belief state carried
// between observations. The posterior from each Infer call becomes the
// prior of the next, so feeding an agent a stream of observations performs
// sequential Bayesian filtering over the hidden factors.
type Agent struct {
	model  *model.Model
	prior  *categorical.Dist
	config inference.Config
}

// New loads an agent from "model.json", searching the current directory
// and parent directories up to the module root (where go.mod lives).
func New() (*Agent, error) {
	path, err := findModel("model.json")
	if err != nil {
		return nil, fmt.Errorf("inferactively: %w", err)
	}
	return Load(path)
}

func findModel(name string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		// Stop at module root
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("model.json not found")
}

// Load reads an agent's generative model from a model file.
func Load(path string) (*Agent, error) {
	m, err := model.LoadModel(path)
	if err != nil {
		return nil, fmt.Errorf("inferactively: %w", err)
	}
	return FromModel(m)
}

// FromModel wraps a validated generative model in an agent with uniform
// initial beliefs and default iteration parameters.
func FromModel(m *model.Model) (*Agent, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("inferactively: %w", err)
	}
	return &Agent{
		model:  m,
		config: inference.DefaultConfig(),
	}, nil
}

// Save writes the agent's generative model to a model file.
func (a *Agent) Save(path string) error {
	if a.model == nil {
		return fmt.Errorf("inferactively: agent not initialized")
	}
	if err := model.SaveModel(a.model, path); err != nil {
		return fmt.Errorf("inferactively: %w", err)
	}
	return nil
}

// Model returns the agent's generative model.
func (a *Agent) Model() *model.Model {
	return a.model
}

// SetConfig replaces the iteration parameters used by Infer.
func (a *Agent) SetConfig(cfg inference.Config) {
	a.config = cfg
}

// Infer updates the agent's beliefs from one observation (one outcome
// index per modality) and returns the posterior, one normalized belief
// vector per hidden factor. The posterior is carried forward as the prior
// of the next call.
func (a *Agent) Infer(obs []int) (*categorical.Dist, error) {
	if a.model == nil {
		return nil, fmt.Errorf("inferactively: agent not initialized")
	}
	posterior, err := inference.Infer(a.model.Likelihoods, obs, a.prior, a.config)
	if err != nil {
		return nil, fmt.Errorf("inferactively: %w", err)
	}
	a.prior = posterior
	return posterior, nil
}

// Posterior returns the beliefs carried from the last Infer call, or nil
// before any observation has been processed.
func (a *Agent) Posterior() *categorical.Dist {
	return a.prior
}

// PredictObservation returns the outcome distribution each modality is
// expected to produce under the agent's current beliefs (uniform before
// the first observation).
func (a *Agent) PredictObservation() (*categorical.Dist, error) {
	if a.model == nil {
		return nil, fmt.Errorf("inferactively: agent not initialized")
	}
	beliefs := a.prior
	if beliefs == nil {
		beliefs = categorical.Uniform(a.model.StateSpace...)
	}
	predicted, err := inference.PredictObservation(a.model.Likelihoods, beliefs)
	if err != nil {
		return nil, fmt.Errorf("inferactively: %w", err)
	}
	return predicted, nil
}

// Reset clears the carried beliefs, or replaces them when prior is
// non-nil.
func (a *Agent) Reset(prior *categorical.Dist) error {
	if prior != nil && a.model != nil {
		sizes := prior.Sizes()
		if len(sizes) != len(a.model.StateSpace) {
			return fmt.Errorf("inferactively: prior has %d factors, model has %d", len(sizes), len(a.model.StateSpace))
		}
		for f, n := range a.model.StateSpace {
			if sizes[f] != n {
				return fmt.Errorf("inferactively: prior factor %d has size %d, model declares %d", f, sizes[f], n)
			}
		}
	}
	a.prior = prior
	return nil
}
