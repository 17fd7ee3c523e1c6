// Package surrogate provides the probabilistic regression models standing
// in for the expensive true objective.
//
// A Model is stateless until Fit is called exactly once per recommendation
// cycle; posterior moment queries require a prior fit. Implementations are
// registered under a short string key so recommenders can be configured
// declaratively ("GP" is the default).
package surrogate

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/thalesfsp/bed/errors"
)

// Capabilities describes what a model variant can deliver.
type Capabilities struct {
	// JointPosterior is set when the model produces a full covariance
	// block across a candidate batch rather than per-point variances.
	JointPosterior bool

	// SupportsTransferLearning is set when the model can ingest
	// auxiliary-task data.
	SupportsTransferLearning bool
}

// Model is a surrogate regression model.
type Model interface {
	// Fit trains the model on the given tensors. A second call replaces
	// the internal state; there is no incremental update.
	Fit(trainX *mat.Dense, trainY *mat.VecDense) error

	// EstimateMoments returns the posterior mean and variance for every
	// candidate row. It fails when the model has not been fitted.
	EstimateMoments(candidates mat.Matrix) (mean, variance []float64, err error)

	// Capabilities returns the model's capability descriptor.
	Capabilities() Capabilities
}

// MomentsBatch evaluates several candidate sets against one fitted model,
// so multiple sets can be scored without repeated setup cost. The i-th
// entries of the returned slices belong to the i-th candidate set.
func MomentsBatch(m Model, batches []mat.Matrix) (means, variances [][]float64, err error) {
	means = make([][]float64, len(batches))
	variances = make([][]float64, len(batches))

	for i, b := range batches {
		means[i], variances[i], err = m.EstimateMoments(b)
		if err != nil {
			return nil, nil, err
		}
	}

	return means, variances, nil
}

//////
// Registry.
//////

// Factory builds a fresh, unfitted model instance.
type Factory func() Model

var (
	factories   = make(map[string]Factory)
	factoriesMu sync.RWMutex
)

// Register adds a model factory under a key. Concrete model files call it
// from init so the registry is populated at process start.
func Register(key string, f Factory) {
	if key == "" || f == nil {
		return
	}

	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	factories[key] = f
}

// SupportedKeys returns the registered model keys, sorted.
func SupportedKeys() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	keys := make([]string, 0, len(factories))
	for k := range factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// New builds a fresh model for the given key.
func New(key string) (Model, error) {
	factoriesMu.RLock()
	f, ok := factories[key]
	factoriesMu.RUnlock()

	if !ok {
		return nil, errors.New(errors.UnknownKey,
			"unknown surrogate model %q (supported: %v)", key, SupportedKeys())
	}

	return f(), nil
}
