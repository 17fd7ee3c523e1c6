// Package acquisition provides the scoring rules that quantify the value
// of candidate points under model uncertainty.
//
// Each acquisition function is an immutable value bound at construction to
// one fitted surrogate model and one best-observed value. Evaluate maps a
// candidate feature matrix to per-candidate scores; higher is better.
// Hyperparameters are validated at construction and never change.
package acquisition

import (
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/thalesfsp/bed/errors"
	"github.com/thalesfsp/bed/surrogate"
)

// AcquisitionFunction scores candidate points.
type AcquisitionFunction interface {
	// Abbreviation returns the short display name, e.g. "qNEI".
	Abbreviation() string

	// Evaluate returns one score per candidate row. Higher is better.
	Evaluate(candidates mat.Matrix) ([]float64, error)
}

// MCParams controls the Monte Carlo estimators of the "q"-prefixed
// variants.
type MCParams struct {
	// Samples is the number of posterior draws per candidate.
	Samples int

	// Seed seeds the sampler's random number generator.
	Seed int64
}

// DefaultMCParams returns the default Monte Carlo configuration.
func DefaultMCParams() MCParams {
	return MCParams{Samples: 256, Seed: time.Now().UnixNano()}
}

func (p MCParams) validate(name string) error {
	if p.Samples < 1 {
		return errors.New(errors.Validation,
			"%s needs a positive Monte Carlo sample count, got %d", name, p.Samples)
	}
	return nil
}

func (p MCParams) rng() *rand.Rand {
	return rand.New(rand.NewSource(p.Seed))
}

//////
// Factory.
//////

// Option adjusts the factory construction below.
type Option func(*options)

type options struct {
	mc       MCParams
	baseline *mat.Dense
	prune    bool
}

// WithMCParams overrides the Monte Carlo configuration of "q" variants.
func WithMCParams(p MCParams) Option {
	return func(o *options) { o.mc = p }
}

// WithBaseline supplies the observed feature matrix required by the noisy
// variants ("qNEI", "qLogNEI").
func WithBaseline(x *mat.Dense) Option {
	return func(o *options) { o.baseline = x }
}

// WithoutBaselinePruning disables the default pruning of baseline points
// that are unlikely to be optimal.
func WithoutBaselinePruning() Option {
	return func(o *options) { o.prune = false }
}

// Supported lists the abbreviations New understands.
func Supported() []string {
	return []string{
		"PM", "EI", "LogEI", "PI", "UCB",
		"qSR", "qEI", "qLogEI", "qPI", "qUCB", "qNEI", "qLogNEI",
	}
}

// New builds a fully configured acquisition function from its
// abbreviation, bound to the given fitted model and best observed value.
// The UCB family defaults to an exploration weight of 1.0.
func New(key string, model surrogate.Model, bestF float64, opts ...Option) (AcquisitionFunction, error) {
	o := options{mc: DefaultMCParams(), prune: true}
	for _, opt := range opts {
		opt(&o)
	}

	switch key {
	case "PM":
		return NewPosteriorMean(model), nil
	case "EI":
		return NewExpectedImprovement(model, bestF), nil
	case "LogEI":
		return NewLogExpectedImprovement(model, bestF), nil
	case "PI":
		return NewProbabilityOfImprovement(model, bestF), nil
	case "UCB":
		return NewUpperConfidenceBound(model, 1.0)
	case "qSR":
		return NewQSimpleRegret(model, o.mc)
	case "qEI":
		return NewQExpectedImprovement(model, bestF, o.mc)
	case "qLogEI":
		return NewQLogExpectedImprovement(model, bestF, o.mc)
	case "qPI":
		return NewQProbabilityOfImprovement(model, bestF, o.mc)
	case "qUCB":
		return NewQUpperConfidenceBound(model, 1.0, o.mc)
	case "qNEI":
		return NewQNoisyExpectedImprovement(model, o.baseline, o.prune, o.mc)
	case "qLogNEI":
		return NewQLogNoisyExpectedImprovement(model, o.baseline, o.prune, o.mc)
	default:
		return nil, errors.New(errors.UnknownKey,
			"unknown acquisition function %q (supported: %v)", key, Supported())
	}
}
