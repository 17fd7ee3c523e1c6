package acquisition

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/thalesfsp/bed/errors"
	"github.com/thalesfsp/bed/frame"
	"github.com/thalesfsp/bed/sampling"
	"github.com/thalesfsp/bed/searchspace"
	"github.com/thalesfsp/bed/surrogate"
)

//////
// Active learning.
//////

// NIPVConfig configures qNegIntegratedPosteriorVariance.
type NIPVConfig struct {
	// SamplingFraction is the fraction of the discrete candidate table
	// sampled as integration points. Must lie in (0, 1]. Ignored when
	// SamplingNPoints is set.
	SamplingFraction float64

	// SamplingNPoints fixes the number of integration points. Zero means
	// unset; negative values fail validation. Required for purely
	// continuous search spaces.
	SamplingNPoints int

	// SamplingMethod selects how the discrete part is sampled. The
	// continuous part is always sampled uniformly at random.
	SamplingMethod sampling.Method

	// Lengthscale of the correlation kernel used to attribute variance
	// reduction to candidates. Defaults to 1.0, suitable for normalized
	// inputs.
	Lengthscale float64
}

// DefaultNIPVConfig returns the default active-learning configuration:
// the full discrete table, sampled uniformly at random.
func DefaultNIPVConfig() NIPVConfig {
	return NIPVConfig{
		SamplingFraction: 1.0,
		SamplingMethod:   sampling.Random,
		Lengthscale:      1.0,
	}
}

// QNegIntegratedPosteriorVariance measures global uncertainty reduction:
// candidates score higher the more they shrink the posterior variance
// integrated over the search space. This makes it the acquisition function
// of choice for active learning, where the goal is a good model rather
// than a good optimum.
//
// The integral is approximated over a set of quadrature nodes drawn from
// the search space via GetIntegrationPoints and bound with Bind before the
// first Evaluate call.
type QNegIntegratedPosteriorVariance struct {
	model surrogate.Model
	cfg   NIPVConfig

	// points holds the bound quadrature nodes and their posterior
	// variances.
	points    *frame.Numeric
	pointVars []float64
}

// NewQNegIntegratedPosteriorVariance validates the configuration and binds
// qNIPV to a fitted model.
func NewQNegIntegratedPosteriorVariance(model surrogate.Model, cfg NIPVConfig) (*QNegIntegratedPosteriorVariance, error) {
	if cfg.SamplingFraction <= 0 || cfg.SamplingFraction > 1 {
		return nil, errors.New(errors.Validation,
			"qNegIntegratedPosteriorVariance sampling fraction must lie in (0, 1], got %v",
			cfg.SamplingFraction)
	}
	if cfg.SamplingNPoints < 0 {
		return nil, errors.New(errors.Validation,
			"qNegIntegratedPosteriorVariance sampling point count must be positive when set, got %d",
			cfg.SamplingNPoints)
	}
	if cfg.SamplingMethod == "" {
		cfg.SamplingMethod = sampling.Random
	}
	if cfg.Lengthscale <= 0 {
		cfg.Lengthscale = 1.0
	}

	return &QNegIntegratedPosteriorVariance{model: model, cfg: cfg}, nil
}

// Abbreviation returns "qNIPV".
func (a *QNegIntegratedPosteriorVariance) Abbreviation() string { return "qNIPV" }

// GetIntegrationPoints samples the quadrature nodes from a search space.
//
// The discrete part is sampled with the configured method; its size is
// SamplingNPoints when set, else ceil(SamplingFraction * table size). The
// continuous part is always sampled uniformly at random, reusing the
// discrete count when one was computed. A purely continuous space without
// SamplingNPoints is a configuration error.
func (a *QNegIntegratedPosteriorVariance) GetIntegrationPoints(space *searchspace.SearchSpace, rng *rand.Rand) (*frame.Numeric, error) {
	var sampledDiscrete *frame.Numeric
	nCandidates := 0

	if d := space.Discrete(); d != nil {
		table := d.CompRep()

		nCandidates = a.cfg.SamplingNPoints
		if nCandidates == 0 {
			nCandidates = int(math.Ceil(a.cfg.SamplingFraction * float64(table.Len())))
		}

		var err error
		sampledDiscrete, err = sampling.Sample(table, nCandidates, a.cfg.SamplingMethod, rng)
		if err != nil {
			return nil, err
		}
	}

	if !space.HasContinuous() {
		return sampledDiscrete, nil
	}

	if nCandidates == 0 {
		nCandidates = a.cfg.SamplingNPoints
	}
	if nCandidates == 0 {
		return nil, errors.New(errors.Configuration,
			"SamplingNPoints must be provided for qNegIntegratedPosteriorVariance when sampling purely continuous search spaces")
	}

	sampledContinuous, err := space.Continuous().SamplesRandom(nCandidates, rng)
	if err != nil {
		return nil, err
	}

	if sampledDiscrete == nil {
		return sampledContinuous, nil
	}

	// Align the continuous rows with the discrete sample's index.
	sampledContinuous, err = sampledContinuous.WithIndex(sampledDiscrete.Index())
	if err != nil {
		return nil, err
	}

	return frame.ConcatColumns(sampledDiscrete, sampledContinuous)
}

// Bind samples integration points from the search space and fixes them as
// the quadrature nodes of the variance integral.
func (a *QNegIntegratedPosteriorVariance) Bind(space *searchspace.SearchSpace, rng *rand.Rand) error {
	points, err := a.GetIntegrationPoints(space, rng)
	if err != nil {
		return err
	}

	_, variance, err := a.model.EstimateMoments(points.Data())
	if err != nil {
		return err
	}

	a.points = points
	a.pointVars = variance

	return nil
}

// Evaluate scores each candidate by the negative posterior variance that
// would remain, integrated over the quadrature nodes, after observing the
// candidate. The variance reduction at a node is attributed through the
// squared RBF correlation between candidate and node.
func (a *QNegIntegratedPosteriorVariance) Evaluate(candidates mat.Matrix) ([]float64, error) {
	if a.points == nil {
		return nil, errors.New(errors.Configuration,
			"qNegIntegratedPosteriorVariance has no integration points; call Bind first")
	}

	n, _ := candidates.Dims()
	out := make([]float64, n)

	for i := 0; i < n; i++ {
		row := mat.Row(nil, i, candidates)

		var remaining float64
		for p := 0; p < a.points.Len(); p++ {
			rho := a.correlation(row, a.points.Row(p))
			remaining += a.pointVars[p] * (1 - rho*rho)
		}

		out[i] = -remaining / float64(a.points.Len())
	}

	return out, nil
}

func (a *QNegIntegratedPosteriorVariance) correlation(x1, x2 []float64) float64 {
	var sum float64
	for i := range x1 {
		diff := x1[i] - x2[i]
		sum += diff * diff
	}
	return math.Exp(-sum / (2 * a.cfg.Lengthscale * a.cfg.Lengthscale))
}
