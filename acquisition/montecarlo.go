package acquisition

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/thalesfsp/bed/errors"
	"github.com/thalesfsp/bed/surrogate"
)

//////
// Monte Carlo ("q"-prefixed) acquisition functions.
//
// Each variant estimates its score by drawing posterior samples per
// candidate from the surrogate's moments and averaging a per-sample
// utility. Scores are per-candidate.
//////

// mcCore carries the state shared by all Monte Carlo variants.
type mcCore struct {
	model  surrogate.Model
	params MCParams
}

// evaluate draws params.Samples posterior samples per candidate and
// returns the average of utility over them.
func (c *mcCore) evaluate(candidates mat.Matrix, utility func(mean, sigma, sample float64) float64) ([]float64, error) {
	mean, variance, err := c.model.EstimateMoments(candidates)
	if err != nil {
		return nil, err
	}

	rng := c.params.rng()
	out := make([]float64, len(mean))

	for i := range mean {
		sigma := math.Sqrt(variance[i])

		var sum float64
		for s := 0; s < c.params.Samples; s++ {
			sample := mean[i] + sigma*rng.NormFloat64()
			sum += utility(mean[i], sigma, sample)
		}

		out[i] = sum / float64(c.params.Samples)
	}

	return out, nil
}

// QSimpleRegret is the Monte Carlo simple-regret score: the average
// posterior sample value per candidate.
type QSimpleRegret struct {
	core mcCore
}

// NewQSimpleRegret binds qSR to a fitted model.
func NewQSimpleRegret(model surrogate.Model, params MCParams) (*QSimpleRegret, error) {
	if err := params.validate("qSimpleRegret"); err != nil {
		return nil, err
	}
	return &QSimpleRegret{core: mcCore{model: model, params: params}}, nil
}

// Abbreviation returns "qSR".
func (a *QSimpleRegret) Abbreviation() string { return "qSR" }

// Evaluate averages raw posterior samples per candidate.
func (a *QSimpleRegret) Evaluate(candidates mat.Matrix) ([]float64, error) {
	return a.core.evaluate(candidates, func(_, _, sample float64) float64 {
		return sample
	})
}

// QExpectedImprovement is the Monte Carlo counterpart of EI.
type QExpectedImprovement struct {
	core  mcCore
	bestF float64
}

// NewQExpectedImprovement binds qEI to a fitted model and the best
// observed value.
func NewQExpectedImprovement(model surrogate.Model, bestF float64, params MCParams) (*QExpectedImprovement, error) {
	if err := params.validate("qExpectedImprovement"); err != nil {
		return nil, err
	}
	return &QExpectedImprovement{core: mcCore{model: model, params: params}, bestF: bestF}, nil
}

// Abbreviation returns "qEI".
func (a *QExpectedImprovement) Abbreviation() string { return "qEI" }

// Evaluate averages max(sample - best, 0) per candidate.
func (a *QExpectedImprovement) Evaluate(candidates mat.Matrix) ([]float64, error) {
	return a.core.evaluate(candidates, func(_, _, sample float64) float64 {
		return math.Max(sample-a.bestF, 0)
	})
}

// QLogExpectedImprovement is the logarithm of the qEI estimate.
type QLogExpectedImprovement struct {
	inner *QExpectedImprovement
}

// NewQLogExpectedImprovement binds qLogEI to a fitted model and the best
// observed value.
func NewQLogExpectedImprovement(model surrogate.Model, bestF float64, params MCParams) (*QLogExpectedImprovement, error) {
	inner, err := NewQExpectedImprovement(model, bestF, params)
	if err != nil {
		return nil, err
	}
	return &QLogExpectedImprovement{inner: inner}, nil
}

// Abbreviation returns "qLogEI".
func (a *QLogExpectedImprovement) Abbreviation() string { return "qLogEI" }

// Evaluate returns log(qEI) per candidate, floored to stay finite.
func (a *QLogExpectedImprovement) Evaluate(candidates mat.Matrix) ([]float64, error) {
	scores, err := a.inner.Evaluate(candidates)
	if err != nil {
		return nil, err
	}
	for i := range scores {
		scores[i] = math.Log(math.Max(scores[i], logFloor))
	}
	return scores, nil
}

// QProbabilityOfImprovement is the Monte Carlo counterpart of PI.
type QProbabilityOfImprovement struct {
	core  mcCore
	bestF float64
}

// NewQProbabilityOfImprovement binds qPI to a fitted model and the best
// observed value.
func NewQProbabilityOfImprovement(model surrogate.Model, bestF float64, params MCParams) (*QProbabilityOfImprovement, error) {
	if err := params.validate("qProbabilityOfImprovement"); err != nil {
		return nil, err
	}
	return &QProbabilityOfImprovement{core: mcCore{model: model, params: params}, bestF: bestF}, nil
}

// Abbreviation returns "qPI".
func (a *QProbabilityOfImprovement) Abbreviation() string { return "qPI" }

// Evaluate returns the fraction of samples beating the best value.
func (a *QProbabilityOfImprovement) Evaluate(candidates mat.Matrix) ([]float64, error) {
	return a.core.evaluate(candidates, func(_, _, sample float64) float64 {
		if sample > a.bestF {
			return 1
		}
		return 0
	})
}

// QUpperConfidenceBound is the Monte Carlo counterpart of UCB.
type QUpperConfidenceBound struct {
	core mcCore
	beta float64
}

// NewQUpperConfidenceBound binds qUCB to a fitted model with the given
// exploration weight. Beta must be non-negative.
func NewQUpperConfidenceBound(model surrogate.Model, beta float64, params MCParams) (*QUpperConfidenceBound, error) {
	if beta < 0 {
		return nil, errors.New(errors.Validation,
			"qUpperConfidenceBound exploration weight must be >= 0, got %v", beta)
	}
	if err := params.validate("qUpperConfidenceBound"); err != nil {
		return nil, err
	}
	return &QUpperConfidenceBound{core: mcCore{model: model, params: params}, beta: beta}, nil
}

// Abbreviation returns "qUCB".
func (a *QUpperConfidenceBound) Abbreviation() string { return "qUCB" }

// Evaluate averages mu + sqrt(beta * pi / 2) * |sample - mu| per
// candidate, the sample-based analogue of mu + beta * sigma.
func (a *QUpperConfidenceBound) Evaluate(candidates mat.Matrix) ([]float64, error) {
	scale := math.Sqrt(a.beta * math.Pi / 2)
	return a.core.evaluate(candidates, func(mean, _, sample float64) float64 {
		return mean + scale*math.Abs(sample-mean)
	})
}

//////
// Noisy variants.
//////

// QNoisyExpectedImprovement scores improvement against posterior samples
// of the observed baseline points instead of a fixed best value, which is
// the right comparison when observations are noisy.
type QNoisyExpectedImprovement struct {
	core          mcCore
	baselineMean  []float64
	baselineSigma []float64
	logScores     bool
	abbreviation  string
}

// NewQNoisyExpectedImprovement binds qNEI to a fitted model and the
// observed feature matrix. With pruneBaseline (the default in the
// factory), baseline points that cannot plausibly be optimal are dropped
// before scoring, which stabilizes the estimate and cuts evaluation cost.
func NewQNoisyExpectedImprovement(model surrogate.Model, baseline *mat.Dense, pruneBaseline bool, params MCParams) (*QNoisyExpectedImprovement, error) {
	return newNoisy(model, baseline, pruneBaseline, params, false, "qNEI")
}

// NewQLogNoisyExpectedImprovement is the logarithmic variant of qNEI.
func NewQLogNoisyExpectedImprovement(model surrogate.Model, baseline *mat.Dense, pruneBaseline bool, params MCParams) (*QNoisyExpectedImprovement, error) {
	return newNoisy(model, baseline, pruneBaseline, params, true, "qLogNEI")
}

func newNoisy(model surrogate.Model, baseline *mat.Dense, pruneBaseline bool, params MCParams, logScores bool, abbreviation string) (*QNoisyExpectedImprovement, error) {
	if err := params.validate(abbreviation); err != nil {
		return nil, err
	}
	if baseline == nil {
		return nil, errors.New(errors.Configuration,
			"%s needs the observed baseline feature matrix", abbreviation)
	}

	mean, variance, err := model.EstimateMoments(baseline)
	if err != nil {
		return nil, err
	}

	sigma := make([]float64, len(variance))
	for i, v := range variance {
		sigma[i] = math.Sqrt(v)
	}

	if pruneBaseline {
		mean, sigma = pruneImplausible(mean, sigma)
	}

	return &QNoisyExpectedImprovement{
		core:          mcCore{model: model, params: params},
		baselineMean:  mean,
		baselineSigma: sigma,
		logScores:     logScores,
		abbreviation:  abbreviation,
	}, nil
}

// pruneImplausible keeps only baseline points whose optimistic bound
// reaches the most conservative bound of the best point. Everything else
// cannot plausibly be the baseline optimum.
func pruneImplausible(mean, sigma []float64) (outMean, outSigma []float64) {
	const width = 2.0

	bestLower := math.Inf(-1)
	for i := range mean {
		if lower := mean[i] - width*sigma[i]; lower > bestLower {
			bestLower = lower
		}
	}

	for i := range mean {
		if mean[i]+width*sigma[i] >= bestLower {
			outMean = append(outMean, mean[i])
			outSigma = append(outSigma, sigma[i])
		}
	}

	return outMean, outSigma
}

// Abbreviation returns "qNEI" or "qLogNEI".
func (a *QNoisyExpectedImprovement) Abbreviation() string { return a.abbreviation }

// Evaluate draws joint scenarios of the baseline maximum and the
// candidate, averaging max(candidate - baseline max, 0).
func (a *QNoisyExpectedImprovement) Evaluate(candidates mat.Matrix) ([]float64, error) {
	mean, variance, err := a.core.model.EstimateMoments(candidates)
	if err != nil {
		return nil, err
	}

	rng := a.core.params.rng()

	// One baseline-maximum draw per scenario, shared across candidates.
	baselineMax := make([]float64, a.core.params.Samples)
	for s := range baselineMax {
		baselineMax[s] = sampleMax(a.baselineMean, a.baselineSigma, rng)
	}

	out := make([]float64, len(mean))
	for i := range mean {
		sigma := math.Sqrt(variance[i])

		var sum float64
		for s := 0; s < a.core.params.Samples; s++ {
			sample := mean[i] + sigma*rng.NormFloat64()
			sum += math.Max(sample-baselineMax[s], 0)
		}

		out[i] = sum / float64(a.core.params.Samples)
		if a.logScores {
			out[i] = math.Log(math.Max(out[i], logFloor))
		}
	}

	return out, nil
}

func sampleMax(mean, sigma []float64, rng *rand.Rand) float64 {
	best := math.Inf(-1)
	for i := range mean {
		if v := mean[i] + sigma[i]*rng.NormFloat64(); v > best {
			best = v
		}
	}
	return best
}
