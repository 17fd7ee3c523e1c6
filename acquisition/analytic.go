package acquisition

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/thalesfsp/bed/errors"
	"github.com/thalesfsp/bed/surrogate"
)

//////
// Analytic single-point acquisition functions.
//
// Closed-form scores from the posterior mean and variance at each point.
// All of them follow the maximization convention: the best observed value
// is the largest training target, and higher scores mark more promising
// candidates.
//////

// stdNormal is the standard normal used by the closed-form expressions.
var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// logFloor keeps the logarithmic variants finite when the underlying
// improvement estimate collapses to zero.
const logFloor = 1e-300

// PosteriorMean scores candidates by their posterior predictive mean
// alone: pure exploitation.
type PosteriorMean struct {
	model surrogate.Model
}

// NewPosteriorMean binds the posterior mean score to a fitted model.
func NewPosteriorMean(model surrogate.Model) *PosteriorMean {
	return &PosteriorMean{model: model}
}

// Abbreviation returns "PM".
func (a *PosteriorMean) Abbreviation() string { return "PM" }

// Evaluate returns the posterior mean of every candidate.
func (a *PosteriorMean) Evaluate(candidates mat.Matrix) ([]float64, error) {
	mean, _, err := a.model.EstimateMoments(candidates)
	return mean, err
}

// ExpectedImprovement scores candidates by the expected magnitude of
// improvement over the best observed value, combining how likely and how
// large the improvement might be.
type ExpectedImprovement struct {
	model surrogate.Model
	bestF float64
}

// NewExpectedImprovement binds EI to a fitted model and the best observed
// value.
func NewExpectedImprovement(model surrogate.Model, bestF float64) *ExpectedImprovement {
	return &ExpectedImprovement{model: model, bestF: bestF}
}

// Abbreviation returns "EI".
func (a *ExpectedImprovement) Abbreviation() string { return "EI" }

// Evaluate returns (mu - best) * CDF(z) + sigma * PDF(z) per candidate,
// where z = (mu - best) / sigma.
func (a *ExpectedImprovement) Evaluate(candidates mat.Matrix) ([]float64, error) {
	mean, variance, err := a.model.EstimateMoments(candidates)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(mean))
	for i := range mean {
		out[i] = expectedImprovement(mean[i], variance[i], a.bestF)
	}

	return out, nil
}

func expectedImprovement(mean, variance, bestF float64) float64 {
	sigma := math.Sqrt(variance)
	if sigma == 0 {
		return math.Max(mean-bestF, 0)
	}

	z := (mean - bestF) / sigma

	return (mean-bestF)*stdNormal.CDF(z) + sigma*stdNormal.Prob(z)
}

// LogExpectedImprovement is the logarithm of ExpectedImprovement, which is
// numerically better behaved when improvements become tiny.
type LogExpectedImprovement struct {
	model surrogate.Model
	bestF float64
}

// NewLogExpectedImprovement binds LogEI to a fitted model and the best
// observed value.
func NewLogExpectedImprovement(model surrogate.Model, bestF float64) *LogExpectedImprovement {
	return &LogExpectedImprovement{model: model, bestF: bestF}
}

// Abbreviation returns "LogEI".
func (a *LogExpectedImprovement) Abbreviation() string { return "LogEI" }

// Evaluate returns log(EI) per candidate, floored to stay finite.
func (a *LogExpectedImprovement) Evaluate(candidates mat.Matrix) ([]float64, error) {
	mean, variance, err := a.model.EstimateMoments(candidates)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(mean))
	for i := range mean {
		out[i] = math.Log(math.Max(expectedImprovement(mean[i], variance[i], a.bestF), logFloor))
	}

	return out, nil
}

// ProbabilityOfImprovement scores candidates by the probability of beating
// the best observed value, regardless of by how much.
type ProbabilityOfImprovement struct {
	model surrogate.Model
	bestF float64
}

// NewProbabilityOfImprovement binds PI to a fitted model and the best
// observed value.
func NewProbabilityOfImprovement(model surrogate.Model, bestF float64) *ProbabilityOfImprovement {
	return &ProbabilityOfImprovement{model: model, bestF: bestF}
}

// Abbreviation returns "PI".
func (a *ProbabilityOfImprovement) Abbreviation() string { return "PI" }

// Evaluate returns CDF((mu - best) / sigma) per candidate.
func (a *ProbabilityOfImprovement) Evaluate(candidates mat.Matrix) ([]float64, error) {
	mean, variance, err := a.model.EstimateMoments(candidates)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(mean))
	for i := range mean {
		sigma := math.Sqrt(variance[i])
		if sigma == 0 {
			if mean[i] > a.bestF {
				out[i] = 1
			}
			continue
		}
		out[i] = stdNormal.CDF((mean[i] - a.bestF) / sigma)
	}

	return out, nil
}

// UpperConfidenceBound trades off the posterior mean against the posterior
// uncertainty: mu + beta * sigma. Beta of zero is pure exploitation;
// larger values shift the focus toward exploration.
type UpperConfidenceBound struct {
	model surrogate.Model
	beta  float64
}

// NewUpperConfidenceBound binds UCB to a fitted model with the given
// exploration weight. Beta must be non-negative.
func NewUpperConfidenceBound(model surrogate.Model, beta float64) (*UpperConfidenceBound, error) {
	if beta < 0 {
		return nil, errors.New(errors.Validation,
			"UpperConfidenceBound exploration weight must be >= 0, got %v", beta)
	}
	return &UpperConfidenceBound{model: model, beta: beta}, nil
}

// Abbreviation returns "UCB".
func (a *UpperConfidenceBound) Abbreviation() string { return "UCB" }

// Evaluate returns mu + beta * sigma per candidate.
func (a *UpperConfidenceBound) Evaluate(candidates mat.Matrix) ([]float64, error) {
	mean, variance, err := a.model.EstimateMoments(candidates)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(mean))
	for i := range mean {
		out[i] = mean[i] + a.beta*math.Sqrt(variance[i])
	}

	return out, nil
}
