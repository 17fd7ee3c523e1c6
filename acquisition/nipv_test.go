package acquisition

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/thalesfsp/bed/errors"
	"github.com/thalesfsp/bed/frame"
	"github.com/thalesfsp/bed/sampling"
	"github.com/thalesfsp/bed/searchspace"
)

func discreteSpace(t *testing.T, n int) *searchspace.SearchSpace {
	t.Helper()

	data := mat.NewDense(n, 1, nil)
	rows := make([][]any, n)
	for i := 0; i < n; i++ {
		data.Set(i, 0, float64(i)/float64(n))
		rows[i] = []any{i}
	}

	comp, err := frame.NewNumeric([]string{"x"}, data)
	require.NoError(t, err)
	exp, err := frame.NewRecords([]string{"x"}, rows)
	require.NoError(t, err)

	d, err := searchspace.NewDiscrete(exp, comp)
	require.NoError(t, err)

	space, err := searchspace.New(d, nil)
	require.NoError(t, err)

	return space
}

func TestNIPVConfigValidation(t *testing.T) {
	model, _, _ := fittedGP(t)

	_, err := NewQNegIntegratedPosteriorVariance(model, NIPVConfig{SamplingFraction: 0})
	assert.True(t, errors.IsKind(err, errors.Validation))

	_, err = NewQNegIntegratedPosteriorVariance(model, NIPVConfig{SamplingFraction: 1.5})
	assert.True(t, errors.IsKind(err, errors.Validation))

	_, err = NewQNegIntegratedPosteriorVariance(model, NIPVConfig{
		SamplingFraction: 0.5,
		SamplingNPoints:  -3,
	})
	assert.True(t, errors.IsKind(err, errors.Validation))

	_, err = NewQNegIntegratedPosteriorVariance(model, DefaultNIPVConfig())
	assert.NoError(t, err)
}

func TestIntegrationPointCountFollowsFraction(t *testing.T) {
	model, _, _ := fittedGP(t)
	rng := rand.New(rand.NewSource(1))

	cfg := DefaultNIPVConfig()
	cfg.SamplingFraction = 0.5

	acqf, err := NewQNegIntegratedPosteriorVariance(model, cfg)
	require.NoError(t, err)

	// ceil(0.5 * 10) quadrature nodes from a ten row table.
	points, err := acqf.GetIntegrationPoints(discreteSpace(t, 10), rng)
	require.NoError(t, err)
	assert.Equal(t, 5, points.Len())
}

func TestIntegrationPointCountOverriddenByNPoints(t *testing.T) {
	model, _, _ := fittedGP(t)
	rng := rand.New(rand.NewSource(1))

	cfg := DefaultNIPVConfig()
	cfg.SamplingFraction = 0.5
	cfg.SamplingNPoints = 3

	acqf, err := NewQNegIntegratedPosteriorVariance(model, cfg)
	require.NoError(t, err)

	points, err := acqf.GetIntegrationPoints(discreteSpace(t, 10), rng)
	require.NoError(t, err)
	assert.Equal(t, 3, points.Len())
}

func TestPurelyContinuousSpaceRequiresNPoints(t *testing.T) {
	model, _, _ := fittedGP(t)
	rng := rand.New(rand.NewSource(1))

	cont, err := searchspace.NewContinuous([]searchspace.Parameter{{Name: "x", Min: 0, Max: 1}})
	require.NoError(t, err)
	space, err := searchspace.New(nil, cont)
	require.NoError(t, err)

	acqf, err := NewQNegIntegratedPosteriorVariance(model, DefaultNIPVConfig())
	require.NoError(t, err)

	_, err = acqf.GetIntegrationPoints(space, rng)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.Configuration))
	assert.ErrorContains(t, err, "qNegIntegratedPosteriorVariance")

	cfg := DefaultNIPVConfig()
	cfg.SamplingNPoints = 4

	acqf, err = NewQNegIntegratedPosteriorVariance(model, cfg)
	require.NoError(t, err)

	points, err := acqf.GetIntegrationPoints(space, rng)
	require.NoError(t, err)
	assert.Equal(t, 4, points.Len())
}

func TestHybridIntegrationPointsConcatenateColumns(t *testing.T) {
	model, _, _ := fittedGP(t)
	rng := rand.New(rand.NewSource(1))

	disc := discreteSpace(t, 6).Discrete()
	cont, err := searchspace.NewContinuous([]searchspace.Parameter{{Name: "temp", Min: 0, Max: 1}})
	require.NoError(t, err)
	space, err := searchspace.New(disc, cont)
	require.NoError(t, err)

	acqf, err := NewQNegIntegratedPosteriorVariance(model, DefaultNIPVConfig())
	require.NoError(t, err)

	points, err := acqf.GetIntegrationPoints(space, rng)
	require.NoError(t, err)

	assert.Equal(t, 6, points.Len())
	assert.Equal(t, []string{"x", "temp"}, points.Columns())
}

func TestFarthestPointIntegrationSampling(t *testing.T) {
	model, _, _ := fittedGP(t)
	rng := rand.New(rand.NewSource(1))

	cfg := DefaultNIPVConfig()
	cfg.SamplingNPoints = 2
	cfg.SamplingMethod = sampling.FarthestPoint

	acqf, err := NewQNegIntegratedPosteriorVariance(model, cfg)
	require.NoError(t, err)

	points, err := acqf.GetIntegrationPoints(discreteSpace(t, 10), rng)
	require.NoError(t, err)
	require.Equal(t, 2, points.Len())

	// Farthest point sampling picks the two extremes of the grid.
	values := []float64{points.Row(0)[0], points.Row(1)[0]}
	assert.ElementsMatch(t, []float64{0.0, 0.9}, values)
}

func TestEvaluateRequiresBind(t *testing.T) {
	model, _, _ := fittedGP(t)

	acqf, err := NewQNegIntegratedPosteriorVariance(model, DefaultNIPVConfig())
	require.NoError(t, err)

	_, err = acqf.Evaluate(mat.NewDense(1, 1, []float64{0.5}))
	assert.True(t, errors.IsKind(err, errors.Configuration))
}

func TestEvaluatePrefersInformativePoints(t *testing.T) {
	model, _, _ := fittedGP(t)
	rng := rand.New(rand.NewSource(1))

	cfg := DefaultNIPVConfig()
	cfg.Lengthscale = 0.3

	acqf, err := NewQNegIntegratedPosteriorVariance(model, cfg)
	require.NoError(t, err)
	require.NoError(t, acqf.Bind(discreteSpace(t, 10), rng))
	assert.Equal(t, "qNIPV", acqf.Abbreviation())

	// A candidate inside the grid reduces the integrated variance more than
	// one far outside it, so its (negative) score is higher.
	scores, err := acqf.Evaluate(mat.NewDense(2, 1, []float64{0.45, 50}))
	require.NoError(t, err)
	assert.Greater(t, scores[0], scores[1])
	assert.LessOrEqual(t, scores[0], 0.0)
}
