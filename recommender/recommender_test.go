package recommender

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/thalesfsp/bed/errors"
	"github.com/thalesfsp/bed/frame"
	"github.com/thalesfsp/bed/searchspace"
)

func discretePart(t *testing.T, values []float64) *searchspace.Discrete {
	t.Helper()

	data := mat.NewDense(len(values), 1, values)
	rows := make([][]any, len(values))
	for i, v := range values {
		rows[i] = []any{v}
	}

	comp, err := frame.NewNumeric([]string{"x"}, data)
	require.NoError(t, err)
	exp, err := frame.NewRecords([]string{"x"}, rows)
	require.NoError(t, err)

	d, err := searchspace.NewDiscrete(exp, comp)
	require.NoError(t, err)

	return d
}

func grid(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func training(t *testing.T, xs, ys []float64) (*frame.Numeric, *frame.Numeric) {
	t.Helper()

	x, err := frame.NewNumeric([]string{"x"}, mat.NewDense(len(xs), 1, xs))
	require.NoError(t, err)
	y, err := frame.NewNumeric([]string{"target"}, mat.NewDense(len(ys), 1, ys))
	require.NoError(t, err)

	return x, y
}

func TestRandomDiscreteCycleExhaustsThePool(t *testing.T) {
	d := discretePart(t, grid(10))
	space, err := searchspace.New(d, nil)
	require.NoError(t, err)

	require.NoError(t, d.Metadata().MarkMeasured([]int{0, 1, 2}))

	rec := NewRandom(1)

	req := DefaultRequest()
	req.BatchQuantity = 5
	req.AllowRecommendingAlreadyMeasured = false

	// Seven unmeasured rows are eligible; five get handed out and flagged.
	batch, err := rec.Recommend(space, nil, nil, req)
	require.NoError(t, err)
	require.Equal(t, 5, batch.Len())

	flagged := 0
	for label := 0; label < 10; label++ {
		if d.Metadata().Flags(label).WasRecommended {
			flagged++
			assert.False(t, d.Metadata().Flags(label).WasMeasured)
		}
	}
	assert.Equal(t, 5, flagged)

	// The immediate follow-up drains the remaining two rows.
	req.BatchQuantity = 2
	batch, err = rec.Recommend(space, nil, nil, req)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Len())

	// Nothing is left now.
	req.BatchQuantity = 1
	_, err = rec.Recommend(space, nil, nil, req)
	assert.True(t, errors.IsKind(err, errors.NotEnoughPoints))
}

func TestFailedSelectionLeavesMetadataUntouched(t *testing.T) {
	d := discretePart(t, grid(3))
	space, err := searchspace.New(d, nil)
	require.NoError(t, err)

	req := DefaultRequest()
	req.BatchQuantity = 4

	_, err = NewRandom(1).Recommend(space, nil, nil, req)
	require.True(t, errors.IsKind(err, errors.NotEnoughPoints))

	for label := 0; label < 3; label++ {
		assert.False(t, d.Metadata().Flags(label).WasRecommended)
	}
}

func TestRandomContinuousStaysInBounds(t *testing.T) {
	cont, err := searchspace.NewContinuous([]searchspace.Parameter{
		{Name: "temp", Min: 10, Max: 20},
	})
	require.NoError(t, err)
	space, err := searchspace.New(nil, cont)
	require.NoError(t, err)

	req := DefaultRequest()
	req.BatchQuantity = 8

	batch, err := NewRandom(1).Recommend(space, nil, nil, req)
	require.NoError(t, err)
	require.Equal(t, 8, batch.Len())
	assert.Equal(t, []string{"temp"}, batch.Columns())

	for i := 0; i < batch.Len(); i++ {
		v := batch.Row(i)[0].(float64)
		assert.GreaterOrEqual(t, v, 10.0)
		assert.LessOrEqual(t, v, 20.0)
	}
}

func TestRandomHybridConcatenatesAndRelaxesFlags(t *testing.T) {
	d := discretePart(t, grid(4))
	cont, err := searchspace.NewContinuous([]searchspace.Parameter{
		{Name: "temp", Min: 0, Max: 1},
	})
	require.NoError(t, err)
	space, err := searchspace.New(d, cont)
	require.NoError(t, err)

	// Everything is already measured and recommended; a hybrid space must
	// re-admit the rows anyway.
	require.NoError(t, d.Metadata().MarkMeasured([]int{0, 1, 2, 3}))
	require.NoError(t, d.Metadata().MarkRecommended([]int{0, 1, 2, 3}))

	req := DefaultRequest()
	req.BatchQuantity = 2
	req.AllowRecommendingAlreadyMeasured = false
	req.AllowRepeatedRecommendations = false

	batch, err := NewRandom(1).Recommend(space, nil, nil, req)
	require.NoError(t, err)
	require.Equal(t, 2, batch.Len())
	assert.Equal(t, []string{"x", "temp"}, batch.Columns())
}

func TestRandomRequestValidation(t *testing.T) {
	space, err := searchspace.New(discretePart(t, grid(3)), nil)
	require.NoError(t, err)

	_, err = NewRandom(1).Recommend(space, nil, nil, Request{BatchQuantity: 0})
	assert.True(t, errors.IsKind(err, errors.Validation))
}

func TestSequentialGreedyPicksTheObservedOptimum(t *testing.T) {
	// Candidates are the training points themselves; under the posterior
	// mean the recommender must pick the row with the highest target.
	xs := []float64{0, 0.25, 0.5, 0.75, 1}
	ys := []float64{0, 0.5, 1.0, 0.5, 0}

	d := discretePart(t, xs)
	space, err := searchspace.New(d, nil)
	require.NoError(t, err)

	trainX, trainY := training(t, xs, ys)

	rec := NewSequentialGreedy(
		WithAcquisitionFunction("PM"),
		WithSeed(1),
	)

	batch, err := rec.Recommend(space, trainX, trainY, DefaultRequest())
	require.NoError(t, err)
	require.Equal(t, 1, batch.Len())

	assert.Equal(t, 0.5, batch.Row(0)[0])
	assert.True(t, d.Metadata().Flags(2).WasRecommended)
}

func TestSequentialGreedyBatchIsGreedyTopK(t *testing.T) {
	xs := []float64{0, 0.25, 0.5, 0.75, 1}
	ys := []float64{0, 0.5, 1.0, 0.5, 0}

	d := discretePart(t, xs)
	space, err := searchspace.New(d, nil)
	require.NoError(t, err)

	trainX, trainY := training(t, xs, ys)

	req := DefaultRequest()
	req.BatchQuantity = 2

	rec := NewSequentialGreedy(WithAcquisitionFunction("PM"), WithSeed(1))

	batch, err := rec.Recommend(space, trainX, trainY, req)
	require.NoError(t, err)
	require.Equal(t, 2, batch.Len())

	// The top score belongs to the peak; the runner-up is one of its
	// shoulders.
	assert.Equal(t, 0.5, batch.Row(0)[0])
	assert.Contains(t, []float64{0.25, 0.75}, batch.Row(1)[0])
}

func TestSequentialGreedyContinuous(t *testing.T) {
	cont, err := searchspace.NewContinuous([]searchspace.Parameter{
		{Name: "x", Min: 0, Max: 1},
	})
	require.NoError(t, err)
	space, err := searchspace.New(nil, cont)
	require.NoError(t, err)

	trainX, trainY := training(t,
		[]float64{0, 0.25, 0.5, 0.75, 1},
		[]float64{0, 0.5, 1.0, 0.5, 0},
	)

	req := DefaultRequest()
	req.BatchQuantity = 3

	rec := NewSequentialGreedy(
		WithAcquisitionFunction("PM"),
		WithNumCandidates(200),
		WithSeed(1),
	)

	batch, err := rec.Recommend(space, trainX, trainY, req)
	require.NoError(t, err)
	require.Equal(t, 3, batch.Len())
	assert.Equal(t, []string{"x"}, batch.Columns())

	// With 200 random probes per slot under the posterior mean, every
	// chosen point lands near the peak at 0.5.
	for i := 0; i < batch.Len(); i++ {
		v := batch.Row(i)[0].(float64)
		assert.InDelta(t, 0.5, v, 0.2)
	}
}

func TestSequentialGreedyHybrid(t *testing.T) {
	d := discretePart(t, []float64{0, 0.5, 1})
	cont, err := searchspace.NewContinuous([]searchspace.Parameter{
		{Name: "temp", Min: 0, Max: 1},
	})
	require.NoError(t, err)
	space, err := searchspace.New(d, cont)
	require.NoError(t, err)

	trainX, err := frame.NewNumeric([]string{"x", "temp"}, mat.NewDense(3, 2, []float64{
		0, 0.5,
		0.5, 0.5,
		1, 0.5,
	}))
	require.NoError(t, err)
	trainY, err := frame.NewNumeric([]string{"target"}, mat.NewDense(3, 1, []float64{0, 1, 0}))
	require.NoError(t, err)

	rec := NewSequentialGreedy(WithAcquisitionFunction("PM"), WithSeed(1))

	batch, err := rec.Recommend(space, trainX, trainY, DefaultRequest())
	require.NoError(t, err)
	require.Equal(t, 1, batch.Len())
	assert.Equal(t, []string{"x", "temp"}, batch.Columns())
}

func TestSequentialGreedyRejectsMismatchedIndexes(t *testing.T) {
	space, err := searchspace.New(discretePart(t, grid(3)), nil)
	require.NoError(t, err)

	trainX, trainY := training(t, []float64{0, 1}, []float64{0, 1})
	trainY, err = trainY.WithIndex([]int{5, 6})
	require.NoError(t, err)

	_, err = NewSequentialGreedy().Recommend(space, trainX, trainY, DefaultRequest())
	assert.True(t, errors.IsKind(err, errors.Validation))
}

func TestSequentialGreedyUnknownKeysSurface(t *testing.T) {
	space, err := searchspace.New(discretePart(t, grid(3)), nil)
	require.NoError(t, err)

	trainX, trainY := training(t, []float64{0, 1, 2}, []float64{0, 1, 0})

	_, err = NewSequentialGreedy(WithSurrogate("nope")).
		Recommend(space, trainX, trainY, DefaultRequest())
	assert.True(t, errors.IsKind(err, errors.UnknownKey))

	_, err = NewSequentialGreedy(WithAcquisitionFunction("nope")).
		Recommend(space, trainX, trainY, DefaultRequest())
	assert.True(t, errors.IsKind(err, errors.UnknownKey))
}

func TestRegistryBuildsConfiguredRecommenders(t *testing.T) {
	types := SupportedTypes()
	assert.Contains(t, types, RandomType)
	assert.Contains(t, types, SequentialGreedyType)

	r, err := New(RandomType, map[string]any{"seed": 42})
	require.NoError(t, err)
	assert.IsType(t, &Random{}, r)

	r, err = New(SequentialGreedyType, map[string]any{
		"surrogate":            "MP",
		"acquisition_function": "UCB",
		"num_candidates":       10,
		"seed":                 7,
	})
	require.NoError(t, err)
	assert.IsType(t, &SequentialGreedy{}, r)

	_, err = New("bogus", nil)
	assert.True(t, errors.IsKind(err, errors.UnknownKey))
	assert.ErrorContains(t, err, RandomType)
}

func TestRegistryRejectsBadParams(t *testing.T) {
	_, err := New(RandomType, map[string]any{"seed": "tomorrow"})
	assert.True(t, errors.IsKind(err, errors.Validation))

	_, err = New(SequentialGreedyType, map[string]any{"num_candidates": 0})
	assert.True(t, errors.IsKind(err, errors.Validation))

	_, err = New(SequentialGreedyType, map[string]any{"surrogate": 3})
	assert.True(t, errors.IsKind(err, errors.Validation))
}

func TestArgsortDesc(t *testing.T) {
	assert.Equal(t, []int{2, 0, 1}, argsortDesc([]float64{5, 1, 9}))
	assert.Equal(t, []int{0, 1, 2}, argsortDesc([]int{3, 2, 1}))
}
