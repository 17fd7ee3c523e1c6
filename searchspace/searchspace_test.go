package searchspace

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/thalesfsp/bed/errors"
	"github.com/thalesfsp/bed/frame"
)

func discretePart(t *testing.T, n int) *Discrete {
	t.Helper()

	data := mat.NewDense(n, 1, nil)
	rows := make([][]any, n)
	for i := 0; i < n; i++ {
		data.Set(i, 0, float64(i))
		rows[i] = []any{i}
	}

	comp, err := frame.NewNumeric([]string{"x"}, data)
	require.NoError(t, err)
	exp, err := frame.NewRecords([]string{"x"}, rows)
	require.NoError(t, err)

	d, err := NewDiscrete(exp, comp)
	require.NoError(t, err)

	return d
}

func TestTypeDerivation(t *testing.T) {
	cont, err := NewContinuous([]Parameter{{Name: "temp", Min: 0, Max: 100}})
	require.NoError(t, err)

	discreteOnly, err := New(discretePart(t, 3), nil)
	require.NoError(t, err)
	assert.Equal(t, TypeDiscrete, discreteOnly.Type())

	continuousOnly, err := New(nil, cont)
	require.NoError(t, err)
	assert.Equal(t, TypeContinuous, continuousOnly.Type())

	hybrid, err := New(discretePart(t, 3), cont)
	require.NoError(t, err)
	assert.Equal(t, TypeHybrid, hybrid.Type())

	_, err = New(nil, nil)
	assert.True(t, errors.IsKind(err, errors.Validation))
}

func TestGetCandidatesFiltering(t *testing.T) {
	d := discretePart(t, 5)

	require.NoError(t, d.Metadata().MarkMeasured([]int{0, 1}))
	require.NoError(t, d.Metadata().MarkRecommended([]int{2}))
	require.NoError(t, d.Metadata().SetDontRecommend([]int{3}))

	// DontRecommend always wins; the other flags depend on the switches.
	_, comp, err := d.GetCandidates(false, false)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, comp.Index())

	_, comp, err = d.GetCandidates(true, false)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, comp.Index())

	_, comp, err = d.GetCandidates(false, true)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 4}, comp.Index())

	_, comp, err = d.GetCandidates(true, true)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 4}, comp.Index())
}

func TestMetadataMarkValidatesBeforeMutating(t *testing.T) {
	d := discretePart(t, 3)

	err := d.Metadata().MarkRecommended([]int{1, 99})
	assert.True(t, errors.IsKind(err, errors.Validation))

	// The valid label must not have been flipped.
	assert.False(t, d.Metadata().Flags(1).WasRecommended)
}

func TestNewDiscreteRejectsIndexMismatch(t *testing.T) {
	comp, err := frame.NewNumeric([]string{"x"}, mat.NewDense(2, 1, []float64{0, 1}))
	require.NoError(t, err)
	comp, err = comp.WithIndex([]int{5, 6})
	require.NoError(t, err)

	exp, err := frame.NewRecords([]string{"x"}, [][]any{{0}, {1}})
	require.NoError(t, err)

	_, err = NewDiscrete(exp, comp)
	assert.True(t, errors.IsKind(err, errors.Validation))
}

func TestSamplesRandomRespectsBounds(t *testing.T) {
	cont, err := NewContinuous([]Parameter{
		{Name: "temp", Min: 10, Max: 20},
		{Name: "pressure", Min: 1, Max: 2},
	})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))

	samples, err := cont.SamplesRandom(25, rng)
	require.NoError(t, err)
	require.Equal(t, 25, samples.Len())
	assert.Equal(t, []string{"temp", "pressure"}, samples.Columns())

	for i := 0; i < samples.Len(); i++ {
		row := samples.Row(i)
		assert.GreaterOrEqual(t, row[0], 10.0)
		assert.LessOrEqual(t, row[0], 20.0)
		assert.GreaterOrEqual(t, row[1], 1.0)
		assert.LessOrEqual(t, row[1], 2.0)
	}

	_, err = cont.SamplesRandom(0, rng)
	assert.True(t, errors.IsKind(err, errors.Validation))
}

func TestNewContinuousRejectsInvertedBounds(t *testing.T) {
	_, err := NewContinuous([]Parameter{{Name: "temp", Min: 5, Max: 1}})

	assert.True(t, errors.IsKind(err, errors.Validation))
	assert.ErrorContains(t, err, "temp")
}
