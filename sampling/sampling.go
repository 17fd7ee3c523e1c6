// Package sampling draws row subsets from numeric candidate tables. It
// backs the integration-point selection of active-learning acquisition
// functions.
package sampling

import (
	"math"
	"math/rand"

	"github.com/thalesfsp/bed/errors"
	"github.com/thalesfsp/bed/frame"
)

// Method selects the sampling strategy for discrete candidate tables.
type Method string

const (
	// Random draws rows uniformly, without replacement while possible.
	Random Method = "Random"

	// FarthestPoint greedily picks rows maximizing pairwise spread,
	// giving a diverse subset of the candidate table.
	FarthestPoint Method = "FPS"
)

// Sample returns k rows of the table chosen by the given method. When k
// exceeds the table size, Random falls back to drawing with replacement;
// FarthestPoint cannot and fails instead.
func Sample(table *frame.Numeric, k int, method Method, rng *rand.Rand) (*frame.Numeric, error) {
	if k <= 0 {
		return nil, errors.New(errors.Validation, "sample size must be positive, got %d", k)
	}

	switch method {
	case Random:
		return sampleRandom(table, k, rng)
	case FarthestPoint:
		return sampleFarthest(table, k)
	default:
		return nil, errors.New(errors.UnknownKey, "unknown sampling method %q", string(method))
	}
}

func sampleRandom(table *frame.Numeric, k int, rng *rand.Rand) (*frame.Numeric, error) {
	n := table.Len()

	if k > n {
		// With replacement: every draw is independent.
		positions := make([]int, k)
		for i := range positions {
			positions[i] = rng.Intn(n)
		}
		return table.Take(positions)
	}

	return table.Take(rng.Perm(n)[:k])
}

// sampleFarthest implements greedy farthest-point sampling: it seeds with
// the row farthest from the table centroid and repeatedly adds the row
// whose minimum distance to the selected set is largest.
func sampleFarthest(table *frame.Numeric, k int) (*frame.Numeric, error) {
	n := table.Len()
	if k > n {
		return nil, errors.New(errors.Validation,
			"farthest-point sampling cannot draw %d rows from a table of %d", k, n)
	}

	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = table.Row(i)
	}

	dim := len(rows[0])
	centroid := make([]float64, dim)
	for _, row := range rows {
		for j, v := range row {
			centroid[j] += v / float64(n)
		}
	}

	seed, best := 0, math.Inf(-1)
	for i, row := range rows {
		if d := sqDist(row, centroid); d > best {
			seed, best = i, d
		}
	}

	selected := []int{seed}
	// minDist[i] tracks each row's distance to the closest selected row.
	minDist := make([]float64, n)
	for i := range minDist {
		minDist[i] = sqDist(rows[i], rows[seed])
	}

	for len(selected) < k {
		next, far := -1, math.Inf(-1)
		for i, d := range minDist {
			if d > far {
				next, far = i, d
			}
		}

		selected = append(selected, next)
		for i := range minDist {
			if d := sqDist(rows[i], rows[next]); d < minDist[i] {
				minDist[i] = d
			}
		}
	}

	return table.Take(selected)
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}
