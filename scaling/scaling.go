// Package scaling applies per-column-group input transforms to candidate
// tensors before surrogate fitting and evaluation.
package scaling

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/thalesfsp/bed/errors"
)

// InputTransform adapts its internal statistics on Fit and applies them on
// Transform. Fitting twice on identical data yields identical statistics.
type InputTransform interface {
	// Fit updates the transform's statistics from the given columns.
	Fit(x mat.Matrix)

	// Transform returns the transformed columns. It must not mutate x.
	Transform(x mat.Matrix) *mat.Dense
}

//////
// Transforms.
//////

// Normalize rescales each column to [0, 1] using the min/max seen at fit
// time. Constant columns map to zero.
type Normalize struct {
	mins, maxs []float64
}

// NewNormalize creates an unfitted min-max transform.
func NewNormalize() *Normalize { return &Normalize{} }

// Fit records per-column minima and maxima.
func (t *Normalize) Fit(x mat.Matrix) {
	r, c := x.Dims()
	t.mins = make([]float64, c)
	t.maxs = make([]float64, c)

	for j := 0; j < c; j++ {
		lo, hi := x.At(0, j), x.At(0, j)
		for i := 1; i < r; i++ {
			v := x.At(i, j)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		t.mins[j], t.maxs[j] = lo, hi
	}
}

// Transform maps each column through (v - min) / (max - min).
func (t *Normalize) Transform(x mat.Matrix) *mat.Dense {
	r, c := x.Dims()
	out := mat.NewDense(r, c, nil)

	for j := 0; j < c; j++ {
		span := t.maxs[j] - t.mins[j]
		for i := 0; i < r; i++ {
			if span == 0 {
				out.Set(i, j, 0)
				continue
			}
			out.Set(i, j, (x.At(i, j)-t.mins[j])/span)
		}
	}

	return out
}

// Standardize rescales each column to zero mean and unit variance using
// the moments seen at fit time. Constant columns map to zero.
type Standardize struct {
	means, stds []float64
}

// NewStandardize creates an unfitted z-score transform.
func NewStandardize() *Standardize { return &Standardize{} }

// Fit records per-column means and standard deviations.
func (t *Standardize) Fit(x mat.Matrix) {
	r, c := x.Dims()
	t.means = make([]float64, c)
	t.stds = make([]float64, c)

	for j := 0; j < c; j++ {
		var sum float64
		for i := 0; i < r; i++ {
			sum += x.At(i, j)
		}
		mean := sum / float64(r)

		var ss float64
		for i := 0; i < r; i++ {
			d := x.At(i, j) - mean
			ss += d * d
		}

		t.means[j] = mean
		if r > 1 {
			t.stds[j] = ss / float64(r-1)
		}
	}

	for j := range t.stds {
		if t.stds[j] > 0 {
			t.stds[j] = math.Sqrt(t.stds[j])
		}
	}
}

// Transform maps each column through (v - mean) / std.
func (t *Standardize) Transform(x mat.Matrix) *mat.Dense {
	r, c := x.Dims()
	out := mat.NewDense(r, c, nil)

	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			if t.stds[j] == 0 {
				out.Set(i, j, 0)
				continue
			}
			out.Set(i, j, (x.At(i, j)-t.means[j])/t.stds[j])
		}
	}

	return out
}

//////
// Column transformer.
//////

// Group binds a set of column indices to one transform.
type Group struct {
	Columns   []int
	Transform InputTransform
}

// ColumnTransformer applies disjoint per-column-group transforms to a
// tensor. Columns not covered by any group pass through unchanged.
type ColumnTransformer struct {
	groups []Group
}

// NewColumnTransformer validates that no two groups share a column index
// and that every group carries a transform.
func NewColumnTransformer(groups []Group) (*ColumnTransformer, error) {
	for i, g := range groups {
		if g.Transform == nil {
			return nil, errors.New(errors.Validation,
				"column group %v has no transform", g.Columns)
		}
		if len(g.Columns) == 0 {
			return nil, errors.New(errors.Validation, "column group %d is empty", i)
		}
	}

	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			if overlap(groups[i].Columns, groups[j].Columns) {
				return nil, errors.New(errors.Validation,
					"column groups %v and %v are not disjoint",
					groups[i].Columns, groups[j].Columns)
			}
		}
	}

	return &ColumnTransformer{groups: groups}, nil
}

func overlap(a, b []int) bool {
	seen := make(map[int]struct{}, len(a))
	for _, v := range a {
		seen[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := seen[v]; ok {
			return true
		}
	}
	return false
}

// Fit feeds each group's column slice to its transform so the transform
// can adapt its statistics.
func (ct *ColumnTransformer) Fit(x *mat.Dense) {
	for _, g := range ct.groups {
		g.Transform.Fit(slice(x, g.Columns))
	}
}

// Transform returns a new tensor equal to x except that each configured
// column group is replaced by its transform's output.
func (ct *ColumnTransformer) Transform(x *mat.Dense) *mat.Dense {
	out := mat.DenseCopyOf(x)

	for _, g := range ct.groups {
		cols := g.Transform.Transform(slice(x, g.Columns))
		for j, col := range g.Columns {
			r, _ := out.Dims()
			for i := 0; i < r; i++ {
				out.Set(i, col, cols.At(i, j))
			}
		}
	}

	return out
}

// slice copies the given columns of x into a fresh matrix.
func slice(x *mat.Dense, cols []int) *mat.Dense {
	r, _ := x.Dims()
	out := mat.NewDense(r, len(cols), nil)
	for j, c := range cols {
		for i := 0; i < r; i++ {
			out.Set(i, j, x.At(i, c))
		}
	}
	return out
}
