// Package frame provides the minimal tabular types exchanged between the
// search space, the surrogate models, and the recommenders.
//
// A Numeric table is the computational representation of candidates: a
// dense float matrix with named columns and an integer row index. A
// Records table is the experimental representation: the human-facing rows
// returned to the caller. Row indices are labels, not positions; a row
// keeps its label across filtering.
package frame

import (
	"gonum.org/v1/gonum/mat"

	"github.com/thalesfsp/bed/errors"
)

//////
// Numeric tables.
//////

// Numeric is a numeric feature table with an integer row index.
type Numeric struct {
	index []int
	cols  []string
	data  *mat.Dense
}

// NewNumeric creates a table from column names and a data matrix. The row
// index defaults to 0..n-1.
func NewNumeric(cols []string, data *mat.Dense) (*Numeric, error) {
	r, c := data.Dims()
	if len(cols) != c {
		return nil, errors.New(errors.Validation,
			"Numeric table has %d columns but %d column names", c, len(cols))
	}

	index := make([]int, r)
	for i := range index {
		index[i] = i
	}

	return &Numeric{index: index, cols: cols, data: data}, nil
}

// WithIndex replaces the row index. The length must match the row count.
func (n *Numeric) WithIndex(index []int) (*Numeric, error) {
	if len(index) != len(n.index) {
		return nil, errors.New(errors.Validation,
			"index of length %d does not match %d rows", len(index), len(n.index))
	}

	out := *n
	out.index = append([]int(nil), index...)

	return &out, nil
}

// Len returns the number of rows.
func (n *Numeric) Len() int { return len(n.index) }

// Columns returns the column names.
func (n *Numeric) Columns() []string { return n.cols }

// Index returns the row index labels.
func (n *Numeric) Index() []int { return n.index }

// Data returns the underlying matrix. Callers must not mutate it.
func (n *Numeric) Data() *mat.Dense { return n.data }

// Row returns a copy of the i-th row (by position, not label).
func (n *Numeric) Row(i int) []float64 {
	return mat.Row(nil, i, n.data)
}

// position returns the row position of a label.
func (n *Numeric) position(label int) (int, bool) {
	for i, l := range n.index {
		if l == label {
			return i, true
		}
	}
	return 0, false
}

// Take returns a new table holding the rows at the given positions, with
// their labels preserved. An empty selection yields a zero-row table whose
// Data is nil; gonum matrices cannot have zero rows.
func (n *Numeric) Take(positions []int) (*Numeric, error) {
	if len(positions) == 0 {
		return &Numeric{index: []int{}, cols: n.cols, data: nil}, nil
	}

	_, c := n.data.Dims()
	out := mat.NewDense(len(positions), c, nil)
	index := make([]int, len(positions))

	for i, p := range positions {
		if p < 0 || p >= len(n.index) {
			return nil, errors.New(errors.Validation, "row position %d out of range", p)
		}
		out.SetRow(i, n.Row(p))
		index[i] = n.index[p]
	}

	return &Numeric{index: index, cols: n.cols, data: out}, nil
}

// Loc returns a new table holding the rows with the given labels.
func (n *Numeric) Loc(labels []int) (*Numeric, error) {
	positions := make([]int, len(labels))
	for i, l := range labels {
		p, ok := n.position(l)
		if !ok {
			return nil, errors.New(errors.Validation, "row label %d not present", l)
		}
		positions[i] = p
	}
	return n.Take(positions)
}

// ConcatColumns glues two tables of equal length side by side, keeping the
// row index of the left table.
func ConcatColumns(left, right *Numeric) (*Numeric, error) {
	if left.Len() != right.Len() {
		return nil, errors.New(errors.Validation,
			"cannot concatenate tables of %d and %d rows", left.Len(), right.Len())
	}

	_, lc := left.data.Dims()
	_, rc := right.data.Dims()
	out := mat.NewDense(left.Len(), lc+rc, nil)

	for i := 0; i < left.Len(); i++ {
		out.SetRow(i, append(left.Row(i), right.Row(i)...))
	}

	cols := append(append([]string(nil), left.cols...), right.cols...)

	return &Numeric{
		index: append([]int(nil), left.index...),
		cols:  cols,
		data:  out,
	}, nil
}

//////
// Record tables.
//////

// Records is a human-facing row table with an integer row index.
type Records struct {
	index []int
	cols  []string
	cells [][]any
}

// NewRecords creates a record table. Each row must have one cell per
// column. The row index defaults to 0..n-1.
func NewRecords(cols []string, rows [][]any) (*Records, error) {
	for i, row := range rows {
		if len(row) != len(cols) {
			return nil, errors.New(errors.Validation,
				"record row %d has %d cells but %d columns", i, len(row), len(cols))
		}
	}

	index := make([]int, len(rows))
	for i := range index {
		index[i] = i
	}

	return &Records{index: index, cols: cols, cells: rows}, nil
}

// WithIndex replaces the row index. The length must match the row count.
func (r *Records) WithIndex(index []int) (*Records, error) {
	if len(index) != len(r.index) {
		return nil, errors.New(errors.Validation,
			"index of length %d does not match %d rows", len(index), len(r.index))
	}

	out := *r
	out.index = append([]int(nil), index...)

	return &out, nil
}

// Len returns the number of rows.
func (r *Records) Len() int { return len(r.index) }

// Columns returns the column names.
func (r *Records) Columns() []string { return r.cols }

// Index returns the row index labels.
func (r *Records) Index() []int { return r.index }

// Row returns the cells of the i-th row (by position).
func (r *Records) Row(i int) []any { return r.cells[i] }

// Loc returns a new table holding the rows with the given labels.
func (r *Records) Loc(labels []int) (*Records, error) {
	cells := make([][]any, len(labels))
	index := make([]int, len(labels))

	for i, l := range labels {
		found := false
		for p, lab := range r.index {
			if lab == l {
				cells[i] = r.cells[p]
				index[i] = l
				found = true
				break
			}
		}
		if !found {
			return nil, errors.New(errors.Validation, "row label %d not present", l)
		}
	}

	return &Records{index: index, cols: r.cols, cells: cells}, nil
}

// ConcatRecordColumns glues two record tables of equal length side by
// side, keeping the row index of the left table.
func ConcatRecordColumns(left, right *Records) (*Records, error) {
	if left.Len() != right.Len() {
		return nil, errors.New(errors.Validation,
			"cannot concatenate tables of %d and %d rows", left.Len(), right.Len())
	}

	cols := append(append([]string(nil), left.cols...), right.cols...)
	cells := make([][]any, left.Len())
	for i := range cells {
		cells[i] = append(append([]any(nil), left.cells[i]...), right.cells[i]...)
	}

	return &Records{
		index: append([]int(nil), left.index...),
		cols:  cols,
		cells: cells,
	}, nil
}

//////
// Tensor conversion.
//////

// ToTensor converts a feature table and a single-column target table into
// the tensor representation consumed by surrogate fitting. The row indices
// of both tables must match exactly.
func ToTensor(x, y *Numeric) (*mat.Dense, *mat.VecDense, error) {
	if err := sameIndex(x.index, y.index); err != nil {
		return nil, nil, err
	}

	if len(y.cols) != 1 {
		return nil, nil, errors.New(errors.Validation,
			"target table must have exactly one column, got %d", len(y.cols))
	}

	targets := mat.NewVecDense(y.Len(), nil)
	for i := 0; i < y.Len(); i++ {
		targets.SetVec(i, y.data.At(i, 0))
	}

	features := mat.DenseCopyOf(x.data)

	return features, targets, nil
}

func sameIndex(a, b []int) error {
	if len(a) != len(b) {
		return errors.New(errors.Validation,
			"training inputs and targets must have the same index (%d vs %d rows)",
			len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			return errors.New(errors.Validation,
				"training inputs and targets must have the same index (mismatch at position %d: %d vs %d)",
				i, a[i], b[i])
		}
	}
	return nil
}
