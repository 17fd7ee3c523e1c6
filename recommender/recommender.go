// Package recommender orchestrates a recommendation cycle: fit a
// surrogate, build an acquisition function, filter candidates, optimize,
// and book-keep which rows were handed out.
//
// Concrete recommenders register themselves under a type discriminator so
// they can be constructed declaratively. Calls against the same
// SearchSpace must be serialized by the caller: successful recommendations
// mutate the discrete metadata in place.
package recommender

import (
	"sort"
	"sync"

	"golang.org/x/exp/constraints"

	"github.com/thalesfsp/bed/errors"
	"github.com/thalesfsp/bed/frame"
	"github.com/thalesfsp/bed/searchspace"
)

// Request carries the per-call knobs of a recommendation cycle.
type Request struct {
	// BatchQuantity is the number of points to recommend. Must be >= 1.
	BatchQuantity int

	// AllowRepeatedRecommendations re-admits rows that were already
	// recommended in earlier cycles.
	AllowRepeatedRecommendations bool

	// AllowRecommendingAlreadyMeasured re-admits rows whose experiment
	// has already been run.
	AllowRecommendingAlreadyMeasured bool
}

// DefaultRequest returns the default request: one point, no repeats,
// measured rows allowed.
func DefaultRequest() Request {
	return Request{
		BatchQuantity:                    1,
		AllowRecommendingAlreadyMeasured: true,
	}
}

func (r Request) validate() error {
	if r.BatchQuantity < 1 {
		return errors.New(errors.Validation,
			"batch quantity must be >= 1, got %d", r.BatchQuantity)
	}
	return nil
}

// Recommender proposes the next batch of experiments for a search space
// given the observations made so far.
type Recommender interface {
	// Recommend returns BatchQuantity experimental-representation rows.
	// Non-predictive recommenders ignore trainX and trainY.
	Recommend(space *searchspace.SearchSpace, trainX, trainY *frame.Numeric, req Request) (*frame.Records, error)
}

//////
// Shared discrete selection.
//////

// pickFunc selects BatchQuantity row labels from the filtered candidate
// table.
type pickFunc func(space *searchspace.SearchSpace, candidates *frame.Numeric, batchQuantity int) ([]int, error)

// selectCandidates filters the discrete candidate table and runs the pick
// callback. It performs no metadata mutation; the chosen rows and their
// labels are returned so the caller can apply the bookkeeping explicitly.
//
// When a continuous part is present both exclusion flags are treated as
// true: uniqueness across the continuous dimension makes exact-row
// exclusion meaningless.
func selectCandidates(space *searchspace.SearchSpace, pick pickFunc, req Request) (*frame.Records, []int, error) {
	relax := space.HasContinuous()

	_, candidates, err := space.Discrete().GetCandidates(
		req.AllowRepeatedRecommendations || relax,
		req.AllowRecommendingAlreadyMeasured || relax,
	)
	if err != nil {
		return nil, nil, err
	}

	if candidates.Len() < req.BatchQuantity {
		insufficientCandidatesTotal.Inc()
		return nil, nil, errors.New(errors.NotEnoughPoints,
			"fewer than %d data points left to recommend; either all points were "+
				"measured or recommended (with AllowRepeatedRecommendations or "+
				"AllowRecommendingAlreadyMeasured unset) or all points are marked DontRecommend",
			req.BatchQuantity)
	}

	labels, err := pick(space, candidates, req.BatchQuantity)
	if err != nil {
		return nil, nil, err
	}

	rec, err := space.Discrete().ExpRep().Loc(labels)
	if err != nil {
		return nil, nil, err
	}

	return rec, labels, nil
}

// selectAndRecommend runs selectCandidates and, on success, applies the
// metadata mutation marking the chosen rows as recommended. A failed
// selection leaves the metadata untouched.
func selectAndRecommend(space *searchspace.SearchSpace, pick pickFunc, req Request) (*frame.Records, error) {
	rec, labels, err := selectCandidates(space, pick, req)
	if err != nil {
		return nil, err
	}

	if err := space.Discrete().Metadata().MarkRecommended(labels); err != nil {
		return nil, err
	}

	return rec, nil
}

// argsortDesc returns the positions of vals in descending value order.
func argsortDesc[T constraints.Ordered](vals []T) []int {
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return vals[idx[a]] > vals[idx[b]] })
	return idx
}

// numericToRecords converts a numeric table into a record table with the
// same index and columns.
func numericToRecords(n *frame.Numeric) (*frame.Records, error) {
	rows := make([][]any, n.Len())
	for i := range rows {
		vals := n.Row(i)
		row := make([]any, len(vals))
		for j, v := range vals {
			row[j] = v
		}
		rows[i] = row
	}

	out, err := frame.NewRecords(n.Columns(), rows)
	if err != nil {
		return nil, err
	}

	return out.WithIndex(n.Index())
}

//////
// Registry.
//////

// Builder constructs a recommender from declarative parameters.
type Builder func(params map[string]any) (Recommender, error)

var (
	builders   = make(map[string]Builder)
	buildersMu sync.RWMutex
)

// Register adds a recommender builder under a type discriminator.
// Concrete recommender files call it from init so the registry is
// populated at process start; abstract cores do not register.
func Register(typeName string, builder Builder) {
	if typeName == "" || builder == nil {
		return
	}

	buildersMu.Lock()
	defer buildersMu.Unlock()

	builders[typeName] = builder
}

// SupportedTypes returns the registered recommender types, sorted.
func SupportedTypes() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()

	types := make([]string, 0, len(builders))
	for t := range builders {
		types = append(types, t)
	}
	sort.Strings(types)

	return types
}

// New builds a recommender of the given type from declarative parameters.
func New(typeName string, params map[string]any) (Recommender, error) {
	buildersMu.RLock()
	builder, ok := builders[typeName]
	buildersMu.RUnlock()

	if !ok {
		return nil, errors.New(errors.UnknownKey,
			"unknown recommender type %q (supported: %v)", typeName, SupportedTypes())
	}

	return builder(params)
}
