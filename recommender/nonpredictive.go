package recommender

import (
	"math/rand"
	"time"

	"github.com/thalesfsp/bed/errors"
	"github.com/thalesfsp/bed/frame"
	"github.com/thalesfsp/bed/searchspace"
)

//////
// Non-predictive recommenders.
//
// These ignore the training data entirely and dispatch purely on the
// search-space type. The shared dispatch core leaves every strategy
// optional; a missing strategy surfaces as a NotImplemented error naming
// the recommender type.
//////

// strategies holds the per-space-type selection callbacks of a
// non-predictive recommender.
type strategies struct {
	discrete   pickFunc
	continuous func(space *searchspace.SearchSpace, batchQuantity int) (*frame.Records, error)
	hybrid     func(space *searchspace.SearchSpace, req Request) (*frame.Records, error)
}

// dispatch validates the request and routes it to the strategy matching
// the search-space type.
func dispatch(typeName string, space *searchspace.SearchSpace, req Request, s strategies) (*frame.Records, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	switch space.Type() {
	case searchspace.TypeDiscrete:
		if s.discrete == nil {
			break
		}
		rec, err := selectAndRecommend(space, s.discrete, req)
		if err != nil {
			return nil, err
		}
		recommendationsTotal.WithLabelValues(typeName).Inc()
		return rec, nil

	case searchspace.TypeContinuous:
		if s.continuous == nil {
			break
		}
		rec, err := s.continuous(space, req.BatchQuantity)
		if err != nil {
			return nil, err
		}
		recommendationsTotal.WithLabelValues(typeName).Inc()
		return rec, nil

	case searchspace.TypeHybrid:
		if s.hybrid == nil {
			break
		}
		rec, err := s.hybrid(space, req)
		if err != nil {
			return nil, err
		}
		recommendationsTotal.WithLabelValues(typeName).Inc()
		return rec, nil
	}

	return nil, errors.New(errors.NotImplemented,
		"recommender %q does not handle %s search spaces", typeName, space.Type())
}

// Random recommends uniformly sampled points from any search-space type.
// It is the simplest baseline against which model-based recommenders are
// compared.
type Random struct {
	rng *rand.Rand
}

// RandomType is the registry discriminator of Random.
const RandomType = "RANDOM"

// NewRandom creates a random recommender seeded from the given source.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// Recommend ignores trainX and trainY and samples uniformly.
func (r *Random) Recommend(space *searchspace.SearchSpace, _, _ *frame.Numeric, req Request) (*frame.Records, error) {
	return dispatch(RandomType, space, req, strategies{
		discrete:   r.pickDiscrete,
		continuous: r.recommendContinuous,
		hybrid:     r.recommendHybrid,
	})
}

func (r *Random) pickDiscrete(_ *searchspace.SearchSpace, candidates *frame.Numeric, batchQuantity int) ([]int, error) {
	positions := r.rng.Perm(candidates.Len())[:batchQuantity]

	labels := make([]int, len(positions))
	for i, p := range positions {
		labels[i] = candidates.Index()[p]
	}

	return labels, nil
}

func (r *Random) recommendContinuous(space *searchspace.SearchSpace, batchQuantity int) (*frame.Records, error) {
	samples, err := space.Continuous().SamplesRandom(batchQuantity, r.rng)
	if err != nil {
		return nil, err
	}
	return numericToRecords(samples)
}

func (r *Random) recommendHybrid(space *searchspace.SearchSpace, req Request) (*frame.Records, error) {
	rec, labels, err := selectCandidates(space, r.pickDiscrete, req)
	if err != nil {
		return nil, err
	}

	samples, err := space.Continuous().SamplesRandom(rec.Len(), r.rng)
	if err != nil {
		return nil, err
	}
	samples, err = samples.WithIndex(rec.Index())
	if err != nil {
		return nil, err
	}

	cont, err := numericToRecords(samples)
	if err != nil {
		return nil, err
	}

	out, err := frame.ConcatRecordColumns(rec, cont)
	if err != nil {
		return nil, err
	}

	if err := space.Discrete().Metadata().MarkRecommended(labels); err != nil {
		return nil, err
	}

	return out, nil
}

func init() {
	Register(RandomType, func(params map[string]any) (Recommender, error) {
		seed := time.Now().UnixNano()
		if v, ok := params["seed"]; ok {
			s, ok := toInt64(v)
			if !ok {
				return nil, errors.New(errors.Validation, "recommender seed must be an integer, got %T", v)
			}
			seed = s
		}
		return NewRandom(seed), nil
	})
}

// toInt64 accepts the integer shapes produced by YAML and JSON decoding.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
