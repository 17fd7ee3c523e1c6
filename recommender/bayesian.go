package recommender

import (
	"log/slog"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/thalesfsp/bed/acquisition"
	"github.com/thalesfsp/bed/errors"
	"github.com/thalesfsp/bed/frame"
	"github.com/thalesfsp/bed/searchspace"
	"github.com/thalesfsp/bed/surrogate"
)

//////
// Bayesian (predictive) recommenders.
//////

// SequentialGreedy is the default Bayesian recommender: it fits a
// surrogate to the observations, builds an acquisition function around the
// fitted model and the best observed value, and greedily selects the batch
// with the highest acquisition scores.
//
// Discrete spaces are optimized exactly over the filtered candidate table.
// Continuous spaces use random-candidate search within the box bounds: per
// batch slot, NumCandidates random points are scored and the best one is
// kept. Hybrid spaces attach one random continuous completion to each
// discrete candidate and score the joint rows.
type SequentialGreedy struct {
	// SurrogateKey selects the surrogate model from the registry.
	surrogateKey string

	// AcquisitionKey selects the acquisition function by abbreviation.
	acquisitionKey string

	// numCandidates is the random-search width for continuous parts.
	numCandidates int

	rng *rand.Rand
}

// SequentialGreedyType is the registry discriminator of SequentialGreedy.
const SequentialGreedyType = "SEQUENTIAL_GREEDY"

const defaultNumCandidates = 50

// SequentialGreedyOption adjusts a SequentialGreedy at construction.
type SequentialGreedyOption func(*SequentialGreedy)

// WithSurrogate selects the surrogate model registry key (default "GP").
func WithSurrogate(key string) SequentialGreedyOption {
	return func(s *SequentialGreedy) { s.surrogateKey = key }
}

// WithAcquisitionFunction selects the acquisition function abbreviation
// (default "qEI").
func WithAcquisitionFunction(key string) SequentialGreedyOption {
	return func(s *SequentialGreedy) { s.acquisitionKey = key }
}

// WithNumCandidates sets the random-search width for continuous parts.
func WithNumCandidates(n int) SequentialGreedyOption {
	return func(s *SequentialGreedy) { s.numCandidates = n }
}

// WithSeed seeds the recommender's random number generator.
func WithSeed(seed int64) SequentialGreedyOption {
	return func(s *SequentialGreedy) { s.rng = rand.New(rand.NewSource(seed)) }
}

// NewSequentialGreedy creates a Bayesian recommender with the default
// surrogate ("GP") and acquisition function ("qEI").
func NewSequentialGreedy(opts ...SequentialGreedyOption) *SequentialGreedy {
	s := &SequentialGreedy{
		surrogateKey:   "GP",
		acquisitionKey: "qEI",
		numCandidates:  defaultNumCandidates,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recommend fits a fresh surrogate to the observations and returns the
// batch maximizing the acquisition score for the search space.
func (s *SequentialGreedy) Recommend(space *searchspace.SearchSpace, trainX, trainY *frame.Numeric, req Request) (*frame.Records, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	// ToTensor also validates that both tables share their row index.
	features, targets, err := frame.ToTensor(trainX, trainY)
	if err != nil {
		return nil, err
	}

	model, err := surrogate.New(s.surrogateKey)
	if err != nil {
		return nil, err
	}
	if err := model.Fit(features, targets); err != nil {
		return nil, err
	}

	bestF := math.Inf(-1)
	for i := 0; i < targets.Len(); i++ {
		if v := targets.AtVec(i); v > bestF {
			bestF = v
		}
	}

	acqf, err := acquisition.New(s.acquisitionKey, model, bestF,
		acquisition.WithBaseline(features),
		acquisition.WithMCParams(acquisition.MCParams{Samples: 256, Seed: s.rng.Int63()}),
	)
	if err != nil {
		return nil, err
	}

	slog.Debug("surrogate fitted",
		"recommender", SequentialGreedyType,
		"surrogate", s.surrogateKey,
		"acquisition", acqf.Abbreviation(),
		"observations", targets.Len(),
		"best_f", bestF,
	)

	switch space.Type() {
	case searchspace.TypeDiscrete:
		rec, err := selectAndRecommend(space, s.discretePick(acqf), req)
		if err != nil {
			return nil, err
		}
		recommendationsTotal.WithLabelValues(SequentialGreedyType).Inc()
		return rec, nil

	case searchspace.TypeContinuous:
		rec, err := s.recommendContinuous(acqf, space, req.BatchQuantity)
		if err != nil {
			return nil, err
		}
		recommendationsTotal.WithLabelValues(SequentialGreedyType).Inc()
		return rec, nil

	case searchspace.TypeHybrid:
		rec, err := s.recommendHybrid(acqf, space, req)
		if err != nil {
			return nil, err
		}
		recommendationsTotal.WithLabelValues(SequentialGreedyType).Inc()
		return rec, nil
	}

	return nil, errors.New(errors.NotImplemented,
		"recommender %q does not handle %s search spaces", SequentialGreedyType, space.Type())
}

// discretePick returns the greedy top-k selection over the filtered
// candidate table.
func (s *SequentialGreedy) discretePick(acqf acquisition.AcquisitionFunction) pickFunc {
	return func(_ *searchspace.SearchSpace, candidates *frame.Numeric, batchQuantity int) ([]int, error) {
		scores, err := acqf.Evaluate(candidates.Data())
		if err != nil {
			return nil, err
		}

		order := argsortDesc(scores)

		labels := make([]int, batchQuantity)
		for i := 0; i < batchQuantity; i++ {
			labels[i] = candidates.Index()[order[i]]
		}

		return labels, nil
	}
}

// recommendContinuous fills each batch slot by scoring numCandidates
// random points within the box bounds and keeping the most promising one.
func (s *SequentialGreedy) recommendContinuous(acqf acquisition.AcquisitionFunction, space *searchspace.SearchSpace, batchQuantity int) (*frame.Records, error) {
	cont := space.Continuous()

	chosen := make([][]float64, 0, batchQuantity)
	for len(chosen) < batchQuantity {
		pool, err := cont.SamplesRandom(s.numCandidates, s.rng)
		if err != nil {
			return nil, err
		}

		scores, err := acqf.Evaluate(pool.Data())
		if err != nil {
			return nil, err
		}

		best := argsortDesc(scores)[0]
		chosen = append(chosen, pool.Row(best))
	}

	params := cont.Parameters()
	cols := make([]string, len(params))
	for i, p := range params {
		cols[i] = p.Name
	}

	data := mat.NewDense(batchQuantity, len(cols), nil)
	for i, row := range chosen {
		data.SetRow(i, row)
	}

	points, err := frame.NewNumeric(cols, data)
	if err != nil {
		return nil, err
	}

	return numericToRecords(points)
}

// recommendHybrid attaches one random continuous completion to every
// discrete candidate, scores the joint rows, and returns the top batch.
// The exclusion flags are relaxed by the shared selection helper since a
// continuous part is present.
func (s *SequentialGreedy) recommendHybrid(acqf acquisition.AcquisitionFunction, space *searchspace.SearchSpace, req Request) (*frame.Records, error) {
	var completions *frame.Numeric

	pick := func(_ *searchspace.SearchSpace, candidates *frame.Numeric, batchQuantity int) ([]int, error) {
		cont, err := space.Continuous().SamplesRandom(candidates.Len(), s.rng)
		if err != nil {
			return nil, err
		}
		cont, err = cont.WithIndex(candidates.Index())
		if err != nil {
			return nil, err
		}

		joint, err := frame.ConcatColumns(candidates, cont)
		if err != nil {
			return nil, err
		}

		scores, err := acqf.Evaluate(joint.Data())
		if err != nil {
			return nil, err
		}

		order := argsortDesc(scores)
		labels := make([]int, batchQuantity)
		for i := 0; i < batchQuantity; i++ {
			labels[i] = candidates.Index()[order[i]]
		}

		completions = cont

		return labels, nil
	}

	rec, labels, err := selectCandidates(space, pick, req)
	if err != nil {
		return nil, err
	}

	contRows, err := completions.Loc(labels)
	if err != nil {
		return nil, err
	}
	contRec, err := numericToRecords(contRows)
	if err != nil {
		return nil, err
	}

	out, err := frame.ConcatRecordColumns(rec, contRec)
	if err != nil {
		return nil, err
	}

	if err := space.Discrete().Metadata().MarkRecommended(labels); err != nil {
		return nil, err
	}

	return out, nil
}

func init() {
	Register(SequentialGreedyType, func(params map[string]any) (Recommender, error) {
		var opts []SequentialGreedyOption

		if v, ok := params["surrogate"]; ok {
			key, ok := v.(string)
			if !ok {
				return nil, errors.New(errors.Validation, "surrogate key must be a string, got %T", v)
			}
			opts = append(opts, WithSurrogate(key))
		}

		if v, ok := params["acquisition_function"]; ok {
			key, ok := v.(string)
			if !ok {
				return nil, errors.New(errors.Validation, "acquisition function key must be a string, got %T", v)
			}
			opts = append(opts, WithAcquisitionFunction(key))
		}

		if v, ok := params["num_candidates"]; ok {
			n, ok := toInt64(v)
			if !ok || n < 1 {
				return nil, errors.New(errors.Validation, "num_candidates must be a positive integer, got %v", v)
			}
			opts = append(opts, WithNumCandidates(int(n)))
		}

		if v, ok := params["seed"]; ok {
			seed, ok := toInt64(v)
			if !ok {
				return nil, errors.New(errors.Validation, "recommender seed must be an integer, got %T", v)
			}
			opts = append(opts, WithSeed(seed))
		}

		return NewSequentialGreedy(opts...), nil
	})
}
