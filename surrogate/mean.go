package surrogate

import (
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/thalesfsp/bed/errors"
)

// MeanPrediction is a trivial surrogate ("MP"): it predicts the average of
// the training targets for every candidate, with unit variance. It is a
// data-independent uncertainty baseline against which richer models are
// compared.
type MeanPrediction struct {
	mu     sync.RWMutex
	mean   float64
	fitted bool
}

// NewMeanPrediction creates an unfitted mean-prediction surrogate.
func NewMeanPrediction() *MeanPrediction { return &MeanPrediction{} }

// Capabilities reports a marginal-only, single-task model.
func (mp *MeanPrediction) Capabilities() Capabilities {
	return Capabilities{JointPosterior: false, SupportsTransferLearning: false}
}

// Fit stores the scalar mean of the training targets.
func (mp *MeanPrediction) Fit(trainX *mat.Dense, trainY *mat.VecDense) error {
	n := trainY.Len()
	if n == 0 {
		return errors.New(errors.Validation, "MeanPrediction needs at least one training target")
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += trainY.AtVec(i)
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.mean = sum / float64(n)
	mp.fitted = true

	return nil
}

// EstimateMoments returns the stored mean and unit variance for every
// candidate row.
func (mp *MeanPrediction) EstimateMoments(candidates mat.Matrix) (mean, variance []float64, err error) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	if !mp.fitted {
		return nil, nil, errors.New(errors.Validation,
			"MeanPrediction must be fitted before estimating moments")
	}

	n, _ := candidates.Dims()
	mean = make([]float64, n)
	variance = make([]float64, n)

	for i := range mean {
		mean[i] = mp.mean
		variance[i] = 1.0
	}

	return mean, variance, nil
}

func init() {
	Register("MP", func() Model { return NewMeanPrediction() })
}
