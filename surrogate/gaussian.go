package surrogate

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/thalesfsp/bed/errors"
	"github.com/thalesfsp/bed/scaling"
)

//////
// Gaussian Process surrogate.
//////

// GaussianProcess is an exact Gaussian Process regression model with an
// RBF kernel. It is the default surrogate ("GP").
//
// Fitting factorizes the kernel matrix once (Cholesky); moment estimation
// then costs one triangular solve per candidate. All state is protected by
// an RWMutex so read-only moment queries may run concurrently after
// fitting.
type GaussianProcess struct {
	mu sync.RWMutex

	// sigma is the RBF kernel width. Larger values give smoother
	// interpolation; the default of 1.0 suits normalized inputs.
	sigma float64

	// noise is the jitter added to the kernel diagonal.
	noise float64

	// scaler optionally rescales inputs before fitting and evaluation.
	scaler *scaling.ColumnTransformer

	trainX *mat.Dense
	chol   *mat.Cholesky
	alpha  *mat.VecDense
	meanY  float64
	fitted bool
}

// GaussianProcessOption adjusts a GaussianProcess at construction.
type GaussianProcessOption func(*GaussianProcess)

// WithKernelWidth sets the RBF kernel width.
func WithKernelWidth(sigma float64) GaussianProcessOption {
	return func(gp *GaussianProcess) { gp.sigma = sigma }
}

// WithNoise sets the diagonal jitter.
func WithNoise(noise float64) GaussianProcessOption {
	return func(gp *GaussianProcess) { gp.noise = noise }
}

// WithInputScaling rescales inputs through the given column transformer
// before fitting and evaluation.
func WithInputScaling(ct *scaling.ColumnTransformer) GaussianProcessOption {
	return func(gp *GaussianProcess) { gp.scaler = ct }
}

// NewGaussianProcess creates an unfitted GP surrogate.
func NewGaussianProcess(opts ...GaussianProcessOption) *GaussianProcess {
	gp := &GaussianProcess{
		sigma: 1.0,
		noise: 1e-6,
	}
	for _, opt := range opts {
		opt(gp)
	}
	return gp
}

// Capabilities reports a full-covariance, single-task model.
func (gp *GaussianProcess) Capabilities() Capabilities {
	return Capabilities{JointPosterior: true, SupportsTransferLearning: false}
}

// rbf is the Radial Basis Function kernel:
//
//	k(x1, x2) = exp(-sum((x1 - x2)^2) / (2 * sigma^2))
//
// It returns 1.0 for identical points and decays toward 0 with distance.
func (gp *GaussianProcess) rbf(x1, x2 []float64) float64 {
	var sum float64
	for i := range x1 {
		diff := x1[i] - x2[i]
		sum += diff * diff
	}
	return math.Exp(-sum / (2 * gp.sigma * gp.sigma))
}

// Fit trains the model on the given tensors, replacing any previous state.
func (gp *GaussianProcess) Fit(trainX *mat.Dense, trainY *mat.VecDense) error {
	n, _ := trainX.Dims()
	if n == 0 {
		return errors.New(errors.Validation, "GaussianProcess needs at least one training point")
	}
	if trainY.Len() != n {
		return errors.New(errors.Validation,
			"GaussianProcess got %d training inputs but %d targets", n, trainY.Len())
	}

	gp.mu.Lock()
	defer gp.mu.Unlock()

	x := mat.DenseCopyOf(trainX)
	if gp.scaler != nil {
		gp.scaler.Fit(x)
		x = gp.scaler.Transform(x)
	}

	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, x)
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += trainY.AtVec(i)
	}
	meanY := sum / float64(n)

	centered := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		centered.SetVec(i, trainY.AtVec(i)-meanY)
	}

	kernel := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := gp.rbf(rows[i], rows[j])
			if i == j {
				v += gp.noise
			}
			kernel.SetSym(i, j, v)
		}
	}

	// Retry the factorization with growing jitter before giving up; near
	// duplicate training points make the kernel matrix rank deficient.
	chol := &mat.Cholesky{}
	jitter := gp.noise
	for try := 0; ; try++ {
		if chol.Factorize(kernel) {
			break
		}
		if try == 3 {
			return errors.New(errors.Validation,
				"GaussianProcess kernel matrix is not positive definite")
		}
		jitter *= 100
		for i := 0; i < n; i++ {
			kernel.SetSym(i, i, kernel.At(i, i)+jitter)
		}
	}

	alpha := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(alpha, centered); err != nil {
		return errors.Wrap(err, errors.Validation, "GaussianProcess kernel solve failed")
	}

	gp.trainX = x
	gp.chol = chol
	gp.alpha = alpha
	gp.meanY = meanY
	gp.fitted = true

	return nil
}

// EstimateMoments returns the posterior mean and variance for every
// candidate row.
func (gp *GaussianProcess) EstimateMoments(candidates mat.Matrix) (mean, variance []float64, err error) {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	if !gp.fitted {
		return nil, nil, errors.New(errors.Validation,
			"GaussianProcess must be fitted before estimating moments")
	}

	c := mat.DenseCopyOf(candidates)
	if gp.scaler != nil {
		c = gp.scaler.Transform(c)
	}

	m, _ := c.Dims()
	n, _ := gp.trainX.Dims()

	mean = make([]float64, m)
	variance = make([]float64, m)

	k := mat.NewVecDense(n, nil)
	v := mat.NewVecDense(n, nil)

	for i := 0; i < m; i++ {
		point := mat.Row(nil, i, c)

		for j := 0; j < n; j++ {
			k.SetVec(j, gp.rbf(point, mat.Row(nil, j, gp.trainX)))
		}

		mean[i] = gp.meanY + mat.Dot(k, gp.alpha)

		if err := gp.chol.SolveVecTo(v, k); err != nil {
			return nil, nil, errors.Wrap(err, errors.Validation,
				"GaussianProcess kernel solve failed")
		}

		// Prior variance at any point is k(x, x) = 1 plus the noise term.
		variance[i] = math.Max(1.0+gp.noise-mat.Dot(k, v), 0)
	}

	return mean, variance, nil
}

func init() {
	Register("GP", func() Model { return NewGaussianProcess() })
}
