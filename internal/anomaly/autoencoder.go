package anomaly

import (
	"math"
	"math/rand"
)

// DefaultThreshold is the reconstruction error above which a reading is
// classified anomalous. Fixed, not adaptive.
const DefaultThreshold = 0.05

// Autoencoder is a symmetric reconstruction model: inputDim inputs are
// encoded to a smaller latent code (ReLU) and decoded back (sigmoid).
// Inputs must be normalized before encoding; the sigmoid decode stage
// only reaches the 0-1 range.
type Autoencoder struct {
	inputDim  int
	latentDim int
	epochs    int
	batchSize int
	learnRate float64
	threshold float64
	rng       *rand.Rand

	// Learned weights. encW is latentDim x inputDim, decW is
	// inputDim x latentDim. Immutable after Fit.
	encW [][]float64
	encB []float64
	decW [][]float64
	decB []float64

	trained bool
}

// Option configures an Autoencoder.
type Option func(*Autoencoder)

// WithEpochs sets the number of training passes over the corpus.
func WithEpochs(n int) Option {
	return func(a *Autoencoder) { a.epochs = n }
}

// WithBatchSize sets the mini-batch size.
func WithBatchSize(n int) Option {
	return func(a *Autoencoder) { a.batchSize = n }
}

// WithLearningRate sets the Adam step size.
func WithLearningRate(lr float64) Option {
	return func(a *Autoencoder) { a.learnRate = lr }
}

// WithThreshold sets the anomaly classification threshold.
func WithThreshold(t float64) Option {
	return func(a *Autoencoder) { a.threshold = t }
}

// WithSeed seeds weight initialization and batch shuffling for
// reproducible training runs.
func WithSeed(seed int64) Option {
	return func(a *Autoencoder) { a.rng = rand.New(rand.NewSource(seed)) }
}

// New creates an untrained Autoencoder with the given options.
func New(inputDim, latentDim int, opts ...Option) *Autoencoder {
	a := &Autoencoder{
		inputDim:  inputDim,
		latentDim: latentDim,
		epochs:    20,
		batchSize: 32,
		learnRate: 0.01,
		threshold: DefaultThreshold,
		rng:       rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Threshold returns the configured classification threshold.
func (a *Autoencoder) Threshold() float64 { return a.threshold }

// Trained reports whether Fit has completed.
func (a *Autoencoder) Trained() bool { return a.trained }

// Fit trains the autoencoder to reconstruct the rows of matrix,
// minimizing mean squared reconstruction error with Adam over shuffled
// mini-batches. Rows must already be normalized.
func (a *Autoencoder) Fit(matrix [][]float64) error {
	if len(matrix) == 0 {
		return ErrInsufficientData
	}

	a.initWeights()
	opt := newAdam(a.learnRate, a.paramCount())

	indices := make([]int, len(matrix))
	for i := range indices {
		indices[i] = i
	}

	for epoch := 0; epoch < a.epochs; epoch++ {
		a.rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		for start := 0; start < len(indices); start += a.batchSize {
			end := start + a.batchSize
			if end > len(indices) {
				end = len(indices)
			}
			a.trainBatch(matrix, indices[start:end], opt)
		}
	}

	a.trained = true
	return nil
}

// Score returns the mean squared difference between vec and its
// reconstruction.
func (a *Autoencoder) Score(vec []float64) float64 {
	recon := a.reconstruct(vec)
	var sum float64
	for i, v := range vec {
		d := v - recon[i]
		sum += d * d
	}
	return sum / float64(len(vec))
}

// Classify reports whether vec's reconstruction error exceeds the
// threshold, along with the error itself.
func (a *Autoencoder) Classify(vec []float64) (bool, float64) {
	score := a.Score(vec)
	return score > a.threshold, score
}

func (a *Autoencoder) initWeights() {
	// Glorot uniform, matching the usual dense-layer default.
	limitEnc := math.Sqrt(6.0 / float64(a.inputDim+a.latentDim))
	limitDec := math.Sqrt(6.0 / float64(a.latentDim+a.inputDim))

	a.encW = make([][]float64, a.latentDim)
	for i := range a.encW {
		a.encW[i] = make([]float64, a.inputDim)
		for j := range a.encW[i] {
			a.encW[i][j] = (a.rng.Float64()*2 - 1) * limitEnc
		}
	}
	a.encB = make([]float64, a.latentDim)

	a.decW = make([][]float64, a.inputDim)
	for i := range a.decW {
		a.decW[i] = make([]float64, a.latentDim)
		for j := range a.decW[i] {
			a.decW[i][j] = (a.rng.Float64()*2 - 1) * limitDec
		}
	}
	a.decB = make([]float64, a.inputDim)
}

func (a *Autoencoder) paramCount() int {
	return a.latentDim*a.inputDim + a.latentDim + a.inputDim*a.latentDim + a.inputDim
}

// encode applies the ReLU hidden layer. Returns both pre-activation and
// activation for backprop.
func (a *Autoencoder) encode(vec []float64) (pre, act []float64) {
	pre = make([]float64, a.latentDim)
	act = make([]float64, a.latentDim)
	for i := 0; i < a.latentDim; i++ {
		s := a.encB[i]
		for j, v := range vec {
			s += a.encW[i][j] * v
		}
		pre[i] = s
		if s > 0 {
			act[i] = s
		}
	}
	return pre, act
}

// decode applies the sigmoid output layer to a latent code.
func (a *Autoencoder) decode(code []float64) []float64 {
	out := make([]float64, a.inputDim)
	for i := 0; i < a.inputDim; i++ {
		s := a.decB[i]
		for j, v := range code {
			s += a.decW[i][j] * v
		}
		out[i] = sigmoid(s)
	}
	return out
}

func (a *Autoencoder) reconstruct(vec []float64) []float64 {
	_, code := a.encode(vec)
	return a.decode(code)
}

// trainBatch accumulates gradients of the mean squared reconstruction
// error over one mini-batch and applies a single Adam step.
func (a *Autoencoder) trainBatch(matrix [][]float64, batch []int, opt *adam) {
	gEncW := make([][]float64, a.latentDim)
	for i := range gEncW {
		gEncW[i] = make([]float64, a.inputDim)
	}
	gEncB := make([]float64, a.latentDim)
	gDecW := make([][]float64, a.inputDim)
	for i := range gDecW {
		gDecW[i] = make([]float64, a.latentDim)
	}
	gDecB := make([]float64, a.inputDim)

	scale := 1.0 / float64(len(batch))
	for _, idx := range batch {
		x := matrix[idx]
		hPre, h := a.encode(x)
		y := a.decode(h)

		// dLoss/dPreOut for MSE through sigmoid.
		dOut := make([]float64, a.inputDim)
		for i := 0; i < a.inputDim; i++ {
			dLdy := 2.0 * (y[i] - x[i]) / float64(a.inputDim)
			dOut[i] = dLdy * y[i] * (1.0 - y[i])
		}

		dHidden := make([]float64, a.latentDim)
		for i := 0; i < a.inputDim; i++ {
			for j := 0; j < a.latentDim; j++ {
				gDecW[i][j] += scale * dOut[i] * h[j]
				dHidden[j] += dOut[i] * a.decW[i][j]
			}
			gDecB[i] += scale * dOut[i]
		}

		for j := 0; j < a.latentDim; j++ {
			if hPre[j] <= 0 {
				continue
			}
			for k := 0; k < a.inputDim; k++ {
				gEncW[j][k] += scale * dHidden[j] * x[k]
			}
			gEncB[j] += scale * dHidden[j]
		}
	}

	// Flatten parameters and gradients in a stable order for Adam.
	p := 0
	step := func(param *float64, grad float64) {
		*param = opt.update(p, *param, grad)
		p++
	}
	for i := range a.encW {
		for j := range a.encW[i] {
			step(&a.encW[i][j], gEncW[i][j])
		}
	}
	for i := range a.encB {
		step(&a.encB[i], gEncB[i])
	}
	for i := range a.decW {
		for j := range a.decW[i] {
			step(&a.decW[i][j], gDecW[i][j])
		}
	}
	for i := range a.decB {
		step(&a.decB[i], gDecB[i])
	}
	opt.advance()
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// adam is a per-parameter Adam optimizer with the usual defaults for
// the moment decay rates.
type adam struct {
	lr      float64
	beta1   float64
	beta2   float64
	epsilon float64
	t       int
	m       []float64
	v       []float64
}

func newAdam(lr float64, params int) *adam {
	return &adam{
		lr:      lr,
		beta1:   0.9,
		beta2:   0.999,
		epsilon: 1e-8,
		t:       1,
		m:       make([]float64, params),
		v:       make([]float64, params),
	}
}

func (o *adam) update(i int, param, grad float64) float64 {
	o.m[i] = o.beta1*o.m[i] + (1-o.beta1)*grad
	o.v[i] = o.beta2*o.v[i] + (1-o.beta2)*grad*grad
	mHat := o.m[i] / (1 - math.Pow(o.beta1, float64(o.t)))
	vHat := o.v[i] / (1 - math.Pow(o.beta2, float64(o.t)))
	return param - o.lr*mHat/(math.Sqrt(vHat)+o.epsilon)
}

func (o *adam) advance() { o.t++ }
