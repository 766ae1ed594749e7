package activity

import (
	"math"
	"math/rand"
)

// Model hyperparameters required by the classifier design: two same-padded
// convolutions, global average pooling, one hidden dense layer with
// dropout, softmax output. Optimized with Adam.
const (
	conv1Filters = 16
	conv1Kernel  = 5
	conv2Filters = 32
	conv2Kernel  = 3
	poolSize     = 2
	hiddenUnits  = 64
	dropoutRate  = 0.3

	learningRate = 0.001
	adamBeta1    = 0.9
	adamBeta2    = 0.999
	adamEpsilon  = 1e-8
)

// param is one trainable tensor with its gradient accumulator and Adam
// moment estimates.
type param struct {
	w, grad, m, v []float64
}

func newParam(n int) *param {
	return &param{
		w:    make([]float64, n),
		grad: make([]float64, n),
		m:    make([]float64, n),
		v:    make([]float64, n),
	}
}

// glorotInit fills w uniformly in [-limit, limit] with
// limit = sqrt(6 / (fanIn + fanOut)).
func (p *param) glorotInit(fanIn, fanOut int, rng *rand.Rand) {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	for i := range p.w {
		p.w[i] = (rng.Float64()*2 - 1) * limit
	}
}

func (p *param) zeroGrad() {
	for i := range p.grad {
		p.grad[i] = 0
	}
}

// adamStep applies one Adam update with bias correction at step t.
func (p *param) adamStep(t int, scale float64) {
	c1 := 1 - math.Pow(adamBeta1, float64(t))
	c2 := 1 - math.Pow(adamBeta2, float64(t))
	for i := range p.w {
		g := p.grad[i] * scale
		p.m[i] = adamBeta1*p.m[i] + (1-adamBeta1)*g
		p.v[i] = adamBeta2*p.v[i] + (1-adamBeta2)*g*g
		mHat := p.m[i] / c1
		vHat := p.v[i] / c2
		p.w[i] -= learningRate * mHat / (math.Sqrt(vHat) + adamEpsilon)
	}
}

// Model is the 1-D convolutional sequence classifier:
//
//	conv1d(16, k5, same, relu) -> maxpool(2) ->
//	conv1d(32, k3, same, relu) -> global avg pool ->
//	dense(64, relu) -> dropout(0.3, train only) -> dense(C, softmax)
//
// Exclusively owned by the training/classification subsystem; replaced
// wholesale on retrain, never updated incrementally, never persisted.
type Model struct {
	windowSize int
	classes    int

	convW1, convB1 *param // [16][1][5], [16]
	convW2, convB2 *param // [32][16][3], [32]
	fcW1, fcB1     *param // [64][32], [64]
	fcW2, fcB2     *param // [C][64], [C]

	step int
	rng  *rand.Rand
}

// NewModel builds an untrained model for the given input length and class
// count.
func NewModel(windowSize, classes int, seed int64) *Model {
	rng := rand.New(rand.NewSource(seed))

	m := &Model{
		windowSize: windowSize,
		classes:    classes,
		convW1:     newParam(conv1Filters * 1 * conv1Kernel),
		convB1:     newParam(conv1Filters),
		convW2:     newParam(conv2Filters * conv1Filters * conv2Kernel),
		convB2:     newParam(conv2Filters),
		fcW1:       newParam(hiddenUnits * conv2Filters),
		fcB1:       newParam(hiddenUnits),
		fcW2:       newParam(classes * hiddenUnits),
		fcB2:       newParam(classes),
		rng:        rng,
	}

	m.convW1.glorotInit(1*conv1Kernel, conv1Filters*conv1Kernel, rng)
	m.convW2.glorotInit(conv1Filters*conv2Kernel, conv2Filters*conv2Kernel, rng)
	m.fcW1.glorotInit(conv2Filters, hiddenUnits, rng)
	m.fcW2.glorotInit(hiddenUnits, classes, rng)
	return m
}

// WindowSize returns the input length the model was built for.
func (m *Model) WindowSize() int { return m.windowSize }

// Classes returns the number of output classes.
func (m *Model) Classes() int { return m.classes }

// forwardState holds the per-sample activations needed by backprop. It
// lives only for the duration of one training step.
type forwardState struct {
	input []float64

	z1      [][]float64 // [16][L] pre-relu
	a1      [][]float64 // [16][L] post-relu
	pooled  [][]float64 // [16][L/2]
	poolIdx [][]int     // argmax positions into a1

	z2  [][]float64 // [32][L/2] pre-relu
	a2  [][]float64 // [32][L/2] post-relu
	gap []float64   // [32]

	z3       []float64 // [64] pre-relu
	a3       []float64 // [64] post-relu, post-dropout
	dropMask []float64 // inverted-dropout scale per unit

	probs []float64 // [C]
}

// forward runs the network. With training=true, dropout is applied using
// an inverted mask so inference needs no rescaling.
func (m *Model) forward(window []float64, training bool) *forwardState {
	L := len(window)
	st := &forwardState{input: window}

	// conv1: 1 input channel
	pad1 := conv1Kernel / 2
	st.z1 = make([][]float64, conv1Filters)
	st.a1 = make([][]float64, conv1Filters)
	for o := 0; o < conv1Filters; o++ {
		z := make([]float64, L)
		a := make([]float64, L)
		wOff := o * conv1Kernel
		for t := 0; t < L; t++ {
			sum := m.convB1.w[o]
			for j := 0; j < conv1Kernel; j++ {
				src := t + j - pad1
				if src >= 0 && src < L {
					sum += m.convW1.w[wOff+j] * window[src]
				}
			}
			z[t] = sum
			if sum > 0 {
				a[t] = sum
			}
		}
		st.z1[o] = z
		st.a1[o] = a
	}

	// maxpool(2)
	Lp := L / poolSize
	st.pooled = make([][]float64, conv1Filters)
	st.poolIdx = make([][]int, conv1Filters)
	for c := 0; c < conv1Filters; c++ {
		p := make([]float64, Lp)
		idx := make([]int, Lp)
		for t := 0; t < Lp; t++ {
			i0 := t * poolSize
			best, bestIdx := st.a1[c][i0], i0
			for k := 1; k < poolSize; k++ {
				if st.a1[c][i0+k] > best {
					best, bestIdx = st.a1[c][i0+k], i0+k
				}
			}
			p[t] = best
			idx[t] = bestIdx
		}
		st.pooled[c] = p
		st.poolIdx[c] = idx
	}

	// conv2 over 16 channels
	pad2 := conv2Kernel / 2
	st.z2 = make([][]float64, conv2Filters)
	st.a2 = make([][]float64, conv2Filters)
	for o := 0; o < conv2Filters; o++ {
		z := make([]float64, Lp)
		a := make([]float64, Lp)
		for t := 0; t < Lp; t++ {
			sum := m.convB2.w[o]
			for i := 0; i < conv1Filters; i++ {
				wOff := (o*conv1Filters + i) * conv2Kernel
				for j := 0; j < conv2Kernel; j++ {
					src := t + j - pad2
					if src >= 0 && src < Lp {
						sum += m.convW2.w[wOff+j] * st.pooled[i][src]
					}
				}
			}
			z[t] = sum
			if sum > 0 {
				a[t] = sum
			}
		}
		st.z2[o] = z
		st.a2[o] = a
	}

	// global average pool
	st.gap = make([]float64, conv2Filters)
	for c := 0; c < conv2Filters; c++ {
		sum := 0.0
		for t := 0; t < Lp; t++ {
			sum += st.a2[c][t]
		}
		st.gap[c] = sum / float64(Lp)
	}

	// dense(64, relu) + dropout
	st.z3 = make([]float64, hiddenUnits)
	st.a3 = make([]float64, hiddenUnits)
	st.dropMask = make([]float64, hiddenUnits)
	keep := 1 - dropoutRate
	for o := 0; o < hiddenUnits; o++ {
		sum := m.fcB1.w[o]
		wOff := o * conv2Filters
		for i := 0; i < conv2Filters; i++ {
			sum += m.fcW1.w[wOff+i] * st.gap[i]
		}
		st.z3[o] = sum

		act := 0.0
		if sum > 0 {
			act = sum
		}
		scale := 1.0
		if training {
			if m.rng.Float64() < dropoutRate {
				scale = 0
			} else {
				scale = 1 / keep
			}
		}
		st.dropMask[o] = scale
		st.a3[o] = act * scale
	}

	// dense(C) + softmax
	logits := make([]float64, m.classes)
	maxLogit := math.Inf(-1)
	for o := 0; o < m.classes; o++ {
		sum := m.fcB2.w[o]
		wOff := o * hiddenUnits
		for i := 0; i < hiddenUnits; i++ {
			sum += m.fcW2.w[wOff+i] * st.a3[i]
		}
		logits[o] = sum
		if sum > maxLogit {
			maxLogit = sum
		}
	}
	st.probs = make([]float64, m.classes)
	denom := 0.0
	for o := range logits {
		st.probs[o] = math.Exp(logits[o] - maxLogit)
		denom += st.probs[o]
	}
	for o := range st.probs {
		st.probs[o] /= denom
	}

	return st
}

// backward accumulates gradients for one sample given its forward state
// and true label.
func (m *Model) backward(st *forwardState, label int) {
	L := len(st.input)
	Lp := L / poolSize

	// softmax + categorical cross-entropy
	dLogits := make([]float64, m.classes)
	copy(dLogits, st.probs)
	dLogits[label] -= 1

	// dense(C)
	dA3 := make([]float64, hiddenUnits)
	for o := 0; o < m.classes; o++ {
		wOff := o * hiddenUnits
		m.fcB2.grad[o] += dLogits[o]
		for i := 0; i < hiddenUnits; i++ {
			m.fcW2.grad[wOff+i] += dLogits[o] * st.a3[i]
			dA3[i] += m.fcW2.w[wOff+i] * dLogits[o]
		}
	}

	// dropout + relu
	dZ3 := make([]float64, hiddenUnits)
	for i := 0; i < hiddenUnits; i++ {
		d := dA3[i] * st.dropMask[i]
		if st.z3[i] > 0 {
			dZ3[i] = d
		}
	}

	// dense(64)
	dGap := make([]float64, conv2Filters)
	for o := 0; o < hiddenUnits; o++ {
		wOff := o * conv2Filters
		m.fcB1.grad[o] += dZ3[o]
		for i := 0; i < conv2Filters; i++ {
			m.fcW1.grad[wOff+i] += dZ3[o] * st.gap[i]
			dGap[i] += m.fcW1.w[wOff+i] * dZ3[o]
		}
	}

	// global average pool spreads the gradient evenly
	dZ2 := make([][]float64, conv2Filters)
	for c := 0; c < conv2Filters; c++ {
		dZ2[c] = make([]float64, Lp)
		share := dGap[c] / float64(Lp)
		for t := 0; t < Lp; t++ {
			if st.z2[c][t] > 0 {
				dZ2[c][t] = share
			}
		}
	}

	// conv2
	pad2 := conv2Kernel / 2
	dPooled := make([][]float64, conv1Filters)
	for c := range dPooled {
		dPooled[c] = make([]float64, Lp)
	}
	for o := 0; o < conv2Filters; o++ {
		for t := 0; t < Lp; t++ {
			d := dZ2[o][t]
			if d == 0 {
				continue
			}
			m.convB2.grad[o] += d
			for i := 0; i < conv1Filters; i++ {
				wOff := (o*conv1Filters + i) * conv2Kernel
				for j := 0; j < conv2Kernel; j++ {
					src := t + j - pad2
					if src >= 0 && src < Lp {
						m.convW2.grad[wOff+j] += d * st.pooled[i][src]
						dPooled[i][src] += m.convW2.w[wOff+j] * d
					}
				}
			}
		}
	}

	// maxpool routes the gradient to the argmax position
	dZ1 := make([][]float64, conv1Filters)
	for c := 0; c < conv1Filters; c++ {
		dZ1[c] = make([]float64, L)
		for t := 0; t < Lp; t++ {
			src := st.poolIdx[c][t]
			if st.z1[c][src] > 0 {
				dZ1[c][src] += dPooled[c][t]
			}
		}
	}

	// conv1
	pad1 := conv1Kernel / 2
	for o := 0; o < conv1Filters; o++ {
		wOff := o * conv1Kernel
		for t := 0; t < L; t++ {
			d := dZ1[o][t]
			if d == 0 {
				continue
			}
			m.convB1.grad[o] += d
			for j := 0; j < conv1Kernel; j++ {
				src := t + j - pad1
				if src >= 0 && src < L {
					m.convW1.grad[wOff+j] += d * st.input[src]
				}
			}
		}
	}
}

// TrainExample is one normalized window tagged with its class index.
type TrainExample struct {
	Window []float64
	Label  int
}

// TrainBatch runs forward/backward over the batch and applies one Adam
// update. Returns the mean cross-entropy loss and accuracy of the batch.
func (m *Model) TrainBatch(batch []TrainExample) (loss, accuracy float64) {
	params := []*param{m.convW1, m.convB1, m.convW2, m.convB2, m.fcW1, m.fcB1, m.fcW2, m.fcB2}
	for _, p := range params {
		p.zeroGrad()
	}

	correct := 0
	for _, ex := range batch {
		st := m.forward(ex.Window, true)
		p := st.probs[ex.Label]
		if p < 1e-12 {
			p = 1e-12
		}
		loss += -math.Log(p)
		if argmax(st.probs) == ex.Label {
			correct++
		}
		m.backward(st, ex.Label)
	}

	n := float64(len(batch))
	m.step++
	for _, p := range params {
		p.adamStep(m.step, 1/n)
	}

	return loss / n, float64(correct) / n
}

// Evaluate computes loss and accuracy without touching the weights or
// applying dropout.
func (m *Model) Evaluate(examples []TrainExample) (loss, accuracy float64) {
	if len(examples) == 0 {
		return 0, 0
	}
	correct := 0
	for _, ex := range examples {
		st := m.forward(ex.Window, false)
		p := st.probs[ex.Label]
		if p < 1e-12 {
			p = 1e-12
		}
		loss += -math.Log(p)
		if argmax(st.probs) == ex.Label {
			correct++
		}
	}
	n := float64(len(examples))
	return loss / n, float64(correct) / n
}

// Predict returns the per-class probabilities for a normalized window.
func (m *Model) Predict(window []float64) []float64 {
	st := m.forward(window, false)
	out := make([]float64, len(st.probs))
	copy(out, st.probs)
	return out
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
