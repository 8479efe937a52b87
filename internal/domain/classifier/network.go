package classifier

import (
	"math"
	"math/rand"
)

// networkConfig fixes the architecture sizes. Exported fields so the whole
// network serializes with encoding/json.
type networkConfig struct {
	VocabSize    int     `json:"vocab_size"` // embedding rows, excluding the padding row
	SeqLen       int     `json:"seq_len"`
	EmbedDim     int     `json:"embed_dim"`
	HiddenDim    int     `json:"hidden_dim"`
	Dense1Units  int     `json:"dense1_units"`
	Dense2Units  int     `json:"dense2_units"`
	LearningRate float64 `json:"learning_rate"`
	DropoutRNN   float64 `json:"dropout_rnn"`
	DropoutDense float64 `json:"dropout_dense"`
}

// network is the sequence model: embedding, bidirectional tanh recurrent
// layer, dropout, two narrowing ReLU dense blocks with interleaved dropout,
// and a single sigmoid output unit trained with binary cross-entropy under
// fixed-rate SGD.
type network struct {
	Cfg networkConfig `json:"cfg"`

	Embedding [][]float64 `json:"embedding"` // [vocab+1][embed], row 0 = padding

	WxF [][]float64 `json:"wx_f"` // forward direction [embed][hidden]
	WhF [][]float64 `json:"wh_f"` // [hidden][hidden]
	BF  []float64   `json:"b_f"`
	WxB [][]float64 `json:"wx_b"` // backward direction
	WhB [][]float64 `json:"wh_b"`
	BB  []float64   `json:"b_b"`

	W1 [][]float64 `json:"w1"` // [2*hidden][dense1]
	B1 []float64   `json:"b1"`
	W2 [][]float64 `json:"w2"` // [dense1][dense2]
	B2 []float64   `json:"b2"`

	WOut []float64 `json:"w_out"` // [dense2]
	BOut float64   `json:"b_out"`

	rng *rand.Rand
}

// newNetwork initializes all weights with small uniform noise.
func newNetwork(cfg networkConfig, seed int64) *network {
	rng := rand.New(rand.NewSource(seed))
	n := &network{Cfg: cfg, rng: rng}

	n.Embedding = randomMatrix(rng, cfg.VocabSize+1, cfg.EmbedDim, 0.1)

	n.WxF = randomMatrix(rng, cfg.EmbedDim, cfg.HiddenDim, 0.2)
	n.WhF = randomMatrix(rng, cfg.HiddenDim, cfg.HiddenDim, 0.2)
	n.BF = make([]float64, cfg.HiddenDim)
	n.WxB = randomMatrix(rng, cfg.EmbedDim, cfg.HiddenDim, 0.2)
	n.WhB = randomMatrix(rng, cfg.HiddenDim, cfg.HiddenDim, 0.2)
	n.BB = make([]float64, cfg.HiddenDim)

	n.W1 = randomMatrix(rng, 2*cfg.HiddenDim, cfg.Dense1Units, 0.2)
	n.B1 = make([]float64, cfg.Dense1Units)
	n.W2 = randomMatrix(rng, cfg.Dense1Units, cfg.Dense2Units, 0.2)
	n.B2 = make([]float64, cfg.Dense2Units)

	n.WOut = randomVector(rng, cfg.Dense2Units, 0.2)
	return n
}

func randomMatrix(rng *rand.Rand, rows, cols int, scale float64) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = randomVector(rng, cols, scale)
	}
	return m
}

func randomVector(rng *rand.Rand, n int, scale float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = (rng.Float64()*2 - 1) * scale
	}
	return v
}

// forwardCache keeps intermediate activations for backpropagation.
type forwardCache struct {
	seq      []int
	embedded [][]float64
	statesF  [][]float64 // hidden states per timestep, forward direction
	statesB  [][]float64 // backward direction, indexed by reversed position
	concat   []float64   // final hidden states joined, after dropout
	maskRNN  []float64
	a1       []float64 // post-ReLU, after dropout
	mask1    []float64
	a2       []float64 // post-ReLU
	prob     float64
}

// forward runs one sample through the network. Dropout masks are applied
// only when train is true; at inference the expectation is preserved by
// inverted dropout scaling during training.
func (n *network) forward(seq []int, train bool) *forwardCache {
	cache := &forwardCache{seq: seq}

	cache.embedded = make([][]float64, len(seq))
	for t, tok := range seq {
		if tok < 0 || tok >= len(n.Embedding) {
			tok = 0
		}
		// Copy so in-place embedding updates during backprop do not alias
		// the cached activations.
		cache.embedded[t] = append([]float64(nil), n.Embedding[tok]...)
	}

	cache.statesF = n.runRNN(cache.embedded, n.WxF, n.WhF, n.BF, false)
	cache.statesB = n.runRNN(cache.embedded, n.WxB, n.WhB, n.BB, true)

	last := len(seq) - 1
	concat := make([]float64, 2*n.Cfg.HiddenDim)
	copy(concat, cache.statesF[last])
	copy(concat[n.Cfg.HiddenDim:], cache.statesB[last])

	cache.maskRNN = n.dropoutMask(len(concat), n.Cfg.DropoutRNN, train)
	applyMask(concat, cache.maskRNN)
	cache.concat = concat

	a1 := affine(concat, n.W1, n.B1)
	relu(a1)
	cache.mask1 = n.dropoutMask(len(a1), n.Cfg.DropoutDense, train)
	applyMask(a1, cache.mask1)
	cache.a1 = a1

	a2 := affine(a1, n.W2, n.B2)
	relu(a2)
	cache.a2 = a2

	logit := n.BOut
	for i, w := range n.WOut {
		logit += w * a2[i]
	}
	cache.prob = sigmoid(logit)
	return cache
}

// backward applies one SGD step for a sample given its forward cache and
// target in [0,1]. Returns the binary cross-entropy loss.
func (n *network) backward(cache *forwardCache, target float64) float64 {
	p := cache.prob
	loss := bceLoss(p, target)
	lr := n.Cfg.LearningRate

	// d(loss)/d(logit) for sigmoid + BCE.
	dLogit := p - target

	// Output layer.
	dA2 := make([]float64, len(n.WOut))
	for i, w := range n.WOut {
		dA2[i] = dLogit * w
		n.WOut[i] -= lr * dLogit * cache.a2[i]
	}
	n.BOut -= lr * dLogit

	// Dense block 2.
	for i := range dA2 {
		if cache.a2[i] <= 0 {
			dA2[i] = 0
		}
	}
	dA1 := backpropAffine(cache.a1, n.W2, n.B2, dA2, lr)

	// Dense block 1 (through its dropout mask and ReLU).
	for i := range dA1 {
		dA1[i] *= cache.mask1[i]
		if cache.a1[i] <= 0 {
			dA1[i] = 0
		}
	}
	dConcat := backpropAffine(cache.concat, n.W1, n.B1, dA1, lr)
	for i := range dConcat {
		dConcat[i] *= cache.maskRNN[i]
	}

	// Split the concatenated gradient back into the two directions and run
	// truncated BPTT through each.
	h := n.Cfg.HiddenDim
	n.backpropRNN(cache.embedded, cache.statesF, cache.seq, n.WxF, n.WhF, n.BF, dConcat[:h], false, lr)
	n.backpropRNN(cache.embedded, cache.statesB, cache.seq, n.WxB, n.WhB, n.BB, dConcat[h:], true, lr)

	return loss
}

// runRNN unrolls one direction of the recurrent layer. When reversed, the
// sequence is consumed back to front; states are indexed by step order.
func (n *network) runRNN(embedded [][]float64, wx, wh [][]float64, b []float64, reversed bool) [][]float64 {
	steps := len(embedded)
	states := make([][]float64, steps)
	prev := make([]float64, n.Cfg.HiddenDim)

	for step := 0; step < steps; step++ {
		t := step
		if reversed {
			t = steps - 1 - step
		}
		x := embedded[t]

		h := make([]float64, n.Cfg.HiddenDim)
		for j := 0; j < n.Cfg.HiddenDim; j++ {
			sum := b[j]
			for i, xi := range x {
				sum += xi * wx[i][j]
			}
			for i, hi := range prev {
				sum += hi * wh[i][j]
			}
			h[j] = math.Tanh(sum)
		}
		states[step] = h
		prev = h
	}
	return states
}

// backpropRNN runs BPTT for one direction, updating weights and embedding
// rows in place. dLast is the gradient flowing into the final hidden state.
func (n *network) backpropRNN(embedded [][]float64, states [][]float64, seq []int, wx, wh [][]float64, b []float64, dLast []float64, reversed bool, lr float64) {
	steps := len(embedded)
	dh := make([]float64, n.Cfg.HiddenDim)
	copy(dh, dLast)

	for step := steps - 1; step >= 0; step-- {
		t := step
		if reversed {
			t = steps - 1 - step
		}
		h := states[step]

		var prev []float64
		if step > 0 {
			prev = states[step-1]
		}

		dPre := make([]float64, n.Cfg.HiddenDim)
		for j := range dPre {
			dPre[j] = dh[j] * (1 - h[j]*h[j])
		}

		x := embedded[t]
		dX := make([]float64, len(x))
		for i := range x {
			for j, g := range dPre {
				dX[i] += wx[i][j] * g
				wx[i][j] -= lr * x[i] * g
			}
		}

		dhPrev := make([]float64, n.Cfg.HiddenDim)
		if prev != nil {
			for i := range prev {
				for j, g := range dPre {
					dhPrev[i] += wh[i][j] * g
					wh[i][j] -= lr * prev[i] * g
				}
			}
		}
		for j, g := range dPre {
			b[j] -= lr * g
		}

		// Embedding update; the padding row stays untouched.
		if tok := seq[t]; tok > 0 && tok < len(n.Embedding) {
			row := n.Embedding[tok]
			for i := range row {
				row[i] -= lr * dX[i]
			}
		}

		dh = dhPrev
	}
}

// dropoutMask returns an inverted-dropout mask; all ones at inference.
func (n *network) dropoutMask(size int, rate float64, train bool) []float64 {
	mask := make([]float64, size)
	if !train || rate <= 0 {
		for i := range mask {
			mask[i] = 1
		}
		return mask
	}
	keep := 1 - rate
	for i := range mask {
		if n.rng.Float64() < keep {
			mask[i] = 1 / keep
		}
	}
	return mask
}

func affine(in []float64, w [][]float64, b []float64) []float64 {
	out := make([]float64, len(b))
	copy(out, b)
	for i, x := range in {
		for j := range out {
			out[j] += x * w[i][j]
		}
	}
	return out
}

// backpropAffine updates w and b by SGD and returns the gradient w.r.t. the
// layer input.
func backpropAffine(in []float64, w [][]float64, b []float64, dOut []float64, lr float64) []float64 {
	dIn := make([]float64, len(in))
	for i, x := range in {
		for j, g := range dOut {
			dIn[i] += w[i][j] * g
			w[i][j] -= lr * x * g
		}
	}
	for j, g := range dOut {
		b[j] -= lr * g
	}
	return dIn
}

func relu(v []float64) {
	for i, x := range v {
		if x < 0 {
			v[i] = 0
		}
	}
}

func applyMask(v, mask []float64) {
	for i := range v {
		v[i] *= mask[i]
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// bceLoss is binary cross-entropy with clamping away from 0 and 1.
func bceLoss(p, y float64) float64 {
	const eps = 1e-7
	p = math.Min(math.Max(p, eps), 1-eps)
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}
