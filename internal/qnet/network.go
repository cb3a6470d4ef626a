// Package qnet implements the value-function learner: a small multilayer
// perceptron mapping a state vector to one value per action, trained with
// temporal-difference targets against a lagging target network.
package qnet

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// #region network
// Network is a two-layer perceptron: in -> hidden (ReLU) -> out (linear).
type Network struct {
	in, hidden, out int

	w1 *mat.Dense    // hidden x in
	b1 *mat.VecDense // hidden
	w2 *mat.Dense    // out x hidden
	b2 *mat.VecDense // out
}

// newNetwork creates a network with He-uniform weights and zero biases.
func newNetwork(in, hidden, out int, rng *rand.Rand) *Network {
	n := &Network{
		in: in, hidden: hidden, out: out,
		w1: mat.NewDense(hidden, in, heUniform(hidden*in, in, rng)),
		b1: mat.NewVecDense(hidden, nil),
		w2: mat.NewDense(out, hidden, heUniform(out*hidden, hidden, rng)),
		b2: mat.NewVecDense(out, nil),
	}
	return n
}

func heUniform(size, fanIn int, rng *rand.Rand) []float64 {
	limit := math.Sqrt(6 / float64(fanIn))
	data := make([]float64, size)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * limit
	}
	return data
}

// Shape returns the layer widths.
func (n *Network) Shape() (in, hidden, out int) { return n.in, n.hidden, n.out }

// input builds the input vector. Shorter states are zero-padded, longer
// ones truncated.
func (n *Network) input(state []float64) *mat.VecDense {
	x := mat.NewVecDense(n.in, nil)
	for i := 0; i < n.in && i < len(state); i++ {
		x.SetVec(i, state[i])
	}
	return x
}

// forward returns the hidden pre-activation, the hidden activation and the output.
func (n *Network) forward(x *mat.VecDense) (pre, h, q *mat.VecDense) {
	pre = mat.NewVecDense(n.hidden, nil)
	pre.MulVec(n.w1, x)
	pre.AddVec(pre, n.b1)

	h = mat.NewVecDense(n.hidden, nil)
	for i := 0; i < n.hidden; i++ {
		if v := pre.AtVec(i); v > 0 {
			h.SetVec(i, v)
		}
	}

	q = mat.NewVecDense(n.out, nil)
	q.MulVec(n.w2, h)
	q.AddVec(q, n.b2)
	return pre, h, q
}

// predict returns one value per action.
func (n *Network) predict(state []float64) []float64 {
	_, _, q := n.forward(n.input(state))
	return mat.Col(nil, 0, q)
}

// copyFrom overwrites n's weights with src's. Shapes must match.
func (n *Network) copyFrom(src *Network) {
	n.w1.Copy(src.w1)
	n.b1.CopyVec(src.b1)
	n.w2.Copy(src.w2)
	n.b2.CopyVec(src.b2)
}

func (n *Network) clone() *Network {
	c := &Network{
		in: n.in, hidden: n.hidden, out: n.out,
		w1: mat.DenseCopyOf(n.w1),
		b1: mat.VecDenseCopyOf(n.b1),
		w2: mat.DenseCopyOf(n.w2),
		b2: mat.VecDenseCopyOf(n.b2),
	}
	return c
}

// params returns all weights flattened in layer order.
func (n *Network) params() []float64 {
	out := make([]float64, 0, n.hidden*n.in+n.hidden+n.out*n.hidden+n.out)
	out = append(out, n.w1.RawMatrix().Data...)
	out = append(out, n.b1.RawVector().Data...)
	out = append(out, n.w2.RawMatrix().Data...)
	out = append(out, n.b2.RawVector().Data...)
	return out
}

// #endregion network
