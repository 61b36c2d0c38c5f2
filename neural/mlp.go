package neural

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// NumHidden is the width of both hidden layers.
const NumHidden = 32

// MLP is the learned policy: a feedforward network 9 -> 32 -> 32 -> 7 with
// ReLU hidden activations and greedy argmax output selection. Inference
// only; weights change solely through inheritance averaging.
type MLP struct {
	w1 *mat.Dense    // NumHidden x NumInputs
	b1 *mat.VecDense // NumHidden
	w2 *mat.Dense    // NumHidden x NumHidden
	b2 *mat.VecDense // NumHidden
	w3 *mat.Dense    // NumActions x NumHidden
	b3 *mat.VecDense // NumActions
}

// WeightCount is the length of the flat weight blob produced by Export.
const WeightCount = NumHidden*NumInputs + NumHidden +
	NumHidden*NumHidden + NumHidden +
	NumActions*NumHidden + NumActions

// NewMLP creates a randomly initialized network from the given rng.
func NewMLP(rng *rand.Rand) *MLP {
	xavier := func(rows, cols int) *mat.Dense {
		scale := math.Sqrt(2.0 / float64(cols))
		data := make([]float64, rows*cols)
		for i := range data {
			data[i] = rng.NormFloat64() * scale
		}
		return mat.NewDense(rows, cols, data)
	}
	return &MLP{
		w1: xavier(NumHidden, NumInputs),
		b1: mat.NewVecDense(NumHidden, nil),
		w2: xavier(NumHidden, NumHidden),
		b2: mat.NewVecDense(NumHidden, nil),
		w3: xavier(NumActions, NumHidden),
		b3: mat.NewVecDense(NumActions, nil),
	}
}

// Kind returns KindMLP.
func (m *MLP) Kind() Kind { return KindMLP }

// DecideAction implements Brain: forward pass, greedy argmax.
func (m *MLP) DecideAction(obs []float32) (int, error) {
	if err := checkObs(obs); err != nil {
		return 0, err
	}

	in := mat.NewVecDense(NumInputs, nil)
	for i, v := range obs {
		in.SetVec(i, float64(v))
	}

	var h1, h2, out mat.VecDense
	h1.MulVec(m.w1, in)
	h1.AddVec(&h1, m.b1)
	relu(&h1)

	h2.MulVec(m.w2, &h1)
	h2.AddVec(&h2, m.b2)
	relu(&h2)

	out.MulVec(m.w3, &h2)
	out.AddVec(&out, m.b3)

	best := 0
	bestV := out.AtVec(0)
	for i := 1; i < NumActions; i++ {
		if v := out.AtVec(i); v > bestV {
			best, bestV = i, v
		}
	}
	return best, nil
}

func relu(v *mat.VecDense) {
	raw := v.RawVector().Data
	for i, x := range raw {
		if x < 0 {
			raw[i] = 0
		}
	}
}

// Export flattens all weights and biases into one blob for persistence.
// Layer order is fixed: w1, b1, w2, b2, w3, b3, row-major.
func (m *MLP) Export() []float64 {
	out := make([]float64, 0, WeightCount)
	for _, part := range m.parts() {
		out = append(out, part...)
	}
	return out
}

// ImportMLP rebuilds a network from an Export blob.
func ImportMLP(blob []float64) (*MLP, error) {
	if len(blob) != WeightCount {
		return nil, fmt.Errorf("mlp weight blob length %d, want %d", len(blob), WeightCount)
	}
	m := &MLP{
		w1: mat.NewDense(NumHidden, NumInputs, nil),
		b1: mat.NewVecDense(NumHidden, nil),
		w2: mat.NewDense(NumHidden, NumHidden, nil),
		b2: mat.NewVecDense(NumHidden, nil),
		w3: mat.NewDense(NumActions, NumHidden, nil),
		b3: mat.NewVecDense(NumActions, nil),
	}
	for _, part := range m.parts() {
		copy(part, blob[:len(part)])
		blob = blob[len(part):]
	}
	return m, nil
}

// AverageMLP returns a child network whose parameters are the element-wise
// average of both parents'.
func AverageMLP(a, b *MLP) *MLP {
	child := &MLP{
		w1: mat.NewDense(NumHidden, NumInputs, nil),
		b1: mat.NewVecDense(NumHidden, nil),
		w2: mat.NewDense(NumHidden, NumHidden, nil),
		b2: mat.NewVecDense(NumHidden, nil),
		w3: mat.NewDense(NumActions, NumHidden, nil),
		b3: mat.NewVecDense(NumActions, nil),
	}
	pa, pb, pc := a.parts(), b.parts(), child.parts()
	for i := range pc {
		for j := range pc[i] {
			pc[i][j] = (pa[i][j] + pb[i][j]) / 2
		}
	}
	return child
}

// parts returns the raw backing slices in Export order.
func (m *MLP) parts() [][]float64 {
	return [][]float64{
		m.w1.RawMatrix().Data,
		m.b1.RawVector().Data,
		m.w2.RawMatrix().Data,
		m.b2.RawVector().Data,
		m.w3.RawMatrix().Data,
		m.b3.RawVector().Data,
	}
}
