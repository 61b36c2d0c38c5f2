package neural

import (
	"fmt"
	"math/rand"
)

// FromExport reconstructs a brain from its persisted tag and weight blob.
// Unknown tags fall back to a fresh rule-based brain; a malformed weight
// blob for a known kind is a configuration error and is reported.
func FromExport(tag string, params []float64, seed int64) (Brain, error) {
	switch tag {
	case KindMLP.String():
		if len(params) == 0 {
			// Learned weights are best-effort-preserved; an absent blob
			// degrades to a fresh network rather than failing the load.
			return NewMLP(rand.New(rand.NewSource(seed))), nil
		}
		m, err := ImportMLP(params)
		if err != nil {
			return nil, fmt.Errorf("restore mlp brain: %w", err)
		}
		return m, nil
	default:
		return NewRuleBased(seed), nil
	}
}

// ExportParams returns the weight blob to persist for a brain, nil for
// kinds without parameters.
func ExportParams(b Brain) []float64 {
	if m, ok := b.(*MLP); ok {
		return m.Export()
	}
	return nil
}

// Inherit derives a child's brain from its parents. Two learned parents
// yield an averaged network; any other pairing defaults to rule-based.
func Inherit(a, b Brain, seed int64) Brain {
	ma, okA := a.(*MLP)
	mb, okB := b.(*MLP)
	if okA && okB {
		return AverageMLP(ma, mb)
	}
	return NewRuleBased(seed)
}
