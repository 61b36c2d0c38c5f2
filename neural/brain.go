// Package neural provides the decision policies ("brains") robots run.
// A brain maps a fixed 9-float observation to a discrete action code; the
// world treats any conforming implementation identically.
package neural

import "fmt"

// Observation and action space dimensions. These mirror the perception
// layout and the action table in the systems package.
const (
	NumInputs  = 9
	NumActions = 7
)

// Kind is the closed enumeration of known brain kinds.
type Kind uint8

const (
	KindRuleBased Kind = iota
	KindMLP
)

// String returns the persistence tag for a Kind.
func (k Kind) String() string {
	switch k {
	case KindMLP:
		return "mlp"
	}
	return "rule_based"
}

// Brain chooses an action from an observation. Implementations must be
// pure functions of the observation and their own internal state: no world
// access, no mutation beyond themselves. The only failure mode is a
// wrong-length observation, reported as an error, never a panic.
type Brain interface {
	DecideAction(obs []float32) (int, error)
	Kind() Kind
}

// checkObs validates the observation length shared by all brains.
func checkObs(obs []float32) error {
	if len(obs) != NumInputs {
		return fmt.Errorf("observation length %d, want %d", len(obs), NumInputs)
	}
	return nil
}
