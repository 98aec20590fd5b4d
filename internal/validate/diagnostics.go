package validate

import (
	"fmt"

	"github.com/roach88/prism/internal/graph"
)

// Diagnostic codes (V100-V199).
const (
	// CodeUnitMismatch covers both additive unit incompatibility and a
	// declared unit contradicting the inferred one.
	CodeUnitMismatch = "V101"
	// CodeKindMismatch is a declared temporal kind contradicting the
	// inferred one.
	CodeKindMismatch = "V102"
	// CodeKindAddError is an additive combination the temporal algebra
	// forbids (e.g. Stock + Flow).
	CodeKindAddError = "V103"
	// CodeUndeclaredRequired is a source node missing declarations while
	// the validator runs in require-declarations mode.
	CodeUndeclaredRequired = "V104"
)

// Diagnostic is one collected validation finding. Validation never
// fails fast: every diagnostic in the graph is reported in one pass.
type Diagnostic struct {
	Code     string       `json:"code"`
	Node     graph.NodeID `json:"node"`
	Name     string       `json:"name"`
	Message  string       `json:"message"`
	Inferred string       `json:"inferred,omitempty"`
	Declared string       `json:"declared,omitempty"`
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("[%s] %s (%s): %s", d.Code, d.Name, d.Node, d.Message)
}
