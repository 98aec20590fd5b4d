package validate

import (
	"fmt"

	"github.com/roach88/prism/internal/graph"
	"github.com/roach88/prism/internal/unit"
)

// Options configures a validation run.
type Options struct {
	// RequireDeclarations makes every source node (constant or solver
	// variable) without any declared kind or unit a diagnostic. Off by
	// default; models used purely numerically need no metadata.
	RequireDeclarations bool
}

// Result holds the inferred metadata table and all collected
// diagnostics. Indexed by NodeID.
type Result struct {
	Kinds     []graph.Kind
	Units     []unit.Unit
	UnitKnown []bool

	Diagnostics []Diagnostic
}

// OK reports whether validation passed.
func (res *Result) OK() bool { return len(res.Diagnostics) == 0 }

// Run executes both validation passes over the given topological order.
// It never touches the ledger.
func Run(r *graph.Registry, order []graph.NodeID, opts Options) *Result {
	n := r.Count()
	res := &Result{
		Kinds:     make([]graph.Kind, n),
		Units:     make([]unit.Unit, n),
		UnitKnown: make([]bool, n),
	}
	// Raw inference, before declarations are adopted; pass 2 compares
	// declarations against these.
	rawKinds := make([]graph.Kind, n)
	rawUnits := make([]unit.Unit, n)
	rawKnown := make([]bool, n)

	// Pass 1: bottom-up inference. Consumers read the adopted cache, so
	// a declaration that seeds an Unknown node propagates downstream.
	for _, id := range order {
		i := id.Index()
		k, u, known := infer(r, id, res)
		rawKinds[i], rawUnits[i], rawKnown[i] = k, u, known

		meta := r.MetaOf(id)
		if k == graph.KindUnknown && meta.Kind != graph.KindUnknown {
			k = meta.Kind
		}
		if !known && meta.UnitDeclared {
			u, known = meta.Unit, true
		}
		res.Kinds[i], res.Units[i], res.UnitKnown[i] = k, u, known
	}

	// Pass 2: verification of declarations against raw inference.
	for _, id := range order {
		i := id.Index()
		meta := r.MetaOf(id)

		if meta.Kind != graph.KindUnknown && rawKinds[i] != graph.KindUnknown && rawKinds[i] != meta.Kind {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Code:     CodeKindMismatch,
				Node:     id,
				Name:     meta.Name,
				Message:  fmt.Sprintf("declared kind %s but inference yields %s", meta.Kind, rawKinds[i]),
				Inferred: rawKinds[i].String(),
				Declared: meta.Kind.String(),
			})
		}
		if meta.UnitDeclared && rawKnown[i] && !rawUnits[i].Equal(meta.Unit) {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Code:     CodeUnitMismatch,
				Node:     id,
				Name:     meta.Name,
				Message:  fmt.Sprintf("declared unit %s but inference yields %s", meta.Unit, rawUnits[i]),
				Inferred: rawUnits[i].String(),
				Declared: meta.Unit.String(),
			})
		}

		if opts.RequireDeclarations && r.OpOf(id) != graph.OpConstraint && r.OpOf(id).Arity() == 0 {
			if meta.Kind == graph.KindUnknown && !meta.UnitDeclared {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{
					Code:    CodeUndeclaredRequired,
					Node:    id,
					Name:    meta.Name,
					Message: "source node requires a declared kind or unit",
				})
			}
		}
	}
	return res
}

// infer computes one node's (kind, unit) from the adopted cache of its
// parents, appending algebra diagnostics as a side effect.
func infer(r *graph.Registry, id graph.NodeID, res *Result) (graph.Kind, unit.Unit, bool) {
	op := r.OpOf(id)
	parents := r.Parents(id)
	meta := r.MetaOf(id)

	switch op {
	case graph.OpConst, graph.OpSolverVar:
		// Source nodes: the declaration is the inference.
		return meta.Kind, meta.Unit, meta.UnitDeclared

	case graph.OpNeg, graph.OpPrev:
		p := parents[0].Index()
		return res.Kinds[p], res.Units[p], res.UnitKnown[p]

	case graph.OpConstraint:
		// Constraints carry no value, but an equality between
		// incompatible units is itself a dimensional error.
		l, rr := parents[0].Index(), parents[1].Index()
		if res.UnitKnown[l] && res.UnitKnown[rr] && !res.Units[l].Equal(res.Units[rr]) {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Code: CodeUnitMismatch,
				Node: id,
				Name: meta.Name,
				Message: fmt.Sprintf("constraint equates %s (%s) with %s (%s)",
					r.NameOf(parents[0]), res.Units[l], r.NameOf(parents[1]), res.Units[rr]),
			})
		}
		return graph.KindUnknown, unit.Unit{}, false
	}

	l, rr := parents[0].Index(), parents[1].Index()
	lk, rk := res.Kinds[l], res.Kinds[rr]
	lu, ru := res.Units[l], res.Units[rr]
	lknown, rknown := res.UnitKnown[l], res.UnitKnown[rr]

	var kind graph.Kind
	var u unit.Unit
	var known bool

	switch op {
	case graph.OpAdd, graph.OpSub:
		sub := op == graph.OpSub
		k, ok := addKinds(lk, rk, sub, r.OpOf(parents[1]) == graph.OpPrev)
		if !ok {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Code:    CodeKindAddError,
				Node:    id,
				Name:    meta.Name,
				Message: fmt.Sprintf("cannot %s %s and %s", op, lk, rk),
			})
			k = graph.KindUnknown
		}
		kind = k

		switch {
		case lknown && rknown:
			if lu.Equal(ru) {
				u, known = lu, true
			} else {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{
					Code:    CodeUnitMismatch,
					Node:    id,
					Name:    meta.Name,
					Message: fmt.Sprintf("cannot %s %s and %s", op, lu, ru),
				})
			}
		case lknown:
			u, known = lu, true
		case rknown:
			u, known = ru, true
		}

	case graph.OpMul:
		kind = mulKinds(lk, rk)
		if lknown && rknown {
			u, known = lu.Mul(ru), true
		}

	case graph.OpDiv:
		kind = divKinds(lk, rk)
		if lknown && rknown {
			u, known = lu.Div(ru), true
		}
	}
	return kind, u, known
}
