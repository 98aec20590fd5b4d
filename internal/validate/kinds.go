package validate

import "github.com/roach88/prism/internal/graph"

// addKinds applies the additive temporal algebra. ok=false means the
// combination is forbidden (KindAddError).
//
//	Flow  ± Flow  = Flow
//	Stock ± Stock = Stock   (but Stock − Prev(Stock) = Flow)
//	Rate  ± Rate  = Rate
//	Dimensionless combines with anything, yielding the other side.
//	Unknown propagates and defers to declaration.
//	Stock ± Flow (and any other mixed pair) is an error.
func addKinds(lhs, rhs graph.Kind, sub, rhsIsPrev bool) (graph.Kind, bool) {
	if lhs == graph.KindUnknown || rhs == graph.KindUnknown {
		return graph.KindUnknown, true
	}
	if lhs == graph.KindDimensionless {
		return rhs, true
	}
	if rhs == graph.KindDimensionless {
		return lhs, true
	}
	if lhs != rhs {
		return graph.KindUnknown, false
	}
	// Differencing a stock against its own lagged value produces the
	// per-period flow.
	if sub && lhs == graph.KindStock && rhsIsPrev {
		return graph.KindFlow, true
	}
	return lhs, true
}

// mulKinds applies the multiplicative algebra. Rate acts as a per-step
// scaling factor: Rate*Flow is a flow time-integrated over the unit
// step, Rate*Stock scales the stock. Combinations the algebra does not
// cover yield Unknown and defer to declaration.
func mulKinds(a, b graph.Kind) graph.Kind {
	if a == graph.KindUnknown || b == graph.KindUnknown {
		return graph.KindUnknown
	}
	if a == graph.KindDimensionless {
		return b
	}
	if b == graph.KindDimensionless {
		return a
	}
	if a == graph.KindRate || b == graph.KindRate {
		other := a
		if a == graph.KindRate {
			other = b
		}
		if other == graph.KindRate {
			return graph.KindRate
		}
		return other
	}
	if a == graph.KindFlow && b == graph.KindFlow {
		return graph.KindFlow
	}
	return graph.KindUnknown
}

// divKinds applies the quotient algebra. Ratios of like kinds are rates;
// dividing by a rate or a dimensionless factor preserves the numerator.
func divKinds(a, b graph.Kind) graph.Kind {
	if a == graph.KindUnknown || b == graph.KindUnknown {
		return graph.KindUnknown
	}
	if b == graph.KindDimensionless {
		return a
	}
	if a == b {
		return graph.KindRate
	}
	if b == graph.KindRate {
		return a
	}
	return graph.KindUnknown
}
