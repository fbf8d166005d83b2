package view

import (
	"strings"

	"github.com/zoravur/spooky-engine/engine/plan"
	"github.com/zoravur/spooky-engine/engine/predicate"
	"github.com/zoravur/spooky-engine/engine/value"
)

// BindParams deep-copies a registered view's plan, substituting any
// predicate.Value that is a "$name" reference with params[name]. Unlike a
// Project's "$parent.field" subquery binding (resolved per outer row, at
// process time), these substitutions happen once at registration.
func BindParams(op plan.Operator, params map[string]value.Value) plan.Operator {
	switch o := op.(type) {
	case *plan.Scan:
		cp := *o
		return &cp
	case *plan.Filter:
		return &plan.Filter{Input: BindParams(o.Input, params), Predicate: bindPredicateParams(o.Predicate, params)}
	case *plan.Project:
		cp := &plan.Project{Input: BindParams(o.Input, params)}
		cp.Projections = append(cp.Projections, o.Projections...)
		return cp
	case *plan.Join:
		return &plan.Join{Left: BindParams(o.Left, params), Right: BindParams(o.Right, params), On: o.On}
	case *plan.Limit:
		return &plan.Limit{Input: BindParams(o.Input, params), N: o.N, OrderBy: o.OrderBy}
	default:
		return op
	}
}

// CollectUnresolvedParams walks op the same way BindParams does and returns
// every "$name" reference (in registration order, duplicates included) that
// has no matching entry in params. A non-empty result means BindParams
// would silently leave a literal "$name" string as a comparison value,
// which register_view must instead reject (spec §7).
func CollectUnresolvedParams(op plan.Operator, params map[string]value.Value) []string {
	var missing []string
	collectUnresolvedParams(op, params, &missing)
	return missing
}

func collectUnresolvedParams(op plan.Operator, params map[string]value.Value, missing *[]string) {
	switch o := op.(type) {
	case *plan.Scan:
	case *plan.Filter:
		collectUnresolvedPredicateParams(o.Predicate, params, missing)
		collectUnresolvedParams(o.Input, params, missing)
	case *plan.Project:
		collectUnresolvedParams(o.Input, params, missing)
	case *plan.Join:
		collectUnresolvedParams(o.Left, params, missing)
		collectUnresolvedParams(o.Right, params, missing)
	case *plan.Limit:
		collectUnresolvedParams(o.Input, params, missing)
	}
}

func collectUnresolvedPredicateParams(p predicate.Predicate, params map[string]value.Value, missing *[]string) {
	switch p.Kind {
	case predicate.And, predicate.Or:
		for _, c := range p.Predicates {
			collectUnresolvedPredicateParams(c, params, missing)
		}
	default:
		if s, ok := p.Value.AsStr(); ok && strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "$parent.") {
			name := strings.TrimPrefix(s, "$")
			if _, ok := params[name]; !ok {
				*missing = append(*missing, name)
			}
		}
	}
}

func bindPredicateParams(p predicate.Predicate, params map[string]value.Value) predicate.Predicate {
	switch p.Kind {
	case predicate.And, predicate.Or:
		children := make([]predicate.Predicate, len(p.Predicates))
		for i, c := range p.Predicates {
			children[i] = bindPredicateParams(c, params)
		}
		cp := p
		cp.Predicates = children
		return cp
	default:
		cp := p
		if s, ok := cp.Value.AsStr(); ok && strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "$parent.") {
			name := strings.TrimPrefix(s, "$")
			if resolved, ok := params[name]; ok {
				cp.Value = resolved
			}
		}
		return cp
	}
}
