package wire

import (
	"encoding/json"
	"fmt"

	"github.com/zoravur/spooky-engine/engine/plan"
	"github.com/zoravur/spooky-engine/engine/predicate"
	"github.com/zoravur/spooky-engine/engine/value"
)

// PlanNode is the wire shape of one operator tree node: op ∈
// {scan,filter,project,join,limit}.
type PlanNode struct {
	Op          string           `json:"op"`
	Table       string           `json:"table,omitempty"`
	Input       *PlanNode        `json:"input,omitempty"`
	Predicate   *PredicateNode   `json:"predicate,omitempty"`
	Projections []ProjectionNode `json:"projections,omitempty"`
	Left        *PlanNode        `json:"left,omitempty"`
	Right       *PlanNode        `json:"right,omitempty"`
	On          *JoinConditionNode `json:"on,omitempty"`
	Limit       int              `json:"limit,omitempty"`
	OrderBy     []OrderSpecNode  `json:"order_by,omitempty"`
}

// PredicateNode is the wire shape of a Predicate: type ∈
// {eq,neq,gt,gte,lt,lte,prefix,and,or}.
type PredicateNode struct {
	Type       string          `json:"type"`
	Field      string          `json:"field,omitempty"`
	Value      any             `json:"value,omitempty"`
	Prefix     string          `json:"prefix,omitempty"`
	Predicates []PredicateNode `json:"predicates,omitempty"`
}

// ProjectionNode is the wire shape of a Projection: type ∈
// {all,field,subquery}.
type ProjectionNode struct {
	Type    string    `json:"type"`
	Field   string    `json:"field,omitempty"`
	Alias   string    `json:"alias,omitempty"`
	Subplan *PlanNode `json:"subplan,omitempty"`
}

type JoinConditionNode struct {
	LeftField  string `json:"left_field"`
	RightField string `json:"right_field"`
}

type OrderSpecNode struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// FromWirePlan decodes a plan tree from its JSON wire form.
func FromWirePlan(raw json.RawMessage) (plan.Operator, error) {
	var n PlanNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return nodeToOperator(&n)
}

func nodeToOperator(n *PlanNode) (plan.Operator, error) {
	if n == nil {
		return nil, fmt.Errorf("nil plan node")
	}
	switch n.Op {
	case "scan":
		return &plan.Scan{Table: n.Table}, nil
	case "filter":
		input, err := nodeToOperator(n.Input)
		if err != nil {
			return nil, err
		}
		if n.Predicate == nil {
			return nil, fmt.Errorf("filter: missing predicate")
		}
		pred, err := nodeToPredicate(n.Predicate)
		if err != nil {
			return nil, err
		}
		return &plan.Filter{Input: input, Predicate: pred}, nil
	case "project":
		input, err := nodeToOperator(n.Input)
		if err != nil {
			return nil, err
		}
		projs := make([]plan.Projection, 0, len(n.Projections))
		for i := range n.Projections {
			p, err := nodeToProjection(&n.Projections[i])
			if err != nil {
				return nil, err
			}
			projs = append(projs, p)
		}
		return &plan.Project{Input: input, Projections: projs}, nil
	case "join":
		left, err := nodeToOperator(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := nodeToOperator(n.Right)
		if err != nil {
			return nil, err
		}
		if n.On == nil {
			return nil, fmt.Errorf("join: missing on")
		}
		return &plan.Join{
			Left:  left,
			Right: right,
			On: plan.JoinCondition{
				LeftField:  value.ParsePath(n.On.LeftField),
				RightField: value.ParsePath(n.On.RightField),
			},
		}, nil
	case "limit":
		input, err := nodeToOperator(n.Input)
		if err != nil {
			return nil, err
		}
		obs := make([]plan.OrderSpec, 0, len(n.OrderBy))
		for _, o := range n.OrderBy {
			obs = append(obs, plan.OrderSpec{Field: value.ParsePath(o.Field), Direction: o.Direction})
		}
		return &plan.Limit{Input: input, N: n.Limit, OrderBy: obs}, nil
	default:
		return nil, fmt.Errorf("unknown operator %q", n.Op)
	}
}

func nodeToPredicate(n *PredicateNode) (predicate.Predicate, error) {
	switch n.Type {
	case "eq", "neq", "gt", "gte", "lt", "lte":
		kinds := map[string]predicate.Kind{
			"eq": predicate.Eq, "neq": predicate.Neq,
			"gt": predicate.Gt, "gte": predicate.Gte,
			"lt": predicate.Lt, "lte": predicate.Lte,
		}
		return predicate.Predicate{Kind: kinds[n.Type], Field: value.ParsePath(n.Field), Value: value.FromAny(n.Value)}, nil
	case "prefix":
		pre := n.Prefix
		if pre == "" {
			if s, ok := n.Value.(string); ok {
				pre = s
			}
		}
		return predicate.Predicate{Kind: predicate.Prefix, Field: value.ParsePath(n.Field), Prefix: pre, Value: value.NewStr(pre)}, nil
	case "and", "or":
		children := make([]predicate.Predicate, 0, len(n.Predicates))
		for i := range n.Predicates {
			c, err := nodeToPredicate(&n.Predicates[i])
			if err != nil {
				return predicate.Predicate{}, err
			}
			children = append(children, c)
		}
		kind := predicate.And
		if n.Type == "or" {
			kind = predicate.Or
		}
		return predicate.Predicate{Kind: kind, Predicates: children}, nil
	default:
		return predicate.Predicate{}, fmt.Errorf("unknown predicate type %q", n.Type)
	}
}

func nodeToProjection(n *ProjectionNode) (plan.Projection, error) {
	switch n.Type {
	case "all":
		return plan.Projection{Kind: plan.ProjAll}, nil
	case "field":
		return plan.Projection{Kind: plan.ProjField, Field: value.ParsePath(n.Field), Alias: n.Alias}, nil
	case "subquery":
		if n.Subplan == nil {
			return plan.Projection{}, fmt.Errorf("subquery projection: missing subplan")
		}
		sub, err := nodeToOperator(n.Subplan)
		if err != nil {
			return plan.Projection{}, err
		}
		return plan.Projection{Kind: plan.ProjSubquery, Alias: n.Alias, Subplan: sub}, nil
	default:
		return plan.Projection{}, fmt.Errorf("unknown projection type %q", n.Type)
	}
}

// ToWirePlan encodes a plan tree back to its JSON wire form.
func ToWirePlan(op plan.Operator) (json.RawMessage, error) {
	n, err := operatorToNode(op)
	if err != nil {
		return nil, err
	}
	return json.Marshal(n)
}

func operatorToNode(op plan.Operator) (*PlanNode, error) {
	switch o := op.(type) {
	case *plan.Scan:
		return &PlanNode{Op: "scan", Table: o.Table}, nil
	case *plan.Filter:
		input, err := operatorToNode(o.Input)
		if err != nil {
			return nil, err
		}
		pred := predicateToNode(o.Predicate)
		return &PlanNode{Op: "filter", Input: input, Predicate: &pred}, nil
	case *plan.Project:
		input, err := operatorToNode(o.Input)
		if err != nil {
			return nil, err
		}
		projs := make([]ProjectionNode, 0, len(o.Projections))
		for _, p := range o.Projections {
			pn, err := projectionToNode(p)
			if err != nil {
				return nil, err
			}
			projs = append(projs, pn)
		}
		return &PlanNode{Op: "project", Input: input, Projections: projs}, nil
	case *plan.Join:
		left, err := operatorToNode(o.Left)
		if err != nil {
			return nil, err
		}
		right, err := operatorToNode(o.Right)
		if err != nil {
			return nil, err
		}
		return &PlanNode{
			Op: "join", Left: left, Right: right,
			On: &JoinConditionNode{LeftField: o.On.LeftField.String(), RightField: o.On.RightField.String()},
		}, nil
	case *plan.Limit:
		input, err := operatorToNode(o.Input)
		if err != nil {
			return nil, err
		}
		obs := make([]OrderSpecNode, 0, len(o.OrderBy))
		for _, ob := range o.OrderBy {
			obs = append(obs, OrderSpecNode{Field: ob.Field.String(), Direction: ob.Direction})
		}
		return &PlanNode{Op: "limit", Input: input, Limit: o.N, OrderBy: obs}, nil
	default:
		return nil, fmt.Errorf("unknown operator type %T", op)
	}
}

func predicateToNode(p predicate.Predicate) PredicateNode {
	switch p.Kind {
	case predicate.And, predicate.Or:
		children := make([]PredicateNode, 0, len(p.Predicates))
		for _, c := range p.Predicates {
			children = append(children, predicateToNode(c))
		}
		typ := "and"
		if p.Kind == predicate.Or {
			typ = "or"
		}
		return PredicateNode{Type: typ, Predicates: children}
	case predicate.Prefix:
		return PredicateNode{Type: "prefix", Field: p.Field.String(), Prefix: p.Prefix}
	default:
		names := map[predicate.Kind]string{
			predicate.Eq: "eq", predicate.Neq: "neq",
			predicate.Gt: "gt", predicate.Gte: "gte",
			predicate.Lt: "lt", predicate.Lte: "lte",
		}
		return PredicateNode{Type: names[p.Kind], Field: p.Field.String(), Value: value.ToAny(p.Value)}
	}
}

func projectionToNode(p plan.Projection) (ProjectionNode, error) {
	switch p.Kind {
	case plan.ProjAll:
		return ProjectionNode{Type: "all"}, nil
	case plan.ProjField:
		return ProjectionNode{Type: "field", Field: p.Field.String(), Alias: p.Alias}, nil
	case plan.ProjSubquery:
		sub, err := operatorToNode(p.Subplan)
		if err != nil {
			return ProjectionNode{}, err
		}
		return ProjectionNode{Type: "subquery", Alias: p.Alias, Subplan: sub}, nil
	default:
		return ProjectionNode{}, fmt.Errorf("unknown projection kind %d", p.Kind)
	}
}
