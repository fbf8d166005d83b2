package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zoravur/spooky-engine/engine/plan"
	"github.com/zoravur/spooky-engine/engine/predicate"
	"github.com/zoravur/spooky-engine/engine/value"
)

func TestScanRoundTrip(t *testing.T) {
	op := &plan.Scan{Table: "actor"}

	raw, err := ToWirePlan(op)
	require.NoError(t, err)

	got, err := FromWirePlan(raw)
	require.NoError(t, err)
	require.Equal(t, op, got)
}

func TestFilterRoundTripSimplePredicate(t *testing.T) {
	op := &plan.Filter{
		Input:     &plan.Scan{Table: "user"},
		Predicate: predicate.Predicate{Kind: predicate.Gte, Field: value.Path{"age"}, Value: value.NewNumber(18)},
	}

	raw, err := ToWirePlan(op)
	require.NoError(t, err)

	got, err := FromWirePlan(raw)
	require.NoError(t, err)
	require.Equal(t, op, got)
}

func TestFilterRoundTripAndOfPredicates(t *testing.T) {
	op := &plan.Filter{
		Input: &plan.Scan{Table: "user"},
		Predicate: predicate.Predicate{Kind: predicate.And, Predicates: []predicate.Predicate{
			{Kind: predicate.Gte, Field: value.Path{"age"}, Value: value.NewNumber(18)},
			{Kind: predicate.Prefix, Field: value.Path{"name"}, Prefix: "A", Value: value.NewStr("A")},
		}},
	}

	raw, err := ToWirePlan(op)
	require.NoError(t, err)

	got, err := FromWirePlan(raw)
	require.NoError(t, err)
	require.Equal(t, op, got)
}

func TestProjectRoundTripWithSubquery(t *testing.T) {
	op := &plan.Project{
		Input: &plan.Scan{Table: "thread"},
		Projections: []plan.Projection{
			{Kind: plan.ProjAll},
			{Kind: plan.ProjField, Field: value.Path{"title"}, Alias: "subject"},
			{Kind: plan.ProjSubquery, Alias: "author", Subplan: &plan.Filter{
				Input:     &plan.Scan{Table: "author"},
				Predicate: predicate.Predicate{Kind: predicate.Eq, Field: value.Path{"id"}, Value: value.NewStr("$parent.author")},
			}},
		},
	}

	raw, err := ToWirePlan(op)
	require.NoError(t, err)

	got, err := FromWirePlan(raw)
	require.NoError(t, err)
	require.Equal(t, op, got)
}

func TestJoinRoundTrip(t *testing.T) {
	op := &plan.Join{
		Left:  &plan.Scan{Table: "actor"},
		Right: &plan.Scan{Table: "film"},
		On:    plan.JoinCondition{LeftField: value.Path{"id"}, RightField: value.Path{"actor_id"}},
	}

	raw, err := ToWirePlan(op)
	require.NoError(t, err)

	got, err := FromWirePlan(raw)
	require.NoError(t, err)
	require.Equal(t, op, got)
}

func TestLimitRoundTripWithOrderBy(t *testing.T) {
	op := &plan.Limit{
		Input:   &plan.Scan{Table: "actor"},
		N:       5,
		OrderBy: []plan.OrderSpec{{Field: value.Path{"age"}, Direction: "desc"}},
	}

	raw, err := ToWirePlan(op)
	require.NoError(t, err)

	got, err := FromWirePlan(raw)
	require.NoError(t, err)
	require.Equal(t, op, got)
}

func TestFromWirePlanRejectsUnknownOperator(t *testing.T) {
	_, err := FromWirePlan([]byte(`{"op":"bogus"}`))
	require.Error(t, err)
}

func TestFromWirePlanRejectsFilterWithoutPredicate(t *testing.T) {
	_, err := FromWirePlan([]byte(`{"op":"filter","input":{"op":"scan","table":"user"}}`))
	require.Error(t, err)
}

func TestFromWirePlanRejectsSubqueryProjectionWithoutSubplan(t *testing.T) {
	raw := []byte(`{"op":"project","input":{"op":"scan","table":"user"},"projections":[{"type":"subquery","alias":"x"}]}`)
	_, err := FromWirePlan(raw)
	require.Error(t, err)
}
