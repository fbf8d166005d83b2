package predicate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zoravur/spooky-engine/engine/interner"
	"github.com/zoravur/spooky-engine/engine/storage"
	"github.com/zoravur/spooky-engine/engine/value"
)

// buildIntTable seeds a storage.Table with n rows of a single Int column
// "score" taking values in [-50, 50).
func buildIntTable(n int, seed int64) *storage.Table {
	tbl := storage.New("widget")
	sym := interner.New()
	r := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		score := float64(r.Intn(100) - 50)
		row := value.NewObject([]string{"score"}, []value.Value{value.NewNumber(score)})
		tbl.Upsert(zsetKey(i), row, "h", sym)
	}
	return tbl
}

func zsetKey(i int) string {
	return "widget:" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}

// TestFastPathMatchesGenericEval enforces the bit-for-bit equivalence
// EvalColumnFastPath promises against the generic Eval path, across every
// comparison kind and a range of thresholds.
func TestFastPathMatchesGenericEval(t *testing.T) {
	tbl := buildIntTable(200, 7)
	sym := interner.New() // unused for Int columns, but GetRow needs one
	kinds := []Kind{Eq, Neq, Gt, Gte, Lt, Lte}

	for _, kind := range kinds {
		for threshold := -10; threshold <= 10; threshold++ {
			p := Predicate{Kind: kind, Field: value.Path{"score"}, Value: value.NewNumber(float64(threshold))}
			col, th, eligible := FastPathEligible(p, tbl)
			require.True(t, eligible)
			require.Equal(t, "score", col)
			require.Equal(t, float64(threshold), th)

			for idx := 0; idx < tbl.NumRows; idx++ {
				key := tbl.IndexToPK[idx]
				rowVal, ok := tbl.GetRow(key, sym)
				require.True(t, ok)

				want := Eval(p, rowVal)
				got := EvalColumnFastPath(kind, col, th, tbl, idx)
				require.Equal(t, want, got, "kind=%v threshold=%v idx=%d", kind, threshold, idx)
			}
		}
	}
}

func TestFastPathIneligibleOnTextColumn(t *testing.T) {
	tbl := storage.New("actor")
	sym := interner.New()
	tbl.Upsert("actor:1", value.NewObject([]string{"name"}, []value.Value{value.NewStr("Ada")}), "h", sym)

	p := Predicate{Kind: Eq, Field: value.Path{"name"}, Value: value.NewStr("Ada")}
	_, _, eligible := FastPathEligible(p, tbl)
	require.False(t, eligible)
}

func TestFastPathIneligibleOnCompoundField(t *testing.T) {
	tbl := storage.New("widget")
	sym := interner.New()
	tbl.Upsert("widget:1", value.NewObject([]string{"score"}, []value.Value{value.NewNumber(1)}), "h", sym)

	p := Predicate{Kind: Eq, Field: value.Path{"a", "b"}, Value: value.NewNumber(1)}
	_, _, eligible := FastPathEligible(p, tbl)
	require.False(t, eligible)
}
