package interner

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternAssignsStableIncreasingSymbols(t *testing.T) {
	tab := New()

	a := tab.Intern("actor")
	f := tab.Intern("film")
	a2 := tab.Intern("actor")

	require.Equal(t, a, a2, "interning the same string twice returns the same symbol")
	require.NotEqual(t, a, f)
	require.Equal(t, Symbol(1), a, "Symbol(0) is reserved for \"\" by New")
	require.Equal(t, Symbol(2), f)
}

func TestNewReservesSymbolZeroForEmptyString(t *testing.T) {
	tab := New()

	require.Equal(t, Symbol(0), tab.Intern(""))

	s, ok := tab.Resolve(Symbol(0))
	require.True(t, ok)
	require.Equal(t, "", s)
}

func TestResolveRoundTrips(t *testing.T) {
	tab := New()
	sym := tab.Intern("hello")

	s, ok := tab.Resolve(sym)
	require.True(t, ok)
	require.Equal(t, "hello", s)
}

func TestResolveUnknownSymbolFails(t *testing.T) {
	tab := New()
	tab.Intern("one")

	_, ok := tab.Resolve(Symbol(99))
	require.False(t, ok)
}

func TestMarshalUnmarshalJSONRoundTrip(t *testing.T) {
	tab := New()
	tab.Intern("actor")
	tab.Intern("film")
	tab.Intern("user")

	b, err := json.Marshal(tab)
	require.NoError(t, err)

	restored := New()
	require.NoError(t, json.Unmarshal(b, restored))

	for _, s := range []string{"actor", "film", "user"} {
		orig := tab.Intern(s)
		got := restored.Intern(s)
		require.Equal(t, orig, got, "symbol assignment must survive a marshal/unmarshal round trip")
	}
}

func TestInternIsConcurrencySafe(t *testing.T) {
	tab := New()
	var wg sync.WaitGroup
	words := []string{"a", "b", "c", "d", "e"}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tab.Intern(words[i%len(words)])
		}(i)
	}
	wg.Wait()

	require.Len(t, tab.vec, len(words)+1, "concurrent interning of the same small vocabulary must not duplicate symbols (+1 for New's reserved empty string)")
}
