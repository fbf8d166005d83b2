package walsidecar

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakePersister struct {
	mu    sync.Mutex
	saves [][]byte
}

func (p *fakePersister) Save(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves = append(p.saves, data)
	return nil
}

func (p *fakePersister) Load() ([]byte, error) { return nil, nil }

func (p *fakePersister) saveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.saves)
}

func TestDebouncedSaverCoalescesRepeatedDirtySignals(t *testing.T) {
	persister := &fakePersister{}
	var snapCalls int
	var mu sync.Mutex
	saver := NewDebouncedSaver(persister, 20*time.Millisecond, func() ([]byte, error) {
		mu.Lock()
		snapCalls++
		mu.Unlock()
		return []byte("snapshot"), nil
	})

	go saver.Run()

	saver.MarkDirty()
	saver.MarkDirty()
	saver.MarkDirty()

	require.Eventually(t, func() bool { return persister.saveCount() >= 1 }, time.Second, 5*time.Millisecond)
	saver.Close()

	mu.Lock()
	calls := snapCalls
	mu.Unlock()
	require.LessOrEqual(t, calls, 2, "three rapid MarkDirty calls inside one debounce window must coalesce to at most the window flush plus the close-time flush")
}

func TestDebouncedSaverCloseFlushesEvenWithoutPriorDirty(t *testing.T) {
	persister := &fakePersister{}
	saver := NewDebouncedSaver(persister, time.Hour, func() ([]byte, error) {
		return []byte("snapshot"), nil
	})

	go saver.Run()
	saver.Close()

	require.Equal(t, 1, persister.saveCount(), "Close must flush once even if the debounce window never elapsed")
}
