package walsidecar

import (
	"time"

	"github.com/zoravur/spooky-engine/collab"
	"github.com/zoravur/spooky-engine/enginelog"
	"go.uber.org/zap"
)

// DebouncedSaver coalesces repeated "dirty" signals into a single
// Persister.Save call after a quiet window, mirroring the teacher/
// original's debounce-coalescing save loop.
type DebouncedSaver struct {
	Persister collab.Persister
	Debounce  time.Duration
	Snapshot  func() ([]byte, error)

	dirty    chan struct{}
	shutdown chan struct{}
	done     chan struct{}
}

// NewDebouncedSaver builds a saver; call Run in its own goroutine, MarkDirty
// whenever the circuit mutates, and Close to flush and stop.
func NewDebouncedSaver(p collab.Persister, debounce time.Duration, snapshot func() ([]byte, error)) *DebouncedSaver {
	return &DebouncedSaver{
		Persister: p,
		Debounce:  debounce,
		Snapshot:  snapshot,
		dirty:     make(chan struct{}, 1),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// MarkDirty signals that a save is needed; non-blocking.
func (s *DebouncedSaver) MarkDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// Run blocks, saving once a Debounce window after the first MarkDirty since
// the previous save (later MarkDirty calls do not restart the window),
// until Close is called. Call in its own goroutine.
func (s *DebouncedSaver) Run() {
	defer close(s.done)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-s.dirty:
			if timer == nil {
				timer = time.NewTimer(s.Debounce)
				timerC = timer.C
			}
		case <-timerC:
			s.flush()
			timer = nil
			timerC = nil
		case <-s.shutdown:
			if timer != nil {
				timer.Stop()
			}
			s.flush()
			return
		}
	}
}

func (s *DebouncedSaver) flush() {
	b, err := s.Snapshot()
	if err != nil {
		enginelog.L().Error("debounced saver: snapshot failed", zap.Error(err))
		return
	}
	if err := s.Persister.Save(b); err != nil {
		enginelog.L().Error("debounced saver: save failed", zap.Error(err))
	}
}

// Close signals shutdown and waits for the final flush to complete.
func (s *DebouncedSaver) Close() {
	close(s.shutdown)
	<-s.done
}
