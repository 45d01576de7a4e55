package feed

import (
	"sync"

	"github.com/matthewbaird/estatein/internal/types"
)

// Subscription is one open live view of a collection. Frames keeps at most
// one pending frame: a slow reader skips intermediate snapshots and always
// receives the newest one.
type Subscription struct {
	hub        *Hub
	collection string
	order      types.Order

	mu      sync.Mutex
	frames  chan Frame
	lastSeq uint64
	closed  bool

	done      chan struct{}
	closeOnce sync.Once
}

// Collection returns the subscribed collection name.
func (s *Subscription) Collection() string { return s.collection }

// Order returns the snapshot ordering.
func (s *Subscription) Order() types.Order { return s.order }

// Frames returns the delivery channel. It is closed when the subscription
// ends.
func (s *Subscription) Frames() <-chan Frame { return s.frames }

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.remove(s)
		s.mu.Lock()
		s.closed = true
		close(s.frames)
		s.mu.Unlock()
		close(s.done)
	})
}

// deliver replaces any pending frame with f. Frames read before an already
// delivered one are discarded so a slow refresh never overwrites a newer
// snapshot.
func (s *Subscription) deliver(seq uint64, f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq <= s.lastSeq {
		return
	}
	s.lastSeq = seq
	select {
	case <-s.frames:
	default:
	}
	s.frames <- f
}
