package discovery

import "context"

// ChanSink is a Sink backed by a bounded channel. Capacity 0 makes Send
// block until something is actively receiving, which is exactly the
// backpressure behavior discovery's watch loop is expected to honor: a slow
// or absent consumer stalls the loop instead of losing events.
type ChanSink struct {
	ch chan Change
}

// NewChanSink creates a ChanSink with the given buffer capacity.
func NewChanSink(capacity int) *ChanSink {
	if capacity < 0 {
		capacity = 0
	}
	return &ChanSink{ch: make(chan Change, capacity)}
}

func (s *ChanSink) Send(ctx context.Context, c Change) error {
	select {
	case s.ch <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// C returns the channel Changes are delivered on.
func (s *ChanSink) C() <-chan Change {
	return s.ch
}

// Close releases the channel. Only call this once nothing will Send again.
func (s *ChanSink) Close() {
	close(s.ch)
}
