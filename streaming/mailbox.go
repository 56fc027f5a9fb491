package streaming

// Mailbox is a bounded multi-producer, single-consumer queue. Workers Post
// results; the frame loop drains a capped number per tick.
type Mailbox[T any] struct {
	ch chan T
}

// NewMailbox returns a mailbox that buffers up to capacity items before
// Post blocks.
func NewMailbox[T any](capacity int) *Mailbox[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Mailbox[T]{ch: make(chan T, capacity)}
}

// Post delivers v, blocking while the mailbox is full.
func (m *Mailbox[T]) Post(v T) {
	m.ch <- v
}

// TryTake returns the oldest item without blocking.
func (m *Mailbox[T]) TryTake() (T, bool) {
	select {
	case v := <-m.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Len returns the number of undelivered items.
func (m *Mailbox[T]) Len() int { return len(m.ch) }
