// Package dedupe recognizes retried submissions by their client token.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/jmscore/internal/domain/model"
)

const defaultMaxSize = 10_000

// Deduper records retry keys to drop repeated deliveries.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an id so a failed submission can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// RetryKey returns the key under which a retried submission is
// recognized. Submissions without a RetryID are never duplicates, so
// identical games played twice are both applied.
func RetryKey(s *model.Submission) (string, bool) {
	if s.RetryID == "" {
		return "", false
	}
	return s.PlayerID + "\x00" + s.RetryID, true
}

// inMemoryDeduper keeps at most maxSize ids and evicts the oldest first.
// maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front = newest
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}

	d.seen[id] = d.order.PushFront(id)
	d.size.Add(1)
	return false
}

// Unrecord removes an id from the seen set.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, exists := d.seen[id]; exists {
		d.order.Remove(el)
		delete(d.seen, id)
		d.size.Add(-1)
	}
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	el := d.order.Back()
	if el == nil {
		return
	}
	d.order.Remove(el)
	delete(d.seen, el.Value.(string))
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// noop never reports a duplicate.
type noop struct{}

// Disabled returns a Deduper that records nothing.
func Disabled() Deduper { return noop{} }

func (noop) SeenAndRecord(context.Context, string) bool { return false }
func (noop) Unrecord(context.Context, string)           {}
func (noop) Size() int64                                { return 0 }
