package services

import (
	"sync"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

// frontier is the shared work queue of a traversal. Entries are routed
// into one queue per source system, but a single pending count covers
// queued entries and in-flight expansions across every product: an
// expansion on one product may push entries for the other, so no queue
// may drain before all work everywhere has finished.
type frontier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queues  map[domain.SourceSystem][]domain.FrontierEntry
	pending int
	closed  bool
}

func newFrontier() *frontier {
	f := &frontier{
		queues: make(map[domain.SourceSystem][]domain.FrontierEntry),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Begin reserves one unit of in-flight work before any entry exists.
// Seeding holds such a reservation so workers do not observe an empty,
// drained frontier while the first listing call is still in flight.
func (f *frontier) Begin() {
	f.mu.Lock()
	f.pending++
	f.mu.Unlock()
}

// Push queues an entry for expansion. It reports false once the
// frontier has closed; late discoveries after an abort are dropped.
func (f *frontier) Push(entry domain.FrontierEntry) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	f.queues[entry.Key.System] = append(f.queues[entry.Key.System], entry)
	f.pending++
	f.cond.Broadcast()
	return true
}

// Pop blocks until an entry for the given system is available, the
// frontier closes, or all pending work drains. A popped entry stays
// counted as in-flight until the caller releases it with Done.
func (f *frontier) Pop(system domain.SourceSystem) (domain.FrontierEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if f.closed {
			return domain.FrontierEntry{}, false
		}
		if queue := f.queues[system]; len(queue) > 0 {
			entry := queue[0]
			f.queues[system] = queue[1:]
			return entry, true
		}
		if f.pending == 0 {
			return domain.FrontierEntry{}, false
		}
		f.cond.Wait()
	}
}

// Done releases one unit of work, either a popped entry after its
// expansion or a Begin reservation. Releasing the last unit wakes every
// blocked worker so they can observe the drained frontier and exit.
func (f *frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pending--
	if f.pending <= 0 {
		f.cond.Broadcast()
	}
}

// Close stops intake: queued entries are no longer handed out and
// further pushes are dropped. In-flight expansions finish on their own.
func (f *frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.cond.Broadcast()
}

// Queued reports the number of entries awaiting a worker.
func (f *frontier) Queued() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := 0
	for _, queue := range f.queues {
		total += len(queue)
	}
	return total
}
