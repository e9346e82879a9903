package auditagent

import "sync"

// workQueue holds the pending device identifiers for one run. Items are
// pushed once at construction; workers drain it with non-blocking pops and
// mark each consumed item done. waitUntilDrained returns only after the last
// in-flight task has been marked done, not merely after the last pop.
type workQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []string
	next  int
	done  int
}

func newWorkQueue(deviceIDs []string) *workQueue {
	q := &workQueue{items: append([]string(nil), deviceIDs...)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// tryPop returns the next pending identifier, or false when none remain. No
// item is ever returned twice.
func (q *workQueue) tryPop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.next >= len(q.items) {
		return "", false
	}
	id := q.items[q.next]
	q.next++
	return id, true
}

// markDone records completion of one popped item.
func (q *workQueue) markDone() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.done++
	if q.done >= len(q.items) {
		q.cond.Broadcast()
	}
}

// waitUntilDrained blocks until every pushed item has been marked done. An
// empty queue counts as drained.
func (q *workQueue) waitUntilDrained() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.done < len(q.items) {
		q.cond.Wait()
	}
}
