package dispatch

import "sort"

// keyQueue is the pending-item FIFO (modulated by priority) for one
// serialization key, plus the worker-running flag the pipeline mutex
// guards (§4.5, §5).
type keyQueue struct {
	pending []*QueueItem
	running *QueueItem
	active  bool // a worker goroutine is currently draining this key
}

// insert adds item to pending in priority order: lower numeric priority
// first; ties preserve enqueue order (§4.5 "priority affects pending
// ordering only").
func (q *keyQueue) insert(item *QueueItem) {
	q.pending = append(q.pending, item)
	sort.SliceStable(q.pending, func(i, j int) bool {
		if q.pending[i].Priority != q.pending[j].Priority {
			return q.pending[i].Priority < q.pending[j].Priority
		}
		return q.pending[i].seq < q.pending[j].seq
	})
}

// admit applies the §4.5 backpressure rule for a queue already at
// softBound: item is admitted by displacing the oldest pending item with
// strictly lower priority (higher numeric value) than item, or rejected.
// Returns the displaced item (nil if item was appended without
// displacement or was rejected) and whether item was admitted.
func (q *keyQueue) admit(item *QueueItem, softBound int) (displaced *QueueItem, admitted bool) {
	if len(q.pending) < softBound {
		q.insert(item)
		return nil, true
	}

	// find the oldest (lowest seq) pending item with lower priority
	// (higher numeric value) than the incoming item.
	var candidateIdx = -1
	for i, p := range q.pending {
		if p.Priority > item.Priority {
			if candidateIdx == -1 || p.seq < q.pending[candidateIdx].seq {
				candidateIdx = i
			}
		}
	}
	if candidateIdx == -1 {
		return nil, false
	}

	displaced = q.pending[candidateIdx]
	q.pending = append(q.pending[:candidateIdx], q.pending[candidateIdx+1:]...)
	q.insert(item)
	return displaced, true
}

// popFront removes and returns the highest-priority pending item.
func (q *keyQueue) popFront() (*QueueItem, bool) {
	if len(q.pending) == 0 {
		return nil, false
	}
	item := q.pending[0]
	q.pending = q.pending[1:]
	return item, true
}

// removePending drops item from pending by id, for cancellation of a
// not-yet-running item (§4.5 "cancellation of a pending item simply
// drops it").
func (q *keyQueue) removePending(id string) bool {
	for i, p := range q.pending {
		if p.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}
