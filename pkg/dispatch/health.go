package dispatch

import "time"

// WorkerHealth reports the state of one serialization key's worker
// (§SPEC_FULL ambient health reporting).
type WorkerHealth struct {
	SerializationKey string
	Active           bool
	PendingCount     int
	RunningItemID    string
	RunningSince     time.Time
}

// PoolHealth is a snapshot of the whole dispatch pipeline, exposed to the
// status endpoint.
type PoolHealth struct {
	Workers        []WorkerHealth
	TotalPending   int
	TotalRunning   int
	LearningStoreDegraded bool
}

// Health builds a PoolHealth snapshot under the pipeline's lock.
func (p *Pipeline) Health() PoolHealth {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := PoolHealth{LearningStoreDegraded: p.store.Degraded()}
	for key, q := range p.queues {
		wh := WorkerHealth{
			SerializationKey: key,
			Active:           q.active,
			PendingCount:     len(q.pending),
		}
		if q.running != nil {
			wh.RunningItemID = q.running.ID
			wh.RunningSince = q.running.StartedAt
		}
		h.Workers = append(h.Workers, wh)
		h.TotalPending += len(q.pending)
		if q.running != nil {
			h.TotalRunning++
		}
	}
	return h
}
