package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/relaybroker/broker/pkg/classify"
	"github.com/relaybroker/broker/pkg/config"
	"github.com/relaybroker/broker/pkg/learning"
	"github.com/relaybroker/broker/pkg/outcome"
	"github.com/relaybroker/broker/pkg/persona"
	"github.com/relaybroker/broker/pkg/prompt"
	"github.com/relaybroker/broker/pkg/reasoner"
	"github.com/relaybroker/broker/pkg/transport"
)

// ErrQueueFull is returned by Enqueue when a key's pending queue is at
// its soft bound and the new item's priority cannot displace anything
// (§4.5, §8 boundary: "no third outcome").
var ErrQueueFull = errors.New("dispatch queue full")

// LessonStore is the subset of *learning.Store the pipeline needs.
type LessonStore interface {
	QueryLessons(ctx context.Context, filter learning.LessonFilter) ([]learning.Lesson, error)
	SaveLesson(ctx context.Context, lesson learning.Lesson) (int64, error)
	SaveTaskHistory(ctx context.Context, entry learning.TaskHistory) (int64, error)
	Degraded() bool
}

// PersonaLookup resolves a persona id to its profile.
type PersonaLookup interface {
	Get(id string) (*persona.Persona, bool)
}

// Pipeline is the Dispatch Pipeline (C5): one cooperative worker per
// serialization key, each draining its key's queue to empty before
// exiting (§4.5, §5).
type Pipeline struct {
	classifier *classify.Classifier
	personas   PersonaLookup
	store      LessonStore
	analyzer   *outcome.Analyzer
	reasoner   reasoner.Reasoner
	outbound   transport.Outbound
	defaults   config.Defaults

	mu        sync.Mutex
	queues    map[string]*keyQueue
	cancels   map[string]context.CancelFunc
	seq       int64
	draining  bool
	workersWG sync.WaitGroup
}

// New builds a Pipeline over the given components.
func New(
	classifier *classify.Classifier,
	personas PersonaLookup,
	store LessonStore,
	analyzer *outcome.Analyzer,
	r reasoner.Reasoner,
	outbound transport.Outbound,
	defaults config.Defaults,
) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		personas:   personas,
		store:      store,
		analyzer:   analyzer,
		reasoner:   r,
		outbound:   outbound,
		defaults:   defaults,
		queues:     make(map[string]*keyQueue),
		cancels:    make(map[string]context.CancelFunc),
	}
}

// Enqueue admits item into its serialization key's queue, applying the
// §4.5 backpressure rule, and starts a worker for the key if one is not
// already active. On rejection it sends the busy reply itself and
// returns ErrQueueFull.
func (p *Pipeline) Enqueue(ctx context.Context, item *QueueItem) error {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return errors.New("pipeline is shutting down")
	}

	item.EnqueuedAt = time.Now().UTC()
	item.Status = StatusPending
	p.seq++
	item.seq = p.seq

	q, ok := p.queues[item.SerializationKey]
	if !ok {
		q = &keyQueue{}
		p.queues[item.SerializationKey] = q
	}

	displaced, admitted := q.admit(item, p.softBound())
	startWorker := admitted && !q.active
	if startWorker {
		q.active = true
	}
	p.mu.Unlock()

	if displaced != nil {
		displaced.Status = StatusFailed
		displaced.Reason = "displaced by higher-priority item"
		p.reply(ctx, displaced, formatBusyReply())
	}

	if !admitted {
		item.Status = StatusFailed
		item.Reason = "queue full"
		p.reply(ctx, item, formatBusyReply())
		return ErrQueueFull
	}

	if startWorker {
		p.workersWG.Add(1)
		go p.runWorker(item.SerializationKey)
	}
	return nil
}

func (p *Pipeline) softBound() int {
	if p.defaults.QueueSoftBound > 0 {
		return p.defaults.QueueSoftBound
	}
	return 16
}

// runWorker drains key's pending queue to empty, one item at a time
// (at most one running item per key, §8 quantified invariant), then
// exits. A fresh worker is spawned by the next Enqueue that finds none
// active.
func (p *Pipeline) runWorker(key string) {
	defer p.workersWG.Done()
	for {
		p.mu.Lock()
		q := p.queues[key]
		item, ok := q.popFront()
		if !ok {
			q.active = false
			p.mu.Unlock()
			return
		}
		q.running = item
		p.mu.Unlock()

		p.runItem(item)

		p.mu.Lock()
		q.running = nil
		p.mu.Unlock()
	}
}

func (p *Pipeline) runItem(item *QueueItem) {
	item.Status = StatusRunning
	item.StartedAt = time.Now().UTC()

	ctx, cancel := context.WithTimeout(context.Background(), p.itemDeadline())
	p.mu.Lock()
	p.cancels[item.ID] = cancel
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.cancels, item.ID)
		p.mu.Unlock()
		cancel()
	}()

	per, decision, verdict := p.preHook(item)
	switch verdict {
	case verdictBlocked:
		item.Status = StatusBlocked
		item.Reason = decision.Reason
		p.reply(ctx, item, formatBlockedReply(decision.Reason, decision.MatchedPattern))
		return
	case verdictNeedsApproval:
		item.Status = StatusBlocked
		item.Reason = "awaiting approval"
		p.reply(ctx, item, formatApprovalReply(decision.Reason, decision.MatchedPattern))
		return
	}

	lessons := p.relevantLessons(ctx, per, item)
	enrichedPrompt := prompt.Compose(per, lessons, item.PayloadText)

	result, analysis := p.executeWithRetry(ctx, item, enrichedPrompt)

	p.postHook(ctx, item, per, lessons, result, analysis)
}

// preHookVerdict is preHook's classification of what runItem must do
// with an item before it may reach the reasoner (§4.5 step 1-4).
type preHookVerdict int

const (
	verdictProceed preHookVerdict = iota
	verdictBlocked
	verdictNeedsApproval
)

// preHook resolves the persona and classifies the payload. BLACKLISTED
// and RED both halt the item before execution, but RED alone requires
// an approval request rather than a flat block (§4.4, §4.5 step 2-3).
func (p *Pipeline) preHook(item *QueueItem) (*persona.Persona, classify.Decision, preHookVerdict) {
	per, ok := p.personas.Get(item.PersonaID)
	if !ok {
		per = &persona.Persona{ID: item.PersonaID}
	}

	decision := p.classifier.Classify(item.PayloadText, item.PersonaID)
	props := decision.Level.Properties()
	switch {
	case props.AutoExecute:
		return per, decision, verdictProceed
	case props.RequiresApproval:
		return per, decision, verdictNeedsApproval
	default:
		return per, decision, verdictBlocked
	}
}

// relevantLessons queries the Learning Store scoped by the persona's
// memory scope and the payload's kind and text, honoring the configured
// query limit. A degraded store yields no lessons rather than an error
// (§4.1, §4.5 step 4, §7).
func (p *Pipeline) relevantLessons(ctx context.Context, per *persona.Persona, item *QueueItem) []learning.Lesson {
	limit := p.defaults.LessonQueryLimit
	if limit <= 0 {
		limit = 3
	}
	filter := learning.LessonFilter{
		Limit:      limit,
		TaskType:   string(item.PayloadKind),
		SearchText: item.PayloadText,
	}
	if per.MemoryScope != "" {
		filter.Category = per.MemoryScope
	}
	lessons, err := p.store.QueryLessons(ctx, filter)
	if err != nil {
		slog.Warn("lesson lookup failed, proceeding without enrichment",
			"item", item.ID, "persona", item.PersonaID, "error", err)
		return nil
	}
	return lessons
}

// execute invokes the reasoner with a deadline-bound context, forwarding
// progress events to the transport no more often than ProgressMinInterval.
func (p *Pipeline) execute(ctx context.Context, item *QueueItem, enrichedPrompt string) reasoner.Result {
	var lastSent time.Time
	minInterval := p.defaults.ProgressMinInterval

	sink := func(ev reasoner.ProgressEvent) {
		now := time.Now()
		if !lastSent.IsZero() && now.Sub(lastSent) < minInterval {
			return
		}
		lastSent = now
		if err := p.outbound.Send(ctx, item.ChatID, ev.Text); err != nil {
			slog.Warn("progress send failed", "item", item.ID, "error", err)
		}
	}

	res, err := p.reasoner.Execute(ctx, enrichedPrompt, reasoner.Options{}, sink)
	if err != nil {
		return reasoner.Result{Success: false, Error: err.Error()}
	}
	return res
}

// executeWithRetry runs the reasoner and analyzes the outcome. While the
// failure is retry-eligible it retries, sending a transient progress
// reply before each attempt, up to the configured retry bound (default
// 1 per item) before returning the final result and its analysis (§7).
func (p *Pipeline) executeWithRetry(ctx context.Context, item *QueueItem, enrichedPrompt string) (reasoner.Result, outcome.Analysis) {
	bound := p.defaults.RetryBound
	if bound <= 0 {
		bound = 1
	}

	result := p.execute(ctx, item, enrichedPrompt)
	analysis := p.analyzeResult(ctx, item, result)

	for attempt := 1; !result.Success && analysis.RetryEligible && attempt <= bound; attempt++ {
		p.reply(ctx, item, formatRetryingReply(result.Error, attempt, bound))
		result = p.execute(ctx, item, enrichedPrompt)
		analysis = p.analyzeResult(ctx, item, result)
	}

	return result, analysis
}

func (p *Pipeline) analyzeResult(ctx context.Context, item *QueueItem, result reasoner.Result) outcome.Analysis {
	return p.analyzer.Analyze(ctx, outcome.Result{
		Success: result.Success,
		Output:  result.Output,
		Error:   result.Error,
	}, item.PayloadText)
}

// postHook records task history with the ids of the lessons consulted,
// extracts a lesson on failure when warranted, and emits the final
// reply with one retry on send failure (§4.5 step 6-9, §7).
func (p *Pipeline) postHook(ctx context.Context, item *QueueItem, per *persona.Persona, lessons []learning.Lesson, result reasoner.Result, analysis outcome.Analysis) {
	item.CompletedAt = time.Now().UTC()
	duration := item.CompletedAt.Sub(item.StartedAt).Milliseconds()

	if result.Success {
		item.Status = StatusCompleted
	} else {
		item.Status = StatusFailed
		item.Reason = result.Error
	}

	lessonIDs := make([]int64, len(lessons))
	for i, l := range lessons {
		lessonIDs[i] = l.ID
	}

	history := learning.TaskHistory{
		TaskType:   string(item.PayloadKind),
		PersonaID:  item.PersonaID,
		Category:   per.MemoryScope,
		ChatID:     item.ChatID,
		Success:    result.Success,
		DurationMs: duration,
		Output:     result.Output,
		LessonIDs:  lessonIDs,
	}
	if id, err := p.store.SaveTaskHistory(ctx, history); err != nil {
		slog.Warn("task history save failed", "item", item.ID, "error", err)
	} else {
		history.ID = id
	}

	if !result.Success && analysis.FailureClass != "" {
		p.extractLesson(ctx, item, per, result, analysis)
	}

	reply := p.formatReply(result, analysis)
	p.reply(ctx, item, reply)
}

func (p *Pipeline) formatReply(result reasoner.Result, analysis outcome.Analysis) string {
	maxBytes := p.defaults.ReplyMaxBytes
	if maxBytes <= 0 {
		maxBytes = 4000
	}
	if result.Success {
		return truncateReply(result.Output, maxBytes)
	}
	return truncateReply(formatFailureReply(result.Error, analysis.RetryEligible), maxBytes)
}

func (p *Pipeline) extractLesson(ctx context.Context, item *QueueItem, per *persona.Persona, result reasoner.Result, analysis outcome.Analysis) {
	lesson := learning.Lesson{
		TaskType:        string(item.PayloadKind),
		Category:        per.MemoryScope,
		TaskDescription: item.PayloadText,
		Success:         false,
		ErrorMessage:    result.Error,
		LessonSummary:   fmt.Sprintf("%s failure: %s", analysis.FailureClass, result.Error),
	}
	if analysis.RememberedSolution != nil {
		lesson.Solution = analysis.RememberedSolution.Solution
	}
	if _, err := p.store.SaveLesson(ctx, lesson); err != nil {
		slog.Warn("lesson save failed", "item", item.ID, "error", err)
	}
}

// reply sends text to item's chat, retrying once on failure before
// giving up silently (§7: "retry sending once, then record and proceed").
func (p *Pipeline) reply(ctx context.Context, item *QueueItem, text string) {
	if err := p.outbound.Send(ctx, item.ChatID, text); err != nil {
		if err2 := p.outbound.Send(ctx, item.ChatID, text); err2 != nil {
			slog.Warn("reply delivery failed after retry", "item", item.ID, "chat", item.ChatID, "error", err2)
		}
	}
}

func (p *Pipeline) itemDeadline() time.Duration {
	if p.defaults.ItemDeadline > 0 {
		return p.defaults.ItemDeadline
	}
	return 10 * time.Minute
}

// Cancel cancels item by id: a running item's context is canceled, a
// still-pending item is simply dropped from its key's queue (§4.5).
func (p *Pipeline) Cancel(id string) bool {
	p.mu.Lock()
	if cancel, ok := p.cancels[id]; ok {
		p.mu.Unlock()
		cancel()
		return true
	}
	for _, q := range p.queues {
		if q.removePending(id) {
			p.mu.Unlock()
			return true
		}
	}
	p.mu.Unlock()
	return false
}

// Shutdown stops admitting new items and waits for in-flight workers to
// drain, up to the configured shutdown-drain window.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.draining = true
	p.mu.Unlock()

	drain := p.defaults.ShutdownDrain
	if drain <= 0 {
		drain = 30 * time.Second
	}

	done := make(chan struct{})
	go func() {
		p.workersWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(drain):
		return errors.New("shutdown drain window exceeded")
	case <-ctx.Done():
		return ctx.Err()
	}
}
