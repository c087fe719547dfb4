package queue

import (
	"context"
	"fmt"
	"sync"

	"sheetinsight-backend/internal/shared/telemetry"
)

// Handler processes one delivered message.
type Handler func(ctx context.Context, msg Message) error

// LocalQueue is an in-process worker pool. Concurrency is bounded by the
// worker count; the backlog is not, so Send never rejects work.
type LocalQueue struct {
	workers int
	handler Handler

	mu      sync.Mutex
	ready   *sync.Cond
	backlog []Message
	closed  bool
	wg      sync.WaitGroup
	started sync.Once
}

// NewLocalQueue creates a pool of workers.
func NewLocalQueue(workers int, handler Handler) *LocalQueue {
	if workers <= 0 {
		workers = 1
	}
	q := &LocalQueue{workers: workers, handler: handler}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// Start launches the workers. Calling it more than once has no effect.
func (q *LocalQueue) Start() {
	q.started.Do(func() {
		telemetry.Info("worker.pool_started", map[string]any{"workers": q.workers})
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.worker(i)
		}
	})
}

// Send appends msg to the backlog without blocking.
func (q *LocalQueue) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.backlog = append(q.backlog, msg)
	q.ready.Signal()
	return nil
}

// Close stops accepting work and waits for started workers to drain the backlog.
func (q *LocalQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.ready.Broadcast()
	q.mu.Unlock()
	q.wg.Wait()
}

// Pending returns the number of queued messages.
func (q *LocalQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

func (q *LocalQueue) next() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.backlog) == 0 && !q.closed {
		q.ready.Wait()
	}
	if len(q.backlog) == 0 {
		return Message{}, false
	}
	msg := q.backlog[0]
	q.backlog[0] = Message{}
	q.backlog = q.backlog[1:]
	return msg, true
}

func (q *LocalQueue) worker(id int) {
	defer q.wg.Done()
	for {
		msg, ok := q.next()
		if !ok {
			return
		}
		q.handle(id, msg)
	}
}

func (q *LocalQueue) handle(id int, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("worker.panic", map[string]any{
				"worker":      id,
				"analysis_id": msg.AnalysisID,
				"request_id":  msg.RequestID,
				"panic":       fmt.Sprint(r),
			})
		}
	}()
	if q.handler == nil {
		return
	}
	if err := q.handler(context.Background(), msg); err != nil {
		telemetry.Error("worker.message_failed", map[string]any{
			"worker":      id,
			"analysis_id": msg.AnalysisID,
			"request_id":  msg.RequestID,
			"error":       err.Error(),
		})
	}
}

var _ Client = (*LocalQueue)(nil)
