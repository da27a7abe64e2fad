package search

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	opIndex  = "index"
	opDelete = "delete"
)

type repairOp struct {
	kind     string
	doc      *ProductDocument
	id       string
	attempts int
}

// RepairQueue retries index writes that failed on the synchronous path.
// Postgres stays the source of truth, so a dropped index write only makes
// the document stale until the retry lands or gives up.
type RepairQueue struct {
	engine      *Engine
	logger      *slog.Logger
	ops         chan repairOp
	maxAttempts int
	backoff     time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
	once   sync.Once
}

// NewRepairQueue creates a repair queue with the given buffer size.
func NewRepairQueue(engine *Engine, logger *slog.Logger, buffer int) *RepairQueue {
	if buffer <= 0 {
		buffer = 256
	}
	return &RepairQueue{
		engine:      engine,
		logger:      logger,
		ops:         make(chan repairOp, buffer),
		maxAttempts: 5,
		backoff:     2 * time.Second,
	}
}

// Start launches the background worker. It runs until Stop is called.
func (q *RepairQueue) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.run(ctx)
	}()
}

// Stop shuts the worker down and waits for it to drain the current op.
func (q *RepairQueue) Stop() {
	q.once.Do(func() {
		if q.cancel != nil {
			q.cancel()
		}
		q.wg.Wait()
	})
}

// EnqueueIndex schedules a failed index write for retry. When the buffer is
// full the op is dropped and logged; a full reindex recovers the document.
func (q *RepairQueue) EnqueueIndex(doc *ProductDocument) {
	q.enqueue(repairOp{kind: opIndex, doc: doc})
}

// EnqueueDelete schedules a failed index delete for retry.
func (q *RepairQueue) EnqueueDelete(id string) {
	q.enqueue(repairOp{kind: opDelete, id: id})
}

func (q *RepairQueue) enqueue(op repairOp) {
	select {
	case q.ops <- op:
	default:
		q.logger.Warn("search repair queue full, dropping op",
			slog.String("kind", op.kind),
			slog.String("id", q.opID(op)),
		)
	}
}

func (q *RepairQueue) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-q.ops:
			q.process(ctx, op)
		}
	}
}

func (q *RepairQueue) process(ctx context.Context, op repairOp) {
	var err error
	switch op.kind {
	case opIndex:
		err = q.engine.Index(ctx, op.doc)
	case opDelete:
		err = q.engine.Delete(ctx, op.id)
	}

	if err == nil {
		q.logger.Info("search repair succeeded",
			slog.String("kind", op.kind),
			slog.String("id", q.opID(op)),
			slog.Int("attempt", op.attempts+1),
		)
		return
	}

	op.attempts++
	if op.attempts >= q.maxAttempts {
		q.logger.Error("search repair gave up",
			slog.String("kind", op.kind),
			slog.String("id", q.opID(op)),
			slog.Int("attempts", op.attempts),
			slog.String("error", err.Error()),
		)
		return
	}

	q.logger.Warn("search repair failed, will retry",
		slog.String("kind", op.kind),
		slog.String("id", q.opID(op)),
		slog.Int("attempt", op.attempts),
		slog.String("error", err.Error()),
	)

	select {
	case <-ctx.Done():
	case <-time.After(q.backoff * time.Duration(op.attempts)):
		q.enqueue(op)
	}
}

func (q *RepairQueue) opID(op repairOp) string {
	if op.kind == opIndex && op.doc != nil {
		return op.doc.ID
	}
	return op.id
}
