package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Geometrically/fabricate/internal/observability"
)

// Queue decouples index upserts from the request path. Write endpoints push
// documents and return; a single worker drains the queue. Deletes bypass the
// queue so hidden projects disappear from results immediately.
type Queue struct {
	index  Index
	logger *slog.Logger
	jobs   chan ProjectDocument

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewQueue returns a queue with the given buffer capacity.
func NewQueue(index Index, logger *slog.Logger, capacity int) *Queue {
	return &Queue{
		index:  index,
		logger: logger,
		jobs:   make(chan ProjectDocument, capacity),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (q *Queue) Start() {
	go q.run()
}

// Stop drains outstanding jobs and waits for the worker to exit.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stop)
	})
	<-q.done
}

// Enqueue schedules an upsert. When the buffer is full the document is
// dropped with a log line; a periodic full reindex reconciles any loss.
func (q *Queue) Enqueue(doc ProjectDocument) {
	select {
	case q.jobs <- doc:
		observability.SearchIndexQueueDepth.Set(float64(len(q.jobs)))
	default:
		q.logger.Warn("search index queue full, dropping upsert",
			slog.String("project_id", doc.ProjectID),
		)
		observability.SearchIndexOps.WithLabelValues("upsert", "dropped").Inc()
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		select {
		case doc := <-q.jobs:
			q.process(doc)
		case <-q.stop:
			// Drain what is already buffered before exiting.
			for {
				select {
				case doc := <-q.jobs:
					q.process(doc)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) process(doc ProjectDocument) {
	observability.SearchIndexQueueDepth.Set(float64(len(q.jobs)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := q.index.UpsertProject(ctx, doc); err != nil {
		q.logger.Error("search index upsert failed",
			slog.String("project_id", doc.ProjectID),
			slog.String("error", err.Error()),
		)
		observability.SearchIndexOps.WithLabelValues("upsert", "error").Inc()
		return
	}
	observability.SearchIndexOps.WithLabelValues("upsert", "ok").Inc()
}
