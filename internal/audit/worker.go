package audit

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/tenantdesk/tenantdesk/internal/domain"
	"github.com/tenantdesk/tenantdesk/internal/metrics"
	"github.com/tenantdesk/tenantdesk/internal/models"
)

const defaultQueueSize = 1000

// Worker buffers audit entries and writes them from a single goroutine,
// keeping admin mutations off the audit write path.
type Worker struct {
	auditor domain.Auditor
	log     *logrus.Logger
	jobs    chan models.LogEntry
}

// NewWorker creates a Worker with the given queue capacity.
func NewWorker(auditor domain.Auditor, log *logrus.Logger, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Worker{
		auditor: auditor,
		log:     log,
		jobs:    make(chan models.LogEntry, queueSize),
	}
}

// Enqueue adds an entry. Non-blocking; drops the entry if the queue is full.
func (w *Worker) Enqueue(entry models.LogEntry) {
	select {
	case w.jobs <- entry:
		metrics.AuditQueueDepth.Set(float64(len(w.jobs)))
	default:
		w.log.WithField("action", entry.Action).Warn("audit queue full, dropping entry")
	}
}

// Run processes entries until the context is cancelled, then drains
// whatever is still queued.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case entry := <-w.jobs:
			w.process(entry)
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case entry := <-w.jobs:
			w.process(entry)
		default:
			return
		}
	}
}

func (w *Worker) process(entry models.LogEntry) {
	w.auditor.Write(context.Background(), entry)
	metrics.AuditQueueDepth.Set(float64(len(w.jobs)))
}
