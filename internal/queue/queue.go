package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"compset/server/internal/metrics"
	"compset/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Handler consumes one unit import batch
type Handler func(*models.UnitImportBatch) error

// Recorder is told about batches that were accepted but never dispatched
type Recorder interface {
	UnitImport(outcome string, units int)
}

// UnitQueue buffers unit import batches between the API and the batch
// processor. It is bounded twice: by the number of queued batches and,
// optionally, by the number of units those batches carry.
type UnitQueue struct {
	items     chan *models.UnitImportBatch
	done      chan struct{}
	unitLimit int
	pending   int
	closed    bool
	mu        sync.Mutex
	logger    *logrus.Logger
	recorder  Recorder
	handlers  []Handler
}

// NewUnitQueue creates a queue holding at most bufferSize batches
func NewUnitQueue(bufferSize int, logger *logrus.Logger) *UnitQueue {
	return &UnitQueue{
		items:  make(chan *models.UnitImportBatch, bufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// WithUnitLimit caps the units waiting in the queue. Zero disables the cap.
func (q *UnitQueue) WithUnitLimit(units int) *UnitQueue {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.unitLimit = units
	return q
}

// WithRecorder reports batches discarded by Close
func (q *UnitQueue) WithRecorder(r Recorder) *UnitQueue {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.recorder = r
	return q
}

// Push enqueues a batch without blocking. It fails with ErrQueueFull when
// either the batch or the unit budget is exhausted.
func (q *UnitQueue) Push(batch *models.UnitImportBatch) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	units := len(batch.Units)
	if q.unitLimit > 0 && q.pending+units > q.unitLimit {
		q.logger.WithFields(logrus.Fields{
			"property_id":   batch.PropertyID,
			"batch_size":    units,
			"pending_units": q.pending,
			"unit_limit":    q.unitLimit,
		}).Warn("Unit queue is at its unit limit")
		return ErrQueueFull
	}

	select {
	case q.items <- batch:
		q.pending += units
		q.logger.WithFields(logrus.Fields{
			"property_id":   batch.PropertyID,
			"batch_size":    units,
			"pending_units": q.pending,
		}).Debug("Queued unit batch")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler that will be called for each batch
func (q *UnitQueue) Subscribe(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start dispatches queued batches until Close
func (q *UnitQueue) Start() {
	go q.run()
}

func (q *UnitQueue) run() {
	for {
		select {
		case <-q.done:
			return
		case batch := <-q.items:
			q.dispatch(batch, q.take(batch))
		}
	}
}

// take releases the batch's units from the budget and snapshots the handlers
func (q *UnitQueue) take(batch *models.UnitImportBatch) []Handler {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending -= len(batch.Units)
	return q.handlers
}

func (q *UnitQueue) dispatch(batch *models.UnitImportBatch, handlers []Handler) {
	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).WithField("property_id", batch.PropertyID).Error("Handler failed to process unit batch")
		}
	}
}

// Close stops dispatching and rejects further pushes. Batches still waiting
// are discarded and reported to the recorder as dropped.
func (q *UnitQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)

	var dropped []*models.UnitImportBatch
drain:
	for {
		select {
		case batch := <-q.items:
			q.pending -= len(batch.Units)
			dropped = append(dropped, batch)
		default:
			break drain
		}
	}
	recorder := q.recorder
	q.mu.Unlock()

	for _, batch := range dropped {
		q.logger.WithFields(logrus.Fields{
			"property_id": batch.PropertyID,
			"batch_size":  len(batch.Units),
		}).Warn("Dropped queued unit batch on shutdown")
		if recorder != nil {
			recorder.UnitImport(metrics.OutcomeDropped, len(batch.Units))
		}
	}
	return nil
}

// Len returns the number of batches waiting
func (q *UnitQueue) Len() int {
	return len(q.items)
}

// PendingUnits returns the number of units in batches waiting for dispatch
func (q *UnitQueue) PendingUnits() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// IsClosed returns whether the queue has been closed
func (q *UnitQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
