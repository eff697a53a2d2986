package processor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"compset/server/config"
	"compset/server/internal/database"
	"compset/server/internal/errs"
	"compset/server/internal/metrics"
	"compset/server/internal/models"
	"compset/server/internal/queue"
)

// Transactor is the part of *gorm.DB the processor needs
type Transactor interface {
	Transaction(fc func(*gorm.DB) error, opts ...*sql.TxOptions) error
}

// ImportRecorder receives the outcome of every processed batch
type ImportRecorder interface {
	UnitImport(outcome string, units int)
}

// BatchProcessor writes unit import batches pulled from the queue
type BatchProcessor struct {
	db        Transactor
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.UnitQueue
	recorder  ImportRecorder
	jobs      chan *models.UnitImportBatch
	waitGroup sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(db Transactor, queue *queue.UnitQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		db:     db,
		queue:  queue,
		config: config,
		logger: logger,
		jobs:   make(chan *models.UnitImportBatch),
		ctx:    ctx,
		cancel: cancel,
	}
}

// WithRecorder attaches an outcome recorder, usually *metrics.Metrics
func (p *BatchProcessor) WithRecorder(r ImportRecorder) *BatchProcessor {
	p.recorder = r
	return p
}

// Start subscribes to the queue and launches the workers
func (p *BatchProcessor) Start() {
	workers := p.config.BatchProcessing.ProcessorCount
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.waitGroup.Add(1)
		go p.processLoop()
	}

	p.queue.Subscribe(func(batch *models.UnitImportBatch) error {
		select {
		case p.jobs <- batch:
			return nil
		case <-p.ctx.Done():
			return p.ctx.Err()
		}
	})
}

// Stop gracefully shuts down the processor
func (p *BatchProcessor) Stop() {
	p.cancel()
	p.waitGroup.Wait()
}

func (p *BatchProcessor) processLoop() {
	defer p.waitGroup.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case batch := <-p.jobs:
			if err := p.processBatch(batch); err != nil {
				p.logger.WithError(err).WithField("property_id", batch.PropertyID).Error("Unit import batch dropped")
			}
		}
	}
}

// processBatch writes one batch in a transaction, retrying transient failures
func (p *BatchProcessor) processBatch(batch *models.UnitImportBatch) error {
	attempts := p.config.BatchProcessing.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			p.logger.Infof("Retrying unit batch, attempt %d of %d", attempt, attempts)
			select {
			case <-time.After(delay):
			case <-p.ctx.Done():
				p.record(metrics.OutcomeError, batch)
				return fmt.Errorf("processor stopped: %w", p.ctx.Err())
			}
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := database.UpsertUnits(tx, batch); err != nil {
				return fmt.Errorf("failed to upsert unit batch: %w", err)
			}
			return nil
		})

		if err == nil {
			p.logger.WithFields(logrus.Fields{
				"property_id": batch.PropertyID,
				"units":       len(batch.Units),
			}).Info("Processed unit import batch")
			p.record(metrics.OutcomeSuccess, batch)
			return nil
		}

		if permanent(err) {
			p.record(metrics.OutcomeInvalid, batch)
			return err
		}
		p.logger.WithError(err).Warn("Unit batch processing failed")
	}

	p.record(metrics.OutcomeError, batch)
	return fmt.Errorf("failed to process batch after %d attempts: %w", attempts, err)
}

// permanent errors fail the same way on every attempt
func permanent(err error) bool {
	return errors.Is(err, errs.ErrNotFound) || errs.IsValidation(err)
}

func (p *BatchProcessor) record(outcome string, batch *models.UnitImportBatch) {
	if p.recorder != nil {
		p.recorder.UnitImport(outcome, len(batch.Units))
	}
}
