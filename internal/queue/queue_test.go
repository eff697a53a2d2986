package queue

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compset/server/internal/metrics"
	"compset/server/internal/models"
)

func batchFor(propertyID int64, unitNumbers ...string) *models.UnitImportBatch {
	units := make([]models.PropertyUnit, len(unitNumbers))
	for i, n := range unitNumbers {
		units[i] = models.PropertyUnit{UnitNumber: n}
	}
	return &models.UnitImportBatch{PropertyID: propertyID, Units: units}
}

func TestNewUnitQueue(t *testing.T) {
	logger := logrus.New()
	q := NewUnitQueue(10, logger)
	assert.NotNil(t, q)
	assert.Equal(t, 10, cap(q.items))
	assert.Equal(t, 0, q.PendingUnits())
	assert.False(t, q.IsClosed())
}

func TestUnitQueue_Push(t *testing.T) {
	logger := logrus.New()
	q := NewUnitQueue(2, logger)

	err := q.Push(batchFor(1, "101"))
	assert.NoError(t, err)
	assert.Equal(t, 1, q.Len())

	// Fill the buffer
	require.NoError(t, q.Push(batchFor(1, "102")))
	err = q.Push(batchFor(1, "103"))
	assert.Equal(t, ErrQueueFull, err)

	require.NoError(t, q.Close())
	err = q.Push(batchFor(1, "104"))
	assert.Equal(t, ErrQueueClosed, err)
}

func TestUnitQueue_UnitLimit(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	q := NewUnitQueue(10, logger).WithUnitLimit(5)

	require.NoError(t, q.Push(batchFor(1, "101", "102", "103")))
	assert.Equal(t, 3, q.PendingUnits())

	// Three more would exceed the budget even though batch slots remain
	err := q.Push(batchFor(2, "201", "202", "203"))
	assert.Equal(t, ErrQueueFull, err)
	assert.Equal(t, 1, q.Len())

	require.NoError(t, q.Push(batchFor(2, "201", "202")))
	assert.Equal(t, 5, q.PendingUnits())

	released := make(chan struct{}, 2)
	q.Subscribe(func(batch *models.UnitImportBatch) error {
		released <- struct{}{}
		return nil
	})
	q.Start()
	defer q.Close()
	<-released
	<-released

	assert.Eventually(t, func() bool { return q.PendingUnits() == 0 }, time.Second, 10*time.Millisecond)
	assert.NoError(t, q.Push(batchFor(3, "301", "302", "303", "304", "305")))
}

type dropRecorder struct {
	mu    sync.Mutex
	units []int
	kinds []string
}

func (r *dropRecorder) UnitImport(outcome string, units int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, outcome)
	r.units = append(r.units, units)
}

func TestUnitQueue_CloseReportsDroppedBatches(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	rec := &dropRecorder{}
	q := NewUnitQueue(10, logger).WithRecorder(rec)

	// Never started, so both batches are still waiting at Close
	require.NoError(t, q.Push(batchFor(1, "101", "102")))
	require.NoError(t, q.Push(batchFor(2, "201")))
	require.NoError(t, q.Close())

	assert.Equal(t, []string{metrics.OutcomeDropped, metrics.OutcomeDropped}, rec.kinds)
	assert.Equal(t, []int{2, 1}, rec.units)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, q.PendingUnits())

	require.NoError(t, q.Close())
	assert.Len(t, rec.kinds, 2, "second close reports nothing")
}

func TestUnitQueue_Subscribe(t *testing.T) {
	logger := logrus.New()
	q := NewUnitQueue(10, logger)
	defer q.Close()

	var processed []models.PropertyUnit
	var mu sync.Mutex

	q.Subscribe(func(batch *models.UnitImportBatch) error {
		mu.Lock()
		processed = append(processed, batch.Units...)
		mu.Unlock()
		return nil
	})

	q.Start()

	require.NoError(t, q.Push(batchFor(7, "101", "102")))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(processed) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "101", processed[0].UnitNumber)
	assert.Equal(t, "102", processed[1].UnitNumber)
	mu.Unlock()
}

func TestUnitQueue_Close(t *testing.T) {
	logger := logrus.New()
	q := NewUnitQueue(10, logger)
	q.Start()

	err := q.Close()
	assert.NoError(t, err)
	assert.True(t, q.IsClosed())

	// Second close is a no-op
	err = q.Close()
	assert.NoError(t, err)
}

func TestUnitQueue_ProcessBatch(t *testing.T) {
	logger := logrus.New()
	q := NewUnitQueue(10, logger)
	defer q.Close()

	var wg sync.WaitGroup
	processedBatches := 0
	var mu sync.Mutex

	for i := 0; i < 3; i++ {
		wg.Add(1)
		q.Subscribe(func(batch *models.UnitImportBatch) error {
			mu.Lock()
			processedBatches++
			mu.Unlock()
			wg.Done()
			return nil
		})
	}

	q.Start()
	require.NoError(t, q.Push(batchFor(1, "101")))
	wg.Wait()

	mu.Lock()
	assert.Equal(t, 3, processedBatches)
	mu.Unlock()
}

func TestUnitQueue_HandlerErrorDoesNotStopOthers(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	q := NewUnitQueue(10, logger)
	defer q.Close()

	done := make(chan int64, 2)
	q.Subscribe(func(batch *models.UnitImportBatch) error {
		return errors.New("boom")
	})
	q.Subscribe(func(batch *models.UnitImportBatch) error {
		done <- batch.PropertyID
		return nil
	})

	q.Start()
	require.NoError(t, q.Push(batchFor(3, "1")))
	require.NoError(t, q.Push(batchFor(4, "1")))

	assert.Equal(t, int64(3), <-done)
	assert.Equal(t, int64(4), <-done)
}

func TestUnitQueue_ConcurrentPushAndClose(t *testing.T) {
	logger := logrus.New()
	q := NewUnitQueue(100, logger)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := q.Push(batchFor(int64(i), "1"))
			if err != nil {
				assert.ErrorIs(t, err, ErrQueueClosed)
			}
		}(i)
	}
	require.NoError(t, q.Close())
	wg.Wait()
}
