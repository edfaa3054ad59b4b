// file: internal/operations/queue.go
// version: 2.0.0
// guid: 7d6e5f4a-3c2b-1a09-8f7e-6d5c4b3a2190

package operations

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jdfalk/playlist-importer/internal/database"
	"github.com/jdfalk/playlist-importer/internal/metrics"
	"github.com/oklog/ulid/v2"
)

// Operation statuses as persisted in the store.
const (
	StatusPending   = "pending"
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// ErrQueueFull is returned when no more operations can be buffered.
var ErrQueueFull = errors.New("operation queue is full")

// ErrOperationNotFound is returned by Cancel for ids that are not queued or running.
var ErrOperationNotFound = errors.New("operation not found")

// OperationFunc represents an operation that can be executed
type OperationFunc func(ctx context.Context, progress ProgressReporter) error

// ProgressReporter allows operations to report their progress
type ProgressReporter interface {
	OperationID() string
	UpdateProgress(current, total int, message string) error
	Log(level, message string, details *string) error
	IsCanceled() bool
}

// Publisher receives live operation events, typically the SSE hub.
type Publisher interface {
	SendOperationProgress(operationID string, current, total int, message string)
	SendOperationStatus(operationID, status string, details map[string]any)
	SendOperationLog(operationID, level, message string, details *string)
	SendImportSummary(operationID string, summary map[string]any)
}

// QueuedOperation represents an operation in the queue
type QueuedOperation struct {
	ID      string
	Type    string
	Func    OperationFunc
	Context context.Context
	Cancel  context.CancelFunc
}

// OperationQueue runs operations in the background and records their
// status and logs in the store. With one worker, operations run strictly
// one after another.
type OperationQueue struct {
	mu         sync.RWMutex
	operations map[string]*QueuedOperation
	pending    chan *QueuedOperation
	store      database.Store
	publisher  Publisher
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewOperationQueue creates a queue and starts its workers. publisher may
// be nil.
func NewOperationQueue(store database.Store, publisher Publisher, workers int) *OperationQueue {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &OperationQueue{
		operations: make(map[string]*QueuedOperation),
		pending:    make(chan *QueuedOperation, 100),
		store:      store,
		publisher:  publisher,
		ctx:        ctx,
		cancel:     cancel,
	}

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	return q
}

// Submit records a new operation in the store and enqueues fn for it.
func (q *OperationQueue) Submit(opType string, folderPath *string, fn OperationFunc) (*database.Operation, error) {
	id := ulid.Make().String()
	op, err := q.store.CreateOperation(id, opType, folderPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation: %w", err)
	}
	if err := q.Enqueue(id, opType, fn); err != nil {
		_ = q.store.UpdateOperationError(id, err.Error())
		return nil, err
	}
	op.Status = StatusQueued
	return op, nil
}

// Enqueue adds an operation that already exists in the store.
func (q *OperationQueue) Enqueue(id, opType string, fn OperationFunc) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.operations[id]; exists {
		return fmt.Errorf("operation %s already exists", id)
	}

	ctx, cancel := context.WithCancel(q.ctx)
	op := &QueuedOperation{
		ID:      id,
		Type:    opType,
		Func:    fn,
		Context: ctx,
		Cancel:  cancel,
	}

	_ = q.store.UpdateOperationStatus(id, StatusQueued, 0, 0, "operation queued")
	select {
	case q.pending <- op:
	default:
		cancel()
		return fmt.Errorf("%w: %s", ErrQueueFull, id)
	}

	q.operations[id] = op
	log.Printf("[INFO] Operation %s (%s) enqueued", id, opType)
	return nil
}

// Cancel cancels a queued or running operation.
func (q *OperationQueue) Cancel(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	op, exists := q.operations[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrOperationNotFound, id)
	}
	op.Cancel()
	_ = q.store.UpdateOperationStatus(id, StatusCanceled, 0, 0, "operation canceled by user")

	log.Printf("[INFO] Operation %s canceled", id)
	return nil
}

// GetStatus returns the current status of an operation
func (q *OperationQueue) GetStatus(id string) (*database.Operation, error) {
	return q.store.GetOperationByID(id)
}

func (q *OperationQueue) worker(id int) {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case op := <-q.pending:
			q.execute(id, op)
		}
	}
}

func (q *OperationQueue) execute(worker int, op *QueuedOperation) {
	defer func() {
		op.Cancel()
		q.mu.Lock()
		delete(q.operations, op.ID)
		q.mu.Unlock()
	}()

	if op.Context.Err() != nil {
		q.finish(op, StatusCanceled, 0, 0, "operation canceled before start", nil)
		metrics.OperationDropped(op.Type, StatusCanceled)
		return
	}

	log.Printf("[DEBUG] Worker %d processing operation %s", worker, op.ID)
	start := time.Now()
	metrics.OperationStarted(op.Type)
	_ = q.store.UpdateOperationStatus(op.ID, StatusRunning, 0, 0, "operation started")
	q.publishStatus(op.ID, StatusRunning, nil)

	reporter := &operationProgressReporter{operationID: op.ID, queue: q, ctx: op.Context}
	err := op.Func(op.Context, reporter)
	current, total := reporter.snapshot()

	var status string
	switch {
	case errors.Is(err, context.Canceled) || (err == nil && reporter.IsCanceled()):
		status = StatusCanceled
		q.finish(op, status, current, total, "operation canceled", nil)
		log.Printf("[INFO] Operation %s was canceled", op.ID)
	case err != nil:
		status = StatusFailed
		q.finish(op, status, current, total, "", err)
		log.Printf("[ERROR] Operation %s failed: %v", op.ID, err)
	default:
		status = StatusCompleted
		q.finish(op, status, current, total, "operation completed", nil)
		log.Printf("[INFO] Operation %s completed", op.ID)
	}
	metrics.OperationFinished(op.Type, status, time.Since(start))
}

func (q *OperationQueue) finish(op *QueuedOperation, status string, current, total int, message string, err error) {
	details := map[string]any{"current": current, "total": total}
	if err != nil {
		_ = q.store.UpdateOperationError(op.ID, err.Error())
		details["error"] = err.Error()
	} else {
		_ = q.store.UpdateOperationStatus(op.ID, status, current, total, message)
		details["message"] = message
	}
	q.publishStatus(op.ID, status, details)
}

func (q *OperationQueue) publishStatus(id, status string, details map[string]any) {
	if q.publisher != nil {
		q.publisher.SendOperationStatus(id, status, details)
	}
}

// Shutdown cancels every operation and waits for the workers to exit.
func (q *OperationQueue) Shutdown(timeout time.Duration) error {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[INFO] Operation queue shut down")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}

// ActiveOperation represents lightweight info about an in-flight operation.
type ActiveOperation struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// ActiveOperations returns a snapshot of currently queued/running operations.
func (q *OperationQueue) ActiveOperations() []ActiveOperation {
	if q == nil {
		return []ActiveOperation{}
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	results := make([]ActiveOperation, 0, len(q.operations))
	for id, op := range q.operations {
		results = append(results, ActiveOperation{ID: id, Type: op.Type})
	}
	return results
}

// operationProgressReporter implements ProgressReporter
type operationProgressReporter struct {
	operationID string
	queue       *OperationQueue
	ctx         context.Context

	mu      sync.Mutex
	current int
	total   int
}

func (r *operationProgressReporter) OperationID() string { return r.operationID }

func (r *operationProgressReporter) snapshot() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.total
}

func (r *operationProgressReporter) UpdateProgress(current, total int, message string) error {
	r.mu.Lock()
	r.current, r.total = current, total
	r.mu.Unlock()

	if r.IsCanceled() {
		return context.Canceled
	}
	if err := r.queue.store.UpdateOperationStatus(r.operationID, StatusRunning, current, total, message); err != nil {
		return err
	}
	if r.queue.publisher != nil {
		r.queue.publisher.SendOperationProgress(r.operationID, current, total, message)
	}
	return nil
}

func (r *operationProgressReporter) Log(level, message string, details *string) error {
	if err := r.queue.store.AddOperationLog(r.operationID, level, message, details); err != nil {
		return err
	}
	if r.queue.publisher != nil {
		r.queue.publisher.SendOperationLog(r.operationID, level, message, details)
	}
	return nil
}

func (r *operationProgressReporter) IsCanceled() bool {
	return r.ctx.Err() != nil
}
