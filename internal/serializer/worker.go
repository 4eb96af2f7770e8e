// Package serializer turns concurrent client submissions into a linear
// per-document history. Sessions push operation envelopes onto the
// document's inbound queue and race for its processing lease; the winner
// drains the queue, transforming each operation against the history its
// client had not seen, applying it to the stored content, advancing the
// revision and republishing the result on the fan-out bus.
package serializer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quokka-collab/quokka/internal/broker"
	"github.com/quokka-collab/quokka/internal/domain"
	"github.com/quokka-collab/quokka/internal/ot"
	"github.com/quokka-collab/quokka/internal/wire"
)

// DefaultLeaseTTL bounds how long a crashed worker can block a document.
const DefaultLeaseTTL = 30 * time.Second

// drainTimeout bounds a single dispatched drain.
const drainTimeout = time.Minute

// Worker drains per-document operation queues. A single Worker instance
// serves all documents of a process; the cross-process lease guarantees at
// most one drain per document at a time.
type Worker struct {
	docs     domain.DocumentStore
	log      domain.OperationLog
	bus      broker.Broker
	logger   *zap.Logger
	leaseTTL time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker creates a worker over the given stores and broker.
func NewWorker(docs domain.DocumentStore, log domain.OperationLog, bus broker.Broker, logger *zap.Logger, leaseTTL time.Duration) *Worker {
	if leaseTTL <= 0 {
		leaseTTL = DefaultLeaseTTL
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		docs:     docs,
		log:      log,
		bus:      bus,
		logger:   logger,
		leaseTTL: leaseTTL,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Submit enqueues a client operation envelope and runs the trigger
// protocol: the first caller to claim the document's lease dispatches a
// drain, every other caller has merely enqueued.
func (w *Worker) Submit(ctx context.Context, documentID string, env domain.OperationEnvelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := w.bus.PushOperation(ctx, documentID, payload); err != nil {
		return err
	}
	return w.trigger(ctx, documentID)
}

// trigger claims the processing lease and dispatches a drain on success.
func (w *Worker) trigger(ctx context.Context, documentID string) error {
	claimed, err := w.bus.AcquireLease(ctx, documentID, w.leaseTTL)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}
	w.dispatch(documentID)
	return nil
}

// dispatch runs the transform_document job for a document in the
// background. The job owns the already-claimed lease.
func (w *Worker) dispatch(documentID string) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ctx, cancel := context.WithTimeout(w.ctx, drainTimeout)
		defer cancel()
		if err := w.TransformDocument(ctx, documentID); err != nil {
			w.logger.Warn("Document drain failed",
				zap.String("document_id", documentID),
				zap.Error(err))
		}
	}()
}

// TransformDocument is the drain job for one document. The caller must
// hold the document's processing lease; it is released on return, and the
// queue is re-checked afterwards so a submission that lost the lease race
// during shutdown of this drain is not stranded until the next edit.
func (w *Worker) TransformDocument(ctx context.Context, documentID string) (err error) {
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if releaseErr := w.bus.ReleaseLease(releaseCtx, documentID); releaseErr != nil {
			w.logger.Warn("Failed to release processing lease",
				zap.String("document_id", documentID),
				zap.Error(releaseErr))
			return
		}
		if err != nil {
			return
		}
		if n, lenErr := w.bus.QueueLength(releaseCtx, documentID); lenErr == nil && n > 0 {
			_ = w.trigger(releaseCtx, documentID)
		}
	}()

	doc, err := w.docs.Get(ctx, documentID)
	if err != nil {
		return err
	}

	for {
		payload, err := w.bus.PopOperation(ctx, documentID)
		if errors.Is(err, broker.ErrQueueEmpty) {
			return nil
		}
		if err != nil {
			return err
		}
		// Failures are local to one envelope: it is dropped with a warning
		// and the rest of the queue proceeds.
		w.processEnvelope(ctx, doc, payload)
	}
}

// processEnvelope validates, transforms, applies and persists a single
// queued operation, then publishes the accepted result. doc is advanced in
// place on success so subsequent envelopes of the batch transform against
// fresh state.
func (w *Worker) processEnvelope(ctx context.Context, doc *domain.Document, payload []byte) {
	var env domain.OperationEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		w.logger.Warn("Dropping malformed operation envelope",
			zap.String("document_id", doc.ID),
			zap.Error(err))
		return
	}

	if !env.Data.Type.IsEdit() {
		w.logger.Warn("Dropping operation with invalid type",
			zap.String("document_id", doc.ID),
			zap.String("type", string(env.Data.Type)))
		return
	}

	// One reload-and-retry when a revision collision with a concurrent
	// writer is detected; a second collision abandons the envelope.
	for attempt := 0; attempt < 2; attempt++ {
		err := w.applyOnce(ctx, doc, env)
		if err == nil {
			return
		}
		if !errors.Is(err, domain.ErrRevisionConflict) {
			w.logger.Warn("Dropping operation",
				zap.String("document_id", doc.ID),
				zap.String("type", string(env.Data.Type)),
				zap.Error(err))
			return
		}
		fresh, getErr := w.docs.Get(ctx, doc.ID)
		if getErr != nil {
			w.logger.Warn("Failed to reload document after revision conflict",
				zap.String("document_id", doc.ID),
				zap.Error(getErr))
			return
		}
		*doc = *fresh
	}
	w.logger.Warn("Abandoning operation after repeated revision conflict",
		zap.String("document_id", doc.ID))
}

// applyOnce runs one transform/apply/persist/publish pass against the
// document state in doc.
func (w *Worker) applyOnce(ctx context.Context, doc *domain.Document, env domain.OperationEnvelope) error {
	op := env.Data

	// Rebase against every operation the client had not yet seen.
	if op.Revision < doc.LastRevision {
		history, err := w.log.Since(ctx, doc.ID, op.Revision)
		if err != nil {
			return err
		}
		for _, prev := range history {
			op, err = ot.Transform(op, prev.Operation)
			if err != nil {
				return err
			}
		}
	}
	op.Revision = doc.LastRevision + 1

	newContent, err := ot.Apply(doc.Content, op)
	if err != nil {
		return err
	}

	if err := w.log.Append(ctx, doc.ID, domain.LoggedOperation{
		DocumentID: doc.ID,
		Operation:  op,
		Revision:   op.Revision,
		CreatedAt:  time.Now(),
	}); err != nil {
		return err
	}
	if err := w.docs.UpdateContent(ctx, doc.ID, newContent, doc.LastRevision, op.Revision); err != nil {
		return err
	}
	doc.Content = newContent
	doc.LastRevision = op.Revision

	w.publish(ctx, doc.ID, env.UserToken, op)
	return nil
}

// publish sends the accepted operation to the submitter's fan-out channel.
// Sessions subscribe to the document's channel pattern and route by the
// embedded token; the submitter turns its own message into an ACK. The
// lease is not held for correctness here: the transaction boundary ended
// at the store commit.
func (w *Worker) publish(ctx context.Context, documentID, userToken string, op domain.Operation) {
	msg := wire.ChangeMessage{
		Data:      op,
		Type:      wire.TypeExtChange,
		UserToken: userToken,
		Revision:  op.Revision,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		w.logger.Warn("Failed to encode change message",
			zap.String("document_id", documentID),
			zap.Error(err))
		return
	}
	if err := w.bus.Publish(ctx, broker.Channel(documentID, userToken), payload); err != nil {
		w.logger.Warn("Failed to publish change message",
			zap.String("document_id", documentID),
			zap.Error(err))
	}
}

// Close waits for in-flight drains to finish.
func (w *Worker) Close() error {
	w.cancel()
	w.wg.Wait()
	return nil
}
