package service

import (
	"context"
	"time"

	"github.com/pspdems/dems-backend/internal/dems/events"
	"github.com/pspdems/dems-backend/internal/dems/repository"
	"github.com/pspdems/dems-backend/pkg/actor"
	"github.com/pspdems/dems-backend/pkg/errors"
	"github.com/pspdems/dems-backend/pkg/logger"
	"github.com/pspdems/dems-backend/pkg/timeutil"
)

// BatchDisposer is the inventory surface disposal needs.
type BatchDisposer interface {
	BatchDetail(ctx context.Context, scope repository.Scope, id int64) (*repository.ExpiryRow, error)
}

// DisposalStore persists disposal records. Record zeroes the batch and
// inserts the disposal row atomically.
type DisposalStore interface {
	Record(ctx context.Context, d *repository.Disposal) error
	List(ctx context.Context, limit int) ([]*repository.Disposal, error)
}

// RecordDisposalRequest writes off one expired batch.
type RecordDisposalRequest struct {
	Scope   string `json:"scope" validate:"required,oneof=store compounder"`
	BatchID int64  `json:"batch_id" validate:"required,gt=0"`
}

// DisposalService writes off expired batches: the batch stock drops to zero
// and a disposal row keeps the written-off quantity for the audit trail.
type DisposalService struct {
	inventory BatchDisposer
	disposals DisposalStore
	audit     AuditWriter
	publisher *events.DemsEventPublisher
	logger    *logger.Logger
}

// NewDisposalService creates a new disposal service
func NewDisposalService(
	inventory BatchDisposer,
	disposals DisposalStore,
	audit AuditWriter,
	publisher *events.DemsEventPublisher,
	log *logger.Logger,
) *DisposalService {
	return &DisposalService{
		inventory: inventory,
		disposals: disposals,
		audit:     audit,
		publisher: publisher,
		logger:    log,
	}
}

// Record writes off one batch. Only expired batches with remaining stock
// qualify; recording is idempotent at the database level through the
// pending-disposal query, but a second write-off of an already zeroed batch
// is rejected here.
func (s *DisposalService) Record(ctx context.Context, a *actor.Actor, req *RecordDisposalRequest) (*repository.Disposal, error) {
	scope := repository.Scope(req.Scope)

	batch, err := s.inventory.BatchDetail(ctx, scope, req.BatchID)
	if err != nil {
		return nil, err
	}
	if batch.AvailableStock <= 0 {
		return nil, errors.Conflict("batch has no stock to dispose")
	}
	if !batch.ExpiryDate.Before(timeutil.Midnight(time.Now())) {
		return nil, errors.Conflict("batch has not expired yet")
	}

	disposal := &repository.Disposal{
		Scope:        req.Scope,
		BatchID:      batch.BatchID,
		MedicineName: batch.MedicineName,
		BatchNo:      batch.BatchNo,
		Quantity:     batch.AvailableStock,
		DisposedBy:   a.Key(),
	}
	if err := s.disposals.Record(ctx, disposal); err != nil {
		return nil, err
	}

	if err := s.audit.Write(ctx, &repository.AuditLog{
		ActorKey: a.Key(),
		Action:   repository.AuditDisposal,
		Entity:   "batch",
		EntityID: batch.BatchID,
		Detail:   batch.MedicineName + " batch " + batch.BatchNo,
	}); err != nil {
		s.logger.Warn().Err(err).Int64("batch_id", batch.BatchID).Msg("failed to write audit entry")
	}
	s.publisher.PublishDisposal(ctx, disposal)

	return disposal, nil
}

// List lists recorded disposals, newest first
func (s *DisposalService) List(ctx context.Context, limit int) ([]*repository.Disposal, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.disposals.List(ctx, limit)
}
