package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pspdems/dems-backend/internal/dems/events"
	"github.com/pspdems/dems-backend/internal/dems/repository"
	"github.com/pspdems/dems-backend/pkg/actor"
	"github.com/pspdems/dems-backend/pkg/errors"
	"github.com/pspdems/dems-backend/pkg/logger"
	"github.com/pspdems/dems-backend/pkg/messaging"
)

// IndentStore is the persistence surface the indent lifecycle needs.
type IndentStore interface {
	Create(ctx context.Context, header *repository.IndentHeader, items []*repository.IndentItem) error
	GetByID(ctx context.Context, id int64) (*repository.IndentWithItems, error)
	ReplaceItems(ctx context.Context, indentID int64, items []*repository.IndentItem) error
	SetStatus(ctx context.Context, id int64, status string) error
	List(ctx context.Context, filter repository.IndentFilter) ([]*repository.IndentHeader, error)
	GetItem(ctx context.Context, itemID int64) (*repository.IndentItem, error)
	AddReceipt(ctx context.Context, itemID int64, qty int) error
}

// BatchWriter records received batches into an inventory scope.
type BatchWriter interface {
	CreateBatch(ctx context.Context, scope repository.Scope, batch *repository.Batch) error
}

// AuditWriter appends audit trail rows.
type AuditWriter interface {
	Write(ctx context.Context, entry *repository.AuditLog) error
}

// IndentLine is one requested medicine line
type IndentLine struct {
	MedItemID int64 `json:"med_item_id" validate:"required,gt=0"`
	RaisedQty int   `json:"raised_qty" validate:"required,gt=0"`
}

// CreateIndentRequest creates a draft indent
type CreateIndentRequest struct {
	IndentDate time.Time    `json:"indent_date"`
	Items      []IndentLine `json:"items" validate:"required,min=1,dive"`
}

// ReceiveRequest records a partial or full receipt against one indent line.
// The received quantity lands as a new batch in the given inventory scope.
type ReceiveRequest struct {
	ItemID     int64     `json:"item_id" validate:"required,gt=0"`
	Quantity   int       `json:"quantity" validate:"required,gt=0"`
	Scope      string    `json:"scope" validate:"required,oneof=store compounder"`
	BatchNo    string    `json:"batch_no" validate:"required"`
	ExpiryDate time.Time `json:"expiry_date" validate:"required"`
	VendorCode string    `json:"vendor_code"`
}

// IndentService owns the indent lifecycle:
// Draft -> Pending -> Approved/Rejected, then receipt accumulation until
// received >= raised. Receipt is incremental; an indent is implicitly
// complete when no item has raised_qty > received_qty.
type IndentService struct {
	indents   IndentStore
	inventory BatchWriter
	audit     AuditWriter
	resolver  *VisibilityResolver
	publisher *events.DemsEventPublisher
	logger    *logger.Logger
}

// NewIndentService creates a new indent service
func NewIndentService(
	indents IndentStore,
	inventory BatchWriter,
	audit AuditWriter,
	resolver *VisibilityResolver,
	publisher *events.DemsEventPublisher,
	log *logger.Logger,
) *IndentService {
	return &IndentService{
		indents:   indents,
		inventory: inventory,
		audit:     audit,
		resolver:  resolver,
		publisher: publisher,
		logger:    log,
	}
}

// Create creates a draft indent for the actor's plant
func (s *IndentService) Create(ctx context.Context, a *actor.Actor, req *CreateIndentRequest) (*repository.IndentWithItems, error) {
	if a == nil || a.PlantID == nil {
		return nil, errors.BadRequest("user has no plant assigned")
	}

	indentDate := req.IndentDate
	if indentDate.IsZero() {
		indentDate = time.Now()
	}

	header := &repository.IndentHeader{
		PlantID:    *a.PlantID,
		CreatedBy:  a.Key(),
		Status:     repository.StatusDraft,
		IndentDate: indentDate,
	}

	items := make([]*repository.IndentItem, len(req.Items))
	for i, line := range req.Items {
		items[i] = &repository.IndentItem{
			MedItemID: line.MedItemID,
			RaisedQty: line.RaisedQty,
		}
	}

	if err := s.indents.Create(ctx, header, items); err != nil {
		return nil, err
	}

	s.writeAudit(ctx, a, repository.AuditIndentCreated, header.ID, fmt.Sprintf("%d items", len(items)))

	return &repository.IndentWithItems{IndentHeader: *header, Items: items}, nil
}

// UpdateDraft replaces a draft's line items. Only the creator may edit.
func (s *IndentService) UpdateDraft(ctx context.Context, a *actor.Actor, indentID int64, lines []IndentLine) (*repository.IndentWithItems, error) {
	indent, err := s.indents.GetByID(ctx, indentID)
	if err != nil {
		return nil, err
	}
	if indent.Status != repository.StatusDraft {
		return nil, errors.Conflict("only draft indents can be edited")
	}
	if indent.CreatedBy != a.Key() && !a.IsAdmin() {
		return nil, errors.Forbidden("not the indent creator")
	}
	if len(lines) == 0 {
		return nil, errors.BadRequest("indent needs at least one item")
	}

	items := make([]*repository.IndentItem, len(lines))
	for i, line := range lines {
		items[i] = &repository.IndentItem{
			MedItemID: line.MedItemID,
			RaisedQty: line.RaisedQty,
		}
	}

	if err := s.indents.ReplaceItems(ctx, indentID, items); err != nil {
		return nil, err
	}

	return s.indents.GetByID(ctx, indentID)
}

// Submit moves a draft to pending
func (s *IndentService) Submit(ctx context.Context, a *actor.Actor, indentID int64) error {
	indent, err := s.transition(ctx, indentID, repository.StatusDraft, repository.StatusPending)
	if err != nil {
		return err
	}

	s.writeAudit(ctx, a, repository.AuditIndentSubmitted, indentID, "")
	s.publisher.PublishIndent(ctx, messaging.EventIndentSubmitted, &indent.IndentHeader, len(indent.Items))
	return nil
}

// Approve moves a pending indent to approved
func (s *IndentService) Approve(ctx context.Context, a *actor.Actor, indentID int64) error {
	indent, err := s.transition(ctx, indentID, repository.StatusPending, repository.StatusApproved)
	if err != nil {
		return err
	}

	s.writeAudit(ctx, a, repository.AuditIndentApproved, indentID, "")
	s.publisher.PublishIndent(ctx, messaging.EventIndentApproved, &indent.IndentHeader, len(indent.Items))
	return nil
}

// Reject moves a pending indent to rejected
func (s *IndentService) Reject(ctx context.Context, a *actor.Actor, indentID int64) error {
	indent, err := s.transition(ctx, indentID, repository.StatusPending, repository.StatusRejected)
	if err != nil {
		return err
	}

	s.writeAudit(ctx, a, repository.AuditIndentRejected, indentID, "")
	s.publisher.PublishIndent(ctx, messaging.EventIndentRejected, &indent.IndentHeader, len(indent.Items))
	return nil
}

func (s *IndentService) transition(ctx context.Context, indentID int64, from, to string) (*repository.IndentWithItems, error) {
	indent, err := s.indents.GetByID(ctx, indentID)
	if err != nil {
		return nil, err
	}
	if indent.Status != from {
		return nil, errors.Conflict(fmt.Sprintf("indent is %s, expected %s", indent.Status, from))
	}
	if err := s.indents.SetStatus(ctx, indentID, to); err != nil {
		return nil, err
	}
	indent.Status = to
	return indent, nil
}

// Receive records a receipt against an approved indent's line. The quantity
// accumulates toward the raised quantity and is clamped to the outstanding
// amount; the received stock lands as a fresh batch in the target scope.
func (s *IndentService) Receive(ctx context.Context, a *actor.Actor, indentID int64, req *ReceiveRequest) (*repository.Batch, error) {
	indent, err := s.indents.GetByID(ctx, indentID)
	if err != nil {
		return nil, err
	}
	if indent.Status != repository.StatusApproved {
		return nil, errors.Conflict("only approved indents can receive stock")
	}

	item, err := s.indents.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item.IndentID != indentID {
		return nil, errors.BadRequest("item does not belong to this indent")
	}

	outstanding := item.RaisedQty - item.ReceivedQty
	if outstanding <= 0 {
		return nil, errors.Conflict("indent line already fully received")
	}

	qty := req.Quantity
	if qty > outstanding {
		qty = outstanding
	}

	if err := s.indents.AddReceipt(ctx, item.ID, qty); err != nil {
		return nil, err
	}

	batch := &repository.Batch{
		IndentItemID:   item.ID,
		BatchNo:        req.BatchNo,
		ExpiryDate:     req.ExpiryDate,
		AvailableStock: qty,
		VendorCode:     req.VendorCode,
	}
	if err := s.inventory.CreateBatch(ctx, repository.Scope(req.Scope), batch); err != nil {
		return nil, err
	}

	s.writeAudit(ctx, a, repository.AuditIndentReceived, indentID,
		fmt.Sprintf("item %d qty %d batch %s", item.ID, qty, req.BatchNo))
	s.publisher.PublishIndent(ctx, messaging.EventIndentReceived, &indent.IndentHeader, len(indent.Items))

	return batch, nil
}

// List lists indents visible to the actor. With mine set, only the actor's
// own indents are returned regardless of visibility.
func (s *IndentService) List(ctx context.Context, a *actor.Actor, status string, mine bool) ([]*repository.IndentHeader, error) {
	vis := s.resolver.Resolve(ctx, a)
	filter := vis.IndentFilter()
	filter.Status = status
	if mine {
		key := a.Key()
		filter.CreatedBy = &key
	}
	return s.indents.List(ctx, filter)
}

// Get fetches one indent if the actor may see it
func (s *IndentService) Get(ctx context.Context, a *actor.Actor, indentID int64) (*repository.IndentWithItems, error) {
	indent, err := s.indents.GetByID(ctx, indentID)
	if err != nil {
		return nil, err
	}

	vis := s.resolver.Resolve(ctx, a)
	if vis.PlantID != nil && indent.PlantID != *vis.PlantID {
		return nil, errors.NotFound("indent")
	}
	if vis.CreatorKey != nil && indent.CreatedBy != *vis.CreatorKey {
		return nil, errors.NotFound("indent")
	}
	return indent, nil
}

func (s *IndentService) writeAudit(ctx context.Context, a *actor.Actor, action string, indentID int64, detail string) {
	if err := s.audit.Write(ctx, &repository.AuditLog{
		ActorKey: a.Key(),
		Action:   action,
		Entity:   "indent",
		EntityID: indentID,
		Detail:   detail,
	}); err != nil {
		s.logger.Warn().Err(err).Int64("indent_id", indentID).Msg("failed to write audit entry")
	}
}
