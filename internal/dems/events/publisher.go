package events

import (
	"context"

	"github.com/pspdems/dems-backend/internal/dems/repository"
	"github.com/pspdems/dems-backend/pkg/logger"
	"github.com/pspdems/dems-backend/pkg/messaging"
)

// DemsEventPublisher publishes indent, expiry and reminder events for the
// external notification mailer. All methods are nil-safe and best-effort:
// a failed publish is logged, never surfaced to the caller.
type DemsEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewDemsEventPublisher creates a new event publisher
func NewDemsEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*DemsEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeDemsEvents, "dems-server", log)
	if err != nil {
		return nil, err
	}

	return &DemsEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishIndent publishes an indent lifecycle event
func (p *DemsEventPublisher) PublishIndent(ctx context.Context, eventType string, header *repository.IndentHeader, itemCount int) {
	if p == nil {
		return
	}

	data := messaging.IndentEvent{
		IndentID:  header.ID,
		PlantID:   header.PlantID,
		Status:    header.Status,
		ActorKey:  header.CreatedBy,
		ItemCount: itemCount,
	}

	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Int64("indent_id", header.ID).Msg("failed to publish indent event")
	}
}

// PublishExpiryAlert publishes an expiry alert for a batch
func (p *DemsEventPublisher) PublishExpiryAlert(ctx context.Context, row repository.ExpiryRow, daysLeft int) {
	if p == nil {
		return
	}

	data := messaging.ExpiryAlertEvent{
		Scope:        string(row.Source),
		BatchID:      row.BatchID,
		MedicineName: row.MedicineName,
		BatchNo:      row.BatchNo,
		ExpiryDate:   row.ExpiryDate.Format("2006-01-02"),
		Stock:        row.AvailableStock,
		DaysLeft:     daysLeft,
	}

	if err := p.publisher.Publish(ctx, messaging.EventExpiryAlert, data); err != nil {
		p.logger.Error().Err(err).Int64("batch_id", row.BatchID).Msg("failed to publish expiry alert")
	}
}

// PublishDisposal publishes a disposal recorded event
func (p *DemsEventPublisher) PublishDisposal(ctx context.Context, d *repository.Disposal) {
	if p == nil {
		return
	}

	data := messaging.DisposalEvent{
		Scope:        d.Scope,
		BatchID:      d.BatchID,
		MedicineName: d.MedicineName,
		Quantity:     d.Quantity,
		DisposedBy:   d.DisposedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventDisposalRecorded, data); err != nil {
		p.logger.Error().Err(err).Int64("batch_id", d.BatchID).Msg("failed to publish disposal event")
	}
}

// PublishMedicalReminder publishes the daily medical-check reminder
func (p *DemsEventPublisher) PublishMedicalReminder(ctx context.Context, settings *repository.ReminderSettings) {
	if p == nil {
		return
	}

	data := messaging.MedicalReminderEvent{
		SendAt:     settings.SendAt,
		Recipients: settings.RecipientList(),
	}

	if err := p.publisher.Publish(ctx, messaging.EventMedicalReminder, data); err != nil {
		p.logger.Error().Err(err).Msg("failed to publish medical-check reminder")
	}
}
