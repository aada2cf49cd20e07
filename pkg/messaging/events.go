package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Exchange and routing keys. The notification mailer consumes these; this
// service only publishes.
const (
	ExchangeDemsEvents = "dems.events"

	EventIndentSubmitted  = "indent.submitted"
	EventIndentApproved   = "indent.approved"
	EventIndentRejected   = "indent.rejected"
	EventIndentReceived   = "indent.received"
	EventExpiryAlert      = "inventory.expiry_alert"
	EventDisposalRecorded = "inventory.disposal_recorded"
	EventMedicalReminder  = "reminder.medical_check"
)

// Event is the envelope published for every routing key.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Source     string      `json:"source"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// NewEvent builds an event envelope with a fresh id and UTC timestamp.
func NewEvent(eventType, source string, data interface{}) *Event {
	return &Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		Source:     source,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// IndentEvent is the payload for indent lifecycle events.
type IndentEvent struct {
	IndentID  int64  `json:"indent_id"`
	PlantID   int64  `json:"plant_id"`
	Status    string `json:"status"`
	ActorKey  string `json:"actor_key"`
	ItemCount int    `json:"item_count,omitempty"`
}

// ExpiryAlertEvent is the payload for near-expiry/expired batch alerts.
type ExpiryAlertEvent struct {
	Scope        string `json:"scope"`
	BatchID      int64  `json:"batch_id"`
	MedicineName string `json:"medicine_name"`
	BatchNo      string `json:"batch_no"`
	ExpiryDate   string `json:"expiry_date"`
	Stock        int    `json:"stock"`
	DaysLeft     int    `json:"days_left"`
}

// DisposalEvent is the payload for recorded disposals.
type DisposalEvent struct {
	Scope        string `json:"scope"`
	BatchID      int64  `json:"batch_id"`
	MedicineName string `json:"medicine_name"`
	Quantity     int    `json:"quantity"`
	DisposedBy   string `json:"disposed_by"`
}

// MedicalReminderEvent is the payload for the daily medical-check reminder.
type MedicalReminderEvent struct {
	SendAt     string   `json:"send_at"`
	Recipients []string `json:"recipients"`
}
