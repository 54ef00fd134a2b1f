package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
)

// EventKind tells the consumer what happened to a transaction
type EventKind string

const (
	EventUpserted EventKind = "transaction.upserted"
	EventDeleted  EventKind = "transaction.deleted"
)

// TransactionEvent is published after every committed mutation. Upserts
// carry the full record so consumers never read back from the database.
type TransactionEvent struct {
	EventID       string            `json:"event_id"`
	Kind          EventKind         `json:"kind"`
	TransactionID int64             `json:"transaction_id"`
	Transaction   *core.Transaction `json:"transaction,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// NewUpsertedEvent creates an event for a created or updated transaction
func NewUpsertedEvent(tx core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		EventID:       uuid.NewString(),
		Kind:          EventUpserted,
		TransactionID: tx.ID,
		Transaction:   &tx,
		Timestamp:     time.Now().UTC(),
	}
}

// NewDeletedEvent creates an event for a removed transaction
func NewDeletedEvent(id int64) *TransactionEvent {
	return &TransactionEvent{
		EventID:       uuid.NewString(),
		Kind:          EventDeleted,
		TransactionID: id,
		Timestamp:     time.Now().UTC(),
	}
}

// Validate checks the invariants consumers rely on
func (e *TransactionEvent) Validate() error {
	if e.TransactionID <= 0 {
		return fmt.Errorf("invalid transaction id %d", e.TransactionID)
	}
	switch e.Kind {
	case EventUpserted:
		if e.Transaction == nil {
			return errors.New("upsert event without transaction")
		}
		if e.Transaction.ID != e.TransactionID {
			return fmt.Errorf("transaction id mismatch: %d != %d", e.Transaction.ID, e.TransactionID)
		}
	case EventDeleted:
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
