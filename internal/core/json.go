package core

import (
	"encoding/json"
	"fmt"
)

type transactionJSON struct {
	ID       int64           `json:"id"`
	Title    string          `json:"title"`
	Amount   Money           `json:"amount"`
	Category string          `json:"category"`
	Type     TransactionType `json:"type"`
	Date     string          `json:"date"`
}

type draftJSON struct {
	Title    string          `json:"title"`
	Amount   Money           `json:"amount"`
	Category string          `json:"category"`
	Type     TransactionType `json:"type"`
	Date     string          `json:"date"`
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		ID:       t.ID,
		Title:    t.Title,
		Amount:   t.Amount,
		Category: t.Category,
		Type:     t.Type,
		Date:     FormatTimestamp(t.Date),
	})
}

func (t *Transaction) UnmarshalJSON(b []byte) error {
	var raw transactionJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	date, err := ParseTimestamp(raw.Date)
	if err != nil {
		return fmt.Errorf("transaction %d: %w", raw.ID, err)
	}
	*t = Transaction{
		ID:       raw.ID,
		Title:    raw.Title,
		Amount:   raw.Amount,
		Category: raw.Category,
		Type:     raw.Type,
		Date:     date,
	}
	return nil
}

// MarshalJSON writes the request body shape accepted by POST and PUT.
func (d Draft) MarshalJSON() ([]byte, error) {
	return json.Marshal(draftJSON{
		Title:    d.Title,
		Amount:   d.Amount,
		Category: d.Category,
		Type:     d.Type,
		Date:     FormatTimestamp(d.Date),
	})
}
