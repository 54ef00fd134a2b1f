package render

import (
	"time"

	"budget/internal/core"
)

const (
	// EmptyListText is the single row shown when there is nothing to list.
	EmptyListText = "No transactions yet."

	// DisplayDateLayout is the list's localized date format.
	DisplayDateLayout = "02.01.2006, 15:04"
)

// Row is one line of the transaction list.
type Row struct {
	ID       int64
	Title    string
	Amount   string
	Category string
	Date     string
	Type     string
	// Placeholder rows carry only Title and have no edit or delete actions.
	Placeholder bool
}

// ListRows orders a copy of txs newest first and formats each row.
// Transactions sharing a date keep their input order.
func ListRows(txs []core.Transaction, currency string, loc *time.Location) []Row {
	if len(txs) == 0 {
		return []Row{{Title: EmptyListText, Placeholder: true}}
	}
	if loc == nil {
		loc = time.Local
	}

	sorted := core.SortNewestFirst(txs)
	rows := make([]Row, 0, len(sorted))
	for _, tx := range sorted {
		rows = append(rows, Row{
			ID:       tx.ID,
			Title:    tx.Title,
			Amount:   tx.Amount.Format(currency),
			Category: tx.Category,
			Date:     tx.Date.In(loc).Format(DisplayDateLayout),
			Type:     string(tx.Type),
		})
	}
	return rows
}
