// Package sheets defines the spreadsheet mirror of the transaction ledger.
package sheets

import (
	"context"
	"errors"
	"strconv"

	"budget/internal/core"
)

// ErrRejected marks changes the mirror refused outright (bad range,
// missing permission). Retrying them will not help.
var ErrRejected = errors.New("mirror rejected the change")

// TransactionMirror keeps a copy of every transaction, one row per id.
type TransactionMirror interface {
	// UpsertTransaction writes tx over the row holding tx.ID, or appends a
	// new row.
	UpsertTransaction(ctx context.Context, tx core.Transaction) error
	// RemoveTransaction deletes the row holding id. A missing row is not an
	// error.
	RemoveTransaction(ctx context.Context, id int64) error
}

// Header is the first row of the mirror sheet.
var Header = []string{"ID", "Title", "Amount", "Category", "Type", "Date", "Synced At"}

// RowTimeLayout is how timestamps are written to the sheet; Sheets parses
// it as a date-time when entered as user input.
const RowTimeLayout = "2006-01-02 15:04:05"

// Row renders tx as the cells of one mirror row, without the sync stamp.
func Row(tx core.Transaction) []string {
	return []string{
		strconv.FormatInt(tx.ID, 10),
		tx.Title,
		tx.Amount.String(),
		tx.Category,
		string(tx.Type),
		tx.Date.UTC().Format(RowTimeLayout),
	}
}
