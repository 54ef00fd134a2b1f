package services

import (
	"context"
	"errors"
	"fmt"

	"budget/internal/client"
	"budget/internal/core"
	"budget/internal/log"
)

// User-facing notice texts.
const (
	MsgLoadFailed   = "Could not load transactions. Check that the backend is running."
	MsgGetFailed    = "Could not load transaction %d."
	MsgCreateFailed = "Error while adding transaction: %s"
	MsgUpdateFailed = "Error while updating transaction: %s"
	MsgDeleteFailed = "Error while deleting transaction: %s"
	MsgUnknownError = "Unknown error"
)

// Repository exposes the store to the tracker. Every failure is logged and
// turned into a notice; callers only see empty results or false.
type Repository struct {
	store    TransactionStore
	notifier Notifier
	logger   *log.Logger
}

// NewRepository wraps store. A nil notifier falls back to ContextNotifier.
func NewRepository(store TransactionStore, notifier Notifier) *Repository {
	if notifier == nil {
		notifier = ContextNotifier{}
	}
	return &Repository{
		store:    store,
		notifier: notifier,
		logger:   log.FromContext(context.Background()).WithComponent(log.ComponentTracker),
	}
}

// List returns every transaction, or an empty slice on failure.
func (r *Repository) List(ctx context.Context) []core.Transaction {
	txs, err := r.store.ListTransactions(ctx)
	if err != nil {
		r.fail(ctx, log.OpList, 0, err, MsgLoadFailed)
		return []core.Transaction{}
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs
}

// Get fetches transaction id. The bool is false on any failure.
func (r *Repository) Get(ctx context.Context, id int64) (core.Transaction, bool) {
	tx, err := r.store.GetTransaction(ctx, id)
	if err != nil {
		r.fail(ctx, log.OpRead, id, err, fmt.Sprintf(MsgGetFailed, id))
		return core.Transaction{}, false
	}
	return tx, true
}

// Create stores d and reports success.
func (r *Repository) Create(ctx context.Context, d core.Draft) bool {
	if _, err := r.store.CreateTransaction(ctx, d); err != nil {
		r.fail(ctx, log.OpCreate, 0, err, fmt.Sprintf(MsgCreateFailed, Describe(err)))
		return false
	}
	return true
}

// Update replaces transaction id with d and reports success.
func (r *Repository) Update(ctx context.Context, id int64, d core.Draft) bool {
	if _, err := r.store.UpdateTransaction(ctx, id, d); err != nil {
		r.fail(ctx, log.OpUpdate, id, err, fmt.Sprintf(MsgUpdateFailed, Describe(err)))
		return false
	}
	return true
}

// Delete removes transaction id. Nothing is sent unless confirmed.
func (r *Repository) Delete(ctx context.Context, id int64, confirmed bool) bool {
	if !confirmed {
		r.logger.DebugContext(ctx, "Delete not confirmed", log.FieldTransactionID, id)
		return false
	}
	if err := r.store.DeleteTransaction(ctx, id); err != nil {
		r.fail(ctx, log.OpDelete, id, err, fmt.Sprintf(MsgDeleteFailed, Describe(err)))
		return false
	}
	return true
}

func (r *Repository) fail(ctx context.Context, op string, id int64, err error, message string) {
	fields := log.NewFields().
		WithOperation(op).
		WithErrorType(errorType(err)).
		WithError(err)
	if id != 0 {
		fields = fields.WithTransactionID(id)
	}
	r.logger.ErrorContext(ctx, "Repository call failed", fields.ToSlice()...)
	r.notifier.Notify(ctx, Notice{Level: NoticeError, Message: message})
}

// Describe renders err for a notice: "HTTP 400: <backend message>" for
// status failures, "Unknown error" when the backend sent no message.
func Describe(err error) string {
	if ce, ok := client.AsError(err); ok {
		switch ce.Kind {
		case client.KindStatus:
			msg := ce.Message
			if msg == "" {
				msg = MsgUnknownError
			}
			return fmt.Sprintf("HTTP %d: %s", ce.StatusCode, msg)
		case client.KindDecode:
			return "invalid response from backend"
		default:
			return "backend unreachable"
		}
	}
	switch {
	case errors.Is(err, core.ErrNotFound):
		return "Transaction not found"
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyTitle),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidDate):
		return err.Error()
	}
	return MsgUnknownError
}

func errorType(err error) string {
	if ce, ok := client.AsError(err); ok {
		if ce.Kind == client.KindStatus {
			if ce.StatusCode == 404 {
				return log.ErrorTypeNotFound
			}
			return log.ErrorTypeStatus
		}
		return log.ErrorTypeNetwork
	}
	if errors.Is(err, core.ErrNotFound) {
		return log.ErrorTypeNotFound
	}
	return log.ErrorTypeInternal
}
