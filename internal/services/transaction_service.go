package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"budget/internal/core"
	"budget/internal/log"
)

// TransactionService orchestrates transaction writes across the store and
// the event stream. The store commit is authoritative: a failed publish is
// logged, never returned.
type TransactionService struct {
	store      TransactionStore
	publisher  EventPublisher
	logger     *log.Logger
	structured *log.StructuredLogger
}

// NewTransactionService wires a store with an optional publisher (nil
// disables events).
func NewTransactionService(store TransactionStore, publisher EventPublisher) *TransactionService {
	logger := log.FromContext(context.Background()).WithComponent(log.ComponentBackend)
	return &TransactionService{
		store:      store,
		publisher:  publisher,
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
	}
}

func (s *TransactionService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx)
}

func (s *TransactionService) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// CreateTransaction validates and stores d, then publishes an upsert event
func (s *TransactionService) CreateTransaction(ctx context.Context, d core.Draft) (core.Transaction, error) {
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.store.CreateTransaction(ctx, d)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.structured.LogTransactionSaved(ctx, log.OpCreate, tx)
	s.publishUpserted(ctx, tx)
	return tx, nil
}

// UpdateTransaction replaces the fields of transaction id
func (s *TransactionService) UpdateTransaction(ctx context.Context, id int64, d core.Draft) (core.Transaction, error) {
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.store.UpdateTransaction(ctx, id, d)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}
	s.structured.LogTransactionSaved(ctx, log.OpUpdate, tx)
	s.publishUpserted(ctx, tx)
	return tx, nil
}

// DeleteTransaction removes transaction id and publishes a delete event
func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "Transaction deleted", log.FieldTransactionID, id)

	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishDeleted(ctx, id); err != nil {
		s.structured.LogError(ctx, "Failed to publish delete event", err, log.OpSync,
			log.NewFields().WithTransactionID(id))
	}
	return nil
}

func (s *TransactionService) publishUpserted(ctx context.Context, tx core.Transaction) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishUpserted(ctx, tx); err != nil {
		s.structured.LogError(ctx, "Failed to publish upsert event", err, log.OpSync,
			log.NewFields().WithTransactionID(tx.ID))
	}
}

// Ping checks the store when it can report readiness.
func (s *TransactionService) Ping(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the store and publisher when they hold resources
func (s *TransactionService) Close() error {
	var errs []error
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
