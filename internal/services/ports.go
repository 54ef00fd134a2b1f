package services

import (
	"context"

	"budget/internal/core"
)

// Ports consumed by the services.
type (
	// TransactionStore is the CRUD surface shared by the REST client, the
	// SQLite repository, the in-memory store and TransactionService itself.
	// Missing ids are reported as core.ErrNotFound.
	TransactionStore interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		CreateTransaction(ctx context.Context, d core.Draft) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, id int64, d core.Draft) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id int64) error
	}

	// EventPublisher announces committed mutations to downstream consumers.
	EventPublisher interface {
		PublishUpserted(ctx context.Context, tx core.Transaction) error
		PublishDeleted(ctx context.Context, id int64) error
	}
)
