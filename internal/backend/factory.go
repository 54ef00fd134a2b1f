package backend

import (
	"context"
	"fmt"

	"budget/internal/adapters"
	"budget/internal/amqp"
	"budget/internal/client"
	"budget/internal/log"
	"budget/internal/services"
	"budget/internal/storage"
	"budget/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case HTTPBackend:
		return f.createHTTPBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createHTTPBackend(config Config) (*BackendResult, error) {
	cli, err := client.New(config.BackendURL, config.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backend client: %w", err)
	}

	f.logger.Info("Initialized HTTP backend",
		"backend_url", cli.BaseURL(),
		"timeout", config.RequestTimeout.String())

	return &BackendResult{
		Store:   cli,
		Ready:   cli.Ping,
		Cleanup: noCleanup,
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// Events are optional: without a broker the UI still works.
	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events",
				log.FieldError, err)
		} else {
			publisher = adapters.NewAMQPPublisher(amqpClient)
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	svc := services.NewTransactionService(repo, publisher)

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Store:   svc,
		Ready:   repo.Ping,
		Cleanup: svc.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Info("Initialized memory backend; data is lost on exit")
	return &BackendResult{
		Store:   memory.New(),
		Ready:   alwaysReady,
		Cleanup: noCleanup,
	}, nil
}

func noCleanup() error { return nil }

func alwaysReady(context.Context) error { return nil }
