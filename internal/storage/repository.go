package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"budget/internal/core"
	"budget/internal/log"
)

const transactionsTable = "transactions"

var transactionColumns = []string{"id", "title", "amount_cents", "category", "type", "occurred_at"}

// SQLiteRepository persists transactions in a single SQLite file
type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time keeps SQLITE_BUSY away
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateUp(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger := log.FromContext(context.Background()).WithComponent(log.ComponentStorage)
	logger.Debug("Schema up to date", "db_path", dbPath, "version", version)

	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	query, args, err := sq.Select(transactionColumns...).
		From(transactionsTable).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	query, args, err := sq.Select(transactionColumns...).
		From(transactionsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("build get query: %w", err)
	}

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, err
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, d core.Draft) (core.Transaction, error) {
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}

	query, args, err := sq.Insert(transactionsTable).
		Columns("title", "amount_cents", "category", "type", "occurred_at").
		Values(d.Title, d.Amount.Cents, d.Category, string(d.Type), core.FormatTimestamp(d.Date)).
		ToSql()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("read inserted id: %w", err)
	}

	tx := d.WithID(id)
	tx.Date = tx.Date.UTC()
	r.logger.DebugContext(ctx, "Transaction inserted", log.NewFields().WithTransaction(tx).ToSlice()...)
	return tx, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id int64, d core.Draft) (core.Transaction, error) {
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}

	query, args, err := sq.Update(transactionsTable).
		Set("title", d.Title).
		Set("amount_cents", d.Amount.Cents).
		Set("category", d.Category).
		Set("type", string(d.Type)).
		Set("occurred_at", core.FormatTimestamp(d.Date)).
		Set("updated_at", time.Now().UTC().Format(time.RFC3339Nano)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Transaction{}, core.ErrNotFound
	}

	tx := d.WithID(id)
	tx.Date = tx.Date.UTC()
	return tx, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	query, args, err := sq.Delete(transactionsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx         core.Transaction
		cents      int64
		kind       string
		occurredAt string
	)
	if err := row.Scan(&tx.ID, &tx.Title, &cents, &tx.Category, &kind, &occurredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tx, err
		}
		return tx, fmt.Errorf("scan transaction: %w", err)
	}
	date, err := core.ParseTimestamp(occurredAt)
	if err != nil {
		return tx, fmt.Errorf("transaction %d has bad occurred_at %q: %w", tx.ID, occurredAt, err)
	}
	tx.Amount = core.Money{Cents: cents}
	tx.Type = core.TransactionType(kind)
	tx.Date = date
	return tx, nil
}
