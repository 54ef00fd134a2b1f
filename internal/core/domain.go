package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense record owned by the backend.
	Transaction struct {
		ID       int64
		Title    string
		Amount   Money
		Category string
		Type     TransactionType
		Date     time.Time
	}

	// Draft carries the user-editable fields of a transaction, without an id.
	Draft struct {
		Title    string
		Amount   Money
		Category string
		Type     TransactionType
		Date     time.Time
	}
)

var (
	ErrNotFound      = errors.New("transaction not found")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyTitle    = errors.New("empty title")
	ErrEmptyCategory = errors.New("empty category")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidDate   = errors.New("invalid date")
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrEmptyTitle
	}
	if len(d.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(d.Category) == "" {
		return ErrEmptyCategory
	}
	if !d.Type.Valid() {
		return ErrInvalidType
	}
	if d.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Draft returns the editable fields of t.
func (t Transaction) Draft() Draft {
	return Draft{
		Title:    t.Title,
		Amount:   t.Amount,
		Category: t.Category,
		Type:     t.Type,
		Date:     t.Date,
	}
}

// WithID materializes a draft into a stored transaction.
func (d Draft) WithID(id int64) Transaction {
	return Transaction{
		ID:       id,
		Title:    d.Title,
		Amount:   d.Amount,
		Category: d.Category,
		Type:     d.Type,
		Date:     d.Date,
	}
}

// Signed returns the amount with expenses negated.
func (t Transaction) Signed() Money {
	if t.Type == Expense {
		return Money{Cents: -t.Amount.Cents}
	}
	return t.Amount
}
