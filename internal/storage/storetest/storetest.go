// Package storetest holds a behavioural suite every transaction store
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/services"
)

// Run exercises newStore against the store contract. newStore must return
// an empty store.
func Run(t *testing.T, newStore func(t *testing.T) services.TransactionStore) {
	t.Helper()
	ctx := context.Background()

	draft := core.Draft{
		Title:    "Groceries",
		Amount:   core.Money{Cents: 4250},
		Category: "Food",
		Type:     core.Expense,
		Date:     time.Date(2024, 1, 2, 10, 0, 0, 0, time.FixedZone("CET", 3600)),
	}

	t.Run("empty list", func(t *testing.T) {
		s := newStore(t)
		txs, err := s.ListTransactions(ctx)
		if err != nil {
			t.Fatalf("ListTransactions: %v", err)
		}
		if txs == nil || len(txs) != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", txs)
		}
	})

	t.Run("create then get round trip", func(t *testing.T) {
		s := newStore(t)
		created, err := s.CreateTransaction(ctx, draft)
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
		if created.ID <= 0 {
			t.Fatalf("expected positive id, got %d", created.ID)
		}
		got, err := s.GetTransaction(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetTransaction: %v", err)
		}
		if got.Title != draft.Title || got.Amount != draft.Amount || got.Category != draft.Category || got.Type != draft.Type {
			t.Fatalf("fields changed: %+v", got)
		}
		if !got.Date.Equal(draft.Date) || got.Date.Location() != time.UTC {
			t.Fatalf("date should come back as canonical UTC, got %v", got.Date)
		}
	})

	t.Run("list orders by id", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 3; i++ {
			d := draft
			d.Date = draft.Date.Add(time.Duration(-i) * time.Hour)
			if _, err := s.CreateTransaction(ctx, d); err != nil {
				t.Fatalf("CreateTransaction: %v", err)
			}
		}
		txs, err := s.ListTransactions(ctx)
		if err != nil {
			t.Fatalf("ListTransactions: %v", err)
		}
		if len(txs) != 3 {
			t.Fatalf("expected 3, got %d", len(txs))
		}
		for i := 1; i < len(txs); i++ {
			if txs[i-1].ID >= txs[i].ID {
				t.Fatalf("ids not ascending: %d then %d", txs[i-1].ID, txs[i].ID)
			}
		}
	})

	t.Run("update replaces fields", func(t *testing.T) {
		s := newStore(t)
		created, err := s.CreateTransaction(ctx, draft)
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
		changed := created.Draft()
		changed.Amount = core.Money{Cents: 9900}
		updated, err := s.UpdateTransaction(ctx, created.ID, changed)
		if err != nil {
			t.Fatalf("UpdateTransaction: %v", err)
		}
		if updated.ID != created.ID || updated.Amount.Cents != 9900 {
			t.Fatalf("unexpected update result %+v", updated)
		}
		got, _ := s.GetTransaction(ctx, created.ID)
		if got.Amount.Cents != 9900 || got.Title != draft.Title {
			t.Fatalf("update not persisted: %+v", got)
		}
	})

	t.Run("missing ids report not found", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.GetTransaction(ctx, 404); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("GetTransaction: expected ErrNotFound, got %v", err)
		}
		if _, err := s.UpdateTransaction(ctx, 404, draft); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("UpdateTransaction: expected ErrNotFound, got %v", err)
		}
		if err := s.DeleteTransaction(ctx, 404); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("DeleteTransaction: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete removes", func(t *testing.T) {
		s := newStore(t)
		created, err := s.CreateTransaction(ctx, draft)
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
		if err := s.DeleteTransaction(ctx, created.ID); err != nil {
			t.Fatalf("DeleteTransaction: %v", err)
		}
		if _, err := s.GetTransaction(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.DeleteTransaction(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("second delete: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("invalid drafts rejected", func(t *testing.T) {
		s := newStore(t)
		bad := draft
		bad.Type = "transfer"
		if _, err := s.CreateTransaction(ctx, bad); !errors.Is(err, core.ErrInvalidType) {
			t.Fatalf("expected ErrInvalidType, got %v", err)
		}
		txs, _ := s.ListTransactions(ctx)
		if len(txs) != 0 {
			t.Fatalf("invalid draft must not be stored")
		}
	})
}
