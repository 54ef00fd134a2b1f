package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/sheets"
	"budget/internal/sheets/memory"
)

type failingMirror struct {
	err error
}

func (f failingMirror) UpsertTransaction(context.Context, core.Transaction) error { return f.err }
func (f failingMirror) RemoveTransaction(context.Context, int64) error            { return f.err }

type staticLister struct {
	txs []core.Transaction
	err error
}

func (l staticLister) ListTransactions(context.Context) ([]core.Transaction, error) {
	return l.txs, l.err
}

func tx(id int64, title string) core.Transaction {
	return core.Transaction{
		ID:       id,
		Title:    title,
		Amount:   core.Money{Cents: 500},
		Category: "Food",
		Type:     core.Expense,
		Date:     time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
	}
}

func upsert(t core.Transaction, at time.Time) *amqp.TransactionEvent {
	ev := amqp.NewUpsertedEvent(t)
	ev.Timestamp = at
	return ev
}

func remove(id int64, at time.Time) *amqp.TransactionEvent {
	ev := amqp.NewDeletedEvent(id)
	ev.Timestamp = at
	return ev
}

func TestHandleEvent_AppliesInOrder(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New()
	w := NewSyncWorker(mirror)
	t0 := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

	steps := []*amqp.TransactionEvent{
		upsert(tx(1, "Coffee"), t0),
		upsert(tx(2, "Bread"), t0.Add(time.Second)),
		upsert(tx(1, "Espresso"), t0.Add(2*time.Second)),
		remove(2, t0.Add(3*time.Second)),
	}
	for _, ev := range steps {
		if err := w.HandleEvent(ctx, ev); err != nil {
			t.Fatalf("HandleEvent(%s %d): %v", ev.Kind, ev.TransactionID, err)
		}
	}

	rows := mirror.Rows()
	if len(rows) != 1 || rows[0][0] != "1" || rows[0][1] != "Espresso" {
		t.Errorf("rows = %v", rows)
	}
	if s := w.Stats(); s.Applied != 4 || s.Failed != 0 || s.Skipped != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestHandleEvent_SkipsStaleEvents(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New()
	w := NewSyncWorker(mirror)
	t0 := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

	if err := w.HandleEvent(ctx, upsert(tx(1, "New title"), t0.Add(time.Minute))); err != nil {
		t.Fatal(err)
	}
	// An older update redelivered after the newer one.
	if err := w.HandleEvent(ctx, upsert(tx(1, "Old title"), t0)); err != nil {
		t.Fatal(err)
	}

	row, _ := mirror.Row(1)
	if row[1] != "New title" {
		t.Errorf("stale event rolled the row back: %v", row)
	}
	if s := w.Stats(); s.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", s.Skipped)
	}
}

func TestHandleEvent_ErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		mirror        sheets.TransactionMirror
		ev            *amqp.TransactionEvent
		wantPermanent bool
	}{
		{
			name:          "invalid event",
			mirror:        memory.New(),
			ev:            &amqp.TransactionEvent{Kind: amqp.EventUpserted, TransactionID: 3},
			wantPermanent: true,
		},
		{
			name:          "rejected by mirror",
			mirror:        failingMirror{err: fmt.Errorf("append: %w", sheets.ErrRejected)},
			ev:            upsert(tx(3, "Tea"), time.Now()),
			wantPermanent: true,
		},
		{
			name:          "transient",
			mirror:        failingMirror{err: errors.New("connection reset")},
			ev:            remove(3, time.Now()),
			wantPermanent: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewSyncWorker(tt.mirror)
			err := w.HandleEvent(context.Background(), tt.ev)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, amqp.ErrPermanent); got != tt.wantPermanent {
				t.Errorf("permanent = %v, want %v (err: %v)", got, tt.wantPermanent, err)
			}
			if w.Stats().Failed != 1 {
				t.Errorf("failed = %d, want 1", w.Stats().Failed)
			}
		})
	}
}

func TestHandleEvent_FailedEventIsNotRemembered(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	w := NewSyncWorker(failingMirror{err: errors.New("timeout")})

	_ = w.HandleEvent(ctx, upsert(tx(1, "Later"), t0.Add(time.Minute)))

	mirror := memory.New()
	w.mirror = mirror
	if err := w.HandleEvent(ctx, upsert(tx(1, "Earlier"), t0)); err != nil {
		t.Fatal(err)
	}
	if _, ok := mirror.Row(1); !ok {
		t.Error("event after a failed newer one was skipped")
	}
}

func TestStartupSync(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New()
	w := NewSyncWorker(mirror)

	lister := staticLister{txs: []core.Transaction{tx(1, "A"), tx(2, "B"), tx(3, "C")}}
	if err := w.StartupSync(ctx, lister); err != nil {
		t.Fatalf("StartupSync: %v", err)
	}
	if len(mirror.Rows()) != 3 {
		t.Errorf("rows = %d, want 3", len(mirror.Rows()))
	}

	if err := w.StartupSync(ctx, staticLister{err: errors.New("backend down")}); err == nil {
		t.Error("expected error when listing fails")
	}
}

func TestSeenCacheIsCleanable(t *testing.T) {
	w := NewSyncWorker(memory.New())
	if w.SeenCache() == nil {
		t.Fatal("SeenCache() = nil")
	}
	if n := w.SeenCache().CleanExpired(); n != 0 {
		t.Errorf("CleanExpired() = %d on a fresh worker", n)
	}
}
