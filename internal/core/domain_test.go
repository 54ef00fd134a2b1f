package core

import (
	"errors"
	"testing"
	"time"
)

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestDraftValidate(t *testing.T) {
	good := Draft{
		Title:    "Salary",
		Amount:   Money{Cents: 100000},
		Category: "Other",
		Type:     Income,
		Date:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Draft)
		want   error
	}{
		{"blank title", func(d *Draft) { d.Title = "  " }, ErrEmptyTitle},
		{"zero amount", func(d *Draft) { d.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(d *Draft) { d.Amount = Money{Cents: -5} }, ErrInvalidAmount},
		{"empty category", func(d *Draft) { d.Category = "" }, ErrEmptyCategory},
		{"unknown type", func(d *Draft) { d.Type = "transfer" }, ErrInvalidType},
		{"zero date", func(d *Draft) { d.Date = time.Time{} }, ErrInvalidDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := good
			tc.mutate(&d)
			if err := d.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSigned(t *testing.T) {
	in := Transaction{Type: Income, Amount: Money{Cents: 500}}
	out := Transaction{Type: Expense, Amount: Money{Cents: 500}}
	if in.Signed().Cents != 500 || out.Signed().Cents != -500 {
		t.Fatalf("unexpected signed amounts: %d %d", in.Signed().Cents, out.Signed().Cents)
	}
}

func TestDraftRoundTrip(t *testing.T) {
	d := Draft{Title: "t", Amount: Money{Cents: 1}, Category: "c", Type: Expense, Date: time.Unix(0, 0).UTC()}
	tx := d.WithID(9)
	if tx.ID != 9 || tx.Draft() != d {
		t.Fatalf("draft round trip mismatch: %+v", tx)
	}
}

func TestIsSuggestedCategory(t *testing.T) {
	if !IsSuggestedCategory("Food") {
		t.Fatalf("Food should be suggested")
	}
	if IsSuggestedCategory("Crypto") {
		t.Fatalf("Crypto should not be suggested")
	}
}
