package core

import (
	"sort"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Balance is total income minus total expense.
func Balance(txs []Transaction) Money {
	var total Money
	for _, tx := range txs {
		total = total.Add(tx.Signed())
	}
	return total
}

// ExpensesByCategory sums expense amounts per category in first-seen order.
// Income never contributes.
func ExpensesByCategory(txs []Transaction) []CategoryAmount {
	idx := make(map[string]int)
	var out []CategoryAmount
	for _, tx := range txs {
		if tx.Type != Expense {
			continue
		}
		i, ok := idx[tx.Category]
		if !ok {
			i = len(out)
			idx[tx.Category] = i
			out = append(out, CategoryAmount{Name: tx.Category})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
	}
	return out
}

// TotalExpenses sums every expense amount.
func TotalExpenses(txs []Transaction) Money {
	var total Money
	for _, tx := range txs {
		if tx.Type == Expense {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// SortNewestFirst returns a copy of txs ordered by date descending.
// Equal dates keep their input order.
func SortNewestFirst(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}
