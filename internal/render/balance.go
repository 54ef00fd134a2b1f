// Package render turns transactions into what the tracker page shows:
// the balance, the newest-first list and the expense pie chart.
package render

import "budget/internal/core"

const (
	ClassPositive = "positive"
	ClassNegative = "negative"
)

// BalanceView is the formatted running balance.
type BalanceView struct {
	Amount core.Money
	Text   string
	Class  string
}

// ComputeBalance sums income minus expense.
func ComputeBalance(txs []core.Transaction) core.Money {
	return core.Balance(txs)
}

// NewBalanceView formats the balance of txs, e.g. "800.00 PLN".
func NewBalanceView(txs []core.Transaction, currency string) BalanceView {
	b := ComputeBalance(txs)
	class := ClassPositive
	if b.IsNegative() {
		class = ClassNegative
	}
	return BalanceView{
		Amount: b,
		Text:   b.Format(currency),
		Class:  class,
	}
}
