package viewmodel

import "budget/internal/core"

// Chart is a rendered chart that must be released before it is replaced.
type Chart interface {
	Destroy()
}

// ChartSlot holds at most one live chart.
type ChartSlot struct {
	current Chart
}

// Replace destroys the current chart, if any, and installs c.
func (s *ChartSlot) Replace(c Chart) {
	if s.current != nil {
		s.current.Destroy()
	}
	s.current = c
}

// Current returns the live chart or nil.
func (s *ChartSlot) Current() Chart { return s.current }

// ViewModel is everything the tracker page shows.
type ViewModel struct {
	Form         Form
	Transactions []core.Transaction
	Chart        ChartSlot
}

// New returns an empty view-model with the form in Creating mode.
func New() *ViewModel {
	return &ViewModel{
		Form:         NewForm(),
		Transactions: []core.Transaction{},
	}
}
