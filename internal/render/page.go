package render

import (
	"time"

	"budget/internal/core"
	"budget/internal/viewmodel"
)

// Options carry display settings.
type Options struct {
	Currency string
	Location *time.Location
}

// ChartView is a detached copy of a PieChart, safe to render after the
// view-model has moved on.
type ChartView struct {
	Title  string
	Slices []Slice
	Total  string
	Empty  bool
}

// View copies the chart for rendering.
func (c *PieChart) View(currency string) ChartView {
	if c == nil {
		return ChartView{Title: ChartTitle, Empty: true}
	}
	slices := make([]Slice, len(c.Slices))
	copy(slices, c.Slices)
	return ChartView{
		Title:  c.Title,
		Slices: slices,
		Total:  c.Total.Format(currency),
		Empty:  len(slices) == 0,
	}
}

// FormView is the add/edit form as the template sees it.
type FormView struct {
	Title    string
	Amount   string
	Category string
	Type     string
	Date     string

	Editing     bool
	EditID      int64
	Heading     string
	SubmitLabel string
	SubmitClass string
	Invalid     map[string]bool
}

// HasError reports whether field failed the last validation.
func (f FormView) HasError(field string) bool { return f.Invalid[field] }

// Notice is a message shown on a full page render, where no HX-Trigger
// header can carry it.
type Notice struct {
	Level   string
	Message string
}

// Page is everything the templates need, detached from the view-model.
type Page struct {
	Notices    []Notice
	Currency   string
	Categories []string
	Balance    BalanceView
	Rows       []Row
	Chart      ChartView
	Form       FormView
}

// BuildPage snapshots vm. Balance and rows are computed from the last
// fetched transactions; the chart comes from the view-model's slot.
func BuildPage(vm *viewmodel.ViewModel, opts Options) Page {
	var chart *PieChart
	if c, ok := vm.Chart.Current().(*PieChart); ok {
		chart = c
	}
	return Page{
		Currency:   opts.Currency,
		Categories: core.Categories,
		Balance:    NewBalanceView(vm.Transactions, opts.Currency),
		Rows:       ListRows(vm.Transactions, opts.Currency, opts.Location),
		Chart:      chart.View(opts.Currency),
		Form:       NewFormView(&vm.Form),
	}
}

// NewFormView copies the form state.
func NewFormView(f *viewmodel.Form) FormView {
	fv := FormView{
		Title:       f.Fields.Title,
		Amount:      f.Fields.Amount,
		Category:    f.Fields.Category,
		Type:        f.Fields.Type,
		Date:        f.Fields.Date,
		SubmitLabel: f.SubmitLabel(),
		SubmitClass: f.SubmitClass(),
		Heading:     "Add a transaction",
	}
	if id, ok := viewmodel.EditingID(f.Mode); ok {
		fv.Editing = true
		fv.EditID = id
		fv.Heading = "Edit transaction"
	}
	if len(f.Invalid) > 0 {
		fv.Invalid = make(map[string]bool, len(f.Invalid))
		for k, v := range f.Invalid {
			fv.Invalid[k] = v
		}
	}
	return fv
}
