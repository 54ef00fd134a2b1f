package viewmodel

import (
	"strings"
	"time"

	"budget/internal/core"
)

const (
	LabelCreate = "Add Transaction"
	LabelEdit   = "Save Changes"

	ClassCreate = "primary"
	ClassEdit   = "warning"

	// ValidationMessage is shown for any combination of invalid fields.
	ValidationMessage = "Please fill in all fields correctly: title, amount (> 0), category, type and date."
)

// Field names as posted by the form.
const (
	FieldTitle    = "title"
	FieldAmount   = "amount"
	FieldCategory = "category"
	FieldType     = "type"
	FieldDate     = "date"
)

// Fields are the raw form inputs. Date uses the datetime-local layout.
type Fields struct {
	Title    string
	Amount   string
	Category string
	Type     string
	Date     string
}

// ValidationError lists the fields that failed the client-side gate.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string { return ValidationMessage }

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Form is the add/edit form state.
type Form struct {
	Mode   Mode
	Fields Fields
	// Invalid marks fields from the last failed validation.
	Invalid map[string]bool

	submitting bool
}

// NewForm returns a form in Creating mode.
func NewForm() Form {
	var f Form
	f.Reset()
	return f
}

// Reset clears every field and returns to Creating. The in-flight flag
// belongs to the running submit and is left alone.
func (f *Form) Reset() {
	f.Mode = Creating{}
	f.Fields = Fields{}
	f.Invalid = nil
}

// EnterEditMode pre-fills the form from tx. The date is shown in loc.
func (f *Form) EnterEditMode(tx core.Transaction, loc *time.Location) {
	f.Mode = Editing{ID: tx.ID}
	f.Fields = Fields{
		Title:    tx.Title,
		Amount:   tx.Amount.String(),
		Category: tx.Category,
		Type:     string(tx.Type),
		Date:     core.FormatDateTimeLocal(tx.Date, loc),
	}
	f.Invalid = nil
}

// SetFields replaces the entered values, keeping the mode.
func (f *Form) SetFields(fields Fields) {
	f.Fields = fields
}

// Validate checks the entered values and builds a draft. Every failing
// field is reported in a single *ValidationError.
func (f *Form) Validate(loc *time.Location) (core.Draft, error) {
	var (
		d       core.Draft
		invalid []string
	)

	d.Title = strings.TrimSpace(f.Fields.Title)
	if d.Title == "" {
		invalid = append(invalid, FieldTitle)
	}

	if m, err := core.NewMoney(f.Fields.Amount); err != nil || m.Validate() != nil {
		invalid = append(invalid, FieldAmount)
	} else {
		d.Amount = m
	}

	d.Category = strings.TrimSpace(f.Fields.Category)
	if d.Category == "" {
		invalid = append(invalid, FieldCategory)
	}

	d.Type = core.TransactionType(strings.TrimSpace(f.Fields.Type))
	if !d.Type.Valid() {
		invalid = append(invalid, FieldType)
	}

	if date, err := core.ParseDateTimeLocal(f.Fields.Date, loc); err != nil {
		invalid = append(invalid, FieldDate)
	} else {
		d.Date = date
	}

	if len(invalid) > 0 {
		f.Invalid = make(map[string]bool, len(invalid))
		for _, name := range invalid {
			f.Invalid[name] = true
		}
		return core.Draft{}, &ValidationError{Fields: invalid}
	}
	f.Invalid = nil
	return d, nil
}

// BeginSubmit marks a submit in flight. It returns false if one already is.
func (f *Form) BeginSubmit() bool {
	if f.submitting {
		return false
	}
	f.submitting = true
	return true
}

// EndSubmit clears the in-flight flag.
func (f *Form) EndSubmit() { f.submitting = false }

// Submitting reports whether a submit is in flight.
func (f *Form) Submitting() bool { return f.submitting }

func (f *Form) SubmitLabel() string {
	switch f.Mode.(type) {
	case Editing:
		return LabelEdit
	case Creating, nil:
		return LabelCreate
	default:
		panic("viewmodel: unknown mode")
	}
}

func (f *Form) SubmitClass() string {
	switch f.Mode.(type) {
	case Editing:
		return ClassEdit
	case Creating, nil:
		return ClassCreate
	default:
		panic("viewmodel: unknown mode")
	}
}

// IsEditing reports whether the form targets an existing transaction.
func (f *Form) IsEditing() bool {
	_, ok := EditingID(f.Mode)
	return ok
}
