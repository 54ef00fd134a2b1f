// Package viewmodel holds the tracker's UI state: the form, its create or
// edit mode, the last fetched transactions and the single chart slot.
package viewmodel

// Mode is either Creating or Editing. Switches over it list both cases.
type Mode interface {
	isMode()
}

// Creating means the next submit creates a new transaction.
type Creating struct{}

// Editing means the next submit updates transaction ID.
type Editing struct {
	ID int64
}

func (Creating) isMode() {}
func (Editing) isMode()  {}

// EditingID returns the id under edit, if any.
func EditingID(m Mode) (int64, bool) {
	switch m := m.(type) {
	case Editing:
		return m.ID, true
	case Creating, nil:
		return 0, false
	default:
		panic("viewmodel: unknown mode")
	}
}
