// Package memory is an in-process sheets mirror for local runs and tests.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/sheets"
)

// Mirror keeps mirror rows in sheet order: upserts overwrite in place,
// new ids are appended and removals shift later rows up.
type Mirror struct {
	mu   sync.Mutex
	rows [][]string
	now  func() time.Time
}

var _ sheets.TransactionMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{now: time.Now}
}

func (m *Mirror) UpsertTransaction(ctx context.Context, tx core.Transaction) error {
	row := append(sheets.Row(tx), m.now().UTC().Format(sheets.RowTimeLayout))

	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(tx.ID); i >= 0 {
		m.rows[i] = row
	} else {
		m.rows = append(m.rows, row)
	}
	log.FromContext(ctx).WithComponent(log.ComponentSheets).DebugContext(ctx, "Mirrored transaction",
		log.FieldTransactionID, tx.ID, "rows", len(m.rows))
	return nil
}

func (m *Mirror) RemoveTransaction(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(id); i >= 0 {
		m.rows = append(m.rows[:i], m.rows[i+1:]...)
	}
	return nil
}

// Rows returns a copy of the mirrored rows, header excluded.
func (m *Mirror) Rows() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Row returns the row holding id.
func (m *Mirror) Row(id int64) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(id)
	if i < 0 {
		return nil, false
	}
	return append([]string(nil), m.rows[i]...), true
}

func (m *Mirror) indexLocked(id int64) int {
	key := strconv.FormatInt(id, 10)
	for i, r := range m.rows {
		if len(r) > 0 && r[0] == key {
			return i
		}
	}
	return -1
}
