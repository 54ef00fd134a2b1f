package memory

import (
	"context"
	"sort"
	"sync"

	"budget/internal/core"
)

// Store keeps transactions in process memory. It backs the demo backend
// and the API tests.
type Store struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]core.Transaction
}

// New returns a store pre-loaded with seed; seed ids are kept and new ids
// continue after the highest one.
func New(seed ...core.Transaction) *Store {
	s := &Store{items: make(map[int64]core.Transaction, len(seed))}
	for _, tx := range seed {
		s.items[tx.ID] = tx
		if tx.ID > s.nextID {
			s.nextID = tx.ID
		}
	}
	return s
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, tx := range s.items {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.items[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (s *Store) CreateTransaction(_ context.Context, d core.Draft) (core.Transaction, error) {
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	tx := d.WithID(s.nextID)
	tx.Date = tx.Date.UTC()
	s.items[tx.ID] = tx
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, id int64, d core.Draft) (core.Transaction, error) {
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	tx := d.WithID(id)
	tx.Date = tx.Date.UTC()
	s.items[id] = tx
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// Len returns the number of stored transactions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
