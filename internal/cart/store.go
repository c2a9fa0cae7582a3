// Package cart keeps the shopper's line items in memory.
package cart

import (
	"sync"

	"noor-storefront/internal/domain"
	"noor-storefront/internal/notify"
)

// Store is an ordered set of line items keyed by product id. It is not persisted.
type Store struct {
	mu    sync.RWMutex
	items []domain.LineItem
	seq   uint64
	hub   notify.Hub[[]domain.LineItem]
}

func New() *Store {
	return &Store{}
}

// Add adds one unit of p.
func (s *Store) Add(p domain.CartProduct) {
	s.AddItem(p, 1)
}

// AddItem increments the quantity of an existing line or appends a new one.
// Name and price of an existing line are kept as first added. A new line with
// quantity <= 0 is not created.
func (s *Store) AddItem(p domain.CartProduct, quantity int) {
	s.mutate(func(items []domain.LineItem) []domain.LineItem {
		if i := indexOf(items, p.ID); i >= 0 {
			next := items[i].Quantity + quantity
			if next <= 0 {
				return remove(items, i)
			}
			items[i].Quantity = next
			return items
		}
		if quantity <= 0 {
			return items
		}
		return append(items, domain.LineItem{ID: p.ID, Name: p.Name, Price: p.Price, Quantity: quantity})
	})
}

// RemoveItem deletes the line for id; a missing id is a no-op.
func (s *Store) RemoveItem(id int64) {
	s.mutate(func(items []domain.LineItem) []domain.LineItem {
		if i := indexOf(items, id); i >= 0 {
			return remove(items, i)
		}
		return items
	})
}

// UpdateQuantity sets the absolute quantity; quantity <= 0 removes the line.
func (s *Store) UpdateQuantity(id int64, quantity int) {
	s.mutate(func(items []domain.LineItem) []domain.LineItem {
		i := indexOf(items, id)
		if i < 0 {
			return items
		}
		if quantity <= 0 {
			return remove(items, i)
		}
		items[i].Quantity = quantity
		return items
	})
}

func (s *Store) Clear() {
	s.mutate(func([]domain.LineItem) []domain.LineItem {
		return nil
	})
}

// Items returns a copy of the line items in insertion order. Never nil.
func (s *Store) Items() []domain.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.items)
}

// Total is the sum of price times quantity, computed on every call.
func (s *Store) Total() domain.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total domain.Money
	for _, item := range s.items {
		total = total.Plus(item.Subtotal())
	}
	return total
}

// Count is the number of units across all lines.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, item := range s.items {
		n += item.Quantity
	}
	return n
}

// Subscribe registers fn to receive the items after every mutation.
func (s *Store) Subscribe(fn func([]domain.LineItem)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

func (s *Store) mutate(fn func([]domain.LineItem) []domain.LineItem) {
	s.mu.Lock()
	s.items = fn(clone(s.items))
	s.seq++
	seq := s.seq
	snap := clone(s.items)
	s.mu.Unlock()
	s.hub.Publish(seq, snap)
}

func indexOf(items []domain.LineItem, id int64) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func remove(items []domain.LineItem, i int) []domain.LineItem {
	return append(items[:i], items[i+1:]...)
}

func clone(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, len(items))
	copy(out, items)
	return out
}
