package cart

import (
	"sync"

	"github.com/google/uuid"
)

// CartItem is one entry in a per-store cart, built from pipeline output plus
// whatever the retailer match contributed.
type CartItem struct {
	ID         string   `json:"id"`
	Ingredient string   `json:"ingredient"`
	Name       string   `json:"name"`
	Quantity   *float64 `json:"quantity,omitempty"`
	Unit       string   `json:"unit,omitempty"`
	Notes      string   `json:"notes,omitempty"`
	Store      string   `json:"store"`
	Price      float64  `json:"price"`
	UPC        string   `json:"upc,omitempty"`
}

// Totals are derived per store on every mutation.
type Totals struct {
	Items int     `json:"items"`
	Price float64 `json:"price"`
}

// Event describes a cart change for subscribers.
type Event struct {
	Type   string    `json:"type"`
	Store  string    `json:"store"`
	Item   *CartItem `json:"item,omitempty"`
	Totals Totals    `json:"totals"`
}

const (
	EventItemAdded   = "item_added"
	EventItemRemoved = "item_removed"
	EventCleared     = "cleared"
	EventSubmitted   = "submitted"
)

// Store holds every per-retailer cart for the running app. One instance is
// shared across the HTTP surface so all screens see the same state.
type Store struct {
	mu     sync.RWMutex
	items  map[string][]CartItem
	totals map[string]Totals

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

func NewStore() *Store {
	return &Store{
		items:  make(map[string][]CartItem),
		totals: make(map[string]Totals),
		subs:   make(map[int]chan Event),
	}
}

// AddItem appends an item to its store's cart, assigning an ID when the
// caller didn't.
func (s *Store) AddItem(item CartItem) CartItem {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	s.mu.Lock()
	s.items[item.Store] = append(s.items[item.Store], item)
	s.recomputeLocked(item.Store)
	totals := s.totals[item.Store]
	s.mu.Unlock()

	s.publish(Event{Type: EventItemAdded, Store: item.Store, Item: &item, Totals: totals})
	return item
}

// RemoveItem deletes an item by ID. Returns false when no such item exists.
func (s *Store) RemoveItem(store, id string) bool {
	s.mu.Lock()
	items := s.items[store]
	var removed *CartItem
	for i, item := range items {
		if item.ID == id {
			removed = &item
			s.items[store] = append(items[:i], items[i+1:]...)
			break
		}
	}
	if removed == nil {
		s.mu.Unlock()
		return false
	}
	s.recomputeLocked(store)
	totals := s.totals[store]
	s.mu.Unlock()

	s.publish(Event{Type: EventItemRemoved, Store: store, Item: removed, Totals: totals})
	return true
}

// Clear empties a store's cart.
func (s *Store) Clear(store string) {
	s.mu.Lock()
	delete(s.items, store)
	delete(s.totals, store)
	s.mu.Unlock()

	s.publish(Event{Type: EventCleared, Store: store})
}

// Items returns a copy of a store's cart.
func (s *Store) Items(store string) []CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]CartItem, len(s.items[store]))
	copy(items, s.items[store])
	return items
}

// StoreTotals returns the derived totals for every store with a cart.
func (s *Store) StoreTotals() map[string]Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Totals, len(s.totals))
	for store, totals := range s.totals {
		out[store] = totals
	}
	return out
}

func (s *Store) recomputeLocked(store string) {
	items := s.items[store]
	if len(items) == 0 {
		delete(s.totals, store)
		return
	}
	var totals Totals
	for _, item := range items {
		totals.Items++
		totals.Price += item.Price
	}
	s.totals[store] = totals
}

// Subscribe registers for cart events. The returned cancel func must be
// called to release the subscription.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, 16)
	s.subs[id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

// publish is best-effort: slow subscribers drop events rather than blocking
// mutations.
func (s *Store) publish(event Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, sub := range s.subs {
		select {
		case sub <- event:
		default:
		}
	}
}
