// Package deck holds the ordered collection of drill items and the
// importers that populate it.
package deck

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrDuplicateID is returned when two items share an id.
	ErrDuplicateID = errors.New("duplicate item id")

	// ErrUnknownItem is returned when an id is not present in the deck.
	ErrUnknownItem = errors.New("unknown item id")

	// ErrEmptyText is returned for items without primary text.
	ErrEmptyText = errors.New("item has no text")
)

// Item is a single unit of study.
//
// Interval is measured in minutes and NextDueAt in Unix milliseconds. A zero
// NextDueAt means the item is due immediately.
type Item struct {
	ID          string `json:"id"`
	Word        string `json:"word,omitempty"`
	Text        string `json:"text"`
	Translation string `json:"translation,omitempty"`
	Interval    int    `json:"interval"`
	NextDueAt   int64  `json:"nextDueAt"`
	ReviewCount int    `json:"reviewCount"`
}

// HasTranslation reports whether the item carries secondary text.
func (i Item) HasTranslation() bool {
	return i.Translation != ""
}

// Deck is an ordered, id-unique collection of items. It is safe for
// concurrent use; readers get snapshots and never alias the internal slice.
type Deck struct {
	mu    sync.RWMutex
	items []Item
	index map[string]int
}

// New builds a deck from items, keeping their order.
func New(items []Item) (*Deck, error) {
	d := &Deck{}
	if err := d.Replace(items); err != nil {
		return nil, err
	}
	return d, nil
}

// Replace swaps the deck contents for items. The deck is left unchanged if
// items fail validation.
func (d *Deck) Replace(items []Item) error {
	index := make(map[string]int, len(items))
	for i, it := range items {
		if it.Text == "" {
			return fmt.Errorf("%w: id %q", ErrEmptyText, it.ID)
		}
		if _, ok := index[it.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateID, it.ID)
		}
		index[it.ID] = i
	}

	cp := make([]Item, len(items))
	copy(cp, items)

	d.mu.Lock()
	d.items = cp
	d.index = index
	d.mu.Unlock()
	return nil
}

// Items returns a copy of the items in deck order.
func (d *Deck) Items() []Item {
	d.mu.RLock()
	defer d.mu.RUnlock()

	cp := make([]Item, len(d.items))
	copy(cp, d.items)
	return cp
}

// Window returns a copy of at most n items starting at offset start. A
// non-positive n means "to the end".
func (d *Deck) Window(start, n int) []Item {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if start < 0 {
		start = 0
	}
	if start >= len(d.items) {
		return []Item{}
	}
	end := len(d.items)
	if n > 0 && start+n < end {
		end = start + n
	}
	cp := make([]Item, end-start)
	copy(cp, d.items[start:end])
	return cp
}

// Len returns the number of items.
func (d *Deck) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.items)
}

// Get returns the item with the given id.
func (d *Deck) Get(id string) (Item, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	i, ok := d.index[id]
	if !ok {
		return Item{}, false
	}
	return d.items[i], true
}

// Update applies fn to the item with the given id in place and returns the
// updated copy. The id itself cannot be changed by fn.
func (d *Deck) Update(id string, fn func(*Item)) (Item, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i, ok := d.index[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	fn(&d.items[i])
	d.items[i].ID = id
	return d.items[i], nil
}
