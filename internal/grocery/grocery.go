// Package grocery holds the categorized grocery list.
package grocery

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Categories are offered when creating an item. Any other category name is
// accepted as well.
var Categories = []string{"Produce", "Pantry", "Dairy", "Meat & Seafood", "Frozen", "Bakery", "Other"}

// EmptyShareText is shared when nothing is left to buy.
const EmptyShareText = "Your grocery list is empty or all items are checked."

// ErrEmptyName is returned when an item name is blank after trimming.
var ErrEmptyName = errors.New("grocery item name is empty")

// Item is one line of the grocery list.
type Item struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Quantity string `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Checked  bool   `json:"checked" yaml:"checked"`
}

// Category is one named section of the list with its items in order.
type Category struct {
	Name  string `json:"name" yaml:"name"`
	Items []Item `json:"items" yaml:"items"`
}

// List is a serializable snapshot of the store, categories in insertion order.
type List struct {
	Categories []Category `json:"categories" yaml:"categories"`
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a new lexically sortable item id. Ids generated within the
// same millisecond still increase.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewItem builds an unchecked item from user input.
func NewItem(name, quantity string) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, ErrEmptyName
	}
	return Item{ID: NewID(), Name: name, Quantity: strings.TrimSpace(quantity)}, nil
}

// Store is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	order []string
	items map[string][]Item
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{items: make(map[string][]Item)}
}

// AddItem appends item to category, creating the category at the end when
// it is new.
func (s *Store) AddItem(category string, item Item) error {
	if strings.TrimSpace(item.Name) == "" {
		return ErrEmptyName
	}
	if category == "" {
		return fmt.Errorf("failed to add item %q: category is empty", item.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(category, item)
	return nil
}

func (s *Store) add(category string, item Item) {
	if _, ok := s.items[category]; !ok {
		s.order = append(s.order, category)
	}
	s.items[category] = append(s.items[category], item)
}

func (s *Store) indexOf(category, id string) int {
	for i, it := range s.items[category] {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// ToggleChecked flips the checked flag of the item. It reports false and
// changes nothing when the category or item does not exist.
func (s *Store) ToggleChecked(category, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(category, id)
	if i < 0 {
		return false
	}
	s.items[category][i].Checked = !s.items[category][i].Checked
	return true
}

// DeleteItem removes the item. It reports false and changes nothing when the
// category or item does not exist. An emptied category is kept.
func (s *Store) DeleteItem(category, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(category, id)
	if i < 0 {
		return false
	}
	items := s.items[category]
	s.items[category] = append(items[:i:i], items[i+1:]...)
	return true
}

// EditItem replaces the item identified by id in from with the new name and
// quantity, moving it to the end of to when the category changes. The id and
// checked flag are kept. Removal and insertion happen under one lock, so no
// reader ever sees the item in both or neither category.
func (s *Store) EditItem(from, to, id, name, quantity string) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, ErrEmptyName
	}
	if to == "" {
		to = from
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(from, id)
	if i < 0 {
		return Item{}, fmt.Errorf("failed to edit item %s: not found in %q", id, from)
	}

	edited := s.items[from][i]
	edited.Name = name
	edited.Quantity = strings.TrimSpace(quantity)

	if from == to {
		s.items[from][i] = edited
		return edited, nil
	}

	items := s.items[from]
	s.items[from] = append(items[:i:i], items[i+1:]...)
	s.add(to, edited)
	return edited, nil
}

// CategoryNames returns the categories in insertion order.
func (s *Store) CategoryNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Items returns a copy of the items of category.
func (s *Store) Items(category string) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items[category]))
	copy(out, s.items[category])
	return out
}

// Find locates an item by id in any category.
func (s *Store) Find(id string) (string, Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.order {
		if i := s.indexOf(c, id); i >= 0 {
			return c, s.items[c][i], true
		}
	}
	return "", Item{}, false
}

// BuildShareText renders the unchecked items grouped by category, skipping
// categories with nothing left to buy.
func (s *Store) BuildShareText() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	for _, c := range s.order {
		var lines strings.Builder
		for _, it := range s.items[c] {
			if it.Checked {
				continue
			}
			lines.WriteString("• " + it.Name)
			if it.Quantity != "" {
				lines.WriteString(" (" + it.Quantity + ")")
			}
			lines.WriteString("\n")
		}
		if lines.Len() == 0 {
			continue
		}
		b.WriteString("\n🧺 " + c + ":\n")
		b.WriteString(lines.String())
	}

	if strings.TrimSpace(b.String()) == "" {
		return EmptyShareText
	}
	return b.String()
}

// Snapshot copies the store contents.
func (s *Store) Snapshot() List {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := List{Categories: make([]Category, 0, len(s.order))}
	for _, c := range s.order {
		items := make([]Item, len(s.items[c]))
		copy(items, s.items[c])
		list.Categories = append(list.Categories, Category{Name: c, Items: items})
	}
	return list
}

// Restore replaces the store contents with l. Items without an id get one.
func (s *Store) Restore(l List) {
	order := make([]string, 0, len(l.Categories))
	items := make(map[string][]Item, len(l.Categories))
	for _, c := range l.Categories {
		if c.Name == "" {
			continue
		}
		if _, ok := items[c.Name]; !ok {
			order = append(order, c.Name)
			items[c.Name] = []Item{}
		}
		for _, it := range c.Items {
			if it.ID == "" {
				it.ID = NewID()
			}
			items[c.Name] = append(items[c.Name], it)
		}
	}

	s.mu.Lock()
	s.order = order
	s.items = items
	s.mu.Unlock()
}
