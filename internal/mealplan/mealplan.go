// Package mealplan holds the per-date meal plan: date, then meal type, then
// the ordered entries added for that slot.
package mealplan

import (
	"sort"
	"strings"
	"sync"
)

// DefaultMealTypes are present on every date held by the store, in display order.
var DefaultMealTypes = []string{"Break Fast", "Lunch", "Dinner", "Snack"}

// Entry is one meal in a slot. RecipeID references the archived full draft
// when the entry was committed from the draft editor.
type Entry struct {
	Name     string `json:"name" yaml:"name"`
	RecipeID string `json:"recipeId,omitempty" yaml:"recipeId,omitempty"`
}

// Meal is the ordered entries of one meal type on one date.
type Meal struct {
	Type    string  `json:"type" yaml:"type"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

// Day is the full plan for one date.
type Day struct {
	Date  string `json:"date" yaml:"date"`
	Meals []Meal `json:"meals" yaml:"meals"`
}

// Entries returns the entries of mealType, or nil.
func (d Day) Entries(mealType string) []Entry {
	for _, m := range d.Meals {
		if m.Type == mealType {
			return m.Entries
		}
	}
	return nil
}

// Plan is a serializable snapshot of the store, dates in ascending order.
type Plan struct {
	Days []Day `json:"days" yaml:"days"`
}

type day struct {
	types   []string
	entries map[string][]Entry
}

func newDay() *day {
	d := &day{entries: make(map[string][]Entry)}
	for _, t := range DefaultMealTypes {
		d.addType(t)
	}
	return d
}

func (d *day) addType(mealType string) {
	if _, ok := d.entries[mealType]; ok {
		return
	}
	d.types = append(d.types, mealType)
	d.entries[mealType] = []Entry{}
}

func (d *day) view(date string) Day {
	out := Day{Date: date, Meals: make([]Meal, 0, len(d.types))}
	for _, t := range d.types {
		entries := make([]Entry, len(d.entries[t]))
		copy(entries, d.entries[t])
		out.Meals = append(out.Meals, Meal{Type: t, Entries: entries})
	}
	return out
}

// Store is safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	days map[string]*day
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{days: make(map[string]*day)}
}

// AddMeal appends a meal named name to the date and meal type. Blank names are
// ignored and reported as false.
func (s *Store) AddMeal(date, mealType, name string) bool {
	return s.AddEntry(date, mealType, Entry{Name: name})
}

// AddEntry appends e to the date and meal type, creating the date with all
// default meal types when it is new. The entry name is trimmed; a blank name
// leaves the store unchanged.
func (s *Store) AddEntry(date, mealType string, e Entry) bool {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" || date == "" || mealType == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.days[date]
	if !ok {
		d = newDay()
		s.days[date] = d
	}
	d.addType(mealType)
	d.entries[mealType] = append(d.entries[mealType], e)
	return true
}

// SelectDate returns the plan for date. A date with no entries still lists
// every default meal type, each with an empty sequence.
func (s *Store) SelectDate(date string) Day {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.days[date]; ok {
		return d.view(date)
	}
	return newDay().view(date)
}

// Dates returns the dates present in the store in ascending order.
func (s *Store) Dates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedDates()
}

func (s *Store) sortedDates() []string {
	dates := make([]string, 0, len(s.days))
	for date := range s.days {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// Snapshot copies the store contents.
func (s *Store) Snapshot() Plan {
	s.mu.Lock()
	defer s.mu.Unlock()

	dates := s.sortedDates()
	plan := Plan{Days: make([]Day, 0, len(dates))}
	for _, date := range dates {
		plan.Days = append(plan.Days, s.days[date].view(date))
	}
	return plan
}

// Restore replaces the store contents with p. Missing default meal types are
// filled in and blank entries are dropped.
func (s *Store) Restore(p Plan) {
	days := make(map[string]*day, len(p.Days))
	for _, pd := range p.Days {
		if pd.Date == "" {
			continue
		}
		d, ok := days[pd.Date]
		if !ok {
			d = newDay()
			days[pd.Date] = d
		}
		for _, m := range pd.Meals {
			if m.Type == "" {
				continue
			}
			d.addType(m.Type)
			for _, e := range m.Entries {
				e.Name = strings.TrimSpace(e.Name)
				if e.Name != "" {
					d.entries[m.Type] = append(d.entries[m.Type], e)
				}
			}
		}
	}

	s.mu.Lock()
	s.days = days
	s.mu.Unlock()
}
