package app

import (
	"context"
	"errors"
	"sync"

	"meal-planner/internal/draft"
	"meal-planner/internal/grocery"
	"meal-planner/internal/mealplan"
)

// Target is the plan slot a committed draft lands in.
type Target struct {
	Date     string `json:"date"`
	MealType string `json:"mealType"`
}

// Session is the state of one user: a meal plan, a grocery list and the
// draft editor.
type Session struct {
	ID        string
	Plans     *mealplan.Store
	Groceries *grocery.Store
	Editor    *draft.Editor

	mu       sync.Mutex
	selected string
	target   Target

	saveMu sync.Mutex
}

func newSession(id string) *Session {
	return &Session{
		ID:        id,
		Plans:     mealplan.NewStore(),
		Groceries: grocery.NewStore(),
		Editor:    draft.NewEditor(),
	}
}

// SelectedDate returns the date the plan view is on.
func (s *Session) SelectedDate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Select moves the plan view to date and returns its meals.
func (s *Session) Select(date string) mealplan.Day {
	s.mu.Lock()
	s.selected = date
	s.mu.Unlock()
	return s.Plans.SelectDate(date)
}

// Target returns where the open draft will be committed.
func (s *Session) Target() Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

func (s *Session) setTarget(t Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Date == "" {
		t.Date = s.selected
	}
	if t.MealType == "" {
		t.MealType = mealplan.DefaultMealTypes[0]
	}
	s.target = t
}

// AddMeal appends a manually named meal. Blank names are ignored.
func (a *App) AddMeal(ctx context.Context, s *Session, date, mealType, name string) (bool, error) {
	if !s.Plans.AddMeal(date, mealType, name) {
		return false, nil
	}
	return true, a.persist(ctx, s)
}

// AddGroceryItem creates an item in category. An empty name is a validation
// failure and leaves the list unchanged.
func (a *App) AddGroceryItem(ctx context.Context, s *Session, category, name, quantity string) (grocery.Item, error) {
	item, err := grocery.NewItem(name, quantity)
	if err != nil {
		return grocery.Item{}, &Error{Kind: KindValidation, Op: "grocery.add", Err: err}
	}
	if err := s.Groceries.AddItem(category, item); err != nil {
		return grocery.Item{}, &Error{Kind: KindValidation, Op: "grocery.add", Err: err}
	}
	return item, a.persist(ctx, s)
}

// ToggleGroceryItem flips the checked flag. A miss is a no-op.
func (a *App) ToggleGroceryItem(ctx context.Context, s *Session, category, id string) (bool, error) {
	if !s.Groceries.ToggleChecked(category, id) {
		return false, nil
	}
	return true, a.persist(ctx, s)
}

// DeleteGroceryItem removes an item. A miss is a no-op.
func (a *App) DeleteGroceryItem(ctx context.Context, s *Session, category, id string) (bool, error) {
	if !s.Groceries.DeleteItem(category, id) {
		return false, nil
	}
	return true, a.persist(ctx, s)
}

// EditGroceryItem renames an item and optionally moves it to another category.
func (a *App) EditGroceryItem(ctx context.Context, s *Session, from, to, id, name, quantity string) (grocery.Item, error) {
	item, err := s.Groceries.EditItem(from, to, id, name, quantity)
	if err != nil {
		if errors.Is(err, grocery.ErrEmptyName) {
			return grocery.Item{}, &Error{Kind: KindValidation, Op: "grocery.edit", Err: err}
		}
		return grocery.Item{}, &Error{Kind: KindNotFound, Op: "grocery.edit", Err: err}
	}
	return item, a.persist(ctx, s)
}
