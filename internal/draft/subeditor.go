package draft

import (
	"strings"

	"meal-planner/internal/recipe"
)

// Open starts the sub-editor for field with a working copy of its current value.
func (e *Editor) Open(field Field) error {
	if _, ok := fieldNames[field]; !ok {
		return ErrWrongState
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.require(Writing, NoField); err != nil {
		return err
	}
	e.working = e.draft.Clone()
	e.state = State{Mode: Editing, Field: field}
	return nil
}

// Save writes the working copy of the open field back to the draft.
func (e *Editor) Save() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Mode != Editing {
		if e.state.Mode == Closed {
			return ErrNoDraft
		}
		return ErrWrongState
	}

	w := e.working.Clone()
	switch e.state.Field {
	case Course:
		e.draft.Course = w.Course
	case Cuisine:
		e.draft.Cuisine = w.Cuisine
	case Nutrition:
		e.draft.Nutrition = w.Nutrition
	case Ingredients:
		e.draft.Ingredients = w.Ingredients
	case Instructions:
		e.draft.Instructions = w.Instructions
	case Tags:
		e.draft.Tags = w.Tags
	}
	e.working = recipe.Draft{}
	e.state = State{Mode: Writing}
	return nil
}

// Cancel discards the working copy; the draft field keeps its value.
func (e *Editor) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Mode != Editing {
		if e.state.Mode == Closed {
			return ErrNoDraft
		}
		return ErrWrongState
	}
	e.working = recipe.Draft{}
	e.state = State{Mode: Writing}
	return nil
}

func (e *Editor) editWorking(field Field, fn func(w *recipe.Draft)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.require(Editing, field); err != nil {
		return err
	}
	fn(&e.working)
	return nil
}

// SetCourse selects a course. A value matching a suggestion case-insensitively
// is stored with the suggestion's casing.
func (e *Editor) SetCourse(course string) error {
	return e.editWorking(Course, func(w *recipe.Draft) {
		w.Course = e.courses.Canonical(strings.TrimSpace(course))
	})
}

// AddCourse adds a new course suggestion and selects it.
func (e *Editor) AddCourse(course string) error {
	return e.editWorking(Course, func(w *recipe.Draft) {
		if v, _ := e.courses.Add(course); v != "" {
			w.Course = v
		}
	})
}

func (e *Editor) SetCuisine(cuisine string) error {
	return e.editWorking(Cuisine, func(w *recipe.Draft) {
		w.Cuisine = e.cuisines.Canonical(strings.TrimSpace(cuisine))
	})
}

func (e *Editor) AddCuisine(cuisine string) error {
	return e.editWorking(Cuisine, func(w *recipe.Draft) {
		if v, _ := e.cuisines.Add(cuisine); v != "" {
			w.Cuisine = v
		}
	})
}

// SetNutrition replaces the four nutrition values. Values are not validated.
func (e *Editor) SetNutrition(n recipe.Nutrition) error {
	return e.editWorking(Nutrition, func(w *recipe.Draft) {
		w.Nutrition = recipe.Nutrition{
			Calories: recipe.Amount(strings.TrimSpace(string(n.Calories))),
			Protein:  recipe.Amount(strings.TrimSpace(string(n.Protein))),
			Carbs:    recipe.Amount(strings.TrimSpace(string(n.Carbs))),
			Fats:     recipe.Amount(strings.TrimSpace(string(n.Fats))),
		}
	})
}

// AddIngredient appends a trimmed line; blank input is ignored.
func (e *Editor) AddIngredient(line string) error {
	return e.editWorking(Ingredients, func(w *recipe.Draft) {
		w.Ingredients = appendTrimmed(w.Ingredients, line)
	})
}

// RemoveIngredient removes the line at index i; out-of-range indexes are ignored.
func (e *Editor) RemoveIngredient(i int) error {
	return e.editWorking(Ingredients, func(w *recipe.Draft) {
		w.Ingredients = removeAt(w.Ingredients, i)
	})
}

// AddInstruction appends a step. Step numbers follow list positions.
func (e *Editor) AddInstruction(step string) error {
	return e.editWorking(Instructions, func(w *recipe.Draft) {
		w.Instructions = appendTrimmed(w.Instructions, step)
	})
}

func (e *Editor) RemoveInstruction(i int) error {
	return e.editWorking(Instructions, func(w *recipe.Draft) {
		w.Instructions = removeAt(w.Instructions, i)
	})
}

// ToggleTag selects tag, or deselects it when a tag with the same spelling
// ignoring case is already selected.
func (e *Editor) ToggleTag(tag string) error {
	return e.editWorking(Tags, func(w *recipe.Draft) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return
		}
		for i, t := range w.Tags {
			if strings.EqualFold(t, tag) {
				w.Tags = removeAt(w.Tags, i)
				return
			}
		}
		w.Tags = append(w.Tags, tag)
	})
}

// AddTag selects tag, adding it as a custom suggestion unless one of the
// suggested groups already offers it.
func (e *Editor) AddTag(tag string) error {
	return e.editWorking(Tags, func(w *recipe.Draft) {
		v, ok := recipe.SuggestedTag(tag)
		if !ok {
			v, _ = e.customTags.Add(tag)
		}
		if v == "" {
			return
		}
		for _, t := range w.Tags {
			if strings.EqualFold(t, v) {
				return
			}
		}
		w.Tags = append(w.Tags, v)
	})
}

func appendTrimmed(list []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return list
	}
	return append(list, s)
}

func removeAt(list []string, i int) []string {
	if i < 0 || i >= len(list) {
		return list
	}
	return append(list[:i:i], list[i+1:]...)
}
