package app

import (
	"strings"

	"meal-planner/internal/draft"
	"meal-planner/internal/recipe"
)

// DraftPatch is a set of field changes for the open draft. Nil fields are
// left alone. List fields replace the whole list.
type DraftPatch struct {
	Title        *string           `json:"title,omitempty"`
	Image        *string           `json:"image,omitempty"`
	PrepTime     *string           `json:"prepTime,omitempty"`
	CookTime     *string           `json:"cookTime,omitempty"`
	Notes        *string           `json:"notes,omitempty"`
	Course       *string           `json:"course,omitempty"`
	Cuisine      *string           `json:"cuisine,omitempty"`
	Nutrition    *recipe.Nutrition `json:"nutrition,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Ingredients  []string          `json:"ingredients,omitempty"`
	Instructions []string          `json:"instructions,omitempty"`
}

// EditDraft applies p to the open draft. Root fields are set directly; every
// other field goes through its sub-editor, which is saved on success and
// cancelled on failure.
func (a *App) EditDraft(s *Session, p DraftPatch) (recipe.Draft, error) {
	e := s.Editor
	root := []struct {
		v   *string
		set func(string) error
	}{
		{p.Title, e.SetTitle},
		{p.Image, e.SetImage},
		{p.PrepTime, e.SetPrepTime},
		{p.CookTime, e.SetCookTime},
		{p.Notes, e.SetNotes},
	}
	for _, f := range root {
		if f.v == nil {
			continue
		}
		if err := f.set(*f.v); err != nil {
			return recipe.Draft{}, err
		}
	}

	if p.Course != nil {
		if err := inField(e, draft.Course, func() error { return e.AddCourse(*p.Course) }); err != nil {
			return recipe.Draft{}, err
		}
	}
	if p.Cuisine != nil {
		if err := inField(e, draft.Cuisine, func() error { return e.AddCuisine(*p.Cuisine) }); err != nil {
			return recipe.Draft{}, err
		}
	}
	if p.Nutrition != nil {
		if err := inField(e, draft.Nutrition, func() error { return e.SetNutrition(*p.Nutrition) }); err != nil {
			return recipe.Draft{}, err
		}
	}
	if p.Ingredients != nil {
		err := inField(e, draft.Ingredients, func() error {
			return replaceLines(e, e.RemoveIngredient, e.AddIngredient, p.Ingredients, func(d recipe.Draft) int { return len(d.Ingredients) })
		})
		if err != nil {
			return recipe.Draft{}, err
		}
	}
	if p.Instructions != nil {
		err := inField(e, draft.Instructions, func() error {
			return replaceLines(e, e.RemoveInstruction, e.AddInstruction, p.Instructions, func(d recipe.Draft) int { return len(d.Instructions) })
		})
		if err != nil {
			return recipe.Draft{}, err
		}
	}
	if p.Tags != nil {
		if err := inField(e, draft.Tags, func() error { return replaceTags(e, p.Tags) }); err != nil {
			return recipe.Draft{}, err
		}
	}
	return e.Draft()
}

func inField(e *draft.Editor, f draft.Field, fn func() error) error {
	if err := e.Open(f); err != nil {
		return err
	}
	if err := fn(); err != nil {
		_ = e.Cancel()
		return err
	}
	return e.Save()
}

func replaceLines(e *draft.Editor, remove func(int) error, add func(string) error, lines []string, count func(recipe.Draft) int) error {
	w, err := e.Working()
	if err != nil {
		return err
	}
	for i := count(w); i > 0; i-- {
		if err := remove(0); err != nil {
			return err
		}
	}
	for _, line := range lines {
		if err := add(line); err != nil {
			return err
		}
	}
	return nil
}

func replaceTags(e *draft.Editor, tags []string) error {
	w, err := e.Working()
	if err != nil {
		return err
	}
	for _, t := range w.Tags {
		if err := e.ToggleTag(t); err != nil {
			return err
		}
	}
	suggested := make(map[string]bool)
	for _, g := range recipe.TagGroups {
		for _, t := range g.Tags {
			suggested[strings.ToLower(t)] = true
		}
	}
	for _, t := range tags {
		add := e.AddTag
		if suggested[strings.ToLower(strings.TrimSpace(t))] {
			add = e.ToggleTag
		}
		if err := add(t); err != nil {
			return err
		}
	}
	return nil
}
