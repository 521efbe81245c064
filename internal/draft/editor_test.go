package draft

import (
	"errors"
	"reflect"
	"testing"

	"meal-planner/internal/recipe"
)

func openEditor(t *testing.T, seed recipe.Draft) (*Editor, Ticket) {
	t.Helper()
	e := NewEditor()
	return e, e.Begin(recipe.SourceWrite, seed)
}

func TestLifecycle(t *testing.T) {
	e := NewEditor()
	if e.State().Mode != Closed {
		t.Fatalf("new editor should be closed, got %s", e.State())
	}
	if _, err := e.Draft(); !errors.Is(err, ErrNoDraft) {
		t.Errorf("expected ErrNoDraft, got %v", err)
	}
	if err := e.SetTitle("x"); !errors.Is(err, ErrNoDraft) {
		t.Errorf("expected ErrNoDraft, got %v", err)
	}

	e.Begin(recipe.SourceKitchen, recipe.Draft{Title: "Pancakes", Ingredients: []string{"2 cups flour"}})
	if got := e.State(); got != (State{Mode: Writing}) {
		t.Fatalf("expected writing, got %s", got)
	}
	d, _ := e.Draft()
	if d.Title != "Pancakes" || d.Source != recipe.SourceKitchen {
		t.Errorf("unexpected seeded draft %+v", d)
	}

	if err := e.Open(Ingredients); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got := e.State().String(); got != "editing:ingredients" {
		t.Errorf("unexpected state %q", got)
	}
	if err := e.SetTitle("nope"); !errors.Is(err, ErrWrongState) {
		t.Errorf("root edit inside sub-editor should fail, got %v", err)
	}
	if err := e.Open(Tags); !errors.Is(err, ErrWrongState) {
		t.Errorf("nested open should fail, got %v", err)
	}
	if err := e.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	committed, err := e.Commit()
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if committed.Title != "Pancakes" {
		t.Errorf("unexpected committed draft %+v", committed)
	}
	if e.State().Mode != Closed {
		t.Error("editor should close after commit")
	}
}

func TestCommitEmptyTitle(t *testing.T) {
	e, _ := openEditor(t, recipe.Draft{Title: "   ", Ingredients: []string{"salt"}})

	if _, err := e.Commit(); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if e.State().Mode != Writing {
		t.Error("editor should stay open after a failed commit")
	}
	d, _ := e.Draft()
	if len(d.Ingredients) != 1 {
		t.Error("draft should be kept after a failed commit")
	}

	e.SetTitle("  Salted Water ")
	committed, err := e.Commit()
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if committed.Title != "Salted Water" {
		t.Errorf("title should be trimmed, got %q", committed.Title)
	}
}

func TestCancelLeavesFieldUnchanged(t *testing.T) {
	e, _ := openEditor(t, recipe.Draft{
		Title:        "Soup",
		Ingredients:  []string{"water"},
		Instructions: []string{"Boil"},
		Nutrition:    recipe.Nutrition{Calories: "100"},
	})

	e.Open(Ingredients)
	e.AddIngredient("salt")
	e.RemoveIngredient(0)
	w, _ := e.Working()
	if !reflect.DeepEqual(w.Ingredients, []string{"salt"}) {
		t.Errorf("unexpected working copy %q", w.Ingredients)
	}
	d, _ := e.Draft()
	if !reflect.DeepEqual(d.Ingredients, []string{"water"}) {
		t.Errorf("draft changed before save: %q", d.Ingredients)
	}
	if err := e.Cancel(); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	d, _ = e.Draft()
	if !reflect.DeepEqual(d.Ingredients, []string{"water"}) {
		t.Errorf("cancel changed the draft: %q", d.Ingredients)
	}

	e.Open(Nutrition)
	e.SetNutrition(recipe.Nutrition{Calories: " 250 ", Protein: "abc"})
	e.Cancel()
	d, _ = e.Draft()
	if d.Nutrition.Calories != "100" {
		t.Errorf("cancel changed nutrition: %+v", d.Nutrition)
	}

	e.Open(Nutrition)
	e.SetNutrition(recipe.Nutrition{Calories: " 250 ", Protein: "abc"})
	e.Save()
	d, _ = e.Draft()
	if d.Nutrition != (recipe.Nutrition{Calories: "250", Protein: "abc"}) {
		t.Errorf("unexpected nutrition after save %+v", d.Nutrition)
	}
}

func TestWorkingCopyIsolation(t *testing.T) {
	e, _ := openEditor(t, recipe.Draft{Title: "Soup", Instructions: []string{"Boil", "Serve"}})

	e.Open(Instructions)
	e.AddInstruction("  ")
	e.AddInstruction(" Season ")
	e.RemoveInstruction(0)
	e.RemoveInstruction(9)
	if err := e.AddIngredient("salt"); !errors.Is(err, ErrWrongState) {
		t.Errorf("operation on another field should fail, got %v", err)
	}
	e.Save()

	d, _ := e.Draft()
	if !reflect.DeepEqual(d.Instructions, []string{"Serve", "Season"}) {
		t.Errorf("unexpected instructions %q", d.Instructions)
	}
}

func TestCourseAndCuisine(t *testing.T) {
	e, _ := openEditor(t, recipe.Draft{Title: "Tacos"})

	e.Open(Course)
	e.SetCourse("main dish")
	e.Save()
	d, _ := e.Draft()
	if d.Course != "Main Dish" {
		t.Errorf("expected canonical casing, got %q", d.Course)
	}

	e.Open(Cuisine)
	e.AddCuisine(" Tex-Mex ")
	e.Save()
	e.Open(Cuisine)
	e.AddCuisine("tex-mex")
	e.Save()
	d, _ = e.Draft()
	if d.Cuisine != "Tex-Mex" {
		t.Errorf("unexpected cuisine %q", d.Cuisine)
	}
	cuisines := e.Cuisines()
	if len(cuisines) != len(recipe.DefaultCuisines)+1 || cuisines[len(cuisines)-1] != "Tex-Mex" {
		t.Errorf("unexpected cuisines %q", cuisines)
	}
}

func TestTags(t *testing.T) {
	e, _ := openEditor(t, recipe.Draft{Title: "Salad", Tags: []string{"Vegan"}})

	e.Open(Tags)
	e.ToggleTag("vegan")
	e.ToggleTag("Healthy")
	e.AddTag(" Picnic ")
	e.AddTag("picnic")
	e.Save()

	d, _ := e.Draft()
	if !reflect.DeepEqual(d.Tags, []string{"Healthy", "Picnic"}) {
		t.Errorf("unexpected tags %q", d.Tags)
	}
	groups := e.TagGroups()
	if len(groups) != 4 || groups[3].Title != "Custom" || groups[3].Tags[0] != "Picnic" {
		t.Errorf("unexpected tag groups %+v", groups)
	}
}

func TestAddSuggestedTag(t *testing.T) {
	e, _ := openEditor(t, recipe.Draft{Title: "Salad"})

	e.Open(Tags)
	e.AddTag("vegan")
	e.AddTag(" VEGAN")
	e.AddTag("one-pot")
	e.Save()

	d, _ := e.Draft()
	if !reflect.DeepEqual(d.Tags, []string{"Vegan", "One-Pot"}) {
		t.Errorf("expected suggested spellings, got %q", d.Tags)
	}
	if groups := e.TagGroups(); len(groups) != len(recipe.TagGroups) {
		t.Errorf("suggested tags must not become custom tags, got %+v", groups[len(groups)-1])
	}

	e.Open(Tags)
	e.ToggleTag("Vegan")
	e.Save()
	if d, _ = e.Draft(); !reflect.DeepEqual(d.Tags, []string{"One-Pot"}) {
		t.Errorf("expected the suggested tag to toggle off, got %q", d.Tags)
	}
}

func TestTickets(t *testing.T) {
	t.Run("ApplyCurrent", func(t *testing.T) {
		e := NewEditor()
		ticket := e.Begin(recipe.SourceSnap, recipe.Draft{})
		if err := e.Apply(ticket, recipe.Draft{Title: "Scanned"}); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		d, _ := e.Draft()
		if d.Title != "Scanned" || d.Source != recipe.SourceSnap {
			t.Errorf("unexpected draft %+v", d)
		}
	})

	t.Run("DiscardedDraft", func(t *testing.T) {
		e := NewEditor()
		ticket := e.Begin(recipe.SourceSearch, recipe.Draft{})
		e.Discard()
		if err := e.Apply(ticket, recipe.Draft{Title: "Late"}); !errors.Is(err, ErrStale) {
			t.Errorf("expected ErrStale, got %v", err)
		}
		if e.State().Mode != Closed {
			t.Error("stale result must not reopen the editor")
		}
	})

	t.Run("SupersededDraft", func(t *testing.T) {
		e := NewEditor()
		first := e.Begin(recipe.SourceSearch, recipe.Draft{})
		second := e.Begin(recipe.SourcePaste, recipe.Draft{Title: "Pasted"})
		if e.Current(first) || !e.Current(second) {
			t.Error("only the latest ticket should be current")
		}
		if err := e.Apply(first, recipe.Draft{Title: "Late"}); !errors.Is(err, ErrStale) {
			t.Errorf("expected ErrStale, got %v", err)
		}
		d, _ := e.Draft()
		if d.Title != "Pasted" {
			t.Errorf("stale result overwrote draft: %+v", d)
		}
	})

	t.Run("Abandon", func(t *testing.T) {
		e := NewEditor()
		first := e.Begin(recipe.SourceSnap, recipe.Draft{})
		second := e.Begin(recipe.SourceWrite, recipe.Draft{Title: "Typed"})
		if e.Abandon(first) {
			t.Error("abandoning a superseded ticket must not close the editor")
		}
		if !e.Abandon(second) || e.State().Mode != Closed {
			t.Error("abandoning the current ticket should close the editor")
		}
	})

	t.Run("ApplyClosesSubEditor", func(t *testing.T) {
		e := NewEditor()
		ticket := e.Begin(recipe.SourceSnap, recipe.Draft{})
		e.Open(Tags)
		if err := e.Apply(ticket, recipe.Draft{Title: "Scanned"}); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if e.State().Mode != Writing {
			t.Errorf("expected writing, got %s", e.State())
		}
	})
}

func TestParseField(t *testing.T) {
	f, err := ParseField(" Nutrition ")
	if err != nil || f != Nutrition {
		t.Errorf("ParseField = %v, %v", f, err)
	}
	if _, err := ParseField("servings"); err == nil {
		t.Error("expected error for unknown field")
	}
}
