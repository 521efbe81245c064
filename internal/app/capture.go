package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"meal-planner/internal/draft"
	"meal-planner/internal/mealplan"
	"meal-planner/internal/recipe"
)

// Image is a photo delivered by a front-end for scanning.
type Image struct {
	Data     []byte
	MimeType string
	URI      string
}

// StartWrite opens an empty draft for manual entry.
func (a *App) StartWrite(s *Session, target Target) draft.Ticket {
	s.setTarget(target)
	return s.Editor.Begin(recipe.SourceWrite, recipe.Draft{})
}

// Paste opens a draft built from pasted recipe text.
func (a *App) Paste(s *Session, target Target, text string) recipe.Draft {
	s.setTarget(target)
	d := recipe.FromParsed(recipe.Normalize(text), recipe.SourcePaste)
	s.Editor.Begin(recipe.SourcePaste, d)
	return d
}

// Snap recognizes the text of a recipe photo and opens a draft built from it.
func (a *App) Snap(ctx context.Context, s *Session, target Target, img Image) (recipe.Draft, error) {
	const op = "capture.snap"
	if len(img.Data) == 0 {
		return recipe.Draft{}, a.fail(ctx, op, KindPermission, ErrPermissionDenied)
	}
	if a.recognizer == nil {
		return recipe.Draft{}, a.fail(ctx, op, KindRemote, errors.New("no OCR provider configured"))
	}

	s.setTarget(target)
	ticket := s.Editor.Begin(recipe.SourceSnap, recipe.Draft{Image: img.URI})

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	text, err := a.recognizer.Recognize(callCtx, img.Data, img.MimeType)
	if err != nil {
		s.Editor.Abandon(ticket)
		return recipe.Draft{}, a.fail(ctx, op, KindRemote, err)
	}

	d := recipe.FromParsed(recipe.Normalize(text), recipe.SourceSnap)
	d.Image = img.URI
	return d, a.apply(ctx, op, s, ticket, d)
}

// Search imports a recipe from a web page and opens a draft with it.
func (a *App) Search(ctx context.Context, s *Session, target Target, pageURL string) (recipe.Draft, error) {
	const op = "capture.search"
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return recipe.Draft{}, &Error{Kind: KindValidation, Op: op, Err: errors.New("empty url")}
	}
	if a.scraper == nil {
		return recipe.Draft{}, a.fail(ctx, op, KindRemote, errors.New("no recipe scraper configured"))
	}

	s.setTarget(target)
	ticket := s.Editor.Begin(recipe.SourceSearch, recipe.Draft{})

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	d, err := a.scraper.Scrape(callCtx, pageURL)
	if err != nil {
		s.Editor.Abandon(ticket)
		return recipe.Draft{}, a.fail(ctx, op, KindRemote, err)
	}
	d.Source = recipe.SourceSearch
	return d, a.apply(ctx, op, s, ticket, d)
}

// Kitchen opens a draft from a curated recipe, looked up by id or title.
// notes is the free text typed on the recipe preview.
func (a *App) Kitchen(ctx context.Context, s *Session, target Target, idOrTitle, notes string) (recipe.Draft, error) {
	const op = "capture.kitchen"
	if a.kitchen == nil {
		return recipe.Draft{}, a.fail(ctx, op, KindRemote, ErrKitchenDisabled)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	rec, err := a.kitchen.Get(callCtx, idOrTitle)
	if err != nil {
		return recipe.Draft{}, a.fail(ctx, op, KindRemote, err)
	}
	if rec == nil {
		return recipe.Draft{}, &Error{Kind: KindNotFound, Op: op, Err: ErrRecipeNotFound}
	}

	s.setTarget(target)
	d := rec.ToDraft(recipe.SourceKitchen)
	d.Notes = strings.TrimSpace(notes)
	s.Editor.Begin(recipe.SourceKitchen, d)
	return d, nil
}

// apply installs a capture result unless the caller went away or the draft
// was closed or replaced in the meantime.
func (a *App) apply(ctx context.Context, op string, s *Session, t draft.Ticket, d recipe.Draft) error {
	if err := ctx.Err(); err != nil {
		s.Editor.Abandon(t)
		return &Error{Kind: KindStale, Op: op, Err: err}
	}
	if err := s.Editor.Apply(t, d); err != nil {
		return &Error{Kind: KindStale, Op: op, Err: err}
	}
	return nil
}

// Committed is the result of a successful draft commit.
type Committed struct {
	Target Target
	Entry  mealplan.Entry
	Draft  recipe.Draft
}

// CommitDraft validates the open draft and appends it to the plan at the
// session's target. The full draft is archived and the entry keeps its id.
// An empty title leaves the draft open and the plan unchanged.
func (a *App) CommitDraft(ctx context.Context, s *Session) (Committed, error) {
	const op = "draft.commit"
	d, err := s.Editor.Commit()
	if err != nil {
		if errors.Is(err, draft.ErrEmptyTitle) {
			return Committed{}, &Error{Kind: KindValidation, Op: op, Err: err}
		}
		return Committed{}, fmt.Errorf("failed to commit draft: %w", err)
	}

	entry := mealplan.Entry{Name: d.Title}
	if a.archive != nil {
		rec := recipe.Recipe{
			ID:        a.newRecipeID(),
			UpdatedAt: a.now().UTC().Format(time.RFC3339),
			Draft:     d,
		}
		if err := a.archive.Save(ctx, rec); err != nil {
			log.Printf("Warning: failed to archive recipe %q: %v", d.Title, err)
		} else {
			entry.RecipeID = rec.ID
		}
	}

	target := s.Target()
	if target.Date == "" {
		target.Date = a.Today()
	}
	if target.MealType == "" {
		target.MealType = mealplan.DefaultMealTypes[0]
	}
	s.Plans.AddEntry(target.Date, target.MealType, entry)
	if err := a.persist(ctx, s); err != nil {
		return Committed{}, err
	}
	return Committed{Target: target, Entry: entry, Draft: d}, nil
}

// Discard closes the open draft and drops any capture still in flight.
func (a *App) Discard(s *Session) {
	s.Editor.Discard()
}
