// Package draft implements the recipe draft editor: a root editor over the
// whole draft and six sub-editors, each working on a private copy of one
// field until it is saved or cancelled.
package draft

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"meal-planner/internal/recipe"
)

var (
	ErrNoDraft    = errors.New("no draft is open")
	ErrWrongState = errors.New("operation not allowed in the current editor state")
	ErrEmptyTitle = errors.New("recipe title is empty")
	ErrStale      = errors.New("capture result arrived for a draft that is no longer open")
)

// Mode is the top-level editor state.
type Mode int

const (
	Closed Mode = iota
	Writing
	Editing
)

func (m Mode) String() string {
	switch m {
	case Writing:
		return "writing"
	case Editing:
		return "editing"
	default:
		return "closed"
	}
}

// Field names a sub-editor.
type Field int

const (
	NoField Field = iota
	Course
	Cuisine
	Nutrition
	Ingredients
	Instructions
	Tags
)

var fieldNames = map[Field]string{
	Course:       "course",
	Cuisine:      "cuisine",
	Nutrition:    "nutrition",
	Ingredients:  "ingredients",
	Instructions: "instructions",
	Tags:         "tags",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return "none"
}

// ParseField resolves a sub-editor name.
func ParseField(s string) (Field, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, name := range fieldNames {
		if name == s {
			return f, nil
		}
	}
	return NoField, fmt.Errorf("unknown draft field %q", s)
}

// State is the tagged editor state. Field is set only in Editing.
type State struct {
	Mode  Mode
	Field Field
}

func (s State) String() string {
	if s.Mode == Editing {
		return "editing:" + s.Field.String()
	}
	return s.Mode.String()
}

// Ticket identifies one opening of the editor. Capture work started for a
// draft carries its ticket, and its result is only applied while the ticket
// is current.
type Ticket struct {
	gen uint64
}

// Editor is safe for concurrent use.
type Editor struct {
	mu         sync.Mutex
	state      State
	gen        uint64
	draft      recipe.Draft
	working    recipe.Draft
	courses    *recipe.Vocabulary
	cuisines   *recipe.Vocabulary
	customTags *recipe.Vocabulary
}

// NewEditor creates a closed editor with the default suggestion lists.
func NewEditor() *Editor {
	return &Editor{
		courses:    recipe.NewVocabulary(recipe.DefaultCourses),
		cuisines:   recipe.NewVocabulary(recipe.DefaultCuisines),
		customTags: recipe.NewVocabulary(nil),
	}
}

// Begin opens the root editor with seed, replacing any open draft and
// invalidating every earlier ticket.
func (e *Editor) Begin(source recipe.Source, seed recipe.Draft) Ticket {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.gen++
	e.draft = seed.Clone()
	e.draft.Source = source
	e.working = recipe.Draft{}
	e.state = State{Mode: Writing}
	return Ticket{gen: e.gen}
}

// Apply installs a capture result. It returns ErrStale when the draft was
// discarded, committed or superseded since the ticket was issued. An open
// sub-editor is closed without saving.
func (e *Editor) Apply(t Ticket, d recipe.Draft) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t.gen != e.gen || e.state.Mode == Closed {
		return ErrStale
	}
	source := e.draft.Source
	e.draft = d.Clone()
	if e.draft.Source == "" {
		e.draft.Source = source
	}
	e.working = recipe.Draft{}
	e.state = State{Mode: Writing}
	return nil
}

// Abandon closes the editor when t is still current. Capture paths call it
// when their remote call failed before any draft content arrived.
func (e *Editor) Abandon(t Ticket) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t.gen != e.gen || e.state.Mode == Closed {
		return false
	}
	e.close()
	return true
}

// Current reports whether t is still the ticket of the open draft.
func (e *Editor) Current(t Ticket) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return t.gen == e.gen && e.state.Mode != Closed
}

// State returns the current state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Draft returns a copy of the draft. Unsaved sub-editor changes are not included.
func (e *Editor) Draft() (recipe.Draft, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Mode == Closed {
		return recipe.Draft{}, ErrNoDraft
	}
	return e.draft.Clone(), nil
}

// Working returns a copy of the working copy of the open sub-editor.
func (e *Editor) Working() (recipe.Draft, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Mode != Editing {
		return recipe.Draft{}, ErrWrongState
	}
	return e.working.Clone(), nil
}

// Courses returns the course suggestions including user additions.
func (e *Editor) Courses() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.courses.Items()
}

// Cuisines returns the cuisine suggestions including user additions.
func (e *Editor) Cuisines() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cuisines.Items()
}

// TagGroups returns the suggested tag groups followed by a group of custom
// tags when the user has added any.
func (e *Editor) TagGroups() []recipe.TagGroup {
	e.mu.Lock()
	defer e.mu.Unlock()
	groups := append([]recipe.TagGroup(nil), recipe.TagGroups...)
	if custom := e.customTags.Items(); len(custom) > 0 {
		groups = append(groups, recipe.TagGroup{Title: "Custom", Tags: custom})
	}
	return groups
}

// Discard closes the editor without committing and invalidates outstanding tickets.
func (e *Editor) Discard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.close()
}

func (e *Editor) close() {
	e.gen++
	e.draft = recipe.Draft{}
	e.working = recipe.Draft{}
	e.state = State{Mode: Closed}
}

// Commit validates the draft and closes the editor. An empty title leaves the
// editor open with the draft untouched.
func (e *Editor) Commit() (recipe.Draft, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.require(Writing, NoField); err != nil {
		return recipe.Draft{}, err
	}
	if !e.draft.HasTitle() {
		return recipe.Draft{}, ErrEmptyTitle
	}
	committed := e.draft.Clone()
	committed.Title = strings.TrimSpace(committed.Title)
	e.close()
	return committed, nil
}

func (e *Editor) require(mode Mode, field Field) error {
	if e.state.Mode == Closed {
		return ErrNoDraft
	}
	if e.state.Mode != mode || e.state.Field != field {
		return fmt.Errorf("%w: %s", ErrWrongState, e.state)
	}
	return nil
}

func (e *Editor) editRoot(fn func(d *recipe.Draft)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.require(Writing, NoField); err != nil {
		return err
	}
	fn(&e.draft)
	return nil
}

// SetTitle sets the title as typed; it is trimmed only when committed.
func (e *Editor) SetTitle(title string) error {
	return e.editRoot(func(d *recipe.Draft) { d.Title = title })
}

func (e *Editor) SetImage(uri string) error {
	return e.editRoot(func(d *recipe.Draft) { d.Image = strings.TrimSpace(uri) })
}

func (e *Editor) SetPrepTime(v string) error {
	return e.editRoot(func(d *recipe.Draft) { d.PrepTime = strings.TrimSpace(v) })
}

func (e *Editor) SetCookTime(v string) error {
	return e.editRoot(func(d *recipe.Draft) { d.CookTime = strings.TrimSpace(v) })
}

func (e *Editor) SetNotes(notes string) error {
	return e.editRoot(func(d *recipe.Draft) { d.Notes = notes })
}
