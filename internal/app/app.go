// Package app owns the user sessions and runs the capture paths against the
// external collaborators.
package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"meal-planner/internal/grocery"
	"meal-planner/internal/mealplan"
	"meal-planner/internal/ocr"
	"meal-planner/internal/recipe"
	"meal-planner/internal/scraper"

	"github.com/oklog/ulid/v2"
)

// Persistence stores the session snapshots.
type Persistence interface {
	LoadPlan(ctx context.Context, sessionID string) (*mealplan.Plan, error)
	SavePlan(ctx context.Context, sessionID string, p mealplan.Plan) error
	LoadGroceries(ctx context.Context, sessionID string) (*grocery.List, error)
	SaveGroceries(ctx context.Context, sessionID string, l grocery.List) error
}

// Archive keeps the full drafts behind committed meal entries.
type Archive interface {
	Save(ctx context.Context, rec recipe.Recipe) error
	Get(ctx context.Context, id string) (*recipe.Recipe, error)
}

// Kitchen serves curated recipes.
type Kitchen interface {
	List(ctx context.Context) ([]recipe.Recipe, error)
	Get(ctx context.Context, idOrTitle string) (*recipe.Recipe, error)
}

// Deps are the collaborators of an App. Every field is optional: without
// Persistence sessions live in memory only, and a capture path whose
// collaborator is missing fails as unavailable.
type Deps struct {
	Persistence Persistence
	Archive     Archive
	Recognizer  ocr.Recognizer
	Scraper     scraper.Scraper
	Kitchen     Kitchen
	Reporter    Reporter
	Timeout     time.Duration
	Seed        *Seed
	Now         func() time.Time
}

// App holds the application's dependencies and the session registry.
type App struct {
	persistence Persistence
	archive     Archive
	recognizer  ocr.Recognizer
	scraper     scraper.Scraper
	kitchen     Kitchen
	reporter    Reporter
	timeout     time.Duration
	seed        Seed
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewApp creates and initializes a new App instance.
func NewApp(d Deps) (*App, error) {
	a := &App{
		persistence: d.Persistence,
		archive:     d.Archive,
		recognizer:  d.Recognizer,
		scraper:     d.Scraper,
		kitchen:     d.Kitchen,
		reporter:    d.Reporter,
		timeout:     d.Timeout,
		now:         d.Now,
		sessions:    make(map[string]*Session),
		entropy:     ulid.Monotonic(rand.Reader, 0),
	}
	if a.timeout <= 0 {
		a.timeout = 30 * time.Second
	}
	if a.now == nil {
		a.now = time.Now
	}
	if d.Seed != nil {
		a.seed = *d.Seed
	} else {
		seed, err := DefaultSeed()
		if err != nil {
			return nil, err
		}
		a.seed = seed
	}
	return a, nil
}

// SQLPersistence stores session snapshots in the SQLite repositories.
type SQLPersistence struct {
	plans     *mealplan.Repository
	groceries *grocery.Repository
}

// NewSQLPersistence creates a Persistence over db.
func NewSQLPersistence(db *sql.DB) *SQLPersistence {
	return &SQLPersistence{
		plans:     mealplan.NewRepository(db),
		groceries: grocery.NewRepository(db),
	}
}

func (p *SQLPersistence) LoadPlan(ctx context.Context, id string) (*mealplan.Plan, error) {
	return p.plans.Load(ctx, id)
}

func (p *SQLPersistence) SavePlan(ctx context.Context, id string, plan mealplan.Plan) error {
	return p.plans.Save(ctx, id, plan)
}

func (p *SQLPersistence) LoadGroceries(ctx context.Context, id string) (*grocery.List, error) {
	return p.groceries.Load(ctx, id)
}

func (p *SQLPersistence) SaveGroceries(ctx context.Context, id string, l grocery.List) error {
	return p.groceries.Save(ctx, id, l)
}

// Today returns the current date in the plan's date format.
func (a *App) Today() string {
	return a.now().Format("2006-01-02")
}

func (a *App) newRecipeID() string {
	a.idMu.Lock()
	defer a.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(a.now()), a.entropy).String()
}

// Session returns the session for id, loading it from persistence or
// starting it from the seed data on first use.
func (a *App) Session(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("failed to open session: empty session id")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.sessions[id]; ok {
		return s, nil
	}

	s := newSession(id)
	var plan *mealplan.Plan
	var list *grocery.List
	if a.persistence != nil {
		var err error
		if plan, err = a.persistence.LoadPlan(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to load session %s: %w", id, err)
		}
		if list, err = a.persistence.LoadGroceries(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to load session %s: %w", id, err)
		}
	}
	if plan == nil && list == nil {
		plan, list = &a.seed.Plan, &a.seed.Groceries
		s.selected = SeedDate
	}
	if plan != nil {
		s.Plans.Restore(*plan)
	}
	if list != nil {
		s.Groceries.Restore(*list)
	}
	if s.selected == "" {
		s.selected = a.Today()
	}

	a.sessions[id] = s
	return s, nil
}

// Sessions returns the ids of the sessions in memory.
func (a *App) Sessions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]string, 0, len(a.sessions))
	for id := range a.sessions {
		ids = append(ids, id)
	}
	return ids
}

// persist saves both stores of s. Saves of one session are serialized so a
// later snapshot never gets overwritten by an earlier one.
func (a *App) persist(ctx context.Context, s *Session) error {
	if a.persistence == nil {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	ctx = context.WithoutCancel(ctx)
	if err := a.persistence.SavePlan(ctx, s.ID, s.Plans.Snapshot()); err != nil {
		return fmt.Errorf("failed to persist session %s: %w", s.ID, err)
	}
	if err := a.persistence.SaveGroceries(ctx, s.ID, s.Groceries.Snapshot()); err != nil {
		return fmt.Errorf("failed to persist session %s: %w", s.ID, err)
	}
	return nil
}

// Recipe returns an archived recipe.
func (a *App) Recipe(ctx context.Context, id string) (*recipe.Recipe, error) {
	if a.archive == nil {
		return nil, &Error{Kind: KindNotFound, Op: "recipe.get", Err: ErrRecipeNotFound}
	}
	rec, err := a.archive.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe %s: %w", id, err)
	}
	if rec == nil {
		return nil, &Error{Kind: KindNotFound, Op: "recipe.get", Err: ErrRecipeNotFound}
	}
	return rec, nil
}

// KitchenRecipes lists the curated recipes.
func (a *App) KitchenRecipes(ctx context.Context) ([]recipe.Recipe, error) {
	const op = "kitchen.list"
	if a.kitchen == nil {
		return nil, a.fail(ctx, op, KindRemote, ErrKitchenDisabled)
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	recipes, err := a.kitchen.List(ctx)
	if err != nil {
		return nil, a.fail(ctx, op, KindRemote, err)
	}
	return recipes, nil
}
