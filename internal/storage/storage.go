// Package storage keeps per-session snapshots as versioned JSON files, an
// alternative to the SQLite repositories for single-host deployments.
package storage

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"meal-planner/internal/grocery"
	"meal-planner/internal/mealplan"
	"meal-planner/internal/recipe"
)

const (
	kindPlan      = "plan"
	kindGroceries = "groceries"
	kindRecipe    = "recipe"

	versionLayout = "20060102T150405.000000000Z"
)

// SnapshotStore provides a file-based storage for session snapshots.
type SnapshotStore struct {
	basePath string
	now      func() time.Time
}

// NewSnapshotStore creates a new SnapshotStore and ensures the base directory exists.
func NewSnapshotStore(basePath string) (*SnapshotStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &SnapshotStore{basePath: basePath, now: time.Now}, nil
}

// fileKey encodes an id for use in filenames. Distinct ids never share a key.
func fileKey(id string) string {
	return hex.EncodeToString([]byte(id))
}

func (s *SnapshotStore) prefix(kind, id string) string {
	return fmt.Sprintf("%s_%s_", kind, fileKey(id))
}

// getVersionedPath returns the full path for a snapshot version.
func (s *SnapshotStore) getVersionedPath(kind, id string, at time.Time) string {
	return filepath.Join(s.basePath, s.prefix(kind, id)+at.UTC().Format(versionLayout)+".json")
}

func (s *SnapshotStore) versions(kind, id string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.basePath, s.prefix(kind, id)+"*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob snapshot files: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// Save writes a new version of the snapshot and removes older versions.
// The file is written under a temporary name and renamed into place.
func (s *SnapshotStore) Save(kind, id string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	old, err := s.versions(kind, id)
	if err != nil {
		return err
	}

	filePath := s.getVersionedPath(kind, id, s.now())
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		return fmt.Errorf("failed to move snapshot file into place: %w", err)
	}

	for _, match := range old {
		if match == filePath {
			continue
		}
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale file %s: %w", match, err)
		}
	}
	return nil
}

// Load decodes the newest version into v. It reports false when no version exists.
func (s *SnapshotStore) Load(kind, id string, v any) (bool, error) {
	matches, err := s.versions(kind, id)
	if err != nil {
		return false, err
	}
	if len(matches) == 0 {
		return false, nil
	}

	data, err := os.ReadFile(matches[len(matches)-1])
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return true, nil
}

// Exists checks if any version of a snapshot exists.
func (s *SnapshotStore) Exists(kind, id string) bool {
	matches, err := s.versions(kind, id)
	return err == nil && len(matches) > 0
}

// LoadPlan returns the stored meal plan of a session, or nil.
func (s *SnapshotStore) LoadPlan(_ context.Context, sessionID string) (*mealplan.Plan, error) {
	var p mealplan.Plan
	ok, err := s.Load(kindPlan, sessionID, &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

func (s *SnapshotStore) SavePlan(_ context.Context, sessionID string, p mealplan.Plan) error {
	return s.Save(kindPlan, sessionID, p)
}

// LoadGroceries returns the stored grocery list of a session, or nil.
func (s *SnapshotStore) LoadGroceries(_ context.Context, sessionID string) (*grocery.List, error) {
	var l grocery.List
	ok, err := s.Load(kindGroceries, sessionID, &l)
	if err != nil || !ok {
		return nil, err
	}
	return &l, nil
}

func (s *SnapshotStore) SaveGroceries(_ context.Context, sessionID string, l grocery.List) error {
	return s.Save(kindGroceries, sessionID, l)
}

// RecipeArchive keeps committed recipes next to the session snapshots.
type RecipeArchive struct {
	store *SnapshotStore
}

// NewRecipeArchive archives recipes in the snapshot directory of store.
func NewRecipeArchive(store *SnapshotStore) *RecipeArchive {
	return &RecipeArchive{store: store}
}

func (a *RecipeArchive) Save(_ context.Context, rec recipe.Recipe) error {
	if rec.ID == "" {
		return fmt.Errorf("failed to save recipe: missing id")
	}
	return a.store.Save(kindRecipe, rec.ID, rec)
}

// Get returns the latest version of a recipe, or nil when it was never saved.
func (a *RecipeArchive) Get(_ context.Context, id string) (*recipe.Recipe, error) {
	var rec recipe.Recipe
	ok, err := a.store.Load(kindRecipe, id, &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}
