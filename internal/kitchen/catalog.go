package kitchen

import (
	"context"
	"strings"
	"sync"
	"time"

	"meal-planner/internal/recipe"
)

// Catalog caches the curated list so that browsing and selecting a recipe
// do not refetch the whole collection.
type Catalog struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	recipes   []recipe.Recipe
	fetchedAt time.Time
}

// NewCatalog wraps source with a cache kept for ttl.
func NewCatalog(source Source, ttl time.Duration) *Catalog {
	return &Catalog{source: source, ttl: ttl, now: time.Now}
}

// List returns the cached recipes, refetching when the cache expired.
// A failed refetch is returned as is; the stale cache is not served.
func (c *Catalog) List(ctx context.Context) ([]recipe.Recipe, error) {
	c.mu.Lock()
	if c.recipes != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		out := append([]recipe.Recipe(nil), c.recipes...)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	recipes, err := c.source.List(ctx)
	if err != nil {
		return nil, err
	}
	if recipes == nil {
		recipes = []recipe.Recipe{}
	}

	c.mu.Lock()
	c.recipes = recipes
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return append([]recipe.Recipe(nil), recipes...), nil
}

// Get finds a recipe by id or, failing that, by case-insensitive title.
func (c *Catalog) Get(ctx context.Context, idOrTitle string) (*recipe.Recipe, error) {
	recipes, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range recipes {
		if recipes[i].ID == idOrTitle {
			return &recipes[i], nil
		}
	}
	for i := range recipes {
		if strings.EqualFold(recipes[i].Title, strings.TrimSpace(idOrTitle)) {
			return &recipes[i], nil
		}
	}
	return nil, nil
}

// Invalidate drops the cache.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.recipes = nil
	c.mu.Unlock()
}
