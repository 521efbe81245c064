// Package scraper imports recipes from web pages.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"meal-planner/internal/recipe"
	"meal-planner/internal/shared"
)

// DefaultServiceURL is the hosted recipe-scrape service.
const DefaultServiceURL = "https://recipe-scraper-9zge.onrender.com/scrape-recipe"

// ErrNoRecipe is returned when the page holds no recognizable recipe.
var ErrNoRecipe = errors.New("no valid recipe found on this page")

// Scraper extracts a recipe draft from a page URL.
type Scraper interface {
	Scrape(ctx context.Context, pageURL string) (recipe.Draft, error)
}

// CleanURL drops the query string of a page URL.
func CleanURL(pageURL string) string {
	return strings.SplitN(strings.TrimSpace(pageURL), "?", 2)[0]
}

// ServiceClient is a client for the remote recipe-scrape service.
type ServiceClient struct {
	endpoint   string
	httpClient *http.Client
	recorder   shared.CallRecorder
}

// NewServiceClient creates a new ServiceClient. An empty endpoint selects
// DefaultServiceURL; a nil httpClient selects one with a 30 second timeout.
func NewServiceClient(endpoint string, httpClient *http.Client, rec shared.CallRecorder) *ServiceClient {
	if endpoint == "" {
		endpoint = DefaultServiceURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ServiceClient{endpoint: endpoint, httpClient: httpClient, recorder: rec}
}

// serviceRecipe is the response shape of the scrape service.
type serviceRecipe struct {
	Title        string            `json:"title"`
	Image        string            `json:"image"`
	Ingredients  []string          `json:"ingredients"`
	Instructions []string          `json:"instructions"`
	PrepTime     string            `json:"prepTime"`
	CookTime     string            `json:"cookTime"`
	Course       string            `json:"course"`
	Cuisine      string            `json:"cuisine"`
	Nutrition    *recipe.Nutrition `json:"nutrition"`
}

// Scrape posts the cleaned URL to the service.
func (c *ServiceClient) Scrape(ctx context.Context, pageURL string) (recipe.Draft, error) {
	var d recipe.Draft
	err := shared.Track(ctx, c.recorder, "scraper", "scrape", func() error {
		var err error
		d, err = c.scrape(ctx, pageURL)
		return err
	})
	return d, err
}

func (c *ServiceClient) scrape(ctx context.Context, pageURL string) (recipe.Draft, error) {
	payload, err := json.Marshal(map[string]string{"url": CleanURL(pageURL)})
	if err != nil {
		return recipe.Draft{}, fmt.Errorf("failed to marshal scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return recipe.Draft{}, fmt.Errorf("failed to create scrape request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return recipe.Draft{}, fmt.Errorf("failed to call scrape service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return recipe.Draft{}, fmt.Errorf("scrape service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var sr serviceRecipe
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return recipe.Draft{}, fmt.Errorf("failed to decode scrape response: %w", err)
	}
	if strings.TrimSpace(sr.Title) == "" {
		return recipe.Draft{}, ErrNoRecipe
	}

	d := recipe.Draft{
		Title:        sr.Title,
		Image:        sr.Image,
		Ingredients:  sr.Ingredients,
		Instructions: sr.Instructions,
		PrepTime:     sr.PrepTime,
		CookTime:     sr.CookTime,
		Course:       sr.Course,
		Cuisine:      sr.Cuisine,
		Source:       recipe.SourceSearch,
	}
	if sr.Nutrition != nil {
		d.Nutrition = *sr.Nutrition
	}
	return d, nil
}

// Fallback tries each scraper in order and returns the first recipe found.
// Remote failures fall through to the next scraper; the last error is returned.
type Fallback []Scraper

func (f Fallback) Scrape(ctx context.Context, pageURL string) (recipe.Draft, error) {
	err := ErrNoRecipe
	for _, s := range f {
		var d recipe.Draft
		d, err = s.Scrape(ctx, pageURL)
		if err == nil {
			return d, nil
		}
		if ctx.Err() != nil {
			return recipe.Draft{}, err
		}
	}
	return recipe.Draft{}, err
}
