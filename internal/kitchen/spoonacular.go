package kitchen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"meal-planner/internal/recipe"
	"meal-planner/internal/shared"
)

// DefaultSpoonacularURL is the Spoonacular API base URL.
const DefaultSpoonacularURL = "https://api.spoonacular.com"

// Spoonacular fetches random recipes from the Spoonacular API.
type Spoonacular struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	recorder   shared.CallRecorder
}

// NewSpoonacular creates a new client. An empty baseURL selects
// DefaultSpoonacularURL.
func NewSpoonacular(baseURL, apiKey string, rec shared.CallRecorder) *Spoonacular {
	if baseURL == "" {
		baseURL = DefaultSpoonacularURL
	}
	return &Spoonacular{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		recorder:   rec,
	}
}

type spoonacularRecipe struct {
	Title               string   `json:"title"`
	Image               string   `json:"image"`
	ReadyInMinutes      int      `json:"readyInMinutes"`
	Cuisines            []string `json:"cuisines"`
	DishTypes           []string `json:"dishTypes"`
	ExtendedIngredients []struct {
		Original string `json:"original"`
	} `json:"extendedIngredients"`
	AnalyzedInstructions []struct {
		Steps []struct {
			Step string `json:"step"`
		} `json:"steps"`
	} `json:"analyzedInstructions"`
	Nutrition *struct {
		Nutrients []struct {
			Name   string  `json:"name"`
			Amount float64 `json:"amount"`
		} `json:"nutrients"`
	} `json:"nutrition"`
}

// toDraft maps a Spoonacular recipe into the curated recipe shape. Curated
// imports are filed under Lunch, and a recipe without cuisines under Global.
func (r spoonacularRecipe) toDraft() recipe.Draft {
	d := recipe.Draft{
		Title:        r.Title,
		Image:        r.Image,
		Course:       "Lunch",
		Cuisine:      "Global",
		PrepTime:     fmt.Sprintf("PT%dM", r.ReadyInMinutes),
		CookTime:     "PT0M",
		Tags:         append([]string{}, r.DishTypes...),
		Ingredients:  []string{},
		Instructions: []string{},
		Source:       recipe.SourceKitchen,
	}
	if len(r.Cuisines) > 0 && r.Cuisines[0] != "" {
		d.Cuisine = r.Cuisines[0]
	}
	for _, ing := range r.ExtendedIngredients {
		d.Ingredients = append(d.Ingredients, ing.Original)
	}
	if len(r.AnalyzedInstructions) > 0 {
		for _, s := range r.AnalyzedInstructions[0].Steps {
			d.Instructions = append(d.Instructions, s.Step)
		}
	}
	if r.Nutrition != nil {
		for _, n := range r.Nutrition.Nutrients {
			if n.Name == "Calories" && n.Amount != 0 {
				d.Nutrition.Calories = recipe.Amount(strconv.FormatFloat(n.Amount, 'f', -1, 64))
				break
			}
		}
	}
	return d
}

// Random fetches n random recipes.
func (s *Spoonacular) Random(ctx context.Context, n int) ([]recipe.Draft, error) {
	var drafts []recipe.Draft
	err := shared.Track(ctx, s.recorder, "spoonacular", "random", func() error {
		q := url.Values{}
		q.Set("number", strconv.Itoa(n))
		q.Set("includeNutrition", "true")
		q.Set("apiKey", s.apiKey)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/recipes/random?"+q.Encode(), nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to call Spoonacular: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("Spoonacular returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}

		var payload struct {
			Recipes []spoonacularRecipe `json:"recipes"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return fmt.Errorf("failed to decode Spoonacular response: %w", err)
		}
		for _, r := range payload.Recipes {
			drafts = append(drafts, r.toDraft())
		}
		return nil
	})
	return drafts, err
}

// Import copies n random Spoonacular recipes into the curated collection and
// returns the ids created. It stops at the first write failure.
func Import(ctx context.Context, sp *Spoonacular, w Writer, n int) ([]string, error) {
	drafts, err := sp.Random(ctx, n)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, d := range drafts {
		id, err := w.Create(ctx, d)
		if err != nil {
			return ids, err
		}
		log.Printf("Uploaded kitchen recipe %q (%s)", d.Title, id)
		ids = append(ids, id)
	}
	return ids, nil
}
