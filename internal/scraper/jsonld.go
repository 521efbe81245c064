package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"meal-planner/internal/recipe"
	"meal-planner/internal/shared"

	"github.com/PuerkitoBio/goquery"
)

// PageScraper fetches the page itself and reads its schema.org Recipe JSON-LD.
type PageScraper struct {
	httpClient *http.Client
	recorder   shared.CallRecorder
}

// NewPageScraper creates a new PageScraper. A nil httpClient selects one
// with a 15 second timeout.
func NewPageScraper(httpClient *http.Client, rec shared.CallRecorder) *PageScraper {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &PageScraper{httpClient: httpClient, recorder: rec}
}

// Scrape fetches the cleaned URL and extracts the first Recipe node.
func (p *PageScraper) Scrape(ctx context.Context, pageURL string) (recipe.Draft, error) {
	var d recipe.Draft
	err := shared.Track(ctx, p.recorder, "page", "scrape", func() error {
		doc, err := p.fetch(ctx, CleanURL(pageURL))
		if err != nil {
			return err
		}
		d, err = ExtractRecipe(doc)
		return err
	})
	return d, err
}

func (p *PageScraper) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create page request: %w", err)
	}
	req.Header.Set("User-Agent", "meal-planner/1.0 (+recipe import)")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return doc, nil
}

// ExtractRecipe reads the first schema.org Recipe found in the JSON-LD blocks
// of doc. A Recipe without a name takes the page's first h1.
func ExtractRecipe(doc *goquery.Document) (recipe.Draft, error) {
	var found map[string]any
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		found = findRecipeNode(data)
		return found == nil
	})
	if found == nil {
		return recipe.Draft{}, ErrNoRecipe
	}

	d := recipe.Draft{
		Title:        strings.TrimSpace(asString(found["name"])),
		Image:        imageURL(found["image"]),
		Ingredients:  asStrings(found["recipeIngredient"]),
		Instructions: instructions(found["recipeInstructions"]),
		PrepTime:     asString(found["prepTime"]),
		CookTime:     asString(found["cookTime"]),
		Course:       first(found["recipeCategory"]),
		Cuisine:      first(found["recipeCuisine"]),
		Source:       recipe.SourceSearch,
	}
	if n, ok := found["nutrition"].(map[string]any); ok {
		d.Nutrition = recipe.Nutrition{
			Calories: recipe.Amount(asString(n["calories"])),
			Protein:  recipe.Amount(asString(n["proteinContent"])),
			Carbs:    recipe.Amount(asString(n["carbohydrateContent"])),
			Fats:     recipe.Amount(asString(n["fatContent"])),
		}
	}
	if d.Title == "" {
		d.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if d.Title == "" {
		return recipe.Draft{}, ErrNoRecipe
	}
	return d, nil
}

func findRecipeNode(v any) map[string]any {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			if r := findRecipeNode(item); r != nil {
				return r
			}
		}
	case map[string]any:
		if isRecipeType(node["@type"]) {
			return node
		}
		if graph, ok := node["@graph"]; ok {
			return findRecipeNode(graph)
		}
	}
	return nil
}

func isRecipeType(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "Recipe"
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strings.TrimSpace(fmt.Sprint(t))
	default:
		return ""
	}
}

func asStrings(v any) []string {
	var out []string
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, item := range t {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func first(v any) string {
	if list := asStrings(v); len(list) > 0 {
		return list[0]
	}
	return ""
}

// instructions flattens plain strings, HowToStep nodes and HowToSection
// nodes into ordered step lines.
func instructions(v any) []string {
	var out []string
	switch t := v.(type) {
	case string:
		for _, line := range strings.Split(t, "\n") {
			if s := strings.TrimSpace(line); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range t {
			out = append(out, instructions(item)...)
		}
	case map[string]any:
		if elems, ok := t["itemListElement"]; ok {
			return instructions(elems)
		}
		if s := asString(t["text"]); s != "" {
			out = append(out, s)
		} else if s := asString(t["name"]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func imageURL(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, item := range t {
			if s := imageURL(item); s != "" {
				return s
			}
		}
	case map[string]any:
		return asString(t["url"])
	}
	return ""
}
