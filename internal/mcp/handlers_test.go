package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"meal-planner/internal/app"
	"meal-planner/internal/grocery"
	"meal-planner/internal/mealplan"
	"meal-planner/internal/recipe"
)

type stubScraper struct {
	draft recipe.Draft
}

func (s stubScraper) Scrape(ctx context.Context, pageURL string) (recipe.Draft, error) {
	return s.draft, nil
}

func newTestServer(t *testing.T, d app.Deps) *Server {
	t.Helper()
	d.Now = func() time.Time { return time.Date(2025, 4, 16, 9, 0, 0, 0, time.UTC) }
	a, err := app.NewApp(d)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return NewServer(a, "test")
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("expected tool result content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestNormalizeRecipe(t *testing.T) {
	s := newTestServer(t, app.Deps{})
	ctx := context.Background()

	res, err := s.normalizeRecipe(ctx, call(map[string]any{"text": "Pancakes\n2 cups flour\n1. Mix"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var parsed recipe.Parsed
	if err := json.Unmarshal([]byte(resultText(t, res)), &parsed); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if parsed.Title != "Pancakes" || len(parsed.Ingredients) != 2 || len(parsed.Instructions) != 1 {
		t.Errorf("unexpected parse: %+v", parsed)
	}

	res, _ = s.normalizeRecipe(ctx, call(map[string]any{}))
	if !res.IsError {
		t.Error("expected an error result without text")
	}
}

func TestPlanTools(t *testing.T) {
	s := newTestServer(t, app.Deps{})
	ctx := context.Background()

	res, _ := s.showPlan(ctx, call(map[string]any{}))
	var day mealplan.Day
	if err := json.Unmarshal([]byte(resultText(t, res)), &day); err != nil {
		t.Fatalf("failed to decode day: %v", err)
	}
	if day.Date != app.SeedDate || len(day.Entries("Break Fast")) != 2 {
		t.Errorf("unexpected seeded day: %+v", day)
	}

	res, _ = s.addMeal(ctx, call(map[string]any{
		"session": "other", "date": "2025-05-01", "meal_type": "Dinner", "name": "Tacos",
	}))
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &day); err != nil {
		t.Fatalf("failed to decode day: %v", err)
	}
	if got := day.Entries("Dinner"); len(got) != 1 || got[0].Name != "Tacos" {
		t.Errorf("expected Tacos for dinner, got %+v", got)
	}

	res, _ = s.addMeal(ctx, call(map[string]any{"date": "2025-05-01", "meal_type": "Dinner", "name": "  "}))
	if res.IsError || !strings.Contains(resultText(t, res), "Nothing added") {
		t.Errorf("expected a no-op for a blank name, got %q", resultText(t, res))
	}

	res, _ = s.addMeal(ctx, call(map[string]any{"name": "Tacos"}))
	if !res.IsError {
		t.Error("expected an error result without date and meal type")
	}
}

func TestGroceryTools(t *testing.T) {
	s := newTestServer(t, app.Deps{})
	ctx := context.Background()

	res, _ := s.addGroceryItem(ctx, call(map[string]any{"category": "Dairy", "name": "milk", "quantity": "1 l"}))
	var item grocery.Item
	if err := json.Unmarshal([]byte(resultText(t, res)), &item); err != nil {
		t.Fatalf("failed to decode item: %v", err)
	}
	if item.ID == "" || item.Name != "milk" || item.Checked {
		t.Errorf("unexpected item: %+v", item)
	}

	res, _ = s.addGroceryItem(ctx, call(map[string]any{"category": "Dairy", "name": " "}))
	if !strings.Contains(resultText(t, res), "Nothing added") {
		t.Errorf("expected a no-op for a blank name, got %q", resultText(t, res))
	}

	res, _ = s.toggleGroceryItem(ctx, call(map[string]any{"id": item.ID}))
	if err := json.Unmarshal([]byte(resultText(t, res)), &item); err != nil {
		t.Fatalf("failed to decode item: %v", err)
	}
	if !item.Checked {
		t.Error("expected the item to be checked")
	}

	res, _ = s.toggleGroceryItem(ctx, call(map[string]any{"id": "missing"}))
	if !strings.Contains(resultText(t, res), "Nothing changed") {
		t.Errorf("expected a miss, got %q", resultText(t, res))
	}

	res, _ = s.listGroceries(ctx, call(map[string]any{}))
	var list grocery.List
	if err := json.Unmarshal([]byte(resultText(t, res)), &list); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(list.Categories) != 3 || list.Categories[2].Name != "Dairy" {
		t.Errorf("unexpected categories: %+v", list.Categories)
	}

	res, _ = s.shareGroceries(ctx, call(map[string]any{}))
	text := resultText(t, res)
	if !strings.Contains(text, "grape tomatoes") || strings.Contains(text, "milk") {
		t.Errorf("unexpected share text: %q", text)
	}
}

func TestImportRecipe(t *testing.T) {
	ctx := context.Background()

	t.Run("CommitsToPlan", func(t *testing.T) {
		s := newTestServer(t, app.Deps{Scraper: stubScraper{draft: recipe.Draft{Title: "Shakshuka"}}})
		res, _ := s.importRecipe(ctx, call(map[string]any{
			"url": "https://example.com/shakshuka", "date": "2025-04-20", "meal_type": "Lunch",
		}))
		if res.IsError {
			t.Fatalf("unexpected error result: %s", resultText(t, res))
		}
		res, _ = s.showPlan(ctx, call(map[string]any{"date": "2025-04-20"}))
		if !strings.Contains(resultText(t, res), "Shakshuka") {
			t.Errorf("expected the imported recipe in the plan, got %s", resultText(t, res))
		}
	})

	t.Run("NoScraper", func(t *testing.T) {
		s := newTestServer(t, app.Deps{})
		res, _ := s.importRecipe(ctx, call(map[string]any{"url": "https://example.com"}))
		if !res.IsError {
			t.Error("expected an error result without a scraper")
		}
	})
}

func TestListKitchenDisabled(t *testing.T) {
	s := newTestServer(t, app.Deps{})
	res, err := s.listKitchen(context.Background(), call(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "not available") {
		t.Errorf("expected a disabled kitchen error, got %q", resultText(t, res))
	}
}
