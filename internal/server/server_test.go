package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"meal-planner/internal/app"
	"meal-planner/internal/grocery"
	"meal-planner/internal/mealplan"
	"meal-planner/internal/recipe"
	"meal-planner/internal/share"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.App) {
	t.Helper()
	a, err := app.NewApp(app.Deps{})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	signer, err := share.NewSigner("test-secret", time.Hour, "http://example.test")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	handler, err := New(Config{App: a, Signer: signer, DataPath: t.TempDir()})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, a
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if out != nil && resp.StatusCode < 300 && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
	}
	return resp.StatusCode
}

func TestHealthAndStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	var health map[string]string
	if code := doJSON(t, http.MethodGet, srv.URL+"/health", nil, &health); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if health["status"] != "ok" {
		t.Errorf("unexpected health body: %v", health)
	}

	var status StatusResponse
	if code := doJSON(t, http.MethodGet, srv.URL+"/status", nil, &status); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if status.Health.Goroutines == 0 {
		t.Errorf("expected runtime health, got %+v", status.Health)
	}
}

func TestNormalize(t *testing.T) {
	srv, _ := newTestServer(t)

	var parsed recipe.Parsed
	code := doJSON(t, http.MethodPost, srv.URL+"/recipes/normalize",
		NormalizeRequest{Text: "Chicken Soup\n2 cups broth\n1. Boil water\nAdd chicken"}, &parsed)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if parsed.Title != "Chicken Soup" {
		t.Errorf("expected title Chicken Soup, got %q", parsed.Title)
	}
	// Lines starting with a digit are ingredient candidates too.
	if want := []string{"2 cups broth", "1. Boil water"}; !equalLines(parsed.Ingredients, want) {
		t.Errorf("expected ingredients %q, got %q", want, parsed.Ingredients)
	}
	if want := []string{"1. Boil water"}; !equalLines(parsed.Instructions, want) {
		t.Errorf("expected instructions %q, got %q", want, parsed.Instructions)
	}
}

func equalLines(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestSessionRoutes(t *testing.T) {
	srv, a := newTestServer(t)
	base := srv.URL + "/sessions/web-routes"

	routes := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"GetPlanDay", http.MethodGet, "/plan?date=2025-04-16", nil, http.StatusOK},
		{"ListPlanDates", http.MethodGet, "/plan/dates", nil, http.StatusOK},
		{"AddMeal", http.MethodPost, "/plan/meals", AddMealRequest{Date: "2025-04-16", MealType: "Lunch", Name: "Soup"}, http.StatusOK},
		{"ListGroceries", http.MethodGet, "/groceries", nil, http.StatusOK},
		{"AddGroceryItem", http.MethodPost, "/groceries", AddItemRequest{Category: "Produce", Name: "leeks"}, http.StatusCreated},
		{"ToggleGroceryItem", http.MethodPost, "/groceries/Produce/1/toggle", nil, http.StatusOK},
		{"EditGroceryItem", http.MethodPut, "/groceries/Produce/1", EditItemRequest{Name: "cherry tomatoes"}, http.StatusOK},
		{"ShareGroceries", http.MethodPost, "/groceries/share", nil, http.StatusOK},
		{"StartDraft", http.MethodPost, "/draft", StartDraftRequest{Source: "write", Date: "2025-04-16", MealType: "Lunch"}, http.StatusCreated},
		{"GetDraft", http.MethodGet, "/draft", nil, http.StatusOK},
		{"EditDraft", http.MethodPatch, "/draft", app.DraftPatch{Title: ptr("Stew")}, http.StatusOK},
		{"CommitDraft", http.MethodPost, "/draft/commit", nil, http.StatusOK},
		{"DeleteGroceryItem", http.MethodDelete, "/groceries/Produce/2", nil, http.StatusOK},
		{"DiscardDraft", http.MethodDelete, "/draft", nil, http.StatusNoContent},
	}
	for _, r := range routes {
		if code := doJSON(t, r.method, base+r.path, r.body, nil); code != r.want {
			t.Errorf("%s: expected %d, got %d", r.name, r.want, code)
		}
	}

	if got := a.Sessions(); len(got) != 1 || got[0] != "web-routes" {
		t.Errorf("expected only the web-routes session, got %v", got)
	}
	s, err := a.Session(t.Context(), "web-routes")
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if got := s.Plans.SelectDate("2025-04-16").Entries("Lunch"); len(got) != 3 || got[1].Name != "Soup" || got[2].Name != "Stew" {
		t.Errorf("expected seeded, added and committed lunch, got %+v", got)
	}
	if _, item, ok := s.Groceries.Find("1"); !ok || item.Name != "cherry tomatoes" || !item.Checked {
		t.Errorf("expected edited and checked item 1, got %+v", item)
	}
}

func ptr(s string) *string { return &s }

func TestPlan(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/sessions/web-1/plan"

	var day mealplan.Day
	if code := doJSON(t, http.MethodGet, base, nil, &day); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if day.Date != app.SeedDate || len(day.Entries("Break Fast")) != 2 {
		t.Errorf("expected seeded day, got %+v", day)
	}

	var added AddMealResponse
	doJSON(t, http.MethodPost, base+"/meals", AddMealRequest{Date: "2025-05-01", MealType: "Lunch", Name: "  "}, &added)
	if added.Added {
		t.Error("blank meal name must be ignored")
	}
	doJSON(t, http.MethodPost, base+"/meals", AddMealRequest{Date: "2025-05-01", MealType: "Lunch", Name: "Pasta"}, &added)
	if !added.Added || len(added.Day.Entries("Lunch")) != 1 {
		t.Errorf("unexpected add result: %+v", added)
	}
	if len(added.Day.Meals) != len(mealplan.DefaultMealTypes) {
		t.Errorf("expected all default meal types, got %+v", added.Day.Meals)
	}
}

func TestGroceries(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/sessions/web-1/groceries"

	var item grocery.Item
	if code := doJSON(t, http.MethodPost, base, AddItemRequest{Category: "Dairy", Name: "milk", Quantity: "1 l"}, &item); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if item.ID == "" || item.Name != "milk" {
		t.Errorf("unexpected item: %+v", item)
	}

	if code := doJSON(t, http.MethodPost, base, AddItemRequest{Category: "Dairy", Name: " "}, nil); code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for empty name, got %d", code)
	}

	var changed ChangedResponse
	doJSON(t, http.MethodPost, base+"/Dairy/"+item.ID+"/toggle", nil, &changed)
	if !changed.Changed {
		t.Error("expected toggle to change the item")
	}
	doJSON(t, http.MethodPost, base+"/Dairy/missing/toggle", nil, &changed)
	if changed.Changed {
		t.Error("expected toggle miss to be a no-op")
	}

	var edited grocery.Item
	if code := doJSON(t, http.MethodPut, base+"/Produce/2", EditItemRequest{Category: "Pantry", Name: "carrots", Quantity: "3"}, &edited); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if edited.ID != "2" || edited.Quantity != "3" {
		t.Errorf("unexpected edited item: %+v", edited)
	}
	if code := doJSON(t, http.MethodPut, base+"/Produce/missing", EditItemRequest{Name: "x"}, nil); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}

	var shared ShareResponse
	doJSON(t, http.MethodPost, base+"/share", nil, &shared)
	if strings.Contains(shared.Text, "milk") {
		t.Errorf("checked item must not be shared: %q", shared.Text)
	}
	if !strings.Contains(shared.Text, "• carrots (3)") {
		t.Errorf("expected moved item in share text: %q", shared.Text)
	}
	if !strings.HasPrefix(shared.Link, "http://example.test/share/") {
		t.Fatalf("unexpected link %q", shared.Link)
	}

	resp, err := http.Get(srv.URL + strings.TrimPrefix(shared.Link, "http://example.test"))
	if err != nil {
		t.Fatalf("open link: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != shared.Text {
		t.Errorf("expected share text behind link, got %d %q", resp.StatusCode, body)
	}

	if code := doJSON(t, http.MethodGet, srv.URL+"/share/bogus", nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for a bad token, got %d", code)
	}

	var list grocery.List
	doJSON(t, http.MethodDelete, base+"/Dairy/"+item.ID, nil, &changed)
	doJSON(t, http.MethodGet, base, nil, &list)
	for _, c := range list.Categories {
		if c.Name == "Dairy" && len(c.Items) != 0 {
			t.Errorf("expected Dairy to be empty, got %+v", c.Items)
		}
	}
}

func TestDraftFlow(t *testing.T) {
	srv, a := newTestServer(t)
	base := srv.URL + "/sessions/web-1/draft"

	var d DraftResponse
	code := doJSON(t, http.MethodPost, base, StartDraftRequest{
		Source:   "paste",
		Date:     "2025-05-02",
		MealType: "Dinner",
		Text:     "Chicken Soup\n2 cups broth\n1. Boil water",
	}, &d)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if d.State != "writing" || d.Draft == nil || d.Draft.Title != "Chicken Soup" {
		t.Fatalf("unexpected draft: %+v", d)
	}

	blank := " "
	doJSON(t, http.MethodPatch, base, app.DraftPatch{Title: &blank}, &d)
	if code := doJSON(t, http.MethodPost, base+"/commit", nil, nil); code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for blank title, got %d", code)
	}

	title := "Grandma's Soup"
	doJSON(t, http.MethodPatch, base, app.DraftPatch{Title: &title, Tags: []string{"Healthy"}}, &d)
	if d.Draft.Title != title || len(d.Draft.Tags) != 1 {
		t.Errorf("unexpected patched draft: %+v", d.Draft)
	}

	var c CommitResponse
	if code := doJSON(t, http.MethodPost, base+"/commit", nil, &c); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if c.Entry.Name != title || c.Target.Date != "2025-05-02" || c.Target.MealType != "Dinner" {
		t.Errorf("unexpected commit: %+v", c)
	}

	s, _ := a.Session(t.Context(), "web-1")
	if got := s.Plans.SelectDate("2025-05-02").Entries("Dinner"); len(got) != 1 || got[0].Name != title {
		t.Errorf("expected committed dinner, got %+v", got)
	}

	doJSON(t, http.MethodGet, base, nil, &d)
	if d.State != "closed" || d.Draft != nil {
		t.Errorf("expected closed editor, got %+v", d)
	}
	if code := doJSON(t, http.MethodPost, base+"/commit", nil, nil); code != http.StatusConflict {
		t.Errorf("expected 409 without a draft, got %d", code)
	}
}

func TestCaptureFailures(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/sessions/web-2/draft"

	if code := doJSON(t, http.MethodPost, base, StartDraftRequest{Source: "snap"}, nil); code != http.StatusForbidden {
		t.Errorf("expected 403 without an image, got %d", code)
	}
	if code := doJSON(t, http.MethodPost, base, StartDraftRequest{Source: "kitchen", Recipe: "k1"}, nil); code != http.StatusBadGateway {
		t.Errorf("expected 502 with kitchen disabled, got %d", code)
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/kitchen", nil, nil); code != http.StatusBadGateway {
		t.Errorf("expected 502 with kitchen disabled, got %d", code)
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/recipes/missing", nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
	if code := doJSON(t, http.MethodDelete, base, nil, nil); code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", code)
	}
}
