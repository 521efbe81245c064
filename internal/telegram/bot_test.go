package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"meal-planner/internal/app"
	"meal-planner/internal/config"
	"meal-planner/internal/database"
	"meal-planner/internal/grocery"
	"meal-planner/internal/mealplan"
	"meal-planner/internal/recipe"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	fileURL  string
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	return f.fileURL, nil
}

func (f *fakeAPI) HandleUpdate(r *http.Request) (*tgbotapi.Update, error) {
	return &tgbotapi.Update{}, nil
}

func (f *fakeAPI) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	switch c := f.sent[len(f.sent)-1].(type) {
	case tgbotapi.MessageConfig:
		return c.Text
	case tgbotapi.EditMessageTextConfig:
		return c.Text
	}
	return ""
}

type fakeRecognizer struct {
	text string
	got  []byte
}

func (f *fakeRecognizer) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	f.got = image
	return f.text, nil
}

const testUser = 42

func newTestBot(t *testing.T, deps app.Deps, chats *ChatStateRepository) (*Bot, *fakeAPI, *app.App) {
	t.Helper()
	a, err := app.NewApp(deps)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	api := &fakeAPI{}
	cfg := &config.Config{AdminTelegramID: 1, ExternalTimeout: 5 * time.Second}
	return NewBot(api, cfg, a, chats, nil, nil), api, a
}

func textMessage(text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: testUser},
		Chat:      &tgbotapi.Chat{ID: testUser},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return msg
}

func session(t *testing.T, a *app.App) *app.Session {
	t.Helper()
	s, err := a.Session(context.Background(), sessionID(testUser))
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	return s
}

func TestWriteAndSave(t *testing.T) {
	b, api, a := newTestBot(t, app.Deps{}, nil)

	b.processMessage(textMessage("/write"))
	b.processMessage(textMessage("/save"))
	if got := api.lastText(); !strings.Contains(got, "needs a title") {
		t.Errorf("expected title hint, got %q", got)
	}

	b.processMessage(textMessage("/title Pancakes"))
	b.processMessage(textMessage("/ingredient 2 cups flour"))
	b.processMessage(textMessage("/tag Vegetarian"))
	b.processMessage(textMessage("/course breakfast"))

	s := session(t, a)
	d, err := s.Editor.Draft()
	if err != nil {
		t.Fatalf("expected an open draft: %v", err)
	}
	if d.Title != "Pancakes" || len(d.Ingredients) != 1 || d.Course != "Breakfast" || len(d.Tags) != 1 {
		t.Errorf("unexpected draft: %+v", d)
	}

	b.processMessage(textMessage("/save"))
	if got := api.lastText(); !strings.Contains(got, "added to Break Fast on 8") {
		t.Errorf("unexpected confirmation %q", got)
	}
	breakfast := s.Plans.SelectDate(app.SeedDate).Entries("Break Fast")
	if len(breakfast) != 3 || breakfast[2].Name != "Pancakes" {
		t.Errorf("expected Pancakes appended, got %+v", breakfast)
	}
}

func TestAddMealCommand(t *testing.T) {
	b, _, a := newTestBot(t, app.Deps{}, nil)

	b.processMessage(textMessage("/plan 2025-05-01"))
	b.processMessage(textMessage("/add break fast Porridge"))
	b.processMessage(textMessage("/add Lunch   "))

	day := session(t, a).Plans.SelectDate("2025-05-01")
	if got := day.Entries("Break Fast"); len(got) != 1 || got[0].Name != "Porridge" {
		t.Errorf("unexpected breakfast: %+v", got)
	}
	if got := day.Entries("Lunch"); len(got) != 0 {
		t.Errorf("blank meal must be ignored, got %+v", got)
	}
}

func TestGroceryCommands(t *testing.T) {
	b, api, a := newTestBot(t, app.Deps{}, nil)
	s := session(t, a)

	b.processMessage(textMessage("/buy dairy: milk, 1 l"))
	items := s.Groceries.Items("Dairy")
	if len(items) != 1 || items[0].Name != "milk" || items[0].Quantity != "1 l" {
		t.Fatalf("unexpected dairy items: %+v", items)
	}

	b.processMessage(textMessage("/buy  "))
	if got := s.Groceries.Items("Other"); len(got) != 0 {
		t.Errorf("empty item must be ignored, got %+v", got)
	}

	b.handleCallbackQuery(&tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: testUser},
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: testUser}},
		Data:    "tog|" + items[0].ID,
	})
	if got := s.Groceries.Items("Dairy"); !got[0].Checked {
		t.Errorf("expected milk checked")
	}
	if !strings.Contains(api.lastText(), "✅ milk") {
		t.Errorf("expected refreshed list, got %q", api.lastText())
	}

	b.processMessage(textMessage("/share"))
	if got := api.lastText(); strings.Contains(got, "milk") || !strings.Contains(got, "🧺 Produce:") {
		t.Errorf("unexpected share text %q", got)
	}

	b.handleCallbackQuery(&tgbotapi.CallbackQuery{
		ID:      "cb2",
		From:    &tgbotapi.User{ID: testUser},
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: testUser}},
		Data:    "del|" + items[0].ID,
	})
	if got := s.Groceries.Items("Dairy"); len(got) != 0 {
		t.Errorf("expected milk deleted, got %+v", got)
	}
}

func TestEditGroceryItem(t *testing.T) {
	b, api, a := newTestBot(t, app.Deps{}, nil)
	s := session(t, a)

	b.processMessage(textMessage("/edit Carrots -> pantry: baby carrots, 2 bags"))
	pantry := s.Groceries.Items("Pantry")
	if last := pantry[len(pantry)-1]; last.Name != "baby carrots" || last.Quantity != "2 bags" || last.ID != "2" {
		t.Errorf("expected carrots moved to Pantry, got %+v", pantry)
	}
	if got := s.Groceries.Items("Produce"); len(got) != 1 {
		t.Errorf("expected one item left in Produce, got %+v", got)
	}
	if !strings.Contains(api.lastText(), "baby carrots") {
		t.Errorf("expected refreshed list, got %q", api.lastText())
	}

	b.processMessage(textMessage("/edit grape tomatoes -> cherry tomatoes"))
	if got := s.Groceries.Items("Produce"); len(got) != 1 || got[0].Name != "cherry tomatoes" {
		t.Errorf("expected item renamed in place, got %+v", got)
	}

	b.processMessage(textMessage("/edit cherry tomatoes ->  "))
	if got := s.Groceries.Items("Produce"); got[0].Name != "cherry tomatoes" {
		t.Errorf("blank name must be ignored, got %+v", got)
	}

	b.processMessage(textMessage("/edit bananas -> apples"))
	if !strings.Contains(api.lastText(), "No grocery item") {
		t.Errorf("expected a not found reply, got %q", api.lastText())
	}
}

func TestSnapPhoto(t *testing.T) {
	photo := []byte("\xff\xd8\xff\xe0fake-jpeg")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(photo)
	}))
	defer srv.Close()

	rec := &fakeRecognizer{text: "Chicken Soup\n2 cups broth\n1. Boil water"}
	b, api, a := newTestBot(t, app.Deps{Recognizer: rec}, nil)
	api.fileURL = srv.URL + "/photo.jpg"

	msg := textMessage("")
	msg.Photo = []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}}
	b.processMessage(msg)

	if string(rec.got) != string(photo) {
		t.Errorf("recognizer did not receive the photo")
	}
	d, err := session(t, a).Editor.Draft()
	if err != nil || d.Title != "Chicken Soup" || d.Image != "tg://photo/large" {
		t.Errorf("unexpected draft %+v, %v", d, err)
	}
	if !strings.Contains(api.lastText(), "Chicken Soup") {
		t.Errorf("expected draft preview, got %q", api.lastText())
	}
}

func TestPasteWithChatState(t *testing.T) {
	db, err := database.NewDB(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	defer db.Close()
	chats := NewChatStateRepository(db.SQL)

	b, _, a := newTestBot(t, app.Deps{}, chats)
	b.handleCallbackQuery(&tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: testUser},
		Message: &tgbotapi.Message{MessageID: 3, Chat: &tgbotapi.Chat{ID: testUser}},
		Data:    "add|Dinner",
	})
	b.processMessage(textMessage("/paste"))

	cs, err := chats.GetActive(context.Background(), sessionID(testUser))
	if err != nil || cs == nil || cs.State != StateAwaitPaste || cs.ContextData.MealType != "Dinner" {
		t.Fatalf("unexpected chat state %+v, %v", cs, err)
	}

	b.processMessage(textMessage("Tomato Salad\n2 tomatoes\nStep one: slice"))
	s := session(t, a)
	d, err := s.Editor.Draft()
	if err != nil || d.Title != "Tomato Salad" || d.Source != recipe.SourcePaste {
		t.Fatalf("unexpected draft %+v, %v", d, err)
	}
	if got := s.Target(); got.MealType != "Dinner" || got.Date != app.SeedDate {
		t.Errorf("unexpected target %+v", got)
	}
	if cs, _ := chats.GetActive(context.Background(), sessionID(testUser)); cs != nil {
		t.Errorf("expected chat state cleared, got %+v", cs)
	}
}

func TestMetricsAdminOnly(t *testing.T) {
	b, api, _ := newTestBot(t, app.Deps{}, nil)
	b.processMessage(textMessage("/metrics"))
	if got := api.lastText(); !strings.Contains(got, "Access Denied") {
		t.Errorf("expected access denied, got %q", got)
	}

	admin := textMessage("/metrics")
	admin.From.ID = 1
	b.processMessage(admin)
	if got := api.lastText(); !strings.Contains(got, "System Health") {
		t.Errorf("expected report, got %q", got)
	}
}

func TestAllowed(t *testing.T) {
	b, _, _ := newTestBot(t, app.Deps{}, nil)
	b.cfg.TelegramAllowedUserIDs = []int64{7}

	if !b.allowed(&tgbotapi.User{ID: 7}) || !b.allowed(&tgbotapi.User{ID: 1}) {
		t.Error("expected listed user and admin to be allowed")
	}
	if b.allowed(&tgbotapi.User{ID: 8}) || b.allowed(nil) {
		t.Error("expected unknown user to be rejected")
	}
}

func TestFormatters(t *testing.T) {
	t.Run("Day", func(t *testing.T) {
		store := mealplan.NewStore()
		store.AddMeal("8", "Lunch", "Chicken_Wrap")
		out := formatDay(store.SelectDate("8"))
		if !strings.Contains(out, "📅 *Plan for 8*") || !strings.Contains(out, `• Chicken\_Wrap`) {
			t.Errorf("unexpected day output:\n%s", out)
		}
		if strings.Count(out, "_nothing planned_") != 3 {
			t.Errorf("expected three empty meal types:\n%s", out)
		}
	})

	t.Run("Draft", func(t *testing.T) {
		out := formatDraft(recipe.Draft{
			Title:        "Soup",
			PrepTime:     "PT1H30M",
			Instructions: []string{"Boil", "Serve"},
			Tags:         []string{"Comfort food"},
		}, "writing")
		for _, want := range []string{"📝 *Soup*", "Prep: 1h 30m | Cook: —", "2. Serve", `#Comfort\_food`, "`writing`"} {
			if !strings.Contains(out, want) {
				t.Errorf("missing %q in:\n%s", want, out)
			}
		}
	})

	t.Run("Groceries", func(t *testing.T) {
		list := grocery.List{Categories: []grocery.Category{
			{Name: "Produce", Items: []grocery.Item{{ID: "1", Name: "carrots", Quantity: "3", Checked: true}}},
		}}
		out := formatGroceries(list)
		if !strings.Contains(out, "✅ carrots (3)") {
			t.Errorf("unexpected groceries output:\n%s", out)
		}
		keyboard, ok := groceryKeyboard(list)
		if !ok || keyboard.InlineKeyboard[0][0].CallbackData == nil || *keyboard.InlineKeyboard[0][0].CallbackData != "tog|1" {
			t.Errorf("unexpected keyboard %+v", keyboard)
		}
		if _, ok := groceryKeyboard(grocery.List{}); ok {
			t.Error("expected no keyboard for an empty list")
		}
	})
}

func TestParsing(t *testing.T) {
	tests := []struct {
		args                     string
		category, name, quantity string
	}{
		{"Produce: carrots, 1 bag", "Produce", "carrots", "1 bag"},
		{"meat & seafood: salmon", "Meat & Seafood", "salmon", ""},
		{"eggs, 12", "Other", "eggs", "12"},
		{"Spices: cumin", "Other", "Spices: cumin", ""},
	}
	for _, tt := range tests {
		c, n, q := splitCategory(tt.args)
		if c != tt.category || n != tt.name || q != tt.quantity {
			t.Errorf("splitCategory(%q) = %q, %q, %q", tt.args, c, n, q)
		}
	}

	if mt, name := splitMealType("snack Apple"); mt != "Snack" || name != "Apple" {
		t.Errorf("unexpected split %q %q", mt, name)
	}
	if mt, _ := splitMealType("Brunch eggs"); mt != "" {
		t.Errorf("expected no meal type, got %q", mt)
	}

	if got := toggle([]string{"Vegan", "Spicy"}, "vegan"); len(got) != 1 || got[0] != "Spicy" {
		t.Errorf("unexpected toggle result %v", got)
	}
}
