package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"

	"meal-planner/internal/app"
	"meal-planner/internal/config"
	"meal-planner/internal/grocery"
	"meal-planner/internal/mealplan"
	"meal-planner/internal/metrics"
	"meal-planner/internal/recipe"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const kitchenButtons = 10

func (b *Bot) handleCommand(ctx context.Context, s *app.Session, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		b.reply(chatID, helpText)
	case "plan":
		date := args
		if date == "" {
			date = s.SelectedDate()
		}
		b.replyWithKeyboard(chatID, formatDay(s.Select(date)), mealTypeKeyboard())
	case "add":
		b.handleAddMeal(ctx, s, chatID, args)
	case "write", "paste", "snap", "search", "kitchen":
		b.startCapture(ctx, s, msg.From.ID, chatID, recipe.Source(msg.Command()), args)
	case "title", "image", "preptime", "cooktime", "notes", "course", "cuisine",
		"ingredient", "step", "tag", "nutrition":
		b.handleDraftEdit(s, chatID, msg.Command(), args)
	case "draft":
		b.sendDraft(chatID, s, "📝 *Current draft*")
	case "save":
		b.handleSave(ctx, s, chatID)
	case "cancel":
		b.app.Discard(s)
		b.clearChatState(ctx, msg.From.ID)
		b.reply(chatID, "🗑 Draft discarded.")
	case "grocery":
		b.sendGroceries(chatID, s)
	case "buy":
		b.handleBuy(ctx, s, chatID, args)
	case "edit":
		b.handleEditItem(ctx, s, chatID, args)
	case "share":
		b.handleShare(s, chatID)
	case "metrics":
		b.handleMetricsRequest(ctx, msg)
	default:
		b.reply(chatID, helpText)
	}
}

// target is where a new draft lands: the meal slot picked from the plan
// keyboard, or the first meal type of the selected date.
func (b *Bot) target(ctx context.Context, userID int64, s *app.Session) app.Target {
	state := b.chatState(ctx, userID)
	t := app.Target{Date: state.ContextData.Date, MealType: state.ContextData.MealType}
	if t.Date == "" {
		t.Date = s.SelectedDate()
	}
	if t.MealType == "" {
		t.MealType = mealplan.DefaultMealTypes[0]
	}
	return t
}

func (b *Bot) startCapture(ctx context.Context, s *app.Session, userID, chatID int64, source recipe.Source, args string) {
	t := b.target(ctx, userID, s)
	slot := ChatContext{Date: t.Date, MealType: t.MealType}

	switch source {
	case recipe.SourceWrite:
		b.clearChatState(ctx, userID)
		b.app.StartWrite(s, t)
		b.sendDraft(chatID, s, "✍️ *New draft*\nStart with /title")
	case recipe.SourcePaste:
		if args == "" {
			b.setChatState(ctx, userID, StateAwaitPaste, slot)
			b.reply(chatID, "📋 Paste the recipe text.")
			return
		}
		b.clearChatState(ctx, userID)
		b.app.Paste(s, t, args)
		b.sendDraft(chatID, s, "📋 *Draft from your text*")
	case recipe.SourceSnap:
		b.setChatState(ctx, userID, StateAwaitPhoto, slot)
		b.reply(chatID, "📸 Send a photo of the recipe.")
	case recipe.SourceSearch:
		if args == "" {
			b.setChatState(ctx, userID, StateAwaitURL, slot)
			b.reply(chatID, "🔗 Send the link of a recipe page.")
			return
		}
		b.clearChatState(ctx, userID)
		b.handleSearch(ctx, s, chatID, t, args)
	case recipe.SourceKitchen:
		if args == "" {
			b.setChatState(ctx, userID, StateIdle, slot)
			b.sendKitchen(ctx, chatID)
			return
		}
		idOrTitle, notes, _ := strings.Cut(args, "|")
		b.handleKitchen(ctx, s, chatID, t, strings.TrimSpace(idOrTitle), notes)
	}
}

func (b *Bot) sendKitchen(ctx context.Context, chatID int64) {
	recipes, err := b.app.KitchenRecipes(ctx)
	if err != nil {
		b.reply(chatID, "❌ "+app.UserMessage(err))
		return
	}
	if keyboard, ok := kitchenKeyboard(recipes, kitchenButtons); ok {
		b.replyWithKeyboard(chatID, formatKitchen(recipes), keyboard)
		return
	}
	b.reply(chatID, formatKitchen(recipes))
}

func (b *Bot) handleKitchen(ctx context.Context, s *app.Session, chatID int64, t app.Target, idOrTitle, notes string) {
	if _, err := b.app.Kitchen(ctx, s, t, idOrTitle, notes); err != nil {
		b.reply(chatID, "❌ "+app.UserMessage(err))
		return
	}
	b.sendDraft(chatID, s, "👩‍🍳 *Draft from the kitchen*")
}

func (b *Bot) handleAddMeal(ctx context.Context, s *app.Session, chatID int64, args string) {
	mealType, name := splitMealType(args)
	if mealType == "" {
		b.reply(chatID, "Usage: /add <meal type> <name>, e.g. /add Lunch Pasta")
		return
	}
	date := s.SelectedDate()
	added, err := b.app.AddMeal(ctx, s, date, mealType, name)
	if err != nil {
		log.Printf("Error adding meal: %v", err)
		b.reply(chatID, "❌ "+app.UserMessage(err))
		return
	}
	if !added {
		return
	}
	b.replyWithKeyboard(chatID, formatDay(s.Plans.SelectDate(date)), mealTypeKeyboard())
}

// splitMealType matches the leading meal type of args, ignoring case.
func splitMealType(args string) (string, string) {
	for _, t := range mealplan.DefaultMealTypes {
		if len(args) >= len(t) && strings.EqualFold(args[:len(t)], t) {
			return t, strings.TrimSpace(args[len(t):])
		}
	}
	return "", args
}

// splitCategory parses "<category>: <name>, <quantity>". A missing or unknown
// category falls back to Other.
func splitCategory(args string) (category, name, quantity string) {
	category = "Other"
	rest := args
	if head, tail, ok := strings.Cut(args, ":"); ok {
		for _, c := range grocery.Categories {
			if strings.EqualFold(strings.TrimSpace(head), c) {
				category, rest = c, tail
				break
			}
		}
	}
	name, quantity, _ = strings.Cut(rest, ",")
	return category, strings.TrimSpace(name), strings.TrimSpace(quantity)
}

func (b *Bot) handleDraftEdit(s *app.Session, chatID int64, command, args string) {
	current, err := s.Editor.Draft()
	if err != nil {
		b.reply(chatID, "No draft is open. Start one with /write.")
		return
	}

	var p app.DraftPatch
	switch command {
	case "title":
		p.Title = &args
	case "image":
		p.Image = &args
	case "preptime":
		p.PrepTime = &args
	case "cooktime":
		p.CookTime = &args
	case "notes":
		p.Notes = &args
	case "course":
		p.Course = &args
	case "cuisine":
		p.Cuisine = &args
	case "ingredient":
		p.Ingredients = append(current.Ingredients, args)
	case "step":
		p.Instructions = append(current.Instructions, args)
	case "tag":
		p.Tags = toggle(current.Tags, args)
	case "nutrition":
		f := strings.Fields(args)
		for len(f) < 4 {
			f = append(f, "")
		}
		p.Nutrition = &recipe.Nutrition{
			Calories: recipe.Amount(f[0]),
			Protein:  recipe.Amount(f[1]),
			Carbs:    recipe.Amount(f[2]),
			Fats:     recipe.Amount(f[3]),
		}
	}

	if _, err := b.app.EditDraft(s, p); err != nil {
		b.reply(chatID, "❌ "+err.Error())
		return
	}
	b.sendDraft(chatID, s, "📝 *Draft updated*")
}

// toggle removes tag when present, ignoring case, and appends it otherwise.
func toggle(tags []string, tag string) []string {
	tag = strings.TrimSpace(tag)
	out := make([]string, 0, len(tags)+1)
	found := false
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			found = true
			continue
		}
		out = append(out, t)
	}
	if !found && tag != "" {
		out = append(out, tag)
	}
	return out
}

func (b *Bot) handleSave(ctx context.Context, s *app.Session, chatID int64) {
	c, err := b.app.CommitDraft(ctx, s)
	if err != nil {
		if app.KindOf(err) == app.KindValidation {
			b.reply(chatID, "✏️ The recipe needs a title. Use /title.")
			return
		}
		b.reply(chatID, "No draft is open. Start one with /write.")
		return
	}
	b.reply(chatID, fmt.Sprintf("✅ *%s* added to %s on %s.", esc(c.Entry.Name), esc(c.Target.MealType), esc(c.Target.Date)))
}

func (b *Bot) sendGroceries(chatID int64, s *app.Session) {
	list := s.Groceries.Snapshot()
	if keyboard, ok := groceryKeyboard(list); ok {
		b.replyWithKeyboard(chatID, formatGroceries(list), keyboard)
		return
	}
	b.reply(chatID, formatGroceries(list))
}

func (b *Bot) handleBuy(ctx context.Context, s *app.Session, chatID int64, args string) {
	category, name, quantity := splitCategory(args)
	if _, err := b.app.AddGroceryItem(ctx, s, category, name, quantity); err != nil {
		if app.KindOf(err) != app.KindValidation {
			log.Printf("Error adding grocery item: %v", err)
		}
		return
	}
	b.sendGroceries(chatID, s)
}

// handleEditItem parses "<current name> -> [<category>:] <name>, <quantity>".
// Without a known category the item stays where it is.
func (b *Bot) handleEditItem(ctx context.Context, s *app.Session, chatID int64, args string) {
	current, change, ok := strings.Cut(args, "->")
	if !ok {
		b.reply(chatID, "Usage: /edit <item> -> <category>: <name>, <quantity>")
		return
	}
	from, item, ok := findItemByName(s.Groceries.Snapshot(), strings.TrimSpace(current))
	if !ok {
		b.reply(chatID, fmt.Sprintf("No grocery item named %q.", strings.TrimSpace(current)))
		return
	}
	to, name, quantity := splitCategory(change)
	if head, _, found := strings.Cut(change, ":"); !found || !strings.EqualFold(strings.TrimSpace(head), to) {
		to = from
	}
	if _, err := b.app.EditGroceryItem(ctx, s, from, to, item.ID, name, quantity); err != nil {
		if app.KindOf(err) != app.KindValidation {
			log.Printf("Error editing grocery item: %v", err)
		}
		return
	}
	b.sendGroceries(chatID, s)
}

// findItemByName returns the first item named name, ignoring case.
func findItemByName(l grocery.List, name string) (string, grocery.Item, bool) {
	for _, c := range l.Categories {
		for _, it := range c.Items {
			if strings.EqualFold(it.Name, name) {
				return c.Name, it, true
			}
		}
	}
	return "", grocery.Item{}, false
}

func (b *Bot) handleShare(s *app.Session, chatID int64) {
	text := s.Groceries.BuildShareText()
	if b.signer != nil {
		link, err := b.signer.Link(s.ID)
		if err != nil {
			log.Printf("Error signing share link: %v", err)
		} else {
			text += "\n🔗 " + link
		}
	}
	// Plain text: item names are shared verbatim.
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func (b *Bot) handleMetricsRequest(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}
	var daily []metrics.DailySummary
	if b.metricsStore != nil {
		var err error
		if daily, err = b.metricsStore.GetDailySummary(ctx, 7); err != nil {
			b.reply(msg.Chat.ID, "❌ Error fetching metrics.")
			return
		}
	}
	b.reply(msg.Chat.ID, formatMetrics(daily, metrics.GetSysHealth(b.dataPath())))
}

func (b *Bot) dataPath() string {
	if b.cfg.StorageBackend == config.StorageFile {
		return b.cfg.SnapshotDir
	}
	return b.cfg.DatabasePath
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	ctx := context.Background()

	// Answer callback to remove spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Printf("Failed to answer callback: %v", err)
	}
	if query.Message == nil {
		return
	}

	action, value, ok := strings.Cut(query.Data, "|")
	if !ok {
		return
	}
	chatID := query.Message.Chat.ID
	s, err := b.app.Session(ctx, sessionID(query.From.ID))
	if err != nil {
		log.Printf("Error opening session for user %d: %v", query.From.ID, err)
		return
	}

	switch action {
	case "add":
		b.setChatState(ctx, query.From.ID, StateIdle, ChatContext{Date: s.SelectedDate(), MealType: value})
		b.replyWithKeyboard(chatID, fmt.Sprintf("➕ Add to *%s* on %s", esc(value), esc(s.SelectedDate())), capturePathKeyboard())
	case "path":
		b.startCapture(ctx, s, query.From.ID, chatID, recipe.Source(value), "")
	case "kitchen":
		b.handleKitchen(ctx, s, chatID, b.target(ctx, query.From.ID, s), value, "")
	case "tog", "del":
		category, _, found := s.Groceries.Find(value)
		if !found {
			return
		}
		if action == "tog" {
			_, err = b.app.ToggleGroceryItem(ctx, s, category, value)
		} else {
			_, err = b.app.DeleteGroceryItem(ctx, s, category, value)
		}
		if err != nil {
			log.Printf("Error updating grocery item: %v", err)
			return
		}
		b.refreshGroceries(chatID, query.Message.MessageID, s)
	}
}

func (b *Bot) refreshGroceries(chatID int64, messageID int, s *app.Session) {
	list := s.Groceries.Snapshot()
	edit := tgbotapi.NewEditMessageText(chatID, messageID, formatGroceries(list))
	edit.ParseMode = "Markdown"
	if keyboard, ok := groceryKeyboard(list); ok {
		edit.ReplyMarkup = &keyboard
	}
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Failed to edit message: %v", err)
	}
}
