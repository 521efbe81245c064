package telegram

import (
	"fmt"
	"strings"

	"meal-planner/internal/grocery"
	"meal-planner/internal/mealplan"
	"meal-planner/internal/metrics"
	"meal-planner/internal/recipe"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `🍽 *Meal Planner*

/plan [date] - show the meals of a date
/add <meal type> <name> - add a meal by name
/write, /paste, /snap, /search, /kitchen - start a recipe draft
/title, /course, /cuisine, /ingredient, /step, /tag, /nutrition, /preptime, /cooktime, /notes - edit the draft
/draft - show the draft
/save - add the draft to the plan
/cancel - discard the draft
/grocery - show the grocery list
/buy <category>: <item>, <quantity> - add a grocery item
/edit <item> -> <category>: <name>, <quantity> - change a grocery item
/share - share the unchecked grocery items

Send a photo to scan a recipe, or a link to import one.`

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func formatDay(day mealplan.Day) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *Plan for %s*\n", esc(day.Date)))
	for _, m := range day.Meals {
		sb.WriteString(fmt.Sprintf("\n*%s*\n", esc(m.Type)))
		if len(m.Entries) == 0 {
			sb.WriteString("_nothing planned_\n")
		}
		for _, e := range m.Entries {
			sb.WriteString(fmt.Sprintf("• %s\n", esc(e.Name)))
		}
	}
	return sb.String()
}

func formatDraft(d recipe.Draft, state string) string {
	var sb strings.Builder
	title := d.Title
	if strings.TrimSpace(title) == "" {
		title = "(no title yet, use /title)"
	}
	sb.WriteString(fmt.Sprintf("📝 *%s*\n", esc(title)))

	var facts []string
	if d.Course != "" {
		facts = append(facts, esc(d.Course))
	}
	if d.Cuisine != "" {
		facts = append(facts, esc(d.Cuisine))
	}
	if len(facts) > 0 {
		sb.WriteString(strings.Join(facts, " · ") + "\n")
	}
	if d.PrepTime != "" || d.CookTime != "" {
		sb.WriteString(fmt.Sprintf("⏱ Prep: %s | Cook: %s\n",
			esc(recipe.CompactDuration(d.PrepTime)), esc(recipe.CompactDuration(d.CookTime))))
	}
	if !d.Nutrition.IsEmpty() {
		n := d.Nutrition
		sb.WriteString(fmt.Sprintf("🔥 %s kcal · P %s · C %s · F %s\n",
			esc(string(n.Calories)), esc(string(n.Protein)), esc(string(n.Carbs)), esc(string(n.Fats))))
	}
	if len(d.Tags) > 0 {
		tags := make([]string, len(d.Tags))
		for i, t := range d.Tags {
			tags[i] = "#" + esc(strings.ReplaceAll(t, " ", "_"))
		}
		sb.WriteString(strings.Join(tags, " ") + "\n")
	}

	if len(d.Ingredients) > 0 {
		sb.WriteString("\n*Ingredients*\n")
		for _, line := range d.Ingredients {
			sb.WriteString(fmt.Sprintf("• %s\n", esc(line)))
		}
	}
	if len(d.Instructions) > 0 {
		sb.WriteString("\n*Instructions*\n")
		for i, step := range d.Instructions {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, esc(step)))
		}
	}
	if d.Notes != "" {
		sb.WriteString(fmt.Sprintf("\n_%s_\n", esc(d.Notes)))
	}
	sb.WriteString(fmt.Sprintf("\nState: `%s` · /save or /cancel", state))
	return sb.String()
}

func formatGroceries(l grocery.List) string {
	var sb strings.Builder
	sb.WriteString("🛒 *Grocery List*\n")
	count := 0
	for _, c := range l.Categories {
		if len(c.Items) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n*%s*\n", esc(c.Name)))
		for _, it := range c.Items {
			count++
			mark := "☐"
			if it.Checked {
				mark = "✅"
			}
			sb.WriteString(fmt.Sprintf("%s %s", mark, esc(it.Name)))
			if it.Quantity != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", esc(it.Quantity)))
			}
			sb.WriteString("\n")
		}
	}
	if count == 0 {
		sb.WriteString("\n_empty_ - add items with /buy\n")
	}
	return sb.String()
}

// groceryKeyboard has one row per item: toggle and delete. Callback data
// carries only the item id, which is unique across the list.
func groceryKeyboard(l grocery.List) (tgbotapi.InlineKeyboardMarkup, bool) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, c := range l.Categories {
		for _, it := range c.Items {
			label := "☐ " + it.Name
			if it.Checked {
				label = "✅ " + it.Name
			}
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(label, "tog|"+it.ID),
				tgbotapi.NewInlineKeyboardButtonData("🗑", "del|"+it.ID),
			))
		}
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func mealTypeKeyboard() tgbotapi.InlineKeyboardMarkup {
	var buttons []tgbotapi.InlineKeyboardButton
	for _, t := range mealplan.DefaultMealTypes {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData("➕ "+t, "add|"+t))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(buttons[:2]...),
		tgbotapi.NewInlineKeyboardRow(buttons[2:]...),
	)
}

func capturePathKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✍️ Write", "path|write"),
			tgbotapi.NewInlineKeyboardButtonData("📸 Snap", "path|snap"),
			tgbotapi.NewInlineKeyboardButtonData("📋 Paste", "path|paste"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔗 Search", "path|search"),
			tgbotapi.NewInlineKeyboardButtonData("👩‍🍳 Kitchen", "path|kitchen"),
		),
	)
}

func formatKitchen(recipes []recipe.Recipe) string {
	var sb strings.Builder
	sb.WriteString("👩‍🍳 *Kitchen*\n\n")
	if len(recipes) == 0 {
		sb.WriteString("_No curated recipes yet_\n")
	}
	for _, r := range recipes {
		sb.WriteString(fmt.Sprintf("• *%s*", esc(r.Title)))
		if r.Course != "" {
			sb.WriteString(" · " + esc(r.Course))
		}
		sb.WriteString(" · ⏱ " + esc(recipe.CompactDuration(r.PrepTime)) + "\n")
	}
	return sb.String()
}

// kitchenKeyboard offers at most limit recipes; callback data is capped at
// 64 bytes by Telegram, so only ids short enough to fit are offered.
func kitchenKeyboard(recipes []recipe.Recipe, limit int) (tgbotapi.InlineKeyboardMarkup, bool) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, r := range recipes {
		if len(rows) == limit {
			break
		}
		data := "kitchen|" + r.ID
		if len(data) > 64 {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(r.Title, data)))
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func formatMetrics(daily []metrics.DailySummary, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent External Calls*\n")
	if len(daily) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range daily {
		sb.WriteString(fmt.Sprintf("• *%s*: %d calls, %d failed, %d reported (avg %.0fms)\n",
			d.Date, d.Calls, d.Failures, d.Reported, d.AvgLatencyMS))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %s (Alloc) / %s (Sys)\n", health.Alloc, health.Sys))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}
