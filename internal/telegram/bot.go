// Package telegram is the chat front-end: commands and inline keyboards over
// the sessions of an app.App.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"meal-planner/internal/app"
	"meal-planner/internal/config"
	"meal-planner/internal/metrics"
	"meal-planner/internal/share"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	chatStateTTL = 30 * time.Minute
	maxPhotoSize = 10 << 20
)

// API is the part of the Telegram client the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// Bot wraps the Telegram API and the meal planner sessions.
type Bot struct {
	api          API
	app          *app.App
	chats        *ChatStateRepository
	metricsStore *metrics.Store
	signer       *share.Signer
	cfg          *config.Config
	httpClient   *http.Client
}

// Connect authorizes the bot token and sets the webhook.
func Connect(cfg *config.Config) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	webhookURL := cfg.TelegramWebhookURL
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook for %s: %w", webhookURL, err)
	}
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)
	return bot, nil
}

// NewBot creates a Bot. chats, metricsStore and signer are optional.
func NewBot(api API, cfg *config.Config, a *app.App, chats *ChatStateRepository, metricsStore *metrics.Store, signer *share.Signer) *Bot {
	return &Bot{
		api:          api,
		app:          a,
		chats:        chats,
		metricsStore: metricsStore,
		signer:       signer,
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: cfg.ExternalTimeout},
	}
}

// RegisterHandlers registers the webhook handler with mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}
	b.dispatch(update)
}

func (b *Bot) dispatch(update *tgbotapi.Update) {
	if update.CallbackQuery != nil {
		if !b.allowed(update.CallbackQuery.From) {
			return
		}
		go b.handleCallbackQuery(update.CallbackQuery)
		return
	}

	if update.Message == nil || update.Message.From == nil {
		return
	}
	if !b.allowed(update.Message.From) {
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) allowed(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	if b.cfg.UserAllowed(from.ID) {
		return true
	}
	log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", from.ID, from.UserName)
	return false
}

func sessionID(userID int64) string {
	return fmt.Sprintf("tg:%d", userID)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx := context.Background()
	s, err := b.app.Session(ctx, sessionID(msg.From.ID))
	if err != nil {
		log.Printf("Error opening session for user %d: %v", msg.From.ID, err)
		b.reply(msg.Chat.ID, "❌ "+app.UserMessage(err))
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, s, msg)
		return
	}

	state := b.chatState(ctx, msg.From.ID)
	target := app.Target{Date: state.ContextData.Date, MealType: state.ContextData.MealType}

	switch {
	case len(msg.Photo) > 0:
		b.clearChatState(ctx, msg.From.ID)
		b.handleSnap(ctx, s, msg, target)
	case isURL(msg.Text):
		b.clearChatState(ctx, msg.From.ID)
		b.handleSearch(ctx, s, msg.Chat.ID, target, strings.TrimSpace(msg.Text))
	case state.State == StateAwaitPaste:
		b.clearChatState(ctx, msg.From.ID)
		b.app.Paste(s, target, msg.Text)
		b.sendDraft(msg.Chat.ID, s, "📋 *Draft from your text*")
	case state.State == StateAwaitPhoto:
		b.reply(msg.Chat.ID, "📸 Please send a photo of the recipe.")
	case state.State == StateAwaitURL:
		b.reply(msg.Chat.ID, "🔗 Please send a link starting with http:// or https://.")
	default:
		b.reply(msg.Chat.ID, helpText)
	}
}

func isURL(text string) bool {
	text = strings.TrimSpace(text)
	return strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://")
}

func (b *Bot) chatState(ctx context.Context, userID int64) ChatState {
	idle := ChatState{State: StateIdle}
	if b.chats == nil {
		return idle
	}
	cs, err := b.chats.GetActive(ctx, sessionID(userID))
	if err != nil {
		log.Printf("Warning: failed to load chat state for user %d: %v", userID, err)
		return idle
	}
	if cs == nil {
		return idle
	}
	return *cs
}

func (b *Bot) setChatState(ctx context.Context, userID int64, state string, data ChatContext) {
	if b.chats == nil {
		return
	}
	if err := b.chats.Set(ctx, sessionID(userID), state, data, chatStateTTL); err != nil {
		log.Printf("Warning: failed to save chat state for user %d: %v", userID, err)
	}
}

func (b *Bot) clearChatState(ctx context.Context, userID int64) {
	if b.chats == nil {
		return
	}
	if err := b.chats.Delete(ctx, sessionID(userID)); err != nil {
		log.Printf("Warning: failed to clear chat state for user %d: %v", userID, err)
	}
}

func (b *Bot) handleSnap(ctx context.Context, s *app.Session, msg *tgbotapi.Message, target app.Target) {
	sent, ok := b.status(msg.Chat.ID, "📸 *Reading your recipe...*")
	if !ok {
		return
	}

	photo := msg.Photo[len(msg.Photo)-1]
	img, err := b.downloadPhoto(ctx, photo.FileID)
	if err != nil {
		log.Printf("Error downloading photo: %v", err)
		img = app.Image{}
	}

	d, err := b.app.Snap(ctx, s, target, img)
	if err != nil {
		b.editFailure(msg.Chat.ID, sent.MessageID, err)
		return
	}
	b.edit(msg.Chat.ID, sent.MessageID, formatDraft(d, s.Editor.State().String()))
}

func (b *Bot) handleSearch(ctx context.Context, s *app.Session, chatID int64, target app.Target, pageURL string) {
	sent, ok := b.status(chatID, "🔎 *Importing recipe...*")
	if !ok {
		return
	}
	d, err := b.app.Search(ctx, s, target, pageURL)
	if err != nil {
		b.editFailure(chatID, sent.MessageID, err)
		return
	}
	b.edit(chatID, sent.MessageID, formatDraft(d, s.Editor.State().String()))
}

// downloadPhoto fetches a photo from the Telegram file API. A photo that
// cannot be fetched yields an empty image, which the snap path reports as
// denied image access.
func (b *Bot) downloadPhoto(ctx context.Context, fileID string) (app.Image, error) {
	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return app.Image{}, fmt.Errorf("failed to resolve photo: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return app.Image{}, fmt.Errorf("failed to create photo request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return app.Image{}, fmt.Errorf("failed to fetch photo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return app.Image{}, fmt.Errorf("failed to fetch photo: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoSize))
	if err != nil {
		return app.Image{}, fmt.Errorf("failed to read photo: %w", err)
	}
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return app.Image{Data: data, MimeType: mimeType, URI: "tg://photo/" + fileID}, nil
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func (b *Bot) status(chatID int64, text string) (tgbotapi.Message, bool) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	sent, err := b.api.Send(msg)
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
		return tgbotapi.Message{}, false
	}
	return sent, true
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = "Markdown"
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Failed to edit message: %v", err)
	}
}

// editFailure replaces a status message with the generic text of err. Stale
// results are dropped without a message.
func (b *Bot) editFailure(chatID int64, messageID int, err error) {
	if app.KindOf(err) == app.KindStale {
		b.edit(chatID, messageID, "🗑 Draft was closed.")
		return
	}
	b.edit(chatID, messageID, "❌ "+app.UserMessage(err))
}

func (b *Bot) sendDraft(chatID int64, s *app.Session, header string) {
	d, err := s.Editor.Draft()
	if err != nil {
		b.reply(chatID, "No draft is open. Use /plan to add a meal.")
		return
	}
	b.reply(chatID, header+"\n\n"+formatDraft(d, s.Editor.State().String()))
}
