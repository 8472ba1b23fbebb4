package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"baby-meal-planner/internal/app"
	"baby-meal-planner/internal/config"
	"baby-meal-planner/internal/metrics"
	"baby-meal-planner/internal/wizard"
)

// Bot wraps the Telegram API around the planner application.
type Bot struct {
	api *tgbotapi.BotAPI
	app *app.App
	cfg *config.Config

	mu       sync.Mutex
	sessions map[int64]*wizard.Session
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, a *app.App) (*Bot, error) {
	if err := cfg.RequireTelegram(); err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Printf("Authorized on account %s", api.Self.UserName)

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook config: %w", err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return newBot(api, cfg, a), nil
}

func newBot(api *tgbotapi.BotAPI, cfg *config.Config, a *app.App) *Bot {
	return &Bot{api: api, app: a, cfg: cfg, sessions: make(map[int64]*wizard.Session)}
}

// WebhookHandler returns the handler Telegram posts updates to.
func (b *Bot) WebhookHandler() http.Handler {
	return http.HandlerFunc(b.handleWebhook)
}

func (b *Bot) allowed(userID int64) bool {
	return slices.Contains(b.cfg.TelegramAllowedUserIDs, userID)
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if q := update.CallbackQuery; q != nil {
		if !b.allowed(q.From.ID) {
			log.Printf("⚠️ Unauthorized callback from UserID: %d (@%s)", q.From.ID, q.From.UserName)
			return
		}
		go b.handleCallbackQuery(q)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.allowed(msg.From.ID) {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", msg.From.ID, msg.From.UserName)
		return
	}

	go b.processMessage(msg)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !msg.IsCommand() {
		b.sendMarkdown(chatID, helpText)
		return
	}

	args := strings.Fields(msg.CommandArguments())
	switch msg.Command() {
	case "start", "help":
		b.sendMarkdown(chatID, helpText)
	case "today":
		b.sendMarkdown(chatID, formatToday(b.app))
	case "plan":
		b.sendMarkdown(chatID, formatPlan(b.app))
	case "shopping":
		text, keyboard := shoppingView(b.app)
		b.sendWithKeyboard(chatID, text, keyboard)
	case "pantry":
		b.sendMarkdown(chatID, formatPantry(b.app))
	case "have":
		b.sendMarkdown(chatID, b.updatePantry(args, true))
	case "need":
		b.sendMarkdown(chatID, b.updatePantry(args, false))
	case "recipes":
		filter := ""
		if len(args) > 0 {
			filter = args[0]
		}
		text, err := formatRecipes(b.app, filter)
		if err != nil {
			text = "❌ " + escape(err.Error())
		}
		b.sendMarkdown(chatID, text)
	case "wizard":
		s := b.app.NewWizard()
		b.mu.Lock()
		if prev := b.sessions[chatID]; prev != nil {
			prev.Close()
		}
		b.sessions[chatID] = s
		b.mu.Unlock()
		text, keyboard := wizardView(b.app, s)
		b.sendWithKeyboard(chatID, text, keyboard)
	case "cancel":
		b.mu.Lock()
		if s := b.sessions[chatID]; s != nil {
			s.Close()
			delete(b.sessions, chatID)
		}
		b.mu.Unlock()
		b.sendMarkdown(chatID, "🗑 Planning cancelled.")
	case "status":
		b.sendMarkdown(chatID, formatStatus(b.app))
	case "metrics":
		if msg.From.ID != b.cfg.AdminTelegramID {
			b.sendMarkdown(chatID, "⛔ *Access Denied*: Admin only.")
			return
		}
		b.handleMetricsCommand(chatID)
	default:
		b.sendMarkdown(chatID, "🤔 Unknown command.\n\n"+helpText)
	}
}

func (b *Bot) updatePantry(tokens []string, add bool) string {
	if len(tokens) == 0 {
		return "Tell me which ingredients, e.g. `/have carrot 白米`."
	}
	ids, unknown := resolveIngredients(b.app.Catalog, tokens)
	if add {
		b.app.Pantry.Add(ids...)
	} else {
		b.app.Pantry.Remove(ids...)
	}

	var sb strings.Builder
	if len(ids) > 0 {
		verb := "Added to"
		if !add {
			verb = "Removed from"
		}
		names := make([]string, len(ids))
		for i, id := range ids {
			names[i] = b.app.Catalog.IngredientName(id)
		}
		fmt.Fprintf(&sb, "✅ %s pantry: %s\n", verb, escape(strings.Join(names, ", ")))
	}
	if len(unknown) > 0 {
		fmt.Fprintf(&sb, "❓ Unknown: %s\n", escape(strings.Join(unknown, ", ")))
	}
	return sb.String()
}

func (b *Bot) handleCallbackQuery(q *tgbotapi.CallbackQuery) {
	if q.Message == nil {
		return
	}
	chatID := q.Message.Chat.ID
	messageID := q.Message.MessageID
	action, args := parseCallback(q.Data)

	var (
		text     string
		keyboard *tgbotapi.InlineKeyboardMarkup
		notice   string
	)

	switch action {
	case actionShoppingToggle, actionShoppingRestock:
		if action == actionShoppingToggle && len(args) == 1 {
			b.app.Shopping.TogglePurchased(args[0])
		} else if action == actionShoppingRestock {
			var added []string
			if len(args) == 1 && args[0] == "week" {
				added = b.app.Shopping.AddThisWeekPurchasedToPantry()
			} else {
				added = b.app.Shopping.AddAllPurchasedToPantry()
			}
			notice = fmt.Sprintf("Moved %d items to the pantry", len(added))
		}
		t, kb := shoppingView(b.app)
		text, keyboard = t, kb

	default:
		b.mu.Lock()
		s := b.sessions[chatID]
		b.mu.Unlock()
		if s == nil {
			b.answer(q.ID, "This planner has expired. Send /wizard to start again.")
			return
		}

		result, err := applyWizardAction(s, action, args)
		if err != nil {
			b.answer(q.ID, wizardErrorText(err))
			return
		}
		if result != nil {
			b.mu.Lock()
			delete(b.sessions, chatID)
			b.mu.Unlock()
			text = formatFinish(b.app, result)
		} else if s.Closed() {
			b.mu.Lock()
			delete(b.sessions, chatID)
			b.mu.Unlock()
			text = "🗑 Planning cancelled."
		} else {
			t, kb := wizardView(b.app, s)
			text, keyboard = t, kb
		}
	}

	b.answer(q.ID, notice)

	var edit tgbotapi.EditMessageTextConfig
	if keyboard != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *keyboard)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Failed to update message: %v", err)
	}
}

func (b *Bot) answer(queryID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(queryID, text)); err != nil {
		log.Printf("Failed to answer callback: %v", err)
	}
}

func (b *Bot) handleMetricsCommand(chatID int64) {
	if b.app.Metrics == nil {
		b.sendMarkdown(chatID, "ℹ️ Metrics need the sqlite storage backend.")
		return
	}
	usage, err := b.app.Metrics.GetDailyUsage(7)
	if err != nil {
		log.Printf("Error fetching metrics: %v", err)
		b.sendMarkdown(chatID, "❌ Error fetching metrics.")
		return
	}
	latency, err := b.app.Metrics.GetLatencySummary(7)
	if err != nil {
		log.Printf("Error fetching latency summary: %v", err)
	}
	health := metrics.GetSysHealth(b.cfg.DataDir)
	b.sendMarkdown(chatID, formatMetrics(usage, latency, health))
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

// SendDailyDigest sends today's meals to the admin. It is meant to be run
// from a ticker in the bot process. Nothing is sent once ctx is done.
func (b *Bot) SendDailyDigest(ctx context.Context) error {
	if b.cfg.AdminTelegramID == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("daily digest skipped: %w", err)
	}
	b.sendMarkdown(b.cfg.AdminTelegramID, formatToday(b.app))
	return nil
}

// RunDailyDigest calls SendDailyDigest every day at hour:00 local time until
// ctx is cancelled.
func (b *Bot) RunDailyDigest(ctx context.Context, hour int) {
	for {
		now := b.app.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := b.SendDailyDigest(ctx); err != nil {
				log.Printf("Warning: %v", err)
			}
		}
	}
}
