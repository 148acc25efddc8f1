package telegram

import (
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"portfoliorisk/internal/viewer"
)

type Bot struct {
	api    *tgbotapi.BotAPI
	h      *Handlers
	logger *zap.Logger
}

// NewBot connects to Telegram and points its webhook at webhookURL.
// commentator may be nil.
func NewBot(token, webhookURL string, dash *viewer.Dashboard, commentator Commentator, logger *zap.Logger) (*Bot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	// set webhook
	webhook, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	if _, err := api.Request(webhook); err != nil {
		return nil, err
	}
	logger.Info("telegram: webhook set", zap.String("url", webhookURL), zap.String("bot", api.Self.UserName))

	h := NewHandlers(api, dash, commentator, logger)
	return &Bot{api: api, h: h, logger: logger}, nil
}

// Webhook HTTP handler (registered at /telegram/webhook)
func (b *Bot) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	webhookHandler(b.h, b.logger)(w, r)
}

func webhookHandler(h *Handlers, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, "bad update", 400)
			return
		}
		if update.Message == nil {
			logger.Debug("webhook: non-message update received", zap.Int("update_id", update.UpdateID))
			w.WriteHeader(http.StatusOK)
			return
		}
		logger.Info("webhook: message",
			zap.Int64("chat_id", update.Message.Chat.ID),
			zap.String("text", update.Message.Text))
		go h.HandleMessage(update.Message)
		w.WriteHeader(http.StatusOK)
	}
}
