// Package telegram serves the analytics dashboard as Telegram bot commands.
package telegram

import (
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"quantDashboard/internal/finance"
	"quantDashboard/internal/openai"
)

type Bot struct {
	api *tgbotapi.BotAPI
	h   *Handlers
	log zerolog.Logger
}

// NewBot connects to the Bot API and points its webhook at webhookURL.
func NewBot(token, webhookURL, openAIKey string, dash *finance.Dashboard, store Store, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	webhook, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	if _, err := api.Request(webhook); err != nil {
		return nil, err
	}
	log.Info().Str("url", webhookURL).Str("bot", api.Self.UserName).Msg("telegram webhook set")

	var insight Commentator
	if c := openai.NewCommentator(openAIKey); c != nil {
		insight = c
	} else {
		log.Info().Msg("no OpenAI key, /insight disabled")
	}
	return &Bot{api: api, h: NewHandlers(api, dash, store, insight, log), log: log}, nil
}

// WebhookHandler is registered at /telegram/webhook.
func (b *Bot) WebhookHandler() http.Handler { return b.h }
