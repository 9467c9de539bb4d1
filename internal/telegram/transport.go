// Package telegram is the chat transport: sending and editing messages,
// typing indicators, and decoding webhook payloads into pipeline updates.
package telegram

import (
	"encoding/json"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/naborsk/adjutant/internal/pipeline"
)

// Client wraps the Telegram Bot API.
type Client struct {
	bot *tgbotapi.BotAPI
}

func New(token string) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	return &Client{bot: bot}, nil
}

// Send posts a message and returns its ID so it can be edited later.
func (c *Client) Send(chatID int64, text string) (int, error) {
	sent, err := c.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, fmt.Errorf("sending message: %w", err)
	}
	return sent.MessageID, nil
}

// Edit replaces the text of an earlier message. Edit failures are logged
// and swallowed; the reply text was already committed to the log.
func (c *Client) Edit(chatID int64, messageID int, text string) {
	if _, err := c.bot.Send(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		slog.Error("failed to edit message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

// Typing shows the typing indicator. Best effort.
func (c *Client) Typing(chatID int64) {
	if _, err := c.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		slog.Warn("failed to send typing action", "error", err)
	}
}

// SetWebhook points Telegram at the given public URL.
func (c *Client) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("building webhook config: %w", err)
	}
	if _, err := c.bot.Request(wh); err != nil {
		return fmt.Errorf("setting webhook: %w", err)
	}
	return nil
}

// ParseUpdate decodes a webhook body into a pipeline update. ok is false
// for payloads without a text message.
func ParseUpdate(body []byte) (pipeline.Update, bool) {
	var upd tgbotapi.Update
	if err := json.Unmarshal(body, &upd); err != nil {
		slog.Warn("undecodable webhook payload", "error", err)
		return pipeline.Update{}, false
	}
	msg := upd.Message
	if msg == nil || msg.Text == "" || msg.From == nil {
		return pipeline.Update{}, false
	}
	return pipeline.Update{
		UpdateID: int64(upd.UpdateID),
		ChatID:   msg.Chat.ID,
		UserID:   msg.From.ID,
		Text:     msg.Text,
	}, true
}
