// Package telegram implements the messaging gateway client used for every
// outbound notification (patient reminders, guardian fan-out, verification
// codes, registration confirmations).
//
// The gateway offers no delivery receipts beyond the immediate HTTP
// acknowledgment; Send reports only that acknowledgment. Callers decide
// whether a failure degrades or aborts their flow.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pillwise/go-reminder-backend/internal/config"
)

// Client talks to the Telegram Bot API over HTTP with a bounded timeout.
type Client struct {
	botToken string
	baseURL  string
	http     *http.Client
}

// New constructs a Client from configuration. The HTTP client timeout bounds
// every send; a timed-out send is a failure, never retried here.
func New(cfg config.TelegramConfig) *Client {
	return &Client{
		botToken: cfg.BotToken,
		baseURL:  cfg.BaseURL,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

// sendMessageRequest is the Bot API sendMessage payload.
type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// sendMessageResponse is the subset of the Bot API envelope we inspect.
type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Send posts one HTML-formatted message to chatID. It returns an error when
// the bot token is unset, the transport fails, or the gateway acknowledges
// with ok=false.
func (c *Client) Send(ctx context.Context, chatID, text string) error {
	if c.botToken == "" {
		return fmt.Errorf("telegram: bot token not configured")
	}
	if chatID == "" {
		return fmt.Errorf("telegram: empty chat id")
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	var out sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("telegram: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !out.OK {
		return fmt.Errorf("telegram: gateway rejected send (status %d): %s", resp.StatusCode, out.Description)
	}
	return nil
}
