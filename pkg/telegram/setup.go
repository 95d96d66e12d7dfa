package telegram

import (
	"context"
	"encoding/json"
	"fmt"
)

// User is the bot identity returned by getMe
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// Me verifies the token by fetching the bot's own identity
func (c *Client) Me(ctx context.Context) (User, error) {
	raw, err := c.call(ctx, "getMe", struct{}{})
	if err != nil {
		return User{}, err
	}

	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return User{}, fmt.Errorf("failed to decode getMe result: %w", err)
	}

	return u, nil
}

type setWebhookRequest struct {
	URL         string `json:"url"`
	SecretToken string `json:"secret_token,omitempty"`
}

// SetWebhook registers the public webhook URL with Telegram. When secret is
// set, Telegram echoes it back on every delivery in the
// X-Telegram-Bot-Api-Secret-Token header.
func (c *Client) SetWebhook(ctx context.Context, webhookURL, secret string) error {
	if webhookURL == "" {
		return fmt.Errorf("webhook url is required")
	}

	_, err := c.call(ctx, "setWebhook", setWebhookRequest{URL: webhookURL, SecretToken: secret})
	return err
}
