// Package notify provides best-effort webhook notifications. Send failures
// are logged and dropped; they never roll back a committed state transition.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/strictd/taskwarden/internal/config"
	"github.com/strictd/taskwarden/pkg/logger"
)

// Notifier is the notification capability consumed by the lifecycle services.
type Notifier interface {
	SendDirect(identity, text string) error
	PostChannel(text string) error
}

// Client sends notifications through an incoming webhook.
type Client struct {
	webhookURL string
	channel    string
	enabled    bool
	log        *logger.Logger
}

// NewClient creates a new webhook notification client.
func NewClient(cfg *config.NotifierConfig, log *logger.Logger) *Client {
	return &Client{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		enabled:    cfg.Enabled,
		log:        log,
	}
}

// Message represents a webhook message payload.
type Message struct {
	Channel string `json:"channel,omitempty"`
	Target  string `json:"target,omitempty"` // direct-message identity
	Text    string `json:"text,omitempty"`
}

// send posts a message payload to the webhook.
func (c *Client) send(msg *Message) error {
	if !c.enabled {
		c.log.Debug().Msg("Notifier is disabled, skipping message")
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", c.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// SendDirect sends a direct message to one identity.
func (c *Client) SendDirect(identity, text string) error {
	return c.send(&Message{Target: identity, Text: text})
}

// PostChannel posts to the configured channel.
func (c *Client) PostChannel(text string) error {
	return c.send(&Message{Channel: c.channel, Text: text})
}
