package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/payboard/payboard-backend/pkg/config"
	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/logger"
)

var (
	errWebhookURLRequired = errors.New("discord webhook url is required")
	errLoggerRequired     = errors.New("discord logger is required")
)

// EmbedField is one name/value pair inside an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Embed is a Discord rich embed.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// Message is the webhook execution body.
type Message struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Webhook posts notification messages to a single Discord channel webhook.
// Delivery failures carry the webhook error code so callers treat them as
// non-fatal.
type Webhook struct {
	url        string
	httpClient *http.Client
	logg       *logger.Logger
}

// NewWebhook validates the configured webhook URL and returns a poster.
func NewWebhook(cfg config.DiscordConfig, logg *logger.Logger) (*Webhook, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	url := strings.TrimSpace(cfg.WebhookURL)
	if url == "" {
		return nil, errWebhookURLRequired
	}
	return &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logg:       logg,
	}, nil
}

// NewWebhookWithClient injects a custom HTTP client (tests).
func NewWebhookWithClient(url string, httpClient *http.Client, logg *logger.Logger) *Webhook {
	return &Webhook{url: url, httpClient: httpClient, logg: logg}
}

// Send executes the webhook. A non-2xx response is a webhook error, never a
// validation or internal one: the payment write that produced the event has
// already succeeded.
func (w *Webhook) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeWebhook, err, "encoding webhook message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeWebhook, err, "building webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeWebhook, err, "posting webhook message")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return pkgerrors.New(pkgerrors.CodeWebhook, fmt.Sprintf("webhook returned status %d", resp.StatusCode)).
			WithDetails(map[string]any{
				"http_status": resp.StatusCode,
				"body":        string(snippet),
			})
	}

	if w.logg != nil {
		w.logg.Info(ctx, "webhook message delivered")
	}
	return nil
}
