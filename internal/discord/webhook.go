package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"l2-tipbot/internal/bot"
)

// DefaultAPIBase is the Discord REST API root.
const DefaultAPIBase = "https://discord.com/api/v10"

// DefaultWebhookTimeout bounds one edit request.
const DefaultWebhookTimeout = 10 * time.Second

// WebhookError is a non-2xx answer from the webhook API.
type WebhookError struct {
	Status int
	Body   string
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("webhook edit failed: HTTP %d: %s", e.Status, e.Body)
}

// WebhookClient edits deferred interaction responses.
type WebhookClient struct {
	baseURL       string
	applicationID string
	client        *http.Client
}

// WebhookOption configures WebhookClient.
type WebhookOption func(*WebhookClient)

// WithWebhookHTTPClient sets a custom http.Client.
func WithWebhookHTTPClient(client *http.Client) WebhookOption {
	return func(c *WebhookClient) {
		c.client = client
	}
}

// NewWebhookClient creates a client for the given application.
// An empty baseURL selects DefaultAPIBase.
func NewWebhookClient(baseURL, applicationID string, opts ...WebhookOption) *WebhookClient {
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}
	c := &WebhookClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		applicationID: applicationID,
		client:        &http.Client{Timeout: DefaultWebhookTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type embedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
}

// messageEdit replaces both content and embeds of the original response.
type messageEdit struct {
	Content string  `json:"content"`
	Embeds  []embed `json:"embeds"`
}

func toEdit(msg bot.Message) messageEdit {
	edit := messageEdit{Content: msg.Content, Embeds: []embed{}}
	if !msg.IsEmbed() {
		return edit
	}
	e := embed{Title: msg.Title, Description: msg.Description, Color: msg.Color}
	for _, f := range msg.Fields {
		e.Fields = append(e.Fields, embedField{Name: f.Name, Value: f.Value})
	}
	edit.Embeds = append(edit.Embeds, e)
	return edit
}

// EditOriginal replaces the deferred response of the interaction with msg.
func (c *WebhookClient) EditOriginal(ctx context.Context, interactionToken string, msg bot.Message) error {
	body, err := json.Marshal(toEdit(msg))
	if err != nil {
		return fmt.Errorf("marshal edit: %w", err)
	}

	endpoint := fmt.Sprintf("%s/webhooks/%s/%s/messages/@original",
		c.baseURL, url.PathEscape(c.applicationID), url.PathEscape(interactionToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &WebhookError{Status: resp.StatusCode, Body: string(snippet)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
