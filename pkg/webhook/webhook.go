// Package webhook provides the HTTP notifier that announces new spawn entries.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mvpwatch/mvpwatch/pkg/mvp"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// Payload formats.
const (
	FormatJSON    = "json"
	FormatDiscord = "discord"
)

// ErrStatus is wrapped by errors for non-2xx responses.
var ErrStatus = errors.New("webhook returned error status")

// Client sends spawn entries to webhook endpoints.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new webhook client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
	}
}

// SendOptions configures a webhook request.
type SendOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Format  string        // FormatJSON (default) or FormatDiscord
	Mention string        // Discord message content, e.g. a role mention
	Timeout time.Duration // Request timeout (uses DefaultTimeout if zero)
}

// Response contains the result of a webhook request.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Success returns true if the webhook was sent successfully (2xx status).
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Send posts a spawn entry to a webhook endpoint.
func (c *Client) Send(ctx context.Context, entry mvp.Entry, opts SendOptions) *Response {
	start := time.Now()
	resp := &Response{}

	payload, err := BuildPayload(entry, opts.Format, opts.Mention)
	if err != nil {
		resp.Error = err
		resp.Duration = time.Since(start)
		return resp
	}

	// Apply timeout
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(payload))
	if err != nil {
		resp.Error = fmt.Errorf("failed to create request: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "mvpwatch-webhook")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		resp.Error = fmt.Errorf("request failed: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1024*1024)) // Limit to 1MB
	if err != nil {
		resp.Error = fmt.Errorf("failed to read response: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	resp.StatusCode = httpResp.StatusCode
	resp.Body = string(body)
	resp.Duration = time.Since(start)

	if resp.StatusCode >= 300 {
		resp.Error = fmt.Errorf("%w %d", ErrStatus, resp.StatusCode)
	}

	return resp
}

// BuildPayload renders an entry in the requested format.
func BuildPayload(entry mvp.Entry, format, mention string) ([]byte, error) {
	var v any
	switch format {
	case "", FormatJSON:
		v = entry
	case FormatDiscord:
		v = discordMessage(entry, mention)
	default:
		return nil, fmt.Errorf("unknown payload format %q", format)
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return payload, nil
}

type discordPayload struct {
	Content         string          `json:"content,omitempty"`
	Embeds          []discordEmbed  `json:"embeds"`
	AllowedMentions allowedMentions `json:"allowed_mentions"`
}

type discordEmbed struct {
	Title  string         `json:"title"`
	Fields []discordField `json:"fields"`
}

type discordField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type allowedMentions struct {
	Parse []string `json:"parse"`
}

func discordMessage(e mvp.Entry, mention string) discordPayload {
	return discordPayload{
		Content: mention,
		Embeds: []discordEmbed{{
			Title: "MVP spotted",
			Fields: []discordField{
				{Name: "Server time posted:", Value: e.Posted.String()},
				{Name: "MVP Time:", Value: e.SpawnText()},
				{Name: "Location:", Value: e.Location},
				{Name: "Channel:", Value: e.Channel},
				{Name: "Interpreted message:", Value: e.Message},
			},
		}},
		AllowedMentions: allowedMentions{Parse: []string{"roles"}},
	}
}
