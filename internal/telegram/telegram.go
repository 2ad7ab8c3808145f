package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAPIBaseURL = "https://api.telegram.org"
	DefaultTimeout    = 10 * time.Second
)

// APIError is returned when the Bot API rejects a request
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("telegram API error (status %d): %s", e.StatusCode, e.Description)
}

// Client represents a Telegram Bot API client
type Client struct {
	botToken   string
	chatID     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at a different Bot API host
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, opts ...Option) (*Client, error) {
	if botToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if chatID == "" {
		return nil, fmt.Errorf("chat ID is required")
	}

	c := &Client{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  DefaultAPIBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ChatID returns the chat messages are sent to
func (c *Client) ChatID() string {
	return c.chatID
}

// sendMessageURL builds the GET request URL for text. The token is part of
// the path, so the result must not be logged.
func (c *Client) sendMessageURL(text string) string {
	q := url.Values{}
	q.Set("parse_mode", "markdown")
	q.Set("disable_web_page_preview", "true")
	q.Set("chat_id", c.chatID)
	q.Set("text", text)

	return fmt.Sprintf("%s/bot%s/sendMessage?%s", c.baseURL, c.botToken, q.Encode())
}

// SendMessage sends a markdown text message to the configured chat
func (c *Client) SendMessage(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("message text is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sendMessageURL(text), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", redactToken(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	parseErr := json.Unmarshal(body, &result)

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Description: result.Description}
		if parseErr != nil {
			apiErr.Description = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	if parseErr != nil {
		return fmt.Errorf("parsing response: %w", parseErr)
	}

	if !result.OK {
		return &APIError{StatusCode: resp.StatusCode, Description: result.Description}
	}

	return nil
}

// redactToken drops the request URL, which embeds the bot token, from transport errors
func redactToken(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
