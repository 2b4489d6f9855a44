// Package telegram implements the outbound Bot API transport used to
// deliver notifications.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropwatch/dropwatch/internal/notify"
	"github.com/dropwatch/dropwatch/internal/ratelimit"
)

const (
	defaultBaseURL = "https://api.telegram.org"

	// Telegram allows roughly one message per second per chat; keep a
	// small burst for lifecycle notices arriving back to back.
	defaultRPS   = 1.0
	defaultBurst = 3

	defaultTimeout = 30 * time.Second

	parseModeMarkdownV2 = "MarkdownV2"
)

// Config holds the transport settings for one bot.
type Config struct {
	// Token is the bot token issued by BotFather.
	Token string

	// ChatID is the destination chat.
	ChatID string

	// BaseURL overrides the Bot API host, mainly for tests.
	BaseURL string
}

// Client is a rate-limited Telegram Bot API client.
//
// Failures are classified into the notify taxonomy: endpoint throttles
// become *notify.Throttled, network and server-side failures become
// *notify.Transient, and everything else is a non-retryable *APIError.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	chatID  string
	limiter *ratelimit.KeyedLimiter
	logger  *slog.Logger
}

// New creates a Telegram client.
func New(cfg Config, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   cfg.Token,
		chatID:  cfg.ChatID,
		limiter: ratelimit.New(defaultRPS, defaultBurst),
		logger:  logger,
	}
}

// apiResponse is the envelope every Bot API call returns.
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// SendMessage delivers one message to the configured chat. It satisfies
// notify.Sender.
func (c *Client) SendMessage(ctx context.Context, text string, markdown bool) error {
	// Per-chat pacing before the request even leaves the process.
	if err := c.limiter.Wait(ctx, c.chatID); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	form := url.Values{}
	form.Set("chat_id", c.chatID)
	form.Set("text", text)
	if markdown {
		form.Set("parse_mode", parseModeMarkdownV2)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Debug("telegram send", "chat_id", c.chatID, "markdown", markdown, "length", len(text))

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts and unreachable networks are worth retrying.
		return &notify.Transient{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &notify.Transient{Err: fmt.Errorf("read response: %w", err)}
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 500 {
			return &notify.Transient{Err: fmt.Errorf("server error %d", resp.StatusCode)}
		}
		return fmt.Errorf("telegram: malformed response (status %d): %w", resp.StatusCode, err)
	}

	if parsed.OK {
		return nil
	}

	switch {
	case parsed.Parameters.RetryAfter > 0:
		return &notify.Throttled{RetryAfter: time.Duration(parsed.Parameters.RetryAfter) * time.Second}
	case resp.StatusCode == http.StatusTooManyRequests:
		// 429 without an explicit retry_after still means back off.
		return &notify.Throttled{RetryAfter: time.Second}
	case resp.StatusCode >= 500:
		return &notify.Transient{Err: fmt.Errorf("server error %d: %s", resp.StatusCode, parsed.Description)}
	default:
		return &APIError{Code: parsed.ErrorCode, Description: parsed.Description}
	}
}
