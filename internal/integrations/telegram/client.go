// Package telegram is the outbound delivery layer. Sends are best-effort:
// retryable failures are retried with capped exponential backoff honoring
// server wait hints, permanent failures return immediately, and exhausting
// the retry ceiling yields an absent result rather than an error.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"babygpt/internal/domain"
)

const (
	baseRetryDelay = 250 * time.Millisecond
	maxRetryDelay  = 4 * time.Second
	maxRetries     = 50 // hard ceiling; 51 total attempts
)

// tokenPayload is the expected JSON shape stored in SSM for the bot token.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures a non-retryable Bot API response.
type HTTPStatusError struct {
	StatusCode  int
	Method      string
	Description string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("telegram: %s failed with status %d: %s", e.Method, e.StatusCode, e.Description)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// outcome classifies one delivery attempt.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRetryable
	outcomePermanent
)

// Client talks to the Bot API. The bot token is fetched from SSM on first
// use and cached for the process lifetime.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	getter      Getter
	paramPrefix string
	sleep       func(time.Duration)

	tokenOnce sync.Once
	token     string
	tokenErr  error
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithSleep replaces the inter-attempt sleep, for tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// NewClient creates a Client backed by the given paramstore.Getter for bot
// token retrieval.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("telegram: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("telegram: parameter prefix must not be empty")
	}
	c := &Client{
		baseURL:     "https://api.telegram.org",
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		getter:      ps,
		paramPrefix: paramPrefix,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) tokenParameterName() string {
	return c.paramPrefix + "/telegram-token"
}

func (c *Client) resolveToken(ctx context.Context) (string, error) {
	c.tokenOnce.Do(func() {
		raw, err := c.getter.GetParameter(ctx, c.tokenParameterName())
		if err != nil {
			c.tokenErr = fmt.Errorf("telegram: fetch bot token: %w", err)
			return
		}
		var tp tokenPayload
		if err := json.Unmarshal([]byte(raw), &tp); err != nil {
			c.tokenErr = fmt.Errorf("telegram: unmarshal bot token value as JSON: %w", err)
			return
		}
		if tp.Token == "" {
			c.tokenErr = errors.New("telegram: bot token is empty")
			return
		}
		c.token = tp.Token
	})
	return c.token, c.tokenErr
}

func (c *Client) methodURL(token, method string) string {
	return c.baseURL + "/bot" + token + "/" + method
}

// retryDelay is the backoff schedule as a pure function of the attempt
// number and an optional server wait hint. The hint, when present,
// overrides the computed delay for that attempt.
func retryDelay(attempt int, hint time.Duration) time.Duration {
	if hint > 0 {
		return hint
	}
	if attempt >= 4 { // 250ms·2^4 hits the 4s ceiling
		return maxRetryDelay
	}
	return baseRetryDelay << uint(attempt)
}

// SendMessage delivers one outbound message. It returns the acknowledged
// message on success, an error on permanent failure, and (nil, nil) when
// the retry ceiling is exhausted: callers treat delivery as best-effort and
// must not halt the conversation pipeline on an absent result.
func (c *Client) SendMessage(ctx context.Context, req domain.SendRequest) (*Message, error) {
	token, err := c.resolveToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:      req.ChatID,
		Text:        req.Text,
		ParseMode:   "Markdown",
		ReplyMarkup: req.Keyboard,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: marshal sendMessage: %w", err)
	}

	url := c.methodURL(token, "sendMessage")
	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, out, hint, attemptErr := c.attempt(ctx, "sendMessage", url, body)
		switch out {
		case outcomeSuccess:
			var msg Message
			if decErr := json.Unmarshal(result, &msg); decErr != nil {
				return nil, fmt.Errorf("telegram: decode sendMessage result: %w", decErr)
			}
			return &msg, nil
		case outcomePermanent:
			return nil, attemptErr
		}
		if attempt == maxRetries {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.sleep(retryDelay(attempt, hint))
	}
	// Ceiling exhausted: absent result, not an error.
	return nil, nil
}

// AnswerCallback acknowledges a callback query so the client stops showing
// its pending indicator. Single attempt; the ack is cosmetic.
func (c *Client) AnswerCallback(ctx context.Context, callbackQueryID string) error {
	token, err := c.resolveToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(answerCallbackRequest{CallbackQueryID: callbackQueryID})
	if err != nil {
		return fmt.Errorf("telegram: marshal answerCallbackQuery: %w", err)
	}

	url := c.methodURL(token, "answerCallbackQuery")
	_, out, _, attemptErr := c.attempt(ctx, "answerCallbackQuery", url, body)
	if out != outcomeSuccess {
		if attemptErr != nil {
			return attemptErr
		}
		return errors.New("telegram: answerCallbackQuery failed")
	}
	return nil
}

// attempt performs one HTTP exchange and classifies the result. 429 and 5xx
// statuses and transport errors are retryable; any other non-success status
// is permanent. The returned hint is the server wait hint, if any.
func (c *Client) attempt(ctx context.Context, method, url string, body []byte) (json.RawMessage, outcome, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, outcomePermanent, 0, fmt.Errorf("telegram: create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		// Transport-level failure: retryable, no hint.
		return nil, outcomeRetryable, 0, err
	}
	defer func() { _ = res.Body.Close() }()

	raw, readErr := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if readErr != nil {
		return nil, outcomeRetryable, 0, readErr
	}

	var envelope apiResponse
	_ = json.Unmarshal(raw, &envelope) // best effort; error bodies may not parse

	if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500 {
		return nil, outcomeRetryable, waitHint(res, &envelope), nil
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 || !envelope.OK {
		return nil, outcomePermanent, 0, &HTTPStatusError{
			StatusCode:  res.StatusCode,
			Method:      method,
			Description: envelope.Description,
		}
	}
	return envelope.Result, outcomeSuccess, 0, nil
}

// waitHint extracts a server-supplied wait hint from the Retry-After header
// or the embedded retry_after parameter.
func waitHint(res *http.Response, envelope *apiResponse) time.Duration {
	if header := res.Header.Get("Retry-After"); header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if envelope != nil && envelope.Parameters != nil && envelope.Parameters.RetryAfter > 0 {
		return time.Duration(envelope.Parameters.RetryAfter) * time.Second
	}
	return 0
}
