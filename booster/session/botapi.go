package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is the per-session API surface the rotation layer drives.
// Production sessions talk to the Telegram Bot API; tests substitute
// fakes.
type Client interface {
	Ping(ctx context.Context) error
	SetReaction(ctx context.Context, channel string, messageID int, emoji string) error
	SetProxy(proxyURL string)
	Close()
}

// Factory builds the client for one bot token.
type Factory func(token string) Client

type apiEnvelope struct {
	OK          bool            `json:"ok"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *apiParameters  `json:"parameters"`
	Result      json.RawMessage `json:"result"`
}

type apiParameters struct {
	RetryAfter int `json:"retry_after"`
}

// BotClient is the Bot API implementation of Client.
type BotClient struct {
	http *resty.Client
}

// NewBotClient binds one bot token to an API base such as
// https://api.telegram.org.
func NewBotClient(token, apiBase string, timeout time.Duration) *BotClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(apiBase, "/") + "/bot" + token).
		SetTimeout(timeout)
	return &BotClient{http: client}
}

// Ping verifies the token is live via getMe.
func (c *BotClient) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/getMe")
	if err != nil {
		return fmt.Errorf("getMe request failed: %w", err)
	}
	return decodeEnvelope(resp)
}

// SetReaction puts one emoji reaction on a channel post. The channel is
// the public username without the @ prefix.
func (c *BotClient) SetReaction(ctx context.Context, channel string, messageID int, emoji string) error {
	reaction, err := json.Marshal([]map[string]string{{"type": "emoji", "emoji": emoji}})
	if err != nil {
		return fmt.Errorf("failed to encode reaction: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id":    "@" + channel,
			"message_id": strconv.Itoa(messageID),
			"reaction":   string(reaction),
		}).
		Post("/setMessageReaction")
	if err != nil {
		return fmt.Errorf("setMessageReaction request failed: %w", err)
	}
	return decodeEnvelope(resp)
}

// SetProxy routes all subsequent API calls through proxyURL.
func (c *BotClient) SetProxy(proxyURL string) {
	c.http.SetProxy(proxyURL)
}

func (c *BotClient) Close() {
	c.http.GetClient().CloseIdleConnections()
}

// decodeEnvelope maps the Bot API response envelope onto Go errors.
// Rate limiting surfaces as FloodWaitError so callers can park the
// session for exactly as long as the server asked.
func decodeEnvelope(resp *resty.Response) error {
	var env apiEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("unexpected API response (status %d): %w", resp.StatusCode(), err)
	}
	if env.OK {
		return nil
	}
	if resp.StatusCode() == http.StatusTooManyRequests || (env.Parameters != nil && env.Parameters.RetryAfter > 0) {
		retry := 1
		if env.Parameters != nil && env.Parameters.RetryAfter > 0 {
			retry = env.Parameters.RetryAfter
		}
		return &FloodWaitError{RetryAfter: time.Duration(retry) * time.Second}
	}
	return fmt.Errorf("API error %d: %s", env.ErrorCode, env.Description)
}
