/*
Package client implements the transport manager used by messaging frontends.

This file contains the HTTP polling fallback: a periodic fetch of conversation
history and unread counts from the polling API, used when no socket transport
is available. Degraded but correct; every message a poll returns came from the
same store the realtime path writes.
*/
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"estatechat/internal/app/store"
)

// DefaultPollInterval is how often the degraded mode refreshes the conversation.
const DefaultPollInterval = 5 * time.Second

// Poller fetches messages over HTTP when the socket path is unavailable.
type Poller struct {
	// baseURL is the polling API root, e.g. "http://host:8081".
	baseURL string

	// token is the caller's session JWT, sent as a bearer token.
	token string

	// interval between polls.
	interval time.Duration

	httpClient *http.Client
}

// NewPoller constructs a Poller against baseURL authenticating with token.
func NewPoller(baseURL, token string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Poller{
		baseURL:    baseURL,
		token:      token,
		interval:   interval,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// envelope mirrors the polling API's JSON envelope.
type envelope struct {
	Success bool `json:"success"`
	Data    struct {
		Messages    []store.ChatMessage `json:"messages"`
		UnreadCount int64               `json:"unread_count"`
	} `json:"data"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchMessages returns the conversation with partnerID. The server marks the
// conversation read as a side effect.
func (p *Poller) FetchMessages(ctx context.Context, partnerID int64) ([]store.ChatMessage, error) {
	url := fmt.Sprintf("%s/messages?action=get_messages&partner_id=%d", p.baseURL, partnerID)

	env, err := p.get(ctx, url)
	if err != nil {
		return nil, err
	}

	return env.Data.Messages, nil
}

// UnreadCount returns the caller's unread message count.
func (p *Poller) UnreadCount(ctx context.Context) (int64, error) {
	url := fmt.Sprintf("%s/messages?action=unread_count", p.baseURL)

	env, err := p.get(ctx, url)
	if err != nil {
		return 0, err
	}

	return env.Data.UnreadCount, nil
}

// Run polls the conversation with partnerID on the configured interval,
// handing each successful result to onMessages, until ctx is cancelled.
// Failed polls are skipped; the next tick retries.
func (p *Poller) Run(ctx context.Context, partnerID int64, onMessages func([]store.ChatMessage)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			messages, err := p.FetchMessages(ctx, partnerID)
			if err != nil {
				continue
			}
			onMessages(messages)
		}
	}
}

// get performs an authenticated GET and decodes the response envelope.
func (p *Poller) get(ctx context.Context, url string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.token)

	res, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read poll response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode poll response: %w", err)
	}

	if !env.Success {
		if env.Error != nil {
			return nil, fmt.Errorf("poll rejected: %s (code %d)", env.Error.Message, env.Error.Code)
		}
		return nil, fmt.Errorf("poll rejected with status %d", res.StatusCode)
	}

	return &env, nil
}
