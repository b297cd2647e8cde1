// Package viewproto runs the three-step view exchange for one target
// through one proxy: fetch a cookie, fetch the view key from the embed
// page, then register the view. Every step failure collapses the whole
// attempt; retries are a new attempt with a different proxy, decided by
// the dispatcher.
package viewproto

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/model"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/proxyhttp"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"

const viewKeyMarker = `data-view="`

// Sender executes view attempts. One Sender is shared by all dispatch
// workers; each attempt builds its own per-proxy client so that all
// three calls ride the same transport.
type Sender struct {
	baseURL string
	timeout time.Duration

	// clientFor is swappable in tests.
	clientFor func(model.Proxy, time.Duration) (*http.Client, error)
}

func New(baseURL string, timeout time.Duration) *Sender {
	if baseURL == "" {
		baseURL = "https://t.me"
	}
	return &Sender{
		baseURL:   strings.TrimRight(baseURL, "/"),
		timeout:   timeout,
		clientFor: proxyhttp.NewClient,
	}
}

// Execute runs one full attempt and reports the elapsed milliseconds on
// success. Any error means the attempt counts as a failed view.
func (s *Sender) Execute(ctx context.Context, p model.Proxy, target string) (int64, error) {
	start := time.Now()

	client, err := s.clientFor(p, s.timeout)
	if err != nil {
		return 0, fmt.Errorf("building proxy client: %w", err)
	}
	defer client.CloseIdleConnections()

	cookie, err := s.fetchCookie(ctx, client, target)
	if err != nil {
		return 0, fmt.Errorf("fetch cookie: %w", err)
	}
	key, err := s.fetchKey(ctx, client, target, cookie)
	if err != nil {
		return 0, fmt.Errorf("fetch view key: %w", err)
	}
	if err := s.register(ctx, client, target, cookie, key); err != nil {
		return 0, fmt.Errorf("register view: %w", err)
	}
	return time.Since(start).Milliseconds(), nil
}

// fetchCookie GETs the target and keeps the first Set-Cookie fragment.
func (s *Sender) fetchCookie(ctx context.Context, client *http.Client, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	raw := resp.Header.Get("Set-Cookie")
	cookie := strings.TrimSpace(strings.SplitN(raw, ";", 2)[0])
	if cookie == "" {
		return "", fmt.Errorf("no Set-Cookie header on %s", target)
	}
	return cookie, nil
}

// fetchKey POSTs the embed variant and scans for the data-view marker.
func (s *Sender) fetchKey(ctx context.Context, client *http.Client, target, cookie string) (string, error) {
	embedURL := target + "?embed=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, embedURL, strings.NewReader(`{"_rl":"1"}`))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cookie", cookie)
	req.Header.Set("Origin", s.baseURL)
	req.Header.Set("Referer", embedURL)
	req.Header.Set("User-Agent", browserUA)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	text := string(body)
	idx := strings.Index(text, viewKeyMarker)
	if idx < 0 {
		return "", fmt.Errorf("no view key marker in embed response")
	}
	rest := text[idx+len(viewKeyMarker):]
	end := strings.Index(rest, `"`)
	if end <= 0 {
		return "", fmt.Errorf("empty view key in embed response")
	}
	return rest[:end], nil
}

// register fires the record-view endpoint. Transport-level success is
// a success regardless of the HTTP status code.
func (s *Sender) register(ctx context.Context, client *http.Client, target, cookie, key string) error {
	viewURL := fmt.Sprintf("%s/v/?views=%s", s.baseURL, url.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, viewURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Cookie", cookie)
	req.Header.Set("Referer", target+"?embed=1")
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}
