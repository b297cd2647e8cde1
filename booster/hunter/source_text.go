package hunter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/model"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/parser"
)

// TextSource covers raw lists and API endpoints that answer with
// newline-delimited proxy lines.
type TextSource struct {
	name      string
	url       string
	kind      string
	proxyType string
	client    *http.Client
}

func NewTextSource(name, url, kind, proxyType string, timeout time.Duration) *TextSource {
	return &TextSource{
		name:      name,
		url:       url,
		kind:      kind,
		proxyType: proxyType,
		client:    &http.Client{Timeout: timeout},
	}
}

func (s *TextSource) Name() string { return s.name }

func (s *TextSource) ProxyType() string { return s.proxyType }

func (s *TextSource) Fetch(ctx context.Context) ([]model.Proxy, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", s.name, err)
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("received non-2xx status code (%d) from %s", resp.StatusCode, s.name)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body from %s: %w", s.name, err)
	}
	return parser.ParseMany(string(body)), nil
}
