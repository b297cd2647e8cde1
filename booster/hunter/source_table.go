package hunter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/model"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/parser"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/internal/shared/logger"
)

// TableSource extracts host/port pairs from the first two columns of
// HTML table rows (free-proxy-list style pages).
type TableSource struct {
	name      string
	url       string
	proxyType string
	client    *http.Client
}

func NewTableSource(name, url, proxyType string, timeout time.Duration) *TableSource {
	return &TableSource{
		name:      name,
		url:       url,
		proxyType: proxyType,
		client:    &http.Client{Timeout: timeout},
	}
}

func (s *TableSource) Name() string { return s.name }

func (s *TableSource) ProxyType() string { return s.proxyType }

func (s *TableSource) Fetch(ctx context.Context) ([]model.Proxy, error) {
	l := logger.WithComponent("hunter")

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

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", s.name, err)
	}

	var proxies []model.Proxy
	doc.Find("table tr").Each(func(_ int, sel *goquery.Selection) {
		cells := sel.Find("td")
		if cells.Length() < 2 {
			return // header or decoration row
		}
		host := strings.TrimSpace(cells.Eq(0).Text())
		port := strings.TrimSpace(cells.Eq(1).Text())
		if host == "" || port == "" {
			return
		}
		p, err := parser.Parse(host + ":" + port)
		if err != nil {
			l.Debug().Err(err).Str("source", s.name).Msg("Skipping malformed table row")
			return
		}
		proxies = append(proxies, p)
	})
	return proxies, nil
}
