package hunter

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/model"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/parser"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/internal/shared/logger"
)

// scriptArrayRe finds a proxy array assigned to a JS variable, e.g.
// `const fpsList = [{"ip":"1.2.3.4","port":"8080"}];`.
var scriptArrayRe = regexp.MustCompile(`(var|let|const)\s+fpsList\s*=\s*(\[.*?\]);`)

// scriptProxyRow is the shape of one entry inside the embedded array.
type scriptProxyRow struct {
	IP   string `json:"ip"`
	Port string `json:"port"`
}

// ScriptSource extracts proxies that pages embed as a JSON array in an
// inline script instead of rendering a table.
type ScriptSource struct {
	name      string
	url       string
	proxyType string
	timeout   time.Duration
}

func NewScriptSource(name, url, proxyType string, timeout time.Duration) *ScriptSource {
	return &ScriptSource{
		name:      name,
		url:       url,
		proxyType: proxyType,
		timeout:   timeout,
	}
}

func (s *ScriptSource) Name() string { return s.name }

func (s *ScriptSource) ProxyType() string { return s.proxyType }

func (s *ScriptSource) Fetch(ctx context.Context) ([]model.Proxy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := logger.WithComponent("hunter")

	// A fresh collector per fetch keeps response callbacks from
	// stacking across calls.
	c := colly.NewCollector(colly.UserAgent(browserUA))
	c.SetRequestTimeout(s.timeout)

	var (
		mu       sync.Mutex
		proxies  []model.Proxy
		fetchErr error
	)

	c.OnResponse(func(r *colly.Response) {
		matches := scriptArrayRe.FindSubmatch(r.Body)
		if len(matches) < 3 {
			mu.Lock()
			fetchErr = fmt.Errorf("no embedded proxy array found at %s", s.name)
			mu.Unlock()
			return
		}

		var rows []scriptProxyRow
		if err := json.Unmarshal(matches[2], &rows); err != nil {
			mu.Lock()
			fetchErr = fmt.Errorf("failed to unmarshal embedded array from %s: %w", s.name, err)
			mu.Unlock()
			return
		}

		mu.Lock()
		defer mu.Unlock()
		for _, row := range rows {
			p, err := parser.Parse(row.IP + ":" + row.Port)
			if err != nil {
				l.Debug().Err(err).Str("source", s.name).Msg("Skipping malformed script row")
				continue
			}
			proxies = append(proxies, p)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		fetchErr = fmt.Errorf("failed to fetch %s: %w", s.name, err)
		mu.Unlock()
	})

	if err := c.Visit(s.url); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", s.name, err)
	}
	if len(proxies) == 0 && fetchErr != nil {
		return nil, fetchErr
	}
	return proxies, nil
}
