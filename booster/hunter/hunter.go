// Package hunter harvests proxy candidates from upstream sources. A
// failing source contributes nothing and never aborts the harvest.
package hunter

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/model"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/internal/shared/logger"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/internal/shared/types"
)

// browserUA is sent on all source fetches.
const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"

// Source fetches and pre-parses one upstream proxy list. Implementers
// only fetch and parse; validation happens elsewhere.
type Source interface {
	// Fetch downloads the source and returns the parsed records.
	Fetch(ctx context.Context) ([]model.Proxy, error)

	// Name identifies the source in logs and stats.
	Name() string

	// ProxyType is the source's declared type: http, socks5 or mixed.
	ProxyType() string
}

// Hunter aggregates candidates across all configured sources.
type Hunter struct {
	sources []Source
	log     zerolog.Logger
}

func New(sources []Source) *Hunter {
	return &Hunter{
		sources: sources,
		log:     logger.WithComponent("hunter"),
	}
}

// DefaultSources returns the built-in public lists, used when no
// [sources] section is configured.
func DefaultSources(timeout time.Duration) []Source {
	return []Source{
		NewTextSource("proxyscrape-http", "https://api.proxyscrape.com/v2/?request=displayproxies&protocol=http&timeout=10000&country=all&ssl=all&anonymity=all", model.SourceKindAPI, model.ProxyTypeHTTP, timeout),
		NewTextSource("proxyscrape-socks5", "https://api.proxyscrape.com/v2/?request=displayproxies&protocol=socks5&timeout=10000&country=all", model.SourceKindAPI, model.ProxyTypeSOCKS5, timeout),
		NewTextSource("thespeedx-http", "https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/http.txt", model.SourceKindRaw, model.ProxyTypeHTTP, timeout),
		NewTextSource("thespeedx-socks5", "https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/socks5.txt", model.SourceKindRaw, model.ProxyTypeSOCKS5, timeout),
		NewTextSource("clarketm-raw", "https://raw.githubusercontent.com/clarketm/proxy-list/master/proxy-list-raw.txt", model.SourceKindRaw, model.ProxyTypeHTTP, timeout),
		NewTextSource("shiftytr-http", "https://raw.githubusercontent.com/ShiftyTR/Proxy-List/master/http.txt", model.SourceKindRaw, model.ProxyTypeHTTP, timeout),
	}
}

// FromSpecs builds sources from configuration. Configured sources
// replace the defaults entirely.
func FromSpecs(specs []types.SourceSpec, timeout time.Duration) []Source {
	sources := make([]Source, 0, len(specs))
	for _, spec := range specs {
		switch spec.Kind {
		case model.SourceKindHTMLTable:
			sources = append(sources, NewTableSource(spec.Name, spec.URL, spec.ProxyType, timeout))
		case model.SourceKindJSEmbedded:
			sources = append(sources, NewScriptSource(spec.Name, spec.URL, spec.ProxyType, timeout))
		default:
			sources = append(sources, NewTextSource(spec.Name, spec.URL, spec.Kind, spec.ProxyType, timeout))
		}
	}
	return sources
}

// HuntAll fetches every source concurrently, applies source-type
// coercion, and returns the deduplicated union in source order.
func (h *Hunter) HuntAll(ctx context.Context) []model.Proxy {
	if len(h.sources) == 0 {
		h.log.Warn().Msg("No proxy sources configured")
		return nil
	}

	h.log.Info().Int("sources", len(h.sources)).Msg("Starting proxy hunt...")

	// One slot per source keeps first-seen order deterministic.
	results := make([][]model.Proxy, len(h.sources))
	var wg sync.WaitGroup
	for i, src := range h.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			proxies, err := src.Fetch(ctx)
			if err != nil {
				h.log.Warn().Err(err).Str("source", src.Name()).Msg("Source failed, contributing nothing")
				return
			}
			results[i] = h.coerce(src, proxies)
		}(i, src)
	}
	wg.Wait()

	var all []model.Proxy
	for i, batch := range results {
		h.log.Info().Str("source", h.sources[i].Name()).Int("count", len(batch)).Msg("Source contribution")
		all = append(all, batch...)
	}

	unique := Dedup(all)
	h.log.Info().Int("total", len(all)).Int("unique", len(unique)).Msg("Hunt finished")
	return unique
}

// coerce retypes records whose protocol was defaulted by the bare
// host:port grammar. Sources that only ever emit bare socks5 lines
// would otherwise enter the pool as http.
func (h *Hunter) coerce(src Source, proxies []model.Proxy) []model.Proxy {
	declared := src.ProxyType()
	if declared == model.ProxyTypeMixed || declared == model.ProxyTypeHTTP {
		return proxies
	}
	for i := range proxies {
		if proxies[i].Defaulted && proxies[i].Protocol == model.ProtocolHTTP {
			proxies[i].Protocol = declared
		}
	}
	return proxies
}

// Dedup removes records sharing a host:port key, keeping the first
// occurrence's protocol and credentials.
func Dedup(proxies []model.Proxy) []model.Proxy {
	seen := make(map[string]struct{}, len(proxies))
	out := make([]model.Proxy, 0, len(proxies))
	for _, p := range proxies {
		key := p.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}
