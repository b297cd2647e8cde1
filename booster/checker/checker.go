// Package checker filters proxy candidates down to the ones that can
// actually reach the target platform, ranked fastest first.
package checker

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/model"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/proxyhttp"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/internal/shared/logger"
)

// Checker probes candidates through themselves: a proxy that cannot
// fetch the base page and a channel listing is useless for view
// dispatch no matter how fast it dials.
type Checker struct {
	timeout     time.Duration
	concurrency int64
	baseURL     string
	channel     string
	log         zerolog.Logger
}

func New(timeout time.Duration, concurrency int, baseURL, channel string) *Checker {
	if concurrency <= 0 {
		concurrency = 100
	}
	if channel == "" {
		channel = "telegram"
	}
	return &Checker{
		timeout:     timeout,
		concurrency: int64(concurrency),
		baseURL:     baseURL,
		channel:     channel,
		log:         logger.WithComponent("checker"),
	}
}

// Check probes every candidate under the concurrency bound and returns
// the alive subset sorted ascending by elapsed time. This ordering is
// the sole prioritization signal fed into the pool.
func (c *Checker) Check(ctx context.Context, candidates []model.Proxy) []model.Proxy {
	if len(candidates) == 0 {
		return nil
	}

	c.log.Info().Int("count", len(candidates)).Int64("concurrency", c.concurrency).Msg("Starting health check batch...")

	sem := semaphore.NewWeighted(c.concurrency)
	results := make([]model.HealthCheckResult, len(candidates))
	var wg sync.WaitGroup
	for i, p := range candidates {
		wg.Add(1)
		go func(i int, p model.Proxy) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = model.HealthCheckResult{Proxy: p, Err: err.Error()}
				return
			}
			defer sem.Release(1)
			results[i] = c.checkOne(ctx, p)
		}(i, p)
	}
	wg.Wait()

	alive := rankAlive(results)
	c.log.Info().
		Int("candidates", len(candidates)).
		Int("alive", len(alive)).
		Msg("Health check batch finished")
	return alive
}

// checkOne runs both probes through the candidate. Elapsed time spans
// both probes regardless of their outcome.
func (c *Checker) checkOne(ctx context.Context, p model.Proxy) model.HealthCheckResult {
	start := time.Now()
	res := model.HealthCheckResult{Proxy: p}

	client, err := proxyhttp.NewClient(p, c.timeout)
	if err != nil {
		res.Err = err.Error()
		res.ElapsedMS = time.Since(start).Milliseconds()
		return res
	}
	defer client.CloseIdleConnections()

	res.BaseOK = c.probe(ctx, client, c.baseURL+"/")
	res.ChannelOK = c.probe(ctx, client, fmt.Sprintf("%s/s/%s", c.baseURL, c.channel))

	res.ElapsedMS = time.Since(start).Milliseconds()
	res.Alive = res.BaseOK && res.ChannelOK
	return res
}

func (c *Checker) probe(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// rankAlive keeps the alive results and orders them fastest first.
func rankAlive(results []model.HealthCheckResult) []model.Proxy {
	alive := make([]model.HealthCheckResult, 0, len(results))
	for _, r := range results {
		if r.Alive {
			alive = append(alive, r)
		}
	}
	sort.SliceStable(alive, func(i, j int) bool {
		return alive[i].ElapsedMS < alive[j].ElapsedMS
	})

	out := make([]model.Proxy, len(alive))
	for i, r := range alive {
		out[i] = r.Proxy
	}
	return out
}
