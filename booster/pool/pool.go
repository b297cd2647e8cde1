// Package pool holds the ordered, consumable collection of healthy
// proxies. It is a pure data structure: no blocking, no retries, no
// network knowledge. Waiting and refill policy belong to the caller.
package pool

import (
	"sync"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/model"
)

// Pool keeps proxies in the order they were loaded. Batches arrive
// pre-sorted by latency; Load never re-sorts across batches. Acquire
// consumes: a proxy leaves the pool permanently.
type Pool struct {
	mu        sync.Mutex
	items     []model.Proxy
	threshold int
}

// New returns an empty pool. criticalThreshold is the size floor below
// which IsCritical reports true.
func New(criticalThreshold int) *Pool {
	return &Pool{threshold: criticalThreshold}
}

// Load appends a batch to the tail, preserving both the batch's
// internal order and the order of earlier loads.
func (p *Pool) Load(batch []model.Proxy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, batch...)
}

// Acquire pops the head (fastest remaining) proxy. The second return
// is false when the pool is empty.
func (p *Pool) Acquire() (model.Proxy, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) == 0 {
		return model.Proxy{}, false
	}
	item := p.items[0]
	p.items = p.items[1:]
	return item, true
}

// Size reports the number of proxies currently held.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// IsEmpty reports whether the pool holds nothing.
func (p *Pool) IsEmpty() bool {
	return p.Size() == 0
}

// IsCritical reports whether the pool has shrunk strictly below the
// configured threshold.
func (p *Pool) IsCritical() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items) < p.threshold
}
