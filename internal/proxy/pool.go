// Package proxy rotates browser sessions across a list of egress
// proxies and benches the ones that recently failed.
package proxy

import (
	"sync"
	"time"
)

// failureCooldown is how long a proxy stays benched after MarkFailed.
const failureCooldown = 5 * time.Minute

// Pool hands out proxies round-robin, skipping recently failed ones.
type Pool struct {
	proxies []string
	index   int
	mu      sync.Mutex
	failed  map[string]time.Time
}

// NewPool creates a pool over the given proxy URLs. An empty list
// yields a pool that always returns "".
func NewPool(proxies []string) *Pool {
	return &Pool{
		proxies: proxies,
		failed:  make(map[string]time.Time),
	}
}

// Next returns the next healthy proxy. When every proxy is benched the
// current one is returned anyway; a stale proxy beats no proxy.
func (p *Pool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	start := p.index
	for {
		proxy := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		if failTime, ok := p.failed[proxy]; ok {
			if time.Since(failTime) < failureCooldown {
				if p.index == start {
					return proxy
				}
				continue
			}
			delete(p.failed, proxy)
		}
		return proxy
	}
}

// MarkFailed benches a proxy for the cooldown window.
func (p *Pool) MarkFailed(proxy string) {
	if proxy == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[proxy] = time.Now()
}

// MarkHealthy clears the failure status of a proxy.
func (p *Pool) MarkHealthy(proxy string) {
	if proxy == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, proxy)
}
