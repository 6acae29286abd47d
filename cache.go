package invitengine

import (
	"html/template"
	"sync"
	"time"
)

// templateCache caches parsed invitation templates per slug with a TTL,
// so a hand-edited template.html on disk still shows up without a
// restart. Mutating admin operations invalidate eagerly.
type templateCache struct {
	mu      sync.RWMutex
	entries map[string]cachedTemplate
	ttl     time.Duration
}

type cachedTemplate struct {
	tmpl    *template.Template
	fetched time.Time
}

func newTemplateCache(ttl time.Duration) *templateCache {
	return &templateCache{
		entries: make(map[string]cachedTemplate),
		ttl:     ttl,
	}
}

// get returns the cached template for slug, calling load on a miss or
// an expired entry. It tries a read lock first; only takes the write
// lock when a reload is needed.
func (c *templateCache) get(slug string, load func() (*template.Template, error)) (*template.Template, error) {
	c.mu.RLock()
	if e, ok := c.entries[slug]; ok && time.Since(e.fetched) < c.ttl {
		c.mu.RUnlock()
		return e.tmpl, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[slug]; ok && time.Since(e.fetched) < c.ttl {
		return e.tmpl, nil
	}
	tmpl, err := load()
	if err != nil {
		return nil, err
	}
	c.entries[slug] = cachedTemplate{tmpl: tmpl, fetched: time.Now()}
	return tmpl, nil
}

// Invalidate drops slug's cached template.
func (c *templateCache) Invalidate(slug string) {
	c.mu.Lock()
	delete(c.entries, slug)
	c.mu.Unlock()
}
