// pep/cache.go
package pep

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/albeach/DIVE-V3-sub011/model"
)

// DecisionCache is a TTL cache of authorization decisions, owned by one PEP
// instance. Mutations hold a short mutex so racing requests for the same key
// cannot lose updates; staleness up to the TTL is acceptable.
type DecisionCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	decision  model.AuthorizationDecision
	expiresAt time.Time
}

func NewDecisionCache(ttl time.Duration) *DecisionCache {
	return &DecisionCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// CacheKey derives a stable hash from the subject identity, resource and
// action. Volatile request fields (correlation id, bearer token) are
// deliberately excluded so repeated identical requests hit the same entry.
func CacheKey(subject model.SubjectAttributes, resourceID, action string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join([]string{
		subject.UniqueID,
		subject.OriginInstance,
		subject.Clearance.String(),
		subject.CountryOfAffiliation,
		strings.Join(subject.ACPCOI, ","),
		resourceID,
		action,
	}, "|")))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *DecisionCache) Get(key string) (*model.AuthorizationDecision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	decision := entry.decision
	return &decision, true
}

func (c *DecisionCache) Set(key string, decision model.AuthorizationDecision) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		decision:  decision,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Purge drops every cached decision. Called when revocations or registry
// changes invalidate previously granted access.
func (c *DecisionCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
