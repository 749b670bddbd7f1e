package repository

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/getmockd/stubd/pkg/stub"
)

// cachedMatch remembers which stub an identical request matched first, in
// which snapshot generation.
type cachedMatch struct {
	uuid string
	gen  uint64
}

// matchCache maps request fingerprints to their first matching stub.
type matchCache struct {
	lru *expirable.LRU[string, cachedMatch]
}

func newMatchCache(size int, ttl time.Duration) *matchCache {
	if size <= 0 {
		return &matchCache{}
	}
	return &matchCache{lru: expirable.NewLRU[string, cachedMatch](size, nil, ttl)}
}

func (c *matchCache) get(key string, gen uint64) (string, bool) {
	if c.lru == nil {
		return "", false
	}
	m, ok := c.lru.Get(key)
	if !ok || m.gen != gen {
		return "", false
	}
	return m.uuid, true
}

func (c *matchCache) put(key string, gen uint64, uuid string) {
	if c.lru != nil {
		c.lru.Add(key, cachedMatch{uuid: uuid, gen: gen})
	}
}

func (c *matchCache) purge() {
	if c.lru != nil {
		c.lru.Purge()
	}
}

// fingerprint identifies an asserting request by every attribute matching
// can look at.
func fingerprint(r *stub.Request) string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	write(r.URL())
	for _, m := range r.Methods() {
		write(m)
	}
	write(r.Body())
	for _, m := range []map[string]string{r.Headers(), r.Query()} {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			write(k)
			write(m[k])
		}
		write("")
	}
	return hex.EncodeToString(h.Sum(nil))
}
