package adapters

import (
	"github.com/patrickmn/go-cache"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/outbound"
	"time"
)

type dedupState int

const (
	dedupPending dedupState = iota
	dedupCommitted
)

type memoryDedupRegistry struct {
	cache    *cache.Cache
	cooldown time.Duration
}

// NewMemoryDedupRegistry keeps committed phone numbers for cooldown, or for
// the lifetime of the process when cooldown is zero.
func NewMemoryDedupRegistry(cooldown time.Duration) outbound.DedupRegistryPort {
	return &memoryDedupRegistry{
		// the janitor only runs for a positive cooldown
		cache:    cache.New(cache.NoExpiration, cooldown),
		cooldown: cooldown,
	}
}

// Reserve relies on cache.Add failing when the key is already present.
func (r *memoryDedupRegistry) Reserve(phoneNumber string) bool {
	return r.cache.Add(phoneNumber, dedupPending, cache.NoExpiration) == nil
}

func (r *memoryDedupRegistry) Commit(phoneNumber string) {
	expiration := cache.NoExpiration
	if r.cooldown > 0 {
		expiration = r.cooldown
	}
	r.cache.Set(phoneNumber, dedupCommitted, expiration)
}

func (r *memoryDedupRegistry) Release(phoneNumber string) {
	r.cache.Delete(phoneNumber)
}
