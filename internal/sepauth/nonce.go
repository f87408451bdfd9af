package sepauth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stellar/go-stellar-sdk/support/log"
)

// NonceTTL is how long a challenge nonce remains valid after issuance.
const NonceTTL = 5 * time.Minute

type nonceEntry struct {
	insertedAt time.Time
	consumed   bool
}

// NonceRegistry tracks the challenge nonces issued by the SEP-10 service so
// that a signed challenge can be verified at most once. Entries expire after
// NonceTTL and are removed by a periodic sweeper.
type NonceRegistry struct {
	mu      sync.Mutex
	entries map[string]nonceEntry
	ttl     time.Duration
	nowFunc func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

func NewNonceRegistry() *NonceRegistry {
	return &NonceRegistry{
		entries: make(map[string]nonceEntry),
		ttl:     NonceTTL,
		nowFunc: time.Now,
		stop:    make(chan struct{}),
	}
}

// Add registers a freshly issued nonce. Registering a value that is already
// present is an error.
func (r *NonceRegistry) Add(nonce string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[nonce]; ok {
		return fmt.Errorf("nonce already registered")
	}
	r.entries[nonce] = nonceEntry{insertedAt: r.nowFunc()}
	return nil
}

// Has reports whether the nonce is present and not expired.
func (r *NonceRegistry) Has(nonce string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[nonce]
	return ok && !r.expired(entry)
}

// Consume marks the nonce consumed. It returns true iff the nonce was
// present, not expired, and not yet consumed.
func (r *NonceRegistry) Consume(nonce string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[nonce]
	if !ok || entry.consumed || r.expired(entry) {
		return false
	}
	entry.consumed = true
	r.entries[nonce] = entry
	return true
}

// StartSweeping runs the expiry sweeper until Stop is called or the context
// is cancelled. The sweeper wakes once per TTL interval.
func (r *NonceRegistry) StartSweeping(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.ttl)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			case <-ticker.C:
				removed := r.sweep()
				if removed > 0 {
					log.Ctx(ctx).Debugf("nonce sweeper removed %d expired entries", removed)
				}
			}
		}
	}()
}

// Stop terminates the sweeper. Safe to call more than once.
func (r *NonceRegistry) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *NonceRegistry) sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for nonce, entry := range r.entries {
		if r.expired(entry) {
			delete(r.entries, nonce)
			removed++
		}
	}
	return removed
}

func (r *NonceRegistry) expired(entry nonceEntry) bool {
	return r.nowFunc().Sub(entry.insertedAt) > r.ttl
}
