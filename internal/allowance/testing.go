package allowance

import "time"

// SeedEntry is a test helper that installs an entry directly when using the
// in-memory ledger.
func SeedEntry(l Ledger, e Entry) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.put(e)
	}
}

// SetClock is a test helper that overrides the in-memory ledger's clock so
// expiry behaviour can be driven deterministically.
func SetClock(l Ledger, now func() time.Time) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.now = now
	}
}
