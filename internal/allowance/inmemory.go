package allowance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/holiman/uint256"
)

type pairKey struct {
	owner   string
	spender string
}

type inMemoryLedger struct {
	mu      sync.Mutex
	entries map[pairKey]Entry
	now     func() time.Time
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests and development mode. Operations serialize under a single mutex.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		entries: make(map[pairKey]Entry),
		now:     time.Now,
	}
}

// current returns the stored entry or an inert zero entry for the pair.
// Callers must hold the mutex.
func (l *inMemoryLedger) current(owner, spender string) Entry {
	if e, ok := l.entries[pairKey{owner, spender}]; ok {
		return cloneEntry(e)
	}
	return Entry{Owner: owner, Spender: spender, Amount: new(uint256.Int)}
}

func (l *inMemoryLedger) put(e Entry) {
	l.entries[pairKey{e.Owner, e.Spender}] = cloneEntry(e)
}

func cloneEntry(e Entry) Entry {
	if e.Amount != nil {
		e.Amount = new(uint256.Int).Set(e.Amount)
	}
	return e
}

func (l *inMemoryLedger) Approve(_ context.Context, owner, spender string, amount *uint256.Int, period time.Duration) (Entry, error) {
	if err := checkParties(owner, spender); err != nil {
		return Entry{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := replaceEntry(owner, spender, amount, period, l.now().UTC())
	l.put(entry)
	return cloneEntry(entry), nil
}

func (l *inMemoryLedger) Spend(_ context.Context, owner, spender string, amount *uint256.Int) (Entry, error) {
	if err := checkParties(owner, spender); err != nil {
		return Entry{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, changed, err := debit(l.current(owner, spender), amount, l.now().UTC())
	if err != nil {
		return Entry{}, err
	}
	if changed {
		l.put(entry)
	}
	return cloneEntry(entry), nil
}

func (l *inMemoryLedger) Increase(_ context.Context, owner, spender string, delta *uint256.Int, period time.Duration) (Entry, error) {
	return l.adjust(owner, spender, delta, false, period)
}

func (l *inMemoryLedger) Decrease(_ context.Context, owner, spender string, delta *uint256.Int, period time.Duration) (Entry, error) {
	return l.adjust(owner, spender, delta, true, period)
}

func (l *inMemoryLedger) adjust(owner, spender string, delta *uint256.Int, negative bool, period time.Duration) (Entry, error) {
	if err := checkParties(owner, spender); err != nil {
		return Entry{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, err := adjust(l.current(owner, spender), delta, negative, period, l.now().UTC())
	if err != nil {
		return Entry{}, err
	}
	l.put(entry)
	return cloneEntry(entry), nil
}

func (l *inMemoryLedger) Amount(_ context.Context, owner, spender string) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current(owner, spender).Amount, nil
}

func (l *inMemoryLedger) Expiry(_ context.Context, owner, spender string) (time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current(owner, spender).ExpiresAt, nil
}

func (l *inMemoryLedger) GrantedBy(_ context.Context, owner string) ([]Entry, error) {
	return l.list(func(e Entry) bool { return e.Owner == owner })
}

func (l *inMemoryLedger) GrantedTo(_ context.Context, spender string) ([]Entry, error) {
	return l.list(func(e Entry) bool { return e.Spender == spender })
}

func (l *inMemoryLedger) list(match func(Entry) bool) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []Entry
	for _, e := range l.entries {
		if match(e) {
			entries = append(entries, cloneEntry(e))
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Owner != entries[j].Owner {
			return entries[i].Owner < entries[j].Owner
		}
		return entries[i].Spender < entries[j].Spender
	})
	return entries, nil
}
