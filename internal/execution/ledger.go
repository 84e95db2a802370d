package execution

import (
	"sync"
	"time"
)

type entryState int

const (
	stateInFlight entryState = iota
	stateExecuted
	stateUnknown // the backend call never returned
)

type ledgerEntry struct {
	state entryState
	at    time.Time
}

// Ledger records which intents have reached the trading backend. An intent
// id can begin at most once until it either fails (and is released for a
// retry) or succeeds (and stays recorded until the TTL expires). It is safe
// for concurrent use.
type Ledger struct {
	mu   sync.Mutex
	seen map[string]ledgerEntry
	ttl  time.Duration
}

// NewLedger creates a Ledger that forgets executed intents after ttl.
func NewLedger(ttl time.Duration) *Ledger {
	return &Ledger{
		seen: make(map[string]ledgerEntry),
		ttl:  ttl,
	}
}

// Begin marks intentID in flight. It returns false when the intent is
// already in flight or executed within the TTL window.
func (l *Ledger) Begin(intentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if e, ok := l.seen[intentID]; ok {
		if e.state == stateInFlight || now.Sub(e.at) < l.ttl {
			return false
		}
	}
	l.seen[intentID] = ledgerEntry{state: stateInFlight, at: now}
	return true
}

// Finish records the outcome of a call started with Begin. A failed intent
// is released so the same confirmation can be retried.
func (l *Ledger) Finish(intentID string, success bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !success {
		delete(l.seen, intentID)
		return
	}
	l.seen[intentID] = ledgerEntry{state: stateExecuted, at: time.Now()}
}

// Abandon records that the call started with Begin ended without an
// outcome. The intent stays blocked until the TTL expires.
func (l *Ledger) Abandon(intentID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[intentID] = ledgerEntry{state: stateUnknown, at: time.Now()}
}

// Unknown reports whether intentID was abandoned within the TTL.
func (l *Ledger) Unknown(intentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.seen[intentID]
	return ok && e.state == stateUnknown && time.Since(e.at) < l.ttl
}

// Executed reports whether intentID completed successfully within the TTL.
func (l *Ledger) Executed(intentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.seen[intentID]
	return ok && e.state == stateExecuted && time.Since(e.at) < l.ttl
}

// Cleanup removes entries older than the TTL, whatever their state. This
// should be called periodically to prevent unbounded memory growth.
func (l *Ledger) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for id, e := range l.seen {
		if now.Sub(e.at) >= l.ttl {
			delete(l.seen, id)
		}
	}
}

// Len returns the number of tracked intents.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
