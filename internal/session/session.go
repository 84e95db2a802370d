// Package session keeps per-user interaction state for the lifetime of the
// process and serializes each user's actions.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/polytgbot/internal/domain"
	"github.com/alanyoungcy/polytgbot/internal/reftable"
)

// Waiting is the free-text sub-state a session can be in.
type Waiting int

const (
	WaitNone Waiting = iota
	WaitAmount
	WaitPercent
	WaitSearch
)

func (w Waiting) String() string {
	switch w {
	case WaitAmount:
		return "amount"
	case WaitPercent:
		return "percent"
	case WaitSearch:
		return "search"
	default:
		return "none"
	}
}

// Session is one user's mutable slot. It is only ever touched from that
// user's dispatcher worker, so it carries no lock of its own.
type Session struct {
	UserID  int64
	Intent  *domain.Intent
	Waiting Waiting

	Listings  *reftable.Table[domain.Listing]
	Positions *reftable.Table[domain.Position]
	Favorites *reftable.Table[domain.Favorite]

	// Listing display state: header line and visible page.
	ListingTitle string
	ListingPage  int

	seq uint32 // last intent sequence number, seeded like the tables
}

func newSession(userID int64, seed uint32) *Session {
	return &Session{
		UserID:    userID,
		Listings:  reftable.New[domain.Listing](seed),
		Positions: reftable.New[domain.Position](seed),
		Favorites: reftable.New[domain.Favorite](seed),
		seq:       seed,
	}
}

// NewIntent discards any current intent and starts a new one of the given
// kind in StageIdle.
func (s *Session) NewIntent(kind domain.IntentKind) *domain.Intent {
	s.seq++
	s.Intent = &domain.Intent{
		ID:        uuid.NewString(),
		Seq:       s.seq,
		Kind:      kind,
		Stage:     domain.StageIdle,
		CreatedAt: time.Now().UTC(),
	}
	s.Waiting = WaitNone
	return s.Intent
}

// CurrentIntent returns the intent if it is of the given kind.
func (s *Session) CurrentIntent(kind domain.IntentKind) (*domain.Intent, bool) {
	if s.Intent == nil || s.Intent.Kind != kind {
		return nil, false
	}
	return s.Intent, true
}

// Reset clears the intent and any waiting sub-state. Tables are kept.
func (s *Session) Reset() {
	s.Intent = nil
	s.Waiting = WaitNone
}
