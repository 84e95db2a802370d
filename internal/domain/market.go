package domain

import "strings"

// Side selects one of a listing's two outcomes.
type Side int

const (
	SideYes Side = iota
	SideNo
)

// String returns the display label of the side.
func (s Side) String() string {
	if s == SideNo {
		return "NO"
	}
	return "YES"
}

// ParseSide accepts "yes"/"no" in any case.
func ParseSide(v string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y":
		return SideYes, true
	case "no", "n":
		return SideNo, true
	}
	return SideYes, false
}

// Outcome is one independently priced side of a Listing.
type Outcome struct {
	Label   string  // e.g. "Yes", "Up", "Lakers"
	TokenID string  // ERC-1155 token ID (76-digit string)
	Price   float64 // in [0,1]
}

// Listing is a Polymarket market with two tradable outcomes. Listings are
// immutable snapshots; a refresh produces new values rather than patching.
type Listing struct {
	ID          string
	ConditionID string
	Question    string
	Slug        string
	Outcomes    [2]Outcome
	Volume      float64
}

// Outcome returns the outcome for the given side.
func (l Listing) Outcome(side Side) Outcome {
	if side == SideNo {
		return l.Outcomes[1]
	}
	return l.Outcomes[0]
}

// YesPrice is shorthand for the first outcome's price.
func (l Listing) YesPrice() float64 { return l.Outcomes[0].Price }

// NoPrice is shorthand for the second outcome's price.
func (l Listing) NoPrice() float64 { return l.Outcomes[1].Price }
