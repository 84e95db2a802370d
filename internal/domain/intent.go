package domain

import "time"

// IntentKind distinguishes the buy and sell flows.
type IntentKind string

const (
	IntentBuy  IntentKind = "buy"
	IntentSell IntentKind = "sell"
)

// Stage is the position of an Intent in its flow.
type Stage int

const (
	StageIdle Stage = iota
	StageCategoryChosen
	StageListingChosen
	StageOutcomeChosen
	StageAmountChosen
	StagePositionChosen
	StagePercentChosen
	StageConfirmed
	StageExecuted
)

var stageNames = map[Stage]string{
	StageIdle:           "idle",
	StageCategoryChosen: "category_chosen",
	StageListingChosen:  "listing_chosen",
	StageOutcomeChosen:  "outcome_chosen",
	StageAmountChosen:   "amount_chosen",
	StagePositionChosen: "position_chosen",
	StagePercentChosen:  "percent_chosen",
	StageConfirmed:      "confirmed",
	StageExecuted:       "executed",
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return "unknown"
}

// Ref identifies an entry of a reference table: the generation it was
// published in and its index within that generation.
type Ref struct {
	Gen   uint32
	Index int
}

// Intent accumulates a user's selections stage by stage until an order is
// confirmed and executed. Exactly one Intent is current per user.
type Intent struct {
	ID    string
	Seq   uint32 // per-session counter carried by confirmation tokens
	Kind  IntentKind
	Stage Stage

	// Buy flow.
	Category    string
	SubCategory string
	Listing     *Listing
	ListingRef  Ref
	Side        Side
	OutcomeID   string
	Outcome     string
	Price       float64
	Amount      float64 // USD

	// Sell flow.
	Position    *Position
	PositionRef Ref
	Percent     int

	CreatedAt  time.Time
	ExecutedAt *time.Time
	Result     *OrderResult
}

// HasOrderParams reports whether the fields the execution step needs are
// present for the intent's kind.
func (i *Intent) HasOrderParams() bool {
	if i == nil || i.OutcomeID == "" {
		return false
	}
	switch i.Kind {
	case IntentBuy:
		return i.Amount > 0 && i.Price > 0
	case IntentSell:
		return i.Position != nil && i.Percent >= 1 && i.Percent <= 100
	}
	return false
}
