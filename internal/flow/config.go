package flow

import "strings"

// Config holds the flow's tunables.
type Config struct {
	Mode           string // "paper" or "live"
	MinUSD         float64
	MaxUSD         float64
	PageSize       int
	SearchLimit    int
	CategoryLimit  int
	SportsLimit    int
	PositionsLimit int
	PresetAmounts  []int
	PresetPercents []int
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		Mode:           "paper",
		MinUSD:         5,
		MaxUSD:         100,
		PageSize:       5,
		SearchLimit:    8,
		CategoryLimit:  15,
		SportsLimit:    20,
		PositionsLimit: 10,
		PresetAmounts:  []int{10, 25, 50, 100},
		PresetPercents: []int{25, 50, 100},
	}
}

func (c Config) modeLabel() string {
	if strings.EqualFold(c.Mode, "live") {
		return "LIVE"
	}
	return "PAPER"
}

type category struct {
	Key   string
	Label string
}

var categories = []category{
	{"sports", "⚽ Sports"},
	{"politics", "🏛 Politics"},
	{"crypto", "₿ Crypto"},
	{"entertainment", "🎬 Entertainment"},
}

const sportsCategory = "sports"

var sports = []category{
	{"cricket", "🏏 Cricket"},
	{"football", "⚽ Football"},
	{"nba", "🏀 NBA"},
	{"tennis", "🎾 Tennis"},
	{"ufc", "🥊 UFC"},
	{"nfl", "🏈 NFL"},
}
