// Package callback encodes user actions into compact inline-button tokens and
// decodes them back into typed actions.
//
// A token is a tag followed by zero or more unsigned integers, joined by ':'
// (for example "mkt:4021:7"). Each tag has a fixed arity.
package callback

import "github.com/alanyoungcy/polytgbot/internal/domain"

// Action is a decoded inline-button action. The concrete type identifies the
// action; fields carry its arguments.
type Action interface {
	tag() string
	args() []uint64
}

// Menu shows the main menu.
type Menu struct{}

// StartBuy opens the category chooser.
type StartBuy struct{}

// StartSearch asks the user for a free-text query.
type StartSearch struct{}

// ShowPositions fetches and lists the user's positions.
type ShowPositions struct{}

// ShowFavorites lists saved favorites.
type ShowFavorites struct{}

// Cancel discards the current intent.
type Cancel struct{}

// ChooseCategory selects a top-level category by its index in the category list.
type ChooseCategory struct{ Category int }

// ChooseSport selects a sport by its index in the sports list.
type ChooseSport struct{ Sport int }

// ListingPage moves the listing display to another page of the same generation.
type ListingPage struct {
	Gen  uint32
	Page int
}

// SelectListing selects a listing from the listing table.
type SelectListing struct{ Ref domain.Ref }

// SelectOutcome picks YES or NO on the selected listing.
type SelectOutcome struct{ Side domain.Side }

// ChooseAmount picks a preset USD amount.
type ChooseAmount struct{ USD int }

// CustomAmount asks the user to type an amount.
type CustomAmount struct{}

// ConfirmBuy confirms the buy intent with the given sequence number.
type ConfirmBuy struct{ Seq uint32 }

// SelectPosition selects a position from the positions table.
type SelectPosition struct{ Ref domain.Ref }

// SellPercent picks a preset percentage of the referenced position.
type SellPercent struct {
	Ref     domain.Ref
	Percent int
}

// CustomPercent asks the user to type a percentage for the referenced position.
type CustomPercent struct{ Ref domain.Ref }

// ConfirmSell confirms the sell intent with the given sequence number.
type ConfirmSell struct{ Seq uint32 }

// AddFavorite saves the outcome of the current buy intent.
type AddFavorite struct{}

// AddFavoritePosition saves the outcome held by the referenced position.
type AddFavoritePosition struct{ Ref domain.Ref }

// SelectFavorite starts a buy from a saved favorite.
type SelectFavorite struct{ Ref domain.Ref }

// DeleteFavorite removes a saved favorite.
type DeleteFavorite struct{ Ref domain.Ref }

func (Menu) tag() string                { return "menu" }
func (StartBuy) tag() string            { return "buy" }
func (StartSearch) tag() string         { return "srch" }
func (ShowPositions) tag() string       { return "pos" }
func (ShowFavorites) tag() string       { return "favs" }
func (Cancel) tag() string              { return "x" }
func (ChooseCategory) tag() string      { return "cat" }
func (ChooseSport) tag() string         { return "sp" }
func (ListingPage) tag() string         { return "pg" }
func (SelectListing) tag() string       { return "mkt" }
func (SelectOutcome) tag() string       { return "out" }
func (ChooseAmount) tag() string        { return "amt" }
func (CustomAmount) tag() string        { return "amtc" }
func (ConfirmBuy) tag() string          { return "xb" }
func (SelectPosition) tag() string      { return "ps" }
func (SellPercent) tag() string         { return "sl" }
func (CustomPercent) tag() string       { return "slc" }
func (ConfirmSell) tag() string         { return "xs" }
func (AddFavorite) tag() string         { return "fa" }
func (AddFavoritePosition) tag() string { return "fap" }
func (SelectFavorite) tag() string      { return "fv" }
func (DeleteFavorite) tag() string      { return "fd" }

func (Menu) args() []uint64          { return nil }
func (StartBuy) args() []uint64      { return nil }
func (StartSearch) args() []uint64   { return nil }
func (ShowPositions) args() []uint64 { return nil }
func (ShowFavorites) args() []uint64 { return nil }
func (Cancel) args() []uint64        { return nil }
func (CustomAmount) args() []uint64  { return nil }
func (AddFavorite) args() []uint64   { return nil }

func (a ChooseCategory) args() []uint64 { return []uint64{uint64(a.Category)} }
func (a ChooseSport) args() []uint64    { return []uint64{uint64(a.Sport)} }
func (a ListingPage) args() []uint64    { return []uint64{uint64(a.Gen), uint64(a.Page)} }
func (a SelectListing) args() []uint64  { return refArgs(a.Ref) }
func (a SelectOutcome) args() []uint64  { return []uint64{uint64(a.Side)} }
func (a ChooseAmount) args() []uint64   { return []uint64{uint64(a.USD)} }
func (a ConfirmBuy) args() []uint64     { return []uint64{uint64(a.Seq)} }
func (a SelectPosition) args() []uint64 { return refArgs(a.Ref) }
func (a SellPercent) args() []uint64 {
	return append(refArgs(a.Ref), uint64(a.Percent))
}
func (a CustomPercent) args() []uint64       { return refArgs(a.Ref) }
func (a ConfirmSell) args() []uint64         { return []uint64{uint64(a.Seq)} }
func (a AddFavoritePosition) args() []uint64 { return refArgs(a.Ref) }
func (a SelectFavorite) args() []uint64      { return refArgs(a.Ref) }
func (a DeleteFavorite) args() []uint64      { return refArgs(a.Ref) }

func refArgs(r domain.Ref) []uint64 {
	return []uint64{uint64(r.Gen), uint64(r.Index)}
}

func ref(a []uint32) domain.Ref {
	return domain.Ref{Gen: a[0], Index: int(a[1])}
}

// decoder builds an action from exactly arity parsed integers.
type decoder struct {
	arity int
	build func(a []uint32) (Action, bool)
}

var decoders = map[string]decoder{
	"menu": {0, func([]uint32) (Action, bool) { return Menu{}, true }},
	"buy":  {0, func([]uint32) (Action, bool) { return StartBuy{}, true }},
	"srch": {0, func([]uint32) (Action, bool) { return StartSearch{}, true }},
	"pos":  {0, func([]uint32) (Action, bool) { return ShowPositions{}, true }},
	"favs": {0, func([]uint32) (Action, bool) { return ShowFavorites{}, true }},
	"x":    {0, func([]uint32) (Action, bool) { return Cancel{}, true }},
	"amtc": {0, func([]uint32) (Action, bool) { return CustomAmount{}, true }},
	"fa":   {0, func([]uint32) (Action, bool) { return AddFavorite{}, true }},
	"cat":  {1, func(a []uint32) (Action, bool) { return ChooseCategory{Category: int(a[0])}, true }},
	"sp":   {1, func(a []uint32) (Action, bool) { return ChooseSport{Sport: int(a[0])}, true }},
	"amt":  {1, func(a []uint32) (Action, bool) { return ChooseAmount{USD: int(a[0])}, true }},
	"xb":   {1, func(a []uint32) (Action, bool) { return ConfirmBuy{Seq: a[0]}, true }},
	"xs":   {1, func(a []uint32) (Action, bool) { return ConfirmSell{Seq: a[0]}, true }},
	"out": {1, func(a []uint32) (Action, bool) {
		if a[0] > uint32(domain.SideNo) {
			return nil, false
		}
		return SelectOutcome{Side: domain.Side(a[0])}, true
	}},
	"pg":  {2, func(a []uint32) (Action, bool) { return ListingPage{Gen: a[0], Page: int(a[1])}, true }},
	"mkt": {2, func(a []uint32) (Action, bool) { return SelectListing{Ref: ref(a)}, true }},
	"ps":  {2, func(a []uint32) (Action, bool) { return SelectPosition{Ref: ref(a)}, true }},
	"slc": {2, func(a []uint32) (Action, bool) { return CustomPercent{Ref: ref(a)}, true }},
	"fap": {2, func(a []uint32) (Action, bool) { return AddFavoritePosition{Ref: ref(a)}, true }},
	"fv":  {2, func(a []uint32) (Action, bool) { return SelectFavorite{Ref: ref(a)}, true }},
	"fd":  {2, func(a []uint32) (Action, bool) { return DeleteFavorite{Ref: ref(a)}, true }},
	"sl":  {3, func(a []uint32) (Action, bool) { return SellPercent{Ref: ref(a), Percent: int(a[2])}, true }},
}
