package flow

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alanyoungcy/polytgbot/internal/callback"
	"github.com/alanyoungcy/polytgbot/internal/domain"
	"github.com/alanyoungcy/polytgbot/internal/execution"
	"github.com/alanyoungcy/polytgbot/internal/session"
)

const questionWidth = 48

func isBackendFailure(err error) bool { return errors.Is(err, domain.ErrBackendFailure) }

func (m *Machine) menuView() View {
	return View{
		Text: fmt.Sprintf("🎯 Polymarket Trading Bot [%s]\n\nWhat would you like to do?", m.cfg.modeLabel()),
		Buttons: [][]Button{
			row(btn("💼 Positions", callback.ShowPositions{}), btn("🛒 Buy", callback.StartBuy{})),
			row(btn("🔍 Search", callback.StartSearch{}), btn("⭐ Favorites", callback.ShowFavorites{})),
		},
	}
}

func (m *Machine) helpView() View {
	return View{
		Text: "Commands:\n" +
			"/buy - browse markets by category\n" +
			"/search <query> - find a market\n" +
			"/positions - your open positions\n" +
			"/favorites - saved outcomes\n" +
			"/cancel - abandon the current order\n" +
			"/menu - main menu",
		Buttons: [][]Button{row(btn("🏠 Menu", callback.Menu{}))},
	}
}

func (m *Machine) cancelledView() View {
	return View{
		Text:    "Cancelled.",
		Buttons: [][]Button{row(btn("🏠 Menu", callback.Menu{}))},
	}
}

func (m *Machine) categoryView() View {
	var rows [][]Button
	for i := 0; i < len(categories); i += 2 {
		r := row(btn(categories[i].Label, callback.ChooseCategory{Category: i}))
		if i+1 < len(categories) {
			r = append(r, btn(categories[i+1].Label, callback.ChooseCategory{Category: i + 1}))
		}
		rows = append(rows, r)
	}
	rows = append(rows, row(btn("🔍 Search", callback.StartSearch{}), btn("❌ Cancel", callback.Cancel{})))
	return View{Text: "📂 Choose a category:", Buttons: rows}
}

func (m *Machine) sportsView() View {
	var rows [][]Button
	for i := 0; i < len(sports); i += 3 {
		var r []Button
		for j := i; j < i+3 && j < len(sports); j++ {
			r = append(r, btn(sports[j].Label, callback.ChooseSport{Sport: j}))
		}
		rows = append(rows, r)
	}
	rows = append(rows, row(btn("⬅️ Back", callback.StartBuy{}), btn("❌ Cancel", callback.Cancel{})))
	return View{Text: "⚽ Choose a sport:", Buttons: rows}
}

func (m *Machine) searchPromptView() View {
	return View{
		Text:    "🔍 Type what you are looking for (e.g. \"bitcoin\", \"election\"):",
		Buttons: [][]Button{row(btn("❌ Cancel", callback.Cancel{}))},
	}
}

func (m *Machine) listingView(s *session.Session) View {
	page := s.Listings.Window(s.ListingPage, m.cfg.PageSize)

	if page.Total == 0 {
		return View{
			Text: s.ListingTitle + "\n\nNo markets found. Try a search instead.",
			Buttons: [][]Button{
				row(btn("🔍 Search", callback.StartSearch{}), btn("⬅️ Back", callback.StartBuy{})),
			},
		}
	}

	pages := (page.Total + m.cfg.PageSize - 1) / m.cfg.PageSize
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nPage %d/%d\n", s.ListingTitle, page.Number+1, pages)

	var rows [][]Button
	for i, l := range page.Items {
		idx := page.Offset + i
		fmt.Fprintf(&b, "\n%d. %s\n   %s %s · %s %s · Vol %s\n",
			idx+1, l.Question,
			outcomeLabel(l.Outcomes[0], domain.SideYes), cents(l.YesPrice()),
			outcomeLabel(l.Outcomes[1], domain.SideNo), cents(l.NoPrice()),
			usdCompact(l.Volume))
		rows = append(rows, row(btn(
			fmt.Sprintf("%d. %s", idx+1, truncate(l.Question, questionWidth)),
			callback.SelectListing{Ref: s.Listings.Ref(idx)},
		)))
	}

	var nav []Button
	if page.HasPrev {
		nav = append(nav, btn("◀️ Prev", callback.ListingPage{Gen: page.Gen, Page: page.Number - 1}))
	}
	if page.HasNext {
		nav = append(nav, btn("Next ▶️", callback.ListingPage{Gen: page.Gen, Page: page.Number + 1}))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, row(btn("🔍 Search", callback.StartSearch{}), btn("❌ Cancel", callback.Cancel{})))
	return View{Text: strings.TrimRight(b.String(), "\n"), Buttons: rows}
}

func (m *Machine) listingDetailView(s *session.Session, l domain.Listing) View {
	yes, no := l.Outcome(domain.SideYes), l.Outcome(domain.SideNo)
	text := fmt.Sprintf("📊 %s\n\n%s: %s\n%s: %s\nVolume: %s\n\nWhich outcome do you want to buy?",
		l.Question,
		outcomeLabel(yes, domain.SideYes), cents(yes.Price),
		outcomeLabel(no, domain.SideNo), cents(no.Price),
		usdCompact(l.Volume))
	return View{
		Text: text,
		Buttons: [][]Button{
			row(
				btn(fmt.Sprintf("✅ %s %s", outcomeLabel(yes, domain.SideYes), cents(yes.Price)), callback.SelectOutcome{Side: domain.SideYes}),
				btn(fmt.Sprintf("❎ %s %s", outcomeLabel(no, domain.SideNo), cents(no.Price)), callback.SelectOutcome{Side: domain.SideNo}),
			),
			row(
				btn("⬅️ Back", callback.ListingPage{Gen: s.Listings.Generation(), Page: s.ListingPage}),
				btn("❌ Cancel", callback.Cancel{}),
			),
		},
	}
}

func (m *Machine) amountView(in *domain.Intent) View {
	var presets []Button
	for _, usd := range m.cfg.PresetAmounts {
		if float64(usd) < m.cfg.MinUSD || float64(usd) > m.cfg.MaxUSD {
			continue
		}
		presets = append(presets, btn(fmt.Sprintf("$%d", usd), callback.ChooseAmount{USD: usd}))
	}
	rows := [][]Button{}
	if len(presets) > 0 {
		rows = append(rows, presets)
	}
	rows = append(rows,
		row(btn("✏️ Custom", callback.CustomAmount{}), btn("⭐ Favorite", callback.AddFavorite{})),
		row(btn("❌ Cancel", callback.Cancel{})),
	)
	return View{
		Text: fmt.Sprintf("📊 %s\n\nBuying %s at %s\n\nHow much do you want to spend? ($%s - $%s)",
			in.Listing.Question, in.Outcome, cents(in.Price), money(m.cfg.MinUSD), money(m.cfg.MaxUSD)),
		Buttons: rows,
	}
}

func (m *Machine) amountPromptView(in *domain.Intent) View {
	return View{
		Text: fmt.Sprintf("✏️ Enter an amount in USD between $%s and $%s for %s:",
			money(m.cfg.MinUSD), money(m.cfg.MaxUSD), in.Outcome),
		Buttons: [][]Button{row(btn("❌ Cancel", callback.Cancel{}))},
	}
}

func (m *Machine) buyConfirmView(in *domain.Intent) View {
	shares := execution.BuyShares(in.Amount, in.Price)
	text := fmt.Sprintf("🧾 Confirm order [%s]\n\n%s\n\nOutcome: %s\nPrice: %s\nAmount: $%s\nEst. shares: %.2f\n\nPlace this order?",
		m.cfg.modeLabel(), in.Listing.Question, in.Outcome, cents(in.Price), money(in.Amount), shares)
	return View{
		Text: text,
		Buttons: [][]Button{
			row(btn("✅ Confirm", callback.ConfirmBuy{Seq: in.Seq}), btn("❌ Cancel", callback.Cancel{})),
		},
	}
}

func (m *Machine) positionsView(s *session.Session) View {
	positions := s.Positions.Items()
	if len(positions) == 0 {
		return View{
			Text:    "💼 No open positions.",
			Buttons: [][]Button{row(btn("🛒 Buy", callback.StartBuy{}), btn("🏠 Menu", callback.Menu{}))},
		}
	}

	value, pnl := domain.PositionTotals(positions)
	var b strings.Builder
	fmt.Fprintf(&b, "💼 Positions [%s]\n\nTotal value: $%s\nUnrealized P&L: %s\n", m.cfg.modeLabel(), money(value), signedUSD(pnl))

	var rows [][]Button
	shown := min(len(positions), m.cfg.PositionsLimit)
	for i := range shown {
		p := positions[i]
		fmt.Fprintf(&b, "\n%d. %s\n   %s · %.2f shares · $%s (%s)\n",
			i+1, p.Question, p.Outcome, p.Size, money(p.Value), signedUSD(p.PnL))
		rows = append(rows, row(btn(
			fmt.Sprintf("%d. %s %s", i+1, p.Outcome, truncate(p.Question, questionWidth-4)),
			callback.SelectPosition{Ref: s.Positions.Ref(i)},
		)))
	}
	if len(positions) > shown {
		fmt.Fprintf(&b, "\n…and %d more", len(positions)-shown)
	}
	rows = append(rows, row(btn("🔄 Refresh", callback.ShowPositions{}), btn("🏠 Menu", callback.Menu{})))
	return View{Text: strings.TrimRight(b.String(), "\n"), Buttons: rows}
}

func (m *Machine) positionDetailView(in *domain.Intent) View {
	p := in.Position
	ref := in.PositionRef
	text := fmt.Sprintf("📈 %s\n\nOutcome: %s\nShares: %.2f\nAvg entry: %s\nCurrent: %s\nValue: $%s\nP&L: %s (%+.1f%%)\n\nHow much do you want to sell?",
		p.Question, p.Outcome, p.Size, cents(p.AvgPrice), cents(p.CurrentPrice), money(p.Value), signedUSD(p.PnL), p.PnLPercent())

	var presets []Button
	for _, pct := range m.cfg.PresetPercents {
		if pct < 1 || pct > 100 {
			continue
		}
		presets = append(presets, btn(fmt.Sprintf("%d%%", pct), callback.SellPercent{Ref: ref, Percent: pct}))
	}
	rows := [][]Button{}
	if len(presets) > 0 {
		rows = append(rows, presets)
	}
	rows = append(rows,
		row(btn("✏️ Custom %", callback.CustomPercent{Ref: ref}), btn("⭐ Favorite", callback.AddFavoritePosition{Ref: ref})),
		row(btn("⬅️ Back", callback.ShowPositions{}), btn("❌ Cancel", callback.Cancel{})),
	)
	return View{Text: text, Buttons: rows}
}

func (m *Machine) percentPromptView(in *domain.Intent) View {
	return View{
		Text:    fmt.Sprintf("✏️ Enter the percentage of your %.2f %s shares to sell (1-100):", in.Position.Size, in.Outcome),
		Buttons: [][]Button{row(btn("❌ Cancel", callback.Cancel{}))},
	}
}

func (m *Machine) sellConfirmView(in *domain.Intent) View {
	shares, value := execution.SellPortion(*in.Position, in.Percent)
	text := fmt.Sprintf("🧾 Confirm sell [%s]\n\n%s\n\nOutcome: %s\nSelling: %d%%\nShares: %.2f\nEst. value: $%s\n\nPlace this order?",
		m.cfg.modeLabel(), in.Position.Question, in.Outcome, in.Percent, shares, money(value))
	return View{
		Text: text,
		Buttons: [][]Button{
			row(btn("✅ Confirm", callback.ConfirmSell{Seq: in.Seq}), btn("❌ Cancel", callback.Cancel{})),
		},
	}
}

func (m *Machine) orderPlacedView(in *domain.Intent, res domain.OrderResult) View {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Order placed [%s]\n\n", m.cfg.modeLabel())
	switch in.Kind {
	case domain.IntentBuy:
		fmt.Fprintf(&b, "%s\nBought %s for $%s", in.Listing.Question, in.Outcome, money(in.Amount))
	case domain.IntentSell:
		fmt.Fprintf(&b, "%s\nSold %d%% of %s", in.Position.Question, in.Percent, in.Outcome)
	}
	if res.FilledSize > 0 {
		fmt.Fprintf(&b, "\nFilled: %.2f shares", res.FilledSize)
		if res.AvgPrice > 0 {
			fmt.Fprintf(&b, " @ %s", cents(res.AvgPrice))
		}
	}
	if res.OrderID != "" {
		fmt.Fprintf(&b, "\nOrder ID: %s", res.OrderID)
	}
	return View{
		Text: b.String(),
		Buttons: [][]Button{
			row(btn("💼 Positions", callback.ShowPositions{}), btn("🛒 Buy more", callback.StartBuy{})),
			row(btn("🏠 Menu", callback.Menu{})),
		},
	}
}

func (m *Machine) orderFailedView(in *domain.Intent, res domain.OrderResult) View {
	retry := btn("🔁 Retry", callback.ConfirmBuy{Seq: in.Seq})
	if in.Kind == domain.IntentSell {
		retry = btn("🔁 Retry", callback.ConfirmSell{Seq: in.Seq})
	}
	return View{
		Text:    fmt.Sprintf("❌ Order failed [%s]\n\n%s", m.cfg.modeLabel(), res.Error),
		Buttons: [][]Button{row(retry, btn("❌ Cancel", callback.Cancel{}))},
	}
}

func (m *Machine) favoritesView(s *session.Session) View {
	favs := s.Favorites.Items()
	if len(favs) == 0 {
		return View{
			Text:    "⭐ No favorites yet. Add one from a market or position screen.",
			Buttons: [][]Button{row(btn("🛒 Buy", callback.StartBuy{}), btn("🏠 Menu", callback.Menu{}))},
		}
	}

	var b strings.Builder
	b.WriteString("⭐ Favorites\n")
	var rows [][]Button
	for i, f := range favs {
		fmt.Fprintf(&b, "\n%d. %s\n   %s · last %s\n", i+1, f.Label, f.Outcome, cents(f.Price))
		ref := s.Favorites.Ref(i)
		rows = append(rows, row(
			btn(fmt.Sprintf("%d. %s %s", i+1, f.Outcome, truncate(f.Label, questionWidth-8)), callback.SelectFavorite{Ref: ref}),
			btn("🗑", callback.DeleteFavorite{Ref: ref}),
		))
	}
	rows = append(rows, row(btn("🏠 Menu", callback.Menu{})))
	return View{Text: strings.TrimRight(b.String(), "\n"), Buttons: rows}
}

func (m *Machine) boundsText(e *domain.OutOfBoundsError) string {
	if e.Field == "percent" {
		switch e.Bound {
		case domain.BoundMin:
			return "⚠️ Percent must be at least 1. Enter a value between 1 and 100:"
		case domain.BoundMax:
			return "⚠️ Percent cannot exceed 100. Enter a value between 1 and 100:"
		}
		return "⚠️ Please enter a whole number between 1 and 100:"
	}
	switch e.Bound {
	case domain.BoundMin:
		return fmt.Sprintf("⚠️ Minimum amount is $%s. Enter an amount between $%s and $%s:",
			money(e.Limit), money(m.cfg.MinUSD), money(m.cfg.MaxUSD))
	case domain.BoundMax:
		return fmt.Sprintf("⚠️ Maximum amount is $%s. Enter an amount between $%s and $%s:",
			money(e.Limit), money(m.cfg.MinUSD), money(m.cfg.MaxUSD))
	}
	return fmt.Sprintf("⚠️ Please enter a number between $%s and $%s:", money(m.cfg.MinUSD), money(m.cfg.MaxUSD))
}

// outcomeLabel prefers the listing's own outcome name ("Up", "Lakers") and
// falls back to YES/NO.
func outcomeLabel(o domain.Outcome, side domain.Side) string {
	if o.Label != "" {
		return o.Label
	}
	return side.String()
}

func cents(price float64) string {
	return fmt.Sprintf("%.1f¢", price*100)
}

// money formats whole dollars without decimals and everything else with two.
func money(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func signedUSD(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("+$%.2f", v)
}

func usdCompact(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("$%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.1fK", v/1_000)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
