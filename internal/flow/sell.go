package flow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alanyoungcy/polytgbot/internal/domain"
	"github.com/alanyoungcy/polytgbot/internal/session"
)

func (m *Machine) showPositions(ctx context.Context, s *session.Session) View {
	positions, err := m.market.ListPositions(ctx, s.UserID)
	if err != nil {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: list positions: %w", err), scopePosition)
	}
	s.Positions.Publish(positions)
	return m.positionsView(s)
}

func (m *Machine) selectPosition(ctx context.Context, s *session.Session, ref domain.Ref) View {
	pos, err := s.Positions.Resolve(ref.Gen, ref.Index)
	if err != nil {
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: select position: %w", err), scopePosition)
	}
	in := startSell(s, pos, ref)
	return m.positionDetailView(in)
}

func startSell(s *session.Session, pos domain.Position, ref domain.Ref) *domain.Intent {
	in := s.NewIntent(domain.IntentSell)
	in.Position = &pos
	in.PositionRef = ref
	in.OutcomeID = pos.TokenID
	in.Outcome = pos.Outcome
	in.Price = pos.CurrentPrice
	in.Stage = domain.StagePositionChosen
	return in
}

// sellIntentFor resolves a position reference for an action scoped to an
// already selected position. The session's current selection wins when it
// was made from the same reference; otherwise the reference must resolve in
// the current positions table, which starts a new sell intent.
func sellIntentFor(s *session.Session, ref domain.Ref) (*domain.Intent, error) {
	if in, ok := s.CurrentIntent(domain.IntentSell); ok &&
		in.Position != nil && in.PositionRef == ref &&
		in.Stage >= domain.StagePositionChosen && in.Stage < domain.StageConfirmed {
		return in, nil
	}
	pos, err := s.Positions.Resolve(ref.Gen, ref.Index)
	if err != nil {
		return nil, fmt.Errorf("flow: position %d/%d: %w", ref.Gen, ref.Index, err)
	}
	return startSell(s, pos, ref), nil
}

func (m *Machine) sellPercent(ctx context.Context, s *session.Session, ref domain.Ref, pct int) View {
	in, err := sellIntentFor(s, ref)
	if err != nil {
		return m.failure(ctx, s.UserID, err, scopePosition)
	}
	if err := checkPercent(pct); err != nil {
		return m.failure(ctx, s.UserID, err, scopePosition)
	}
	in.Percent = pct
	in.Stage = domain.StagePercentChosen
	return m.sellConfirmView(in)
}

func (m *Machine) customPercent(ctx context.Context, s *session.Session, ref domain.Ref) View {
	in, err := sellIntentFor(s, ref)
	if err != nil {
		return m.failure(ctx, s.UserID, err, scopePosition)
	}
	in.Percent = 0
	in.Stage = domain.StagePositionChosen
	s.Waiting = session.WaitPercent
	return m.percentPromptView(in)
}

func (m *Machine) enterPercent(ctx context.Context, s *session.Session, text string) View {
	in, ok := s.CurrentIntent(domain.IntentSell)
	if !ok || in.Position == nil || in.Stage != domain.StagePositionChosen {
		s.Waiting = session.WaitNone
		return m.failure(ctx, s.UserID, fmt.Errorf("flow: percent without position: %w", domain.ErrSessionExpired), scopePosition)
	}

	pct, err := parsePercent(text)
	if err != nil {
		// Stay in WaitPercent; the view echoes the violated bound.
		return m.failure(ctx, s.UserID, err, scopePosition)
	}

	s.Waiting = session.WaitNone
	in.Percent = pct
	in.Stage = domain.StagePercentChosen
	return m.sellConfirmView(in)
}

func parsePercent(text string) (int, error) {
	clean := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "%"))
	v, err := strconv.Atoi(clean)
	if err != nil {
		return 0, &domain.OutOfBoundsError{Field: "percent", Bound: domain.BoundNaN, Limit: 1}
	}
	if err := checkPercent(v); err != nil {
		return 0, err
	}
	return v, nil
}

func checkPercent(pct int) error {
	if pct < 1 {
		return &domain.OutOfBoundsError{Field: "percent", Bound: domain.BoundMin, Limit: 1, Value: float64(pct)}
	}
	if pct > 100 {
		return &domain.OutOfBoundsError{Field: "percent", Bound: domain.BoundMax, Limit: 100, Value: float64(pct)}
	}
	return nil
}
