package engine

import "time"

// Action is a player's betting move. CHECK doubles as call: it always matches
// the table's current bet, paying whatever is owed (possibly nothing).
type Action string

const (
	ActionCheck Action = "CHECK"
	ActionRaise Action = "RAISE"
	ActionFold  Action = "FOLD"
)

// openPreflop starts the first betting round once every contending seat holds
// its hole cards. Blinds are already posted as current bets.
func (ts *TableState) openPreflop(at time.Time) error {
	h := ts.Hand
	h.State = StateBetting
	h.BetCount = 0
	h.RequiredBetCount = ts.countActive()
	h.LastRaiseBy = ts.Table.BigBlind
	// The amount to match is the full big blind even when its poster could
	// only cover part of it.
	h.RoundMaxBet = ts.Table.BigBlind
	if ts.countActive() == 0 {
		return ts.closeBettingRound(at)
	}
	first := ts.firstToActPreflop()
	if first == nil {
		return ts.closeBettingRound(at)
	}
	h.AssignedSeatID = first.ID
	h.TurnStartedAt = at
	return nil
}

// openBettingRound starts a postflop betting round. With nobody left to act
// (everyone all-in) the round closes immediately and the runout continues.
func (ts *TableState) openBettingRound(at time.Time) error {
	h := ts.Hand
	h.State = StateBetting
	h.BetCount = 0
	h.RequiredBetCount = ts.countActive()
	h.LastRaiseBy = ts.Table.BigBlind
	h.RoundMaxBet = 0
	if ts.countActive() == 0 {
		return ts.closeBettingRound(at)
	}
	first := ts.firstToActPostflop()
	if first == nil {
		return ts.closeBettingRound(at)
	}
	h.AssignedSeatID = first.ID
	h.TurnStartedAt = at
	return nil
}

// PlayerAction applies a betting action for the seat whose turn it is.
// For RAISE, amount is the raise-to total for the round; CHECK and FOLD
// ignore it.
func (ts *TableState) PlayerAction(seatID string, action Action, amount int64, forced bool, at time.Time) error {
	h := ts.Hand
	if !ts.HandInProgress() {
		return Preconditionf(CodeNoActiveGame, "no hand in progress")
	}
	if h.State != StateBetting {
		return Preconditionf(CodeWrongState, "table is %s, not betting", h.State)
	}
	seat := ts.seatByID(seatID)
	if seat == nil {
		return Validationf("unknown seat %s", seatID)
	}
	if seat.ID != h.AssignedSeatID {
		return Preconditionf(CodeNotYourTurn, "seat %d is not up", seat.SeatNumber)
	}
	if seat.Status != SeatActive {
		return Preconditionf(CodeWrongState, "seat %d cannot act", seat.SeatNumber)
	}

	switch action {
	case ActionCheck:
		ts.applyCheck(seat, forced, at)
	case ActionRaise:
		if err := ts.applyRaise(seat, amount, at); err != nil {
			return err
		}
	case ActionFold:
		seat.Status = SeatFolded
		seat.LastAction = "fold"
		ts.emit(EventPlayerAction, PlayerActionPayload{
			SeatID:       seat.ID,
			Action:       string(ActionFold),
			ResultingBet: seat.CurrentBet,
			Forced:       forced,
		}, at)
	default:
		return Validationf("unknown action %q", action)
	}

	h.BetCount++
	return ts.afterAction(at)
}

// applyCheck matches the current bet, paying the shortfall. A seat that
// cannot cover goes all-in for its remaining stack.
func (ts *TableState) applyCheck(seat *Seat, forced bool, at time.Time) {
	h := ts.Hand
	owed := h.RoundMaxBet - seat.CurrentBet
	pay := min64(owed, seat.BuyIn)
	seat.BuyIn -= pay
	seat.CurrentBet += pay

	name := "check"
	if owed > 0 {
		name = "call"
	}
	allIn := seat.BuyIn == 0
	if allIn {
		seat.Status = SeatAllIn
	}
	seat.LastAction = name
	ts.emit(EventPlayerAction, PlayerActionPayload{
		SeatID:       seat.ID,
		Action:       string(ActionCheck),
		Amount:       pay,
		ResultingBet: seat.CurrentBet,
		AllIn:        allIn,
		Forced:       forced,
	}, at)
}

// applyRaise raises the round bet to amount. A full raise must add at least
// the previous raise increment and reopens the action; a smaller raise is
// only legal as an all-in and does not reset the increment.
func (ts *TableState) applyRaise(seat *Seat, amount int64, at time.Time) error {
	h := ts.Hand
	if amount <= h.RoundMaxBet {
		return Preconditionf(CodeInvalidRaise, "raise to %d does not exceed current bet %d", amount, h.RoundMaxBet)
	}
	delta := amount - seat.CurrentBet
	if delta > seat.BuyIn {
		return Preconditionf(CodeInsufficientChips, "raise to %d needs %d more chips, stack has %d", amount, delta, seat.BuyIn)
	}

	minFull := h.RoundMaxBet + h.LastRaiseBy
	full := amount >= minFull
	if !full && delta != seat.BuyIn {
		return Preconditionf(CodeInvalidRaise, "raise to %d is below the minimum %d and is not all-in", amount, minFull)
	}

	seat.BuyIn -= delta
	seat.CurrentBet = amount
	if full {
		h.LastRaiseBy = amount - h.RoundMaxBet
		h.RequiredBetCount = h.BetCount + 1 + ts.countWhere(func(s *Seat) bool {
			return s.Status == SeatActive && s.ID != seat.ID
		})
	}
	h.RoundMaxBet = amount

	allIn := seat.BuyIn == 0
	if allIn {
		seat.Status = SeatAllIn
	}
	seat.LastAction = "raise"
	ts.emit(EventPlayerAction, PlayerActionPayload{
		SeatID:       seat.ID,
		Action:       string(ActionRaise),
		Amount:       delta,
		ResultingBet: seat.CurrentBet,
		AllIn:        allIn,
	}, at)
	return nil
}

// afterAction advances the hand: fold-win if one contender remains, close the
// round when action is settled, otherwise pass the turn clockwise.
func (ts *TableState) afterAction(at time.Time) error {
	h := ts.Hand
	if ts.countInHand() <= 1 {
		return ts.resolveFoldWin(at)
	}
	if ts.countActive() == 0 || (h.BetCount >= h.RequiredBetCount && ts.allActiveMatched()) {
		return ts.closeBettingRound(at)
	}
	next := ts.nextActive(ts.seatIndexByID(h.AssignedSeatID))
	if next == nil {
		return ts.closeBettingRound(at)
	}
	h.AssignedSeatID = next.ID
	h.TurnStartedAt = at
	return nil
}

// allActiveMatched reports whether every seat still able to act has matched
// the round's current bet.
func (ts *TableState) allActiveMatched() bool {
	for _, s := range ts.Seats {
		if s.Status == SeatActive && s.CurrentBet != ts.Hand.RoundMaxBet {
			return false
		}
	}
	return true
}

// closeBettingRound sweeps the round's bets into the pot and advances to the
// next street, or to showdown after the river.
func (ts *TableState) closeBettingRound(at time.Time) error {
	h := ts.Hand
	for _, s := range ts.Seats {
		if s.CurrentBet > 0 {
			h.PotTotal += s.CurrentBet
			s.Contributed += s.CurrentBet
			s.CurrentBet = 0
		}
		if s.Status == SeatActive {
			s.LastAction = ""
		}
	}
	h.AssignedSeatID = ""
	h.RoundMaxBet = 0

	var street string
	var next HandState
	switch len(h.CommunityCards) {
	case 0:
		street, next = "PREFLOP", StateDealFlop
	case 3:
		street, next = "FLOP", StateDealTurn
	case 4:
		street, next = "TURN", StateDealRiver
	default:
		street, next = "RIVER", StateShowdown
	}
	h.State = next
	ts.emit(EventStreetClosed, StreetClosedPayload{
		Street:   street,
		PotTotal: h.PotTotal,
		SidePots: ComputePots(ts.Seats),
	}, at)

	if next == StateShowdown {
		return ts.resolveShowdown(at)
	}
	return nil
}
