package engine

import (
	"time"

	"github.com/chenaaron3/huffleshuffle-engine/internal/card"
)

// StartHand begins a new hand with the given id. The button advances
// clockwise to the next funded seat, blinds are posted (short stacks post
// all-in for less) and the dealer is expected to deal hole cards starting at
// the small blind.
func (ts *TableState) StartHand(handID string, at time.Time) error {
	if ts.HandInProgress() {
		return Preconditionf(CodeWrongState, "a hand is already in progress")
	}

	// Seats that busted earlier and never rebought sit out for good.
	for _, s := range ts.Seats {
		if s.Status != SeatEliminated && s.BuyIn == 0 {
			s.Status = SeatEliminated
		}
	}

	prevButton := ""
	if ts.Hand != nil {
		prevButton = ts.Hand.ButtonSeatID
	}

	participants := ts.participants()
	if len(participants) < 2 {
		return Preconditionf(CodeWrongState, "need at least two funded seats to start a hand")
	}
	for _, s := range participants {
		s.Status = SeatActive
		s.Cards = nil
		s.CurrentBet = 0
		s.Contributed = 0
		s.LastAction = ""
	}

	button, small, big := ts.positions(prevButton)
	if button == nil || small == nil || big == nil {
		return Fatalf("could not assign positions for %d participants", len(participants))
	}

	ts.Hand = &Hand{
		ID:               handID,
		TableID:          ts.Table.ID,
		Status:           HandActive,
		State:            StateDealHoleCards,
		ButtonSeatID:     button.ID,
		SmallBlindSeatID: small.ID,
		BigBlindSeatID:   big.ID,
		AssignedSeatID:   small.ID,
		TurnStartedAt:    at,
	}
	ts.emit(EventHandStarted, HandStartedPayload{
		HandID:           handID,
		ButtonSeatID:     button.ID,
		SmallBlindSeatID: small.ID,
		BigBlindSeatID:   big.ID,
		SmallBlind:       ts.Table.SmallBlind,
		BigBlind:         ts.Table.BigBlind,
	}, at)

	ts.postBlind(small, "SB", ts.Table.SmallBlind, at)
	ts.postBlind(big, "BB", ts.Table.BigBlind, at)
	return nil
}

// postBlind takes a forced bet from a seat, going all-in when the stack does
// not cover the blind.
func (ts *TableState) postBlind(seat *Seat, kind string, blind int64, at time.Time) {
	pay := min64(blind, seat.BuyIn)
	seat.BuyIn -= pay
	seat.CurrentBet = pay
	allIn := seat.BuyIn == 0
	if allIn {
		seat.Status = SeatAllIn
	}
	ts.emit(EventBetPosted, BetPostedPayload{
		SeatID: seat.ID,
		Kind:   kind,
		Amount: pay,
		AllIn:  allIn,
	}, at)
}

// DealCard records a scanned or manually entered card. During
// DEAL_HOLE_CARDS the card goes to the assigned seat and the turn rotates
// clockwise; on community streets it goes to the board. Dealing the same card
// twice in a hand is rejected without changing state.
func (ts *TableState) DealCard(code string, at time.Time) error {
	if !ts.HandInProgress() {
		return Preconditionf(CodeNoActiveGame, "no hand in progress")
	}
	h := ts.Hand
	if !h.State.Dealing() {
		return Preconditionf(CodeWrongState, "table is %s, not dealing", h.State)
	}
	if !card.Valid(code) {
		return Validationf("invalid card code %q", code)
	}
	if ts.DealtCards()[code] {
		return Preconditionf(CodeCardAlreadyDealt, "card %s was already dealt this hand", code)
	}

	if h.State == StateDealHoleCards {
		seat := ts.seatByID(h.AssignedSeatID)
		if seat == nil {
			return Fatalf("assigned seat %s not found", h.AssignedSeatID)
		}
		seat.Cards = append(seat.Cards, code)
		ts.emit(EventCardDealt, CardDealtPayload{
			Target: seat.ID,
			Card:   code,
		}, at)
		if ts.holeCardsComplete() {
			return ts.openPreflop(at)
		}
		next := ts.nextInHand(ts.seatIndexByID(seat.ID))
		if next == nil {
			return Fatalf("no seat to deal to after %s", seat.ID)
		}
		h.AssignedSeatID = next.ID
		return nil
	}

	h.CommunityCards = append(h.CommunityCards, code)
	ts.emit(EventCardDealt, CardDealtPayload{
		Target: CommunityTarget,
		Card:   code,
	}, at)

	var target int
	switch h.State {
	case StateDealFlop:
		target = 3
	case StateDealTurn:
		target = 4
	default:
		target = 5
	}
	if len(h.CommunityCards) == target {
		return ts.openBettingRound(at)
	}
	return nil
}

// holeCardsComplete reports whether every contending seat holds its full set
// of hole cards.
func (ts *TableState) holeCardsComplete() bool {
	for _, s := range ts.Seats {
		if s.Status.InHand() && len(s.Cards) < HoleCards {
			return false
		}
	}
	return true
}

// ResetTable aborts the current hand. Every chip wagered this hand returns to
// the stack it came from, so the table holds exactly what it held before the
// hand started.
func (ts *TableState) ResetTable(at time.Time) error {
	if !ts.HandInProgress() {
		return Preconditionf(CodeNoActiveGame, "no hand to reset")
	}
	h := ts.Hand
	for _, s := range ts.Seats {
		refund := s.Contributed + s.CurrentBet
		s.BuyIn += refund
		s.Contributed = 0
		s.CurrentBet = 0
		s.Cards = nil
		s.LastAction = ""
		if s.Status == SeatFolded || s.Status == SeatAllIn || s.Status == SeatActive {
			if s.BuyIn == 0 {
				s.Status = SeatEliminated
			} else {
				s.Status = SeatActive
			}
		}
	}
	h.PotTotal = 0
	h.CommunityCards = nil
	h.Status = HandCompleted
	h.State = StateResetTable
	h.AssignedSeatID = ""
	ts.emit(EventHandCompleted, HandCompletedPayload{
		HandID:     h.ID,
		SeatDeltas: ts.seatDeltas(),
	}, at)
	return nil
}

// seatDeltas captures each seat's closing position for HAND_COMPLETED
func (ts *TableState) seatDeltas() []SeatDelta {
	deltas := make([]SeatDelta, len(ts.Seats))
	for i, s := range ts.Seats {
		deltas[i] = SeatDelta{SeatID: s.ID, BuyIn: s.BuyIn, Status: s.Status}
	}
	return deltas
}

// AddSeat seats a player at the table. Seats change only between hands; a
// player arriving mid-hand retries after the hand resolves.
func (ts *TableState) AddSeat(seatID, playerID string, seatNumber int, buyIn int64, at time.Time) (*Seat, error) {
	if ts.HandInProgress() {
		return nil, Preconditionf(CodeWrongState, "cannot join while a hand is in progress")
	}
	if buyIn <= 0 {
		return nil, Validationf("buy-in must be positive, got %d", buyIn)
	}
	if seatNumber < 0 || seatNumber >= MaxSeats {
		return nil, Validationf("seat number %d out of range 0-%d", seatNumber, MaxSeats-1)
	}
	if len(ts.Seats) >= MaxSeats {
		return nil, Preconditionf(CodeTableFull, "all %d seats are taken", MaxSeats)
	}
	if ts.SeatByPlayer(playerID) != nil {
		return nil, Validationf("player %s is already seated", playerID)
	}
	for _, s := range ts.Seats {
		if s.SeatNumber == seatNumber {
			return nil, Preconditionf(CodeTableFull, "seat %d is taken", seatNumber)
		}
	}

	seat := &Seat{
		ID:         seatID,
		TableID:    ts.Table.ID,
		PlayerID:   playerID,
		SeatNumber: seatNumber,
		BuyIn:      buyIn,
		Status:     SeatActive,
	}

	// Keep the ring ordered by seat number.
	pos := len(ts.Seats)
	for i, s := range ts.Seats {
		if s.SeatNumber > seatNumber {
			pos = i
			break
		}
	}
	ts.Seats = append(ts.Seats, nil)
	copy(ts.Seats[pos+1:], ts.Seats[pos:])
	ts.Seats[pos] = seat

	ts.emit(EventPlayerJoined, PlayerJoinedPayload{
		SeatID:     seatID,
		PlayerID:   playerID,
		SeatNumber: seatNumber,
		BuyIn:      buyIn,
	}, at)
	return seat, nil
}

// RemoveSeat vacates a seat and returns the stack to cash out. Nobody leaves
// while a hand runs, folded seats included: a folded seat's contributions are
// still layered into the pots at showdown, so removing the row mid-hand would
// strand chips the pot engine can no longer see.
func (ts *TableState) RemoveSeat(seatID string, at time.Time) (int64, error) {
	i := ts.seatIndexByID(seatID)
	if i < 0 {
		return 0, Validationf("unknown seat %s", seatID)
	}
	seat := ts.Seats[i]
	if ts.HandInProgress() {
		return 0, Preconditionf(CodeCannotLeaveMidHand, "seat %d cannot leave during a hand", seat.SeatNumber)
	}

	cashOut := seat.BuyIn
	ts.Seats = append(ts.Seats[:i], ts.Seats[i+1:]...)
	// The ring compacts so seat numbers stay 0..n-1.
	for j, s := range ts.Seats {
		s.SeatNumber = j
	}
	ts.emit(EventPlayerLeft, PlayerLeftPayload{
		SeatID:   seat.ID,
		PlayerID: seat.PlayerID,
		CashOut:  cashOut,
	}, at)
	return cashOut, nil
}
