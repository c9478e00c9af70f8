package engine

import (
	"time"

	"github.com/chenaaron3/huffleshuffle-engine/internal/card"
	"github.com/chenaaron3/huffleshuffle-engine/internal/evaluator"
)

// resolveFoldWin ends the hand when a single contender remains. The survivor
// collects everything in the middle, including any uncalled bet of their own,
// without showing cards.
func (ts *TableState) resolveFoldWin(at time.Time) error {
	h := ts.Hand

	// The round may end mid-street; sweep outstanding bets first.
	for _, s := range ts.Seats {
		if s.CurrentBet > 0 {
			h.PotTotal += s.CurrentBet
			s.Contributed += s.CurrentBet
			s.CurrentBet = 0
		}
	}

	var winner *Seat
	for _, s := range ts.Seats {
		if s.Status.InHand() {
			winner = s
			break
		}
	}
	if winner == nil {
		return Fatalf("fold-win with no contender left")
	}

	amount := h.PotTotal
	winner.BuyIn += amount
	h.PotTotal = 0
	h.State = StateShowdown
	ts.emit(EventShowdown, ShowdownPayload{
		FoldWin: true,
		Payouts: []Payout{{SeatID: winner.ID, Amount: amount, SidePotIndex: 0}},
	}, at)
	return ts.completeHand(at)
}

// resolveShowdown evaluates the contenders against the board and pays out
// every pot layer. Each pot splits evenly among its strongest hands; an odd
// remainder goes to the winner closest to the button's left.
func (ts *TableState) resolveShowdown(at time.Time) error {
	h := ts.Hand
	if len(h.CommunityCards) != 5 {
		return Fatalf("showdown with %d community cards", len(h.CommunityCards))
	}
	board, err := card.ParseAll(h.CommunityCards)
	if err != nil {
		return Fatalf("bad community cards: %v", err)
	}

	var reveals []SeatEvaluation
	evals := make(map[string]evaluator.Evaluation)
	for _, s := range ts.Seats {
		if !s.Status.InHand() {
			continue
		}
		hole, err := card.ParseAll(s.Cards)
		if err != nil || len(hole) != HoleCards {
			return Fatalf("seat %d has invalid hole cards %v", s.SeatNumber, s.Cards)
		}
		ev, err := evaluator.Solve(append(append([]card.Card{}, hole...), board...))
		if err != nil {
			return Fatalf("evaluate seat %d: %v", s.SeatNumber, err)
		}
		evals[s.ID] = ev
		reveals = append(reveals, SeatEvaluation{
			SeatID:      s.ID,
			HoleCards:   append([]string{}, s.Cards...),
			HandName:    ev.Name,
			WinningFive: card.Codes(ev.WinningFive),
		})
	}

	var payouts []Payout
	for _, pot := range ComputePots(ts.Seats) {
		contenders := make([]evaluator.Evaluation, len(pot.Eligible))
		for i, id := range pot.Eligible {
			contenders[i] = evals[id]
		}
		winnerIdx := evaluator.Winners(contenders)
		winners := make([]string, len(winnerIdx))
		for i, wi := range winnerIdx {
			winners[i] = pot.Eligible[wi]
		}

		share := pot.Amount / int64(len(winners))
		remainder := pot.Amount % int64(len(winners))
		oddChip := ts.oddChipWinner(winners)
		for _, id := range winners {
			amount := share
			if remainder > 0 && id == oddChip {
				amount += remainder
			}
			ts.seatByID(id).BuyIn += amount
			payouts = append(payouts, Payout{SeatID: id, Amount: amount, SidePotIndex: pot.Index})
		}
	}

	h.PotTotal = 0
	ts.emit(EventShowdown, ShowdownPayload{
		Evaluations: reveals,
		Payouts:     payouts,
	}, at)
	return ts.completeHand(at)
}

// oddChipWinner picks the winner seated closest to the button's left, the
// conventional home for a chip that will not split.
func (ts *TableState) oddChipWinner(winners []string) string {
	bi := ts.seatIndexByID(ts.Hand.ButtonSeatID)
	n := len(ts.Seats)
	best := winners[0]
	bestDist := n + 1
	for _, id := range winners {
		wi := ts.seatIndexByID(id)
		dist := ((wi-bi-1)%n + n) % n
		if dist < bestDist {
			bestDist = dist
			best = id
		}
	}
	return best
}

// completeHand finalizes the hand row, busting every contender that ended
// with an empty stack. The hand rests in SHOWDOWN so the read model reveals
// shown-down cards; RESET_TABLE is reserved for dealer-initiated resets.
func (ts *TableState) completeHand(at time.Time) error {
	h := ts.Hand
	for _, s := range ts.Seats {
		if s.Status.InHand() && s.BuyIn == 0 {
			s.Status = SeatEliminated
		}
	}
	h.Status = HandCompleted
	h.AssignedSeatID = ""
	ts.emit(EventHandCompleted, HandCompletedPayload{
		HandID:     h.ID,
		SeatDeltas: ts.seatDeltas(),
	}, at)
	return nil
}
