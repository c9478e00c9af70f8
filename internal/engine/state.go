// Package engine implements the authoritative hold'em table state machine:
// turn rotation, betting rounds, pot layering, card dealing and showdown.
//
// Everything in this package is a pure function over a loaded TableState
// snapshot. Locking, transactions and event delivery live in the table
// mutator; this package only stages events on the snapshot.
package engine

import (
	"time"

	"github.com/chenaaron3/huffleshuffle-engine/internal/card"
)

// MaxSeats is the seat capacity of a table
const MaxSeats = 8

// HoleCards is the number of hole cards each seat receives
const HoleCards = 2

// Table holds the static table row
type Table struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DealerUserID string `json:"dealerUserId"`
	SmallBlind   int64  `json:"smallBlind"`
	BigBlind     int64  `json:"bigBlind"`
}

// SeatStatus is the per-hand status of a seat
type SeatStatus string

const (
	SeatActive     SeatStatus = "active"
	SeatFolded     SeatStatus = "folded"
	SeatAllIn      SeatStatus = "all-in"
	SeatEliminated SeatStatus = "eliminated"
)

// InHand reports whether the seat still contends for the pot
func (s SeatStatus) InHand() bool {
	return s == SeatActive || s == SeatAllIn
}

// Seat is one seat row. Cards are stored as two-character codes.
type Seat struct {
	ID         string
	TableID    string
	PlayerID   string
	SeatNumber int
	BuyIn      int64
	CurrentBet int64
	// Contributed is the seat's cumulative chips across all closed streets of
	// the current hand. Side-pot layers are computed over it.
	Contributed int64
	Cards       []string
	Status      SeatStatus
	LastAction  string
}

// HandStatus is the lifecycle status of a hand row
type HandStatus string

const (
	HandActive    HandStatus = "active"
	HandCompleted HandStatus = "completed"
)

// HandState is the dealing/betting state of a hand
type HandState string

const (
	StateDealHoleCards HandState = "DEAL_HOLE_CARDS"
	StateBetting       HandState = "BETTING"
	StateDealFlop      HandState = "DEAL_FLOP"
	StateDealTurn      HandState = "DEAL_TURN"
	StateDealRiver     HandState = "DEAL_RIVER"
	StateShowdown      HandState = "SHOWDOWN"
	StateResetTable    HandState = "RESET_TABLE"
)

// Dealing reports whether the state accepts DEAL_CARD commands
func (s HandState) Dealing() bool {
	switch s {
	case StateDealHoleCards, StateDealFlop, StateDealTurn, StateDealRiver:
		return true
	}
	return false
}

// Hand is one hand row
type Hand struct {
	ID               string
	TableID          string
	Status           HandStatus
	State            HandState
	ButtonSeatID     string
	SmallBlindSeatID string
	BigBlindSeatID   string
	AssignedSeatID   string
	CommunityCards   []string
	PotTotal         int64
	BetCount         int
	RequiredBetCount int
	LastRaiseBy      int64 // current min-raise increment
	RoundMaxBet      int64
	EventSeq         int
	TurnStartedAt    time.Time
}

// TableState is the transactional snapshot the mutator loads and the engine
// mutates: the table row, its seats ordered by seat number, and the current
// hand (nil before the first START_GAME).
type TableState struct {
	Table *Table
	Seats []*Seat
	Hand  *Hand

	staged []Event
}

// Events returns the events staged by the commands applied to this snapshot,
// in emission order.
func (ts *TableState) Events() []Event {
	return ts.staged
}

func (ts *TableState) emit(kind EventKind, payload any, at time.Time) {
	handID := ""
	seq := 0
	if ts.Hand != nil {
		handID = ts.Hand.ID
		ts.Hand.EventSeq++
		seq = ts.Hand.EventSeq
	}
	ts.staged = append(ts.staged, Event{
		TableID:   ts.Table.ID,
		HandID:    handID,
		Seq:       seq,
		Timestamp: at,
		Kind:      kind,
		Payload:   payload,
	})
}

// seatByID returns the seat with the given id, or nil
func (ts *TableState) seatByID(id string) *Seat {
	for _, s := range ts.Seats {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// seatIndexByID returns the index of the seat with the given id, or -1
func (ts *TableState) seatIndexByID(id string) int {
	for i, s := range ts.Seats {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// SeatByPlayer returns the seat occupied by the given player, or nil
func (ts *TableState) SeatByPlayer(playerID string) *Seat {
	for _, s := range ts.Seats {
		if s.PlayerID == playerID {
			return s
		}
	}
	return nil
}

// HandInProgress reports whether a hand is currently being played
func (ts *TableState) HandInProgress() bool {
	return ts.Hand != nil && ts.Hand.Status == HandActive
}

// DealtCards returns the set of card codes already dealt in the current hand,
// derived from the community cards and every seat's hole cards. There is no
// independent deck row to keep in sync.
func (ts *TableState) DealtCards() map[string]bool {
	dealt := make(map[string]bool)
	if ts.Hand != nil {
		for _, c := range ts.Hand.CommunityCards {
			dealt[c] = true
		}
	}
	for _, s := range ts.Seats {
		for _, c := range s.Cards {
			dealt[c] = true
		}
	}
	return dealt
}

// ChipsAtTable sums all chips visible at the table: stacks, bets in front and
// the pot. Conserved across every command of a hand.
func (ts *TableState) ChipsAtTable() int64 {
	var total int64
	for _, s := range ts.Seats {
		total += s.BuyIn + s.CurrentBet
	}
	if ts.Hand != nil {
		total += ts.Hand.PotTotal
	}
	return total
}

// SnapshotSeat is a seat as exposed to a viewer, with hole cards redacted
type SnapshotSeat struct {
	ID         string     `json:"id"`
	PlayerID   string     `json:"playerId"`
	SeatNumber int        `json:"seatNumber"`
	BuyIn      int64      `json:"buyIn"`
	CurrentBet int64      `json:"currentBet"`
	Cards      []string   `json:"cards"`
	Status     SeatStatus `json:"status"`
	LastAction string     `json:"lastAction,omitempty"`
}

// SnapshotHand is the hand as exposed to a viewer
type SnapshotHand struct {
	ID             string     `json:"id"`
	Status         HandStatus `json:"status"`
	State          HandState  `json:"state"`
	ButtonSeatID   string     `json:"buttonSeatId"`
	AssignedSeatID string     `json:"assignedSeatId"`
	CommunityCards []string   `json:"communityCards"`
	PotTotal       int64      `json:"potTotal"`
	RoundMaxBet    int64      `json:"roundMaxBet"`
	TurnStartedAt  time.Time  `json:"turnStartedAt"`
}

// Snapshot is the read model for one viewer
type Snapshot struct {
	Table *Table         `json:"table"`
	Seats []SnapshotSeat `json:"seats"`
	Hand  *SnapshotHand  `json:"hand,omitempty"`
}

// Snapshot builds the viewer-facing read model. Hole cards of other players
// are replaced by the FD sentinel until showdown. The dealer sees redacted
// cards as well unless dealerSeesCards policy is enabled.
func (ts *TableState) Snapshot(viewerUserID string, dealerSeesCards bool) Snapshot {
	reveal := ts.Hand != nil && ts.Hand.State == StateShowdown
	viewerIsDealer := viewerUserID != "" && viewerUserID == ts.Table.DealerUserID

	seats := make([]SnapshotSeat, len(ts.Seats))
	for i, s := range ts.Seats {
		cards := make([]string, len(s.Cards))
		if reveal || s.PlayerID == viewerUserID || (viewerIsDealer && dealerSeesCards) {
			copy(cards, s.Cards)
		} else {
			for j := range cards {
				cards[j] = card.FaceDown
			}
		}
		seats[i] = SnapshotSeat{
			ID:         s.ID,
			PlayerID:   s.PlayerID,
			SeatNumber: s.SeatNumber,
			BuyIn:      s.BuyIn,
			CurrentBet: s.CurrentBet,
			Cards:      cards,
			Status:     s.Status,
			LastAction: s.LastAction,
		}
	}

	snap := Snapshot{Table: ts.Table, Seats: seats}
	if ts.Hand != nil {
		community := make([]string, len(ts.Hand.CommunityCards))
		copy(community, ts.Hand.CommunityCards)
		snap.Hand = &SnapshotHand{
			ID:             ts.Hand.ID,
			Status:         ts.Hand.Status,
			State:          ts.Hand.State,
			ButtonSeatID:   ts.Hand.ButtonSeatID,
			AssignedSeatID: ts.Hand.AssignedSeatID,
			CommunityCards: community,
			PotTotal:       ts.Hand.PotTotal,
			RoundMaxBet:    ts.Hand.RoundMaxBet,
			TurnStartedAt:  ts.Hand.TurnStartedAt,
		}
	}
	return snap
}
