package engine

import "time"

// EventKind is the wire name of a table event
type EventKind string

const (
	EventHandStarted   EventKind = "HAND_STARTED"
	EventCardDealt     EventKind = "CARD_DEALT"
	EventBetPosted     EventKind = "BET_POSTED"
	EventPlayerAction  EventKind = "PLAYER_ACTION"
	EventStreetClosed  EventKind = "STREET_CLOSED"
	EventShowdown      EventKind = "SHOWDOWN"
	EventHandCompleted EventKind = "HAND_COMPLETED"
	EventPlayerJoined  EventKind = "PLAYER_JOINED"
	EventPlayerLeft    EventKind = "PLAYER_LEFT"
)

// CommunityTarget marks a CARD_DEALT event for the board
const CommunityTarget = "community"

// Event is one entry of a hand's ordered event log. Seq increases by one per
// event within a hand; replaying events in seq order reproduces the hand.
type Event struct {
	TableID   string    `json:"tableId"`
	HandID    string    `json:"handId,omitempty"`
	Seq       int       `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Kind      EventKind `json:"kind"`
	Payload   any       `json:"payload"`
}

// HandStartedPayload announces a new hand and its positions
type HandStartedPayload struct {
	HandID           string `json:"handId"`
	ButtonSeatID     string `json:"dealerButtonSeatId"`
	SmallBlindSeatID string `json:"smallBlindSeatId"`
	BigBlindSeatID   string `json:"bigBlindSeatId"`
	SmallBlind       int64  `json:"smallBlind"`
	BigBlind         int64  `json:"bigBlind"`
}

// CardDealtPayload records a dealt card. Target is "community" or the
// receiving seat id. Broadcasts redact hole-card codes to the face-down
// sentinel; the stored event keeps the code.
type CardDealtPayload struct {
	Target string `json:"target"`
	Card   string `json:"card"`
}

// BetPostedPayload records a forced blind post
type BetPostedPayload struct {
	SeatID string `json:"seatId"`
	Kind   string `json:"kind"` // "SB" or "BB"
	Amount int64  `json:"amount"`
	AllIn  bool   `json:"allIn,omitempty"`
}

// PlayerActionPayload records a voluntary action
type PlayerActionPayload struct {
	SeatID       string `json:"seatId"`
	Action       string `json:"action"` // "RAISE", "CHECK", "FOLD"
	Amount       int64  `json:"amount,omitempty"`
	ResultingBet int64  `json:"resultingBet"`
	AllIn        bool   `json:"allIn,omitempty"`
	Forced       bool   `json:"forced,omitempty"` // timeout fold
}

// StreetClosedPayload records the end of a betting round
type StreetClosedPayload struct {
	Street   string    `json:"street"` // "PREFLOP", "FLOP", "TURN", "RIVER"
	PotTotal int64     `json:"potTotal"`
	SidePots []SidePot `json:"sidePots"`
}

// SeatEvaluation is one revealed hand at showdown
type SeatEvaluation struct {
	SeatID      string   `json:"seatId"`
	HoleCards   []string `json:"holeCards"`
	HandName    string   `json:"handName"`
	WinningFive []string `json:"winningFive"`
}

// Payout is one transfer from a pot layer to a seat
type Payout struct {
	SeatID       string `json:"seatId"`
	Amount       int64  `json:"amount"`
	SidePotIndex int    `json:"sidePotIndex"`
}

// ShowdownPayload records revealed cards and pot resolution. On a fold-win
// there is nothing to reveal and a single payout.
type ShowdownPayload struct {
	Evaluations []SeatEvaluation `json:"evaluations,omitempty"`
	Payouts     []Payout         `json:"payouts"`
	FoldWin     bool             `json:"foldWin,omitempty"`
}

// SeatDelta is a seat's position after a hand closes
type SeatDelta struct {
	SeatID string     `json:"seatId"`
	BuyIn  int64      `json:"buyIn"`
	Status SeatStatus `json:"status"`
}

// HandCompletedPayload closes the hand's event log
type HandCompletedPayload struct {
	HandID     string      `json:"handId"`
	SeatDeltas []SeatDelta `json:"seatDeltas"`
}

// PlayerJoinedPayload records a seat being taken
type PlayerJoinedPayload struct {
	SeatID     string `json:"seatId"`
	PlayerID   string `json:"playerId"`
	SeatNumber int    `json:"seatNumber"`
	BuyIn      int64  `json:"buyIn"`
}

// PlayerLeftPayload records a seat being vacated
type PlayerLeftPayload struct {
	SeatID   string `json:"seatId"`
	PlayerID string `json:"playerId"`
	CashOut  int64  `json:"cashOut"`
}
