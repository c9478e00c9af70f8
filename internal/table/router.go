package table

import (
	"context"

	"github.com/chenaaron3/huffleshuffle-engine/internal/engine"
	"github.com/chenaaron3/huffleshuffle-engine/internal/store"
)

// Role is the capacity a caller acts in
type Role string

const (
	RoleDealer  Role = "dealer"
	RolePlayer  Role = "player"
	RoleScanner Role = "scanner"
)

// CommandKind identifies a table command
type CommandKind string

const (
	CmdStartGame  CommandKind = "START_GAME"
	CmdResetTable CommandKind = "RESET_TABLE"
	CmdJoin       CommandKind = "JOIN"
	CmdLeave      CommandKind = "LEAVE"
	CmdDealCard   CommandKind = "DEAL_CARD"
	CmdRaise      CommandKind = "RAISE"
	CmdCheck      CommandKind = "CHECK"
	CmdFold       CommandKind = "FOLD"
)

// Command is the tagged union the router dispatches on. Amount is the
// raise-to total for RAISE and the buy-in for JOIN; Card is the two-character
// code for DEAL_CARD.
type Command struct {
	TableID    string      `json:"tableId"`
	Actor      Role        `json:"actorRole"`
	UserID     string      `json:"actorUserId"`
	Kind       CommandKind `json:"kind"`
	Amount     int64       `json:"amount,omitempty"`
	Card       string      `json:"card,omitempty"`
	SeatNumber int         `json:"seatNumber,omitempty"`
}

// allowedRoles is the authority matrix: which roles may issue which command.
var allowedRoles = map[CommandKind]map[Role]bool{
	CmdStartGame:  {RoleDealer: true},
	CmdResetTable: {RoleDealer: true},
	CmdJoin:       {RolePlayer: true},
	CmdLeave:      {RolePlayer: true},
	CmdDealCard:   {RoleDealer: true, RoleScanner: true},
	CmdRaise:      {RolePlayer: true},
	CmdCheck:      {RolePlayer: true},
	CmdFold:       {RolePlayer: true},
}

// Router validates authority and routes commands into the mutator
type Router struct {
	mutator *Mutator
	newID   func() string
}

// NewRouter creates a router dispatching into the given mutator. newID mints
// identifiers for hands and seats.
func NewRouter(m *Mutator, newID func() string) *Router {
	return &Router{mutator: m, newID: newID}
}

// Dispatch authorizes and executes one command, returning the committed
// state.
func (r *Router) Dispatch(ctx context.Context, cmd Command) (*engine.TableState, error) {
	if cmd.TableID == "" {
		return nil, engine.Validationf("command is missing a table id")
	}
	roles, ok := allowedRoles[cmd.Kind]
	if !ok {
		return nil, engine.Validationf("unknown command %q", cmd.Kind)
	}
	if !roles[cmd.Actor] {
		return nil, engine.Forbiddenf("role %s may not issue %s", cmd.Actor, cmd.Kind)
	}

	now := r.mutator.clock.Now().UTC()
	return r.mutator.Apply(ctx, cmd.TableID, func(tx *store.TableTx, ts *engine.TableState) error {
		// The dealer role is only as good as the user behind it.
		if cmd.Actor == RoleDealer && cmd.UserID != ts.Table.DealerUserID {
			return engine.Forbiddenf("user %s is not the dealer of table %s", cmd.UserID, ts.Table.ID)
		}

		switch cmd.Kind {
		case CmdStartGame:
			return ts.StartHand(r.newID(), now)

		case CmdResetTable:
			return ts.ResetTable(now)

		case CmdDealCard:
			return ts.DealCard(cmd.Card, now)

		case CmdJoin:
			if err := tx.DebitBalance(cmd.UserID, cmd.Amount); err != nil {
				return err
			}
			_, err := ts.AddSeat(r.newID(), cmd.UserID, cmd.SeatNumber, cmd.Amount, now)
			return err

		case CmdLeave:
			seat := ts.SeatByPlayer(cmd.UserID)
			if seat == nil {
				return engine.Validationf("player %s is not seated at table %s", cmd.UserID, ts.Table.ID)
			}
			cashOut, err := ts.RemoveSeat(seat.ID, now)
			if err != nil {
				return err
			}
			return tx.CreditBalance(cmd.UserID, cashOut)

		case CmdRaise, CmdCheck, CmdFold:
			seat := ts.SeatByPlayer(cmd.UserID)
			if seat == nil {
				return engine.Validationf("player %s is not seated at table %s", cmd.UserID, ts.Table.ID)
			}
			return ts.PlayerAction(seat.ID, actionFor(cmd.Kind), cmd.Amount, false, now)
		}
		return engine.Validationf("unknown command %q", cmd.Kind)
	})
}

func actionFor(kind CommandKind) engine.Action {
	switch kind {
	case CmdRaise:
		return engine.ActionRaise
	case CmdCheck:
		return engine.ActionCheck
	default:
		return engine.ActionFold
	}
}
