// Package store persists tables, seats, hands, player wallets and the
// per-hand event log in sqlite. Every table command runs inside a single
// IMMEDIATE transaction so a snapshot is either fully applied or untouched.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-sqlite3"

	"github.com/chenaaron3/huffleshuffle-engine/internal/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS players (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL DEFAULT '',
	balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0)
);

CREATE TABLE IF NOT EXISTS tables (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	dealer_user_id TEXT NOT NULL,
	small_blind    INTEGER NOT NULL,
	big_blind      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS seats (
	id          TEXT PRIMARY KEY,
	table_id    TEXT NOT NULL REFERENCES tables(id),
	player_id   TEXT NOT NULL,
	seat_number INTEGER NOT NULL,
	buy_in      INTEGER NOT NULL,
	current_bet INTEGER NOT NULL DEFAULT 0,
	contributed INTEGER NOT NULL DEFAULT 0,
	cards       TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	last_action TEXT NOT NULL DEFAULT '',
	UNIQUE (table_id, seat_number),
	UNIQUE (table_id, player_id)
);

CREATE TABLE IF NOT EXISTS hands (
	id                  TEXT PRIMARY KEY,
	table_id            TEXT NOT NULL REFERENCES tables(id),
	status              TEXT NOT NULL,
	state               TEXT NOT NULL,
	button_seat_id      TEXT NOT NULL DEFAULT '',
	small_blind_seat_id TEXT NOT NULL DEFAULT '',
	big_blind_seat_id   TEXT NOT NULL DEFAULT '',
	assigned_seat_id    TEXT NOT NULL DEFAULT '',
	community_cards     TEXT NOT NULL DEFAULT '',
	pot_total           INTEGER NOT NULL DEFAULT 0,
	bet_count           INTEGER NOT NULL DEFAULT 0,
	required_bet_count  INTEGER NOT NULL DEFAULT 0,
	last_raise_by       INTEGER NOT NULL DEFAULT 0,
	round_max_bet       INTEGER NOT NULL DEFAULT 0,
	event_seq           INTEGER NOT NULL DEFAULT 0,
	turn_started_at     TIMESTAMP,
	created_at          TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_hands_table_created ON hands(table_id, created_at);

CREATE TABLE IF NOT EXISTS hand_events (
	hand_id    TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	table_id   TEXT NOT NULL,
	kind       TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (hand_id, seq)
);

CREATE TABLE IF NOT EXISTS devices (
	serial   TEXT PRIMARY KEY,
	table_id TEXT NOT NULL REFERENCES tables(id)
);
`

// Store wraps the sqlite database
type Store struct {
	db  *sql.DB
	log *log.Logger
}

// Open opens (creating if needed) the sqlite database at path
func Open(path string, logger *log.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=2000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// sqlite allows a single writer; a second connection would just queue on
	// the file lock behind the busy timeout.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	logger.Debug("database ready", "path", path)
	return &Store{db: db, log: logger}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// translate maps sqlite contention onto the retryable conflict kind
func translate(err error) error {
	if err == nil {
		return nil
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		if serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked {
			return engine.Conflictf(err, "database is busy")
		}
	}
	return err
}

// TableTx exposes the operations a command callback may perform in the same
// transaction as the table mutation, chiefly wallet transfers for JOIN and
// LEAVE.
type TableTx struct {
	ctx context.Context
	tx  *sql.Tx
}

// DebitBalance withdraws amount from a player's wallet
func (t *TableTx) DebitBalance(playerID string, amount int64) error {
	var balance int64
	err := t.tx.QueryRowContext(t.ctx, `SELECT balance FROM players WHERE id = ?`, playerID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Validationf("unknown player %s", playerID)
	}
	if err != nil {
		return translate(err)
	}
	if balance < amount {
		return engine.Preconditionf(engine.CodeInsufficientBalance,
			"balance %d does not cover %d", balance, amount)
	}
	_, err = t.tx.ExecContext(t.ctx, `UPDATE players SET balance = balance - ? WHERE id = ?`, amount, playerID)
	return translate(err)
}

// CreditBalance deposits amount into a player's wallet
func (t *TableTx) CreditBalance(playerID string, amount int64) error {
	res, err := t.tx.ExecContext(t.ctx, `UPDATE players SET balance = balance + ? WHERE id = ?`, amount, playerID)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.Validationf("unknown player %s", playerID)
	}
	return nil
}

// UpdateTable loads the table's state, applies fn and persists the result
// with the staged events in one transaction. Any error from fn rolls the
// whole transaction back.
func (s *Store) UpdateTable(ctx context.Context, tableID string, fn func(tx *TableTx, ts *engine.TableState) error) (*engine.TableState, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, translate(err)
	}
	defer tx.Rollback()

	ts, err := loadTableState(ctx, tx, tableID)
	if err != nil {
		return nil, err
	}
	if err := fn(&TableTx{ctx: ctx, tx: tx}, ts); err != nil {
		return nil, err
	}
	if err := saveTableState(ctx, tx, ts); err != nil {
		return nil, err
	}
	if err := appendEvents(ctx, tx, ts.Events()); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, translate(err)
	}
	return ts, nil
}

// ReadTable loads a read-only snapshot of the table's state
func (s *Store) ReadTable(ctx context.Context, tableID string) (*engine.TableState, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, translate(err)
	}
	defer tx.Rollback()
	return loadTableState(ctx, tx, tableID)
}

func loadTableState(ctx context.Context, tx *sql.Tx, tableID string) (*engine.TableState, error) {
	tbl := &engine.Table{}
	err := tx.QueryRowContext(ctx,
		`SELECT id, name, dealer_user_id, small_blind, big_blind FROM tables WHERE id = ?`, tableID).
		Scan(&tbl.ID, &tbl.Name, &tbl.DealerUserID, &tbl.SmallBlind, &tbl.BigBlind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.Validationf("unknown table %s", tableID)
	}
	if err != nil {
		return nil, translate(err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, player_id, seat_number, buy_in, current_bet, contributed, cards, status, last_action
		 FROM seats WHERE table_id = ? ORDER BY seat_number`, tableID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	ts := &engine.TableState{Table: tbl}
	for rows.Next() {
		seat := &engine.Seat{TableID: tableID}
		var cards, status string
		if err := rows.Scan(&seat.ID, &seat.PlayerID, &seat.SeatNumber, &seat.BuyIn,
			&seat.CurrentBet, &seat.Contributed, &cards, &status, &seat.LastAction); err != nil {
			return nil, translate(err)
		}
		seat.Cards = splitCards(cards)
		seat.Status = engine.SeatStatus(status)
		ts.Seats = append(ts.Seats, seat)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}

	hand := &engine.Hand{TableID: tableID}
	var status, state, community string
	var turnStarted sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT id, status, state, button_seat_id, small_blind_seat_id, big_blind_seat_id,
		        assigned_seat_id, community_cards, pot_total, bet_count, required_bet_count,
		        last_raise_by, round_max_bet, event_seq, turn_started_at
		 FROM hands WHERE table_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, tableID).
		Scan(&hand.ID, &status, &state, &hand.ButtonSeatID, &hand.SmallBlindSeatID,
			&hand.BigBlindSeatID, &hand.AssignedSeatID, &community, &hand.PotTotal,
			&hand.BetCount, &hand.RequiredBetCount, &hand.LastRaiseBy, &hand.RoundMaxBet,
			&hand.EventSeq, &turnStarted)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// No hand yet.
	case err != nil:
		return nil, translate(err)
	default:
		hand.Status = engine.HandStatus(status)
		hand.State = engine.HandState(state)
		hand.CommunityCards = splitCards(community)
		if turnStarted.Valid {
			hand.TurnStartedAt = turnStarted.Time
		}
		ts.Hand = hand
	}
	return ts, nil
}

func saveTableState(ctx context.Context, tx *sql.Tx, ts *engine.TableState) error {
	// Seats are few; replacing the table's rows wholesale keeps removal and
	// resequencing trivial.
	if _, err := tx.ExecContext(ctx, `DELETE FROM seats WHERE table_id = ?`, ts.Table.ID); err != nil {
		return translate(err)
	}
	for _, seat := range ts.Seats {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO seats (id, table_id, player_id, seat_number, buy_in, current_bet,
			                    contributed, cards, status, last_action)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			seat.ID, ts.Table.ID, seat.PlayerID, seat.SeatNumber, seat.BuyIn, seat.CurrentBet,
			seat.Contributed, joinCards(seat.Cards), string(seat.Status), seat.LastAction)
		if err != nil {
			return translate(err)
		}
	}

	if ts.Hand == nil {
		return nil
	}
	h := ts.Hand
	_, err := tx.ExecContext(ctx,
		`INSERT INTO hands (id, table_id, status, state, button_seat_id, small_blind_seat_id,
		                    big_blind_seat_id, assigned_seat_id, community_cards, pot_total,
		                    bet_count, required_bet_count, last_raise_by, round_max_bet,
		                    event_seq, turn_started_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     status = excluded.status, state = excluded.state,
		     button_seat_id = excluded.button_seat_id,
		     small_blind_seat_id = excluded.small_blind_seat_id,
		     big_blind_seat_id = excluded.big_blind_seat_id,
		     assigned_seat_id = excluded.assigned_seat_id,
		     community_cards = excluded.community_cards,
		     pot_total = excluded.pot_total, bet_count = excluded.bet_count,
		     required_bet_count = excluded.required_bet_count,
		     last_raise_by = excluded.last_raise_by, round_max_bet = excluded.round_max_bet,
		     event_seq = excluded.event_seq, turn_started_at = excluded.turn_started_at`,
		h.ID, h.TableID, string(h.Status), string(h.State), h.ButtonSeatID, h.SmallBlindSeatID,
		h.BigBlindSeatID, h.AssignedSeatID, joinCards(h.CommunityCards), h.PotTotal,
		h.BetCount, h.RequiredBetCount, h.LastRaiseBy, h.RoundMaxBet,
		h.EventSeq, h.TurnStartedAt, time.Now().UTC())
	return translate(err)
}

func appendEvents(ctx context.Context, tx *sql.Tx, events []engine.Event) error {
	for _, ev := range events {
		// Events outside a hand (join/leave between hands) have no sequence
		// slot in the hand log; they are broadcast but not recorded.
		if ev.HandID == "" {
			continue
		}
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return engine.Fatalf("encode %s payload: %v", ev.Kind, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO hand_events (hand_id, seq, table_id, kind, payload, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			ev.HandID, ev.Seq, ev.TableID, string(ev.Kind), string(payload), ev.Timestamp)
		if err != nil {
			return translate(err)
		}
	}
	return nil
}

// HandEvents returns the recorded events of a hand in sequence order
func (s *Store) HandEvents(ctx context.Context, handID string) ([]engine.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hand_id, seq, table_id, kind, payload, created_at
		 FROM hand_events WHERE hand_id = ? ORDER BY seq`, handID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var events []engine.Event
	for rows.Next() {
		var ev engine.Event
		var kind, payload string
		if err := rows.Scan(&ev.HandID, &ev.Seq, &ev.TableID, &kind, &payload, &ev.Timestamp); err != nil {
			return nil, translate(err)
		}
		ev.Kind = engine.EventKind(kind)
		var raw json.RawMessage
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			return nil, engine.Fatalf("decode %s payload: %v", kind, err)
		}
		ev.Payload = raw
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CreateTable inserts a table row
func (s *Store) CreateTable(ctx context.Context, t *engine.Table) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tables (id, name, dealer_user_id, small_blind, big_blind)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     name = excluded.name, dealer_user_id = excluded.dealer_user_id,
		     small_blind = excluded.small_blind, big_blind = excluded.big_blind`,
		t.ID, t.Name, t.DealerUserID, t.SmallBlind, t.BigBlind)
	return translate(err)
}

// TableIDs lists all table ids
func (s *Store) TableIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM tables ORDER BY id`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, translate(err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpsertPlayer creates a player if missing, leaving an existing balance alone
func (s *Store) UpsertPlayer(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, name) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`, id, name)
	return translate(err)
}

// Deposit adds funds to a player's wallet, creating the player if missing
func (s *Store) Deposit(ctx context.Context, playerID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, engine.Validationf("deposit must be positive, got %d", amount)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, balance) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET balance = balance + excluded.balance`, playerID, amount)
	if err != nil {
		return 0, translate(err)
	}
	return s.Balance(ctx, playerID)
}

// Balance returns a player's wallet balance
func (s *Store) Balance(ctx context.Context, playerID string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM players WHERE id = ?`, playerID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, engine.Validationf("unknown player %s", playerID)
	}
	return balance, translate(err)
}

// RegisterDevice binds a scanner serial to a table
func (s *Store) RegisterDevice(ctx context.Context, serial, tableID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO devices (serial, table_id) VALUES (?, ?)
		 ON CONFLICT(serial) DO UPDATE SET table_id = excluded.table_id`, serial, tableID)
	return translate(err)
}

// DeviceTable resolves a scanner serial to its table id
func (s *Store) DeviceTable(ctx context.Context, serial string) (string, error) {
	var tableID string
	err := s.db.QueryRowContext(ctx, `SELECT table_id FROM devices WHERE serial = ?`, serial).Scan(&tableID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", engine.Forbiddenf("unknown scanner %s", serial)
	}
	return tableID, translate(err)
}

func joinCards(cards []string) string {
	return strings.Join(cards, " ")
}

func splitCards(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
