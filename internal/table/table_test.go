package table

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chenaaron3/huffleshuffle-engine/internal/engine"
	"github.com/chenaaron3/huffleshuffle-engine/internal/store"
)

type fixture struct {
	store   *store.Store
	mutator *Mutator
	router  *Router
	clock   *quartz.Mock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := log.New(io.Discard)
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := quartz.NewMock(t)
	mutator := NewMutator(st, logger, clock)

	n := 0
	newID := func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return &fixture{
		store:   st,
		mutator: mutator,
		router:  NewRouter(mutator, newID),
		clock:   clock,
	}
}

// seatTwo creates the standard two-player table used across the tests
func (f *fixture) seatTwo(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.CreateTable(ctx, &engine.Table{
		ID: "tbl-1", Name: "main", DealerUserID: "dealer-1", SmallBlind: 5, BigBlind: 10,
	}))
	for i := 0; i < 2; i++ {
		player := fmt.Sprintf("player-%d", i)
		_, err := f.store.Deposit(ctx, player, 1000)
		require.NoError(t, err)
		_, err = f.router.Dispatch(ctx, Command{
			TableID: "tbl-1", Actor: RolePlayer, UserID: player,
			Kind: CmdJoin, Amount: 300, SeatNumber: i,
		})
		require.NoError(t, err)
	}
}

func (f *fixture) dispatch(t *testing.T, cmd Command) *engine.TableState {
	t.Helper()
	ts, err := f.router.Dispatch(context.Background(), cmd)
	require.NoError(t, err)
	return ts
}

func TestJoinDebitsWallet(t *testing.T) {
	f := newFixture(t)
	f.seatTwo(t)

	balance, err := f.store.Balance(context.Background(), "player-0")
	require.NoError(t, err)
	assert.Equal(t, int64(700), balance)

	ts, err := f.store.ReadTable(context.Background(), "tbl-1")
	require.NoError(t, err)
	assert.Len(t, ts.Seats, 2)
}

func TestJoinWithoutFundsRejected(t *testing.T) {
	f := newFixture(t)
	f.seatTwo(t)
	ctx := context.Background()
	_, err := f.store.Deposit(ctx, "player-9", 100)
	require.NoError(t, err)

	_, err = f.router.Dispatch(ctx, Command{
		TableID: "tbl-1", Actor: RolePlayer, UserID: "player-9",
		Kind: CmdJoin, Amount: 300, SeatNumber: 5,
	})
	require.Error(t, err)
	assert.Equal(t, engine.CodeInsufficientBalance, engine.CodeOf(err))

	ts, err := f.store.ReadTable(ctx, "tbl-1")
	require.NoError(t, err)
	assert.Len(t, ts.Seats, 2, "failed join leaves no seat behind")
}

func TestAuthorityMatrix(t *testing.T) {
	f := newFixture(t)
	f.seatTwo(t)
	ctx := context.Background()

	// A player cannot start the game, a dealer cannot bet, a scanner cannot
	// join.
	for _, cmd := range []Command{
		{TableID: "tbl-1", Actor: RolePlayer, UserID: "player-0", Kind: CmdStartGame},
		{TableID: "tbl-1", Actor: RoleDealer, UserID: "dealer-1", Kind: CmdRaise, Amount: 50},
		{TableID: "tbl-1", Actor: RoleScanner, Kind: CmdJoin, Amount: 100},
	} {
		_, err := f.router.Dispatch(ctx, cmd)
		require.Error(t, err, "%s as %s", cmd.Kind, cmd.Actor)
		assert.Equal(t, engine.KindForbidden, engine.KindOf(err))
	}

	// The dealer role is tied to the table's dealer user.
	_, err := f.router.Dispatch(ctx, Command{
		TableID: "tbl-1", Actor: RoleDealer, UserID: "impostor", Kind: CmdStartGame,
	})
	require.Error(t, err)
	assert.Equal(t, engine.KindForbidden, engine.KindOf(err))
}

func TestFullHandThroughRouter(t *testing.T) {
	f := newFixture(t)
	f.seatTwo(t)
	dealer := Command{TableID: "tbl-1", Actor: RoleDealer, UserID: "dealer-1"}

	start := dealer
	start.Kind = CmdStartGame
	ts := f.dispatch(t, start)
	require.NotNil(t, ts.Hand)
	assert.Equal(t, engine.StateDealHoleCards, ts.Hand.State)

	for _, code := range []string{"As", "Qs", "Ks", "Js"} {
		deal := dealer
		deal.Kind, deal.Card = CmdDealCard, code
		ts = f.dispatch(t, deal)
	}
	require.Equal(t, engine.StateBetting, ts.Hand.State)

	ts = f.dispatch(t, Command{
		TableID: "tbl-1", Actor: RolePlayer, UserID: "player-0", Kind: CmdRaise, Amount: 50,
	})
	ts = f.dispatch(t, Command{
		TableID: "tbl-1", Actor: RolePlayer, UserID: "player-1", Kind: CmdFold,
	})
	require.Equal(t, engine.HandCompleted, ts.Hand.Status)

	// Loser leaves; stack and wallet reconcile.
	f.dispatch(t, Command{
		TableID: "tbl-1", Actor: RolePlayer, UserID: "player-1", Kind: CmdLeave,
	})
	balance, err := f.store.Balance(context.Background(), "player-1")
	require.NoError(t, err)
	assert.Equal(t, int64(990), balance, "700 banked plus 290 cashed out")
}

func TestDispatchValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.router.Dispatch(ctx, Command{Actor: RoleDealer, Kind: CmdStartGame})
	assert.Equal(t, engine.KindValidation, engine.KindOf(err), "missing table id")

	_, err = f.router.Dispatch(ctx, Command{TableID: "t", Actor: RoleDealer, Kind: "DANCE"})
	assert.Equal(t, engine.KindValidation, engine.KindOf(err), "unknown command")
}

func TestSubscribeReceivesEvents(t *testing.T) {
	f := newFixture(t)
	f.seatTwo(t)

	ch, cancel := f.mutator.Subscribe("tbl-1", 64)
	defer cancel()

	f.dispatch(t, Command{TableID: "tbl-1", Actor: RoleDealer, UserID: "dealer-1", Kind: CmdStartGame})

	ev := <-ch
	assert.Equal(t, engine.EventHandStarted, ev.Kind)
	assert.Equal(t, 1, ev.Seq)
	ev = <-ch
	assert.Equal(t, engine.EventBetPosted, ev.Kind)
}

func TestSnapshotRedactsForViewer(t *testing.T) {
	f := newFixture(t)
	f.seatTwo(t)
	dealer := Command{TableID: "tbl-1", Actor: RoleDealer, UserID: "dealer-1"}
	start := dealer
	start.Kind = CmdStartGame
	f.dispatch(t, start)
	for _, code := range []string{"As", "Qs", "Ks", "Js"} {
		deal := dealer
		deal.Kind, deal.Card = CmdDealCard, code
		f.dispatch(t, deal)
	}

	snap, err := f.mutator.Snapshot(context.Background(), "tbl-1", "player-1", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"FD", "FD"}, snap.Seats[0].Cards)
	assert.Equal(t, []string{"Qs", "Js"}, snap.Seats[1].Cards)
}

func TestWatchdogFoldsIdleSeat(t *testing.T) {
	f := newFixture(t)
	f.seatTwo(t)
	ctx := context.Background()
	dealer := Command{TableID: "tbl-1", Actor: RoleDealer, UserID: "dealer-1"}
	start := dealer
	start.Kind = CmdStartGame
	f.dispatch(t, start)
	for _, code := range []string{"As", "Qs", "Ks", "Js"} {
		deal := dealer
		deal.Kind, deal.Card = CmdDealCard, code
		f.dispatch(t, deal)
	}

	w := NewWatchdog(f.store, f.mutator, log.New(io.Discard), f.clock, 30*time.Second, 5*time.Second)

	// Before the deadline the sweep leaves the seat alone.
	w.sweep(ctx)
	ts, err := f.store.ReadTable(ctx, "tbl-1")
	require.NoError(t, err)
	assert.Equal(t, engine.StateBetting, ts.Hand.State)

	f.clock.Advance(31 * time.Second).MustWait(ctx)
	w.sweep(ctx)

	ts, err = f.store.ReadTable(ctx, "tbl-1")
	require.NoError(t, err)
	assert.Equal(t, engine.HandCompleted, ts.Hand.Status, "heads-up fold ends the hand")
	assert.Equal(t, engine.SeatFolded, ts.Seats[0].Status)
}
