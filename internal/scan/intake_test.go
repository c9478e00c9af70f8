package scan

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
	"github.com/chenaaron3/huffleshuffle-engine/internal/table"
)

func TestDecodeBarcode(t *testing.T) {
	tests := []struct {
		barcode string
		code    string
	}{
		{"1010", "As"},
		{"2020", "2h"},
		{"3100", "Tc"},
		{"4110", "Jd"},
		{"1120", "Qs"},
		{"2130", "Kh"},
		{"3090", "9c"},
	}
	for _, tt := range tests {
		t.Run(tt.barcode, func(t *testing.T) {
			code, err := DecodeBarcode(tt.barcode)
			require.NoError(t, err)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestDecodeBarcodeRejectsMalformed(t *testing.T) {
	for _, barcode := range []string{"", "101", "10100", "5010", "0010", "1140", "1005", "1abc", "1000", "1+10", "1-10", "1 10"} {
		_, err := DecodeBarcode(barcode)
		require.Error(t, err, "barcode %q", barcode)
		assert.Equal(t, engine.KindValidation, engine.KindOf(err))
	}
}

type fixture struct {
	store  *store.Store
	intake *Intake
}

// newFixture stands up a two-player table in DEAL_HOLE_CARDS with a
// registered scanner.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := log.New(io.Discard)
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	mutator := table.NewMutator(st, logger, quartz.NewReal())
	n := 0
	router := table.NewRouter(mutator, func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})

	require.NoError(t, st.CreateTable(ctx, &engine.Table{
		ID: "tbl-1", Name: "main", DealerUserID: "dealer-1", SmallBlind: 5, BigBlind: 10,
	}))
	require.NoError(t, st.RegisterDevice(ctx, "SCAN-01", "tbl-1"))
	for i := 0; i < 2; i++ {
		player := fmt.Sprintf("player-%d", i)
		_, err := st.Deposit(ctx, player, 500)
		require.NoError(t, err)
		_, err = router.Dispatch(ctx, table.Command{
			TableID: "tbl-1", Actor: table.RolePlayer, UserID: player,
			Kind: table.CmdJoin, Amount: 300, SeatNumber: i,
		})
		require.NoError(t, err)
	}
	_, err = router.Dispatch(ctx, table.Command{
		TableID: "tbl-1", Actor: table.RoleDealer, UserID: "dealer-1", Kind: table.CmdStartGame,
	})
	require.NoError(t, err)

	return &fixture{store: st, intake: New(st, router, logger)}
}

func TestScanDealsCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg := Message{Serial: "SCAN-01", Barcode: "1010", TS: time.Unix(1700000000, 0)}
	require.NoError(t, f.intake.Process(ctx, msg))

	ts, err := f.store.ReadTable(ctx, "tbl-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"As"}, ts.Seats[0].Cards, "ace of spades lands on the assigned seat")
}

func TestScanReplayRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg := Message{Serial: "SCAN-01", Barcode: "1010", TS: time.Unix(1700000000, 0)}
	require.NoError(t, f.intake.Process(ctx, msg))

	// The identical delivery again: rejected, nothing moves.
	err := f.intake.Process(ctx, msg)
	require.Error(t, err)
	assert.Equal(t, engine.CodeCardAlreadyDealt, engine.CodeOf(err))

	// A fresh scan of the same physical card is caught by the engine too.
	err = f.intake.Process(ctx, Message{Serial: "SCAN-01", Barcode: "1010", TS: time.Unix(1700000009, 0)})
	require.Error(t, err)
	assert.Equal(t, engine.CodeCardAlreadyDealt, engine.CodeOf(err))

	ts, err := f.store.ReadTable(ctx, "tbl-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"As"}, ts.Seats[0].Cards)
	assert.Empty(t, ts.Seats[1].Cards)
}

func TestScanUnknownDeviceForbidden(t *testing.T) {
	f := newFixture(t)
	err := f.intake.Process(context.Background(), Message{Serial: "SCAN-99", Barcode: "1010"})
	require.Error(t, err)
	assert.Equal(t, engine.KindForbidden, engine.KindOf(err))
}

func TestSubmitRequiresRunning(t *testing.T) {
	f := newFixture(t)
	err := f.intake.Submit(context.Background(), Message{Serial: "SCAN-01", Barcode: "1010"})
	require.Error(t, err)
}

func TestSubmittedScansApplyInOrder(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.intake.Run(ctx)
	}()
	// Give Run a moment to install the worker group.
	require.Eventually(t, func() bool {
		return f.intake.Submit(ctx, Message{Serial: "SCAN-01", Barcode: "1010", TS: time.Unix(1, 0)}) == nil
	}, time.Second, 10*time.Millisecond)

	// Remaining hole cards in order: seat-1, seat-0, seat-1.
	for i, barcode := range []string{"1120", "1130", "1110"} {
		require.NoError(t, f.intake.Submit(ctx, Message{
			Serial: "SCAN-01", Barcode: barcode, TS: time.Unix(int64(i+10), 0),
		}))
	}

	require.Eventually(t, func() bool {
		ts, err := f.store.ReadTable(ctx, "tbl-1")
		return err == nil && ts.Hand.State == engine.StateBetting
	}, 2*time.Second, 20*time.Millisecond)

	ts, err := f.store.ReadTable(ctx, "tbl-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"As", "Ks"}, ts.Seats[0].Cards)
	assert.Equal(t, []string{"Qs", "Js"}, ts.Seats[1].Cards)

	cancel()
	<-done
}
