package table

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/chenaaron3/huffleshuffle-engine/internal/engine"
	"github.com/chenaaron3/huffleshuffle-engine/internal/store"
)

// Watchdog folds seats that let their action clock run out, so one absent
// player cannot freeze a table.
type Watchdog struct {
	store    *store.Store
	mutator  *Mutator
	log      *log.Logger
	clock    quartz.Clock
	timeout  time.Duration
	interval time.Duration
}

// NewWatchdog creates a watchdog that force-folds after timeout, sweeping
// every interval.
func NewWatchdog(st *store.Store, m *Mutator, logger *log.Logger, clock quartz.Clock, timeout, interval time.Duration) *Watchdog {
	return &Watchdog{
		store:    st,
		mutator:  m,
		log:      logger,
		clock:    clock,
		timeout:  timeout,
		interval: interval,
	}
}

// Run sweeps until the context is canceled
func (w *Watchdog) Run(ctx context.Context) error {
	ticker := w.clock.TickerFunc(ctx, w.interval, func() error {
		w.sweep(ctx)
		return nil
	}, "watchdog")
	err := ticker.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (w *Watchdog) sweep(ctx context.Context) {
	ids, err := w.store.TableIDs(ctx)
	if err != nil {
		w.log.Error("watchdog could not list tables", "err", err)
		return
	}
	for _, tableID := range ids {
		ts, err := w.store.ReadTable(ctx, tableID)
		if err != nil {
			w.log.Error("watchdog could not read table", "table", tableID, "err", err)
			continue
		}
		if !w.expired(ts) {
			continue
		}
		w.forceFold(ctx, tableID, ts.Hand.AssignedSeatID)
	}
}

func (w *Watchdog) expired(ts *engine.TableState) bool {
	if !ts.HandInProgress() || ts.Hand.State != engine.StateBetting || ts.Hand.AssignedSeatID == "" {
		return false
	}
	return w.clock.Now().Sub(ts.Hand.TurnStartedAt) >= w.timeout
}

// forceFold folds the assigned seat, re-checking the deadline inside the
// transaction in case the player acted between the sweep's read and now.
func (w *Watchdog) forceFold(ctx context.Context, tableID, seatID string) {
	now := w.clock.Now().UTC()
	_, err := w.mutator.Apply(ctx, tableID, func(tx *store.TableTx, ts *engine.TableState) error {
		if !w.expired(ts) || ts.Hand.AssignedSeatID != seatID {
			return nil
		}
		w.log.Info("folding idle seat", "table", tableID, "seat", seatID)
		return ts.PlayerAction(seatID, engine.ActionFold, 0, true, now)
	})
	if err != nil {
		w.log.Error("forced fold failed", "table", tableID, "seat", seatID, "err", err)
	}
}
