// Package table serializes commands against the persisted table state and
// fans the resulting events out to subscribers.
package table

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/chenaaron3/huffleshuffle-engine/internal/engine"
	"github.com/chenaaron3/huffleshuffle-engine/internal/store"
)

// maxRetries bounds the transparent retry on storage contention
const maxRetries = 3

// Mutator is the single writer for table state. Commands for the same table
// run strictly one at a time; each runs in its own transaction and either
// commits fully or leaves no trace.
type Mutator struct {
	store *store.Store
	log   *log.Logger
	clock quartz.Clock

	mu     sync.Mutex
	tables map[string]*sync.Mutex

	subMu sync.Mutex
	subs  map[string]map[chan engine.Event]struct{}
}

// NewMutator creates a mutator over the given store
func NewMutator(st *store.Store, logger *log.Logger, clock quartz.Clock) *Mutator {
	return &Mutator{
		store:  st,
		log:    logger,
		clock:  clock,
		tables: make(map[string]*sync.Mutex),
		subs:   make(map[string]map[chan engine.Event]struct{}),
	}
}

func (m *Mutator) tableLock(tableID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.tables[tableID]
	if !ok {
		l = &sync.Mutex{}
		m.tables[tableID] = l
	}
	return l
}

// Apply runs fn against the table's current state under the table lock and
// commits the result. Storage contention retries transparently; once the
// retry budget is spent the caller sees a Busy precondition.
func (m *Mutator) Apply(ctx context.Context, tableID string, fn func(tx *store.TableTx, ts *engine.TableState) error) (*engine.TableState, error) {
	l := m.tableLock(tableID)
	l.Lock()
	defer l.Unlock()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		ts, err := m.store.UpdateTable(ctx, tableID, fn)
		if err == nil {
			m.publish(tableID, ts.Events())
			return ts, nil
		}
		if !engine.IsConflict(err) {
			return nil, err
		}
		lastErr = err
		m.log.Warn("command retry", "table", tableID, "attempt", attempt+1, "err", err)
	}
	m.log.Error("command gave up after retries", "table", tableID, "err", lastErr)
	return nil, engine.Preconditionf(engine.CodeBusy, "table %s is busy, try again", tableID)
}

// Snapshot returns the redacted read model for one viewer
func (m *Mutator) Snapshot(ctx context.Context, tableID, viewerUserID string, dealerSeesCards bool) (engine.Snapshot, error) {
	ts, err := m.store.ReadTable(ctx, tableID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	return ts.Snapshot(viewerUserID, dealerSeesCards), nil
}

// Subscribe registers an event channel for a table. The returned cancel
// function must be called to release the subscription.
func (m *Mutator) Subscribe(tableID string, buffer int) (<-chan engine.Event, func()) {
	ch := make(chan engine.Event, buffer)
	m.subMu.Lock()
	if m.subs[tableID] == nil {
		m.subs[tableID] = make(map[chan engine.Event]struct{})
	}
	m.subs[tableID][ch] = struct{}{}
	m.subMu.Unlock()

	cancel := func() {
		m.subMu.Lock()
		delete(m.subs[tableID], ch)
		m.subMu.Unlock()
	}
	return ch, cancel
}

// publish delivers events to subscribers without blocking the command path.
// A subscriber that cannot keep up drops events rather than stalling the
// table.
func (m *Mutator) publish(tableID string, events []engine.Event) {
	if len(events) == 0 {
		return
	}
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for ch := range m.subs[tableID] {
		for _, ev := range events {
			select {
			case ch <- ev:
			default:
				m.log.Warn("subscriber lagging, dropping event",
					"table", tableID, "kind", ev.Kind, "seq", ev.Seq)
			}
		}
	}
}
