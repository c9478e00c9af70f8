// Package scan ingests barcode scanner messages and turns them into
// DEAL_CARD commands. Scanners are the only asynchronous ingress: each table
// gets a FIFO queue and a single worker, so scans for one table apply in
// arrival order while tables proceed independently.
package scan

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/chenaaron3/huffleshuffle-engine/internal/engine"
	"github.com/chenaaron3/huffleshuffle-engine/internal/store"
	"github.com/chenaaron3/huffleshuffle-engine/internal/table"
)

// queueDepth bounds each table's pending scans
const queueDepth = 64

// Message is one raw scanner delivery
type Message struct {
	Serial  string    `json:"serial"`
	Barcode string    `json:"barcode"`
	TS      time.Time `json:"ts"`
}

// suitChars maps the barcode suit prefix digit to the card suit character
var suitChars = map[byte]byte{'1': 's', '2': 'h', '3': 'c', '4': 'd'}

// rankChars maps the barcode rank value (rank digits / 10) to the card rank
// character.
var rankChars = map[int]byte{
	1: 'A', 2: '2', 3: '3', 4: '4', 5: '5', 6: '6', 7: '7',
	8: '8', 9: '9', 10: 'T', 11: 'J', 12: 'Q', 13: 'K',
}

// DecodeBarcode turns a 4-digit SRRR barcode into a card code: the first
// digit selects the suit, the remaining three encode the rank times ten
// ("1010" is the ace of spades).
func DecodeBarcode(barcode string) (string, error) {
	if len(barcode) != 4 {
		return "", engine.Validationf("barcode %q must be 4 digits", barcode)
	}
	suit, ok := suitChars[barcode[0]]
	if !ok {
		return "", engine.Validationf("barcode %q has invalid suit digit %q", barcode, barcode[0])
	}
	// Atoi would also take a sign, so check the bytes are digits first.
	for i := 1; i < len(barcode); i++ {
		if barcode[i] < '0' || barcode[i] > '9' {
			return "", engine.Validationf("barcode %q has invalid rank digits %q", barcode, barcode[1:])
		}
	}
	v, err := strconv.Atoi(barcode[1:])
	if err != nil || v%10 != 0 {
		return "", engine.Validationf("barcode %q has invalid rank digits %q", barcode, barcode[1:])
	}
	rank, ok := rankChars[v/10]
	if !ok {
		return "", engine.Validationf("barcode %q rank %d out of range", barcode, v/10)
	}
	return string([]byte{rank, suit}), nil
}

// Intake routes validated scans into per-table queues
type Intake struct {
	store  *store.Store
	router *table.Router
	log    *log.Logger

	mu     sync.Mutex
	seen   map[string]struct{}
	queues map[string]chan delivery
	group  *errgroup.Group
	ctx    context.Context
}

type delivery struct {
	tableID string
	code    string
	msg     Message
}

// New creates an intake. Run must be called before Submit.
func New(st *store.Store, router *table.Router, logger *log.Logger) *Intake {
	return &Intake{
		store:  st,
		router: router,
		log:    logger,
		seen:   make(map[string]struct{}),
		queues: make(map[string]chan delivery),
	}
}

// Run owns the table workers until the context is canceled
func (in *Intake) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	in.mu.Lock()
	in.group = g
	in.ctx = gctx
	in.mu.Unlock()

	<-gctx.Done()
	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Submit validates a scan and queues it for its table. Unknown scanners and
// malformed barcodes are rejected synchronously so the device can surface the
// failure; a full queue rejects rather than blocking the ingress.
func (in *Intake) Submit(ctx context.Context, msg Message) error {
	tableID, err := in.store.DeviceTable(ctx, msg.Serial)
	if err != nil {
		return err
	}
	code, err := DecodeBarcode(msg.Barcode)
	if err != nil {
		return err
	}

	q, err := in.queue(tableID)
	if err != nil {
		return err
	}
	select {
	case q <- delivery{tableID: tableID, code: code, msg: msg}:
		return nil
	default:
		return engine.Preconditionf(engine.CodeBusy, "scan queue for table %s is full", tableID)
	}
}

// Process runs the full pipeline for one scan synchronously and returns the
// engine's verdict.
func (in *Intake) Process(ctx context.Context, msg Message) error {
	tableID, err := in.store.DeviceTable(ctx, msg.Serial)
	if err != nil {
		return err
	}
	code, err := DecodeBarcode(msg.Barcode)
	if err != nil {
		return err
	}
	return in.deliver(ctx, delivery{tableID: tableID, code: code, msg: msg})
}

func (in *Intake) queue(tableID string) (chan delivery, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.group == nil {
		return nil, engine.Fatalf("scan intake is not running")
	}
	q, ok := in.queues[tableID]
	if !ok {
		q = make(chan delivery, queueDepth)
		in.queues[tableID] = q
		gctx := in.ctx
		in.group.Go(func() error {
			in.work(gctx, tableID, q)
			return nil
		})
	}
	return q, nil
}

func (in *Intake) work(ctx context.Context, tableID string, q chan delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-q:
			if err := in.deliver(ctx, d); err != nil {
				in.log.Warn("scan rejected",
					"table", tableID, "serial", d.msg.Serial, "card", d.code, "err", err)
			}
		}
	}
}

// deliver applies one decoded scan. A retransmission of the same scan is
// answered from the dedup set without touching the engine; the engine's
// dealt-card check stays authoritative for everything else.
func (in *Intake) deliver(ctx context.Context, d delivery) error {
	key := dedupKey(d.tableID, d.msg)
	in.mu.Lock()
	_, dup := in.seen[key]
	in.mu.Unlock()
	if dup {
		return engine.Preconditionf(engine.CodeCardAlreadyDealt,
			"card %s was already dealt this hand", d.code)
	}

	_, err := in.router.Dispatch(ctx, table.Command{
		TableID: d.tableID,
		Actor:   table.RoleScanner,
		Kind:    table.CmdDealCard,
		Card:    d.code,
	})
	if err != nil {
		return err
	}

	in.mu.Lock()
	in.seen[key] = struct{}{}
	in.mu.Unlock()
	in.log.Debug("scan applied", "table", d.tableID, "serial", d.msg.Serial, "card", d.code)
	return nil
}

func dedupKey(tableID string, msg Message) string {
	return fmt.Sprintf("%s|%s|%d", tableID, msg.Barcode, msg.TS.Unix())
}
