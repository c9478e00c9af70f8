package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/chenaaron3/huffleshuffle-engine/internal/engine"
	"github.com/chenaaron3/huffleshuffle-engine/internal/scan"
	"github.com/chenaaron3/huffleshuffle-engine/internal/server"
	"github.com/chenaaron3/huffleshuffle-engine/internal/store"
	"github.com/chenaaron3/huffleshuffle-engine/internal/table"
)

var CLI struct {
	Config   string `short:"c" default:"huffleshuffle.hcl" help:"Path to HCL configuration file"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`

	Serve      ServeCmd      `cmd:"" default:"1" help:"Run the table engine server"`
	Deposit    DepositCmd    `cmd:"" help:"Credit a player's wallet"`
	DecodeScan DecodeScanCmd `cmd:"" help:"Decode a scanner barcode into a card code"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		ctx.Exit(1)
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		ctx.Exit(1)
	}

	level, err := log.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})

	ctx.FatalIfErrorf(ctx.Run(cfg, logger))
}

// ServeCmd runs the engine server
type ServeCmd struct{}

// Run starts the store, scan intake, watchdog and WebSocket listener
func (s *ServeCmd) Run(cfg *server.Config, logger *log.Logger) error {
	st, err := store.Open(cfg.Server.DatabasePath, logger.WithPrefix("store"))
	if err != nil {
		return err
	}
	defer st.Close()

	runCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := seed(runCtx, st, cfg, logger); err != nil {
		return err
	}

	clock := quartz.NewReal()
	mutator := table.NewMutator(st, logger.WithPrefix("mutator"), clock)
	router := table.NewRouter(mutator, uuid.NewString)
	intake := scan.New(st, router, logger.WithPrefix("scan"))

	go func() {
		if err := intake.Run(runCtx); err != nil {
			logger.Error("scan intake stopped", "err", err)
		}
	}()
	if cfg.Server.ActionTimeoutSeconds > 0 {
		watchdog := table.NewWatchdog(st, mutator, logger.WithPrefix("watchdog"), clock,
			time.Duration(cfg.Server.ActionTimeoutSeconds)*time.Second, time.Second)
		go func() {
			if err := watchdog.Run(runCtx); err != nil {
				logger.Error("watchdog stopped", "err", err)
			}
		}()
	}

	srv := server.New(cfg.ListenAddress(), router, mutator, intake, cfg.Server.DealerSeesCards, logger)
	go func() {
		<-runCtx.Done()
		srv.Shutdown()
	}()
	return srv.Start()
}

// seed creates the configured tables, devices and players, keyed by name so
// restarts are idempotent.
func seed(ctx context.Context, st *store.Store, cfg *server.Config, logger *log.Logger) error {
	for _, tc := range cfg.Tables {
		if err := st.CreateTable(ctx, &engine.Table{
			ID:           tc.Name,
			Name:         tc.Name,
			DealerUserID: tc.DealerUser,
			SmallBlind:   tc.SmallBlind,
			BigBlind:     tc.BigBlind,
		}); err != nil {
			return fmt.Errorf("create table %s: %w", tc.Name, err)
		}
		logger.Info("table ready", "table", tc.Name, "blinds",
			fmt.Sprintf("%d/%d", tc.SmallBlind, tc.BigBlind))
	}
	for _, dc := range cfg.Devices {
		if err := st.RegisterDevice(ctx, dc.Serial, dc.Table); err != nil {
			return fmt.Errorf("register device %s: %w", dc.Serial, err)
		}
	}
	for _, pc := range cfg.Players {
		if err := st.UpsertPlayer(ctx, pc.ID, pc.Name); err != nil {
			return fmt.Errorf("create player %s: %w", pc.ID, err)
		}
		// Seed the wallet once; restarts must not multiply balances.
		balance, err := st.Balance(ctx, pc.ID)
		if err != nil {
			return err
		}
		if balance == 0 && pc.Balance > 0 {
			if _, err := st.Deposit(ctx, pc.ID, pc.Balance); err != nil {
				return fmt.Errorf("fund player %s: %w", pc.ID, err)
			}
		}
	}
	return nil
}

// DepositCmd credits a player's wallet
type DepositCmd struct {
	Player string `arg:"" help:"Player id"`
	Amount int64  `arg:"" help:"Chips to credit"`
}

// Run applies the deposit against the configured database
func (d *DepositCmd) Run(cfg *server.Config, logger *log.Logger) error {
	st, err := store.Open(cfg.Server.DatabasePath, logger.WithPrefix("store"))
	if err != nil {
		return err
	}
	defer st.Close()

	balance, err := st.Deposit(context.Background(), d.Player, d.Amount)
	if err != nil {
		return err
	}
	fmt.Printf("%s balance: %d\n", d.Player, balance)
	return nil
}

// DecodeScanCmd decodes a barcode, for checking scanner output by hand
type DecodeScanCmd struct {
	Barcode string `arg:"" help:"4-digit scanner barcode (suit digit + rank digits)"`
}

// Run prints the decoded card code
func (d *DecodeScanCmd) Run(cfg *server.Config, logger *log.Logger) error {
	code, err := scan.DecodeBarcode(d.Barcode)
	if err != nil {
		return err
	}
	fmt.Println(code)
	return nil
}
