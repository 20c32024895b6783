package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/vsinha/glassledger/pkg/domain/entities"
	"github.com/vsinha/glassledger/pkg/infrastructure/config"
	"github.com/vsinha/glassledger/pkg/infrastructure/logger"
	"github.com/vsinha/glassledger/pkg/interfaces/cli/commands"
)

func main() {
	// Command line flags; store, dsn and tolerance override the config only
	// when set
	var (
		inventoryFile = flag.String("inventory", "", "Path to inventory CSV file")
		locationsFile = flag.String("locations", "", "Path to locations CSV file")
		itemKey       = flag.String("item", "", "Audit a single item key")
		format        = flag.String("format", "text", "Output format: text, json, csv")
		store         = flag.String("store", "", "Store backend: memory, sqlite, postgres (default LEDGER_STORE)")
		dsn           = flag.String("dsn", "", "Database DSN for sqlite/postgres (default LEDGER_DSN)")
		tolerance     = flag.Float64("tolerance", 0, "Allowed allocation difference (default LEDGER_TOLERANCE)")
		strict        = flag.Bool("strict", false, "Fail when the audit finds problems")
		verbose       = flag.Bool("verbose", false, "Enable verbose output")
		help          = flag.Bool("help", false, "Show help message")
	)

	flag.Parse()

	log, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(log)
	if err != nil {
		log.Sync()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cmdConfig := commands.Config{
		InventoryFile: *inventoryFile,
		LocationsFile: *locationsFile,
		ItemKey:       *itemKey,
		Format:        *format,
		Store:         cfg.Store,
		DSN:           cfg.DSN,
		Tolerance:     cfg.Tolerance,
		Verbose:       *verbose,
		Strict:        *strict,
		Help:          *help,
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "store":
			cmdConfig.Store = *store
		case "dsn":
			cmdConfig.DSN = *dsn
		case "tolerance":
			cmdConfig.Tolerance = entities.Quantity(*tolerance)
		}
	})

	cmd := commands.NewAuditCommand(cmdConfig, log)
	ctx := context.Background()

	if err := cmd.Execute(ctx); err != nil {
		log.Sync()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the logger before the config is loaded for real, so the
// config load itself is logged. The mode may come from .env, hence the
// silent first pass.
func newLogger(verbose bool) (*logger.Logger, error) {
	if verbose {
		return logger.New("debug")
	}
	boot, err := config.Load(logger.NewNop())
	if err != nil {
		return nil, err
	}
	return logger.New(boot.LogMode)
}
