package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vsinha/glassledger/pkg/application/services"
	"github.com/vsinha/glassledger/pkg/domain/entities"
	"github.com/vsinha/glassledger/pkg/domain/repositories"
	domainservices "github.com/vsinha/glassledger/pkg/domain/services"
	"github.com/vsinha/glassledger/pkg/infrastructure/config"
	"github.com/vsinha/glassledger/pkg/infrastructure/logger"
	"github.com/vsinha/glassledger/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/glassledger/pkg/infrastructure/repositories/gormstore"
	"github.com/vsinha/glassledger/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/glassledger/pkg/interfaces/cli/output"
)

// ErrInconsistent is returned in strict mode when the audit finds problems
var ErrInconsistent = errors.New("ledger is inconsistent")

// Config holds configuration for the audit command
type Config struct {
	InventoryFile string
	LocationsFile string
	ItemKey       string
	Format        string
	Store         string
	DSN           string
	Tolerance     entities.Quantity
	Verbose       bool
	Strict        bool
	Help          bool
}

// AuditCommand loads ledger data and reports allocation discrepancies
type AuditCommand struct {
	config Config
	log    *logger.Logger
	out    io.Writer
}

// NewAuditCommand creates a new audit command writing its report to stdout
func NewAuditCommand(config Config, log *logger.Logger) *AuditCommand {
	return NewAuditCommandWithOutput(config, log, os.Stdout)
}

// NewAuditCommandWithOutput creates a new audit command writing to out
func NewAuditCommandWithOutput(config Config, log *logger.Logger, out io.Writer) *AuditCommand {
	if log == nil {
		log = logger.NewNop()
	}
	return &AuditCommand{
		config: config,
		log:    log.With("command", "audit"),
		out:    out,
	}
}

// Execute runs the audit command
func (c *AuditCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	ledger, allocator, closeStore, err := c.openStore()
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", c.config.Store, err)
	}
	defer closeStore()

	files := c.inputFiles()
	if err := c.importFiles(ctx, ledger, allocator); err != nil {
		return err
	}

	tolerance := c.config.Tolerance
	if tolerance <= 0 {
		tolerance = entities.QuantityTolerance
	}
	checker := services.NewConsistencyCheckerWithConfig(ledger, allocator, c.log, services.CheckerConfig{
		Tolerance: tolerance,
	})

	startTime := time.Now()
	report, err := checker.Report(ctx, c.config.ItemKey)
	auditTime := time.Since(startTime)
	if err != nil {
		return fmt.Errorf("error running audit: %w", err)
	}

	err = output.Generate(c.out, report, output.Config{
		Format:     c.config.Format,
		Verbose:    c.config.Verbose,
		AuditTime:  auditTime,
		InputFiles: files,
	})
	if err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}

	if c.config.Strict && !report.Consistent() {
		return fmt.Errorf("%w: %d discrepancies, %d orphaned allocations",
			ErrInconsistent, len(report.Discrepancies), len(report.Orphans))
	}
	return nil
}

// validateInputs validates the command configuration
func (c *AuditCommand) validateInputs() error {
	switch c.config.Format {
	case "", "text", "json", "csv":
	default:
		return fmt.Errorf("unsupported output format: %s", c.config.Format)
	}
	if c.config.Store == "" {
		c.config.Store = config.StoreMemory
	}
	if c.config.Store == config.StoreMemory && c.config.InventoryFile == "" {
		return fmt.Errorf("the memory store needs an -inventory file")
	}
	if c.config.LocationsFile != "" && c.config.InventoryFile == "" && c.config.Store == config.StoreMemory {
		return fmt.Errorf("-locations requires -inventory")
	}
	for _, path := range []string{c.config.InventoryFile, c.config.LocationsFile} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", path)
		}
	}
	return nil
}

func (c *AuditCommand) openStore() (repositories.InventoryRepository, repositories.LocationRepository, func(), error) {
	taxonomy := domainservices.NewTypeTaxonomy()

	switch c.config.Store {
	case config.StoreMemory:
		ledger := memory.NewInventoryRepository(taxonomy)
		return ledger, memory.NewLocationRepository(ledger), func() {}, nil
	case config.StoreSQLite, config.StorePostgres:
		db, err := gormstore.Open(c.config.Store, c.config.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := gormstore.Migrate(db); err != nil {
			_ = gormstore.Close(db)
			return nil, nil, nil, err
		}
		ledger := gormstore.NewInventoryRepository(db, taxonomy)
		allocator := gormstore.NewLocationRepository(db, ledger)
		closeStore := func() {
			if err := gormstore.Close(db); err != nil {
				c.log.Warn("Failed to close store", "error", err)
			}
		}
		return ledger, allocator, closeStore, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported store: %s", c.config.Store)
	}
}

func (c *AuditCommand) importFiles(ctx context.Context, ledger repositories.InventoryRepository, allocator repositories.LocationRepository) error {
	if c.config.InventoryFile == "" && c.config.LocationsFile == "" {
		c.log.Info("No input files, auditing store contents", "store", c.config.Store)
		return nil
	}

	loader := csv.NewLoader()
	var (
		records   []*entities.InventoryRecord
		locations []csv.LocationRow
		err       error
	)
	if c.config.InventoryFile != "" {
		records, err = loader.LoadInventory(c.config.InventoryFile)
		if err != nil {
			return fmt.Errorf("error loading inventory: %w", err)
		}
	}
	if c.config.LocationsFile != "" {
		locations, err = loader.LoadLocations(c.config.LocationsFile)
		if err != nil {
			return fmt.Errorf("error loading locations: %w", err)
		}
	}

	if err := csv.Import(ctx, ledger, allocator, records, locations); err != nil {
		return fmt.Errorf("error importing data: %w", err)
	}
	c.log.Info("Data loaded",
		"records", len(records),
		"location_rows", len(locations),
		"store", c.config.Store,
	)
	return nil
}

func (c *AuditCommand) inputFiles() map[string]string {
	files := make(map[string]string)
	if c.config.InventoryFile != "" {
		files["Inventory"] = c.config.InventoryFile
	}
	if c.config.LocationsFile != "" {
		files["Locations"] = c.config.LocationsFile
	}
	return files
}

// showHelp displays the help message
func (c *AuditCommand) showHelp() {
	fmt.Fprint(c.out, `glassledger - audit a glass inventory ledger

USAGE:
    glassledger -inventory <file> [-locations <file>] [options]
    glassledger -store sqlite -dsn ledger.db [options]

OPTIONS:
    -inventory <file>   Inventory records CSV
    -locations <file>   Location allocations CSV
    -item <key>         Audit a single item (default: full sweep with orphans)
    -format <fmt>       Output format: text, json, csv (default: text)
    -store <name>       Backend: memory, sqlite, postgres (default: LEDGER_STORE or memory)
    -dsn <dsn>          Database DSN for sqlite/postgres (default: LEDGER_DSN)
    -tolerance <n>      Allowed allocation difference (default: LEDGER_TOLERANCE or 0.001)
    -strict             Exit with an error when the audit finds problems
    -verbose            Enable verbose output
    -help               Show this help message

CSV FILE FORMATS:

inventory.csv:
    item_key,type,subtype,subsubtype,dimensions,quantity
    effetre-591,rod,standard,,diameter=6;length=33,10

locations.csv:
    item_key,type,location,quantity
    effetre-591,rod,Shelf A,6

EXAMPLES:
    glassledger -inventory data/inventory.csv -locations data/locations.csv
    glassledger -inventory data/inventory.csv -item effetre-591 -format json
    LEDGER_STORE=sqlite LEDGER_DSN=ledger.db glassledger -strict
`)
}
