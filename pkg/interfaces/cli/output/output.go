package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/vsinha/glassledger/pkg/application/dto"
	"github.com/vsinha/glassledger/pkg/domain/entities"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	Verbose   bool
	AuditTime time.Duration
	// InputFiles is echoed in the text summary when Verbose is set
	InputFiles map[string]string
}

// Generate writes report to w in the configured format
func Generate(w io.Writer, report *dto.AuditReport, config Config) error {
	switch config.Format {
	case "", "text":
		return generateTextOutput(w, report, config)
	case "json":
		return generateJSONOutput(w, report)
	case "csv":
		return generateCSVOutput(w, report)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput creates human-readable text output
func generateTextOutput(w io.Writer, report *dto.AuditReport, config Config) error {
	fmt.Fprintf(w, "Ledger Audit Summary\n")
	fmt.Fprintf(w, "====================\n\n")

	scope := "all items"
	if report.ItemKey != "" {
		scope = report.ItemKey
	}
	fmt.Fprintf(w, "Scope: %s\n", scope)
	fmt.Fprintf(w, "Records Checked: %d\n", report.RecordsChecked)
	fmt.Fprintf(w, "Tracked Records: %d\n", report.TrackedRecords)
	fmt.Fprintf(w, "Discrepancies: %d\n", len(report.Discrepancies))
	fmt.Fprintf(w, "Orphaned Allocations: %d\n", len(report.Orphans))
	if config.Verbose {
		fmt.Fprintf(w, "Audit Time: %v\n", config.AuditTime)
		names := make([]string, 0, len(config.InputFiles))
		for name := range config.InputFiles {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "%s: %s\n", name, config.InputFiles[name])
		}
	}
	fmt.Fprintln(w)

	if len(report.Discrepancies) > 0 {
		fmt.Fprintf(w, "Discrepancies:\n")
		fmt.Fprintf(w, "%-36s %-20s %-10s %-10s %-10s %-10s\n",
			"Record", "Item", "Type", "Expected", "Actual", "Diff")
		fmt.Fprintf(w, "%-36s %-20s %-10s %-10s %-10s %-10s\n",
			"------------------------------------", "--------------------", "----------", "----------", "----------", "----------")

		for _, d := range report.Discrepancies {
			fmt.Fprintf(w, "%-36s %-20s %-10s %-10s %-10s %-10s\n",
				d.RecordID,
				d.ItemKey,
				d.Type,
				formatQuantity(d.Expected),
				formatQuantity(d.Actual),
				formatQuantity(d.Difference()))
		}
		fmt.Fprintln(w)
	}

	if len(report.Orphans) > 0 {
		fmt.Fprintf(w, "Orphaned Allocations (%s units):\n", formatQuantity(report.OrphanedQuantity()))
		fmt.Fprintf(w, "%-36s %-20s %-10s\n", "Inventory ID", "Location", "Qty")
		fmt.Fprintf(w, "%-36s %-20s %-10s\n",
			"------------------------------------", "--------------------", "----------")

		for _, a := range report.Orphans {
			fmt.Fprintf(w, "%-36s %-20s %-10s\n", a.InventoryID, a.Location, formatQuantity(a.Quantity))
		}
		fmt.Fprintln(w)
	}

	if report.Consistent() {
		fmt.Fprintln(w, "Ledger is consistent.")
	}
	return nil
}

type jsonDiscrepancy struct {
	RecordID   string  `json:"record_id"`
	ItemKey    string  `json:"item_key"`
	Type       string  `json:"type"`
	Expected   float64 `json:"expected"`
	Actual     float64 `json:"actual"`
	Difference float64 `json:"difference"`
}

type jsonOrphan struct {
	ID          string  `json:"id"`
	InventoryID string  `json:"inventory_id"`
	Location    string  `json:"location"`
	Quantity    float64 `json:"quantity"`
}

type jsonReport struct {
	GeneratedAt    time.Time         `json:"generated_at"`
	ItemKey        string            `json:"item_key,omitempty"`
	RecordsChecked int               `json:"records_checked"`
	TrackedRecords int               `json:"tracked_records"`
	Consistent     bool              `json:"consistent"`
	Discrepancies  []jsonDiscrepancy `json:"discrepancies"`
	Orphans        []jsonOrphan      `json:"orphans"`
}

// generateJSONOutput creates JSON output
func generateJSONOutput(w io.Writer, report *dto.AuditReport) error {
	out := jsonReport{
		GeneratedAt:    report.GeneratedAt,
		ItemKey:        report.ItemKey,
		RecordsChecked: report.RecordsChecked,
		TrackedRecords: report.TrackedRecords,
		Consistent:     report.Consistent(),
		Discrepancies:  make([]jsonDiscrepancy, 0, len(report.Discrepancies)),
		Orphans:        make([]jsonOrphan, 0, len(report.Orphans)),
	}
	for _, d := range report.Discrepancies {
		out.Discrepancies = append(out.Discrepancies, jsonDiscrepancy{
			RecordID:   d.RecordID,
			ItemKey:    d.ItemKey,
			Type:       d.Type,
			Expected:   float64(d.Expected),
			Actual:     float64(d.Actual),
			Difference: float64(d.Difference()),
		})
	}
	for _, a := range report.Orphans {
		out.Orphans = append(out.Orphans, jsonOrphan{
			ID:          a.ID,
			InventoryID: a.InventoryID,
			Location:    a.Location,
			Quantity:    float64(a.Quantity),
		})
	}

	jsonData, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}

// generateCSVOutput writes discrepancies and orphans as one table, told
// apart by the kind column
func generateCSVOutput(w io.Writer, report *dto.AuditReport) error {
	writer := csv.NewWriter(w)
	rows := [][]string{{"kind", "record_id", "item_key", "type", "location", "expected", "actual"}}
	for _, d := range report.Discrepancies {
		rows = append(rows, []string{
			"discrepancy", d.RecordID, d.ItemKey, d.Type, "",
			formatQuantity(d.Expected), formatQuantity(d.Actual),
		})
	}
	for _, a := range report.Orphans {
		rows = append(rows, []string{
			"orphan", a.InventoryID, "", "", a.Location,
			"0", formatQuantity(a.Quantity),
		})
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

func formatQuantity(q entities.Quantity) string {
	return strconv.FormatFloat(float64(q), 'f', -1, 64)
}
