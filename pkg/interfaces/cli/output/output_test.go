package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/vsinha/glassledger/pkg/application/dto"
	"github.com/vsinha/glassledger/pkg/domain/entities"
)

func sampleReport() *dto.AuditReport {
	return &dto.AuditReport{
		GeneratedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		RecordsChecked: 4,
		TrackedRecords: 3,
		Discrepancies: []entities.Discrepancy{
			{RecordID: "rec-1", ItemKey: "effetre-591", Type: "rod", Expected: 10, Actual: 7},
		},
		Orphans: []*entities.LocationAllocation{
			{ID: "alloc-9", InventoryID: "gone", Location: "Shelf A", Quantity: 3},
		},
	}
}

func TestGenerate_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, sampleReport(), Config{Format: "text"}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Scope: all items", "Discrepancies: 1", "effetre-591", "-3", "Orphaned Allocations (3 units)", "Shelf A"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected text output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Ledger is consistent.") {
		t.Error("Inconsistent report should not claim consistency")
	}
}

func TestGenerate_TextConsistent(t *testing.T) {
	var buf bytes.Buffer
	report := &dto.AuditReport{ItemKey: "cim-511", RecordsChecked: 1}
	if err := Generate(&buf, report, Config{}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Scope: cim-511") || !strings.Contains(buf.String(), "Ledger is consistent.") {
		t.Errorf("Unexpected output:\n%s", buf.String())
	}
}

func TestGenerate_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, sampleReport(), Config{Format: "json"}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var decoded jsonReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if decoded.Consistent {
		t.Error("Expected consistent=false")
	}
	if len(decoded.Discrepancies) != 1 || decoded.Discrepancies[0].Difference != -3 {
		t.Errorf("Unexpected discrepancies: %+v", decoded.Discrepancies)
	}
	if len(decoded.Orphans) != 1 || decoded.Orphans[0].InventoryID != "gone" {
		t.Errorf("Unexpected orphans: %+v", decoded.Orphans)
	}
}

func TestGenerate_CSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, sampleReport(), Config{Format: "csv"}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	expected := []string{
		"kind,record_id,item_key,type,location,expected,actual",
		"discrepancy,rec-1,effetre-591,rod,,10,7",
		"orphan,gone,,,Shelf A,0,3",
	}
	if len(lines) != len(expected) {
		t.Fatalf("Expected %d lines, got %d:\n%s", len(expected), len(lines), buf.String())
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Errorf("Line %d: expected %q, got %q", i, expected[i], lines[i])
		}
	}
}

func TestGenerate_UnsupportedFormat(t *testing.T) {
	err := Generate(&bytes.Buffer{}, sampleReport(), Config{Format: "xml"})
	if err == nil || !strings.Contains(err.Error(), "unsupported output format") {
		t.Errorf("Expected unsupported format error, got %v", err)
	}
}
