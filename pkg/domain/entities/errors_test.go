package entities

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestLedgerError_Is(t *testing.T) {
	cause := errors.New("disk full")
	err := &LedgerError{Op: "add quantity", Kind: ErrTransient, ItemKey: "glassA", Err: cause}
	wrapped := fmt.Errorf("restock: %w", err)

	if !errors.Is(wrapped, ErrTransient) {
		t.Error("Expected kind to be reachable through wrapping")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("Expected cause to be reachable through wrapping")
	}
	if errors.Is(wrapped, ErrNotFound) {
		t.Error("Expected other kinds not to match")
	}

	var ledgerErr *LedgerError
	if !errors.As(wrapped, &ledgerErr) || ledgerErr.ItemKey != "glassA" {
		t.Errorf("Expected errors.As to recover the ledger error, got %+v", ledgerErr)
	}
}

func TestLedgerError_Message(t *testing.T) {
	err := &LedgerError{
		Op:       "move location quantity",
		Kind:     ErrInvalidData,
		ID:       "rec-1",
		Location: "Shelf A",
		Detail:   "insufficient quantity at source location",
	}

	expected := `move location quantity: invalid data (id=rec-1 location="Shelf A"): insufficient quantity at source location`
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"nil", nil, nil},
		{"plain", errors.New("boom"), nil},
		{"not_found", &LedgerError{Kind: ErrNotFound}, ErrNotFound},
		{"invalid", InvalidDataf("op", "bad %d", 1), ErrInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}

	if msg := InvalidDataf("op", "bad %d", 1).Error(); !strings.HasSuffix(msg, "bad 1") {
		t.Errorf("Expected formatted detail, got %q", msg)
	}
}

func TestBoundedMoveDelta(t *testing.T) {
	source := &LocationAllocation{InventoryID: "rec-1", Location: "A", Quantity: 5}

	tests := []struct {
		name     string
		delta    Quantity
		expected Quantity
		wantErr  bool
	}{
		{"smaller", 2, 2, false},
		{"exact", 5, 5, false},
		{"within_tolerance", 5.0008, 5, false},
		{"too_large", 6, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BoundedMoveDelta("move", source, tt.delta)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidData) {
					t.Errorf("Expected ErrInvalidData, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
