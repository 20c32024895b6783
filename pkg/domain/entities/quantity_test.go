package entities

import (
	"math"
	"testing"
)

func TestQuantity_Clamp(t *testing.T) {
	tests := []struct {
		name     string
		input    Quantity
		expected Quantity
	}{
		{"positive", 4.5, 4.5},
		{"zero", 0, 0},
		{"negative", -3, 0},
		{"nan", Quantity(math.NaN()), 0},
		{"infinite", Quantity(math.Inf(1)), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.input.Clamp(); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestQuantityArithmetic(t *testing.T) {
	if got := AddQuantities(0.1, 0.2); got != 0.3 {
		t.Errorf("Expected 0.1 + 0.2 = 0.3, got %v", got)
	}
	if got := SubtractQuantities(1, 0.9); got != 0.1 {
		t.Errorf("Expected 1 - 0.9 = 0.1, got %v", got)
	}
	if got := SumQuantities(); got != 0 {
		t.Errorf("Expected empty sum 0, got %v", got)
	}

	var total Quantity
	for i := 0; i < 10; i++ {
		total = AddQuantities(total, 0.1)
	}
	if total != 1 {
		t.Errorf("Expected ten additions of 0.1 to equal 1, got %v", total)
	}
}

func TestWithinTolerance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Quantity
		expected bool
	}{
		{"equal", 10, 10, true},
		{"inside", 10, 10.0009, true},
		{"boundary", 10, 10.001, true},
		{"outside", 10, 10.002, false},
		{"negative_difference", 7, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinTolerance(tt.a, tt.b, QuantityTolerance); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
