package lexer

import "testing"

func TestMoneyLiteralLen(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1,234.56", 8},
		{"1,234", 5},
		{"12,345,678.90", 13},
		{"1", 0},         // plain positional parameter
		{"1, 2", 0},      // comma not followed by a three-digit group
		{"1,23", 0},      // two-digit group
		{"1,2345", 0},    // four digits after the comma
		{"1,234.5", 5},   // one-digit tail is not a money decimal
		{"1,234.567", 5}, // three-digit tail is not a money decimal
		{"", 0},
	}
	for _, tt := range tests {
		if got := moneyLiteralLen(tt.in); got != tt.want {
			t.Errorf("moneyLiteralLen(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestHasThreeDigitGroup(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"234", true},
		{"234.56", true},
		{"2345", false},
		{"23", false},
		{" 23", false},
	}
	for _, tt := range tests {
		if got := hasThreeDigitGroup(tt.in); got != tt.want {
			t.Errorf("hasThreeDigitGroup(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDecimalTailLen(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{".56", 3},
		{".56 and", 3},
		{".5", 0},
		{".567", 0},
		{"56", 0},
	}
	for _, tt := range tests {
		if got := decimalTailLen(tt.in); got != tt.want {
			t.Errorf("decimalTailLen(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
