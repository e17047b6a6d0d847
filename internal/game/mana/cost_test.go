package mana

import (
	"testing"
)

func TestParseCost(t *testing.T) {
	tests := []struct {
		input    string
		expected *ManaCost
		err      bool
	}{
		{"", &ManaCost{}, false},
		{"{1}", &ManaCost{Generic: 1}, false},
		{"{G}", &ManaCost{Green: 1}, false},
		{"{1}{G}", &ManaCost{Generic: 1, Green: 1}, false},
		{"{2}{R}{R}", &ManaCost{Generic: 2, Red: 2}, false},
		{"{X}{R}", &ManaCost{X: true, Red: 1}, false},
		{"{W}{U}{B}{R}{G}", &ManaCost{White: 1, Blue: 1, Black: 1, Red: 1, Green: 1}, false},
		{"{C}", &ManaCost{Colorless: 1}, false},
		{"{Q}", nil, true},
		{"{W/}", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseCost(tt.input)
			if tt.err {
				if err == nil {
					t.Errorf("Expected error for %s, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error for %s: %v", tt.input, err)
				return
			}
			if result.Generic != tt.expected.Generic {
				t.Errorf("Generic: expected %d, got %d", tt.expected.Generic, result.Generic)
			}
			if result.White != tt.expected.White {
				t.Errorf("White: expected %d, got %d", tt.expected.White, result.White)
			}
			if result.Blue != tt.expected.Blue {
				t.Errorf("Blue: expected %d, got %d", tt.expected.Blue, result.Blue)
			}
			if result.Black != tt.expected.Black {
				t.Errorf("Black: expected %d, got %d", tt.expected.Black, result.Black)
			}
			if result.Red != tt.expected.Red {
				t.Errorf("Red: expected %d, got %d", tt.expected.Red, result.Red)
			}
			if result.Green != tt.expected.Green {
				t.Errorf("Green: expected %d, got %d", tt.expected.Green, result.Green)
			}
			if result.Colorless != tt.expected.Colorless {
				t.Errorf("Colorless: expected %d, got %d", tt.expected.Colorless, result.Colorless)
			}
			if result.X != tt.expected.X {
				t.Errorf("X: expected %v, got %v", tt.expected.X, result.X)
			}
		})
	}
}

func TestParseHybridCost(t *testing.T) {
	cost, err := ParseCost("{1}{W/U}{2/B}{G/P}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cost.Hybrid) != 3 {
		t.Fatalf("expected 3 hybrid symbols, got %d", len(cost.Hybrid))
	}
	if got := cost.Colors().String(); got != "WUBG" {
		t.Fatalf("expected colors WUBG, got %s", got)
	}
	// 1 generic + W/U (1) + 2/B (2) + G/P (1)
	if got := cost.ManaValue(); got != 5 {
		t.Fatalf("expected mana value 5, got %d", got)
	}
}

func TestManaCostString(t *testing.T) {
	cost, err := ParseCost("{3}{W}{W}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cost.String(); got != "{3}{W}{W}" {
		t.Fatalf("expected {3}{W}{W}, got %s", got)
	}
	empty := &ManaCost{}
	if got := empty.String(); got != "{0}" {
		t.Fatalf("expected {0}, got %s", got)
	}
}

func TestWithAdditionalGeneric(t *testing.T) {
	base := &ManaCost{Generic: 3, White: 1}
	taxed := base.WithAdditionalGeneric(4)

	if taxed.Generic != 7 {
		t.Fatalf("expected generic 7, got %d", taxed.Generic)
	}
	if taxed.White != 1 {
		t.Fatalf("expected white to stay 1, got %d", taxed.White)
	}
	if base.Generic != 3 {
		t.Fatalf("base cost must not be mutated, got generic %d", base.Generic)
	}
	if got := base.WithAdditionalGeneric(-2).Generic; got != 3 {
		t.Fatalf("negative increase must be ignored, got %d", got)
	}
}
