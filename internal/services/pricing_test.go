package services

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDerivePrice(t *testing.T) {
	cases := []struct {
		name        string
		base        string
		defaultRate string
		targetRate  string
		want        string
	}{
		{"direct rate", "100.00", "1.0", "0.85", "85"},
		{"above parity", "100.00", "1.0", "1.1", "110"},
		{"non unit default rate", "200.00", "2.0", "1.0", "100"},
		{"rounds to two places", "99.99", "1.0", "0.3333", "33.33"},
		{"identity", "49.90", "1.0", "1.0", "49.9"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := derivePrice(
				decimal.RequireFromString(tc.base),
				decimal.RequireFromString(tc.defaultRate),
				decimal.RequireFromString(tc.targetRate),
			)
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Errorf("derivePrice(%s, %s, %s) = %s, want %s",
					tc.base, tc.defaultRate, tc.targetRate, got, tc.want)
			}
		})
	}
}
