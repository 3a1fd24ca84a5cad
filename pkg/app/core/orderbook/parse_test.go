package orderbook

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		side  Side
		qty   string
		price string
	}{
		{"integer buy", "10:60:buy", Buy, "10", "60"},
		{"integer sell", "30:61:sell", Sell, "30", "61"},
		{"fractional", "0.5:100.25:buy", Buy, "0.5", "100.25"},
		{"exponent", "1.5e2:2E1:sell", Sell, "150", "20"},
		{"explicit plus sign", "+3:7:buy", Buy, "3", "7"},
		{"exponent bounds", "1e-18:1e18:buy", Buy, "0.000000000000000001", "1000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q): unexpected error: %v", tt.raw, err)
			}
			if o.Side != tt.side {
				t.Errorf("side: got %v, want %v", o.Side, tt.side)
			}
			if !o.Qty.Equal(decimal.RequireFromString(tt.qty)) {
				t.Errorf("qty: got %s, want %s", o.Qty, tt.qty)
			}
			if !o.Price.Equal(decimal.RequireFromString(tt.price)) {
				t.Errorf("price: got %s, want %s", o.Price, tt.price)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		raw   string
		field string
		want  error
	}{
		{"10:60:None", "side", ErrUnknownSide},
		{"10:100:buy:::", "order", ErrMalformedStructure},
		{":::", "order", ErrMalformedStructure},
		{":10:10", "quantity", ErrNumericFormat},
		{"buy:sell:buy", "quantity", ErrNumericFormat},
		{"10::sell", "price", ErrNumericFormat},
		{"", "order", ErrMalformedStructure},
		{"10:60", "order", ErrMalformedStructure},
		{"10:60:Buy", "side", ErrUnknownSide},
		{"10:60: buy", "side", ErrUnknownSide},
		{"0:60:buy", "quantity", ErrNonPositive},
		{"10:-1:sell", "price", ErrNonPositive},
		{"-5:60:sell", "quantity", ErrNonPositive},
		{"10:abc:buy", "price", ErrNumericFormat},
		{"1:1e400000000:sell", "price", ErrNumericFormat},
		{"1e-400000000:1:buy", "quantity", ErrNumericFormat},
		{"1:1e19:sell", "price", ErrNumericFormat},
		{"1.5e-18:1:buy", "quantity", ErrNumericFormat},
		{"1:" + strings.Repeat("9", 39) + ":buy", "price", ErrNumericFormat},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, err := Parse(tt.raw)
			if err == nil {
				t.Fatalf("Parse(%q): expected error", tt.raw)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not a *ParseError", err)
			}
			if pe.Field != tt.field {
				t.Errorf("field: got %q, want %q", pe.Field, tt.field)
			}
			if pe.Input != tt.raw {
				t.Errorf("input: got %q, want %q", pe.Input, tt.raw)
			}
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, raw := range []string{"10:60:buy", "0.25:99.5:sell"} {
		o, err := Parse(raw)
		if err != nil {
			t.Fatalf("Parse(%q): %v", raw, err)
		}
		if got := Format(o); got != raw {
			t.Errorf("Format: got %q, want %q", got, raw)
		}
	}
}
