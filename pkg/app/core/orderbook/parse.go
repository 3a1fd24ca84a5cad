package orderbook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const orderDelimiter = ":"

// Bounds on accepted numbers. Anything outside them would make decimal
// arithmetic rescale to arbitrary width.
const (
	maxExponent = 18
	maxDigits   = 38
)

var (
	ErrMalformedStructure = errors.New("expected quantity:price:side with exactly two delimiters")
	ErrNumericFormat      = errors.New("not a decimal number")
	ErrNonPositive        = errors.New("must be positive")
	ErrUnknownSide        = errors.New(`side must be "buy" or "sell"`)
)

// ParseError describes why an order text was rejected.
type ParseError struct {
	Input string
	Field string // "order", "quantity", "price" or "side"
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse order %q: %s: %v", e.Input, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse turns "<quantity>:<price>:<side>" into an unsubmitted Order.
// Numbers accept an optional sign, a fractional part and an exponent ("1.5e2")
// as long as the normalized exponent stays within ±18 and the digits within 38;
// side is matched exactly, without trimming or case folding.
func Parse(raw string) (Order, error) {
	if strings.Count(raw, orderDelimiter) != 2 {
		return Order{}, &ParseError{Input: raw, Field: "order", Err: ErrMalformedStructure}
	}
	fields := strings.Split(raw, orderDelimiter)

	qty, err := parsePositive(raw, "quantity", fields[0])
	if err != nil {
		return Order{}, err
	}
	price, err := parsePositive(raw, "price", fields[1])
	if err != nil {
		return Order{}, err
	}

	var side Side
	switch fields[2] {
	case "buy":
		side = Buy
	case "sell":
		side = Sell
	default:
		return Order{}, &ParseError{Input: raw, Field: "side", Err: ErrUnknownSide}
	}

	return Order{Side: side, Price: price, Qty: qty}, nil
}

func parsePositive(raw, field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, &ParseError{Input: raw, Field: field, Err: fmt.Errorf("%w: %q", ErrNumericFormat, s)}
	}
	if exp := d.Exponent(); exp < -maxExponent || exp > maxExponent || d.NumDigits() > maxDigits {
		return decimal.Decimal{}, &ParseError{Input: raw, Field: field, Err: fmt.Errorf("%w: %q out of range", ErrNumericFormat, s)}
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, &ParseError{Input: raw, Field: field, Err: ErrNonPositive}
	}
	return d, nil
}

// Format renders an order back into its wire text.
func Format(o Order) string {
	return o.Qty.String() + orderDelimiter + o.Price.String() + orderDelimiter + o.Side.String()
}
