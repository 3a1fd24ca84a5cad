package orderbook

import (
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/minimatch/pkg/app/core/ledger"
)

type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Opposite returns the side an order of this side trades against.
func (s Side) Opposite() Side { return -s }

// Order is a request to trade. Qty shrinks on partial fills; Price never changes.
// Seq is assigned by the book on submission and is the order's identity and time priority.
type Order struct {
	Seq   uint64
	Owner ledger.UserID
	Side  Side
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// Fill is one settlement between the incoming order (taker) and a resting order (maker).
// Price is always the maker's price.
type Fill struct {
	TakerSeq  uint64
	MakerSeq  uint64
	TakerSide Side
	Buyer     ledger.UserID
	Seller    ledger.UserID
	Price     decimal.Decimal
	Qty       decimal.Decimal
}

type PriceLevel struct {
	Price  decimal.Decimal
	Qty    decimal.Decimal // total qty at this price level
	Orders int
}
