package exchange

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/minimatch/pkg/app/core/ledger"
)

// Trade is one executed fill. Price is the resting order's price.
type Trade struct {
	ID        uuid.UUID       `json:"id"`
	Number    uint64          `json:"number"` // engine-wide, strictly increasing
	Epoch     uint64          `json:"epoch"`
	TakerSeq  uint64          `json:"takerSeq"`
	MakerSeq  uint64          `json:"makerSeq"`
	TakerSide string          `json:"takerSide"` // "buy" or "sell"
	Buyer     ledger.UserID   `json:"buyer"`
	Seller    ledger.UserID   `json:"seller"`
	Price     decimal.Decimal `json:"price"`
	Qty       decimal.Decimal `json:"qty"`
	Time      time.Time       `json:"time"`
}

// Notional is the quote amount that changed hands.
func (t Trade) Notional() decimal.Decimal {
	return t.Qty.Mul(t.Price)
}
