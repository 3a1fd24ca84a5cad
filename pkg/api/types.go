package api

import (
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/minimatch/pkg/app/exchange"
)

// Decimals marshal as JSON strings so no precision is lost.

type RegisterRequest struct {
	Name string `json:"name"`
}

type RegisterResponse struct {
	ID int `json:"id"`
}

type UserInfo struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Greeting string `json:"greeting"`
}

type BalanceInfo struct {
	Base  decimal.Decimal `json:"base"`
	Quote decimal.Decimal `json:"quote"`
	Text  string          `json:"text"` // same rendering as the line protocol
}

type PlaceOrderRequest struct {
	Order string `json:"order"` // "<quantity>:<price>:<side>"
}

type PlaceOrderResponse struct {
	Status   string           `json:"status"`
	Sequence uint64           `json:"sequence"`
	Resting  decimal.Decimal  `json:"resting"`
	Trades   []exchange.Trade `json:"trades"`
}

// PriceLevel is one aggregated price of the book.
type PriceLevel struct {
	Price  decimal.Decimal `json:"price"`
	Size   decimal.Decimal `json:"size"`
	Orders int             `json:"orders"`
}

type BookSnapshot struct {
	Bids      []PriceLevel `json:"bids"` // high to low
	Asks      []PriceLevel `json:"asks"` // low to high
	Epoch     uint64       `json:"epoch"`
	Timestamp int64        `json:"timestamp"` // unix millis
}

type StateInfo struct {
	Hash  string `json:"hash"` // 0x-prefixed keccak256
	Epoch uint64 `json:"epoch"`
	Users int    `json:"users"`
}

type DispatchResponse struct {
	Reply string `json:"reply"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WebSocket messages

type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

type TradeUpdate struct {
	Type   string           `json:"type"` // "trades"
	Trades []exchange.Trade `json:"trades"`
}

type BookUpdate struct {
	Type string `json:"type"` // "book"
	BookSnapshot
}
