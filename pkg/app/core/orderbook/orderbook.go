package orderbook

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/minimatch/pkg/app/core/ledger"
)

var ErrInvalidOrder = errors.New("order must have a side and a positive price and quantity")

// Settler applies the balance changes of one trade. The ledger implements it.
type Settler interface {
	ApplyTrade(buyer, seller ledger.UserID, qty, price decimal.Decimal) error
}

// OrderBook holds resting orders of one instrument and crosses incoming orders
// against them by price-time priority.
//
// OrderBook is not safe for concurrent use; the exchange engine serializes access.
type OrderBook struct {
	bids *bidQueue
	asks *askQueue

	nextSeq uint64
	settler Settler
}

// queue is the view of one side the matching loop needs.
type queue interface {
	heap.Interface
	Peek() *Order
}

func NewOrderBook(settler Settler) *OrderBook {
	bids := &bidQueue{}
	asks := &askQueue{}
	heap.Init(bids)
	heap.Init(asks)

	return &OrderBook{
		bids:    bids,
		asks:    asks,
		settler: settler,
	}
}

func (ob *OrderBook) side(s Side) queue {
	if s == Buy {
		return ob.bids
	}
	return ob.asks
}

// crosses reports whether a resting maker is marketable against the taker's limit.
func crosses(taker, maker *Order) bool {
	if taker.Side == Buy {
		return maker.Price.LessThanOrEqual(taker.Price)
	}
	return maker.Price.GreaterThanOrEqual(taker.Price)
}

// Submit assigns the next sequence to o and matches it against the opposite side.
// Candidates are visited best price first, then by ascending sequence; the scan stops
// at the first maker that does not cross. Every fill executes at the maker's price and
// is settled through the Settler before the book is touched. Any unfilled remainder rests.
//
// A settlement error stops matching: fills already returned are complete in both
// the book and the ledger, and the remainder of o is not rested.
func (ob *OrderBook) Submit(o Order, owner ledger.UserID) (uint64, []Fill, error) {
	if (o.Side != Buy && o.Side != Sell) || !o.Qty.IsPositive() || !o.Price.IsPositive() {
		return 0, nil, ErrInvalidOrder
	}

	taker := &Order{
		Seq:   ob.nextSeq,
		Owner: owner,
		Side:  o.Side,
		Price: o.Price,
		Qty:   o.Qty,
	}
	ob.nextSeq++

	var fills []Fill
	makers := ob.side(taker.Side.Opposite())

	for taker.Qty.IsPositive() {
		maker := makers.Peek()
		if maker == nil || !crosses(taker, maker) {
			break
		}

		qty := decimal.Min(taker.Qty, maker.Qty)
		buyer, seller := taker.Owner, maker.Owner
		if taker.Side == Sell {
			buyer, seller = maker.Owner, taker.Owner
		}

		if err := ob.settler.ApplyTrade(buyer, seller, qty, maker.Price); err != nil {
			return taker.Seq, fills, fmt.Errorf("settle taker %d against maker %d: %w", taker.Seq, maker.Seq, err)
		}

		fills = append(fills, Fill{
			TakerSeq:  taker.Seq,
			MakerSeq:  maker.Seq,
			TakerSide: taker.Side,
			Buyer:     buyer,
			Seller:    seller,
			Price:     maker.Price,
			Qty:       qty,
		})

		taker.Qty = taker.Qty.Sub(qty)
		maker.Qty = maker.Qty.Sub(qty)
		if maker.Qty.IsZero() {
			heap.Pop(makers)
		}
		// A partially filled maker keeps its (price, seq) key, so the heap stays valid.
	}

	if taker.Qty.IsPositive() {
		heap.Push(ob.side(taker.Side), taker)
	}
	return taker.Seq, fills, nil
}

// Orders returns copies of the resting orders of one side in execution priority.
func (ob *OrderBook) Orders(s Side) []Order {
	var sorted []*Order
	if s == Buy {
		q := make(bidQueue, ob.bids.Len())
		copy(q, *ob.bids)
		sort.Sort(q)
		sorted = q
	} else {
		q := make(askQueue, ob.asks.Len())
		copy(q, *ob.asks)
		sort.Sort(q)
		sorted = q
	}

	out := make([]Order, len(sorted))
	for i, o := range sorted {
		out[i] = *o
	}
	return out
}

// GetBidLevels returns bid price levels sorted high to low (best bid first).
func (ob *OrderBook) GetBidLevels() []PriceLevel {
	return levels(ob.Orders(Buy))
}

// GetAskLevels returns ask price levels sorted low to high (best ask first).
func (ob *OrderBook) GetAskLevels() []PriceLevel {
	return levels(ob.Orders(Sell))
}

// levels aggregates orders already sorted by price into one entry per price.
func levels(orders []Order) []PriceLevel {
	var out []PriceLevel
	for _, o := range orders {
		if n := len(out); n > 0 && out[n-1].Price.Equal(o.Price) {
			out[n-1].Qty = out[n-1].Qty.Add(o.Qty)
			out[n-1].Orders++
			continue
		}
		out = append(out, PriceLevel{Price: o.Price, Qty: o.Qty, Orders: 1})
	}
	return out
}

// BestBid returns the highest resting buy price.
func (ob *OrderBook) BestBid() (decimal.Decimal, bool) {
	if o := ob.bids.Peek(); o != nil {
		return o.Price, true
	}
	return decimal.Decimal{}, false
}

// BestAsk returns the lowest resting sell price.
func (ob *OrderBook) BestAsk() (decimal.Decimal, bool) {
	if o := ob.asks.Peek(); o != nil {
		return o.Price, true
	}
	return decimal.Decimal{}, false
}

// Len returns the number of resting orders on both sides.
func (ob *OrderBook) Len() int {
	return ob.bids.Len() + ob.asks.Len()
}

// Reset drops every resting order. Sequence numbers keep increasing so they are never reused.
func (ob *OrderBook) Reset() {
	ob.bids = &bidQueue{}
	ob.asks = &askQueue{}
}
