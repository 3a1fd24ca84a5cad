package exchange

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/uhyunpark/minimatch/pkg/app/core/ledger"
	"github.com/uhyunpark/minimatch/pkg/app/core/orderbook"
)

type drawnOrder struct {
	user  ledger.UserID
	side  string
	qty   int
	price int
}

func drawOrders(t *rapid.T, users int) []drawnOrder {
	n := rapid.IntRange(1, 40).Draw(t, "orders")
	out := make([]drawnOrder, n)
	for i := range out {
		out[i] = drawnOrder{
			user:  ledger.UserID(rapid.IntRange(0, users-1).Draw(t, "user")),
			side:  rapid.SampledFrom([]string{"buy", "sell"}).Draw(t, "side"),
			qty:   rapid.IntRange(1, 50).Draw(t, "qty"),
			price: rapid.IntRange(90, 110).Draw(t, "price"),
		}
	}
	return out
}

func (o drawnOrder) raw() string { return fmt.Sprintf("%d:%d:%s", o.qty, o.price, o.side) }

// Base and quote are only ever moved between users, so both columns sum to zero.
func TestPropertyConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		users := rapid.IntRange(1, 5).Draw(t, "users")
		e := NewEngine()
		for i := 0; i < users; i++ {
			e.Register(fmt.Sprintf("u%d", i))
		}

		for _, o := range drawOrders(t, users) {
			if _, err := e.PlaceOrder(o.user, o.raw()); err != nil {
				t.Fatalf("PlaceOrder(%d, %q): %v", o.user, o.raw(), err)
			}
			base, quote := e.Totals()
			if !base.IsZero() || !quote.IsZero() {
				t.Fatalf("totals after %q: (%s, %s)", o.raw(), base, quote)
			}
		}
	})
}

// Every submitted unit is either traded or still resting, and the book never stays crossed.
func TestPropertyNoQuantityLoss(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := NewEngine()
		e.Register("a")
		e.Register("b")

		submitted := map[string]decimal.Decimal{"buy": decimal.Zero, "sell": decimal.Zero}
		traded := decimal.Zero

		for _, o := range drawOrders(t, 2) {
			ack, err := e.PlaceOrder(o.user, o.raw())
			if err != nil {
				t.Fatalf("PlaceOrder: %v", err)
			}
			submitted[o.side] = submitted[o.side].Add(decimal.NewFromInt(int64(o.qty)))
			for _, tr := range ack.Trades {
				traded = traded.Add(tr.Qty)
			}
		}

		depth := e.Book()
		resting := map[string]decimal.Decimal{"buy": sumLevels(depth.Bids), "sell": sumLevels(depth.Asks)}
		for side, sub := range submitted {
			if got := traded.Add(resting[side]); !got.Equal(sub) {
				t.Fatalf("%s: traded %s + resting %s != submitted %s", side, traded, resting[side], sub)
			}
		}

		if len(depth.Bids) > 0 && len(depth.Asks) > 0 && !depth.Bids[0].Price.LessThan(depth.Asks[0].Price) {
			t.Fatalf("book crossed: bid %s ask %s", depth.Bids[0].Price, depth.Asks[0].Price)
		}
	})
}

// Each trade executes at the maker's price and never beyond the taker's limit.
func TestPropertyExecutionPrice(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := NewEngine()
		e.Register("a")
		e.Register("b")

		for _, o := range drawOrders(t, 2) {
			ack, err := e.PlaceOrder(o.user, o.raw())
			if err != nil {
				t.Fatalf("PlaceOrder: %v", err)
			}
			limit := decimal.NewFromInt(int64(o.price))
			for _, tr := range ack.Trades {
				if o.side == "buy" && tr.Price.GreaterThan(limit) {
					t.Fatalf("buy limited at %s paid %s", limit, tr.Price)
				}
				if o.side == "sell" && tr.Price.LessThan(limit) {
					t.Fatalf("sell limited at %s received %s", limit, tr.Price)
				}
			}
		}
	})
}

func sumLevels(levels []orderbook.PriceLevel) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range levels {
		sum = sum.Add(l.Qty)
	}
	return sum
}
