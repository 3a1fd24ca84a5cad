package exchange

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/minimatch/pkg/app/core/ledger"
	"github.com/uhyunpark/minimatch/pkg/app/core/orderbook"
	"github.com/uhyunpark/minimatch/pkg/util"
)

var (
	ErrUnknownUser = ledger.ErrUnknownUser
	// ErrSettlement means a resting order referenced a user the ledger does not know.
	ErrSettlement = errors.New("settlement failed")
)

// Ack is returned for an accepted order.
type Ack struct {
	Sequence uint64
	Trades   []Trade
	Resting  decimal.Decimal // quantity left in the book after matching
}

// Filled reports whether the order traded its whole quantity.
func (a Ack) Filled() bool { return a.Resting.IsZero() }

// Depth is a snapshot of both sides of the book, best price first.
type Depth struct {
	Bids []orderbook.PriceLevel
	Asks []orderbook.PriceLevel
}

// Engine is the single entry point to the matching state. Each method runs under
// one exclusive lock, so callers never observe a half-applied order or reset.
type Engine struct {
	mu     sync.Mutex
	ledger *ledger.Ledger
	book   *orderbook.OrderBook

	epoch    uint64 // bumped by Reset
	tradeSeq uint64 // never reset, orders the trade journal

	clock  util.Clock
	logger *zap.SugaredLogger

	// OnTrade, when set, receives the trades of each PlaceOrder call after the lock is
	// released. Calls from concurrent orders may arrive out of order; use Trade.Number.
	OnTrade func(trades []Trade)

	// OnReset, when set, is called with the new epoch after Reset releases the lock.
	OnReset func(epoch uint64)
}

type Option func(*Engine)

func WithClock(c util.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTradeSeq continues trade numbering after last, e.g. the highest number
// already in a persistent journal.
func WithTradeSeq(last uint64) Option {
	return func(e *Engine) { e.tradeSeq = last }
}

func NewEngine(opts ...Option) *Engine {
	l := ledger.New()
	e := &Engine{
		ledger: l,
		book:   orderbook.NewOrderBook(l),
		clock:  util.RealClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = util.OrNop(e.logger)
	return e
}

// Register creates a user with zero balances.
func (e *Engine) Register(name string) ledger.UserID {
	e.mu.Lock()
	id := e.ledger.Register(name)
	e.mu.Unlock()

	e.logger.Debugw("user_registered", "user", id, "name", name)
	return id
}

// Greeting returns "Hello, <name>!" for a registered user.
func (e *Engine) Greeting(id ledger.UserID) (string, error) {
	e.mu.Lock()
	name, ok := e.ledger.NameOf(id)
	e.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("greeting user %d: %w", id, ErrUnknownUser)
	}
	return "Hello, " + name + "!", nil
}

// PlaceOrder parses raw as "<quantity>:<price>:<side>" and submits it for user id.
// A parse failure or an unknown user leaves the engine untouched.
func (e *Engine) PlaceOrder(id ledger.UserID, raw string) (Ack, error) {
	o, err := orderbook.Parse(raw)
	if err != nil {
		e.logger.Debugw("order_rejected", "user", id, "order", raw, "err", err)
		return Ack{}, err
	}

	e.mu.Lock()
	ack, err := e.submitLocked(id, o)
	e.mu.Unlock()

	// Fills completed before a settlement failure are real trades and are still reported.
	if len(ack.Trades) > 0 && e.OnTrade != nil {
		defer e.OnTrade(ack.Trades)
	}

	switch {
	case errors.Is(err, ErrSettlement):
		e.logger.Errorw("settlement_failed", "user", id, "order", raw, "err", err)
		return Ack{}, err
	case err != nil:
		e.logger.Debugw("order_rejected", "user", id, "order", raw, "err", err)
		return Ack{}, err
	}

	e.logger.Debugw("order_placed",
		"user", id,
		"seq", ack.Sequence,
		"side", o.Side.String(),
		"price", o.Price.String(),
		"qty", o.Qty.String(),
		"trades", len(ack.Trades),
		"resting", ack.Resting.String())
	return ack, nil
}

func (e *Engine) submitLocked(id ledger.UserID, o orderbook.Order) (Ack, error) {
	if !e.ledger.Exists(id) {
		return Ack{}, fmt.Errorf("place order for user %d: %w", id, ErrUnknownUser)
	}

	seq, fills, err := e.book.Submit(o, id)
	trades := e.recordLocked(fills)
	if err != nil {
		return Ack{Sequence: seq, Trades: trades}, fmt.Errorf("%w: %w", ErrSettlement, err)
	}

	resting := o.Qty
	for _, t := range trades {
		resting = resting.Sub(t.Qty)
	}
	return Ack{Sequence: seq, Trades: trades, Resting: resting}, nil
}

func (e *Engine) recordLocked(fills []orderbook.Fill) []Trade {
	if len(fills) == 0 {
		return nil
	}
	now := e.clock.Now()
	trades := make([]Trade, len(fills))
	for i, f := range fills {
		e.tradeSeq++
		trades[i] = Trade{
			ID:        uuid.New(),
			Number:    e.tradeSeq,
			Epoch:     e.epoch,
			TakerSeq:  f.TakerSeq,
			MakerSeq:  f.MakerSeq,
			TakerSide: f.TakerSide.String(),
			Buyer:     f.Buyer,
			Seller:    f.Seller,
			Price:     f.Price,
			Qty:       f.Qty,
			Time:      now,
		}
	}
	return trades
}

// Status returns the balances of a registered user.
func (e *Engine) Status(id ledger.UserID) (ledger.Balance, error) {
	e.mu.Lock()
	bal, ok := e.ledger.StatusOf(id)
	e.mu.Unlock()

	if !ok {
		return ledger.Balance{}, fmt.Errorf("status of user %d: %w", id, ErrUnknownUser)
	}
	return bal, nil
}

// Reset forgets every user and resting order and starts a new epoch.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.ledger.Reset()
	e.book.Reset()
	e.epoch++
	epoch := e.epoch
	e.mu.Unlock()

	e.logger.Infow("engine_reset", "epoch", epoch)
	if e.OnReset != nil {
		e.OnReset(epoch)
	}
}

// Epoch returns the number of resets performed so far.
func (e *Engine) Epoch() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch
}

// Book returns the aggregated depth of both sides.
func (e *Engine) Book() Depth {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Depth{Bids: e.book.GetBidLevels(), Asks: e.book.GetAskLevels()}
}

// User returns the registered user with the given id.
func (e *Engine) User(id ledger.UserID) (ledger.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.ledger.Get(id)
	if !ok {
		return ledger.User{}, fmt.Errorf("lookup user %d: %w", id, ErrUnknownUser)
	}
	return u, nil
}

// Users returns every registered user ordered by id.
func (e *Engine) Users() []ledger.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Users()
}

// Totals returns the sums of all base and quote balances.
func (e *Engine) Totals() (base, quote decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Totals()
}
