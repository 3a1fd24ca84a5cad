package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrUnknownUser = errors.New("unknown user")

// UserID is assigned densely from 0 in registration order.
type UserID int

// User tracks the two running balances a trade moves: Base is the traded asset,
// Quote is money. Both start at zero and may go negative.
type User struct {
	ID    UserID
	Name  string
	Base  decimal.Decimal
	Quote decimal.Decimal
}

// Balance is a read-only snapshot of a user's balances.
type Balance struct {
	Base  decimal.Decimal
	Quote decimal.Decimal
}

// Ledger maps user ids to balances. Every trade moves base and quote between exactly
// two users, so both columns always sum to zero.
//
// Ledger is not safe for concurrent use; the exchange engine serializes access.
type Ledger struct {
	users []User // index == UserID
}

func New() *Ledger {
	return &Ledger{}
}

// Register stores a new user with zero balances and returns its id.
func (l *Ledger) Register(name string) UserID {
	id := UserID(len(l.users))
	l.users = append(l.users, User{ID: id, Name: name})
	return id
}

func (l *Ledger) lookup(id UserID) (*User, bool) {
	if id < 0 || int(id) >= len(l.users) {
		return nil, false
	}
	return &l.users[id], true
}

// Exists reports whether id has been registered since the last Reset.
func (l *Ledger) Exists(id UserID) bool {
	_, ok := l.lookup(id)
	return ok
}

// Get returns a copy of the user with the given id.
func (l *Ledger) Get(id UserID) (User, bool) {
	u, ok := l.lookup(id)
	if !ok {
		return User{}, false
	}
	return *u, true
}

func (l *Ledger) NameOf(id UserID) (string, bool) {
	u, ok := l.lookup(id)
	if !ok {
		return "", false
	}
	return u.Name, true
}

func (l *Ledger) StatusOf(id UserID) (Balance, bool) {
	u, ok := l.lookup(id)
	if !ok {
		return Balance{}, false
	}
	return Balance{Base: u.Base, Quote: u.Quote}, true
}

// ApplyTrade moves qty of base from seller to buyer and qty*price of quote from buyer
// to seller. Both ids are checked before either balance changes.
func (l *Ledger) ApplyTrade(buyer, seller UserID, qty, price decimal.Decimal) error {
	b, ok := l.lookup(buyer)
	if !ok {
		return fmt.Errorf("buyer %d: %w", buyer, ErrUnknownUser)
	}
	s, ok := l.lookup(seller)
	if !ok {
		return fmt.Errorf("seller %d: %w", seller, ErrUnknownUser)
	}

	notional := qty.Mul(price)
	b.Base = b.Base.Add(qty)
	b.Quote = b.Quote.Sub(notional)
	s.Base = s.Base.Sub(qty)
	s.Quote = s.Quote.Add(notional)
	return nil
}

// Len returns the number of registered users.
func (l *Ledger) Len() int { return len(l.users) }

// Users returns a copy of every user ordered by id.
func (l *Ledger) Users() []User {
	out := make([]User, len(l.users))
	copy(out, l.users)
	return out
}

// Totals sums base and quote over all users. Both are zero unless the ledger is corrupt.
func (l *Ledger) Totals() (base, quote decimal.Decimal) {
	for _, u := range l.users {
		base = base.Add(u.Base)
		quote = quote.Add(u.Quote)
	}
	return base, quote
}

// Reset forgets every user; ids restart at 0.
func (l *Ledger) Reset() {
	l.users = nil
}
