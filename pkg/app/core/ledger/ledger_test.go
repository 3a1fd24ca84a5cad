package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRegisterAssignsDenseIDs(t *testing.T) {
	l := New()
	for want, name := range []string{"alice", "bob", "alice"} {
		if got := l.Register(name); got != UserID(want) {
			t.Errorf("Register(%q): got %d, want %d", name, got, want)
		}
	}
	if l.Len() != 3 {
		t.Errorf("got %d users, want 3", l.Len())
	}

	name, ok := l.NameOf(1)
	if !ok || name != "bob" {
		t.Errorf("NameOf(1): got %q %v, want bob", name, ok)
	}
	bal, ok := l.StatusOf(2)
	if !ok || !bal.Base.IsZero() || !bal.Quote.IsZero() {
		t.Errorf("StatusOf(2): got %+v %v, want zero balances", bal, ok)
	}
}

func TestLookupUnknown(t *testing.T) {
	l := New()
	l.Register("a")

	for _, id := range []UserID{-1, 1, 100} {
		if l.Exists(id) {
			t.Errorf("Exists(%d) = true", id)
		}
		if _, ok := l.NameOf(id); ok {
			t.Errorf("NameOf(%d) found", id)
		}
		if _, ok := l.StatusOf(id); ok {
			t.Errorf("StatusOf(%d) found", id)
		}
	}
}

func TestApplyTrade(t *testing.T) {
	l := New()
	buyer := l.Register("buyer")
	seller := l.Register("seller")

	if err := l.ApplyTrade(buyer, seller, decimal.RequireFromString("2.5"), decimal.RequireFromString("40")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		id          UserID
		base, quote string
	}{
		{buyer, "2.5", "-100"},
		{seller, "-2.5", "100"},
	}
	for _, tt := range tests {
		bal, _ := l.StatusOf(tt.id)
		if !bal.Base.Equal(decimal.RequireFromString(tt.base)) || !bal.Quote.Equal(decimal.RequireFromString(tt.quote)) {
			t.Errorf("user %d: got (%s, %s), want (%s, %s)", tt.id, bal.Base, bal.Quote, tt.base, tt.quote)
		}
	}

	base, quote := l.Totals()
	if !base.IsZero() || !quote.IsZero() {
		t.Errorf("totals: got (%s, %s), want zero", base, quote)
	}
}

func TestApplyTradeUnknownUserChangesNothing(t *testing.T) {
	l := New()
	l.Register("only")

	err := l.ApplyTrade(0, 7, decimal.NewFromInt(1), decimal.NewFromInt(1))
	if !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("got %v, want ErrUnknownUser", err)
	}
	bal, _ := l.StatusOf(0)
	if !bal.Base.IsZero() || !bal.Quote.IsZero() {
		t.Errorf("balance changed: %+v", bal)
	}
}

func TestReset(t *testing.T) {
	l := New()
	l.Register("a")
	l.Register("b")
	l.Reset()

	if l.Len() != 0 || l.Exists(0) {
		t.Fatalf("users survived reset")
	}
	if id := l.Register("c"); id != 0 {
		t.Errorf("first id after reset: got %d, want 0", id)
	}
	users := l.Users()
	if len(users) != 1 || users[0].Name != "c" {
		t.Errorf("users: got %+v", users)
	}
}
