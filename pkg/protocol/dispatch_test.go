package protocol

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/minimatch/pkg/app/core/ledger"
	"github.com/uhyunpark/minimatch/pkg/app/exchange"
)

func TestDispatchSession(t *testing.T) {
	d := NewDispatcher(exchange.NewEngine(), nil)

	steps := []struct {
		name string
		line string
		want string
	}{
		{"register first", `{"ReqType":"Reg","Message":"Alice"}`, "0"},
		{"register second", `{"ReqType":"Reg","Message":"Bob"}`, "1"},
		{"hello", `{"ReqType":"Hel","UserId":"0"}`, "Hello, Alice!"},
		{"hello numeric id", `{"ReqType":"Hel","UserId":1}`, "Hello, Bob!"},
		{"hello unknown", `{"ReqType":"Hel","UserId":"9"}`, ReplyUnknownUser},
		{"hello garbage id", `{"ReqType":"Hel","UserId":"x"}`, ReplyUnknownUser},
		{"buy", `{"ReqType":"Tra","UserId":"0","Message":"10:60:buy"}`, ReplyAccepted},
		{"sell", `{"ReqType":"Tra","UserId":"1","Message":"4:59.5:sell"}`, ReplyAccepted},
		{"bad order", `{"ReqType":"Tra","UserId":"0","Message":"10:60:None"}`, ReplyRejected},
		{"order unknown user", `{"ReqType":"Tra","UserId":"7","Message":"10:60:buy"}`, ReplyRejected},
		{"status buyer", `{"ReqType":"Sta","UserId":"0"}`, "USD 4.000000, Money -240.000000"},
		{"status seller", `{"ReqType":"Sta","UserId":"1"}`, "USD -4.000000, Money 240.000000"},
		{"status unknown", `{"ReqType":"Sta","UserId":"2"}`, ReplyUnknownUser},
		{"unknown kind", `{"ReqType":"Nope"}`, ReplyUnknownRequest},
		{"not json", `hello`, ReplyUnknownRequest},
		{"reset", `{"ReqType":"Free"}`, ReplyReset},
		{"status after reset", `{"ReqType":"Sta","UserId":"0"}`, ReplyUnknownUser},
		{"register after reset", `{"ReqType":"Reg","Message":"Carol"}`, "0"},
	}

	for _, s := range steps {
		if got := d.HandleRaw([]byte(s.line)); got != s.want {
			t.Errorf("%s: got %q, want %q", s.name, got, s.want)
		}
	}
}

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		base, quote string
		want        string
	}{
		{"0", "0", "USD 0.000000, Money 0.000000"},
		{"30", "-1830", "USD 30.000000, Money -1830.000000"},
		{"0.1234567", "2.5", "USD 0.123457, Money 2.500000"},
	}
	for _, tt := range tests {
		got := FormatBalance(ledger.Balance{
			Base:  decimal.RequireFromString(tt.base),
			Quote: decimal.RequireFromString(tt.quote),
		})
		if got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestRequestEncoding(t *testing.T) {
	line, err := Encode(Request{ReqType: ReqTrade, UserID: Ref(3), Message: "1:2:buy"})
	if err != nil {
		t.Fatal(err)
	}
	if line[len(line)-1] != '\n' {
		t.Fatalf("encoded request lacks newline: %q", line)
	}

	var back Request
	if err := json.Unmarshal(line, &back); err != nil {
		t.Fatal(err)
	}
	id, ok := back.UserID.ID()
	if back.ReqType != ReqTrade || !ok || id != 3 || back.Message != "1:2:buy" {
		t.Errorf("got %+v", back)
	}
}
