// Package protocol renders engine operations as the text replies of the
// request/reply service. It is the only place sentinel reply strings exist.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/uhyunpark/minimatch/pkg/app/core/ledger"
)

// Request kinds
const (
	ReqRegister = "Reg"
	ReqHello    = "Hel"
	ReqTrade    = "Tra"
	ReqStatus   = "Sta"
	ReqReset    = "Free"
)

// Fixed reply texts
const (
	ReplyUnknownUser    = "Error! Unknown User"
	ReplyAccepted       = "Your application is being processed"
	ReplyRejected       = "Incorrect input"
	ReplyReset          = "bibip"
	ReplyUnknownRequest = "Error! Unknown request type"
)

// Request is one client call. UserID is a decimal user id; Message carries the
// display name for Reg and the order text for Tra.
type Request struct {
	ReqType string  `json:"ReqType"`
	UserID  UserRef `json:"UserId,omitempty"`
	Message string  `json:"Message,omitempty"`
}

// UserRef accepts a user id written either as a JSON string ("3") or a number (3).
type UserRef string

func (r *UserRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = UserRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("user id must be a string or number: %w", err)
	}
	*r = UserRef(n.String())
	return nil
}

// ID parses the reference as a non-negative decimal integer.
func (r UserRef) ID() (ledger.UserID, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(string(r)))
	if err != nil || n < 0 {
		return 0, false
	}
	return ledger.UserID(n), true
}

func Ref(id ledger.UserID) UserRef {
	return UserRef(strconv.Itoa(int(id)))
}

// FormatBalance renders balances as "USD <base>, Money <quote>" with six fractional digits.
func FormatBalance(b ledger.Balance) string {
	return "USD " + b.Base.StringFixed(6) + ", Money " + b.Quote.StringFixed(6)
}

// Encode marshals req as one line, newline included.
func Encode(req Request) ([]byte, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
