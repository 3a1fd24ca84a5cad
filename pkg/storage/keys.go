package storage

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

const prefixTrade = "trade:"

// tradeKey returns the journal key of a trade.
// Format: "trade:{number}:{id}", number zero-padded to 20 digits so keys sort by number.
func tradeKey(number uint64, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", prefixTrade, number, id))
}

// tradeNumber extracts the trade number from a key written by tradeKey.
func tradeNumber(key []byte) (uint64, error) {
	const width = 20
	if len(key) < len(prefixTrade)+width {
		return 0, fmt.Errorf("short trade key %q", key)
	}
	return strconv.ParseUint(string(key[len(prefixTrade):len(prefixTrade)+width]), 10, 64)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
