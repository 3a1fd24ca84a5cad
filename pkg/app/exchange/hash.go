package exchange

import (
	"encoding/binary"
	"hash"

	"golang.org/x/crypto/sha3"

	"github.com/uhyunpark/minimatch/pkg/app/core/orderbook"
)

// StateHash computes a deterministic Keccak-256 digest of the matching state.
//
// Components hashed (in order):
//  1. Epoch (8 bytes, big-endian)
//  2. Each user by id: id, name, base balance, quote balance
//  3. Bid levels (high to low), then ask levels (low to high): price, qty, order count
//
// Decimals are hashed in canonical string form, so 60 and 60.0 hash the same.
func (e *Engine) StateHash() [32]byte {
	e.mu.Lock()
	epoch := e.epoch
	users := e.ledger.Users()
	bids := e.book.GetBidLevels()
	asks := e.book.GetAskLevels()
	e.mu.Unlock()

	h := sha3.NewLegacyKeccak256()
	var buf [8]byte

	binary.BigEndian.PutUint64(buf[:], epoch)
	h.Write(buf[:])

	for _, u := range users {
		binary.BigEndian.PutUint64(buf[:], uint64(u.ID))
		h.Write(buf[:])
		writeString(h, u.Name)
		writeString(h, u.Base.String())
		writeString(h, u.Quote.String())
	}

	writeLevels(h, "bids", bids)
	writeLevels(h, "asks", asks)

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// writeString length-prefixes s so adjacent fields cannot run together.
func writeString(h hash.Hash, s string) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(len(s)))
	h.Write(buf[:])
	h.Write([]byte(s))
}

func writeLevels(h hash.Hash, tag string, levels []orderbook.PriceLevel) {
	writeString(h, tag)
	var buf [8]byte
	for _, lvl := range levels {
		writeString(h, lvl.Price.String())
		writeString(h, lvl.Qty.String())
		binary.BigEndian.PutUint64(buf[:], uint64(lvl.Orders))
		h.Write(buf[:])
	}
}
