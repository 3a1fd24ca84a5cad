// Package storage keeps an append-only journal of executed trades in Pebble.
// The journal is an audit trail; engine state is never rebuilt from it.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/uhyunpark/minimatch/pkg/app/exchange"
)

type Journal struct {
	db *pebble.DB
}

// OpenJournal opens the journal at path. An empty path keeps it in memory.
func OpenJournal(path string) (*Journal, error) {
	opts := &pebble.Options{}
	if path == "" {
		opts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open trade journal %q: %w", path, err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// Append writes trades in one synced batch.
func (j *Journal) Append(trades []exchange.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	b := j.db.NewBatch()
	defer b.Close()

	for _, t := range trades {
		val, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal trade %d: %w", t.Number, err)
		}
		if err := b.Set(tradeKey(t.Number, t.ID), val, nil); err != nil {
			return fmt.Errorf("stage trade %d: %w", t.Number, err)
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit %d trades: %w", len(trades), err)
	}
	return nil
}

// Publish lets the journal act as a trade sink.
func (j *Journal) Publish(_ context.Context, trades []exchange.Trade) error {
	return j.Append(trades)
}

// Recent returns up to limit trades, newest first.
func (j *Journal) Recent(limit int) ([]exchange.Trade, error) {
	if limit <= 0 {
		return nil, nil
	}
	prefix := []byte(prefixTrade)
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("open trade iterator: %w", err)
	}
	defer iter.Close()

	trades := make([]exchange.Trade, 0, limit)
	for iter.Last(); iter.Valid() && len(trades) < limit; iter.Prev() {
		var t exchange.Trade
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			return nil, fmt.Errorf("decode trade at %q: %w", iter.Key(), err)
		}
		trades = append(trades, t)
	}
	return trades, iter.Error()
}

// Count returns the number of journaled trades.
func (j *Journal) Count() (int, error) {
	prefix := []byte(prefixTrade)
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return 0, fmt.Errorf("open trade iterator: %w", err)
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, iter.Error()
}

// LastNumber returns the highest journaled trade number, or 0 for an empty journal.
// A restarted engine continues numbering after it.
func (j *Journal) LastNumber() (uint64, error) {
	prefix := []byte(prefixTrade)
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return 0, fmt.Errorf("open trade iterator: %w", err)
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	n, err := tradeNumber(iter.Key())
	if err != nil {
		return 0, fmt.Errorf("decode last trade key: %w", err)
	}
	return n, nil
}
