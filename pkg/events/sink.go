// Package events carries executed trades from the engine to downstream sinks
// (journal, websocket, kafka) without holding up order placement.
package events

import (
	"context"
	"errors"

	"github.com/uhyunpark/minimatch/pkg/app/exchange"
)

// Sink consumes batches of trades in execution order.
type Sink interface {
	Publish(ctx context.Context, trades []exchange.Trade) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, trades []exchange.Trade) error

func (f SinkFunc) Publish(ctx context.Context, trades []exchange.Trade) error {
	return f(ctx, trades)
}

// Fanout publishes to every sink and joins their errors. A failing sink does not
// stop the others.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, trades []exchange.Trade) error {
	var errs []error
	for _, s := range f {
		if err := s.Publish(ctx, trades); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
