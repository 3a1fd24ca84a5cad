package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/uhyunpark/minimatch/pkg/app/exchange"
	"github.com/uhyunpark/minimatch/pkg/util"
)

// Bus decouples the engine's trade hook from slow sinks. Enqueue never blocks;
// when the buffer is full the batch is dropped and logged.
type Bus struct {
	queue  chan []exchange.Trade
	sink   Sink
	logger *zap.SugaredLogger
}

func NewBus(size int, sink Sink, logger *zap.SugaredLogger) *Bus {
	if size <= 0 {
		size = 1024
	}
	return &Bus{
		queue:  make(chan []exchange.Trade, size),
		sink:   sink,
		logger: util.OrNop(logger),
	}
}

// Enqueue hands a batch to the bus. It has the signature of Engine.OnTrade.
func (b *Bus) Enqueue(trades []exchange.Trade) {
	select {
	case b.queue <- trades:
	default:
		b.logger.Warnw("trade_batch_dropped", "trades", len(trades), "first", trades[0].Number)
	}
}

// Run publishes batches until ctx is cancelled, then drains what is already queued.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case trades := <-b.queue:
			b.publish(ctx, trades)
		case <-ctx.Done():
			for {
				select {
				case trades := <-b.queue:
					b.publish(context.Background(), trades)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) publish(ctx context.Context, trades []exchange.Trade) {
	if err := b.sink.Publish(ctx, trades); err != nil {
		b.logger.Errorw("trade_publish_failed",
			"trades", len(trades),
			"first", trades[0].Number,
			"err", err)
		return
	}
	b.logger.Debugw("trades_published", "trades", len(trades), "first", trades[0].Number)
}
