package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/minimatch/pkg/app/exchange"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]exchange.Trade
	err     error
}

func (r *recordingSink) Publish(_ context.Context, trades []exchange.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, trades)
	return r.err
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func trade(n uint64) exchange.Trade {
	return exchange.Trade{
		ID:     uuid.New(),
		Number: n,
		Buyer:  4,
		Seller: 2,
		Price:  decimal.NewFromInt(100),
		Qty:    decimal.NewFromInt(3),
		Time:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestFanoutDeliversToEverySink(t *testing.T) {
	failing := &recordingSink{err: errors.New("down")}
	ok := &recordingSink{}
	f := Fanout{failing, ok}

	err := f.Publish(context.Background(), []exchange.Trade{trade(1)})
	if err == nil || err.Error() != "down" {
		t.Errorf("got %v, want the failing sink's error", err)
	}
	if ok.count() != 1 {
		t.Errorf("healthy sink got %d batches, want 1", ok.count())
	}
}

func TestSinkFunc(t *testing.T) {
	var got int
	s := SinkFunc(func(_ context.Context, trades []exchange.Trade) error {
		got += len(trades)
		return nil
	})
	s.Publish(context.Background(), []exchange.Trade{trade(1), trade(2)})
	if got != 2 {
		t.Errorf("got %d, want 2", got)
	}
}

func TestBusDeliversInOrderAndDrains(t *testing.T) {
	sink := &recordingSink{}
	bus := NewBus(16, sink, nil)

	for n := uint64(1); n <= 5; n++ {
		bus.Enqueue([]exchange.Trade{trade(n)})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Already-cancelled context: Run only drains.
	bus.Run(ctx)

	if sink.count() != 5 {
		t.Fatalf("got %d batches, want 5", sink.count())
	}
	for i, b := range sink.batches {
		if b[0].Number != uint64(i+1) {
			t.Errorf("batch %d: got number %d", i, b[0].Number)
		}
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	sink := &recordingSink{}
	bus := NewBus(2, sink, nil)
	for n := uint64(1); n <= 4; n++ {
		bus.Enqueue([]exchange.Trade{trade(n)})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Run(ctx)

	if sink.count() != 2 {
		t.Errorf("got %d batches, want 2", sink.count())
	}
}

func TestBusAsEngineHook(t *testing.T) {
	sink := &recordingSink{}
	bus := NewBus(0, sink, nil)

	e := exchange.NewEngine()
	e.OnTrade = bus.Enqueue
	e.Register("a")
	e.Register("b")
	e.PlaceOrder(0, "2:10:sell")
	e.PlaceOrder(1, "2:10:buy")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		bus.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for sink.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if sink.count() != 1 || len(sink.batches[0]) != 1 {
		t.Fatalf("got %+v, want one batch with one trade", sink.batches)
	}
}

func TestTradeMessage(t *testing.T) {
	tr := trade(7)
	m, err := tradeMessage(tr)
	if err != nil {
		t.Fatal(err)
	}
	if string(m.Key) != "4" {
		t.Errorf("key: got %q, want buyer id 4", m.Key)
	}
	if !m.Time.Equal(tr.Time) {
		t.Errorf("time: got %v, want %v", m.Time, tr.Time)
	}

	var back exchange.Trade
	if err := json.Unmarshal(m.Value, &back); err != nil {
		t.Fatal(err)
	}
	if back.ID != tr.ID || back.Number != 7 || !back.Qty.Equal(tr.Qty) {
		t.Errorf("value: got %+v", back)
	}
}

func TestKafkaPublisherEmptyBatch(t *testing.T) {
	p := NewKafkaPublisher([]string{"127.0.0.1:1"}, "trades")
	defer p.Close()
	if err := p.Publish(context.Background(), nil); err != nil {
		t.Errorf("empty batch: %v", err)
	}
}
