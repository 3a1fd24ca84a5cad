package main

import (
	"context"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/uhyunpark/minimatch/params"
	"github.com/uhyunpark/minimatch/pkg/api"
	"github.com/uhyunpark/minimatch/pkg/app/exchange"
	"github.com/uhyunpark/minimatch/pkg/events"
	"github.com/uhyunpark/minimatch/pkg/protocol"
	"github.com/uhyunpark/minimatch/pkg/server"
	"github.com/uhyunpark/minimatch/pkg/storage"
	"github.com/uhyunpark/minimatch/pkg/util"
)

const statsInterval = 30 * time.Second

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	logger, err := util.NewLoggerWithFile(cfg.Log.File, cfg.Log.Verbose)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Log.File, "verbose", cfg.Log.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Trade journal ----
	journal, err := storage.OpenJournal(cfg.Storage.TradeDBPath)
	if err != nil {
		sugar.Fatalw("journal_open_failed", "path", cfg.Storage.TradeDBPath, "err", err)
	}
	defer journal.Close()
	lastTrade, err := journal.LastNumber()
	if err != nil {
		sugar.Fatalw("journal_read_failed", "path", cfg.Storage.TradeDBPath, "err", err)
	}
	sugar.Infow("journal_opened",
		"path", cfg.Storage.TradeDBPath,
		"in_memory", cfg.Storage.TradeDBPath == "",
		"last_trade", lastTrade)

	// ---- Engine ----
	engine := exchange.NewEngine(exchange.WithLogger(sugar), exchange.WithTradeSeq(lastTrade))

	// ---- Trade sinks ----
	sinks := events.Fanout{journal}

	var apiServer *api.Server
	if cfg.Server.APIAddr != "" {
		apiServer = api.NewServer(engine, api.Options{
			Trades:         journal,
			AllowedOrigins: cfg.Server.CORSOrigins,
			Logger:         sugar,
		})
		sinks = append(sinks, apiServer)
		engine.OnReset = apiServer.BroadcastReset
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kp.Close()
		sinks = append(sinks, kp)
		sugar.Infow("kafka_enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	bus := events.NewBus(0, sinks, sugar)
	engine.OnTrade = bus.Enqueue

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		bus.Run(ctx)
	}()

	// ---- API Server ----
	if apiServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := apiServer.Start(ctx, cfg.Server.APIAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				sugar.Errorw("api_server_failed", "err", err)
				stop()
			}
		}()
	}

	// ---- TCP Server ----
	tcp := server.New(server.Config{
		Addr:         cfg.Server.TCPAddr,
		MaxLineBytes: cfg.Server.MaxLineBytes,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, protocol.NewDispatcher(engine, sugar), sugar)
	if err := tcp.Listen(); err != nil {
		sugar.Fatalw("tcp_listen_failed", "addr", cfg.Server.TCPAddr, "err", err)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcp.Serve(ctx); err != nil {
			sugar.Errorw("tcp_server_failed", "err", err)
			stop()
		}
	}()

	sugar.Infow("node_starting",
		"tcp_addr", cfg.Server.TCPAddr,
		"api_addr", cfg.Server.APIAddr,
		"sinks", len(sinks))

	// Periodic state summary
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sugar.Infow("node_stopping")
			wg.Wait()
			return
		case <-ticker.C:
			depth := engine.Book()
			hash := engine.StateHash()
			sugar.Infow("engine_stats",
				"epoch", engine.Epoch(),
				"users", len(engine.Users()),
				"bid_levels", len(depth.Bids),
				"ask_levels", len(depth.Asks),
				"state_hash", hex.EncodeToString(hash[:8]))
		}
	}
}
