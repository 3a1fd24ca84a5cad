package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/minimatch/pkg/app/core/ledger"
	"github.com/uhyunpark/minimatch/pkg/app/core/orderbook"
	"github.com/uhyunpark/minimatch/pkg/app/exchange"
	"github.com/uhyunpark/minimatch/pkg/protocol"
	"github.com/uhyunpark/minimatch/pkg/util"
)

const (
	defaultTradeLimit = 50
	maxTradeLimit     = 1000
)

// TradeReader serves trade history, newest first.
type TradeReader interface {
	Recent(limit int) ([]exchange.Trade, error)
}

// Server handles REST API and WebSocket connections
type Server struct {
	engine     *exchange.Engine
	dispatcher *protocol.Dispatcher
	trades     TradeReader
	router     *mux.Router
	hub        *Hub
	origins    []string
	clock      util.Clock
	logger     *zap.SugaredLogger
}

type Options struct {
	Trades         TradeReader // nil disables GET /api/v1/trades history
	AllowedOrigins []string
	Clock          util.Clock
	Logger         *zap.SugaredLogger
}

func NewServer(engine *exchange.Engine, opts Options) *Server {
	logger := util.OrNop(opts.Logger)
	clock := opts.Clock
	if clock == nil {
		clock = util.RealClock{}
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	s := &Server{
		engine:     engine,
		dispatcher: protocol.NewDispatcher(engine, logger),
		trades:     opts.Trades,
		router:     mux.NewRouter(),
		hub:        NewHub(logger),
		origins:    origins,
		clock:      clock,
		logger:     logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/users", s.handleRegister).Methods("POST")
	api.HandleFunc("/users/{id}", s.handleGetUser).Methods("GET")
	api.HandleFunc("/users/{id}/balance", s.handleGetBalance).Methods("GET")
	api.HandleFunc("/users/{id}/orders", s.handlePlaceOrder).Methods("POST")

	api.HandleFunc("/book", s.handleGetBook).Methods("GET")
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")
	api.HandleFunc("/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/dispatch", s.handleDispatch).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the CORS-wrapped router.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Hub exposes the WebSocket hub so trade sinks can publish into it.
func (s *Server) Hub() *Hub { return s.hub }

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("api_listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Infow("api_stopped")
		return nil
	}
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	id := s.engine.Register(req.Name)
	respondJSON(w, RegisterResponse{ID: int(id)})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDVar(w, r)
	if !ok {
		return
	}
	u, err := s.engine.User(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found", err.Error())
		return
	}
	greeting, err := s.engine.Greeting(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found", err.Error())
		return
	}
	respondJSON(w, UserInfo{ID: int(u.ID), Name: u.Name, Greeting: greeting})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDVar(w, r)
	if !ok {
		return
	}
	bal, err := s.engine.Status(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found", err.Error())
		return
	}
	respondJSON(w, BalanceInfo{Base: bal.Base, Quote: bal.Quote, Text: protocol.FormatBalance(bal)})
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDVar(w, r)
	if !ok {
		return
	}
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ack, err := s.engine.PlaceOrder(id, req.Order)
	if err != nil {
		var pe *orderbook.ParseError
		switch {
		case errors.As(err, &pe):
			respondError(w, http.StatusBadRequest, "invalid order", err.Error())
		case errors.Is(err, exchange.ErrUnknownUser):
			respondError(w, http.StatusNotFound, "user not found", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "order failed", err.Error())
		}
		return
	}

	trades := ack.Trades
	if trades == nil {
		trades = []exchange.Trade{}
	}
	status := "resting"
	if ack.Filled() {
		status = "filled"
	}
	respondJSON(w, PlaceOrderResponse{
		Status:   status,
		Sequence: ack.Sequence,
		Resting:  ack.Resting,
		Trades:   trades,
	})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.snapshot())
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := defaultTradeLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit", v)
			return
		}
		limit = min(n, maxTradeLimit)
	}
	if s.trades == nil {
		respondJSON(w, []exchange.Trade{})
		return
	}
	trades, err := s.trades.Recent(limit)
	if err != nil {
		s.logger.Errorw("trade_history_failed", "limit", limit, "err", err)
		respondError(w, http.StatusInternalServerError, "trade history unavailable", err.Error())
		return
	}
	if trades == nil {
		trades = []exchange.Trade{}
	}
	respondJSON(w, trades)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	h := s.engine.StateHash()
	respondJSON(w, StateInfo{
		Hash:  "0x" + hex.EncodeToString(h[:]),
		Epoch: s.engine.Epoch(),
		Users: len(s.engine.Users()),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.engine.Reset()
	respondJSON(w, map[string]string{"status": protocol.ReplyReset})
}

// handleDispatch runs one line-protocol request and returns its reply text.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req protocol.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, DispatchResponse{Reply: protocol.ReplyUnknownRequest})
		return
	}
	respondJSON(w, DispatchResponse{Reply: s.dispatcher.Handle(req)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast Methods
// ==============================

// Publish pushes executed trades and the resulting book to WebSocket subscribers.
// It satisfies the trade sink interface.
func (s *Server) Publish(_ context.Context, trades []exchange.Trade) error {
	s.BroadcastTrades(trades)
	s.BroadcastBook()
	return nil
}

func (s *Server) BroadcastTrades(trades []exchange.Trade) {
	if len(trades) == 0 {
		return
	}
	s.hub.BroadcastToChannel(ChannelTrades, TradeUpdate{Type: ChannelTrades, Trades: trades})
}

// BroadcastReset pushes the emptied book after an engine reset, whichever
// surface requested it. Install it as the engine's OnReset hook.
func (s *Server) BroadcastReset(epoch uint64) {
	s.logger.Debugw("ws_reset_broadcast", "epoch", epoch)
	s.BroadcastBook()
}

func (s *Server) BroadcastBook() {
	s.hub.BroadcastToChannel(ChannelBook, BookUpdate{Type: ChannelBook, BookSnapshot: s.snapshot()})
}

// ==============================
// Helper Functions
// ==============================

func (s *Server) snapshot() BookSnapshot {
	depth := s.engine.Book()
	return BookSnapshot{
		Bids:      toLevels(depth.Bids),
		Asks:      toLevels(depth.Asks),
		Epoch:     s.engine.Epoch(),
		Timestamp: s.clock.Now().UnixMilli(),
	}
}

func toLevels(in []orderbook.PriceLevel) []PriceLevel {
	out := make([]PriceLevel, len(in))
	for i, l := range in {
		out[i] = PriceLevel{Price: l.Price, Size: l.Qty, Orders: l.Orders}
	}
	return out
}

func userIDVar(w http.ResponseWriter, r *http.Request) (ledger.UserID, bool) {
	raw := mux.Vars(r)["id"]
	id, ok := protocol.UserRef(raw).ID()
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid user id", raw)
		return 0, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
