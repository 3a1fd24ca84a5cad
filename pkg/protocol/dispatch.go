package protocol

import (
	"encoding/json"
	"strconv"

	"go.uber.org/zap"

	"github.com/uhyunpark/minimatch/pkg/app/exchange"
	"github.com/uhyunpark/minimatch/pkg/util"
)

// Dispatcher turns requests into engine calls and engine results into reply text.
// Every failure becomes a reply; nothing here panics or returns an error.
type Dispatcher struct {
	engine *exchange.Engine
	logger *zap.SugaredLogger
}

func NewDispatcher(engine *exchange.Engine, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{engine: engine, logger: util.OrNop(logger)}
}

// HandleRaw decodes one JSON request and handles it.
func (d *Dispatcher) HandleRaw(line []byte) string {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		d.logger.Debugw("request_undecodable", "bytes", len(line), "err", err)
		return ReplyUnknownRequest
	}
	return d.Handle(req)
}

func (d *Dispatcher) Handle(req Request) string {
	switch req.ReqType {
	case ReqRegister:
		return strconv.Itoa(int(d.engine.Register(req.Message)))

	case ReqHello:
		id, ok := req.UserID.ID()
		if !ok {
			return ReplyUnknownUser
		}
		greeting, err := d.engine.Greeting(id)
		if err != nil {
			return ReplyUnknownUser
		}
		return greeting

	case ReqTrade:
		id, ok := req.UserID.ID()
		if !ok {
			return ReplyRejected
		}
		if _, err := d.engine.PlaceOrder(id, req.Message); err != nil {
			return ReplyRejected
		}
		return ReplyAccepted

	case ReqStatus:
		id, ok := req.UserID.ID()
		if !ok {
			return ReplyUnknownUser
		}
		bal, err := d.engine.Status(id)
		if err != nil {
			return ReplyUnknownUser
		}
		return FormatBalance(bal)

	case ReqReset:
		d.engine.Reset()
		return ReplyReset

	default:
		d.logger.Debugw("request_unknown", "req_type", req.ReqType)
		return ReplyUnknownRequest
	}
}
