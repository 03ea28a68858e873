package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandlerFunc handles one message type. A returned error is reported to
// the client as an "error" packet; the connection stays open.
type HandlerFunc func(ctx context.Context, c *Client, payload json.RawMessage) error

// errStaleSeq marks a packet whose seq is not above the last one seen.
var errStaleSeq = errors.New("stale seq")

// Router maps packet types to handlers.
type Router struct {
	handlers map[string]HandlerFunc
	logger   *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{handlers: make(map[string]HandlerFunc), logger: logger}
}

// On binds fn to msgType, replacing any earlier binding.
func (r *Router) On(msgType string, fn HandlerFunc) {
	r.handlers[msgType] = fn
}

// Types lists the bound message types.
func (r *Router) Types() []string {
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	return out
}

// Dispatch decodes one frame and runs its handler. Frames that fail to
// decode or name an unknown type get an error reply. A frame whose seq is
// not above the last accepted one is dropped without reply; seq 0 opts out
// of the ordering check, which suits fire-and-forget input.
func (r *Router) Dispatch(ctx context.Context, c *Client, raw []byte) {
	var pkt Packet
	if err := json.Unmarshal(raw, &pkt); err != nil {
		r.logger.Warn("malformed ws frame", zap.String("session_id", c.SessionID), zap.Error(err))
		c.Send("error", errorPayload{Error: "malformed packet"})
		return
	}
	if err := c.acceptSeq(pkt.Seq); err != nil {
		r.logger.Debug("ws frame dropped",
			zap.String("session_id", c.SessionID),
			zap.String("type", pkt.Type),
			zap.Uint64("seq", pkt.Seq),
			zap.Uint64("last_seq", c.LastSeq),
			zap.Error(err))
		return
	}

	fn, ok := r.handlers[pkt.Type]
	if !ok {
		c.Send("error", errorPayload{Error: "unknown message type " + pkt.Type})
		return
	}

	traceID := uuid.NewString()
	if err := fn(context.WithValue(ctx, ctxKeyTraceID{}, traceID), c, pkt.Payload); err != nil {
		r.logger.Info("ws handler rejected message",
			zap.String("type", pkt.Type),
			zap.String("session_id", c.SessionID),
			zap.String("trace_id", traceID),
			zap.Error(err))
		c.Send("error", errorPayload{Error: err.Error(), TraceID: traceID})
	}
}

type errorPayload struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

type ctxKeyTraceID struct{}

// TraceIDFromCtx returns the per-message trace ID set by Dispatch.
func TraceIDFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyTraceID{}).(string)
	return v
}
