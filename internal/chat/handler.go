// Package chat runs chat turns: it records the conversation, hands each user
// message to the dispatcher and renders the outcome as assistant text.
package chat

import (
	"context"
	"errors"
	"strings"

	"sheetgenie/internal/dispatch"
	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/logging"
	"sheetgenie/internal/observability"
	"sheetgenie/internal/sheet"
	id "sheetgenie/internal/utils/id"

	"go.opentelemetry.io/otel/codes"
)

// Dispatcher is the part of dispatch.Dispatcher a handler needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, message string, t *sheet.Table) (*dispatch.Result, error)
}

// Handler runs turns. It holds no per-session state and never retries.
type Handler struct {
	dispatcher Dispatcher
	metrics    *observability.MetricsCollector
	tracer     *observability.TracerProvider
	logger     logging.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

func WithMetrics(m *observability.MetricsCollector) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

func WithTracer(tp *observability.TracerProvider) HandlerOption {
	return func(h *Handler) { h.tracer = tp }
}

func WithLogger(logger logging.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logging.OrNop(logger) }
}

// NewHandler builds a handler around d.
func NewHandler(d Dispatcher, opts ...HandlerOption) *Handler {
	h := &Handler{dispatcher: d, logger: logging.NewComponentLogger("chat")}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleTurn appends text as a user message, dispatches it against the
// session's table and appends exactly one assistant message. The returned
// table is non-nil only when the operation produced a new one; it has already
// been installed as the session's table. A failed model call becomes an
// assistant error message and is not returned as an error. Errors are
// returned only for empty input or a cancelled context, in which case no
// message is appended.
func (h *Handler) HandleTurn(ctx context.Context, s *Session, text string) (Message, *sheet.Table, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, nil, sgerrors.New(sgerrors.CodeInvalidRequest, "message must not be empty")
	}

	s.turn.Lock()
	defer s.turn.Unlock()

	if err := ctx.Err(); err != nil {
		return Message{}, nil, err
	}
	ctx = id.WithSessionID(ctx, s.ID())
	ctx, span := h.tracer.StartSpan(ctx, observability.SpanChatTurn)
	defer span.End()
	logger := logging.FromContext(ctx, h.logger)

	s.append(Message{Sender: SenderUser, Text: text})

	res, err := h.dispatcher.Dispatch(ctx, text, s.Table())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			reply := s.append(Message{Sender: SenderAssistant, Text: "The request was cancelled.", Error: err.Error()})
			h.metrics.RecordChatTurn(ctx, "cancelled", "error")
			return reply, nil, nil
		}
		logger.Warn("Chat turn failed in session %s: %v", s.ID(), err)
		span.SetStatus(codes.Error, err.Error())
		h.metrics.RecordChatTurn(ctx, "error", "error")
		reply := s.append(Message{Sender: SenderAssistant, Text: upstreamMessage(err), Error: sgerrors.Cause(err).Error()})
		return reply, nil, nil
	}

	status := "success"
	if !res.Success {
		status = "failed"
	}
	h.metrics.RecordChatTurn(ctx, string(res.Operation), status)
	span.SetAttributes(observability.OperationAttrs(string(res.Operation))...)

	var updated *sheet.Table
	if res.Success && res.Table != nil {
		updated = res.Table
		s.SetTable(updated)
	}

	reply := Message{Sender: SenderAssistant, Text: FormatResult(res), Result: res}
	if !res.Success {
		reply.Error = res.Explanation
	}
	reply = s.append(reply)
	logger.Debug("Session %s turn %d: %s success=%t", s.ID(), reply.ID, res.Operation, res.Success)
	return reply, updated, nil
}
