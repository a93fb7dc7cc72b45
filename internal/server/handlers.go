package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"zarachat/internal/conversation"
	"zarachat/internal/core"
	"zarachat/internal/providers"
)

// HeaderSessionID carries the session id back to clients, including ids the
// gateway minted because the request had none.
const HeaderSessionID = "X-Session-ID"

// ChatRouter is the routing surface the handlers depend on.
type ChatRouter interface {
	Complete(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error)
	Stream(ctx context.Context, req *core.ChatRequest) (*providers.StreamResult, error)
	DefaultProvider() string
}

// Handler holds the HTTP handlers
type Handler struct {
	router ChatRouter
	store  conversation.Store
}

// NewHandler creates a new handler. store may be nil, in which case turns are not recorded.
func NewHandler(router ChatRouter, store conversation.Store) *Handler {
	return &Handler{
		router: router,
		store:  store,
	}
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"ok":               true,
		"provider_default": h.router.DefaultProvider(),
	})
}

// ListModels handles GET /models
func (h *Handler) ListModels(c echo.Context) error {
	return c.JSON(http.StatusOK, providers.ListModels())
}

// Chat handles POST /api/chat
func (h *Handler) Chat(c echo.Context) error {
	var req core.ChatRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewValidationError("invalid request body: "+bindMessage(err)))
	}
	req.Normalize()
	if err := c.Validate(&req); err != nil {
		return handleError(c, err)
	}

	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	c.Response().Header().Set(HeaderSessionID, req.SessionID)
	ctx := core.WithSessionID(c.Request().Context(), req.SessionID)

	if req.Stream {
		return h.streamChat(ctx, c, &req)
	}

	resp, err := h.router.Complete(ctx, &req)
	if err != nil {
		return handleError(c, err)
	}

	h.recordTurn(ctx, &req, resp.Content)
	return c.JSON(http.StatusOK, resp)
}

// streamChat writes the reply as SSE ChatChunk events. Errors before the
// first byte are returned as normal JSON errors; later failures become an
// "error" event followed by the closing done chunk.
func (h *Handler) streamChat(ctx context.Context, c echo.Context, req *core.ChatRequest) error {
	result, err := h.router.Stream(ctx, req)
	if err != nil {
		return handleError(c, err)
	}
	defer func() {
		_ = result.Stream.Close()
	}()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	var reply strings.Builder
	var streamErr error
	for chunk, err := range result.Stream.Chunks() {
		if err != nil {
			streamErr = err
			break
		}
		reply.WriteString(chunk)
		if err := writeEvent(w, "", core.ChatChunk{SessionID: req.SessionID, Delta: chunk}); err != nil {
			// Client went away; nothing more can be delivered.
			return nil
		}
	}

	if streamErr != nil {
		slog.WarnContext(ctx, "stream failed after start",
			"provider", result.Provider,
			"model", result.Model,
			"session_id", req.SessionID,
			"error", streamErr,
		)
		_ = writeEvent(w, "error", errorBody(streamErr))
	}
	_ = writeEvent(w, "", core.ChatChunk{SessionID: req.SessionID, Done: true})

	if streamErr == nil {
		h.recordTurn(ctx, req, reply.String())
	}
	return nil
}

// SessionMessages handles GET /api/sessions/:id/messages
func (h *Handler) SessionMessages(c echo.Context) error {
	id := c.Param("id")
	messages := []core.Message{}
	if h.store != nil {
		var err error
		messages, err = h.store.History(c.Request().Context(), id)
		if err != nil {
			return handleError(c, err)
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session_id": id,
		"messages":   messages,
	})
}

// recordTurn appends the exchange to the session. On a session's first turn
// the whole request conversation is stored; afterwards only its final message,
// since earlier ones are already there. Store failures are logged, not returned.
func (h *Handler) recordTurn(ctx context.Context, req *core.ChatRequest, reply string) {
	if h.store == nil || len(req.Messages) == 0 {
		return
	}

	assistant := core.Message{Role: core.RoleAssistant, Content: reply}
	if err := h.store.AppendTurn(ctx, req.SessionID, req.Messages, assistant); err != nil {
		slog.WarnContext(ctx, "failed to record turn", "session_id", req.SessionID, "error", err)
		return
	}
	if err := h.store.Truncate(ctx, req.SessionID, conversation.DefaultTruncateHint); err != nil {
		slog.WarnContext(ctx, "failed to truncate session", "session_id", req.SessionID, "error", err)
	}
}

func writeEvent(w *echo.Response, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	w.Flush()
	return nil
}

// bindMessage unwraps echo's bind error to the underlying decoder message.
func bindMessage(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			return he.Internal.Error()
		}
		return fmt.Sprint(he.Message)
	}
	return err.Error()
}

// errorBody renders err in the gateway's error JSON shape.
func errorBody(err error) map[string]any {
	var gatewayErr *core.GatewayError
	if errors.As(err, &gatewayErr) {
		return gatewayErr.ToJSON()
	}
	return map[string]any{
		"detail": "an unexpected error occurred",
		"error": map[string]any{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	}
}

// handleError converts gateway errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var gatewayErr *core.GatewayError
	if errors.As(err, &gatewayErr) {
		return c.JSON(gatewayErr.HTTPStatusCode(), gatewayErr.ToJSON())
	}

	slog.ErrorContext(c.Request().Context(), "unexpected error", "error", err)
	return c.JSON(http.StatusInternalServerError, errorBody(err))
}

// httpErrorHandler renders errors that escape handlers (404, 405, 413,
// panics recovered by middleware) in the same JSON shape.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		_ = handleError(c, err)
		return
	}

	errType := core.ErrorTypeInvalidRequest
	if he.Code >= http.StatusInternalServerError {
		errType = "internal_error"
	}
	msg := fmt.Sprint(he.Message)
	_ = c.JSON(he.Code, map[string]any{
		"detail": msg,
		"error": map[string]any{
			"type":    errType,
			"message": msg,
		},
	})
}
