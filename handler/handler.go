// Package handler is the process boundary: it accepts chat-platform webhook
// updates, acknowledges them immediately and processes each update
// asynchronously. All failures end here as log lines; a single update's
// failure never crashes the process and never produces an error reply.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"babygpt/internal/domain"
	"babygpt/internal/integrations/telegram"
	"babygpt/internal/usecase"
)

// ConversationRouter is the orchestration core behind the webhook.
type ConversationRouter interface {
	HandleStart(ctx context.Context, conversationID string) (usecase.Reply, error)
	HandleAction(ctx context.Context, conversationID, payload string) (usecase.Reply, error)
	HandleMessage(ctx context.Context, conversationID, text string) (usecase.Reply, error)
}

// Messenger is the outbound delivery client.
type Messenger interface {
	SendMessage(ctx context.Context, req domain.SendRequest) (*telegram.Message, error)
	AnswerCallback(ctx context.Context, callbackQueryID string) error
}

type Handler struct {
	router    ConversationRouter
	messenger Messenger
	logger    *slog.Logger
}

func NewHandler(router ConversationRouter, messenger Messenger, logger *slog.Logger) (*Handler, error) {
	if router == nil {
		return nil, errors.New("handler: router must not be nil")
	}
	if messenger == nil {
		return nil, errors.New("handler: messenger must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{router: router, messenger: messenger, logger: logger}, nil
}

// Register mounts the webhook and liveness routes.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/telegram/webhook", h.webhook)
	e.GET("/health", h.health)
}

func (h *Handler) health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// webhook acknowledges the update immediately; processing continues in the
// background so a slow completion call never stalls the platform's webhook
// delivery.
func (h *Handler) webhook(c echo.Context) error {
	var update telegram.Update
	if err := c.Bind(&update); err != nil {
		h.logger.Warn("dropping unparseable update", slog.Any("error", err))
		return c.NoContent(http.StatusNoContent)
	}

	go h.process(context.WithoutCancel(c.Request().Context()), update)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) process(ctx context.Context, update telegram.Update) {
	logger := h.logger.With(
		slog.String("correlation_id", uuid.NewString()),
		slog.Int64("update_id", update.UpdateID),
	)

	reply, conversationID, ok := h.route(ctx, logger, update)
	if !ok {
		return
	}

	chatID, err := strconv.ParseInt(conversationID, 10, 64)
	if err != nil {
		logger.Error("conversation id is not a chat id", slog.String("conversation_id", conversationID))
		return
	}

	msg, err := h.messenger.SendMessage(ctx, domain.SendRequest{
		ChatID:   chatID,
		Text:     reply.Text,
		Keyboard: reply.Keyboard,
	})
	if err != nil {
		logger.Error("delivery failed permanently", slog.Any("error", err))
		return
	}
	if msg == nil {
		// Retry ceiling exhausted; delivery is best-effort.
		logger.Warn("delivery retries exhausted, dropping reply")
	}
}

// route dispatches one update to the Router and returns the computed reply
// with the conversation id it belongs to. ok=false means the update was
// dropped (logged internally, silent externally).
func (h *Handler) route(ctx context.Context, logger *slog.Logger, update telegram.Update) (usecase.Reply, string, bool) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.Message == nil || cb.Message.Chat == nil {
			logger.Warn("dropping callback without chat")
			return usecase.Reply{}, "", false
		}
		conversationID := strconv.FormatInt(cb.Message.Chat.ID, 10)
		if err := h.messenger.AnswerCallback(ctx, cb.ID); err != nil {
			logger.Warn("callback ack failed", slog.Any("error", err))
		}
		reply, err := h.router.HandleAction(ctx, conversationID, cb.Data)
		if err != nil {
			logger.Error("dropping callback update", slog.Any("error", err))
			return usecase.Reply{}, "", false
		}
		return reply, conversationID, true

	case update.Message != nil || update.EditedMessage != nil:
		msg := update.Message
		if msg == nil {
			msg = update.EditedMessage
		}
		if msg.Chat == nil {
			logger.Warn("dropping message without chat")
			return usecase.Reply{}, "", false
		}
		conversationID := strconv.FormatInt(msg.Chat.ID, 10)

		var reply usecase.Reply
		var err error
		if strings.HasPrefix(strings.TrimSpace(msg.Text), "/start") {
			reply, err = h.router.HandleStart(ctx, conversationID)
		} else {
			reply, err = h.router.HandleMessage(ctx, conversationID, msg.Text)
		}
		if err != nil {
			logger.Error("dropping message update", slog.Any("error", err))
			return usecase.Reply{}, "", false
		}
		return reply, conversationID, true

	default:
		logger.Warn("dropping update with no content")
		return usecase.Reply{}, "", false
	}
}
