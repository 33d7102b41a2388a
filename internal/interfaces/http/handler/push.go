package handler

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PushHandler receives Pub/Sub push deliveries.
// A 2xx acknowledges the message; anything else makes Pub/Sub redeliver it.
type PushHandler struct {
	BaseHandler
	consumer *event.PushConsumer
	token    string
}

// NewPushHandler creates a push handler. A non-empty token must match the
// token query parameter configured on the push subscription.
func NewPushHandler(consumer *event.PushConsumer, token string) *PushHandler {
	return &PushHandler{consumer: consumer, token: token}
}

// Receive handles POST /pubsub/push
func (h *PushHandler) Receive(c *gin.Context) {
	if h.token != "" && subtle.ConstantTimeCompare([]byte(c.Query("token")), []byte(h.token)) != 1 {
		h.Error(c, shared.CodeUnauthorized, "Invalid push token")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.Error(c, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
			return
		}
		h.BadRequest(c, "Could not read request body")
		return
	}

	err = h.consumer.Consume(c.Request.Context(), body)
	switch {
	case err == nil:
		h.NoContent(c)
	case errors.Is(err, event.ErrInvalidEnvelope):
		h.errorWithDetails(c, dto.ErrCodeBadRequest, "Invalid push message", map[string]any{"reason": err.Error()})
	default:
		logger.FromContext(c.Request.Context()).Warn("pushed event handling failed, requesting redelivery", zap.Error(err))
		h.Error(c, dto.ErrCodeInternal, "Event handling failed")
	}
}
