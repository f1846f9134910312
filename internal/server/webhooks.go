package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	webhookdomain "github.com/skillhut/skillhut/internal/webhook/domain"
	"go.uber.org/zap"
)

// HandleGatewayWebhook answers the gateway per the processing result: 200
// acknowledges (including duplicates and unknown kinds), 4xx tells it to
// stop, 5xx tells it to redeliver.
func (s *Server) HandleGatewayWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "could not read request body")
		return
	}

	result, err := s.webhookSvc.Process(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		s.log.Warn("webhook processing failed",
			zap.String("gateway_event_id", result.EventID),
			zap.String("event_kind", result.Kind.String()),
			zap.String("reason", result.Reason),
			zap.Error(err),
		)
	}

	switch result.Disposition {
	case webhookdomain.DispositionPermanent:
		c.String(http.StatusBadRequest, result.Reason)
	case webhookdomain.DispositionRetryable:
		c.String(http.StatusInternalServerError, result.Reason)
	default:
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
