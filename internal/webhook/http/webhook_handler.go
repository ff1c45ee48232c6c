package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/webhook-ledger/internal/httputil"
	"github.com/allisson/webhook-ledger/internal/webhook/domain"
	webhookUseCase "github.com/allisson/webhook-ledger/internal/webhook/usecase"
)

// SignatureHeaderName is the header carrying the provider's HMAC signature.
const SignatureHeaderName = "x-square-hmacsha256"

// WebhookHandler handles HTTP requests for webhook ingestion.
type WebhookHandler struct {
	webhookUseCase webhookUseCase.WebhookUseCase
	logger         *slog.Logger
}

// NewWebhookHandler creates a new webhook handler with required dependencies.
func NewWebhookHandler(useCase webhookUseCase.WebhookUseCase, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookUseCase: useCase,
		logger:         logger,
	}
}

// WebhookResponse is the success body returned to the provider. EventID is
// only populated when the delivery produced a ledger row.
type WebhookResponse struct {
	OK      bool   `json:"ok"`
	Status  string `json:"status"`
	EventID string `json:"event_id,omitempty"`
}

// ReceiveHandler ingests one webhook delivery.
// POST /v1/webhooks/square
//
// Every terminal outcome returns 200 so the provider stops redelivering;
// 4xx marks deliveries that can never succeed, and 500 asks for a retry.
func (h *WebhookHandler) ReceiveHandler(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil || len(rawBody) == 0 {
		httputil.HandleErrorGin(c, domain.ErrMissingBody, h.logger)
		return
	}

	signatureHeader := c.GetHeader(SignatureHeaderName)
	if signatureHeader == "" {
		httputil.HandleErrorGin(c, domain.ErrMissingSignatureHeader, h.logger)
		return
	}

	notificationURL, err := NotificationURL(c.Request)
	if err != nil {
		// Without the signed URL the signature can never be validated, so the
		// delivery is treated as unauthenticated rather than as a server fault.
		h.logger.Warn("failed to reconstruct notification url", slog.Any("error", err))
		httputil.HandleErrorGin(c, domain.ErrInvalidSignature, h.logger)
		return
	}

	output, err := h.webhookUseCase.ProcessWebhook(c.Request.Context(), webhookUseCase.ProcessWebhookInput{
		RawBody:         rawBody,
		SignatureHeader: signatureHeader,
		NotificationURL: notificationURL,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := WebhookResponse{OK: true, Status: output.Status}
	if output.Status == string(domain.StatusProcessed) {
		response.EventID = output.EventID
	}
	c.JSON(http.StatusOK, response)
}
