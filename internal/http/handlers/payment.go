package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/courseflow-backend/internal/http/response"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
	"github.com/yungbote/courseflow-backend/internal/platform/midtrans"
	"github.com/yungbote/courseflow-backend/internal/services"
)

type PaymentHandler struct {
	log      *logger.Logger
	payments services.PaymentService
}

func NewPaymentHandler(log *logger.Logger, payments services.PaymentService) *PaymentHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &PaymentHandler{
		log:      log.With("handler", "PaymentHandler"),
		payments: payments,
	}
}

// POST /api/courses/:id/checkout
func (h *PaymentHandler) Checkout(c *gin.Context) {
	courseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	res, err := h.payments.Checkout(c.Request.Context(), viewerFrom(c), courseID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondCreated(c, res)
}

// POST /api/payments/midtrans/notification
//
// The gateway retries anything that is not a 2xx, so only signature failures and
// transient errors are reported as errors. Ignored and stale notifications get 200.
func (h *PaymentHandler) MidtransNotification(c *gin.Context) {
	var n midtrans.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.payments.HandleNotification(c.Request.Context(), n)
	if err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			h.log.Warn("rejected payment notification", "order_id", n.OrderID)
			response.RespondError(c, http.StatusUnauthorized, "invalid_signature", err)
			return
		}
		h.log.Error("payment notification failed", "order_id", n.OrderID, "error", err)
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// POST /api/payments/sync/:order_id
func (h *PaymentHandler) Sync(c *gin.Context) {
	orderID := strings.TrimSpace(c.Param("order_id"))
	if orderID == "" {
		response.RespondError(c, http.StatusBadRequest, "validation", errors.New("order_id is required"))
		return
	}
	res, err := h.payments.Sync(c.Request.Context(), viewerFrom(c), orderID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, res)
}
