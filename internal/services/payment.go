package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/courseflow-backend/internal/data/repos"
	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/domain/user"
	"github.com/yungbote/courseflow-backend/internal/observability"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
	"github.com/yungbote/courseflow-backend/internal/platform/midtrans"
)

var ErrInvalidSignature = errors.New("invalid notification signature")

type CheckoutResult struct {
	Payment     *learning.Payment `json:"payment"`
	Token       string            `json:"token"`
	RedirectURL string            `json:"redirect_url"`
}

// NotificationResult reports how a gateway notification was applied.
// Ignored notifications (unknown order, unmapped status) are acknowledged without change.
type NotificationResult struct {
	Payment    *learning.Payment      `json:"payment,omitempty"`
	Status     learning.PaymentStatus `json:"status,omitempty"`
	Changed    bool                   `json:"changed"`
	Ignored    bool                   `json:"ignored,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	Enrollment *learning.Enrollment   `json:"enrollment,omitempty"`
}

type PaymentService interface {
	Checkout(ctx context.Context, viewer user.Viewer, courseID uuid.UUID) (CheckoutResult, error)
	// HandleNotification verifies and applies a gateway notification. A completed
	// payment and its enrollment commit together; every redelivery re-ensures the enrollment.
	HandleNotification(ctx context.Context, n midtrans.Notification) (NotificationResult, error)
	// Sync pulls the current order state from the gateway and applies it.
	Sync(ctx context.Context, viewer user.Viewer, externalID string) (NotificationResult, error)
}

type paymentService struct {
	db       *gorm.DB
	log      *logger.Logger
	gateway  midtrans.Gateway
	agg      domainagg.PaymentAggregate
	payments repos.PaymentRepo
	courses  repos.CourseRepo
	enroll   EnrollmentService
	metrics  *observability.Metrics
	currency string
}

type PaymentServiceDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Gateway  midtrans.Gateway
	Payments domainagg.PaymentAggregate
	Ledger   repos.PaymentRepo
	Courses  repos.CourseRepo
	Enroll   EnrollmentService
	Metrics  *observability.Metrics
	Currency string
}

func NewPaymentService(deps PaymentServiceDeps) PaymentService {
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "IDR"
	}
	return &paymentService{
		db:       deps.DB,
		log:      deps.Log.With("service", "PaymentService"),
		gateway:  deps.Gateway,
		agg:      deps.Payments,
		payments: deps.Ledger,
		courses:  deps.Courses,
		enroll:   deps.Enroll,
		metrics:  deps.Metrics,
		currency: currency,
	}
}

func newOrderID() string {
	return "cf-" + uuid.NewString()
}

func (s *paymentService) Checkout(ctx context.Context, viewer user.Viewer, courseID uuid.UUID) (CheckoutResult, error) {
	const op = "Payment.Checkout"
	if s.gateway == nil {
		return CheckoutResult{}, domainagg.NewError(domainagg.CodePreconditionFailed, op, "payments are not configured", nil)
	}
	p, err := s.agg.OpenCheckout(ctx, domainagg.OpenCheckoutInput{
		Viewer:     viewer,
		CourseID:   courseID,
		Provider:   s.gateway.Provider(),
		ExternalID: newOrderID(),
		Currency:   s.currency,
	})
	if err != nil {
		return CheckoutResult{}, err
	}
	s.metrics.IncPaymentStatus(p.Provider, string(p.Status))

	dbc := dbctx.Context{Ctx: ctx, Tx: s.db}
	itemName := "Course enrollment"
	if c, cerr := s.courses.GetByID(dbc, courseID); cerr == nil && c != nil {
		itemName = c.Title
	}
	res, err := s.gateway.CreateCheckout(ctx, midtrans.CheckoutRequest{
		OrderID:  p.ExternalID,
		Amount:   p.Amount,
		ItemID:   courseID.String(),
		ItemName: itemName,
		Customer: midtrans.Customer{UserID: viewer.UserID.String()},
	})
	if err != nil {
		s.log.Error("gateway checkout failed", "order_id", p.ExternalID, "error", err)
		if _, ferr := s.agg.ApplyGatewayStatus(ctx, domainagg.GatewayStatusInput{
			ExternalID: p.ExternalID,
			Status:     learning.PaymentFailed,
		}); ferr != nil {
			s.log.Warn("mark checkout failed", "order_id", p.ExternalID, "error", ferr)
		}
		return CheckoutResult{}, domainagg.NewError(domainagg.CodeRetryable, op, "payment gateway unavailable", err)
	}
	if res.RedirectURL != "" {
		if err := s.payments.UpdateFields(dbc, p.ID, map[string]interface{}{"redirect_url": res.RedirectURL}); err != nil {
			s.log.Warn("store redirect url", "payment_id", p.ID, "error", err)
		}
		p.RedirectURL = res.RedirectURL
	}
	return CheckoutResult{Payment: p, Token: res.Token, RedirectURL: res.RedirectURL}, nil
}

func (s *paymentService) HandleNotification(ctx context.Context, n midtrans.Notification) (NotificationResult, error) {
	if s.gateway == nil || !s.gateway.VerifySignature(n) {
		s.log.Warn("rejected gateway notification", "order_id", n.OrderID)
		return NotificationResult{}, ErrInvalidSignature
	}
	return s.apply(ctx, n)
}

func (s *paymentService) Sync(ctx context.Context, viewer user.Viewer, externalID string) (NotificationResult, error) {
	const op = "Payment.Sync"
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return NotificationResult{}, domainagg.NewFieldError(op, "invalid input", map[string]string{"order_id": "required"})
	}
	if s.gateway == nil {
		return NotificationResult{}, domainagg.NewError(domainagg.CodePreconditionFailed, op, "payments are not configured", nil)
	}
	p, err := s.payments.GetByExternalID(dbctx.Context{Ctx: ctx, Tx: s.db}, externalID)
	if err != nil {
		return NotificationResult{}, err
	}
	if p == nil {
		return NotificationResult{}, domainagg.NewError(domainagg.CodeNotFound, op, "payment not found", nil)
	}
	if !viewer.IsAdmin() && p.StudentID != viewer.UserID {
		return NotificationResult{}, domainagg.NewError(domainagg.CodeForbidden, op, "not your payment", nil)
	}
	n, err := s.gateway.CheckStatus(ctx, externalID)
	if err != nil {
		return NotificationResult{}, domainagg.NewError(domainagg.CodeRetryable, op, "payment gateway unavailable", err)
	}
	// The status API answers for the order we asked about; trust it without a signature.
	n.OrderID = externalID
	return s.apply(ctx, n)
}

func (s *paymentService) apply(ctx context.Context, n midtrans.Notification) (NotificationResult, error) {
	status, ok := MapMidtransStatus(n)
	if !ok {
		s.log.Info("ignoring gateway status", "order_id", n.OrderID, "transaction_status", n.TransactionStatus)
		return NotificationResult{Ignored: true, Reason: "unmapped status"}, nil
	}
	p, err := s.payments.GetByExternalID(dbctx.Context{Ctx: ctx, Tx: s.db}, n.OrderID)
	if err != nil {
		return NotificationResult{}, err
	}
	if p == nil {
		// Acknowledge so the gateway stops retrying an order we never issued.
		s.log.Warn("notification for unknown order", "order_id", n.OrderID)
		return NotificationResult{Ignored: true, Reason: "payment not found"}, nil
	}
	if status == learning.PaymentCompleted {
		if amt, aerr := midtrans.GrossAmount(n.GrossAmount); aerr == nil && amt != p.Amount {
			s.log.Error("gross amount mismatch", "order_id", n.OrderID, "want", p.Amount, "got", amt)
			return NotificationResult{}, domainagg.NewError(domainagg.CodePreconditionFailed, "Payment.Apply", "gross amount does not match ledger", nil)
		}
	}

	raw, _ := json.Marshal(n)
	res, err := s.agg.ApplyGatewayStatus(ctx, domainagg.GatewayStatusInput{
		ExternalID: n.OrderID,
		Status:     status,
		GatewayRef: n.TransactionID,
		Raw:        datatypes.JSON(raw),
	})
	if err != nil {
		return NotificationResult{}, err
	}
	if res.Changed {
		s.metrics.IncPaymentStatus(res.Payment.Provider, string(res.Payment.Status))
		s.log.Info("payment status changed", "payment_id", res.Payment.ID, "from", string(res.Previous), "to", string(res.Payment.Status))
	}
	out := NotificationResult{Payment: res.Payment, Status: res.Payment.Status, Changed: res.Changed}
	if res.Enrollment == nil {
		return out, nil
	}
	out.Enrollment = res.Enrollment.Enrollment
	if s.enroll != nil {
		s.enroll.RecordPaidEnrollment(ctx, *res.Enrollment)
	}
	return out, nil
}

// MapMidtransStatus maps a Midtrans transaction_status (and fraud_status for
// card captures) to a ledger status. Unknown statuses report false.
func MapMidtransStatus(n midtrans.Notification) (learning.PaymentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(n.TransactionStatus)) {
	case "capture":
		switch strings.ToLower(strings.TrimSpace(n.FraudStatus)) {
		case "accept":
			return learning.PaymentCompleted, true
		case "challenge":
			return learning.PaymentPending, true
		default:
			return learning.PaymentFailed, true
		}
	case "settlement":
		return learning.PaymentCompleted, true
	case "pending", "authorize":
		return learning.PaymentPending, true
	case "deny", "failure":
		return learning.PaymentFailed, true
	case "cancel":
		return learning.PaymentCanceled, true
	case "expire":
		return learning.PaymentExpired, true
	case "refund", "partial_refund":
		return learning.PaymentRefunded, true
	}
	return "", false
}
