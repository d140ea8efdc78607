package midtrans

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	mt "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"

	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

const ProviderName = "midtrans"

type Config struct {
	ServerKey  string
	Production bool
}

type Customer struct {
	UserID    string
	FirstName string
	Email     string
}

type CheckoutRequest struct {
	OrderID  string
	Amount   int64
	ItemID   string
	ItemName string
	Customer Customer
}

type CheckoutResult struct {
	Token       string
	RedirectURL string
}

// Notification is the HTTP notification body Midtrans posts for a transaction.
type Notification struct {
	TransactionTime   string `json:"transaction_time"`
	TransactionStatus string `json:"transaction_status"`
	TransactionID     string `json:"transaction_id"`
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status"`
}

// Gateway is the slice of the Midtrans API the payment flow uses.
type Gateway interface {
	Provider() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error)
	// CheckStatus asks the gateway for the current state of an order.
	CheckStatus(ctx context.Context, orderID string) (Notification, error)
	VerifySignature(n Notification) bool
}

type client struct {
	log       *logger.Logger
	serverKey string
	snap      snap.Client
	core      coreapi.Client
}

func New(log *logger.Logger, cfg Config) (Gateway, error) {
	key := strings.TrimSpace(cfg.ServerKey)
	if key == "" {
		return nil, fmt.Errorf("missing midtrans server key")
	}
	env := mt.Sandbox
	if cfg.Production {
		env = mt.Production
	}
	c := &client{
		log:       log.With("client", "Midtrans"),
		serverKey: key,
	}
	c.snap.New(key, env)
	c.core.New(key, env)
	c.log.Info("midtrans gateway configured", "production", cfg.Production)
	return c, nil
}

func (c *client) Provider() string { return ProviderName }

func (c *client) CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	if req.Amount <= 0 {
		return CheckoutResult{}, fmt.Errorf("invalid amount %d", req.Amount)
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return CheckoutResult{}, fmt.Errorf("order id is required")
	}
	if err := ctx.Err(); err != nil {
		return CheckoutResult{}, err
	}

	snapReq := &snap.Request{
		TransactionDetails: mt.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.Amount,
		},
		Items: &[]mt.ItemDetails{
			{
				ID:       defaultString(req.ItemID, req.OrderID),
				Name:     truncate(defaultString(req.ItemName, "Course enrollment"), 50),
				Price:    req.Amount,
				Qty:      1,
				Category: "course",
			},
		},
	}
	if req.Customer.Email != "" || req.Customer.FirstName != "" {
		snapReq.CustomerDetail = &mt.CustomerDetails{
			FName: req.Customer.FirstName,
			Email: req.Customer.Email,
		}
	}

	resp, merr := c.snap.CreateTransaction(snapReq)
	if merr != nil {
		return CheckoutResult{}, fmt.Errorf("midtrans snap: %s", merr.Error())
	}
	return CheckoutResult{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

func (c *client) CheckStatus(ctx context.Context, orderID string) (Notification, error) {
	if err := ctx.Err(); err != nil {
		return Notification{}, err
	}
	resp, merr := c.core.CheckTransaction(orderID)
	if merr != nil {
		return Notification{}, fmt.Errorf("midtrans status: %s", merr.Error())
	}
	return Notification{
		TransactionTime:   resp.TransactionTime,
		TransactionStatus: resp.TransactionStatus,
		TransactionID:     resp.TransactionID,
		StatusCode:        resp.StatusCode,
		SignatureKey:      resp.SignatureKey,
		OrderID:           resp.OrderID,
		GrossAmount:       resp.GrossAmount,
		PaymentType:       resp.PaymentType,
		FraudStatus:       resp.FraudStatus,
	}, nil
}

func (c *client) VerifySignature(n Notification) bool {
	return VerifySignature(n, c.serverKey)
}

// Signature is SHA512(order_id + status_code + gross_amount + server_key), hex encoded.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func VerifySignature(n Notification, serverKey string) bool {
	want := strings.ToLower(strings.TrimSpace(n.SignatureKey))
	if want == "" || serverKey == "" {
		return false
	}
	got := Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// GrossAmount parses a gross_amount string such as "150000.00" into minor units.
func GrossAmount(raw string) (int64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("parse gross_amount %q: %w", raw, err)
	}
	return int64(f + 0.5), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

func defaultString(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
