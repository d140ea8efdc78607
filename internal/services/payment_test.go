package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/courseflow-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
	"github.com/yungbote/courseflow-backend/internal/platform/midtrans"
)

const testServerKey = "SB-Mid-server-test"

type fakeGateway struct {
	checkoutErr error
	lastReq     midtrans.CheckoutRequest
	status      midtrans.Notification
}

func (f *fakeGateway) Provider() string { return midtrans.ProviderName }

func (f *fakeGateway) CreateCheckout(_ context.Context, req midtrans.CheckoutRequest) (midtrans.CheckoutResult, error) {
	f.lastReq = req
	if f.checkoutErr != nil {
		return midtrans.CheckoutResult{}, f.checkoutErr
	}
	return midtrans.CheckoutResult{Token: "snap-token", RedirectURL: "https://app.sandbox.midtrans.com/snap/v2/vtweb/snap-token"}, nil
}

func (f *fakeGateway) CheckStatus(_ context.Context, orderID string) (midtrans.Notification, error) {
	n := f.status
	n.OrderID = orderID
	return n, nil
}

func (f *fakeGateway) VerifySignature(n midtrans.Notification) bool {
	return midtrans.VerifySignature(n, testServerKey)
}

func signed(n midtrans.Notification) midtrans.Notification {
	n.SignatureKey = midtrans.Signature(n.OrderID, n.StatusCode, n.GrossAmount, testServerKey)
	return n
}

func newPaymentHarness(t *testing.T, gw *fakeGateway) (*serviceHarness, PaymentService) {
	t.Helper()
	h := newServiceHarness(t)
	svc := NewPaymentService(PaymentServiceDeps{
		DB:       h.db,
		Log:      logger.Nop(),
		Gateway:  gw,
		Payments: h.payAgg,
		Ledger:   h.repos.Payment,
		Courses:  h.repos.Course,
		Enroll:   h.enroll,
	})
	return h, svc
}

func TestMapMidtransStatus(t *testing.T) {
	cases := []struct {
		status string
		fraud  string
		want   learning.PaymentStatus
		ok     bool
	}{
		{"capture", "accept", learning.PaymentCompleted, true},
		{"capture", "challenge", learning.PaymentPending, true},
		{"capture", "deny", learning.PaymentFailed, true},
		{"settlement", "", learning.PaymentCompleted, true},
		{"pending", "", learning.PaymentPending, true},
		{"deny", "", learning.PaymentFailed, true},
		{"failure", "", learning.PaymentFailed, true},
		{"cancel", "", learning.PaymentCanceled, true},
		{"expire", "", learning.PaymentExpired, true},
		{"refund", "", learning.PaymentRefunded, true},
		{"partial_refund", "", learning.PaymentRefunded, true},
		{"chargeback", "", "", false},
	}
	for _, tc := range cases {
		got, ok := MapMidtransStatus(midtrans.Notification{TransactionStatus: tc.status, FraudStatus: tc.fraud})
		if got != tc.want || ok != tc.ok {
			t.Fatalf("%s/%s: want=(%s,%v) got=(%s,%v)", tc.status, tc.fraud, tc.want, tc.ok, got, ok)
		}
	}
}

func TestCheckoutAndSettlementEnrollOnce(t *testing.T) {
	gw := &fakeGateway{}
	h, svc := newPaymentHarness(t, gw)
	ctx := context.Background()
	author := staffViewer()
	c, err := h.structure.CreateCourse(ctx, domainagg.CreateCourseInput{Viewer: author, Title: "Paid", Price: 150000})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	if _, err := h.structure.SetPublished(ctx, domainagg.SetPublishedInput{Viewer: author, CourseID: c.ID, Published: true}); err != nil {
		t.Fatalf("SetPublished: %v", err)
	}
	stu := studentViewer()

	_, err = h.enroll.Enroll(ctx, stu, c.ID)
	wantCode(t, err, domainagg.CodePreconditionFailed)

	co, err := svc.Checkout(ctx, stu, c.ID)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if co.Token != "snap-token" || co.Payment.Status != learning.PaymentPending || co.Payment.Amount != 150000 {
		t.Fatalf("checkout: %+v", co)
	}
	if gw.lastReq.OrderID != co.Payment.ExternalID || gw.lastReq.ItemName != "Paid" {
		t.Fatalf("gateway request: %+v", gw.lastReq)
	}

	pending := signed(midtrans.Notification{OrderID: co.Payment.ExternalID, StatusCode: "201", GrossAmount: "150000.00", TransactionStatus: "pending"})
	res, err := svc.HandleNotification(ctx, pending)
	if err != nil {
		t.Fatalf("pending notification: %v", err)
	}
	if res.Changed || res.Enrollment != nil {
		t.Fatalf("pending should not change or enroll: %+v", res)
	}

	settle := signed(midtrans.Notification{OrderID: co.Payment.ExternalID, StatusCode: "200", GrossAmount: "150000.00", TransactionStatus: "settlement", TransactionID: "tx-1"})
	res, err = svc.HandleNotification(ctx, settle)
	if err != nil {
		t.Fatalf("settlement: %v", err)
	}
	if !res.Changed || res.Status != learning.PaymentCompleted || res.Enrollment == nil {
		t.Fatalf("settlement result: %+v", res)
	}
	if res.Enrollment.PaymentID == nil || *res.Enrollment.PaymentID != co.Payment.ID {
		t.Fatalf("enrollment payment id: %+v", res.Enrollment.PaymentID)
	}

	replay, err := svc.HandleNotification(ctx, settle)
	if err != nil {
		t.Fatalf("replayed settlement: %v", err)
	}
	if replay.Changed || replay.Enrollment == nil || replay.Enrollment.ID != res.Enrollment.ID {
		t.Fatalf("replay should be a no-op on the same enrollment: %+v", replay)
	}

	n, err := h.repos.Enrollment.CountByCourseID(dbctx.Context{Ctx: ctx}, c.ID)
	if err != nil || n != 1 {
		t.Fatalf("enrollments: want=1 got=%d err=%v", n, err)
	}
	p, err := h.repos.Payment.GetByExternalID(dbctx.Context{Ctx: ctx}, co.Payment.ExternalID)
	if err != nil || p.GatewayRef != "tx-1" || p.CompletedAt == nil {
		t.Fatalf("ledger row: %+v err=%v", p, err)
	}
}

func TestHandleNotificationRejectsBadSignature(t *testing.T) {
	_, svc := newPaymentHarness(t, &fakeGateway{})
	n := midtrans.Notification{OrderID: "cf-x", StatusCode: "200", GrossAmount: "1.00", TransactionStatus: "settlement", SignatureKey: "deadbeef"}
	if _, err := svc.HandleNotification(context.Background(), n); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("want ErrInvalidSignature, got %v", err)
	}
}

func TestHandleNotificationIgnoresUnknownOrder(t *testing.T) {
	_, svc := newPaymentHarness(t, &fakeGateway{})
	n := signed(midtrans.Notification{OrderID: "cf-unknown", StatusCode: "200", GrossAmount: "1.00", TransactionStatus: "settlement"})
	res, err := svc.HandleNotification(context.Background(), n)
	if err != nil || !res.Ignored {
		t.Fatalf("want ignored, got %+v err=%v", res, err)
	}
}

func TestHandleNotificationRejectsAmountMismatch(t *testing.T) {
	h, svc := newPaymentHarness(t, &fakeGateway{})
	ctx := context.Background()
	c := testutil.SeedCourse(t, ctx, h.db, staffViewer().UserID, 150000, true)
	p := testutil.SeedPayment(t, ctx, h.db, studentViewer().UserID, c.ID, learning.PaymentPending)
	n := signed(midtrans.Notification{OrderID: p.ExternalID, StatusCode: "200", GrossAmount: "1000.00", TransactionStatus: "settlement"})
	_, err := svc.HandleNotification(ctx, n)
	wantCode(t, err, domainagg.CodePreconditionFailed)
}

func TestCheckoutGatewayFailureMarksPaymentFailed(t *testing.T) {
	gw := &fakeGateway{checkoutErr: errors.New("snap down")}
	h, svc := newPaymentHarness(t, gw)
	ctx := context.Background()
	c := testutil.SeedCourse(t, ctx, h.db, staffViewer().UserID, 5000, true)
	_, err := svc.Checkout(ctx, studentViewer(), c.ID)
	wantCode(t, err, domainagg.CodeRetryable)

	p, err := h.repos.Payment.GetByExternalID(dbctx.Context{Ctx: ctx}, gw.lastReq.OrderID)
	if err != nil || p == nil || p.Status != learning.PaymentFailed {
		t.Fatalf("ledger row after gateway failure: %+v err=%v", p, err)
	}
}

func TestSyncAppliesGatewayStatusForOwner(t *testing.T) {
	gw := &fakeGateway{status: midtrans.Notification{TransactionStatus: "expire", StatusCode: "407", GrossAmount: "150000.00"}}
	h, svc := newPaymentHarness(t, gw)
	ctx := context.Background()
	stu := studentViewer()
	c := testutil.SeedCourse(t, ctx, h.db, staffViewer().UserID, 150000, true)
	p := testutil.SeedPayment(t, ctx, h.db, stu.UserID, c.ID, learning.PaymentPending)

	_, err := svc.Sync(ctx, studentViewer(), p.ExternalID)
	wantCode(t, err, domainagg.CodeForbidden)

	res, err := svc.Sync(ctx, stu, p.ExternalID)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !res.Changed || res.Status != learning.PaymentExpired {
		t.Fatalf("sync result: %+v", res)
	}
}
