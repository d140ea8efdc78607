package aggregates

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/yungbote/courseflow-backend/internal/data/repos"
	repolearning "github.com/yungbote/courseflow-backend/internal/data/repos/learning"
	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
)

type PaymentAggregateDeps struct {
	Base BaseDeps

	Courses     repos.CourseRepo
	Enrollments repos.EnrollmentRepo
	Payments    repos.PaymentRepo
}

type paymentAggregate struct {
	deps PaymentAggregateDeps
}

func NewPaymentAggregate(deps PaymentAggregateDeps) domainagg.PaymentAggregate {
	deps.Base = deps.Base.withDefaults()
	return &paymentAggregate{deps: deps}
}

func (a *paymentAggregate) Contract() domainagg.Contract {
	return domainagg.PaymentAggregateContract
}

func (a *paymentAggregate) OpenCheckout(ctx context.Context, in domainagg.OpenCheckoutInput) (*learning.Payment, error) {
	const op = "Learning.Payment.OpenCheckout"
	in.ExternalID = strings.TrimSpace(in.ExternalID)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if err := validateInput(a.deps.Base, op, in); err != nil {
		return nil, err
	}
	if in.Viewer.IsAnonymous() {
		return nil, domainagg.NewFieldError(op, "invalid input", map[string]string{"student_id": "required"})
	}
	if a.deps.Courses == nil || a.deps.Enrollments == nil || a.deps.Payments == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "payment repos not configured", nil)
	}

	var out *learning.Payment
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		c, err := a.deps.Courses.GetByID(dbc, in.CourseID)
		if err != nil {
			return err
		}
		if c == nil {
			return notFound(op, "course")
		}
		if !learning.CanView(in.Viewer, c) {
			return notAvailable(op)
		}
		if c.IsFree() {
			return domainagg.NewError(domainagg.CodePreconditionFailed, op, "course is free; enroll directly", nil)
		}
		e, err := a.deps.Enrollments.GetByStudentAndCourse(dbc, in.Viewer.UserID, c.ID)
		if err != nil {
			return err
		}
		if e != nil {
			return domainagg.NewError(domainagg.CodePreconditionFailed, op, "already enrolled", nil)
		}
		p, err := a.deps.Payments.Create(dbc, &learning.Payment{
			StudentID:  in.Viewer.UserID,
			CourseID:   c.ID,
			Provider:   in.Provider,
			ExternalID: in.ExternalID,
			Amount:     c.Price,
			Currency:   in.Currency,
			Status:     learning.PaymentPending,
		})
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

func (a *paymentAggregate) ApplyGatewayStatus(ctx context.Context, in domainagg.GatewayStatusInput) (domainagg.ApplyGatewayStatusResult, error) {
	const op = "Learning.Payment.ApplyGatewayStatus"
	var out domainagg.ApplyGatewayStatusResult
	in.ExternalID = strings.TrimSpace(in.ExternalID)
	if err := validateInput(a.deps.Base, op, in); err != nil {
		return out, err
	}
	if a.deps.Payments == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "payment repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		p, err := a.deps.Payments.GetByExternalID(dbc, in.ExternalID)
		if err != nil {
			return err
		}
		if p == nil {
			return notFound(op, "payment")
		}
		out = domainagg.ApplyGatewayStatusResult{Payment: p, Previous: p.Status}
		if !p.Status.CanTransition(in.Status) {
			// Gateways resend and reorder notifications; a stale one is not an error.
			return a.ensurePaidEnrollment(dbc, op, &out)
		}

		now := a.deps.Base.Now()
		updates := map[string]any{
			"status":     string(in.Status),
			"updated_at": now,
		}
		if ref := strings.TrimSpace(in.GatewayRef); ref != "" {
			updates["gateway_ref"] = ref
		}
		if len(in.Raw) > 0 {
			updates["raw"] = in.Raw
		}
		if in.Status == learning.PaymentCompleted {
			updates["completed_at"] = now
		}
		ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, learning.Payment{}.TableName(), p.ID, []string{string(p.Status)}, updates)
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "payment status changed concurrently"); err != nil {
			return err
		}
		fresh, err := a.deps.Payments.GetByID(dbc, p.ID)
		if err != nil {
			return err
		}
		if fresh == nil || fresh.ID == uuid.Nil {
			return InvariantError("payment vanished after status update")
		}
		out = domainagg.ApplyGatewayStatusResult{Payment: fresh, Previous: p.Status, Changed: true}
		return a.ensurePaidEnrollment(dbc, op, &out)
	})
	return out, err
}

// ensurePaidEnrollment enrolls the payer of a completed payment. The gate was
// checked at checkout; a course unpublished after payment keeps its paid learners.
func (a *paymentAggregate) ensurePaidEnrollment(dbc dbctx.Context, op string, out *domainagg.ApplyGatewayStatusResult) error {
	p := out.Payment
	if p == nil || p.Status != learning.PaymentCompleted {
		return nil
	}
	if a.deps.Courses == nil || a.deps.Enrollments == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "enrollment repos not configured", nil)
	}
	c, err := a.deps.Courses.LockByID(dbc, p.CourseID, repolearning.LockForShare)
	if err != nil {
		return err
	}
	if c == nil {
		return notFound(op, "course")
	}
	paymentID := p.ID
	res, err := createEnrollment(dbc, a.deps.Base, a.deps.Enrollments, op, p.StudentID, c.ID, &paymentID)
	if err != nil {
		return err
	}
	out.Enrollment = &res
	return nil
}
