package aggregates

import (
	"context"

	"github.com/google/uuid"
	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/domain/user"
)

var EnrollmentAggregateContract = Contract{
	Name:             "Learning.EnrollmentAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	LockScope:        LockScopeEnrollment,
	Notes:            "Owns the NONE -> ENROLLED transition; idempotent on the (student, course) unique key.",
}

// EnrollmentAggregate creates enrollments from free enroll requests and completed payments.
//
// Duplicate enrollments are not errors: the existing row is returned with Created=false.
type EnrollmentAggregate interface {
	Aggregate

	Enroll(ctx context.Context, viewer user.Viewer, courseID uuid.UUID) (EnrollResult, error)
	OnPaymentCompleted(ctx context.Context, in PaymentCompletedInput) (EnrollResult, error)
}

type PaymentCompletedInput struct {
	StudentID uuid.UUID
	CourseID  uuid.UUID
	PaymentID uuid.UUID
}

type EnrollResult struct {
	Enrollment *learning.Enrollment
	Created    bool
}
