package aggregates

import (
	"context"

	"github.com/google/uuid"
	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/domain/user"
	"gorm.io/datatypes"
)

var PaymentAggregateContract = Contract{
	Name:             "Learning.PaymentAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	LockScope:        LockScopePayment,
	Notes:            "Owns the local payment ledger; status moves only through compare-and-set transitions and a completed payment enrolls in the same tx.",
}

// PaymentAggregate records checkouts and gateway status changes. A payment that
// is completed after the write also has its enrollment, committed in the same transaction.
type PaymentAggregate interface {
	Aggregate

	// OpenCheckout creates a pending ledger row for a paid, visible course the viewer is not enrolled in.
	OpenCheckout(ctx context.Context, in OpenCheckoutInput) (*learning.Payment, error)
	// ApplyGatewayStatus moves a payment to the gateway-reported status when the transition is allowed.
	// Disallowed or repeated transitions are reported with Changed=false and no error.
	// Replays of a completed payment re-ensure the enrollment.
	ApplyGatewayStatus(ctx context.Context, in GatewayStatusInput) (ApplyGatewayStatusResult, error)
}

type OpenCheckoutInput struct {
	Viewer     user.Viewer
	CourseID   uuid.UUID
	Provider   string `validate:"required"`
	ExternalID string `validate:"required,max=50"`
	Currency   string `validate:"required,len=3"`
}

type GatewayStatusInput struct {
	ExternalID string                 `validate:"required"`
	Status     learning.PaymentStatus `validate:"required"`
	GatewayRef string
	Raw        datatypes.JSON
}

type ApplyGatewayStatusResult struct {
	Payment  *learning.Payment
	Previous learning.PaymentStatus
	Changed  bool
	// Enrollment is set whenever Payment ends up completed.
	Enrollment *EnrollResult
}
