package aggregates

import (
	"context"

	"github.com/google/uuid"
	"github.com/yungbote/courseflow-backend/internal/domain/user"
)

var ProgressAggregateContract = Contract{
	Name:             "Learning.ProgressAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	LockScope:        LockScopeEnrollment,
	Notes:            "Re-derives enrollment progress from consumption records and the current structure.",
}

// ProgressAggregate is the progress engine. Recompute is idempotent: it always
// re-derives from ground truth and never increments a counter.
//
// Failures: CodeNotEnrolled when no enrollment exists, CodeNotFound, CodeNotAvailable, CodeRetryable, CodeInternal.
type ProgressAggregate interface {
	Aggregate

	Recompute(ctx context.Context, studentID, courseID uuid.UUID) (ProgressSnapshot, error)
	MarkConsumed(ctx context.Context, viewer user.Viewer, itemID uuid.UUID) (ConsumeResult, error)
}

type ConsumeResult struct {
	ItemID   uuid.UUID
	Snapshot ProgressSnapshot
	// FirstTime is false when the item was already consumed.
	FirstTime bool
}
