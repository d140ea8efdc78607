package aggregates

import (
	"strings"

	"github.com/google/uuid"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

// CASGuard provides compare-and-set helpers for aggregate writes.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, ValidationError("missing db transaction context")
}

// UpdateByStatus updates a row only when id+status guard matches.
func (g CASGuard) UpdateByStatus(dbc dbctx.Context, table string, id uuid.UUID, allowedStatuses []string, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, ValidationError("table and id are required for UpdateByStatus")
	}
	if len(allowedStatuses) == 0 {
		return false, ValidationError("allowedStatuses must not be empty")
	}
	res := db.Table(table).
		Where("id = ? AND status IN ?", id, allowedStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireCASSuccess converts a failed compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}

// RequireExactIDSet checks that got is a permutation of want: same length,
// no duplicates, no foreign ids. It returns the offending field detail.
func RequireExactIDSet(want []uuid.UUID, got []uuid.UUID) map[string]string {
	if len(got) != len(want) {
		return map[string]string{"ordered_ids": "must list every sibling exactly once"}
	}
	known := make(map[uuid.UUID]bool, len(want))
	for _, id := range want {
		known[id] = false
	}
	for _, id := range got {
		seen, ok := known[id]
		if !ok {
			return map[string]string{"ordered_ids": "contains id " + id.String() + " outside this scope"}
		}
		if seen {
			return map[string]string{"ordered_ids": "contains duplicate id " + id.String()}
		}
		known[id] = true
	}
	return nil
}
