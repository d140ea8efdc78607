package learning

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// renumber assigns order_index = position in orderedIDs to every row of one scope.
// Rows are first moved to negative indexes so the (scope, order_index) unique index
// never sees two rows on the same value while the final indexes are written.
// orderedIDs must list exactly the rows of the scope.
func renumber(tx *gorm.DB, table, scopeColumn string, scopeID uuid.UUID, orderedIDs []uuid.UUID) error {
	now := time.Now().UTC()
	if err := tx.Table(table).
		Where(scopeColumn+" = ?", scopeID).
		Updates(map[string]interface{}{
			"order_index": gorm.Expr("-order_index - 1"),
			"updated_at":  now,
		}).Error; err != nil {
		return err
	}
	for i, id := range orderedIDs {
		res := tx.Table(table).
			Where("id = ? AND "+scopeColumn+" = ?", id, scopeID).
			Update("order_index", i)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("renumber %s: row %s not in scope %s", table, id, scopeID)
		}
	}
	return nil
}
