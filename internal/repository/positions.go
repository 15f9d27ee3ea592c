package repository

import (
	"fmt"

	"gorm.io/gorm"

	"daily-planner/internal/model"
)

// allocatePositions returns count positions after userID's current maximum.
// It must run on the transaction that inserts the rows; two concurrent appends
// for the same user can still observe the same maximum.
func allocatePositions(tx *gorm.DB, userID uint, count int) ([]int, error) {
	if count <= 0 {
		return nil, model.Invalid("count", "must be positive")
	}
	top, err := maxPosition(tx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]int, count)
	for i := range out {
		out[i] = top + 1 + i
	}
	return out, nil
}

func maxPosition(tx *gorm.DB, userID uint) (int, error) {
	var top int
	if err := tx.Model(&model.Task{}).
		Where("user_id = ?", userID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&top).Error; err != nil {
		return 0, fmt.Errorf("read max position: %w", err)
	}
	return top, nil
}
