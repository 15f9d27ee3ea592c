package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"daily-planner/internal/model"
	"daily-planner/internal/view"
)

// TaskRepository handles persistence for tasks. Every query is scoped by owner.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Append stores tasks for userID after the user's current maximum position,
// keeping their slice order. The maximum is read in the same transaction that
// inserts the rows; either every task is created or none is.
func (r *TaskRepository) Append(ctx context.Context, userID uint, tasks []*model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		positions, err := allocatePositions(tx, userID, len(tasks))
		if err != nil {
			return err
		}
		for i, task := range tasks {
			task.UserID = userID
			task.Position = positions[i]
			if err := tx.Create(task).Error; err != nil {
				return fmt.Errorf("insert task %d of %d: %w", i+1, len(tasks), err)
			}
		}
		return nil
	})
	if err != nil {
		for _, task := range tasks {
			task.ID = 0
		}
		return &model.TransactionError{Op: "create tasks", Err: err}
	}
	return nil
}

// ListForView returns userID's tasks selected by v, in display order.
func (r *TaskRepository) ListForView(ctx context.Context, userID uint, v view.View, today time.Time) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)

	switch v {
	case view.Done:
		q = q.Where("status = ?", model.StatusDone).
			Order("completed_at DESC NULLS LAST").
			Order("created_at DESC").
			Order("id DESC")
	default:
		q = q.Where("status <> ?", model.StatusDone)
		if v == view.NoDate {
			q = q.Where("due_date IS NULL")
		}
		if from, to, ok := v.Window(today); ok {
			q = q.Where("due_date >= ? AND due_date < ?", from, to)
		}
		q = q.Order("position ASC").
			Order("due_date ASC NULLS LAST").
			Order("created_at ASC").
			Order("id ASC")
	}

	var tasks []model.Task
	if err := q.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list %s tasks: %w", v, err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, model.ErrNotFound
	default:
		return nil, fmt.Errorf("find task: %w", err)
	}
}

// Update applies typed updates to one task. The ownership check, the
// validation and the write happen in one transaction.
func (r *TaskRepository) Update(ctx context.Context, userID, taskID uint, updates []model.Update, now time.Time) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("find task: %w", err)
		}
		if err := model.ApplyUpdates(&task, updates, now); err != nil {
			return err
		}
		if err := tx.Save(&task).Error; err != nil {
			return fmt.Errorf("save task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Reorder writes every (id, position) pair in a single transaction. If any id is
// not owned by userID nothing is written and ErrNotFound is returned. Tasks not
// listed keep their positions. There is no version check: concurrent reorders
// for the same user apply in commit order.
func (r *TaskRepository) Reorder(ctx context.Context, userID uint, items []model.PositionUpdate) error {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&model.Task{}).
			Where("user_id = ? AND id IN ?", userID, ids).
			Count(&owned).Error; err != nil {
			return fmt.Errorf("check ownership: %w", err)
		}
		if int(owned) != len(ids) {
			return model.ErrNotFound
		}
		for _, item := range items {
			res := tx.Model(&model.Task{}).
				Where("user_id = ? AND id = ?", userID, item.ID).
				Update("position", item.Position)
			if res.Error != nil {
				return fmt.Errorf("set position of task %d: %w", item.ID, res.Error)
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("set position of task %d: %d rows affected", item.ID, res.RowsAffected)
			}
		}
		return nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrNotFound):
		return err
	default:
		return &model.TransactionError{Op: "reorder", Err: err}
	}
}

// Delete removes a task. Remaining positions are not renumbered.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Positions returns id → position for all of userID's tasks.
func (r *TaskRepository) Positions(ctx context.Context, userID uint) (map[uint]int, error) {
	var rows []model.PositionUpdate
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("id, position").
		Where("user_id = ?", userID).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}
	out := make(map[uint]int, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Position
	}
	return out, nil
}
