package model

import "time"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Task represents a single item in the planner.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index;index:idx_task_user_position,priority:1" json:"-"`
	Title       string     `gorm:"not null" json:"title"`
	Status      Status     `gorm:"size:16;default:TODO;index" json:"status"`
	DueDate     *time.Time `gorm:"index" json:"dueDate"`
	Position    int        `gorm:"index:idx_task_user_position,priority:2" json:"position"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Done reports whether the task is completed.
func (t Task) Done() bool {
	return t.Status == StatusDone
}

// PositionUpdate is one entry of a reorder request.
type PositionUpdate struct {
	ID       uint `json:"id"`
	Position int  `json:"position"`
}
