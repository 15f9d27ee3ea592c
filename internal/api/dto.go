package api

import (
	"time"

	"daily-planner/internal/model"
	"daily-planner/internal/timeutil"
	"daily-planner/internal/view"
)

// TaskDTO is the wire form of a task. Due dates travel as YYYY-MM-DD.
type TaskDTO struct {
	ID          uint         `json:"id"`
	Title       string       `json:"title"`
	Status      model.Status `json:"status"`
	DueDate     *string      `json:"dueDate"`
	Position    int          `json:"position"`
	CreatedAt   time.Time    `json:"createdAt"`
	CompletedAt *time.Time   `json:"completedAt"`
}

// GroupDTO is one bucket of the "all" view.
type GroupDTO struct {
	Bucket view.Bucket `json:"bucket"`
	Tasks  []TaskDTO   `json:"tasks"`
}

// ViewResponse is returned by GET /api/tasks.
type ViewResponse struct {
	View   view.View  `json:"view"`
	Today  string     `json:"today"`
	Tasks  []TaskDTO  `json:"tasks"`
	Groups []GroupDTO `json:"groups,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// CreateRequest is the body of POST /api/tasks.
type CreateRequest struct {
	Title   string  `json:"title"`
	DueDate *string `json:"dueDate"`
	Status  *string `json:"status"`
}

// BulkLine is one line of a bulk request.
type BulkLine struct {
	Title   string  `json:"title"`
	DueDate *string `json:"dueDate"`
}

// BulkRequest is the body of POST /api/tasks/bulk. Either Lines or Text is used;
// Text is split on newlines.
type BulkRequest struct {
	Lines          []BulkLine `json:"lines"`
	Text           string     `json:"text"`
	DefaultDueDate *string    `json:"defaultDueDate"`
}

// BulkResponse lists the created tasks in input order.
type BulkResponse struct {
	Tasks []TaskDTO `json:"tasks"`
}

// ReorderRequest is the body of PUT /api/tasks/reorder.
type ReorderRequest struct {
	Items []model.PositionUpdate `json:"items"`
}

// NewTaskDTO converts a stored task.
func NewTaskDTO(task model.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Status:      task.Status,
		Position:    task.Position,
		CreatedAt:   task.CreatedAt,
		CompletedAt: task.CompletedAt,
	}
	if task.DueDate != nil {
		d := timeutil.FormatDate(*task.DueDate)
		dto.DueDate = &d
	}
	return dto
}

// Model converts the wire form back into a task.
func (d TaskDTO) Model() (model.Task, error) {
	task := model.Task{
		ID:          d.ID,
		Title:       d.Title,
		Status:      d.Status,
		Position:    d.Position,
		CreatedAt:   d.CreatedAt,
		CompletedAt: d.CompletedAt,
	}
	if d.DueDate != nil {
		due, err := timeutil.ParseDueDate(*d.DueDate)
		if err != nil {
			return model.Task{}, err
		}
		task.DueDate = &due
	}
	return task, nil
}

func taskDTOs(tasks []model.Task) []TaskDTO {
	out := make([]TaskDTO, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, NewTaskDTO(task))
	}
	return out
}

func parseOptionalDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	due, err := timeutil.ParseDueDate(*raw)
	if err != nil {
		return nil, err
	}
	return &due, nil
}
