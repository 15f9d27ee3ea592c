package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"daily-planner/internal/dateparse"
	"daily-planner/internal/model"
	"daily-planner/internal/repository"
	"daily-planner/internal/timeutil"
	"daily-planner/internal/view"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title   string
	DueDate *time.Time
	Status  model.Status
}

// LineInput is one line of a bulk create request. An explicit DueDate wins over
// any date phrase found in Title.
type LineInput struct {
	Title   string
	DueDate *time.Time
}

// BulkInput is a bulk create request. DefaultDueDate applies to lines that carry
// neither an explicit date nor a date phrase.
type BulkInput struct {
	Lines          []LineInput
	DefaultDueDate *time.Time
}

// ViewResult is an ordered view of an owner's tasks. Groups is only set for view.All.
type ViewResult struct {
	View   view.View    `json:"view"`
	Today  time.Time    `json:"today"`
	Tasks  []model.Task `json:"tasks"`
	Groups []view.Group `json:"groups,omitempty"`
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo *repository.TaskRepository
	loc      *time.Location
	now      func() time.Time
}

func NewTaskService(taskRepo *repository.TaskRepository, loc *time.Location) *TaskService {
	if loc == nil {
		loc = time.Local
	}
	return &TaskService{taskRepo: taskRepo, loc: loc, now: time.Now}
}

// Today is the reference day for one operation.
func (s *TaskService) Today() time.Time {
	return timeutil.Today(s.now(), s.loc)
}

func (s *TaskService) CreateTask(ctx context.Context, owner uint, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, model.Invalid("title", "is required")
	}
	status := input.Status
	if status == "" {
		status = model.StatusTodo
	}

	var due *time.Time
	if input.DueDate != nil {
		d := timeutil.DayStart(input.DueDate.UTC())
		due = &d
	}

	task := &model.Task{Title: title}
	if err := model.ApplyUpdates(task, []model.Update{
		model.SetStatus{Status: status},
		model.Reschedule{DueDate: due},
	}, s.now()); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Append(ctx, owner, []*model.Task{task}); err != nil {
		return nil, err
	}
	log.Printf("[info] task created id=%d user=%d position=%d", task.ID, owner, task.Position)
	return task, nil
}

// SplitLines turns free text into bulk lines: one per line, trimmed, empty lines dropped.
func SplitLines(text string) []LineInput {
	var lines []LineInput
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		lines = append(lines, LineInput{Title: raw})
	}
	return lines
}

// BulkCreate creates one task per non-empty line, in input order, with consecutive
// positions after the owner's current maximum. Rows are written in one transaction.
func (s *TaskService) BulkCreate(ctx context.Context, owner uint, input BulkInput) ([]model.Task, error) {
	today := s.Today()

	tasks := make([]*model.Task, 0, len(input.Lines))
	for _, line := range input.Lines {
		raw := strings.TrimSpace(line.Title)
		if raw == "" {
			continue
		}
		title, due := resolveLine(raw, line.DueDate, input.DefaultDueDate, today)
		tasks = append(tasks, &model.Task{
			Title:   title,
			Status:  model.StatusTodo,
			DueDate: due,
		})
	}
	if len(tasks) == 0 {
		return nil, model.Invalid("lines", "no non-empty lines")
	}

	if err := s.taskRepo.Append(ctx, owner, tasks); err != nil {
		return nil, err
	}

	created := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		created = append(created, *task)
	}
	log.Printf("[info] bulk created %d tasks user=%d positions=%d..%d", len(created), owner, created[0].Position, created[len(created)-1].Position)
	return created, nil
}

func resolveLine(raw string, explicit, fallback *time.Time, today time.Time) (string, *time.Time) {
	if explicit != nil {
		due := timeutil.DayStart(explicit.UTC())
		return capitalize(raw), &due
	}

	parsed := dateparse.Parse(raw, today)
	title := parsed.Title
	if title == "" {
		title = raw
	}
	due := parsed.Date
	if due == nil && fallback != nil {
		d := timeutil.DayStart(fallback.UTC())
		due = &d
	}
	return capitalize(title), due
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func (s *TaskService) GetTask(ctx context.Context, owner, taskID uint) (*model.Task, error) {
	return s.taskRepo.FindByID(ctx, owner, taskID)
}

// UpdateTask applies typed updates atomically.
func (s *TaskService) UpdateTask(ctx context.Context, owner, taskID uint, updates ...model.Update) (*model.Task, error) {
	task, err := s.taskRepo.Update(ctx, owner, taskID, updates, s.now())
	if err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(updates))
	for _, u := range updates {
		fields = append(fields, u.Field())
	}
	log.Printf("[info] task updated id=%d user=%d fields=%s", task.ID, owner, strings.Join(fields, ","))
	return task, nil
}

// CompleteTask marks a task as done.
func (s *TaskService) CompleteTask(ctx context.Context, owner, taskID uint) (*model.Task, error) {
	return s.UpdateTask(ctx, owner, taskID, model.SetStatus{Status: model.StatusDone})
}

// ReopenTask moves a task back to TODO.
func (s *TaskService) ReopenTask(ctx context.Context, owner, taskID uint) (*model.Task, error) {
	return s.UpdateTask(ctx, owner, taskID, model.SetStatus{Status: model.StatusTodo})
}

// Reorder validates the payload and commits every (id, position) pair atomically.
func (s *TaskService) Reorder(ctx context.Context, owner uint, items []model.PositionUpdate) error {
	if err := ValidateReorder(items); err != nil {
		return err
	}
	if err := s.taskRepo.Reorder(ctx, owner, items); err != nil {
		return err
	}
	log.Printf("[info] reordered %d tasks user=%d", len(items), owner)
	return nil
}

// ValidateReorder checks a reorder payload: at least one item, non-negative
// positions, no id listed twice.
func ValidateReorder(items []model.PositionUpdate) error {
	if len(items) == 0 {
		return model.Invalid("items", "at least one item is required")
	}
	seen := make(map[uint]struct{}, len(items))
	for i, item := range items {
		if item.ID == 0 {
			return model.Invalid(fmt.Sprintf("items[%d].id", i), "is required")
		}
		if item.Position < 0 {
			return model.Invalid(fmt.Sprintf("items[%d].position", i), "must be a non-negative integer")
		}
		if _, dup := seen[item.ID]; dup {
			return model.Invalid(fmt.Sprintf("items[%d].id", i), "task %d listed twice", item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

// DeleteTask removes a task completely. Other positions are left as they are.
func (s *TaskService) DeleteTask(ctx context.Context, owner, taskID uint) error {
	if err := s.taskRepo.Delete(ctx, owner, taskID); err != nil {
		return err
	}
	log.Printf("[info] task deleted id=%d user=%d", taskID, owner)
	return nil
}

// View returns the owner's tasks for v in display order. For view.All the
// result is also grouped into buckets.
func (s *TaskService) View(ctx context.Context, owner uint, v view.View) (*ViewResult, error) {
	today := s.Today()
	tasks, err := s.taskRepo.ListForView(ctx, owner, v, today)
	if err != nil {
		return nil, err
	}
	res := &ViewResult{View: v, Today: today, Tasks: tasks}
	if v == view.All {
		res.Groups = view.GroupTasks(tasks, today)
	}
	return res, nil
}
