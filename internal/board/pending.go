package board

import (
	"context"
	"strings"

	"daily-planner/internal/model"
)

// Kind tells reorder commits and field edits apart.
type Kind int

const (
	KindReorder Kind = iota
	KindEdit
)

// Pending is an optimistic change that has been applied locally and still has
// to reach the server. Run it off the event loop, then hand the Outcome back to
// Board.Settle. It is never retried automatically.
type Pending struct {
	ID   string
	Kind Kind

	remote Remote

	order    []model.PositionUpdate
	snapshot []model.Task

	taskID   uint
	updates  []model.Update
	fields   []string
	previous model.Task
	index    int
}

// Items is the reorder payload, nil for edits.
func (p *Pending) Items() []model.PositionUpdate {
	return append([]model.PositionUpdate(nil), p.order...)
}

// Run performs the remote call.
func (p *Pending) Run(ctx context.Context) Outcome {
	switch p.Kind {
	case KindReorder:
		return Outcome{ID: p.ID, Err: p.remote.Reorder(ctx, p.order)}
	default:
		task, err := p.remote.Update(ctx, p.taskID, p.updates...)
		if err != nil {
			return Outcome{ID: p.ID, Err: err}
		}
		return Outcome{ID: p.ID, Task: &task}
	}
}

func (p *Pending) fieldList() string {
	return strings.Join(p.fields, ", ")
}

// Outcome is the result of running a Pending operation.
type Outcome struct {
	ID   string
	Err  error
	Task *model.Task
}

// Notice is a non-blocking message for the user after a rollback.
type Notice struct {
	Op      string
	TaskID  uint
	Message string
	Err     error
}

func (n *Notice) Error() string {
	if n.Err == nil {
		return n.Message
	}
	return n.Message + " (" + n.Err.Error() + ")"
}

func (n *Notice) Unwrap() error {
	return n.Err
}
