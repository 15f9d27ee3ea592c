// Package board keeps a client-side mirror of one task view and applies user
// changes optimistically: the mirror changes at once, the server call runs
// afterwards, and a failed call restores the previous state.
package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"daily-planner/internal/model"
	"daily-planner/internal/view"
)

// State is the drag state of a board.
type State int

const (
	Idle State = iota
	Dragging
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled back"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrBusy is returned when a drag or a reorder commit is already in progress.
	ErrBusy = errors.New("board: another change is in progress")
	// ErrNotDragging is returned by Drop without a preceding DragStart.
	ErrNotDragging = errors.New("board: no drag in progress")
	// ErrUnknownTask is returned when an edit targets a task that is not on the board.
	ErrUnknownTask = errors.New("board: task is not on the board")
	// ErrNotReorderable is returned by DragStart on views with a fixed order.
	ErrNotReorderable = errors.New("board: completed tasks are ordered by completion time")
)

// Remote is the server side of the board.
type Remote interface {
	Reorder(ctx context.Context, items []model.PositionUpdate) error
	Update(ctx context.Context, id uint, updates ...model.Update) (model.Task, error)
}

type drag struct {
	sourceID uint
	target   int
	snapshot []model.Task
}

// Board is an owned, versioned mirror of one ordered view. It is not safe for
// concurrent use; callers drive it from a single event loop and run Pending
// operations elsewhere.
type Board struct {
	remote Remote
	view   view.View
	today  time.Time
	now    func() time.Time

	items   []model.Task
	version uint64

	state   State
	last    State
	drag    *drag
	pending map[string]*Pending
}

// New creates an empty board for v with today as the reference day.
func New(remote Remote, v view.View, today time.Time) *Board {
	return &Board{
		remote:  remote,
		view:    v,
		today:   today,
		now:     time.Now,
		pending: make(map[string]*Pending),
	}
}

// Load replaces the mirror with fresh server data. It is refused while a drag or a
// reorder commit is in progress.
func (b *Board) Load(v view.View, today time.Time, tasks []model.Task) error {
	if b.state != Idle {
		return ErrBusy
	}
	b.view = v
	b.today = today
	b.items = cloneTasks(tasks)
	b.version++
	return nil
}

func (b *Board) Items() []model.Task { return cloneTasks(b.items) }
func (b *Board) Len() int            { return len(b.items) }
func (b *Board) Version() uint64     { return b.version }
func (b *Board) State() State        { return b.state }
func (b *Board) View() view.View     { return b.view }
func (b *Board) Today() time.Time    { return b.today }

// LastOutcome is the terminal state of the most recent drag: Committed or RolledBack.
func (b *Board) LastOutcome() State { return b.last }

// InFlight is the number of operations awaiting Settle.
func (b *Board) InFlight() int { return len(b.pending) }

// DragSource returns the current index of the task being dragged. The index
// can move while a drag is open when an earlier edit is reverted.
func (b *Board) DragSource() (int, bool) {
	if b.drag == nil {
		return 0, false
	}
	idx := b.indexOf(b.drag.sourceID)
	if idx < 0 {
		return 0, false
	}
	return idx, true
}

// DragTarget returns the index currently hovered, if any.
func (b *Board) DragTarget() (int, bool) {
	if b.drag == nil || b.drag.target < 0 {
		return 0, false
	}
	return b.drag.target, true
}

// DragStart begins dragging the entry at index and snapshots the list.
func (b *Board) DragStart(index int) error {
	if b.state != Idle {
		return ErrBusy
	}
	if b.view == view.Done {
		return ErrNotReorderable
	}
	if index < 0 || index >= len(b.items) {
		return fmt.Errorf("board: drag index %d out of range", index)
	}
	b.drag = &drag{sourceID: b.items[index].ID, target: index, snapshot: cloneTasks(b.items)}
	b.state = Dragging
	return nil
}

// DragOver moves the target indicator. Nothing else changes.
func (b *Board) DragOver(index int) {
	if b.state != Dragging {
		return
	}
	if index < 0 || index >= len(b.items) {
		b.drag.target = -1
		return
	}
	b.drag.target = index
}

// Cancel abandons the drag and restores the snapshot. No remote call is made.
func (b *Board) Cancel() {
	if b.state != Dragging {
		return
	}
	b.items = b.drag.snapshot
	b.drag = nil
	b.finish(RolledBack)
}

// Drop ends the drag at index. A drop outside the list or onto the source
// cancels. Otherwise the new order is applied locally, positions 1..N are
// assigned to the visible list, and the returned Pending must be run and then
// passed to Settle.
func (b *Board) Drop(index int) (*Pending, error) {
	if b.state != Dragging {
		return nil, ErrNotDragging
	}
	from := b.indexOf(b.drag.sourceID)
	if from < 0 || index < 0 || index >= len(b.items) || index == from {
		b.Cancel()
		return nil, nil
	}

	moved, items := PlanMove(b.items, from, index)
	p := &Pending{
		ID:       uuid.NewString(),
		Kind:     KindReorder,
		remote:   b.remote,
		order:    items,
		snapshot: b.drag.snapshot,
	}
	b.items = moved
	b.version++
	b.drag = nil
	b.state = Committed
	b.pending[p.ID] = p
	return p, nil
}

// Edit applies typed updates to one task optimistically. Edits are refused
// while a drag or reorder commit is in progress, since a reorder rollback
// restores the whole list.
func (b *Board) Edit(taskID uint, updates ...model.Update) (*Pending, error) {
	if b.state != Idle {
		return nil, ErrBusy
	}
	idx := b.indexOf(taskID)
	if idx < 0 {
		return nil, ErrUnknownTask
	}

	task := b.items[idx]
	prev := cloneTask(task)
	if err := model.ApplyUpdates(&task, updates, b.now()); err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(updates))
	for _, u := range updates {
		fields = append(fields, u.Field())
	}
	p := &Pending{
		ID:       uuid.NewString(),
		Kind:     KindEdit,
		remote:   b.remote,
		taskID:   taskID,
		updates:  updates,
		fields:   fields,
		previous: prev,
		index:    idx,
	}

	b.items[idx] = task
	b.place(idx)
	b.version++
	b.pending[p.ID] = p
	return p, nil
}

// Settle applies the outcome of a pending operation. On failure the state
// before the operation is restored and a Notice is returned for the user.
// Outcomes of unknown operations are ignored.
func (b *Board) Settle(out Outcome) *Notice {
	p, ok := b.pending[out.ID]
	if !ok {
		return nil
	}
	delete(b.pending, out.ID)

	switch p.Kind {
	case KindReorder:
		if out.Err == nil {
			b.finish(Committed)
			return nil
		}
		b.items = p.snapshot
		b.version++
		b.finish(RolledBack)
		return &Notice{Op: "reorder", Message: "Could not save the new order; restored the previous one.", Err: out.Err}

	case KindEdit:
		if out.Err == nil {
			if out.Task != nil {
				if idx := b.indexOf(out.Task.ID); idx >= 0 {
					b.items[idx] = cloneTask(*out.Task)
					b.place(idx)
					b.version++
				}
			}
			return nil
		}
		b.revertEdit(p)
		b.version++
		return &Notice{Op: "edit", TaskID: p.taskID, Message: fmt.Sprintf("Could not save the change to %s; reverted.", p.fieldList()), Err: out.Err}
	}
	return nil
}

func (b *Board) finish(terminal State) {
	b.last = terminal
	b.state = Idle
}

// place keeps the entry at idx where the view wants it: dropped when it no longer
// matches, otherwise re-sorted.
func (b *Board) place(idx int) {
	if !view.Matches(b.items[idx], b.view, b.today) {
		b.items = append(b.items[:idx], b.items[idx+1:]...)
		return
	}
	view.Sort(b.items, b.view)
}

func (b *Board) revertEdit(p *Pending) {
	// A drag may have started after the edit; its snapshot holds the edited value too.
	// When the edit moved the task out of the view, the snapshot lacks it.
	if b.drag != nil {
		b.drag.snapshot = b.restoreIn(b.drag.snapshot, p)
	}
	for _, other := range b.pending {
		if other.Kind == KindReorder {
			other.snapshot = b.restoreIn(other.snapshot, p)
		}
	}

	idx := b.indexOf(p.taskID)
	if idx < 0 {
		b.items = b.insertPrevious(b.items, p)
		return
	}
	restoreFields(&b.items[idx], p.previous, p.fields)
	b.place(idx)
}

func (b *Board) restoreIn(list []model.Task, p *Pending) []model.Task {
	for i := range list {
		if list[i].ID == p.taskID {
			restoreFields(&list[i], p.previous, p.fields)
			return list
		}
	}
	return b.insertPrevious(list, p)
}

// insertPrevious puts the pre-edit task back at its old index and re-sorts.
func (b *Board) insertPrevious(list []model.Task, p *Pending) []model.Task {
	at := p.index
	if at > len(list) {
		at = len(list)
	}
	list = append(list, model.Task{})
	copy(list[at+1:], list[at:])
	list[at] = cloneTask(p.previous)
	view.Sort(list, b.view)
	return list
}

func restoreFields(cur *model.Task, prev model.Task, fields []string) {
	for _, f := range fields {
		switch f {
		case "title":
			cur.Title = prev.Title
		case "status":
			cur.Status = prev.Status
			cur.CompletedAt = cloneTime(prev.CompletedAt)
		case "dueDate":
			cur.DueDate = cloneTime(prev.DueDate)
		case "position":
			cur.Position = prev.Position
		}
	}
}

func (b *Board) indexOf(id uint) int {
	for i := range b.items {
		if b.items[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i := range tasks {
		out[i] = cloneTask(tasks[i])
	}
	return out
}

func cloneTask(t model.Task) model.Task {
	t.DueDate = cloneTime(t.DueDate)
	t.CompletedAt = cloneTime(t.CompletedAt)
	return t
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
