package board

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"daily-planner/internal/model"
	"daily-planner/internal/view"
)

var today = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

type fakeRemote struct {
	reorders [][]model.PositionUpdate
	updates  []uint
	err      error
}

func (f *fakeRemote) Reorder(_ context.Context, items []model.PositionUpdate) error {
	f.reorders = append(f.reorders, items)
	return f.err
}

func (f *fakeRemote) Update(_ context.Context, id uint, updates ...model.Update) (model.Task, error) {
	f.updates = append(f.updates, id)
	if f.err != nil {
		return model.Task{}, f.err
	}
	task := model.Task{ID: id, Title: "server copy", Status: model.StatusTodo, Position: 99}
	if err := model.ApplyUpdates(&task, updates, today); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

func (f *fakeRemote) calls() int {
	return len(f.reorders) + len(f.updates)
}

func abc() []model.Task {
	return []model.Task{
		{ID: 1, Title: "A", Status: model.StatusTodo, Position: 10},
		{ID: 2, Title: "B", Status: model.StatusTodo, Position: 20},
		{ID: 3, Title: "C", Status: model.StatusTodo, Position: 30},
	}
}

func newLoaded(t *testing.T, remote Remote) *Board {
	t.Helper()
	b := New(remote, view.All, today)
	b.now = func() time.Time { return today.Add(9 * time.Hour) }
	if err := b.Load(view.All, today, abc()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return b
}

func order(b *Board) string {
	var out []string
	for _, task := range b.Items() {
		out = append(out, task.Title)
	}
	return strings.Join(out, "")
}

func TestCancelRestoresWithoutNetwork(t *testing.T) {
	remote := &fakeRemote{}
	b := newLoaded(t, remote)

	if err := b.DragStart(0); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	if b.State() != Dragging {
		t.Fatalf("expected dragging, got %s", b.State())
	}
	b.DragOver(2)
	if target, ok := b.DragTarget(); !ok || target != 2 {
		t.Fatalf("expected target 2, got %d %v", target, ok)
	}
	if order(b) != "ABC" {
		t.Fatalf("drag over must not change data, got %s", order(b))
	}

	b.Cancel()
	if order(b) != "ABC" || b.State() != Idle || b.LastOutcome() != RolledBack {
		t.Fatalf("unexpected state after cancel: %s %s %s", order(b), b.State(), b.LastOutcome())
	}
	if remote.calls() != 0 {
		t.Fatalf("cancel must not call the server, got %d calls", remote.calls())
	}
}

func TestDropWithoutValidTargetCancels(t *testing.T) {
	for _, target := range []int{1, -1, 3} {
		remote := &fakeRemote{}
		b := newLoaded(t, remote)
		if err := b.DragStart(1); err != nil {
			t.Fatalf("drag start: %v", err)
		}
		p, err := b.Drop(target)
		if err != nil || p != nil {
			t.Fatalf("drop on %d: expected cancel, got %v %v", target, p, err)
		}
		if order(b) != "ABC" || b.LastOutcome() != RolledBack || remote.calls() != 0 {
			t.Fatalf("drop on %d: unexpected result %s %s calls=%d", target, order(b), b.LastOutcome(), remote.calls())
		}
	}
}

func TestDragIsSerialized(t *testing.T) {
	b := newLoaded(t, &fakeRemote{})
	if err := b.DragStart(0); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	if err := b.DragStart(1); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if _, err := b.Edit(1, model.Rename{Title: "x"}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for edit while dragging, got %v", err)
	}
	if _, err := New(&fakeRemote{}, view.All, today).Drop(0); !errors.Is(err, ErrNotDragging) {
		t.Fatalf("expected ErrNotDragging, got %v", err)
	}
}

func TestDropAppliesOptimisticallyAndCommits(t *testing.T) {
	remote := &fakeRemote{}
	b := newLoaded(t, remote)
	before := b.Version()

	if err := b.DragStart(2); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	p, err := b.Drop(0)
	if err != nil || p == nil {
		t.Fatalf("drop: %v %v", p, err)
	}

	if order(b) != "CAB" {
		t.Fatalf("expected optimistic CAB, got %s", order(b))
	}
	for i, task := range b.Items() {
		if task.Position != i+1 {
			t.Fatalf("%s: position %d, want %d", task.Title, task.Position, i+1)
		}
	}
	if b.State() != Committed || b.Version() == before {
		t.Fatalf("expected committed state and a new version")
	}
	if remote.calls() != 0 {
		t.Fatalf("server must only be called when the pending operation runs")
	}
	if err := b.DragStart(0); !errors.Is(err, ErrBusy) {
		t.Fatalf("no new drag while the commit is in flight, got %v", err)
	}
	if err := b.Load(view.All, today, abc()); !errors.Is(err, ErrBusy) {
		t.Fatalf("no reload while the commit is in flight, got %v", err)
	}

	out := p.Run(context.Background())
	if notice := b.Settle(out); notice != nil {
		t.Fatalf("unexpected notice %v", notice)
	}
	if b.State() != Idle || b.LastOutcome() != Committed || b.InFlight() != 0 {
		t.Fatalf("unexpected state %s/%s inflight=%d", b.State(), b.LastOutcome(), b.InFlight())
	}
	if order(b) != "CAB" {
		t.Fatalf("confirmed order changed: %s", order(b))
	}

	want := []model.PositionUpdate{{ID: 3, Position: 1}, {ID: 1, Position: 2}, {ID: 2, Position: 3}}
	if len(remote.reorders) != 1 || len(remote.reorders[0]) != len(want) {
		t.Fatalf("unexpected reorder calls %+v", remote.reorders)
	}
	for i := range want {
		if remote.reorders[0][i] != want[i] {
			t.Fatalf("item %d: got %+v, want %+v", i, remote.reorders[0][i], want[i])
		}
	}
}

func TestFailedCommitRestoresSnapshot(t *testing.T) {
	remote := &fakeRemote{err: errors.New("connection reset")}
	b := newLoaded(t, remote)
	original := b.Items()

	if err := b.DragStart(0); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	p, err := b.Drop(2)
	if err != nil || p == nil {
		t.Fatalf("drop: %v %v", p, err)
	}
	if order(b) != "BCA" {
		t.Fatalf("expected optimistic BCA, got %s", order(b))
	}

	notice := b.Settle(p.Run(context.Background()))
	if notice == nil || notice.Op != "reorder" || !errors.Is(notice, remote.err) {
		t.Fatalf("expected reorder notice wrapping the failure, got %v", notice)
	}
	if b.State() != Idle || b.LastOutcome() != RolledBack {
		t.Fatalf("unexpected state %s/%s", b.State(), b.LastOutcome())
	}
	got := b.Items()
	for i := range original {
		if got[i].ID != original[i].ID || got[i].Position != original[i].Position {
			t.Fatalf("entry %d: got %+v, want %+v", i, got[i], original[i])
		}
	}
	if len(remote.reorders) != 1 {
		t.Fatalf("failed commit must not be retried, got %d calls", len(remote.reorders))
	}
}

func TestSettleIgnoresUnknownOperations(t *testing.T) {
	b := newLoaded(t, &fakeRemote{})
	if n := b.Settle(Outcome{ID: "nope", Err: errors.New("x")}); n != nil {
		t.Fatalf("unexpected notice %v", n)
	}
	if order(b) != "ABC" {
		t.Fatalf("list changed: %s", order(b))
	}
}

func TestEditStatusRemovesAndRestoresOnFailure(t *testing.T) {
	remote := &fakeRemote{err: errors.New("503")}
	b := newLoaded(t, remote)

	p, err := b.Edit(2, model.SetStatus{Status: model.StatusDone})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if order(b) != "AC" {
		t.Fatalf("done task should leave the all view immediately, got %s", order(b))
	}

	notice := b.Settle(p.Run(context.Background()))
	if notice == nil || notice.TaskID != 2 || !strings.Contains(notice.Message, "status") {
		t.Fatalf("unexpected notice %v", notice)
	}
	if order(b) != "ABC" {
		t.Fatalf("expected task restored in place, got %s", order(b))
	}
	restored := b.Items()[1]
	if restored.Status != model.StatusTodo || restored.CompletedAt != nil {
		t.Fatalf("status not restored: %+v", restored)
	}
}

func TestEditRenameRevertsOnlyTouchedField(t *testing.T) {
	remote := &fakeRemote{err: errors.New("timeout")}
	b := newLoaded(t, remote)

	due := today.AddDate(0, 0, 3)
	rename, err := b.Edit(1, model.Rename{Title: "Alpha"})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if _, err := b.Edit(1, model.Reschedule{DueDate: &due}); err != nil {
		t.Fatalf("edit: %v", err)
	}

	if b.Settle(rename.Run(context.Background())) == nil {
		t.Fatalf("expected a notice")
	}
	task := b.Items()[0]
	if task.Title != "A" {
		t.Fatalf("title not reverted: %q", task.Title)
	}
	if task.DueDate == nil || !task.DueDate.Equal(due) {
		t.Fatalf("other pending edit must survive, got %v", task.DueDate)
	}
}

func TestEditSuccessTakesServerCopy(t *testing.T) {
	remote := &fakeRemote{}
	b := newLoaded(t, remote)

	p, err := b.Edit(3, model.Rename{Title: "Gamma"})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if b.Items()[2].Title != "Gamma" {
		t.Fatalf("edit not applied optimistically")
	}
	if n := b.Settle(p.Run(context.Background())); n != nil {
		t.Fatalf("unexpected notice %v", n)
	}
	if got := b.Items()[2]; got.Title != "Gamma" || got.Position != 99 {
		t.Fatalf("expected server copy, got %+v", got)
	}
}

func TestEditValidation(t *testing.T) {
	remote := &fakeRemote{}
	b := newLoaded(t, remote)
	if _, err := b.Edit(1, model.Rename{Title: " "}); !model.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := b.Edit(42, model.Rename{Title: "x"}); !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}
	if order(b) != "ABC" || remote.calls() != 0 {
		t.Fatalf("rejected edits must not change anything")
	}
}

func TestFailedEditPatchesLaterDragSnapshot(t *testing.T) {
	remote := &fakeRemote{err: errors.New("offline")}
	b := newLoaded(t, remote)

	edit, err := b.Edit(1, model.Rename{Title: "Alpha"})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := b.DragStart(0); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	b.Settle(edit.Run(context.Background()))
	b.Cancel()

	if got := b.Items()[0].Title; got != "A" {
		t.Fatalf("cancelled drag resurrected the failed edit: %q", got)
	}
}

func dragAfterFailedCompletion(t *testing.T) (*Board, *fakeRemote) {
	t.Helper()
	remote := &fakeRemote{err: errors.New("offline")}
	b := newLoaded(t, remote)

	edit, err := b.Edit(1, model.SetStatus{Status: model.StatusDone})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := b.DragStart(0); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	if notice := b.Settle(edit.Run(context.Background())); notice == nil {
		t.Fatalf("expected a notice for the failed edit")
	}
	if order(b) != "ABC" {
		t.Fatalf("expected A back in place, got %s", order(b))
	}
	if src, ok := b.DragSource(); !ok || src != 1 {
		t.Fatalf("drag source should follow B to index 1, got %d %v", src, ok)
	}
	return b, remote
}

func TestCancelAfterRevertedRemovalKeepsTask(t *testing.T) {
	b, remote := dragAfterFailedCompletion(t)

	b.Cancel()
	if order(b) != "ABC" {
		t.Fatalf("cancel lost the reverted task: %s", order(b))
	}
	if len(remote.reorders) != 0 {
		t.Fatalf("cancel must not reorder remotely")
	}
}

func TestDropAfterRevertedRemovalMovesDraggedTask(t *testing.T) {
	b, remote := dragAfterFailedCompletion(t)

	p, err := b.Drop(2)
	if err != nil || p == nil {
		t.Fatalf("drop: %v %v", p, err)
	}
	if order(b) != "ACB" {
		t.Fatalf("expected B moved to the end, got %s", order(b))
	}
	p.Run(context.Background())
	want := []model.PositionUpdate{{ID: 1, Position: 1}, {ID: 3, Position: 2}, {ID: 2, Position: 3}}
	got := remote.reorders[0]
	if len(got) != len(want) {
		t.Fatalf("unexpected payload %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("payload[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFailedEditRestoresTaskInPendingReorderSnapshot(t *testing.T) {
	remote := &fakeRemote{err: errors.New("offline")}
	b := newLoaded(t, remote)

	edit, err := b.Edit(1, model.SetStatus{Status: model.StatusDone})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := b.DragStart(0); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	reorder, err := b.Drop(1)
	if err != nil || reorder == nil {
		t.Fatalf("drop: %v %v", reorder, err)
	}
	if order(b) != "CB" {
		t.Fatalf("expected CB, got %s", order(b))
	}

	b.Settle(edit.Run(context.Background()))
	b.Settle(reorder.Run(context.Background()))
	if order(b) != "ABC" {
		t.Fatalf("rollback should restore the reverted task too, got %s", order(b))
	}
}

func TestDoneViewIsNotReorderable(t *testing.T) {
	remote := &fakeRemote{}
	b := New(remote, view.Done, today)
	done := abc()
	for i := range done {
		done[i].Status = model.StatusDone
	}
	if err := b.Load(view.Done, today, done); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := b.DragStart(0); !errors.Is(err, ErrNotReorderable) {
		t.Fatalf("expected ErrNotReorderable, got %v", err)
	}
	if b.State() != Idle || remote.calls() != 0 {
		t.Fatalf("refused drag changed the board: %s, %d calls", b.State(), remote.calls())
	}
}
