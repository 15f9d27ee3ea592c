package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"daily-planner/internal/model"
	"daily-planner/internal/repository"
	"daily-planner/internal/view"
)

// 2024-01-10 is a Wednesday.
var fixedNow = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *repository.TaskRepository {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "planner.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repository.NewTaskRepository(db)
}

func newTestService(t *testing.T) *TaskService {
	t.Helper()
	svc := NewTaskService(newTestRepo(t), time.UTC)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func titles(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Title)
	}
	return out
}

func TestCreateTaskAppendsAndValidates(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.CreateTask(ctx, 1, TaskInput{Title: "   "}); !model.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.CreateTask(ctx, 1, TaskInput{Title: "x", Status: "LATER"}); !model.IsValidation(err) {
		t.Fatalf("expected validation error for bad status, got %v", err)
	}

	first, err := svc.CreateTask(ctx, 1, TaskInput{Title: " first "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Title != "first" || first.Position != 1 || first.Status != model.StatusTodo {
		t.Fatalf("unexpected task %+v", first)
	}

	due := time.Date(2024, 1, 12, 18, 45, 0, 0, time.UTC)
	second, err := svc.CreateTask(ctx, 1, TaskInput{Title: "second", DueDate: &due, Status: model.StatusDone})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if second.Position != 2 {
		t.Fatalf("expected position 2, got %d", second.Position)
	}
	if second.DueDate == nil || !second.DueDate.Equal(date(2024, 1, 12)) {
		t.Fatalf("due date not normalized: %v", second.DueDate)
	}
	if second.CompletedAt == nil {
		t.Fatalf("task created as DONE must carry completedAt")
	}
}

func TestBulkCreateAllocatesAfterCurrentMax(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	seed, err := svc.CreateTask(ctx, 1, TaskInput{Title: "seed"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateTask(ctx, 1, seed.ID, model.Reposition{Position: 5}); err != nil {
		t.Fatalf("reposition: %v", err)
	}

	created, err := svc.BulkCreate(ctx, 1, BulkInput{Lines: SplitLines("A\nB\nC")})
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}
	if got := titles(created); strings.Join(got, ",") != "A,B,C" {
		t.Fatalf("unexpected titles %v", got)
	}
	for i, want := range []int{6, 7, 8} {
		if created[i].Position != want {
			t.Fatalf("%s: position %d, want %d", created[i].Title, created[i].Position, want)
		}
	}
}

func TestBulkCreateParsesLines(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	picker := date(2024, 2, 1)

	text := "  buy milk tomorrow \n\n   \nfri\nreview PR in 3 days\nplain line\n"
	created, err := svc.BulkCreate(ctx, 1, BulkInput{Lines: SplitLines(text), DefaultDueDate: &picker})
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}

	want := []struct {
		title string
		due   time.Time
	}{
		{"Buy milk", date(2024, 1, 11)},
		{"Fri", date(2024, 1, 12)},
		{"Review PR", date(2024, 1, 13)},
		{"Plain line", picker},
	}
	if len(created) != len(want) {
		t.Fatalf("expected %d tasks, got %d: %v", len(want), len(created), titles(created))
	}
	for i, w := range want {
		if created[i].Title != w.title {
			t.Fatalf("task %d: title %q, want %q", i, created[i].Title, w.title)
		}
		if created[i].DueDate == nil || !created[i].DueDate.Equal(w.due) {
			t.Fatalf("task %q: due %v, want %v", w.title, created[i].DueDate, w.due)
		}
		if created[i].Position != i+1 {
			t.Fatalf("task %q: position %d, want %d", w.title, created[i].Position, i+1)
		}
	}
}

func TestBulkCreateExplicitDateAndNoFallback(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	explicit := time.Date(2024, 3, 5, 13, 0, 0, 0, time.UTC)

	created, err := svc.BulkCreate(ctx, 1, BulkInput{Lines: []LineInput{
		{Title: "ship release", DueDate: &explicit},
		{Title: "write notes"},
	}})
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}
	if created[0].DueDate == nil || !created[0].DueDate.Equal(date(2024, 3, 5)) {
		t.Fatalf("explicit date lost: %v", created[0].DueDate)
	}
	if created[1].DueDate != nil {
		t.Fatalf("expected no due date without phrase or default, got %v", created[1].DueDate)
	}
}

func TestBulkCreateRejectsEmptyInput(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.BulkCreate(context.Background(), 1, BulkInput{Lines: SplitLines(" \n\t\n")})
	var verr *model.ValidationError
	if !errors.As(err, &verr) || verr.Field != "lines" {
		t.Fatalf("expected validation error on lines, got %v", err)
	}
}

func TestValidateReorder(t *testing.T) {
	cases := []struct {
		name  string
		items []model.PositionUpdate
		field string
	}{
		{"empty", nil, "items"},
		{"negative", []model.PositionUpdate{{ID: 1, Position: -1}}, "items[0].position"},
		{"missing id", []model.PositionUpdate{{ID: 0, Position: 1}}, "items[0].id"},
		{"duplicate", []model.PositionUpdate{{ID: 1, Position: 1}, {ID: 1, Position: 2}}, "items[1].id"},
	}
	for _, tc := range cases {
		err := ValidateReorder(tc.items)
		var verr *model.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
		if verr.Field != tc.field {
			t.Fatalf("%s: field %q, want %q", tc.name, verr.Field, tc.field)
		}
	}
	if err := ValidateReorder([]model.PositionUpdate{{ID: 1, Position: 0}}); err != nil {
		t.Fatalf("position 0 is allowed: %v", err)
	}
}

func TestBulkReorderViewScenario(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	created, err := svc.BulkCreate(ctx, 1, BulkInput{Lines: SplitLines("A\nB\nC")})
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}
	a, b, c := created[0], created[1], created[2]
	if a.Position != 1 || b.Position != 2 || c.Position != 3 {
		t.Fatalf("unexpected positions %d %d %d", a.Position, b.Position, c.Position)
	}

	if err := svc.Reorder(ctx, 1, []model.PositionUpdate{
		{ID: c.ID, Position: 1},
		{ID: a.ID, Position: 2},
		{ID: b.ID, Position: 3},
	}); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	res, err := svc.View(ctx, 1, view.All)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if got := strings.Join(titles(res.Tasks), ","); got != "C,A,B" {
		t.Fatalf("expected C,A,B got %s", got)
	}
	for i, task := range res.Tasks {
		if task.Position != i+1 {
			t.Fatalf("%s: position %d, want %d", task.Title, task.Position, i+1)
		}
	}
	if len(res.Groups) != 1 || res.Groups[0].Bucket != view.BucketNoDate {
		t.Fatalf("expected a single No date group, got %+v", res.Groups)
	}
	if !res.Today.Equal(date(2024, 1, 10)) {
		t.Fatalf("unexpected reference day %v", res.Today)
	}
}

func TestViewTodayAndBuckets(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.BulkCreate(ctx, 1, BulkInput{Lines: SplitLines("pay bills today\nplan trip tomorrow\nundated")}); err != nil {
		t.Fatalf("bulk create: %v", err)
	}

	res, err := svc.View(ctx, 1, view.Today)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if got := strings.Join(titles(res.Tasks), ","); got != "Pay bills" {
		t.Fatalf("today view: %s", got)
	}
	if res.Groups != nil {
		t.Fatalf("only the all view is grouped")
	}

	all, err := svc.View(ctx, 1, view.All)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	var buckets []string
	for _, g := range all.Groups {
		buckets = append(buckets, string(g.Bucket))
	}
	if strings.Join(buckets, ",") != "Today,Tomorrow,No date" {
		t.Fatalf("unexpected buckets %v", buckets)
	}
}

func TestDoneViewAfterComplete(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	created, err := svc.BulkCreate(ctx, 1, BulkInput{Lines: SplitLines("one\ntwo")})
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}

	if _, err := svc.CompleteTask(ctx, 1, created[0].ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	done, err := svc.View(ctx, 1, view.Done)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(done.Tasks) != 1 || done.Tasks[0].ID != created[0].ID {
		t.Fatalf("unexpected done view %v", titles(done.Tasks))
	}

	if _, err := svc.ReopenTask(ctx, 1, created[0].ID); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	all, err := svc.View(ctx, 1, view.All)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(all.Tasks) != 2 {
		t.Fatalf("reopened task should be back in the all view")
	}
}

func TestDailySummaryGroupsByBucket(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewTaskService(repo, time.UTC)
	svc.now = func() time.Time { return fixedNow }

	if _, err := svc.BulkCreate(ctx, 1, BulkInput{Lines: SplitLines("call bank today\nread <book>")}); err != nil {
		t.Fatalf("bulk create: %v", err)
	}

	reminders := NewReminderService(repo, time.UTC)
	text, err := reminders.DailySummary(ctx, model.User{ID: 1}, fixedNow)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	for _, want := range []string{"10.01.2024", BucketTitles[view.BucketToday], BucketTitles[view.BucketNoDate], "Call bank", "Read &lt;book&gt;"} {
		if !strings.Contains(text, want) {
			t.Fatalf("summary missing %q:\n%s", want, text)
		}
	}
	if strings.Index(text, BucketTitles[view.BucketToday]) > strings.Index(text, BucketTitles[view.BucketNoDate]) {
		t.Fatalf("buckets out of order:\n%s", text)
	}

	empty, err := reminders.DailySummary(ctx, model.User{ID: 2}, fixedNow)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(empty, "нет открытых задач") {
		t.Fatalf("unexpected empty summary %q", empty)
	}
}
