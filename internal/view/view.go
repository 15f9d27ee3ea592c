// Package view implements the named task views (all, today, week, nodate, done)
// and the bucket grouping of the "all" view.
package view

import (
	"sort"
	"strings"
	"time"

	"daily-planner/internal/model"
	"daily-planner/internal/timeutil"
)

// View names a predicate over an owner's tasks.
type View string

const (
	All    View = "all"
	Today  View = "today"
	Week   View = "week"
	NoDate View = "nodate"
	Done   View = "done"
)

// Views lists every view in display order.
var Views = []View{All, Today, Week, NoDate, Done}

// Parse normalizes raw into a View. Unknown values become All.
func Parse(raw string) View {
	v := View(strings.ToLower(strings.TrimSpace(raw)))
	switch v {
	case All, Today, Week, NoDate, Done:
		return v
	}
	return All
}

// Window returns the half-open due-date range [from, to) the view selects.
// ok is false for views that are not bounded by due date.
func (v View) Window(today time.Time) (from, to time.Time, ok bool) {
	switch v {
	case Today:
		return today, timeutil.AddDays(today, 1), true
	case Week:
		return today, timeutil.AddDays(today, 7), true
	}
	return time.Time{}, time.Time{}, false
}

// Matches reports whether task belongs to v given the reference day.
func Matches(task model.Task, v View, today time.Time) bool {
	if v == Done {
		return task.Done()
	}
	if task.Done() {
		return false
	}
	switch v {
	case NoDate:
		return task.DueDate == nil
	case Today, Week:
		if task.DueDate == nil {
			return false
		}
		from, to, _ := v.Window(today)
		return !task.DueDate.Before(from) && task.DueDate.Before(to)
	}
	return true
}

// Filter returns the tasks of v in display order. The input is not modified.
func Filter(tasks []model.Task, v View, today time.Time) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if Matches(task, v, today) {
			out = append(out, task)
		}
	}
	Sort(out, v)
	return out
}

// Sort orders tasks in place the way v displays them.
func Sort(tasks []model.Task, v View) {
	if v == Done {
		sort.SliceStable(tasks, func(i, j int) bool { return lessCompleted(tasks[i], tasks[j]) })
		return
	}
	sort.SliceStable(tasks, func(i, j int) bool { return lessPosition(tasks[i], tasks[j]) })
}

func lessPosition(a, b model.Task) bool {
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// lessCompleted puts the most recently completed first, tasks without a
// completion stamp last.
func lessCompleted(a, b model.Task) bool {
	switch {
	case a.CompletedAt != nil && b.CompletedAt != nil:
		if !a.CompletedAt.Equal(*b.CompletedAt) {
			return a.CompletedAt.After(*b.CompletedAt)
		}
	case a.CompletedAt != nil:
		return true
	case b.CompletedAt != nil:
		return false
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
