package model

import (
	"strings"
	"time"
)

// Update is a single typed change to a task. The set of implementations is closed:
// Rename, SetStatus, Reschedule and Reposition.
type Update interface {
	// Validate checks the update before anything is applied.
	Validate() error
	// Apply mutates t. now is used for completion timestamps.
	Apply(t *Task, now time.Time)
	// Field names the task field the update touches.
	Field() string

	sealed()
}

// Rename changes the title.
type Rename struct {
	Title string
}

func (u Rename) Validate() error {
	if strings.TrimSpace(u.Title) == "" {
		return Invalid("title", "must not be empty")
	}
	return nil
}

func (u Rename) Apply(t *Task, _ time.Time) { t.Title = strings.TrimSpace(u.Title) }
func (Rename) Field() string                { return "title" }
func (Rename) sealed()                      {}

// SetStatus moves the task to another status. Entering DONE stamps CompletedAt,
// any other status clears it.
type SetStatus struct {
	Status Status
}

func (u SetStatus) Validate() error {
	if !u.Status.Valid() {
		return Invalid("status", "unknown status %q", u.Status)
	}
	return nil
}

func (u SetStatus) Apply(t *Task, now time.Time) {
	t.Status = u.Status
	if u.Status == StatusDone {
		stamp := now.UTC()
		t.CompletedAt = &stamp
		return
	}
	t.CompletedAt = nil
}

func (SetStatus) Field() string { return "status" }
func (SetStatus) sealed()       {}

// Reschedule sets or clears the due date. DueDate must already be normalized
// to UTC midnight.
type Reschedule struct {
	DueDate *time.Time
}

func (u Reschedule) Validate() error { return nil }

func (u Reschedule) Apply(t *Task, _ time.Time) {
	if u.DueDate == nil {
		t.DueDate = nil
		return
	}
	due := *u.DueDate
	t.DueDate = &due
}

func (Reschedule) Field() string { return "dueDate" }
func (Reschedule) sealed()       {}

// Reposition assigns a new position.
type Reposition struct {
	Position int
}

func (u Reposition) Validate() error {
	if u.Position < 0 {
		return Invalid("position", "must be a non-negative integer")
	}
	return nil
}

func (u Reposition) Apply(t *Task, _ time.Time) { t.Position = u.Position }
func (Reposition) Field() string                { return "position" }
func (Reposition) sealed()                      {}

// ApplyUpdates validates every update and, only if all are valid, applies them in order.
func ApplyUpdates(t *Task, updates []Update, now time.Time) error {
	if len(updates) == 0 {
		return Invalid("", "no fields to update")
	}
	for _, u := range updates {
		if err := u.Validate(); err != nil {
			return err
		}
	}
	for _, u := range updates {
		u.Apply(t, now)
	}
	return nil
}
