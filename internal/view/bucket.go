package view

import (
	"time"

	"daily-planner/internal/model"
	"daily-planner/internal/timeutil"
)

// Bucket labels a task in the "all" view by its due date relative to today.
type Bucket string

const (
	BucketOverdue  Bucket = "Overdue"
	BucketToday    Bucket = "Today"
	BucketTomorrow Bucket = "Tomorrow"
	BucketThisWeek Bucket = "This Week"
	BucketLater    Bucket = "Later"
	BucketNoDate   Bucket = "No date"
)

// Buckets is the fixed display order of the grouping.
var Buckets = []Bucket{BucketOverdue, BucketToday, BucketTomorrow, BucketThisWeek, BucketLater, BucketNoDate}

// Group is one non-empty bucket with its tasks in display order.
type Group struct {
	Bucket Bucket       `json:"bucket"`
	Tasks  []model.Task `json:"tasks"`
}

// Classify assigns a due date to a bucket. Comparison is by calendar day.
func Classify(due *time.Time, today time.Time) Bucket {
	if due == nil {
		return BucketNoDate
	}
	days := timeutil.DaysBetween(today, *due)
	switch {
	case days < 0:
		return BucketOverdue
	case days == 0:
		return BucketToday
	case days == 1:
		return BucketTomorrow
	case days < 7:
		return BucketThisWeek
	default:
		return BucketLater
	}
}

// GroupTasks partitions already ordered tasks into buckets. Empty buckets are
// omitted and each bucket keeps the relative order of its input.
func GroupTasks(tasks []model.Task, today time.Time) []Group {
	byBucket := make(map[Bucket][]model.Task, len(Buckets))
	for _, task := range tasks {
		b := Classify(task.DueDate, today)
		byBucket[b] = append(byBucket[b], task)
	}
	groups := make([]Group, 0, len(byBucket))
	for _, b := range Buckets {
		if len(byBucket[b]) == 0 {
			continue
		}
		groups = append(groups, Group{Bucket: b, Tasks: byBucket[b]})
	}
	return groups
}
