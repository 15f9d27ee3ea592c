package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"daily-planner/internal/model"
	"daily-planner/internal/repository"
	"daily-planner/internal/timeutil"
	"daily-planner/internal/view"
)

// BucketTitles are the Russian headings used for buckets in chat messages.
var BucketTitles = map[view.Bucket]string{
	view.BucketOverdue:  "⚠️ Просрочено",
	view.BucketToday:    "🔥 Сегодня",
	view.BucketTomorrow: "⏳ Завтра",
	view.BucketThisWeek: "📅 На этой неделе",
	view.BucketLater:    "🗓 Позже",
	view.BucketNoDate:   "🟢 Без даты",
}

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	taskRepo *repository.TaskRepository
	loc      *time.Location
}

func NewReminderService(taskRepo *repository.TaskRepository, loc *time.Location) *ReminderService {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderService{taskRepo: taskRepo, loc: loc}
}

// DailySummary renders the user's open tasks grouped by bucket.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	today := timeutil.Today(now, s.loc)
	tasks, err := s.taskRepo.ListForView(ctx, user.ID, view.All, today)
	if err != nil {
		return "", err
	}
	groups := view.GroupTasks(tasks, today)

	var builder strings.Builder
	builder.WriteString("📋 <b>Ежедневный отчёт</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", today.Format("02.01.2006")))

	if len(groups) == 0 {
		builder.WriteString("— нет открытых задач\n")
		return strings.TrimSpace(builder.String()), nil
	}

	for _, group := range groups {
		builder.WriteString(FormatGroup(group, today))
		builder.WriteByte('\n')
	}
	return strings.TrimSpace(builder.String()), nil
}

// FormatGroup renders one bucket with its heading.
func FormatGroup(group view.Group, today time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>%s</b> (%d)\n", BucketTitles[group.Bucket], len(group.Tasks)))
	for _, task := range group.Tasks {
		sb.WriteString(FormatTask(task, today))
	}
	return sb.String()
}

// FormatTask renders one task line for chat messages.
func FormatTask(task model.Task, today time.Time) string {
	var sb strings.Builder

	mark := "▫️"
	switch task.Status {
	case model.StatusInProgress:
		mark = "▶️"
	case model.StatusDone:
		mark = "✅"
	}

	title := html.EscapeString(strings.TrimSpace(task.Title))
	sb.WriteString(fmt.Sprintf("%s <code>#%d</code> %s", mark, task.ID, title))

	if task.DueDate != nil {
		days := timeutil.DaysBetween(today, *task.DueDate)
		switch {
		case days < 0:
			sb.WriteString(fmt.Sprintf("\n   ⏰ до %s — <b>просрочено на %d дн.</b>", timeutil.FormatDate(*task.DueDate), -days))
		case days > 1:
			sb.WriteString(fmt.Sprintf("\n   ⏰ до %s · осталось %d дн.", timeutil.FormatDate(*task.DueDate), days))
		}
	}

	sb.WriteByte('\n')
	return sb.String()
}
