package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-planner/internal/dateparse"
	"daily-planner/internal/model"
	"daily-planner/internal/service"
	"daily-planner/internal/timeutil"
	"daily-planner/internal/view"
)

var viewTitles = map[view.View]string{
	view.All:    "📋 <b>Все задачи</b>",
	view.Today:  "🔥 <b>На сегодня</b>",
	view.Week:   "📅 <b>На неделю</b>",
	view.NoDate: "🟢 <b>Без даты</b>",
	view.Done:   "✅ <b>Выполненные</b>",
}

var viewButtons = []struct {
	view  view.View
	label string
}{
	{view.All, "Все"},
	{view.Today, "Сегодня"},
	{view.Week, "Неделя"},
	{view.NoDate, "Без даты"},
	{view.Done, "Готово"},
}

// Russian date words accepted next to the English phrases dateparse knows.
var dueAliases = map[string]int{
	"сегодня":     0,
	"завтра":      1,
	"послезавтра": 2,
}

var errBadDate = fmt.Errorf("unrecognized date")

// parseDueArg reads a due date argument. none is true for "none" style input.
func parseDueArg(raw string, today time.Time) (due *time.Time, none bool, err error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "":
		return nil, false, errBadDate
	case "none", "нет", "-", "без даты":
		return nil, true, nil
	}
	if offset, ok := dueAliases[value]; ok {
		d := timeutil.AddDays(today, offset)
		return &d, false, nil
	}
	if d, err := timeutil.ParseDueDate(strings.TrimSpace(raw)); err == nil {
		return &d, false, nil
	}
	res := dateparse.Parse(value, today)
	if res.Date == nil || res.Title != "" {
		return nil, false, errBadDate
	}
	return res.Date, false, nil
}

// splitIDArg splits "<id> rest" into the id and the trimmed remainder.
func splitIDArg(args string) (uint, string, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, "", fmt.Errorf("missing id")
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(fields[0], "#"), 10, 64)
	if err != nil || id == 0 {
		return 0, "", fmt.Errorf("invalid id %q", fields[0])
	}
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(args), fields[0]))
	return uint(id), rest, nil
}

// parseMoveArgs reads "<id> <place> [view]". place is 1-based.
func parseMoveArgs(args string) (id uint, place int, v view.View, err error) {
	fields := strings.Fields(args)
	if len(fields) < 2 || len(fields) > 3 {
		return 0, 0, "", fmt.Errorf("expected id and place")
	}
	id, _, err = splitIDArg(fields[0])
	if err != nil {
		return 0, 0, "", err
	}
	place, err = strconv.Atoi(fields[1])
	if err != nil || place < 1 {
		return 0, 0, "", fmt.Errorf("invalid place %q", fields[1])
	}
	v = view.All
	if len(fields) == 3 {
		v = view.Parse(fields[2])
	}
	return id, place, v, nil
}

func parseTaskID(data, prefix string) (uint, error) {
	raw := strings.TrimPrefix(data, prefix)
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}

// formatView renders a view for chat. The all view is grouped by bucket, other
// views are a plain numbered list in display order.
func formatView(res *service.ViewResult) string {
	var b strings.Builder
	b.WriteString(viewTitles[res.View])
	b.WriteString("\n\n")

	if len(res.Tasks) == 0 {
		b.WriteString("Здесь пока пусто. Добавь задачу через /newtask или /add.")
		return b.String()
	}

	if res.View == view.All {
		for _, group := range res.Groups {
			b.WriteString(service.FormatGroup(group, res.Today))
			b.WriteByte('\n')
		}
		return strings.TrimSpace(b.String())
	}

	for i, task := range res.Tasks {
		b.WriteString(fmt.Sprintf("%d. ", i+1))
		b.WriteString(service.FormatTask(task, res.Today))
	}
	return strings.TrimSpace(b.String())
}

func taskButtons(res *service.ViewResult) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, task := range res.Tasks {
		label := fmt.Sprintf("✅ #%d · %s", task.ID, shortTitle(task.Title, 24))
		data := fmt.Sprintf("%s%d", cbCompletePrefix, task.ID)
		if task.Done() {
			label = fmt.Sprintf("↩️ #%d · %s", task.ID, shortTitle(task.Title, 24))
			data = fmt.Sprintf("%s%d", cbReopenPrefix, task.ID)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, data),
			tgbotapi.NewInlineKeyboardButtonData("\U0001F5D1", fmt.Sprintf("%s%d", cbDeletePrefix, task.ID)),
		))
	}

	var tabs []tgbotapi.InlineKeyboardButton
	for _, vb := range viewButtons {
		if vb.view == res.View {
			continue
		}
		tabs = append(tabs, tgbotapi.NewInlineKeyboardButtonData(vb.label, cbViewPrefix+string(vb.view)))
	}
	rows = append(rows, tabs)
	return rows
}

func formatCreated(tasks []model.Task, today time.Time) string {
	var b strings.Builder
	if len(tasks) == 1 {
		b.WriteString("✅ <b>Задача сохранена</b>\n")
	} else {
		b.WriteString(fmt.Sprintf("✅ <b>Сохранено задач: %d</b>\n", len(tasks)))
	}
	for _, task := range tasks {
		b.WriteString(service.FormatTask(task, today))
		if task.DueDate != nil {
			b.WriteString(fmt.Sprintf("   🗓 %s\n", task.DueDate.Format("02.01.2006")))
		}
	}
	return strings.TrimSpace(b.String())
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func escape(s string) string {
	return html.EscapeString(s)
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "пропустить" || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "подтвердить" || value == "да"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "отмена"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "отменить ввод"
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelBulk),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelToday),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func dueKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnToday),
			tgbotapi.NewKeyboardButton(btnTomorrow),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}
