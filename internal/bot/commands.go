package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-planner/internal/board"
	"daily-planner/internal/model"
	"daily-planner/internal/service"
	"daily-planner/internal/view"
)

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}

	text := fmt.Sprintf(
		"👋 Привет, %s!\n<b>Я ежедневный планировщик: помогу держать задачи по порядку.</b>\n\n"+
			"Пиши задачи как обычно, например «купить молоко tomorrow» или «отчёт in 3 days», дату я пойму сам.\n\n"+
			"Набери /help, чтобы увидеть все команды.",
		escape(name),
	)

	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Подсказки</b>\n" +
		"• /newtask — добавить задачу пошагово\n" +
		"• /add — добавить несколько задач, по одной на строку\n" +
		"• /tasks [all|today|week|nodate|done] — показать список\n" +
		"• /done &lt;id&gt; — отметить задачу выполненной\n" +
		"• /reopen &lt;id&gt; — вернуть задачу в работу\n" +
		"• /move &lt;id&gt; &lt;место&gt; [список] — переставить задачу (например, /move 7 1)\n" +
		"• /due &lt;id&gt; &lt;дата|none&gt; — срок: 2025-11-30, завтра, fri, in 3 days\n" +
		"• /rename &lt;id&gt; &lt;название&gt; — переименовать\n" +
		"• /delete &lt;id&gt; — удалить задачу\n" +
		"• /interval &lt;часы&gt; — как часто присылать отчёт\n" +
		"• /report — прислать отчёт сейчас\n" +
		"• /cancel — отменить текущий ввод"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.reminderSvc.DailySummary(ctx, *user, time.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось сформировать отчёт: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	log.Printf("[info] start new task conversation user=%d", msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Создаём новую задачу.\n<b>Шаг 1:</b> как её назвать?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Название не может быть пустым. Как назовём задачу?", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stageDueDate
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ Когда сделать? Дата в формате <code>2025-11-30</code>, «завтра», <code>fri</code> или «Пропустить».", dueKeyboard())
	case stageDueDate:
		if !isSkipInput(text) {
			due, _, err := parseDueArg(text, b.taskSvc.Today())
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Не могу распознать дату. Попробуй <code>2025-11-30</code>, «завтра» или «Пропустить».", dueKeyboard())
			}
			state.input.DueDate = due
		}
		err := b.finishTaskCreation(ctx, msg.From, state.input, msg.Chat.ID)
		b.clearConversation(msg.From.ID)
		return err
	case stageBulk:
		b.clearConversation(msg.From.ID)
		return b.bulkCreate(ctx, msg.Chat.ID, msg.From, msg.Text)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Диалог сброшен. Попробуй ещё раз через /newtask.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, from *tgbotapi.User, input service.TaskInput, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.CreateTask(ctx, user.ID, input)
	if err != nil {
		return b.replyError(chatID, err)
	}

	return b.sendText(chatID, formatCreated([]model.Task{*task}, b.taskSvc.Today()))
}

// handleBulkAdd creates one task per line of the command text. Without text it
// waits for the next message.
func (b *Bot) handleBulkAdd(ctx context.Context, msg *tgbotapi.Message) error {
	text := ""
	if msg.IsCommand() {
		text = msg.CommandArguments()
	}
	if strings.TrimSpace(text) == "" {
		if _, err := b.ensureUser(ctx, msg.From); err != nil {
			return err
		}
		b.setConversation(msg.From.ID, &conversationState{stage: stageBulk})
		return b.sendWithReplyMarkup(msg.Chat.ID, "📝 Пришли задачи, по одной на строку. Дату можно дописать в конце: «позвонить маме tomorrow».", cancelKeyboard())
	}
	return b.bulkCreate(ctx, msg.Chat.ID, msg.From, text)
}

func (b *Bot) bulkCreate(ctx context.Context, chatID int64, from *tgbotapi.User, text string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	tasks, err := b.taskSvc.BulkCreate(ctx, user.ID, service.BulkInput{Lines: service.SplitLines(text)})
	if err != nil {
		return b.replyError(chatID, err)
	}
	return b.sendText(chatID, formatCreated(tasks, b.taskSvc.Today()))
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	arg := ""
	if msg.IsCommand() {
		arg = msg.CommandArguments()
	}
	return b.sendView(ctx, msg.Chat.ID, msg.From, arg)
}

func (b *Bot) sendView(ctx context.Context, chatID int64, from *tgbotapi.User, rawView string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	v := view.Parse(rawView)
	log.Printf("[info] list tasks for user=%d view=%s", user.ID, v)
	res, err := b.taskSvc.View(ctx, user.ID, v)
	if err != nil {
		return b.replyError(chatID, err)
	}

	msg := tgbotapi.NewMessage(chatID, formatView(res))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(taskButtons(res)...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleComplete(ctx context.Context, msg *tgbotapi.Message) error {
	id, _, err := splitIDArg(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /done 12")
	}
	return b.completeTaskAndRefresh(ctx, msg.Chat.ID, msg.From, id)
}

func (b *Bot) handleReopen(ctx context.Context, msg *tgbotapi.Message) error {
	id, _, err := splitIDArg(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /reopen 12")
	}
	return b.reopenTask(ctx, msg.Chat.ID, msg.From, id)
}

func (b *Bot) reopenTask(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.ReopenTask(ctx, user.ID, taskID)
	if err != nil {
		return b.replyError(chatID, err)
	}
	return b.sendText(chatID, fmt.Sprintf("↩️ Задача «%s» снова в работе.", escape(normalizeTitle(task.Title))))
}

// handleMove moves a task to a 1-based place within a view and saves the whole
// visible order at once.
func (b *Bot) handleMove(ctx context.Context, msg *tgbotapi.Message) error {
	id, place, v, err := parseMoveArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Формат: /move &lt;id&gt; &lt;место&gt; [список], например /move 7 1 today")
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if v == view.Done {
		return b.sendText(msg.Chat.ID, "Выполненные задачи упорядочены по дате выполнения, их нельзя переставлять.")
	}

	res, err := b.taskSvc.View(ctx, user.ID, v)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	from := -1
	for i, task := range res.Tasks {
		if task.ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return b.sendText(msg.Chat.ID, "Задача не найдена в этом списке.")
	}

	_, items := board.PlanMove(res.Tasks, from, place-1)
	if err := b.taskSvc.Reorder(ctx, user.ID, items); err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendView(ctx, msg.Chat.ID, msg.From, string(v))
}

func (b *Bot) handleDue(ctx context.Context, msg *tgbotapi.Message) error {
	id, rest, err := splitIDArg(msg.CommandArguments())
	if err != nil || rest == "" {
		return b.sendText(msg.Chat.ID, "Формат: /due &lt;id&gt; &lt;дата|none&gt;, например /due 3 2025-11-30")
	}
	due, none, err := parseDueArg(rest, b.taskSvc.Today())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Не могу распознать дату. Попробуй <code>2025-11-30</code>, «завтра», <code>fri</code> или none.")
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.UpdateTask(ctx, user.ID, id, model.Reschedule{DueDate: due})
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	if none {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("🟢 У задачи «%s» больше нет срока.", escape(normalizeTitle(task.Title))))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("⏰ Срок задачи «%s»: %s.", escape(normalizeTitle(task.Title)), task.DueDate.Format("02.01.2006")))
}

func (b *Bot) handleRename(ctx context.Context, msg *tgbotapi.Message) error {
	id, title, err := splitIDArg(msg.CommandArguments())
	if err != nil || title == "" {
		return b.sendText(msg.Chat.ID, "Формат: /rename &lt;id&gt; &lt;новое название&gt;")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.UpdateTask(ctx, user.ID, id, model.Rename{Title: title})
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✏️ Задача #%d теперь называется «%s».", task.ID, escape(task.Title)))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	id, _, err := splitIDArg(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /delete 12")
	}
	return b.askConfirmation(ctx, msg.Chat.ID, msg.From, id, actionDelete)
}

func (b *Bot) handleInterval(msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if b.config.ReportTime != "" {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Отчёт приходит каждый день в %s.", escape(b.config.ReportTime)))
	}
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		b.mu.Lock()
		current := int(b.config.ReportInterval.Hours())
		b.mu.Unlock()
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Текущий интервал отчётов: %d ч. Укажи число часов, например: /interval 4", current))
	}
	hours, err := strconv.Atoi(args)
	if err != nil || hours <= 0 {
		return b.sendText(msg.Chat.ID, "Интервал должен быть положительным числом часов, например /interval 6")
	}
	if err := b.rescheduleReports(time.Duration(hours) * time.Hour); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось изменить интервал: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("Интервал уведомлений обновлён: каждые %d ч.", hours))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID
	log.Printf("[info] callback user=%d data=%s", cb.From.ID, data)

	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		b.ack(cb, "")
		taskID, err := parseTaskID(data, cbCompletePrefix)
		if err != nil {
			return nil
		}
		return b.askConfirmation(ctx, chatID, cb.From, taskID, actionComplete)
	case strings.HasPrefix(data, cbReopenPrefix):
		b.ack(cb, "")
		taskID, err := parseTaskID(data, cbReopenPrefix)
		if err != nil {
			return nil
		}
		return b.reopenTask(ctx, chatID, cb.From, taskID)
	case strings.HasPrefix(data, cbDeletePrefix):
		b.ack(cb, "")
		taskID, err := parseTaskID(data, cbDeletePrefix)
		if err != nil {
			return nil
		}
		return b.askConfirmation(ctx, chatID, cb.From, taskID, actionDelete)
	case strings.HasPrefix(data, cbViewPrefix):
		b.ack(cb, "")
		return b.sendView(ctx, chatID, cb.From, strings.TrimPrefix(data, cbViewPrefix))
	default:
		b.ack(cb, "")
		return nil
	}
}

func (b *Bot) askConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint, action confirmationAction) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.GetTask(ctx, user.ID, taskID)
	if err != nil {
		return b.replyError(chatID, err)
	}

	var text string
	switch action {
	case actionDelete:
		text = fmt.Sprintf("Удалить задачу «%s» (#%d)?", escape(normalizeTitle(task.Title)), task.ID)
	default:
		if task.Done() {
			return b.sendText(chatID, "Задача уже выполнена.")
		}
		text = fmt.Sprintf("Отметить задачу «%s» (#%d) как выполненную?", escape(normalizeTitle(task.Title)), task.ID)
	}
	b.setConfirmation(from.ID, confirmationRequest{taskID: task.ID, action: action})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		if req.action == actionDelete {
			return b.deleteTaskAndRefresh(ctx, msg.Chat.ID, msg.From, req.taskID)
		}
		return b.completeTaskAndRefresh(ctx, msg.Chat.ID, msg.From, req.taskID)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "🔹 Хорошо, ничего не меняю.")
	default:
		prompt := "Подтверди или отмени выполнение задачи."
		if req.action == actionDelete {
			prompt = "Подтверди или отмени удаление задачи."
		}
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, confirmKeyboard())
	}
}

func (b *Bot) completeTaskAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.CompleteTask(ctx, user.ID, taskID)
	if err != nil {
		return b.replyError(chatID, err)
	}

	if err := b.sendText(chatID, fmt.Sprintf("✅ Задача «%s» выполнена.", escape(normalizeTitle(task.Title)))); err != nil {
		return err
	}
	return b.sendView(ctx, chatID, from, string(view.All))
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.GetTask(ctx, user.ID, taskID)
	if err != nil {
		return b.replyError(chatID, err)
	}
	if err := b.taskSvc.DeleteTask(ctx, user.ID, taskID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return b.sendText(chatID, "Задача не найдена или уже удалена.")
		}
		return b.replyError(chatID, err)
	}

	if err := b.sendText(chatID, fmt.Sprintf("\U0001F5D1 Задача «%s» удалена.", escape(normalizeTitle(task.Title)))); err != nil {
		return err
	}
	return b.sendView(ctx, chatID, from, string(view.All))
}
