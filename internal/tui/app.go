// Package tui is a terminal board over the task API. Reorders and status
// changes are shown at once and rolled back with a notice when the server
// refuses them.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"daily-planner/internal/board"
	"daily-planner/internal/client"
	"daily-planner/internal/model"
	"daily-planner/internal/timeutil"
	"daily-planner/internal/view"
)

const requestTimeout = 15 * time.Second

// Backend is what the board needs from the server. *client.Client implements it.
type Backend interface {
	board.Remote
	View(ctx context.Context, v view.View) (*client.View, error)
	BulkCreate(ctx context.Context, text string, fallback *time.Time) ([]model.Task, error)
	Delete(ctx context.Context, id uint) error
}

type loadedMsg struct {
	res *client.View
	err error
}

type settledMsg struct{ out board.Outcome }

type changedMsg struct {
	op  string
	err error
}

type appModel struct {
	backend Backend
	board   *board.Board

	view   view.View
	cursor int

	adding bool
	input  textinput.Model

	loading bool
	status  string
	notice  string

	width  int
	height int
}

func newAppModel(backend Backend, v view.View) appModel {
	in := textinput.New()
	in.Placeholder = "buy milk tomorrow"
	in.Prompt = "+ "
	in.CharLimit = 500

	return appModel{
		backend: backend,
		board:   board.New(backend, v, timeutil.DayStart(time.Now())),
		view:    v,
		input:   in,
		loading: true,
	}
}

func (m appModel) Init() tea.Cmd { return m.load(m.view) }

func (m appModel) load(v view.View) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := backend.View(ctx, v)
		return loadedMsg{res: res, err: err}
	}
}

func run(p *board.Pending) tea.Cmd {
	if p == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return settledMsg{out: p.Run(ctx)}
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.notice = "Could not load tasks: " + msg.err.Error()
			return m, nil
		}
		if err := m.board.Load(msg.res.View, msg.res.Today, msg.res.Tasks); err != nil {
			m.status = "Busy, press r to reload once the change is saved."
			return m, nil
		}
		m.view = msg.res.View
		m.clampCursor()
		return m, nil

	case settledMsg:
		if notice := m.board.Settle(msg.out); notice != nil {
			m.notice = notice.Error()
		} else if msg.out.Err == nil {
			m.status = "Saved."
		}
		m.clampCursor()
		return m, nil

	case changedMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("Could not %s: %v", msg.op, msg.err)
			return m, nil
		}
		m.status = "Done: " + msg.op + "."
		m.loading = true
		return m, m.load(m.view)

	case tea.KeyMsg:
		if m.adding {
			return m.updateInput(msg)
		}
		return m.updateKey(msg)
	}
	if m.adding {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m appModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.adding = false
		m.input.Blur()
		m.input.SetValue("")
		return m, nil
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		m.adding = false
		m.input.Blur()
		m.input.SetValue("")
		if text == "" {
			return m, nil
		}
		var fallback *time.Time
		if m.view == view.Today {
			today := m.board.Today()
			fallback = &today
		}
		backend := m.backend
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			_, err := backend.BulkCreate(ctx, text, fallback)
			return changedMsg{op: "add task", err: err}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	dragging := m.board.State() == board.Dragging

	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case "q":
		if !dragging {
			return m, tea.Quit
		}
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		if dragging {
			m.board.DragOver(m.cursor)
		}
		return m, nil
	case "down", "j":
		if m.cursor < m.board.Len()-1 {
			m.cursor++
		}
		if dragging {
			m.board.DragOver(m.cursor)
		}
		return m, nil
	case "esc":
		if dragging {
			if src, ok := m.board.DragSource(); ok {
				m.cursor = src
			}
			m.board.Cancel()
			m.status = "Move cancelled."
		}
		return m, nil
	case "enter":
		if !dragging {
			return m, nil
		}
		p, err := m.board.Drop(m.cursor)
		if err != nil {
			m.notice = err.Error()
			return m, nil
		}
		if p == nil {
			m.status = "Move cancelled."
			return m, nil
		}
		m.status = "Saving order..."
		return m, run(p)
	}

	if dragging {
		return m, nil
	}

	switch key {
	case "tab", "shift+tab", "1", "2", "3", "4", "5":
		next := m.nextView(key)
		if m.board.State() != board.Idle {
			m.status = "Wait for the new order to be saved."
			return m, nil
		}
		m.view = next
		m.cursor = 0
		m.loading = true
		m.notice = ""
		return m, m.load(next)
	case "r":
		m.loading = true
		return m, m.load(m.view)
	case "m", " ":
		if m.board.Len() == 0 {
			return m, nil
		}
		if err := m.board.DragStart(m.cursor); err != nil {
			switch {
			case errors.Is(err, board.ErrBusy):
				m.status = "Wait for the new order to be saved."
				return m, nil
			case errors.Is(err, board.ErrNotReorderable):
				m.status = "Completed tasks are ordered by completion time and cannot be moved."
				return m, nil
			}
			m.notice = err.Error()
			return m, nil
		}
		m.status = "Moving: up/down to choose a place, enter to drop, esc to cancel."
		m.notice = ""
		return m, nil
	case "x":
		task, ok := m.selected()
		if !ok {
			return m, nil
		}
		next := model.StatusDone
		if task.Done() {
			next = model.StatusTodo
		}
		return m.edit(task.ID, model.SetStatus{Status: next})
	case "p":
		task, ok := m.selected()
		if !ok || task.Status == model.StatusInProgress {
			return m, nil
		}
		return m.edit(task.ID, model.SetStatus{Status: model.StatusInProgress})
	case "a":
		m.adding = true
		m.notice = ""
		return m, m.input.Focus()
	case "d":
		task, ok := m.selected()
		if !ok {
			return m, nil
		}
		backend, id := m.backend, task.ID
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			return changedMsg{op: "delete task", err: backend.Delete(ctx, id)}
		}
	}
	return m, nil
}

func (m appModel) edit(id uint, updates ...model.Update) (tea.Model, tea.Cmd) {
	p, err := m.board.Edit(id, updates...)
	if err != nil {
		if errors.Is(err, board.ErrBusy) {
			m.status = "Wait for the new order to be saved."
		} else {
			m.notice = err.Error()
		}
		return m, nil
	}
	m.notice = ""
	m.status = "Saving..."
	m.clampCursor()
	return m, run(p)
}

func (m appModel) nextView(key string) view.View {
	idx := 0
	for i, v := range view.Views {
		if v == m.view {
			idx = i
		}
	}
	switch key {
	case "tab":
		idx = (idx + 1) % len(view.Views)
	case "shift+tab":
		idx = (idx - 1 + len(view.Views)) % len(view.Views)
	default:
		idx = int(key[0] - '1')
	}
	return view.Views[idx]
}

func (m appModel) selected() (model.Task, bool) {
	items := m.board.Items()
	if m.cursor < 0 || m.cursor >= len(items) {
		return model.Task{}, false
	}
	return items[m.cursor], true
}

func (m *appModel) clampCursor() {
	if m.cursor >= m.board.Len() {
		m.cursor = m.board.Len() - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m appModel) View() string {
	var b strings.Builder

	tabs := make([]string, 0, len(view.Views))
	for i, v := range view.Views {
		label := fmt.Sprintf("%d %s", i+1, v)
		if v == m.view {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n\n")

	switch {
	case m.loading && m.board.Len() == 0:
		b.WriteString(mutedStyle.Render("Loading..."))
		b.WriteString("\n")
	case m.board.Len() == 0:
		b.WriteString(mutedStyle.Render("No tasks here."))
		b.WriteString("\n")
	default:
		m.renderItems(&b)
	}

	b.WriteString("\n")
	if m.adding {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(mutedStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(footerStyle.Render(m.help()))
	return b.String()
}

func (m appModel) help() string {
	switch {
	case m.adding:
		return "enter: add  esc: cancel"
	case m.board.State() == board.Dragging:
		return "up/down: choose place  enter: drop  esc: cancel"
	}
	return "tab/1-5: view  m: move  x: done/undo  p: in progress  a: add  d: delete  r: reload  q: quit"
}

func (m appModel) renderItems(b *strings.Builder) {
	today := m.board.Today()
	src, dragging := m.board.DragSource()
	target, hasTarget := m.board.DragTarget()

	for i, task := range m.board.Items() {
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("> ")
		}

		line := m.renderTask(task, today)
		switch {
		case dragging && i == src:
			line = dragStyle.Render(line)
		case task.Done():
			line = doneStyle.Render(line)
		}
		if dragging && hasTarget && i == target && i != src {
			b.WriteString(targetStyle.Render("  ──────────"))
			b.WriteString("\n")
		}
		b.WriteString(marker)
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func (m appModel) renderTask(task model.Task, today time.Time) string {
	var parts []string
	switch task.Status {
	case model.StatusDone:
		parts = append(parts, "[x]")
	case model.StatusInProgress:
		parts = append(parts, "[~]")
	default:
		parts = append(parts, "[ ]")
	}
	parts = append(parts, task.Title)

	if task.DueDate != nil {
		due := timeutil.FormatDate(*task.DueDate)
		if !task.Done() && task.DueDate.Before(today) {
			parts = append(parts, overdueStyle.Render(due))
		} else {
			parts = append(parts, mutedStyle.Render(due))
		}
	}
	if m.view == view.All {
		parts = append(parts, mutedStyle.Render("· "+string(view.Classify(task.DueDate, today))))
	}
	return strings.Join(parts, " ")
}
