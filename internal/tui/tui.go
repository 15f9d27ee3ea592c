package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"daily-planner/internal/view"
)

// Run opens the interactive board on v and blocks until the user quits.
func Run(ctx context.Context, backend Backend, v view.View) error {
	m := newAppModel(backend, v)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
