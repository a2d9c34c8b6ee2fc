package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/nodewire/pkg/editor"
)

// Run shows the editor full-screen until the user quits or ctx ends. It
// reports whether unsaved changes were discarded.
func Run(ctx context.Context, ed *editor.Editor, title string, save SaveFunc) (bool, error) {
	m := New(ed, title, save)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return false, err
	}
	return m.Dirty(), nil
}
