// pattern: Imperative Shell
package cli

import (
	tea "github.com/charmbracelet/bubbletea"

	"tessera/internal/instance"
	"tessera/internal/tui"
)

// runWatch runs the live viewer against a running compositor until the
// user quits.
func runWatch(client *instance.Client, theme string) error {
	model := tui.NewModel(client, theme)
	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
