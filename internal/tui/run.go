package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// RunPicker shows the picker on the terminal and returns the chosen code.
// It returns "" when the user quits without choosing.
func RunPicker(ctx context.Context, current string) (string, error) {
	program := tea.NewProgram(NewPicker(current), tea.WithContext(ctx))

	final, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("running currency picker: %w", err)
	}

	picker, ok := final.(Picker)
	if !ok {
		return "", fmt.Errorf("unexpected picker model %T", final)
	}
	return picker.Chosen(), nil
}
