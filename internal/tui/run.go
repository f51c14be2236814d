package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/idilsaglam/tada/internal/state"
)

// Run starts the interactive list on the alternate screen and blocks until
// the user quits or ctx is cancelled. The caller owns store and closes it.
func Run(ctx context.Context, store *state.Store, log logrus.FieldLogger) error {
	p := tea.NewProgram(New(ctx, store, log), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
