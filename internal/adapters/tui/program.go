package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kirillkom/knowledge-assistant/internal/core/usecase"
)

// Run starts the interactive program and blocks until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, shell *usecase.Shell, files FileSelector, backend Pinger, prompter *Prompter) error {
	program, detach := newProgram(ctx, shell, files, backend, prompter, tea.WithAltScreen())
	defer detach()

	_, err := program.Run()
	return err
}

// newProgram wires shell change notifications and the confirmation prompter
// to a program. Notifications are coalesced and forwarded from their own
// goroutine: the shell fires them from whatever goroutine changed state,
// including commands the program itself is waiting on.
func newProgram(
	ctx context.Context,
	shell *usecase.Shell,
	files FileSelector,
	backend Pinger,
	prompter *Prompter,
	options ...tea.ProgramOption,
) (*tea.Program, func()) {
	model := New(ctx, shell, files)
	if backend != nil {
		model = model.WithBackend(backend)
	}
	program := tea.NewProgram(model, append(options, tea.WithContext(ctx))...)
	prompter.Bind(program.Send)

	pending := make(chan struct{}, 1)
	stop := make(chan struct{})
	shell.OnChange(func() {
		select {
		case pending <- struct{}{}:
		default:
		}
	})
	go func() {
		for {
			select {
			case <-pending:
				program.Send(RefreshMsg{})
			case <-stop:
				return
			}
		}
	}()

	detach := func() {
		shell.OnChange(nil)
		prompter.Bind(nil)
		close(stop)
	}
	return program, detach
}
