package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// confirmRequestMsg asks the model to show a yes/no prompt. The answer goes
// back on reply exactly once.
type confirmRequestMsg struct {
	prompt string
	reply  chan<- bool
}

// Prompter is the terminal confirmation gate. Confirm blocks the calling
// command until the user answers y or n in the program.
type Prompter struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

func NewPrompter() *Prompter {
	return &Prompter{}
}

// Bind attaches the running program. Until then every prompt is declined.
func (p *Prompter) Bind(send func(tea.Msg)) {
	p.mu.Lock()
	p.send = send
	p.mu.Unlock()
}

func (p *Prompter) Confirm(ctx context.Context, prompt string) bool {
	p.mu.RLock()
	send := p.send
	p.mu.RUnlock()
	if send == nil {
		return false
	}

	reply := make(chan bool, 1)
	send(confirmRequestMsg{prompt: prompt, reply: reply})
	select {
	case answer := <-reply:
		return answer
	case <-ctx.Done():
		return false
	}
}
