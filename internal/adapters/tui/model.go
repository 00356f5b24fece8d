package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
	"github.com/kirillkom/knowledge-assistant/internal/core/ports"
	"github.com/kirillkom/knowledge-assistant/internal/core/usecase"
)

// Shell is the TUI-facing subset of the session shell.
type Shell interface {
	ports.SessionService
	Workspace() (*usecase.Workspace, error)
}

// Pinger reports whether the processing backend answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FileSelector inspects a local path picked for upload.
type FileSelector interface {
	Select(ctx context.Context, path string) (*domain.SelectedFile, error)
}

const pingTimeout = 3 * time.Second

type focusArea int

const (
	focusDocuments focusArea = iota
	focusUpload
	focusChat
)

// RefreshMsg tells the model that shell state changed outside of Update.
type RefreshMsg struct{}

type backendMsg struct{ up bool }

// statusMsg carries the result line of a finished background command.
type statusMsg struct {
	text  string
	isErr bool
}

type action int

const (
	actionUpload action = iota
	actionSummary
	actionAsk
	actionDelete
	actionCount
)

// actionDoneMsg ends a dashboard command started by Update.
type actionDoneMsg struct {
	action action
	status statusMsg
}

// Model is the Bubble Tea model for the assistant.
type Model struct {
	ctx     context.Context
	shell   Shell
	files   FileSelector
	backend Pinger

	email    textinput.Model
	password textinput.Model
	path     textinput.Model
	question textinput.Model

	focus   focusArea
	cursor  int
	status  statusMsg
	confirm *confirmRequestMsg
	authing bool
	// running marks dashboard commands dispatched but not yet finished.
	// Orchestrator guards are only taken once the command runs.
	running [actionCount]bool
	// backendUp is nil until the first ping returns.
	backendUp *bool
}

// New creates the model. ctx bounds every background command it starts.
func New(ctx context.Context, shell Shell, files FileSelector) Model {
	email := textinput.New()
	email.Prompt = "Email:    "
	email.Placeholder = "you@example.com"
	email.Focus()

	password := textinput.New()
	password.Prompt = "Password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'

	path := textinput.New()
	path.Prompt = "PDF> "
	path.Placeholder = "path to a .pdf file, enter to upload"

	question := textinput.New()
	question.Prompt = "Ask> "
	question.Placeholder = "question about your documents"

	return Model{
		ctx:      ctx,
		shell:    shell,
		files:    files,
		email:    email,
		password: password,
		path:     path,
		question: question,
	}
}

// WithBackend enables the backend health line in the dashboard header.
func (m Model) WithBackend(backend Pinger) Model {
	m.backend = backend
	return m
}

func (m Model) Init() tea.Cmd {
	if m.backend == nil {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, m.ping())
}

func (m Model) ping() tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return backendMsg{up: backend.Ping(ctx) == nil}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case backendMsg:
		m.backendUp = &msg.up
		return m, nil
	case RefreshMsg:
		m.clampCursor()
		return m, nil
	case statusMsg:
		m.status = msg
		m.authing = false
		m.clampCursor()
		return m, nil
	case actionDoneMsg:
		m.running[msg.action] = false
		m.status = msg.status
		m.clampCursor()
		return m, nil
	case confirmRequestMsg:
		if m.confirm != nil {
			msg.reply <- false
			return m, nil
		}
		m.confirm = &msg
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.answerConfirm(false)
			return m, tea.Quit
		}
		if m.confirm != nil {
			return m.updateConfirm(msg)
		}
		state, _ := m.shell.State()
		switch state {
		case domain.AuthAnonymous:
			return m.updateLogin(msg)
		case domain.AuthAuthenticated:
			return m.updateDashboard(msg)
		default:
			return m, nil
		}
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "y":
		m.answerConfirm(true)
	case "n", "esc":
		m.answerConfirm(false)
	}
	return m, nil
}

func (m *Model) answerConfirm(answer bool) {
	if m.confirm == nil {
		return
	}
	m.confirm.reply <- answer
	m.confirm = nil
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		if m.email.Focused() {
			m.email.Blur()
			m.password.Focus()
		} else {
			m.password.Blur()
			m.email.Focus()
		}
		return m, nil
	case "enter":
		return m.authenticate(m.shell.SignIn)
	case "ctrl+n":
		return m.authenticate(m.shell.SignUp)
	}

	var cmd tea.Cmd
	if m.email.Focused() {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m Model) authenticate(action func(ctx context.Context, email, password string) error) (tea.Model, tea.Cmd) {
	if m.authing {
		return m, nil
	}
	m.authing = true
	m.status = statusMsg{}
	ctx := m.ctx
	email, password := m.email.Value(), m.password.Value()
	m.password.SetValue("")
	return m, func() tea.Msg {
		if err := action(ctx, email, password); err != nil {
			return statusMsg{text: err.Error(), isErr: true}
		}
		return statusMsg{}
	}
}

func (m Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ws, err := m.shell.Workspace()
	if err != nil {
		return m, nil
	}

	switch msg.String() {
	case "ctrl+o":
		ctx := m.ctx
		shell := m.shell
		return m, func() tea.Msg {
			if err := shell.SignOut(ctx); err != nil {
				return statusMsg{text: err.Error(), isErr: true}
			}
			return statusMsg{}
		}
	case "tab":
		m.setFocus((m.focus + 1) % 3)
		return m, nil
	case "shift+tab":
		m.setFocus((m.focus + 2) % 3)
		return m, nil
	}

	switch m.focus {
	case focusDocuments:
		return m.updateDocuments(ws, msg)
	case focusUpload:
		if msg.Type == tea.KeyEnter {
			return m.upload(ws)
		}
		var cmd tea.Cmd
		m.path, cmd = m.path.Update(msg)
		return m, cmd
	default:
		if msg.Type == tea.KeyEnter {
			return m.ask(ws)
		}
		var cmd tea.Cmd
		m.question, cmd = m.question.Update(msg)
		return m, cmd
	}
}

func (m *Model) setFocus(focus focusArea) {
	m.focus = focus
	m.path.Blur()
	m.question.Blur()
	switch focus {
	case focusUpload:
		m.path.Focus()
	case focusChat:
		m.question.Focus()
	}
}

func (m Model) updateDocuments(ws *usecase.Workspace, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	docs := ws.Registry.Snapshot()
	if m.cursor >= len(docs) {
		m.cursor = max(0, len(docs)-1)
	}
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(docs)-1 {
			m.cursor++
		}
	case "s":
		if len(docs) == 0 {
			return m, nil
		}
		if m.running[actionSummary] || ws.Summaries.Busy() {
			m.status = statusMsg{text: domain.SummaryBusyMessage, isErr: true}
			return m, nil
		}
		m.running[actionSummary] = true
		doc := docs[m.cursor]
		ctx := m.ctx
		return m, func() tea.Msg {
			ws.Summaries.Summarize(ctx, doc.Filename)
			return actionDoneMsg{action: actionSummary}
		}
	case "d":
		if len(docs) == 0 || m.running[actionDelete] {
			return m, nil
		}
		m.running[actionDelete] = true
		doc := docs[m.cursor]
		ctx := m.ctx
		return m, func() tea.Msg {
			done := actionDoneMsg{action: actionDelete}
			// Store failures are logged by the orchestrator and stay silent here.
			if outcome := ws.Deletions.Delete(ctx, doc.ID, doc.Filename); outcome.Deleted {
				done.status = statusMsg{text: "Deleted " + doc.Filename + "."}
			}
			return done
		}
	}
	return m, nil
}

// upload never touches the orchestrator itself: its change hook feeds back
// into the program and must not run on the event loop.
func (m Model) upload(ws *usecase.Workspace) (tea.Model, tea.Cmd) {
	if m.running[actionUpload] || ws.Uploads.Busy() {
		m.status = statusMsg{text: domain.UploadBusyMessage, isErr: true}
		return m, nil
	}
	m.running[actionUpload] = true
	m.status = statusMsg{}
	path := strings.TrimSpace(m.path.Value())
	m.path.SetValue("")

	ctx, files := m.ctx, m.files
	return m, func() tea.Msg {
		done := actionDoneMsg{action: actionUpload}
		if path == "" {
			ws.Uploads.Upload(ctx, nil)
			return done
		}
		file, err := files.Select(ctx, path)
		if err != nil {
			done.status = statusMsg{text: err.Error(), isErr: true}
			return done
		}
		ws.Uploads.Select(file)
		ws.Uploads.Upload(ctx, file)
		return done
	}
}

func (m Model) ask(ws *usecase.Workspace) (tea.Model, tea.Cmd) {
	question := m.question.Value()
	if strings.TrimSpace(question) == "" {
		return m, nil
	}
	if m.running[actionAsk] || ws.Chat.Busy() {
		m.status = statusMsg{text: "Waiting for the previous answer.", isErr: true}
		return m, nil
	}
	m.running[actionAsk] = true
	m.question.SetValue("")
	ctx := m.ctx
	return m, func() tea.Msg {
		done := actionDoneMsg{action: actionAsk}
		if err := ws.Chat.Ask(ctx, question); err != nil {
			done.status = statusMsg{text: err.Error(), isErr: true}
		}
		return done
	}
}

func (m *Model) clampCursor() {
	ws, err := m.shell.Workspace()
	if err != nil {
		m.cursor = 0
		return
	}
	if n := ws.Registry.Count(); m.cursor >= n {
		m.cursor = max(0, n-1)
	}
}

func (m Model) View() string {
	state, session := m.shell.State()
	switch state {
	case domain.AuthAnonymous:
		return m.viewLogin()
	case domain.AuthAuthenticated:
		ws, err := m.shell.Workspace()
		if err != nil || session == nil {
			return "Loading..."
		}
		return m.viewDashboard(ws, *session)
	default:
		return "Loading..."
	}
}

func (m Model) viewLogin() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Knowledge Assistant"))
	b.WriteString("\n\n")
	b.WriteString(m.email.View())
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render("enter: sign in  ctrl+n: sign up  tab: switch field  ctrl+c: quit"))
	if line := m.renderStatus(); line != "" {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

func (m Model) viewDashboard(ws *usecase.Workspace, session domain.Session) string {
	header := titleStyle.Render("Knowledge Assistant") + "  " + mutedStyle.Render(session.Email)
	if m.backendUp != nil {
		if *m.backendUp {
			header += "  " + successStyle.Render("backend up")
		} else {
			header += "  " + errorStyle.Render("backend down")
		}
	}

	var docs strings.Builder
	docs.WriteString(titleStyle.Render("Documents"))
	records := ws.Registry.Snapshot()
	if len(records) == 0 {
		docs.WriteString("\n" + mutedStyle.Render("No documents yet."))
	}
	for i, record := range records {
		name := "  " + record.Filename
		if i == m.cursor && m.focus == focusDocuments {
			name = selectedStyle.Render("> " + record.Filename)
		}
		docs.WriteString("\n" + name + "  " + mutedStyle.Render(formatUploaded(record)))
	}
	if summary, ok := ws.Summaries.Last(); ok && summary.Notice.Text != "" {
		docs.WriteString("\n\n" + renderNotice(summary.Notice))
	}

	upload := m.path.View()
	if notice := ws.Uploads.Notice(); !notice.IsZero() {
		upload += "\n" + renderNotice(notice)
	}

	var chat strings.Builder
	chat.WriteString(titleStyle.Render("Chat") + "  " + mutedStyle.Render(ws.Chat.Availability()))
	for _, message := range ws.Chat.Transcript() {
		chat.WriteString(fmt.Sprintf("\n%s: %s", message.Role, message.Content))
	}
	if sources := ws.Chat.LastSources(); len(sources) > 0 {
		chat.WriteString("\n" + mutedStyle.Render("sources: "+strings.Join(sources, ", ")))
	}
	if m.running[actionAsk] || ws.Chat.Busy() {
		chat.WriteString("\n" + mutedStyle.Render("thinking..."))
	}
	chat.WriteString("\n" + m.question.View())

	body := lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.panel(focusDocuments, docs.String()),
		m.panel(focusUpload, upload),
		m.panel(focusChat, chat.String()),
		mutedStyle.Render("tab: switch panel  s: summarize  d: delete  ctrl+o: sign out  ctrl+c: quit"),
	)
	if m.confirm != nil {
		body += "\n" + promptStyle.Render(m.confirm.prompt+" [y/n]")
	}
	if line := m.renderStatus(); line != "" {
		body += "\n" + line
	}
	return body
}

func (m Model) panel(area focusArea, content string) string {
	if m.focus == area {
		return focusedPanel.Render(content)
	}
	return panelStyle.Render(content)
}

func (m Model) renderStatus() string {
	if m.status.text == "" {
		return ""
	}
	if m.status.isErr {
		return errorStyle.Render(m.status.text)
	}
	return successStyle.Render(m.status.text)
}

func renderNotice(notice domain.Notice) string {
	switch notice.Kind {
	case domain.NoticeError:
		return errorStyle.Render(notice.Text)
	case domain.NoticeSuccess:
		return successStyle.Render(notice.Text)
	default:
		return mutedStyle.Render(notice.Text)
	}
}

func formatUploaded(record domain.DocumentRecord) string {
	if record.UploadedAt.IsZero() {
		return "pending"
	}
	return record.UploadedAt.Local().Format("2006-01-02 15:04")
}
