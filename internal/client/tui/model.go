// Package tui is the terminal editor: a login form, then a text area bound to
// a sync session with the save status underneath.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/collabedit/docsync/internal/client/docapi"
	"github.com/collabedit/docsync/internal/client/syncclient"
	"github.com/collabedit/docsync/internal/client/syncstatus"
)

const flushTimeout = 5 * time.Second

// Session is the part of *syncclient.Client the editor drives.
type Session interface {
	Start(ctx context.Context) error
	Edit(content string)
	Flush(ctx context.Context) error
	Close()
	Snapshot() syncclient.Snapshot
}

// SessionFactory builds a session whose callbacks are delivered to the UI.
type SessionFactory func(onContent func(string), onStatus func(syncstatus.Transition)) Session

type LoginFunc func(ctx context.Context, username, password string) (string, error)

type Options struct {
	Context    context.Context
	Login      LoginFunc
	NewSession SessionFactory
	Username   string
	Server     string
}

type phase int

const (
	phaseLogin phase = iota
	phaseEditor
)

type (
	loginResultMsg struct {
		user string
		err  error
	}
	remoteContentMsg string
	statusMsg        syncstatus.Transition
	flushedMsg       struct{ err error }
)

// program lets session callbacks reach the running tea.Program. It is a
// pointer so copies of Model share it.
type program struct {
	send func(tea.Msg)
}

type Model struct {
	ctx        context.Context
	login      LoginFunc
	newSession SessionFactory
	server     string
	prog       *program

	phase    phase
	width    int
	height   int
	inputs   [2]textinput.Model
	focus    int
	busy     bool
	loginErr string

	user     string
	session  Session
	editor   textarea.Model
	status   syncstatus.State
	quitting bool
}

func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	username := textinput.New()
	username.Placeholder = "username"
	username.Prompt = labelStyle.Render("User")
	username.SetValue(opts.Username)

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = labelStyle.Render("Password")
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	m := Model{
		ctx:        ctx,
		login:      opts.Login,
		newSession: opts.NewSession,
		server:     opts.Server,
		prog:       &program{},
		inputs:     [2]textinput.Model{username, password},
		status:     syncstatus.Synced,
	}
	if opts.Username != "" {
		m.focus = 1
	}
	m.inputs[m.focus].Focus()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.phase == phaseEditor {
			m.resizeEditor()
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m.quit()
		}
		if m.phase == phaseLogin {
			return m.updateLogin(msg)
		}
		return m.updateEditor(msg)

	case loginResultMsg:
		m.busy = false
		if msg.err != nil {
			m.loginErr = loginMessage(msg.err)
			m.inputs[1].SetValue("")
			return m, nil
		}
		return m.openEditor(msg.user)

	case remoteContentMsg:
		if m.phase == phaseEditor && m.acceptsRemote(string(msg)) {
			m.editor.SetValue(string(msg))
		}
		return m, nil

	case statusMsg:
		m.status = msg.To
		return m, nil

	case flushedMsg:
		if m.quitting {
			if m.session != nil {
				m.session.Close()
			}
			return m, tea.Quit
		}
		return m, nil
	}

	if m.phase == phaseEditor {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		m.inputs[m.focus].Blur()
		m.focus = (m.focus + 1) % len(m.inputs)
		cmd := m.inputs[m.focus].Focus()
		return m, cmd
	case tea.KeyEnter:
		if m.focus == 0 {
			m.inputs[0].Blur()
			m.focus = 1
			cmd := m.inputs[1].Focus()
			return m, cmd
		}
		username := strings.TrimSpace(m.inputs[0].Value())
		password := m.inputs[1].Value()
		if username == "" || password == "" {
			m.loginErr = "Enter a username and password"
			return m, nil
		}
		m.busy = true
		m.loginErr = ""
		return m, m.loginCmd(username, password)
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) loginCmd(username, password string) tea.Cmd {
	login, ctx := m.login, m.ctx
	return func() tea.Msg {
		user, err := login(ctx, username, password)
		return loginResultMsg{user: user, err: err}
	}
}

func loginMessage(err error) string {
	switch {
	case errors.Is(err, docapi.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, docapi.ErrNetworkFailure):
		return "Cannot reach server"
	default:
		return fmt.Sprintf("Login failed: %v", err)
	}
}

func (m Model) openEditor(user string) (tea.Model, tea.Cmd) {
	m.user = user
	m.phase = phaseEditor
	m.editor = textarea.New()
	m.editor.Placeholder = "Start typing..."
	m.editor.ShowLineNumbers = false
	m.editor.CharLimit = 0
	m.resizeEditor()

	prog := m.prog
	send := func(msg tea.Msg) {
		if prog.send != nil {
			prog.send(msg)
		}
	}
	m.session = m.newSession(
		func(content string) { send(remoteContentMsg(content)) },
		func(t syncstatus.Transition) { send(statusMsg(t)) },
	)
	if err := m.session.Start(m.ctx); err != nil {
		m.loginErr = err.Error()
		m.phase = phaseLogin
		return m, nil
	}
	cmd := m.editor.Focus()
	return m, cmd
}

// acceptsRemote reports whether queued remote content still matches the
// session. A keystroke handled after the poll makes it stale.
func (m Model) acceptsRemote(content string) bool {
	if m.session == nil {
		return false
	}
	snap := m.session.Snapshot()
	return !snap.SuppressIncoming && snap.Content == content
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m.quit()
	case tea.KeyCtrlS:
		return m, m.flushCmd()
	}

	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if after := m.editor.Value(); after != before {
		m.session.Edit(after)
	}
	return m, cmd
}

func (m Model) flushCmd() tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, flushTimeout)
		defer cancel()
		return flushedMsg{err: session.Flush(ctx)}
	}
}

// quit saves pending edits before leaving the editor.
func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.session == nil || m.quitting {
		return m, tea.Quit
	}
	m.quitting = true
	return m, m.flushCmd()
}

func (m *Model) resizeEditor() {
	w, h := m.width-4, m.height-6
	if w < 20 {
		w = 20
	}
	if h < 3 {
		h = 3
	}
	m.editor.SetWidth(w)
	m.editor.SetHeight(h)
}

func (m Model) View() string {
	if m.phase == phaseLogin {
		return m.loginView()
	}
	return m.editorView()
}

func (m Model) loginView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("docsync"))
	if m.server != "" {
		b.WriteString(mutedStyle.Render("  " + m.server))
	}
	b.WriteString("\n\n")
	for _, in := range m.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	switch {
	case m.busy:
		b.WriteString(mutedStyle.Render("Checking credentials..."))
	case m.loginErr != "":
		b.WriteString(errorStyle.Render(m.loginErr))
	default:
		b.WriteString(mutedStyle.Render("enter: next/submit  tab: switch  esc: quit"))
	}
	return boxStyle.Render(b.String())
}

func (m Model) editorView() string {
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("docsync"),
		mutedStyle.Render("  "+m.user),
	)
	footer := lipgloss.JoinHorizontal(lipgloss.Top,
		statusStyle(m.status).Render(m.status.Label()),
		mutedStyle.Render("   ctrl+s: save now  esc: quit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, header, m.editor.View(), footer)
}

// Run starts the program and blocks until the user quits.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	m.prog.send = p.Send
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
