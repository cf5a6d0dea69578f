// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     login
// Description: Database credential prompt
// Author:      Mike Stoffels
// Created:     2026-01-20
// License:     MIT
// ============================================================================

// Package login asks for MariaDB credentials and produces a live
// connection, or nothing when the user cancels.
package login

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/msto63/englishquery/internal/mariadb"
	"github.com/msto63/englishquery/internal/tui"
	"github.com/msto63/englishquery/pkg/core/logging"
)

// State is the position of the prompt in its lifecycle
type State int

const (
	StateCollecting State = iota
	StateConnecting
	StateSuccess
	StateFailure
	StateClosed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateConnecting:
		return "connecting"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Credentials are the values the user can edit
type Credentials struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// CredentialsFrom takes the editable fields of a connection config
func CredentialsFrom(cfg mariadb.ConnectionConfig) Credentials {
	return Credentials{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Database: cfg.Database,
		User:     cfg.User,
		Password: cfg.Password,
	}
}

// Apply copies the credentials onto a base connection config
func (c Credentials) Apply(base mariadb.ConnectionConfig) mariadb.ConnectionConfig {
	base.Host = c.Host
	base.Port = c.Port
	base.Database = c.Database
	base.User = c.User
	base.Password = c.Password
	return base
}

// Connector opens a connection for the entered credentials
type Connector func(ctx context.Context, creds Credentials) (*mariadb.Connection, error)

// NewConnector connects with base settings plus the entered credentials
func NewConnector(base mariadb.ConnectionConfig, opts ...mariadb.Option) Connector {
	return func(ctx context.Context, creds Credentials) (*mariadb.Connection, error) {
		conn := mariadb.New(creds.Apply(base), opts...)
		if err := conn.Connect(ctx); err != nil {
			return nil, err
		}
		// The prompt may have quit while the attempt ran; nobody would
		// receive the connection.
		if err := ctx.Err(); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

const (
	fieldHost = iota
	fieldPort
	fieldDatabase
	fieldUser
	fieldPassword
	fieldCount
)

var fieldLabels = [fieldCount]string{"Host", "Port", "Database", "Username", "Password"}

// connectedMsg carries the result of a connection attempt
type connectedMsg struct {
	conn *mariadb.Connection
	err  error
}

// Model is the bubbletea model of the credential prompt
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	connect Connector
	logger  *logging.Logger

	inputs  []textinput.Model
	focus   int
	spinner spinner.Model
	state   State
	err     error
	conn    *mariadb.Connection
}

// New creates the prompt pre-filled with creds
func New(ctx context.Context, creds Credentials, connect Connector) Model {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 256
		ti.Width = 40
		inputs[i] = ti
	}
	inputs[fieldHost].SetValue(creds.Host)
	if creds.Port > 0 {
		inputs[fieldPort].SetValue(strconv.Itoa(creds.Port))
	}
	inputs[fieldPort].CharLimit = 5
	inputs[fieldDatabase].SetValue(creds.Database)
	inputs[fieldUser].SetValue(creds.User)
	inputs[fieldPassword].SetValue(creds.Password)
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldPassword].EchoCharacter = '*'

	// Start on the first empty field
	focus := 0
	for i := range inputs {
		if inputs[i].Value() == "" {
			focus = i
			break
		}
	}
	inputs[focus].Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = tui.StatusOKStyle

	return Model{
		ctx:     ctx,
		connect: connect,
		logger:  logging.New("login"),
		inputs:  inputs,
		focus:   focus,
		spinner: sp,
		state:   StateCollecting,
	}
}

// State returns the current state
func (m Model) State() State {
	return m.state
}

// Err returns the error shown to the user, if any
func (m Model) Err() error {
	return m.err
}

// Connection returns the live connection after success, otherwise nil
func (m Model) Connection() *mariadb.Connection {
	if m.state != StateSuccess {
		return nil
	}
	return m.conn
}

// Credentials returns the values currently entered. The port is zero when
// it does not parse.
func (m Model) Credentials() Credentials {
	port, _ := strconv.Atoi(strings.TrimSpace(m.inputs[fieldPort].Value()))
	return Credentials{
		Host:     strings.TrimSpace(m.inputs[fieldHost].Value()),
		Port:     port,
		Database: strings.TrimSpace(m.inputs[fieldDatabase].Value()),
		User:     strings.TrimSpace(m.inputs[fieldUser].Value()),
		Password: m.inputs[fieldPassword].Value(),
	}
}

// Init starts the cursor blink
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case connectedMsg:
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		if m.state != StateConnecting {
			// Cancelled while the attempt was running
			if msg.conn != nil {
				_ = msg.conn.Close()
			}
			return m, nil
		}
		if msg.err != nil {
			m.logger.Warn("Login failed", "error", msg.err)
			m.state = StateFailure
			m.err = msg.err
			return m, nil
		}
		m.logger.Info("Login succeeded", "target", msg.conn.Config().String())
		m.state = StateSuccess
		m.conn = msg.conn
		return m, tea.Quit

	case spinner.TickMsg:
		if m.state == StateConnecting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m.updateFocused(msg)
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		m.state = StateClosed
		return m, tea.Quit
	}

	if m.state == StateConnecting {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEnter:
		return m.submit()
	case tea.KeyTab, tea.KeyDown:
		m = m.moveFocus(1)
		return m, nil
	case tea.KeyShiftTab, tea.KeyUp:
		m = m.moveFocus(-1)
		return m, nil
	}

	// Editing after a failure returns to collecting
	if m.state == StateFailure {
		m.state = StateCollecting
	}
	return m.updateFocused(msg)
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) moveFocus(delta int) Model {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + fieldCount) % fieldCount
	m.inputs[m.focus].Focus()
	return m
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	port, err := strconv.Atoi(strings.TrimSpace(m.inputs[fieldPort].Value()))
	if err != nil || port < 1 || port > 65535 {
		m.state = StateFailure
		m.err = fmt.Errorf("port must be a number between 1 and 65535")
		return m, nil
	}

	m.state = StateConnecting
	m.err = nil
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	return m, tea.Batch(m.spinner.Tick, m.connectCmd(ctx, m.Credentials()))
}

func (m Model) connectCmd(ctx context.Context, creds Credentials) tea.Cmd {
	connect := m.connect
	return func() tea.Msg {
		conn, err := connect(ctx, creds)
		return connectedMsg{conn: conn, err: err}
	}
}

// View renders the prompt
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(tui.RenderTitle("MariaDB Login"))
	b.WriteString("\n")

	for i, in := range m.inputs {
		label := tui.LabelStyle.Render(fieldLabels[i])
		if i == m.focus {
			label = tui.FocusedLabelStyle.Render(fieldLabels[i])
		}
		b.WriteString(label + " " + in.View() + "\n")
	}
	b.WriteString("\n")

	switch m.state {
	case StateConnecting:
		b.WriteString(m.spinner.View() + " Connecting...")
	case StateSuccess:
		b.WriteString(tui.StatusOKStyle.Render("Connected to MariaDB successfully!"))
	case StateFailure:
		b.WriteString(tui.RenderError(m.err.Error()))
	default:
		b.WriteString(tui.RenderHelp(
			tui.RenderKeyHint("Enter", "connect"),
			tui.RenderKeyHint("Tab", "next field"),
			tui.RenderKeyHint("Esc", "cancel"),
		))
	}
	b.WriteString("\n")

	return tui.BoxStyle.Render(b.String())
}

// Run shows the prompt and returns the live connection, or nil when the
// user cancelled. Callers must abort dependent work on nil.
func Run(ctx context.Context, creds Credentials, connect Connector) (*mariadb.Connection, error) {
	p := tea.NewProgram(New(ctx, creds, connect), tea.WithContext(ctx))
	final, err := p.Run()
	m, _ := final.(Model)
	if err != nil {
		if conn := m.Connection(); conn != nil {
			_ = conn.Close()
		}
		return nil, fmt.Errorf("login prompt failed: %w", err)
	}
	return m.Connection(), nil
}
