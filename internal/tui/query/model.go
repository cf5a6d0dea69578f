// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     query
// Description: Main query screen: question input, result grid, voice input
// Author:      Mike Stoffels
// Created:     2026-01-20
// License:     MIT
// ============================================================================

package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/msto63/englishquery/internal/orchestrator"
	"github.com/msto63/englishquery/internal/speech"
	"github.com/msto63/englishquery/internal/tui"
	"github.com/msto63/englishquery/pkg/core/logging"
)

// Voice is the part of the speech listener the screen drives
type Voice interface {
	Start() bool
	Stop()
	IsListening() bool
	Shutdown()
	SetTranscriptionCallback(fn func(text string))
	SetLogCallback(fn func(message string))
	SetStopCallback(fn func())
}

// pixelsPerCell converts grid widths to terminal columns
const pixelsPerCell = 8

// Model is the bubbletea model of the query screen
type Model struct {
	ctx     context.Context
	session *orchestrator.Session
	voice   Voice
	events  chan voiceMsg
	logger  *logging.Logger
	title   string

	textarea textarea.Model
	table    table.Model
	spinner  spinner.Model

	width     int
	height    int
	busy      bool
	listening bool
	showGrid  bool
	status    string
	statusErr bool
	lastSQL   string
}

// New creates the query screen. voice may be nil when no microphone or
// transcription service is configured.
func New(ctx context.Context, session *orchestrator.Session, voice Voice, title string) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask a question about your data, e.g. show all countries"
	ta.Focus()
	ta.CharLimit = 4000
	ta.SetWidth(80)
	ta.SetHeight(4)
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = tui.FocusedInputStyle
	ta.BlurredStyle.Base = tui.InputStyle

	tbl := table.New(table.WithFocused(true), table.WithHeight(10), table.WithWidth(80))
	styles := table.DefaultStyles()
	styles.Header = tui.TableHeaderStyle
	styles.Selected = tui.TableSelectedStyle
	tbl.SetStyles(styles)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = tui.StatusOKStyle

	m := Model{
		ctx:      ctx,
		session:  session,
		voice:    voice,
		logger:   logging.New("query-ui"),
		title:    title,
		textarea: ta,
		table:    tbl,
		spinner:  sp,
		status:   "Ready",
	}

	if voice != nil {
		m.events = make(chan voiceMsg, 16)
		events := m.events
		send := func(msg voiceMsg) {
			select {
			case events <- msg:
			default:
			}
		}
		voice.SetTranscriptionCallback(func(text string) { send(voiceMsg{kind: voiceText, text: text}) })
		voice.SetLogCallback(func(line string) { send(voiceMsg{kind: voiceLog, text: line}) })
		voice.SetStopCallback(func() { send(voiceMsg{kind: voiceStopped}) })
	}
	return m
}

// Init starts the cursor blink and the voice event pump
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForVoice())
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textarea.SetWidth(msg.Width - 4)
		m.table.SetWidth(msg.Width - 4)
		m.table.SetHeight(max(msg.Height-14, 3))
		return m, nil

	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case submitDoneMsg:
		m.busy = false
		m = m.applySubmission(msg)
		return m, nil

	case voiceMsg:
		m = m.applyVoice(msg)
		return m, m.waitForVoice()

	case voiceToggledMsg:
		// A session that fails at once may deliver its stop event before
		// this reply, so the listener itself decides.
		m.listening = msg.listening && m.voice != nil && m.voice.IsListening()
		if m.listening {
			m.setStatus("Listening...", false)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		if m.voice != nil {
			m.voice.Shutdown()
		}
		return m, tea.Quit

	case "ctrl+s", "ctrl+enter", "alt+enter":
		return m.submit()

	case "ctrl+l":
		m.textarea.Reset()
		m.session.Clear()
		m.showGrid = false
		m.lastSQL = ""
		m.setStatus("Cleared", false)
		return m, nil

	case "ctrl+r":
		return m, m.toggleVoice()

	case "pgup", "pgdown", "ctrl+up", "ctrl+down":
		if m.showGrid {
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(tableKey(msg))
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// tableKey maps ctrl+arrows to plain arrows so row navigation does not
// fight the text area for the same keys.
func tableKey(msg tea.KeyMsg) tea.KeyMsg {
	switch msg.String() {
	case "ctrl+up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "ctrl+down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return msg
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy {
		m.setStatus("A query is already running", true)
		return m, nil
	}
	text := m.textarea.Value()
	if strings.TrimSpace(text) == "" {
		m.setStatus("Nothing to submit", true)
		return m, nil
	}

	m.busy = true
	m.setStatus(fmt.Sprintf("Submitted (%d chars)", len(text)), false)

	ctx, session := m.ctx, m.session
	run := func() tea.Msg {
		sub, err := session.Submit(ctx, text)
		return submitDoneMsg{submission: sub, err: err}
	}
	return m, tea.Batch(m.spinner.Tick, run)
}

func (m Model) applySubmission(msg submitDoneMsg) Model {
	if msg.submission != nil {
		m.lastSQL = msg.submission.SQL
	}
	if msg.err != nil {
		m.logger.Warn("Query failed", "error", msg.err)
		m.setStatus(msg.err.Error(), true)
		return m
	}

	sub := msg.submission
	if !sub.Rendered {
		m.setStatus(fmt.Sprintf("No rows (%s)", sub.Elapsed.Round(time.Millisecond)), false)
		return m
	}

	grid, visible := m.session.Grid()
	m.table = fillTable(m.table, grid)
	m.showGrid = visible
	m.setStatus(fmt.Sprintf("%d rows (%s)", len(grid.Rows), sub.Elapsed.Round(time.Millisecond)), false)
	return m
}

// fillTable replaces columns and rows. Rows are cleared first so the
// table never sees rows wider than its columns.
func fillTable(t table.Model, grid orchestrator.Grid) table.Model {
	cols := make([]table.Column, len(grid.Columns))
	for i, c := range grid.Columns {
		cols[i] = table.Column{Title: c.Title, Width: max(c.Width/pixelsPerCell, len(c.Title))}
	}
	rows := make([]table.Row, len(grid.Rows))
	for i, r := range grid.Rows {
		rows[i] = table.Row(r)
	}
	t.SetRows(nil)
	t.SetColumns(cols)
	t.SetRows(rows)
	t.GotoTop()
	return t
}

func (m Model) toggleVoice() tea.Cmd {
	if m.voice == nil {
		return func() tea.Msg {
			return voiceMsg{kind: voiceLog, text: "Voice input is not available"}
		}
	}
	voice := m.voice
	return func() tea.Msg {
		if voice.IsListening() {
			voice.Stop()
			return voiceToggledMsg{listening: false}
		}
		return voiceToggledMsg{listening: voice.Start()}
	}
}

func (m Model) waitForVoice() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg {
		return <-events
	}
}

func (m Model) applyVoice(msg voiceMsg) Model {
	switch msg.kind {
	case voiceText:
		current := strings.TrimRight(m.textarea.Value(), " \n")
		if current != "" {
			current += " "
		}
		m.textarea.SetValue(current + msg.text)
		m.setStatus("Transcribed: "+msg.text, false)
	case voiceLog:
		m.setStatus(msg.text, strings.HasPrefix(msg.text, "Speech Error") || strings.HasPrefix(msg.text, "Microphone Error"))
	case voiceStopped:
		m.listening = false
	}
	return m
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// Status returns the status line text
func (m Model) Status() string {
	return m.status
}

// View renders the screen
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(tui.RenderTitle(m.title))
	b.WriteString("\n")

	if m.showGrid {
		b.WriteString(m.table.View())
		b.WriteString("\n")
		if m.lastSQL != "" {
			b.WriteString(tui.SQLStyle.Render(m.lastSQL))
			b.WriteString("\n")
		}
	}

	b.WriteString(tui.SubtitleStyle.Render("Plain English Query:"))
	b.WriteString("\n")
	b.WriteString(m.textarea.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(tui.RenderHelp(
		tui.RenderKeyHint("Ctrl+S", "submit"),
		tui.RenderKeyHint("Ctrl+L", "clear"),
		tui.RenderKeyHint("Ctrl+R", "voice"),
		tui.RenderKeyHint("Ctrl+↑/↓", "rows"),
		tui.RenderKeyHint("Esc", "quit"),
	))
	return b.String()
}

func (m Model) renderStatusBar() string {
	var left string
	switch {
	case m.busy:
		left = m.spinner.View() + " " + m.status
	case m.statusErr:
		left = tui.StatusErrorStyle.Render(m.status)
	default:
		left = m.status
	}

	right := ""
	if m.listening {
		right = tui.ListeningStyle.Render(speech.StateListening.Icon() + " " + speech.StateListening.String())
	}

	width := max(m.width-2, lipgloss.Width(left)+lipgloss.Width(right)+2)
	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	return tui.StatusBarStyle.Width(width).Render(left + strings.Repeat(" ", max(gap, 1)) + right)
}

// Run shows the query screen until the user quits
func Run(ctx context.Context, session *orchestrator.Session, voice Voice, title string) error {
	p := tea.NewProgram(New(ctx, session, voice, title), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
