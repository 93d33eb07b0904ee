package sink

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"archops-sim/internal/config"
	"archops-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// stateMsg carries a per-tick state update.
type stateMsg struct{ telemetry.StateRow }

// runMsg carries the final run record.
type runMsg struct{ telemetry.RunRow }

// adminMsg reports admin UI status.
type adminMsg struct{ active bool }

type setCommandMsg struct{ fn CommandHandler }

const (
	maxLogLines  = 1000
	trendSamples = 30
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// TUIWriter renders the run using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
// Quitting the TUI interrupts the process unless Close was called first.
func NewTUIWriter(cfg *config.SimulationConfig) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WriteState implements StateWriter.
func (w *TUIWriter) WriteState(row telemetry.StateRow) error {
	w.program.Send(stateMsg{row})
	return nil
}

// WriteEvent implements EventWriter.
func (w *TUIWriter) WriteEvent(row telemetry.EventRow) error {
	w.program.Send(logMsg{line: formatEvent(row)})
	return nil
}

// WriteRun implements RunWriter.
func (w *TUIWriter) WriteRun(row telemetry.RunRow) error {
	w.program.Send(runMsg{row})
	return nil
}

// SetAdminStatus updates the admin indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// SetCommandHandler installs the handler behind the ":" prompt.
func (w *TUIWriter) SetCommandHandler(h CommandHandler) {
	w.program.Send(setCommandMsg{fn: h})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg        *config.SimulationConfig
	table      table.Model
	vp         viewport.Model
	input      textinput.Model
	logs       []string
	state      telemetry.StateRow
	result     *telemetry.RunRow
	ratings    []float64
	handler    CommandHandler
	admin      bool
	wrap       bool
	autoscroll bool
	prompt     bool
	summary    bool
	help       bool
	height     int
}

func newTUIModel(cfg *config.SimulationConfig) tuiModel {
	if cfg == nil {
		cfg = config.Default()
	}
	cols := []table.Column{
		{Title: "Config", Width: 16},
		{Title: "Value", Width: 18},
		{Title: "Config", Width: 16},
		{Title: "Value", Width: 18},
	}
	rows := []table.Row{
		{"Seed", fmt.Sprintf("%d", cfg.Seed), "Preset", string(cfg.PresetValue())},
		{"Tick", cfg.TickInterval.String(), "Scenario", orNone(cfg.Scenario)},
		{"Booster", fmt.Sprintf("%t", cfg.Unlocks.Booster), "Shield", fmt.Sprintf("%t", cfg.Unlocks.Shield)},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	return tuiModel{
		cfg:        cfg,
		table:      t,
		vp:         viewport.New(0, 0),
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.prompt {
			return m.updatePrompt(msg)
		}
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case ":":
			m.input = textinput.New()
			m.input.Placeholder = "fix 3 | buy hire | link 1 4 | refactor 7 MOVE_MAPPING"
			m.input.Focus()
			m.prompt = true
			m.updateViewportHeight()
			return m, nil
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		case "t":
			m.summary = !m.summary
			m.updateViewportHeight()
			return m, nil
		case "h", "?":
			m.help = !m.help
			return m, nil
		}
		if !m.autoscroll {
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case stateMsg:
		m.state = msg.StateRow
		m.ratings = append(m.ratings, msg.Rating)
		if len(m.ratings) > trendSamples {
			m.ratings = m.ratings[len(m.ratings)-trendSamples:]
		}
	case runMsg:
		r := msg.RunRow
		m.result = &r
		m.updateViewportHeight()
	case adminMsg:
		m.admin = msg.active
	case setCommandMsg:
		m.handler = msg.fn
	}
	return m, nil
}

// updatePrompt handles keys while the command prompt is open. The handler
// runs in a command so it never blocks the render loop.
func (m tuiModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		line := strings.TrimSpace(m.input.Value())
		m.prompt = false
		m.updateViewportHeight()
		if line == "" {
			return m, nil
		}
		h := m.handler
		if h == nil {
			return m, func() tea.Msg { return logMsg{line: "> " + line + ": commands unavailable"} }
		}
		return m, func() tea.Msg { return logMsg{line: "> " + line + ": " + h(line)} }
	case tea.KeyEsc:
		m.prompt = false
		m.updateViewportHeight()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *tuiModel) updateViewportHeight() {
	used := lipgloss.Height(m.table.View()) + lipgloss.Height(m.renderBottom()) + 2
	if m.prompt {
		used++
	}
	h := m.height - used
	if h < 1 {
		h = 1
	}
	m.vp.Height = h
}

func (m *tuiModel) refreshViewport() {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			l = wordwrap.String(l, m.vp.Width)
		}
		lines = append(lines, l)
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{m.table.View(), divider, m.vp.View(), divider}
	if m.prompt {
		sections = append(sections, m.input.View())
	}
	sections = append(sections, m.renderBottom())
	return strings.Join(sections, "\n")
}

// sparkline renders values scaled into the 1..5 rating range.
func sparkline(values []float64) string {
	var b strings.Builder
	for _, v := range values {
		i := int((v - 1) / 4 * float64(len(sparkBlocks)-1))
		if i < 0 {
			i = 0
		}
		if i >= len(sparkBlocks) {
			i = len(sparkBlocks) - 1
		}
		b.WriteRune(sparkBlocks[i])
	}
	return b.String()
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderSummary() string {
	s := m.state
	line := fmt.Sprintf("%sSUMMARY%s %strend=%s%s %sfail=%.1f%%%s %ssec=%.0f%s %spriv=%.0f%s %sreg=%.0f%s",
		colorBlue, colorReset,
		ratingColor(s.Rating), sparkline(m.ratings), colorReset,
		colorRed, s.FailureRate*100, colorReset,
		colorCyan, s.Security, colorReset,
		colorMagenta, s.Privacy, colorReset,
		colorYellow, s.RegPressure, colorReset)
	if m.result != nil {
		line += fmt.Sprintf(" %sRESULT %s score=%d%s", colorMagenta, m.result.EndReason, m.result.FinalScore, colorReset)
	}
	return line
}

func (m tuiModel) renderBottom() string {
	line := fmt.Sprintf("%s | Admin UI %s | Wrap %s | Scroll %s | Summary %s | Help %s",
		formatState(m.state), indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll), indicator(m.summary), indicator(m.help))
	if m.summary || m.result != nil {
		return m.renderSummary() + "\n" + line
	}
	return line
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" :  enter a command",
		" w  toggle wrap",
		" s  toggle auto-scroll",
		" t  toggle summary footer",
		" h/? toggle this help view",
		"",
		"Commands:",
		" place KIND | upgrade ID | repair ID | delete ID",
		" link FROM TO | unlink FROM TO",
		" fix ID | defer ID | refactor ID ACTION [FROM->TO]",
		" buy refill|regen|hire|booster|shield",
		" incident KIND | pause | resume",
		"",
		"When auto-scroll is disabled the arrow keys and pgup/pgdown scroll the log.",
	}
	return strings.Join(lines, "\n")
}
