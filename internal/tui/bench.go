package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

// Stats is what the dashboard reads from a running bench.
type Stats interface {
	Frames() int
	Values() map[string]float64
	Intervals() []float64
	Reset()
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type model struct {
	stats    Stats
	state    func() string
	title    string
	started  time.Time
	duration time.Duration
	now      time.Time

	frames    int
	values    map[string]float64
	intervals []float64
	fps       float64
	lastCount int
	lastAt    time.Time

	width  int
	height int
	done   bool
}

// NewBenchModel builds the dashboard. A zero duration runs until quit.
func NewBenchModel(title string, stats Stats, state func() string, duration time.Duration) tea.Model {
	now := time.Now()
	return model{
		stats:    stats,
		state:    state,
		title:    title,
		started:  now,
		duration: duration,
		now:      now,
		lastAt:   now,
		values:   map[string]float64{},
		width:    80,
		height:   24,
	}
}

func (m model) Init() tea.Cmd { return tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.done = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.lastCount = 0
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.sample(time.Time(msg))
		if m.duration > 0 && m.now.Sub(m.started) >= m.duration {
			m.done = true
			return m, tea.Quit
		}
		return m, tick()
	}
	return m, nil
}

func (m *model) sample(now time.Time) {
	m.now = now
	m.frames = m.stats.Frames()
	m.values = m.stats.Values()
	m.intervals = m.stats.Intervals()
	if dt := now.Sub(m.lastAt).Seconds(); dt > 0 {
		m.fps = float64(m.frames-m.lastCount) / dt
	}
	m.lastCount = m.frames
	m.lastAt = now
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("           " + cyan.Render("f l u x s a v e r") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n\n")

	state := "unknown"
	if m.state != nil {
		state = m.state()
	}
	stateStyle := yellow
	if state == "running" {
		stateStyle = green
	}
	b.WriteString(fmt.Sprintf("    %s %s   %s %s\n", dim.Render("bench"), white.Render(m.title), dim.Render("host"), stateStyle.Render(state)))

	elapsed := m.now.Sub(m.started).Truncate(100 * time.Millisecond)
	if m.duration > 0 {
		b.WriteString(fmt.Sprintf("    %s %v / %v\n\n", dim.Render("elapsed"), elapsed, m.duration))
	} else {
		b.WriteString(fmt.Sprintf("    %s %v\n\n", dim.Render("elapsed"), elapsed))
	}

	row := func(label, value string) {
		b.WriteString(fmt.Sprintf("    %s %s\n", dim.Render(fmt.Sprintf("%-12s", label)), value))
	}
	row("frames", white.Render(fmt.Sprintf("%d", m.frames)))
	row("fps", magenta.Render(fmt.Sprintf("%.1f", m.fps)))
	row("interval", white.Render(fmt.Sprintf("%.3f ms", m.values["frame_interval_ms"])))
	row("jitter", white.Render(fmt.Sprintf("%.3f ms", m.values["jitter_ms"])))
	row("dropped", warnIfNonZero(m.values["dropped_frames"]))
	row("failures", warnIfNonZero(m.values["step_failures"]))

	if len(m.intervals) > 1 {
		width := m.width - 20
		if width < 20 {
			width = 20
		}
		b.WriteString("\n    " + dim.Render("interval ") + cyan.Render(sparkline(m.intervals, width)) + "\n\n")
		graph := asciigraph.Plot(m.intervals,
			asciigraph.Height(6),
			asciigraph.Width(width),
			asciigraph.Precision(2),
			asciigraph.Caption("frame interval (ms)"),
		)
		b.WriteString(graph + "\n")
	}

	b.WriteString("\n" + dim.Render("    r reset  q quit") + "\n")
	return b.String()
}

func warnIfNonZero(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	if v > 0 {
		return yellow.Render(s)
	}
	return green.Render(s)
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := len(data) / width
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		idx := int((data[i*step] - minVal) / rang * 7)
		if idx > 7 {
			idx = 7
		}
		if idx < 0 {
			idx = 0
		}
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}

// RunBench shows the dashboard until the user quits or duration elapses.
func RunBench(title string, stats Stats, state func() string, duration time.Duration) error {
	p := tea.NewProgram(NewBenchModel(title, stats, state, duration), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
