// Package watch renders a live operator console for a running bridge by
// subscribing to its telemetry websocket.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
	"github.com/muesli/reflow/wordwrap"

	"teleop-bridge/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// snapshotMsg carries a decoded telemetry snapshot.
type snapshotMsg struct{ telemetry.Snapshot }

// linkLostMsg reports that the websocket subscription ended.
type linkLostMsg struct{ err error }

const maxLogLines = 500

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	sepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type model struct {
	vp         viewport.Model
	logs       []string
	last       telemetry.Snapshot
	haveSnap   bool
	lost       bool
	lostErr    error
	wrap       bool
	autoscroll bool
	width      int
	height     int
}

func newModel() model {
	return model{vp: viewport.New(0, 0), autoscroll: true}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = msg.Width
		m.vp.Height = msg.Height - lipgloss.Height(m.renderHeader()) - 3
		if m.vp.Height < 1 {
			m.vp.Height = 1
		}
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "a":
			m.autoscroll = !m.autoscroll
		case "up", "k":
			m.vp.LineUp(1)
		case "down", "j":
			m.vp.LineDown(1)
		case "pgup":
			m.vp.LineUp(10)
		case "pgdown":
			m.vp.LineDown(10)
		}
	case snapshotMsg:
		m.last = msg.Snapshot
		m.haveSnap = true
		m.logs = append(m.logs, formatLogLine(msg.Snapshot))
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case linkLostMsg:
		m.lost = true
		m.lostErr = msg.err
	}
	return m, nil
}

func (m *model) refreshViewport() {
	lines := m.logs
	if m.wrap && m.vp.Width > 0 {
		wrapped := make([]string, 0, len(lines))
		for _, l := range lines {
			wrapped = append(wrapped, wordwrap.String(l, m.vp.Width))
		}
		lines = wrapped
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m model) View() string {
	divider := sepStyle.Render(strings.Repeat("─", max(m.width, 1)))
	sections := []string{
		m.renderHeader(),
		divider,
		m.vp.View(),
		divider,
		m.renderFooter(),
	}
	return strings.Join(sections, "\n")
}

func (m model) renderHeader() string {
	if m.lost {
		return headerStyle.Render("teleop watch") + "  " + badStyle.Render(fmt.Sprintf("disconnected: %v", m.lostErr))
	}
	if !m.haveSnap {
		return headerStyle.Render("teleop watch") + "  " + dimStyle.Render("waiting for telemetry...")
	}
	s := m.last
	link := badStyle.Render("link down")
	if s.LoraConnected {
		link = okStyle.Render(fmt.Sprintf("link %d%%", s.LinkQuality))
	}
	mode := okStyle.Render("active")
	if s.Sleep {
		mode = warnStyle.Render("sleep")
	}
	speed := "normal"
	if s.SpeedPlus {
		speed = "boost"
	}
	sep := sepStyle.Render(" │ ")
	return headerStyle.Render("teleop watch") + sep +
		link + sep + mode + sep +
		fmt.Sprintf("speed=%s", speed) + sep +
		fmt.Sprintf("v=%.3f w=%.3f", s.V, s.W) + sep +
		fmt.Sprintf("tx=%.2fHz hb_age=%.3fs", s.TxRateHz, s.RxHBAgeS)
}

func (m model) renderFooter() string {
	wrapFlag := "off"
	if m.wrap {
		wrapFlag = "on"
	}
	scrollFlag := "off"
	if m.autoscroll {
		scrollFlag = "on"
	}
	return dimStyle.Render(fmt.Sprintf("q quit  w wrap [%s]  a autoscroll [%s]  ↑/↓ scroll", wrapFlag, scrollFlag))
}

func formatLogLine(s telemetry.Snapshot) string {
	ts := time.UnixMilli(s.Timestamp).Format("15:04:05.000")
	link := "down"
	if s.LoraConnected {
		link = "up"
	}
	line := fmt.Sprintf("[%s] link=%s quality=%d tx=%.2fHz hb_age=%.3fs v=%.3f w=%.3f batt=%d%%",
		ts, link, s.LinkQuality, s.TxRateHz, s.RxHBAgeS, s.V, s.W, s.BatteryPct)
	if s.Sleep {
		line += " SLEEP"
	}
	if s.SpeedPlus {
		line += " BOOST"
	}
	return line
}

// subscribe dials the telemetry endpoint and forwards snapshots to the
// program until the connection drops or ctx is cancelled.
func subscribe(ctx context.Context, url string, p teaProgram) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		p.Send(linkLostMsg{err: err})
		return
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			p.Send(linkLostMsg{err: err})
			return
		}
		var snap telemetry.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			continue
		}
		p.Send(snapshotMsg{snap})
	}
}

// Run opens the console against the given telemetry websocket URL and
// blocks until the operator quits.
func Run(ctx context.Context, url string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newModel(), tea.WithAltScreen())
	go subscribe(ctx, url, p)

	_, err := p.Run()
	return err
}
