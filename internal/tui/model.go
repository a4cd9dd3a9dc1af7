// Package tui shows the live player state in the terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/divVerent/midipredict/internal/player"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	pausedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

const barWidth = 60

type UIStateMsg player.UIState

type closedMsg struct{}

func listenForUIStates(states <-chan player.UIState) tea.Cmd {
	return func() tea.Msg {
		ui, ok := <-states
		if !ok {
			return closedMsg{}
		}
		return UIStateMsg(ui)
	}
}

type Model struct {
	commands chan<- player.Command
	states   <-chan player.UIState
	ui       player.UIState
	quitting bool
}

// NewModel returns a model showing states and sending key presses as commands.
func NewModel(commands chan<- player.Command, states <-chan player.UIState) Model {
	return Model{
		commands: commands,
		states:   states,
	}
}

func (m Model) send(cmd player.Command) {
	select {
	case m.commands <- cmd:
	default:
		// Backend is busy or gone.
	}
}

func (m Model) Init() tea.Cmd {
	return listenForUIStates(m.states)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			m.send(player.Command{Quit: true})
			return m, tea.Quit
		case "r":
			m.send(player.Command{Restart: true})
		case "p", " ":
			m.send(player.Command{Panic: true})
		}

	case UIStateMsg:
		m.ui = player.UIState(msg)
		return m, listenForUIStates(m.states)

	case closedMsg:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func progressBar(fraction float64) string {
	fraction = max(0, min(1, fraction))
	full := int(fraction * barWidth)
	return "[" + strings.Repeat("#", full) + strings.Repeat("=", barWidth-full) + "]"
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	ui := m.ui
	snap := ui.Engine

	state := "following"
	if snap.Paused {
		state = pausedStyle.Render("waiting for the performer")
	}
	if !ui.Playing {
		state = ui.CurrentMessage
	}

	lines := []string{
		titleStyle.Render("midipredict - live"),
		"",
		labelStyle.Render("Reference: ") + ui.Reference,
		labelStyle.Render("Ports: ") + fmt.Sprintf("%v -> %v", ui.InPort, ui.OutPort),
		labelStyle.Render("State: ") + state,
		"",
		progressBar(ui.Fraction()),
		fmt.Sprintf("%v / %v notes at %v", snap.RecIndex, snap.RecLen, snap.Position.Round(100*time.Millisecond)),
		"",
		labelStyle.Render("Tempo: ") + fmt.Sprintf("%.0f%%", 100*snap.Density),
		labelStyle.Render("Pending: ") + fmt.Sprintf("%d predicted, %d live", snap.PendingPredicted, snap.PendingLive),
	}
	if dropped := snap.Dropped + ui.LiveDropped + ui.OutDropped; dropped > 0 {
		lines = append(lines, labelStyle.Render("Dropped: ")+fmt.Sprintf("%d", dropped))
	}
	if ui.Err != nil {
		lines = append(lines, "", errStyle.Render(fmt.Sprintf("Error: %v", ui.Err)))
	}
	lines = append(lines, "", dimStyle.Render("r:restart  p:all notes off  q:quit"))
	return strings.Join(lines, "\n") + "\n"
}
