package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divVerent/midipredict/internal/player"
	"github.com/divVerent/midipredict/internal/predict"
)

func TestProgressBar(t *testing.T) {
	assert.Len(t, progressBar(0.5), barWidth+2)
	assert.Equal(t, "["+strings.Repeat("#", barWidth)+"]", progressBar(2))
	assert.Equal(t, "["+strings.Repeat("=", barWidth)+"]", progressBar(-1))
}

func TestKeysSendCommands(t *testing.T) {
	commands := make(chan player.Command, 10)
	m := NewModel(commands, nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Nil(t, cmd)
	assert.Equal(t, player.Command{Restart: true}, <-commands)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	assert.Nil(t, cmd)
	assert.Equal(t, player.Command{Panic: true}, <-commands)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, player.Command{Quit: true}, <-commands)
	assert.Empty(t, next.View())
}

func TestStatesAreShown(t *testing.T) {
	states := make(chan player.UIState, 2)
	m := NewModel(make(chan player.Command, 1), states)

	states <- player.UIState{
		Reference: "hymn.mid",
		Playing:   true,
		Engine: predict.Snapshot{
			Prepared: true,
			Density:  1.25,
			Paused:   true,
			RecIndex: 5,
			RecLen:   10,
		},
		Err: errors.New("port vanished"),
	}
	msg := m.Init()()
	next, cmd := m.Update(msg)
	assert.NotNil(t, cmd)
	view := next.View()
	assert.Contains(t, view, "hymn.mid")
	assert.Contains(t, view, "125%")
	assert.Contains(t, view, "waiting for the performer")
	assert.Contains(t, view, "5 / 10 notes")
	assert.Contains(t, view, "port vanished")

	close(states)
	next, cmd = next.Update(cmd())
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.View())
}
