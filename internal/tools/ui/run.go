// Package ui renders a single long-running tool action as a small
// terminal program with a running/done state.
package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

type actionMsg struct {
	details []string
	err     error
}

type model struct {
	title   string
	action  func(context.Context) ([]string, error)
	done    bool
	details []string
	err     error
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		details, err := m.action(context.Background())
		return actionMsg{details: details, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case actionMsg:
		m.done = true
		m.details = msg.details
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.err = context.Canceled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) View() string {
	if !m.done {
		return m.title + ": Running...\n"
	}
	out := m.title + ": "
	if m.err != nil {
		out += "FAILED: " + m.err.Error() + "\n"
	} else {
		out += "OK\n"
	}
	for _, d := range m.details {
		out += "  " + d + "\n"
	}
	return out
}

// Run executes action behind a terminal spinner view and returns its result.
func Run(title string, action func(context.Context) ([]string, error)) ([]string, error) {
	final, err := tea.NewProgram(model{title: title, action: action}).Run()
	if err != nil {
		return nil, err
	}
	m := final.(model)
	return m.details, m.err
}
