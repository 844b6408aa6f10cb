package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type switchDoneMsg struct {
	result domain.SwitchResult
	err    error
}

// switchProgress spins while a switch runs and leaves a one-line outcome
// behind once it finishes.
type switchProgress struct {
	spinner spinner.Model
	target  domain.AccountID
	change  tea.Cmd
	ok      lipgloss.Style
	failed  lipgloss.Style

	result domain.SwitchResult
	err    error
	done   bool
}

func newSwitchProgress(target domain.AccountID, change tea.Cmd) switchProgress {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return switchProgress{
		spinner: s,
		target:  target,
		change:  change,
		ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
}

func (m switchProgress) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.change)
}

func (m switchProgress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case switchDoneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m switchProgress) View() string {
	if !m.done {
		return fmt.Sprintf("%s Switching to %s...", m.spinner.View(), m.target)
	}
	return m.outcomeLabel() + "\n"
}

func (m switchProgress) outcomeLabel() string {
	if m.err != nil {
		return m.failed.Render(fmt.Sprintf("x %s: switch failed", m.target))
	}

	switch m.result.Outcome {
	case domain.SwitchSucceeded:
		return m.ok.Render(fmt.Sprintf("ok %s: signed in", m.target))
	case domain.SwitchNotFound:
		return m.failed.Render(fmt.Sprintf("x %s: unknown account", m.target))
	case domain.SwitchTimeout:
		return m.failed.Render(fmt.Sprintf("x %s: page did not load", m.target))
	case domain.SwitchNotAuthenticated:
		return m.failed.Render(fmt.Sprintf("x %s: not signed in", m.target))
	default:
		return m.failed.Render(fmt.Sprintf("x %s: %s", m.target, m.result.Outcome))
	}
}

// runSwitchProgress runs change behind a spinner on output and returns its
// result.
func runSwitchProgress(
	ctx context.Context,
	output io.Writer,
	target domain.AccountID,
	change func(context.Context) (domain.SwitchResult, error),
) (domain.SwitchResult, error) {
	changeCmd := func() tea.Msg {
		result, err := change(ctx)
		return switchDoneMsg{result: result, err: err}
	}

	p := tea.NewProgram(
		newSwitchProgress(target, changeCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return domain.SwitchResult{}, err
	}

	progress, ok := finalModel.(switchProgress)
	if !ok {
		return domain.SwitchResult{}, fmt.Errorf("unexpected final progress model type %T", finalModel)
	}

	return progress.result, progress.err
}
