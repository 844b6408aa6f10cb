package status

import (
	"errors"
	"io"
	"sort"
	"time"

	"github.com/bnema/browser-accounts-cli/internal/application"
	"github.com/bnema/browser-accounts-cli/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type boardReadyMsg struct{}

// board is the account overview: statuses in display order plus the counts
// shown in the header.
type board struct {
	statuses []application.Status
	opts     RenderOptions
	stale    int
	styles   styles
	output   string
}

// newBoard puts the active account first and keeps the remaining order.
// A zero Now means the current time.
func newBoard(statuses []application.Status, opts RenderOptions) board {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	ordered := append([]application.Status(nil), statuses...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return isActive(ordered[i], opts.Active) && !isActive(ordered[j], opts.Active)
	})

	stale := 0
	for _, status := range ordered {
		if status.Stale {
			stale++
		}
	}

	return board{
		statuses: ordered,
		opts:     opts,
		stale:    stale,
		styles:   newStyles(),
	}
}

func isActive(status application.Status, active domain.AccountID) bool {
	return active != "" && status.Account.ID == active
}

func (b board) Init() tea.Cmd {
	return func() tea.Msg {
		return boardReadyMsg{}
	}
}

func (b board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(boardReadyMsg); ok {
		b.output = renderView(b)
		return b, tea.Quit
	}
	return b, nil
}

func (b board) View() string {
	return b.output
}

func Render(statuses []application.Status, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newBoard(statuses, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(board)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
