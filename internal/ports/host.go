package ports

import "github.com/bnema/browser-accounts-cli/internal/domain"

// Host is the container that displays browser surfaces.
type Host interface {
	Attach(handle domain.Handle, profileDir string) error
	Detach(handle domain.Handle) error
}

// ShellState reports whether the interactive shell is on screen.
type ShellState interface {
	Visible() bool
}

type StaticShellState bool

func (s StaticShellState) Visible() bool { return bool(s) }
