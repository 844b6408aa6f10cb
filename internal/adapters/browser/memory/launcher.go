package memory

import (
	"context"
	"sync"

	"github.com/bnema/browser-accounts-cli/internal/ports"
)

var _ ports.EngineLauncher = (*Launcher)(nil)

type Launcher struct {
	site     Site
	startURL string

	mu       sync.Mutex
	launched []*Engine
}

func NewLauncher(site Site, startURL string) *Launcher {
	return &Launcher{site: site, startURL: startURL}
}

func (l *Launcher) Launch(ctx context.Context, opts ports.EngineOptions) (ports.Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	engine := NewEngine(l.site, l.startURL)
	engine.profileDir = opts.ProfileDir

	l.mu.Lock()
	l.launched = append(l.launched, engine)
	l.mu.Unlock()
	return engine, nil
}

// Launched returns every engine started so far, oldest first.
func (l *Launcher) Launched() []*Engine {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Engine, len(l.launched))
	copy(out, l.launched)
	return out
}
