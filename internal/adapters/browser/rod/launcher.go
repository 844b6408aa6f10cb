// Package rod adapts go-rod to the engine port. Each launch starts a separate
// Chromium process bound to its own profile directory.
package rod

import (
	"context"
	"fmt"

	"github.com/bnema/browser-accounts-cli/internal/ports"
	gorod "github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

var _ ports.EngineLauncher = (*Launcher)(nil)

type Config struct {
	// Bin is the browser executable; empty lets rod locate or download one.
	Bin      string
	StartURL string
}

type Launcher struct {
	cfg Config
}

func NewLauncher(cfg Config) *Launcher {
	if cfg.StartURL == "" {
		cfg.StartURL = "about:blank"
	}
	return &Launcher{cfg: cfg}
}

func (l *Launcher) Launch(ctx context.Context, opts ports.EngineOptions) (ports.Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	launch := launcher.New().Headless(opts.Headless)
	if opts.ProfileDir != "" {
		launch = launch.UserDataDir(opts.ProfileDir)
	}
	if l.cfg.Bin != "" {
		launch = launch.Bin(l.cfg.Bin)
	}

	controlURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := gorod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		launch.Kill()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: l.cfg.StartURL})
	if err != nil {
		_ = browser.Close()
		launch.Kill()
		return nil, fmt.Errorf("open page: %w", err)
	}

	return &Engine{launcher: launch, browser: browser, page: page}, nil
}
