package ports

import (
	"context"

	"github.com/bnema/browser-accounts-cli/internal/domain"
)

// Engine is the raw embedded browser. Implementations are not required to be
// safe for concurrent use: callers funnel every call through one goroutine.
type Engine interface {
	Eval(ctx context.Context, js string) (value string, isNull bool, err error)
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	URL() string
	Cookies(ctx context.Context) ([]domain.Cookie, error)
	ClearCookies(ctx context.Context) error
	AddCookies(ctx context.Context, jar []domain.Cookie) error
	Close() error
}

type EngineOptions struct {
	ProfileDir string
	Headless   bool
}

type EngineLauncher interface {
	Launch(ctx context.Context, opts EngineOptions) (Engine, error)
}
