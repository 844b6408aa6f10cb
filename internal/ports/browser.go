package ports

import (
	"context"
	"time"

	"github.com/bnema/browser-accounts-cli/internal/domain"
)

// Browser is the capability surface of one browser instance, consumed by the
// session controller and by automation collaborators.
type Browser interface {
	ExecuteScript(ctx context.Context, js string) (value string, ok bool, err error)
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	ElementExists(ctx context.Context, selector string) (bool, error)
	WaitForElementExists(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	GetCookies(ctx context.Context) ([]domain.Cookie, error)
	SetCookies(ctx context.Context, jar []domain.Cookie) error
	Source() string
}
