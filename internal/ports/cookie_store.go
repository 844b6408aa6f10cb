package ports

import (
	"context"

	"github.com/bnema/browser-accounts-cli/internal/domain"
)

// CookieStore persists one cookie jar per account. Load returns an empty jar
// and no error when nothing was stored for the account yet.
type CookieStore interface {
	Load(ctx context.Context, id domain.AccountID) ([]domain.Cookie, error)
	Save(ctx context.Context, id domain.AccountID, jar []domain.Cookie) error
	Delete(ctx context.Context, id domain.AccountID) error
}
