package ports

import (
	"context"

	"github.com/bnema/browser-accounts-cli/internal/domain"
)

type AccountRepository interface {
	GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Save(ctx context.Context, account domain.Account) error
}

// AccountFeed delivers field-level change events for one account. The
// returned function detaches the subscription and is safe to call twice.
type AccountFeed interface {
	Subscribe(id domain.AccountID, fn func(domain.AccountChange)) (unsubscribe func())
}
