package application

import (
	"github.com/bnema/browser-accounts-cli/internal/domain"
)

type AddAccountCommand struct {
	ID     domain.AccountID
	Name   string
	SiteID string
}

type RenameAccountCommand struct {
	ID   domain.AccountID
	Name string
}
