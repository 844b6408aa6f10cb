package application

import (
	"time"

	"github.com/bnema/browser-accounts-cli/internal/domain"
)

type Status struct {
	Account domain.Account
	// Stale marks accounts the re-authentication job would pick up.
	Stale   bool
	Cookies int
	// Age is zero for accounts that were never visited.
	Age time.Duration
}
