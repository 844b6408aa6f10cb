package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/bnema/browser-accounts-cli/internal/ports"
)

var ErrAccountExists = errors.New("account already exists")

// Service manages the account records and their stored cookie jars outside
// of a browser session.
type Service struct {
	repo    ports.AccountRepository
	cookies ports.CookieStore
	clock   ports.Clock
}

func NewService(repo ports.AccountRepository, cookies ports.CookieStore, clock ports.Clock) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Service{
		repo:    repo,
		cookies: cookies,
		clock:   clock,
	}
}

func (s *Service) AddAccount(ctx context.Context, cmd AddAccountCommand) (domain.Account, error) {
	id := domain.AccountID(strings.TrimSpace(string(cmd.ID)))
	if id == "" {
		return domain.Account{}, fmt.Errorf("add account: %w: empty", domain.ErrInvalidAccountID)
	}

	_, err := s.repo.GetByID(ctx, id)
	switch {
	case err == nil:
		return domain.Account{}, fmt.Errorf("add account %q: %w", id, ErrAccountExists)
	case !errors.Is(err, domain.ErrAccountNotFound):
		return domain.Account{}, fmt.Errorf("get account by id: %w", err)
	}

	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		name = fmt.Sprintf("Account %s", id)
	}

	account := domain.Account{
		ID:     id,
		Name:   name,
		SiteID: strings.TrimSpace(cmd.SiteID),
	}
	if err := s.repo.Save(ctx, account); err != nil {
		return domain.Account{}, fmt.Errorf("save account: %w", err)
	}

	return account, nil
}

func (s *Service) RenameAccount(ctx context.Context, cmd RenameAccountCommand) error {
	account, err := s.repo.GetByID(ctx, cmd.ID)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}

	account.Name = strings.TrimSpace(cmd.Name)

	if err := s.repo.Save(ctx, account); err != nil {
		return fmt.Errorf("save account name: %w", err)
	}

	return nil
}

// GetStatusAll returns every account ordered by id. With staleAfter <= 0
// only never visited accounts are stale.
func (s *Service) GetStatusAll(ctx context.Context, staleAfter time.Duration) ([]Status, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	now := s.clock.Now()
	statuses := make([]Status, 0, len(accounts))
	for _, account := range accounts {
		status, err := s.statusFromAccount(ctx, account, now, staleAfter)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Account.ID < statuses[j].Account.ID
	})
	return statuses, nil
}

func (s *Service) statusFromAccount(ctx context.Context, account domain.Account, now time.Time, staleAfter time.Duration) (Status, error) {
	status := Status{
		Account: account,
		Stale:   account.IsStale(now, staleAfter),
	}
	if !account.LastVisit.IsZero() {
		status.Age = now.Sub(account.LastVisit)
	}

	if s.cookies != nil {
		jar, err := s.cookies.Load(ctx, account.ID)
		if err != nil {
			return Status{}, fmt.Errorf("load cookies for %q: %w", account.ID, err)
		}
		status.Cookies = len(jar)
	}

	return status, nil
}

func (s *Service) Cookies(ctx context.Context, id domain.AccountID) ([]domain.Cookie, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("get account by id: %w", err)
	}

	jar, err := s.cookies.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load cookies: %w", err)
	}
	return jar, nil
}

// ClearCookies drops the stored jar so the next switch starts signed out.
func (s *Service) ClearCookies(ctx context.Context, id domain.AccountID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}

	if err := s.cookies.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete cookies: %w", err)
	}
	return nil
}

// ImportCookies replaces the stored jar of a known account, typically with
// one exported from a regular browser after signing in by hand.
func (s *Service) ImportCookies(ctx context.Context, id domain.AccountID, jar []domain.Cookie) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}

	if err := s.cookies.Save(ctx, id, domain.CloneJar(jar)); err != nil {
		return fmt.Errorf("save cookies: %w", err)
	}
	return nil
}
