package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/bnema/browser-accounts-cli/internal/logger"
	"github.com/bnema/browser-accounts-cli/internal/ports"
)

const (
	DefaultReauthInterval = time.Minute
	DefaultStaleAfter     = 24 * time.Hour

	notificationTitle = "Account re-authentication"
)

// Switcher is the part of the session controller the scheduler drives.
type Switcher interface {
	ChangeAccount(ctx context.Context, id domain.AccountID) (domain.SwitchResult, error)
	CurrentAccount() (domain.Account, bool)
}

type Summary struct {
	Skipped          bool
	Attempted        int
	Reauthenticated  int
	NotAuthenticated int
	// Failed counts switches that ended in a fault rather than an outcome.
	Failed int
}

func (s Summary) Message() string {
	return fmt.Sprintf("%d not authenticated, %d re-authenticated", s.NotAuthenticated+s.Failed, s.Reauthenticated)
}

// Reauthenticator periodically revisits stale accounts through the primary
// controller so their sessions stay fresh.
type Reauthenticator struct {
	accounts   ports.AccountRepository
	switcher   Switcher
	shell      ports.ShellState
	notifier   ports.Notifier
	clock      ports.Clock
	logger     logger.Logger
	interval   time.Duration
	staleAfter time.Duration

	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewReauthenticator(
	accounts ports.AccountRepository,
	switcher Switcher,
	shell ports.ShellState,
	notifier ports.Notifier,
	clock ports.Clock,
	log logger.Logger,
	interval time.Duration,
	staleAfter time.Duration,
) *Reauthenticator {
	if interval <= 0 {
		interval = DefaultReauthInterval
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if shell == nil {
		shell = ports.StaticShellState(false)
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Reauthenticator{
		accounts:   accounts,
		switcher:   switcher,
		shell:      shell,
		notifier:   notifier,
		clock:      clock,
		logger:     log,
		interval:   interval,
		staleAfter: staleAfter,
		stopCh:     make(chan struct{}),
	}
}

// Start runs the job on every tick until Stop is called or ctx is done.
func (r *Reauthenticator) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := r.Run(ctx, false); err != nil {
					r.logger.Error("re-authentication run failed", logger.Error(err))
				}
			case <-r.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the periodic loop and waits for an in-progress run to return.
func (r *Reauthenticator) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

// Run re-authenticates every stale account once. Unless forced it does
// nothing while the shell is visible. A run that starts while another is in
// progress is skipped.
func (r *Reauthenticator) Run(ctx context.Context, force bool) (Summary, error) {
	if !force && r.shell.Visible() {
		r.logger.Debug("shell visible, skipping re-authentication")
		return Summary{Skipped: true}, nil
	}

	if !r.running.CompareAndSwap(false, true) {
		r.logger.Debug("re-authentication already running")
		return Summary{Skipped: true}, nil
	}
	defer r.running.Store(false)

	accounts, err := r.accounts.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list accounts: %w", err)
	}

	now := r.clock.Now()
	stale := make([]domain.Account, 0, len(accounts))
	for _, account := range accounts {
		if account.IsStale(now, r.staleAfter) {
			stale = append(stale, account)
		}
	}
	if len(stale) == 0 {
		r.logger.Debug("no stale accounts")
		return Summary{}, nil
	}

	r.logger.Info("re-authenticating stale accounts", logger.Int("count", len(stale)))

	previous, hadPrevious := r.switcher.CurrentAccount()
	var summary Summary
	var last domain.AccountID

	for _, account := range stale {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.Attempted++
		last = account.ID
		result, err := r.switcher.ChangeAccount(ctx, account.ID)
		switch {
		case err != nil:
			summary.Failed++
			r.logger.Warn("re-authentication switch failed",
				logger.String("account_id", string(account.ID)),
				logger.Error(err))
		case result.Succeeded():
			summary.Reauthenticated++
		default:
			summary.NotAuthenticated++
			r.logger.Info("account needs sign-in",
				logger.String("account_id", string(account.ID)),
				logger.String("outcome", result.Outcome.String()))
		}
	}

	if hadPrevious && last != previous.ID {
		r.restore(ctx, previous.ID)
	}

	r.logger.Info("re-authentication finished",
		logger.Int("reauthenticated", summary.Reauthenticated),
		logger.Int("not_authenticated", summary.NotAuthenticated),
		logger.Int("failed", summary.Failed))

	if r.notifier != nil {
		notification := ports.Notification{Title: notificationTitle, Message: summary.Message()}
		if err := r.notifier.Notify(ctx, notification); err != nil {
			r.logger.Warn("re-authentication notification failed", logger.Error(err))
		}
	}

	return summary, nil
}

func (r *Reauthenticator) restore(ctx context.Context, id domain.AccountID) {
	result, err := r.switcher.ChangeAccount(ctx, id)
	if err != nil {
		r.logger.Warn("restore previous account failed",
			logger.String("account_id", string(id)),
			logger.Error(err))
		return
	}
	if !result.Succeeded() {
		r.logger.Warn("previous account not restored",
			logger.String("account_id", string(id)),
			logger.String("outcome", result.Outcome.String()))
	}
}
