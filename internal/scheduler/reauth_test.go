package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/bnema/browser-accounts-cli/internal/logger"
	"github.com/bnema/browser-accounts-cli/internal/ports"
	"github.com/bnema/browser-accounts-cli/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeSwitcher struct {
	mu       sync.Mutex
	outcomes map[domain.AccountID]domain.SwitchOutcome
	faults   map[domain.AccountID]error
	current  *domain.Account
	calls    []domain.AccountID
	gate     chan struct{}
	entered  chan struct{}
}

func newFakeSwitcher() *fakeSwitcher {
	return &fakeSwitcher{
		outcomes: map[domain.AccountID]domain.SwitchOutcome{},
		faults:   map[domain.AccountID]error{},
	}
}

func (s *fakeSwitcher) ChangeAccount(ctx context.Context, id domain.AccountID) (domain.SwitchResult, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, id)
	if err := s.faults[id]; err != nil {
		return domain.SwitchResult{AccountID: id}, err
	}
	s.current = &domain.Account{ID: id}
	return domain.SwitchResult{AccountID: id, Outcome: s.outcomes[id]}, nil
}

func (s *fakeSwitcher) CurrentAccount() (domain.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.Account{}, false
	}
	return *s.current, true
}

func (s *fakeSwitcher) callLog() []domain.AccountID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AccountID(nil), s.calls...)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var now = time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

func testAccounts() []domain.Account {
	return []domain.Account{
		{ID: "fresh", LastVisit: now.Add(-time.Hour)},
		{ID: "stale-ok", LastVisit: now.Add(-30 * time.Hour)},
		{ID: "never"},
		{ID: "stale-bad", LastVisit: now.Add(-72 * time.Hour)},
	}
}

func TestRunReauthenticatesStaleAccountsAndNotifiesOnce(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	notifier := mocks.NewMockNotifier(t)
	switcher := newFakeSwitcher()
	switcher.current = &domain.Account{ID: "fresh"}
	switcher.outcomes["stale-bad"] = domain.SwitchNotAuthenticated
	switcher.faults["never"] = errors.New("engine crashed")

	repo.EXPECT().List(mock.Anything).Return(testAccounts(), nil)
	notifier.EXPECT().Notify(mock.Anything, ports.Notification{
		Title:   "Account re-authentication",
		Message: "2 not authenticated, 1 re-authenticated",
	}).Return(nil).Once()

	job := NewReauthenticator(repo, switcher, ports.StaticShellState(false), notifier, fixedClock{now: now}, logger.NewNop(), time.Minute, 24*time.Hour)

	summary, err := job.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, Summary{Attempted: 3, Reauthenticated: 1, NotAuthenticated: 1, Failed: 1}, summary)
	assert.Equal(t, []domain.AccountID{"stale-ok", "never", "stale-bad", "fresh"}, switcher.callLog())
}

func TestRunSkipsWhileShellVisible(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	switcher := newFakeSwitcher()

	job := NewReauthenticator(repo, switcher, ports.StaticShellState(true), nil, fixedClock{now: now}, nil, 0, 0)

	summary, err := job.Run(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, summary.Skipped)
	assert.Empty(t, switcher.callLog())
}

func TestRunForcedIgnoresShellVisibility(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	repo.EXPECT().List(mock.Anything).Return(testAccounts()[:2], nil)
	switcher := newFakeSwitcher()

	job := NewReauthenticator(repo, switcher, ports.StaticShellState(true), nil, fixedClock{now: now}, nil, 0, 0)

	summary, err := job.Run(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Reauthenticated)
	assert.Equal(t, []domain.AccountID{"stale-ok"}, switcher.callLog())
}

func TestRunWithoutStaleAccountsDoesNotNotify(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	notifier := mocks.NewMockNotifier(t)
	repo.EXPECT().List(mock.Anything).Return(testAccounts()[:1], nil)

	job := NewReauthenticator(repo, newFakeSwitcher(), nil, notifier, fixedClock{now: now}, nil, 0, 0)

	summary, err := job.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, summary.Attempted)
}

func TestRunPropagatesListFailure(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	repo.EXPECT().List(mock.Anything).Return(nil, errors.New("corrupt file"))

	job := NewReauthenticator(repo, newFakeSwitcher(), nil, nil, fixedClock{now: now}, nil, 0, 0)

	_, err := job.Run(context.Background(), false)
	require.Error(t, err)
	assert.ErrorContains(t, err, "list accounts")
}

func TestOverlappingRunIsNoOp(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	repo.EXPECT().List(mock.Anything).Return(testAccounts()[:2], nil).Once()
	switcher := newFakeSwitcher()
	switcher.gate = make(chan struct{})
	switcher.entered = make(chan struct{}, 1)

	job := NewReauthenticator(repo, switcher, nil, nil, fixedClock{now: now}, nil, 0, 0)

	done := make(chan Summary)
	go func() {
		summary, _ := job.Run(context.Background(), false)
		done <- summary
	}()
	<-switcher.entered

	overlapping, err := job.Run(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, overlapping.Skipped)

	close(switcher.gate)
	first := <-done
	assert.Equal(t, 1, first.Reauthenticated)
}

func TestStartRunsOnTickAndStopReturns(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	repo := mocks.NewMockAccountRepository(t)
	repo.EXPECT().List(mock.Anything).Return(testAccounts()[:2], nil)
	switcher := newFakeSwitcher()

	job := NewReauthenticator(repo, switcher, nil, nil, fixedClock{now: now}, nil, 10*time.Millisecond, 0)
	job.Start(context.Background())

	require.Eventually(t, func() bool {
		return len(switcher.callLog()) > 0
	}, 2*time.Second, 5*time.Millisecond)

	job.Stop()
	job.Stop()
}
