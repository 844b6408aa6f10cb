package toml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T, accountsPath string) *Repository {
	t.Helper()

	config := viper.New()
	config.Set("accounts.path", accountsPath)

	repo, err := NewRepository(config)
	require.NoError(t, err)
	return repo
}

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "accounts.toml"))

	visited := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)
	first := domain.Account{
		ID:        "acc-1",
		Name:      "Primary",
		SiteID:    "u-100",
		LastVisit: visited,
		AvatarURL: "https://cdn.example.com/a.png",
	}
	second := domain.Account{ID: "acc-2", Name: "Backup"}

	require.NoError(t, repo.Save(context.Background(), first))
	require.NoError(t, repo.Save(context.Background(), second))

	got, err := repo.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	accounts, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Account{first, second}, accounts)
}

func TestRepositorySaveUpdatesInPlace(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "accounts.toml"))

	require.NoError(t, repo.Save(context.Background(), domain.Account{ID: "acc-1", Name: "Primary"}))
	require.NoError(t, repo.Save(context.Background(), domain.Account{ID: "acc-1", Name: "Renamed", SiteID: "u-1"}))

	accounts, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Renamed", accounts[0].Name)
	assert.Equal(t, "u-1", accounts[0].SiteID)
}

func TestRepositoryBackwardCompatibleWhenOptionalFieldsMissing(t *testing.T) {
	t.Parallel()

	accountsPath := filepath.Join(t.TempDir(), "accounts.toml")
	require.NoError(t, os.WriteFile(accountsPath, []byte(strings.Join([]string{
		"version = 1",
		"",
		"[[accounts]]",
		"id = \"acc-1\"",
		"name = \"Primary\"",
		"",
	}, "\n")), 0o600))

	repo := newTestRepository(t, accountsPath)

	account, err := repo.GetByID(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Empty(t, account.SiteID)
	assert.True(t, account.LastVisit.IsZero())
}

func TestRepositoryInvalidLastVisitIsTreatedAsNeverVisited(t *testing.T) {
	t.Parallel()

	accountsPath := filepath.Join(t.TempDir(), "accounts.toml")
	require.NoError(t, os.WriteFile(accountsPath, []byte(strings.Join([]string{
		"version = 1",
		"[[accounts]]",
		"id = \"acc-1\"",
		"name = \"Primary\"",
		"last_visit = \"yesterday\"",
	}, "\n")), 0o600))

	repo := newTestRepository(t, accountsPath)

	account, err := repo.GetByID(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.True(t, account.LastVisit.IsZero())
}

func TestRepositorySaveCreatesDefaultPathAndEnforcesPermissions(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	repo, err := NewRepository(viper.New())
	require.NoError(t, err)

	require.NoError(t, repo.Save(context.Background(), domain.Account{ID: "acc-1", Name: "Primary"}))

	accountsPath := filepath.Join(homeDir, ".browser-accounts", "accounts.toml")
	info, err := os.Stat(accountsPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRepositoryMissingFileBehaviors(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "missing", "accounts.toml"))

	accounts, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)

	_, err = repo.GetByID(context.Background(), "acc-1")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestRepositoryRejectsEmptyID(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "accounts.toml"))

	err := repo.Save(context.Background(), domain.Account{Name: "nameless"})
	require.ErrorIs(t, err, domain.ErrInvalidAccountID)
}

func TestRepositoryListMalformedTOMLReturnsError(t *testing.T) {
	t.Parallel()

	accountsPath := filepath.Join(t.TempDir(), "accounts.toml")
	require.NoError(t, os.WriteFile(accountsPath, []byte("accounts = ["), 0o600))

	repo := newTestRepository(t, accountsPath)

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "decode accounts file")
}

func TestRepositorySaveCanceledContextReturnsContextError(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "accounts.toml"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Save(ctx, domain.Account{ID: "acc-1", Name: "Primary"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRepositoryConcurrentSavesAcrossInstancesPreserveBothAccounts(t *testing.T) {
	t.Parallel()

	accountsPath := filepath.Join(t.TempDir(), "accounts.toml")
	repoA := newTestRepository(t, accountsPath)
	repoB := newTestRepository(t, accountsPath)

	const perRepoWrites = 100
	start := make(chan struct{})
	errCh := make(chan error, perRepoWrites*2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < perRepoWrites; i++ {
			errCh <- repoA.Save(context.Background(), domain.Account{ID: domain.AccountID("acc-a-" + strconv.Itoa(i)), Name: "A"})
		}
	}()

	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < perRepoWrites; i++ {
			errCh <- repoB.Save(context.Background(), domain.Account{ID: domain.AccountID("acc-b-" + strconv.Itoa(i)), Name: "B"})
		}
	}()

	close(start)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	accounts, err := repoA.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, perRepoWrites*2)
}

func TestRepositorySaveSerializedTOMLIncludesVersion(t *testing.T) {
	t.Parallel()

	accountsPath := filepath.Join(t.TempDir(), "accounts.toml")
	repo := newTestRepository(t, accountsPath)

	require.NoError(t, repo.Save(context.Background(), domain.Account{ID: "acc-1", Name: "Primary"}))

	data, err := os.ReadFile(accountsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
}

func TestRepositoryFutureSchemaVersionReturnsError(t *testing.T) {
	t.Parallel()

	accountsPath := filepath.Join(t.TempDir(), "accounts.toml")
	require.NoError(t, os.WriteFile(accountsPath, []byte(strings.Join([]string{
		"version = 999",
		"",
		"accounts = []",
		"",
	}, "\n")), 0o600))

	repo := newTestRepository(t, accountsPath)

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported accounts schema version")
}
