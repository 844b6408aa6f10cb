package application

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/browser-accounts-cli/internal/adapters/browser/memory"
	cookiefile "github.com/bnema/browser-accounts-cli/internal/adapters/cookies/file"
	tomlrepo "github.com/bnema/browser-accounts-cli/internal/adapters/repo/toml"
	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const (
	testHost          = "www.example.com"
	testStartURL      = "https://www.example.com/"
	testReadySelector = "#global-nav"
	testIdentity      = "[data-site-id]"
	testIdentityAttr  = "data-site-id"
	testAvatar        = "img.profile-avatar"
)

var testNow = time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// eventLog collects store and engine events in one ordered stream.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// recordingStore wraps the file store and reports loads and saves.
type recordingStore struct {
	*cookiefile.Store
	log   *eventLog
	delay time.Duration
}

func (s *recordingStore) Load(ctx context.Context, id domain.AccountID) ([]domain.Cookie, error) {
	s.log.add("load:" + string(id))
	return s.Store.Load(ctx, id)
}

func (s *recordingStore) Save(ctx context.Context, id domain.AccountID, jar []domain.Cookie) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.log.add("save:" + string(id))
	return s.Store.Save(ctx, id, jar)
}

type switchFixture struct {
	repo       *tomlrepo.Repository
	store      *recordingStore
	log        *eventLog
	engine     *memory.Engine
	offline    *atomic.Bool
	facade     *Facade
	controller *SessionController
}

func testSite(offline *atomic.Bool) memory.Site {
	base := memory.SessionSite{
		ReadySelector:     testReadySelector,
		IdentitySelector:  testIdentity,
		IdentityAttribute: testIdentityAttr,
		AvatarSelector:    testAvatar,
	}
	return func(url string, jar []domain.Cookie) memory.Page {
		if offline.Load() {
			return memory.Page{}
		}
		return base.Render(url, jar)
	}
}

func testSessionOptions() SessionOptions {
	return SessionOptions{
		ReadySelector:     testReadySelector,
		IdentitySelector:  testIdentity,
		IdentityAttribute: testIdentityAttr,
		AvatarSelector:    testAvatar,
		ReadyTimeout:      200 * time.Millisecond,
		AuthTimeout:       80 * time.Millisecond,
		Clock:             fixedClock{now: testNow},
	}
}

func testFacadeOptions() FacadeOptions {
	return FacadeOptions{AllowedHost: testHost, PollInterval: 10 * time.Millisecond}
}

func newTestRepo(t *testing.T, dir string) *tomlrepo.Repository {
	t.Helper()
	config := viper.New()
	config.Set("accounts.path", filepath.Join(dir, "accounts.toml"))
	repo, err := tomlrepo.NewRepository(config)
	require.NoError(t, err)
	return repo
}

func newSwitchFixture(t *testing.T, accounts ...domain.Account) *switchFixture {
	t.Helper()

	dir := t.TempDir()
	repo := newTestRepo(t, dir)
	for _, account := range accounts {
		require.NoError(t, repo.Save(context.Background(), account))
	}

	log := &eventLog{}
	store := &recordingStore{Store: cookiefile.NewStore(filepath.Join(dir, "cookies")), log: log}

	offline := &atomic.Bool{}
	engine := memory.NewEngine(testSite(offline), testStartURL)
	engine.SetRecorder(log.add)

	facade := NewFacade(engine, testFacadeOptions())
	t.Cleanup(func() { _ = facade.Dispose(context.Background()) })

	controller := NewSessionController(facade, repo, repo, store, testSessionOptions())
	t.Cleanup(controller.Close)

	return &switchFixture{
		repo:       repo,
		store:      store,
		log:        log,
		engine:     engine,
		offline:    offline,
		facade:     facade,
		controller: controller,
	}
}

func sessionJar(siteID string) []domain.Cookie {
	return []domain.Cookie{
		{Name: "session", Value: siteID, Domain: ".example.com", Path: "/", IsHTTPOnly: true, IsSecure: true, SameSite: domain.SameSiteLax},
		{Name: "pref", Value: "dark", Domain: ".example.com", Path: "/", Expires: 1893456000},
	}
}
