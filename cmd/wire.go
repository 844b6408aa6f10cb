package cmd

import (
	"context"
	"fmt"
	"time"

	memorybrowser "github.com/bnema/browser-accounts-cli/internal/adapters/browser/memory"
	rodbrowser "github.com/bnema/browser-accounts-cli/internal/adapters/browser/rod"
	cookiefile "github.com/bnema/browser-accounts-cli/internal/adapters/cookies/file"
	headlesshost "github.com/bnema/browser-accounts-cli/internal/adapters/host/headless"
	lognotify "github.com/bnema/browser-accounts-cli/internal/adapters/notify/log"
	statusadapter "github.com/bnema/browser-accounts-cli/internal/adapters/render/status"
	tomlrepo "github.com/bnema/browser-accounts-cli/internal/adapters/repo/toml"
	"github.com/bnema/browser-accounts-cli/internal/application"
	"github.com/bnema/browser-accounts-cli/internal/config"
	"github.com/bnema/browser-accounts-cli/internal/logger"
	"github.com/bnema/browser-accounts-cli/internal/ports"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

type app struct {
	cfg            config.Config
	log            logger.Logger
	repo           *tomlrepo.Repository
	cookies        *cookiefile.Store
	service        *application.Service
	launcher       ports.EngineLauncher
	host           *headlesshost.Host
	notifier       ports.Notifier
	statusRenderer func([]application.Status, statusadapter.RenderOptions) (string, error)
	now            func() time.Time
}

func wireApp() (*app, error) {
	baseDir, err := config.Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	cfg, err := config.Load(v, baseDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogPretty)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	repo, err := tomlrepo.NewRepository(v)
	if err != nil {
		return nil, fmt.Errorf("wire account repository: %w", err)
	}

	cookies := cookiefile.NewStore(cfg.CookiesDir)

	return &app{
		cfg:            cfg,
		log:            log,
		repo:           repo,
		cookies:        cookies,
		service:        application.NewService(repo, cookies, ports.SystemClock{}),
		launcher:       newLauncher(cfg),
		host:           headlesshost.NewHost(log),
		notifier:       lognotify.NewNotifier(log),
		statusRenderer: statusadapter.Render,
		now:            time.Now,
	}, nil
}

func newLauncher(cfg config.Config) ports.EngineLauncher {
	if cfg.Browser.Engine == config.EngineMemory {
		site := memorybrowser.SessionSite{
			ReadySelector:     cfg.Switch.ReadySelector,
			IdentitySelector:  cfg.Switch.IdentitySelector,
			IdentityAttribute: cfg.Switch.IdentityAttribute,
			AvatarSelector:    cfg.Switch.AvatarSelector,
		}
		return memorybrowser.NewLauncher(site.Render, cfg.Browser.StartURL)
	}

	return rodbrowser.NewLauncher(rodbrowser.Config{
		Bin:      cfg.Browser.Bin,
		StartURL: cfg.Browser.StartURL,
	})
}

// newRegistry builds a registry for this process. Instances never outlive it.
func (a *app) newRegistry() *application.Registry {
	return application.NewRegistry(a.launcher, a.host, a.repo, a.repo, a.cookies, application.RegistryOptions{
		ProfilesDir: a.cfg.Browser.ProfilesDir,
		Headless:    a.cfg.Browser.Headless,
		Facade: application.FacadeOptions{
			AllowedHost: a.cfg.Browser.AllowedHost,
			Logger:      a.log,
		},
		Session: application.SessionOptions{
			ReadySelector:     a.cfg.Switch.ReadySelector,
			IdentitySelector:  a.cfg.Switch.IdentitySelector,
			IdentityAttribute: a.cfg.Switch.IdentityAttribute,
			AvatarSelector:    a.cfg.Switch.AvatarSelector,
			ReadyTimeout:      a.cfg.Switch.ReadyTimeout,
			AuthTimeout:       a.cfg.Switch.AuthTimeout,
			Logger:            a.log,
		},
		CleanupAttempts: a.cfg.Cleanup.Attempts,
		CleanupBackoff:  a.cfg.Cleanup.Backoff,
		Logger:          a.log,
	})
}

// openSession creates one browser instance on the start page and returns its
// controller.
func (a *app) openSession(ctx context.Context, registry *application.Registry) (*application.SessionController, error) {
	handle, err := registry.Create(ctx, application.CreateOptions{InitialURL: a.cfg.Browser.StartURL})
	if err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}

	_, controller, ok := registry.TryGet(handle)
	if !ok {
		return nil, fmt.Errorf("open browser: instance %s vanished", handle)
	}
	return controller, nil
}

func (a *app) shutdown(registry *application.Registry) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := registry.Shutdown(ctx); err != nil {
		a.log.Warn("browser shutdown incomplete", logger.Error(err))
	}
}
