package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/bnema/browser-accounts-cli/internal/logger"
	"github.com/bnema/browser-accounts-cli/internal/ports"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const profileDirMode = 0o700

type RegistryOptions struct {
	// ProfilesDir holds one subdirectory per live instance.
	ProfilesDir     string
	Headless        bool
	Facade          FacadeOptions
	Session         SessionOptions
	CleanupAttempts int
	CleanupBackoff  time.Duration
	Logger          logger.Logger
}

type CreateOptions struct {
	InitialURL string
	// Headless overrides RegistryOptions.Headless when set.
	Headless *bool
}

type instance struct {
	facade     *Facade
	controller *SessionController
	profileDir string
}

// Registry owns every live browser instance, addressed by handle.
type Registry struct {
	launcher ports.EngineLauncher
	host     ports.Host
	accounts ports.AccountRepository
	feed     ports.AccountFeed
	cookies  ports.CookieStore
	opts     RegistryOptions
	log      logger.Logger
	cleanup  cleanupPolicy

	mu         sync.Mutex
	lastHandle domain.Handle
	instances  map[domain.Handle]*instance

	cleanups sync.WaitGroup
}

// NewRegistry builds a registry. host may be nil when surfaces are not
// displayed anywhere.
func NewRegistry(
	launcher ports.EngineLauncher,
	host ports.Host,
	accounts ports.AccountRepository,
	feed ports.AccountFeed,
	cookies ports.CookieStore,
	opts RegistryOptions,
) *Registry {
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.ProfilesDir == "" {
		opts.ProfilesDir = filepath.Join(os.TempDir(), "browser-accounts", "profiles")
	}
	log := opts.Logger.With(logger.String("component", "registry"))

	return &Registry{
		launcher:  launcher,
		host:      host,
		accounts:  accounts,
		feed:      feed,
		cookies:   cookies,
		opts:      opts,
		log:       log,
		cleanup:   newCleanupPolicy(opts.CleanupAttempts, opts.CleanupBackoff, log),
		instances: map[domain.Handle]*instance{},
	}
}

func (r *Registry) Create(ctx context.Context, opts CreateOptions) (domain.Handle, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	profileDir := filepath.Join(r.opts.ProfilesDir, uuid.NewString())
	if err := os.MkdirAll(profileDir, profileDirMode); err != nil {
		return 0, fmt.Errorf("create profile directory: %w", err)
	}

	headless := r.opts.Headless
	if opts.Headless != nil {
		headless = *opts.Headless
	}

	engine, err := r.launcher.Launch(ctx, ports.EngineOptions{ProfileDir: profileDir, Headless: headless})
	if err != nil {
		r.scheduleCleanup(profileDir)
		return 0, fmt.Errorf("launch engine: %w", err)
	}

	facadeOpts := r.opts.Facade
	facadeOpts.Logger = r.log
	facade := NewFacade(engine, facadeOpts)

	sessionOpts := r.opts.Session
	sessionOpts.Logger = r.log
	controller := NewSessionController(facade, r.accounts, r.feed, r.cookies, sessionOpts)

	inst := &instance{facade: facade, controller: controller, profileDir: profileDir}

	if opts.InitialURL != "" {
		if err := facade.Navigate(ctx, opts.InitialURL); err != nil {
			_ = r.teardown(ctx, 0, inst, false)
			return 0, fmt.Errorf("navigate to initial url: %w", err)
		}
	}

	r.mu.Lock()
	r.lastHandle++
	handle := r.lastHandle
	r.instances[handle] = inst
	r.mu.Unlock()

	if r.host != nil {
		if err := r.host.Attach(handle, profileDir); err != nil {
			r.mu.Lock()
			delete(r.instances, handle)
			r.mu.Unlock()
			_ = r.teardown(ctx, handle, inst, false)
			return 0, fmt.Errorf("attach surface: %w", err)
		}
	}

	r.log.Info("browser instance created",
		logger.Int64("handle", int64(handle)),
		logger.String("profile_dir", profileDir))
	return handle, nil
}

// Close disposes the instance and schedules removal of its profile directory.
// It returns false for unknown handles, including handles closed concurrently.
func (r *Registry) Close(ctx context.Context, handle domain.Handle) bool {
	inst, ok := r.remove(handle)
	if !ok {
		return false
	}

	_ = r.teardown(ctx, handle, inst, true)
	r.log.Info("browser instance closed", logger.Int64("handle", int64(handle)))
	return true
}

func (r *Registry) remove(handle domain.Handle) (*instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[handle]
	if ok {
		delete(r.instances, handle)
	}
	return inst, ok
}

// teardown logs failures and returns the dispose error for callers that
// aggregate them.
func (r *Registry) teardown(ctx context.Context, handle domain.Handle, inst *instance, attached bool) error {
	if attached && r.host != nil {
		if err := r.host.Detach(handle); err != nil {
			r.log.Warn("detach surface failed", logger.Int64("handle", int64(handle)), logger.Error(err))
		}
	}
	inst.controller.Close()
	err := inst.facade.Dispose(ctx)
	if err != nil {
		r.log.Warn("dispose engine failed", logger.Int64("handle", int64(handle)), logger.Error(err))
	}
	r.scheduleCleanup(inst.profileDir)
	return err
}

func (r *Registry) scheduleCleanup(dir string) {
	r.cleanups.Add(1)
	go func() {
		defer r.cleanups.Done()
		r.cleanup.run(dir)
	}()
}

// List returns live handles in ascending order.
func (r *Registry) List() []domain.Handle {
	r.mu.Lock()
	handles := make([]domain.Handle, 0, len(r.instances))
	for handle := range r.instances {
		handles = append(handles, handle)
	}
	r.mu.Unlock()

	slices.Sort(handles)
	return handles
}

func (r *Registry) TryGet(handle domain.Handle) (*Facade, *SessionController, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[handle]
	if !ok {
		return nil, nil, false
	}
	return inst.facade, inst.controller, true
}

// Shutdown closes every live instance in parallel and waits for pending
// profile cleanups.
func (r *Registry) Shutdown(ctx context.Context) error {
	var g errgroup.Group
	for _, handle := range r.List() {
		g.Go(func() error {
			inst, ok := r.remove(handle)
			if !ok {
				return nil
			}
			if err := r.teardown(ctx, handle, inst, true); err != nil {
				return fmt.Errorf("close handle %s: %w", handle, err)
			}
			return nil
		})
	}
	err := g.Wait()
	r.Wait()
	return err
}

// Wait blocks until every scheduled profile cleanup has finished.
func (r *Registry) Wait() {
	r.cleanups.Wait()
}
