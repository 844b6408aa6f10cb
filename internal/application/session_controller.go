package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/bnema/browser-accounts-cli/internal/domquery"
	"github.com/bnema/browser-accounts-cli/internal/logger"
	"github.com/bnema/browser-accounts-cli/internal/ports"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultReadyTimeout = 30 * time.Second
	DefaultAuthTimeout  = 5 * time.Second
)

type SessionOptions struct {
	ReadySelector     string
	IdentitySelector  string
	IdentityAttribute string
	// AvatarSelector is optional; its src attribute becomes the account avatar.
	AvatarSelector string
	ReadyTimeout   time.Duration
	AuthTimeout    time.Duration
	Clock          ports.Clock
	Logger         logger.Logger
}

type initializer interface {
	Initialized() bool
}

// SessionController runs the account switch protocol against one browser.
// At most one switch is in flight at a time.
type SessionController struct {
	browser  ports.Browser
	accounts ports.AccountRepository
	feed     ports.AccountFeed
	cookies  ports.CookieStore
	opts     SessionOptions
	log      logger.Logger

	switchLock *semaphore.Weighted

	mu          sync.RWMutex
	current     *domain.Account
	unsubscribe func()
	state       domain.SwitchState
	lastResult  *domain.SwitchResult

	listenersMu    sync.Mutex
	nextListenerID int
	changed        map[int]func(domain.Account)
	dataChanged    map[int]func(domain.AccountChange)
}

// NewSessionController wires a controller. feed may be nil, in which case
// account data change events are never raised.
func NewSessionController(
	browser ports.Browser,
	accounts ports.AccountRepository,
	feed ports.AccountFeed,
	cookies ports.CookieStore,
	opts SessionOptions,
) *SessionController {
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = DefaultAuthTimeout
	}
	if opts.Clock == nil {
		opts.Clock = ports.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}

	return &SessionController{
		browser:     browser,
		accounts:    accounts,
		feed:        feed,
		cookies:     cookies,
		opts:        opts,
		log:         opts.Logger,
		switchLock:  semaphore.NewWeighted(1),
		changed:     map[int]func(domain.Account){},
		dataChanged: map[int]func(domain.AccountChange){},
	}
}

// ChangeAccount switches the browser to the given account. Expected failures
// are reported through the result outcome; the error is reserved for faults
// such as engine or storage failures and context cancellation.
func (c *SessionController) ChangeAccount(ctx context.Context, id domain.AccountID) (domain.SwitchResult, error) {
	result := domain.SwitchResult{AccountID: id}
	if !c.browserInitialized() {
		return result, domain.ErrEngineNotInitialized
	}

	if err := c.switchLock.Acquire(ctx, 1); err != nil {
		return result, fmt.Errorf("acquire switch lock: %w", err)
	}
	defer c.switchLock.Release(1)

	c.setState(domain.SwitchStateSwitching)
	result, err := c.changeAccountLocked(ctx, id)
	c.finishSwitch(result, err)
	return result, err
}

func (c *SessionController) changeAccountLocked(ctx context.Context, id domain.AccountID) (domain.SwitchResult, error) {
	result := domain.SwitchResult{AccountID: id}
	log := c.log.With(logger.String("account_id", string(id)))

	if err := c.persistActiveJar(ctx); err != nil {
		return result, err
	}

	previous, _ := c.CurrentAccount()
	c.unbind()

	target, err := c.accounts.GetByID(ctx, id)
	if errors.Is(err, domain.ErrAccountNotFound) {
		if previous.ID != "" {
			c.bind(previous.ID)
		}
		log.Warn("switch target not found")
		result.Outcome = domain.SwitchNotFound
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("resolve account: %w", err)
	}

	// From here the switch counts as started: the current account is the
	// target even if readiness or authentication later fails.
	c.setCurrent(target)

	jar, err := c.cookies.Load(ctx, target.ID)
	if err != nil {
		return result, fmt.Errorf("load cookies: %w", err)
	}
	if err := c.browser.SetCookies(ctx, jar); err != nil {
		return result, fmt.Errorf("set cookies: %w", err)
	}
	if err := c.browser.Reload(ctx); err != nil {
		return result, fmt.Errorf("reload: %w", err)
	}

	ready, err := c.browser.WaitForElementExists(ctx, c.opts.ReadySelector, c.opts.ReadyTimeout)
	if err != nil {
		return result, fmt.Errorf("wait for page: %w", err)
	}
	if !ready {
		log.Warn("page did not load in time", logger.Duration("timeout", c.opts.ReadyTimeout))
		result.Outcome = domain.SwitchTimeout
		return result, nil
	}

	authenticated, err := c.browser.WaitForElementExists(ctx, c.opts.IdentitySelector, c.opts.AuthTimeout)
	if err != nil {
		return result, fmt.Errorf("wait for identity: %w", err)
	}
	if !authenticated {
		log.Info("account not authenticated")
		result.Outcome = domain.SwitchNotAuthenticated
		return result, nil
	}

	observed, ok, err := c.ReadSiteIdentity(ctx)
	if err != nil {
		return result, err
	}
	result.ObservedSiteID = observed
	if !ok || (target.SiteID != "" && observed != target.SiteID) {
		log.Warn("site identity mismatch",
			logger.String("expected", target.SiteID),
			logger.String("observed", observed),
		)
		result.Outcome = domain.SwitchNotAuthenticated
		return result, nil
	}

	jar, err = c.browser.GetCookies(ctx)
	if err != nil {
		return result, fmt.Errorf("read cookies: %w", err)
	}
	if err := c.cookies.Save(ctx, target.ID, jar); err != nil {
		return result, fmt.Errorf("save cookies: %w", err)
	}

	if target.SiteID == "" {
		target.SiteID = observed
	}
	target.LastVisit = c.opts.Clock.Now().UTC()
	if avatar := c.readAvatar(ctx); avatar != "" {
		target.AvatarURL = avatar
	}
	if err := c.accounts.Save(ctx, target); err != nil {
		return result, fmt.Errorf("save account: %w", err)
	}

	c.setCurrent(target)
	c.bind(target.ID)
	c.emitAccountChanged(target)

	log.Info("switched account", logger.Int("cookies", len(jar)))
	result.Outcome = domain.SwitchSucceeded
	return result, nil
}

// persistActiveJar writes the engine jar back to the active account, but only
// when the page still authenticates as that account. An account that has no
// SiteID yet adopts the observed one.
func (c *SessionController) persistActiveJar(ctx context.Context) error {
	active, ok := c.CurrentAccount()
	if !ok {
		return nil
	}
	log := c.log.With(logger.String("account_id", string(active.ID)))

	observed, present, err := c.ReadSiteIdentity(ctx)
	if err != nil {
		return err
	}
	if !present {
		log.Debug("active account not authenticated, keeping stored cookies")
		return nil
	}

	stored, err := c.accounts.GetByID(ctx, active.ID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		log.Debug("active account removed, keeping stored cookies")
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve active account: %w", err)
	}

	switch stored.SiteID {
	case observed:
	case "":
		stored.SiteID = observed
		if err := c.accounts.Save(ctx, stored); err != nil {
			return fmt.Errorf("save account: %w", err)
		}
		c.setCurrent(stored)
	default:
		log.Warn("foreign session on active account, keeping stored cookies",
			logger.String("expected", stored.SiteID),
			logger.String("observed", observed),
		)
		return nil
	}

	jar, err := c.browser.GetCookies(ctx)
	if err != nil {
		return fmt.Errorf("read cookies: %w", err)
	}
	if err := c.cookies.Save(ctx, stored.ID, jar); err != nil {
		return fmt.Errorf("save cookies: %w", err)
	}
	return nil
}

// ReadSiteIdentity reads the identity marker without waiting. ok is false
// when the page shows no identity.
func (c *SessionController) ReadSiteIdentity(ctx context.Context) (string, bool, error) {
	if !c.browserInitialized() {
		return "", false, domain.ErrEngineNotInitialized
	}
	value, ok, err := c.browser.ExecuteScript(ctx, domquery.Attribute(c.opts.IdentitySelector, c.opts.IdentityAttribute))
	if err != nil {
		return "", false, fmt.Errorf("read site identity: %w", err)
	}
	if !ok || value == "" {
		return "", false, nil
	}
	return value, true, nil
}

func (c *SessionController) readAvatar(ctx context.Context) string {
	if c.opts.AvatarSelector == "" {
		return ""
	}
	value, ok, err := c.browser.ExecuteScript(ctx, domquery.Attribute(c.opts.AvatarSelector, "src"))
	if err != nil {
		c.log.Debug("avatar lookup failed", logger.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return value
}

// IsAuthorized reports whether the page currently shows an identity marker.
func (c *SessionController) IsAuthorized(ctx context.Context) bool {
	if !c.browserInitialized() {
		return false
	}
	found, err := c.browser.ElementExists(ctx, c.opts.IdentitySelector)
	if err != nil {
		c.log.Debug("authorization check failed", logger.Error(err))
		return false
	}
	return found
}

func (c *SessionController) CurrentAccount() (domain.Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return domain.Account{}, false
	}
	return *c.current, true
}

func (c *SessionController) State() domain.SwitchState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *SessionController) LastResult() (domain.SwitchResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastResult == nil {
		return domain.SwitchResult{}, false
	}
	return *c.lastResult, true
}

func (c *SessionController) Browser() ports.Browser {
	return c.browser
}

// OnAccountChanged registers fn for completed switches. The returned func
// removes the listener.
func (c *SessionController) OnAccountChanged(fn func(domain.Account)) func() {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.nextListenerID++
	id := c.nextListenerID
	c.changed[id] = fn
	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.changed, id)
	}
}

func (c *SessionController) OnAccountDataChanged(fn func(domain.AccountChange)) func() {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.nextListenerID++
	id := c.nextListenerID
	c.dataChanged[id] = fn
	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.dataChanged, id)
	}
}

// Close detaches the account subscription.
func (c *SessionController) Close() {
	c.unbind()
}

func (c *SessionController) bind(id domain.AccountID) {
	if c.feed == nil {
		return
	}
	unsubscribe := c.feed.Subscribe(id, c.handleAccountChange)

	c.mu.Lock()
	previous := c.unsubscribe
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	if previous != nil {
		previous()
	}
}

func (c *SessionController) unbind() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *SessionController) handleAccountChange(change domain.AccountChange) {
	c.mu.Lock()
	if c.current == nil || c.current.ID != change.Account.ID {
		c.mu.Unlock()
		return
	}
	updated := change.Account
	c.current = &updated
	c.mu.Unlock()

	c.listenersMu.Lock()
	listeners := make([]func(domain.AccountChange), 0, len(c.dataChanged))
	for _, fn := range c.dataChanged {
		listeners = append(listeners, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
}

func (c *SessionController) emitAccountChanged(account domain.Account) {
	c.listenersMu.Lock()
	listeners := make([]func(domain.Account), 0, len(c.changed))
	for _, fn := range c.changed {
		listeners = append(listeners, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(account)
	}
}

func (c *SessionController) setCurrent(account domain.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = &account
}

func (c *SessionController) setState(state domain.SwitchState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

func (c *SessionController) finishSwitch(result domain.SwitchResult, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastResult = &result
	if err != nil || !result.Succeeded() {
		c.state = domain.SwitchStateFailed
		return
	}
	c.state = domain.SwitchStateIdle
}

func (c *SessionController) browserInitialized() bool {
	if c.browser == nil {
		return false
	}
	if in, ok := c.browser.(initializer); ok {
		return in.Initialized()
	}
	return true
}
