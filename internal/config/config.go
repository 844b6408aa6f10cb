package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".browser-accounts"
	envPrefix  = "BA"

	EngineRod    = "rod"
	EngineMemory = "memory"
)

const (
	KeyAccountsPath      = "accounts.path"
	KeyCookiesDir        = "cookies.dir"
	KeyBrowserEngine     = "browser.engine"
	KeyBrowserBin        = "browser.bin"
	KeyAllowedHost       = "browser.allowed_host"
	KeyStartURL          = "browser.start_url"
	KeyHeadless          = "browser.headless"
	KeyProfilesDir       = "browser.profiles_dir"
	KeyReadySelector     = "switch.ready_selector"
	KeyIdentitySelector  = "switch.identity_selector"
	KeyIdentityAttribute = "switch.identity_attribute"
	KeyAvatarSelector    = "switch.avatar_selector"
	KeyReadyTimeout      = "switch.ready_timeout"
	KeyAuthTimeout       = "switch.auth_timeout"
	KeyReauthInterval    = "reauth.interval"
	KeyReauthStaleAfter  = "reauth.stale_after"
	KeyShellVisible      = "shell.visible"
	KeyLogLevel          = "log.level"
	KeyLogPretty         = "log.pretty"
	KeyCleanupAttempts   = "cleanup.attempts"
	KeyCleanupBackoff    = "cleanup.backoff"
)

type Config struct {
	AccountsPath string
	CookiesDir   string

	Browser BrowserConfig
	Switch  SwitchConfig
	Reauth  ReauthConfig
	Cleanup CleanupConfig

	ShellVisible bool
	LogLevel     string
	LogPretty    bool
}

type BrowserConfig struct {
	Engine      string
	Bin         string
	AllowedHost string
	StartURL    string
	Headless    bool
	ProfilesDir string
}

type SwitchConfig struct {
	ReadySelector     string
	IdentitySelector  string
	IdentityAttribute string
	AvatarSelector    string
	ReadyTimeout      time.Duration
	AuthTimeout       time.Duration
}

type ReauthConfig struct {
	Interval   time.Duration
	StaleAfter time.Duration
}

type CleanupConfig struct {
	Attempts int
	Backoff  time.Duration
}

// Dir returns the directory holding config.toml and the default data paths.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, configDir), nil
}

// SetDefaults registers every default on cfg. Values already set explicitly
// on cfg take precedence.
func SetDefaults(cfg *viper.Viper, baseDir string) {
	cfg.SetDefault(KeyAccountsPath, filepath.Join(baseDir, "accounts.toml"))
	cfg.SetDefault(KeyCookiesDir, filepath.Join(baseDir, "cookies"))
	cfg.SetDefault(KeyBrowserEngine, EngineRod)
	cfg.SetDefault(KeyBrowserBin, "")
	cfg.SetDefault(KeyAllowedHost, "www.example.com")
	cfg.SetDefault(KeyStartURL, "https://www.example.com/")
	cfg.SetDefault(KeyHeadless, true)
	cfg.SetDefault(KeyProfilesDir, filepath.Join(baseDir, "profiles"))
	cfg.SetDefault(KeyReadySelector, "#global-nav")
	cfg.SetDefault(KeyIdentitySelector, "[data-site-id]")
	cfg.SetDefault(KeyIdentityAttribute, "data-site-id")
	cfg.SetDefault(KeyAvatarSelector, "img.profile-avatar")
	cfg.SetDefault(KeyReadyTimeout, 30*time.Second)
	cfg.SetDefault(KeyAuthTimeout, 5*time.Second)
	cfg.SetDefault(KeyReauthInterval, time.Minute)
	cfg.SetDefault(KeyReauthStaleAfter, 24*time.Hour)
	cfg.SetDefault(KeyShellVisible, false)
	cfg.SetDefault(KeyLogLevel, "info")
	cfg.SetDefault(KeyLogPretty, true)
	cfg.SetDefault(KeyCleanupAttempts, 5)
	cfg.SetDefault(KeyCleanupBackoff, 250*time.Millisecond)
}

// Load reads config.toml from baseDir (if present) and BA_* environment
// variables on top of the defaults.
func Load(cfg *viper.Viper, baseDir string) (Config, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	SetDefaults(cfg, baseDir)
	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(baseDir)
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	out := Config{
		AccountsPath: cfg.GetString(KeyAccountsPath),
		CookiesDir:   cfg.GetString(KeyCookiesDir),
		Browser: BrowserConfig{
			Engine:      strings.ToLower(strings.TrimSpace(cfg.GetString(KeyBrowserEngine))),
			Bin:         cfg.GetString(KeyBrowserBin),
			AllowedHost: strings.ToLower(strings.TrimSpace(cfg.GetString(KeyAllowedHost))),
			StartURL:    cfg.GetString(KeyStartURL),
			Headless:    cfg.GetBool(KeyHeadless),
			ProfilesDir: cfg.GetString(KeyProfilesDir),
		},
		Switch: SwitchConfig{
			ReadySelector:     cfg.GetString(KeyReadySelector),
			IdentitySelector:  cfg.GetString(KeyIdentitySelector),
			IdentityAttribute: cfg.GetString(KeyIdentityAttribute),
			AvatarSelector:    cfg.GetString(KeyAvatarSelector),
			ReadyTimeout:      cfg.GetDuration(KeyReadyTimeout),
			AuthTimeout:       cfg.GetDuration(KeyAuthTimeout),
		},
		Reauth: ReauthConfig{
			Interval:   cfg.GetDuration(KeyReauthInterval),
			StaleAfter: cfg.GetDuration(KeyReauthStaleAfter),
		},
		Cleanup: CleanupConfig{
			Attempts: cfg.GetInt(KeyCleanupAttempts),
			Backoff:  cfg.GetDuration(KeyCleanupBackoff),
		},
		ShellVisible: cfg.GetBool(KeyShellVisible),
		LogLevel:     cfg.GetString(KeyLogLevel),
		LogPretty:    cfg.GetBool(KeyLogPretty),
	}

	if err := out.Validate(); err != nil {
		return Config{}, err
	}

	return out, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.Browser.Engine {
	case EngineRod, EngineMemory:
	default:
		errs = append(errs, fmt.Errorf("%s: unsupported engine %q", KeyBrowserEngine, c.Browser.Engine))
	}

	if c.Browser.AllowedHost == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyAllowedHost))
	}
	if c.Browser.StartURL != "" {
		u, err := url.Parse(c.Browser.StartURL)
		if err != nil || !strings.EqualFold(u.Hostname(), c.Browser.AllowedHost) {
			errs = append(errs, fmt.Errorf("%s must point at %s", KeyStartURL, c.Browser.AllowedHost))
		}
	}

	if strings.TrimSpace(c.Switch.ReadySelector) == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyReadySelector))
	}
	if strings.TrimSpace(c.Switch.IdentitySelector) == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyIdentitySelector))
	}

	for key, d := range map[string]time.Duration{
		KeyReadyTimeout:     c.Switch.ReadyTimeout,
		KeyAuthTimeout:      c.Switch.AuthTimeout,
		KeyReauthInterval:   c.Reauth.Interval,
		KeyReauthStaleAfter: c.Reauth.StaleAfter,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", key, d))
		}
	}

	if c.Cleanup.Attempts < 1 {
		errs = append(errs, fmt.Errorf("%s must be >= 1, got %d", KeyCleanupAttempts, c.Cleanup.Attempts))
	}
	if c.Cleanup.Backoff < 0 {
		errs = append(errs, fmt.Errorf("%s must be >= 0, got %v", KeyCleanupBackoff, c.Cleanup.Backoff))
	}

	return errors.Join(errs...)
}
