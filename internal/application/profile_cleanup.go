package application

import (
	"os"
	"time"

	"github.com/bnema/browser-accounts-cli/internal/logger"
)

const (
	DefaultCleanupAttempts = 5
	DefaultCleanupBackoff  = 250 * time.Millisecond
	maxCleanupBackoff      = 5 * time.Second
)

// cleanupPolicy removes a profile directory with exponential backoff. The
// browser process may hold files briefly after it has been closed.
type cleanupPolicy struct {
	attempts  int
	backoff   time.Duration
	removeAll func(string) error
	sleep     func(time.Duration)
	log       logger.Logger
}

func newCleanupPolicy(attempts int, backoff time.Duration, log logger.Logger) cleanupPolicy {
	if attempts <= 0 {
		attempts = DefaultCleanupAttempts
	}
	if backoff <= 0 {
		backoff = DefaultCleanupBackoff
	}
	return cleanupPolicy{
		attempts:  attempts,
		backoff:   backoff,
		removeAll: os.RemoveAll,
		sleep:     time.Sleep,
		log:       log,
	}
}

// run reports whether the directory is gone. Failures are logged only.
func (p cleanupPolicy) run(dir string) bool {
	wait := p.backoff
	var lastErr error

	for attempt := 1; attempt <= p.attempts; attempt++ {
		lastErr = p.removeAll(dir)
		if lastErr == nil {
			if attempt > 1 {
				p.log.Info("profile directory removed after retry",
					logger.String("dir", dir),
					logger.Int("attempts", attempt))
			} else {
				p.log.Debug("profile directory removed", logger.String("dir", dir))
			}
			return true
		}
		if attempt == p.attempts {
			break
		}

		p.log.Warn("profile directory cleanup failed, retrying",
			logger.String("dir", dir),
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", wait),
			logger.Error(lastErr))
		p.sleep(wait)

		wait *= 2
		if wait > maxCleanupBackoff {
			wait = maxCleanupBackoff
		}
	}

	p.log.Error("profile directory left behind",
		logger.String("dir", dir),
		logger.Int("attempts", p.attempts),
		logger.Error(lastErr))
	return false
}
