package domain

import "fmt"

type SwitchOutcome int

const (
	SwitchSucceeded SwitchOutcome = iota
	SwitchNotFound
	SwitchTimeout
	SwitchNotAuthenticated
)

func (o SwitchOutcome) String() string {
	switch o {
	case SwitchSucceeded:
		return "succeeded"
	case SwitchNotFound:
		return "not_found"
	case SwitchTimeout:
		return "timeout"
	case SwitchNotAuthenticated:
		return "not_authenticated"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type SwitchResult struct {
	AccountID AccountID
	Outcome   SwitchOutcome
	// ObservedSiteID is the identity read from the page, empty when no
	// identity marker was present.
	ObservedSiteID string
}

func (r SwitchResult) Succeeded() bool {
	return r.Outcome == SwitchSucceeded
}

// Err converts the expected failure outcomes into sentinel errors for callers
// that surface switch failures as errors. NotAuthenticated is not an error.
func (r SwitchResult) Err() error {
	switch r.Outcome {
	case SwitchNotFound:
		return fmt.Errorf("switch to %q: %w", r.AccountID, ErrAccountNotFound)
	case SwitchTimeout:
		return fmt.Errorf("switch to %q: %w", r.AccountID, ErrPageLoadTimeout)
	default:
		return nil
	}
}

type SwitchState int

const (
	SwitchStateIdle SwitchState = iota
	SwitchStateSwitching
	SwitchStateFailed
)

func (s SwitchState) String() string {
	switch s {
	case SwitchStateIdle:
		return "idle"
	case SwitchStateSwitching:
		return "switching"
	case SwitchStateFailed:
		return "switch_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
