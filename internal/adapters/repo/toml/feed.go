package toml

import (
	"sync"

	"github.com/bnema/browser-accounts-cli/internal/domain"
)

type subscriber struct {
	id uint64
	fn func(domain.AccountChange)
}

// feed fans out field changes to per-account subscribers and remembers the
// last known state of every account so external edits can be diffed.
type feed struct {
	mu       sync.Mutex
	nextID   uint64
	subs     map[domain.AccountID][]subscriber
	snapshot map[domain.AccountID]domain.Account
}

func newFeed() *feed {
	return &feed{
		subs:     map[domain.AccountID][]subscriber{},
		snapshot: map[domain.AccountID]domain.Account{},
	}
}

func (f *feed) subscribe(id domain.AccountID, fn func(domain.AccountChange)) func() {
	f.mu.Lock()
	f.nextID++
	subID := f.nextID
	f.subs[id] = append(f.subs[id], subscriber{id: subID, fn: fn})
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			current := f.subs[id]
			for i, s := range current {
				if s.id == subID {
					f.subs[id] = append(current[:i:i], current[i+1:]...)
					break
				}
			}
			if len(f.subs[id]) == 0 {
				delete(f.subs, id)
			}
		})
	}
}

func (f *feed) remember(account domain.Account) {
	f.mu.Lock()
	f.snapshot[account.ID] = account
	f.mu.Unlock()
}

type accountPair struct{ before, after domain.Account }

// reconcile diffs a freshly read account list against the snapshot, updates
// the snapshot and returns the pairs to publish.
func (f *feed) reconcile(accounts []domain.Account) []accountPair {
	f.mu.Lock()
	defer f.mu.Unlock()

	changed := make([]accountPair, 0)
	for _, account := range accounts {
		prev, ok := f.snapshot[account.ID]
		f.snapshot[account.ID] = account
		if ok {
			changed = append(changed, accountPair{before: prev, after: account})
		}
	}
	return changed
}

func (f *feed) publishAll(pairs []accountPair) {
	for _, p := range pairs {
		f.publish(p.before, p.after)
	}
}

func (f *feed) publish(before, after domain.Account) {
	fields := domain.ChangedFields(before, after)
	if len(fields) == 0 {
		return
	}

	f.mu.Lock()
	subs := append([]subscriber(nil), f.subs[after.ID]...)
	f.mu.Unlock()

	for _, field := range fields {
		for _, s := range subs {
			s.fn(domain.AccountChange{Account: after, Field: field})
		}
	}
}
