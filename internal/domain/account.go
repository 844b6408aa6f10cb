package domain

import (
	"strings"
	"time"
)

type AccountID string

type Account struct {
	ID        AccountID
	Name      string
	SiteID    string
	LastVisit time.Time
	AvatarURL string
}

func (a Account) DisplayName() string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	return string(a.ID)
}

// IsStale reports whether the account has not been visited within maxAge.
// An account that was never visited is always stale.
func (a Account) IsStale(now time.Time, maxAge time.Duration) bool {
	if a.LastVisit.IsZero() {
		return true
	}

	if maxAge <= 0 {
		return false
	}

	return now.Sub(a.LastVisit) > maxAge
}

type AccountField string

const (
	AccountFieldName   AccountField = "name"
	AccountFieldAvatar AccountField = "avatar"
	AccountFieldSiteID AccountField = "site_id"
)

type AccountChange struct {
	Account Account
	Field   AccountField
}

// ChangedFields lists the watched fields that differ between before and after.
func ChangedFields(before, after Account) []AccountField {
	fields := make([]AccountField, 0, 3)
	if before.Name != after.Name {
		fields = append(fields, AccountFieldName)
	}
	if before.AvatarURL != after.AvatarURL {
		fields = append(fields, AccountFieldAvatar)
	}
	if before.SiteID != after.SiteID {
		fields = append(fields, AccountFieldSiteID)
	}
	return fields
}
