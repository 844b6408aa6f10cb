package memory

import (
	"github.com/bnema/browser-accounts-cli/internal/domain"
)

// SessionSite renders a page that always carries the ready marker and, when
// the jar holds the session cookie, an identity element whose attribute is
// the cookie value.
type SessionSite struct {
	ReadySelector     string
	IdentitySelector  string
	IdentityAttribute string
	AvatarSelector    string
	SessionCookie     string
	// Offline suppresses the ready marker, simulating a page that never loads.
	Offline bool
}

const DefaultSessionCookie = "session"

func (s SessionSite) Render(_ string, jar []domain.Cookie) Page {
	page := Page{}
	if s.Offline {
		return page
	}
	page[s.ReadySelector] = Element{}

	cookieName := s.SessionCookie
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	for _, cookie := range jar {
		if cookie.Name != cookieName || cookie.Value == "" {
			continue
		}
		page[s.IdentitySelector] = Element{s.IdentityAttribute: cookie.Value}
		if s.AvatarSelector != "" {
			page[s.AvatarSelector] = Element{"src": "https://cdn.example.com/avatars/" + cookie.Value + ".png"}
		}
		break
	}
	return page
}
