package domain

type SameSite string

const (
	SameSiteUnspecified SameSite = ""
	SameSiteStrict      SameSite = "Strict"
	SameSiteLax         SameSite = "Lax"
	SameSiteNone        SameSite = "None"
)

// Cookie mirrors one entry of an engine cookie jar. Expires is seconds since
// the Unix epoch; zero or negative means a session cookie.
type Cookie struct {
	Name       string   `json:"Name"`
	Value      string   `json:"Value"`
	Domain     string   `json:"Domain"`
	Path       string   `json:"Path"`
	Expires    float64  `json:"Expires"`
	IsHTTPOnly bool     `json:"IsHttpOnly"`
	IsSecure   bool     `json:"IsSecure"`
	SameSite   SameSite `json:"SameSite"`
}

func (c Cookie) IsSession() bool {
	return c.Expires <= 0
}

func CloneJar(jar []Cookie) []Cookie {
	if jar == nil {
		return []Cookie{}
	}
	out := make([]Cookie, len(jar))
	copy(out, jar)
	return out
}
