package server

import (
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jrsteele09/go-identity-server/store"
	"github.com/jrsteele09/go-identity-server/users"
)

const sessionCookieName = "idsvr.session"

// SessionManager resolves and establishes the browser sign-in session the
// authorize endpoint runs against. Login UI itself lives outside this server;
// anything able to call SignIn (the external callback, or an embedding
// application) can establish a session.
type SessionManager interface {
	// Subject returns the signed-in subject for the request, or nil when the
	// request carries no live session.
	Subject(r *http.Request) (*users.Principal, error)

	// SignIn establishes a session for the principal on the response.
	SignIn(w http.ResponseWriter, r *http.Request, principal *users.Principal) error
}

// MemorySessions is a cookie-referenced in-memory session store. Session state
// never leaves the server; the cookie carries only an opaque handle.
type MemorySessions struct {
	cache    *gocache.Cache
	lifetime time.Duration
	secure   bool
}

func NewMemorySessions(lifetime time.Duration, secureCookies bool) *MemorySessions {
	return &MemorySessions{
		cache:    gocache.New(lifetime, lifetime/2),
		lifetime: lifetime,
		secure:   secureCookies,
	}
}

func (m *MemorySessions) Subject(r *http.Request) (*users.Principal, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	entry, found := m.cache.Get(cookie.Value)
	if !found {
		return nil, nil
	}
	principal := entry.(users.Principal)
	return &principal, nil
}

func (m *MemorySessions) SignIn(w http.ResponseWriter, r *http.Request, principal *users.Principal) error {
	handle := store.NewHandle()
	m.cache.Set(handle, *principal, m.lifetime)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    handle,
		Path:     "/",
		MaxAge:   int(m.lifetime.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
