package middleware

import (
	"net/http"

	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/models"
)

// CookieSession is the name of the session cookie.
const CookieSession = "session"

type SessionMiddleware struct {
	sessionService *models.SessionService
	userService    *models.UserService
	cookieName     string
	secureCookies  bool
}

func NewSessionMiddleware(sessionService *models.SessionService, userService *models.UserService, secureCookies bool) *SessionMiddleware {
	return &SessionMiddleware{
		sessionService: sessionService,
		userService:    userService,
		cookieName:     CookieSession,
		secureCookies:  secureCookies,
	}
}

// EnsureSession gives every visitor a browser session. A valid cookie
// resolves the existing session; anything else starts a fresh
// anonymous one. If the session is bound to an account the user is
// loaded into context as well.
// This middleware should run on ALL routes. It never blocks a request.
func (m *SessionMiddleware) EnsureSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var session *models.Session

		cookie, err := r.Cookie(m.cookieName)
		if err == nil {
			session, err = m.sessionService.ByToken(r.Context(), cookie.Value)
			if err != nil {
				// Expired or unknown token - fall through and start over
				session = nil
			}
		}

		if session == nil {
			session, err = m.sessionService.Create(r.Context())
			if err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			m.setSessionCookie(w, session.Token)
		}

		ctx := contextSetSession(r.Context(), session)

		// Load the bound account, if any
		if session.UserID != nil {
			user, err := m.userService.ByID(ctx, *session.UserID)
			if err == nil {
				ctx = contextSetUser(ctx, user)
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser ensures the request comes from a signed-in user.
// Anonymous visitors get redirected to the signin page.
func (m *SessionMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := contextGetUser(r.Context())
		if user == nil {
			// Store the original URL to redirect back after login
			redirectURL := "/signin"
			if r.URL.Path != "/" {
				redirectURL = "/signin?redirect=" + r.URL.Path
			}
			http.Redirect(w, r, redirectURL, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireNoUser ensures the request is NOT from a signed-in user.
// Useful for signin/signup pages that make no sense once logged in.
func (m *SessionMiddleware) RequireNoUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := contextGetUser(r.Context())
		if user != nil {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *SessionMiddleware) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.sessionService.SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   m.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// HELPER FUNCS --------------------------------------------

// CurrentSession returns the browser session from any handler.
// Returns nil only when EnsureSession did not run.
func CurrentSession(r *http.Request) *models.Session {
	return contextGetSession(r.Context())
}

// MustCurrentSession is like CurrentSession but panics without one.
// Only use this in handlers behind EnsureSession.
func MustCurrentSession(r *http.Request) *models.Session {
	session := contextGetSession(r.Context())
	if session == nil {
		panic("MustCurrentSession called without EnsureSession middleware")
	}
	return session
}

// CurrentUser returns the signed-in user from any handler.
// Returns nil if not authenticated.
func CurrentUser(r *http.Request) *models.User {
	return contextGetUser(r.Context())
}

// MustCurrentUser is like CurrentUser but panics if no user is found.
// Only use this in handlers protected by RequireUser middleware.
func MustCurrentUser(r *http.Request) *models.User {
	user := contextGetUser(r.Context())
	if user == nil {
		panic("MustCurrentUser called without RequireUser middleware")
	}
	return user
}
