package middleware

import (
	"context"

	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/models"
)

type contextkey string

const (
	userKey    contextkey = "user"
	sessionKey contextkey = "session"
)

func contextSetSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// contextGetSession retrieves the browser session from request context.
// Returns nil if the session middleware did not run.
func contextGetSession(ctx context.Context) *models.Session {
	val := ctx.Value(sessionKey)
	session, ok := val.(*models.Session)
	if !ok {
		return nil
	}
	return session
}

func contextSetUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// contextGetUser retrieves the signed-in user from request context.
// Returns nil for anonymous requests.
func contextGetUser(ctx context.Context) *models.User {
	val := ctx.Value(userKey)
	user, ok := val.(*models.User)
	if !ok {
		return nil
	}
	return user
}
