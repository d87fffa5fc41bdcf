package auth

import "context"

type contextKey string

const userKey contextKey = "authUser"

const (
	// ScopeControl may read and change the radio.
	ScopeControl = "control"
	// ScopeRead may only read.
	ScopeRead = "read"
)

// User represents an authenticated bridge client.
type User struct {
	Sub   string
	Scope string
}

// CanControl reports whether the user may change device state.
func (u User) CanControl() bool {
	return u.Scope == ScopeControl
}

// WithUser stores an authenticated user in the context.
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, if present.
func UserFromContext(ctx context.Context) (User, bool) {
	if ctx == nil {
		return User{}, false
	}
	value := ctx.Value(userKey)
	if value == nil {
		return User{}, false
	}
	user, ok := value.(User)
	return user, ok
}
