package auth

import (
	"context"
	"errors"
)

// Role of an authenticated user.
type Role string

const (
	RoleSiswa Role = "siswa"
	RoleGuru  Role = "guru"
	RoleAdmin Role = "admin"
)

// ErrUnknownRole is returned for roles outside siswa, guru and admin.
var ErrUnknownRole = errors.New("unknown role")

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSiswa, RoleGuru, RoleAdmin:
		return true
	}
	return false
}

// Session identifies the caller of a request. For students Subject is the
// student id.
type Session struct {
	Subject string
	Role    Role
}

// Allow reports whether s may act with the required role. Admins may act as any role.
func Allow(s Session, required Role) bool {
	if s.Subject == "" || !s.Role.Valid() {
		return false
	}
	return s.Role == RoleAdmin || s.Role == required
}

type sessionKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored in ctx, if any.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
