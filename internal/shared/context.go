package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// PrincipalFromContext resolves the authenticated user ID for the request,
// or ErrNoPrincipal when the session carries no user.
func PrincipalFromContext(ctx context.Context) (int64, error) {
	sess := SessionFromContext(ctx)
	if sess == nil {
		return 0, ErrNoPrincipal
	}
	id, ok := sess.UserID()
	if !ok {
		return 0, ErrNoPrincipal
	}
	return id, nil
}
