package http

import (
	"context"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
)

type ctxKeyIdentity struct{}

func withIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, id)
}

// IdentityFromContext returns the caller attached by Authenticate, if any.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity{}).(domain.Identity)
	return id, ok
}
