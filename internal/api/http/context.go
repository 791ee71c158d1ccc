package http

import (
	"context"

	"viaje-seguro-partner/internal/domain"
)

type partnerKey struct{}

// WithPartner stores the authenticated partner in the request context.
func WithPartner(ctx context.Context, partner domain.Partner) context.Context {
	return context.WithValue(ctx, partnerKey{}, partner)
}

// PartnerFromContext returns the partner set by the auth middleware.
func PartnerFromContext(ctx context.Context) (domain.Partner, bool) {
	p, ok := ctx.Value(partnerKey{}).(domain.Partner)
	return p, ok && p.ID != ""
}
