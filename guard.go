package identity

import (
	"context"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// MembershipFinder resolves the membership of an account in a team.
type MembershipFinder interface {
	Find(ctx context.Context, teamID, accountID uuid.UUID) (*TeamMembership, error)
}

// RequireTeamRole guards team scoped routes. Routes without a :teamId
// parameter pass through untouched. For team scoped routes the caller
// must hold a membership whose role is in the allowed set; every lookup
// or parse failure denies access rather than letting the request through.
func RequireTeamRole(finder MembershipFinder, contextKey string, roles ...TeamRole) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			rawTeamID := ctx.Param("teamId", "")
			if rawTeamID == "" {
				return next(ctx)
			}

			teamID, err := uuid.Parse(rawTeamID)
			if err != nil {
				return respondError(ctx, ErrNotTeamMember)
			}

			claims, ok := GetRouterClaims(ctx, contextKey)
			if !ok {
				return respondError(ctx, ErrNotTeamMember)
			}

			accountID, err := uuid.Parse(claims.UserID())
			if err != nil {
				return respondError(ctx, ErrNotTeamMember)
			}

			membership, err := finder.Find(ctx.Context(), teamID, accountID)
			if err != nil || membership == nil {
				return respondError(ctx, ErrNotTeamMember)
			}

			if len(roles) > 0 && !membership.Role.In(roles...) {
				return respondError(ctx, ErrInsufficientRole)
			}

			return next(ctx)
		}
	}
}
