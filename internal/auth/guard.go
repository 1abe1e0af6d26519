package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
)

// Principal represents the authenticated caller.
type Principal struct {
	User domain.User
}

// Email returns the caller's email.
func (p *Principal) Email() string { return p.User.Email }

// Role returns the caller's stored role.
func (p *Principal) Role() domain.Role { return p.User.Role }

// Guard resolves bearer tokens to principals. The user collection is read on
// every call so deleted or changed users take effect immediately.
type Guard struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewGuard constructs a guard.
func NewGuard(tokens *TokenManager, users repository.UserRepository) *Guard {
	return &Guard{tokens: tokens, users: users}
}

// Authenticate verifies the token and loads the user named by its subject.
// Every token failure and an unknown subject collapse to
// domain.ErrUnauthenticated.
func (g *Guard) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthenticated)
	}
	claims, err := g.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", domain.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthenticated)
	}
	user, err := g.users.GetByEmail(ctx, claims.Email())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthenticated)
		}
		return nil, err
	}
	return &Principal{User: *user}, nil
}

// Require authenticates and then checks the role.
func (g *Guard) Require(ctx context.Context, token string, role domain.Role) (*Principal, error) {
	principal, err := g.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := CheckRole(principal, role); err != nil {
		return nil, err
	}
	return principal, nil
}

// CheckRole fails with domain.ErrForbidden unless the principal holds
// exactly role.
func CheckRole(principal *Principal, role domain.Role) error {
	if principal == nil {
		return fmt.Errorf("%w: missing principal", domain.ErrUnauthenticated)
	}
	if principal.User.Role != role {
		return fmt.Errorf("%w: %s role required", domain.ErrForbidden, role)
	}
	return nil
}
