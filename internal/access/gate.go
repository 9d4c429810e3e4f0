// Package access implements the two stage request gate: authenticate the
// bearer credential, then optionally require the admin role.
package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hackgods/treatment-booking/internal/auth"
)

var (
	ErrUnauthenticated = errors.New("missing credential")
	ErrForbidden       = errors.New("forbidden access")
)

// Guard is the access level an endpoint requires.
type Guard int

const (
	Public Guard = iota
	Authenticated
	AdminOnly
)

func (g Guard) String() string {
	switch g {
	case Public:
		return "public"
	case Authenticated:
		return "authenticated"
	case AdminOnly:
		return "admin"
	default:
		return fmt.Sprintf("guard(%d)", int(g))
	}
}

// Principal is the identity proven by a verified credential.
type Principal struct {
	Email string
}

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type AdminChecker interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

type Gate struct {
	verifier TokenVerifier
	admins   AdminChecker
}

func NewGate(verifier TokenVerifier, admins AdminChecker) *Gate {
	return &Gate{verifier: verifier, admins: admins}
}

// Authenticate reads "<scheme> <token>". Only the position is significant, the
// scheme itself is not checked. A missing header is ErrUnauthenticated, any
// unusable token is ErrForbidden.
func (g *Gate) Authenticate(header string) (Principal, error) {
	if header == "" {
		return Principal{}, ErrUnauthenticated
	}

	parts := strings.Split(header, " ")
	if len(parts) < 2 || parts[1] == "" {
		return Principal{}, ErrForbidden
	}

	claims, err := g.verifier.Verify(parts[1])
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	return Principal{Email: claims.Email}, nil
}

// AuthorizeAdmin trusts only the authenticated email, never a client supplied one.
func (g *Gate) AuthorizeAdmin(ctx context.Context, p Principal) error {
	if p.Email == "" {
		return ErrForbidden
	}
	ok, err := g.admins.IsAdmin(ctx, p.Email)
	if err != nil {
		return fmt.Errorf("check admin role: %w", err)
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// Check runs the stages guard requires, in order.
func (g *Gate) Check(ctx context.Context, guard Guard, header string) (Principal, error) {
	if guard == Public {
		return Principal{}, nil
	}

	p, err := g.Authenticate(header)
	if err != nil {
		return Principal{}, err
	}

	if guard == AdminOnly {
		if err := g.AuthorizeAdmin(ctx, p); err != nil {
			return Principal{}, err
		}
	}
	return p, nil
}
