package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/authtoken"
	"github.com/google/uuid"
)

// SessionService issues, resumes and revokes session tokens.
type SessionService struct {
	Users store.Users
	Key   []byte

	// TokenDuration is added to a token's expiration every time it is resumed.
	TokenDuration time.Duration
	// MaxLifetime, when non-zero, caps a resumed token at now + MaxLifetime.
	MaxLifetime time.Duration
	// SessionTTL is the lifetime of a token minted at login.
	SessionTTL time.Duration

	Now func() time.Time
}

// Session is a resumed session: the owner and the rotated token that must be
// sent back to the client.
type Session struct {
	User  domain.User
	Token authtoken.Token
}

func (s Session) Identity() domain.Identity {
	return domain.Identity{
		UserID:      s.User.ID,
		Email:       s.User.Email,
		TokenExpiry: s.Token.Expiration,
	}
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Issue mints a token for user valid for SessionTTL.
func (s *SessionService) Issue(user domain.User) (authtoken.Token, error) {
	tok, err := authtoken.New(user.Email, s.now().Add(s.SessionTTL), user.TokenSalt, s.Key)
	if err != nil {
		return authtoken.Token{}, fmt.Errorf("service: issue token: %w", err)
	}
	return tok, nil
}

// Resume validates a serialized token and returns its owner together with a
// re-signed token whose expiration has been pushed forward.
//
// Errors are ErrMalformedToken, ErrUnknownUser, ErrInvalidSignature,
// ErrSessionExpired, or a wrapped infrastructure error.
func (s *SessionService) Resume(ctx context.Context, raw string) (Session, error) {
	tok, err := authtoken.Parse(raw)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	user, err := s.Users.GetUserByEmail(ctx, tok.Identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrUnknownUser
		}
		return Session{}, fmt.Errorf("service: lookup session user: %w", err)
	}

	if err := tok.Verify(user.TokenSalt, s.Key); err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	now := s.now()
	if tok.Expired(now) {
		return Session{}, fmt.Errorf("%w: %w", ErrSessionExpired, authtoken.ErrExpired)
	}

	exp := tok.Expiration.Add(s.TokenDuration)
	if s.MaxLifetime > 0 {
		if ceiling := now.Add(s.MaxLifetime); exp.After(ceiling) {
			exp = ceiling
		}
	}

	rotated, err := authtoken.New(user.Email, exp, user.TokenSalt, s.Key)
	if err != nil {
		return Session{}, fmt.Errorf("service: re-sign token: %w", err)
	}

	return Session{User: user, Token: rotated}, nil
}

// RevokeAll rotates the user's salt so that no token issued so far verifies.
func (s *SessionService) RevokeAll(ctx context.Context, userID string) error {
	if err := s.Users.UpdateTokenSalt(ctx, userID, uuid.NewString()); err != nil {
		return fmt.Errorf("service: rotate token salt: %w", err)
	}
	return nil
}
