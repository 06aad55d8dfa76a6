package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/authtoken"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/idx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// IdentityProvider is the OAuth2 provider the login flow delegates to.
type IdentityProvider interface {
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	UserInfo(ctx context.Context, tok *oauth2.Token) (domain.UserInfo, error)
}

// LoginService runs the authorization-code + PKCE login flow.
type LoginService struct {
	Store    store.Store
	States   store.OAuth2States
	Provider IdentityProvider
	Sessions *SessionService

	// Sealer encrypts PKCE verifiers while they sit in the state store.
	Sealer     *cryptox.Sealer
	ReturnURLs ReturnURLValidator

	// StateTTL bounds how long a login may take between Begin and Complete.
	StateTTL time.Duration

	Now func() time.Time
}

// LoginResult is a completed login.
type LoginResult struct {
	User      domain.User
	Token     authtoken.Token
	ReturnURL string
}

func (s *LoginService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Begin records a new login attempt and returns the provider URL the browser
// must be sent to.
func (s *LoginService) Begin(ctx context.Context, rawReturnURL string) (string, error) {
	returnURL := s.ReturnURLs.Resolve(rawReturnURL)

	csrf, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("service: generate csrf state: %w", err)
	}

	verifier := oauth2.GenerateVerifier()
	sealed, err := s.Sealer.Seal(verifier, csrf)
	if err != nil {
		return "", fmt.Errorf("service: seal verifier: %w", err)
	}

	now := s.now()
	state := domain.OAuth2State{
		ID:           idx.NewAt(now),
		CSRFState:    csrf,
		CodeVerifier: sealed,
		ReturnURL:    returnURL,
		CreatedAt:    now,
	}
	if err := s.States.CreateState(ctx, state); err != nil {
		return "", fmt.Errorf("service: persist oauth2 state: %w", err)
	}

	slogx.FromContext(ctx).Debug("login started",
		"state_id", state.ID,
		"return_url", returnURL,
	)

	return s.Provider.AuthCodeURL(csrf, verifier), nil
}

// Complete finishes a login from the provider's callback parameters. The
// state is consumed whatever the outcome, so a callback can never be replayed.
func (s *LoginService) Complete(ctx context.Context, code, csrf string) (LoginResult, error) {
	state, err := s.States.ConsumeState(ctx, csrf)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrStateNotFound
		}
		return LoginResult{}, fmt.Errorf("service: consume oauth2 state: %w", err)
	}

	if state.Expired(s.now(), s.StateTTL) {
		return LoginResult{}, fmt.Errorf("%w: expired", ErrStateNotFound)
	}
	if subtle.ConstantTimeCompare([]byte(state.CSRFState), []byte(csrf)) != 1 {
		return LoginResult{}, ErrCSRFMismatch
	}

	verifier, err := s.Sealer.Open(state.CodeVerifier, state.CSRFState)
	if err != nil {
		return LoginResult{}, fmt.Errorf("service: open verifier: %w", err)
	}

	tok, err := s.Provider.Exchange(ctx, code, verifier)
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: %w", ErrCodeExchange, err)
	}

	info, err := s.Provider.UserInfo(ctx, tok)
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: %w", ErrUserInfo, err)
	}

	email := strings.ToLower(strings.TrimSpace(info.Email))
	if email == "" || !info.VerifiedEmail {
		return LoginResult{}, ErrEmailNotVerified
	}

	user, err := s.findOrCreateUser(ctx, email)
	if err != nil {
		return LoginResult{}, err
	}

	session, err := s.Sessions.Issue(user)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{User: user, Token: session, ReturnURL: state.ReturnURL}, nil
}

// findOrCreateUser provisions an account on first login.
func (s *LoginService) findOrCreateUser(ctx context.Context, email string) (domain.User, error) {
	var user domain.User

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.Users().GetUserByEmail(ctx, email)
		if err == nil {
			user = existing
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		now := s.now()
		user = domain.User{
			ID:        idx.NewAt(now),
			Email:     email,
			TokenSalt: uuid.NewString(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			return err
		}

		slogx.FromContext(ctx).Info("user provisioned", "user_id", user.ID)
		return nil
	})

	// A concurrent first login for the same address won the insert.
	if errors.Is(err, store.ErrAlreadyExists) {
		return s.Store.Users().GetUserByEmail(ctx, email)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("service: find or create user: %w", err)
	}
	return user, nil
}
