package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/authtoken"
	"github.com/aussiebroadwan/gatekeeper/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newSessionFixture(t *testing.T) (*service.SessionService, domain.User, *clock) {
	t.Helper()
	st := newStore(t)
	clk := newClock()

	user := domain.User{ID: idx.New(), Email: "alice@example.com", TokenSalt: "salt-1"}
	require.NoError(t, st.Users().CreateUser(context.Background(), user))

	return &service.SessionService{
		Users:         st.Users(),
		Key:           testKey,
		TokenDuration: time.Hour,
		SessionTTL:    24 * time.Hour,
		Now:           clk.Now,
	}, user, clk
}

func TestSessionIssue(t *testing.T) {
	svc, user, clk := newSessionFixture(t)

	tok, err := svc.Issue(user)
	require.NoError(t, err)
	require.Equal(t, user.Email, tok.Identifier)
	require.Equal(t, clk.Now().Add(24*time.Hour), tok.Expiration)
	require.NoError(t, tok.Verify(user.TokenSalt, testKey))
}

func TestSessionResume(t *testing.T) {
	ctx := context.Background()
	svc, user, clk := newSessionFixture(t)
	now := clk.Now()

	mint := func(t *testing.T, email, salt string, exp time.Time, key []byte) string {
		t.Helper()
		tok, err := authtoken.New(email, exp, salt, key)
		require.NoError(t, err)
		return tok.String()
	}

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{name: "garbage", raw: "not-a-token", wantErr: service.ErrMalformedToken},
		{name: "bad base64", raw: "!!.!!.sig", wantErr: service.ErrMalformedToken},
		{name: "unknown user", raw: mint(t, "bob@example.com", "salt-1", now.Add(time.Hour), testKey), wantErr: service.ErrUnknownUser},
		{name: "wrong salt", raw: mint(t, user.Email, "salt-2", now.Add(time.Hour), testKey), wantErr: service.ErrInvalidSignature},
		{name: "wrong key", raw: mint(t, user.Email, user.TokenSalt, now.Add(time.Hour), []byte("other-key")), wantErr: service.ErrInvalidSignature},
		{name: "expires now", raw: mint(t, user.Email, user.TokenSalt, now, testKey), wantErr: service.ErrSessionExpired},
		{name: "expired a second ago", raw: mint(t, user.Email, user.TokenSalt, now.Add(-time.Second), testKey), wantErr: service.ErrSessionExpired},
		{name: "valid for one more second", raw: mint(t, user.Email, user.TokenSalt, now.Add(time.Second), testKey)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := svc.Resume(ctx, tt.raw)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, user.ID, sess.User.ID)
		})
	}
}

func TestSessionResumeRotates(t *testing.T) {
	ctx := context.Background()
	svc, user, clk := newSessionFixture(t)

	exp := clk.Now().Add(10 * time.Minute)
	tok, err := authtoken.New(user.Email, exp, user.TokenSalt, testKey)
	require.NoError(t, err)

	sess, err := svc.Resume(ctx, tok.String())
	require.NoError(t, err)
	require.Equal(t, exp.Add(time.Hour), sess.Token.Expiration)
	require.NoError(t, sess.Token.Verify(user.TokenSalt, testKey))

	id := sess.Identity()
	require.Equal(t, user.ID, id.UserID)
	require.Equal(t, user.Email, id.Email)
	require.Equal(t, sess.Token.Expiration, id.TokenExpiry)

	t.Run("rotated token resumes again", func(t *testing.T) {
		again, err := svc.Resume(ctx, sess.Token.String())
		require.NoError(t, err)
		require.True(t, again.Token.Expiration.After(sess.Token.Expiration))
	})
}

func TestSessionResumeMaxLifetime(t *testing.T) {
	ctx := context.Background()
	svc, user, clk := newSessionFixture(t)
	svc.MaxLifetime = 30 * time.Minute

	tok, err := authtoken.New(user.Email, clk.Now().Add(20*time.Minute), user.TokenSalt, testKey)
	require.NoError(t, err)

	sess, err := svc.Resume(ctx, tok.String())
	require.NoError(t, err)
	require.Equal(t, clk.Now().Add(30*time.Minute), sess.Token.Expiration)
}

func TestSessionRevokeAll(t *testing.T) {
	ctx := context.Background()
	svc, user, _ := newSessionFixture(t)

	tok, err := svc.Issue(user)
	require.NoError(t, err)

	_, err = svc.Resume(ctx, tok.String())
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAll(ctx, user.ID))

	_, err = svc.Resume(ctx, tok.String())
	require.ErrorIs(t, err, service.ErrInvalidSignature)

	require.Error(t, svc.RevokeAll(ctx, "missing"))
}
