package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
)

type oauth2StatesRepo struct {
	q dbtx
}

func (r *oauth2StatesRepo) CreateState(ctx context.Context, s domain.OAuth2State) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	query :=
		`INSERT INTO oauth2_states (id, csrf_state, code_verifier, return_url, created_at)
		 VALUES ($1, $2, $3, $4, $5)`

	_, err := r.q.ExecContext(ctx, query, s.ID, s.CSRFState, s.CodeVerifier, s.ReturnURL, s.CreatedAt)
	return mapError(err)
}

func (r *oauth2StatesRepo) GetState(ctx context.Context, csrfState string) (domain.OAuth2State, error) {
	query :=
		`SELECT id, csrf_state, code_verifier, return_url, created_at FROM oauth2_states
		 WHERE csrf_state = $1`

	var s domain.OAuth2State
	err := r.q.QueryRowContext(ctx, query, csrfState).
		Scan(&s.ID, &s.CSRFState, &s.CodeVerifier, &s.ReturnURL, &s.CreatedAt)
	return s, mapError(err)
}

func (r *oauth2StatesRepo) ConsumeState(ctx context.Context, csrfState string) (domain.OAuth2State, error) {
	query :=
		`DELETE FROM oauth2_states
		 WHERE csrf_state = $1
		 RETURNING id, csrf_state, code_verifier, return_url, created_at`

	var s domain.OAuth2State
	err := r.q.QueryRowContext(ctx, query, csrfState).
		Scan(&s.ID, &s.CSRFState, &s.CodeVerifier, &s.ReturnURL, &s.CreatedAt)
	return s, mapError(err)
}

func (r *oauth2StatesRepo) DeleteExpiredStates(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM oauth2_states WHERE created_at < $1`, before)
	if err != nil {
		return 0, mapError(err)
	}
	return res.RowsAffected()
}
