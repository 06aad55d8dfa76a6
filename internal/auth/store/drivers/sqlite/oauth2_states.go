package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
)

type oauth2StatesRepo struct {
	q dbtx
}

const stateColumns = `id, csrf_state, code_verifier, return_url, created_at`

func (r *oauth2StatesRepo) CreateState(ctx context.Context, s domain.OAuth2State) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO oauth2_states (id, csrf_state, code_verifier, return_url, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.CSRFState, s.CodeVerifier, s.ReturnURL, toMillis(s.CreatedAt),
	)
	return mapUniqueViolation(err)
}

func (r *oauth2StatesRepo) GetState(ctx context.Context, csrfState string) (domain.OAuth2State, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+stateColumns+` FROM oauth2_states WHERE csrf_state = ?`, csrfState)
	return scanState(row)
}

// ConsumeState relies on DELETE ... RETURNING so the read and the delete are
// a single statement; two callbacks racing on one state cannot both win.
func (r *oauth2StatesRepo) ConsumeState(ctx context.Context, csrfState string) (domain.OAuth2State, error) {
	row := r.q.QueryRowContext(ctx,
		`DELETE FROM oauth2_states WHERE csrf_state = ? RETURNING `+stateColumns, csrfState)
	return scanState(row)
}

func (r *oauth2StatesRepo) DeleteExpiredStates(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM oauth2_states WHERE created_at < ?`, toMillis(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanState(row rowScanner) (domain.OAuth2State, error) {
	var (
		s       domain.OAuth2State
		created int64
	)
	if err := row.Scan(&s.ID, &s.CSRFState, &s.CodeVerifier, &s.ReturnURL, &created); err != nil {
		return domain.OAuth2State{}, mapNotFound(err)
	}
	s.CreatedAt = fromMillis(created)
	return s, nil
}
