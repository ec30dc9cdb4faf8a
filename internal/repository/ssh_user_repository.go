package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

// SSHUser is an operator allowed to open the SSH dashboard. The public key is
// stored in authorized_keys format; the fingerprint is the SHA256 form used
// for lookup during the handshake.
type SSHUser struct {
	ID          int64
	Username    string
	PublicKey   string
	Fingerprint string
	Active      bool
	LastLoginAt *time.Time
	CreatedAt   time.Time
}

type SSHUserRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSSHUserRepository(pool PgxPool, tracer trace.Tracer) *SSHUserRepository {
	return &SSHUserRepository{pool: pool, tracer: tracer}
}

func (r *SSHUserRepository) RunMigrations(ctx context.Context) error {
	_, err := r.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS ssh_users (
		     id BIGSERIAL PRIMARY KEY,
		     username TEXT NOT NULL UNIQUE,
		     public_key TEXT NOT NULL,
		     fingerprint TEXT NOT NULL UNIQUE,
		     active BOOLEAN NOT NULL DEFAULT TRUE,
		     last_login_at TIMESTAMPTZ,
		     created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		 )`)
	return err
}

// AddUser enrolls a public key, reactivating and replacing the key when the
// username already exists.
func (r *SSHUserRepository) AddUser(ctx context.Context, username, publicKey, fingerprint string) (int64, error) {
	_, span := r.tracer.Start(ctx, "ssh-user-repo.add-user")
	defer span.End()

	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO ssh_users (username, public_key, fingerprint)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (username) DO UPDATE
		 SET public_key = EXCLUDED.public_key,
		     fingerprint = EXCLUDED.fingerprint,
		     active = TRUE
		 RETURNING id`,
		username, publicKey, fingerprint,
	).Scan(&id)
	return id, err
}

// FindByFingerprint returns the active user owning the fingerprint, or nil
// when no such user exists.
func (r *SSHUserRepository) FindByFingerprint(ctx context.Context, fingerprint string) (*SSHUser, error) {
	_, span := r.tracer.Start(ctx, "ssh-user-repo.find-by-fingerprint")
	defer span.End()

	row := r.pool.QueryRow(ctx,
		`SELECT id, username, public_key, fingerprint, active, last_login_at, created_at
		 FROM ssh_users
		 WHERE fingerprint = $1 AND active = TRUE`,
		fingerprint,
	)

	var u SSHUser
	err := row.Scan(&u.ID, &u.Username, &u.PublicKey, &u.Fingerprint, &u.Active, &u.LastLoginAt, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *SSHUserRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	_, span := r.tracer.Start(ctx, "ssh-user-repo.update-last-login")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`UPDATE ssh_users SET last_login_at = NOW() WHERE id = $1`,
		userID,
	)
	return err
}
