package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubconnect/clubconnect/internal/core/domain"
)

const pgUniqueViolation = "23505"

// Schema is the profiles table this repository expects. A NULL role means
// the user has not chosen one yet.
const Schema = `CREATE TABLE IF NOT EXISTS profiles (
	id                text PRIMARY KEY,
	full_name         text NOT NULL DEFAULT '',
	avatar_url        text NOT NULL DEFAULT '',
	role              text,
	bio               text NOT NULL DEFAULT '',
	followed_club_ids text[] NOT NULL DEFAULT '{}',
	created_at        timestamptz NOT NULL DEFAULT now(),
	updated_at        timestamptz NOT NULL DEFAULT now()
)`

const profileColumns = `id, full_name, avatar_url, role, bio, followed_club_ids, created_at, updated_at`

type ProfileRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates the profiles table when it does not exist.
func (r *ProfileRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create profiles table: %w", err)
	}
	return nil
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("select profile: %w", err)
	}
	return p, nil
}

func (r *ProfileRepository) CreateIfAbsent(ctx context.Context, p *domain.Profile) (bool, error) {
	query := `INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	followed := p.FollowedClubIDs
	if followed == nil {
		followed = []string{}
	}
	tag, err := r.db.Exec(ctx, query,
		p.ID, p.FullName, p.AvatarURL, roleParam(p.Role), p.Bio, followed, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return false, domain.ErrProfileExists
		}
		return false, fmt.Errorf("insert profile: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// updateRoleQuery only matches rows whose stored role reads as unset, so
// an unknown spelling can still be replaced.
const updateRoleQuery = `UPDATE profiles SET role = $2, updated_at = $3
	WHERE id = $1 AND (role IS NULL OR NOT (lower(btrim(role)) = ANY($4)))
	RETURNING ` + profileColumns

func updateRoleArgs(userID string, role domain.Role, now time.Time) []any {
	return []any{userID, string(role), now, domain.RoleSpellings()}
}

func (r *ProfileRepository) UpdateRole(ctx context.Context, userID string, role domain.Role) (*domain.Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx, updateRoleQuery, updateRoleArgs(userID, role, r.now())...))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update role: %w", err)
	}

	if _, err := r.GetByUserID(ctx, userID); err != nil {
		return nil, err
	}
	return nil, domain.ErrRoleAlreadySet
}

func (r *ProfileRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var (
		p    domain.Profile
		role *string
	)
	if err := row.Scan(&p.ID, &p.FullName, &p.AvatarURL, &role, &p.Bio, &p.FollowedClubIDs, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if role != nil {
		// Rows written by older clients may carry legacy spellings.
		if r, err := domain.ParseRole(*role); err == nil {
			p.Role = r
		}
	}
	if p.FollowedClubIDs == nil {
		p.FollowedClubIDs = []string{}
	}
	return &p, nil
}

func roleParam(r domain.Role) *string {
	if !r.IsSet() {
		return nil
	}
	s := string(r)
	return &s
}
