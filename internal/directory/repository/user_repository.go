package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chat_platform/internal/directory/domain"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var (
	// ErrUserNotFound no user row matched an update
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicate unique constraint violated (token identifier or username)
	ErrDuplicate = errors.New("duplicate user")
)

// UserRepository definition get user info. Lookups return (nil, nil) when absent.
type UserRepository interface {
	Migrate(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.User, error)
	FindByToken(ctx context.Context, tokenIdentifier string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	FindOnline(ctx context.Context) ([]domain.User, error)
	FindAllExcept(ctx context.Context, id string) ([]domain.User, error)
	UpdateProfile(ctx context.Context, id string, p domain.ProfileInput) error
	UpdateImage(ctx context.Context, tokenIdentifier, image string) error
	SetOnline(ctx context.Context, tokenIdentifier string, online bool) error
	SearchByName(ctx context.Context, term string, limit int) ([]domain.User, error)
	SearchByUsername(ctx context.Context, term string, limit int) ([]domain.User, error)
}

const userColumns = `id, token_identifier, name, email, image, image_storage_id, is_online, username,
	instagram_handle, tiktok_handle, youtube_handle, tags, gender, preferred_gender, created_at`

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id               TEXT PRIMARY KEY,
	token_identifier TEXT NOT NULL UNIQUE,
	name             TEXT NOT NULL DEFAULT '',
	email            TEXT NOT NULL DEFAULT '',
	image            TEXT NOT NULL DEFAULT '',
	image_storage_id TEXT,
	is_online        BOOLEAN NOT NULL DEFAULT FALSE,
	username         TEXT NOT NULL,
	instagram_handle TEXT NOT NULL DEFAULT '',
	tiktok_handle    TEXT NOT NULL DEFAULT '',
	youtube_handle   TEXT NOT NULL DEFAULT '',
	tags             TEXT[] NOT NULL DEFAULT '{}',
	gender           TEXT NOT NULL DEFAULT 'prefer not to say',
	preferred_gender TEXT NOT NULL DEFAULT 'all genders',
	created_at       BIGINT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_username_lower_idx ON users (lower(username));
CREATE INDEX IF NOT EXISTS users_name_lower_idx ON users (lower(name) text_pattern_ops);
CREATE INDEX IF NOT EXISTS users_username_pattern_idx ON users (lower(username) text_pattern_ops);
CREATE INDEX IF NOT EXISTS users_is_online_idx ON users (is_online);
`

type userRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository create a UserRepository backed by postgres
func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &userRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.TokenIdentifier, &u.Name, &u.Email, &u.Image, &u.ImageStorageID, &u.IsOnline, &u.Username,
		&u.InstagramHandle, &u.TiktokHandle, &u.YoutubeHandle, &u.Tags, &u.Gender, &u.PreferredGender, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) queryOne(ctx context.Context, sql string, args ...interface{}) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) queryMany(ctx context.Context, sql string, args ...interface{}) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *userRepository) Migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, usersSchema)
	return err
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	tags := u.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := r.db.Exec(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		u.ID, u.TokenIdentifier, u.Name, u.Email, u.Image, u.ImageStorageID, u.IsOnline, u.Username,
		u.InstagramHandle, u.TiktokHandle, u.YoutubeHandle, tags, u.Gender, u.PreferredGender, u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.queryOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	return r.queryMany(ctx, "SELECT "+userColumns+" FROM users WHERE id = ANY($1)", ids)
}

func (r *userRepository) FindByToken(ctx context.Context, tokenIdentifier string) (*domain.User, error) {
	return r.queryOne(ctx, "SELECT "+userColumns+" FROM users WHERE token_identifier = $1", tokenIdentifier)
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.queryOne(ctx, "SELECT "+userColumns+" FROM users WHERE lower(username) = lower($1)", username)
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE lower(username) = lower($1))", username).Scan(&exists)
	return exists, err
}

func (r *userRepository) FindOnline(ctx context.Context) ([]domain.User, error) {
	return r.queryMany(ctx, "SELECT "+userColumns+" FROM users WHERE is_online ORDER BY created_at")
}

func (r *userRepository) FindAllExcept(ctx context.Context, id string) ([]domain.User, error) {
	return r.queryMany(ctx, "SELECT "+userColumns+" FROM users WHERE id <> $1 ORDER BY created_at", id)
}

func (r *userRepository) UpdateProfile(ctx context.Context, id string, p domain.ProfileInput) error {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET
			name = $2, username = $3, instagram_handle = $4, tiktok_handle = $5, youtube_handle = $6,
			tags = $7, gender = $8, preferred_gender = $9, image_storage_id = COALESCE($10, image_storage_id)
		WHERE id = $1`,
		id, p.Name, p.Username, p.InstagramHandle, p.TiktokHandle, p.YoutubeHandle,
		tags, p.Gender, p.PreferredGender, p.ImageStorageID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpdateImage(ctx context.Context, tokenIdentifier, image string) error {
	cmd, err := r.db.Exec(ctx, "UPDATE users SET image = $2 WHERE token_identifier = $1", tokenIdentifier, image)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) SetOnline(ctx context.Context, tokenIdentifier string, online bool) error {
	cmd, err := r.db.Exec(ctx, "UPDATE users SET is_online = $2 WHERE token_identifier = $1", tokenIdentifier, online)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SearchByName prefix match on the whole name or on any word of it
func (r *userRepository) SearchByName(ctx context.Context, term string, limit int) ([]domain.User, error) {
	t := escapeLike(strings.ToLower(strings.TrimSpace(term)))
	return r.queryMany(ctx, "SELECT "+userColumns+` FROM users
		WHERE lower(name) LIKE $1 OR lower(name) LIKE $2
		ORDER BY name LIMIT $3`, t+"%", "% "+t+"%", limit)
}

// SearchByUsername prefix match on username
func (r *userRepository) SearchByUsername(ctx context.Context, term string, limit int) ([]domain.User, error) {
	t := escapeLike(strings.ToLower(strings.TrimSpace(term)))
	return r.queryMany(ctx, "SELECT "+userColumns+` FROM users
		WHERE lower(username) LIKE $1
		ORDER BY username LIMIT $2`, t+"%", limit)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
