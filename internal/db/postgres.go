package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Migrate() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertUserByGitHubID inserts or refreshes the identity fields of a user,
// keeping the stored posting preferences.
func (s *PostgresStore) UpsertUserByGitHubID(ctx context.Context, user *models.User) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (github_id, username, email, name, avatar_url, access_token)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (github_id) DO UPDATE SET
			username = EXCLUDED.username,
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			avatar_url = EXCLUDED.avatar_url,
			access_token = EXCLUDED.access_token,
			updated_at = NOW()
		RETURNING id, post_tone, include_hashtags, max_posts_per_day, created_at, updated_at`,
		user.GitHubID, user.Username, nullString(user.Email), nullString(user.Name),
		nullString(user.AvatarURL), nullString(user.AccessToken),
	).Scan(&user.ID, &user.PostTone, &user.IncludeHashtags, &user.MaxPostsPerDay, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

const userColumns = `id, github_id, username, email, name, avatar_url, access_token,
	post_tone, include_hashtags, max_posts_per_day, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	var email, name, avatar, token sql.NullString
	if err := row.Scan(&u.ID, &u.GitHubID, &u.Username, &email, &name, &avatar, &token,
		&u.PostTone, &u.IncludeHashtags, &u.MaxPostsPerDay, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Email = email.String
	u.Name = name.String
	u.AvatarURL = avatar.String
	u.AccessToken = token.String
	return &u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewResourceNotFoundError("user", id)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1) ORDER BY id LIMIT 1`, username))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewResourceNotFoundError("user", username)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) UpdateUserPreferences(ctx context.Context, id int64, prefs models.UserPreferences) (*models.User, error) {
	var includeHashtags sql.NullBool
	if prefs.IncludeHashtags != nil {
		includeHashtags = sql.NullBool{Bool: *prefs.IncludeHashtags, Valid: true}
	}
	var maxPosts sql.NullInt64
	if prefs.MaxPostsPerDay != nil {
		maxPosts = sql.NullInt64{Int64: int64(*prefs.MaxPostsPerDay), Valid: true}
	}

	u, err := scanUser(s.db.QueryRowContext(ctx, `
		UPDATE users SET
			post_tone = COALESCE(NULLIF($2, ''), post_tone),
			include_hashtags = COALESCE($3, include_hashtags),
			max_posts_per_day = COALESCE($4, max_posts_per_day),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, prefs.PostTone, includeHashtags, maxPosts))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewResourceNotFoundError("user", id)
	} else if err != nil {
		return nil, fmt.Errorf("failed to update user preferences: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) UpsertOAuthToken(ctx context.Context, token *models.OAuthToken) error {
	var expiresAt sql.NullTime
	if token.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *token.ExpiresAt, Valid: true}
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO oauth_tokens (platform, user_id, access_token, refresh_token, token_type, expires_at, scope)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (platform, user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(EXCLUDED.refresh_token, oauth_tokens.refresh_token),
			token_type = EXCLUDED.token_type,
			expires_at = EXCLUDED.expires_at,
			scope = EXCLUDED.scope,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		token.Platform, token.UserID, token.AccessToken, nullString(token.RefreshToken),
		defaultString(token.TokenType, "bearer"), expiresAt, nullString(token.Scope),
	).Scan(&token.ID, &token.CreatedAt, &token.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert oauth token: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOAuthToken(ctx context.Context, platform string, userID int64) (*models.OAuthToken, error) {
	var t models.OAuthToken
	var refresh, scope sql.NullString
	var expiresAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, platform, user_id, access_token, refresh_token, token_type, expires_at, scope, created_at, updated_at
		FROM oauth_tokens
		WHERE platform = $1 AND user_id = $2`, platform, userID,
	).Scan(&t.ID, &t.Platform, &t.UserID, &t.AccessToken, &refresh, &t.TokenType, &expiresAt, &scope, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewResourceNotFoundError(platform+" token", userID)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get oauth token: %w", err)
	}

	t.RefreshToken = refresh.String
	t.Scope = scope.String
	if expiresAt.Valid {
		t.ExpiresAt = &expiresAt.Time
	}
	return &t, nil
}

func (s *PostgresStore) DeleteOAuthToken(ctx context.Context, platform string, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM oauth_tokens WHERE platform = $1 AND user_id = $2`, platform, userID)
	if err != nil {
		return fmt.Errorf("failed to delete oauth token: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// expectOneRow turns a zero-row update into a not found error.
func expectOneRow(result sql.Result, resource string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.NewResourceNotFoundError(resource, id)
	}
	return nil
}
