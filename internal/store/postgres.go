package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bridge/api/internal/screenplay"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const query = `
		SELECT id, display_name, email, password_hash, is_email_verified, COALESCE(verification_token, ''), created_at, updated_at
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash,
		&user.IsEmailVerified, &user.VerificationToken, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	const query = `
		SELECT id, display_name, email, password_hash, is_email_verified, COALESCE(verification_token, ''), created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash,
		&user.IsEmailVerified, &user.VerificationToken, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash, is_email_verified, verification_token)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash, user.IsEmailVerified, user.VerificationToken)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUserVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET verification_token=$2, verification_expires_at=$3, updated_at=NOW()
		WHERE id=$1
	`, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("update verification token: %w", err)
	}
	return nil
}

func (s *PostgresStore) VerifyUserEmail(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET is_email_verified=TRUE, verification_token=NULL, verification_expires_at=NULL, updated_at=NOW()
		WHERE verification_token=$1 AND verification_expires_at > NOW()
	`, token)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify email rows: %w", err)
	}
	if affected == 0 {
		return errors.New("invalid or expired verification token")
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("insert password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM password_resets
		WHERE token=$1 AND used_at IS NULL AND expires_at > NOW()
	`, token).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *PostgresStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_resets SET used_at=NOW() WHERE token=$1`, token)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID, displayName string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.display_name
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.DisplayName)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1 AND expires_at > NOW())`, jti).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListScripts(ctx context.Context, userID string) ([]ScriptSummary, error) {
	const query = `
		SELECT id, title, COALESCE(description, ''), jsonb_array_length(scenes), created_at, updated_at
		FROM scripts
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	defer rows.Close()

	scripts := []ScriptSummary{}
	for rows.Next() {
		var item ScriptSummary
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.SceneCount, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		scripts = append(scripts, item)
	}
	return scripts, rows.Err()
}

func (s *PostgresStore) GetScript(ctx context.Context, userID, scriptID string) (Script, error) {
	const query = `
		SELECT id, user_id, title, COALESCE(description, ''), scenes, created_at, updated_at
		FROM scripts
		WHERE id = $1 AND user_id = $2
	`
	var script Script
	var scenesJSON []byte
	err := s.db.QueryRowContext(ctx, query, scriptID, userID).Scan(
		&script.ID, &script.UserID, &script.Title, &script.Description,
		&scenesJSON, &script.CreatedAt, &script.UpdatedAt,
	)
	if err != nil {
		return Script{}, err
	}
	if err := json.Unmarshal(scenesJSON, &script.Scenes); err != nil {
		return Script{}, fmt.Errorf("decode scenes: %w", err)
	}
	return script, nil
}

func (s *PostgresStore) InsertScript(ctx context.Context, script Script) error {
	scenesJSON, err := json.Marshal(scenesOrEmpty(script.Scenes))
	if err != nil {
		return fmt.Errorf("encode scenes: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scripts (id, user_id, title, description, scenes)
		VALUES ($1, $2, $3, $4, $5)
	`, script.ID, script.UserID, script.Title, script.Description, scenesJSON)
	if err != nil {
		return fmt.Errorf("insert script: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateScriptMeta(ctx context.Context, userID, scriptID, title, description string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE scripts SET title=$3, description=$4, updated_at=NOW()
		WHERE id=$1 AND user_id=$2
	`, scriptID, userID, title, description)
	if err != nil {
		return fmt.Errorf("update script: %w", err)
	}
	return requireRow(result)
}

// ReplaceScenes overwrites the full scene list of a script. Scene
// mutations compute the new list in memory and persist it whole.
func (s *PostgresStore) ReplaceScenes(ctx context.Context, userID, scriptID string, scenes []screenplay.Scene) error {
	scenesJSON, err := json.Marshal(scenesOrEmpty(scenes))
	if err != nil {
		return fmt.Errorf("encode scenes: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE scripts SET scenes=$3, updated_at=NOW()
		WHERE id=$1 AND user_id=$2
	`, scriptID, userID, scenesJSON)
	if err != nil {
		return fmt.Errorf("replace scenes: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) DeleteScript(ctx context.Context, userID, scriptID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM scripts WHERE id=$1 AND user_id=$2`, scriptID, userID)
	if err != nil {
		return fmt.Errorf("delete script: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scenesOrEmpty(scenes []screenplay.Scene) []screenplay.Scene {
	if scenes == nil {
		return []screenplay.Scene{}
	}
	return scenes
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
