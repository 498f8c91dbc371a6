package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/authhub/internal/apperror"
	"github.com/sakif/authhub/internal/model"
	"github.com/sakif/authhub/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, name, profile_image_url, role, password_hash, api_key, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.ProfileImageURL,
		&u.Role,
		&u.PasswordHash,
		&u.APIKey,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// resolveRole runs the first-account check inside tx. An explicit role wins;
// an empty one means admin for the very first account, fallback after.
func resolveRole(ctx context.Context, tx *sql.Tx, explicit, fallback string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	var n int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return "", fmt.Errorf("counting users: %w", err)
	}
	if n == 0 {
		return model.RoleAdmin, nil
	}
	return fallback, nil
}

func insertUser(ctx context.Context, tx *sql.Tx, user *model.User) (sql.Result, error) {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	return tx.ExecContext(ctx,
		`INSERT INTO users (id, email, name, profile_image_url, role, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO NOTHING`,
		user.ID,
		user.Email,
		user.Name,
		user.ProfileImageURL,
		user.Role,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
}

// Create stores a new user, assigning the ID and timestamps here. The role
// decision and the insert share one transaction, so two concurrent creates
// against an empty store cannot both become admin.
func (db *DB) Create(ctx context.Context, user *model.User, fallbackRole string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning tx: %w", err)
	}
	defer tx.Rollback()

	role, err := resolveRole(ctx, tx, user.Role, fallbackRole)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	user.Role = role

	res, err := insertUser(ctx, tx, user)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	} else if n == 0 {
		return apperror.EmailTaken()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing insert: %w", err)
	}
	return nil
}

// CreateIfAbsent inserts the user, or returns the already-registered account
// for the same email. The conflict path is how concurrent first sign-ins for
// one email converge: the loser of the insert race adopts the winner's row.
func (db *DB) CreateIfAbsent(ctx context.Context, user *model.User, fallbackRole string) (*model.User, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning tx: %w", err)
	}
	defer tx.Rollback()

	role, err := resolveRole(ctx, tx, user.Role, fallbackRole)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	user.Role = role

	res, err := insertUser(ctx, tx, user)
	if err != nil {
		return nil, fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	result := user
	if n == 0 {
		result, err = scanUser(tx.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = ?`, user.Email))
		if err != nil {
			return nil, fmt.Errorf("sqlite: fetching existing user %s: %w", user.Email, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing insert: %w", err)
	}
	return result, nil
}

// GetByID returns the user with the given internal ID, or apperror.ErrNotFound.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByEmail returns the user registered under email (already lowercase).
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// GetByAPIKey returns the user owning apiKey.
func (db *DB) GetByAPIKey(ctx context.Context, apiKey string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE api_key = ?`, apiKey))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", "api key")
		}
		return nil, fmt.Errorf("sqlite: getting user by api key: %w", err)
	}
	return u, nil
}

// GetFirstUser returns the earliest-created account.
func (db *DB) GetFirstUser(ctx context.Context) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC LIMIT 1`))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", "first")
		}
		return nil, fmt.Errorf("sqlite: getting first user: %w", err)
	}
	return u, nil
}

// UpdateProfile sets the display name and avatar URL.
func (db *DB) UpdateProfile(ctx context.Context, id, name, profileImageURL string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, profile_image_url = ?, updated_at = ? WHERE id = ?`,
		name, profileImageURL, time.Now(), id)
	if err != nil {
		return fmt.Errorf("sqlite: updating profile %s: %w", id, err)
	}
	return checkAffected(res, id)
}

// UpdatePasswordHash replaces the stored bcrypt digest.
func (db *DB) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("sqlite: updating password %s: %w", id, err)
	}
	return checkAffected(res, id)
}

// SetAPIKey stores apiKey for id; an empty key clears the column to NULL so
// the UNIQUE index ignores it.
func (db *DB) SetAPIKey(ctx context.Context, id, apiKey string) error {
	var key any
	if apiKey != "" {
		key = apiKey
	}
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET api_key = ?, updated_at = ? WHERE id = ?`,
		key, time.Now(), id)
	if err != nil {
		return fmt.Errorf("sqlite: setting api key %s: %w", id, err)
	}
	return checkAffected(res, id)
}

// GetAPIKey returns the stored key, or "" if none is set.
func (db *DB) GetAPIKey(ctx context.Context, id string) (string, error) {
	var key sql.NullString
	err := db.conn.QueryRowContext(ctx,
		`SELECT api_key FROM users WHERE id = ?`, id).Scan(&key)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", apperror.NotFound("user", id)
		}
		return "", fmt.Errorf("sqlite: getting api key %s: %w", id, err)
	}
	return key.String, nil
}

func checkAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}
