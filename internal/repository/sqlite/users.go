package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/chirp/internal/apperror"
	"github.com/sakif/chirp/internal/model"
	"github.com/sakif/chirp/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, handle, email, password_hash, github_id, bio, profile_img, cover_img, created_at, updated_at`

// scanUser reads one users row selected with userColumns.
// email and github_id are nullable, so they go through sql.Null* first.
func scanUser(row interface{ Scan(dest ...any) error }) (*model.User, error) {
	var (
		u        model.User
		email    sql.NullString
		githubID sql.NullInt64
	)
	err := row.Scan(
		&u.ID,
		&u.Handle,
		&email,
		&u.PasswordHash,
		&githubID,
		&u.Bio,
		&u.ProfileImg,
		&u.CoverImg,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	return &u, nil
}

func nullableEmail(email string) sql.NullString {
	return sql.NullString{String: email, Valid: email != ""}
}

// CreateUser inserts a password account.
//
// Handle and email are checked inside the transaction so the caller learns
// WHICH one is taken. The UNIQUE constraints still back this up: if another
// signup wins the race between check and insert, the insert fails and is
// reported as the same Conflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	return db.withTx(ctx, "creating user", func(tx *sql.Tx) error {
		var n int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE handle = ?`, user.Handle,
		).Scan(&n)
		if err != nil {
			return storeErr("checking handle", err)
		}
		if n > 0 {
			return apperror.Conflict("handle", user.Handle)
		}

		if user.Email != "" {
			err = tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM users WHERE email = ?`, user.Email,
			).Scan(&n)
			if err != nil {
				return storeErr("checking email", err)
			}
			if n > 0 {
				return apperror.Conflict("email", user.Email)
			}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, handle, email, password_hash, github_id, bio, profile_img, cover_img, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			user.ID,
			user.Handle,
			nullableEmail(user.Email),
			user.PasswordHash,
			user.GitHubID,
			user.Bio,
			user.ProfileImg,
			user.CoverImg,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("user", user.Handle)
			}
			return storeErr("inserting user", err)
		}
		return nil
	})
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUserBy(ctx, db.conn, "id", id)
}

// GetUserByEmail is the login lookup. Comparison is case-insensitive.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUserBy(ctx, db.conn, "email", email)
}

// getUserBy selects a single user where column = value. column is always a
// constant from this file, never user input.
func (db *DB) getUserBy(ctx context.Context, q queryer, column, value string) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, storeErr(fmt.Sprintf("getting user by %s", column), err)
	}
	return u, nil
}

// UpsertGitHubUser links a GitHub identity to an account.
//
// Lookup order:
//  1. an account already linked to this GitHub id → returned as is
//  2. a password account with the same email → linked to the GitHub id
//  3. otherwise a new account is created. The GitHub login becomes the
//     handle, with a numeric suffix if someone already took it.
//
// user carries GitHubID, Handle (the GitHub login), Email and ProfileImg on
// the way in and is overwritten with the stored record on the way out.
func (db *DB) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return apperror.ValidationFailed("githubId", "github id is required")
	}

	return db.withTx(ctx, "upserting github user", func(tx *sql.Tx) error {
		existing, err := scanUser(tx.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE github_id = ?`, *user.GitHubID,
		))
		switch {
		case err == nil:
			*user = *existing
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return storeErr("looking up github id", err)
		}

		if user.Email != "" {
			existing, err = scanUser(tx.QueryRowContext(ctx,
				`SELECT `+userColumns+` FROM users WHERE email = ?`, user.Email,
			))
			switch {
			case err == nil:
				now := time.Now().UTC()
				if _, err := tx.ExecContext(ctx,
					`UPDATE users SET github_id = ?, updated_at = ? WHERE id = ?`,
					*user.GitHubID, now, existing.ID,
				); err != nil {
					return storeErr("linking github id", err)
				}
				existing.GitHubID = user.GitHubID
				existing.UpdatedAt = now
				*user = *existing
				return nil
			case !errors.Is(err, sql.ErrNoRows):
				return storeErr("looking up email", err)
			}
		}

		handle, err := freeHandle(ctx, tx, user.Handle)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		user.ID = xid.New().String()
		user.Handle = handle
		user.CreatedAt = now
		user.UpdatedAt = now

		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, handle, email, github_id, profile_img, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			user.ID,
			user.Handle,
			nullableEmail(user.Email),
			*user.GitHubID,
			user.ProfileImg,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			return storeErr("inserting github user", err)
		}
		return nil
	})
}

// maxHandleLen mirrors the signup limit so GitHub logins fit the same rules.
const maxHandleLen = 20

// freeHandle returns base if unused, otherwise base2, base3, ...
func freeHandle(ctx context.Context, tx *sql.Tx, base string) (string, error) {
	if len(base) > maxHandleLen-3 {
		base = base[:maxHandleLen-3]
	}
	candidate := base
	for i := 2; i < 1000; i++ {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE handle = ?`, candidate,
		).Scan(&n); err != nil {
			return "", storeErr("checking handle", err)
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return "", apperror.Conflict("handle", base)
}

// UpdateProfile applies the non-nil fields of upd and returns the updated user.
//
// The SET clause is built from fixed column names; values still go through
// placeholders.
func (db *DB) UpdateProfile(ctx context.Context, id string, upd model.ProfileUpdate) (*model.User, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if upd.Bio != nil {
		sets = append(sets, "bio = ?")
		args = append(args, *upd.Bio)
	}
	if upd.ProfileImg != nil {
		sets = append(sets, "profile_img = ?")
		args = append(args, *upd.ProfileImg)
	}
	if upd.CoverImg != nil {
		sets = append(sets, "cover_img = ?")
		args = append(args, *upd.CoverImg)
	}
	args = append(args, id)

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...,
	)
	if err != nil {
		return nil, storeErr("updating profile "+id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, storeErr("checking rows affected", err)
	}
	if rowsAffected == 0 {
		return nil, apperror.NotFound("user", id)
	}

	return db.GetUserByID(ctx, id)
}

// UserSummaries resolves a batch of ids in one query.
func (db *DB) UserSummaries(ctx context.Context, ids []string) (map[string]model.UserSummary, error) {
	out := make(map[string]model.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, handle, profile_img FROM users WHERE id IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, storeErr("loading user summaries", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s model.UserSummary
		if err := rows.Scan(&s.ID, &s.Handle, &s.ProfileImg); err != nil {
			return nil, storeErr("scanning user summary", err)
		}
		out[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating user summaries", err)
	}
	return out, nil
}

// scanSummaries drains rows of (id, handle, profile_img).
func scanSummaries(rows *sql.Rows) ([]model.UserSummary, error) {
	defer rows.Close()
	summaries := []model.UserSummary{}
	for rows.Next() {
		var s model.UserSummary
		if err := rows.Scan(&s.ID, &s.Handle, &s.ProfileImg); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
