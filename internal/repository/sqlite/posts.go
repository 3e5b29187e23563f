package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/chirp/internal/apperror"
	"github.com/sakif/chirp/internal/model"
	"github.com/sakif/chirp/internal/repository"
)

var _ repository.PostRepository = (*DB)(nil)

// postSelect is shared by every post read. The first placeholder is the
// viewer id used for liked_by_me ("" for anonymous reads).
//
// like_count is computed from the likes table at read time, so it can never
// drift from the set of likes and can never go negative.
const postSelect = `
	SELECT p.id, p.user_id, p.content, p.img, p.created_at,
	       u.handle, u.profile_img,
	       (SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id) AS like_count,
	       EXISTS (SELECT 1 FROM likes l WHERE l.post_id = p.id AND l.user_id = ?) AS liked_by_me
	FROM posts p
	JOIN users u ON u.id = p.user_id`

func scanPost(row interface{ Scan(dest ...any) error }) (*model.Post, error) {
	var (
		p     model.Post
		owner model.UserSummary
	)
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Content,
		&p.Img,
		&p.CreatedAt,
		&owner.Handle,
		&owner.ProfileImg,
		&p.LikeCount,
		&p.LikedByMe,
	)
	if err != nil {
		return nil, err
	}
	owner.ID = p.OwnerID
	p.Owner = &owner
	return &p, nil
}

func scanPosts(rows *sql.Rows) ([]model.Post, error) {
	defer rows.Close()
	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// CreatePost inserts post, filling ID and CreatedAt in place.
// The owner must exist; a missing owner is reported as NotFound.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now().UTC()

	return db.withTx(ctx, "creating post", func(tx *sql.Tx) error {
		ok, err := userExists(ctx, tx, post.OwnerID)
		if err != nil {
			return storeErr("checking owner", err)
		}
		if !ok {
			return apperror.NotFound("user", post.OwnerID)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO posts (id, user_id, content, img, created_at) VALUES (?, ?, ?, ?, ?)`,
			post.ID,
			post.OwnerID,
			post.Content,
			post.Img,
			post.CreatedAt,
		)
		if err != nil {
			return storeErr("inserting post", err)
		}
		return nil
	})
}

func (db *DB) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	p, err := scanPost(db.conn.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, "", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, storeErr("getting post "+id, err)
	}
	return p, nil
}

// ListPosts returns the feed, newest first. viewerID may be empty.
func (db *DB) ListPosts(ctx context.Context, viewerID string, opts repository.ListOptions) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx,
		postSelect+` ORDER BY p.created_at DESC, p.rowid DESC LIMIT ? OFFSET ?`,
		viewerID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, storeErr("listing posts", err)
	}
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, storeErr("scanning posts", err)
	}
	return posts, nil
}

// PostsByUser returns everything userID has written, newest first.
func (db *DB) PostsByUser(ctx context.Context, userID string) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx,
		postSelect+` WHERE p.user_id = ? ORDER BY p.created_at DESC, p.rowid DESC`,
		"", userID,
	)
	if err != nil {
		return nil, storeErr("listing posts by user", err)
	}
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, storeErr("scanning posts", err)
	}
	return posts, nil
}

// LikedPosts returns the posts userID likes, most recently liked first.
// This is the "user.likedPosts" side of the like row.
func (db *DB) LikedPosts(ctx context.Context, userID string) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx,
		postSelect+`
		JOIN likes lk ON lk.post_id = p.id
		WHERE lk.user_id = ?
		ORDER BY lk.created_at DESC, lk.rowid DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, storeErr("listing liked posts", err)
	}
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, storeErr("scanning posts", err)
	}
	return posts, nil
}

// likeEscaper escapes the LIKE wildcards so a search for "50%" matches the
// literal text rather than everything starting with "50".
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchPosts is a case-insensitive substring match on content.
// SQLite's LIKE folds ASCII case only, which is enough for handles and tags.
func (db *DB) SearchPosts(ctx context.Context, query string, opts repository.ListOptions) ([]model.Post, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"
	rows, err := db.conn.QueryContext(ctx,
		postSelect+` WHERE p.content LIKE ? ESCAPE '\' ORDER BY p.created_at DESC, p.rowid DESC LIMIT ? OFFSET ?`,
		"", pattern, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, storeErr("searching posts", err)
	}
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, storeErr("scanning posts", err)
	}
	return posts, nil
}

// DeletePost removes the post. Its likes go with it (ON DELETE CASCADE), so
// every liker's likedPosts view drops the post in the same statement.
//
// Ownership is checked by the service before calling this.
func (db *DB) DeletePost(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return storeErr("deleting post "+id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storeErr("checking rows affected", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", id)
	}
	return nil
}
