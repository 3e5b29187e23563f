package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sakif/chirp/internal/apperror"
	"github.com/sakif/chirp/internal/model"
	"github.com/sakif/chirp/internal/repository"
)

var _ repository.LikeRepository = (*DB)(nil)

// ToggleLike flips userID's like on postID.
//
// Everything happens in one transaction:
//
//  1. read the post owner (NotFound if the post is gone)
//  2. try to DELETE the like row; one row removed means "unliked"
//  3. otherwise INSERT OR IGNORE it; that is "liked"
//  4. count the remaining likes
//  5. on "liked" by someone other than the owner, append a like
//     notification to the owner's log
//
// A delete of the post that commits first makes step 1 fail with NotFound.
// A delete that commits after cascades the new like row away.
func (db *DB) ToggleLike(ctx context.Context, userID, postID string) (*repository.LikeOutcome, error) {
	out := &repository.LikeOutcome{}

	err := db.withTx(ctx, "toggling like", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT user_id FROM posts WHERE id = ?`, postID,
		).Scan(&out.OwnerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("post", postID)
			}
			return storeErr("reading post owner", err)
		}

		ok, err := userExists(ctx, tx, userID)
		if err != nil {
			return storeErr("checking user", err)
		}
		if !ok {
			return apperror.NotFound("user", userID)
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM likes WHERE user_id = ? AND post_id = ?`, userID, postID,
		)
		if err != nil {
			return storeErr("deleting like", err)
		}
		removed, err := result.RowsAffected()
		if err != nil {
			return storeErr("checking rows affected", err)
		}

		now := time.Now().UTC()
		if removed == 0 {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO likes (user_id, post_id, created_at) VALUES (?, ?, ?)`,
				userID, postID, now,
			); err != nil {
				return storeErr("inserting like", err)
			}
			out.Liked = true
		}

		if out.Count, err = likeCount(ctx, tx, postID); err != nil {
			return err
		}

		if out.Liked && out.OwnerID != userID {
			out.Notification = &model.Notification{
				UserID:    out.OwnerID,
				Kind:      model.KindLike,
				OriginID:  userID,
				CreatedAt: now,
			}
			return appendNotification(ctx, tx, out.Notification)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func likeCount(ctx context.Context, q queryer, postID string) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE post_id = ?`, postID,
	).Scan(&n); err != nil {
		return 0, storeErr("counting likes", err)
	}
	return n, nil
}
