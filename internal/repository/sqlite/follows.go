package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/sakif/chirp/internal/apperror"
	"github.com/sakif/chirp/internal/model"
	"github.com/sakif/chirp/internal/repository"
)

var _ repository.FollowRepository = (*DB)(nil)

// Follow records followerID → followeeID and appends the follow notification
// to the followee's log, all in one transaction.
//
// INSERT OR IGNORE on the (follower_id, followee_id) primary key is the
// duplicate check. Two concurrent follows of the same pair cannot both insert:
// the loser sees RowsAffected() == 0, gets AlreadyFollowing, and never appends
// a second notification.
func (db *DB) Follow(ctx context.Context, followerID, followeeID string) (*model.Notification, error) {
	var n *model.Notification

	err := db.withTx(ctx, "following", func(tx *sql.Tx) error {
		for _, id := range []string{followerID, followeeID} {
			ok, err := userExists(ctx, tx, id)
			if err != nil {
				return storeErr("checking user", err)
			}
			if !ok {
				return apperror.NotFound("user", id)
			}
		}

		now := time.Now().UTC()
		result, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO follows (follower_id, followee_id, created_at) VALUES (?, ?, ?)`,
			followerID, followeeID, now,
		)
		if err != nil {
			return storeErr("inserting follow", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return storeErr("checking rows affected", err)
		}
		if rowsAffected == 0 {
			return apperror.AlreadyFollowing(followeeID)
		}

		n = &model.Notification{
			UserID:    followeeID,
			Kind:      model.KindFollow,
			OriginID:  followerID,
			CreatedAt: now,
		}
		return appendNotification(ctx, tx, n)
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Unfollow deletes the edge. Both directions disappear together because
// there is only one row. Unknown users are NotFound, checked before the
// edge so a missing target never reads as NotFollowing.
func (db *DB) Unfollow(ctx context.Context, followerID, followeeID string) error {
	return db.withTx(ctx, "unfollowing", func(tx *sql.Tx) error {
		for _, id := range []string{followerID, followeeID} {
			ok, err := userExists(ctx, tx, id)
			if err != nil {
				return storeErr("checking user", err)
			}
			if !ok {
				return apperror.NotFound("user", id)
			}
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`,
			followerID, followeeID,
		)
		if err != nil {
			return storeErr("deleting follow", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return storeErr("checking rows affected", err)
		}
		if rowsAffected == 0 {
			return apperror.NotFollowing(followeeID)
		}
		return nil
	})
}

func (db *DB) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM follows WHERE follower_id = ? AND followee_id = ?`,
		followerID, followeeID,
	).Scan(&n)
	if err != nil {
		return false, storeErr("checking follow", err)
	}
	return n > 0, nil
}

// Following lists the users userID follows, in the order they were followed.
func (db *DB) Following(ctx context.Context, userID string) ([]model.UserSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.id, u.handle, u.profile_img
		 FROM follows f JOIN users u ON u.id = f.followee_id
		 WHERE f.follower_id = ?
		 ORDER BY f.created_at, f.rowid`,
		userID,
	)
	if err != nil {
		return nil, storeErr("listing following", err)
	}
	summaries, err := scanSummaries(rows)
	if err != nil {
		return nil, storeErr("scanning following", err)
	}
	return summaries, nil
}

// Followers lists the users following userID, read from the same rows as
// Following with the columns swapped.
func (db *DB) Followers(ctx context.Context, userID string) ([]model.UserSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.id, u.handle, u.profile_img
		 FROM follows f JOIN users u ON u.id = f.follower_id
		 WHERE f.followee_id = ?
		 ORDER BY f.created_at, f.rowid`,
		userID,
	)
	if err != nil {
		return nil, storeErr("listing followers", err)
	}
	summaries, err := scanSummaries(rows)
	if err != nil {
		return nil, storeErr("scanning followers", err)
	}
	return summaries, nil
}
