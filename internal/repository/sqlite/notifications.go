package sqlite

import (
	"context"
	"slices"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/chirp/internal/apperror"
	"github.com/sakif/chirp/internal/model"
	"github.com/sakif/chirp/internal/repository"
)

var _ repository.NotificationRepository = (*DB)(nil)

// AppendNotification adds n to the end of n.UserID's log.
// The recipient must exist.
func (db *DB) AppendNotification(ctx context.Context, n *model.Notification) error {
	ok, err := userExists(ctx, db.conn, n.UserID)
	if err != nil {
		return storeErr("checking recipient", err)
	}
	if !ok {
		return apperror.NotFound("user", n.UserID)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return appendNotification(ctx, db.conn, n)
}

// appendNotification is the shared insert used on its own and from inside
// the follow and like transactions.
func appendNotification(ctx context.Context, q queryer, n *model.Notification) error {
	n.ID = xid.New().String()
	_, err := q.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, kind, origin_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		n.ID,
		n.UserID,
		string(n.Kind),
		n.OriginID,
		n.CreatedAt,
	)
	if err != nil {
		return storeErr("appending notification", err)
	}
	return nil
}

// RetractNotification deletes the newest entry matching (kind, origin) in
// userID's log. Older duplicates from earlier follow/unfollow cycles stay.
func (db *DB) RetractNotification(ctx context.Context, userID string, kind model.NotificationKind, originID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM notifications WHERE seq = (
			SELECT seq FROM notifications
			WHERE user_id = ? AND kind = ? AND origin_id = ?
			ORDER BY seq DESC LIMIT 1
		)`,
		userID, string(kind), originID,
	)
	if err != nil {
		return storeErr("retracting notification", err)
	}
	return nil
}

// ListNotifications returns the tail of the log: the newest limit entries,
// re-sorted oldest first so the slice reads in log order. Each entry carries
// its origin's summary when that user still exists.
func (db *DB) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT n.id, n.user_id, n.kind, n.origin_id, n.created_at,
		        COALESCE(u.handle, ''), COALESCE(u.profile_img, '')
		 FROM notifications n
		 LEFT JOIN users u ON u.id = n.origin_id
		 WHERE n.user_id = ?
		 ORDER BY n.seq DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, storeErr("listing notifications", err)
	}
	defer rows.Close()

	list := []model.Notification{}
	for rows.Next() {
		var (
			n      model.Notification
			kind   string
			handle string
			img    string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &kind, &n.OriginID, &n.CreatedAt, &handle, &img); err != nil {
			return nil, storeErr("scanning notification", err)
		}
		n.Kind = model.NotificationKind(kind)
		if handle != "" {
			n.Origin = &model.UserSummary{ID: n.OriginID, Handle: handle, ProfileImg: img}
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating notifications", err)
	}

	// newest-first from the query, log order for the caller
	slices.Reverse(list)
	return list, nil
}
