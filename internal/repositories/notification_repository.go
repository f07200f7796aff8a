package repositories

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"tms/internal/domain"
	"tms/internal/domain/models"
)

type NotificationRepository struct {
	DB *sql.DB
}

func (r NotificationRepository) db() *sql.DB { return pick(r.DB) }

func (r NotificationRepository) Create(ctx context.Context, n models.Notification) (int64, error) {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO notifications (title, message, type, category, target_audience, target_route_id, target_user_id,
		                           is_active, created_by, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		n.Title, n.Message, n.Type, n.Category, n.TargetAudience,
		nullableInt64(n.TargetRouteID), nullableInt64(n.TargetUserID), nullableInt64(n.CreatedBy), nullableTime(n.ExpiresAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Recipient identifies who is reading notifications.
type Recipient struct {
	UserType string
	UserID   int64
	RouteID  int64
}

func audienceFor(userType string) string {
	switch userType {
	case "student":
		return models.AudienceStudents
	case "driver":
		return models.AudienceDrivers
	default:
		return ""
	}
}

// ListFor returns active, unexpired notifications visible to rc with its read flag.
func (r NotificationRepository) ListFor(ctx context.Context, rc Recipient, now time.Time, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	audiences := []string{"target_audience = 'all'"}
	args := []any{rc.UserType, rc.UserID}
	if a := audienceFor(rc.UserType); a != "" {
		audiences = append(audiences, "target_audience = ?")
		args = append(args, a)
	}
	if rc.RouteID > 0 {
		audiences = append(audiences, "(target_audience = 'specific_route' AND target_route_id = ?)")
		args = append(args, rc.RouteID)
	}
	// specific_user targets students only.
	if rc.UserType == "student" {
		audiences = append(audiences, "(target_audience = 'specific_user' AND target_user_id = ?)")
		args = append(args, rc.UserID)
	}
	args = append(args, now, limit)

	query := `
		SELECT n.id, n.title, n.message, n.type, n.category, n.target_audience, n.target_route_id, n.target_user_id,
		       n.is_active, n.created_by, n.expires_at, n.created_at,
		       CASE WHEN nr.notification_id IS NULL THEN 0 ELSE 1 END
		FROM notifications n
		LEFT JOIN notification_reads nr
		       ON nr.notification_id = n.id AND nr.user_type = ? AND nr.user_id = ?
		WHERE n.is_active = 1
		  AND (` + strings.Join(audiences, " OR ") + `)
		  AND (n.expires_at IS NULL OR n.expires_at > ?)
		ORDER BY n.created_at DESC, n.id DESC
		LIMIT ?`

	rows, err := r.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		var (
			n                    models.Notification
			route, user, creator sql.NullInt64
			expires              sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Type, &n.Category, &n.TargetAudience, &route, &user,
			&n.IsActive, &creator, &expires, &n.CreatedAt, &n.Read); err != nil {
			return nil, err
		}
		n.TargetRouteID = int64Ptr(route)
		n.TargetUserID = int64Ptr(user)
		n.CreatedBy = int64Ptr(creator)
		n.ExpiresAt = timePtr(expires)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead is idempotent.
func (r NotificationRepository) MarkRead(ctx context.Context, notificationID int64, userType string, userID int64) error {
	var exists int
	if err := r.db().QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE id = ?`, notificationID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return domain.NotFoundError{Resource: "notification"}
	}
	_, err := r.db().ExecContext(ctx, `
		INSERT IGNORE INTO notification_reads (notification_id, user_type, user_id) VALUES (?, ?, ?)`,
		notificationID, userType, userID)
	return err
}

// SaveSubscription upserts by endpoint so a browser re-subscribing moves to the new user.
func (r NotificationRepository) SaveSubscription(ctx context.Context, s models.PushSubscription) error {
	_, err := r.db().ExecContext(ctx, `
		INSERT INTO push_subscriptions (user_type, user_id, endpoint, p256dh, auth)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE user_type = VALUES(user_type), user_id = VALUES(user_id),
		                        p256dh = VALUES(p256dh), auth = VALUES(auth)`,
		s.UserType, s.UserID, s.Endpoint, s.P256dh, s.Auth)
	return err
}

func (r NotificationRepository) DeleteSubscription(ctx context.Context, endpoint string) error {
	_, err := r.db().ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	return err
}

// DeleteOwnSubscription removes endpoint only when it belongs to the given user; false when nothing matched.
func (r NotificationRepository) DeleteOwnSubscription(ctx context.Context, endpoint, userType string, userID int64) (bool, error) {
	res, err := r.db().ExecContext(ctx, `
		DELETE FROM push_subscriptions WHERE endpoint = ? AND user_type = ? AND user_id = ?`,
		endpoint, userType, userID)
	if err != nil {
		return false, err
	}
	return affected(res) > 0, nil
}

// SubscriptionsFor resolves the push subscriptions matching n's audience.
func (r NotificationRepository) SubscriptionsFor(ctx context.Context, n models.Notification) ([]models.PushSubscription, error) {
	query := `SELECT ps.id, ps.user_type, ps.user_id, ps.endpoint, ps.p256dh, ps.auth FROM push_subscriptions ps`
	args := []any{}
	switch n.TargetAudience {
	case models.AudienceAll:
	case models.AudienceStudents:
		query += ` WHERE ps.user_type = 'student'`
	case models.AudienceDrivers:
		query += ` WHERE ps.user_type = 'driver'`
	case models.AudienceSpecificRoute:
		if n.TargetRouteID == nil {
			return nil, nil
		}
		query += `
			WHERE (ps.user_type = 'student' AND ps.user_id IN (SELECT id FROM students WHERE allocated_route_id = ?))
			   OR (ps.user_type = 'driver' AND ps.user_id IN (SELECT id FROM drivers WHERE assigned_route_id = ?))`
		args = append(args, *n.TargetRouteID, *n.TargetRouteID)
	case models.AudienceSpecificUser:
		if n.TargetUserID == nil {
			return nil, nil
		}
		query += ` WHERE ps.user_type = 'student' AND ps.user_id = ?`
		args = append(args, *n.TargetUserID)
	default:
		return nil, nil
	}

	rows, err := r.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.PushSubscription{}
	for rows.Next() {
		var s models.PushSubscription
		if err := rows.Scan(&s.ID, &s.UserType, &s.UserID, &s.Endpoint, &s.P256dh, &s.Auth); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
