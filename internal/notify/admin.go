package notify

import (
	"context"
	"database/sql"
	"time"
)

// Notification is one row in a staff member's in-app inbox.
type Notification struct {
	ID        int64
	UserID    uint
	Message   string
	URL       string
	Unread    bool
	CreatedAt time.Time
}

// AdminRepository fans messages out to every staff account and serves
// each staff member's unread list.
type AdminRepository interface {
	NotifyAll(ctx context.Context, message, url string) error
	ListUnread(ctx context.Context, adminID uint) ([]Notification, error)
	MarkRead(ctx context.Context, adminID uint, notificationID int64) error
}

type adminRepository struct {
	db *sql.DB
}

func NewAdminRepository(db *sql.DB) AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) NotifyAll(ctx context.Context, message, url string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_notifications (user_id, message, url, unread)
		SELECT id, $1, $2, TRUE FROM users WHERE is_staff = TRUE
	`, message, url)
	return err
}

func (r *adminRepository) ListUnread(ctx context.Context, adminID uint) ([]Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, message, url, unread, created_at
		FROM admin_notifications
		WHERE user_id = $1 AND unread = TRUE
		ORDER BY created_at DESC
	`, adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.URL, &n.Unread, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *adminRepository) MarkRead(ctx context.Context, adminID uint, notificationID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admin_notifications SET unread = FALSE
		WHERE id = $1 AND user_id = $2
	`, notificationID, adminID)
	return err
}
