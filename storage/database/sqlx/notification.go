package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/notification"
)

type notificationRow struct {
	ID        int64      `db:"id"`
	Message   string     `db:"message"`
	Type      string     `db:"type"`
	CreatedAt time.Time  `db:"created_at"`
	Read      bool       `db:"read"`
	TeacherID null.Int64 `db:"teacher_id"`
	StudentID null.Int64 `db:"student_id"`
	ParentID  null.Int64 `db:"parent_id"`
}

func (row notificationRow) notification() notification.Notification {
	return notification.Notification{
		ID:        row.ID,
		Message:   row.Message,
		Type:      notification.Type(row.Type),
		CreatedAt: row.CreatedAt.UTC(),
		Read:      row.Read,
		TeacherID: row.TeacherID.Int64,
		StudentID: row.StudentID.Int64,
		ParentID:  row.ParentID.Int64,
	}
}

const notificationColumns = "id, message, type, created_at, read, teacher_id, student_id, parent_id"

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	var row notificationRow
	q := `INSERT INTO notifications (message, type, created_at, teacher_id, student_id, parent_id)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING ` + notificationColumns
	err := repo.db.GetContext(ctx, &row, q,
		n.Message, string(n.Type), n.CreatedAt, nullID(n.TeacherID), nullID(n.StudentID), nullID(n.ParentID))
	if err != nil {
		return notification.Notification{}, core.NewStorageError(err, "inserting notification")
	}
	return row.notification(), nil
}

func (repo *notificationRepository) GetNotification(ctx context.Context, id int64) (notification.Notification, error) {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	var row notificationRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+notificationColumns+" FROM notifications WHERE id = $1", id); err != nil {
		return notification.Notification{}, trapNoRowsErr(err, "finding notification")
	}
	return row.notification(), nil
}

func (repo *notificationRepository) MarkRead(ctx context.Context, id int64) error {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	res, err := repo.db.ExecContext(ctx, "UPDATE notifications SET read = true WHERE id = $1", id)
	if err != nil {
		return core.NewStorageError(err, "marking notification read")
	}
	return checkAffected(res, "marking notification read")
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, filter notification.Filter) ([]notification.Notification, error) {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	rows := make([]notificationRow, 0)
	q := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE ($1::bigint = 0 OR teacher_id = $1) AND ($2::bigint = 0 OR parent_id = $2)
		ORDER BY created_at DESC, id DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, filter.TeacherID, filter.ParentID); err != nil {
		return nil, core.NewStorageError(err, "querying notifications")
	}
	list := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.notification())
	}
	return list, nil
}
