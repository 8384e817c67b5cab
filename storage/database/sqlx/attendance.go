package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/attendance"
)

type recordRow struct {
	ID            int64           `db:"id"`
	StudentID     int64           `db:"student_id"`
	Date          core.Date       `db:"date"`
	Status        string          `db:"status"`
	ArrivalTime   *core.TimeOfDay `db:"arrival_time"`
	Justification null.String     `db:"justification"`
	GivenName     null.String     `db:"given_name"`
	FamilyName    null.String     `db:"family_name"`
	Inserted      bool            `db:"inserted"`
}

func (row recordRow) record() attendance.Record {
	return attendance.Record{
		ID:            row.ID,
		StudentID:     row.StudentID,
		Date:          row.Date,
		Status:        attendance.Status(row.Status),
		ArrivalTime:   row.ArrivalTime,
		Justification: row.Justification.String,
		GivenName:     row.GivenName.String,
		FamilyName:    row.FamilyName.String,
	}
}

func records(rows []recordRow) []attendance.Record {
	list := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.record())
	}
	return list
}

const recordColumns = "id, student_id, date, status, arrival_time, justification"

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

// UpsertRecord relies on the unique (student_id, date) constraint: concurrent marks of the same
// student and day end up on a single row. xmax is 0 only for a freshly inserted row.
func (repo *attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record) (attendance.Record, bool, error) {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	var arrival null.String
	if rec.ArrivalTime != nil {
		arrival = null.StringFrom(rec.ArrivalTime.String())
	}

	var row recordRow
	q := `INSERT INTO attendance_records (student_id, date, status, arrival_time)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id, date)
		DO UPDATE SET status = EXCLUDED.status, arrival_time = EXCLUDED.arrival_time
		RETURNING ` + recordColumns + `, (xmax = 0) AS inserted`
	if err := repo.db.GetContext(ctx, &row, q, rec.StudentID, rec.Date, string(rec.Status), arrival); err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return attendance.Record{}, false, core.ErrNotFound
		}
		return attendance.Record{}, false, core.NewStorageError(err, "upserting attendance record")
	}
	return row.record(), row.Inserted, nil
}

func (repo *attendanceRepository) GetRecord(ctx context.Context, id int64) (attendance.Record, error) {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	var row recordRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+recordColumns+" FROM attendance_records WHERE id = $1", id); err != nil {
		return attendance.Record{}, trapNoRowsErr(err, "finding attendance record")
	}
	return row.record(), nil
}

func (repo *attendanceRepository) JustifyRecord(ctx context.Context, id int64, text string) (attendance.Record, error) {
	dbCtx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	var row recordRow
	q := `UPDATE attendance_records SET status = $3, justification = $2
		WHERE id = $1 AND status = $4
		RETURNING ` + recordColumns
	err := repo.db.GetContext(dbCtx, &row, q, id, text, string(attendance.StatusAbsentJustified), string(attendance.StatusAbsent))
	if err == nil {
		return row.record(), nil
	}
	if err = trapNoRowsErr(err, "justifying attendance record"); errors.Cause(err) != core.ErrNotFound {
		return attendance.Record{}, err
	}

	// nothing updated: either the record is gone or it is no longer absent
	if _, err = repo.GetRecord(ctx, id); err != nil {
		return attendance.Record{}, err
	}
	return attendance.Record{}, core.ErrInvalidState
}

func (repo *attendanceRepository) QueryByDateAndClass(ctx context.Context, date core.Date, classID int64) ([]attendance.Record, error) {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	rows := make([]recordRow, 0)
	q := `SELECT r.id, r.student_id, r.date, r.status, r.arrival_time, r.justification, s.given_name, s.family_name
		FROM attendance_records r
		JOIN students s ON s.id = r.student_id
		WHERE r.date = $1 AND s.class_id = $2
		ORDER BY s.family_name, s.given_name, s.id`
	if err := repo.db.SelectContext(ctx, &rows, q, date, classID); err != nil {
		return nil, core.NewStorageError(err, "querying class attendance")
	}
	return records(rows), nil
}

func (repo *attendanceRepository) QueryByStudentsAndDateRange(ctx context.Context, studentIDs []int64, start, end core.Date) ([]attendance.Record, error) {
	if len(studentIDs) == 0 {
		return []attendance.Record{}, nil
	}
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	rows := make([]recordRow, 0)
	q := `SELECT ` + recordColumns + ` FROM attendance_records
		WHERE student_id = ANY($1) AND date BETWEEN $2 AND $3
		ORDER BY date, student_id`
	if err := repo.db.SelectContext(ctx, &rows, q, pq.Array(studentIDs), start, end); err != nil {
		return nil, core.NewStorageError(err, "querying attendance range")
	}
	return records(rows), nil
}
