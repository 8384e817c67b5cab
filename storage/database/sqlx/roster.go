package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/roster"
)

type (
	classRow struct {
		ID        int64      `db:"id"`
		Name      string     `db:"name"`
		TeacherID null.Int64 `db:"teacher_id"`
	}

	studentRow struct {
		ID               int64       `db:"id"`
		GivenName        string      `db:"given_name"`
		FamilyName       string      `db:"family_name"`
		ClassID          null.Int64  `db:"class_id"`
		ParentID         null.Int64  `db:"parent_id"`
		ClassName        null.String `db:"class_name"`
		ParentGivenName  null.String `db:"parent_given_name"`
		ParentFamilyName null.String `db:"parent_family_name"`
	}

	scopeRow struct {
		StudentID    int64      `db:"student_id"`
		ClassID      null.Int64 `db:"class_id"`
		ClassOwnerID null.Int64 `db:"class_owner_id"`
		ParentID     null.Int64 `db:"parent_id"`
	}
)

func (row classRow) class() roster.Class {
	return roster.Class{ID: row.ID, Name: row.Name, TeacherID: row.TeacherID.Int64}
}

func (row studentRow) student() roster.Student {
	return roster.Student{
		ID:               row.ID,
		GivenName:        row.GivenName,
		FamilyName:       row.FamilyName,
		ClassID:          row.ClassID.Int64,
		ParentID:         row.ParentID.Int64,
		ClassName:        row.ClassName.String,
		ParentGivenName:  row.ParentGivenName.String,
		ParentFamilyName: row.ParentFamilyName.String,
	}
}

func students(rows []studentRow) []roster.Student {
	list := make([]roster.Student, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.student())
	}
	return list
}

const studentColumns = "id, given_name, family_name, class_id, parent_id"

type rosterRepository struct {
	db *sqlx.DB
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *sqlx.DB) roster.Repository {
	return &rosterRepository{db: db}
}

func (repo *rosterRepository) QueryClasses(ctx context.Context, teacherID int64) ([]roster.Class, error) {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	rows := make([]classRow, 0)
	q := `SELECT id, name, teacher_id FROM classes
		WHERE ($1::bigint = 0 OR teacher_id = $1)
		ORDER BY name, id`
	if err := repo.db.SelectContext(ctx, &rows, q, teacherID); err != nil {
		return nil, core.NewStorageError(err, "querying classes")
	}
	classes := make([]roster.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.class())
	}
	return classes, nil
}

func (repo *rosterRepository) GetClass(ctx context.Context, id int64) (roster.Class, error) {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	var row classRow
	if err := repo.db.GetContext(ctx, &row, "SELECT id, name, teacher_id FROM classes WHERE id = $1", id); err != nil {
		return roster.Class{}, trapNoRowsErr(err, "finding class")
	}
	return row.class(), nil
}

func (repo *rosterRepository) CreateClass(ctx context.Context, cls roster.Class) (roster.Class, error) {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	var row classRow
	q := "INSERT INTO classes (name, teacher_id) VALUES ($1, $2) RETURNING id, name, teacher_id"
	if err := repo.db.GetContext(ctx, &row, q, cls.Name, nullID(cls.TeacherID)); err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return roster.Class{}, roster.ErrUnknownTeacher
		}
		return roster.Class{}, core.NewStorageError(err, "inserting class")
	}
	return row.class(), nil
}

func (repo *rosterRepository) UpdateClass(ctx context.Context, cls roster.Class) (roster.Class, error) {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	var row classRow
	q := "UPDATE classes SET name = $2, teacher_id = $3 WHERE id = $1 RETURNING id, name, teacher_id"
	if err := repo.db.GetContext(ctx, &row, q, cls.ID, cls.Name, nullID(cls.TeacherID)); err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return roster.Class{}, roster.ErrUnknownTeacher
		}
		return roster.Class{}, trapNoRowsErr(err, "updating class")
	}
	return row.class(), nil
}

func (repo *rosterRepository) DeleteClass(ctx context.Context, id int64) error {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	res, err := repo.db.ExecContext(ctx, "DELETE FROM classes WHERE id = $1", id)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return roster.ErrClassNotEmpty
		}
		return core.NewStorageError(err, "deleting class")
	}
	return checkAffected(res, "deleting class")
}

func (repo *rosterRepository) QueryStudentsOfClass(ctx context.Context, classID int64) ([]roster.Student, error) {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	rows := make([]studentRow, 0)
	q := `SELECT s.id, s.given_name, s.family_name, s.class_id, s.parent_id,
			p.given_name AS parent_given_name, p.family_name AS parent_family_name
		FROM students s
		LEFT JOIN parents p ON p.id = s.parent_id
		WHERE s.class_id = $1
		ORDER BY s.family_name, s.given_name, s.id`
	if err := repo.db.SelectContext(ctx, &rows, q, classID); err != nil {
		return nil, core.NewStorageError(err, "querying students of class")
	}
	return students(rows), nil
}

func (repo *rosterRepository) QueryChildren(ctx context.Context, parentID int64) ([]roster.Student, error) {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	rows := make([]studentRow, 0)
	q := `SELECT s.id, s.given_name, s.family_name, s.class_id, s.parent_id, c.name AS class_name
		FROM students s
		LEFT JOIN classes c ON c.id = s.class_id
		WHERE s.parent_id = $1
		ORDER BY s.family_name, s.given_name, s.id`
	if err := repo.db.SelectContext(ctx, &rows, q, parentID); err != nil {
		return nil, core.NewStorageError(err, "querying children")
	}
	return students(rows), nil
}

func (repo *rosterRepository) GetStudent(ctx context.Context, id int64) (roster.Student, error) {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	var row studentRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+studentColumns+" FROM students WHERE id = $1", id); err != nil {
		return roster.Student{}, trapNoRowsErr(err, "finding student")
	}
	return row.student(), nil
}

func (repo *rosterRepository) CreateStudent(ctx context.Context, std roster.Student) (roster.Student, error) {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	var row studentRow
	q := `INSERT INTO students (given_name, family_name, class_id, parent_id)
		VALUES ($1, $2, $3, $4) RETURNING ` + studentColumns
	err := repo.db.GetContext(ctx, &row, q, std.GivenName, std.FamilyName, nullID(std.ClassID), nullID(std.ParentID))
	if err != nil {
		return roster.Student{}, core.NewStorageError(err, "inserting student")
	}
	return row.student(), nil
}

func (repo *rosterRepository) UpdateStudent(ctx context.Context, std roster.Student) (roster.Student, error) {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	var row studentRow
	q := `UPDATE students SET given_name = $2, family_name = $3, class_id = $4, parent_id = $5
		WHERE id = $1 RETURNING ` + studentColumns
	err := repo.db.GetContext(ctx, &row, q, std.ID, std.GivenName, std.FamilyName, nullID(std.ClassID), nullID(std.ParentID))
	if err != nil {
		return roster.Student{}, trapNoRowsErr(err, "updating student")
	}
	return row.student(), nil
}

func (repo *rosterRepository) DeleteStudent(ctx context.Context, id int64) error {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	res, err := repo.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return core.NewStorageError(err, "deleting student")
	}
	return checkAffected(res, "deleting student")
}

func (repo *rosterRepository) GetStudentScopes(ctx context.Context, ids []int64) ([]roster.StudentScope, error) {
	if len(ids) == 0 {
		return []roster.StudentScope{}, nil
	}
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	rows := make([]scopeRow, 0, len(ids))
	q := `SELECT s.id AS student_id, s.class_id, c.teacher_id AS class_owner_id, s.parent_id
		FROM students s
		LEFT JOIN classes c ON c.id = s.class_id
		WHERE s.id = ANY($1)`
	if err := repo.db.SelectContext(ctx, &rows, q, pq.Array(ids)); err != nil {
		return nil, core.NewStorageError(err, "loading student scopes")
	}
	scopes := make([]roster.StudentScope, 0, len(rows))
	for _, row := range rows {
		scopes = append(scopes, roster.StudentScope{
			StudentID:    row.StudentID,
			ClassID:      row.ClassID.Int64,
			ClassOwnerID: row.ClassOwnerID.Int64,
			ParentID:     row.ParentID.Int64,
		})
	}
	return scopes, nil
}

func (repo *rosterRepository) GetParentIDByEmail(ctx context.Context, email string) (int64, error) {
	ctx, cancel := core.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	if err := repo.db.GetContext(ctx, &id, "SELECT id FROM parents WHERE email = $1", email); err != nil {
		return 0, trapNoRowsErr(err, "finding parent by email")
	}
	return id, nil
}
