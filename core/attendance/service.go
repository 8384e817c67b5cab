package attendance

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/access"
	"github.com/trezcool/appel/core/identity"
	"github.com/trezcool/appel/core/roster"
)

// MaxSheetDays bounds the date range of a class sheet.
const MaxSheetDays = 92

var (
	NowFunc = time.Now // mockable

	errRequired      = "this field is required"
	errInvalidTime   = "invalid time of day"
	errRangeReversed = "start must not be after end"
	errRangeTooLong  = "date range is too long"
)

type (
	Repository interface {
		// UpsertRecord inserts the record of (StudentID, Date) or updates its status and arrival time.
		// The justification of an existing record is kept. created is true when a row was inserted.
		UpsertRecord(ctx context.Context, rec Record) (saved Record, created bool, err error)
		GetRecord(ctx context.Context, id int64) (Record, error)
		// JustifyRecord turns an absent record into a justified absence.
		// It returns core.ErrInvalidState when the record is not absent.
		JustifyRecord(ctx context.Context, id int64, text string) (Record, error)
		// QueryByDateAndClass is ordered by family name, given name and student id.
		QueryByDateAndClass(ctx context.Context, date core.Date, classID int64) ([]Record, error)
		// QueryByStudentsAndDateRange is ordered by date and student id. Both bounds are inclusive.
		QueryByStudentsAndDateRange(ctx context.Context, studentIDs []int64, start, end core.Date) ([]Record, error)
	}

	// ScopeLoader gives access to the ownership of classes and students.
	ScopeLoader interface {
		GetClass(ctx context.Context, id int64) (roster.Class, error)
		GetStudentScopes(ctx context.Context, ids []int64) ([]roster.StudentScope, error)
		QueryStudentsOfClass(ctx context.Context, classID int64) ([]roster.Student, error)
	}

	Service interface {
		Mark(ctx context.Context, p identity.Principal, ma MarkAttendance) (rec Record, created bool, err error)
		Justify(ctx context.Context, p identity.Principal, id int64, just Justification) (Record, error)
		ByDateAndClass(ctx context.Context, p identity.Principal, date core.Date, classID int64) ([]Record, error)
		ByStudentsAndDateRange(ctx context.Context, p identity.Principal, studentIDs []int64, start, end core.Date) ([]Record, error)
		ClassSheet(ctx context.Context, p identity.Principal, classID int64, start, end core.Date) (Sheet, error)
	}

	service struct {
		repo     Repository
		scopes   ScopeLoader
		loc      *time.Location
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(conf *core.Config, repo Repository, scopes ScopeLoader, validate *validator.Validate) Service {
	loc := conf.Location
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		repo:     repo,
		scopes:   scopes,
		loc:      loc,
		validate: validate,
	}
}

func (svc *service) Mark(ctx context.Context, p identity.Principal, ma MarkAttendance) (Record, bool, error) {
	if err := svc.validate.Struct(ma); err != nil {
		return Record{}, false, err
	}
	if ma.Date.IsZero() {
		return Record{}, false, core.NewFieldError("date", errRequired)
	}
	if ma.ArrivalTime != nil && !ma.ArrivalTime.Valid() {
		return Record{}, false, core.NewFieldError("arrival_time", errInvalidTime)
	}

	scope, err := svc.studentScope(ctx, ma.StudentID)
	if err != nil {
		return Record{}, false, err
	}
	if err = access.Authorize(p, access.WriteAttendance, scope.Target()); err != nil {
		return Record{}, false, err
	}

	rec := Record{StudentID: ma.StudentID, Date: ma.Date}
	if *ma.Present {
		rec.Status = StatusPresent
		rec.ArrivalTime = ma.ArrivalTime
		if rec.ArrivalTime == nil {
			now := core.TimeOfDayOf(NowFunc().In(svc.loc))
			rec.ArrivalTime = &now
		}
	} else {
		rec.Status = StatusAbsent
	}

	saved, created, err := svc.repo.UpsertRecord(ctx, rec)
	if err != nil {
		return Record{}, false, errors.Wrap(err, "upserting attendance record")
	}
	return saved, created, nil
}

func (svc *service) Justify(ctx context.Context, p identity.Principal, id int64, just Justification) (Record, error) {
	just.Text = core.CleanString(just.Text)
	if err := svc.validate.Struct(just); err != nil {
		return Record{}, err
	}

	rec, err := svc.repo.GetRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}
	scope, err := svc.studentScope(ctx, rec.StudentID)
	if err != nil {
		return Record{}, err
	}
	if err = access.Authorize(p, access.JustifyAttendance, scope.Target()); err != nil {
		return Record{}, access.Hide(err)
	}
	if rec.Status != StatusAbsent {
		return Record{}, errors.Wrapf(core.ErrInvalidState, "record is %s", rec.Status)
	}

	return svc.repo.JustifyRecord(ctx, id, just.Text)
}

func (svc *service) ByDateAndClass(ctx context.Context, p identity.Principal, date core.Date, classID int64) ([]Record, error) {
	if date.IsZero() {
		return nil, core.NewFieldError("date", errRequired)
	}
	if _, err := svc.readableClass(ctx, p, classID); err != nil {
		return nil, err
	}
	recs, err := svc.repo.QueryByDateAndClass(ctx, date, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying class attendance")
	}
	return recs, nil
}

func (svc *service) ByStudentsAndDateRange(ctx context.Context, p identity.Principal, studentIDs []int64, start, end core.Date) ([]Record, error) {
	if len(studentIDs) == 0 {
		return []Record{}, nil
	}
	if err := checkRange(start, end, 0); err != nil {
		return nil, err
	}

	ids := uniqueIDs(studentIDs)
	scopes, err := svc.scopes.GetStudentScopes(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "loading student scopes")
	}
	byID := make(map[int64]roster.StudentScope, len(scopes))
	for _, s := range scopes {
		byID[s.StudentID] = s
	}
	for _, id := range ids {
		// unknown students have an empty scope, which only an admin may read
		if err = access.Authorize(p, access.ReadAttendance, byID[id].Target()); err != nil {
			return nil, err
		}
	}

	recs, err := svc.repo.QueryByStudentsAndDateRange(ctx, ids, start, end)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance range")
	}
	return recs, nil
}

func (svc *service) ClassSheet(ctx context.Context, p identity.Principal, classID int64, start, end core.Date) (Sheet, error) {
	if err := checkRange(start, end, MaxSheetDays); err != nil {
		return Sheet{}, err
	}
	cls, err := svc.readableClass(ctx, p, classID)
	if err != nil {
		return Sheet{}, err
	}

	students, err := svc.scopes.QueryStudentsOfClass(ctx, classID)
	if err != nil {
		return Sheet{}, errors.Wrap(err, "querying students")
	}
	ids := make([]int64, 0, len(students))
	for _, std := range students {
		ids = append(ids, std.ID)
	}
	var recs []Record
	if len(ids) > 0 {
		if recs, err = svc.repo.QueryByStudentsAndDateRange(ctx, ids, start, end); err != nil {
			return Sheet{}, errors.Wrap(err, "querying attendance range")
		}
	}

	sheet := Sheet{Class: cls}
	dayIdx := make(map[core.Date]int)
	for d := start; !d.After(end); d = d.AddDays(1) {
		dayIdx[d] = len(sheet.Days)
		sheet.Days = append(sheet.Days, d)
	}
	rowIdx := make(map[int64]int, len(students))
	for i, std := range students {
		rowIdx[std.ID] = i
		sheet.Rows = append(sheet.Rows, SheetRow{Student: std, Marks: make([]Status, len(sheet.Days))})
	}
	for _, rec := range recs {
		row, ok := rowIdx[rec.StudentID]
		if !ok {
			continue
		}
		sheet.Rows[row].Marks[dayIdx[rec.Date]] = rec.Status
	}
	return sheet, nil
}

// readableClass loads a class whose attendance p may read.
// A missing class is only reported as such to admins.
func (svc *service) readableClass(ctx context.Context, p identity.Principal, classID int64) (roster.Class, error) {
	cls, err := svc.scopes.GetClass(ctx, classID)
	if err != nil && errors.Cause(err) != core.ErrNotFound {
		return roster.Class{}, errors.Wrap(err, "finding class")
	}
	if err = access.Authorize(p, access.ReadAttendance, access.Target{ClassOwnerID: cls.TeacherID}); err != nil {
		return roster.Class{}, err
	}
	if cls.ID == 0 {
		return roster.Class{}, core.ErrNotFound
	}
	return cls, nil
}

// studentScope loads the scope of a student. A missing student yields an empty scope.
func (svc *service) studentScope(ctx context.Context, id int64) (roster.StudentScope, error) {
	scopes, err := svc.scopes.GetStudentScopes(ctx, []int64{id})
	if err != nil {
		return roster.StudentScope{}, errors.Wrap(err, "loading student scope")
	}
	if len(scopes) == 0 {
		return roster.StudentScope{}, nil
	}
	return scopes[0], nil
}

func checkRange(start, end core.Date, maxDays int) error {
	if start.IsZero() {
		return core.NewFieldError("start", errRequired)
	}
	if end.IsZero() {
		return core.NewFieldError("end", errRequired)
	}
	if start.After(end) {
		return core.NewFieldError("start", errRangeReversed)
	}
	if maxDays > 0 && !start.AddDays(maxDays).After(end) {
		return core.NewFieldError("end", errRangeTooLong)
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
