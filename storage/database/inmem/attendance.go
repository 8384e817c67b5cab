package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) UpsertRecord(_ context.Context, rec attendance.Record) (attendance.Record, bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[rec.StudentID]; !ok {
		return attendance.Record{}, false, core.ErrNotFound
	}
	key := recordKey{studentID: rec.StudentID, date: rec.Date}
	if id, ok := repo.db.recordKeys[key]; ok {
		stored := repo.db.records[id]
		stored.Status = rec.Status
		stored.ArrivalTime = copyTime(rec.ArrivalTime)
		return repo.copyRecord(stored), false, nil
	}

	stored := &attendance.Record{
		ID:          repo.db.nextID(),
		StudentID:   rec.StudentID,
		Date:        rec.Date,
		Status:      rec.Status,
		ArrivalTime: copyTime(rec.ArrivalTime),
	}
	repo.db.records[stored.ID] = stored
	repo.db.recordKeys[key] = stored.ID
	return repo.copyRecord(stored), true, nil
}

func (repo *attendanceRepository) GetRecord(_ context.Context, id int64) (attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.records[id]; ok {
		return repo.copyRecord(rec), nil
	}
	return attendance.Record{}, core.ErrNotFound
}

func (repo *attendanceRepository) JustifyRecord(_ context.Context, id int64, text string) (attendance.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec, ok := repo.db.records[id]
	if !ok {
		return attendance.Record{}, core.ErrNotFound
	}
	if rec.Status != attendance.StatusAbsent {
		return attendance.Record{}, core.ErrInvalidState
	}
	rec.Status = attendance.StatusAbsentJustified
	rec.Justification = text
	return repo.copyRecord(rec), nil
}

func (repo *attendanceRepository) QueryByDateAndClass(_ context.Context, date core.Date, classID int64) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	recs := make([]attendance.Record, 0)
	for _, rec := range repo.db.records {
		if rec.Date != date {
			continue
		}
		std, ok := repo.db.students[rec.StudentID]
		if !ok || std.ClassID != classID {
			continue
		}
		r := repo.copyRecord(rec)
		r.GivenName, r.FamilyName = std.GivenName, std.FamilyName
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.FamilyName != b.FamilyName {
			return a.FamilyName < b.FamilyName
		}
		if a.GivenName != b.GivenName {
			return a.GivenName < b.GivenName
		}
		return a.StudentID < b.StudentID
	})
	return recs, nil
}

func (repo *attendanceRepository) QueryByStudentsAndDateRange(_ context.Context, studentIDs []int64, start, end core.Date) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	wanted := make(map[int64]bool, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = true
	}
	recs := make([]attendance.Record, 0)
	for _, rec := range repo.db.records {
		if wanted[rec.StudentID] && !rec.Date.Before(start) && !rec.Date.After(end) {
			recs = append(recs, repo.copyRecord(rec))
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Date != recs[j].Date {
			return recs[i].Date.Before(recs[j].Date)
		}
		return recs[i].StudentID < recs[j].StudentID
	})
	return recs, nil
}

func (repo *attendanceRepository) copyRecord(rec *attendance.Record) attendance.Record {
	r := *rec
	r.ArrivalTime = copyTime(rec.ArrivalTime)
	return r
}

func copyTime(t *core.TimeOfDay) *core.TimeOfDay {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
