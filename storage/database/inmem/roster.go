package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/identity"
	"github.com/trezcool/appel/core/roster"
)

type rosterRepository struct {
	db *DB
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *DB) roster.Repository {
	return &rosterRepository{db: db}
}

func (repo *rosterRepository) QueryClasses(_ context.Context, teacherID int64) ([]roster.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]roster.Class, 0)
	for _, cls := range repo.db.classes {
		if teacherID == 0 || cls.TeacherID == teacherID {
			classes = append(classes, *cls)
		}
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Name != classes[j].Name {
			return classes[i].Name < classes[j].Name
		}
		return classes[i].ID < classes[j].ID
	})
	return classes, nil
}

func (repo *rosterRepository) GetClass(_ context.Context, id int64) (roster.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return *cls, nil
	}
	return roster.Class{}, core.ErrNotFound
}

// checkTeacher must be called with the lock held.
func (repo *rosterRepository) checkTeacher(teacherID int64) error {
	if teacherID == 0 {
		return nil
	}
	if _, ok := repo.db.accounts[identity.RoleTeacher][teacherID]; !ok {
		return roster.ErrUnknownTeacher
	}
	return nil
}

func (repo *rosterRepository) CreateClass(_ context.Context, cls roster.Class) (roster.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := repo.checkTeacher(cls.TeacherID); err != nil {
		return roster.Class{}, err
	}
	cls.ID = repo.db.nextID()
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *rosterRepository) UpdateClass(_ context.Context, cls roster.Class) (roster.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.classes[cls.ID]
	if !ok {
		return roster.Class{}, core.ErrNotFound
	}
	if err := repo.checkTeacher(cls.TeacherID); err != nil {
		return roster.Class{}, err
	}
	*stored = cls
	return cls, nil
}

func (repo *rosterRepository) DeleteClass(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classes[id]; !ok {
		return core.ErrNotFound
	}
	for _, std := range repo.db.students {
		if std.ClassID == id {
			return roster.ErrClassNotEmpty
		}
	}
	delete(repo.db.classes, id)
	return nil
}

func sortStudents(students []roster.Student) {
	sort.Slice(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if a.FamilyName != b.FamilyName {
			return a.FamilyName < b.FamilyName
		}
		if a.GivenName != b.GivenName {
			return a.GivenName < b.GivenName
		}
		return a.ID < b.ID
	})
}

func (repo *rosterRepository) QueryStudentsOfClass(_ context.Context, classID int64) ([]roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]roster.Student, 0)
	for _, std := range repo.db.students {
		if std.ClassID != classID {
			continue
		}
		s := *std
		if parent, ok := repo.db.accounts[identity.RoleParent][s.ParentID]; ok {
			s.ParentGivenName = parent.profile.GivenName
			s.ParentFamilyName = parent.profile.FamilyName
		}
		students = append(students, s)
	}
	sortStudents(students)
	return students, nil
}

func (repo *rosterRepository) QueryChildren(_ context.Context, parentID int64) ([]roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]roster.Student, 0)
	for _, std := range repo.db.students {
		if parentID == 0 || std.ParentID != parentID {
			continue
		}
		s := *std
		if cls, ok := repo.db.classes[s.ClassID]; ok {
			s.ClassName = cls.Name
		}
		students = append(students, s)
	}
	sortStudents(students)
	return students, nil
}

func (repo *rosterRepository) GetStudent(_ context.Context, id int64) (roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if std, ok := repo.db.students[id]; ok {
		return *std, nil
	}
	return roster.Student{}, core.ErrNotFound
}

func (repo *rosterRepository) CreateStudent(_ context.Context, std roster.Student) (roster.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	std.ID = repo.db.nextID()
	std.ClassName, std.ParentGivenName, std.ParentFamilyName = "", "", ""
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *rosterRepository) UpdateStudent(_ context.Context, std roster.Student) (roster.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.students[std.ID]
	if !ok {
		return roster.Student{}, core.ErrNotFound
	}
	std.ClassName, std.ParentGivenName, std.ParentFamilyName = "", "", ""
	*stored = std
	return std, nil
}

func (repo *rosterRepository) DeleteStudent(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return core.ErrNotFound
	}
	delete(repo.db.students, id)

	// attendance cascades, notifications keep their row
	for recID, rec := range repo.db.records {
		if rec.StudentID == id {
			delete(repo.db.recordKeys, recordKey{studentID: id, date: rec.Date})
			delete(repo.db.records, recID)
		}
	}
	for _, n := range repo.db.notifications {
		if n.StudentID == id {
			n.StudentID = 0
		}
	}
	return nil
}

func (repo *rosterRepository) GetStudentScopes(_ context.Context, ids []int64) ([]roster.StudentScope, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	scopes := make([]roster.StudentScope, 0, len(ids))
	for _, id := range ids {
		std, ok := repo.db.students[id]
		if !ok {
			continue
		}
		scope := roster.StudentScope{StudentID: std.ID, ClassID: std.ClassID, ParentID: std.ParentID}
		if cls, ok := repo.db.classes[std.ClassID]; ok {
			scope.ClassOwnerID = cls.TeacherID
		}
		scopes = append(scopes, scope)
	}
	return scopes, nil
}

func (repo *rosterRepository) GetParentIDByEmail(_ context.Context, email string) (int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for id, row := range repo.db.accounts[identity.RoleParent] {
		if row.profile.Email == email {
			return id, nil
		}
	}
	return 0, core.ErrNotFound
}
