// Package testutil holds the fixtures shared by the tests of the app.
package testutil

import (
	"context"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/attendance"
	"github.com/trezcool/appel/core/identity"
	"github.com/trezcool/appel/core/notification"
	"github.com/trezcool/appel/core/roster"
)

// NewValidator returns a validator with every package's validators registered,
// along with the translator holding their messages.
func NewValidator() (*validator.Validate, ut.Translator) {
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	identity.InitValidators(validate, translator)
	notification.InitValidators(validate, translator)
	return validate, translator
}

func CreateAccount(t *testing.T, repo identity.Repository, role identity.Role, given, family, email, pwd string) identity.Account {
	t.Helper()
	prof := identity.Profile{
		GivenName:    given,
		FamilyName:   family,
		Email:        email,
		PasswordHash: []byte{}, // no login
	}
	if pwd != "" {
		if err := prof.SetPassword(pwd); err != nil {
			t.Fatalf("CreateAccount() failed: %v", err)
		}
	}
	acc, err := repo.CreateAccount(context.Background(), role, prof)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acc
}

func CreateAdmin(t *testing.T, repo identity.Repository, given, family, email string) identity.Admin {
	t.Helper()
	return CreateAccount(t, repo, identity.RoleAdmin, given, family, email, "").(identity.Admin)
}

func CreateTeacher(t *testing.T, repo identity.Repository, given, family, email string) identity.Teacher {
	t.Helper()
	return CreateAccount(t, repo, identity.RoleTeacher, given, family, email, "").(identity.Teacher)
}

func CreateParent(t *testing.T, repo identity.Repository, given, family, email string) identity.Parent {
	t.Helper()
	return CreateAccount(t, repo, identity.RoleParent, given, family, email, "").(identity.Parent)
}

func CreateClass(t *testing.T, repo roster.Repository, name string, teacherID int64) roster.Class {
	t.Helper()
	cls, err := repo.CreateClass(context.Background(), roster.Class{Name: name, TeacherID: teacherID})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func CreateStudent(t *testing.T, repo roster.Repository, given, family string, classID, parentID int64) roster.Student {
	t.Helper()
	std, err := repo.CreateStudent(context.Background(), roster.Student{
		GivenName:  given,
		FamilyName: family,
		ClassID:    classID,
		ParentID:   parentID,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

func CreateRecord(t *testing.T, repo attendance.Repository, studentID int64, date core.Date, status attendance.Status) attendance.Record {
	t.Helper()
	rec, _, err := repo.UpsertRecord(context.Background(), attendance.Record{StudentID: studentID, Date: date, Status: status})
	if err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	return rec
}

// School is a small data set: two teachers with one class each and two families.
//
//	ClassA (TeacherA): Student7 (ParentX)
//	ClassB (TeacherB): Student9 (ParentY)
type School struct {
	Admin    identity.Admin
	TeacherA identity.Teacher
	TeacherB identity.Teacher
	ParentX  identity.Parent
	ParentY  identity.Parent
	ClassA   roster.Class
	ClassB   roster.Class
	Student7 roster.Student
	Student9 roster.Student
}

func SeedSchool(t *testing.T, idRepo identity.Repository, rosterRepo roster.Repository) School {
	t.Helper()
	var s School
	s.Admin = CreateAdmin(t, idRepo, "Ada", "Admin", "admin@school.test")
	s.TeacherA = CreateTeacher(t, idRepo, "Alice", "Martin", "alice@school.test")
	s.TeacherB = CreateTeacher(t, idRepo, "Bruno", "Petit", "bruno@school.test")
	s.ParentX = CreateParent(t, idRepo, "Xavier", "Amrani", "xavier@family.test")
	s.ParentY = CreateParent(t, idRepo, "Yasmine", "Bernard", "yasmine@family.test")
	s.ClassA = CreateClass(t, rosterRepo, "CM1", s.TeacherA.ID)
	s.ClassB = CreateClass(t, rosterRepo, "CM2", s.TeacherB.ID)
	s.Student7 = CreateStudent(t, rosterRepo, "Lina", "Amrani", s.ClassA.ID, s.ParentX.ID)
	s.Student9 = CreateStudent(t, rosterRepo, "Hugo", "Bernard", s.ClassB.ID, s.ParentY.ID)
	return s
}
