package roster

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/access"
	"github.com/trezcool/appel/core/identity"
)

var (
	ErrUnknownTeacher = errors.New("teacher not found")
	ErrClassNotEmpty  = errors.New("class still has students")

	errUnknownClass  = "class not found"
	errUnknownParent = "no parent account with this email"
)

type (
	Repository interface {
		// QueryClasses lists the classes of a teacher, or all classes when teacherID is 0.
		QueryClasses(ctx context.Context, teacherID int64) ([]Class, error)
		GetClass(ctx context.Context, id int64) (Class, error)
		// CreateClass and UpdateClass return ErrUnknownTeacher when TeacherID does not exist.
		CreateClass(ctx context.Context, cls Class) (Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		// DeleteClass returns ErrClassNotEmpty when students are still enrolled.
		DeleteClass(ctx context.Context, id int64) error

		QueryStudentsOfClass(ctx context.Context, classID int64) ([]Student, error)
		QueryChildren(ctx context.Context, parentID int64) ([]Student, error)
		GetStudent(ctx context.Context, id int64) (Student, error)
		CreateStudent(ctx context.Context, std Student) (Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		DeleteStudent(ctx context.Context, id int64) error

		// GetStudentScopes returns the scopes of the existing students among ids.
		GetStudentScopes(ctx context.Context, ids []int64) ([]StudentScope, error)
		GetParentIDByEmail(ctx context.Context, email string) (int64, error)
	}

	Service interface {
		Classes(ctx context.Context, p identity.Principal) ([]Class, error)
		CreateClass(ctx context.Context, p identity.Principal, cd ClassData) (Class, error)
		UpdateClass(ctx context.Context, p identity.Principal, id int64, cd ClassData) (Class, error)
		DeleteClass(ctx context.Context, p identity.Principal, id int64) error

		StudentsOfClass(ctx context.Context, p identity.Principal, classID int64) ([]Student, error)
		ChildrenOf(ctx context.Context, p identity.Principal, parentID int64) ([]Student, error)
		CreateStudent(ctx context.Context, p identity.Principal, ns NewStudent) (Student, error)
		UpdateStudent(ctx context.Context, p identity.Principal, id int64, us UpdateStudent) (Student, error)
		DeleteStudent(ctx context.Context, p identity.Principal, id int64) error
	}

	service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, validate *validator.Validate) Service {
	return &service{repo: repo, validate: validate}
}

var collection = access.Target{Collection: true}

func (svc *service) Classes(ctx context.Context, p identity.Principal) ([]Class, error) {
	if p.IsTeacher() {
		return svc.repo.QueryClasses(ctx, p.ID)
	}
	if err := access.Authorize(p, access.ReadRoster, collection); err != nil {
		return nil, err
	}
	return svc.repo.QueryClasses(ctx, 0)
}

func (svc *service) CreateClass(ctx context.Context, p identity.Principal, cd ClassData) (Class, error) {
	if err := access.Authorize(p, access.WriteRoster, collection); err != nil {
		return Class{}, err
	}
	cd.Clean()
	if err := svc.validate.Struct(cd); err != nil {
		return Class{}, err
	}

	cls, err := svc.repo.CreateClass(ctx, Class{Name: cd.Name, TeacherID: cd.TeacherID})
	if err != nil {
		return Class{}, trapUnknownTeacher(err, "creating class")
	}
	return cls, nil
}

func (svc *service) UpdateClass(ctx context.Context, p identity.Principal, id int64, cd ClassData) (Class, error) {
	if err := access.Authorize(p, access.WriteRoster, collection); err != nil {
		return Class{}, err
	}
	cd.Clean()
	if err := svc.validate.Struct(cd); err != nil {
		return Class{}, err
	}

	cls, err := svc.repo.UpdateClass(ctx, Class{ID: id, Name: cd.Name, TeacherID: cd.TeacherID})
	if err != nil {
		return Class{}, trapUnknownTeacher(err, "updating class")
	}
	return cls, nil
}

func (svc *service) DeleteClass(ctx context.Context, p identity.Principal, id int64) error {
	if err := access.Authorize(p, access.WriteRoster, collection); err != nil {
		return err
	}
	if err := svc.repo.DeleteClass(ctx, id); err != nil {
		if errors.Cause(err) == ErrClassNotEmpty {
			return errors.Wrap(core.ErrInvalidState, ErrClassNotEmpty.Error())
		}
		return err
	}
	return nil
}

// classTarget loads the ownership of a class. A missing class yields an empty target.
func (svc *service) classTarget(ctx context.Context, classID int64) (Class, access.Target, error) {
	cls, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return Class{}, access.Target{}, nil
		}
		return Class{}, access.Target{}, errors.Wrap(err, "finding class")
	}
	return cls, access.Target{ClassOwnerID: cls.TeacherID}, nil
}

func (svc *service) StudentsOfClass(ctx context.Context, p identity.Principal, classID int64) ([]Student, error) {
	cls, target, err := svc.classTarget(ctx, classID)
	if err != nil {
		return nil, err
	}
	if err = access.Authorize(p, access.ReadRoster, target); err != nil {
		return nil, err
	}
	if cls.ID == 0 {
		return nil, core.ErrNotFound
	}
	return svc.repo.QueryStudentsOfClass(ctx, classID)
}

func (svc *service) ChildrenOf(ctx context.Context, p identity.Principal, parentID int64) ([]Student, error) {
	if err := access.Authorize(p, access.ReadRoster, access.Target{ParentID: parentID}); err != nil {
		return nil, err
	}
	return svc.repo.QueryChildren(ctx, parentID)
}

func (svc *service) CreateStudent(ctx context.Context, p identity.Principal, ns NewStudent) (Student, error) {
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Student{}, err
	}

	cls, target, err := svc.classTarget(ctx, ns.ClassID)
	if err != nil {
		return Student{}, err
	}
	if err = access.Authorize(p, access.WriteRoster, target); err != nil {
		return Student{}, err
	}
	if cls.ID == 0 {
		return Student{}, core.NewFieldError("class_id", errUnknownClass)
	}

	parentID, err := svc.parentID(ctx, ns.ParentEmail)
	if err != nil {
		return Student{}, err
	}

	return svc.repo.CreateStudent(ctx, Student{
		GivenName:  ns.GivenName,
		FamilyName: ns.FamilyName,
		ClassID:    cls.ID,
		ParentID:   parentID,
	})
}

func (svc *service) UpdateStudent(ctx context.Context, p identity.Principal, id int64, us UpdateStudent) (Student, error) {
	std, err := svc.writableStudent(ctx, p, id)
	if err != nil {
		return Student{}, err
	}

	us.Clean()
	if err = svc.validate.Struct(us); err != nil {
		return Student{}, err
	}
	if us.GivenName != "" {
		std.GivenName = us.GivenName
	}
	if us.FamilyName != "" {
		std.FamilyName = us.FamilyName
	}
	if us.ClassID != 0 && us.ClassID != std.ClassID {
		// the new class must be writable too
		cls, target, err := svc.classTarget(ctx, us.ClassID)
		if err != nil {
			return Student{}, err
		}
		if err = access.Authorize(p, access.WriteRoster, target); err != nil {
			return Student{}, err
		}
		if cls.ID == 0 {
			return Student{}, core.NewFieldError("class_id", errUnknownClass)
		}
		std.ClassID = cls.ID
	}
	if us.ParentEmail != "" {
		if std.ParentID, err = svc.parentID(ctx, us.ParentEmail); err != nil {
			return Student{}, err
		}
	}

	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *service) DeleteStudent(ctx context.Context, p identity.Principal, id int64) error {
	if _, err := svc.writableStudent(ctx, p, id); err != nil {
		return err
	}
	return svc.repo.DeleteStudent(ctx, id)
}

// writableStudent loads a student the principal may edit. Students out of scope are reported as not found.
func (svc *service) writableStudent(ctx context.Context, p identity.Principal, id int64) (Student, error) {
	std, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	var target access.Target
	if std.ClassID != 0 {
		if _, target, err = svc.classTarget(ctx, std.ClassID); err != nil {
			return Student{}, err
		}
	}
	if err = access.Authorize(p, access.WriteRoster, target); err != nil {
		return Student{}, access.Hide(err)
	}
	return std, nil
}

func (svc *service) parentID(ctx context.Context, email string) (int64, error) {
	id, err := svc.repo.GetParentIDByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return 0, core.NewFieldError("parent_email", errUnknownParent)
		}
		return 0, errors.Wrap(err, "finding parent by email")
	}
	return id, nil
}

func trapUnknownTeacher(err error, msg string) error {
	if errors.Cause(err) == ErrUnknownTeacher {
		return core.NewFieldError("teacher_id", ErrUnknownTeacher.Error())
	}
	return errors.Wrap(err, msg)
}
