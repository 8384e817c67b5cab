package roster

import (
	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/access"
)

type Class struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	TeacherID int64  `json:"teacher_id,omitempty"`
}

type Student struct {
	ID         int64  `json:"id"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	ClassID    int64  `json:"class_id,omitempty"`
	ParentID   int64  `json:"parent_id,omitempty"`

	// filled by listings
	ClassName        string `json:"class_name,omitempty"`
	ParentGivenName  string `json:"parent_given_name,omitempty"`
	ParentFamilyName string `json:"parent_family_name,omitempty"`
}

// StudentScope holds the ownership of a student: the teacher owning their class and their parent.
type StudentScope struct {
	StudentID    int64
	ClassID      int64
	ClassOwnerID int64
	ParentID     int64
}

func (s StudentScope) Target() access.Target {
	return access.Target{ClassOwnerID: s.ClassOwnerID, ParentID: s.ParentID}
}

// ClassData contains the editable fields of a Class.
type ClassData struct {
	Name      string `json:"name" validate:"required,notblank,max=100"`
	TeacherID int64  `json:"teacher_id" validate:"omitempty,min=1"`
}

func (cd *ClassData) Clean() {
	cd.Name = core.CleanString(cd.Name)
}

// NewStudent contains information needed to enrol a student. The parent is looked up by email.
type NewStudent struct {
	GivenName   string `json:"given_name" validate:"required,notblank,max=100"`
	FamilyName  string `json:"family_name" validate:"required,notblank,max=100"`
	ClassID     int64  `json:"class_id" validate:"required,min=1"`
	ParentEmail string `json:"parent_email" validate:"required,email"`
}

func (ns *NewStudent) Clean() {
	ns.GivenName = core.CleanString(ns.GivenName)
	ns.FamilyName = core.CleanString(ns.FamilyName)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)
}

// UpdateStudent defines what may be changed on an existing Student. Empty fields are left unchanged.
type UpdateStudent struct {
	GivenName   string `json:"given_name" validate:"omitempty,max=100"`
	FamilyName  string `json:"family_name" validate:"omitempty,max=100"`
	ClassID     int64  `json:"class_id" validate:"omitempty,min=1"`
	ParentEmail string `json:"parent_email" validate:"omitempty,email"`
}

func (us *UpdateStudent) Clean() {
	us.GivenName = core.CleanString(us.GivenName)
	us.FamilyName = core.CleanString(us.FamilyName)
	us.ParentEmail = core.CleanString(us.ParentEmail, true /* lower */)
}
