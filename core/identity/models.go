package identity

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/appel/core"
)

// Role selects the account table an identity lives in.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleParent  Role = "parent"
)

var AllRoles = []Role{RoleAdmin, RoleTeacher, RoleParent}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleParent:
		return true
	}
	return false
}

// Principal is the verified caller of an operation.
type Principal struct {
	ID   int64
	Role Role
}

func (p Principal) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p Principal) IsTeacher() bool { return p.Role == RoleTeacher }
func (p Principal) IsParent() bool  { return p.Role == RoleParent }

// Profile holds the fields shared by every kind of account.
type Profile struct {
	ID           int64  `json:"id"`
	GivenName    string `json:"given_name"`
	FamilyName   string `json:"family_name"`
	Email        string `json:"email"`
	PasswordHash []byte `json:"-"`
}

func (p *Profile) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.PasswordHash = hash
	return nil
}

func (p Profile) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(pwd))
}

func (p Profile) FullName() string {
	return p.GivenName + " " + p.FamilyName
}

type (
	Admin struct {
		Profile
	}

	Teacher struct {
		Profile
		CreatedAt time.Time `json:"created_at"`
	}

	Parent struct {
		Profile
		CreatedAt time.Time `json:"created_at"`
	}
)

// Account is one of Admin, Teacher or Parent.
type Account interface {
	Principal() Principal
	GetProfile() Profile
	account()
}

var (
	_ Account = Admin{}
	_ Account = Teacher{}
	_ Account = Parent{}
)

func (a Admin) Principal() Principal   { return Principal{ID: a.ID, Role: RoleAdmin} }
func (a Teacher) Principal() Principal { return Principal{ID: a.ID, Role: RoleTeacher} }
func (a Parent) Principal() Principal  { return Principal{ID: a.ID, Role: RoleParent} }

func (a Admin) GetProfile() Profile   { return a.Profile }
func (a Teacher) GetProfile() Profile { return a.Profile }
func (a Parent) GetProfile() Profile  { return a.Profile }

func (Admin) account()   {}
func (Teacher) account() {}
func (Parent) account()  {}

// NewAccount contains information needed to create a new Account.
// A random password is generated when Password is empty.
type NewAccount struct {
	GivenName  string `json:"given_name" validate:"required,notblank,max=100"`
	FamilyName string `json:"family_name" validate:"required,notblank,max=100"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Password   string `json:"password" validate:"omitempty,min=6"`
}

func (na *NewAccount) Clean() {
	na.GivenName = core.CleanString(na.GivenName)
	na.FamilyName = core.CleanString(na.FamilyName)
	na.Email = core.CleanString(na.Email, true /* lower */)
}

// Credentials is what a caller presents to log in.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     Role   `json:"role" validate:"required,role"`
}
