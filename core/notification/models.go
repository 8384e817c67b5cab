package notification

import (
	"time"

	"github.com/trezcool/appel/core"
)

type Type string

const (
	TypeAbsence   Type = "absence"
	TypeTardiness Type = "tardiness"
	TypeOther     Type = "other"
)

func (t Type) Valid() bool {
	switch t {
	case TypeAbsence, TypeTardiness, TypeOther:
		return true
	}
	return false
}

// Notification is a message from a teacher to a parent about a student. Only Read ever changes.
type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
	TeacherID int64     `json:"teacher_id,omitempty"`
	StudentID int64     `json:"student_id,omitempty"`
	ParentID  int64     `json:"parent_id,omitempty"`
}

type NewNotification struct {
	StudentID int64  `json:"student_id" validate:"required,min=1"`
	ParentID  int64  `json:"parent_id" validate:"omitempty,min=1"`
	Message   string `json:"message" validate:"required,notblank,max=2000"`
	Type      Type   `json:"type" validate:"omitempty,notiftype"`
}

func (nn *NewNotification) Clean() {
	nn.Message = core.CleanString(nn.Message)
	if nn.Type == "" {
		nn.Type = TypeOther
	}
}

// Filter selects the notifications of a teacher (author) or of a parent (recipient). An empty Filter selects all.
type Filter struct {
	TeacherID int64
	ParentID  int64
}
