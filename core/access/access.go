// Package access decides whether a principal may perform an action on a target.
// It is a pure function of its inputs: callers load the ownership fields of the target first.
package access

import (
	"github.com/pkg/errors"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/identity"
)

type Action int

const (
	ReadIdentities Action = iota + 1
	WriteIdentities
	ListParents
	ReadRoster
	WriteRoster
	ReadAttendance
	WriteAttendance
	JustifyAttendance
	ReadNotifications
	WriteNotifications
	MarkNotificationRead
)

var actionNames = map[Action]string{
	ReadIdentities:       "read identities",
	WriteIdentities:      "write identities",
	ListParents:          "list parents",
	ReadRoster:           "read roster",
	WriteRoster:          "write roster",
	ReadAttendance:       "read attendance",
	WriteAttendance:      "write attendance",
	JustifyAttendance:    "justify attendance",
	ReadNotifications:    "read notifications",
	WriteNotifications:   "write notifications",
	MarkNotificationRead: "mark notification read",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown action"
}

// Target carries the ownership fields of the resource being accessed. Zero IDs are unset.
type Target struct {
	ClassOwnerID int64 // teacher owning the class (of the student)
	ParentID     int64 // parent of the student
	AuthorID     int64 // teacher who wrote the notification
	RecipientID  int64 // parent the notification is addressed to
	Collection   bool  // the request spans a whole collection
}

// adminActions are the only actions an admin may perform.
var adminActions = map[Action]bool{
	ReadIdentities:    true,
	WriteIdentities:   true,
	ListParents:       true,
	ReadRoster:        true,
	WriteRoster:       true,
	ReadAttendance:    true,
	ReadNotifications: true,
}

// Authorize returns nil when p may perform a on t, and core.ErrUnauthorized otherwise.
func Authorize(p identity.Principal, a Action, t Target) error {
	if p.ID == 0 {
		return core.ErrUnauthorized
	}
	var allowed bool
	switch p.Role {
	case identity.RoleAdmin:
		allowed = adminActions[a]
	case identity.RoleTeacher:
		allowed = teacherMay(p.ID, a, t)
	case identity.RoleParent:
		allowed = parentMay(p.ID, a, t)
	}
	if !allowed {
		return core.ErrUnauthorized
	}
	return nil
}

func teacherMay(self int64, a Action, t Target) bool {
	switch a {
	case ListParents:
		return true
	case ReadRoster, WriteRoster, ReadAttendance, WriteAttendance, JustifyAttendance:
		return owns(self, t.ClassOwnerID)
	case WriteNotifications:
		return owns(self, t.AuthorID) && owns(self, t.ClassOwnerID)
	case ReadNotifications, MarkNotificationRead:
		return owns(self, t.AuthorID)
	}
	return false
}

func parentMay(self int64, a Action, t Target) bool {
	switch a {
	case ReadRoster, ReadAttendance, JustifyAttendance:
		return owns(self, t.ParentID)
	case ReadNotifications, MarkNotificationRead:
		return owns(self, t.RecipientID)
	}
	return false
}

func owns(self, owner int64) bool {
	return owner != 0 && owner == self
}

// Hide turns a denial into core.ErrNotFound, for endpoints addressing a single record by id.
func Hide(err error) error {
	if errors.Cause(err) == core.ErrUnauthorized {
		return core.ErrNotFound
	}
	return err
}
