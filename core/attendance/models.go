package attendance

import (
	"encoding/json"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/roster"
)

type Status string

const (
	StatusPresent         Status = "present"
	StatusAbsent          Status = "absent"
	StatusAbsentJustified Status = "absent_justified"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusAbsentJustified:
		return true
	}
	return false
}

// Present reports the legacy presence flag: a justified absence counts as present.
func (s Status) Present() bool {
	return s != StatusAbsent
}

// Record is the attendance of one student on one day. There is at most one Record per (StudentID, Date).
type Record struct {
	ID            int64
	StudentID     int64
	Date          core.Date
	Status        Status
	ArrivalTime   *core.TimeOfDay
	Justification string

	// filled by class listings
	GivenName  string
	FamilyName string
}

type recordJSON struct {
	ID            int64           `json:"id"`
	StudentID     int64           `json:"student_id"`
	Date          core.Date       `json:"date"`
	Status        Status          `json:"status"`
	Present       bool            `json:"present"`
	ArrivalTime   *core.TimeOfDay `json:"arrival_time"`
	Justification string          `json:"justification,omitempty"`
	GivenName     string          `json:"given_name,omitempty"`
	FamilyName    string          `json:"family_name,omitempty"`
}

// MarshalJSON only reports the justification of a justified absence.
func (r Record) MarshalJSON() ([]byte, error) {
	rj := recordJSON{
		ID:          r.ID,
		StudentID:   r.StudentID,
		Date:        r.Date,
		Status:      r.Status,
		Present:     r.Status.Present(),
		ArrivalTime: r.ArrivalTime,
		GivenName:   r.GivenName,
		FamilyName:  r.FamilyName,
	}
	if r.Status == StatusAbsentJustified {
		rj.Justification = r.Justification
	}
	return json.Marshal(rj)
}

// MarkAttendance records whether a student was present on a day.
// A present mark without ArrivalTime is stamped with the current time.
type MarkAttendance struct {
	StudentID   int64           `json:"student_id" validate:"required,min=1"`
	Date        core.Date       `json:"date"`
	Present     *bool           `json:"present" validate:"required"`
	ArrivalTime *core.TimeOfDay `json:"arrival_time"`
}

type Justification struct {
	Text string `json:"justification" validate:"required,notblank,max=1000"`
}

// Sheet is the student by day grid of a class over a date range.
type Sheet struct {
	Class roster.Class
	Days  []core.Date
	Rows  []SheetRow
}

type SheetRow struct {
	Student roster.Student
	Marks   []Status // one per Sheet.Days; empty when unmarked
}
