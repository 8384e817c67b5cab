// Package inmemdb keeps every table in memory behind a single lock.
// It backs the tests and the demo mode of the API.
package inmemdb

import (
	"sync"
	"time"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/attendance"
	"github.com/trezcool/appel/core/identity"
	"github.com/trezcool/appel/core/notification"
	"github.com/trezcool/appel/core/roster"
)

type (
	DB struct {
		mutex sync.RWMutex
		seq   int64

		accounts      map[identity.Role]map[int64]*accountRow
		classes       map[int64]*roster.Class
		students      map[int64]*roster.Student
		records       map[int64]*attendance.Record
		recordKeys    map[recordKey]int64 // unique (student_id, date)
		notifications map[int64]*notification.Notification
	}

	accountRow struct {
		profile   identity.Profile
		createdAt time.Time
	}

	recordKey struct {
		studentID int64
		date      core.Date
	}
)

func Open() *DB {
	return &DB{
		accounts: map[identity.Role]map[int64]*accountRow{
			identity.RoleAdmin:   make(map[int64]*accountRow),
			identity.RoleTeacher: make(map[int64]*accountRow),
			identity.RoleParent:  make(map[int64]*accountRow),
		},
		classes:       make(map[int64]*roster.Class),
		students:      make(map[int64]*roster.Student),
		records:       make(map[int64]*attendance.Record),
		recordKeys:    make(map[recordKey]int64),
		notifications: make(map[int64]*notification.Notification),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}
