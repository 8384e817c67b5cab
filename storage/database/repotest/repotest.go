// Package repotest checks that a set of repositories behaves like the relational schema:
// unique keys, foreign key actions and orderings. Every storage backend runs it.
package repotest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/attendance"
	"github.com/trezcool/appel/core/identity"
	"github.com/trezcool/appel/core/notification"
	"github.com/trezcool/appel/core/roster"
	"github.com/trezcool/appel/testutil"
)

type Repos struct {
	Identity     identity.Repository
	Roster       roster.Repository
	Attendance   attendance.Repository
	Notification notification.Repository
}

// Factory returns repositories over an empty store.
type Factory func(t *testing.T) Repos

var (
	ctx    = context.Background()
	monday = core.Date{Year: 2024, Month: time.March, Day: 4}
)

func Run(t *testing.T, newRepos Factory) {
	t.Run("Identity", func(t *testing.T) { testIdentity(t, newRepos(t)) })
	t.Run("Roster", func(t *testing.T) { testRoster(t, newRepos(t)) })
	t.Run("AttendanceUpsert", func(t *testing.T) { testAttendanceUpsert(t, newRepos(t)) })
	t.Run("AttendanceConcurrentUpsert", func(t *testing.T) { testAttendanceConcurrentUpsert(t, newRepos(t)) })
	t.Run("AttendanceJustify", func(t *testing.T) { testAttendanceJustify(t, newRepos(t)) })
	t.Run("AttendanceQueries", func(t *testing.T) { testAttendanceQueries(t, newRepos(t)) })
	t.Run("Notifications", func(t *testing.T) { testNotifications(t, newRepos(t)) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, newRepos(t)) })
}

func testIdentity(t *testing.T, repos Repos) {
	acc := testutil.CreateAccount(t, repos.Identity, identity.RoleTeacher, "Alice", "Martin", "alice@school.test", "pwd123")
	testutil.CreateTeacher(t, repos.Identity, "Bruno", "Petit", "bruno@school.test")
	testutil.CreateTeacher(t, repos.Identity, "Aline", "Martin", "aline@school.test")

	// same email, same role
	_, err := repos.Identity.CreateAccount(ctx, identity.RoleTeacher, identity.Profile{
		GivenName: "Other", FamilyName: "Alice", Email: "alice@school.test", PasswordHash: []byte{},
	})
	assert.Equal(t, identity.ErrEmailExists, errors.Cause(err))

	// same email, other role
	parent := testutil.CreateParent(t, repos.Identity, "Alice", "Martin", "alice@school.test")
	assert.NotZero(t, parent.ID)

	got, err := repos.Identity.GetAccountByEmail(ctx, identity.RoleTeacher, "alice@school.test")
	require.NoError(t, err)
	assert.Equal(t, acc.GetProfile().ID, got.GetProfile().ID)
	assert.NoError(t, got.GetProfile().CheckPassword("pwd123"))
	assert.False(t, got.(identity.Teacher).CreatedAt.IsZero())

	_, err = repos.Identity.GetAccountByEmail(ctx, identity.RoleAdmin, "alice@school.test")
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))
	_, err = repos.Identity.GetAccount(ctx, identity.Principal{ID: 999999, Role: identity.RoleParent})
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))

	teachers, err := repos.Identity.QueryTeachers(ctx)
	require.NoError(t, err)
	require.Len(t, teachers, 3)
	assert.Equal(t, []string{"alice@school.test", "aline@school.test", "bruno@school.test"},
		[]string{teachers[0].Email, teachers[1].Email, teachers[2].Email})

	p := acc.Principal()
	var prof identity.Profile
	require.NoError(t, prof.SetPassword("new-secret"))
	require.NoError(t, repos.Identity.UpdatePassword(ctx, p, prof.PasswordHash))
	got, err = repos.Identity.GetAccount(ctx, p)
	require.NoError(t, err)
	assert.NoError(t, got.GetProfile().CheckPassword("new-secret"))

	err = repos.Identity.UpdatePassword(ctx, identity.Principal{ID: 999999, Role: identity.RoleTeacher}, prof.PasswordHash)
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))

	require.NoError(t, repos.Identity.DeleteAccount(ctx, p))
	assert.Equal(t, core.ErrNotFound, errors.Cause(repos.Identity.DeleteAccount(ctx, p)))
}

func testRoster(t *testing.T, repos Repos) {
	s := testutil.SeedSchool(t, repos.Identity, repos.Roster)
	late := testutil.CreateStudent(t, repos.Roster, "Adam", "Amrani", s.ClassA.ID, s.ParentX.ID)

	_, err := repos.Roster.CreateClass(ctx, roster.Class{Name: "CE1", TeacherID: 999999})
	assert.Equal(t, roster.ErrUnknownTeacher, errors.Cause(err))
	_, err = repos.Roster.UpdateClass(ctx, roster.Class{ID: s.ClassA.ID, Name: "CM1", TeacherID: 999999})
	assert.Equal(t, roster.ErrUnknownTeacher, errors.Cause(err))

	classes, err := repos.Roster.QueryClasses(ctx, s.TeacherA.ID)
	require.NoError(t, err)
	assert.Equal(t, []roster.Class{s.ClassA}, classes)
	classes, err = repos.Roster.QueryClasses(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, classes, 2)

	students, err := repos.Roster.QueryStudentsOfClass(ctx, s.ClassA.ID)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, late.ID, students[0].ID) // Adam before Lina
	assert.Equal(t, s.Student7.ID, students[1].ID)
	assert.Equal(t, "Xavier", students[1].ParentGivenName)
	assert.Equal(t, "Amrani", students[1].ParentFamilyName)

	children, err := repos.Roster.QueryChildren(ctx, s.ParentY.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, s.Student9.ID, children[0].ID)
	assert.Equal(t, "CM2", children[0].ClassName)

	scopes, err := repos.Roster.GetStudentScopes(ctx, []int64{s.Student7.ID, s.Student9.ID, 999999})
	require.NoError(t, err)
	assert.ElementsMatch(t, []roster.StudentScope{
		{StudentID: s.Student7.ID, ClassID: s.ClassA.ID, ClassOwnerID: s.TeacherA.ID, ParentID: s.ParentX.ID},
		{StudentID: s.Student9.ID, ClassID: s.ClassB.ID, ClassOwnerID: s.TeacherB.ID, ParentID: s.ParentY.ID},
	}, scopes)

	id, err := repos.Roster.GetParentIDByEmail(ctx, "yasmine@family.test")
	require.NoError(t, err)
	assert.Equal(t, s.ParentY.ID, id)
	_, err = repos.Roster.GetParentIDByEmail(ctx, "nobody@family.test")
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))

	moved := late
	moved.ClassID = s.ClassB.ID
	moved.GivenName = "Adem"
	updated, err := repos.Roster.UpdateStudent(ctx, moved)
	require.NoError(t, err)
	assert.Equal(t, "Adem", updated.GivenName)
	assert.Equal(t, s.ClassB.ID, updated.ClassID)

	assert.Equal(t, roster.ErrClassNotEmpty, errors.Cause(repos.Roster.DeleteClass(ctx, s.ClassA.ID)))
	empty := testutil.CreateClass(t, repos.Roster, "CP", 0)
	assert.NoError(t, repos.Roster.DeleteClass(ctx, empty.ID))
	assert.Equal(t, core.ErrNotFound, errors.Cause(repos.Roster.DeleteClass(ctx, empty.ID)))
	_, err = repos.Roster.GetClass(ctx, empty.ID)
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))
}

func testAttendanceUpsert(t *testing.T, repos Repos) {
	s := testutil.SeedSchool(t, repos.Identity, repos.Roster)
	arrival := core.TimeOfDay{Hour: 8, Minute: 5}

	rec, created, err := repos.Attendance.UpsertRecord(ctx, attendance.Record{
		StudentID: s.Student7.ID, Date: monday, Status: attendance.StatusAbsent,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, attendance.StatusAbsent, rec.Status)
	assert.Nil(t, rec.ArrivalTime)
	assert.Equal(t, monday, rec.Date)

	_, err = repos.Attendance.JustifyRecord(ctx, rec.ID, "doctor")
	require.NoError(t, err)

	again, created, err := repos.Attendance.UpsertRecord(ctx, attendance.Record{
		StudentID: s.Student7.ID, Date: monday, Status: attendance.StatusPresent, ArrivalTime: &arrival,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, rec.ID, again.ID)
	assert.Equal(t, attendance.StatusPresent, again.Status)
	require.NotNil(t, again.ArrivalTime)
	assert.Equal(t, arrival, *again.ArrivalTime)
	assert.Equal(t, "doctor", again.Justification) // never touched by marks

	_, _, err = repos.Attendance.UpsertRecord(ctx, attendance.Record{
		StudentID: 999999, Date: monday, Status: attendance.StatusPresent,
	})
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))
}

func testAttendanceConcurrentUpsert(t *testing.T, repos Repos) {
	s := testutil.SeedSchool(t, repos.Identity, repos.Roster)

	const workers = 50
	var (
		wg      sync.WaitGroup
		created int32
		failed  int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := attendance.StatusPresent
			if i%2 == 0 {
				status = attendance.StatusAbsent
			}
			_, ok, err := repos.Attendance.UpsertRecord(ctx, attendance.Record{
				StudentID: s.Student7.ID, Date: monday, Status: status,
			})
			if err != nil {
				atomic.AddInt32(&failed, 1)
				return
			}
			if ok {
				atomic.AddInt32(&created, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Zero(t, failed)
	assert.Equal(t, int32(1), created)
	recs, err := repos.Attendance.QueryByStudentsAndDateRange(ctx, []int64{s.Student7.ID}, monday, monday)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func testAttendanceJustify(t *testing.T, repos Repos) {
	s := testutil.SeedSchool(t, repos.Identity, repos.Roster)
	absent := testutil.CreateRecord(t, repos.Attendance, s.Student7.ID, monday, attendance.StatusAbsent)
	present := testutil.CreateRecord(t, repos.Attendance, s.Student9.ID, monday, attendance.StatusPresent)

	rec, err := repos.Attendance.JustifyRecord(ctx, absent.ID, "flu")
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusAbsentJustified, rec.Status)
	assert.Equal(t, "flu", rec.Justification)

	_, err = repos.Attendance.JustifyRecord(ctx, absent.ID, "flu again")
	assert.Equal(t, core.ErrInvalidState, errors.Cause(err))
	_, err = repos.Attendance.JustifyRecord(ctx, present.ID, "flu")
	assert.Equal(t, core.ErrInvalidState, errors.Cause(err))
	_, err = repos.Attendance.JustifyRecord(ctx, 999999, "flu")
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))

	got, err := repos.Attendance.GetRecord(ctx, absent.ID)
	require.NoError(t, err)
	assert.Equal(t, "flu", got.Justification)
}

func testAttendanceQueries(t *testing.T, repos Repos) {
	s := testutil.SeedSchool(t, repos.Identity, repos.Roster)
	adam := testutil.CreateStudent(t, repos.Roster, "Adam", "Amrani", s.ClassA.ID, s.ParentX.ID)
	zoe := testutil.CreateStudent(t, repos.Roster, "Zoe", "Ait", s.ClassA.ID, 0)

	tuesday, wednesday := monday.AddDays(1), monday.AddDays(2)
	for _, std := range []roster.Student{s.Student7, adam, zoe} {
		testutil.CreateRecord(t, repos.Attendance, std.ID, monday, attendance.StatusPresent)
	}
	testutil.CreateRecord(t, repos.Attendance, s.Student9.ID, monday, attendance.StatusAbsent)
	testutil.CreateRecord(t, repos.Attendance, s.Student7.ID, tuesday, attendance.StatusAbsent)
	testutil.CreateRecord(t, repos.Attendance, s.Student7.ID, wednesday, attendance.StatusPresent)

	recs, err := repos.Attendance.QueryByDateAndClass(ctx, monday, s.ClassA.ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []int64{zoe.ID, adam.ID, s.Student7.ID}, []int64{recs[0].StudentID, recs[1].StudentID, recs[2].StudentID})
	assert.Equal(t, "Zoe", recs[0].GivenName)
	assert.Equal(t, "Ait", recs[0].FamilyName)

	recs, err = repos.Attendance.QueryByDateAndClass(ctx, tuesday, s.ClassB.ID)
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = repos.Attendance.QueryByStudentsAndDateRange(ctx, []int64{s.Student9.ID, s.Student7.ID}, monday, tuesday)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, monday, recs[0].Date)
	assert.Equal(t, s.Student7.ID, recs[0].StudentID)
	assert.Equal(t, s.Student9.ID, recs[1].StudentID)
	assert.Equal(t, tuesday, recs[2].Date)

	recs, err = repos.Attendance.QueryByStudentsAndDateRange(ctx, []int64{}, monday, wednesday)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func testNotifications(t *testing.T, repos Repos) {
	s := testutil.SeedSchool(t, repos.Identity, repos.Roster)
	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	create := func(teacherID, studentID, parentID int64, at time.Time) notification.Notification {
		n, err := repos.Notification.CreateNotification(ctx, notification.Notification{
			Message: "message", Type: notification.TypeAbsence, CreatedAt: at,
			TeacherID: teacherID, StudentID: studentID, ParentID: parentID,
		})
		require.NoError(t, err)
		return n
	}
	first := create(s.TeacherA.ID, s.Student7.ID, s.ParentX.ID, base)
	second := create(s.TeacherA.ID, s.Student7.ID, s.ParentX.ID, base.Add(time.Hour))
	third := create(s.TeacherA.ID, s.Student7.ID, s.ParentX.ID, base.Add(time.Hour)) // same instant
	other := create(s.TeacherB.ID, s.Student9.ID, s.ParentY.ID, base.Add(2*time.Hour))

	assert.False(t, first.Read)
	assert.True(t, first.CreatedAt.Equal(base))

	ids := func(list []notification.Notification) []int64 {
		out := make([]int64, 0, len(list))
		for _, n := range list {
			out = append(out, n.ID)
		}
		return out
	}

	list, err := repos.Notification.QueryNotifications(ctx, notification.Filter{TeacherID: s.TeacherA.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{third.ID, second.ID, first.ID}, ids(list))

	list, err = repos.Notification.QueryNotifications(ctx, notification.Filter{ParentID: s.ParentY.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{other.ID}, ids(list))

	list, err = repos.Notification.QueryNotifications(ctx, notification.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{other.ID, third.ID, second.ID, first.ID}, ids(list))

	require.NoError(t, repos.Notification.MarkRead(ctx, first.ID))
	require.NoError(t, repos.Notification.MarkRead(ctx, first.ID))
	got, err := repos.Notification.GetNotification(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)

	assert.Equal(t, core.ErrNotFound, errors.Cause(repos.Notification.MarkRead(ctx, 999999)))
	_, err = repos.Notification.GetNotification(ctx, 999999)
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))
}

func testDeleteCascades(t *testing.T, repos Repos) {
	s := testutil.SeedSchool(t, repos.Identity, repos.Roster)
	rec := testutil.CreateRecord(t, repos.Attendance, s.Student7.ID, monday, attendance.StatusAbsent)
	n, err := repos.Notification.CreateNotification(ctx, notification.Notification{
		Message: "absent", Type: notification.TypeAbsence, CreatedAt: time.Now().UTC(),
		TeacherID: s.TeacherA.ID, StudentID: s.Student7.ID, ParentID: s.ParentX.ID,
	})
	require.NoError(t, err)

	// student: attendance cascades, notifications are kept
	require.NoError(t, repos.Roster.DeleteStudent(ctx, s.Student7.ID))
	_, err = repos.Attendance.GetRecord(ctx, rec.ID)
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))
	got, err := repos.Notification.GetNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.Zero(t, got.StudentID)
	assert.Equal(t, s.ParentX.ID, got.ParentID)
	assert.Equal(t, core.ErrNotFound, errors.Cause(repos.Roster.DeleteStudent(ctx, s.Student7.ID)))

	// teacher: classes lose their owner
	require.NoError(t, repos.Identity.DeleteAccount(ctx, s.TeacherB.Principal()))
	cls, err := repos.Roster.GetClass(ctx, s.ClassB.ID)
	require.NoError(t, err)
	assert.Zero(t, cls.TeacherID)

	// parent: students lose their parent
	require.NoError(t, repos.Identity.DeleteAccount(ctx, s.ParentY.Principal()))
	std, err := repos.Roster.GetStudent(ctx, s.Student9.ID)
	require.NoError(t, err)
	assert.Zero(t, std.ParentID)
}
