package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/identity"
	. "github.com/trezcool/appel/core/notification"
	"github.com/trezcool/appel/storage/database/inmem"
	"github.com/trezcool/appel/testutil"
)

var ctx = context.Background()

func setup(t *testing.T) (Service, Repository, testutil.School) {
	db := inmemdb.Open()
	rosterRepo := inmemdb.NewRosterRepository(db)
	school := testutil.SeedSchool(t, inmemdb.NewIdentityRepository(db), rosterRepo)
	repo := inmemdb.NewNotificationRepository(db)
	validate, _ := testutil.NewValidator()
	return NewService(repo, rosterRepo, validate), repo, school
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	return verr.Fields[0].Field
}

func TestService_Create(t *testing.T) {
	svc, _, s := setup(t)
	now := time.Date(2024, 9, 2, 8, 30, 0, 0, time.UTC)
	orig := NowFunc
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = orig }()

	n, err := svc.Create(ctx, s.TeacherA.Principal(), NewNotification{StudentID: s.Student7.ID, Message: " Lina was absent "})
	require.NoError(t, err)
	assert.Equal(t, "Lina was absent", n.Message)
	assert.Equal(t, TypeOther, n.Type)
	assert.Equal(t, s.TeacherA.ID, n.TeacherID)
	assert.Equal(t, s.ParentX.ID, n.ParentID)
	assert.Equal(t, now, n.CreatedAt)
	assert.False(t, n.Read)

	n, err = svc.Create(ctx, s.TeacherA.Principal(), NewNotification{
		StudentID: s.Student7.ID, ParentID: s.ParentX.ID, Message: "late again", Type: TypeTardiness,
	})
	require.NoError(t, err)
	assert.Equal(t, TypeTardiness, n.Type)

	_, err = svc.Create(ctx, s.TeacherA.Principal(), NewNotification{StudentID: s.Student7.ID, ParentID: s.ParentY.ID, Message: "hi"})
	assert.Equal(t, "parent_id", fieldOf(t, err))

	_, err = svc.Create(ctx, s.TeacherA.Principal(), NewNotification{StudentID: s.Student7.ID, Message: "hi", Type: "gossip"})
	var verr validator.ValidationErrors
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "type", verr[0].Field())

	// only the class teacher writes about a student
	_, err = svc.Create(ctx, s.TeacherB.Principal(), NewNotification{StudentID: s.Student7.ID, Message: "hi"})
	assert.Equal(t, core.ErrUnauthorized, errors.Cause(err))
	_, err = svc.Create(ctx, s.Admin.Principal(), NewNotification{StudentID: s.Student7.ID, Message: "hi"})
	assert.Equal(t, core.ErrUnauthorized, errors.Cause(err))
	_, err = svc.Create(ctx, s.ParentX.Principal(), NewNotification{StudentID: s.Student7.ID, Message: "hi"})
	assert.Equal(t, core.ErrUnauthorized, errors.Cause(err))
	_, err = svc.Create(ctx, s.TeacherA.Principal(), NewNotification{StudentID: 999, Message: "hi"})
	assert.Equal(t, core.ErrUnauthorized, errors.Cause(err))
}

func TestService_Create_NoParent(t *testing.T) {
	db := inmemdb.Open()
	rosterRepo := inmemdb.NewRosterRepository(db)
	s := testutil.SeedSchool(t, inmemdb.NewIdentityRepository(db), rosterRepo)
	orphan := testutil.CreateStudent(t, rosterRepo, "Zoe", "Ait", s.ClassA.ID, 0)
	validate, _ := testutil.NewValidator()
	svc := NewService(inmemdb.NewNotificationRepository(db), rosterRepo, validate)

	_, err := svc.Create(ctx, s.TeacherA.Principal(), NewNotification{StudentID: orphan.ID, Message: "hi"})
	assert.Equal(t, "parent_id", fieldOf(t, err))
}

func TestService_ListFor(t *testing.T) {
	svc, _, s := setup(t)
	first, err := svc.Create(ctx, s.TeacherA.Principal(), NewNotification{StudentID: s.Student7.ID, Message: "first"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, s.TeacherA.Principal(), NewNotification{StudentID: s.Student7.ID, Message: "second"})
	require.NoError(t, err)
	other, err := svc.Create(ctx, s.TeacherB.Principal(), NewNotification{StudentID: s.Student9.ID, Message: "other"})
	require.NoError(t, err)

	ids := func(list []Notification) []int64 {
		out := make([]int64, 0, len(list))
		for _, n := range list {
			out = append(out, n.ID)
		}
		return out
	}

	list, err := svc.ListFor(ctx, s.TeacherA.Principal())
	require.NoError(t, err)
	assert.Equal(t, []int64{second.ID, first.ID}, ids(list))

	list, err = svc.ListFor(ctx, s.ParentY.Principal())
	require.NoError(t, err)
	assert.Equal(t, []int64{other.ID}, ids(list))

	list, err = svc.ListFor(ctx, s.Admin.Principal())
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = svc.ListFor(ctx, identity.Principal{})
	assert.Equal(t, core.ErrUnauthorized, errors.Cause(err))
}

func TestService_MarkRead(t *testing.T) {
	svc, repo, s := setup(t)
	n, err := svc.Create(ctx, s.TeacherA.Principal(), NewNotification{StudentID: s.Student7.ID, Message: "hi"})
	require.NoError(t, err)

	// out of scope looks missing
	assert.Equal(t, core.ErrNotFound, errors.Cause(svc.MarkRead(ctx, s.ParentY.Principal(), n.ID)))
	assert.Equal(t, core.ErrNotFound, errors.Cause(svc.MarkRead(ctx, s.TeacherB.Principal(), n.ID)))
	assert.Equal(t, core.ErrNotFound, errors.Cause(svc.MarkRead(ctx, s.Admin.Principal(), n.ID)))
	assert.Equal(t, core.ErrNotFound, errors.Cause(svc.MarkRead(ctx, s.ParentX.Principal(), 999)))

	require.NoError(t, svc.MarkRead(ctx, s.ParentX.Principal(), n.ID))
	require.NoError(t, svc.MarkRead(ctx, s.ParentX.Principal(), n.ID))
	require.NoError(t, svc.MarkRead(ctx, s.TeacherA.Principal(), n.ID))

	got, err := repo.GetNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)
}
