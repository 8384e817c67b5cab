package echoapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/appel/core/notification"
)

func Test_notificationApi(t *testing.T) {
	f := setup(t)
	s := f.school
	teacherA := f.token(t, s.TeacherA)
	parentX := f.token(t, s.ParentX)

	newNotif := func(studentID int64) []byte {
		return marchallObj(t, notification.NewNotification{StudentID: studentID, Message: " Lina was absent this morning ", Type: notification.TypeAbsence})
	}

	tests := []httpTest{
		{
			name: "Admin cannot notify", method: http.MethodPost, path: "/v1/notifications", token: f.token(t, s.Admin),
			body: newNotif(s.Student7.ID), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Parent cannot notify", method: http.MethodPost, path: "/v1/notifications", token: parentX,
			body: newNotif(s.Student7.ID), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Other teacher's student", method: http.MethodPost, path: "/v1/notifications", token: f.token(t, s.TeacherB),
			body: newNotif(s.Student7.ID), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Message required", method: http.MethodPost, path: "/v1/notifications", token: teacherA,
			body: []byte(fmt.Sprintf(`{"student_id": %d}`, s.Student7.ID)), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"message": "this field is required"}),
		},
		{
			name: "Wrong parent", method: http.MethodPost, path: "/v1/notifications", token: teacherA,
			body:     marchallObj(t, notification.NewNotification{StudentID: s.Student7.ID, ParentID: s.ParentY.ID, Message: "hello"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"parent_id": "parent is not the student's parent"}),
		},
		{name: "Nothing yet", method: http.MethodGet, path: "/v1/notifications", token: parentX, wantData: marchallList(t)},
		{name: "Unknown notification", method: http.MethodPut, path: "/v1/notifications/999/read", token: parentX, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	}
	runHTTPTests(t, f.app, tests)

	var created notification.Notification
	t.Run("Teacher notifies the parent", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/notifications", teacherA, newNotif(s.Student7.ID))
		f.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		unmarshal(t, rec, &created)
		assert.Equal(t, "Lina was absent this morning", created.Message)
		assert.Equal(t, notification.TypeAbsence, created.Type)
		assert.Equal(t, s.ParentX.ID, created.ParentID)
		assert.Equal(t, s.TeacherA.ID, created.TeacherID)
		assert.False(t, created.Read)
	})
	require.NotZero(t, created.ID)
	readPath := fmt.Sprintf("/v1/notifications/%d/read", created.ID)

	listFor := func(t *testing.T, token string) []notification.Notification {
		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications", token)
		f.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var list []notification.Notification
		unmarshal(t, rec, &list)
		return list
	}

	t.Run("Recipient and author see it", func(t *testing.T) {
		for _, token := range []string{parentX, teacherA} {
			list := listFor(t, token)
			require.Len(t, list, 1)
			assert.Equal(t, created.ID, list[0].ID)
		}
		assert.Empty(t, listFor(t, f.token(t, s.ParentY)))
		assert.Empty(t, listFor(t, f.token(t, s.TeacherB)))
	})

	mark := []httpTest{
		{name: "Other family", method: http.MethodPut, path: readPath, token: f.token(t, s.ParentY), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "Admin", method: http.MethodPut, path: readPath, token: f.token(t, s.Admin), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Recipient", method: http.MethodPut, path: readPath, token: parentX, wantCode: http.StatusNoContent},
		{name: "Already read", method: http.MethodPut, path: readPath, token: parentX, wantCode: http.StatusNoContent},
	}
	runHTTPTests(t, f.app, mark)

	t.Run("Read flag set", func(t *testing.T) {
		list := listFor(t, parentX)
		require.Len(t, list, 1)
		assert.True(t, list[0].Read)
	})
}
