package echoapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/appel/core/roster"
	"github.com/trezcool/appel/testutil"
)

func Test_rosterApi_classes(t *testing.T) {
	f := setup(t)
	s := f.school
	adminToken := f.token(t, s.Admin)

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/classes", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Parents cannot list classes", method: http.MethodGet, path: "/v1/classes", token: f.token(t, s.ParentX), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Admin lists all", method: http.MethodGet, path: "/v1/classes", token: adminToken, wantData: marchallList(t, s.ClassA, s.ClassB)},
		{name: "Teacher lists own", method: http.MethodGet, path: "/v1/classes", token: f.token(t, s.TeacherB), wantData: marchallList(t, s.ClassB)},
		{
			name: "Teacher cannot create", method: http.MethodPost, path: "/v1/classes", token: f.token(t, s.TeacherA),
			body: []byte(`{"name": "CE1"}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Name required", method: http.MethodPost, path: "/v1/classes", token: adminToken,
			body: []byte(`{"name": ""}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "Blank name", method: http.MethodPost, path: "/v1/classes", token: adminToken,
			body: []byte(`{"name": "   "}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "Unknown teacher", method: http.MethodPost, path: "/v1/classes", token: adminToken,
			body: []byte(`{"name": "CE1", "teacher_id": 999}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"teacher_id": roster.ErrUnknownTeacher.Error()}),
		},
		{
			name: "Update unknown class", method: http.MethodPut, path: "/v1/classes/999", token: adminToken,
			body: []byte(`{"name": "CE1"}`), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Malformed id", method: http.MethodPut, path: "/v1/classes/abc", token: adminToken,
			body: []byte(`{"name": "CE1"}`), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Class with students cannot be deleted", method: http.MethodDelete, path: fmt.Sprintf("/v1/classes/%d", s.ClassA.ID), token: adminToken,
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "class still has students: invalid state"}),
		},
	}
	runHTTPTests(t, f.app, tests)

	t.Run("Create, rename and delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", adminToken, marchallObj(t, roster.ClassData{Name: " CE1 ", TeacherID: s.TeacherA.ID}))
		f.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var cls roster.Class
		unmarshal(t, rec, &cls)
		assert.Equal(t, "CE1", cls.Name)
		assert.Equal(t, s.TeacherA.ID, cls.TeacherID)

		path := fmt.Sprintf("/v1/classes/%d", cls.ID)
		req, rec = newAuthRequest(http.MethodPut, path, adminToken, marchallObj(t, roster.ClassData{Name: "CE2"}))
		f.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var renamed roster.Class
		unmarshal(t, rec, &renamed)
		assert.Equal(t, roster.Class{ID: cls.ID, Name: "CE2"}, renamed)

		req, rec = newAuthRequest(http.MethodDelete, path, adminToken)
		f.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodDelete, path, adminToken)
		f.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_rosterApi_queryStudents(t *testing.T) {
	f := setup(t)
	s := f.school

	std7 := s.Student7
	std7.ParentGivenName, std7.ParentFamilyName = s.ParentX.GivenName, s.ParentX.FamilyName
	path := func(id int64) string { return fmt.Sprintf("/v1/classes/%d/students", id) }

	tests := []httpTest{
		{name: "Owner", path: path(s.ClassA.ID), token: f.token(t, s.TeacherA), wantData: marchallList(t, std7)},
		{name: "Admin", path: path(s.ClassA.ID), token: f.token(t, s.Admin), wantData: marchallList(t, std7)},
		{name: "Other teacher", path: path(s.ClassA.ID), token: f.token(t, s.TeacherB), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Parent", path: path(s.ClassA.ID), token: f.token(t, s.ParentX), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Unknown class (admin)", path: path(999), token: f.token(t, s.Admin), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "Unknown class (teacher)", path: path(999), token: f.token(t, s.TeacherA), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
	}
	runHTTPTests(t, f.app, tests)
}

func Test_rosterApi_queryChildren(t *testing.T) {
	f := setup(t)
	s := f.school

	std7 := s.Student7
	std7.ClassName = s.ClassA.Name
	path := func(id int64) string { return fmt.Sprintf("/v1/parents/%d/children", id) }

	tests := []httpTest{
		{name: "Own children", path: path(s.ParentX.ID), token: f.token(t, s.ParentX), wantData: marchallList(t, std7)},
		{name: "Admin", path: path(s.ParentX.ID), token: f.token(t, s.Admin), wantData: marchallList(t, std7)},
		{name: "Other family", path: path(s.ParentY.ID), token: f.token(t, s.ParentX), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Teacher", path: path(s.ParentX.ID), token: f.token(t, s.TeacherA), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
	}
	runHTTPTests(t, f.app, tests)
}

func Test_rosterApi_students(t *testing.T) {
	f := setup(t)
	s := f.school
	teacherA := f.token(t, s.TeacherA)

	newStudent := func(classID int64, parentEmail string) []byte {
		return marchallObj(t, roster.NewStudent{GivenName: "Nour", FamilyName: "Amrani", ClassID: classID, ParentEmail: parentEmail})
	}

	tests := []httpTest{
		{
			name: "Parents cannot enrol", method: http.MethodPost, path: "/v1/students", token: f.token(t, s.ParentX),
			body: newStudent(s.ClassA.ID, "xavier@family.test"), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Other teacher's class", method: http.MethodPost, path: "/v1/students", token: teacherA,
			body: newStudent(s.ClassB.ID, "xavier@family.test"), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Unknown parent", method: http.MethodPost, path: "/v1/students", token: teacherA,
			body: newStudent(s.ClassA.ID, "nobody@family.test"), wantCode: http.StatusBadRequest,
		},
		{
			name: "Other teacher's student is hidden", method: http.MethodPut, path: fmt.Sprintf("/v1/students/%d", s.Student9.ID), token: teacherA,
			body: []byte(`{"given_name": "Hugues"}`), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Rename own student", method: http.MethodPut, path: fmt.Sprintf("/v1/students/%d", s.Student7.ID), token: teacherA,
			body: []byte(`{"given_name": "Line"}`),
			wantData: marchallObj(t, roster.Student{
				ID: s.Student7.ID, GivenName: "Line", FamilyName: "Amrani", ClassID: s.ClassA.ID, ParentID: s.ParentX.ID,
			}),
		},
		{
			name: "Move to another teacher's class", method: http.MethodPut, path: fmt.Sprintf("/v1/students/%d", s.Student7.ID), token: teacherA,
			body: marchallObj(t, map[string]int64{"class_id": s.ClassB.ID}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	}
	runHTTPTests(t, f.app, tests)

	t.Run("Enrol then remove", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", teacherA, newStudent(s.ClassA.ID, " XAVIER@family.test "))
		f.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var std roster.Student
		unmarshal(t, rec, &std)
		assert.Equal(t, s.ParentX.ID, std.ParentID)
		assert.Equal(t, s.ClassA.ID, std.ClassID)

		testutil.CreateRecord(t, f.attendRepo, std.ID, sept2, "absent")

		req, rec = newAuthRequest(http.MethodDelete, fmt.Sprintf("/v1/students/%d", std.ID), teacherA)
		f.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		children, err := f.rosterRepo.QueryChildren(bg, s.ParentX.ID)
		require.NoError(t, err)
		assert.Len(t, children, 1)
	})
}
