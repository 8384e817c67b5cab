package identity_test

import (
	"context"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/appel/core"
	. "github.com/trezcool/appel/core/identity"
	"github.com/trezcool/appel/services/email"
	"github.com/trezcool/appel/services/logger"
	"github.com/trezcool/appel/storage/database/inmem"
	"github.com/trezcool/appel/testutil"
)

var ctx = context.Background()

func setup(t *testing.T) (Service, Repository) {
	conf := core.NewTestConfig()
	repo := inmemdb.NewIdentityRepository(inmemdb.Open())
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logsvc.NewNopLogger())
	validate, _ := testutil.NewValidator()
	return NewService(conf, repo, mailSvc, validate), repo
}

func TestService_Authenticate(t *testing.T) {
	svc, repo := setup(t)
	testutil.CreateAccount(t, repo, RoleTeacher, "Alice", "Martin", "alice@school.test", "s3cret")
	testutil.CreateAccount(t, repo, RoleParent, "Alice", "Martin", "alice@school.test", "other-pwd")

	tests := []struct {
		name     string
		creds    Credentials
		wantRole Role
		wantErr  error
	}{
		{"teacher", Credentials{Email: "alice@school.test", Password: "s3cret", Role: RoleTeacher}, RoleTeacher, nil},
		{"parent with same email", Credentials{Email: "alice@school.test", Password: "other-pwd", Role: RoleParent}, RoleParent, nil},
		{"email is case insensitive", Credentials{Email: "  ALICE@school.test ", Password: "s3cret", Role: RoleTeacher}, RoleTeacher, nil},
		{"wrong password", Credentials{Email: "alice@school.test", Password: "other-pwd", Role: RoleTeacher}, "", ErrAuthenticationFailed},
		{"wrong role", Credentials{Email: "alice@school.test", Password: "s3cret", Role: RoleAdmin}, "", ErrAuthenticationFailed},
		{"unknown email", Credentials{Email: "bob@school.test", Password: "s3cret", Role: RoleTeacher}, "", ErrAuthenticationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := svc.Authenticate(ctx, tt.creds)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				assert.Nil(t, acc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, acc.Principal().Role)
		})
	}

	t.Run("invalid role", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, Credentials{Email: "alice@school.test", Password: "s3cret", Role: "janitor"})
		var verr validator.ValidationErrors
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "role", verr[0].Field())
	})
}

func TestService_Create(t *testing.T) {
	svc, _ := setup(t)

	t.Run("generated password is mailed", func(t *testing.T) {
		teacher, err := svc.CreateTeacher(ctx, NewAccount{GivenName: " Alice ", FamilyName: "Martin", Email: "Alice@School.test"})
		require.NoError(t, err)
		assert.NotZero(t, teacher.ID)
		assert.Equal(t, "Alice", teacher.GivenName)
		assert.Equal(t, "alice@school.test", teacher.Email)

		msg, ok := emailsvc.LastMessage()
		require.True(t, ok)
		assert.Equal(t, "alice@school.test", msg.To[0].Address)
		assert.Contains(t, msg.TextContent, "Hello Alice,")
		assert.Contains(t, msg.TextContent, "teacher account")

		var pwd string
		for _, line := range strings.Split(msg.TextContent, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "password:") {
				pwd = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "password:"))
			}
		}
		assert.Len(t, pwd, 8)
		_, err = svc.Authenticate(ctx, Credentials{Email: "alice@school.test", Password: pwd, Role: RoleTeacher})
		assert.NoError(t, err)
	})

	t.Run("given password is not mailed", func(t *testing.T) {
		before := len(emailsvc.SentMessages)
		parent, err := svc.CreateParent(ctx, NewAccount{GivenName: "Xavier", FamilyName: "Amrani", Email: "xavier@family.test", Password: "pwd123"})
		require.NoError(t, err)
		assert.Len(t, emailsvc.SentMessages, before)

		acc, err := svc.Authenticate(ctx, Credentials{Email: "xavier@family.test", Password: "pwd123", Role: RoleParent})
		require.NoError(t, err)
		assert.Equal(t, parent.Principal(), acc.Principal())
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.CreateTeacher(ctx, NewAccount{GivenName: "Alicia", FamilyName: "Martin", Email: "alice@school.test", Password: "pwd123"})
		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, []core.FieldError{{Field: "email", Error: ErrEmailExists.Error()}}, verr.Fields)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := svc.CreateTeacher(ctx, NewAccount{GivenName: "  ", FamilyName: "Martin", Email: "not-an-email", Password: "abc"})
		var verr validator.ValidationErrors
		require.True(t, errors.As(err, &verr))
		fields := make([]string, 0, len(verr))
		for _, fe := range verr {
			fields = append(fields, fe.Field())
		}
		assert.ElementsMatch(t, []string{"given_name", "email", "password"}, fields)
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := svc.Create(ctx, "janitor", NewAccount{GivenName: "Jo", FamilyName: "Doe", Email: "jo@school.test"})
		assert.Error(t, err)
	})
}

func TestService_Listings(t *testing.T) {
	svc, repo := setup(t)
	testutil.CreateTeacher(t, repo, "Bruno", "Petit", "bruno@school.test")
	alice := testutil.CreateTeacher(t, repo, "Alice", "Martin", "alice@school.test")
	testutil.CreateParent(t, repo, "Yasmine", "Bernard", "yasmine@family.test")

	teachers, err := svc.Teachers(ctx)
	require.NoError(t, err)
	require.Len(t, teachers, 2)
	assert.Equal(t, "Martin", teachers[0].FamilyName)
	assert.Equal(t, "Petit", teachers[1].FamilyName)

	parents, err := svc.Parents(ctx)
	require.NoError(t, err)
	assert.Len(t, parents, 1)

	acc, err := svc.Get(ctx, alice.Principal())
	require.NoError(t, err)
	assert.Equal(t, alice.Email, acc.GetProfile().Email)

	require.NoError(t, svc.Delete(ctx, alice.Principal()))
	_, err = svc.Get(ctx, alice.Principal())
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))
	assert.Equal(t, core.ErrNotFound, errors.Cause(svc.Delete(ctx, alice.Principal())))
}

func TestService_SetPassword(t *testing.T) {
	svc, repo := setup(t)
	admin := testutil.CreateAccount(t, repo, RoleAdmin, "Ada", "Admin", "admin@school.test", "old-pwd")

	var verr *core.ValidationError
	require.True(t, errors.As(svc.SetPassword(ctx, admin.Principal(), ""), &verr))
	assert.Equal(t, "password", verr.Fields[0].Field)

	require.NoError(t, svc.SetPassword(ctx, admin.Principal(), "new-pwd"))
	_, err := svc.Authenticate(ctx, Credentials{Email: "admin@school.test", Password: "old-pwd", Role: RoleAdmin})
	assert.Equal(t, ErrAuthenticationFailed, err)
	_, err = svc.Authenticate(ctx, Credentials{Email: "admin@school.test", Password: "new-pwd", Role: RoleAdmin})
	assert.NoError(t, err)

	err = svc.SetPassword(ctx, Principal{ID: 999, Role: RoleAdmin}, "new-pwd")
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))
}
