package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/appel/core/identity"
	"github.com/trezcool/appel/testutil"
)

func Test_authApi_login(t *testing.T) {
	f := setup(t)
	teacher := testutil.CreateAccount(t, f.idRepo, identity.RoleTeacher, "Carla", "Durand", "carla@school.test", "s3cret")

	login := func(email, pwd, role string) []byte {
		return marchallObj(t, map[string]string{"email": email, "password": pwd, "role": role})
	}
	failed := httpErr{Error: identity.ErrAuthenticationFailed.Error()}

	tests := []httpTest{
		{name: "wrong password", body: login("carla@school.test", "nope", "teacher"), wantCode: http.StatusBadRequest, wantData: marchallObj(t, failed)},
		{name: "wrong role", body: login("carla@school.test", "s3cret", "parent"), wantCode: http.StatusBadRequest, wantData: marchallObj(t, failed)},
		{name: "unknown email", body: login("nobody@school.test", "s3cret", "teacher"), wantCode: http.StatusBadRequest, wantData: marchallObj(t, failed)},
		{
			name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"email":    "this field is required",
				"password": "this field is required",
				"role":     "this field is required",
			}),
		},
		{
			name: "invalid role", body: login("carla@school.test", "s3cret", "student"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "role must be one of admin, teacher or parent"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/auth/login"
	}
	runHTTPTests(t, f.app, tests)

	t.Run("success", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/login", login(" CARLA@school.test", "s3cret", "teacher"))
		f.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LoginResponse
		unmarshal(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, teacher.GetProfile().ID, resp.User.ID)
		assert.Equal(t, identity.RoleTeacher, resp.User.Role)
		assert.Equal(t, "carla@school.test", resp.User.Email)
		assert.NotContains(t, rec.Body.String(), "password")

		// the token opens the authed endpoints
		req, rec = newAuthRequest(http.MethodGet, "/v1/auth/me", resp.Token)
		f.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_authApi_me(t *testing.T) {
	f := setup(t)
	parent := f.school.ParentX

	forged, err := GenerateToken(f.conf, &Claims{
		StandardClaims: jwt.StandardClaims{Subject: "abc", ExpiresAt: time.Now().Add(time.Hour).Unix()},
		Role:           identity.RoleParent,
	})
	require.NoError(t, err)

	otherConf := *f.conf
	otherConf.SecretKey = "another secret"

	ghost := identity.Teacher{Profile: identity.Profile{ID: 999, GivenName: "G", FamilyName: "Host"}}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Bad signature", token: getToken(t, &otherConf, parent), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errBadToken)},
		{name: "Bad subject", token: forged, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errBadToken)},
		{name: "Deleted account", token: f.token(t, ghost), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "Parent", token: f.token(t, parent), wantData: marchallObj(t, newAccountData(parent))},
		{name: "Admin", token: f.token(t, f.school.Admin), wantData: marchallObj(t, newAccountData(f.school.Admin))},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
		tests[i].path = "/v1/auth/me"
	}
	runHTTPTests(t, f.app, tests)
}

func Test_authApi_refreshToken(t *testing.T) {
	f := setup(t)
	teacher := f.school.TeacherA

	unrefreshable := GetAccountClaims(f.conf, teacher, time.Now().Add(-2*f.conf.JWTRefreshExpirationDelta).Unix())
	unrefreshableToken, err := GenerateToken(f.conf, unrefreshable)
	require.NoError(t, err)

	ghost := identity.Parent{Profile: identity.Profile{ID: 999}}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Deleted account", token: f.token(t, ghost), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"})},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/auth/token-refresh"
	}
	runHTTPTests(t, f.app, tests)

	t.Run("Token refreshed", func(t *testing.T) {
		origIat := time.Now().Add(-time.Hour).Unix()
		token, err := GenerateToken(f.conf, GetAccountClaims(f.conf, teacher, origIat))
		require.NoError(t, err)

		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", token)
		f.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LoginResponse
		unmarshal(t, rec, &resp)
		claims := new(Claims)
		_, err = jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(f.conf.SecretKey), nil
		})
		require.NoError(t, err)
		assert.Equal(t, origIat, claims.OrigIssuedAt, "the session start is kept")
		assert.Equal(t, identity.RoleTeacher, claims.Role)
		assert.Equal(t, teacher.ID, resp.User.ID)
		assert.Equal(t, identity.RoleTeacher, resp.User.Role)
	})
}

func Test_getContextClaims(t *testing.T) {
	f := setup(t)
	teacher := f.school.TeacherA
	auth := newAuthenticator(f.conf)

	e := echo.New()
	req, rec := newAuthRequest(http.MethodGet, "/", f.token(t, teacher))
	ctx := e.NewContext(req, rec)

	var claims Claims
	handler := middleware.JWTWithConfig(auth.jwtConfig)(func(ctx echo.Context) error {
		var err error
		claims, err = getContextClaims(ctx)
		return err
	})
	require.NoError(t, handler(ctx))

	p, err := claims.Principal()
	require.NoError(t, err)
	assert.Equal(t, teacher.Principal(), p)
	assert.Equal(t, teacher.Email, claims.Email)

	_, err = getContextClaims(e.NewContext(req, rec))
	assert.Equal(t, errUnauthorized, err)
}

func Test_authApi_loginRateLimit(t *testing.T) {
	f := setup(t, func(opts *Options) {
		opts.Conf.Server.LoginRate = 0.001
		opts.Conf.Server.LoginBurst = 2
	})
	body := marchallObj(t, map[string]string{"email": f.school.ParentX.Email, "password": "nope", "role": "parent"})
	failed := marchallObj(t, httpErr{Error: identity.ErrAuthenticationFailed.Error()})

	tests := []httpTest{
		{name: "first attempt", body: body, wantCode: http.StatusBadRequest, wantData: failed},
		{name: "second attempt", body: body, wantCode: http.StatusBadRequest, wantData: failed},
		{name: "throttled", body: body, wantCode: http.StatusTooManyRequests, wantData: marchallObj(t, httpErr{Error: "rate limit exceeded"})},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/auth/login"
	}
	runHTTPTests(t, f.app, tests)

	t.Run("other routes are not throttled", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/auth/me", f.token(t, f.school.ParentX))
		f.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
