package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/identity"
)

const (
	contextTokenKey     = "userToken"
	contextPrincipalKey = "principal"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64         `json:"oriat,omitempty"`
	Role         identity.Role `json:"role"`
	GivenName    string        `json:"given_name,omitempty"`
	FamilyName   string        `json:"family_name,omitempty"`
	Email        string        `json:"email,omitempty"`
}

// Principal returns the identity the token was issued to.
func (c Claims) Principal() (identity.Principal, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 || !c.Role.Valid() {
		return identity.Principal{}, errInvalidToken
	}
	return identity.Principal{ID: id, Role: c.Role}, nil
}

// GetAccountClaims returns the claims of a fresh token for acc.
// origIat is the issue time of the first token of the session, when refreshing.
func GetAccountClaims(conf *core.Config, acc identity.Account, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	p := acc.Principal()
	prof := acc.GetProfile()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   strconv.FormatInt(p.ID, 10),
			ExpiresAt: now.Add(conf.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Role:         p.Role,
		GivenName:    prof.GivenName,
		FamilyName:   prof.FamilyName,
		Email:        prof.Email,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

type authenticator struct {
	conf      *core.Config
	jwtConfig middleware.JWTConfig
}

func newAuthenticator(conf *core.Config) *authenticator {
	return &authenticator{
		conf: conf,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
	}
}

func (a *authenticator) token(acc identity.Account, origIat ...int64) (string, error) {
	return GenerateToken(a.conf, GetAccountClaims(a.conf, acc, origIat...))
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getPrincipal returns the caller set by principalMiddleware; the zero Principal is denied everything.
func getPrincipal(ctx echo.Context) identity.Principal {
	p, _ := ctx.Get(contextPrincipalKey).(identity.Principal)
	return p
}

// loginRateLimiter throttles login attempts per client IP; a zero rate disables it.
func loginRateLimiter(conf core.ServerConfig) echo.MiddlewareFunc {
	if conf.LoginRate <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(conf.LoginRate),
			Burst:     conf.LoginBurst,
			ExpiresIn: 3 * time.Minute,
		}),
	})
}

type authApi struct {
	auth *authenticator
	svc  identity.Service
}

func registerAuthAPI(public, authed *echo.Group, auth *authenticator, svc identity.Service) {
	api := authApi{auth: auth, svc: svc}

	public.POST("/auth/login", api.login, loginRateLimiter(auth.conf.Server))

	authed.GET("/auth/me", api.me)
	authed.POST("/auth/token-refresh", api.refreshToken)
}

type (
	LoginResponse struct {
		Token string      `json:"token"`
		User  AccountData `json:"user"`
	}

	// AccountData is the public view of an identity.Account.
	AccountData struct {
		identity.Profile
		Role identity.Role `json:"role"`
	}
)

func newAccountData(acc identity.Account) AccountData {
	return AccountData{Profile: acc.GetProfile(), Role: acc.Principal().Role}
}

func (api *authApi) login(ctx echo.Context) error {
	var creds identity.Credentials
	if err := ctx.Bind(&creds); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}

	acc, err := api.svc.Authenticate(ctx.Request().Context(), creds)
	if err != nil {
		return err
	}
	token, err := api.auth.token(acc)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: newAccountData(acc)})
}

func (api *authApi) me(ctx echo.Context) error {
	acc, err := api.svc.Get(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newAccountData(acc))
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(api.auth.conf.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return errRefreshExpired
	}

	// deleted accounts cannot refresh
	acc, err := api.svc.Get(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return errUnauthorized
		}
		return errors.Wrap(err, "finding account")
	}

	token, err := api.auth.token(acc, claims.OrigIssuedAt)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: newAccountData(acc)})
}
