package identity

import (
	"context"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/appel/core"
)

const generatedPasswordLen = 8

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrEmailExists          = errors.New("an account with this email already exists")

	// checked when no account matches the email
	dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOHi5BWfM1X0G6J9Jqz9zFQm8sY4uQ7xK")
)

type (
	Repository interface {
		GetAccountByEmail(ctx context.Context, role Role, email string) (Account, error)
		GetAccount(ctx context.Context, p Principal) (Account, error)
		QueryTeachers(ctx context.Context) ([]Teacher, error)
		QueryParents(ctx context.Context) ([]Parent, error)
		// CreateAccount returns ErrEmailExists when the email is taken within the role.
		CreateAccount(ctx context.Context, role Role, prof Profile) (Account, error)
		UpdatePassword(ctx context.Context, p Principal, hash []byte) error
		DeleteAccount(ctx context.Context, p Principal) error
	}

	Service interface {
		Authenticate(ctx context.Context, creds Credentials) (Account, error)
		Get(ctx context.Context, p Principal) (Account, error)
		Teachers(ctx context.Context) ([]Teacher, error)
		Parents(ctx context.Context) ([]Parent, error)
		Create(ctx context.Context, role Role, na NewAccount) (Account, error)
		CreateTeacher(ctx context.Context, na NewAccount) (Teacher, error)
		CreateParent(ctx context.Context, na NewAccount) (Parent, error)
		Delete(ctx context.Context, p Principal) error
		SetPassword(ctx context.Context, p Principal, pwd string) error
	}

	service struct {
		appName  string
		repo     Repository
		mailSvc  core.EmailService
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService, validate *validator.Validate) Service {
	return &service{
		appName:  conf.AppName,
		repo:     repo,
		mailSvc:  mailSvc,
		validate: validate,
	}
}

func (svc *service) Authenticate(ctx context.Context, creds Credentials) (Account, error) {
	creds.Email = core.CleanString(creds.Email, true /* lower */)
	if err := svc.validate.Struct(creds); err != nil {
		return nil, err
	}

	acc, err := svc.repo.GetAccountByEmail(ctx, creds.Role, creds.Email)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			_ = Profile{PasswordHash: dummyHash}.CheckPassword(creds.Password)
			return nil, ErrAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding account by email")
	}
	if err = acc.GetProfile().CheckPassword(creds.Password); err != nil {
		return nil, ErrAuthenticationFailed
	}
	return acc, nil
}

func (svc *service) Get(ctx context.Context, p Principal) (Account, error) {
	return svc.repo.GetAccount(ctx, p)
}

func (svc *service) Teachers(ctx context.Context) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx)
}

func (svc *service) Parents(ctx context.Context) ([]Parent, error) {
	return svc.repo.QueryParents(ctx)
}

func (svc *service) Create(ctx context.Context, role Role, na NewAccount) (Account, error) {
	if !role.Valid() {
		return nil, errors.Errorf("invalid role %q", role)
	}
	na.Clean()
	if err := svc.validate.Struct(na); err != nil {
		return nil, err
	}

	pwd := na.Password
	generated := pwd == ""
	if generated {
		var err error
		if pwd, err = core.GeneratePassword(generatedPasswordLen); err != nil {
			return nil, errors.Wrap(err, "generating password")
		}
	}

	prof := Profile{
		GivenName:  na.GivenName,
		FamilyName: na.FamilyName,
		Email:      na.Email,
	}
	if err := prof.SetPassword(pwd); err != nil {
		return nil, errors.Wrap(err, "hashing password")
	}

	acc, err := svc.repo.CreateAccount(ctx, role, prof)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return nil, core.NewValidationError(err, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return nil, errors.Wrap(err, "creating account")
	}

	if generated {
		svc.sendCredentials(acc, role, pwd)
	}
	return acc, nil
}

func (svc *service) CreateTeacher(ctx context.Context, na NewAccount) (Teacher, error) {
	acc, err := svc.Create(ctx, RoleTeacher, na)
	if err != nil {
		return Teacher{}, err
	}
	return acc.(Teacher), nil
}

func (svc *service) CreateParent(ctx context.Context, na NewAccount) (Parent, error) {
	acc, err := svc.Create(ctx, RoleParent, na)
	if err != nil {
		return Parent{}, err
	}
	return acc.(Parent), nil
}

func (svc *service) Delete(ctx context.Context, p Principal) error {
	return svc.repo.DeleteAccount(ctx, p)
}

func (svc *service) SetPassword(ctx context.Context, p Principal, pwd string) error {
	if pwd == "" {
		return core.NewFieldError("password", "this field is required")
	}
	var prof Profile
	if err := prof.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return svc.repo.UpdatePassword(ctx, p, prof.PasswordHash)
}

type credentialsData struct {
	GivenName string
	Role      Role
	Email     string
	Password  string
}

func (svc *service) sendCredentials(acc Account, role Role, pwd string) {
	prof := acc.GetProfile()
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: prof.FullName(), Address: prof.Email}},
		Subject:      "Your " + svc.appName + " account",
		TemplateName: "account_created",
		TemplateData: credentialsData{
			GivenName: prof.GivenName,
			Role:      role,
			Email:     prof.Email,
			Password:  pwd,
		},
	})
}
