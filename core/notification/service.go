package notification

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/access"
	"github.com/trezcool/appel/core/identity"
	"github.com/trezcool/appel/core/roster"
)

var (
	NowFunc = time.Now // mockable

	errWrongParent = "parent is not the student's parent"
	errNoParent    = "the student has no parent"
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		GetNotification(ctx context.Context, id int64) (Notification, error)
		// MarkRead is idempotent.
		MarkRead(ctx context.Context, id int64) error
		// QueryNotifications is ordered by creation time then id, newest first.
		QueryNotifications(ctx context.Context, filter Filter) ([]Notification, error)
	}

	ScopeLoader interface {
		GetStudentScopes(ctx context.Context, ids []int64) ([]roster.StudentScope, error)
	}

	Service interface {
		Create(ctx context.Context, p identity.Principal, nn NewNotification) (Notification, error)
		MarkRead(ctx context.Context, p identity.Principal, id int64) error
		ListFor(ctx context.Context, p identity.Principal) ([]Notification, error)
	}

	service struct {
		repo     Repository
		scopes   ScopeLoader
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, scopes ScopeLoader, validate *validator.Validate) Service {
	return &service{repo: repo, scopes: scopes, validate: validate}
}

func (svc *service) Create(ctx context.Context, p identity.Principal, nn NewNotification) (Notification, error) {
	nn.Clean()
	if err := svc.validate.Struct(nn); err != nil {
		return Notification{}, err
	}

	scopes, err := svc.scopes.GetStudentScopes(ctx, []int64{nn.StudentID})
	if err != nil {
		return Notification{}, errors.Wrap(err, "loading student scope")
	}
	var scope roster.StudentScope
	if len(scopes) > 0 {
		scope = scopes[0]
	}
	target := access.Target{AuthorID: p.ID, ClassOwnerID: scope.ClassOwnerID}
	if err = access.Authorize(p, access.WriteNotifications, target); err != nil {
		return Notification{}, err
	}

	parentID := scope.ParentID
	if parentID == 0 {
		return Notification{}, core.NewFieldError("parent_id", errNoParent)
	}
	if nn.ParentID != 0 && nn.ParentID != parentID {
		return Notification{}, core.NewFieldError("parent_id", errWrongParent)
	}

	n, err := svc.repo.CreateNotification(ctx, Notification{
		Message:   nn.Message,
		Type:      nn.Type,
		CreatedAt: NowFunc().UTC(),
		TeacherID: p.ID,
		StudentID: nn.StudentID,
		ParentID:  parentID,
	})
	if err != nil {
		return Notification{}, errors.Wrap(err, "creating notification")
	}
	return n, nil
}

func (svc *service) MarkRead(ctx context.Context, p identity.Principal, id int64) error {
	n, err := svc.repo.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	target := access.Target{AuthorID: n.TeacherID, RecipientID: n.ParentID}
	if err = access.Authorize(p, access.MarkNotificationRead, target); err != nil {
		return access.Hide(err)
	}
	if n.Read {
		return nil
	}
	return svc.repo.MarkRead(ctx, id)
}

func (svc *service) ListFor(ctx context.Context, p identity.Principal) ([]Notification, error) {
	var filter Filter
	switch p.Role {
	case identity.RoleTeacher:
		filter.TeacherID = p.ID
	case identity.RoleParent:
		filter.ParentID = p.ID
	default:
		if err := access.Authorize(p, access.ReadNotifications, access.Target{Collection: true}); err != nil {
			return nil, err
		}
	}
	if filter.TeacherID == 0 && filter.ParentID == 0 && !p.IsAdmin() {
		return nil, core.ErrUnauthorized
	}
	return svc.repo.QueryNotifications(ctx, filter)
}
