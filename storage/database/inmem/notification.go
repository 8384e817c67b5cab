package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n.ID = repo.db.nextID()
	n.Read = false
	repo.db.notifications[n.ID] = &n
	return n, nil
}

func (repo *notificationRepository) GetNotification(_ context.Context, id int64) (notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if n, ok := repo.db.notifications[id]; ok {
		return *n, nil
	}
	return notification.Notification{}, core.ErrNotFound
}

func (repo *notificationRepository) MarkRead(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n, ok := repo.db.notifications[id]
	if !ok {
		return core.ErrNotFound
	}
	n.Read = true
	return nil
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, filter notification.Filter) ([]notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	list := make([]notification.Notification, 0)
	for _, n := range repo.db.notifications {
		if filter.TeacherID != 0 && n.TeacherID != filter.TeacherID {
			continue
		}
		if filter.ParentID != 0 && n.ParentID != filter.ParentID {
			continue
		}
		list = append(list, *n)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}
