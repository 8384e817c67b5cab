package database

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/appel/core"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestPing(t *testing.T) {
	t.Run("retries until the database answers", func(t *testing.T) {
		calls := 0
		db := pingerFunc(func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		})
		require.NoError(t, Ping(context.Background(), db))
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up when the context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		db := pingerFunc(func(context.Context) error {
			cancel()
			return errors.New("connection refused")
		})
		err := Ping(ctx, db)
		require.Error(t, err)
		assert.Equal(t, context.Canceled, errors.Cause(err))
	})
}

func TestCreateAppUser_NoAdmin(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Database.User = "appel"

	// without an admin user nothing is sent to the database
	var db core.DBExecutor
	assert.NoError(t, createAppUser(context.Background(), db, conf))
}

func TestURL(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Database.Host, conf.Database.Port = "db", "5432"
	conf.Database.User, conf.Database.Password = "appel", "p@ss"
	conf.Database.AdminUser, conf.Database.AdminPassword = "postgres", "root"

	assert.Contains(t, URL("appel_test", false, conf), "appel:p%40ss@db:5432/appel_test")
	assert.Contains(t, URL("postgres", true, conf), "postgres:root@db:5432/postgres")
	assert.Contains(t, URL("appel_test", false, conf), "sslmode=disable")
}
