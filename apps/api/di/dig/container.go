package dig_container

import (
	"context"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/appel/apps/api/echo"
	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/attendance"
	"github.com/trezcool/appel/core/identity"
	"github.com/trezcool/appel/core/notification"
	"github.com/trezcool/appel/core/roster"
	emailsvc "github.com/trezcool/appel/services/email"
	logsvc "github.com/trezcool/appel/services/logger"
	"github.com/trezcool/appel/storage/database"
	sqlxrepos "github.com/trezcool/appel/storage/database/sqlx"
)

// Shutdown carries the channel written to when a handler asks the app to stop.
type Shutdown chan struct{}

// LoggerResult exposes the sink alongside the reporting logger so main can flush it.
type LoggerResult struct {
	dig.Out
	Logger core.Logger
	Sink   *logsvc.ZapLogger
}

func newLogger(conf *core.Config) (LoggerResult, error) {
	sink, err := logsvc.NewZapLogger(conf)
	if err != nil {
		return LoggerResult{}, errors.Wrap(err, "building zap logger")
	}

	res := LoggerResult{Logger: sink, Sink: sink}
	switch {
	case conf.SentryDSN != "":
		sentryLogger, err := logsvc.NewSentryLogger(sink, conf)
		if err != nil {
			return LoggerResult{}, errors.Wrap(err, "building sentry logger")
		}
		res.Logger = sentryLogger
	case conf.RollbarToken != "":
		rollbarLogger := logsvc.NewRollbarLogger(sink, conf)
		rollbarLogger.Enable(!conf.Debug)
		res.Logger = rollbarLogger
	}
	return res, nil
}

func newDB(conf *core.Config, logger core.Logger) (*sqlx.DB, error) {
	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = database.Ping(ctx, db); err != nil {
		return nil, err
	}
	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	logger.Info("database ready", map[string]interface{}{"name": conf.Database.Name})
	return sqlx.NewDb(db, conf.Database.Engine), nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridAPIKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := core.NewValidator(translator)
	identity.InitValidators(validate, translator)
	notification.InitValidators(validate, translator)
	return validate
}

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Translator ut.Translator
	DB         *sqlx.DB
	Shutdown   Shutdown

	IdentitySvc     identity.Service
	RosterSvc       roster.Service
	AttendanceSvc   attendance.Service
	NotificationSvc notification.Service
}

func newServer(p serverParams) echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Translator: p.Translator,
		DB:         p.DB,
		SignalShutdown: func() {
			select {
			case p.Shutdown <- struct{}{}:
			default: // already signaled
			}
		},
		IdentitySvc:     p.IdentitySvc,
		RosterSvc:       p.RosterSvc,
		AttendanceSvc:   p.AttendanceSvc,
		NotificationSvc: p.NotificationSvc,
	})
}

// the roster repository also resolves the scopes of students
func newScopeLoaders(repo roster.Repository) (attendance.ScopeLoader, notification.ScopeLoader) {
	return repo, repo
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.LoadConfig))
	must(c.Provide(newLogger))
	must(c.Provide(func() Shutdown { return make(Shutdown, 1) }))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))

	// repositories
	must(c.Provide(sqlxrepos.NewIdentityRepository))
	must(c.Provide(sqlxrepos.NewRosterRepository))
	must(c.Provide(sqlxrepos.NewAttendanceRepository))
	must(c.Provide(sqlxrepos.NewNotificationRepository))
	must(c.Provide(newScopeLoaders))

	// services
	must(c.Provide(identity.NewService))
	must(c.Provide(roster.NewService))
	must(c.Provide(attendance.NewService))
	must(c.Provide(notification.NewService))

	must(c.Provide(newServer))
	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
