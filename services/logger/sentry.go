package logsvc

import (
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/identity"
)

// SentryLogger reports warnings and errors to Sentry; everything goes to the sink.
type SentryLogger struct {
	sink *ZapLogger
	hub  *sentry.Hub
}

var _ core.Logger = (*SentryLogger)(nil)

func NewSentryLogger(sink *ZapLogger, conf *core.Config) (*SentryLogger, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         conf.SentryDSN,
		Environment: conf.Env,
		Release:     conf.Build,
		ServerName:  conf.Server.Host,
	})
	if err != nil {
		return nil, err
	}
	return &SentryLogger{sink: sink, hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Flush waits for buffered events to be sent.
func (l *SentryLogger) Flush() {
	l.hub.Flush(2 * time.Second)
}

func (l *SentryLogger) capture(level sentry.Level, msg string, args []interface{}) {
	l.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		var errs []error
		for _, arg := range args {
			switch v := arg.(type) {
			case identity.Principal:
				scope.SetUser(sentry.User{ID: strconv.FormatInt(v.ID, 10), Username: string(v.Role)})
			case map[string]interface{}:
				scope.SetContext("extra", v)
			case error:
				errs = append(errs, v)
			}
		}
		if len(errs) == 0 {
			l.hub.CaptureMessage(msg)
			return
		}
		scope.SetExtra("message", msg)
		for _, err := range errs {
			l.hub.CaptureException(err)
		}
	})
}

func (l *SentryLogger) Debug(msg string, args ...interface{}) {
	l.sink.Debug(msg, args...)
}

func (l *SentryLogger) Info(msg string, args ...interface{}) {
	l.sink.Info(msg, args...)
}

func (l *SentryLogger) Warn(msg string, args ...interface{}) {
	l.capture(sentry.LevelWarning, msg, args)
	l.sink.Warn(msg, args...)
}

func (l *SentryLogger) Error(msg string, args ...interface{}) {
	l.capture(sentry.LevelError, msg, args)
	l.sink.Error(msg, args...)
}

func (l *SentryLogger) Fatal(msg string, args ...interface{}) {
	l.capture(sentry.LevelFatal, msg, args)
	l.Flush()
	l.sink.Fatal(msg, args...)
}
