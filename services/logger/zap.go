package logsvc

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/appel/core"
	"github.com/trezcool/appel/core/identity"
)

// ZapLogger is the log sink of the app. The reporters below forward to it.
type ZapLogger struct {
	base  *zap.Logger
	level zap.AtomicLevel
}

var _ core.Logger = (*ZapLogger)(nil)

func NewZapLogger(conf *core.Config) (*ZapLogger, error) {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(strings.ToLower(conf.LogLevel))); err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	var cfg zap.Config
	if conf.Env == "PROD" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build(zap.AddStacktrace(zap.ErrorLevel), zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	base = base.With(zap.String("app", conf.AppName), zap.String("build", conf.Build))
	return &ZapLogger{base: base, level: lvl}, nil
}

// NewNopLogger discards everything; used by tests.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{base: zap.NewNop(), level: zap.NewAtomicLevelAt(zap.FatalLevel)}
}

// NewObservedLogger wraps an existing zap logger (zaptest/observer in tests).
func NewObservedLogger(base *zap.Logger) *ZapLogger {
	return &ZapLogger{base: base, level: zap.NewAtomicLevelAt(zap.DebugLevel)}
}

func (l *ZapLogger) SetLevel(lvl zapcore.Level) { l.level.SetLevel(lvl) }

func (l *ZapLogger) Sync() { _ = l.base.Sync() }

// expected args: error, map[string]interface{}, identity.Principal or anything printable
func fields(args []interface{}) []zap.Field {
	flds := make([]zap.Field, 0, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case error:
			flds = append(flds, zap.Error(v))
		case identity.Principal:
			flds = append(flds, zap.Int64("principal_id", v.ID), zap.String("principal_role", string(v.Role)))
		case map[string]interface{}:
			for k, val := range v {
				flds = append(flds, zap.Any(k, val))
			}
		default:
			flds = append(flds, zap.Any(fmt.Sprintf("arg%d", i), v))
		}
	}
	return flds
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) { l.base.Debug(msg, fields(args)...) }
func (l *ZapLogger) Info(msg string, args ...interface{})  { l.base.Info(msg, fields(args)...) }
func (l *ZapLogger) Warn(msg string, args ...interface{})  { l.base.Warn(msg, fields(args)...) }
func (l *ZapLogger) Error(msg string, args ...interface{}) { l.base.Error(msg, fields(args)...) }
func (l *ZapLogger) Fatal(msg string, args ...interface{}) { l.base.Fatal(msg, fields(args)...) }
