package core

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Debug            bool
		TestMode         bool
		AppName          string
		Build            string
		SecretKey        string
		LogLevel         string
		TimeZone         string
		Location         *time.Location
		DefaultFromEmail string
		RollbarToken     string
		SentryDSN        string
		SendgridAPIKey   string

		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
	}

	ServerConfig struct {
		Address        string
		Host           string
		DisableReqLogs bool
		// LoginRate is the number of login attempts allowed per second and client IP.
		LoginRate  float64
		LoginBurst int
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
	}
)

// Address returns the "host:port" pair of the database server.
func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

const devSecretKey = "x9#vk2-q7(u&hz$+p3=wd!r_m0)e4*@t8j6^yb1cn5gsa"

func newViper(env string) *viper.Viper {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Appel")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", devSecretKey)
	v.SetDefault("logLevel", "info")
	v.SetDefault("timeZone", "UTC")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sentryDSN", "")
	v.SetDefault("sendgridAPIKey", "")
	v.SetDefault("jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 7*24*time.Hour)

	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverDisableReqLogs", false)
	v.SetDefault("serverLoginRate", 0.2)
	v.SetDefault("serverLoginBurst", 10)

	v.SetDefault("databaseEngine", "pgx")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseUser", "appel")
	v.SetDefault("databasePassword", "appel")
	v.SetDefault("databaseAdminUser", "")
	v.SetDefault("databaseAdminPassword", "")
	v.SetDefault("databaseName", "appel")
	v.SetDefault("databaseDisableTLS", true)

	if env == "TEST" {
		v.SetDefault("testMode", true)
		v.SetDefault("databaseName", "appel_test")
	}
	if env == "PROD" {
		v.SetDefault("debug", false)
		v.SetDefault("databaseDisableTLS", false)
	}

	v.SetEnvPrefix(env)
	v.AutomaticEnv()
	return v
}

// LoadConfig reads the configuration of the current environment (env var `ENV`).
// Values come from `<ENV>_<KEY>` environment variables, optionally preloaded from `config/.env.<env>`.
func LoadConfig() (*Config, error) {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}

	v := newViper(env)
	conf := &Config{
		Env:                       env,
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("appName"),
		Build:                     v.GetString("build"),
		SecretKey:                 v.GetString("secretKey"),
		LogLevel:                  v.GetString("logLevel"),
		TimeZone:                  v.GetString("timeZone"),
		DefaultFromEmail:          v.GetString("defaultFromEmail"),
		RollbarToken:              v.GetString("rollbarToken"),
		SentryDSN:                 v.GetString("sentryDSN"),
		SendgridAPIKey:            v.GetString("sendgridAPIKey"),
		JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
		JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		Server: ServerConfig{
			Address:        v.GetString("serverAddress"),
			Host:           v.GetString("serverHost"),
			DisableReqLogs: v.GetBool("serverDisableReqLogs"),
			LoginRate:      v.GetFloat64("serverLoginRate"),
			LoginBurst:     v.GetInt("serverLoginBurst"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetString("databasePort"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			Name:          v.GetString("databaseName"),
			DisableTLS:    v.GetBool("databaseDisableTLS"),
		},
	}

	loc, err := time.LoadLocation(conf.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "loading time zone %q", conf.TimeZone)
	}
	conf.Location = loc

	if !conf.Debug && !conf.TestMode && conf.SecretKey == devSecretKey {
		return nil, fmt.Errorf("%s_SECRETKEY must be set outside DEV/TEST", env)
	}
	return conf, nil
}

// NewTestConfig returns the configuration used by tests; it never reads the environment.
func NewTestConfig() *Config {
	return &Config{
		Env:                       "TEST",
		Debug:                     false,
		TestMode:                  true,
		AppName:                   "Appel",
		Build:                     "test",
		SecretKey:                 "secret",
		LogLevel:                  "error",
		TimeZone:                  "UTC",
		Location:                  time.UTC,
		DefaultFromEmail:          "noreply@localhost",
		JWTExpirationDelta:        10 * time.Minute,
		JWTRefreshExpirationDelta: 4 * time.Hour,
		Server:                    ServerConfig{Host: "localhost", DisableReqLogs: true},
		Database:                  DatabaseConfig{Engine: "pgx", DisableTLS: true},
	}
}
