package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		AppName          string
		Debug            bool
		TestMode         bool
		SecretKey        string
		DefaultFromEmail mail.Address
		FrontendBaseURL  string
		WorkDir          string
		RollbarToken     string

		Server       ServerConfig
		Database     DatabaseConfig
		Uploads      UploadsConfig
		Redis        RedisConfig
		Mail         MailConfig
		Applications ApplicationsConfig
	}

	ServerConfig struct {
		Host                      string
		Addr                      string
		DebugHost                 string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
		LoginRateLimit            int
		LoginRateWindow           time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		MaxOpenConns  int
		MaxIdleConns  int
	}

	UploadsConfig struct {
		Dir               string
		MaxSize           int64
		AllowedExtensions []string
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	MailConfig struct {
		Backend        string // console, sendgrid, ses
		SendgridApiKey string
		SESRegion      string
	}

	ApplicationsConfig struct {
		// AllowRedecision lets admins approve or reject an application that was already decided.
		AllowRedecision bool
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// NewConfig reads the configuration from defaults, `config/.env.<env>` and the environment.
// Environment variables are prefixed with the upper-cased env name, e.g. DEV_SERVER_ADDR.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // env values are looked up on each Get

	wd := v.GetString("workDir")
	if wd == "" {
		wd, _ = os.Getwd()
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	conf := &Config{
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		WorkDir:          wd,
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Addr:                      v.GetString("server.addr"),
			DebugHost:                 v.GetString("server.debugHost"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			LoginRateLimit:            v.GetInt("server.loginRateLimit"),
			LoginRateWindow:           v.GetDuration("server.loginRateWindow"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			MaxOpenConns:  v.GetInt("database.maxOpenConns"),
			MaxIdleConns:  v.GetInt("database.maxIdleConns"),
		},
		Uploads: UploadsConfig{
			Dir:               v.GetString("uploads.dir"),
			MaxSize:           v.GetInt64("uploads.maxSize"),
			AllowedExtensions: v.GetStringSlice("uploads.allowedExtensions"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Mail: MailConfig{
			Backend:        v.GetString("mail.backend"),
			SendgridApiKey: v.GetString("mail.sendgridApiKey"),
			SESRegion:      v.GetString("mail.sesRegion"),
		},
		Applications: ApplicationsConfig{
			AllowRedecision: v.GetBool("applications.allowRedecision"),
		},
	}
	if conf.Uploads.Dir != "" && !filepath.IsAbs(conf.Uploads.Dir) {
		conf.Uploads.Dir = filepath.Join(wd, conf.Uploads.Dir)
	}
	return conf
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("appName", "Erasmus Hub")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("secretKey", "x7#kq2!v9m$erasmus-hub-dev-secret-change-me@4p")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("workDir", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.jwtExpirationDelta", 4*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.loginRateLimit", 10)
	v.SetDefault("server.loginRateWindow", time.Minute)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "erasmushub")
	v.SetDefault("database.user", "erasmushub")
	v.SetDefault("database.password", "erasmushub")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)

	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.maxSize", int64(16*1024*1024))
	v.SetDefault("uploads.allowedExtensions", []string{"pdf", "doc", "docx", "jpg", "jpeg", "png"})

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("mail.backend", "console")
	v.SetDefault("mail.sendgridApiKey", "")
	v.SetDefault("mail.sesRegion", "eu-central-1")

	v.SetDefault("applications.allowRedecision", false)
}

// NewTestConfig returns the configuration used by tests: no env lookup, test mode on.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	wd, _ := os.Getwd()
	return &Config{
		Env:              "TEST",
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		Debug:            false,
		TestMode:         true,
		SecretKey:        v.GetString("secretKey"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		WorkDir:          wd,
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			LoginRateLimit:            v.GetInt("server.loginRateLimit"),
			LoginRateWindow:           v.GetDuration("server.loginRateWindow"),
		},
		Uploads: UploadsConfig{
			MaxSize:           v.GetInt64("uploads.maxSize"),
			AllowedExtensions: v.GetStringSlice("uploads.allowedExtensions"),
		},
		Mail: MailConfig{Backend: "console"},
	}
}
