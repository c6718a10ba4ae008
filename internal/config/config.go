package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string // CORS: allowed origin suffix (e.g. .example.com)
	AdminKey            string // guards reference-data reload and health detail
	SeedReferenceData   bool   // seed countries/natures/mechanisms on startup
	AllowOrgHeader      bool   // dev only: accept X-Org-Id instead of a session
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL")
	if env == "test" && viper.GetString("DATABASE_URL_TEST") != "" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}

	return &Config{
		Env:                 env,
		Port:                port,
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		AdminKey:            viper.GetString("ADMIN_KEY"),
		SeedReferenceData:   !strings.EqualFold(viper.GetString("SEED_REFERENCE_DATA"), "false"),
		AllowOrgHeader:      env != "production" && strings.EqualFold(viper.GetString("ALLOW_ORG_HEADER"), "true"),
	}, nil
}
