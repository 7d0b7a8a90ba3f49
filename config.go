package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Configuration holds everything the server reads from the environment or an
// optional local config.yaml. Env names take precedence over file values.
type Configuration struct {
	Port        string
	DBDSN       string
	AutoMigrate bool
	JWTSecret   string
	PublicURL   string
	ReceiptBase string
	RedisAddr   string
	RedisDB     int
	CacheTTL    time.Duration
}

var cfg *Configuration

func loadConfig() (*Configuration, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	viper.SetDefault("port", "8081")
	viper.SetDefault("db_auto_migrate", true)
	viper.SetDefault("jwt_secret", "dev-insecure-secret-change") // development fallback
	viper.SetDefault("public_url", "http://localhost:8081")
	viper.SetDefault("receipt_base", "receipts")
	viper.SetDefault("redis_addr", "localhost:6379")
	viper.SetDefault("redis_db", 0)
	viper.SetDefault("cache_ttl", "10m")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// no config file: defaults plus environment variables
	}

	c := &Configuration{
		Port:        viper.GetString("port"),
		DBDSN:       viper.GetString("db_dsn"),
		AutoMigrate: viper.GetBool("db_auto_migrate"),
		JWTSecret:   viper.GetString("jwt_secret"),
		PublicURL:   viper.GetString("public_url"),
		ReceiptBase: viper.GetString("receipt_base"),
		RedisAddr:   viper.GetString("redis_addr"),
		RedisDB:     viper.GetInt("redis_db"),
		CacheTTL:    viper.GetDuration("cache_ttl"),
	}
	if c.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is not set; this service requires a Postgres DSN")
	}
	return c, nil
}
