package config

import (
	"fmt"

	dbutils "github.com/tendant/db-utils/db"
)

// DatabaseConfig holds PostgreSQL database configuration, used by the
// postgres account repository and the postgres session store.
type DatabaseConfig struct {
	Host     string `env:"LOGIN_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"LOGIN_PG_PORT" env-default:"5432"`
	Database string `env:"LOGIN_PG_DATABASE" env-default:"login_db"`
	User     string `env:"LOGIN_PG_USER" env-default:"login"`
	Password string `env:"LOGIN_PG_PASSWORD" env-default:"pwd"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Database)
}

// ToDbConfig converts the config to a db-utils DbConfig
func (d DatabaseConfig) ToDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}
