package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// PostgresConfig defines the connection to the wallet database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	// Migrate creates the database and wallet table when missing (dev only).
	Migrate bool `mapstructure:"migrate"`

	// SSM parameter names holding prod credentials.
	SSMHostParam     string `mapstructure:"ssm_host_param"`
	SSMUserParam     string `mapstructure:"ssm_user_param"`
	SSMPasswordParam string `mapstructure:"ssm_password_param"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN builds the connection string. In prod, host and credentials are read
// from AWS SSM Parameter Store.
func (cfg *PostgresConfig) DSN(env string) string {
	host, user, password := cfg.Host, cfg.User, cfg.Password
	if env == "prod" {
		host = getParameterStoreValue(cfg.SSMHostParam, true)
		user = getParameterStoreValue(cfg.SSMUserParam, true)
		password = getParameterStoreValue(cfg.SSMPasswordParam, true)
	}
	return cfg.dsn(host, user, password, cfg.DBName)
}

// AdminDSN points at the default "postgres" database, used to create DBName.
func (cfg *PostgresConfig) AdminDSN() string {
	return cfg.dsn(cfg.Host, cfg.User, cfg.Password, "postgres")
}

func (cfg *PostgresConfig) dsn(host, user, password, dbName string) string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, cfg.Port, user, password, dbName, cfg.SSLMode,
	)

	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}

	return dsn
}

func getParameterStoreValue(parameterName string, decrypt bool) string {
	if parameterName == "" {
		return ""
	}

	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return ""
	}

	client := ssm.NewFromConfig(cfg)

	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctxWithTimeout, input)
	if err != nil {
		return ""
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}
