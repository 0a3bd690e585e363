package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// PostgresConfig defines the configuration for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	// ParameterPrefix is the SSM path holding host, user and password in prod.
	ParameterPrefix string `mapstructure:"parameter_prefix"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ParameterGetter is the subset of the SSM client used to resolve credentials.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// DSN builds the connection string for env. In "prod" host, user and password are
// read from SSM Parameter Store using the default AWS credential chain.
func (cfg *PostgresConfig) DSN(ctx context.Context, env string) (string, error) {
	if env != "prod" {
		return cfg.dsn(cfg.Host, cfg.User, cfg.Password), nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("load aws config: %w", err)
	}
	return cfg.ResolveDSN(ctx, ssm.NewFromConfig(awsCfg))
}

// ResolveDSN builds the connection string with credentials fetched through client.
func (cfg *PostgresConfig) ResolveDSN(ctx context.Context, client ParameterGetter) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	host, err := getParameterStoreValue(ctx, client, cfg.ParameterPrefix+"/host", false)
	if err != nil {
		return "", err
	}
	user, err := getParameterStoreValue(ctx, client, cfg.ParameterPrefix+"/user", true)
	if err != nil {
		return "", err
	}
	password, err := getParameterStoreValue(ctx, client, cfg.ParameterPrefix+"/password", true)
	if err != nil {
		return "", err
	}

	return cfg.dsn(host, user, password), nil
}

func (cfg *PostgresConfig) dsn(host, user, password string) string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSNValue(host), cfg.Port, quoteDSNValue(user), quoteDSNValue(password),
		quoteDSNValue(cfg.DBName), quoteDSNValue(cfg.SSLMode),
	)

	if cfg.TimeZone != "" {
		dsn += " TimeZone=" + quoteDSNValue(cfg.TimeZone)
	}

	return dsn
}

// quoteDSNValue single-quotes v for a libpq key/value string when it is empty or
// holds spaces, quotes or backslashes.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n\r'\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// AdminDSN is the DSN of the server's maintenance database, used to create DBName.
func (cfg *PostgresConfig) AdminDSN(ctx context.Context, env string) (string, error) {
	admin := *cfg
	admin.DBName = "postgres"
	return admin.DSN(ctx, env)
}

func getParameterStoreValue(ctx context.Context, client ParameterGetter, parameterName string, decrypt bool) (string, error) {
	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctx, input)
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", parameterName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", parameterName)
	}

	return *result.Parameter.Value, nil
}
