// Package config は環境変数からサービスの実行時設定を読み込む。
// 必須の値が欠けている、または不正な場合は起動時にエラーを返す。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// データベースドライバ。
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// 実行環境。
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// devSecret は開発環境でシークレット未設定の場合に使う署名鍵。
const devSecret = "dev-secret-key"

// Config はマーケットプレイスサービスの実行時設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// Env は実行環境（development / production）。
	Env string
	// TokenSecret はセッショントークンの署名鍵。
	TokenSecret string
	// SessionTTL はセッショントークンとCookieの有効期間。
	SessionTTL time.Duration
	// DBDriver はストレージのバックエンド（sqlite / postgres）。
	DBDriver string
	// DatabaseURL はPostgreSQLの接続文字列。
	DatabaseURL string
	// SQLitePath はSQLiteのDSN。
	SQLitePath string
	// ClientOrigins はCookie付きリクエストを許可するクライアントのオリジン。
	ClientOrigins []string
	// LogLevel はログ出力の最小レベル。
	LogLevel slog.Level
}

// IsProduction は本番環境かどうかを返す。
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load は .env ファイル（存在する場合）と環境変数から設定を読み込む。
// 既に設定されている環境変数は .env の値で上書きしない。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf(".envの読み込みに失敗: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv は getenv から設定を組み立てる。
func FromEnv(getenv func(string) string) (*Config, error) {
	env := firstNonEmpty(getenv("APP_ENV"), getenv("NODE_ENV"), EnvDevelopment)
	if env != EnvDevelopment && env != EnvProduction {
		return nil, fmt.Errorf("実行環境が不正です: %q", env)
	}

	cfg := &Config{
		Port:          firstNonEmpty(getenv("PORT"), "9000"),
		Env:           env,
		TokenSecret:   getenv("ACCESS_TOKEN_SECRET"),
		DBDriver:      firstNonEmpty(getenv("DB_DRIVER"), DriverSQLite),
		SQLitePath:    firstNonEmpty(getenv("SQLITE_PATH"), "file:marketplace.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"),
		ClientOrigins: splitCSV(firstNonEmpty(getenv("CLIENT_ORIGINS"), "http://localhost:5173")),
		SessionTTL:    10 * time.Hour,
	}

	if cfg.TokenSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("本番環境ではACCESS_TOKEN_SECRETが必須です")
		}
		cfg.TokenSecret = devSecret
	}

	if raw := getenv("SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("SESSION_TTLが不正です: %q", raw)
		}
		cfg.SessionTTL = ttl
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(firstNonEmpty(getenv("LOG_LEVEL"), "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVELが不正です: %w", err)
	}

	switch cfg.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		dsn, err := postgresURL(getenv)
		if err != nil {
			return nil, err
		}
		cfg.DatabaseURL = dsn
	default:
		return nil, fmt.Errorf("DB_DRIVERが不正です: %q", cfg.DBDriver)
	}

	return cfg, nil
}

// postgresURL は DATABASE_URL、または DB_USER/DB_PASS/DB_HOST/DB_NAME から接続文字列を組み立てる。
func postgresURL(getenv func(string) string) (string, error) {
	if dsn := getenv("DATABASE_URL"); dsn != "" {
		return dsn, nil
	}

	user := getenv("DB_USER")
	if user == "" {
		return "", errors.New("postgresではDATABASE_URLまたはDB_USERが必須です")
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, getenv("DB_PASS")),
		Host:   firstNonEmpty(getenv("DB_HOST"), "localhost:5432"),
		Path:   "/" + firstNonEmpty(getenv("DB_NAME"), "job-market-db"),
	}
	if mode := getenv("DB_SSLMODE"); mode != "" {
		u.RawQuery = url.Values{"sslmode": {mode}}.Encode()
	}
	return u.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
