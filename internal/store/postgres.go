package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// migratePostgres は埋め込みのgooseマイグレーションを適用する。
func migratePostgres(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	goose.SetBaseFS(fsys)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// OpenPostgres はPostgreSQLに接続し、gooseでスキーマを最新化した Store を返す。
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("PostgreSQLへの接続に失敗: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("PostgreSQLへの疎通確認に失敗: %w", err)
	}

	sub, err := fs.Sub(postgresMigrations, "migrations/postgres")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("マイグレーションの読み込みに失敗: %w", err)
	}
	if err := migratePostgres(ctx, db, sub); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("マイグレーションの適用に失敗: %w", err)
	}

	return NewPostgres(db), nil
}

// NewPostgres は接続済みの *sql.DB からPostgreSQL用の Store を生成する。
// スキーマは適用済みであることを前提とする。
func NewPostgres(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, dialect: postgresDialect}
}
