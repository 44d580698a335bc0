package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nao1215/job-marketplace/pkg/migration"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// sqliteMigrationsDir は sqliteMigrations 内のマイグレーションディレクトリ。
const sqliteMigrationsDir = "migrations/sqlite"

// OpenSQLite はSQLiteデータベースを開き、スキーマを最新化した Store を返す。
// dsn は modernc.org/sqlite の形式（例: file:marketplace.db?_pragma=busy_timeout(5000)）。
// ファイルDBでは書き込みトランザクションをIMMEDIATEで開始し、読み取り後の書き込みへの昇格でSQLITE_BUSYにならないようにする。
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*SQLStore, error) {
	if !isMemoryDSN(dsn) {
		dsn = fileDSN(dsn)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("SQLiteへの接続に失敗: %w", err)
	}

	// インメモリDBは接続ごとに独立するため、単一接続に制限する
	if isMemoryDSN(dsn) {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("SQLiteへの疎通確認に失敗: %w", err)
	}

	if err := migration.Run(ctx, db, sqliteMigrations, sqliteMigrationsDir, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	return &SQLStore{db: db, dialect: sqliteDialect}, nil
}

// fileDSN は未指定の場合に _txlock=immediate と busy_timeout を付与する。
// IMMEDIATEトランザクションは開始時に書き込みロックを取るため、競合は busy_timeout の範囲で待機される。
func fileDSN(dsn string) string {
	var params []string
	if !strings.Contains(dsn, "_txlock=") {
		params = append(params, "_txlock=immediate")
	}
	if !strings.Contains(dsn, "busy_timeout") {
		params = append(params, "_pragma=busy_timeout(5000)")
	}
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
