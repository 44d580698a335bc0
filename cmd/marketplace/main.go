// ジョブマーケットプレイスAPIサービスのエントリポイント。
// ジョブの投稿・検索と入札の管理を担当し、セッションはCookieのJWTで表す。
// SIGINT/SIGTERMを受け取ると処理中のリクエストを待ってから停止する。
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/job-marketplace/internal/config"
	"github.com/nao1215/job-marketplace/internal/marketplace"
	"github.com/nao1215/job-marketplace/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("marketplace service stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	logger.Info("starting marketplace service", "port", cfg.Port, "env", cfg.Env, "driver", cfg.DBDriver)
	return marketplace.NewServer(cfg, st, logger).Run(ctx)
}

// newLogger は本番環境ではJSON、開発環境ではテキスト形式のロガーを返す。
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// openStore は設定されたドライバでストレージに接続する。
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		st, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("PostgreSQLへの接続に失敗: %w", err)
		}
		return st, nil
	default:
		st, err := store.OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("SQLiteの初期化に失敗: %w", err)
		}
		return st, nil
	}
}
