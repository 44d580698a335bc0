// Package store はジョブと入札ドキュメントの永続化を提供する。
//
// ドキュメントはクライアントから受け取ったJSONオブジェクトをそのまま保存し、
// 検索・一意性制約に必要なフィールドのみを列として抽出する。
// SQLite（modernc.org/sqlite）とPostgreSQL（pgx）の2つのバックエンドを
// 同じ database/sql 実装で扱い、プレースホルダ形式のみを切り替える。
package store

import (
	"context"
	"errors"
)

// Document はクライアントが送信した任意の形のJSONオブジェクト。
type Document map[string]any

// エラー定義。
var (
	// ErrNotFound は指定IDのドキュメントが存在しない場合に返される。
	ErrNotFound = errors.New("ドキュメントが見つかりません")
	// ErrDuplicateBid は同じ入札者が同じジョブに既に入札している場合に返される。
	ErrDuplicateBid = errors.New("このジョブには既に入札済みです")
)

// SortOrder は締切日による並び替え方向。
type SortOrder int

const (
	// SortNone は並び替えを行わない（ストレージ依存の順序）。
	SortNone SortOrder = iota
	// SortAsc は締切日の昇順。
	SortAsc
	// SortDesc は締切日の降順。
	SortDesc
)

// JobQuery はジョブ一覧の絞り込み条件。空のフィールドは条件に含めない。
// 複数の条件は論理積で結合する。
type JobQuery struct {
	// BuyerEmail は発注者のメールアドレス（buyer.email）の完全一致。
	BuyerEmail string
	// Category はカテゴリの完全一致。
	Category string
	// Search はタイトルの部分一致（大文字小文字を区別しない）。
	Search string
	// Sort は締切日による並び替え方向。
	Sort SortOrder
}

// BidQuery は入札一覧の絞り込み条件。
type BidQuery struct {
	// Email は入札者のメールアドレス。AsBuyer が false の場合に使用する。
	Email string
	// AsBuyer が true の場合、Email を発注者（buyer）として検索する。
	AsBuyer bool
}

// UpdateResult は更新操作の結果。
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
	UpsertedCount int64
	// UpsertedID は新規作成された場合のドキュメントID。
	UpsertedID string
}

// Store はマーケットプレイスのストレージ操作を表す。
type Store interface {
	// InsertJob はジョブを保存し、生成したIDを返す。
	InsertJob(ctx context.Context, doc Document) (string, error)
	// ListJobs は条件に一致するジョブを返す。
	ListJobs(ctx context.Context, q JobQuery) ([]Document, error)
	// GetJob はIDでジョブを取得する。存在しない場合は ErrNotFound を返す。
	GetJob(ctx context.Context, id string) (Document, error)
	// UpsertJob はトップレベルのフィールドを上書きする。存在しない場合は作成する。
	UpsertJob(ctx context.Context, id string, set Document) (UpdateResult, error)
	// DeleteJob はジョブを削除し、削除件数を返す。
	DeleteJob(ctx context.Context, id string) (int64, error)

	// InsertBid は入札を保存し、参照先ジョブの bid_count を1増やす。
	// 2つの操作は単一トランザクションで行う。
	// 同じ (email, jobId) の入札が既にある場合は ErrDuplicateBid を返す。
	InsertBid(ctx context.Context, doc Document) (string, error)
	// ListBids は条件に一致する入札を返す。
	ListBids(ctx context.Context, q BidQuery) ([]Document, error)
	// GetBid はIDで入札を取得する。存在しない場合は ErrNotFound を返す。
	GetBid(ctx context.Context, id string) (Document, error)
	// UpdateBidStatus は入札のステータスを更新する。
	UpdateBidStatus(ctx context.Context, id, status string) (UpdateResult, error)

	// Ping はストレージへの疎通を確認する。
	Ping(ctx context.Context) error
	// Close はストレージ接続を閉じる。
	Close() error
}
