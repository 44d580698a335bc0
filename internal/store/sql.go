package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// dialect はバックエンドごとのSQLの差異を表す。
type dialect struct {
	// name はログ・エラーメッセージ用の名前。
	name string
	// numbered が true の場合、プレースホルダを $1, $2, ... に書き換える。
	numbered bool
	// lockSuffix は読み取り後に更新する行を取得するSELECTに付ける句。
	lockSuffix string
}

var (
	sqliteDialect   = dialect{name: "sqlite"}
	postgresDialect = dialect{name: "postgres", numbered: true, lockSuffix: " FOR UPDATE"}
)

// rebind は ? プレースホルダをバックエンドの形式に変換する。
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore は database/sql 上に実装した Store。
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

var _ Store = (*SQLStore)(nil)

func (s *SQLStore) exec(ctx context.Context, q queryer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, q queryer, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, q queryer, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

// queryer は *sql.DB と *sql.Tx の共通インターフェース。
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx はトランザクション内で fn を実行し、エラーがあればロールバックする。
func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}
	return nil
}

// InsertJob はジョブを保存し、生成したIDを返す。
// bid_count が数値で指定されていればその値、なければ0で初期化する。
func (s *SQLStore) InsertJob(ctx context.Context, doc Document) (string, error) {
	bidCount, _ := bidCountOf(doc[FieldBidCount])
	cols := extractJobColumns(doc, bidCount)
	body, err := encodeDocument(doc, FieldBidCount)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	if _, err := s.exec(ctx, s.db, `
		INSERT INTO jobs (id, buyer_email, category, title_folded, deadline, bid_count, doc)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, cols.buyerEmail, cols.category, cols.titleFolded, cols.deadline, cols.bidCount, body,
	); err != nil {
		return "", fmt.Errorf("ジョブの保存に失敗: %w", err)
	}
	return id, nil
}

// ListJobs は条件に一致するジョブを返す。
func (s *SQLStore) ListJobs(ctx context.Context, q JobQuery) ([]Document, error) {
	var (
		where []string
		args  []any
	)
	if q.BuyerEmail != "" {
		where = append(where, "buyer_email = ?")
		args = append(args, q.BuyerEmail)
	}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if q.Search != "" {
		where = append(where, `title_folded LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(q.Search))+"%")
	}

	query := "SELECT id, doc, bid_count FROM jobs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	switch q.Sort {
	case SortAsc:
		query += " ORDER BY deadline ASC"
	case SortDesc:
		query += " ORDER BY deadline DESC"
	case SortNone:
	}

	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ジョブ一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	jobs := make([]Document, 0)
	for rows.Next() {
		var (
			id       string
			raw      []byte
			bidCount int64
		)
		if err := rows.Scan(&id, &raw, &bidCount); err != nil {
			return nil, fmt.Errorf("ジョブ行の読み取りに失敗: %w", err)
		}
		doc, err := decodeJob(id, raw, bidCount)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ジョブ一覧の走査に失敗: %w", err)
	}
	return jobs, nil
}

// GetJob はIDでジョブを取得する。
func (s *SQLStore) GetJob(ctx context.Context, id string) (Document, error) {
	var (
		raw      []byte
		bidCount int64
	)
	err := s.queryRow(ctx, s.db, "SELECT doc, bid_count FROM jobs WHERE id = ?", id).Scan(&raw, &bidCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ジョブ %s の取得に失敗: %w", id, err)
	}
	return decodeJob(id, raw, bidCount)
}

// UpsertJob はトップレベルのフィールドを上書きし、ジョブが存在しない場合は作成する。
func (s *SQLStore) UpsertJob(ctx context.Context, id string, set Document) (UpdateResult, error) {
	var result UpdateResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			raw      []byte
			bidCount int64
		)
		err := s.queryRow(ctx, tx, "SELECT doc, bid_count FROM jobs WHERE id = ?"+s.dialect.lockSuffix, id).Scan(&raw, &bidCount)
		if errors.Is(err, sql.ErrNoRows) {
			return s.insertJobWithID(ctx, tx, id, set, &result)
		}
		if err != nil {
			return fmt.Errorf("ジョブ %s の取得に失敗: %w", id, err)
		}

		doc, err := decodeDocument(id, raw)
		if err != nil {
			return err
		}
		doc[FieldBidCount] = float64(bidCount)
		result.MatchedCount = 1
		if !applySet(doc, set) {
			return nil
		}

		newCount, ok := bidCountOf(doc[FieldBidCount])
		if !ok {
			newCount = bidCount
		}
		cols := extractJobColumns(doc, newCount)
		body, err := encodeDocument(doc, FieldBidCount)
		if err != nil {
			return err
		}
		if _, err := s.exec(ctx, tx, `
			UPDATE jobs
			SET buyer_email = ?, category = ?, title_folded = ?, deadline = ?, bid_count = ?, doc = ?
			WHERE id = ?`,
			cols.buyerEmail, cols.category, cols.titleFolded, cols.deadline, cols.bidCount, body, id,
		); err != nil {
			return fmt.Errorf("ジョブ %s の更新に失敗: %w", id, err)
		}
		result.ModifiedCount = 1
		return nil
	})
	if err != nil {
		return UpdateResult{}, err
	}
	return result, nil
}

// insertJobWithID はアップサートで対象が存在しなかった場合に指定IDでジョブを作成する。
func (s *SQLStore) insertJobWithID(ctx context.Context, tx *sql.Tx, id string, doc Document, result *UpdateResult) error {
	bidCount, _ := bidCountOf(doc[FieldBidCount])
	cols := extractJobColumns(doc, bidCount)
	body, err := encodeDocument(doc, FieldBidCount)
	if err != nil {
		return err
	}
	if _, err := s.exec(ctx, tx, `
		INSERT INTO jobs (id, buyer_email, category, title_folded, deadline, bid_count, doc)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, cols.buyerEmail, cols.category, cols.titleFolded, cols.deadline, cols.bidCount, body,
	); err != nil {
		return fmt.Errorf("ジョブ %s の作成に失敗: %w", id, err)
	}
	result.UpsertedCount = 1
	result.UpsertedID = id
	return nil
}

// DeleteJob はジョブを削除し、削除件数を返す。
func (s *SQLStore) DeleteJob(ctx context.Context, id string) (int64, error) {
	res, err := s.exec(ctx, s.db, "DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("ジョブ %s の削除に失敗: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	return n, nil
}

// InsertBid は入札の保存とジョブの bid_count の加算を単一トランザクションで行う。
// (email, job_id) の一意インデックスに衝突した場合は何も変更せず ErrDuplicateBid を返す。
// 参照先ジョブの存在は検証しない。
func (s *SQLStore) InsertBid(ctx context.Context, doc Document) (string, error) {
	cols := extractBidColumns(doc)
	body, err := encodeDocument(doc)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := s.exec(ctx, tx, `
			INSERT INTO bids (id, email, job_id, buyer, status, doc)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (email, job_id) DO NOTHING`,
			id, cols.email, cols.jobID, cols.buyer, cols.status, body,
		)
		if err != nil {
			return fmt.Errorf("入札の保存に失敗: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("保存件数の取得に失敗: %w", err)
		}
		if n == 0 {
			return ErrDuplicateBid
		}

		if _, err := s.exec(ctx, tx, "UPDATE jobs SET bid_count = bid_count + 1 WHERE id = ?", cols.jobID); err != nil {
			return fmt.Errorf("ジョブ %s の入札数の更新に失敗: %w", cols.jobID, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListBids は入札者または発注者のメールアドレスで入札を絞り込む。
func (s *SQLStore) ListBids(ctx context.Context, q BidQuery) ([]Document, error) {
	column := "email"
	if q.AsBuyer {
		column = "buyer"
	}

	rows, err := s.query(ctx, s.db, "SELECT id, doc FROM bids WHERE "+column+" = ?", q.Email)
	if err != nil {
		return nil, fmt.Errorf("入札一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	bids := make([]Document, 0)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("入札行の読み取りに失敗: %w", err)
		}
		doc, err := decodeDocument(id, raw)
		if err != nil {
			return nil, err
		}
		bids = append(bids, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("入札一覧の走査に失敗: %w", err)
	}
	return bids, nil
}

// GetBid はIDで入札を取得する。
func (s *SQLStore) GetBid(ctx context.Context, id string) (Document, error) {
	var raw []byte
	err := s.queryRow(ctx, s.db, "SELECT doc FROM bids WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("入札 %s の取得に失敗: %w", id, err)
	}
	return decodeDocument(id, raw)
}

// UpdateBidStatus は入札のステータスを更新する。一致する入札が無い場合は MatchedCount が0になる。
func (s *SQLStore) UpdateBidStatus(ctx context.Context, id, status string) (UpdateResult, error) {
	var result UpdateResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var raw []byte
		err := s.queryRow(ctx, tx, "SELECT doc FROM bids WHERE id = ?"+s.dialect.lockSuffix, id).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("入札 %s の取得に失敗: %w", id, err)
		}

		doc, err := decodeDocument(id, raw)
		if err != nil {
			return err
		}
		result.MatchedCount = 1
		if !applySet(doc, Document{FieldStatus: status}) {
			return nil
		}

		body, err := encodeDocument(doc)
		if err != nil {
			return err
		}
		if _, err := s.exec(ctx, tx, "UPDATE bids SET status = ?, doc = ? WHERE id = ?", status, body, id); err != nil {
			return fmt.Errorf("入札 %s のステータス更新に失敗: %w", id, err)
		}
		result.ModifiedCount = 1
		return nil
	})
	if err != nil {
		return UpdateResult{}, err
	}
	return result, nil
}

// Ping はデータベースへの疎通を確認する。
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%s への疎通確認に失敗: %w", s.dialect.name, err)
	}
	return nil
}

// Close はデータベース接続を閉じる。
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// decodeJob はジョブ行をドキュメントに変換し、bid_count を列の値で設定する。
func decodeJob(id string, raw []byte, bidCount int64) (Document, error) {
	doc, err := decodeDocument(id, raw)
	if err != nil {
		return nil, err
	}
	doc[FieldBidCount] = bidCount
	return doc, nil
}

// escapeLike はLIKEパターンの特殊文字をエスケープし、検索語を文字どおりに一致させる。
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
