package store

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"reflect"
	"strings"
	"time"
)

// ドキュメントのフィールド名。クライアントとの互換性のため既存のJSON名を使う。
const (
	FieldID       = "_id"
	FieldBidCount = "bid_count"
	FieldTitle    = "title"
	FieldCategory = "category"
	FieldDeadline = "deadline"
	FieldBuyer    = "buyer"
	FieldEmail    = "email"
	FieldJobID    = "jobId"
	FieldStatus   = "status"
)

// deadlineLayout はJavaScriptの Date.prototype.toISOString と同じ形式。
// 数値（エポックミリ秒）の締切日を文字列の締切日と同じ順序で比較できるようにする。
const deadlineLayout = "2006-01-02T15:04:05.000Z07:00"

// jobColumns はジョブドキュメントから抽出する検索用の列。
type jobColumns struct {
	buyerEmail  string
	category    string
	titleFolded string
	deadline    string
	bidCount    int64
}

// bidColumns は入札ドキュメントから抽出する列。
type bidColumns struct {
	email  string
	jobID  string
	buyer  string
	status string
}

func extractJobColumns(doc Document, bidCount int64) jobColumns {
	return jobColumns{
		buyerEmail:  emailOf(doc[FieldBuyer]),
		category:    stringOf(doc[FieldCategory]),
		titleFolded: strings.ToLower(stringOf(doc[FieldTitle])),
		deadline:    deadlineKey(doc[FieldDeadline]),
		bidCount:    bidCount,
	}
}

func extractBidColumns(doc Document) bidColumns {
	return bidColumns{
		email:  stringOf(doc[FieldEmail]),
		jobID:  stringOf(doc[FieldJobID]),
		buyer:  emailOf(doc[FieldBuyer]),
		status: stringOf(doc[FieldStatus]),
	}
}

// Email は key のフィールドが表すメールアドレスを返す。
// 値は文字列、または {email: ...} オブジェクトのどちらでもよい。
func (d Document) Email(key string) string {
	return emailOf(d[key])
}

// stringOf は文字列フィールドの値を返す。文字列以外は空文字列とする。
func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

// emailOf は "buyer" のように文字列または {email: ...} オブジェクトで表されるメールアドレスを取り出す。
func emailOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		return stringOf(t[FieldEmail])
	case Document:
		return stringOf(t[FieldEmail])
	default:
		return ""
	}
}

// deadlineKey は締切日を並び替え用の文字列に変換する。
// 数値はエポックミリ秒とみなしてISO 8601形式に揃える。
func deadlineKey(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return ""
		}
		return time.UnixMilli(int64(t)).UTC().Format(deadlineLayout)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return time.UnixMilli(n).UTC().Format(deadlineLayout)
		}
		return ""
	default:
		return ""
	}
}

// bidCountOf は bid_count フィールドを整数として解釈する。数値でなければ ok=false を返す。
func bidCountOf(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case int:
		return int64(t), true
	case int64:
		return t, true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

// encodeDocument はサーバー管理のフィールドを除いてドキュメントをJSONに変換する。
func encodeDocument(doc Document, managed ...string) (string, error) {
	body := maps.Clone(doc)
	if body == nil {
		body = Document{}
	}
	delete(body, FieldID)
	for _, k := range managed {
		delete(body, k)
	}

	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("ドキュメントのエンコードに失敗: %w", err)
	}
	return string(b), nil
}

// decodeDocument は保存されたJSONをドキュメントに戻し、IDを設定する。
func decodeDocument(id string, raw []byte) (Document, error) {
	doc := Document{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("ドキュメント %s のデコードに失敗: %w", id, err)
		}
	}
	doc[FieldID] = id
	return doc, nil
}

// applySet はMongoDBの $set と同じくトップレベルのフィールドを置き換える。
// いずれかのフィールドの値が変わった場合に true を返す。
func applySet(dst, set Document) bool {
	changed := false
	for k, v := range set {
		if k == FieldID {
			continue
		}
		if old, ok := dst[k]; ok && reflect.DeepEqual(old, v) {
			continue
		}
		dst[k] = v
		changed = true
	}
	return changed
}
