package marketplace

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nao1215/job-marketplace/internal/store"
)

// 書き込み系のレスポンスはクライアントとの互換性のためMongoDBドライバの結果と同じ形にする。

func insertResponse(id string) gin.H {
	return gin.H{"acknowledged": true, "insertedId": id}
}

func deleteResponse(n int64) gin.H {
	return gin.H{"acknowledged": true, "deletedCount": n}
}

func updateResponse(r store.UpdateResult) gin.H {
	var upsertedID any
	if r.UpsertedID != "" {
		upsertedID = r.UpsertedID
	}
	return gin.H{
		"acknowledged":  true,
		"matchedCount":  r.MatchedCount,
		"modifiedCount": r.ModifiedCount,
		"upsertedCount": r.UpsertedCount,
		"upsertedId":    upsertedID,
	}
}

// validID はドキュメントIDとして妥当な形式かどうかを返す。
// 発行するIDと同じ小文字・ハイフン区切りの形式のみを受け付ける。
// 形式が不正なIDは存在しないIDと同じに扱い、ストレージには問い合わせない。
func validID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}
