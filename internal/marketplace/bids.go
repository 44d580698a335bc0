package marketplace

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/job-marketplace/internal/store"
	"github.com/nao1215/job-marketplace/pkg/middleware"
)

// 入札ステータス。クライアントが使う値であり、これ以外の文字列もそのまま保存する。
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusComplete   = "Complete"
	StatusRejected   = "Rejected"
)

// messageDuplicateBid は同じジョブへの2回目の入札に返すメッセージ。
const messageDuplicateBid = "You have already placed a bid on this job."

// updateBidStatusRequest は入札ステータス更新リクエストのJSON構造。
type updateBidStatusRequest struct {
	// Status は新しいステータス。
	Status string `json:"status" binding:"required"`
}

// handleCreateBid は入札を処理するハンドラを返す。
// 同じ入札者が同じジョブに既に入札している場合は400をテキストで返し、ジョブの入札数は変えない。
func (s *Server) handleCreateBid() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, ok := bindDocument(c)
		if !ok {
			return
		}
		// 重複判定と入札数の加算に使うため、入札者とジョブIDは空でない文字列に限る
		for _, key := range []string{store.FieldEmail, store.FieldJobID} {
			if v, _ := doc[key].(string); v == "" {
				c.JSON(http.StatusBadRequest, gin.H{"message": key + " must be a non-empty string"})
				return
			}
		}
		if _, ok := doc[store.FieldStatus].(string); !ok {
			doc[store.FieldStatus] = StatusPending
		}

		id, err := s.store.InsertBid(c.Request.Context(), doc)
		if errors.Is(err, store.ErrDuplicateBid) {
			c.String(http.StatusBadRequest, messageDuplicateBid)
			return
		}
		if err != nil {
			_ = c.Error(err)
			return
		}

		c.JSON(http.StatusOK, insertResponse(id))
	}
}

// handleListBids は入札一覧を返すハンドラを返す。
// buyer クエリが真の場合は発注者として受け取った入札、そうでなければ自分の入札を返す。
func (s *Server) handleListBids() gin.HandlerFunc {
	return func(c *gin.Context) {
		bids, err := s.store.ListBids(c.Request.Context(), store.BidQuery{
			Email:   c.Param("email"),
			AsBuyer: queryFlag(c.Query("buyer")),
		})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, bids)
	}
}

// handleUpdateBidStatus は入札ステータスの更新を処理するハンドラを返す。
// 入札者本人またはジョブの発注者のみが更新できる。
func (s *Server) handleUpdateBidStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateBidStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "status is required"})
			return
		}

		id := c.Param("id")
		if !validID(id) {
			c.JSON(http.StatusNotFound, gin.H{"message": "bid not found"})
			return
		}

		bid, err := s.store.GetBid(c.Request.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "bid not found"})
			return
		}
		if err != nil {
			_ = c.Error(err)
			return
		}

		if !isBidParticipant(bid, middleware.GetEmail(c)) {
			middleware.Forbid(c)
			return
		}

		res, err := s.store.UpdateBidStatus(c.Request.Context(), id, req.Status)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, updateResponse(res))
	}
}

// isBidParticipant は email が入札者またはジョブの発注者かどうかを返す。
func isBidParticipant(bid store.Document, email string) bool {
	if email == "" {
		return false
	}
	return bid.Email(store.FieldEmail) == email || bid.Email(store.FieldBuyer) == email
}

// queryFlag はクエリパラメータを真偽値として解釈する。
// true/false 等として解釈できない空でない値は真とみなす。
func queryFlag(v string) bool {
	if v == "" {
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return true
}
