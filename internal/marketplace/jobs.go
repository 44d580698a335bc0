package marketplace

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/job-marketplace/internal/store"
)

// bindDocument はリクエストボディをJSONオブジェクトとして読み込む。
// フィールドの形は検証せず、そのまま保存する。
func bindDocument(c *gin.Context) (store.Document, bool) {
	var doc store.Document
	if err := c.ShouldBindJSON(&doc); err != nil || doc == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "request body must be a JSON object"})
		return nil, false
	}
	return doc, true
}

// handleCreateJob はジョブ投稿を処理するハンドラを返す。
func (s *Server) handleCreateJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, ok := bindDocument(c)
		if !ok {
			return
		}

		id, err := s.store.InsertJob(c.Request.Context(), doc)
		if err != nil {
			_ = c.Error(err)
			return
		}

		c.JSON(http.StatusOK, insertResponse(id))
	}
}

// handleListJobs は全ジョブの一覧を返すハンドラを返す。
func (s *Server) handleListJobs() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobs, err := s.store.ListJobs(c.Request.Context(), store.JobQuery{})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, jobs)
	}
}

// handleListJobsByOwner は発注者が投稿したジョブの一覧を返すハンドラを返す。
// RequireOwner により、パスのメールアドレスは認証済みのメールアドレスと一致している。
func (s *Server) handleListJobsByOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobs, err := s.store.ListJobs(c.Request.Context(), store.JobQuery{BuyerEmail: c.Param("email")})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, jobs)
	}
}

// handleSearchJobs はタイトル検索・カテゴリ絞り込み・締切日の並び替えを行うハンドラを返す。
// sort=asc で昇順、それ以外の値が指定された場合は降順に並べる。
func (s *Server) handleSearchJobs() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := store.JobQuery{
			Category: c.Query("filter"),
			Search:   c.Query("search"),
		}
		switch c.Query("sort") {
		case "":
			q.Sort = store.SortNone
		case "asc":
			q.Sort = store.SortAsc
		default:
			q.Sort = store.SortDesc
		}

		jobs, err := s.store.ListJobs(c.Request.Context(), q)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, jobs)
	}
}

// handleGetJob はジョブ詳細を返すハンドラを返す。
// 存在しない場合はエラーではなく null を返す。
func (s *Server) handleGetJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !validID(id) {
			c.JSON(http.StatusOK, nil)
			return
		}

		job, err := s.store.GetJob(c.Request.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusOK, nil)
			return
		}
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

// handleUpdateJob はジョブのフィールドを上書きするハンドラを返す。存在しない場合は作成する。
func (s *Server) handleUpdateJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !validID(id) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid job id"})
			return
		}

		set, ok := bindDocument(c)
		if !ok {
			return
		}

		res, err := s.store.UpsertJob(c.Request.Context(), id, set)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, updateResponse(res))
	}
}

// handleDeleteJob はジョブを削除するハンドラを返す。
func (s *Server) handleDeleteJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !validID(id) {
			c.JSON(http.StatusOK, deleteResponse(0))
			return
		}

		n, err := s.store.DeleteJob(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, deleteResponse(n))
	}
}
