package marketplace

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/job-marketplace/pkg/middleware"
)

// issueTokenRequest はセッション発行リクエストのJSON構造。
type issueTokenRequest struct {
	// Email はセッションに結び付けるメールアドレス。
	Email string `json:"email" binding:"required"`
}

// handleIssueToken はセッショントークンを発行してCookieに設定するハンドラを返す。
func (s *Server) handleIssueToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req issueTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "email is required"})
			return
		}

		token, err := middleware.GenerateSessionToken(s.tokenSecret, req.Email, s.sessionTTL)
		if err != nil {
			_ = c.Error(err)
			return
		}

		s.cookie.SetSessionCookie(c.Writer, token)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// handleLogout はセッションCookieをクリアするハンドラを返す。
// 発行済みのトークンはサーバー側で失効させず、有効期限まで有効なまま残る。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.cookie.ClearSessionCookie(c.Writer)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
