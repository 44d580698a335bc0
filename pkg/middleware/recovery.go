package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// messageInternalError は予期しないエラー時に返す汎用メッセージ。
const messageInternalError = "internal server error"

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニック発生時にログを出力し、500エラーを返す。
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(c.Request.Context(), "panic recovered",
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"panic", r,
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"message": messageInternalError,
				})
			}
		}()
		c.Next()
	}
}

// ErrorBoundary はハンドラが c.Error で報告した予期しないエラーを500レスポンスに変換するGinミドルウェアを返す。
// ハンドラが既にレスポンスを書き込んでいる場合（401や400など明示的なケース）はログ出力のみ行う。
func ErrorBoundary(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		for _, e := range c.Errors {
			logger.ErrorContext(c.Request.Context(), "request failed",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", e.Err,
			)
		}

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"message": messageInternalError,
		})
	}
}
