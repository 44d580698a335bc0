package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestCORS はCORSミドルウェアを検証する。
func TestCORS(t *testing.T) {
	t.Parallel()

	allowed := []string{"http://localhost:5173", "https://jobs.example.com"}

	tests := []struct {
		name           string
		method         string
		origin         string
		wantStatus     int
		wantAllow      string
		wantCredential string
		wantHandler    bool
	}{
		{
			name:           "許可されたオリジンのGETに資格情報付きCORSヘッダーが設定されること",
			method:         http.MethodGet,
			origin:         "http://localhost:5173",
			wantStatus:     http.StatusOK,
			wantAllow:      "http://localhost:5173",
			wantCredential: "true",
			wantHandler:    true,
		},
		{
			name:           "許可リストの2番目のオリジンでも設定されること",
			method:         http.MethodPatch,
			origin:         "https://jobs.example.com",
			wantStatus:     http.StatusOK,
			wantAllow:      "https://jobs.example.com",
			wantCredential: "true",
			wantHandler:    true,
		},
		{
			name:        "許可されていないオリジンにはCORSヘッダーが設定されないこと",
			method:      http.MethodGet,
			origin:      "https://evil.example",
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
		{
			name:        "Originヘッダーが無い場合はCORSヘッダーが設定されないこと",
			method:      http.MethodGet,
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
		{
			name:           "プリフライトは204で中断されること",
			method:         http.MethodOptions,
			origin:         "http://localhost:5173",
			wantStatus:     http.StatusNoContent,
			wantAllow:      "http://localhost:5173",
			wantCredential: "true",
		},
		{
			name:       "許可されていないオリジンのプリフライトも204で中断されること",
			method:     http.MethodOptions,
			origin:     "https://evil.example",
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handlerCalled := false
			router := gin.New()
			router.Use(CORS(allowed))
			router.Handle(tt.method, "/test", func(c *gin.Context) {
				handlerCalled = true
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ステータスコード = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
			if got := w.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCredential {
				t.Errorf("Access-Control-Allow-Credentials = %q, want %q", got, tt.wantCredential)
			}
			if handlerCalled != tt.wantHandler {
				t.Errorf("ハンドラー呼び出し = %v, want %v", handlerCalled, tt.wantHandler)
			}
		})
	}

	t.Run("許可されたオリジンにPATCHを含むメソッド一覧が返ること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(CORS(allowed))
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, PATCH, DELETE, OPTIONS" {
			t.Errorf("Access-Control-Allow-Methods = %q", got)
		}
		if got := w.Header().Get("Vary"); got != "Origin" {
			t.Errorf("Vary = %q, want Origin", got)
		}
	})
}
