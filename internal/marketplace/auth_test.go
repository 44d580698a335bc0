package marketplace

import (
	"net/http"
	"testing"

	"github.com/nao1215/job-marketplace/pkg/middleware"
)

// findCookie はレスポンスから指定名のCookieを取り出す。
func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// TestHandleIssueToken はセッション発行ハンドラのテスト。
func TestHandleIssueToken(t *testing.T) {
	t.Parallel()

	t.Run("HttpOnlyのセッションCookieを設定する", func(t *testing.T) {
		t.Parallel()
		s, _ := setupTestServer(t)

		w := doRequest(t, s, http.MethodPost, "/jwt", "", map[string]string{"email": "a@x.com"})

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}
		if result := parseJSON(t, w); result["success"] != true {
			t.Errorf("success: got %v, want true", result["success"])
		}

		cookie := findCookie(w.Result().Cookies(), middleware.DefaultSessionCookieName)
		if cookie == nil {
			t.Fatal("セッションCookieが設定されていません")
		}
		if !cookie.HttpOnly {
			t.Error("CookieがHttpOnlyではありません")
		}
		if cookie.Secure {
			t.Error("開発環境でCookieがSecureになっています")
		}
		if cookie.SameSite != http.SameSiteStrictMode {
			t.Errorf("SameSite: got %v, want Strict", cookie.SameSite)
		}

		claims, err := middleware.ParseSessionToken(testSecret, cookie.Value)
		if err != nil {
			t.Fatalf("発行したトークンを検証できません: %v", err)
		}
		if claims.Email != "a@x.com" {
			t.Errorf("email: got %q, want a@x.com", claims.Email)
		}
	})

	t.Run("メールアドレスが未指定の場合はBadRequest", func(t *testing.T) {
		t.Parallel()
		s, _ := setupTestServer(t)

		w := doRequest(t, s, http.MethodPost, "/jwt", "", map[string]string{})

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}
		if findCookie(w.Result().Cookies(), middleware.DefaultSessionCookieName) != nil {
			t.Error("失敗時にCookieが設定されています")
		}
	})
}

// TestHandleLogout はログアウトでCookieが失効することを検証する。
func TestHandleLogout(t *testing.T) {
	t.Parallel()

	s, _ := setupTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/logout", "a@x.com", nil)

	if w.Code != http.StatusOK {
		t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	cookie := findCookie(w.Result().Cookies(), middleware.DefaultSessionCookieName)
	if cookie == nil {
		t.Fatal("Cookieのクリアが設定されていません")
	}
	if cookie.MaxAge >= 0 {
		t.Errorf("MaxAge: got %d, want negative", cookie.MaxAge)
	}
}

// TestOwnerOnlyRoutes は所有者のみがアクセスできる一覧の認可を検証する。
func TestOwnerOnlyRoutes(t *testing.T) {
	t.Parallel()

	paths := []string{"/jobs/a@x.com", "/bids/a@x.com"}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			t.Parallel()
			s, _ := setupTestServer(t)

			if w := doRequest(t, s, http.MethodGet, path, "", nil); w.Code != http.StatusUnauthorized {
				t.Errorf("Cookieなし: got %d, want %d", w.Code, http.StatusUnauthorized)
			} else if msg := parseJSON(t, w)["message"]; msg != "Unauthorized" {
				t.Errorf("Cookieなしのmessage: got %v, want Unauthorized", msg)
			}

			w := doRequest(t, s, http.MethodGet, path, "b@x.com", nil)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("別ユーザー: got %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if msg := parseJSON(t, w)["message"]; msg != "unauthorized access" {
				t.Errorf("別ユーザーのmessage: got %v, want unauthorized access", msg)
			}

			if w := doRequest(t, s, http.MethodGet, path, "a@x.com", nil); w.Code != http.StatusOK {
				t.Errorf("本人: got %d, want %d", w.Code, http.StatusOK)
			}
		})
	}
}
