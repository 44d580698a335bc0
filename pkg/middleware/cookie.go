package middleware

import (
	"net/http"
	"time"
)

// DefaultSessionCookieName はセッショントークンを格納するCookie名。
const DefaultSessionCookieName = "token"

// CookieOptions はセッションCookieの属性を表す。
// 発行とクリアの両方で同じ属性を使う必要があるため、環境ごとの条件分岐はここに集約する。
type CookieOptions struct {
	// Name はCookie名。
	Name string
	// Secure はHTTPS通信時のみCookieを送信するかどうか。
	Secure bool
	// SameSite はクロスサイト送信の制御方法。
	SameSite http.SameSite
	// MaxAge はCookieの有効期間。
	MaxAge time.Duration
}

// NewCookieOptions は実行環境に応じたCookie属性を返す。
// 本番環境では暗号化通信でのみクロスオリジン送信を許可し（SameSite=None; Secure）、
// 開発環境ではSameSite=Strictかつ非Secureとする。
func NewCookieOptions(isProduction bool, maxAge time.Duration) CookieOptions {
	opts := CookieOptions{
		Name:     DefaultSessionCookieName,
		Secure:   false,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	}
	if isProduction {
		opts.Secure = true
		opts.SameSite = http.SameSiteNoneMode
	}
	return opts
}

// SetSessionCookie はセッショントークンをHTTP-only Cookieとして書き込む。
func (o CookieOptions) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     o.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(o.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	})
}

// ClearSessionCookie はセッションCookieを即時失効させる。
// クライアント側のコピーを消すだけで、トークン自体は有効期限まで有効なまま残る。
func (o CookieOptions) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     o.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	})
}
