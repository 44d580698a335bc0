package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims はセッショントークンのクレーム（ペイロード）を表す。
type SessionClaims struct {
	jwt.RegisteredClaims
	// Email は認証済みユーザー（入札者または発注者）のメールアドレス。
	Email string `json:"email"`
}

// contextKeyEmail はGinコンテキストに認証済みメールアドレスを格納するキー。
const contextKeyEmail = "email"

// tokenIssuer はセッショントークンの発行者。
const tokenIssuer = "job-marketplace"

// レスポンスメッセージ。認証失敗の原因（未指定・不正・期限切れ）は区別しない。
const (
	messageUnauthorized       = "Unauthorized"
	messageUnauthorizedAccess = "unauthorized access"
)

// ErrInvalidToken はトークンの署名・アルゴリズム・有効期限のいずれかが不正な場合に返される。
var ErrInvalidToken = errors.New("セッショントークンが不正です")

// GenerateSessionToken はメールアドレスからセッショントークンを生成する。
// ttl経過後にトークンは失効する。
func GenerateSessionToken(secret, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("セッショントークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// ParseSessionToken はセッショントークンの署名と有効期限を検証し、クレームを返す。
// HMAC以外の署名アルゴリズムは拒否する。
func ParseSessionToken(secret, tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SessionAuth はCookieに格納されたセッショントークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストに "email" を設定する。
func SessionAuth(secret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(cookieName)
		if err != nil || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": messageUnauthorized})
			return
		}

		claims, err := ParseSessionToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": messageUnauthorized})
			return
		}

		c.Set(contextKeyEmail, claims.Email)
		c.Next()
	}
}

// RequireOwner は認証済みメールアドレスとパスパラメータが一致することを要求するGinミドルウェアを返す。
// SessionAuthの後に適用する。一致しない場合はハンドラ（とストレージアクセス）に到達せずに401を返す。
func RequireOwner(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := GetEmail(c)
		if email == "" || email != c.Param(param) {
			Forbid(c)
			return
		}
		c.Next()
	}
}

// Forbid は認可失敗のレスポンスを返してリクエストを中断する。
func Forbid(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": messageUnauthorizedAccess})
}

// GetEmail はGinコンテキストから認証済みメールアドレスを取得する。
// SessionAuthミドルウェアが事前に適用されている必要がある。
func GetEmail(c *gin.Context) string {
	email, _ := c.Get(contextKeyEmail)
	if e, ok := email.(string); ok {
		return e
	}
	return ""
}
