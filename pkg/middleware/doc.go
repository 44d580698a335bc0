// Package middleware はジョブマーケットプレイスAPIで使用するGinミドルウェアを提供する。
//
// Cookieに格納されたセッショントークン（JWT）の発行と検証、
// パスパラメータによる所有者チェック、リクエストログ、
// エラーバウンダリとパニックリカバリ、資格情報付きCORSを含む。
package middleware
