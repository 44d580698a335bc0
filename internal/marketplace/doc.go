// Package marketplace はジョブマーケットプレイスAPIのHTTPサーバーを提供する。
//
// ジョブの投稿・検索・更新・削除と、ジョブへの入札およびステータス管理を担当する。
// セッションはCookieに格納したJWTで表し、所有者のみがアクセスできる一覧は
// パスパラメータのメールアドレスと認証済みのメールアドレスの一致を要求する。
// ハンドラは状態を持たず、すべてのデータは store.Store に委ねる。
package marketplace
