// Package store は拡張スコープのキーに紐づく永続化ストアを抽象化します。
// ホスト側が提供するキー/バリューストアの代替であり、設定・履歴・キャッシュは
// まとめて1キーの JSON 文字列として保存されます。
package store

import "context"

// Store は1キー分の文字列値を読み書きするストアです。
type Store interface {
	// Load はキーに対応する値を返します。キーが存在しない場合は ok=false を返し、
	// これはエラーではありません。
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	// Save はキーに値を上書き保存します。
	Save(ctx context.Context, key, value string) error
}
