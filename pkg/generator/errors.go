package generator

import (
	"errors"
	"fmt"
)

// 生成クライアントの失敗種別です。すべての失敗は自動リトライされず、
// ユーザーの明示的な再操作だけが再試行の経路になります。
var (
	// ErrNotConfigured はエンドポイント URL または認証トークンが未設定のときに
	// I/O を行わずに返されます。
	ErrNotConfigured = errors.New("エンドポイント URL と API キーを設定してください")
	// ErrBusy は別の生成が実行中のときに I/O を行わずに返されます。
	// リクエストはキューイングされません。
	ErrBusy = errors.New("画像生成が実行中です。完了までお待ちください")
	// ErrNoImage は応答の取得・解析には成功したものの、どの抽出ルールでも
	// 画像参照が見つからなかったことを示します。通信エラーとは区別されます。
	ErrNoImage = errors.New("応答から画像を抽出できませんでした")
)

// APIError は非 2xx 応答を表します。メッセージは JSON のエラーボディから
// 取り出せた場合はそれを、できなければ生のテキストを使います。
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API Error %d: %s", e.Status, e.Message)
}

// abbreviate はエラーメッセージへ埋め込む長いボディを切り詰めます。
func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
