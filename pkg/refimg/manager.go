// Package refimg は生成リクエストに添付する参照画像の上限付きリストを管理します。
package refimg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shouni/chat-image-kit/pkg/settings"
)

// ErrCapacity は参照画像が上限（3件）に達しているときの追加失敗です。
// 呼び出し側はユーザーへ警告を表示してください。
var ErrCapacity = errors.New("参照画像は3枚までです")

// ErrInvalidImage は base64 データ URI でない入力の追加失敗です。
var ErrInvalidImage = errors.New("参照画像は data:image/ 形式の base64 データ URI である必要があります")

// Manager は settings.Manager 上の参照画像リストを操作します。
// すべての変更は設定のデバウンス保存を通じて永続化されます。
type Manager struct {
	mgr *settings.Manager
}

// NewManager は依存関係を注入して Manager を初期化します。
func NewManager(mgr *settings.Manager) (*Manager, error) {
	if mgr == nil {
		return nil, fmt.Errorf("settings manager is required")
	}
	return &Manager{mgr: mgr}, nil
}

// Add は参照画像を末尾に追加します。上限到達時は何も変更せず ErrCapacity を返します。
func (m *Manager) Add(image string) error {
	if !strings.HasPrefix(image, "data:image/") {
		return ErrInvalidImage
	}

	var full bool
	m.mgr.Update(func(s *settings.GenerationSettings) {
		if len(s.ReferenceImages) >= settings.MaxReferenceImages {
			full = true
			return
		}
		s.ReferenceImages = append(s.ReferenceImages, image)
	})
	if full {
		return ErrCapacity
	}
	return nil
}

// RemoveAt は指定位置の参照画像を削除します。残りの相対順序は維持されます。
func (m *Manager) RemoveAt(index int) error {
	var rangeErr error
	m.mgr.Update(func(s *settings.GenerationSettings) {
		if index < 0 || index >= len(s.ReferenceImages) {
			rangeErr = fmt.Errorf("参照画像インデックスが範囲外です: %d (件数: %d)", index, len(s.ReferenceImages))
			return
		}
		s.ReferenceImages = append(s.ReferenceImages[:index], s.ReferenceImages[index+1:]...)
	})
	return rangeErr
}

// Clear は参照画像リストを空にします。
func (m *Manager) Clear() {
	m.mgr.Update(func(s *settings.GenerationSettings) {
		s.ReferenceImages = nil
	})
}

// Snapshot は呼び出し時点のリストのコピーを返します。
// 実行中の生成リクエストはこのコピーを使うため、途中の編集に影響されません。
func (m *Manager) Snapshot() []string {
	return m.mgr.Current().ReferenceImages
}

// Len は現在の参照画像数を返します。
func (m *Manager) Len() int {
	return len(m.mgr.Current().ReferenceImages)
}
