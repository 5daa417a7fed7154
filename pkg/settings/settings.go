// Package settings は生成クライアントとインラインマーカーエンジンが共有する
// 永続設定を管理します。設定・履歴・プロンプトキャッシュは1つの JSON として
// 単一の拡張キー配下に保存されます。
package settings

import "strings"

// MaxReferenceImages は参照画像リストの上限です。
const MaxReferenceImages = 3

// GenerationSettings は永続化される設定レコードです。
// UI の入力イベントごとにフィールド単位で更新され、デバウンス保存されます。
type GenerationSettings struct {
	BaseURL      string `json:"base_url"`
	APIKey       string `json:"api_key"`
	Model        string `json:"model,omitempty"`
	Size         string `json:"size,omitempty"`
	Stream       bool   `json:"stream"`
	PromptPrefix string `json:"prompt_prefix,omitempty"`

	// ReferenceImages は base64 データ URI の順序付きリストです（最大3件）。
	ReferenceImages []string `json:"reference_images"`
	// FixReferenceImages が false の場合、参照画像を消費した生成の成功時に
	// リストはクリアされます。
	FixReferenceImages bool `json:"fix_reference_images"`

	// EnableInline はインラインマーカー置換のマスタースイッチです。
	EnableInline bool `json:"enable_inline"`
}

// Defaults は初回ロード時の既定設定を返します。
func Defaults() GenerationSettings {
	return GenerationSettings{
		Stream:       true,
		EnableInline: true,
	}
}

// IsConfigured はエンドポイント URL と認証トークンが揃っているかを返します。
func (s GenerationSettings) IsConfigured() bool {
	return strings.TrimSpace(s.BaseURL) != "" && strings.TrimSpace(s.APIKey) != ""
}

// clone は参照画像スライスを含む値コピーを返します。
// 実行中のリクエストが後からの編集の影響を受けないようにするためのものです。
func (s GenerationSettings) clone() GenerationSettings {
	out := s
	if s.ReferenceImages != nil {
		out.ReferenceImages = make([]string, len(s.ReferenceImages))
		copy(out.ReferenceImages, s.ReferenceImages)
	}
	return out
}
