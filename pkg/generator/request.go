package generator

import (
	"github.com/shouni/chat-image-kit/pkg/domain"
	"github.com/shouni/chat-image-kit/pkg/settings"
)

// buildRequest はプロンプトと参照画像からリクエストボディを組み立てます。
// プロンプトプレフィックスが設定されていればカンマ区切りで前置し、
// テキストパーツ→画像パーツの順で単一 user ターンに詰めます。
// Model と Size は未設定ならキーごと省略されます。
func buildRequest(s settings.GenerationSettings, prompt string, refs []string) domain.ChatRequest {
	full := prompt
	if s.PromptPrefix != "" {
		full = s.PromptPrefix + ", " + prompt
	}

	// テキストパーツは空でも必ず先頭に置く。画像パーツのみのリクエストにはしない。
	parts := []domain.ContentPart{{Type: domain.PartTypeText, Text: full}}
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		parts = append(parts, domain.ContentPart{
			Type:     domain.PartTypeImageURL,
			ImageURL: &domain.ImageURL{URL: ref},
		})
	}

	return domain.ChatRequest{
		Model:  s.Model,
		Size:   s.Size,
		Stream: s.Stream,
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: domain.MessageContent{Parts: parts}},
		},
	}
}
