package domain

import (
	"encoding/json"
	"fmt"
)

// メッセージロールの定義です。本キットが送信するのは user ロールのみですが、
// 応答側の互換性のために assistant も定義しておきます。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// コンテンツパーツ種別の定義です。
const (
	PartTypeText     = "text"
	PartTypeImageURL = "image_url"
)

// ImageURL は image_url パーツの中身を保持します。
type ImageURL struct {
	URL string `json:"url"`
}

// ContentPart はマルチモーダルなメッセージ内容の1要素です。
// Type が text のときは Text を、image_url のときは ImageURL を使用します。
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// MessageContent はメッセージ内容を順序付きパーツ列として保持します。
// ワイヤ形式は「素の文字列」と「パーツ配列」の両方を許容するため、
// シリアライズ時にどちらの形にするかは MarshalJSON が決定します。
type MessageContent struct {
	Parts []ContentPart
}

// TextContent はテキスト1パーツのみの内容を作ります。
func TextContent(text string) MessageContent {
	return MessageContent{Parts: []ContentPart{{Type: PartTypeText, Text: text}}}
}

// MarshalJSON はテキスト1パーツだけの内容を素の文字列に畳み込みます。
// 画像パーツを含む場合のみパーツ配列として出力します。API 互換性のため、
// 畳み込める場合は常に畳み込んだ形を優先します。
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if len(c.Parts) == 0 {
		return json.Marshal("")
	}
	if len(c.Parts) == 1 && c.Parts[0].Type == PartTypeText {
		return json.Marshal(c.Parts[0].Text)
	}
	return json.Marshal(c.Parts)
}

// UnmarshalJSON は素の文字列とパーツ配列のどちらも受け入れます。
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Parts = []ContentPart{{Type: PartTypeText, Text: s}}
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("メッセージ内容のデコードに失敗しました: %w", err)
	}
	c.Parts = parts
	return nil
}

// ChatMessage はチャット補完リクエスト内の1ターンです。
type ChatMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// ChatRequest は /v1/chat/completions へ送信するリクエストボディです。
// Model と Size は未設定ならキーごと省略します（null や空文字は送らない）。
type ChatRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Size     string        `json:"size,omitempty"`
}

// StreamChunk はストリーミング応答の data: フレーム1個分の形です。
type StreamChunk struct {
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice はストリームチャンク内の選択肢です。
type StreamChoice struct {
	Delta StreamDelta `json:"delta"`
}

// StreamDelta は増分コンテンツです。
type StreamDelta struct {
	Content string `json:"content"`
}
