package generator

import (
	"encoding/json"
	"fmt"
)

// contentExtractor は応答 JSON からコンテンツを取り出す名前付きルールです。
// 上流の応答形式には方言があるため（chat 形式、b64_json、images 配列、
// images API 風の data 配列）、宣言的なルール列を順に試します。
type contentExtractor struct {
	name string
	fn   func(obj map[string]any) (string, bool)
}

var contentExtractors = []contentExtractor{
	{"choices.message.content", extractChatContent},
	{"b64_json", extractB64JSON},
	{"images", extractImagesField},
	{"data", extractDataField},
}

// extractContent は応答ボディを単一の JSON オブジェクトとして解析し、
// コンテンツ文字列を取り出します。エラーオブジェクトが返っていた場合は
// そのメッセージをエラーとして返します。
func extractContent(body []byte) (string, error) {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", fmt.Errorf("応答 JSON の解析に失敗しました: %w", err)
	}

	if msg, ok := errorMessage(obj); ok {
		return "", fmt.Errorf("上流がエラーを返しました: %s", msg)
	}

	for _, ex := range contentExtractors {
		if v, ok := ex.fn(obj); ok && v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("応答にコンテンツが見つかりませんでした")
}

// errorMessage は {"error": {"message": ...}} または {"error": "..."} の形から
// エラーメッセージを取り出します。
func errorMessage(obj map[string]any) (string, bool) {
	switch e := obj["error"].(type) {
	case map[string]any:
		if msg, ok := e["message"].(string); ok && msg != "" {
			return msg, true
		}
	case string:
		if e != "" {
			return e, true
		}
	}
	return "", false
}

func extractChatContent(obj map[string]any) (string, bool) {
	choices, ok := obj["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	message, ok := choice["message"].(map[string]any)
	if !ok {
		return "", false
	}
	content, ok := message["content"].(string)
	return content, ok
}

func extractB64JSON(obj map[string]any) (string, bool) {
	v, ok := obj["b64_json"].(string)
	return v, ok
}

func extractImagesField(obj map[string]any) (string, bool) {
	images, ok := obj["images"].([]any)
	if !ok || len(images) == 0 {
		return "", false
	}
	return imageValue(images[0])
}

func extractDataField(obj map[string]any) (string, bool) {
	data, ok := obj["data"].([]any)
	if !ok || len(data) == 0 {
		return "", false
	}
	return imageValue(data[0])
}

// imageValue は画像配列の要素を文字列化します。要素は素の文字列のほか、
// {url} / {b64_json} 形式のオブジェクトも許容します。
func imageValue(v any) (string, bool) {
	switch e := v.(type) {
	case string:
		return e, e != ""
	case map[string]any:
		if url, ok := e["url"].(string); ok && url != "" {
			return url, true
		}
		if b64, ok := e["b64_json"].(string); ok && b64 != "" {
			return b64, true
		}
	}
	return "", false
}

// apiErrorFromBody は非 2xx 応答のボディからメッセージを掘り出して
// APIError を作ります。JSON でなければ生テキストを切り詰めて使います。
func apiErrorFromBody(status int, body []byte) *APIError {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		if msg, ok := errorMessage(obj); ok {
			return &APIError{Status: status, Message: msg}
		}
		// エラーボディに限り、トップレベルの message キーも許容する
		if msg, ok := obj["message"].(string); ok && msg != "" {
			return &APIError{Status: status, Message: msg}
		}
	}
	msg := abbreviate(string(body), 300)
	if msg == "" {
		msg = "詳細不明のエラーです"
	}
	return &APIError{Status: status, Message: msg}
}
