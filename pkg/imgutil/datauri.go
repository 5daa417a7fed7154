package imgutil

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// IsImageData はバイト列の先頭シグネチャから画像かどうかを判定します。
func IsImageData(data []byte) bool {
	return strings.HasPrefix(http.DetectContentType(data), "image/")
}

// EncodeDataURI は画像バイト列を data:image/...;base64, 形式の URI に変換します。
// MIME タイプは先頭バイトから検出します。
func EncodeDataURI(data []byte) (string, error) {
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("画像ではないデータです (detected: %s)", mimeType)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// DecodeDataURI は data URI をバイト列と MIME タイプに分解します。
func DecodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", fmt.Errorf("data URI ではありません")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("data URI の区切りが見つかりません")
	}
	mimeType, _ := strings.CutSuffix(meta, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("base64 デコードに失敗しました: %w", err)
	}
	return data, mimeType, nil
}
