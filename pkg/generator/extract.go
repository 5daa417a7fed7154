package generator

import (
	"regexp"
	"strings"
)

// rawBase64MinLen は接頭辞なし base64 とみなす最小長です。
// 短い英数字列を画像と誤認しないための足切りです。
const rawBase64MinLen = 100

var (
	// ルール1: Markdown 画像構文 ![alt](url)
	markdownImageRE = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)\)`)
	// ルール2: 既知の画像拡張子で終わる素の http(s) URL
	bareImageURLRE = regexp.MustCompile(`(?i)https?://[^\s"'<>)\]]+\.(?:png|jpe?g|webp|gif|bmp)`)
	// ルール3: 接頭辞つきの data URI
	dataURIRE = regexp.MustCompile(`data:image/[A-Za-z0-9.+-]+;base64,[A-Za-z0-9+/=]+`)
	// ルール4: base64 アルファベットのみで構成された文字列
	base64AlphabetRE = regexp.MustCompile(`^[A-Za-z0-9+/=]+$`)
)

// ExtractImage はコンテンツ文字列から画像参照を1つ取り出します。
// ルールは優先順に適用され、最初に一致したものが勝ちます。
//
//  1. Markdown 画像構文の URL
//  2. 画像拡張子で終わる素の URL
//  3. data:image/...;base64, 形式の URI
//  4. 接頭辞なしの base64 ペイロード（空白除去後 100 文字超かつ全体が
//     base64 アルファベットのとき、PNG の data URI を合成する）
//  5. トリム後のコンテンツ自体が http(s) URL で始まる場合のフォールバック
//
// ルール4はヒューリスティックであり、画像以外の base64 データを画像として
// 誤検出し得ます。厳密な検証（デコードしてマジックバイトを確認する等）は
// 意図的に行っていません。
func ExtractImage(content string) (string, bool) {
	if m := markdownImageRE.FindStringSubmatch(content); m != nil {
		return m[1], true
	}
	if m := bareImageURLRE.FindString(content); m != "" {
		return m, true
	}
	if m := dataURIRE.FindString(content); m != "" {
		return m, true
	}

	stripped := stripWhitespace(content)
	if len(stripped) > rawBase64MinLen && base64AlphabetRE.MatchString(stripped) {
		return "data:image/png;base64," + stripped, true
	}

	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return strings.Trim(trimmed, "\"'()<>`"), true
	}
	return "", false
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}
