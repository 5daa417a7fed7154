package marker

import (
	"html"
	"regexp"
	"strings"
)

// MaxKeyLength は正規化済みプロンプトの上限長（ルーン数）です。
// これを超える2つのプロンプトが同じ接頭辞を共有すると、同一のキャッシュ
// エントリに畳まれます。これは意図した制限であり、不具合ではありません。
const MaxKeyLength = 100

var (
	lineBreakRE  = regexp.MustCompile(`(?i)<br\s*/?>`)
	whitespaceRE = regexp.MustCompile(`\s+`)
)

// Normalize はマーカー本文をキャッシュキーへ正規化します。
// <br> 系の改行マークアップを改行に直し、HTML エンティティを復号し、
// 連続する空白を1つのスペースに潰してトリムした後、上限長へ切り詰めます。
// キャッシュの参照と登録の両方でこのキーを使います。
func Normalize(body string) string {
	s := lineBreakRE.ReplaceAllString(body, "\n")
	s = html.UnescapeString(s)
	s = whitespaceRE.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	runes := []rune(s)
	if len(runes) > MaxKeyLength {
		s = string(runes[:MaxKeyLength])
	}
	return s
}
