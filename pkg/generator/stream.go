package generator

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/shouni/chat-image-kit/pkg/domain"
)

const (
	// ssePrefix はストリーミング応答のフレーム接頭辞です。
	ssePrefix = "data:"
	// sseDone は終端フレームのペイロードです。
	sseDone = "[DONE]"

	// maxStreamBytes はストリーム全体の受信上限です。base64 画像が
	// そのまま流れてくるケースがあるため、テキスト前提の上限より広くとります。
	maxStreamBytes = 32 << 20
	// maxLineBytes は1フレームの上限です。巨大な base64 ペイロードが
	// 1行で届いても取りこぼさないようにします。
	maxLineBytes = 16 << 20
)

// readStream はストリーミング応答ボディを読み切り、蓄積したコンテンツを返します。
//
// 行単位でバッファリングしながら data: フレームを拾い、JSON として解析できた
// フレームの choices[0].delta.content を順に連結します。チャンク境界で行が
// 分断されても、完全な1行になるまで解析しません。壊れたフレームは致命傷に
// せず読み飛ばします。
//
// フレームが1つも拾えなかった場合の救済として、
//  1. 生バッファ全体をもう一度行分割して data: フレームを探す
//     （フラッシュせず一括で送ってくる上流への対応）、
//  2. 生バッファを単一の JSON オブジェクトとして解析する、
//  3. 生バッファのトリム結果をそのままコンテンツとして扱う、
//
// の順に試します。
func readStream(r io.Reader) (string, error) {
	var raw bytes.Buffer
	sc := bufio.NewScanner(io.TeeReader(io.LimitReader(r, maxStreamBytes), &raw))
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	var acc strings.Builder
	for sc.Scan() {
		appendFrame(&acc, sc.Text())
	}
	if err := sc.Err(); err != nil {
		// ここで中断せず、読めた分と生バッファで続行する
		slog.Warn("ストリーム読み取りが途中で終了しました", "error", err)
	}
	if acc.Len() > 0 {
		return acc.String(), nil
	}

	// 救済パス1: 生バッファの再スキャン
	for _, line := range strings.Split(raw.String(), "\n") {
		appendFrame(&acc, line)
	}
	if acc.Len() > 0 {
		return acc.String(), nil
	}

	// 救済パス2: 単一 JSON オブジェクトとしての解釈。
	// エラーオブジェクトならそのメッセージを、コンテンツがあればそれを使う。
	trimmed := bytes.TrimSpace(raw.Bytes())
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed) {
		return extractContent(trimmed)
	}

	// 救済パス3: 生バッファをそのままコンテンツ扱いする
	return string(trimmed), nil
}

// appendFrame は1行を data: フレームとして解釈し、デルタを acc へ追記します。
// フレームでない行、終端フレーム、壊れた JSON は無視します。
func appendFrame(acc *strings.Builder, line string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ssePrefix) {
		return
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, ssePrefix))
	if payload == "" || payload == sseDone {
		return
	}

	var chunk domain.StreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return
	}
	if len(chunk.Choices) > 0 {
		acc.WriteString(chunk.Choices[0].Delta.Content)
	}
}
