// Package marker はチャットメッセージ中の image###プロンプト### 記法を検出し、
// マーカーごとの状態（未実行/実行中/生成済み/失敗）を管理します。
// ホスト UI の DOM には依存せず、「新しい内容が届いた」通知に相当する Scan と、
// クリックに相当する Trigger だけを公開します。
package marker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/shouni/chat-image-kit/pkg/domain"
	"github.com/shouni/chat-image-kit/pkg/generator"
	"github.com/shouni/chat-image-kit/pkg/settings"
)

// markerRE はマーカー記法にマッチします。本文は複数行にまたがってよく、
// 1メッセージに複数のマーカーがあっても跨いで食い尽くさないよう非貪欲です。
var markerRE = regexp.MustCompile(`(?s)image###(.*?)###`)

// State はマーカー1出現分の状態です。
type State int

const (
	// StateUntriggered はクリック可能なトリガー表示の状態です。
	StateUntriggered State = iota
	// StatePending は生成実行中（スピナー表示）の状態です。
	StatePending
	// StateGenerated は画像表示の状態です。この描画サイクルでは終端です。
	StateGenerated
	// StateFailed は直前のエラーを添えた再試行表示の状態です。
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUntriggered:
		return "untriggered"
	case StatePending:
		return "pending"
	case StateGenerated:
		return "generated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Occurrence はメッセージ内のマーカー1出現分の状態セルです。
// 同じメッセージを何度再スキャンしても同じセルが再利用されます。
type Occurrence struct {
	MessageID string
	// Key は正規化済みプロンプトです。キャッシュの参照・登録と生成リクエストの
	// 両方にこの値を使います。
	Key string
	// Body はマーカー本文の生テキストです。
	Body  string
	State State
	// Image は StateGenerated のときの画像参照です。
	Image string
	// Err は StateFailed のときのエラーメッセージです。
	Err string
}

// Fragment はメッセージテキストの分解結果の1要素です。
// Occ が nil ならただのテキスト、非 nil ならマーカー出現です。
type Fragment struct {
	Text string
	Occ  *Occurrence
}

// Generator は生成クライアントの呼び出し面です。
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Engine はインラインマーカーの走査と状態遷移を担います。
type Engine struct {
	mu  sync.Mutex
	gen Generator
	mgr *settings.Manager
	occ map[string]*Occurrence
	now func() time.Time
}

// NewEngine は依存関係を注入して Engine を初期化します。
func NewEngine(gen Generator, mgr *settings.Manager) (*Engine, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if mgr == nil {
		return nil, fmt.Errorf("settings manager is required")
	}
	return &Engine{
		gen: gen,
		mgr: mgr,
		occ: make(map[string]*Occurrence),
		now: time.Now,
	}, nil
}

func occKey(messageID, key string) string {
	return messageID + "\x00" + key
}

// Scan はメッセージテキストをマーカーで分解してフラグメント列を返します。
//
// 何度呼んでも安全です。既存の出現はそのまま再利用されるため、再スキャンで
// 状態が巻き戻ったり UI が重複したりすることはありません。正規化後の本文に
// 対応するキャッシュエントリがあれば、ネットワークを介さず即座に生成済み
// 状態になります。マスタースイッチが無効の間は全体を1つのテキスト断片として
// 返し、新しい置換を行いません（既存の出現には触れません）。
func (e *Engine) Scan(messageID, text string) []Fragment {
	if !e.mgr.Current().EnableInline {
		return []Fragment{{Text: text}}
	}

	matches := markerRE.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []Fragment{{Text: text}}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Fragment
	last := 0
	for _, m := range matches {
		if m[0] > last {
			out = append(out, Fragment{Text: text[last:m[0]]})
		}

		body := text[m[2]:m[3]]
		key := Normalize(body)
		id := occKey(messageID, key)

		o, ok := e.occ[id]
		if !ok {
			o = &Occurrence{MessageID: messageID, Key: key, Body: body, State: StateUntriggered}
			e.occ[id] = o
		}
		// 未実行の出現はキャッシュを確認し、ヒットすれば即座に生成済みへ。
		// リロード後の再描画はこの経路で untriggered/pending を飛ばします。
		if o.State == StateUntriggered {
			if img, hit := e.mgr.Cache().Get(key); hit {
				o.State = StateGenerated
				o.Image = img
			}
		}

		out = append(out, Fragment{Occ: o})
		last = m[1]
	}
	if last < len(text) {
		out = append(out, Fragment{Text: text[last:]})
	}
	return out
}

// Trigger はマーカー出現のクリックに相当します。
//
// untriggered / failed の出現を pending に遷移させ、正規化済みプロンプトで
// 生成クライアントを呼びます。成功すれば generated（終端）となり、キャッシュと
// 履歴に結果が書き込まれます。失敗すれば failed となり、ユーザーの再クリック
// だけが回復経路です。別の生成が実行中だった場合は状態を変えず警告して
// 終わります（キューには積まれません）。
func (e *Engine) Trigger(ctx context.Context, messageID, key string) error {
	e.mu.Lock()
	o, ok := e.occ[occKey(messageID, key)]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("マーカーが見つかりません: %q", key)
	}

	switch o.State {
	case StateGenerated:
		e.mu.Unlock()
		return nil
	case StatePending:
		e.mu.Unlock()
		slog.Warn("このマーカーはすでに生成中です", "key", key)
		return nil
	}

	prev := o.State
	o.State = StatePending
	o.Err = ""
	e.mu.Unlock()

	image, err := e.gen.Generate(ctx, o.Key)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		if errors.Is(err, generator.ErrBusy) {
			// グローバルのビジーフラグに弾かれたクリックは no-op 扱い。
			// 出現の状態は元に戻し、失敗としては記録しない。
			o.State = prev
			slog.Warn("別の生成が実行中のためスキップしました", "key", key)
			return err
		}
		o.State = StateFailed
		o.Err = err.Error()
		return err
	}

	o.State = StateGenerated
	o.Image = image

	e.mgr.Cache().Put(o.Key, image)
	e.mgr.History().Add(domain.HistoryEntry{
		URL:       image,
		Prompt:    o.Key,
		Timestamp: e.now(),
	})
	e.mgr.SaveSoon()
	return nil
}

// Occurrence は登録済みの出現を返します。ホスト側のハンドラ再バインド用です。
func (e *Engine) Occurrence(messageID, key string) (*Occurrence, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.occ[occKey(messageID, key)]
	return o, ok
}
