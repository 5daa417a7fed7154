// Package generator はリモート画像生成エンドポイントとの通信を担います。
// チャット補完形式のリクエストを組み立てて送信し、ストリーミング/非ストリーミング
// の応答を解析して、コンテンツから画像参照を1つ抽出します。
package generator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/shouni/chat-image-kit/pkg/settings"
)

// DefaultTimeout は呼び出し側が期限を指定しなかった場合のリクエスト上限です。
// ハングした上流がビジーフラグを握り続けないようにするための保険です。
const DefaultTimeout = 120 * time.Second

// maxErrorBodyBytes は非 2xx 応答のボディ読み取り上限です。
const maxErrorBodyBytes = 64 * 1024

// SettingsSource は生成時点の設定スナップショットを提供します。
type SettingsSource interface {
	Current() settings.GenerationSettings
}

// ReferenceConsumer は参照画像リストの読み取りとクリアを抽象化します。
// Snapshot は呼び出し時点のコピーを返す必要があります。
type ReferenceConsumer interface {
	Snapshot() []string
	Clear()
}

// Client は生成クライアントです。プロセス全体で同時に1件の生成しか許しません。
type Client struct {
	src     SettingsSource
	refs    ReferenceConsumer
	http    *resty.Client
	gate    gate
	timeout time.Duration
}

// ClientOption は Client の構築オプションです。
type ClientOption func(*Client)

// WithTimeout は既定のリクエストタイムアウトを変更します。
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient は HTTP クライアントを差し替えます。テスト向けです。
func WithHTTPClient(hc *resty.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient は依存関係を注入して Client を初期化します。
// refs は nil を許容します（参照画像なし動作）。
func NewClient(src SettingsSource, refs ReferenceConsumer, opts ...ClientOption) (*Client, error) {
	if src == nil {
		return nil, fmt.Errorf("settings source is required")
	}

	c := &Client{
		src:     src,
		refs:    refs,
		http:    resty.New(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// InFlight は生成が実行中かどうかを返します。
func (c *Client) InFlight() bool {
	return c.gate.inFlight()
}

// Generate は設定済みの参照画像を添付してプロンプトから画像を生成します。
// 戻り値は抽出済みの画像参照（URL または data URI）です。
//
// 事前条件を満たさない場合は I/O を行わずに失敗します:
// 設定不足なら ErrNotConfigured、別の生成が実行中なら ErrBusy。
// 失敗はどの経路でも自動リトライされません。
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var refs []string
	if c.refs != nil {
		refs = c.refs.Snapshot()
	}
	return c.generate(ctx, prompt, refs, true)
}

// GenerateWith は明示的に渡された参照画像で生成します。
// 設定済みリストは消費されず、成功してもクリアされません。
func (c *Client) GenerateWith(ctx context.Context, prompt string, refs []string) (string, error) {
	snap := make([]string, len(refs))
	copy(snap, refs)
	return c.generate(ctx, prompt, snap, false)
}

func (c *Client) generate(ctx context.Context, prompt string, refs []string, clearConsumed bool) (string, error) {
	// 設定と参照画像はこの時点のスナップショットで固定する。
	// 応答待ちの間に編集されても実行中のリクエストには影響しない。
	s := c.src.Current()
	if !s.IsConfigured() {
		return "", ErrNotConfigured
	}

	if !c.gate.tryAcquire() {
		return "", ErrBusy
	}
	defer c.gate.release()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reqID := uuid.NewString()
	slog.Info("画像生成を開始します",
		"request_id", reqID, "stream", s.Stream, "ref_count", len(refs))

	body := buildRequest(s, prompt, refs)
	url := strings.TrimRight(s.BaseURL, "/") + "/v1/chat/completions"

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+s.APIKey).
		SetBody(body).
		SetDoNotParseResponse(true).
		Post(url)
	if err != nil {
		return "", fmt.Errorf("エンドポイントへの接続に失敗しました: %w", err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(raw, maxErrorBodyBytes))
		slog.Warn("上流が異常ステータスを返しました",
			"request_id", reqID, "status", resp.StatusCode())
		return "", apiErrorFromBody(resp.StatusCode(), errBody)
	}

	var content string
	if s.Stream {
		content, err = readStream(raw)
	} else {
		var data []byte
		data, err = io.ReadAll(io.LimitReader(raw, maxStreamBytes))
		if err == nil {
			content, err = extractContent(data)
		}
	}
	if err != nil {
		return "", err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrNoImage
	}
	image, ok := ExtractImage(content)
	if !ok {
		slog.Warn("応答に画像が含まれていませんでした",
			"request_id", reqID, "content", abbreviate(content, 120))
		return "", ErrNoImage
	}

	// 参照画像を消費した生成の成功時のみ、固定設定が無効ならリストを空にする。
	// 失敗時はクリアしない。
	if clearConsumed && len(refs) > 0 && !s.FixReferenceImages && c.refs != nil {
		c.refs.Clear()
	}

	slog.Info("画像生成が完了しました", "request_id", reqID)
	return image, nil
}

// TestConnection はエンドポイントの /health へ GET し、2xx なら到達可能とみなします。
// 手動の接続診断専用です。
func (c *Client) TestConnection(ctx context.Context) error {
	s := c.src.Current()
	if strings.TrimSpace(s.BaseURL) == "" {
		return ErrNotConfigured
	}

	resp, err := c.http.R().
		SetContext(ctx).
		Get(strings.TrimRight(s.BaseURL, "/") + "/health")
	if err != nil {
		return fmt.Errorf("エンドポイントに到達できません: %w", err)
	}
	if !resp.IsSuccess() {
		return &APIError{Status: resp.StatusCode(), Message: "ヘルスチェックに失敗しました"}
	}
	return nil
}
