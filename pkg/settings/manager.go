package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shouni/chat-image-kit/pkg/cache"
	"github.com/shouni/chat-image-kit/pkg/domain"
	"github.com/shouni/chat-image-kit/pkg/store"
)

// DefaultKey は永続化に使う拡張スコープのキーです。
const DefaultKey = "chat_image_kit"

// DefaultSaveDebounce はホスト側のデバウンス保存に合わせた保存遅延です。
const DefaultSaveDebounce = 500 * time.Millisecond

// persistedState は単一キー配下に保存される JSON の全体形です。
type persistedState struct {
	Settings    GenerationSettings    `json:"settings"`
	History     []domain.HistoryEntry `json:"history"`
	PromptCache []cache.Entry         `json:"prompt_cache"`
}

// Manager は設定・履歴・プロンプトキャッシュの保持とデバウンス保存を担います。
type Manager struct {
	mu       sync.Mutex
	st       store.Store
	key      string
	debounce time.Duration

	s       GenerationSettings
	history *domain.History
	cache   *cache.Cache
	timer   *time.Timer
}

// Option は Manager の構築オプションです。
type Option func(*Manager)

// WithKey は永続化キーを変更します。
func WithKey(key string) Option {
	return func(m *Manager) { m.key = key }
}

// WithSaveDebounce は保存のデバウンス時間を変更します。テスト向けです。
func WithSaveDebounce(d time.Duration) Option {
	return func(m *Manager) { m.debounce = d }
}

// NewManager は依存関係を注入して Manager を初期化します。
func NewManager(st store.Store, opts ...Option) (*Manager, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}

	m := &Manager{
		st:       st,
		key:      DefaultKey,
		debounce: DefaultSaveDebounce,
		s:        Defaults(),
		history:  domain.NewHistory(domain.MaxHistoryEntries),
		cache:    cache.New(cache.MaxEntries),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Load はストアから状態を復元します。キーが未保存なら既定値のままにします。
func (m *Manager) Load(ctx context.Context) error {
	raw, ok, err := m.st.Load(ctx, m.key)
	if err != nil {
		return fmt.Errorf("設定のロードに失敗しました: %w", err)
	}
	if !ok {
		return nil
	}

	var ps persistedState
	if err := json.Unmarshal([]byte(raw), &ps); err != nil {
		return fmt.Errorf("設定のデコードに失敗しました: %w", err)
	}

	m.mu.Lock()
	m.s = ps.Settings
	m.mu.Unlock()
	m.history.Restore(ps.History)
	m.cache.Restore(ps.PromptCache)
	return nil
}

// Current は設定の値スナップショットを返します。
// 返り値の参照画像スライスは呼び出し時点のコピーであり、以後の編集とは独立です。
func (m *Manager) Current() GenerationSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.clone()
}

// Update は設定をその場で変更し、デバウンス保存を予約します。
func (m *Manager) Update(fn func(*GenerationSettings)) {
	m.mu.Lock()
	fn(&m.s)
	m.mu.Unlock()
	m.SaveSoon()
}

// Reset は設定を既定値へ戻します。履歴とキャッシュも空になります。
func (m *Manager) Reset() {
	m.mu.Lock()
	m.s = Defaults()
	m.mu.Unlock()
	m.history.Restore(nil)
	m.cache.Restore(nil)
	m.SaveSoon()
}

// History は生成履歴を返します。変更後は SaveSoon を呼んでください。
func (m *Manager) History() *domain.History {
	return m.history
}

// Cache はプロンプト→画像キャッシュを返します。変更後は SaveSoon を呼んでください。
func (m *Manager) Cache() *cache.Cache {
	return m.cache
}

// SaveSoon はデバウンス付きの保存を予約します。既存の予約は延長されます。
func (m *Manager) SaveSoon() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.debounce, func() {
		if err := m.save(context.Background()); err != nil {
			slog.Warn("設定の保存に失敗しました", "error", err)
		}
	})
}

// Flush は保留中のデバウンスを取り消して即時保存します。
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()
	return m.save(ctx)
}

func (m *Manager) save(ctx context.Context) error {
	m.mu.Lock()
	ps := persistedState{
		Settings:    m.s.clone(),
		History:     m.history.Entries(),
		PromptCache: m.cache.Entries(),
	}
	m.mu.Unlock()

	blob, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("設定のエンコードに失敗しました: %w", err)
	}
	return m.st.Save(ctx, m.key, string(blob))
}
