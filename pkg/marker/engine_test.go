package marker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/chat-image-kit/pkg/generator"
	"github.com/shouni/chat-image-kit/pkg/settings"
	"github.com/shouni/chat-image-kit/pkg/store"
)

// 注意: mockGenerator は mocks_test.go で定義されています。

func newTestEngine(t *testing.T, gen Generator) (*Engine, *settings.Manager) {
	t.Helper()
	mgr, err := settings.NewManager(store.NewMemory())
	require.NoError(t, err)
	e, err := NewEngine(gen, mgr)
	require.NoError(t, err)
	return e, mgr
}

func TestEngine_Scan(t *testing.T) {
	t.Run("マーカーなしのテキストはそのまま1断片になること", func(t *testing.T) {
		e, _ := newTestEngine(t, &mockGenerator{})
		frags := e.Scan("m1", "ただのメッセージです")
		require.Len(t, frags, 1)
		assert.Nil(t, frags[0].Occ)
	})

	t.Run("複数マーカーを非貪欲に分解すること", func(t *testing.T) {
		e, _ := newTestEngine(t, &mockGenerator{})
		text := "前 image###a cat### 中 image###a dog### 後"
		frags := e.Scan("m1", text)

		require.Len(t, frags, 5)
		assert.Equal(t, "前 ", frags[0].Text)
		assert.Equal(t, "a cat", frags[1].Occ.Key)
		assert.Equal(t, " 中 ", frags[2].Text)
		assert.Equal(t, "a dog", frags[3].Occ.Key)
		assert.Equal(t, " 後", frags[4].Text)
		assert.Equal(t, StateUntriggered, frags[1].Occ.State)
	})

	t.Run("複数行の本文を受け入れること", func(t *testing.T) {
		e, _ := newTestEngine(t, &mockGenerator{})
		frags := e.Scan("m1", "image###a cat\non a roof###")
		require.Len(t, frags, 1)
		assert.Equal(t, "a cat on a roof", frags[0].Occ.Key)
	})

	t.Run("再スキャンしても同じ出現セルが再利用されること", func(t *testing.T) {
		e, _ := newTestEngine(t, &mockGenerator{})
		text := "image###a cat###"

		first := e.Scan("m1", text)
		second := e.Scan("m1", text)

		require.Len(t, second, 1)
		assert.Same(t, first[0].Occ, second[0].Occ, "状態セルは重複生成されない")
	})

	t.Run("キャッシュヒットならネットワークなしで即座に生成済みになること", func(t *testing.T) {
		gen := &mockGenerator{}
		e, mgr := newTestEngine(t, gen)
		mgr.Cache().Put("a cat", "http://h/cached.png")

		frags := e.Scan("m1", "image###a cat###")

		require.Len(t, frags, 1)
		assert.Equal(t, StateGenerated, frags[0].Occ.State)
		assert.Equal(t, "http://h/cached.png", frags[0].Occ.Image)
		assert.Equal(t, 0, gen.calls, "生成クライアントは呼ばれない")
	})

	t.Run("マスタースイッチが無効なら置換しないこと", func(t *testing.T) {
		e, mgr := newTestEngine(t, &mockGenerator{})
		mgr.Update(func(s *settings.GenerationSettings) { s.EnableInline = false })

		frags := e.Scan("m1", "image###a cat###")
		require.Len(t, frags, 1)
		assert.Nil(t, frags[0].Occ)
		assert.Equal(t, "image###a cat###", frags[0].Text)
	})
}

func TestEngine_Trigger(t *testing.T) {
	t.Run("成功で generated へ遷移し、キャッシュと履歴に書き込まれること", func(t *testing.T) {
		gen := &mockGenerator{image: "http://h/cat.png"}
		e, mgr := newTestEngine(t, gen)
		frags := e.Scan("m1", "image###a cat###")
		o := frags[0].Occ

		require.NoError(t, e.Trigger(context.Background(), "m1", "a cat"))

		assert.Equal(t, StateGenerated, o.State)
		assert.Equal(t, "http://h/cat.png", o.Image)
		assert.Equal(t, "a cat", gen.lastPrompt, "正規化済みプロンプトで呼ばれる")

		cached, ok := mgr.Cache().Get("a cat")
		require.True(t, ok)
		assert.Equal(t, "http://h/cat.png", cached)

		entries := mgr.History().Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, "a cat", entries[0].Prompt)
		assert.Equal(t, "http://h/cat.png", entries[0].URL)
	})

	t.Run("失敗で failed へ遷移し、再トリガーで回復できること", func(t *testing.T) {
		gen := &mockGenerator{err: errors.New("API Error 500: boom")}
		e, _ := newTestEngine(t, gen)
		frags := e.Scan("m1", "image###a cat###")
		o := frags[0].Occ

		require.Error(t, e.Trigger(context.Background(), "m1", "a cat"))
		assert.Equal(t, StateFailed, o.State)
		assert.Equal(t, "API Error 500: boom", o.Err)

		// ユーザーの再クリックだけが回復経路
		gen.err = nil
		gen.image = "http://h/retry.png"
		require.NoError(t, e.Trigger(context.Background(), "m1", "a cat"))
		assert.Equal(t, StateGenerated, o.State)
		assert.Equal(t, "http://h/retry.png", o.Image)
	})

	t.Run("ビジーで弾かれたトリガーは状態を変えない no-op になること", func(t *testing.T) {
		gen := &mockGenerator{err: generator.ErrBusy}
		e, _ := newTestEngine(t, gen)
		frags := e.Scan("m1", "image###a cat###")
		o := frags[0].Occ

		err := e.Trigger(context.Background(), "m1", "a cat")
		assert.ErrorIs(t, err, generator.ErrBusy)
		assert.Equal(t, StateUntriggered, o.State, "failed にはならない")
	})

	t.Run("generated は終端であり再トリガーは no-op になること", func(t *testing.T) {
		gen := &mockGenerator{image: "http://h/cat.png"}
		e, _ := newTestEngine(t, gen)
		e.Scan("m1", "image###a cat###")

		require.NoError(t, e.Trigger(context.Background(), "m1", "a cat"))
		require.NoError(t, e.Trigger(context.Background(), "m1", "a cat"))
		assert.Equal(t, 1, gen.calls)
	})

	t.Run("未登録のマーカーはエラーになること", func(t *testing.T) {
		e, _ := newTestEngine(t, &mockGenerator{})
		assert.Error(t, e.Trigger(context.Background(), "m1", "unknown"))
	})
}

// エンドツーエンド: マーカー検出 → 生成クライアント → 抽出 → キャッシュ/履歴
func TestEngine_EndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":"![cat](http://h/cat.png)"}}]}`)
	}))
	defer server.Close()

	mgr, err := settings.NewManager(store.NewMemory())
	require.NoError(t, err)
	mgr.Update(func(s *settings.GenerationSettings) {
		s.BaseURL = server.URL
		s.APIKey = "k"
		s.Stream = false
	})

	client, err := generator.NewClient(mgr, nil)
	require.NoError(t, err)
	e, err := NewEngine(client, mgr)
	require.NoError(t, err)

	frags := e.Scan("msg-1", "image###a cat###")
	require.Len(t, frags, 1)
	require.NoError(t, e.Trigger(context.Background(), "msg-1", "a cat"))

	o := frags[0].Occ
	assert.Equal(t, StateGenerated, o.State)
	assert.Equal(t, "http://h/cat.png", o.Image)

	cached, ok := mgr.Cache().Get("a cat")
	require.True(t, ok)
	assert.Equal(t, "http://h/cat.png", cached)
	require.Equal(t, 1, mgr.History().Len())

	// リロード相当: 新しいエンジンでもキャッシュから即 generated になる
	e2, err := NewEngine(client, mgr)
	require.NoError(t, err)
	frags2 := e2.Scan("msg-1", "image###a cat###")
	assert.Equal(t, StateGenerated, frags2[0].Occ.State)
	assert.Equal(t, "http://h/cat.png", frags2[0].Occ.Image)
}
