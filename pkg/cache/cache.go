// Package cache は正規化済みプロンプトをキーとする生成画像キャッシュを提供します。
// リロード後も API を呼び直さずに結果を復元できるよう、挿入順を保ったまま
// JSON へ往復できる構造になっています。
package cache

import "sync"

// MaxEntries はキャッシュの保持上限です。超過時は最も古く挿入されたものから捨てます。
const MaxEntries = 50

// Entry は永続化用の1エントリです。スライス順がそのまま挿入順になります。
type Entry struct {
	Key   string `json:"key"`
	Image string `json:"image"`
}

// Cache は挿入順つきの上限付きプロンプト→画像マップです。
type Cache struct {
	mu    sync.Mutex
	max   int
	order []string
	items map[string]string
}

// New は上限 max のキャッシュを作ります。max が 0 以下の場合は既定値を使います。
func New(max int) *Cache {
	if max <= 0 {
		max = MaxEntries
	}
	return &Cache{max: max, items: make(map[string]string)}
}

// Get はキーに対応する画像参照を返します。
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.items[key]
	return v, ok
}

// Put はキーと画像参照を登録します。既存キーは値のみ更新し、挿入順は変えません。
// 新規キーで上限を超える場合は最古のエントリを1つ追い出します。
func (c *Cache) Put(key, image string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; ok {
		c.items[key] = image
		return
	}

	if len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
	c.order = append(c.order, key)
	c.items[key] = image
}

// Len は現在のエントリ数を返します。
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Entries は挿入順のエントリ列を返します。永続化用です。
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, Entry{Key: k, Image: c.items[k]})
	}
	return out
}

// Restore は永続化済みのエントリ列でキャッシュを置き換えます。
// 復元後も挿入順が保たれるため、追い出し順序は永続化をまたいで一貫します。
func (c *Cache) Restore(entries []Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order = c.order[:0]
	c.items = make(map[string]string, len(entries))
	for _, e := range entries {
		if _, ok := c.items[e.Key]; ok {
			continue
		}
		if len(c.order) >= c.max {
			break
		}
		c.order = append(c.order, e.Key)
		c.items[e.Key] = e.Image
	}
}
