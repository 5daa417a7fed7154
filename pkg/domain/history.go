package domain

import (
	"fmt"
	"sync"
	"time"
)

// MaxHistoryEntries は生成履歴の保持上限です。超過時は最古のエントリを捨てます。
const MaxHistoryEntries = 20

// HistoryEntry は1回の生成結果の記録です。
type HistoryEntry struct {
	URL       string    `json:"url"`
	Prompt    string    `json:"prompt"`
	Timestamp time.Time `json:"timestamp"`
}

// History は新しい順に並ぶ、上限付きの生成履歴です。
type History struct {
	mu      sync.Mutex
	max     int
	entries []HistoryEntry
}

// NewHistory は上限 max の履歴を作ります。max が 0 以下の場合は既定値を使います。
func NewHistory(max int) *History {
	if max <= 0 {
		max = MaxHistoryEntries
	}
	return &History{max: max}
}

// Add はエントリを先頭に追加します。上限を超えた分は末尾（最古）から捨てます。
func (h *History) Add(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append([]HistoryEntry{e}, h.entries...)
	if len(h.entries) > h.max {
		h.entries = h.entries[:h.max]
	}
}

// RemoveAt は指定位置のエントリを削除します。残りの相対順序は維持されます。
func (h *History) RemoveAt(index int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if index < 0 || index >= len(h.entries) {
		return fmt.Errorf("履歴インデックスが範囲外です: %d (件数: %d)", index, len(h.entries))
	}
	h.entries = append(h.entries[:index], h.entries[index+1:]...)
	return nil
}

// Entries は現在の履歴のコピーを新しい順で返します。
func (h *History) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len は現在の履歴件数を返します。
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Restore は永続化済みのエントリ列で履歴を置き換えます。上限超過分は切り捨てます。
func (h *History) Restore(entries []HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(entries) > h.max {
		entries = entries[:h.max]
	}
	h.entries = make([]HistoryEntry, len(entries))
	copy(h.entries, entries)
}
