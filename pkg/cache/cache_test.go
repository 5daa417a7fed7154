package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Bound(t *testing.T) {
	t.Run("51件目の登録で最も古い挿入が追い出されること", func(t *testing.T) {
		c := New(50)
		for i := 0; i < 51; i++ {
			c.Put(fmt.Sprintf("p%d", i), fmt.Sprintf("img%d", i))
		}

		assert.Equal(t, 50, c.Len())
		_, ok := c.Get("p0")
		assert.False(t, ok, "最古の p0 は追い出される")
		v, ok := c.Get("p50")
		require.True(t, ok)
		assert.Equal(t, "img50", v)
	})

	t.Run("既存キーの再登録は値だけ更新し追い出しを起こさないこと", func(t *testing.T) {
		c := New(2)
		c.Put("a", "1")
		c.Put("b", "2")
		c.Put("a", "updated")

		assert.Equal(t, 2, c.Len())
		v, ok := c.Get("a")
		require.True(t, ok)
		assert.Equal(t, "updated", v)
		_, ok = c.Get("b")
		assert.True(t, ok)
	})
}

func TestCache_EntriesRoundTrip(t *testing.T) {
	t.Run("Entries と Restore で挿入順が往復すること", func(t *testing.T) {
		c := New(10)
		c.Put("a", "1")
		c.Put("b", "2")
		c.Put("c", "3")

		restored := New(10)
		restored.Restore(c.Entries())

		assert.Equal(t, c.Entries(), restored.Entries())

		// 復元後も追い出し順序は挿入順のまま
		small := New(3)
		small.Restore(c.Entries())
		small.Put("d", "4")
		_, ok := small.Get("a")
		assert.False(t, ok, "復元後の最古 a から追い出される")
	})
}
