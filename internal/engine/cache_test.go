// file: internal/engine/cache_test.go

package engine

import (
	"testing"
	"time"

	"VizQuery/internal/core/domain"

	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, size int) (*ResultCache, *time.Time) {
	t.Helper()
	c, err := NewResultCache(size)
	require.NoError(t, err)
	now := time.Now()
	c.now = func() time.Time { return now }
	return c, &now
}

func TestResultCache_HitAndExpiry(t *testing.T) {
	c, now := newTestCache(t, 8)
	rows := domain.Relation{{"a": float64(1)}}

	c.Put("src", "SELECT * FROM t", rows, []string{"a"}, 300*time.Second)

	got, cols, ok := c.Get("src", "SELECT * FROM t")
	require.True(t, ok)
	require.Equal(t, rows, got)
	require.Equal(t, []string{"a"}, cols)

	// TTL 过后惰性失效
	*now = now.Add(301 * time.Second)
	_, _, ok = c.Get("src", "SELECT * FROM t")
	require.False(t, ok, "过期条目必须按未命中处理")
	require.Equal(t, 0, c.Len(), "过期条目在读取时被剔除")
}

func TestResultCache_KeyIncludesQueryText(t *testing.T) {
	c, _ := newTestCache(t, 8)
	c.Put("src", "SELECT a FROM t", domain.Relation{{"a": float64(1)}}, []string{"a"}, time.Minute)

	_, _, ok := c.Get("src", "SELECT b FROM t")
	require.False(t, ok)
	_, _, ok = c.Get("other", "SELECT a FROM t")
	require.False(t, ok)
}

func TestResultCache_InvalidateBySource(t *testing.T) {
	c, _ := newTestCache(t, 8)
	c.Put("s1", "q1", domain.Relation{}, nil, time.Minute)
	c.Put("s1", "q2", domain.Relation{}, nil, time.Minute)
	c.Put("s2", "q1", domain.Relation{}, nil, time.Minute)

	c.Invalidate("s1")
	_, _, ok := c.Get("s1", "q1")
	require.False(t, ok)
	_, _, ok = c.Get("s1", "q2")
	require.False(t, ok)
	_, _, ok = c.Get("s2", "q1")
	require.True(t, ok, "其他数据源的条目不受影响")

	c.Invalidate("")
	require.Equal(t, 0, c.Len(), "空 sourceID 清空全部")
}

func TestResultCache_LRUEviction(t *testing.T) {
	c, _ := newTestCache(t, 2)
	c.Put("s", "q1", domain.Relation{}, nil, time.Minute)
	c.Put("s", "q2", domain.Relation{}, nil, time.Minute)
	c.Put("s", "q3", domain.Relation{}, nil, time.Minute)

	require.Equal(t, 2, c.Len())
	_, _, ok := c.Get("s", "q1")
	require.False(t, ok, "容量超限时最久未使用的条目被挤出")
}

func TestResultCache_NonPositiveTTLNotCached(t *testing.T) {
	c, _ := newTestCache(t, 8)
	c.Put("s", "q", domain.Relation{}, nil, 0)
	require.Equal(t, 0, c.Len())
}
