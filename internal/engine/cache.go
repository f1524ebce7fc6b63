// Package engine file: internal/engine/cache.go
package engine

import (
	"strconv"
	"time"

	"VizQuery/internal/core/domain"
	"VizQuery/internal/vizobserve"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheKey 以 (数据源ID, 最终查询文本) 为键。
// 同一基础查询配上不同过滤描述符会编译出不同文本，天然互不串扰。
// 预览结果用 Preview 标记单独成命名空间，任何查询文本都撞不进预览条目。
type cacheKey struct {
	SourceID string
	Preview  bool
	Query    string
}

type cacheEntry struct {
	rows       domain.Relation
	cols       []string
	insertedAt time.Time
	ttl        time.Duration
}

// ResultCache 是查询结果的有界 LRU 缓存，逐条目 TTL，读取时惰性判断过期。
// 不做后台清扫：过期条目要么在读取时被剔除，要么被 LRU 挤出。
type ResultCache struct {
	lru *lru.Cache[cacheKey, cacheEntry]

	// now 可注入，便于测试中模拟时间流逝
	now func() time.Time
}

// NewResultCache 创建容量为 size 的结果缓存。
func NewResultCache(size int) (*ResultCache, error) {
	c, err := lru.New[cacheKey, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &ResultCache{lru: c, now: time.Now}, nil
}

// Get 返回未过期的缓存结果。过期条目在此处被剔除并按未命中处理。
func (rc *ResultCache) Get(sourceID, query string) (domain.Relation, []string, bool) {
	return rc.get(cacheKey{SourceID: sourceID, Query: query})
}

// GetPreview 读取预览命名空间下的缓存结果。
func (rc *ResultCache) GetPreview(sourceID string, limit int) (domain.Relation, []string, bool) {
	return rc.get(cacheKey{SourceID: sourceID, Preview: true, Query: strconv.Itoa(limit)})
}

func (rc *ResultCache) get(key cacheKey) (domain.Relation, []string, bool) {
	entry, ok := rc.lru.Get(key)
	if !ok {
		vizobserve.CacheMiss.Inc()
		return nil, nil, false
	}
	if rc.now().Sub(entry.insertedAt) >= entry.ttl {
		rc.lru.Remove(key)
		vizobserve.CacheMiss.Inc()
		return nil, nil, false
	}
	vizobserve.CacheHit.Inc()
	return entry.rows, entry.cols, true
}

// Put 写入结果。ttl 不为正时不缓存。
func (rc *ResultCache) Put(sourceID, query string, rows domain.Relation, cols []string, ttl time.Duration) {
	rc.put(cacheKey{SourceID: sourceID, Query: query}, rows, cols, ttl)
}

// PutPreview 把预览结果写入独立命名空间。
func (rc *ResultCache) PutPreview(sourceID string, limit int, rows domain.Relation, cols []string, ttl time.Duration) {
	rc.put(cacheKey{SourceID: sourceID, Preview: true, Query: strconv.Itoa(limit)}, rows, cols, ttl)
}

func (rc *ResultCache) put(key cacheKey, rows domain.Relation, cols []string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	rc.lru.Add(key, cacheEntry{
		rows:       rows,
		cols:       cols,
		insertedAt: rc.now(),
		ttl:        ttl,
	})
}

// Invalidate 清除指定数据源的全部条目；sourceID 为空时清空整个缓存。
func (rc *ResultCache) Invalidate(sourceID string) {
	if sourceID == "" {
		rc.lru.Purge()
		return
	}
	for _, key := range rc.lru.Keys() {
		if key.SourceID == sourceID {
			rc.lru.Remove(key)
		}
	}
}

// Len 返回当前条目数（含尚未被惰性剔除的过期条目）。
func (rc *ResultCache) Len() int {
	return rc.lru.Len()
}
