// Package source_config internal/service/source_config/source_config_service.go
package source_config

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"VizQuery/internal/core/domain"
	"VizQuery/internal/core/port"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// ServiceImpl 是 SourceConfigService 的一个实现。
// 它负责管理数据源注册表与各类速率限制配置，并提供缓存机制以提高性能。
type ServiceImpl struct {
	db    *sql.DB
	cache *lru.LRU[string, *domain.SourceConfig]

	// onInvalidate 在配置缓存失效时被调用，用于联动清除查询结果缓存。
	// 参数为数据源ID，空串表示全部。
	onInvalidate func(sourceID string)
}

// 静态断言，确保 ServiceImpl 实现了 port.SourceConfigService 接口。
var _ port.SourceConfigService = (*ServiceImpl)(nil)

// New 创建一个新的 ServiceImpl 实例。
// registryDB: 注册表数据库连接实例。
// maxCacheEntries: 缓存中允许的最大条目数。
// defaultCacheTTL: 缓存条目的默认过期时间。
func New(registryDB *sql.DB, maxCacheEntries int, defaultCacheTTL time.Duration) (*ServiceImpl, error) {
	if registryDB == nil {
		return nil, fmt.Errorf("source_config.ServiceImpl 初始化失败: registryDB 实例不能为 nil")
	}
	if maxCacheEntries <= 0 {
		maxCacheEntries = 1000 // 默认值
	}
	if defaultCacheTTL <= 0 {
		defaultCacheTTL = 5 * time.Minute // 默认值
	}

	// 初始化一个带有过期时间的 LRU 缓存
	lruCacheInstance := lru.NewLRU[string, *domain.SourceConfig](maxCacheEntries, nil, defaultCacheTTL)

	return &ServiceImpl{
		db:    registryDB,
		cache: lruCacheInstance,
	}, nil
}

// SetInvalidationHook 注册配置变更时的联动回调（通常指向查询结果缓存的清除）。
func (s *ServiceImpl) SetInvalidationHook(hook func(sourceID string)) {
	s.onInvalidate = hook
}

// InvalidateCacheForSource 手动使指定数据源的缓存失效。
func (s *ServiceImpl) InvalidateCacheForSource(sourceID string) {
	if sourceID == "" {
		return
	}
	s.cache.Remove(sourceID)
	log.Printf("信息: [SourceConfigService] 数据源 '%s' 的配置LRU缓存已失效。", sourceID)
	if s.onInvalidate != nil {
		s.onInvalidate(sourceID)
	}
}

// InvalidateAllCaches 清除所有缓存。
func (s *ServiceImpl) InvalidateAllCaches() {
	s.cache.Purge()
	log.Printf("信息: [SourceConfigService] 所有配置LRU缓存已清除。")
	if s.onInvalidate != nil {
		s.onInvalidate("")
	}
}
