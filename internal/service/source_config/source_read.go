// Package source_config internal/service/source_config/source_read.go
package source_config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"VizQuery/internal/core/domain"
	"VizQuery/internal/core/port"
)

// GetSource 返回指定数据源的配置，优先命中 LRU 缓存。
// 数据源不存在时返回 port.ErrSourceNotFound。
func (s *ServiceImpl) GetSource(ctx context.Context, sourceID string) (*domain.SourceConfig, error) {
	if sourceID == "" {
		return nil, port.ErrSourceNotFound
	}
	if cached, ok := s.cache.Get(sourceID); ok {
		return cached, nil
	}

	cfg, err := s.loadSourceFromDB(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, port.ErrSourceNotFound
	}

	s.cache.Add(sourceID, cfg)
	return cfg, nil
}

// ListSources 返回全部已注册的数据源，按ID排序。列表查询不走缓存。
func (s *ServiceImpl) ListSources(ctx context.Context) ([]*domain.SourceConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT source_id, name, org_id, project_id, kind, location, enabled,
               cache_ttl_seconds, preview_ttl_seconds
        FROM source_configs ORDER BY source_id`)
	if err != nil {
		return nil, fmt.Errorf("查询数据源列表失败: %w", err)
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			log.Printf("警告: 关闭数据源列表结果集失败: %v", errClose)
		}
	}()

	var out []*domain.SourceConfig
	for rows.Next() {
		cfg := &domain.SourceConfig{}
		if errScan := rows.Scan(
			&cfg.ID, &cfg.Name, &cfg.OrgID, &cfg.ProjectID, &cfg.Kind, &cfg.Location,
			&cfg.Enabled, &cfg.CacheTTLSeconds, &cfg.PreviewTTLSeconds,
		); errScan != nil {
			log.Printf("警告: [SourceConfigService] 扫描数据源配置失败: %v。已跳过此行。", errScan)
			continue
		}
		out = append(out, cfg)
	}
	if errIter := rows.Err(); errIter != nil {
		return nil, fmt.Errorf("遍历数据源列表失败: %w", errIter)
	}
	return out, nil
}

// loadSourceFromDB 是实际从数据库加载单个数据源配置的内部方法。
// 未找到时返回 (nil, nil)。
func (s *ServiceImpl) loadSourceFromDB(ctx context.Context, sourceID string) (*domain.SourceConfig, error) {
	cfg := &domain.SourceConfig{}
	err := s.db.QueryRowContext(ctx, `
        SELECT source_id, name, org_id, project_id, kind, location, enabled,
               cache_ttl_seconds, preview_ttl_seconds
        FROM source_configs WHERE source_id = ?`, sourceID).Scan(
		&cfg.ID, &cfg.Name, &cfg.OrgID, &cfg.ProjectID, &cfg.Kind, &cfg.Location,
		&cfg.Enabled, &cfg.CacheTTLSeconds, &cfg.PreviewTTLSeconds,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // 非错误，仅未注册
	}
	if err != nil {
		return nil, fmt.Errorf("获取数据源 '%s' 配置失败: %w", sourceID, err)
	}
	return cfg, nil
}
