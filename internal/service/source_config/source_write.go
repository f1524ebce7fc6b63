// Package source_config internal/service/source_config/source_write.go
package source_config

import (
	"context"
	"fmt"
	"log"

	"VizQuery/internal/core/domain"
	"VizQuery/internal/core/port"

	"github.com/google/uuid"
)

// CreateSource 注册一个新的数据源。ID 为空时自动生成。
func (s *ServiceImpl) CreateSource(ctx context.Context, cfg domain.SourceConfig) (*domain.SourceConfig, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("数据源名称不能为空")
	}
	switch cfg.Kind {
	case domain.SourceKindHTTP, domain.SourceKindFile:
	case "":
		cfg.Kind = domain.SourceKindHTTP
	default:
		return nil, fmt.Errorf("不支持的数据源类型 '%s'", cfg.Kind)
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO source_configs
            (source_id, name, org_id, project_id, kind, location, enabled,
             cache_ttl_seconds, preview_ttl_seconds)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.ID, cfg.Name, cfg.OrgID, cfg.ProjectID, cfg.Kind, cfg.Location,
		cfg.Enabled, cfg.CacheTTLSeconds, cfg.PreviewTTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("注册数据源 '%s' 失败: %w", cfg.Name, err)
	}

	log.Printf("信息: [SourceConfigService] 数据源 '%s' (ID: %s) 已注册。", cfg.Name, cfg.ID)
	return &cfg, nil
}

// UpdateSourceSettings 对数据源做部分更新，仅更新调用方传递了的字段。
func (s *ServiceImpl) UpdateSourceSettings(ctx context.Context, sourceID string, settings domain.SourceOverallSettings) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败 (UpdateSourceSettings): %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			log.Printf("严重错误: UpdateSourceSettings 触发 panic，事务已回滚: %v", p)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
			log.Printf("警告: UpdateSourceSettings 执行失败，事务已回滚: %v", err)
		} else {
			if commitErr := tx.Commit(); commitErr != nil {
				err = fmt.Errorf("提交事务失败 (UpdateSourceSettings): %w", commitErr)
			}
		}
	}()

	// 先确认数据源存在
	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM source_configs WHERE source_id = ?", sourceID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("检查数据源 '%s' 是否存在失败: %w", sourceID, err)
	}
	if exists == 0 {
		return port.ErrSourceNotFound
	}

	apply := func(column string, value any) error {
		query := fmt.Sprintf(
			"UPDATE source_configs SET %s = ?, updated_at = CURRENT_TIMESTAMP WHERE source_id = ?", column)
		if _, errExec := tx.ExecContext(ctx, query, value, sourceID); errExec != nil {
			return fmt.Errorf("更新数据源 '%s' 的 %s 失败: %w", sourceID, column, errExec)
		}
		return nil
	}

	if settings.Name != nil {
		if *settings.Name == "" {
			return fmt.Errorf("数据源名称不能更新为空")
		}
		if err = apply("name", *settings.Name); err != nil {
			return err
		}
	}
	if settings.Enabled != nil {
		if err = apply("enabled", *settings.Enabled); err != nil {
			return err
		}
	}
	if settings.CacheTTLSeconds != nil {
		if *settings.CacheTTLSeconds < 0 {
			return fmt.Errorf("cache_ttl_seconds 不能为负数")
		}
		if err = apply("cache_ttl_seconds", *settings.CacheTTLSeconds); err != nil {
			return err
		}
	}
	if settings.PreviewTTLSeconds != nil {
		if *settings.PreviewTTLSeconds < 0 {
			return fmt.Errorf("preview_ttl_seconds 不能为负数")
		}
		if err = apply("preview_ttl_seconds", *settings.PreviewTTLSeconds); err != nil {
			return err
		}
	}

	// 配置已变更，失效配置缓存并联动清除查询结果缓存
	s.InvalidateCacheForSource(sourceID)
	return nil // 事务提交由 defer 完成
}

// DeleteSource 注销数据源并清理其速率限制配置。
func (s *ServiceImpl) DeleteSource(ctx context.Context, sourceID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM source_configs WHERE source_id = ?", sourceID)
	if err != nil {
		return fmt.Errorf("删除数据源 '%s' 失败: %w", sourceID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return port.ErrSourceNotFound
	}

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM source_ratelimit_settings WHERE source_id = ?", sourceID); err != nil {
		log.Printf("警告: 清理数据源 '%s' 的速率限制配置失败: %v", sourceID, err)
	}

	s.InvalidateCacheForSource(sourceID)
	log.Printf("信息: [SourceConfigService] 数据源 '%s' 已注销。", sourceID)
	return nil
}
