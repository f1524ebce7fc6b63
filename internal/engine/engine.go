// Package engine 是查询管线的编排层：
// 过滤描述符编译 → 结果缓存查找 → 数据源取数 → 解析 → 执行 → 回填缓存。
// 所有步骤的失败都以 error 形式向上返回，由传输层统一转换为
// {success:false, error, data:[], columns:[], rowCount:0} 的响应形状。
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"VizQuery/internal/core/domain"
	"VizQuery/internal/core/port"
	"VizQuery/internal/engine/exec"
	"VizQuery/internal/engine/filtersql"
	"VizQuery/internal/engine/sqlparse"
	"VizQuery/internal/vizobserve"
)

const (
	// DefaultCacheTTL 常规查询结果的默认缓存时长
	DefaultCacheTTL = 300 * time.Second
	// DefaultPreviewTTL 预览结果的默认缓存时长（预览数据时效性要求更高）
	DefaultPreviewTTL = 60 * time.Second
	// DefaultPreviewLimit 预览返回的最大行数
	DefaultPreviewLimit = 50
	// DefaultCacheSize 结果缓存的默认条目上限
	DefaultCacheSize = 1024
)

// Options 控制 QueryService 的缓存行为，零值字段取默认值。
type Options struct {
	CacheSize  int
	CacheTTL   time.Duration
	PreviewTTL time.Duration
}

// QueryService 将数据源配置、取数适配器与执行管线装配在一起。
// 适配器按数据源类型（"http" / "file"）注册。
type QueryService struct {
	configs  port.SourceConfigService
	adapters map[string]port.RelationSource
	cache    *ResultCache

	cacheTTL   time.Duration
	previewTTL time.Duration
}

// NewQueryService 创建查询服务。
// configs 不能为 nil；adapters 至少注册一种数据源类型。
func NewQueryService(configs port.SourceConfigService, adapters map[string]port.RelationSource, opts Options) (*QueryService, error) {
	if configs == nil {
		return nil, fmt.Errorf("QueryService 初始化失败: configs 不能为 nil")
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("QueryService 初始化失败: 至少需要注册一个数据源适配器")
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.PreviewTTL <= 0 {
		opts.PreviewTTL = DefaultPreviewTTL
	}

	cache, err := NewResultCache(opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("QueryService 初始化失败: %w", err)
	}
	return &QueryService{
		configs:    configs,
		adapters:   adapters,
		cache:      cache,
		cacheTTL:   opts.CacheTTL,
		previewTTL: opts.PreviewTTL,
	}, nil
}

// ApplyFilters 把过滤描述符编译进查询文本，返回最终可执行的查询。
// 不做取数，仅做文本变换；不合法的描述符被丢弃。
func (s *QueryService) ApplyFilters(query string, filters []domain.FilterDescriptor) string {
	return filtersql.Compile(query, filters)
}

// Execute 执行一次完整查询。filters 先被编译进查询文本，
// 缓存键取 (sourceID, 最终查询文本)。
func (s *QueryService) Execute(ctx context.Context, sourceID, query string, filters []domain.FilterDescriptor) (*domain.QueryResult, error) {
	start := time.Now()
	effective := s.ApplyFilters(query, filters)

	if rows, cols, ok := s.cache.Get(sourceID, effective); ok {
		return &domain.QueryResult{
			Data:            rows,
			Columns:         cols,
			RowCount:        len(rows),
			ExecutionTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
			Success:         true,
			Cached:          true,
		}, nil
	}

	// 解析先于取数：查询文本不合法时不浪费一次远端请求
	plan, err := sqlparse.Parse(effective)
	if err != nil {
		return nil, err
	}

	cfg, rel, err := s.fetch(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	rows, cols, err := exec.Execute(plan, rel)
	if err != nil {
		return nil, err
	}

	ttl := s.cacheTTL
	if cfg.CacheTTLSeconds > 0 {
		ttl = time.Duration(cfg.CacheTTLSeconds) * time.Second
	}
	s.cache.Put(sourceID, effective, rows, cols, ttl)

	elapsed := time.Since(start)
	vizobserve.ObserveQueryDuration(sourceID, elapsed)
	slog.Debug("查询执行完成",
		"source", sourceID, "rows", len(rows), "elapsed_ms", elapsed.Milliseconds())

	return &domain.QueryResult{
		Data:            rows,
		Columns:         cols,
		RowCount:        len(rows),
		ExecutionTimeMs: float64(elapsed.Microseconds()) / 1000.0,
		Success:         true,
	}, nil
}

// Preview 返回数据源的前 limit 行，使用独立的短 TTL 缓存策略。
func (s *QueryService) Preview(ctx context.Context, sourceID string, limit int) (*domain.QueryResult, error) {
	if limit <= 0 || limit > DefaultPreviewLimit {
		limit = DefaultPreviewLimit
	}
	start := time.Now()

	// 预览走独立的缓存命名空间，查询文本无法与预览条目碰撞
	if rows, cols, ok := s.cache.GetPreview(sourceID, limit); ok {
		return &domain.QueryResult{
			Data:            rows,
			Columns:         cols,
			RowCount:        len(rows),
			ExecutionTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
			Success:         true,
			Cached:          true,
		}, nil
	}

	cfg, rel, err := s.fetch(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	plan := &sqlparse.Plan{Star: true, Limit: &limit}
	rows, cols, err := exec.Execute(plan, rel)
	if err != nil {
		return nil, err
	}

	ttl := s.previewTTL
	if cfg.PreviewTTLSeconds > 0 {
		ttl = time.Duration(cfg.PreviewTTLSeconds) * time.Second
	}
	s.cache.PutPreview(sourceID, limit, rows, cols, ttl)

	return &domain.QueryResult{
		Data:            rows,
		Columns:         cols,
		RowCount:        len(rows),
		ExecutionTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
		Success:         true,
	}, nil
}

// Columns 返回数据源的列名列表（取自预览结果），用于图表配置界面的字段选择。
func (s *QueryService) Columns(ctx context.Context, sourceID string) ([]string, error) {
	res, err := s.Preview(ctx, sourceID, 1)
	if err != nil {
		return nil, err
	}
	return res.Columns, nil
}

// InvalidateCache 清除某个数据源的缓存结果；sourceID 为空时清空全部。
func (s *QueryService) InvalidateCache(sourceID string) {
	s.cache.Invalidate(sourceID)
	slog.Info("查询结果缓存已失效", "source", sourceID)
}

// CacheLen 返回当前缓存条目数，暴露给管理端诊断接口。
func (s *QueryService) CacheLen() int {
	return s.cache.Len()
}

// fetch 解析数据源配置并通过对应适配器取数。
func (s *QueryService) fetch(ctx context.Context, sourceID string) (*domain.SourceConfig, domain.Relation, error) {
	cfg, err := s.configs.GetSource(ctx, sourceID)
	if err != nil {
		return nil, nil, err
	}
	if cfg == nil {
		return nil, nil, port.ErrSourceNotFound
	}
	if !cfg.Enabled {
		return nil, nil, port.ErrSourceDisabled
	}

	adapter, ok := s.adapters[cfg.Kind]
	if !ok {
		return nil, nil, fmt.Errorf("%w: 未注册类型为 '%s' 的数据源适配器", port.ErrRelationUnavailable, cfg.Kind)
	}

	rel, err := adapter.Fetch(ctx, *cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rel, nil
}
