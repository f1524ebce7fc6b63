// Package port file: internal/core/port/service.go
package port

import (
	"VizQuery/internal/core/domain"
	"context"
)

// SourceConfigService 是一个接口，定义了系统获取和修改数据源配置的能力。
type SourceConfigService interface {
	GetSource(ctx context.Context, sourceID string) (*domain.SourceConfig, error)
	ListSources(ctx context.Context) ([]*domain.SourceConfig, error)
	CreateSource(ctx context.Context, cfg domain.SourceConfig) (*domain.SourceConfig, error)
	UpdateSourceSettings(ctx context.Context, sourceID string, settings domain.SourceOverallSettings) error
	DeleteSource(ctx context.Context, sourceID string) error

	InvalidateCacheForSource(sourceID string)
	InvalidateAllCaches()

	GetIPLimitSettings(ctx context.Context) (*domain.IPLimitSetting, error)
	UpdateIPLimitSettings(ctx context.Context, settings domain.IPLimitSetting) error
	GetUserLimitSettings(ctx context.Context, userID int64) (*domain.UserLimitSetting, error)
	UpdateUserLimitSettings(ctx context.Context, userID int64, settings domain.UserLimitSetting) error
	GetSourceRateLimitSettings(ctx context.Context, sourceID string) (*domain.SourceRateLimitSetting, error)
	UpdateSourceRateLimitSettings(ctx context.Context, sourceID string, settings domain.SourceRateLimitSetting) error
}
