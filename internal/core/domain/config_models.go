// Package domain file: internal/core/domain/config_models.go
package domain

// SourceKind 标识数据源适配器的类型。
const (
	SourceKindHTTP = "http"
	SourceKindFile = "file"
)

// SourceConfig 定义了单个数据源的完整配置。
// 数据源是外部协作方拥有的具名连接（文件、数据库、数仓），本系统只消费其物化结果。
type SourceConfig struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OrgID     string `json:"org_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	Kind      string `json:"kind"`
	// Location 是数据源在上游系统中的展示位置（如上游控制台链接），
	// 仅作记录用途：http 源按 ID 与组织/项目路径寻址，file 源按 <ID>.json 定位。
	Location string `json:"location"`
	Enabled  bool   `json:"enabled"`

	// 缓存策略（秒）。0 表示使用全局默认值（一般查询 300s，预览查询 60s）。
	CacheTTLSeconds   int `json:"cache_ttl_seconds,omitempty"`
	PreviewTTLSeconds int `json:"preview_ttl_seconds,omitempty"`
}

// SourceOverallSettings 用于数据源的部分更新操作。
// 使用指针类型是为了判断客户端是否传递了某个字段，从而实现部分更新。
type SourceOverallSettings struct {
	Name              *string `json:"name"`
	Enabled           *bool   `json:"enabled"`
	CacheTTLSeconds   *int    `json:"cache_ttl_seconds"`
	PreviewTTLSeconds *int    `json:"preview_ttl_seconds"`
}

// IPLimitSetting 定义了全局IP速率限制的配置
type IPLimitSetting struct {
	RateLimitPerMinute float64 `json:"rate_limit_per_minute"`
	BurstSize          int     `json:"burst_size"`
}

// UserLimitSetting 定义了单个用户的速率限制配置
type UserLimitSetting struct {
	RateLimitPerSecond float64 `json:"rate_limit_per_second"`
	BurstSize          int     `json:"burst_size"`
}

// SourceRateLimitSetting 定义了单个数据源的速率限制配置
type SourceRateLimitSetting struct {
	RateLimitPerSecond float64 `json:"rate_limit_per_second"`
	BurstSize          int     `json:"burst_size"`
}
