// Package port file: internal/core/port/relation.go
package port

import (
	"VizQuery/internal/core/domain"
	"context"
	"errors"
)

// Standard errors
var (
	// ErrSourceNotFound 表示请求的数据源在注册表中不存在。
	ErrSourceNotFound = errors.New("指定的数据源未找到")

	// ErrSourceDisabled 表示数据源已被管理员停用。
	ErrSourceDisabled = errors.New("数据源已停用")

	// ErrRelationUnavailable 表示上游关系数据获取失败（网络错误、文件缺失等）。
	ErrRelationUnavailable = errors.New("上游数据不可用")

	// ErrPermissionDenied 表示操作因权限不足而被拒绝。
	ErrPermissionDenied = errors.New("权限不足，操作被拒绝")
)

// RelationSource 接口定义。
// 一个 RelationSource 负责为某一类数据源提供已物化的内存关系（行对象数组）。
// 获取是本子系统唯一的异步边界；之后的查询执行是纯粹的同步数据变换。
type RelationSource interface {
	// Fetch 拉取数据源的完整关系。实现可以内部做 TTL 缓存。
	Fetch(ctx context.Context, source domain.SourceConfig) (domain.Relation, error)

	// HealthCheck 检查上游的健康状况
	HealthCheck(ctx context.Context) error

	// Type 返回适配器的类型标识符 (domain.SourceKindHTTP 等)
	Type() string
}
