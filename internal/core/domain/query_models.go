// Package domain file: internal/core/domain/query_models.go
package domain

// Row 表示关系中的一行：列名到标量值 (string/number/bool/nil) 的映射。
type Row map[string]any

// Relation 是一段已物化到内存中的表格数据（有序行的序列）。
// 不变量：同一 Relation 中所有行暴露相同的列集合，由上游摄取层保证，本子系统不做校验。
type Relation []Row

// QueryResult 是查询执行的统一返回结构。
// 无论成功与否都使用该结构返回，避免异常跨越公开边界导致仪表盘渲染崩溃。
type QueryResult struct {
	Data            Relation `json:"data"`
	Columns         []string `json:"columns"`
	RowCount        int      `json:"rowCount"`
	ExecutionTimeMs float64  `json:"executionTimeMs"`
	Success         bool     `json:"success"`
	Error           string   `json:"error,omitempty"`
	// Cached 标记本次结果是否来自结果缓存命中。
	Cached bool `json:"cached,omitempty"`
}

// FailedResult 构造一个标准的失败返回（空数据 + 错误信息）。
func FailedResult(errMsg string) *QueryResult {
	return &QueryResult{
		Data:     Relation{},
		Columns:  []string{},
		RowCount: 0,
		Success:  false,
		Error:    errMsg,
	}
}

// RangeValue 表示 between 操作符的取值区间。
type RangeValue struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// FilterDescriptor 是 UI 侧生成的结构化过滤条件，区别于原始 SQL 文本。
// Field 必须匹配 ^[A-Za-z0-9_.]+$，否则整条过滤器会被静默丢弃（防注入）。
type FilterDescriptor struct {
	Field    string      `json:"field" binding:"required"`
	Operator string      `json:"operator" binding:"required"`
	Value    any         `json:"value,omitempty"`
	Values   []any       `json:"values,omitempty"`
	Range    *RangeValue `json:"range,omitempty"`
}

// FilterDescriptor 支持的操作符集合。
const (
	OpEq      = "="
	OpNe      = "!="
	OpGt      = ">"
	OpLt      = "<"
	OpGte     = ">="
	OpLte     = "<="
	OpLike    = "like"
	OpILike   = "ilike"
	OpIn      = "in"
	OpNotIn   = "not-in"
	OpBetween = "between"
)
