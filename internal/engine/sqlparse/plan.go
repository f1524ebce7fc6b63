// Package sqlparse file: internal/engine/sqlparse/plan.go
package sqlparse

import "fmt"

// 聚合函数名
const (
	AggCount = "COUNT"
	AggSum   = "SUM"
	AggAvg   = "AVG"
)

// Aggregation 描述 GROUP BY 子句中的单个聚合项。
type Aggregation struct {
	Func   string // COUNT / SUM / AVG
	Column string // COUNT(*) 时为空
	Alias  string // 可选的 AS 别名
}

// OutputColumn 返回该聚合在结果集中的确定性列名。
// 未指定别名时：count / sum_<col> / avg_<col>。
func (a Aggregation) OutputColumn() string {
	if a.Alias != "" {
		return a.Alias
	}
	switch a.Func {
	case AggCount:
		return "count"
	case AggSum:
		return "sum_" + a.Column
	case AggAvg:
		return "avg_" + a.Column
	}
	return ""
}

// OrderBy 描述排序子句。
type OrderBy struct {
	Column string
	Desc   bool
}

// Plan 是解析后的查询计划，执行器据此对内存关系做确定性变换。
type Plan struct {
	// Star 为 true 表示 SELECT *；否则 Projection 给出按声明顺序的列名列表。
	Star       bool
	Projection []string

	// CountOnly 表示纯 COUNT(*) 查询形式（无 GROUP BY）。
	CountOnly bool

	// Aggregations 与 GroupBy 搭配使用；GroupBy 为空且 Aggregations 非空时为全表聚合。
	GroupBy      string
	Aggregations []Aggregation

	Predicate Expr // 可为 nil
	OrderBy   *OrderBy
	Limit     *int // nil 表示无 LIMIT；LIMIT 0 返回零行

	// Inner 表示过滤编译器产生的单层子查询包装形式:
	// SELECT * FROM (<inner>) AS q WHERE ...
	// 先执行 Inner，再将外层谓词等管线应用到其结果之上。
	Inner *Plan
}

// ---------------------------------------------------------------------------
// 谓词表达式树
// ---------------------------------------------------------------------------

// Expr 是谓词树节点的标记接口。
type Expr interface {
	isExpr()
}

// Logic 是 AND/OR 组合节点。AND 的优先级高于 OR。
type Logic struct {
	Op    string // "AND" / "OR"
	Left  Expr
	Right Expr
}

// Comparison 是 <column> <op> <literal> 形式的原子比较。
// Op ∈ {=, !=, >, <, >=, <=, LIKE, ILIKE}。
type Comparison struct {
	Column string
	Op     string
	Value  any
}

// InList 是 <column> [NOT] IN (v1, v2, ...) 原子。
type InList struct {
	Column  string
	Values  []any
	Negated bool
}

// Between 是 <column> BETWEEN a AND b 原子（闭区间）。
type Between struct {
	Column string
	From   any
	To     any
}

func (*Logic) isExpr()      {}
func (*Comparison) isExpr() {}
func (*InList) isExpr()     {}
func (*Between) isExpr()    {}

// ParseError 表示查询文本无法被识别为受支持的 SQL 子集。
// Clause 指出出错的子句，便于调用方把错误直接展示给图表配置者。
type ParseError struct {
	Clause string // 例如 "SELECT", "WHERE", "LIMIT"
	Pos    int    // 出错 token 在原文中的字节偏移
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Clause == "" {
		return fmt.Sprintf("SQL解析失败 (位置 %d): %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("SQL解析失败 (%s 子句, 位置 %d): %s", e.Clause, e.Pos, e.Msg)
}
