// Package filtersql 将结构化的过滤描述符编译为安全的 WHERE 子句，
// 并把基础查询包装为单层子查询形式：
//
//	SELECT * FROM (<base>) AS q WHERE <cond1> AND <cond2> ...
//
// 调用方（图表联动、仪表盘钻取）只提交 {field, operator, value} 描述符，
// 永远不拼接原始 SQL 片段。字段名白名单正则与字符串字面量转义
// 保证编译产物无法逃逸出谓词位置。
package filtersql

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"VizQuery/internal/core/domain"
	"VizQuery/internal/vizobserve"
)

// 合法字段名：字母数字、下划线与点号（点号支持 "table.column" 形式）。
var fieldNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

// Compile 将过滤描述符应用到基础查询文本上。
// 全部描述符不合法（或切片为空）时返回基础查询原文，不做包装。
// 不合法的描述符被静默丢弃，但会打点并记录日志，保证行为可观测。
func Compile(baseQuery string, filters []domain.FilterDescriptor) string {
	if len(filters) == 0 {
		return baseQuery
	}

	conds := make([]string, 0, len(filters))
	for _, f := range filters {
		cond, ok := renderCondition(f)
		if !ok {
			vizobserve.DroppedFilter.Inc()
			slog.Warn("过滤描述符不合法，已丢弃",
				"field", f.Field, "operator", f.Operator)
			continue
		}
		conds = append(conds, cond)
	}
	if len(conds) == 0 {
		return baseQuery
	}

	base := strings.TrimRight(strings.TrimSpace(baseQuery), ";")
	return fmt.Sprintf("SELECT * FROM (%s) AS q WHERE %s", base, strings.Join(conds, " AND "))
}

// renderCondition 渲染单个描述符。返回 false 表示描述符不合法。
func renderCondition(f domain.FilterDescriptor) (string, bool) {
	if !fieldNamePattern.MatchString(f.Field) {
		return "", false
	}

	switch f.Operator {
	case domain.OpEq, domain.OpNe, domain.OpGt, domain.OpLt, domain.OpGte, domain.OpLte:
		lit, ok := renderLiteral(f.Value)
		if !ok {
			return "", false
		}
		op := f.Operator
		return fmt.Sprintf("%s %s %s", f.Field, op, lit), true

	case domain.OpLike, domain.OpILike:
		s, ok := f.Value.(string)
		if !ok {
			return "", false
		}
		kw := "LIKE"
		if f.Operator == domain.OpILike {
			kw = "ILIKE"
		}
		return fmt.Sprintf("%s %s %s", f.Field, kw, quoteString(s)), true

	case domain.OpIn, domain.OpNotIn:
		if len(f.Values) == 0 {
			return "", false
		}
		lits := make([]string, 0, len(f.Values))
		for _, v := range f.Values {
			lit, ok := renderLiteral(v)
			if !ok {
				return "", false
			}
			lits = append(lits, lit)
		}
		kw := "IN"
		if f.Operator == domain.OpNotIn {
			kw = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", f.Field, kw, strings.Join(lits, ", ")), true

	case domain.OpBetween:
		if f.Range == nil {
			return "", false
		}
		from, okF := renderLiteral(f.Range.From)
		to, okT := renderLiteral(f.Range.To)
		if !okF || !okT {
			return "", false
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", f.Field, from, to), true
	}

	// 未知操作符
	return "", false
}

// renderLiteral 把过滤值渲染为 SQL 字面量。
// 只接受字符串、数值与布尔；其他类型（嵌套对象、切片）视为不合法。
func renderLiteral(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return quoteString(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}

// quoteString 用单引号包裹字符串并将内部单引号翻倍，SQL 标准转义。
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
