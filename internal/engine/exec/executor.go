// Package exec file: internal/engine/exec/executor.go
//
// 纯函数式的查询执行器：对已物化的内存关系应用解析后的查询计划。
// 管线顺序固定为 过滤 → 分组聚合 → 排序 → 截断 → 投影，与 SQL 语义一致，
// 且保证同样输入的重复执行产生逐字节相同的输出（分组按首次出现顺序，排序稳定）。
package exec

import (
	"VizQuery/internal/core/domain"
	"VizQuery/internal/engine/sqlparse"
	"VizQuery/internal/vizobserve"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// PlanError 表示查询计划在当前关系上无法执行（例如分组列不存在）。
type PlanError struct {
	Msg string
}

func (e *PlanError) Error() string {
	return "查询计划无效: " + e.Msg
}

// Execute 将计划应用到关系上，返回结果行与结果列（按输出顺序）。
// 这是一个无 I/O 的纯数据变换；耗时统计与缓存由上层 QueryService 负责。
func Execute(plan *sqlparse.Plan, rel domain.Relation) (domain.Relation, []string, error) {
	return executeWithCols(plan, rel, columnsOf(rel))
}

// executeWithCols 允许调用方传入基础列顺序（用于子查询包装形式：
// 外层 SELECT * 的列顺序沿用内层结果的列顺序）。
func executeWithCols(plan *sqlparse.Plan, rel domain.Relation, baseCols []string) (domain.Relation, []string, error) {
	// 子查询包装：先执行内层，其结果成为外层的输入关系
	if plan.Inner != nil {
		innerRows, innerCols, err := executeWithCols(plan.Inner, rel, baseCols)
		if err != nil {
			return nil, nil, err
		}
		rel, baseCols = innerRows, innerCols
	}

	// 1. 过滤
	rows := rel
	if plan.Predicate != nil {
		filtered := make(domain.Relation, 0, len(rows))
		for _, r := range rows {
			if evalExpr(plan.Predicate, r) {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	// 2. 分组聚合
	if len(plan.Aggregations) > 0 || plan.GroupBy != "" {
		grouped, cols, err := aggregate(plan, rows, baseCols)
		if err != nil {
			return nil, nil, err
		}
		rows = grouped
		baseCols = cols
	}

	// 3. 排序（稳定；DESC 仅反转比较方向，不破坏并列行的稳定性）
	if plan.OrderBy != nil {
		col, desc := plan.OrderBy.Column, plan.OrderBy.Desc
		sorted := make(domain.Relation, len(rows))
		copy(sorted, rows)
		sort.SliceStable(sorted, func(i, j int) bool {
			c := compareValues(sorted[i][col], sorted[j][col])
			if desc {
				c = -c
			}
			return c < 0
		})
		rows = sorted
	}

	// 4. 截断。LIMIT 0 返回零行；无 ORDER BY 时取关系原始顺序的前 N 行。
	if plan.Limit != nil && len(rows) > *plan.Limit {
		rows = rows[:*plan.Limit]
	}

	// 5. 投影（最后执行，保证聚合派生列在裁剪前已经就绪）
	return project(plan, rows, baseCols)
}

// ---------------------------------------------------------------------------
// 分组与聚合
// ---------------------------------------------------------------------------

// aggregate 处理 GROUP BY 与全表聚合（含 count-only 形式）。
// 分组迭代顺序为分组键首次出现的顺序，保证重复执行输出一致。
func aggregate(plan *sqlparse.Plan, rows domain.Relation, baseCols []string) (domain.Relation, []string, error) {
	outCols := make([]string, 0, len(plan.Aggregations)+1)
	if plan.GroupBy != "" {
		// 分组列必须存在于关系中。按基础列集合校验而非过滤后的行集，
		// WHERE 过滤掉全部行也不能掩盖分组列缺失（空关系无从校验，直接返回空结果）。
		if len(baseCols) > 0 && !containsColumn(baseCols, plan.GroupBy) {
			return nil, nil, &PlanError{Msg: fmt.Sprintf("分组列 '%s' 不存在于数据源中", plan.GroupBy)}
		}
		outCols = append(outCols, plan.GroupBy)
	}
	for _, a := range plan.Aggregations {
		outCols = append(outCols, a.OutputColumn())
	}

	// 全表聚合：所有行视为一个组
	if plan.GroupBy == "" {
		out := reduceGroup(plan.Aggregations, rows)
		return domain.Relation{out}, outCols, nil
	}

	if len(rows) == 0 {
		return domain.Relation{}, outCols, nil
	}

	var keyOrder []string
	keyValue := make(map[string]any)
	members := make(map[string]domain.Relation)
	for _, r := range rows {
		v := r[plan.GroupBy]
		k := stringify(v)
		if _, seen := members[k]; !seen {
			keyOrder = append(keyOrder, k)
			keyValue[k] = v
		}
		members[k] = append(members[k], r)
	}

	out := make(domain.Relation, 0, len(keyOrder))
	for _, k := range keyOrder {
		row := reduceGroup(plan.Aggregations, members[k])
		row[plan.GroupBy] = keyValue[k]
		out = append(out, row)
	}
	return out, outCols, nil
}

// reduceGroup 按声明顺序把聚合函数应用到一组成员行上。
// AVG 在组内没有任何数值时，该聚合键从结果行中省略（不是 NaN，也不报错）。
func reduceGroup(aggs []sqlparse.Aggregation, members domain.Relation) domain.Row {
	row := make(domain.Row, len(aggs)+1)
	for _, a := range aggs {
		switch a.Func {
		case sqlparse.AggCount:
			row[a.OutputColumn()] = len(members)
		case sqlparse.AggSum:
			sum, _ := sumColumn(members, a.Column)
			row[a.OutputColumn()] = sum
		case sqlparse.AggAvg:
			sum, n := sumColumn(members, a.Column)
			if n == 0 {
				continue
			}
			row[a.OutputColumn()] = sum / float64(n)
		}
	}
	return row
}

// sumColumn 返回该列上所有可转为数值的值之和与个数，非数值被忽略。
func sumColumn(members domain.Relation, col string) (float64, int) {
	var sum float64
	var n int
	for _, r := range members {
		if f, ok := toNumber(r[col]); ok {
			sum += f
			n++
		}
	}
	return sum, n
}

// ---------------------------------------------------------------------------
// 投影
// ---------------------------------------------------------------------------

// project 应用投影并确定输出列顺序。
// SELECT * 时：若存在确定的基础列顺序则沿用，否则按列名字典序（保证确定性）。
// 显式列表时：按请求顺序保留，未请求的键被丢弃，行中缺失的键不补 NULL。
func project(plan *sqlparse.Plan, rows domain.Relation, baseCols []string) (domain.Relation, []string, error) {
	var cols []string
	switch {
	case len(plan.Aggregations) > 0 || plan.GroupBy != "":
		// 聚合结果的列顺序已在 aggregate 中确定
		cols = baseCols
	case plan.Star:
		cols = baseCols
	default:
		cols = plan.Projection
	}
	if cols == nil {
		cols = []string{}
	}

	out := make(domain.Relation, 0, len(rows))
	for _, r := range rows {
		nr := make(domain.Row, len(cols))
		for _, c := range cols {
			if v, ok := r[c]; ok {
				nr[c] = v
			}
		}
		out = append(out, nr)
	}
	return out, cols, nil
}

// columnsOf 从关系的首行推导列集合，按字典序排序以保证稳定输出。
func columnsOf(rel domain.Relation) []string {
	if len(rel) == 0 {
		return []string{}
	}
	cols := make([]string, 0, len(rel[0]))
	for c := range rel[0] {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func containsColumn(cols []string, c string) bool {
	for _, x := range cols {
		if x == c {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// 谓词求值
// ---------------------------------------------------------------------------

// evalExpr 对单行求值谓词树。
// 引用了行中不存在的列的原子按"恒真"处理（可用性优先的历史行为），
// 但会打点并输出调试日志，避免"无诊断的错误答案"。
func evalExpr(e sqlparse.Expr, row domain.Row) bool {
	switch n := e.(type) {
	case *sqlparse.Logic:
		if n.Op == "AND" {
			return evalExpr(n.Left, row) && evalExpr(n.Right, row)
		}
		return evalExpr(n.Left, row) || evalExpr(n.Right, row)

	case *sqlparse.Comparison:
		v, ok := row[n.Column]
		if !ok {
			swallowAtom(n.Column)
			return true
		}
		return evalComparison(v, n.Op, n.Value)

	case *sqlparse.InList:
		v, ok := row[n.Column]
		if !ok {
			swallowAtom(n.Column)
			return true
		}
		found := false
		for _, want := range n.Values {
			if equalValues(v, want) {
				found = true
				break
			}
		}
		if n.Negated {
			return !found
		}
		return found

	case *sqlparse.Between:
		v, ok := row[n.Column]
		if !ok {
			swallowAtom(n.Column)
			return true
		}
		if v == nil {
			return false
		}
		return compareValues(v, n.From) >= 0 && compareValues(v, n.To) <= 0
	}
	return true
}

func evalComparison(v any, op string, want any) bool {
	switch op {
	case "=":
		return equalValues(v, want)
	case "!=":
		return !equalValues(v, want)
	case ">", "<", ">=", "<=":
		if v == nil || want == nil {
			return false
		}
		c := compareValues(v, want)
		switch op {
		case ">":
			return c > 0
		case "<":
			return c < 0
		case ">=":
			return c >= 0
		default:
			return c <= 0
		}
	case "LIKE":
		return matchLike(stringify(v), fmt.Sprint(want), false)
	case "ILIKE":
		return matchLike(stringify(v), fmt.Sprint(want), true)
	}
	return true
}

func swallowAtom(column string) {
	vizobserve.SwallowedAtom.Inc()
	slog.Debug("谓词原子引用了不存在的列，已按恒真处理", "column", column)
}

// matchLike 实现 SQL 的 LIKE 模式匹配：% 匹配任意序列，_ 匹配单个字符。
// 用简单的回溯实现，避免把用户输入拼进正则表达式。
func matchLike(s, pattern string, foldCase bool) bool {
	if foldCase {
		s = strings.ToLower(s)
		pattern = strings.ToLower(pattern)
	}
	return likeMatch(s, pattern)
}

func likeMatch(s, p string) bool {
	// 贪心 + 回溯：记录最近一个 % 的位置
	si, pi := 0, 0
	starP, starS := -1, 0
	for si < len(s) {
		switch {
		case pi < len(p) && (p[pi] == '_' || p[pi] == s[si]):
			si++
			pi++
		case pi < len(p) && p[pi] == '%':
			starP, starS = pi, si
			pi++
		case starP >= 0:
			starS++
			si, pi = starS, starP+1
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '%' {
		pi++
	}
	return pi == len(p)
}
