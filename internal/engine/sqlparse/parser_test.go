// file: internal/engine/sqlparse/parser_test.go

package sqlparse

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func mustParse(t *testing.T, q string) *Plan {
	t.Helper()
	plan, err := Parse(q)
	if err != nil {
		t.Fatalf("Parse(%q) 意外失败: %v", q, err)
	}
	return plan
}

func mustFail(t *testing.T, q, wantClause string) *ParseError {
	t.Helper()
	_, err := Parse(q)
	if err == nil {
		t.Fatalf("Parse(%q) 应当失败", q)
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Parse(%q) 返回的不是 *ParseError: %T", q, err)
	}
	if wantClause != "" && pe.Clause != wantClause {
		t.Errorf("Parse(%q) 错误子句 = %q, want %q (msg: %s)", q, pe.Clause, wantClause, pe.Msg)
	}
	return pe
}

func TestParse_SelectStar(t *testing.T) {
	plan := mustParse(t, "SELECT * FROM sales")
	if !plan.Star || len(plan.Projection) != 0 || plan.Predicate != nil {
		t.Errorf("SELECT * 解析结果不符: %+v", plan)
	}
}

func TestParse_Projection(t *testing.T) {
	plan := mustParse(t, "select region, amount from sales")
	want := []string{"region", "amount"}
	if !reflect.DeepEqual(plan.Projection, want) {
		t.Errorf("投影列 = %v, want %v（关键字大小写不敏感）", plan.Projection, want)
	}
}

func TestParse_CaseSensitivity(t *testing.T) {
	// 关键字大小写不敏感，标识符大小写敏感
	plan := mustParse(t, "SELECT Region FROM t WHERE Amount > 5")
	if plan.Projection[0] != "Region" {
		t.Errorf("标识符大小写必须保留, got %q", plan.Projection[0])
	}
	cmp := plan.Predicate.(*Comparison)
	if cmp.Column != "Amount" {
		t.Errorf("谓词列大小写必须保留, got %q", cmp.Column)
	}
}

func TestParse_WherePrecedence(t *testing.T) {
	plan := mustParse(t, "SELECT * FROM t WHERE a = 1 OR b = 2 AND c = 3")
	// AND 优先：OR(a=1, AND(b=2, c=3))
	root, ok := plan.Predicate.(*Logic)
	if !ok || root.Op != "OR" {
		t.Fatalf("根节点应为 OR, got %+v", plan.Predicate)
	}
	if right, ok := root.Right.(*Logic); !ok || right.Op != "AND" {
		t.Errorf("OR 右侧应为 AND 节点, got %+v", root.Right)
	}
}

func TestParse_WhereParens(t *testing.T) {
	plan := mustParse(t, "SELECT * FROM t WHERE (a = 1 OR b = 2) AND c = 3")
	root := plan.Predicate.(*Logic)
	if root.Op != "AND" {
		t.Fatalf("括号改变结合后根节点应为 AND, got %s", root.Op)
	}
	if left, ok := root.Left.(*Logic); !ok || left.Op != "OR" {
		t.Errorf("AND 左侧应为括号内的 OR, got %+v", root.Left)
	}
}

func TestParse_Atoms(t *testing.T) {
	plan := mustParse(t,
		"SELECT * FROM t WHERE a <> 1 AND b IN ('x', 'y') AND c NOT IN (1, 2) AND d BETWEEN 0 AND 9 AND e LIKE 'a%' AND f ILIKE '%B'")

	var atoms []Expr
	var collect func(Expr)
	collect = func(e Expr) {
		if l, ok := e.(*Logic); ok {
			collect(l.Left)
			collect(l.Right)
			return
		}
		atoms = append(atoms, e)
	}
	collect(plan.Predicate)

	if len(atoms) != 6 {
		t.Fatalf("原子数 = %d, want 6", len(atoms))
	}
	if cmp := atoms[0].(*Comparison); cmp.Op != "!=" {
		t.Errorf("<> 应规范化为 !=, got %q", cmp.Op)
	}
	if in := atoms[1].(*InList); in.Negated || !reflect.DeepEqual(in.Values, []any{"x", "y"}) {
		t.Errorf("IN 解析错误: %+v", in)
	}
	if nin := atoms[2].(*InList); !nin.Negated {
		t.Errorf("NOT IN 应设置 Negated")
	}
	if btw := atoms[3].(*Between); btw.From != float64(0) || btw.To != float64(9) {
		t.Errorf("BETWEEN 解析错误: %+v", btw)
	}
	if like := atoms[4].(*Comparison); like.Op != "LIKE" || like.Value != "a%" {
		t.Errorf("LIKE 解析错误: %+v", like)
	}
	if ilike := atoms[5].(*Comparison); ilike.Op != "ILIKE" {
		t.Errorf("ILIKE 解析错误: %+v", ilike)
	}
}

func TestParse_Literals(t *testing.T) {
	plan := mustParse(t, "SELECT * FROM t WHERE a = 'it''s' AND b = -3.5 AND c = TRUE AND d = NULL")
	var values []any
	var collect func(Expr)
	collect = func(e Expr) {
		if l, ok := e.(*Logic); ok {
			collect(l.Left)
			collect(l.Right)
			return
		}
		values = append(values, e.(*Comparison).Value)
	}
	collect(plan.Predicate)

	want := []any{"it's", float64(-3.5), true, nil}
	if !reflect.DeepEqual(values, want) {
		t.Errorf("字面量 = %v, want %v", values, want)
	}
}

func TestParse_GroupByAggregates(t *testing.T) {
	plan := mustParse(t, "SELECT region, COUNT(*), SUM(amount), AVG(amount) AS mean FROM t GROUP BY region")
	if plan.GroupBy != "region" {
		t.Fatalf("GroupBy = %q", plan.GroupBy)
	}
	wantAggs := []Aggregation{
		{Func: AggCount},
		{Func: AggSum, Column: "amount"},
		{Func: AggAvg, Column: "amount", Alias: "mean"},
	}
	if !reflect.DeepEqual(plan.Aggregations, wantAggs) {
		t.Errorf("聚合项 = %+v, want %+v", plan.Aggregations, wantAggs)
	}
	if plan.CountOnly {
		t.Error("GROUP BY 查询不应被标记为 count-only")
	}
}

func TestParse_CountOnly(t *testing.T) {
	plan := mustParse(t, "SELECT COUNT(*) FROM t WHERE a > 1")
	if !plan.CountOnly {
		t.Error("纯 COUNT(*) 查询应标记 CountOnly")
	}
	// 带别名时不再是 count-only 形式
	plan = mustParse(t, "SELECT COUNT(*) AS n FROM t")
	if plan.CountOnly {
		t.Error("带别名的 COUNT(*) 不应标记 CountOnly")
	}
}

func TestParse_OrderByLimit(t *testing.T) {
	plan := mustParse(t, "SELECT * FROM t ORDER BY amount DESC LIMIT 10")
	if plan.OrderBy == nil || plan.OrderBy.Column != "amount" || !plan.OrderBy.Desc {
		t.Errorf("ORDER BY 解析错误: %+v", plan.OrderBy)
	}
	if plan.Limit == nil || *plan.Limit != 10 {
		t.Errorf("LIMIT 解析错误: %v", plan.Limit)
	}

	plan = mustParse(t, "SELECT * FROM t ORDER BY amount ASC")
	if plan.OrderBy.Desc {
		t.Error("ASC 不应设置 Desc")
	}

	plan = mustParse(t, "SELECT * FROM t LIMIT 0")
	if plan.Limit == nil || *plan.Limit != 0 {
		t.Error("LIMIT 0 是合法的")
	}
}

func TestParse_WrappedSubquery(t *testing.T) {
	plan := mustParse(t, "SELECT * FROM (SELECT a, b FROM t WHERE a > 1) AS q WHERE b = 'x'")
	if plan.Inner == nil {
		t.Fatal("应解析出内层计划")
	}
	if !reflect.DeepEqual(plan.Inner.Projection, []string{"a", "b"}) {
		t.Errorf("内层投影 = %v", plan.Inner.Projection)
	}
	if plan.Predicate == nil {
		t.Error("外层谓词丢失")
	}

	// 别名可省略或不带 AS
	mustParse(t, "SELECT * FROM (SELECT * FROM t) q")
	mustParse(t, "SELECT * FROM (SELECT * FROM t)")
}

func TestParse_TrailingSemicolon(t *testing.T) {
	mustParse(t, "SELECT * FROM t;")
}

func TestParse_Rejections(t *testing.T) {
	cases := []struct {
		query  string
		clause string
	}{
		{"", ""},
		{"   ", ""},
		{"DELETE FROM t", "SELECT"},
		{"SELECT * FROM a JOIN b", "FROM"},
		{"SELECT * FROM a, b", "FROM"},
		{"SELECT * FROM t GROUP BY a, b", "GROUP BY"},
		{"SELECT a, COUNT(*) FROM t GROUP BY a HAVING COUNT(*) > 1", "HAVING"},
		{"SELECT * FROM t ORDER BY a, b", "ORDER BY"},
		{"SELECT * FROM t LIMIT 10 OFFSET 5", "OFFSET"},
		{"SELECT * FROM t LIMIT -1", "LIMIT"},
		{"SELECT * FROM t LIMIT abc", "LIMIT"},
		{"SELECT * FROM (SELECT * FROM (SELECT * FROM t) AS a) AS b", "FROM"},
		{"SELECT UPPER(name) FROM t", "SELECT"},
		{"SELECT * FROM t WHERE a = b", "WHERE"},
		{"SELECT * FROM t WHERE a LIKE 5", "WHERE"},
		{"SELECT * FROM t WHERE a NOT LIKE 'x'", "WHERE"},
		{"SELECT * FROM t WHERE a = 1 AND", "WHERE"},
		{"SELECT * FROM t WHERE (a = 1", "WHERE"},
		{"SELECT * FROM t GROUP BY", "GROUP BY"},
		{"SELECT * FROM", "FROM"},
		{"SELECT FROM t", "SELECT"},
	}
	for _, c := range cases {
		mustFail(t, c.query, c.clause)
	}
}

func TestParse_RejectGroupByShapes(t *testing.T) {
	mustFail(t, "SELECT * FROM t GROUP BY region", "GROUP BY")
	mustFail(t, "SELECT rep, COUNT(*) FROM t GROUP BY region", "GROUP BY")
	mustFail(t, "SELECT region, COUNT(*) FROM t", "SELECT")
}

func TestParse_TrailingGarbage(t *testing.T) {
	pe := mustFail(t, "SELECT * FROM t WHERE a = 1 banana", "")
	if !strings.Contains(pe.Msg, "banana") {
		t.Errorf("错误信息应指出残留内容, got %q", pe.Msg)
	}
}

func TestParse_UnclosedString(t *testing.T) {
	mustFail(t, "SELECT * FROM t WHERE a = 'oops", "")
}

func TestParse_ErrorMessageHasPosition(t *testing.T) {
	_, err := Parse("SELECT * FROM t LIMIT xyz")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("期望 *ParseError, got %T", err)
	}
	if pe.Pos <= 0 {
		t.Errorf("错误位置应大于 0, got %d", pe.Pos)
	}
	if !strings.Contains(pe.Error(), "LIMIT") {
		t.Errorf("Error() 应包含子句名, got %q", pe.Error())
	}
}
