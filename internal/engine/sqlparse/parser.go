// Package sqlparse file: internal/engine/sqlparse/parser.go
//
// 递归下降解析器，取代早期基于正则的字符串匹配实现。
// 受支持的文法（关键字大小写不敏感，标识符大小写敏感）:
//
//	SELECT <cols> FROM <from> [WHERE <pred>] [GROUP BY <col>]
//	       [ORDER BY <col> [ASC|DESC]] [LIMIT <n>]
//
//	<cols> := '*' | item (',' item)*
//	item   := <col> | COUNT(*) | SUM(<col>) | AVG(<col>)  [AS <alias>]
//	<from> := <table> | '(' SELECT ... ')' [AS <alias>]     -- 仅允许一层
//	<pred> := 由 AND/OR 组合的原子，AND 优先级更高，支持括号
//	原子   := col (=|!=|<>|>|<|>=|<=) 字面量
//	        | col [NOT] IN '(' 字面量, ... ')'
//	        | col BETWEEN 字面量 AND 字面量
//	        | col (LIKE|ILIKE) 字符串
//
// 任何不在文法内的内容（JOIN、多表、表达式、HAVING、OFFSET、残留 token）都会
// 返回带子句定位的 ParseError，而不是被静默忽略后返回错误数据。
package sqlparse

import (
	"fmt"
	"strconv"
	"strings"
)

type parser struct {
	toks []token
	pos  int
}

// Parse 将查询文本解析为 Plan。失败时返回 *ParseError。
func Parse(input string) (*Plan, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &ParseError{Msg: "查询文本为空"}
	}
	toks, terr := tokenize(input)
	if terr != nil {
		return nil, terr
	}
	p := &parser{toks: toks}
	plan, err := p.parseSelect(0)
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tkEOF {
		return nil, p.errf("", "查询末尾存在无法识别的内容 '%s'", p.cur().text)
	}
	return plan, nil
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) next() token { t := p.toks[p.pos]; p.pos++; return t }

func (p *parser) errf(clause, format string, args ...any) *ParseError {
	return &ParseError{Clause: clause, Pos: p.cur().pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.cur().keywordIs(kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) acceptSymbol(sym string) bool {
	if p.cur().kind == tkSymbol && p.cur().text == sym {
		p.pos++
		return true
	}
	return false
}

// parseSelect 解析一个 SELECT 语句。depth 用于限制子查询嵌套（仅允许一层，
// 即过滤编译器产生的包装形式）。
func (p *parser) parseSelect(depth int) (*Plan, error) {
	if !p.acceptKeyword("SELECT") {
		return nil, p.errf("SELECT", "查询必须以 SELECT 开头")
	}

	plan := &Plan{}

	// --- 选择列表 ---
	if p.acceptSymbol("*") {
		plan.Star = true
	} else {
		for {
			if err := p.parseSelectItem(plan); err != nil {
				return nil, err
			}
			if !p.acceptSymbol(",") {
				break
			}
		}
	}

	// --- FROM ---
	if !p.acceptKeyword("FROM") {
		return nil, p.errf("FROM", "缺少 FROM 子句")
	}
	if p.acceptSymbol("(") {
		if depth > 0 {
			return nil, p.errf("FROM", "不支持多层嵌套子查询")
		}
		inner, err := p.parseSelect(depth + 1)
		if err != nil {
			return nil, err
		}
		if !p.acceptSymbol(")") {
			return nil, p.errf("FROM", "子查询缺少右括号")
		}
		// 可选的 AS 别名（过滤编译器固定生成 AS q）
		if p.acceptKeyword("AS") {
			if p.cur().kind != tkIdent {
				return nil, p.errf("FROM", "AS 之后应为别名标识符")
			}
			p.next()
		} else if p.cur().kind == tkIdent && !isClauseKeyword(p.cur().text) {
			p.next()
		}
		plan.Inner = inner
	} else {
		if p.cur().kind != tkIdent {
			return nil, p.errf("FROM", "FROM 之后应为表名")
		}
		p.next() // 表名 token 被忽略：关系由数据源标识符决定
		if p.cur().keywordIs("JOIN") || p.cur().keywordIs("INNER") ||
			p.cur().keywordIs("LEFT") || p.cur().keywordIs("RIGHT") {
			return nil, p.errf("FROM", "不支持 JOIN")
		}
		if p.cur().kind == tkSymbol && p.cur().text == "," {
			return nil, p.errf("FROM", "不支持多表查询")
		}
	}

	// --- WHERE ---
	if p.acceptKeyword("WHERE") {
		pred, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		plan.Predicate = pred
	}

	// --- GROUP BY ---
	if p.acceptKeyword("GROUP") {
		if !p.acceptKeyword("BY") {
			return nil, p.errf("GROUP BY", "GROUP 之后缺少 BY")
		}
		if p.cur().kind != tkIdent {
			return nil, p.errf("GROUP BY", "GROUP BY 之后应为列名")
		}
		plan.GroupBy = p.next().text
		if p.cur().kind == tkSymbol && p.cur().text == "," {
			return nil, p.errf("GROUP BY", "仅支持单个分组列")
		}
	}

	if p.cur().keywordIs("HAVING") {
		return nil, p.errf("HAVING", "不支持 HAVING 子句")
	}

	// --- ORDER BY ---
	if p.acceptKeyword("ORDER") {
		if !p.acceptKeyword("BY") {
			return nil, p.errf("ORDER BY", "ORDER 之后缺少 BY")
		}
		if p.cur().kind != tkIdent {
			return nil, p.errf("ORDER BY", "ORDER BY 之后应为列名")
		}
		ob := &OrderBy{Column: p.next().text}
		if p.acceptKeyword("DESC") {
			ob.Desc = true
		} else {
			p.acceptKeyword("ASC")
		}
		if p.cur().kind == tkSymbol && p.cur().text == "," {
			return nil, p.errf("ORDER BY", "仅支持单个排序列")
		}
		plan.OrderBy = ob
	}

	// --- LIMIT ---
	if p.acceptKeyword("LIMIT") {
		t := p.cur()
		if t.kind != tkNumber {
			return nil, p.errf("LIMIT", "LIMIT 之后应为非负整数")
		}
		nVal, err := strconv.Atoi(t.text)
		if err != nil || nVal < 0 {
			return nil, p.errf("LIMIT", "无效的 LIMIT 值 '%s'", t.text)
		}
		p.next()
		plan.Limit = &nVal
	}

	if p.cur().keywordIs("OFFSET") {
		return nil, p.errf("OFFSET", "不支持 OFFSET 子句")
	}

	if err := p.validate(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// parseSelectItem 解析选择列表中的单项：普通列或聚合调用。
func (p *parser) parseSelectItem(plan *Plan) error {
	t := p.cur()
	if t.kind != tkIdent || isClauseKeyword(t.text) {
		return p.errf("SELECT", "选择列表中存在无法识别的项 '%s'", t.text)
	}

	upper := strings.ToUpper(t.text)
	if (upper == AggCount || upper == AggSum || upper == AggAvg) &&
		p.toks[p.pos+1].kind == tkSymbol && p.toks[p.pos+1].text == "(" {
		p.pos += 2 // 函数名 + '('
		agg := Aggregation{Func: upper}

		if upper == AggCount {
			if !p.acceptSymbol("*") {
				return p.errf("SELECT", "COUNT 仅支持 COUNT(*)")
			}
		} else {
			if p.cur().kind != tkIdent {
				return p.errf("SELECT", "%s() 需要一个列名参数", upper)
			}
			agg.Column = p.next().text
		}
		if !p.acceptSymbol(")") {
			return p.errf("SELECT", "聚合调用缺少右括号")
		}
		if p.acceptKeyword("AS") {
			if p.cur().kind != tkIdent {
				return p.errf("SELECT", "AS 之后应为别名标识符")
			}
			agg.Alias = p.next().text
		}
		plan.Aggregations = append(plan.Aggregations, agg)
		return nil
	}

	// 普通列投影。表达式（算术、函数调用等）不在子集内。
	p.next()
	if p.cur().kind == tkSymbol && p.cur().text == "(" {
		return p.errf("SELECT", "不支持函数或表达式 '%s(...)'", t.text)
	}
	plan.Projection = append(plan.Projection, t.text)
	return nil
}

// validate 做跨子句的结构校验，并识别 count-only 形式。
func (p *parser) validate(plan *Plan) error {
	hasAgg := len(plan.Aggregations) > 0

	if plan.GroupBy != "" {
		if plan.Star {
			return &ParseError{Clause: "GROUP BY", Msg: "GROUP BY 查询不允许 SELECT *"}
		}
		// 普通投影列必须就是分组列本身
		for _, c := range plan.Projection {
			if c != plan.GroupBy {
				return &ParseError{Clause: "GROUP BY",
					Msg: fmt.Sprintf("列 '%s' 既不是分组列也不是聚合结果", c)}
			}
		}
		return nil
	}

	if hasAgg {
		if len(plan.Projection) > 0 || plan.Star {
			return &ParseError{Clause: "SELECT", Msg: "聚合查询不允许与普通列混用（除非使用 GROUP BY）"}
		}
		if len(plan.Aggregations) == 1 &&
			plan.Aggregations[0].Func == AggCount && plan.Aggregations[0].Alias == "" {
			plan.CountOnly = true
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// 谓词解析：or := and (OR and)* ； and := primary (AND primary)*
// ---------------------------------------------------------------------------

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logic{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("AND") {
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &Logic{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	if p.acceptSymbol("(") {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.acceptSymbol(")") {
			return nil, p.errf("WHERE", "谓词缺少右括号")
		}
		return inner, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (Expr, error) {
	if p.cur().kind != tkIdent || isClauseKeyword(p.cur().text) {
		return nil, p.errf("WHERE", "谓词原子应以列名开头")
	}
	col := p.next().text

	// NOT IN
	if p.acceptKeyword("NOT") {
		if !p.acceptKeyword("IN") {
			return nil, p.errf("WHERE", "NOT 之后仅支持 IN")
		}
		values, err := p.parseLiteralList()
		if err != nil {
			return nil, err
		}
		return &InList{Column: col, Values: values, Negated: true}, nil
	}

	if p.acceptKeyword("IN") {
		values, err := p.parseLiteralList()
		if err != nil {
			return nil, err
		}
		return &InList{Column: col, Values: values}, nil
	}

	if p.acceptKeyword("BETWEEN") {
		from, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		if !p.acceptKeyword("AND") {
			return nil, p.errf("WHERE", "BETWEEN 缺少 AND")
		}
		to, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return &Between{Column: col, From: from, To: to}, nil
	}

	if p.acceptKeyword("LIKE") {
		return p.parsePatternAtom(col, "LIKE")
	}
	if p.acceptKeyword("ILIKE") {
		return p.parsePatternAtom(col, "ILIKE")
	}

	t := p.cur()
	if t.kind != tkSymbol {
		return nil, p.errf("WHERE", "列 '%s' 之后应为比较操作符", col)
	}
	op := t.text
	switch op {
	case "=", "!=", "<>", ">", "<", ">=", "<=":
		p.next()
	default:
		return nil, p.errf("WHERE", "不支持的操作符 '%s'", op)
	}
	if op == "<>" {
		op = "!="
	}
	val, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return &Comparison{Column: col, Op: op, Value: val}, nil
}

func (p *parser) parsePatternAtom(col, op string) (Expr, error) {
	t := p.cur()
	if t.kind != tkString {
		return nil, p.errf("WHERE", "%s 的模式必须是字符串字面量", op)
	}
	p.next()
	return &Comparison{Column: col, Op: op, Value: t.text}, nil
}

func (p *parser) parseLiteralList() ([]any, error) {
	if !p.acceptSymbol("(") {
		return nil, p.errf("WHERE", "IN 之后缺少 '('")
	}
	var values []any
	for {
		v, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if p.acceptSymbol(",") {
			continue
		}
		break
	}
	if !p.acceptSymbol(")") {
		return nil, p.errf("WHERE", "IN 列表缺少右括号")
	}
	return values, nil
}

// parseLiteral 解析字面量：字符串、数字、TRUE/FALSE/NULL。
func (p *parser) parseLiteral() (any, error) {
	t := p.cur()
	switch {
	case t.kind == tkString:
		p.next()
		return t.text, nil
	case t.kind == tkNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errf("WHERE", "无效的数字字面量 '%s'", t.text)
		}
		p.next()
		return f, nil
	case t.keywordIs("TRUE"):
		p.next()
		return true, nil
	case t.keywordIs("FALSE"):
		p.next()
		return false, nil
	case t.keywordIs("NULL"):
		p.next()
		return nil, nil
	}
	return nil, p.errf("WHERE", "应为字面量，而不是 '%s'（列与列比较不在支持的子集内）", t.text)
}

// isClauseKeyword 判断标识符是否为保留的子句关键字，避免把它误当作列名。
func isClauseKeyword(s string) bool {
	switch strings.ToUpper(s) {
	case "SELECT", "FROM", "WHERE", "GROUP", "BY", "ORDER", "LIMIT",
		"HAVING", "OFFSET", "AND", "OR", "NOT", "IN", "BETWEEN", "LIKE", "ILIKE",
		"AS", "ASC", "DESC", "JOIN", "INNER", "LEFT", "RIGHT":
		return true
	}
	return false
}
