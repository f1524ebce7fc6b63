// Package exec file: internal/engine/exec/compare.go
//
// 值比较规则集中在此文件：两侧均可转数值时按数值比较，
// 否则退化为大小写不敏感的字符串比较。排序与范围谓词共用同一套规则，
// 保证 "WHERE x > 5 ORDER BY x" 这类组合的行为自洽。
package exec

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// toNumber 尝试把任意值转换为 float64。
// JSON 解码产物是 float64，但文件数据源与测试数据中也会出现 Go 原生整型。
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// compareValues 返回 -1/0/1。
// nil 视为最小值；两侧均为数值按数值序，否则按大小写不敏感的字符串序。
func compareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	fa, okA := toNumber(a)
	fb, okB := toNumber(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(strings.ToLower(stringify(a)), strings.ToLower(stringify(b)))
}

// equalValues 判断相等：数值按数值相等（3 == 3.0），字符串精确匹配，
// 布尔与 nil 按原值比较，其余类型退化为字符串表示比较。
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	fa, okA := toNumber(a)
	fb, okB := toNumber(b)
	if okA && okB {
		return fa == fb
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return sa == sb
	}
	ba, okA := a.(bool)
	bb, okB := b.(bool)
	if okA && okB {
		return ba == bb
	}
	return stringify(a) == stringify(b)
}

// stringify 产生值的规范字符串表示。
// 整数值的 float64 不带小数点（分组键 "3" 与 3.0 归并为同一组）。
func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	if f, ok := toNumber(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
