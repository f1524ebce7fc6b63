// Package sqlparse file: internal/engine/sqlparse/token.go
package sqlparse

import (
	"strings"
	"unicode"
)

// token 种类
type tokenKind int

const (
	tkEOF tokenKind = iota
	tkIdent
	tkNumber
	tkString
	tkSymbol // ( ) , * 以及比较操作符
)

type token struct {
	kind tokenKind
	text string // 标识符/符号原文；字符串 token 存放去引号、去转义后的值
	pos  int    // 在原始查询文本中的字节偏移
}

// keywordIs 判断一个 token 是否为给定关键字（关键字大小写不敏感，标识符大小写敏感）。
func (t token) keywordIs(kw string) bool {
	return t.kind == tkIdent && strings.EqualFold(t.text, kw)
}

// tokenize 将查询文本切分为 token 序列。
// 支持：标识符 [A-Za-z_][A-Za-z0-9_.]*、数字字面量、单引号字符串（'' 转义）、
// 符号 ( ) , * 与比较操作符 = != <> < > <= >=。
func tokenize(input string) ([]token, *ParseError) {
	var toks []token
	i := 0
	n := len(input)

	for i < n {
		c := input[i]

		// 跳过空白
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			i++
			continue
		}

		start := i

		switch {
		// 字符串字面量：单引号，内部 '' 表示一个单引号
		case c == '\'':
			i++
			var sb strings.Builder
			closed := false
			for i < n {
				if input[i] == '\'' {
					if i+1 < n && input[i+1] == '\'' {
						sb.WriteByte('\'')
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				sb.WriteByte(input[i])
				i++
			}
			if !closed {
				return nil, &ParseError{Pos: start, Msg: "字符串字面量未闭合"}
			}
			toks = append(toks, token{kind: tkString, text: sb.String(), pos: start})

		// 数字字面量，允许前导负号
		case c >= '0' && c <= '9' || (c == '-' && i+1 < n && input[i+1] >= '0' && input[i+1] <= '9'):
			i++
			for i < n && (input[i] >= '0' && input[i] <= '9' || input[i] == '.') {
				i++
			}
			toks = append(toks, token{kind: tkNumber, text: input[start:i], pos: start})

		// 标识符 / 关键字
		case isIdentStart(rune(c)):
			for i < n && isIdentPart(rune(input[i])) {
				i++
			}
			toks = append(toks, token{kind: tkIdent, text: input[start:i], pos: start})

		// 双字符操作符优先
		case c == '!' || c == '<' || c == '>':
			if i+1 < n && (input[i+1] == '=' || (c == '<' && input[i+1] == '>')) {
				toks = append(toks, token{kind: tkSymbol, text: input[i : i+2], pos: start})
				i += 2
			} else if c == '!' {
				return nil, &ParseError{Pos: start, Msg: "孤立的 '!' 不是有效操作符"}
			} else {
				toks = append(toks, token{kind: tkSymbol, text: string(c), pos: start})
				i++
			}

		case c == '=' || c == '(' || c == ')' || c == ',' || c == '*':
			toks = append(toks, token{kind: tkSymbol, text: string(c), pos: start})
			i++

		// 末尾分号直接忽略（常见的粘贴残留）
		case c == ';':
			i++

		default:
			return nil, &ParseError{Pos: start, Msg: "无法识别的字符 '" + string(c) + "'"}
		}
	}

	toks = append(toks, token{kind: tkEOF, pos: n})
	return toks, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
