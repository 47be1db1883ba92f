// Package natsort 实现“自然排序”：文件名中的数字片段按数值比较，而不是逐字符比较。
//
// 例如 "第2集" 排在 "第10集" 前面；普通字符串比较则相反。
package natsort

import (
	"cmp"
	"slices"
	"strings"
)

// Token 是文件名按“数字串 / 非数字串”边界切分后的一个片段。
type Token struct {
	Text  string
	Digit bool
}

// Tokenize 把 s 切分为交替的非数字串与数字串（只识别 ASCII '0'-'9'）。
//
// 不变量：Join(Tokenize(s)) == s（切分无损）。空串返回 nil。
func Tokenize(s string) []Token {
	if s == "" {
		return nil
	}
	// 按字节扫描即可：UTF-8 多字节序列里不会出现 ASCII 数字。
	toks := make([]Token, 0, 4)
	start := 0
	digit := isDigit(s[0])
	for i := 1; i < len(s); i++ {
		d := isDigit(s[i])
		if d == digit {
			continue
		}
		toks = append(toks, Token{Text: s[start:i], Digit: digit})
		start, digit = i, d
	}
	return append(toks, Token{Text: s[start:], Digit: digit})
}

// Join 是 Tokenize 的逆操作。
func Join(toks []Token) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.Text)
	}
	return b.String()
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

// Kind 区分排序键元素的类型。
type Kind uint8

const (
	KindText Kind = iota
	KindInt
)

// Elem 是排序键中的一个元素：文本（已小写）或整数。
//
// 整数用去掉前导零的十进制串保存，比较时先比长度再比字典序，
// 这样任意长度的数字串都不会溢出。
type Elem struct {
	Kind   Kind
	Text   string
	Digits string
}

func textElem(s string) Elem { return Elem{Kind: KindText, Text: s} }

func intElem(digits string) Elem {
	d := strings.TrimLeft(digits, "0")
	if d == "" {
		d = "0"
	}
	return Elem{Kind: KindInt, Digits: d}
}

// Key 是一个文件名的排序键。
type Key []Elem

// KeyOf 计算 name 的排序键：数字串映射为整数，非数字串映射为小写文本。
//
// 键总是以文本元素开头、文本/整数交替出现（首尾可能是空文本），
// 因此对任意两个文件名，同一位置上的元素类型一致。
func KeyOf(name string) Key {
	toks := Tokenize(name)
	k := make(Key, 0, len(toks)+2)
	if len(toks) == 0 || toks[0].Digit {
		k = append(k, textElem(""))
	}
	for _, t := range toks {
		if t.Digit {
			k = append(k, intElem(t.Text))
			continue
		}
		k = append(k, textElem(strings.ToLower(t.Text)))
	}
	if len(toks) > 0 && toks[len(toks)-1].Digit {
		k = append(k, textElem(""))
	}
	return k
}

// Compare 逐元素比较两个排序键，返回 -1/0/1。
//
// - 整数按数值比较，文本按码点比较
// - 较短的键若是较长键的前缀，则排在前面
// - 同一位置类型不一致时（只可能出现在手工构造的键上），整数排在文本前面
func Compare(a, b Key) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if c := compareElem(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

func compareElem(x, y Elem) int {
	if x.Kind != y.Kind {
		if x.Kind == KindInt {
			return -1
		}
		return 1
	}
	if x.Kind == KindInt {
		if c := cmp.Compare(len(x.Digits), len(y.Digits)); c != 0 {
			return c
		}
		return strings.Compare(x.Digits, y.Digits)
	}
	return strings.Compare(x.Text, y.Text)
}

// CompareStrings 按自然顺序比较两个文件名。
// 排序键相等时（例如 "ep01" 与 "ep1"）回退到原始字节序，保证全序。
func CompareStrings(a, b string) int {
	if c := Compare(KeyOf(a), KeyOf(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// SortFunc 按 name(item) 的自然顺序原地稳定排序 items。
// 每个元素的排序键只计算一次。
func SortFunc[T any](items []T, name func(T) string) {
	type keyed struct {
		key  Key
		raw  string
		item T
	}
	ks := make([]keyed, len(items))
	for i, it := range items {
		n := name(it)
		ks[i] = keyed{key: KeyOf(n), raw: n, item: it}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		if c := Compare(a.key, b.key); c != 0 {
			return c
		}
		return strings.Compare(a.raw, b.raw)
	})
	for i := range ks {
		items[i] = ks[i].item
	}
}
