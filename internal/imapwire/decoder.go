package imapwire

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// IsAtomChar 判断 ch 是否可以出现在原子中。
func IsAtomChar(ch byte) bool {
	switch ch {
	case '(', ')', '{', ' ', '%', '*', '"', '\\', ']':
		return false
	default:
		return ch > 0x1f && ch < 0x7f
	}
}

// IsAStringChar 与 IsAtomChar 相同，但额外允许 ']'。
func IsAStringChar(ch byte) bool {
	return ch == ']' || IsAtomChar(ch)
}

// ParseError 记录解码器遇到的第一个语法错误。
type ParseError struct {
	Expected string
	Got      string
}

func (err *ParseError) Error() string {
	return fmt.Sprintf("imapwire: 期望 %v，得到 %q", err.Expected, err.Got)
}

// Decoder 是当前响应文本上的游标。
//
// 遇到行尾的字面量 "{n}" 时，它从 Source 精确读取 n 个字节，再读取下一行，
// 之后的解析从字面量之后的文本继续。解码器只记录第一个错误，Expect 系列方法
// 在出错后都返回 false。
type Decoder struct {
	src Source
	s   string
	pos int
	err error
}

// NewDecoder 在 text 上创建解码器。src 为 nil 时遇到字面量会报错。
func NewDecoder(src Source, text string) *Decoder {
	return &Decoder{src: src, s: text}
}

// Err 返回第一个错误。
func (dec *Decoder) Err() error {
	return dec.err
}

// EOL 报告当前行是否已经读完。
func (dec *Decoder) EOL() bool {
	return dec.pos >= len(dec.s)
}

// Rest 返回当前行中尚未消费的部分。
func (dec *Decoder) Rest() string {
	return dec.s[dec.pos:]
}

func (dec *Decoder) peek() (byte, bool) {
	if dec.EOL() {
		return 0, false
	}
	return dec.s[dec.pos], true
}

func (dec *Decoder) acceptByte(ch byte) bool {
	if b, ok := dec.peek(); ok && b == ch {
		dec.pos++
		return true
	}
	return false
}

func (dec *Decoder) setErr(err error) {
	if dec.err == nil {
		dec.err = err
	}
}

// Expect 在 ok 为 false 时记录错误。
func (dec *Decoder) Expect(ok bool, name string) bool {
	if !ok {
		got := dec.Rest()
		if len(got) > 32 {
			got = got[:32] + "..."
		}
		dec.setErr(&ParseError{Expected: name, Got: got})
	}
	return ok
}

// SP 消费一个空格。
func (dec *Decoder) SP() bool {
	return dec.acceptByte(' ')
}

func (dec *Decoder) ExpectSP() bool {
	return dec.Expect(dec.SP(), "SP")
}

// Special 消费一个指定的字符。
func (dec *Decoder) Special(ch byte) bool {
	return dec.acceptByte(ch)
}

func (dec *Decoder) ExpectSpecial(ch byte) bool {
	return dec.Expect(dec.Special(ch), strconv.QuoteRune(rune(ch)))
}

// Func 消费满足 valid 的最长前缀。至少消费一个字符时返回 true。
func (dec *Decoder) Func(ptr *string, valid func(ch byte) bool) bool {
	start := dec.pos
	for !dec.EOL() && valid(dec.s[dec.pos]) {
		dec.pos++
	}
	*ptr = dec.s[start:dec.pos]
	return dec.pos > start
}

// Atom 读取一个原子。
func (dec *Decoder) Atom(ptr *string) bool {
	return dec.Func(ptr, IsAtomChar)
}

func (dec *Decoder) ExpectAtom(ptr *string) bool {
	return dec.Expect(dec.Atom(ptr), "atom")
}

// Until 读取到 ch 之前的所有字符（不消费 ch）。本行没有 ch 时返回 false。
func (dec *Decoder) Until(ch byte, ptr *string) bool {
	i := strings.IndexByte(dec.Rest(), ch)
	if i < 0 {
		return false
	}
	*ptr = dec.s[dec.pos : dec.pos+i]
	dec.pos += i
	return true
}

// Text 读取本行剩余的全部文本。
func (dec *Decoder) Text(ptr *string) {
	*ptr = dec.Rest()
	dec.pos = len(dec.s)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Number 读取一个 32 位无符号数。
func (dec *Decoder) Number(ptr *uint32) bool {
	var s string
	start := dec.pos
	if !dec.Func(&s, isDigit) {
		return false
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		dec.pos = start
		return false
	}
	*ptr = uint32(v)
	return true
}

func (dec *Decoder) ExpectNumber(ptr *uint32) bool {
	return dec.Expect(dec.Number(ptr), "number")
}

// Number64 读取一个 63 位无符号数。
func (dec *Decoder) Number64(ptr *int64) bool {
	var s string
	start := dec.pos
	if !dec.Func(&s, isDigit) {
		return false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		dec.pos = start
		return false
	}
	*ptr = v
	return true
}

func (dec *Decoder) ExpectNumber64(ptr *int64) bool {
	return dec.Expect(dec.Number64(ptr), "number64")
}

// Quoted 读取带引号的字符串并去掉转义。
func (dec *Decoder) Quoted(ptr *string) bool {
	if !dec.Special('"') {
		return false
	}
	var sb strings.Builder
	for {
		ch, ok := dec.peek()
		if !ok {
			return dec.Expect(false, `'"'`)
		}
		dec.pos++
		switch ch {
		case '"':
			*ptr = sb.String()
			return true
		case '\\':
			next, ok := dec.peek()
			if !ok {
				return dec.Expect(false, "quoted-specials")
			}
			dec.pos++
			sb.WriteByte(next)
		default:
			sb.WriteByte(ch)
		}
	}
}

// literalHeader 解析位于行尾的 "{n}"。
func (dec *Decoder) literalHeader() (int64, bool) {
	rest := dec.Rest()
	if !strings.HasPrefix(rest, "{") {
		return 0, false
	}
	end := strings.IndexByte(rest, '}')
	if end < 0 || end != len(rest)-1 {
		return 0, dec.Expect(false, "literal")
	}
	n, err := strconv.ParseInt(rest[1:end], 10, 64)
	if err != nil || n < 0 {
		return 0, dec.Expect(false, "literal size")
	}
	dec.pos = len(dec.s)
	return n, true
}

// readLiteral 读取 n 个字节写入 w，然后取下一行继续解析。
func (dec *Decoder) readLiteral(w io.Writer, n int64) bool {
	if dec.src == nil {
		dec.setErr(fmt.Errorf("imapwire: 无法读取 %v 字节的字面量：没有数据源", n))
		return false
	}
	if err := dec.src.ReadLiteral(w, n); err != nil {
		dec.setErr(err)
		return false
	}
	line, err := dec.src.ReadLine()
	if err != nil {
		dec.setErr(err)
		return false
	}
	dec.s = string(line)
	dec.pos = 0
	return true
}

// LiteralTo 把字面量内容直接写入 w，返回字节数。
func (dec *Decoder) LiteralTo(w io.Writer) (int64, bool) {
	n, ok := dec.literalHeader()
	if !ok {
		return 0, false
	}
	if !dec.readLiteral(w, n) {
		return 0, false
	}
	return n, true
}

// Literal 把字面量内容读入 ptr。
func (dec *Decoder) Literal(ptr *string) bool {
	var sb strings.Builder
	if _, ok := dec.LiteralTo(&sb); !ok {
		return false
	}
	*ptr = sb.String()
	return true
}

// String 读取带引号的字符串或字面量。
func (dec *Decoder) String(ptr *string) bool {
	return dec.Quoted(ptr) || dec.Literal(ptr)
}

func (dec *Decoder) ExpectString(ptr *string) bool {
	return dec.Expect(dec.String(ptr), "string")
}

// AString 读取 astring：原子、带引号的字符串或字面量。
func (dec *Decoder) AString(ptr *string) bool {
	if ch, ok := dec.peek(); ok && (ch == '"' || ch == '{') {
		return dec.String(ptr)
	}
	return dec.Func(ptr, IsAStringChar)
}

func (dec *Decoder) ExpectAString(ptr *string) bool {
	return dec.Expect(dec.AString(ptr), "astring")
}

// NIL 消费不区分大小写的 "NIL"。
func (dec *Decoder) NIL() bool {
	rest := dec.Rest()
	if len(rest) < 3 || !strings.EqualFold(rest[:3], "NIL") {
		return false
	}
	if len(rest) > 3 && IsAtomChar(rest[3]) {
		return false
	}
	dec.pos += 3
	return true
}

func (dec *Decoder) ExpectNIL() bool {
	return dec.Expect(dec.NIL(), "NIL")
}

// NString 读取 nstring。NIL 得到空字符串。
func (dec *Decoder) NString(ptr *string) bool {
	if dec.NIL() {
		*ptr = ""
		return true
	}
	return dec.String(ptr)
}

func (dec *Decoder) ExpectNString(ptr *string) bool {
	return dec.Expect(dec.NString(ptr), "nstring")
}

// NStringTo 把 nstring 的内容写入 w（字面量直接流式写入）。
// 返回值 isNil 表示读到的是 NIL。
func (dec *Decoder) NStringTo(w io.Writer) (isNil, ok bool) {
	if dec.NIL() {
		return true, true
	}
	var s string
	if dec.Quoted(&s) {
		_, err := io.WriteString(w, s)
		if err != nil {
			dec.setErr(err)
			return false, false
		}
		return false, true
	}
	_, ok = dec.LiteralTo(w)
	return false, ok
}

// ExpectNStringTo 与 NStringTo 相同，但失败时记录错误。
func (dec *Decoder) ExpectNStringTo(w io.Writer) (isNil, ok bool) {
	isNil, ok = dec.NStringTo(w)
	dec.Expect(ok, "nstring")
	return isNil, ok
}

// Flag 读取一个标志，例如 "\Seen"、"$Junk" 或 "\*"。
func (dec *Decoder) Flag(ptr *string) bool {
	if dec.Special('\\') {
		if dec.Special('*') {
			*ptr = `\*`
			return true
		}
		var name string
		if !dec.Atom(&name) {
			return dec.Expect(false, "flag-extension")
		}
		*ptr = `\` + name
		return true
	}
	return dec.Atom(ptr)
}

func (dec *Decoder) ExpectFlag(ptr *string) bool {
	return dec.Expect(dec.Flag(ptr), "flag")
}

// List 解析以空格分隔的括号列表，对每个元素调用 f。
// 当前位置不是 '(' 时返回 isList == false。
func (dec *Decoder) List(f func() error) (isList bool, err error) {
	if !dec.Special('(') {
		return false, nil
	}
	if dec.Special(')') {
		return true, nil
	}
	for {
		if err := f(); err != nil {
			return true, err
		}
		if dec.Special(')') {
			return true, nil
		}
		if !dec.ExpectSP() {
			return true, dec.Err()
		}
	}
}

// ExpectList 与 List 相同，但要求必须是列表。
func (dec *Decoder) ExpectList(f func() error) error {
	isList, err := dec.List(f)
	if err != nil {
		return err
	} else if !dec.Expect(isList, "(") {
		return dec.Err()
	}
	return nil
}

// ExpectNList 接受 NIL 或列表。
func (dec *Decoder) ExpectNList(f func() error) error {
	if dec.NIL() {
		return nil
	}
	return dec.ExpectList(f)
}

// DiscardValue 跳过一个任意的值：嵌套列表、带引号的字符串、字面量、数字、NIL 或原子。
// 列表元素之间缺少空格的情况也能容忍。
func (dec *Decoder) DiscardValue() bool {
	ch, ok := dec.peek()
	if !ok {
		return dec.Expect(false, "value")
	}
	switch ch {
	case '(':
		dec.pos++
		for {
			if dec.Special(')') {
				return true
			}
			if dec.SP() {
				continue
			}
			if !dec.DiscardValue() {
				return false
			}
		}
	case '"':
		var s string
		return dec.Quoted(&s)
	case '{':
		_, ok := dec.LiteralTo(io.Discard)
		return ok
	default:
		var s string
		return dec.Expect(dec.Func(&s, func(ch byte) bool {
			return ch != ' ' && ch != '(' && ch != ')'
		}), "value")
	}
}

// Drain 丢弃当前行剩余的内容；行尾若有字面量，则连同字面量及其后续行一并读走，
// 保证未解析的响应不会使数据流失去同步。
func (dec *Decoder) Drain() error {
	for dec.src != nil {
		rest := dec.Rest()
		i := strings.LastIndexByte(rest, '{')
		if i < 0 || !strings.HasSuffix(rest, "}") {
			break
		}
		n, err := strconv.ParseInt(rest[i+1:len(rest)-1], 10, 64)
		if err != nil || n < 0 {
			break
		}
		dec.pos += i
		if !dec.readLiteral(io.Discard, n) {
			return dec.err
		}
	}
	dec.pos = len(dec.s)
	return nil
}
