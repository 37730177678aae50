package imapwire

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// StringKind 是字符串在线路上的表示形式。
type StringKind int

const (
	StringKindAtom StringKind = iota
	StringKindQuoted
	StringKindLiteral
)

// ClassifyString 为 s 选择原子、带引号字符串或字面量三种表示之一。
//
// NUL、CR、LF 和 8 位字节只能出现在字面量中；空串、控制字符、引号、
// 反斜杠和原子特殊字符需要加引号。wildcards 为 true 时 '%' 和 '*' 可以留在原子中。
func ClassifyString(s string, wildcards bool) StringKind {
	if s == "" {
		return StringKindQuoted
	}
	kind := StringKindAtom
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == 0 || ch == '\r' || ch == '\n' || ch >= 0x80:
			return StringKindLiteral
		case wildcards && (ch == '%' || ch == '*'):
		case ch == ']':
		case !IsAtomChar(ch):
			kind = StringKindQuoted
		}
	}
	return kind
}

// Writer 是编码器的输出目标。
type Writer interface {
	io.Writer
	Flush() error
}

// Encoder 把命令参数编码为 IMAP 线路格式。
//
// 所有方法都返回编码器本身以便链式调用；第一个错误被保存下来，之后的写入都被忽略。
type Encoder struct {
	w   Writer
	err error
	buf strings.Builder

	// Continue 在同步字面量的 "{n}" 行发出之后调用，必须阻塞直到服务器发来继续请求。
	// 返回的错误会中止命令，字面量内容不会被发送。
	Continue func() error
	// Trace 接收每一行发出的文本，不含 CRLF 和字面量内容。
	Trace func(line string)
}

// NewEncoder 创建一个写入 w 的编码器。
func NewEncoder(w Writer) *Encoder {
	return &Encoder{w: w}
}

// Err 返回第一个错误。
func (enc *Encoder) Err() error {
	return enc.err
}

// Fail 中止编码。err 成为第一个错误，之后的写入都被忽略，CRLF 也不会再写出。
func (enc *Encoder) Fail(err error) {
	if enc.err == nil {
		enc.err = err
	}
}

func (enc *Encoder) writeString(s string) *Encoder {
	if enc.err != nil {
		return enc
	}
	if _, err := io.WriteString(enc.w, s); err != nil {
		enc.err = err
		return enc
	}
	enc.buf.WriteString(s)
	return enc
}

// flushLine 结束当前行并刷新输出。
func (enc *Encoder) flushLine() {
	if enc.err != nil {
		return
	}
	if _, err := io.WriteString(enc.w, "\r\n"); err != nil {
		enc.err = err
		return
	}
	if err := enc.w.Flush(); err != nil {
		enc.err = err
		return
	}
	if enc.Trace != nil {
		enc.Trace(enc.buf.String())
	}
	enc.buf.Reset()
}

// CRLF 结束命令并刷新，返回编码过程中的第一个错误。
func (enc *Encoder) CRLF() error {
	enc.flushLine()
	return enc.err
}

func (enc *Encoder) Atom(s string) *Encoder {
	return enc.writeString(s)
}

func (enc *Encoder) SP() *Encoder {
	return enc.writeString(" ")
}

func (enc *Encoder) Special(ch byte) *Encoder {
	return enc.writeString(string(ch))
}

func (enc *Encoder) NIL() *Encoder {
	return enc.writeString("NIL")
}

func (enc *Encoder) Number(v uint32) *Encoder {
	return enc.writeString(strconv.FormatUint(uint64(v), 10))
}

func (enc *Encoder) Number64(v int64) *Encoder {
	return enc.writeString(strconv.FormatInt(v, 10))
}

// Quoted 写入带引号的字符串，转义 '"' 和 '\'。
func (enc *Encoder) Quoted(s string) *Encoder {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return enc.writeString(sb.String())
}

func (enc *Encoder) encodeString(s string, wildcards bool) *Encoder {
	switch ClassifyString(s, wildcards) {
	case StringKindAtom:
		return enc.Atom(s)
	case StringKindQuoted:
		return enc.Quoted(s)
	default:
		return enc.Literal(strings.NewReader(s), int64(len(s)))
	}
}

// String 以 astring 的形式写入 s。
func (enc *Encoder) String(s string) *Encoder {
	return enc.encodeString(s, false)
}

// Mailbox 写入邮箱名，INBOX 不区分大小写。
func (enc *Encoder) Mailbox(name string) *Encoder {
	if strings.EqualFold(name, "INBOX") {
		return enc.Atom("INBOX")
	}
	return enc.String(name)
}

// ListMailbox 写入带通配符的 LIST 模式。
func (enc *Encoder) ListMailbox(pattern string) *Encoder {
	return enc.encodeString(pattern, true)
}

// Flag 写入一个标志。系统标志以 '\' 开头，按原样作为原子发送。
func (enc *Encoder) Flag(flag string) *Encoder {
	if strings.HasPrefix(flag, `\`) {
		return enc.Atom(flag)
	}
	return enc.String(flag)
}

// List 写入一个括号列表，f 负责写第 i 个元素。
func (enc *Encoder) List(n int, f func(i int)) *Encoder {
	enc.Special('(')
	for i := 0; i < n; i++ {
		if i > 0 {
			enc.SP()
		}
		f(i)
	}
	return enc.Special(')')
}

// DateTime 写入带引号的 date-time。
func (enc *Encoder) DateTime(t time.Time) *Encoder {
	return enc.Quoted(t.Format(DateTimeLayout))
}

// Literal 写入一个同步字面量：先发送 "{n}" 并等待继续请求，再发送恰好 size 个字节。
func (enc *Encoder) Literal(r io.Reader, size int64) *Encoder {
	enc.writeString(fmt.Sprintf("{%d}", size))
	enc.flushLine()
	if enc.err != nil {
		return enc
	}
	if enc.Continue != nil {
		if err := enc.Continue(); err != nil {
			enc.err = err
			return enc
		}
	}
	n, err := io.CopyN(enc.w, r, size)
	if err != nil {
		enc.err = err
	} else if n != size {
		enc.err = fmt.Errorf("imapwire: 字面量长度不符：声明 %v 字节，实际 %v 字节", size, n)
	}
	return enc
}

// DateTimeLayout 是 INTERNALDATE 和 APPEND 使用的日期时间格式。
const DateTimeLayout = "_2-Jan-2006 15:04:05 -0700"

// DateLayout 是 SEARCH 使用的日期格式。
const DateLayout = "2-Jan-2006"
