package imapwire

import (
	"errors"
	"strings"
)

// ErrBogon 表示一行没有标签或没有关键字，不构成合法的响应。
var ErrBogon = errors.New("imapwire: 无法识别的响应行")

// Reply 是一行服务器响应拆分后的结果。
//
// 带标签响应的 Key 是大写的状态字（OK、NO、BAD）；未标记响应的 Key 是
// 数据类型（如 FLAGS、LIST）或消息编号（如 "* 5 EXISTS" 中的 "5"）。
// 继续请求（"+"）的 Key 固定为 "BAD"，Text 是 "+" 之后的全部内容。
type Reply struct {
	Tag  string
	Key  string
	Text string
}

// IsContinuation 报告这是否是继续请求。
func (r *Reply) IsContinuation() bool {
	return r.Tag == "+"
}

// IsUntagged 报告这是否是未标记响应。
func (r *Reply) IsUntagged() bool {
	return r.Tag == "*"
}

// ParseReply 把一行拆分成 {tag, key, text}。
func ParseReply(line string) (*Reply, error) {
	tag, rest, _ := strings.Cut(line, " ")
	if tag == "" {
		return nil, ErrBogon
	}
	if tag == "+" {
		return &Reply{Tag: tag, Key: "BAD", Text: rest}, nil
	}

	key, text, _ := strings.Cut(rest, " ")
	if key == "" {
		return nil, ErrBogon
	}
	return &Reply{Tag: tag, Key: strings.ToUpper(key), Text: text}, nil
}

// String 重新组装这一行，主要用于日志。
func (r *Reply) String() string {
	if r.IsContinuation() {
		return "+ " + r.Text
	}
	s := r.Tag + " " + r.Key
	if r.Text != "" {
		s += " " + r.Text
	}
	return s
}
