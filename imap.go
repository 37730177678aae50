// Package imap 包含 IMAP 客户端引擎使用的协议值类型。
//
// 支持的方言从 IMAP2（RFC 1176）、IMAP2bis、IMAP4（RFC 1730）到 IMAP4rev1（RFC 3501），
// 以及 ACL、QUOTA、SORT、THREAD、MULTIAPPEND 和 NAMESPACE 扩展。
// 协议引擎本身位于 imapclient 子包。
package imap

import (
	"fmt"
	"strings"
)

// ConnState 描述连接状态。
//
// 请参见 RFC 3501 第 3 节。
type ConnState int

const (
	ConnStateNone             ConnState = iota // 无状态
	ConnStateNotAuthenticated                  // 未认证
	ConnStateAuthenticated                     // 已认证
	ConnStateSelected                          // 已选择
	ConnStateLogout                            // 登出
)

// String 实现 fmt.Stringer 接口。
func (state ConnState) String() string {
	switch state {
	case ConnStateNone:
		return "none"
	case ConnStateNotAuthenticated:
		return "not authenticated"
	case ConnStateAuthenticated:
		return "authenticated"
	case ConnStateSelected:
		return "selected"
	case ConnStateLogout:
		return "logout"
	default:
		panic(fmt.Errorf("imap: unknown connection state %v", int(state)))
	}
}

// Dialect 是服务器使用的协议方言。
type Dialect int

const (
	DialectIMAP2     Dialect = iota // RFC 1176，不支持 CAPABILITY
	DialectIMAP2bis                 // IMAP2 加 FIND/BODY 等扩展
	DialectIMAP4                    // RFC 1730
	DialectIMAP4rev1                // RFC 2060/3501
)

func (d Dialect) String() string {
	switch d {
	case DialectIMAP2:
		return "IMAP2"
	case DialectIMAP2bis:
		return "IMAP2bis"
	case DialectIMAP4:
		return "IMAP4"
	case DialectIMAP4rev1:
		return "IMAP4rev1"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// AtLeastIMAP4 报告方言是否支持 UID 命令、STATUS 和 LSUB。
func (d Dialect) AtLeastIMAP4() bool {
	return d >= DialectIMAP4
}

// MailboxAttr 是 LIST/LSUB 返回的邮箱属性。
//
// 引擎只识别下面四种属性，其余的被忽略。
type MailboxAttr string

const (
	MailboxAttrNoInferiors MailboxAttr = "\\Noinferiors" // 无下级
	MailboxAttrNoSelect    MailboxAttr = "\\Noselect"    // 不可选择
	MailboxAttrMarked      MailboxAttr = "\\Marked"      // 已标记
	MailboxAttrUnmarked    MailboxAttr = "\\Unmarked"    // 未标记
)

// ParseMailboxAttr 识别一个邮箱属性，不认识的属性返回 false。
func ParseMailboxAttr(s string) (MailboxAttr, bool) {
	for _, attr := range []MailboxAttr{MailboxAttrNoInferiors, MailboxAttrNoSelect, MailboxAttrMarked, MailboxAttrUnmarked} {
		if strings.EqualFold(s, string(attr)) {
			return attr, true
		}
	}
	return "", false
}

// Flag 是消息标志。
//
// 消息标志在 RFC 3501 第 2.3.2 节中定义。
type Flag string

const (
	// 系统标志
	FlagSeen     Flag = "\\Seen"     // 已读
	FlagAnswered Flag = "\\Answered" // 已回复
	FlagFlagged  Flag = "\\Flagged"  // 已标记
	FlagDeleted  Flag = "\\Deleted"  // 已删除
	FlagDraft    Flag = "\\Draft"    // 草稿
	FlagRecent   Flag = "\\Recent"   // 新到达，只能由服务器设置

	// 永久标志
	FlagWildcard Flag = "\\*" // 通配符
)

// SystemFlags 是系统标志的位掩码。
type SystemFlags uint8

const (
	SystemFlagSeen SystemFlags = 1 << iota
	SystemFlagDeleted
	SystemFlagFlagged
	SystemFlagAnswered
	SystemFlagDraft
	SystemFlagRecent
)

var systemFlagNames = []struct {
	bit  SystemFlags
	flag Flag
}{
	{SystemFlagSeen, FlagSeen},
	{SystemFlagDeleted, FlagDeleted},
	{SystemFlagFlagged, FlagFlagged},
	{SystemFlagAnswered, FlagAnswered},
	{SystemFlagDraft, FlagDraft},
	{SystemFlagRecent, FlagRecent},
}

// SystemFlagBit 返回系统标志对应的位，flag 不是系统标志时返回 0。
func SystemFlagBit(flag Flag) SystemFlags {
	for _, f := range systemFlagNames {
		if strings.EqualFold(string(flag), string(f.flag)) {
			return f.bit
		}
	}
	return 0
}

// Flags 展开位掩码。
func (f SystemFlags) Flags() []Flag {
	var l []Flag
	for _, sf := range systemFlagNames {
		if f&sf.bit != 0 {
			l = append(l, sf.flag)
		}
	}
	return l
}

// UID 是消息的唯一标识符。
type UID uint32
