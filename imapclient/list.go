package imapclient

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// List 发送 LIST（或 LSUB）命令，返回匹配的邮箱。
//
// IMAP2bis 服务器没有 LIST，此时改用 FIND ALL.MAILBOXES（订阅列表用 FIND MAILBOXES），
// 引用名直接拼接在模式前面。Prefix 被加在每个返回的邮箱名前面。
// nil 的选项指针等同于零选项值。
func (c *Client) List(ref, pattern string, options *imap.ListOptions) ([]*imap.ListData, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if options == nil {
		options = &imap.ListOptions{}
	}

	var l []*imap.ListData
	collect := func(data *imap.ListData) {
		l = append(l, data)
	}
	pd := &pendingData{}
	if options.Subscribed {
		pd.lsub = collect
	} else {
		pd.list = collect
	}

	c.listPrefix = options.Prefix
	defer func() { c.listPrefix = "" }()

	var err error
	switch {
	case c.dialect.AtLeastIMAP4():
		name := "LIST"
		if options.Subscribed {
			name = "LSUB"
		}
		if options.Remote && c.caps.Has(imap.CapMailboxReferrals) {
			name = "R" + name
		}
		err = c.executeWith(pd, name, func(enc *imapwire.Encoder) {
			enc.SP().Mailbox(ref).SP().ListMailbox(pattern)
		})
	case c.dialect == imap.DialectIMAP2bis:
		name := "FIND ALL.MAILBOXES"
		if options.Subscribed {
			name = "FIND MAILBOXES"
		}
		err = c.executeWith(pd, name, func(enc *imapwire.Encoder) {
			enc.SP().ListMailbox(ref + pattern)
		})
	default:
		return nil, ErrNotSupported
	}
	return l, err
}

// readList 读取 LIST/LSUB 响应：(属性) 分隔符 邮箱名 [扩展]。
func (c *Client) readList(dec *imapwire.Decoder) (*imap.ListData, error) {
	var data imap.ListData

	err := dec.ExpectList(func() error {
		var attr string
		if !dec.ExpectFlag(&attr) {
			return dec.Err()
		}
		if a, ok := imap.ParseMailboxAttr(attr); ok {
			data.Attrs = append(data.Attrs, a)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("在邮箱属性中: %w", err)
	}

	if !dec.ExpectSP() {
		return nil, dec.Err()
	}
	data.Delim, err = readDelim(dec)
	if err != nil {
		return nil, err
	}

	var name string
	if !dec.ExpectSP() || !dec.ExpectAString(&name) {
		return nil, dec.Err()
	}
	if strings.EqualFold(name, "INBOX") {
		name = "INBOX"
	}
	data.Mailbox = c.listPrefix + name

	// LIST 扩展数据
	for dec.SP() {
		if !dec.DiscardValue() {
			return nil, dec.Err()
		}
	}
	return &data, nil
}

// readDelim 读取层级分隔符，NIL 表示没有分隔符。
func readDelim(dec *imapwire.Decoder) (rune, error) {
	if dec.NIL() {
		return 0, nil
	}
	var s string
	if !dec.ExpectString(&s) {
		return 0, dec.Err()
	}
	delim, size := utf8.DecodeRuneInString(s)
	if delim == utf8.RuneError || size != len(s) {
		return 0, fmt.Errorf("imapclient: 分隔符必须是单个字符，得到 %q", s)
	}
	return delim, nil
}
