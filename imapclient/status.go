package imapclient

import (
	"fmt"
	"strings"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// Status 发送 STATUS 命令。需要 IMAP4 或更新的服务器。
//
// nil 的选项指针表示请求全部五项。
func (c *Client) Status(mailbox string, options *imap.StatusOptions) (*imap.StatusData, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if !c.dialect.AtLeastIMAP4() {
		return nil, ErrNotSupported
	}
	if options == nil {
		options = &imap.StatusOptions{NumMessages: true, NumRecent: true, UIDNext: true, UIDValidity: true, NumUnseen: true}
	}
	items := statusItems(options)
	if len(items) == 0 {
		return nil, fmt.Errorf("imapclient: STATUS 至少需要一个数据项")
	}

	var data *imap.StatusData
	pd := &pendingData{status: func(d *imap.StatusData) {
		if strings.EqualFold(d.Mailbox, mailbox) || data == nil {
			data = d
		}
	}}
	err := c.executeWith(pd, "STATUS", func(enc *imapwire.Encoder) {
		enc.SP().Mailbox(mailbox).SP().List(len(items), func(i int) {
			enc.Atom(items[i])
		})
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("imapclient: 服务器没有返回 %v 的状态", mailbox)
	}
	return data, nil
}

func statusItems(options *imap.StatusOptions) []string {
	var items []string
	if options.NumMessages {
		items = append(items, "MESSAGES")
	}
	if options.NumRecent {
		items = append(items, "RECENT")
	}
	if options.UIDNext {
		items = append(items, "UIDNEXT")
	}
	if options.UIDValidity {
		items = append(items, "UIDVALIDITY")
	}
	if options.NumUnseen {
		items = append(items, "UNSEEN")
	}
	return items
}

// readStatus 读取 "* STATUS mailbox (MESSAGES 3 UNSEEN 1)"。
func (c *Client) readStatus(dec *imapwire.Decoder) (*imap.StatusData, error) {
	var data imap.StatusData
	if !dec.ExpectAString(&data.Mailbox) {
		return nil, dec.Err()
	}
	dec.SP()

	err := dec.ExpectList(func() error {
		var name string
		if !dec.ExpectAtom(&name) || !dec.ExpectSP() {
			return dec.Err()
		}
		var num uint32
		switch strings.ToUpper(name) {
		case "MESSAGES":
			if dec.ExpectNumber(&num) {
				data.NumMessages = &num
			}
		case "RECENT":
			if dec.ExpectNumber(&num) {
				data.NumRecent = &num
			}
		case "UIDNEXT":
			if dec.ExpectNumber(&num) {
				data.UIDNext = imap.UID(num)
			}
		case "UIDVALIDITY":
			dec.ExpectNumber(&data.UIDValidity)
		case "UNSEEN":
			if dec.ExpectNumber(&num) {
				data.NumUnseen = &num
			}
		default:
			c.log.WithField("item", name).Warn("imapclient: 忽略未知的 STATUS 数据项")
			dec.DiscardValue()
		}
		return dec.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("在 STATUS 数据中: %w", err)
	}
	return &data, nil
}
