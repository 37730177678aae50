package imapclient

import (
	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// Select 发送 SELECT 或 EXAMINE 命令。
//
// 重新选择（包括选择同一个邮箱）会清空邮件缓存。失败时会话回到已认证状态。
// 服务器返回 [REFERRAL] 时错误的 Arg 是目标 URL，由 Pool.Open 负责跟随。
// nil 的选项指针等同于零选项值。
func (c *Client) Select(mailbox string, options *imap.SelectOptions) (*imap.SelectData, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.selectMailbox(mailbox, options)
}

func (c *Client) selectMailbox(mailbox string, options *imap.SelectOptions) (*imap.SelectData, error) {
	readOnly := options != nil && options.ReadOnly
	cmdName := "SELECT"
	if readOnly {
		cmdName = "EXAMINE"
	}

	c.mailbox = &imap.SelectData{Mailbox: mailbox, ReadOnly: readOnly}
	c.userFlags = c.userFlags[:0]
	c.sortResult = nil
	c.threadResult = nil
	c.cache.Reset()

	err := c.execute(cmdName, func(enc *imapwire.Encoder) {
		enc.SP().Mailbox(mailbox)
	})
	if err != nil {
		c.mailbox = nil
		c.cache.Reset()
		if c.dead == nil {
			c.state = imap.ConnStateAuthenticated
		}
		return nil, err
	}

	c.state = imap.ConnStateSelected
	data := *c.mailbox
	return &data, nil
}

// CloseMailbox 发送 CLOSE 命令：静默删除带 \Deleted 标志的邮件并取消选择。
func (c *Client) CloseMailbox() error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if err := c.execute("CLOSE", nil); err != nil {
		return err
	}
	c.mailbox = nil
	c.cache.Reset()
	c.state = imap.ConnStateAuthenticated
	return nil
}
