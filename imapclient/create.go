package imapclient

import (
	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// mailboxCommand 发送只带一个邮箱参数的命令，必要时跟随引荐。
func (c *Client) mailboxCommand(name, mailbox string) error {
	err := c.execute(name, func(enc *imapwire.Encoder) {
		enc.SP().Mailbox(mailbox)
	})
	return c.followReferral(err, func(target *Client, mailbox string) error {
		return target.execute(name, func(enc *imapwire.Encoder) {
			enc.SP().Mailbox(mailbox)
		})
	})
}

// Create 发送 CREATE 命令。
func (c *Client) Create(mailbox string) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.mailboxCommand("CREATE", mailbox)
}

// Delete 发送 DELETE 命令。
func (c *Client) Delete(mailbox string) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.mailboxCommand("DELETE", mailbox)
}

// Rename 发送 RENAME 命令。被引荐到别的服务器时，新名称保持不变。
func (c *Client) Rename(mailbox, newName string) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	rename := func(c *Client, mailbox string) error {
		return c.execute("RENAME", func(enc *imapwire.Encoder) {
			enc.SP().Mailbox(mailbox).SP().Mailbox(newName)
		})
	}
	return c.followReferral(rename(c, mailbox), rename)
}

// Subscribe 发送 SUBSCRIBE 命令。IMAP2bis 服务器使用 "SUBSCRIBE MAILBOX"。
func (c *Client) Subscribe(mailbox string) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.mailboxCommand(c.subscribeCmdName("SUBSCRIBE"), mailbox)
}

// Unsubscribe 发送 UNSUBSCRIBE 命令。
func (c *Client) Unsubscribe(mailbox string) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.mailboxCommand(c.subscribeCmdName("UNSUBSCRIBE"), mailbox)
}

func (c *Client) subscribeCmdName(name string) string {
	if c.dialect < imap.DialectIMAP4 {
		return name + " MAILBOX"
	}
	return name
}
