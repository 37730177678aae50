package imapclient

import (
	"github.com/luhaoyun888/go-imapdriver"
)

// Capability 发送 CAPABILITY 命令，返回更新后的能力集合。
//
// IMAP2 服务器不认识这个命令，此时返回 BAD 错误，能力集合为 nil。
func (c *Client) Capability() (imap.CapSet, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	err := c.capability()
	return c.caps, err
}

// capability 刷新能力。未标记的 "* CAPABILITY" 在分派时写入 c.caps。
func (c *Client) capability() error {
	if err := c.execute("CAPABILITY", nil); err != nil {
		if !imap.IsClosed(err) {
			c.caps = nil
			c.authMechs = nil
		}
		return err
	}
	return nil
}
