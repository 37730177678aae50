package imapclient

import (
	"github.com/luhaoyun888/go-imapdriver"
)

// Move 把邮件复制到 mailbox，然后在当前邮箱中给它们加上 \Deleted 标志。
//
// 邮件不会被立即删除，直到调用 Expunge 或 CloseMailbox。复制失败时不设置标志。
func (c *Client) Move(numSet imap.NumSet, mailbox string) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if err := c.copy(numSet, mailbox); err != nil {
		return err
	}
	_, err := c.store(numSet, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagDeleted},
	})
	return err
}
