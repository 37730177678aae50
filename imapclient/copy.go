package imapclient

import (
	"bytes"
	"fmt"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// Copy 发送 COPY 命令（numSet 为 UIDSet 时发送 UID COPY）。
//
// 过长的集合会被切分为多条命令。目标邮箱被引荐到其他服务器时，
// 尚未复制的邮件先被完整获取，再连同标志和内部日期追加到目标邮箱。
func (c *Client) Copy(numSet imap.NumSet, mailbox string) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.copy(numSet, mailbox)
}

func (c *Client) copy(numSet imap.NumSet, mailbox string) error {
	name, err := c.uidCmdName("COPY", numSet)
	if err != nil {
		return err
	}
	rest, err := c.executeChunks(name, c.splitSet(name, numSet, len(mailbox)+3), func(enc *imapwire.Encoder) {
		enc.SP().Mailbox(mailbox)
	})
	if err == nil {
		return nil
	}
	// 前面的分段已经复制成功，只有其余的邮件需要经过引荐
	return c.followReferral(err, func(target *Client, mailbox string) error {
		restSet, err := joinChunks(numSet, rest)
		if err != nil {
			return err
		}
		return c.copyByAppend(restSet, target, mailbox)
	})
}

// copyByAppend 在当前会话获取邮件，然后追加到 target 的 mailbox。
func (c *Client) copyByAppend(numSet imap.NumSet, target *Client, mailbox string) error {
	whole := &imap.FetchItemBodySection{Peek: true}
	entries, err := c.fetch(numSet, &imap.FetchOptions{
		Flags:        true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{whole},
	})
	if err != nil {
		return err
	}

	msgs := make([]*imap.AppendMessage, 0, len(entries))
	for _, entry := range entries {
		body, ok := entry.Sections[whole.Key()]
		if !ok {
			return fmt.Errorf("imapclient: 服务器没有返回第 %v 封邮件的内容", entry.SeqNum)
		}
		delete(entry.Sections, whole.Key())

		var flags []imap.Flag
		for _, flag := range c.entryFlags(entry) {
			if flag != imap.FlagRecent {
				flags = append(flags, flag)
			}
		}
		msgs = append(msgs, &imap.AppendMessage{
			AppendOptions: imap.AppendOptions{Flags: flags, Time: entry.InternalDate},
			Size:          int64(len(body)),
			Body:          bytes.NewReader(body),
		})
	}
	_, err = target.appendFrom(mailbox, messageSource(msgs...))
	return err
}
