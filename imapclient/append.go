package imapclient

import (
	"strings"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// AppendSource 依次提供待追加的邮件，没有更多邮件时返回 nil, nil。
type AppendSource func() (*imap.AppendMessage, error)

// Append 发送 APPEND 命令追加一封邮件。
func (c *Client) Append(mailbox string, msg *imap.AppendMessage) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.appendWithReferral(mailbox, messageSource(msg))
}

// MultiAppend 追加 src 提供的所有邮件。
//
// 邮件逐封从 src 取出，上一封写完之后才会取下一封。服务器支持 MULTIAPPEND 时
// 所有邮件在一条命令中发送，要么全部成功要么全部失败；这时 src 中途出错会断开连接，
// 服务器因此放弃整条命令。否则每封邮件单独发送 APPEND，在第一个失败处停止。
// src 一封邮件也没有提供时发送一个空的字面量。
func (c *Client) MultiAppend(mailbox string, src AppendSource) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.appendWithReferral(mailbox, src)
}

// messageSource 依次提供 msgs。
func messageSource(msgs ...*imap.AppendMessage) AppendSource {
	return func() (*imap.AppendMessage, error) {
		if len(msgs) == 0 {
			return nil, nil
		}
		msg := msgs[0]
		msgs = msgs[1:]
		return msg, nil
	}
}

// chainSource 先取完 first 再取 next。
func chainSource(first, next AppendSource) AppendSource {
	return func() (*imap.AppendMessage, error) {
		msg, err := first()
		if msg != nil || err != nil {
			return msg, err
		}
		return next()
	}
}

func (c *Client) appendWithReferral(mailbox string, src AppendSource) error {
	failed, err := c.appendFrom(mailbox, src)
	return c.followReferral(err, func(target *Client, mailbox string) error {
		var err error
		failed, err = target.appendFrom(mailbox, chainSource(messageSource(failed...), src))
		return err
	})
}

// appendFrom 从 src 逐封追加邮件。失败时返回失败的那条命令中的邮件，
// 供引荐之后在目标服务器上重新追加。
func (c *Client) appendFrom(mailbox string, src AppendSource) ([]*imap.AppendMessage, error) {
	msg, err := src()
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, c.execute("APPEND", func(enc *imapwire.Encoder) {
			enc.SP().Mailbox(mailbox).SP().Literal(strings.NewReader(""), 0)
		})
	}
	if c.caps.Has(imap.CapMultiAppend) {
		return c.multiAppend(mailbox, msg, src)
	}

	for msg != nil {
		err := c.execute("APPEND", func(enc *imapwire.Encoder) {
			enc.SP().Mailbox(mailbox)
			writeAppendData(enc, msg)
		})
		if err != nil {
			return []*imap.AppendMessage{msg}, err
		}
		if msg, err = src(); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// multiAppend 在一条 APPEND 命令中写出 first 和 src 其余的邮件。
func (c *Client) multiAppend(mailbox string, first *imap.AppendMessage, src AppendSource) ([]*imap.AppendMessage, error) {
	sent := []*imap.AppendMessage{first}
	var srcErr error
	err := c.execute("APPEND", func(enc *imapwire.Encoder) {
		enc.SP().Mailbox(mailbox)
		writeAppendData(enc, first)
		for enc.Err() == nil {
			msg, err := src()
			if err != nil {
				srcErr = err
				enc.Fail(err)
				return
			}
			if msg == nil {
				return
			}
			sent = append(sent, msg)
			writeAppendData(enc, msg)
		}
	})
	if srcErr != nil {
		return nil, srcErr
	}
	if err != nil {
		return sent, err
	}
	return nil, nil
}

// writeAppendData 写出 " [(flags)] ["date-time"] {size}" 和邮件内容。
func writeAppendData(enc *imapwire.Encoder, msg *imap.AppendMessage) {
	if len(msg.Flags) > 0 {
		enc.SP().List(len(msg.Flags), func(i int) {
			enc.Flag(string(msg.Flags[i]))
		})
	}
	if !msg.Time.IsZero() {
		enc.SP().DateTime(msg.Time)
	}
	enc.SP().Literal(msg.Body, msg.Size)
}
