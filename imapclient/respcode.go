package imapclient

import (
	"strconv"
	"strings"

	"github.com/emersion/go-sasl"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// handleRespText 解析状态响应文本开头的 "[CODE arg]"，并把它作用到会话状态上。
//
// 返回的状态响应中 Text 不含响应代码。
func (c *Client) handleRespText(typ imap.StatusResponseType, text string) *imap.StatusResponse {
	resp := &imap.StatusResponse{Type: typ, Text: text}
	if !strings.HasPrefix(text, "[") {
		return resp
	}
	end := strings.IndexByte(text, ']')
	if end < 0 {
		c.log.WithField("text", text).Warn("imapclient: 响应代码缺少 ']'")
		return resp
	}

	name, arg, _ := strings.Cut(text[1:end], " ")
	resp.Code = imap.ResponseCode(strings.ToUpper(name))
	resp.Arg = arg
	resp.Text = strings.TrimPrefix(text[end+1:], " ")

	switch resp.Code {
	case imap.ResponseCodeUIDValidity:
		if n, ok := c.parseCodeNumber(resp); ok {
			c.setUIDValidity(uint32(n))
		}
	case imap.ResponseCodeUIDNext:
		if n, ok := c.parseCodeNumber(resp); ok && c.mailbox != nil {
			c.mailbox.UIDNext = imap.UID(n)
		}
	case imap.ResponseCodeUnseen:
		if n, ok := c.parseCodeNumber(resp); ok && c.mailbox != nil {
			c.mailbox.FirstUnseen = uint32(n)
		}
	case imap.ResponseCodePermanentFlags:
		dec := imapwire.NewDecoder(nil, arg)
		flags, err := internal.ExpectFlagList(dec)
		if err != nil {
			c.log.WithError(err).Warn("imapclient: 无效的 PERMANENTFLAGS")
			break
		}
		if c.mailbox != nil {
			c.mailbox.PermanentFlags = flags
		}
		if handler := c.options.unilateralDataHandler().Mailbox; handler != nil {
			handler(&UnilateralDataMailbox{PermanentFlags: flags})
		}
	case imap.ResponseCodeReadOnly:
		if c.mailbox != nil {
			c.mailbox.ReadOnly = true
		}
	case imap.ResponseCodeReadWrite:
		if c.mailbox != nil {
			c.mailbox.ReadOnly = false
		}
	case imap.ResponseCodeUIDNotSticky:
		if c.mailbox != nil {
			c.mailbox.UIDNotSticky = true
		}
	case imap.ResponseCodeReferral:
		c.referral = arg
	case imap.ResponseCodeCapability:
		c.setCaps(strings.Fields(arg))
	case imap.ResponseCodeAlert:
		if handler := c.options.unilateralDataHandler().Alert; handler != nil {
			handler(resp.Text)
		} else {
			c.log.WithField("text", resp.Text).Warn("imapclient: 服务器警告")
		}
	case imap.ResponseCodeParse:
		c.log.WithField("text", resp.Text).Warn("imapclient: 服务器无法解析邮件")
	case imap.ResponseCodeTryCreate, imap.ResponseCodeNewName:
		// 只对调用方有意义
	}
	return resp
}

func (c *Client) parseCodeNumber(resp *imap.StatusResponse) (uint32, bool) {
	n, err := strconv.ParseUint(resp.Arg, 10, 32)
	if err != nil {
		c.log.WithField("code", resp.Code).WithField("arg", resp.Arg).Warn("imapclient: 响应代码的参数不是数字")
		return 0, false
	}
	return uint32(n), true
}

// setUIDValidity 记录 UIDVALIDITY。它在同一次选择中发生变化时，已缓存的 UID 作废。
func (c *Client) setUIDValidity(n uint32) {
	if c.mailbox == nil {
		return
	}
	if old := c.mailbox.UIDValidity; old != 0 && old != n {
		c.log.WithField("old", old).WithField("new", n).Warn("imapclient: UIDVALIDITY 已改变，清空缓存")
		size := c.cache.Len()
		c.cache.Reset()
		c.cache.Resize(size)
	}
	c.mailbox.UIDValidity = n
}

// setCaps 用服务器发来的能力列表替换当前能力，重新计算可用的认证机制和方言。
//
// 通告了 AUTH=PLAIN 时 LOGIN 机制被丢弃，两者重复时只使用 PLAIN。
func (c *Client) setCaps(names []string) {
	c.caps = imap.NewCapSet(names...)
	c.authMechs = make(map[string]struct{})
	for _, mech := range c.caps.AuthMechanisms() {
		if c.auth.Lookup(mech) == nil {
			continue
		}
		c.authMechs[mech] = struct{}{}
	}
	if _, ok := c.authMechs[sasl.Plain]; ok {
		delete(c.authMechs, sasl.Login)
	}
	c.detectDialect()
}
