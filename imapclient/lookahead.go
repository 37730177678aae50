package imapclient

import (
	"fmt"

	"github.com/luhaoyun888/go-imapdriver"
)

// lookaheadSet 返回从 seqNum 开始、最多再包含 n 封 need 为 true 的后续邮件的集合。
func (c *Client) lookaheadSet(seqNum uint32, n int, need func(entry *CacheEntry) bool) imap.SeqSet {
	set := imap.SeqSetNum(seqNum)
	size := c.cache.Len()
	if c.mailbox != nil && c.mailbox.NumMessages > size {
		size = c.mailbox.NumMessages
	}
	for i := seqNum + 1; i <= size && n > 0; i++ {
		if need(c.cache.Lookup(i)) {
			set.AddNum(i)
			n--
		}
	}
	return set
}

func (c *Client) checkSeqNum(seqNum uint32) error {
	if c.state != imap.ConnStateSelected || c.mailbox == nil {
		return fmt.Errorf("imapclient: 没有选中的邮箱")
	}
	if seqNum == 0 || seqNum > c.mailbox.NumMessages {
		return fmt.Errorf("imapclient: 消息序号 %v 超出范围 1:%v", seqNum, c.mailbox.NumMessages)
	}
	return nil
}

// Envelope 返回第 seqNum 封邮件的信封。
//
// 未缓存时顺带获取之后最多 Config.LookAhead 封未缓存邮件的信封。Config.Prefetch 为 true 时
// 同时获取 UID、FLAGS、INTERNALDATE 和 RFC822.SIZE。
func (c *Client) Envelope(seqNum uint32) (*imap.Envelope, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.envelope(seqNum)
}

func (c *Client) envelope(seqNum uint32) (*imap.Envelope, error) {
	if err := c.checkSeqNum(seqNum); err != nil {
		return nil, err
	}
	if entry := c.cache.Lookup(seqNum); entry != nil && entry.Envelope != nil {
		return entry.Envelope, nil
	}

	lookahead := c.cfg.LookAhead
	if c.cfg.ShortCache {
		lookahead = 0
	}
	set := c.lookaheadSet(seqNum, lookahead, func(entry *CacheEntry) bool {
		return entry == nil || entry.Envelope == nil
	})
	options := &imap.FetchOptions{Envelope: true}
	if c.cfg.Prefetch {
		options.Flags = true
		options.InternalDate = true
		options.RFC822Size = true
		options.UID = c.dialect.AtLeastIMAP4()
	}
	if _, err := c.fetch(set, options); err != nil {
		return nil, err
	}

	entry := c.cache.Lookup(seqNum)
	if entry == nil || entry.Envelope == nil {
		return nil, fmt.Errorf("imapclient: 服务器没有返回第 %v 封邮件的信封", seqNum)
	}
	return entry.Envelope, nil
}

// Structure 返回第 seqNum 封邮件的体结构，未缓存时与 Envelope 一样预取后续邮件。
//
// IMAP2 服务器不能获取体结构，返回 ErrNotSupported。
func (c *Client) Structure(seqNum uint32) (imap.BodyStructure, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if err := c.checkSeqNum(seqNum); err != nil {
		return nil, err
	}
	if c.dialect == imap.DialectIMAP2 {
		return nil, ErrNotSupported
	}
	if entry := c.cache.Lookup(seqNum); entry != nil && entry.Body != nil {
		return entry.Body, nil
	}

	lookahead := c.cfg.LookAhead
	if c.cfg.ShortCache {
		lookahead = 0
	}
	set := c.lookaheadSet(seqNum, lookahead, func(entry *CacheEntry) bool {
		return entry == nil || entry.Body == nil
	})
	options := &imap.FetchOptions{
		Envelope:      true,
		BodyStructure: &imap.FetchItemBodyStructure{Extended: true},
	}
	if _, err := c.fetch(set, options); err != nil {
		return nil, err
	}

	entry := c.cache.Lookup(seqNum)
	if entry == nil || entry.Body == nil {
		return nil, fmt.Errorf("imapclient: 服务器没有返回第 %v 封邮件的体结构", seqNum)
	}
	return entry.Body, nil
}

// UID 返回第 seqNum 封邮件的 UID，未缓存时顺带获取最多 Config.UIDLookAhead 封邮件的 UID。
func (c *Client) UID(seqNum uint32) (imap.UID, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if err := c.checkSeqNum(seqNum); err != nil {
		return 0, err
	}
	if !c.dialect.AtLeastIMAP4() {
		return 0, ErrNotSupported
	}
	if entry := c.cache.Lookup(seqNum); entry != nil && entry.UID != 0 {
		return entry.UID, nil
	}

	set := c.lookaheadSet(seqNum, c.cfg.UIDLookAhead, func(entry *CacheEntry) bool {
		return entry == nil || entry.UID == 0
	})
	if _, err := c.fetch(set, &imap.FetchOptions{UID: true}); err != nil {
		return 0, err
	}

	entry := c.cache.Lookup(seqNum)
	if entry == nil || entry.UID == 0 {
		return 0, fmt.Errorf("imapclient: 服务器没有返回第 %v 封邮件的 UID", seqNum)
	}
	return entry.UID, nil
}

// MsgNo 返回 UID 为 uid 的邮件序号。邮件不存在时返回 0 和 nil。
func (c *Client) MsgNo(uid imap.UID) (uint32, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if c.state != imap.ConnStateSelected {
		return 0, fmt.Errorf("imapclient: 没有选中的邮箱")
	}
	if !c.dialect.AtLeastIMAP4() {
		return 0, ErrNotSupported
	}
	if seqNum := c.cache.FindUID(uid); seqNum != 0 {
		return seqNum, nil
	}

	entries, err := c.fetch(imap.UIDSetNum(uid), &imap.FetchOptions{UID: true})
	if err != nil {
		return 0, err
	}
	for _, entry := range entries {
		if entry.UID == uid {
			return entry.SeqNum, nil
		}
	}
	return 0, nil
}
