package imapclient

import (
	"time"

	"github.com/luhaoyun888/go-imapdriver"
)

// CacheEntry 是一封邮件的缓存记录。
//
// UID 一旦记录就不会被覆盖，直到重新选择邮箱。UserFlags 的第 i 位对应
// 会话用户标志表中的第 i 个标志。
type CacheEntry struct {
	SeqNum uint32
	UID    imap.UID

	Flags     imap.SystemFlags
	UserFlags uint32
	HasFlags  bool

	InternalDate    time.Time
	RawInternalDate string
	Size            int64
	HasSize         bool

	Envelope *imap.Envelope
	Body     imap.BodyStructure

	// Sections 保存已获取的正文片段，键见 imap.FetchItemBodySection.Key。
	Sections map[string][]byte
	// Searched 在最近一次 SEARCH 命中该邮件时为 true。
	Searched bool
}

// MailboxCache 保存当前邮箱中每封邮件的元数据，按消息序号索引（从 1 开始）。
//
// 实现不需要并发安全：会话只会在持有命令锁时调用它。
type MailboxCache interface {
	// Entry 返回第 seqNum 封邮件的记录，不存在时创建。
	Entry(seqNum uint32) *CacheEntry
	// Lookup 返回已有的记录，不存在时返回 nil。
	Lookup(seqNum uint32) *CacheEntry
	// Expunge 删除第 seqNum 封邮件，其后所有邮件的序号减一。
	Expunge(seqNum uint32)
	// Resize 把邮箱大小设为 n。缩小时多出的记录被丢弃。
	Resize(n uint32)
	// Len 返回邮箱大小。
	Len() uint32
	// Reset 清空所有记录。
	Reset()
	// FindUID 返回 UID 为 uid 的邮件序号，未缓存时返回 0。
	FindUID(uid imap.UID) uint32
	// SetEnvelope 保存信封。
	SetEnvelope(seqNum uint32, env *imap.Envelope)
	// SetBody 保存体结构。
	SetBody(seqNum uint32, body imap.BodyStructure)
}

// MemCache 是基于内存切片的 MailboxCache。
//
// 短缓存模式下，整个会话只保留最近一封邮件的信封和体结构。
type MemCache struct {
	entries []*CacheEntry
	short   bool
	shortAt uint32 // 短缓存模式下持有信封和体结构的邮件
}

var _ MailboxCache = (*MemCache)(nil)

// NewMemCache 创建一个空缓存。
func NewMemCache(short bool) *MemCache {
	return &MemCache{short: short}
}

func (mc *MemCache) Entry(seqNum uint32) *CacheEntry {
	if seqNum == 0 {
		return nil
	}
	if seqNum > uint32(len(mc.entries)) {
		mc.Resize(seqNum)
	}
	entry := mc.entries[seqNum-1]
	if entry == nil {
		entry = &CacheEntry{SeqNum: seqNum}
		mc.entries[seqNum-1] = entry
	}
	return entry
}

func (mc *MemCache) Lookup(seqNum uint32) *CacheEntry {
	if seqNum == 0 || seqNum > uint32(len(mc.entries)) {
		return nil
	}
	return mc.entries[seqNum-1]
}

func (mc *MemCache) Expunge(seqNum uint32) {
	if seqNum == 0 || seqNum > uint32(len(mc.entries)) {
		return
	}
	mc.entries = append(mc.entries[:seqNum-1], mc.entries[seqNum:]...)
	for i := seqNum - 1; i < uint32(len(mc.entries)); i++ {
		if entry := mc.entries[i]; entry != nil {
			entry.SeqNum = i + 1
		}
	}
	switch {
	case mc.shortAt == seqNum:
		mc.shortAt = 0
	case mc.shortAt > seqNum:
		mc.shortAt--
	}
}

func (mc *MemCache) Resize(n uint32) {
	if cur := uint32(len(mc.entries)); n <= cur {
		for i := n; i < cur; i++ {
			mc.entries[i] = nil
		}
		mc.entries = mc.entries[:n]
		if mc.shortAt > n {
			mc.shortAt = 0
		}
		return
	}
	grown := make([]*CacheEntry, n)
	copy(grown, mc.entries)
	mc.entries = grown
}

func (mc *MemCache) Len() uint32 {
	return uint32(len(mc.entries))
}

func (mc *MemCache) Reset() {
	mc.entries = nil
	mc.shortAt = 0
}

func (mc *MemCache) FindUID(uid imap.UID) uint32 {
	if uid == 0 {
		return 0
	}
	for _, entry := range mc.entries {
		if entry != nil && entry.UID == uid {
			return entry.SeqNum
		}
	}
	return 0
}

// retain 在短缓存模式下释放上一封邮件的信封和体结构。
func (mc *MemCache) retain(seqNum uint32) {
	if !mc.short || mc.shortAt == seqNum {
		return
	}
	if prev := mc.Lookup(mc.shortAt); prev != nil {
		prev.Envelope = nil
		prev.Body = nil
	}
	mc.shortAt = seqNum
}

func (mc *MemCache) SetEnvelope(seqNum uint32, env *imap.Envelope) {
	entry := mc.Entry(seqNum)
	if entry == nil {
		return
	}
	mc.retain(seqNum)
	entry.Envelope = env
}

func (mc *MemCache) SetBody(seqNum uint32, body imap.BodyStructure) {
	entry := mc.Entry(seqNum)
	if entry == nil {
		return
	}
	mc.retain(seqNum)
	entry.Body = body
}
