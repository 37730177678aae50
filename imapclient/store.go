package imapclient

import (
	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// Store 发送 STORE 命令修改标志。
//
// 过长的集合会被切分为多条命令。除非 StoreFlags.Silent 被设置，
// 服务器回送的新标志会更新缓存；回送的数据同时放在返回值中。
func (c *Client) Store(numSet imap.NumSet, store *imap.StoreFlags) ([]*CacheEntry, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.store(numSet, store)
}

func (c *Client) store(numSet imap.NumSet, store *imap.StoreFlags) ([]*CacheEntry, error) {
	name, err := c.uidCmdName("STORE", numSet)
	if err != nil {
		return nil, err
	}

	item := store.Item()
	extra := len(item) + 3
	for _, flag := range store.Flags {
		extra += len(flag) + 1
	}

	var entries []*CacheEntry
	pd := &pendingData{fetch: func(entry *CacheEntry) {
		entries = append(entries, entry)
	}}
	c.pending = pd
	defer func() { c.pending = nil }()

	err = c.executeSplit(name, numSet, extra, func(enc *imapwire.Encoder) {
		enc.SP().Atom(item).SP().List(len(store.Flags), func(i int) {
			enc.Flag(string(store.Flags[i]))
		})
	})
	return entries, err
}
