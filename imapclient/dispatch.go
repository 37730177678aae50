package imapclient

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// pendingData 收集正在执行的命令所请求的数据。
//
// 字段非空时对应的未标记数据交给它，否则交给 UnilateralDataHandler。
type pendingData struct {
	search     func(num uint32)
	sort       func(num uint32)
	list       func(data *imap.ListData)
	lsub       func(data *imap.ListData)
	status     func(data *imap.StatusData)
	acl        func(data *imap.ACLData)
	listRights func(data *imap.ListRightsData)
	myRights   func(data *imap.MyRightsData)
	quota      func(data *imap.QuotaData)
	quotaRoot  func(data *imap.QuotaRootData)
	namespace  func(data *imap.NamespaceData)
	id         func(data *imap.IDData)
	fetch      func(entry *CacheEntry)
	expunge    func(seqNum uint32)
}

// executeWith 在 pd 收集数据的情况下执行命令。
func (c *Client) executeWith(pd *pendingData, name string, args func(enc *imapwire.Encoder)) error {
	c.pending = pd
	defer func() { c.pending = nil }()
	return c.execute(name, args)
}

// dispatch 分派一条未标记响应。
//
// 解析不了的响应只记录警告；行尾留下的字面量总会被读走，数据流不会失去同步。
func (c *Client) dispatch(reply *imapwire.Reply) {
	switch reply.Key {
	case "OK", "NO", "BAD", "BYE", "PREAUTH":
		c.handleUntaggedStatus(imap.StatusResponseType(reply.Key), reply.Text)
		return
	}

	dec := imapwire.NewDecoder(c.source(), reply.Text)
	if err := c.handleUntagged(reply.Key, dec); err != nil && c.dead == nil {
		c.log.WithField("type", reply.Key).WithError(err).Warn("imapclient: 无法解析未标记响应")
	}
	if c.dead == nil {
		dec.Drain()
	}
}

func (c *Client) handleUntaggedStatus(typ imap.StatusResponseType, text string) {
	resp := c.handleRespText(typ, text)
	entry := c.log.WithField("text", resp.Text)
	if resp.Code != "" {
		entry = entry.WithField("code", resp.Code)
	}
	switch typ {
	case imap.StatusResponseTypeBye:
		c.byeSeen = true
		entry.Info("imapclient: 服务器即将关闭连接")
	case imap.StatusResponseTypeNo:
		entry.Warn("imapclient: 服务器警告")
	case imap.StatusResponseTypeBad:
		entry.Error("imapclient: 服务器报告协议错误")
	default:
		entry.Debug("imapclient: 服务器通知")
	}
	if handler := c.options.unilateralDataHandler().Notify; handler != nil {
		handler(resp)
	}
}

func (c *Client) handleUntagged(key string, dec *imapwire.Decoder) error {
	if num, err := strconv.ParseUint(key, 10, 32); err == nil {
		var typ string
		if !dec.ExpectAtom(&typ) {
			return dec.Err()
		}
		return c.handleMessageData(uint32(num), strings.ToUpper(typ), dec)
	}

	handler := c.options.unilateralDataHandler()
	pd := c.pending
	if pd == nil {
		pd = &pendingData{}
	}

	switch key {
	case "CAPABILITY":
		c.setCaps(strings.Fields(dec.Rest()))
		return nil
	case "FLAGS":
		dec.SP()
		flags, err := internal.ExpectFlagList(dec)
		if err != nil {
			return err
		}
		c.setMailboxFlags(flags)
		if handler.Mailbox != nil {
			handler.Mailbox(&UnilateralDataMailbox{Flags: flags})
		}
		return nil
	case "LIST", "LSUB":
		data, err := c.readList(dec)
		if err != nil {
			return err
		}
		switch {
		case key == "LIST" && pd.list != nil:
			pd.list(data)
		case key == "LSUB" && pd.lsub != nil:
			pd.lsub(data)
		case key == "LIST" && handler.List != nil:
			handler.List(data)
		case key == "LSUB" && handler.LSub != nil:
			handler.LSub(data)
		}
		return nil
	case "MAILBOX", "BBOARD":
		// IMAP2bis 对 FIND 的响应
		var name string
		if !dec.ExpectAString(&name) {
			return dec.Err()
		}
		data := &imap.ListData{Mailbox: c.listPrefix + name}
		if pd.list != nil {
			pd.list(data)
		} else if pd.lsub != nil {
			pd.lsub(data)
		} else if handler.List != nil {
			handler.List(data)
		}
		return nil
	case "SEARCH":
		return c.readNumbers(dec, func(num uint32) {
			if pd.search != nil {
				pd.search(num)
				return
			}
			if entry := c.cache.Entry(num); entry != nil {
				entry.Searched = true
			}
			if handler.Searched != nil {
				handler.Searched(num)
			}
		})
	case "SORT":
		return c.readNumbers(dec, func(num uint32) {
			if pd.sort != nil {
				pd.sort(num)
			} else {
				c.sortResult = append(c.sortResult, num)
			}
		})
	case "THREAD":
		threads, err := readThreads(dec)
		if err != nil {
			return err
		}
		c.threadResult = threads
		return nil
	case "STATUS":
		data, err := c.readStatus(dec)
		if err != nil {
			return err
		}
		if pd.status != nil {
			pd.status(data)
		} else if handler.Status != nil {
			handler.Status(data)
		}
		return nil
	case "NAMESPACE":
		data, err := readNamespace(dec)
		if err != nil {
			return err
		}
		c.namespace = data
		if pd.namespace != nil {
			pd.namespace(data)
		}
		return nil
	case "ACL":
		data, err := readACL(dec)
		if err != nil {
			return err
		}
		if pd.acl != nil {
			pd.acl(data)
		} else if handler.ACL != nil {
			handler.ACL(data)
		}
		return nil
	case "LISTRIGHTS":
		data, err := readListRights(dec)
		if err != nil {
			return err
		}
		if pd.listRights != nil {
			pd.listRights(data)
		} else if handler.ListRights != nil {
			handler.ListRights(data)
		}
		return nil
	case "MYRIGHTS":
		data, err := readMyRights(dec)
		if err != nil {
			return err
		}
		if pd.myRights != nil {
			pd.myRights(data)
		} else if handler.MyRights != nil {
			handler.MyRights(data)
		}
		return nil
	case "QUOTA":
		data, err := readQuota(dec)
		if err != nil {
			return err
		}
		if pd.quota != nil {
			pd.quota(data)
		} else if handler.Quota != nil {
			handler.Quota(data)
		}
		return nil
	case "QUOTAROOT":
		data, err := readQuotaRoot(dec)
		if err != nil {
			return err
		}
		if pd.quotaRoot != nil {
			pd.quotaRoot(data)
		} else if handler.QuotaRoot != nil {
			handler.QuotaRoot(data)
		}
		return nil
	case "ID":
		data, err := readID(dec)
		if err != nil {
			return err
		}
		if pd.id != nil {
			pd.id(data)
		}
		return nil
	default:
		return fmt.Errorf("imapclient: 未知的未标记响应 %q", key)
	}
}

// handleMessageData 处理 "* n EXISTS" 这一类带消息编号的数据。
func (c *Client) handleMessageData(num uint32, typ string, dec *imapwire.Decoder) error {
	handler := c.options.unilateralDataHandler()
	switch typ {
	case "EXISTS":
		if c.mailbox != nil {
			c.mailbox.NumMessages = num
		}
		c.cache.Resize(num)
		if handler.Mailbox != nil {
			handler.Mailbox(&UnilateralDataMailbox{NumMessages: &num})
		}
	case "RECENT":
		if c.mailbox != nil {
			c.mailbox.NumRecent = num
		}
		if handler.Mailbox != nil {
			handler.Mailbox(&UnilateralDataMailbox{NumRecent: &num})
		}
	case "EXPUNGE":
		if num == 0 || num > c.cache.Len() {
			return fmt.Errorf("imapclient: EXPUNGE 的消息序号 %v 超出范围", num)
		}
		c.cache.Expunge(num)
		if c.mailbox != nil && c.mailbox.NumMessages > 0 {
			c.mailbox.NumMessages--
		}
		c.sortResult = nil
		if c.pending != nil && c.pending.expunge != nil {
			c.pending.expunge(num)
		}
		if handler.Expunge != nil {
			handler.Expunge(num)
		}
	case "FETCH", "STORE":
		// IMAP2bis 用 "* n STORE" 回送标志
		if !dec.ExpectSP() {
			return dec.Err()
		}
		return c.handleFetch(num, dec)
	case "COPY":
		// IMAP2 的 COPY 确认，没有数据
	default:
		return fmt.Errorf("imapclient: 未知的消息数据 %q", typ)
	}
	return nil
}

// setMailboxFlags 记录邮箱定义的标志，并重建用户标志表。
func (c *Client) setMailboxFlags(flags []imap.Flag) {
	if c.mailbox != nil {
		c.mailbox.Flags = flags
	}
	c.userFlags = c.userFlags[:0]
	for _, flag := range flags {
		if imap.SystemFlagBit(flag) == 0 && flag != imap.FlagWildcard {
			c.addUserFlag(flag)
		}
	}
}

// addUserFlag 把 flag 加入用户标志表，返回它的下标；表满时返回 -1。
func (c *Client) addUserFlag(flag imap.Flag) int {
	for i, f := range c.userFlags {
		if strings.EqualFold(string(f), string(flag)) {
			return i
		}
	}
	if len(c.userFlags) >= MaxUserFlags {
		c.log.WithField("flag", flag).Warn("imapclient: 用户标志表已满")
		return -1
	}
	c.userFlags = append(c.userFlags, flag)
	return len(c.userFlags) - 1
}

// readNumbers 读取以空格分隔的数字，直到行尾。空列表也是合法的。
func (c *Client) readNumbers(dec *imapwire.Decoder, f func(num uint32)) error {
	for !dec.EOL() {
		var num uint32
		if !dec.ExpectNumber(&num) {
			return dec.Err()
		}
		f(num)
		if !dec.SP() {
			break
		}
	}
	return nil
}
