package imapclient

import (
	"strings"
	"time"
	"unicode"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// Search 发送 SEARCH 命令，返回匹配邮件的序号。
//
// 条件中含有非 ASCII 字符时使用 CHARSET UTF-8。匹配的缓存记录被标记为 Searched，
// 之前的标记被清除。
func (c *Client) Search(criteria *imap.SearchCriteria) ([]uint32, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	for i := uint32(1); i <= c.cache.Len(); i++ {
		if entry := c.cache.Lookup(i); entry != nil {
			entry.Searched = false
		}
	}

	var nums []uint32
	pd := &pendingData{search: func(num uint32) {
		nums = append(nums, num)
		if entry := c.cache.Entry(num); entry != nil {
			entry.Searched = true
		}
	}}
	err := c.search("SEARCH", pd, criteria)
	return nums, err
}

// UIDSearch 发送 UID SEARCH 命令，返回匹配邮件的 UID。需要 IMAP4 或更新的服务器。
func (c *Client) UIDSearch(criteria *imap.SearchCriteria) ([]imap.UID, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if !c.dialect.AtLeastIMAP4() {
		return nil, ErrNotSupported
	}
	var uids []imap.UID
	pd := &pendingData{search: func(num uint32) {
		uids = append(uids, imap.UID(num))
	}}
	err := c.search("UID SEARCH", pd, criteria)
	return uids, err
}

func (c *Client) search(name string, pd *pendingData, criteria *imap.SearchCriteria) error {
	if criteria == nil {
		criteria = &imap.SearchCriteria{}
	}
	charset := c.dialect.AtLeastIMAP4() && !searchCriteriaIsASCII(criteria)
	return c.executeWith(pd, name, func(enc *imapwire.Encoder) {
		enc.SP()
		if charset {
			enc.Atom("CHARSET").SP().Atom("UTF-8").SP()
		}
		writeSearchKey(enc, criteria)
	})
}

// writeSearchKey 写出搜索程序。没有任何条件时写出 ALL。
func writeSearchKey(enc *imapwire.Encoder, criteria *imap.SearchCriteria) {
	firstItem := true
	encodeItem := func() *imapwire.Encoder {
		if !firstItem {
			enc.SP()
		}
		firstItem = false
		return enc
	}

	for _, seqSet := range criteria.SeqNum {
		encodeItem().Atom(seqSet.String())
	}
	for _, uidSet := range criteria.UID {
		encodeItem().Atom("UID").SP().Atom(uidSet.String())
	}

	if !criteria.Since.IsZero() && !criteria.Before.IsZero() && criteria.Before.Sub(criteria.Since) == 24*time.Hour {
		encodeItem().Atom("ON").SP().Atom(criteria.Since.Format(imapwire.DateLayout))
	} else {
		if !criteria.Since.IsZero() {
			encodeItem().Atom("SINCE").SP().Atom(criteria.Since.Format(imapwire.DateLayout))
		}
		if !criteria.Before.IsZero() {
			encodeItem().Atom("BEFORE").SP().Atom(criteria.Before.Format(imapwire.DateLayout))
		}
	}
	if !criteria.SentSince.IsZero() && !criteria.SentBefore.IsZero() && criteria.SentBefore.Sub(criteria.SentSince) == 24*time.Hour {
		encodeItem().Atom("SENTON").SP().Atom(criteria.SentSince.Format(imapwire.DateLayout))
	} else {
		if !criteria.SentSince.IsZero() {
			encodeItem().Atom("SENTSINCE").SP().Atom(criteria.SentSince.Format(imapwire.DateLayout))
		}
		if !criteria.SentBefore.IsZero() {
			encodeItem().Atom("SENTBEFORE").SP().Atom(criteria.SentBefore.Format(imapwire.DateLayout))
		}
	}

	for _, kv := range criteria.Header {
		switch k := strings.ToUpper(kv.Key); k {
		case "BCC", "CC", "FROM", "SUBJECT", "TO":
			encodeItem().Atom(k)
		default:
			encodeItem().Atom("HEADER").SP().String(kv.Key)
		}
		enc.SP().String(kv.Value)
	}

	for _, s := range criteria.Body {
		encodeItem().Atom("BODY").SP().String(s)
	}
	for _, s := range criteria.Text {
		encodeItem().Atom("TEXT").SP().String(s)
	}

	for _, flag := range criteria.Flag {
		if k := flagSearchKey(flag); k != "" {
			encodeItem().Atom(k)
		} else {
			encodeItem().Atom("KEYWORD").SP().Flag(string(flag))
		}
	}
	for _, flag := range criteria.NotFlag {
		if k := flagSearchKey(flag); k != "" {
			encodeItem().Atom("UN" + k)
		} else {
			encodeItem().Atom("UNKEYWORD").SP().Flag(string(flag))
		}
	}

	if criteria.Larger > 0 {
		encodeItem().Atom("LARGER").SP().Number64(criteria.Larger)
	}
	if criteria.Smaller > 0 {
		encodeItem().Atom("SMALLER").SP().Number64(criteria.Smaller)
	}

	for _, not := range criteria.Not {
		encodeItem().Atom("NOT").SP().Special('(')
		writeSearchKey(enc, &not)
		enc.Special(')')
	}
	for _, or := range criteria.Or {
		encodeItem().Atom("OR").SP().Special('(')
		writeSearchKey(enc, &or[0])
		enc.Special(')').SP().Special('(')
		writeSearchKey(enc, &or[1])
		enc.Special(')')
	}

	if firstItem {
		enc.Atom("ALL")
	}
}

// flagSearchKey 返回系统标志对应的搜索关键字，例如 \Seen 对应 SEEN。
func flagSearchKey(flag imap.Flag) string {
	switch flag {
	case imap.FlagAnswered, imap.FlagDeleted, imap.FlagDraft, imap.FlagFlagged, imap.FlagSeen:
		return strings.ToUpper(strings.TrimPrefix(string(flag), "\\"))
	default:
		return ""
	}
}

func searchCriteriaIsASCII(criteria *imap.SearchCriteria) bool {
	for _, kv := range criteria.Header {
		if !isASCII(kv.Key) || !isASCII(kv.Value) {
			return false
		}
	}
	for _, s := range criteria.Body {
		if !isASCII(s) {
			return false
		}
	}
	for _, s := range criteria.Text {
		if !isASCII(s) {
			return false
		}
	}
	for _, not := range criteria.Not {
		if !searchCriteriaIsASCII(&not) {
			return false
		}
	}
	for _, or := range criteria.Or {
		if !searchCriteriaIsASCII(&or[0]) || !searchCriteriaIsASCII(&or[1]) {
			return false
		}
	}
	return true
}

func isASCII(s string) bool {
	for _, c := range s {
		if c > unicode.MaxASCII {
			return false
		}
	}
	return true
}
