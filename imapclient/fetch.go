package imapclient

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// Fetch 发送 FETCH 命令（numSet 为 UIDSet 时发送 UID FETCH）。
//
// 返回本次命令涉及的缓存记录，按响应到达的顺序排列，同一封邮件只出现一次。
// 过长的集合会被切分为多条命令，全部在一次持锁期间完成。
func (c *Client) Fetch(numSet imap.NumSet, options *imap.FetchOptions) ([]*CacheEntry, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.fetch(numSet, options)
}

func (c *Client) fetch(numSet imap.NumSet, options *imap.FetchOptions) ([]*CacheEntry, error) {
	var entries []*CacheEntry
	seen := make(map[*CacheEntry]bool)
	err := c.fetchEach(numSet, options, func(entry *CacheEntry) {
		if !seen[entry] {
			seen[entry] = true
			entries = append(entries, entry)
		}
	})
	return entries, err
}

// fetchEach 与 fetch 相同，但对每条 FETCH 响应调用 each。在短缓存模式下，
// 信封和体结构只在 each 调用期间可靠。
func (c *Client) fetchEach(numSet imap.NumSet, options *imap.FetchOptions, each func(entry *CacheEntry)) error {
	name, err := c.uidCmdName("FETCH", numSet)
	if err != nil {
		return err
	}
	_, isUID := numSet.(imap.UIDSet)
	items, err := c.fetchItems(options, isUID)
	if err != nil {
		return err
	}

	c.pending = &pendingData{fetch: each}
	defer func() { c.pending = nil }()

	return c.executeSplit(name, numSet, len(items)+1, func(enc *imapwire.Encoder) {
		enc.SP().Atom(items)
	})
}

// fetchItems 按方言写出 FETCH 数据项列表，例如 "(UID FLAGS BODY.PEEK[HEADER])"。
func (c *Client) fetchItems(options *imap.FetchOptions, uid bool) (string, error) {
	var l []string
	if options.UID || uid {
		l = append(l, "UID")
	}
	if options.Flags {
		l = append(l, "FLAGS")
	}
	if options.InternalDate {
		l = append(l, "INTERNALDATE")
	}
	if options.RFC822Size {
		l = append(l, "RFC822.SIZE")
	}
	if options.Envelope {
		l = append(l, "ENVELOPE")
	}
	if bs := options.BodyStructure; bs != nil {
		switch {
		case c.dialect == imap.DialectIMAP2:
			return "", ErrNotSupported
		case bs.Extended && c.dialect == imap.DialectIMAP4rev1:
			l = append(l, "BODYSTRUCTURE")
		default:
			l = append(l, "BODY")
		}
	}
	for _, section := range options.BodySection {
		item, err := c.bodySectionItem(section)
		if err != nil {
			return "", err
		}
		l = append(l, item)
	}
	if len(l) == 0 {
		return "", fmt.Errorf("imapclient: FETCH 至少需要一个数据项")
	}
	return "(" + strings.Join(l, " ") + ")", nil
}

// bodySectionItem 返回一个正文片段的数据项。IMAP4rev1 以前的服务器只认识整封邮件、
// 邮件头和正文三种 RFC822 形式。
func (c *Client) bodySectionItem(section *imap.FetchItemBodySection) (string, error) {
	key := section.Key()
	if c.dialect != imap.DialectIMAP4rev1 {
		if section.Partial != nil {
			return "", ErrNotSupported
		}
		switch key {
		case "":
			return "RFC822", nil
		case "HEADER":
			return "RFC822.HEADER", nil
		case "TEXT":
			return "RFC822.TEXT", nil
		default:
			return "", ErrNotSupported
		}
	}

	var sb strings.Builder
	sb.WriteString("BODY")
	if section.Peek {
		sb.WriteString(".PEEK")
	}
	sb.WriteString("[" + key + "]")
	if partial := section.Partial; partial != nil {
		fmt.Fprintf(&sb, "<%v.%v>", partial.Offset, partial.Size)
	}
	return sb.String(), nil
}

// fetchSink 把指定片段的字面量直接写入 w，不经过缓存。
type fetchSink struct {
	seqNum uint32
	key    string
	w      io.Writer
	n      int64
}

func (sink *fetchSink) Write(b []byte) (int, error) {
	n, err := sink.w.Write(b)
	sink.n += int64(n)
	return n, err
}

// handleFetch 处理 "* n FETCH (...)"，把数据写入缓存记录。
func (c *Client) handleFetch(seqNum uint32, dec *imapwire.Decoder) error {
	entry := c.cache.Entry(seqNum)
	if entry == nil {
		return fmt.Errorf("imapclient: FETCH 的消息序号为 0")
	}

	var (
		envelopeSeen bool
		header       []byte
	)
	err := dec.ExpectList(func() error {
		var attName string
		if !dec.Expect(dec.Func(&attName, isMsgAttNameChar), "消息属性名称") {
			return dec.Err()
		}
		attName = strings.ToUpper(attName)

		switch attName {
		case "FLAGS":
			if !dec.ExpectSP() {
				return dec.Err()
			}
			flags, err := internal.ExpectFlagList(dec)
			if err != nil {
				return err
			}
			c.applyFlags(entry, flags)
		case "INTERNALDATE":
			if !dec.ExpectSP() {
				return dec.Err()
			}
			t, raw, err := internal.ExpectDateTime(dec)
			if err != nil {
				if raw == "" {
					return err
				}
				c.log.WithError(err).Warn("imapclient: 忽略无效的 INTERNALDATE")
			}
			entry.InternalDate = t
			entry.RawInternalDate = raw
		case "RFC822.SIZE":
			if !dec.ExpectSP() || !dec.ExpectNumber64(&entry.Size) {
				return dec.Err()
			}
			entry.HasSize = true
		case "UID":
			var uid uint32
			if !dec.ExpectSP() || !dec.ExpectNumber(&uid) {
				return dec.Err()
			}
			c.setUID(entry, imap.UID(uid))
		case "ENVELOPE":
			if !dec.ExpectSP() {
				return dec.Err()
			}
			env, err := readEnvelope(dec, &c.options)
			if err != nil {
				return fmt.Errorf("解析信封时出错: %v", err)
			}
			if old := entry.Envelope; old != nil && env != nil {
				env.Newsgroups = old.Newsgroups
				env.FollowupTo = old.FollowupTo
				env.References = old.References
			}
			c.cache.SetEnvelope(seqNum, env)
			envelopeSeen = true
		case "BODY", "BODYSTRUCTURE":
			if attName == "BODY" && dec.Special('[') {
				section, err := readSectionSpec(dec)
				if err != nil {
					return fmt.Errorf("解析片段时出错: %v", err)
				}
				if !dec.ExpectSP() {
					return dec.Err()
				}
				key := sectionKey(section)
				b, err := c.readSection(dec, entry, key)
				if err != nil {
					return err
				}
				if key == "HEADER" {
					header = b
				}
				return nil
			}
			if !dec.ExpectSP() {
				return dec.Err()
			}
			body, err := readBody(dec, &c.options)
			if err != nil {
				return err
			}
			c.cache.SetBody(seqNum, body)
		case "RFC822", "RFC822.HEADER", "RFC822.TEXT":
			if !dec.ExpectSP() {
				return dec.Err()
			}
			key := strings.TrimPrefix(strings.TrimPrefix(attName, "RFC822"), ".")
			b, err := c.readSection(dec, entry, key)
			if err != nil {
				return err
			}
			if key == "HEADER" {
				header = b
			}
		default:
			c.log.WithField("item", attName).Warn("imapclient: 跳过未知的 FETCH 数据项")
			if dec.SP() && !dec.DiscardValue() {
				return dec.Err()
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if header != nil && entry.Envelope != nil {
		if err := fillEnvelopeHeader(entry.Envelope, header); err != nil {
			c.log.WithError(err).Warn("imapclient: 无法解析邮件头")
		}
	}

	handler := c.options.unilateralDataHandler()
	if c.pending != nil && c.pending.fetch != nil {
		c.pending.fetch(entry)
	} else if handler.Fetch != nil {
		handler.Fetch(entry)
	}
	if envelopeSeen && handler.Envelope != nil && entry.Envelope != nil {
		handler.Envelope(seqNum, entry.Envelope)
	}
	return nil
}

// sectionKey 返回片段在缓存记录中的键。带 <origin> 的部分片段另用 "TEXT<0>" 形式的键，
// 不会顶替完整片段。
func sectionKey(section *imap.FetchItemBodySection) string {
	key := section.Key()
	if section.Partial != nil {
		key += fmt.Sprintf("<%v>", section.Partial.Offset)
	}
	return key
}

// readSection 读取一个正文片段。片段匹配当前的 fetchSink 时直接写入其中，
// 否则保存到缓存记录并返回内容。
func (c *Client) readSection(dec *imapwire.Decoder, entry *CacheEntry, key string) ([]byte, error) {
	if sink := c.sink; sink != nil && sink.seqNum == entry.SeqNum && sink.key == key {
		if _, ok := dec.ExpectNStringTo(sink); !ok {
			return nil, dec.Err()
		}
		return nil, nil
	}

	var buf bytes.Buffer
	if _, ok := dec.ExpectNStringTo(&buf); !ok {
		return nil, dec.Err()
	}
	if entry.Sections == nil {
		entry.Sections = make(map[string][]byte)
	}
	entry.Sections[key] = buf.Bytes()
	return buf.Bytes(), nil
}

// applyFlags 把标志列表转换为系统标志位和用户标志位。
func (c *Client) applyFlags(entry *CacheEntry, flags []imap.Flag) {
	entry.Flags = 0
	entry.UserFlags = 0
	for _, flag := range flags {
		if bit := imap.SystemFlagBit(flag); bit != 0 {
			entry.Flags |= bit
			continue
		}
		if i := c.addUserFlag(flag); i >= 0 {
			entry.UserFlags |= 1 << uint(i)
		}
	}
	entry.HasFlags = true
}

// EntryFlags 展开缓存记录中的系统标志和用户标志。
func (c *Client) EntryFlags(entry *CacheEntry) []imap.Flag {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.entryFlags(entry)
}

func (c *Client) entryFlags(entry *CacheEntry) []imap.Flag {
	flags := entry.Flags.Flags()
	for i, flag := range c.userFlags {
		if entry.UserFlags&(1<<uint(i)) != 0 {
			flags = append(flags, flag)
		}
	}
	return flags
}

// setUID 记录 UID。已记录的 UID 不会被覆盖。
func (c *Client) setUID(entry *CacheEntry, uid imap.UID) {
	switch {
	case entry.UID == 0:
		entry.UID = uid
	case entry.UID != uid:
		c.log.WithField("seq", entry.SeqNum).
			WithField("cached", entry.UID).
			WithField("received", uid).
			Warn("imapclient: 服务器改变了已缓存的 UID，保留原值")
	}
}

// isMsgAttNameChar 判断字符是否可以出现在消息属性名称中。
func isMsgAttNameChar(ch byte) bool {
	return ch != '[' && imapwire.IsAtomChar(ch)
}

// readSectionSpec 读取 "[" 之后的片段说明，直到 "]" 以及可选的 "<origin>"。
func readSectionSpec(dec *imapwire.Decoder) (*imap.FetchItemBodySection, error) {
	var section imap.FetchItemBodySection

	var dot bool
	section.Part, dot = readSectionPart(dec)
	if dot || len(section.Part) == 0 {
		var specifier string
		if dot {
			if !dec.ExpectAtom(&specifier) {
				return nil, dec.Err()
			}
		} else {
			dec.Atom(&specifier)
		}
		specifier = strings.ToUpper(specifier)
		section.Specifier = imap.PartSpecifier(specifier)

		if specifier == "HEADER.FIELDS" || specifier == "HEADER.FIELDS.NOT" {
			if !dec.ExpectSP() {
				return nil, dec.Err()
			}
			headerList, err := readHeaderList(dec)
			if err != nil {
				return nil, err
			}
			section.Specifier = imap.PartSpecifierHeader
			if specifier == "HEADER.FIELDS" {
				section.HeaderFields = headerList
			} else {
				section.HeaderFieldsNot = headerList
			}
		}
	}

	if !dec.ExpectSpecial(']') {
		return nil, dec.Err()
	}

	if dec.Special('<') {
		var offset uint32
		if !dec.ExpectNumber(&offset) || !dec.ExpectSpecial('>') {
			return nil, dec.Err()
		}
		section.Partial = &imap.SectionPartial{Offset: int64(offset)}
	}
	return &section, nil
}

func readHeaderList(dec *imapwire.Decoder) ([]string, error) {
	var l []string
	err := dec.ExpectList(func() error {
		var s string
		if !dec.ExpectAString(&s) {
			return dec.Err()
		}
		l = append(l, s)
		return nil
	})
	return l, err
}

// readSectionPart 读取 "1.2.3" 形式的部分编号。dot 为 true 表示编号后面还跟着一个点。
func readSectionPart(dec *imapwire.Decoder) (part []int, dot bool) {
	for {
		dot = len(part) > 0
		if dot && !dec.Special('.') {
			return part, false
		}

		var num uint32
		if !dec.Number(&num) {
			return part, dot
		}
		part = append(part, int(num))
	}
}

// FetchBody 获取第 seqNum 封邮件的一个片段，结果同时保存在缓存中。
func (c *Client) FetchBody(seqNum uint32, section *imap.FetchItemBodySection) ([]byte, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	key := sectionKey(section)
	if entry := c.cache.Lookup(seqNum); entry != nil && section.Partial == nil {
		if b, ok := entry.Sections[key]; ok {
			return b, nil
		}
	}
	if _, err := c.fetch(imap.SeqSetNum(seqNum), &imap.FetchOptions{BodySection: []*imap.FetchItemBodySection{section}}); err != nil {
		return nil, err
	}
	entry := c.cache.Lookup(seqNum)
	if entry == nil {
		return nil, fmt.Errorf("imapclient: 服务器没有返回第 %v 封邮件", seqNum)
	}
	b, ok := entry.Sections[key]
	if !ok {
		return nil, fmt.Errorf("imapclient: 服务器没有返回片段 [%v]", key)
	}
	return b, nil
}

// FetchBodyTo 获取一个片段并把内容直接写入 w，返回写入的字节数。内容不会进入缓存。
func (c *Client) FetchBodyTo(seqNum uint32, section *imap.FetchItemBodySection, w io.Writer) (int64, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	sink := &fetchSink{seqNum: seqNum, key: sectionKey(section), w: w}
	c.sink = sink
	defer func() { c.sink = nil }()

	_, err := c.fetch(imap.SeqSetNum(seqNum), &imap.FetchOptions{BodySection: []*imap.FetchItemBodySection{section}})
	return sink.n, err
}

// FetchHeader 获取邮件头。IMAP4rev1 使用 BODY.PEEK[HEADER]，更早的方言使用 RFC822.HEADER。
func (c *Client) FetchHeader(seqNum uint32) ([]byte, error) {
	return c.FetchBody(seqNum, &imap.FetchItemBodySection{Specifier: imap.PartSpecifierHeader, Peek: true})
}

// FetchText 获取邮件正文，不含邮件头。
func (c *Client) FetchText(seqNum uint32) ([]byte, error) {
	return c.FetchBody(seqNum, &imap.FetchItemBodySection{Specifier: imap.PartSpecifierText, Peek: true})
}
