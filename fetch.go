package imap

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

// FetchOptions 包含 FETCH 命令的选项。
type FetchOptions struct {
	BodyStructure *FetchItemBodyStructure // 消息的体结构
	Envelope      bool                    // 是否获取信封信息
	Flags         bool                    // 是否获取标志
	InternalDate  bool                    // 是否获取内部日期
	RFC822Size    bool                    // 是否获取 RFC822 大小
	UID           bool                    // 是否获取 UID
	BodySection   []*FetchItemBodySection // 体部分
}

// FetchItemBodyStructure 包含用于体结构获取的 FETCH 选项。
type FetchItemBodyStructure struct {
	Extended bool // 为 true 时请求 BODYSTRUCTURE，否则请求 BODY
}

// PartSpecifier 描述要获取的部分的头、体或两者。
type PartSpecifier string

const (
	PartSpecifierNone   PartSpecifier = ""
	PartSpecifierHeader PartSpecifier = "HEADER"
	PartSpecifierMIME   PartSpecifier = "MIME"
	PartSpecifierText   PartSpecifier = "TEXT"
)

// SectionPartial 描述获取消息有效载荷时的字节范围。
type SectionPartial struct {
	Offset, Size int64
}

// FetchItemBodySection 是一个 FETCH BODY[] 数据项。
//
// 要获取消息的完整体，使用零的 FetchItemBodySection；
// 要仅获取特定部分，使用 Part 字段：
//
//	imap.FetchItemBodySection{Part: []int{1, 2}}
//
// 要仅获取消息的头部，使用 Specifier 字段：
//
//	imap.FetchItemBodySection{Specifier: imap.PartSpecifierHeader}
type FetchItemBodySection struct {
	Specifier       PartSpecifier
	Part            []int
	HeaderFields    []string
	HeaderFieldsNot []string
	Partial         *SectionPartial
	Peek            bool
}

// Key 返回该部分在缓存中使用的键，例如 "HEADER"、"TEXT"、"1.2.MIME" 或 ""（整封邮件）。
func (section *FetchItemBodySection) Key() string {
	var l []string
	for _, num := range section.Part {
		l = append(l, strconv.Itoa(num))
	}
	if section.Specifier != PartSpecifierNone {
		spec := string(section.Specifier)
		if section.Specifier == PartSpecifierHeader {
			switch {
			case len(section.HeaderFields) > 0:
				spec += ".FIELDS (" + strings.ToUpper(strings.Join(section.HeaderFields, " ")) + ")"
			case len(section.HeaderFieldsNot) > 0:
				spec += ".FIELDS.NOT (" + strings.ToUpper(strings.Join(section.HeaderFieldsNot, " ")) + ")"
			}
		}
		l = append(l, spec)
	}
	return strings.Join(l, ".")
}

// Envelope 是消息的信封结构。
//
// Subject 和地址中的 Name 已按 RFC 2047 解码。InReplyTo 和 MessageID 保留服务器发来的
// 原始文本（包括尖括号）。Newsgroups、FollowupTo 和 References 不在 ENVELOPE 中，
// 由单独的头部获取填充，并在重新解析信封时保留。
type Envelope struct {
	Date      time.Time // 解析后的发送日期，解析失败时为零值
	RawDate   string    // 服务器发来的原始日期文本
	Subject   string
	From      []Address
	Sender    []Address
	ReplyTo   []Address
	To        []Address
	Cc        []Address
	Bcc       []Address
	InReplyTo string
	MessageID string

	Newsgroups string
	FollowupTo string
	References string
}

// InReplyToIDs 返回 In-Reply-To 中的消息标识符（不含尖括号）。
func (env *Envelope) InReplyToIDs() ([]string, error) {
	return parseMsgIDList("In-Reply-To", env.InReplyTo)
}

// ReferenceIDs 返回 References 中的消息标识符（不含尖括号）。
func (env *Envelope) ReferenceIDs() ([]string, error) {
	return parseMsgIDList("References", env.References)
}

// MessageIDValue 返回不含尖括号的 Message-ID。
func (env *Envelope) MessageIDValue() (string, error) {
	var h mail.Header
	h.Set("Message-Id", env.MessageID)
	return h.MessageID()
}

func parseMsgIDList(key, s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var h mail.Header
	h.Set(key, s)
	return h.MsgIDList(key)
}

// Address 表示消息的发送者或接收者。
type Address struct {
	Name    string // 显示名称
	ADL     string // 源路由，现已废弃
	Mailbox string
	Host    string
}

// Addr 返回邮件地址，格式为 "foo@example.org"。
//
// 如果地址是组的开始或结束，则返回空字符串。
func (addr *Address) Addr() string {
	if addr.Mailbox == "" || addr.Host == "" {
		return ""
	}
	return addr.Mailbox + "@" + addr.Host
}

// IsGroupStart 返回如果该地址是组的开始标记则为真。
//
// 在这种情况下，Mailbox 包含组名短语。
func (addr *Address) IsGroupStart() bool {
	return addr.Host == "" && addr.Mailbox != ""
}

// IsGroupEnd 返回如果该地址是组的结束标记则为真。
func (addr *Address) IsGroupEnd() bool {
	return addr.Host == "" && addr.Mailbox == ""
}

// DefaultSubtype 返回 MIME 类型在未给出子类型时的注册默认值。
func DefaultSubtype(typ string) string {
	switch strings.ToUpper(typ) {
	case "TEXT":
		return "PLAIN"
	case "MULTIPART":
		return "MIXED"
	case "MESSAGE":
		return "RFC822"
	case "APPLICATION":
		return "OCTET-STREAM"
	case "AUDIO":
		return "BASIC"
	default:
		return "UNKNOWN"
	}
}

// NilBody 返回服务器以 NIL 表示的空体结构占位符。
func NilBody() *BodyStructureSinglePart {
	return &BodyStructureSinglePart{Type: "TEXT", Subtype: "PLAIN", Encoding: "7BIT"}
}

// BodyStructure 描述消息的体结构。
//
// BodyStructure 值可以是 *BodyStructureSinglePart 或 *BodyStructureMultiPart。
type BodyStructure interface {
	// MediaType 返回该体结构的 MIME 类型，例如 "text/plain"。
	MediaType() string
	// Walk 遍历体结构树，对每个部分调用 f，
	// 包括 bs 本身。部分按 DFS 前序访问。
	Walk(f BodyStructureWalkFunc)
	// Disposition 返回体结构的处置方式（如果可用）。
	Disposition() *BodyStructureDisposition

	bodyStructure()
}

// BodyStructureSinglePart 是具有单个部分的体结构。
type BodyStructureSinglePart struct {
	Type, Subtype string
	Params        map[string]string // 键为小写
	ID            string
	Description   string
	Encoding      string
	Size          uint32

	MessageRFC822 *BodyStructureMessageRFC822 // 仅适用于 "message/rfc822"
	Text          *BodyStructureText          // 仅适用于 "text/*"
	Extended      *BodyStructureSinglePartExt
}

func (bs *BodyStructureSinglePart) MediaType() string {
	return strings.ToLower(bs.Type) + "/" + strings.ToLower(bs.Subtype)
}

func (bs *BodyStructureSinglePart) Walk(f BodyStructureWalkFunc) {
	f([]int{1}, bs)
}

func (bs *BodyStructureSinglePart) Disposition() *BodyStructureDisposition {
	if bs.Extended == nil {
		return nil
	}
	return bs.Extended.Disposition
}

// Filename 返回体结构的文件名（如果有的话）。
func (bs *BodyStructureSinglePart) Filename() string {
	var filename string
	if bs.Extended != nil && bs.Extended.Disposition != nil {
		filename = bs.Extended.Disposition.Params["filename"]
	}
	if filename == "" {
		filename = bs.Params["name"]
	}
	return filename
}

func (*BodyStructureSinglePart) bodyStructure() {}

// BodyStructureMessageRFC822 包含 message/rfc822 部分的元数据。
type BodyStructureMessageRFC822 struct {
	Envelope      *Envelope
	BodyStructure BodyStructure
	NumLines      int64
}

// BodyStructureText 包含文本部分的元数据。
type BodyStructureText struct {
	NumLines int64
}

// BodyStructureSinglePartExt 包含单部分的扩展数据。
type BodyStructureSinglePartExt struct {
	MD5         string
	Disposition *BodyStructureDisposition
	Language    []string
	Location    string
}

// BodyStructureMultiPart 是具有多个部分的体结构。
type BodyStructureMultiPart struct {
	Children []BodyStructure
	Subtype  string

	Extended *BodyStructureMultiPartExt
}

func (bs *BodyStructureMultiPart) MediaType() string {
	return "multipart/" + strings.ToLower(bs.Subtype)
}

func (bs *BodyStructureMultiPart) Walk(f BodyStructureWalkFunc) {
	bs.walk(f, nil)
}

func (bs *BodyStructureMultiPart) walk(f BodyStructureWalkFunc, path []int) {
	if !f(path, bs) {
		return
	}

	pathBuf := make([]int, len(path))
	copy(pathBuf, path)
	for i, part := range bs.Children {
		partPath := append(pathBuf, i+1)

		switch part := part.(type) {
		case *BodyStructureSinglePart:
			f(partPath, part)
		case *BodyStructureMultiPart:
			part.walk(f, partPath)
		default:
			panic(fmt.Errorf("unsupported body structure type %T", part))
		}
	}
}

func (bs *BodyStructureMultiPart) Disposition() *BodyStructureDisposition {
	if bs.Extended == nil {
		return nil
	}
	return bs.Extended.Disposition
}

func (*BodyStructureMultiPart) bodyStructure() {}

// BodyStructureMultiPartExt 包含多部分的扩展数据。
type BodyStructureMultiPartExt struct {
	Params      map[string]string
	Disposition *BodyStructureDisposition
	Language    []string
	Location    string
}

// BodyStructureDisposition 描述部分的内容处置（Content-Disposition）。
type BodyStructureDisposition struct {
	Value  string
	Params map[string]string
}

// BodyStructureWalkFunc 是 BodyStructure.Walk 对每个部分调用的函数。
//
// path 参数包含 IMAP 部分路径。返回 false 跳过子部分。
type BodyStructureWalkFunc func(path []int, part BodyStructure) (walkChildren bool)
